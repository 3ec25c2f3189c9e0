package booking

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/pkg/comms"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
)

var monday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

type fakeBookingRepo struct {
	bookings  []*model.Booking
	createErr error
}

func (f *fakeBookingRepo) Create(_ context.Context, b *model.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.bookings = append(f.bookings, b)
	return nil
}

func (f *fakeBookingRepo) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, postgres.ErrBookingNotFound
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.BookingStatus) error {
	for _, b := range f.bookings {
		if b.ID == id {
			b.Status = status
			return nil
		}
	}
	return postgres.ErrBookingNotFound
}

func (f *fakeBookingRepo) SetConversationSID(_ context.Context, id uuid.UUID, sid string) error {
	for _, b := range f.bookings {
		if b.ID == id {
			b.ConversationSID = &sid
			return nil
		}
	}
	return postgres.ErrBookingNotFound
}

func (f *fakeBookingRepo) Delete(_ context.Context, clientUserID, staffUserID uuid.UUID, targetDate time.Time, windowIDStart int) error {
	for i, b := range f.bookings {
		if b.ClientUserID == clientUserID && b.StaffUserID == staffUserID &&
			b.TargetDate.Equal(targetDate) && b.BookingWindowIDStart == windowIDStart {
			f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
			return nil
		}
	}
	return postgres.ErrBookingNotFound
}

func (f *fakeBookingRepo) ListForParticipants(_ context.Context, clientUserID, staffUserID *uuid.UUID) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range f.bookings {
		if clientUserID != nil && b.ClientUserID != *clientUserID {
			continue
		}
		if staffUserID != nil && b.StaffUserID != *staffUserID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBookingRepo) ActiveOnDate(_ context.Context, userID uuid.UUID, targetDate time.Time) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.Status.Canceled() || !b.TargetDate.Equal(targetDate) {
			continue
		}
		if b.ClientUserID == userID || b.StaffUserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) ListStaleInProgress(_ context.Context, _ time.Time) ([]*model.Booking, error) {
	return nil, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) Exists(_ context.Context, id uuid.UUID, userType string) (bool, error) {
	u, ok := f.users[id]
	return ok && u.Type == userType, nil
}

func (f *fakeUserRepo) Update(_ context.Context, _ *model.User) error { return nil }

type fakeQueueRepo struct {
	deleted []uuid.UUID
}

func (f *fakeQueueRepo) Upsert(_ context.Context, _ *model.QueueEntry) error { return nil }

func (f *fakeQueueRepo) GetForClient(_ context.Context, _ uuid.UUID) (*model.QueueEntry, error) {
	return nil, postgres.ErrQueueEntryNotFound
}

func (f *fakeQueueRepo) List(_ context.Context) ([]*model.QueueEntry, error) { return nil, nil }

func (f *fakeQueueRepo) ListForClient(_ context.Context, _ uuid.UUID) ([]*model.QueueEntry, error) {
	return nil, nil
}

func (f *fakeQueueRepo) Delete(_ context.Context, clientUserID uuid.UUID, _ time.Time, _ string) error {
	f.deleted = append(f.deleted, clientUserID)
	return nil
}

func (f *fakeQueueRepo) DeleteForClient(_ context.Context, _ uuid.UUID) error { return nil }

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(_ context.Context, e *model.OutboxEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeOutboxRepo) GetPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkProcessed(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeOutboxRepo) MarkFailed(_ context.Context, _ uuid.UUID, _ string) error { return nil }

type fakeCommsClient struct {
	fail           bool
	completedRooms []string
}

func (f *fakeCommsClient) EnsureConversation(_ context.Context, _, _ string) (*comms.Conversation, error) {
	if f.fail {
		return nil, stderrors.New("provider unavailable")
	}
	return &comms.Conversation{SID: "CH123", ChatServiceSID: "IS123"}, nil
}

func (f *fakeCommsClient) AccessToken(_, _ string, _ *comms.Conversation) (string, error) {
	if f.fail {
		return "", stderrors.New("provider unavailable")
	}
	return "token-abc", nil
}

func (f *fakeCommsClient) ChatToken(_ string, _ *comms.Conversation) (string, error) {
	if f.fail {
		return "", stderrors.New("provider unavailable")
	}
	return "chat-token-abc", nil
}

func (f *fakeCommsClient) CompleteRoom(_ context.Context, roomName string) error {
	f.completedRooms = append(f.completedRooms, roomName)
	return nil
}

type fixture struct {
	svc      *Service
	repo     *fakeBookingRepo
	queue    *fakeQueueRepo
	outbox   *fakeOutboxRepo
	comms    *fakeCommsClient
	clientID uuid.UUID
	staffID  uuid.UUID
}

func newFixture(autoConfirm bool) *fixture {
	clientID, staffID := uuid.New(), uuid.New()
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{
		clientID: {ID: clientID, Type: model.UserTypeClient},
		staffID:  {ID: staffID, Type: model.UserTypeStaff, AutoConfirm: autoConfirm},
	}}
	f := &fixture{
		repo:     &fakeBookingRepo{},
		queue:    &fakeQueueRepo{},
		outbox:   &fakeOutboxRepo{},
		comms:    &fakeCommsClient{},
		clientID: clientID,
		staffID:  staffID,
	}
	f.svc = NewService(f.repo, users, f.queue, f.outbox, f.comms,
		logger.NewLogger(nil), nil)
	return f
}

func createReq(start, end int) *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		TargetDate:           monday,
		BookingWindowIDStart: start,
		BookingWindowIDEnd:   end,
		ProfessionType:       "medical_doctor",
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(true)

	resp, err := f.svc.CreateBooking(context.Background(), f.clientID, f.clientID, f.staffID, createReq(100, 106))
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusAccepted, resp.Booking.Status)
	assert.Equal(t, "token-abc", resp.AccessToken)
	require.NotNil(t, resp.Booking.ConversationSID)
	assert.Equal(t, "CH123", *resp.Booking.ConversationSID)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, model.EventBookingCreated, f.outbox.events[0].EventType)
	assert.Equal(t, []uuid.UUID{f.clientID}, f.queue.deleted)
}

func TestCreateBookingPendingWithoutAutoConfirm(t *testing.T) {
	f := newFixture(false)

	resp, err := f.svc.CreateBooking(context.Background(), f.clientID, f.clientID, f.staffID, createReq(100, 106))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPendingStaffAcceptance, resp.Booking.Status)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.NoError(t, err)

	cases := []struct{ start, end int }{
		{100, 103}, // identical
		{102, 105}, // tail overlap
		{98, 101},  // head overlap
		{99, 104},  // containing
	}
	for _, tc := range cases {
		_, err := f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(tc.start, tc.end))
		require.Error(t, err, "windows [%d,%d) should conflict", tc.start, tc.end)
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrConflict, appErr.Code)
	}
}

func TestCreateBookingMapsExclusionViolationToConflict(t *testing.T) {
	// A concurrent insert can slip past the overlap pre-check; the
	// database exclusion constraint reports it through the repository.
	f := newFixture(true)
	f.repo.createErr = postgres.ErrBookingConflict

	_, err := f.svc.CreateBooking(context.Background(), f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrConflict, appErr.Code)
}

func TestCreateBookingAllowsAdjacentWindows(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.NoError(t, err)

	// [103,106) touches [100,103) but does not overlap it.
	_, err = f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(103, 106))
	require.NoError(t, err)
}

func TestCreateBookingAllowsRebookingCanceledWindow(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	resp, err := f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.clientID, resp.Booking.ID, model.BookingStatusClientCanceled)
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.NoError(t, err)
}

func TestCreateBookingNonParticipantForbidden(t *testing.T) {
	f := newFixture(true)

	_, err := f.svc.CreateBooking(context.Background(), uuid.New(), f.clientID, f.staffID, createReq(100, 103))
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestCreateBookingUnknownStaff(t *testing.T) {
	f := newFixture(true)

	_, err := f.svc.CreateBooking(context.Background(), f.clientID, f.clientID, uuid.New(), createReq(100, 103))
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestCreateBookingSurvivesCommsFailure(t *testing.T) {
	f := newFixture(true)
	f.comms.fail = true

	resp, err := f.svc.CreateBooking(context.Background(), f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.NoError(t, err)
	assert.Empty(t, resp.AccessToken)
	assert.Nil(t, resp.Booking.ConversationSID)
	// The booking row is kept despite the provider outage.
	require.Len(t, f.repo.bookings, 1)
}

func TestUpdateStatusCompletesRoom(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	resp, err := f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, f.staffID, resp.Booking.ID, model.BookingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, updated.Status)
	require.Len(t, f.comms.completedRooms, 1)
	assert.Equal(t, comms.RoomNameFor(resp.Booking.ID.String()), f.comms.completedRooms[0])

	// creation + status change
	require.Len(t, f.outbox.events, 2)
	assert.Equal(t, model.EventBookingStatusChanged, f.outbox.events[1].EventType)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(true)

	_, err := f.svc.UpdateStatus(context.Background(), f.clientID, uuid.New(), model.BookingStatus("Rescheduled"))
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}

func TestUpdateStatusNonParticipantForbidden(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	resp, err := f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), resp.Booking.ID, model.BookingStatusConfirmed)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestDeleteBooking(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.NoError(t, err)

	err = f.svc.DeleteBooking(ctx, f.clientID, &model.DeleteBookingRequest{
		ClientUserID:         f.clientID,
		StaffUserID:          f.staffID,
		TargetDate:           monday,
		BookingWindowIDStart: 100,
	})
	require.NoError(t, err)
	assert.Empty(t, f.repo.bookings)

	err = f.svc.DeleteBooking(ctx, f.clientID, &model.DeleteBookingRequest{
		ClientUserID:         f.clientID,
		StaffUserID:          f.staffID,
		TargetDate:           monday,
		BookingWindowIDStart: 100,
	})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestListBookingsRequiresParticipantFilter(t *testing.T) {
	f := newFixture(true)

	_, err := f.svc.ListBookings(context.Background(), f.clientID, nil, nil)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)

	_, err = f.svc.ListBookings(context.Background(), f.clientID, nil, &f.staffID)
	require.Error(t, err)
	appErr, ok = errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestListBookings(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, f.clientID, f.clientID, f.staffID, createReq(100, 103))
	require.NoError(t, err)

	resp, err := f.svc.ListBookings(ctx, f.clientID, &f.clientID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AllBookings)
}

func TestChatToken(t *testing.T) {
	f := newFixture(true)

	token, err := f.svc.ChatToken(context.Background(), f.clientID, f.clientID, f.staffID)
	require.NoError(t, err)
	assert.Equal(t, "chat-token-abc", token)

	_, err = f.svc.ChatToken(context.Background(), uuid.New(), f.clientID, f.staffID)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}
