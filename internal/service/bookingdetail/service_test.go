package bookingdetail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
)

type fakeDetailRepo struct {
	details map[uuid.UUID]*model.BookingDetail
}

func newFakeDetailRepo() *fakeDetailRepo {
	return &fakeDetailRepo{details: make(map[uuid.UUID]*model.BookingDetail)}
}

func (f *fakeDetailRepo) Create(_ context.Context, d *model.BookingDetail) error {
	f.details[d.BookingID] = d
	return nil
}

func (f *fakeDetailRepo) Get(_ context.Context, bookingID uuid.UUID) (*model.BookingDetail, error) {
	if d, ok := f.details[bookingID]; ok {
		return d, nil
	}
	return nil, postgres.ErrBookingDetailNotFound
}

func (f *fakeDetailRepo) Update(_ context.Context, d *model.BookingDetail) error {
	if _, ok := f.details[d.BookingID]; !ok {
		return postgres.ErrBookingDetailNotFound
	}
	f.details[d.BookingID] = d
	return nil
}

func (f *fakeDetailRepo) Delete(_ context.Context, bookingID uuid.UUID) error {
	if _, ok := f.details[bookingID]; !ok {
		return postgres.ErrBookingDetailNotFound
	}
	delete(f.details, bookingID)
	return nil
}

type fakeBookingRepo struct {
	booking *model.Booking
}

func (f *fakeBookingRepo) Create(_ context.Context, _ *model.Booking) error { return nil }

func (f *fakeBookingRepo) Get(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	if f.booking != nil && f.booking.ID == id {
		return f.booking, nil
	}
	return nil, postgres.ErrBookingNotFound
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _ model.BookingStatus) error {
	return nil
}

func (f *fakeBookingRepo) SetConversationSID(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

func (f *fakeBookingRepo) Delete(_ context.Context, _, _ uuid.UUID, _ time.Time, _ int) error {
	return nil
}

func (f *fakeBookingRepo) ListForParticipants(_ context.Context, _, _ *uuid.UUID) ([]*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookingRepo) ActiveOnDate(_ context.Context, _ uuid.UUID, _ time.Time) ([]*model.Booking, error) {
	return nil, nil
}

func (f *fakeBookingRepo) ListStaleInProgress(_ context.Context, _ time.Time) ([]*model.Booking, error) {
	return nil, nil
}

type fakeLocationRepo struct{}

func (fakeLocationRepo) Get(_ context.Context, idx int) (*model.Location, error) {
	if idx == 1 {
		return &model.Location{Idx: 1, Name: "Left Shoulder"}, nil
	}
	return nil, nil
}

func (fakeLocationRepo) List(_ context.Context) ([]model.Location, error) {
	return []model.Location{{Idx: 1, Name: "Left Shoulder"}}, nil
}

type fakeStore struct {
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Upload(_ context.Context, key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return key, nil
}

func (f *fakeStore) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://media.test/" + key, nil
}

func (f *fakeStore) DeleteByPrefix(_ context.Context, prefix string) error {
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
		}
	}
	return nil
}

// fileHeaders builds real multipart file headers by writing and
// re-parsing an in-memory form.
func fileHeaders(t *testing.T, filenames ...string) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, name := range filenames {
		fw, err := w.CreateFormFile(fmt.Sprintf("file%d", i), name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("payload-" + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)

	var headers []*multipart.FileHeader
	for i := range filenames {
		headers = append(headers, form.File[fmt.Sprintf("file%d", i)][0])
	}
	return headers
}

type fixture struct {
	svc      *Service
	repo     *fakeDetailRepo
	store    *fakeStore
	clientID uuid.UUID
	staffID  uuid.UUID
	booking  *model.Booking
}

func newFixture() *fixture {
	clientID, staffID := uuid.New(), uuid.New()
	booking := &model.Booking{
		ID:           uuid.New(),
		ClientUserID: clientID,
		StaffUserID:  staffID,
		Status:       model.BookingStatusAccepted,
	}
	repo := newFakeDetailRepo()
	store := newFakeStore()
	return &fixture{
		svc:      NewService(repo, &fakeBookingRepo{booking: booking}, fakeLocationRepo{}, store),
		repo:     repo,
		store:    store,
		clientID: clientID,
		staffID:  staffID,
		booking:  booking,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreateAndGetDetails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	images := fileHeaders(t, "wound1.jpg", "wound2.png")
	voice := fileHeaders(t, "note.m4a")[0]

	detail, err := f.svc.Create(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{
		Details:    strPtr("sharp pain since Tuesday"),
		LocationID: intPtr(1),
		Images:     images,
		Voice:      voice,
	})
	require.NoError(t, err)
	assert.Len(t, detail.ImageKeys, 2)
	require.NotNil(t, detail.VoiceKey)
	assert.Len(t, f.store.objects, 3)

	resp, err := f.svc.Get(ctx, f.staffID, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "sharp pain since Tuesday", resp.Details)
	assert.Equal(t, "Left Shoulder", resp.LocationName)
	assert.Len(t, resp.ImageURLs, 2)
	assert.Contains(t, resp.VoiceURL, "https://media.test/")
}

func TestCreateRejectsSecondDetailRow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{Details: strPtr("first")})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{Details: strPtr("second")})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}

func TestCreateRejectsTooManyImages(t *testing.T) {
	f := newFixture()

	images := fileHeaders(t, "a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg")
	_, err := f.svc.Create(context.Background(), f.clientID, f.booking.ID, &model.BookingDetailUpload{Images: images})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}

func TestCreateRejectsDisallowedExtension(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.clientID, f.booking.ID, &model.BookingDetailUpload{
		Images: fileHeaders(t, "report.pdf"),
	})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)

	_, err = f.svc.Create(context.Background(), f.clientID, f.booking.ID, &model.BookingDetailUpload{
		Voice: fileHeaders(t, "note.exe")[0],
	})
	require.Error(t, err)
}

func TestCreateOnlyClientMayAttach(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.staffID, f.booking.ID, &model.BookingDetailUpload{Details: strPtr("x")})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestCreateUnknownBooking(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.clientID, uuid.New(), &model.BookingDetailUpload{Details: strPtr("x")})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestUpdatePartialLeavesOtherFields(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{
		Details: strPtr("original"),
		Images:  fileHeaders(t, "a.jpg"),
		Voice:   fileHeaders(t, "note.mp3")[0],
	})
	require.NoError(t, err)

	detail, err := f.svc.Update(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{
		Details: strPtr("updated"),
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", detail.Details)
	assert.Len(t, detail.ImageKeys, 1)
	assert.NotNil(t, detail.VoiceKey)
	assert.Len(t, f.store.objects, 2)
}

func TestUpdateReplacesImages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{
		Images: fileHeaders(t, "a.jpg", "b.jpg"),
	})
	require.NoError(t, err)

	detail, err := f.svc.Update(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{
		Images: fileHeaders(t, "c.webp"),
	})
	require.NoError(t, err)
	require.Len(t, detail.ImageKeys, 1)
	assert.Contains(t, detail.ImageKeys[0], ".webp")
	assert.Len(t, f.store.objects, 1)
}

func TestUpdateExplicitEmptyClearsMedia(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{
		Details: strPtr("keep me"),
		Images:  fileHeaders(t, "a.jpg"),
		Voice:   fileHeaders(t, "note.wav")[0],
	})
	require.NoError(t, err)

	detail, err := f.svc.Update(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{
		ClearImages: true,
		ClearVoice:  true,
	})
	require.NoError(t, err)
	assert.Empty(t, detail.ImageKeys)
	assert.Nil(t, detail.VoiceKey)
	assert.Equal(t, "keep me", detail.Details)
	assert.Empty(t, f.store.objects)
}

func TestUpdateWithoutExistingRow(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Update(context.Background(), f.clientID, f.booking.ID, &model.BookingDetailUpload{Details: strPtr("x")})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestDeleteRemovesRowAndMedia(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{
		Images: fileHeaders(t, "a.jpg"),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.clientID, f.booking.ID))
	assert.Empty(t, f.repo.details)
	assert.Empty(t, f.store.objects)

	err = f.svc.Delete(ctx, f.clientID, f.booking.ID)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestUpdateUnknownLocation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{Details: strPtr("x")})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.clientID, f.booking.ID, &model.BookingDetailUpload{LocationID: intPtr(99)})
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}
