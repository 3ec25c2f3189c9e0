package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/pkg/comms"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

// Service owns the booking ledger: creation with overlap checks, the
// status lifecycle, and conversation provisioning with the
// communications provider.
type Service struct {
	repo       repository.BookingRepository
	userRepo   repository.UserRepository
	queueRepo  repository.QueueRepository
	outboxRepo repository.OutboxRepository
	comms      comms.Client
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	repo repository.BookingRepository,
	userRepo repository.UserRepository,
	queueRepo repository.QueueRepository,
	outboxRepo repository.OutboxRepository,
	commsClient comms.Client,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:       repo,
		userRepo:   userRepo,
		queueRepo:  queueRepo,
		outboxRepo: outboxRepo,
		comms:      commsClient,
		logger:     log,
		metrics:    m,
	}
}

// CreateBooking books a window between the client and staff member. The
// caller must be one of the two participants. Overlap with any
// non-canceled booking of either participant on that date rejects the
// request; canceled windows are free to rebook.
//
// Conversation provisioning runs after the insert and is deliberately
// not compensated: a booking without a conversation is still a booking,
// and the provider call can be retried on the next token request.
func (s *Service) CreateBooking(ctx context.Context, callerUserID, clientUserID, staffUserID uuid.UUID, req *model.CreateBookingRequest) (*model.BookingResponse, error) {
	if callerUserID != clientUserID && callerUserID != staffUserID {
		return nil, errors.Forbidden("only a participant may create this booking", nil)
	}
	if req.BookingWindowIDStart >= req.BookingWindowIDEnd {
		return nil, errors.BadRequest("booking window start must be before end", nil)
	}

	if err := s.requireUser(ctx, clientUserID, model.UserTypeClient, "client"); err != nil {
		return nil, err
	}
	staff, err := s.userRepo.Get(ctx, staffUserID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if staff == nil || !staff.IsStaff() {
		return nil, errors.NotFound("staff member", nil)
	}

	targetDate := truncateToDate(req.TargetDate)
	for _, participant := range []uuid.UUID{clientUserID, staffUserID} {
		existing, err := s.repo.ActiveOnDate(ctx, participant, targetDate)
		if err != nil {
			return nil, errors.Internal(err)
		}
		for _, b := range existing {
			if req.BookingWindowIDStart < b.BookingWindowIDEnd && req.BookingWindowIDEnd > b.BookingWindowIDStart {
				if s.metrics != nil {
					s.metrics.BookingConflicts.Inc()
				}
				return nil, errors.Conflict("requested window overlaps an existing booking", nil)
			}
		}
	}

	status := model.BookingStatusPendingStaffAcceptance
	if staff.AutoConfirm {
		status = model.BookingStatusAccepted
	}

	booking := &model.Booking{
		ID:                   uuid.New(),
		ClientUserID:         clientUserID,
		StaffUserID:          staffUserID,
		ProfessionType:       req.ProfessionType,
		TargetDate:           targetDate,
		BookingWindowIDStart: req.BookingWindowIDStart,
		BookingWindowIDEnd:   req.BookingWindowIDEnd,
		Status:               status,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		if err == postgres.ErrBookingConflict {
			if s.metrics != nil {
				s.metrics.BookingConflicts.Inc()
			}
			return nil, errors.Conflict("requested window overlaps an existing booking", nil)
		}
		return nil, errors.Internal(err)
	}
	if s.metrics != nil {
		s.metrics.BookingsCreated.WithLabelValues(string(status)).Inc()
	}
	s.writeEvent(ctx, model.EventBookingCreated, booking)

	// The queued request this booking fulfils is done; a leftover entry
	// would keep offering the client new windows.
	if err := s.queueRepo.Delete(ctx, clientUserID, targetDate, req.ProfessionType); err != nil && err != postgres.ErrQueueEntryNotFound {
		s.logger.Error(err, "failed to remove fulfilled queue entry")
	}

	resp := &model.BookingResponse{Booking: booking}
	conv, err := s.comms.EnsureConversation(ctx, staffUserID.String(), clientUserID.String())
	if err != nil {
		s.logger.Error(err, "conversation provisioning failed, booking kept")
		return resp, nil
	}
	if err := s.repo.SetConversationSID(ctx, booking.ID, conv.SID); err != nil {
		s.logger.Error(err, "failed to store conversation sid")
	} else {
		booking.ConversationSID = &conv.SID
	}

	token, err := s.comms.AccessToken(callerUserID.String(), comms.RoomNameFor(booking.ID.String()), conv)
	if err != nil {
		s.logger.Error(err, "access token mint failed")
		return resp, nil
	}
	resp.AccessToken = token
	return resp, nil
}

// UpdateStatus moves a booking through its lifecycle. Completing a
// booking also tells the provider to end the video room.
func (s *Service) UpdateStatus(ctx context.Context, callerUserID, bookingID uuid.UUID, status model.BookingStatus) (*model.Booking, error) {
	switch status {
	case model.BookingStatusAccepted, model.BookingStatusConfirmed, model.BookingStatusInProgress,
		model.BookingStatusClientCanceled, model.BookingStatusStaffCanceled, model.BookingStatusCompleted:
	default:
		return nil, errors.BadRequest("invalid booking status", nil)
	}

	booking, err := s.getParticipantBooking(ctx, callerUserID, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, bookingID, status); err != nil {
		if err == postgres.ErrBookingNotFound {
			return nil, errors.NotFound("booking", nil)
		}
		return nil, errors.Internal(err)
	}
	booking.Status = status
	s.writeEvent(ctx, model.EventBookingStatusChanged, booking)

	if status == model.BookingStatusCompleted {
		if err := s.comms.CompleteRoom(ctx, comms.RoomNameFor(booking.ID.String())); err != nil {
			s.logger.Error(err, "failed to complete video room")
		}
	}
	return booking, nil
}

// DeleteBooking hard-deletes a booking identified by its full tuple.
func (s *Service) DeleteBooking(ctx context.Context, callerUserID uuid.UUID, req *model.DeleteBookingRequest) error {
	if callerUserID != req.ClientUserID && callerUserID != req.StaffUserID {
		return errors.Forbidden("only a participant may delete this booking", nil)
	}

	targetDate := truncateToDate(req.TargetDate)
	err := s.repo.Delete(ctx, req.ClientUserID, req.StaffUserID, targetDate, req.BookingWindowIDStart)
	if err != nil {
		if err == postgres.ErrBookingNotFound {
			return errors.NotFound("booking", nil)
		}
		return errors.Internal(err)
	}

	payload, err := json.Marshal(model.BookingEventPayload{
		ClientUserID: req.ClientUserID,
		StaffUserID:  req.StaffUserID,
		TargetDate:   targetDate,
	})
	if err == nil {
		s.createOutboxEvent(ctx, model.EventBookingDeleted, payload)
	}
	return nil
}

// ListBookings returns bookings filtered by participant. At least one
// of clientUserID/staffUserID must be given, and the caller must be one
// of the named participants.
func (s *Service) ListBookings(ctx context.Context, callerUserID uuid.UUID, clientUserID, staffUserID *uuid.UUID) (*model.BookingsResponse, error) {
	if clientUserID == nil && staffUserID == nil {
		return nil, errors.BadRequest("client_user_id or staff_user_id is required", nil)
	}
	allowed := (clientUserID != nil && *clientUserID == callerUserID) ||
		(staffUserID != nil && *staffUserID == callerUserID)
	if !allowed {
		return nil, errors.Forbidden("bookings may only be listed by their participants", nil)
	}

	if clientUserID != nil {
		if err := s.requireUser(ctx, *clientUserID, model.UserTypeClient, "client"); err != nil {
			return nil, err
		}
	}
	if staffUserID != nil {
		if err := s.requireUser(ctx, *staffUserID, model.UserTypeStaff, "staff member"); err != nil {
			return nil, err
		}
	}

	bookings, err := s.repo.ListForParticipants(ctx, clientUserID, staffUserID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &model.BookingsResponse{Bookings: bookings, AllBookings: len(bookings)}, nil
}

// ChatToken mints a chat-only token for the conversation between the
// two users, provisioning it if it does not exist yet. Either
// participant may request one at any time, appointment or not.
func (s *Service) ChatToken(ctx context.Context, callerUserID, clientUserID, staffUserID uuid.UUID) (string, error) {
	if callerUserID != clientUserID && callerUserID != staffUserID {
		return "", errors.Forbidden("only a participant may access this conversation", nil)
	}

	conv, err := s.comms.EnsureConversation(ctx, staffUserID.String(), clientUserID.String())
	if err != nil {
		return "", errors.Internal(err)
	}
	token, err := s.comms.ChatToken(callerUserID.String(), conv)
	if err != nil {
		return "", errors.Internal(err)
	}
	return token, nil
}

// AccessToken re-mints the video/chat token for an existing booking, so
// a participant who lost theirs can rejoin.
func (s *Service) AccessToken(ctx context.Context, callerUserID, bookingID uuid.UUID) (string, error) {
	booking, err := s.getParticipantBooking(ctx, callerUserID, bookingID)
	if err != nil {
		return "", err
	}
	conv, err := s.comms.EnsureConversation(ctx, booking.StaffUserID.String(), booking.ClientUserID.String())
	if err != nil {
		return "", errors.Internal(err)
	}
	token, err := s.comms.AccessToken(callerUserID.String(), comms.RoomNameFor(booking.ID.String()), conv)
	if err != nil {
		return "", errors.Internal(err)
	}
	return token, nil
}

func (s *Service) getParticipantBooking(ctx context.Context, callerUserID, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.repo.Get(ctx, bookingID)
	if err != nil {
		if err == postgres.ErrBookingNotFound {
			return nil, errors.NotFound("booking", nil)
		}
		return nil, errors.Internal(err)
	}
	if callerUserID != booking.ClientUserID && callerUserID != booking.StaffUserID {
		return nil, errors.Forbidden("only a participant may access this booking", nil)
	}
	return booking, nil
}

func (s *Service) requireUser(ctx context.Context, id uuid.UUID, userType, label string) error {
	exists, err := s.userRepo.Exists(ctx, id, userType)
	if err != nil {
		return errors.Internal(err)
	}
	if !exists {
		return errors.NotFound(label, nil)
	}
	return nil
}

func (s *Service) writeEvent(ctx context.Context, eventType string, booking *model.Booking) {
	payload, err := json.Marshal(model.BookingEventPayload{
		BookingID:    booking.ID,
		ClientUserID: booking.ClientUserID,
		StaffUserID:  booking.StaffUserID,
		TargetDate:   booking.TargetDate,
		Status:       booking.Status,
	})
	if err != nil {
		s.logger.Error(err, "failed to marshal booking event")
		return
	}
	s.createOutboxEvent(ctx, eventType, payload)
}

func (s *Service) createOutboxEvent(ctx context.Context, eventType string, payload json.RawMessage) {
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to write outbox event")
	}
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
