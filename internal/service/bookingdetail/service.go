package bookingdetail

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/storage"
)

// Download URLs handed out on reads are short-lived.
const urlTTL = 10 * time.Minute

// Service manages the optional text, location and media attached to a
// booking. Media goes to object storage under the booking's prefix so a
// detail delete is one row plus one delete-by-prefix.
type Service struct {
	repo         repository.BookingDetailRepository
	bookingRepo  repository.BookingRepository
	locationRepo repository.LocationRepository
	store        storage.Store
}

func NewService(repo repository.BookingDetailRepository, bookingRepo repository.BookingRepository, locationRepo repository.LocationRepository, store storage.Store) *Service {
	return &Service{
		repo:         repo,
		bookingRepo:  bookingRepo,
		locationRepo: locationRepo,
		store:        store,
	}
}

// Create attaches details to a booking. Only the booking's client may
// do this, and only once; subsequent changes go through Update.
func (s *Service) Create(ctx context.Context, callerUserID, bookingID uuid.UUID, upload *model.BookingDetailUpload) (*model.BookingDetail, error) {
	booking, err := s.clientBooking(ctx, callerUserID, bookingID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Get(ctx, booking.ID); err == nil {
		return nil, errors.BadRequest("booking details already exist, use PUT to update", nil)
	} else if err != postgres.ErrBookingDetailNotFound {
		return nil, errors.Internal(err)
	}

	if err := validateFiles(upload.Images, upload.Voice); err != nil {
		return nil, err
	}
	if upload.LocationID != nil {
		if _, err := s.location(ctx, *upload.LocationID); err != nil {
			return nil, err
		}
	}

	detail := &model.BookingDetail{
		ID:         uuid.New(),
		BookingID:  booking.ID,
		LocationID: upload.LocationID,
	}
	if upload.Details != nil {
		detail.Details = *upload.Details
	}

	if detail.ImageKeys, err = s.uploadImages(ctx, booking.ID, upload.Images); err != nil {
		return nil, err
	}
	if upload.Voice != nil {
		key, err := s.uploadVoice(ctx, booking.ID, upload.Voice)
		if err != nil {
			return nil, err
		}
		detail.VoiceKey = &key
	}

	if err := s.repo.Create(ctx, detail); err != nil {
		return nil, errors.Internal(err)
	}
	return detail, nil
}

// Get returns the booking's details with the location resolved and
// media keys turned into time-limited URLs. Either participant may read.
func (s *Service) Get(ctx context.Context, callerUserID, bookingID uuid.UUID) (*model.BookingDetailResponse, error) {
	booking, err := s.participantBooking(ctx, callerUserID, bookingID)
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.Get(ctx, booking.ID)
	if err != nil {
		if err == postgres.ErrBookingDetailNotFound {
			return nil, errors.NotFound("booking details", nil)
		}
		return nil, errors.Internal(err)
	}

	resp := &model.BookingDetailResponse{
		BookingID:  detail.BookingID,
		Details:    detail.Details,
		LocationID: detail.LocationID,
		ImageURLs:  []string{},
	}
	if detail.LocationID != nil {
		loc, err := s.location(ctx, *detail.LocationID)
		if err != nil {
			return nil, err
		}
		resp.LocationName = loc.Name
	}
	for _, key := range detail.ImageKeys {
		url, err := s.store.URL(ctx, key, urlTTL)
		if err != nil {
			return nil, errors.Internal(err)
		}
		resp.ImageURLs = append(resp.ImageURLs, url)
	}
	if detail.VoiceKey != nil {
		url, err := s.store.URL(ctx, *detail.VoiceKey, urlTTL)
		if err != nil {
			return nil, errors.Internal(err)
		}
		resp.VoiceURL = url
	}
	return resp, nil
}

// Update applies a partial change. Fields absent from the form are left
// alone; a media field sent explicitly empty clears the stored files.
func (s *Service) Update(ctx context.Context, callerUserID, bookingID uuid.UUID, upload *model.BookingDetailUpload) (*model.BookingDetail, error) {
	booking, err := s.clientBooking(ctx, callerUserID, bookingID)
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.Get(ctx, booking.ID)
	if err != nil {
		if err == postgres.ErrBookingDetailNotFound {
			return nil, errors.NotFound("booking details", nil)
		}
		return nil, errors.Internal(err)
	}

	if err := validateFiles(upload.Images, upload.Voice); err != nil {
		return nil, err
	}

	if upload.Details != nil {
		detail.Details = *upload.Details
	}
	if upload.LocationID != nil {
		if _, err := s.location(ctx, *upload.LocationID); err != nil {
			return nil, err
		}
		detail.LocationID = upload.LocationID
	}

	if len(upload.Images) > 0 || upload.ClearImages {
		if err := s.store.DeleteByPrefix(ctx, imagePrefix(booking.ID)); err != nil {
			return nil, errors.Internal(err)
		}
		detail.ImageKeys = nil
		if detail.ImageKeys, err = s.uploadImages(ctx, booking.ID, upload.Images); err != nil {
			return nil, err
		}
	}
	if upload.Voice != nil || upload.ClearVoice {
		if err := s.store.DeleteByPrefix(ctx, voicePrefix(booking.ID)); err != nil {
			return nil, errors.Internal(err)
		}
		detail.VoiceKey = nil
		if upload.Voice != nil {
			key, err := s.uploadVoice(ctx, booking.ID, upload.Voice)
			if err != nil {
				return nil, err
			}
			detail.VoiceKey = &key
		}
	}

	if err := s.repo.Update(ctx, detail); err != nil {
		return nil, errors.Internal(err)
	}
	return detail, nil
}

// Delete removes the detail row and every stored file for the booking.
func (s *Service) Delete(ctx context.Context, callerUserID, bookingID uuid.UUID) error {
	booking, err := s.clientBooking(ctx, callerUserID, bookingID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, booking.ID); err != nil {
		if err == postgres.ErrBookingDetailNotFound {
			return errors.NotFound("booking details", nil)
		}
		return errors.Internal(err)
	}
	if err := s.store.DeleteByPrefix(ctx, bookingPrefix(booking.ID)); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *Service) clientBooking(ctx context.Context, callerUserID, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.fetchBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ClientUserID != callerUserID {
		return nil, errors.Forbidden("only the booking's client may modify its details", nil)
	}
	return booking, nil
}

func (s *Service) participantBooking(ctx context.Context, callerUserID, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.fetchBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if callerUserID != booking.ClientUserID && callerUserID != booking.StaffUserID {
		return nil, errors.Forbidden("only a participant may read booking details", nil)
	}
	return booking, nil
}

func (s *Service) fetchBooking(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookingRepo.Get(ctx, bookingID)
	if err != nil {
		if err == postgres.ErrBookingNotFound {
			return nil, errors.NotFound("booking", nil)
		}
		return nil, errors.Internal(err)
	}
	return booking, nil
}

func (s *Service) location(ctx context.Context, idx int) (*model.Location, error) {
	loc, err := s.locationRepo.Get(ctx, idx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if loc == nil {
		return nil, errors.BadRequest(fmt.Sprintf("unknown location id %d", idx), nil)
	}
	return loc, nil
}

func (s *Service) uploadImages(ctx context.Context, bookingID uuid.UUID, images []*multipart.FileHeader) ([]string, error) {
	var keys []string
	for i, fh := range images {
		key := fmt.Sprintf("%simage_%d%s", imagePrefix(bookingID), i, strings.ToLower(filepath.Ext(fh.Filename)))
		stored, err := s.uploadFile(ctx, key, fh)
		if err != nil {
			return nil, err
		}
		keys = append(keys, stored)
	}
	return keys, nil
}

func (s *Service) uploadVoice(ctx context.Context, bookingID uuid.UUID, voice *multipart.FileHeader) (string, error) {
	key := fmt.Sprintf("%svoice_0%s", voicePrefix(bookingID), strings.ToLower(filepath.Ext(voice.Filename)))
	return s.uploadFile(ctx, key, voice)
}

func (s *Service) uploadFile(ctx context.Context, key string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", errors.Internal(err)
	}
	defer f.Close()

	stored, err := s.store.Upload(ctx, key, f)
	if err != nil {
		return "", errors.Internal(err)
	}
	return stored, nil
}

func validateFiles(images []*multipart.FileHeader, voice *multipart.FileHeader) error {
	if len(images) > model.MaxDetailImages {
		return errors.BadRequest(fmt.Sprintf("at most %d images may be attached", model.MaxDetailImages), nil)
	}
	for _, fh := range images {
		if err := validateFile(fh, model.AllowedImageExtensions); err != nil {
			return err
		}
	}
	if voice != nil {
		if err := validateFile(voice, model.AllowedVoiceExtensions); err != nil {
			return err
		}
	}
	return nil
}

func validateFile(fh *multipart.FileHeader, allowedExts []string) error {
	if fh.Size > model.MaxAttachmentSize {
		return errors.BadRequest(fmt.Sprintf("file %s exceeds the size limit", fh.Filename), nil)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	for _, allowed := range allowedExts {
		if ext == allowed {
			return nil
		}
	}
	return errors.BadRequest(fmt.Sprintf("file type %s is not allowed", ext), nil)
}

func bookingPrefix(bookingID uuid.UUID) string {
	return fmt.Sprintf("telehealth/bookings/%s/", bookingID)
}

func imagePrefix(bookingID uuid.UUID) string {
	return bookingPrefix(bookingID) + "images/"
}

func voicePrefix(bookingID uuid.UUID) string {
	return bookingPrefix(bookingID) + "voice/"
}
