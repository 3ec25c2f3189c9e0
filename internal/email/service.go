package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/model"
)

// Service sends booking lifecycle notifications.
type Service interface {
	SendBookingCreated(ctx context.Context, to string, booking *model.BookingEventPayload) error
	SendBookingStatusChanged(ctx context.Context, to string, booking *model.BookingEventPayload) error
	SendCustom(ctx context.Context, to, subject, content string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg config.EmailConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendBookingCreated(ctx context.Context, to string, booking *model.BookingEventPayload) error {
	subject := "Your telehealth appointment request"
	body := fmt.Sprintf(
		"<p>Your appointment on %s has been created with status %q.</p>"+
			"<p>You will receive another notification when your practitioner responds.</p>",
		booking.TargetDate.Format("Monday, January 2 2006"), booking.Status)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendBookingStatusChanged(ctx context.Context, to string, booking *model.BookingEventPayload) error {
	subject := "Your telehealth appointment was updated"
	body := fmt.Sprintf(
		"<p>Your appointment on %s is now %q.</p>",
		booking.TargetDate.Format("Monday, January 2 2006"), booking.Status)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, content string) error {
	return s.send(ctx, to, subject, content)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
