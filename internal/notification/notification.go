// Package notification delivers verification codes to customers over email
// and SMS.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

const (
	// KindEmailVerification is an email carrying a verification code.
	KindEmailVerification = "email_verification"
	// KindSMSVerification is an SMS carrying a verification code.
	KindSMSVerification = "sms_verification"

	verificationSubject = "Your Verification Code"
)

var (
	ErrMissingDestination = errors.New("destination is required")
	ErrMissingCode        = errors.New("verification code is required")
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Subject     string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// EmailSender delivers a verification code to an email address.
type EmailSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// SMSSender delivers a verification code to a phone number.
type SMSSender interface {
	SendVerificationCode(ctx context.Context, phone, code string) error
}

// VerificationBody renders the text sent along with a code. The lifetime is
// rounded up to whole minutes so the customer is never told less than they
// have.
func VerificationBody(code string, ttl time.Duration) string {
	minutes := int(math.Ceil(ttl.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Your verification code is %s. It expires in %d %s.", code, minutes, unit)
}

type codeSender struct {
	notifier Notifier
	kind     string
	ttl      time.Duration
	failure  string
}

// EmailCodes adapts a Notifier into an EmailSender.
func EmailCodes(n Notifier, ttl time.Duration) EmailSender {
	return &codeSender{notifier: n, kind: KindEmailVerification, ttl: ttl, failure: "send email"}
}

// SMSCodes adapts a Notifier into an SMSSender.
func SMSCodes(n Notifier, ttl time.Duration) SMSSender {
	return &codeSender{notifier: n, kind: KindSMSVerification, ttl: ttl, failure: "send sms"}
}

func (s *codeSender) SendVerificationCode(ctx context.Context, destination, code string) error {
	if destination == "" {
		return ErrMissingDestination
	}
	if code == "" {
		return ErrMissingCode
	}
	msg := Message{
		Kind:        s.kind,
		Destination: destination,
		Body:        VerificationBody(code, s.ttl),
	}
	if s.kind == KindEmailVerification {
		msg.Subject = verificationSubject
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", s.failure, err)
	}
	return nil
}

// LoggerNotifier is a development stub that writes notifications, body
// included, to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
