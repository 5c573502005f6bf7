package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tentera/tentera_api/internal/logging"
	"github.com/tentera/tentera_api/internal/notification"
	"github.com/tentera/tentera_api/internal/verification"
)

// Recorder observes operation outcomes. metrics.Collector satisfies it.
type Recorder interface {
	ObserveOperation(operation, outcome string)
	ObserveCodeIssued(channel string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string) {}
func (nopRecorder) ObserveCodeIssued(string)        {}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for code expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator overrides how verification codes are produced.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.generate = gen }
}

// WithCodeTTL sets how long an issued code stays redeemable.
func WithCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger that receives operation events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder reports operation outcomes and issued codes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Service runs the onboarding flow: registration, contact verification,
// PIN setup, login and biometric preferences.
type Service struct {
	repo     Repository
	codes    verification.Store
	email    notification.EmailSender
	sms      notification.SMSSender
	now      func() time.Time
	generate func() (string, error)
	ttl      time.Duration
	logger   *slog.Logger
	recorder Recorder
}

// NewService wires the account service to its collaborators.
func NewService(repo Repository, codes verification.Store, email notification.EmailSender, sms notification.SMSSender, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		codes:    codes,
		email:    email,
		sms:      sms,
		now:      time.Now,
		generate: verification.GenerateCode,
		ttl:      verification.DefaultTTL,
		logger:   logging.Discard(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	s.recorder.ObserveOperation(operation, outcome)
	if err != nil && KindOf(err) == KindInternal {
		s.logger.Error("account operation failed", "operation", operation, "error", err)
	}
}

// Register creates a new unverified account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (res Result, err error) {
	defer func() { s.observe("register", err) }()

	switch {
	case in.CustomerName == "":
		return Result{}, fail(KindValidation, MsgNameRequired)
	case in.ICNumber == "":
		return Result{}, fail(KindValidation, MsgICNumberRequired)
	case in.Email == "":
		return Result{}, fail(KindValidation, MsgEmailRequired)
	case in.PhoneNumber == "":
		return Result{}, fail(KindValidation, MsgPhoneRequired)
	case !validEmail(in.Email):
		return Result{}, fail(KindValidation, MsgInvalidEmail)
	case !validPhone(in.PhoneNumber):
		return Result{}, fail(KindValidation, MsgInvalidPhone)
	}

	exists, err := s.repo.ICNumberExists(ctx, in.ICNumber)
	if err != nil {
		return Result{}, fmt.Errorf("check ic number: %w", err)
	}
	if exists {
		return Result{}, fail(KindConflict, MsgICNumberTaken)
	}
	if exists, err = s.repo.EmailExists(ctx, in.Email); err != nil {
		return Result{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return Result{}, fail(KindConflict, MsgEmailTaken)
	}
	if exists, err = s.repo.PhoneExists(ctx, in.PhoneNumber); err != nil {
		return Result{}, fmt.Errorf("check phone: %w", err)
	}
	if exists {
		return Result{}, fail(KindConflict, MsgPhoneTaken)
	}

	acc := &Account{
		CustomerName:             in.CustomerName,
		ICNumber:                 in.ICNumber,
		Email:                    in.Email,
		PhoneNumber:              in.PhoneNumber,
		HasAcceptedPrivacyPolicy: in.HasAcceptedPrivacyPolicy,
	}
	if err := s.repo.Add(ctx, acc); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Result{}, &Error{Kind: KindConflict, Message: MsgAccountTaken, Err: err}
		}
		return Result{}, fmt.Errorf("add account: %w", err)
	}

	s.logger.Info("account registered", "account_id", acc.ID, "ic_number", acc.ICNumber)
	return Result{Message: "Customer registered successfully.", AccountID: acc.ID}, nil
}

// SendEmailCode issues a code to the account's email address.
func (s *Service) SendEmailCode(ctx context.Context, icNumber string) (res Result, err error) {
	defer func() { s.observe("send_email_code", err) }()
	if err := s.issueCode(ctx, icNumber, ChannelEmail); err != nil {
		return Result{}, err
	}
	return Result{Message: "Email verification code sent"}, nil
}

// SendMobileCode issues a code to the account's phone number.
func (s *Service) SendMobileCode(ctx context.Context, icNumber string) (res Result, err error) {
	defer func() { s.observe("send_mobile_code", err) }()
	if err := s.issueCode(ctx, icNumber, ChannelPhone); err != nil {
		return Result{}, err
	}
	return Result{Message: "Mobile verification code sent"}, nil
}

// issueCode stores a fresh code for the channel's address, replacing any
// earlier one, and delivers it. A delivery failure leaves the stored code in
// place.
func (s *Service) issueCode(ctx context.Context, icNumber string, channel Channel) error {
	if icNumber == "" {
		return fail(KindValidation, MsgICNumberRequired)
	}
	acc, err := s.load(ctx, icNumber)
	if err != nil {
		return err
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	address := acc.address(channel)
	if err := s.codes.Set(ctx, address, code, s.now().Add(s.ttl)); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	if channel == ChannelEmail {
		if err := s.email.SendVerificationCode(ctx, address, code); err != nil {
			return &Error{Kind: KindDelivery, Message: MsgEmailDeliveryFailed, Err: err}
		}
	} else {
		if err := s.sms.SendVerificationCode(ctx, address, code); err != nil {
			return &Error{Kind: KindDelivery, Message: MsgSMSDeliveryFailed, Err: err}
		}
	}

	s.recorder.ObserveCodeIssued(string(channel))
	s.logger.Info("verification code issued", "account_id", acc.ID, "channel", string(channel))
	return nil
}

// VerifyCode redeems a code for the given channel. A matching code is
// consumed and the channel is marked verified.
func (s *Service) VerifyCode(ctx context.Context, in VerifyInput) (res Result, err error) {
	defer func() { s.observe("verify_code", err) }()

	if in.ICNumber == "" {
		return Result{}, fail(KindValidation, MsgICNumberRequired)
	}
	if in.Code == "" {
		return Result{}, fail(KindValidation, MsgCodeRequired)
	}
	acc, err := s.load(ctx, in.ICNumber)
	if err != nil {
		return Result{}, err
	}
	channel, ok := ParseChannel(string(in.Channel))
	if !ok {
		return Result{}, fail(KindValidation, MsgInvalidChannel)
	}

	address := acc.address(channel)
	outcome, err := s.codes.Consume(ctx, address, in.Code)
	if err != nil {
		return Result{}, fmt.Errorf("consume code: %w", err)
	}
	switch outcome {
	case verification.OutcomeMissing:
		return Result{}, fail(KindCodeExpired, MsgCodeExpired)
	case verification.OutcomeMismatch:
		return Result{}, fail(KindCodeMismatch, MsgCodeMismatch)
	}
	if channel == ChannelEmail {
		acc.IsEmailVerified = true
	} else {
		acc.IsPhoneVerified = true
	}
	if err := s.save(ctx, acc); err != nil {
		return Result{}, err
	}
	return Result{Message: "Code verified successfully"}, nil
}

// CreatePIN stores the PIN hash once both contacts are verified and the
// privacy policy is accepted.
func (s *Service) CreatePIN(ctx context.Context, in PINInput) (res Result, err error) {
	defer func() { s.observe("create_pin", err) }()

	if in.ICNumber == "" {
		return Result{}, fail(KindValidation, MsgICNumberRequired)
	}
	if in.PINHash == "" {
		return Result{}, fail(KindValidation, MsgPINRequired)
	}
	acc, err := s.load(ctx, in.ICNumber)
	if err != nil {
		return Result{}, err
	}
	if err := onboarded(acc); err != nil {
		return Result{}, err
	}

	acc.PINHash = in.PINHash
	if err := s.save(ctx, acc); err != nil {
		return Result{}, err
	}
	return Result{Message: "PIN created successfully"}, nil
}

// Login checks onboarding state, the PIN hash and any requested biometric
// modality. No session is issued.
func (s *Service) Login(ctx context.Context, in LoginInput) (res Result, err error) {
	defer func() { s.observe("login", err) }()

	if in.ICNumber == "" {
		return Result{}, fail(KindValidation, MsgICNumberRequired)
	}
	acc, err := s.load(ctx, in.ICNumber)
	if err != nil {
		return Result{}, err
	}
	if err := onboarded(acc); err != nil {
		return Result{}, err
	}
	if acc.PINHash == "" {
		return Result{}, fail(KindState, MsgPINNotSet)
	}
	if acc.PINHash != in.PINHash {
		return Result{}, fail(KindValidation, MsgInvalidPIN)
	}
	if in.UseFaceBiometric && !acc.IsFaceBiometricEnabled {
		return Result{}, fail(KindState, MsgFaceNotEnabled)
	}
	if in.UseFingerprintBiometric && !acc.IsFingerprintBiometricEnabled {
		return Result{}, fail(KindState, MsgFingerprintNotEnabled)
	}

	s.logger.Info("account login", "account_id", acc.ID)
	return Result{Message: "Login successful", AccountID: acc.ID}, nil
}

// SetFaceBiometric enables or disables face login.
func (s *Service) SetFaceBiometric(ctx context.Context, in BiometricInput) (res Result, err error) {
	defer func() { s.observe("set_face_biometric", err) }()
	return s.setBiometric(ctx, in, "Face", func(acc *Account) {
		acc.UseFaceBiometric = in.Enable
		acc.IsFaceBiometricEnabled = in.Enable
	})
}

// SetFingerprintBiometric enables or disables fingerprint login.
func (s *Service) SetFingerprintBiometric(ctx context.Context, in BiometricInput) (res Result, err error) {
	defer func() { s.observe("set_fingerprint_biometric", err) }()
	return s.setBiometric(ctx, in, "Fingerprint", func(acc *Account) {
		acc.UseFingerprintBiometric = in.Enable
		acc.IsFingerprintBiometricEnabled = in.Enable
	})
}

func (s *Service) setBiometric(ctx context.Context, in BiometricInput, modality string, apply func(*Account)) (Result, error) {
	if in.ICNumber == "" {
		return Result{}, fail(KindValidation, MsgICNumberRequired)
	}
	acc, err := s.load(ctx, in.ICNumber)
	if err != nil {
		return Result{}, err
	}
	apply(&acc)
	if err := s.save(ctx, acc); err != nil {
		return Result{}, err
	}

	state := "disabled"
	if in.Enable {
		state = "enabled"
	}
	return Result{Message: modality + " biometric " + state + " successfully"}, nil
}

func onboarded(acc Account) error {
	switch {
	case !acc.IsEmailVerified:
		return fail(KindState, MsgEmailNotVerified)
	case !acc.IsPhoneVerified:
		return fail(KindState, MsgPhoneNotVerified)
	case !acc.HasAcceptedPrivacyPolicy:
		return fail(KindState, MsgPrivacyNotAccepted)
	}
	return nil
}

func (s *Service) load(ctx context.Context, icNumber string) (Account, error) {
	acc, err := s.repo.GetByICNumber(ctx, icNumber)
	if errors.Is(err, ErrNotFound) {
		return Account{}, fail(KindNotFound, MsgAccountNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account: %w", err)
	}
	return acc, nil
}

func (s *Service) save(ctx context.Context, acc Account) error {
	if err := s.repo.Update(ctx, acc); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fail(KindNotFound, MsgAccountNotFound)
		}
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}
