package account

import (
	"errors"
)

var (
	// ErrNotFound is returned by repositories when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned by repositories when an insert collides with
	// an existing IC number, email or phone number.
	ErrDuplicate = errors.New("account already exists")
)

// Kind classifies an expected failure.
type Kind int

const (
	// KindInternal marks errors that are not expected business failures.
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindCodeExpired
	KindCodeMismatch
	KindState
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindCodeExpired:
		return "code_expired"
	case KindCodeMismatch:
		return "code_mismatch"
	case KindState:
		return "state"
	case KindDelivery:
		return "delivery"
	default:
		return "internal"
	}
}

// User-visible failure messages.
const (
	MsgNameRequired          = "Customer Name is required"
	MsgICNumberRequired      = "ICNumber is required"
	MsgEmailRequired         = "Email is required"
	MsgPhoneRequired         = "Phone number is required"
	MsgInvalidEmail          = "Invalid email format"
	MsgInvalidPhone          = "Invalid phone number format"
	MsgICNumberTaken         = "ICNumber already registered"
	MsgEmailTaken            = "Email already registered"
	MsgPhoneTaken            = "Phone number already registered"
	MsgAccountTaken          = "Account already registered"
	MsgAccountNotFound       = "Account not found"
	MsgCodeRequired          = "Verification code is required"
	MsgInvalidChannel        = "Invalid verification type"
	MsgCodeExpired           = "Invalid or expired code"
	MsgCodeMismatch          = "Incorrect code"
	MsgPINRequired           = "PIN is required"
	MsgEmailNotVerified      = "Email has not been verified yet"
	MsgPhoneNotVerified      = "Phone number has not been verified yet"
	MsgPrivacyNotAccepted    = "Privacy Policy has not been accepted"
	MsgPINNotSet             = "PIN has not been set up"
	MsgInvalidPIN            = "Invalid PIN"
	MsgFaceNotEnabled        = "Face biometric login not enabled for this account"
	MsgFingerprintNotEnabled = "Fingerprint biometric login not enabled for this account"
	MsgEmailDeliveryFailed   = "Failed to send email"
	MsgSMSDeliveryFailed     = "Failed to send SMS"
)

// Error is an expected failure of a service operation. Message is safe to
// show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf reports the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-visible message of an *Error, or an empty
// string.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
