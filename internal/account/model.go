package account

import (
	"strings"
	"time"
)

// Account is a registered customer and its onboarding state.
type Account struct {
	ID                       int64
	CustomerName             string
	ICNumber                 string
	Email                    string
	PhoneNumber              string
	PINHash                  string
	HasAcceptedPrivacyPolicy bool
	IsEmailVerified          bool
	IsPhoneVerified          bool

	// Each Use/Is...Enabled pair is written together and always holds the
	// same value.
	UseFaceBiometric              bool
	IsFaceBiometricEnabled        bool
	UseFingerprintBiometric       bool
	IsFingerprintBiometricEnabled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Channel selects which contact address a verification code targets.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelPhone Channel = "PHONE"
)

// ParseChannel normalises a channel name. The boolean is false for unknown
// values.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(strings.ToUpper(strings.TrimSpace(s))) {
	case ChannelEmail:
		return ChannelEmail, true
	case ChannelPhone:
		return ChannelPhone, true
	default:
		return "", false
	}
}

// address returns the contact address for channel.
func (a Account) address(channel Channel) string {
	if channel == ChannelEmail {
		return a.Email
	}
	return a.PhoneNumber
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	CustomerName             string
	ICNumber                 string
	Email                    string
	PhoneNumber              string
	HasAcceptedPrivacyPolicy bool
}

// VerifyInput carries a code redemption.
type VerifyInput struct {
	ICNumber string
	Code     string
	Channel  Channel
}

// PINInput carries a PIN creation request. PINHash is opaque to the service.
type PINInput struct {
	ICNumber string
	PINHash  string
}

// LoginInput carries a login attempt.
type LoginInput struct {
	ICNumber                string
	PINHash                 string
	UseFaceBiometric        bool
	UseFingerprintBiometric bool
}

// BiometricInput toggles one biometric modality.
type BiometricInput struct {
	ICNumber string
	Enable   bool
}

// Result is the success outcome of a service operation. AccountID is set by
// Register and Login only.
type Result struct {
	Message   string
	AccountID int64
}
