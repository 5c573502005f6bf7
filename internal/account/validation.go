package account

import (
	"net/mail"
	"regexp"
)

var phonePattern = regexp.MustCompile(`^\+\d{10,15}$`)

// validEmail accepts a bare mailbox address. Display names and angle
// brackets are rejected because the parsed address must equal the input.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// validPhone accepts "+" followed by 10 to 15 digits.
func validPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
