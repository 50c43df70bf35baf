package auth

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/jrsteele09/go-auth-session/authapi"
)

// Validator checks user input before it is sent to the server. The server
// applies its own rules; these only catch what can never succeed.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCredentials validates login credentials
func (v *Validator) ValidateCredentials(credentials authapi.Credentials) error {
	if err := v.ValidateEmail(credentials.Email); err != nil {
		return err
	}
	if credentials.Password == "" {
		return PasswordRequiredErr
	}
	return nil
}

// ValidateRegistration validates a registration form. confirm is the repeated
// password as typed by the user.
func (v *Validator) ValidateRegistration(input authapi.RegisterInput, confirm string) error {
	if strings.TrimSpace(input.DisplayName) == "" {
		return DisplayNameRequiredErr
	}
	if err := v.ValidateEmail(input.Email); err != nil {
		return err
	}
	if input.Password == "" {
		return PasswordRequiredErr
	}
	if input.Password != confirm {
		return PasswordsDontMatchErr
	}
	return nil
}

// ValidateEmail accepts a bare address only, "Name <addr>" forms are rejected
func (v *Validator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", InvalidEmailErr)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: %q", InvalidEmailErr, email)
	}
	return nil
}
