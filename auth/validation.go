package auth

import (
	"net/mail"
	"strings"
	"time"

	"github.com/jrsteele09/smartcane-client/internal/errors"
)

const birthDateLayout = "2006-01-02"

// SignupForm is what the user fills in; Confirm never leaves the client.
type SignupForm struct {
	Email     string
	Nickname  string
	BirthDate string // YYYY-MM-DD
	Password  string
	Confirm   string
}

// Validator holds the client-side checks run before any network call.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.Validation("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.Validation("email", "%q is not a valid address", email)
	}
	return nil
}

func (v *Validator) ValidateBirthDate(date string) error {
	if _, err := time.Parse(birthDateLayout, strings.TrimSpace(date)); err != nil {
		return errors.Validation("birthDate", "must be YYYY-MM-DD")
	}
	return nil
}

// ValidateLogin only checks presence; the server decides the rest.
func (v *Validator) ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return errors.Validation("email", "is required")
	}
	if password == "" {
		return errors.Validation("password", "is required")
	}
	return nil
}

func (v *Validator) ValidateSignup(form SignupForm) error {
	if err := v.ValidateEmail(form.Email); err != nil {
		return err
	}
	if strings.TrimSpace(form.Nickname) == "" {
		return errors.Validation("nickname", "is required")
	}
	if err := v.ValidateBirthDate(form.BirthDate); err != nil {
		return err
	}
	if form.Password == "" {
		return errors.Validation("password", "is required")
	}
	if form.Password != form.Confirm {
		return &errors.ValidationError{Field: "confirm", Message: PasswordsDontMatchErr.Error()}
	}
	return nil
}
