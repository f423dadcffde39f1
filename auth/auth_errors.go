package auth

import (
	"fmt"

	"github.com/jrsteele09/smartcane-client/internal/errors"
)

var (
	PasswordsDontMatchErr = errors.New("passwords do not match")
	MissingCallbackErr    = errors.New("callback carried neither tokens nor an error")
)

// LockedError rejects a login attempt made during the lockout window.
type LockedError struct {
	RemainingSeconds int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("login locked, try again in %ds", e.RemainingSeconds)
}

func (e *LockedError) Unwrap() error {
	return errors.ErrLoginLocked
}

// SocialLoginError carries the error the provider redirect reported.
type SocialLoginError struct {
	Reason string
}

func (e *SocialLoginError) Error() string {
	return "social login failed: " + e.Reason
}

func (e *SocialLoginError) Unwrap() error {
	return errors.ErrSocialLogin
}
