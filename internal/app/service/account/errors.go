package account

import "errors"

var (
	// ErrEmailTaken rejects registration against an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password
	// so a caller cannot probe which emails exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled rejects login for a deactivated account.
	ErrAccountDisabled = errors.New("account disabled")
)
