package auth

import "errors"

var (
	InvalidEmailErr        = errors.New("invalid email address")
	PasswordRequiredErr    = errors.New("password is required")
	DisplayNameRequiredErr = errors.New("display name is required")
	PasswordsDontMatchErr  = errors.New("passwords do not match")
)
