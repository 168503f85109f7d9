package auth

import "errors"

// Token and login errors. The API maps all of them to 401.
var (
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	ErrMissingToken     = errors.New("authentication token is missing")

	// ErrInvalidCredentials covers both an unknown user name and a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
