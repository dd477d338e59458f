package domain

import "errors"

// Domain errors
var (
	ErrPlayerNotFound       = errors.New("player not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrTemporarilyBanned    = errors.New("too many failed attempts, try again later")
	ErrUnavailable          = errors.New("backend unavailable")
	ErrInternalError        = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound)
}

// IsClientError reports whether the error was caused by the request rather than the server
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidOrExpiredCode) ||
		errors.Is(err, ErrInsufficientBalance)
}
