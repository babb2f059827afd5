package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session relay
var (
	// Session errors
	ErrUnauthenticated  = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrRefreshExhausted = errors.New("refresh token rejected")
	ErrNoSessionTokens  = errors.New("backend returned no session tokens")

	// Backend errors
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrInvalidBackendURL  = errors.New("invalid backend URL")

	// Request errors
	ErrInvalidBody = errors.New("invalid JSON body")

	// Repo errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
