package elearn

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired means the session could not be refreshed and has
	// been cleared. Callers should send the user back to the login screen.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoRefreshToken means a refresh was attempted without a stored
	// refresh token.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrNotSignedIn is returned by operations that need a session when
	// none is present.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrQuestionNotFound is returned when checking or revealing an
	// unknown question id.
	ErrQuestionNotFound = errors.New("question not found")
)

// APIError is a non-2xx platform API response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: %s (status %d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err is a 401 API response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 401
}
