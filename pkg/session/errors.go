package session

import (
	"errors"
	"fmt"
)

// ErrAuthentication is matched by every *AuthenticationError.
var ErrAuthentication = errors.New("authentication failed")

// AuthenticationError is returned when a credential exchange fails or an
// authorization failure could not be recovered.
type AuthenticationError struct {
	Account string
	URL     string
	Err     error
}

func (e *AuthenticationError) Error() string {
	switch {
	case e.Account != "":
		return fmt.Sprintf("authentication failed for %s: %v", e.Account, e.Err)
	case e.URL != "":
		return fmt.Sprintf("authorization failed for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// RemoteError is a non-2xx, non-authorization response.
type RemoteError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("response code %d for %s %s: %s", e.StatusCode, e.Method, e.URL, e.Body)
}
