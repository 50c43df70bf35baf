package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCredentialMissing is returned when a refresh is needed but no refresh token is held
	ErrCredentialMissing = errors.New("no refresh token available")

	// ErrAuthenticationRejected matches any response with status 401
	ErrAuthenticationRejected = errors.New("authentication rejected")

	// ErrNetworkFailure matches failures where no response was received
	ErrNetworkFailure = errors.New("network failure")

	// ErrServerError matches any other non-2xx response
	ErrServerError = errors.New("server error")
)

// ResponseError is a non-2xx response from the API.
type ResponseError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if len(e.Body) > 0 {
		msg += ": " + string(e.Body)
	}
	return msg
}

func (e *ResponseError) Is(target error) bool {
	switch target {
	case ErrAuthenticationRejected:
		return e.StatusCode == http.StatusUnauthorized
	case ErrServerError:
		return e.StatusCode != http.StatusUnauthorized
	}
	return false
}

// NetworkError wraps a transport failure, including timeouts.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// IsAuthenticationRejected reports whether err is a 401 from the API.
func IsAuthenticationRejected(err error) bool {
	return errors.Is(err, ErrAuthenticationRejected)
}
