package domain

import "errors"

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrMalformedCredential     = errors.New("invalid user id format")
	ErrAuthenticationRequired  = errors.New("authentication required")
	ErrUpstreamUnavailable     = errors.New("upstream unavailable")
	ErrIntegrationNotConnected = errors.New("integration not connected")
	ErrForbidden               = errors.New("forbidden")
	ErrNotFound                = errors.New("not found")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrInvalidState            = errors.New("invalid oauth state")
)

// AuthError carries the public rejection code for an authentication or
// authorization failure. The wrapped error decides the HTTP status.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
