package whoapi

import (
	"errors"
	"fmt"
)

// ConfigError reports unusable client configuration, such as missing WHO
// credentials. It is returned before any network I/O happens.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("whoapi: credentials not configured: %s", e.Reason)
}

// AuthError reports credentials rejected by the token endpoint, or an
// access token the API refused even after a refresh.
type AuthError struct {
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("whoapi: authentication failed (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("whoapi: authentication failed: %s", e.Detail)
}

// NotFoundError reports an ICF code or entity URI unknown to the
// configured release.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("whoapi: icf code %q not found", e.Code)
}

// UpstreamError reports a non-success response, a transport failure, or a
// payload the client could not decode.
type UpstreamError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("whoapi: upstream request failed (status %d): %s", e.StatusCode, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("whoapi: %s: network error: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("whoapi: upstream request failed: %s", e.Detail)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsUpstreamError reports whether err is an UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
