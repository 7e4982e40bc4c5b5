package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrNoRefreshToken     = fmt.Errorf("no refresh token available")
	ErrRefreshFailed      = fmt.Errorf("token refresh failed")
	ErrNoValidToken       = fmt.Errorf("no valid token")
	ErrNetwork            = fmt.Errorf("network error")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")

	// Endpoint resolution errors
	ErrUnauthorized          = fmt.Errorf("unauthorized")
	ErrAllEndpointsExhausted = fmt.Errorf("all endpoints exhausted")
	ErrDecodeFailed          = fmt.Errorf("response decode failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrUnknownResource    = fmt.Errorf("unknown resource type")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
