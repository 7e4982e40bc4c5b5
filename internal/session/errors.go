package session

import (
	"fmt"

	"github.com/desertthunder/linesync/internal/shared"
)

// AuthErrorKind classifies session failures.
type AuthErrorKind int

const (
	InvalidCredentials AuthErrorKind = iota
	NoRefreshToken
	RefreshFailed
	NoValidToken
	Network
)

func (k AuthErrorKind) sentinel() error {
	switch k {
	case InvalidCredentials:
		return shared.ErrInvalidCredentials
	case NoRefreshToken:
		return shared.ErrNoRefreshToken
	case RefreshFailed:
		return shared.ErrRefreshFailed
	case NoValidToken:
		return shared.ErrNoValidToken
	default:
		return shared.ErrNetwork
	}
}

func (k AuthErrorKind) String() string {
	return k.sentinel().Error()
}

// AuthError is returned by every [Manager] operation that fails.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches the shared sentinel for the error's kind.
func (e *AuthError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func authErr(kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}
