package services

import (
	"fmt"

	"github.com/desertthunder/linesync/internal/shared"
)

// ResolutionErrorKind classifies why a family could not be resolved.
type ResolutionErrorKind int

const (
	Unauthorized ResolutionErrorKind = iota
	AllEndpointsExhausted
	DecodeFailed
	UnknownFamily
)

func (k ResolutionErrorKind) sentinel() error {
	switch k {
	case Unauthorized:
		return shared.ErrUnauthorized
	case AllEndpointsExhausted:
		return shared.ErrAllEndpointsExhausted
	case DecodeFailed:
		return shared.ErrDecodeFailed
	default:
		return shared.ErrUnknownResource
	}
}

func (k ResolutionErrorKind) String() string {
	return k.sentinel().Error()
}

// ResolutionError is returned by [Resolver.Fetch]. Err is the last underlying cause, if any.
type ResolutionError struct {
	Kind   ResolutionErrorKind
	Family Family
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Family, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Family, e.Kind, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is matches the shared sentinel for the error's kind.
func (e *ResolutionError) Is(target error) bool {
	return target == e.Kind.sentinel()
}
