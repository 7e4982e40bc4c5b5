package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/linesync/internal/services"
	"github.com/desertthunder/linesync/internal/shared"
)

// ResourceType names a cached collection.
type ResourceType string

const (
	Calls           ResourceType = "calls"
	Recordings      ResourceType = "recordings"
	PersonalNumbers ResourceType = "personal_numbers"
	PlatformNumbers ResourceType = "platform_numbers"
)

// ResourceTypes lists every collection in display order.
func ResourceTypes() []ResourceType {
	return []ResourceType{Calls, Recordings, PersonalNumbers, PlatformNumbers}
}

// ParseResourceType accepts the canonical name with "-" or "_" separators.
func ParseResourceType(s string) (ResourceType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, t := range ResourceTypes() {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", shared.ErrUnknownResource, s)
}

func (t ResourceType) family() services.Family {
	switch t {
	case Calls:
		return services.FamilyCalls
	case Recordings:
		return services.FamilyRecordings
	case PersonalNumbers:
		return services.FamilyPersonalNumbers
	case PlatformNumbers:
		return services.FamilyPlatformNumbers
	default:
		return services.Family(t)
	}
}

// Label returns a human-readable name.
func (t ResourceType) Label() string {
	switch t {
	case Calls:
		return "Call history"
	case Recordings:
		return "Recordings"
	case PersonalNumbers:
		return "My numbers"
	case PlatformNumbers:
		return "Platform numbers"
	default:
		return string(t)
	}
}
