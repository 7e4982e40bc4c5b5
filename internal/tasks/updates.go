package tasks

import (
	"fmt"
	"time"
)

// Event reports a collection change to subscribers.
//
// Used to drive the watch view and the status server without polling.
type Event struct {
	Kind     EventKind    // What happened
	Resource ResourceType // Affected collection; empty for coordinator-wide events
	Count    int          // Items held after the event
	Silent   bool         // Background refresh; consumers should not show a loading state
	Err      error        // Set for [RefreshFailed]
	At       time.Time
	Message  string // Human-readable message for display
}

// Event kind enumeration
type EventKind int

const (
	RefreshStarted EventKind = iota
	RefreshSucceeded
	RefreshFailed
	RefreshSkipped
	SnapshotRestored
	CollectionsReset
)

func (k EventKind) String() string {
	switch k {
	case RefreshStarted:
		return "refresh_started"
	case RefreshSucceeded:
		return "refresh_succeeded"
	case RefreshFailed:
		return "refresh_failed"
	case RefreshSkipped:
		return "refresh_skipped"
	case SnapshotRestored:
		return "snapshot_restored"
	case CollectionsReset:
		return "collections_reset"
	default:
		return ""
	}
}

func refreshStartedEvent(t ResourceType, silent bool, at time.Time) Event {
	return Event{
		Kind:     RefreshStarted,
		Resource: t,
		Silent:   silent,
		At:       at,
		Message:  fmt.Sprintf("Refreshing %s...", t.Label()),
	}
}

func refreshSkippedEvent(t ResourceType, at time.Time) Event {
	return Event{
		Kind:     RefreshSkipped,
		Resource: t,
		At:       at,
		Message:  fmt.Sprintf("%s refresh already in progress", t.Label()),
	}
}

func refreshSucceededEvent(t ResourceType, count int, silent bool, at time.Time) Event {
	return Event{
		Kind:     RefreshSucceeded,
		Resource: t,
		Count:    count,
		Silent:   silent,
		At:       at,
		Message:  fmt.Sprintf("✓ %s (%d items)", t.Label(), count),
	}
}

func refreshFailedEvent(t ResourceType, err error, silent bool, at time.Time) Event {
	return Event{
		Kind:     RefreshFailed,
		Resource: t,
		Silent:   silent,
		Err:      err,
		At:       at,
		Message:  fmt.Sprintf("✗ %s: %v", t.Label(), err),
	}
}

func snapshotRestoredEvent(t ResourceType, count int, at time.Time) Event {
	return Event{
		Kind:     SnapshotRestored,
		Resource: t,
		Count:    count,
		At:       at,
		Message:  fmt.Sprintf("Restored %s (%d items)", t.Label(), count),
	}
}

func collectionsResetEvent(at time.Time) Event {
	return Event{
		Kind:    CollectionsReset,
		At:      at,
		Message: "Cleared all collections",
	}
}
