package tasks

import "fmt"

// SyncError is returned when a foreground refresh fails. The collection keeps its previous items.
type SyncError struct {
	Resource ResourceType
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Resource, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
