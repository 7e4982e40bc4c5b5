package tasks

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/linesync/internal/models"
)

// Snapshot is a consistent copy of one collection.
type Snapshot[T models.Record] struct {
	Items           []T
	LastRefreshedAt *time.Time
	IsLoading       bool
	LastError       string
}

// Status summarizes one collection without its items.
type Status struct {
	Resource        ResourceType `json:"resource"`
	Count           int          `json:"count"`
	LastRefreshedAt *time.Time   `json:"last_refreshed_at,omitempty"`
	IsLoading       bool         `json:"is_loading"`
	LastError       string       `json:"last_error,omitempty"`
	Stale           bool         `json:"stale"`
}

// cache is the type-erased view of a [collection] the coordinator drives.
type cache interface {
	begin(silent bool) (generation uint64, ok bool)
	succeed(generation uint64, records []models.Record, at time.Time) (count int, applied bool)
	fail(generation uint64, err error)
	isEmpty() bool
	refreshedAt() *time.Time
	status(resource ResourceType) Status
	reset()
	marshal(generation uint64) ([]byte, int, bool, error)
	restore(data []byte, at time.Time) (int, error)
}

// collection is the single-writer cache of one resource type.
//
// inFlight guards against duplicate fetches; loading is the flag consumers see and stays false for silent refreshes.
// generation changes on reset so a fetch that started before the reset cannot repopulate the collection.
type collection[T models.Record] struct {
	mu              sync.Mutex
	items           []T
	lastRefreshedAt *time.Time
	loading         bool
	inFlight        bool
	lastError       string
	generation      uint64
}

func newCollection[T models.Record]() *collection[T] {
	return &collection[T]{}
}

func (c *collection[T]) begin(silent bool) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return 0, false
	}
	c.inFlight = true
	c.loading = !silent
	return c.generation, true
}

func (c *collection[T]) succeed(generation uint64, records []models.Record, at time.Time) (int, bool) {
	items := make([]T, 0, len(records))
	for _, rec := range records {
		if v, ok := rec.(T); ok {
			items = append(items, v)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight, c.loading = false, false
	if generation != c.generation {
		return 0, false
	}
	c.items = items
	c.lastError = ""
	c.lastRefreshedAt = &at
	return len(items), true
}

func (c *collection[T]) fail(generation uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight, c.loading = false, false
	if generation != c.generation {
		return
	}
	c.lastError = err.Error()
}

func (c *collection[T]) isEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

func (c *collection[T]) refreshedAt() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyTime(c.lastRefreshedAt)
}

func (c *collection[T]) snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot[T]{
		Items:           append([]T(nil), c.items...),
		LastRefreshedAt: copyTime(c.lastRefreshedAt),
		IsLoading:       c.loading,
		LastError:       c.lastError,
	}
}

func (c *collection[T]) status(resource ResourceType) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Resource:        resource,
		Count:           len(c.items),
		LastRefreshedAt: copyTime(c.lastRefreshedAt),
		IsLoading:       c.loading,
		LastError:       c.lastError,
	}
}

// reset empties the collection. An in-flight fetch keeps its guard but its result is discarded.
func (c *collection[T]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.lastRefreshedAt = nil
	c.lastError = ""
	c.loading = false
	c.generation++
}

// marshal encodes the items for persistence. It reports false when the collection was reset after generation began.
func (c *collection[T]) marshal(generation uint64) ([]byte, int, bool, error) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return nil, 0, false, nil
	}
	items := append([]T(nil), c.items...)
	c.mu.Unlock()

	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, 0, true, fmt.Errorf("failed to marshal collection: %w", err)
	}
	return data, len(items), true, nil
}

// restore hydrates an empty collection from persisted items. A populated collection is left untouched.
func (c *collection[T]) restore(data []byte, at time.Time) (int, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("failed to unmarshal collection: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) > 0 || c.inFlight {
		return 0, nil
	}
	c.items = items
	c.lastRefreshedAt = &at
	return len(items), nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
