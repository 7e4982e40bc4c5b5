package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/services"
	"github.com/desertthunder/linesync/internal/shared"
)

// DefaultRefreshInterval is the staleness threshold and background tick period.
const DefaultRefreshInterval = 300 * time.Second

// Source fetches normalized records. [services.Resolver] implements it.
type Source interface {
	Fetch(ctx context.Context, family services.Family, params services.Params) ([]models.Record, error)
	Account(ctx context.Context) (models.Account, error)
}

// Session reports authentication state. [session.Manager] implements it.
type Session interface {
	IsAuthenticated() bool
	Claims() *models.IdentityClaims
}

// renewer is implemented by sessions that can exchange a refresh token when the access token has expired.
type renewer interface {
	ValidToken(ctx context.Context) (string, error)
}

// SnapshotStore persists the last good collection per resource. [repositories.SnapshotRepository] implements it.
type SnapshotStore interface {
	Save(ctx context.Context, s models.Snapshot) error
	Get(ctx context.Context, resource string) (*models.Snapshot, error)
	Clear(ctx context.Context) error
}

// Options configures a [Coordinator].
type Options struct {
	Source    Source
	Session   Session
	Snapshots SnapshotStore    // optional
	Interval  time.Duration    // defaults to [DefaultRefreshInterval]
	Limit     int              // page size for call history and recordings; 0 lets the platform decide
	Logger    *log.Logger      // defaults to [shared.NewLogger]
	Now       func() time.Time // defaults to [time.Now]
}

// Coordinator keeps one cached collection per [ResourceType] and refreshes them on demand or when stale.
//
// At most one fetch per resource type is in flight; a refresh requested meanwhile is ignored.
// Failed refreshes keep the previous items and record the error.
type Coordinator struct {
	source    Source
	session   Session
	snapshots SnapshotStore
	interval  time.Duration
	limit     int
	logger    *log.Logger
	now       func() time.Time

	calls           *collection[models.CallRecord]
	recordings      *collection[models.Recording]
	personalNumbers *collection[models.PhoneNumber]
	platformNumbers *collection[models.PhoneNumber]
	caches          map[ResourceType]cache

	subsMu sync.RWMutex
	subs   map[int]chan Event
	nextID int

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// persistMu orders snapshot writes against Reset.
	persistMu sync.Mutex
}

// NewCoordinator creates a [Coordinator] with empty collections.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Coordinator{
		source:          opts.Source,
		session:         opts.Session,
		snapshots:       opts.Snapshots,
		interval:        opts.Interval,
		limit:           opts.Limit,
		logger:          shared.WithLogger(opts.Logger, "component", "sync"),
		now:             opts.Now,
		calls:           newCollection[models.CallRecord](),
		recordings:      newCollection[models.Recording](),
		personalNumbers: newCollection[models.PhoneNumber](),
		platformNumbers: newCollection[models.PhoneNumber](),
		subs:            map[int]chan Event{},
	}
	c.caches = map[ResourceType]cache{
		Calls:           c.calls,
		Recordings:      c.recordings,
		PersonalNumbers: c.personalNumbers,
		PlatformNumbers: c.platformNumbers,
	}
	return c
}

// Interval returns the staleness threshold.
func (c *Coordinator) Interval() time.Duration { return c.interval }

// Calls returns the call history collection.
func (c *Coordinator) Calls() Snapshot[models.CallRecord] { return c.calls.snapshot() }

// Recordings returns the recordings collection.
func (c *Coordinator) Recordings() Snapshot[models.Recording] { return c.recordings.snapshot() }

// PersonalNumbers returns the personal numbers collection.
func (c *Coordinator) PersonalNumbers() Snapshot[models.PhoneNumber] { return c.personalNumbers.snapshot() }

// PlatformNumbers returns the platform numbers collection.
func (c *Coordinator) PlatformNumbers() Snapshot[models.PhoneNumber] { return c.platformNumbers.snapshot() }

// Status summarizes the collection for t.
func (c *Coordinator) Status(t ResourceType) (Status, error) {
	col, err := c.collection(t)
	if err != nil {
		return Status{}, err
	}
	s := col.status(t)
	s.Stale = c.isStale(s.LastRefreshedAt)
	return s, nil
}

// Statuses summarizes every collection in [ResourceTypes] order.
func (c *Coordinator) Statuses() []Status {
	out := make([]Status, 0, len(c.caches))
	for _, t := range ResourceTypes() {
		s, _ := c.Status(t)
		out = append(out, s)
	}
	return out
}

// LoadIfEmpty refreshes t only when it holds no items and the session is authenticated.
// An expired session holding a refresh token is renewed first; a failed renewal is returned as a [SyncError].
func (c *Coordinator) LoadIfEmpty(ctx context.Context, t ResourceType) error {
	col, err := c.collection(t)
	if err != nil {
		return err
	}
	if !col.isEmpty() {
		return nil
	}

	ready, err := c.ready(ctx)
	if err != nil {
		return &SyncError{Resource: t, Err: err}
	}
	if !ready {
		c.logger.Debug("skipping load, not authenticated", "resource", t)
		return nil
	}
	_, err = c.refresh(ctx, t, false)
	return err
}

// Refresh fetches t now. It returns nil without fetching when a refresh of t is already in flight.
func (c *Coordinator) Refresh(ctx context.Context, t ResourceType) error {
	_, err := c.refresh(ctx, t, false)
	return err
}

// PreloadAll runs [Coordinator.LoadIfEmpty] for every resource type concurrently and waits for all of them.
//
// The result holds one entry per type; a failure does not cancel its siblings.
func (c *Coordinator) PreloadAll(ctx context.Context) map[ResourceType]error {
	type result struct {
		resource ResourceType
		err      error
	}

	types := ResourceTypes()
	results := make(chan result, len(types))

	var wg sync.WaitGroup
	for _, t := range types {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- result{resource: t, err: c.LoadIfEmpty(ctx, t)}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[ResourceType]error, len(types))
	for res := range results {
		out[res.resource] = res.err
	}
	return out
}

// RefreshStale silently refreshes every collection that is stale, non-empty and authenticated.
// Failures are logged and swallowed. It returns the types whose refresh was applied; a type
// whose refresh was already in flight is not included.
func (c *Coordinator) RefreshStale(ctx context.Context) []ResourceType {
	ready, err := c.ready(ctx)
	if err != nil {
		c.logger.Warn("background refresh skipped, session renewal failed", "error", err)
		return nil
	}
	if !ready {
		return nil
	}

	var (
		mu        sync.Mutex
		refreshed []ResourceType
		wg        sync.WaitGroup
	)
	for _, t := range ResourceTypes() {
		col := c.caches[t]
		if col.isEmpty() || !c.isStale(col.refreshedAt()) {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := c.refresh(ctx, t, true)
			if err != nil {
				c.logger.Warn("background refresh failed", "resource", t, "error", err)
				return
			}
			if !applied {
				return
			}
			mu.Lock()
			refreshed = append(refreshed, t)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return refreshed
}

// Start runs [Coordinator.RefreshStale] every interval until ctx is done or [Coordinator.Stop] is called.
// Calling Start on a running coordinator is a no-op.
func (c *Coordinator) Start(ctx context.Context) {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.logger.Debug("background refresh started", "interval", c.interval)
		for {
			select {
			case <-ctx.Done():
				c.logger.Debug("background refresh stopped")
				return
			case <-ticker.C:
				c.RefreshStale(ctx)
			}
		}
	}()
}

// Stop ends the background loop and waits for it to exit. Safe to call when not running.
func (c *Coordinator) Stop() {
	c.loopMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the background loop is active.
func (c *Coordinator) Running() bool {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	return c.cancel != nil
}

// Reset stops the background loop, empties every collection and drops persisted snapshots. Used on logout.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.Stop()

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	for _, t := range ResourceTypes() {
		c.caches[t].reset()
	}
	c.emit(collectionsResetEvent(c.now()))

	if c.snapshots == nil {
		return nil
	}
	if err := c.snapshots.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}

// Restore hydrates empty collections from persisted snapshots. Items keep their original refresh time,
// so the background loop refreshes them once they are stale.
func (c *Coordinator) Restore(ctx context.Context) error {
	if c.snapshots == nil {
		return nil
	}

	for _, t := range ResourceTypes() {
		s, err := c.snapshots.Get(ctx, string(t))
		if err != nil {
			return fmt.Errorf("failed to load %s snapshot: %w", t, err)
		}
		if s == nil {
			continue
		}

		count, err := c.caches[t].restore(s.Items, s.RefreshedAt)
		if err != nil {
			c.logger.Warn("discarding unreadable snapshot", "resource", t, "error", err)
			continue
		}
		if count > 0 {
			c.logger.Debug("restored snapshot", "resource", t, "count", count, "refreshed_at", s.RefreshedAt)
			c.emit(snapshotRestoredEvent(t, count, c.now()))
		}
	}
	return nil
}

// Account returns the account profile, falling back to identity claims when no account endpoint answers.
func (c *Coordinator) Account(ctx context.Context) (models.Account, error) {
	account, err := c.source.Account(ctx)
	if err == nil {
		return account, nil
	}

	if claims := c.session.Claims(); claims != nil {
		c.logger.Warn("account endpoints unavailable, using token claims", "error", err)
		return models.AccountFromIdentity(*claims), nil
	}
	return models.Account{}, err
}

// Subscribe returns a channel of events and a cancel func that closes it.
//
// Delivery never blocks the coordinator: events are dropped when the buffer is full.
func (c *Coordinator) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	c.subsMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			close(ch)
			c.subsMu.Unlock()
		})
	}
}

// refresh fetches t and reports whether the result was applied to the collection.
func (c *Coordinator) refresh(ctx context.Context, t ResourceType, silent bool) (bool, error) {
	col, err := c.collection(t)
	if err != nil {
		return false, err
	}

	generation, ok := col.begin(silent)
	if !ok {
		c.logger.Debug("refresh already in flight", "resource", t)
		c.emit(refreshSkippedEvent(t, c.now()))
		return false, nil
	}
	c.emit(refreshStartedEvent(t, silent, c.now()))

	// Fetches complete even if the caller goes away; the transport timeout bounds them.
	fetchCtx := context.WithoutCancel(ctx)
	records, err := c.source.Fetch(fetchCtx, t.family(), c.params(t))
	at := c.now()

	if err != nil {
		col.fail(generation, err)
		c.emit(refreshFailedEvent(t, err, silent, at))
		return false, &SyncError{Resource: t, Err: err}
	}

	count, applied := col.succeed(generation, records, at)
	if !applied {
		c.logger.Debug("discarding refresh that finished after reset", "resource", t)
		return false, nil
	}

	c.logger.Debug("refreshed collection", "resource", t, "count", count, "silent", silent)
	c.persist(fetchCtx, t, col, generation, at)
	c.emit(refreshSucceededEvent(t, count, silent, at))
	return true, nil
}

// persist saves the collection unless a reset happened after generation began.
func (c *Coordinator) persist(ctx context.Context, t ResourceType, col cache, generation uint64, at time.Time) {
	if c.snapshots == nil {
		return
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	data, count, current, err := col.marshal(generation)
	if !current {
		c.logger.Debug("skipping snapshot of a reset collection", "resource", t)
		return
	}
	if err != nil {
		c.logger.Warn("failed to encode snapshot", "resource", t, "error", err)
		return
	}

	snapshot := models.Snapshot{Resource: string(t), Items: data, ItemCount: count, RefreshedAt: at}
	if err := c.snapshots.Save(ctx, snapshot); err != nil {
		c.logger.Warn("failed to save snapshot", "resource", t, "error", err)
	}
}

// ready reports whether fetches can be authorized. An expired session that can renew itself is renewed here.
// The error is set only when a renewal was attempted and failed.
func (c *Coordinator) ready(ctx context.Context) (bool, error) {
	if c.session.IsAuthenticated() {
		return true, nil
	}
	r, ok := c.session.(renewer)
	if !ok {
		return false, nil
	}

	if _, err := r.ValidToken(context.WithoutCancel(ctx)); err != nil {
		if errors.Is(err, shared.ErrNoValidToken) && !errors.Is(err, shared.ErrRefreshFailed) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Coordinator) params(t ResourceType) services.Params {
	switch t {
	case Calls, Recordings:
		return services.Params{Limit: c.limit}
	default:
		return services.Params{}
	}
}

func (c *Coordinator) collection(t ResourceType) (cache, error) {
	col, ok := c.caches[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownResource, t)
	}
	return col, nil
}

// isStale reports whether now - refreshedAt exceeds the interval. Never-refreshed counts as stale.
func (c *Coordinator) isStale(refreshedAt *time.Time) bool {
	if refreshedAt == nil {
		return true
	}
	return c.now().Sub(*refreshedAt) > c.interval
}

// emit sends an event to every subscriber without blocking.
func (c *Coordinator) emit(e Event) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, ch := range c.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
