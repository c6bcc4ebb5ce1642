// Package session wires the clip cache, search index, push subscriber,
// command gateway and view projector into one context object. The
// application shell creates a Session at startup, passes it to whatever
// presents clips, and closes it at shutdown.
package session

import (
	"clipboard-sync/internal/cache"
	"clipboard-sync/internal/events"
	"clipboard-sync/internal/gateway"
	"clipboard-sync/internal/search"
	"clipboard-sync/internal/view"
	"clipboard-sync/pkg/types"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultLoadLimit = 200

// State is everything a presentation layer reads.
type State struct {
	Query     string
	Pinned    []types.Clip
	Recent    []types.Clip
	NoResults bool
	IsLoading bool
	LastError string

	// Version is the cache version the lists were projected from.
	Version uint64
}

// Options configures a Session.
type Options struct {
	LoadLimit      int
	CommandTimeout time.Duration
	Search         search.Options
}

// Session owns the client-side view of the clip store. The cache is mutated
// only by the push subscriber and the command gateway; every mutation,
// query change or command status change produces a new State.
type Session struct {
	opts       Options
	cache      *cache.ClipCache
	index      *search.Index
	subscriber *events.Subscriber
	gateway    *gateway.Gateway
	source     events.Source

	cancel context.CancelFunc

	mu          sync.Mutex // serializes projection and delivery
	query       string
	watchers    map[int]func(State)
	nextWatcher int

	state atomic.Pointer[State]
}

// New creates a Session talking to remote for commands and source for push
// events. Nothing is fetched until Start.
func New(remote gateway.Remote, source events.Source, opts Options) *Session {
	if opts.LoadLimit <= 0 {
		opts.LoadLimit = DefaultLoadLimit
	}

	c := cache.New()
	s := &Session{
		opts:       opts,
		cache:      c,
		index:      search.New(opts.Search),
		subscriber: events.NewSubscriber(c),
		gateway:    gateway.New(remote, c, gateway.Options{Timeout: opts.CommandTimeout}),
		source:     source,
		watchers:   make(map[int]func(State)),
	}
	s.state.Store(&State{Pinned: []types.Clip{}, Recent: []types.Clip{}})

	c.OnChange(func(uint64) {
		s.index.Invalidate()
		s.recompute()
	})
	s.gateway.OnStatus(func(gateway.Status) {
		s.recompute()
	})
	return s
}

// Start subscribes to push events and seeds the cache. The subscription is
// made first so no capture is lost between the bulk load and the first push.
// A failed load is reported through LastError and the returned error; the
// subscription stays up either way.
func (s *Session) Start(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := s.subscriber.Subscribe(subCtx, s.source); err != nil {
		cancel()
		return err
	}
	s.cancel = cancel

	if _, err := s.gateway.LoadRecent(ctx, s.opts.LoadLimit); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	slog.Info("session started", "clips", s.cache.Len())
	return nil
}

// Close stops the push subscription and waits for the event stream to drain.
func (s *Session) Close() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	select {
	case <-s.subscriber.Done():
	case <-time.After(5 * time.Second):
		slog.Warn("push event stream did not close in time")
	}
}

// Done is closed when the push stream ends.
func (s *Session) Done() <-chan struct{} {
	return s.subscriber.Done()
}

// Watch registers fn to receive every new State, starting with the current
// one. Deliveries are synchronous and ordered. fn must not call back into
// the Session's mutating methods; State is safe to call. The returned func
// unregisters fn.
func (s *Session) Watch(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	fn(*s.state.Load())
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// State returns the latest projection.
func (s *Session) State() State { return *s.state.Load() }

func (s *Session) Pinned() []types.Clip { return s.State().Pinned }
func (s *Session) Recent() []types.Clip { return s.State().Recent }
func (s *Session) NoResults() bool      { return s.State().NoResults }
func (s *Session) IsLoading() bool      { return s.State().IsLoading }
func (s *Session) LastError() string    { return s.State().LastError }

// Lookup returns the cached clip with id.
func (s *Session) Lookup(id int64) (types.Clip, bool) {
	return s.cache.Get(id)
}

// SetQuery changes the search text and reprojects.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()
	s.recompute()
}

func (s *Session) LoadRecent(ctx context.Context, limit int) ([]types.Clip, error) {
	if limit <= 0 {
		limit = s.opts.LoadLimit
	}
	return s.gateway.LoadRecent(ctx, limit)
}

func (s *Session) TogglePin(ctx context.Context, id int64, pinned bool) error {
	return s.gateway.TogglePin(ctx, id, pinned)
}

func (s *Session) Delete(ctx context.Context, id int64) error {
	return s.gateway.Delete(ctx, id)
}

func (s *Session) ClearAll(ctx context.Context) error {
	return s.gateway.ClearAll(ctx)
}

func (s *Session) CaptureCurrent(ctx context.Context) (*types.Clip, error) {
	return s.gateway.CaptureCurrent(ctx)
}

func (s *Session) IgnoreNext(ctx context.Context, content string) error {
	return s.gateway.IgnoreNext(ctx, content)
}

// recompute projects the cache under the current query and delivers the
// result. The index is rebuilt only when a filtering query needs it.
func (s *Session) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clips, version := s.cache.Snapshot()
	if strings.TrimSpace(s.query) != "" && s.index.Stale(version) {
		s.index.Rebuild(clips, version)
	}

	v := view.Project(clips, s.index, s.query)
	st := s.gateway.Status()
	state := &State{
		Query:     s.query,
		Pinned:    v.Pinned,
		Recent:    v.Recent,
		NoResults: v.NoResults,
		IsLoading: st.Busy,
		LastError: st.LastError,
		Version:   version,
	}
	s.state.Store(state)

	for _, fn := range s.watchers {
		fn(*state)
	}
}
