// Package gateway issues mutating commands to the clip store and reconciles
// their results into the local cache.
package gateway

import (
	"clipboard-sync/pkg/types"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Remote is the command surface of the clip store.
type Remote interface {
	ListRecent(ctx context.Context, limit int) ([]types.Clip, error)
	// SetPinned returns the clip as the store saved it, or nil when the
	// store does not report it.
	SetPinned(ctx context.Context, id int64, pinned bool) (*types.Clip, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	CaptureCurrent(ctx context.Context) (*types.Clip, error)
	IgnoreNext(ctx context.Context, content string) error
}

// Cache is the subset of *cache.ClipCache the gateway mutates.
type Cache interface {
	BeginLoad() uint64
	FinishLoad(mark uint64, clips []types.Clip)
	AbortLoad(mark uint64)
	Upsert(clip types.Clip) bool
	Remove(id int64) bool
	SetPinned(id int64, pinned bool, at time.Time) bool
	Clear() bool
}

// CommandError describes a failed remote command.
type CommandError struct {
	Op      string // Command that failed
	ID      int64  // Clip involved, 0 if none
	Message string // User-facing message
	Err     error  // Underlying error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Status is the observable command state.
type Status struct {
	Busy      bool
	LastError string
}

// Options configures a Gateway.
type Options struct {
	// Timeout bounds each remote call. Zero means no bound.
	Timeout time.Duration
}

// Gateway wraps every remote command in the same envelope: mark busy, clear
// the last error, call the store, record a failure as LastError, and release
// the busy mark on every exit path. Commands outlive their caller's context;
// once issued they run until the store answers or Timeout expires.
type Gateway struct {
	remote  Remote
	cache   Cache
	timeout time.Duration
	locks   *keyedMutex

	mu        sync.Mutex
	inflight  int
	lastError string
	listeners []func(Status)
}

// New creates a Gateway.
func New(remote Remote, cache Cache, opts Options) *Gateway {
	return &Gateway{
		remote:  remote,
		cache:   cache,
		timeout: opts.Timeout,
		locks:   newKeyedMutex(),
	}
}

// OnStatus registers fn to be called whenever Busy or LastError changes.
func (g *Gateway) OnStatus(fn func(Status)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// Status returns the current command state.
func (g *Gateway) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{Busy: g.inflight > 0, LastError: g.lastError}
}

// LoadRecent seeds the cache with up to limit clips. Push events applied
// while the request is in flight are kept on top of the returned snapshot.
// On failure the cache is left as it was and an empty slice is returned.
func (g *Gateway) LoadRecent(ctx context.Context, limit int) ([]types.Clip, error) {
	clips := []types.Clip{}
	err := g.run(ctx, "LoadRecent", 0, "Failed to load clips", func(ctx context.Context) error {
		mark := g.cache.BeginLoad()
		finished := false
		defer func() {
			if !finished {
				g.cache.AbortLoad(mark)
			}
		}()

		loaded, err := g.remote.ListRecent(ctx, limit)
		if err != nil {
			return err
		}
		if loaded == nil {
			loaded = []types.Clip{}
		}
		g.cache.FinishLoad(mark, loaded)
		finished = true
		clips = loaded
		return nil
	})
	return clips, err
}

// TogglePin sets the pin state of id. Commands for the same id are issued
// one after another. The cache takes the store's timestamp from the
// acknowledgement; when the store sends none, the push event applies it.
func (g *Gateway) TogglePin(ctx context.Context, id int64, pinned bool) error {
	unlock := g.locks.Lock(id)
	defer unlock()

	msg := fmt.Sprintf("Failed to unpin clip %d", id)
	if pinned {
		msg = fmt.Sprintf("Failed to pin clip %d", id)
	}
	return g.run(ctx, "TogglePin", id, msg, func(ctx context.Context) error {
		saved, err := g.remote.SetPinned(ctx, id, pinned)
		if err != nil {
			return err
		}
		if saved != nil {
			g.cache.SetPinned(id, saved.IsPinned, saved.UpdatedAt)
		}
		return nil
	})
}

// Delete removes id. On failure the cached entry stays.
func (g *Gateway) Delete(ctx context.Context, id int64) error {
	unlock := g.locks.Lock(id)
	defer unlock()

	return g.run(ctx, "Delete", id, fmt.Sprintf("Failed to delete clip %d", id), func(ctx context.Context) error {
		if err := g.remote.Delete(ctx, id); err != nil {
			return err
		}
		g.cache.Remove(id)
		return nil
	})
}

// ClearAll removes every clip, pinned ones included.
func (g *Gateway) ClearAll(ctx context.Context) error {
	return g.run(ctx, "ClearAll", 0, "Failed to clear history", func(ctx context.Context) error {
		if err := g.remote.Clear(ctx); err != nil {
			return err
		}
		g.cache.Clear()
		return nil
	})
}

// CaptureCurrent asks the store to capture the current clipboard. It returns
// nil when the store captured nothing or the command failed.
func (g *Gateway) CaptureCurrent(ctx context.Context) (*types.Clip, error) {
	var captured *types.Clip
	err := g.run(ctx, "CaptureCurrent", 0, "Failed to capture clipboard", func(ctx context.Context) error {
		clip, err := g.remote.CaptureCurrent(ctx)
		if err != nil {
			return err
		}
		if clip != nil {
			g.cache.Upsert(*clip)
			captured = clip
		}
		return nil
	})
	return captured, err
}

// IgnoreNext tells the store to skip the next capture of content, typically
// because this client is about to write it to the clipboard itself.
func (g *Gateway) IgnoreNext(ctx context.Context, content string) error {
	return g.run(ctx, "IgnoreNext", 0, "Failed to ignore next clip", func(ctx context.Context) error {
		return g.remote.IgnoreNext(ctx, content)
	})
}

func (g *Gateway) run(ctx context.Context, op string, id int64, message string, fn func(context.Context) error) (err error) {
	g.begin()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = &CommandError{Op: op, ID: id, Message: message, Err: err}
			slog.Error("command failed", "op", op, "id", id, "error", err)
		}
		g.end(err)
	}()

	ctx = context.WithoutCancel(ctx)
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (g *Gateway) begin() {
	g.mu.Lock()
	g.inflight++
	g.lastError = ""
	st, listeners := g.statusLocked()
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

func (g *Gateway) end(err error) {
	g.mu.Lock()
	g.inflight--
	if err != nil {
		g.lastError = err.Error()
	}
	st, listeners := g.statusLocked()
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

func (g *Gateway) statusLocked() (Status, []func(Status)) {
	return Status{Busy: g.inflight > 0, LastError: g.lastError}, g.listeners
}
