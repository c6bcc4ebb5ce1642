package events

import (
	"clipboard-sync/pkg/types"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Source delivers raw push frames in the order the store emitted them. The
// channel is closed when the source stops.
type Source interface {
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// Target receives decoded events. It is implemented by *cache.ClipCache.
type Target interface {
	Upsert(clip types.Clip) bool
	Remove(id int64) bool
	SetPinned(id int64, pinned bool, at time.Time) bool
	Clear() bool
}

// Subscriber applies push events to its target, one at a time, in delivery
// order. Every mutation it applies is idempotent, so an event that also
// arrived through a command acknowledgement is harmless.
type Subscriber struct {
	target Target

	mu         sync.Mutex
	subscribed bool
	done       chan struct{}
}

// NewSubscriber creates a subscriber for target.
func NewSubscriber(target Target) *Subscriber {
	return &Subscriber{target: target, done: make(chan struct{})}
}

// Subscribe attaches to src and starts applying its frames in the background.
// Only the first successful call subscribes; later calls return nil without
// doing anything. If src fails to subscribe, a later call may retry.
func (s *Subscriber) Subscribe(ctx context.Context, src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribed {
		slog.Debug("push subscription already active")
		return nil
	}

	frames, err := src.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to push events: %w", err)
	}
	s.subscribed = true

	go func() {
		defer close(s.done)
		for frame := range frames {
			s.HandleFrame(frame)
		}
		slog.Info("push event stream closed")
	}()
	return nil
}

// Done is closed once the subscribed source has closed its stream.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// HandleFrame decodes and applies one frame. Malformed or unknown frames are
// logged and dropped.
func (s *Subscriber) HandleFrame(frame []byte) {
	ev, err := Decode(frame)
	if err != nil {
		slog.Warn("dropping push event", "error", err, "size", len(frame))
		return
	}
	s.Apply(ev)
}

// Apply dispatches ev to the target and reports whether the target changed.
// A panic raised downstream of the target is recovered and logged so later
// events keep flowing.
func (s *Subscriber) Apply(ev Event) (changed bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("push event handler panicked", "type", ev.Kind, "panic", r)
			changed = false
		}
	}()

	switch ev.Kind {
	case ClipAdded:
		changed = s.target.Upsert(ev.Clip)
	case ClipUpdated:
		changed = s.target.SetPinned(ev.Pin.ID, ev.Pin.IsPinned, ev.Pin.UpdatedAt)
	case ClipDeleted:
		changed = s.target.Remove(ev.ID)
	case HistoryCleared:
		changed = s.target.Clear()
	default:
		slog.Warn("dropping push event", "error", ErrUnknownEvent, "type", ev.Kind)
		return false
	}

	slog.Debug("applied push event", "type", ev.Kind, "changed", changed)
	return changed
}
