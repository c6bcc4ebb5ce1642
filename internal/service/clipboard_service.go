// Package service is the clip store behind the daemon: it stores captures,
// applies commands and tells registered handlers what changed.
package service

import (
	"clipboard-sync/internal/clipboard"
	"clipboard-sync/internal/events"
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Custom error types for better error handling
type ClipboardError struct {
	Op      string // Operation that failed
	ID      int64  // Clip involved (if applicable)
	Message string // Error message
	Err     error  // Underlying error
}

func (e *ClipboardError) Error() string {
	if e.ID > 0 {
		return fmt.Sprintf("%s failed for clip %d: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *ClipboardError) Unwrap() error {
	return e.Err
}

// Config holds service settings
type Config struct {
	// MaxHistory caps the number of unpinned clips. Zero means unlimited.
	MaxHistory int
	// AppName is recorded on clips captured on request.
	AppName string
}

// ClipboardService manages clipboard monitoring and storage
type ClipboardService struct {
	monitor clipboard.Monitor
	store   storage.Storage
	cfg     Config
	now     func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc

	handlers []EventHandler
	mu       sync.RWMutex

	// writeMu orders store writes with their events
	writeMu sync.Mutex
}

// New creates a new ClipboardService
func New(monitor clipboard.Monitor, store storage.Storage, cfg Config) *ClipboardService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ClipboardService{
		monitor: monitor,
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterHandler adds a new history change handler
func (s *ClipboardService) RegisterHandler(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start begins monitoring and storing clipboard changes
func (s *ClipboardService) Start() error {
	s.monitor.OnChange(func(clip types.Clip) {
		if _, err := s.capture(s.ctx, clip); err != nil {
			slog.Error("failed to store clipboard change", "error", err)
		}
	})

	if err := s.monitor.Start(); err != nil {
		return &ClipboardError{
			Op:      "Start",
			Message: "failed to start clipboard monitor",
			Err:     err,
		}
	}
	return nil
}

// Stop gracefully shuts down the service
func (s *ClipboardService) Stop() error {
	s.cancel()

	if err := s.monitor.Stop(); err != nil {
		return &ClipboardError{
			Op:      "Stop",
			Message: "failed to stop clipboard monitor",
			Err:     err,
		}
	}
	return nil
}

// ListRecent returns up to limit clips, most recently changed first
func (s *ClipboardService) ListRecent(ctx context.Context, limit int) ([]types.Clip, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	clips, err := s.store.List(ctx, storage.ListFilter{Limit: limit})
	if err != nil {
		return nil, &ClipboardError{
			Op:      "ListRecent",
			Message: "failed to list clips",
			Err:     err,
		}
	}
	return clips, nil
}

// SetPinned changes the pin state of a clip
func (s *ClipboardService) SetPinned(ctx context.Context, id int64, pinned bool) (*types.Clip, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	clip, err := s.store.SetPinned(ctx, id, pinned)
	if err != nil {
		return nil, &ClipboardError{
			Op:      "SetPinned",
			ID:      id,
			Message: "failed to update pin state",
			Err:     err,
		}
	}

	s.emit(events.Updated(types.PinChange{
		ID:        clip.ID,
		IsPinned:  clip.IsPinned,
		UpdatedAt: clip.UpdatedAt,
	}))
	return clip, nil
}

// Delete removes a clip by its ID
func (s *ClipboardService) Delete(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return &ClipboardError{
			Op:      "Delete",
			ID:      id,
			Message: "failed to delete clip",
			Err:     err,
		}
	}

	s.emit(events.Deleted(id))
	return nil
}

// Clear deletes all stored clips, pinned ones included
func (s *ClipboardService) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return &ClipboardError{
			Op:      "Clear",
			Message: "failed to clear history",
			Err:     err,
		}
	}

	s.emit(events.Cleared())
	return nil
}

// CaptureCurrent stores whatever the system clipboard holds right now. It
// returns nil when the clipboard has no text.
func (s *ClipboardService) CaptureCurrent(ctx context.Context) (*types.Clip, error) {
	content, err := s.monitor.Read()
	if err != nil {
		return nil, &ClipboardError{
			Op:      "CaptureCurrent",
			Message: "failed to read clipboard",
			Err:     err,
		}
	}
	if content == "" {
		return nil, nil
	}

	return s.capture(ctx, clipboard.NewClip(content, s.cfg.AppName, s.now()))
}

// IgnoreNext tells the monitor to skip the next update carrying content
func (s *ClipboardService) IgnoreNext(content string) {
	s.monitor.IgnoreNext(content)
}

// capture stores a clip, announces it and trims the history
func (s *ClipboardService) capture(ctx context.Context, clip types.Clip) (*types.Clip, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored, created, err := s.store.Store(ctx, clip)
	if errors.Is(err, storage.ErrContentTooLarge) {
		slog.Warn("content too large to store", "size", len(clip.Content))
		return nil, &ClipboardError{
			Op:      "Capture",
			Message: "content too large",
			Err:     err,
		}
	} else if err != nil {
		return nil, &ClipboardError{
			Op:      "Capture",
			Message: "failed to store clip",
			Err:     err,
		}
	}

	slog.Debug("captured clip", "id", stored.ID, "created", created, "length", len(stored.Content))
	s.emit(events.Added(*stored))

	if created && s.cfg.MaxHistory > 0 {
		removed, err := s.store.Trim(ctx, s.cfg.MaxHistory)
		if err != nil {
			slog.Error("failed to trim history", "error", err)
		}
		for _, id := range removed {
			s.emit(events.Deleted(id))
		}
	}
	return stored, nil
}

func (s *ClipboardService) emit(ev events.Event) {
	s.mu.RLock()
	handlers := s.handlers // Copy to avoid holding lock during callbacks
	s.mu.RUnlock()

	for _, handler := range handlers {
		handler.HandleEvent(ev)
	}
}
