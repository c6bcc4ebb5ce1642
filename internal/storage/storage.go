package storage

import (
	"clipboard-sync/pkg/types"
	"context"
)

// Storage defines the interface for clipboard data persistence
type Storage interface {
	// Store saves a captured clip. Content already in the history is not
	// duplicated: its entry is touched and returned with created == false.
	Store(ctx context.Context, clip types.Clip) (stored *types.Clip, created bool, err error)

	// Get retrieves a clip by ID
	Get(ctx context.Context, id int64) (*types.Clip, error)

	// Delete removes a clip
	Delete(ctx context.Context, id int64) error

	// List returns clips matching the filter, most recently changed first
	List(ctx context.Context, filter ListFilter) ([]types.Clip, error)

	// SetPinned changes the pin state and returns the updated clip
	SetPinned(ctx context.Context, id int64, pinned bool) (*types.Clip, error)

	// Clear removes every clip, pinned ones included
	Clear(ctx context.Context) error

	// Trim deletes the oldest unpinned clips so that at most keep unpinned
	// clips remain, returning the deleted IDs
	Trim(ctx context.Context, keep int) ([]int64, error)

	Close() error
}

// ListFilter defines criteria for listing clips
type ListFilter struct {
	Limit  int
	Offset int
	Pinned *bool // Optional filter on pin state
}

// Config holds storage configuration
type Config struct {
	DBPath string // Path to SQLite database
}
