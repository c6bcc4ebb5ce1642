// Package cache holds the client's authoritative in-memory set of clips.
package cache

import (
	"clipboard-sync/pkg/types"
	"sort"
	"sync"
	"time"
)

// ChangeFunc is called after every applied mutation with the new version.
// It runs on the mutating goroutine, after the cache lock is released.
type ChangeFunc func(version uint64)

// ClipCache is a deduplicated collection of clips keyed by ID.
//
// Every mutation is applied under a single write lock, so readers see either
// the state before or the state after it, never a partial entry.
type ClipCache struct {
	mu      sync.RWMutex
	byID    map[int64]types.Clip
	version uint64
	now     func() time.Time

	// Bookkeeping for bulk loads in flight. A load's snapshot was taken by
	// the store at some point after BeginLoad, so changes applied to the
	// cache since then must survive FinishLoad.
	loads     int
	seq       uint64
	journal   map[int64]pending
	clearedAt uint64

	lmu       sync.RWMutex
	listeners []ChangeFunc
}

// pending is the last change to an id while a load was in flight. A nil pin
// on an id that is no longer cached is a tombstone.
type pending struct {
	seq uint64
	pin *types.PinChange // pin change for an id that was not cached yet
}

// New creates an empty cache.
func New() *ClipCache {
	return &ClipCache{
		byID: make(map[int64]types.Clip),
		now:  time.Now,
	}
}

// OnChange registers fn to be notified after each applied mutation.
func (c *ClipCache) OnChange(fn ChangeFunc) {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Load replaces the whole collection. Duplicate IDs in clips collapse to the
// most recently changed entry.
func (c *ClipCache) Load(clips []types.Clip) {
	c.FinishLoad(c.BeginLoad(), clips)
}

// BeginLoad marks the start of a bulk load and returns the mark to pass to
// FinishLoad or AbortLoad. Until then every change is journaled per id.
func (c *ClipCache) BeginLoad() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loads == 0 {
		c.journal = make(map[int64]pending)
		c.clearedAt = 0
	}
	c.loads++
	return c.seq
}

// AbortLoad ends a bulk load that produced no snapshot.
func (c *ClipCache) AbortLoad(mark uint64) {
	c.mu.Lock()
	c.endLoad()
	c.mu.Unlock()
}

// FinishLoad replaces the collection with clips, keeping what changed since
// mark: entries upserted or pinned after mark win over older snapshot
// entries, ids removed after mark stay removed, and a clear after mark
// discards the snapshot altogether.
func (c *ClipCache) FinishLoad(mark uint64, clips []types.Clip) {
	byID := make(map[int64]types.Clip, len(clips))
	for _, clip := range clips {
		if existing, ok := byID[clip.ID]; ok && !clip.ChangedAt().After(existing.ChangedAt()) {
			continue
		}
		byID[clip.ID] = clip
	}

	c.mu.Lock()
	if c.clearedAt > mark {
		// everything cached was pushed after the clear
		c.endLoad()
		c.mu.Unlock()
		return
	}
	for id, p := range c.journal {
		if p.seq <= mark {
			continue
		}
		current, cached := c.byID[id]
		snap, inSnap := byID[id]
		switch {
		case cached:
			if !inSnap || !snap.ChangedAt().After(current.ChangedAt()) {
				byID[id] = current
			}
		case p.pin != nil:
			if inSnap && snap.IsPinned != p.pin.IsPinned && (p.pin.UpdatedAt.IsZero() || !p.pin.UpdatedAt.Before(snap.UpdatedAt)) {
				snap.IsPinned = p.pin.IsPinned
				snap.UpdatedAt = c.stamp(snap, p.pin.UpdatedAt)
				byID[id] = snap
			}
		default:
			delete(byID, id)
		}
	}
	c.byID = byID
	c.version++
	v := c.version
	c.endLoad()
	c.mu.Unlock()

	c.notify(v)
}

// record journals a change to id while a load is in flight. Caller holds mu.
func (c *ClipCache) record(id int64, pin *types.PinChange) {
	if c.loads == 0 {
		return
	}
	c.seq++
	c.journal[id] = pending{seq: c.seq, pin: pin}
}

func (c *ClipCache) endLoad() {
	c.loads--
	if c.loads == 0 {
		c.journal = nil
		c.clearedAt = 0
	}
}

// Upsert inserts clip or replaces the entry with the same ID. A replacement
// only happens when clip changed after the cached entry, so replaying an older
// or identical clip is a no-op. Reports whether the cache changed.
func (c *ClipCache) Upsert(clip types.Clip) bool {
	c.mu.Lock()
	if existing, ok := c.byID[clip.ID]; ok && !clip.ChangedAt().After(existing.ChangedAt()) {
		c.mu.Unlock()
		return false
	}
	c.byID[clip.ID] = clip
	c.record(clip.ID, nil)
	c.version++
	v := c.version
	c.mu.Unlock()

	c.notify(v)
	return true
}

// Remove deletes the entry with id. A missing id is not an error.
func (c *ClipCache) Remove(id int64) bool {
	c.mu.Lock()
	// an id a pending load has not delivered yet must not come back with it
	c.record(id, nil)
	if _, ok := c.byID[id]; !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.byID, id)
	c.version++
	v := c.version
	c.mu.Unlock()

	c.notify(v)
	return true
}

// SetPinned flips the pin state of id and stamps UpdatedAt with at, or with
// the current time when at is zero. It is a no-op when id is absent, already
// in the requested state, or when at is older than the cached UpdatedAt.
func (c *ClipCache) SetPinned(id int64, pinned bool, at time.Time) bool {
	c.mu.Lock()
	clip, ok := c.byID[id]
	if !ok {
		// applied to the snapshot of a pending load, unless id was removed
		if p, seen := c.journal[id]; c.loads > 0 && (!seen || p.pin != nil) {
			c.record(id, &types.PinChange{ID: id, IsPinned: pinned, UpdatedAt: at})
		}
		c.mu.Unlock()
		return false
	}
	if clip.IsPinned == pinned || (!at.IsZero() && at.Before(clip.UpdatedAt)) {
		c.mu.Unlock()
		return false
	}
	clip.IsPinned = pinned
	clip.UpdatedAt = c.stamp(clip, at)
	c.byID[id] = clip
	c.record(id, nil)
	c.version++
	v := c.version
	c.mu.Unlock()

	c.notify(v)
	return true
}

// stamp returns at, or for a zero at the current time moved past the
// entry's own history.
func (c *ClipCache) stamp(clip types.Clip, at time.Time) time.Time {
	if !at.IsZero() {
		return at
	}
	at = c.now()
	if !at.After(clip.ChangedAt()) {
		at = clip.ChangedAt().Add(time.Nanosecond)
	}
	return at
}

// Clear empties the cache. Reports whether anything was removed.
func (c *ClipCache) Clear() bool {
	c.mu.Lock()
	if c.loads > 0 {
		c.seq++
		c.clearedAt = c.seq
		c.journal = make(map[int64]pending)
	}
	if len(c.byID) == 0 {
		c.mu.Unlock()
		return false
	}
	c.byID = make(map[int64]types.Clip)
	c.version++
	v := c.version
	c.mu.Unlock()

	c.notify(v)
	return true
}

// Get returns the entry for id.
func (c *ClipCache) Get(id int64) (types.Clip, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	clip, ok := c.byID[id]
	return clip, ok
}

// Len returns the number of cached clips.
func (c *ClipCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Version returns the mutation counter.
func (c *ClipCache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Snapshot returns a copy of all clips, most recently changed first, together
// with the version it was taken at.
func (c *ClipCache) Snapshot() ([]types.Clip, uint64) {
	c.mu.RLock()
	clips := make([]types.Clip, 0, len(c.byID))
	for _, clip := range c.byID {
		clips = append(clips, clip)
	}
	v := c.version
	c.mu.RUnlock()

	SortRecent(clips)
	return clips, v
}

// SortRecent orders clips newest change first, breaking ties by higher ID.
func SortRecent(clips []types.Clip) {
	sort.SliceStable(clips, func(i, j int) bool {
		ti, tj := clips[i].ChangedAt(), clips[j].ChangedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return clips[i].ID > clips[j].ID
	})
}

func (c *ClipCache) notify(version uint64) {
	c.lmu.RLock()
	listeners := c.listeners // copy to avoid holding lock during callbacks
	c.lmu.RUnlock()

	for _, fn := range listeners {
		fn(version)
	}
}
