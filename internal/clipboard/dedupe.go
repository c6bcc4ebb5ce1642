package clipboard

import (
	"hash/fnv"
	"sync"
	"time"
)

// dedupeCapacity bounds the number of remembered contents.
const dedupeCapacity = 256

// deduplicator drops content seen again within a time window.
type deduplicator struct {
	window time.Duration

	mu   sync.Mutex
	seen map[uint64]time.Time
}

func newDeduplicator(window time.Duration) *deduplicator {
	return &deduplicator{window: window, seen: make(map[uint64]time.Time)}
}

// shouldSave reports whether content is new within the window and records it.
func (d *deduplicator) shouldSave(content string, now time.Time) bool {
	if d.window <= 0 {
		return true
	}

	key := hashString(content)

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	if len(d.seen) >= dedupeCapacity {
		d.evict(now)
	}
	d.seen[key] = now
	return true
}

// evict drops expired entries, or the oldest one if none expired.
func (d *deduplicator) evict(now time.Time) {
	var oldestKey uint64
	var oldest time.Time
	for k, t := range d.seen {
		if now.Sub(t) >= d.window {
			delete(d.seen, k)
			continue
		}
		if oldest.IsZero() || t.Before(oldest) {
			oldest, oldestKey = t, k
		}
	}
	if len(d.seen) >= dedupeCapacity {
		delete(d.seen, oldestKey)
	}
}

// ignoreWindow suppresses one expected clipboard update, such as the
// clipboard write that follows a paste from history.
type ignoreWindow struct {
	window time.Duration

	mu      sync.Mutex
	content string
	until   time.Time
}

func (w *ignoreWindow) mark(content string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.content = content
	w.until = now.Add(w.window)
}

// shouldIgnore reports whether content is the marked content and the window
// is still open. A match or an expired window clears the mark.
func (w *ignoreWindow) shouldIgnore(content string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.until.IsZero() {
		return false
	}
	if now.After(w.until) {
		w.content, w.until = "", time.Time{}
		return false
	}
	if content != w.content {
		return false
	}
	w.content, w.until = "", time.Time{}
	return true
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
