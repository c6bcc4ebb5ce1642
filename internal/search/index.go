// Package search keeps a rebuildable lookup structure over cached clips.
//
// Two matching policies are supported. ModeSubstring does case-insensitive
// containment over content, app name, window title and both tag fields, and
// returns hits in cache order (most recent first). ModeFuzzy returns every
// substring hit first and then appends approximate matches ranked by
// github.com/sahilm/fuzzy score. Fuzzy matching only kicks in for queries of
// at least MinFuzzyQuery runes and drops matches scoring below MinFuzzyScore,
// so short queries do not light up half the history.
package search

import (
	"clipboard-sync/pkg/types"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

type Mode string

const (
	ModeSubstring Mode = "substring"
	ModeFuzzy     Mode = "fuzzy"
)

// fieldSep keeps a query from matching across two adjacent fields.
const fieldSep = "\x00"

// maxFuzzyHaystack bounds the bytes of content scanned by the fuzzy matcher.
const maxFuzzyHaystack = 2048

// Options configures the matching policy.
type Options struct {
	Mode          Mode
	MinFuzzyQuery int
	MinFuzzyScore int
}

// DefaultOptions is plain substring matching.
func DefaultOptions() Options {
	return Options{Mode: ModeSubstring, MinFuzzyQuery: 3, MinFuzzyScore: 0}
}

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeSubstring:
		return ModeSubstring, nil
	case ModeFuzzy:
		return ModeFuzzy, nil
	default:
		return "", fmt.Errorf("unknown search mode %q", s)
	}
}

type document struct {
	id       int64
	text     string // lowercased fields joined by fieldSep
	haystack string // lowercased, bounded, for fuzzy matching
	runes    int    // rune count of haystack
}

// Index is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	opts    Options
	docs    []document
	version uint64
	stale   bool
}

// New creates an empty index. It reports stale until the first Rebuild.
func New(opts Options) *Index {
	if opts.Mode == "" {
		opts.Mode = ModeSubstring
	}
	return &Index{opts: opts, stale: true}
}

// Invalidate marks the index as needing a rebuild. Several invalidations
// before the next Rebuild share that one rebuild.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.stale = true
	ix.mu.Unlock()
}

// Stale reports whether the index lags behind the cache version v.
func (ix *Index) Stale(v uint64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.stale || ix.version != v
}

// Rebuild recomputes the index from the full cache contents. clips must be
// in display order; version is the cache version they were taken at.
func (ix *Index) Rebuild(clips []types.Clip, version uint64) {
	docs := make([]document, len(clips))
	for i, clip := range clips {
		text := strings.ToLower(strings.Join([]string{
			clip.Content,
			clip.AppName,
			clip.WindowTitle,
			clip.AutoTags,
			clip.ManualTags,
		}, fieldSep))
		hay := bounded(text)
		docs[i] = document{id: clip.ID, text: text, haystack: hay, runes: utf8.RuneCountInString(hay)}
	}

	ix.mu.Lock()
	ix.docs = docs
	ix.version = version
	ix.stale = false
	ix.mu.Unlock()
}

// Len returns the number of indexed clips.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Query returns matching IDs in rank order. When text is empty or only
// whitespace, all is true and ids is nil: the caller should not filter.
func (ix *Index) Query(text string) (ids []int64, all bool) {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return nil, true
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hit := make(map[int]bool)
	for i, doc := range ix.docs {
		if strings.Contains(doc.text, q) {
			ids = append(ids, doc.id)
			hit[i] = true
		}
	}

	if ix.opts.Mode != ModeFuzzy || utf8.RuneCountInString(q) < ix.opts.MinFuzzyQuery {
		return ids, false
	}

	type ranked struct {
		index int
		score int
	}
	var fuzzyHits []ranked
	for _, m := range fuzzy.FindFrom(q, haystacks(ix.docs)) {
		if hit[m.Index] {
			continue
		}
		if score := similarity(m, ix.docs[m.Index]); score >= ix.opts.MinFuzzyScore {
			fuzzyHits = append(fuzzyHits, ranked{index: m.Index, score: score})
		}
	}
	sort.SliceStable(fuzzyHits, func(i, j int) bool {
		if fuzzyHits[i].score != fuzzyHits[j].score {
			return fuzzyHits[i].score > fuzzyHits[j].score
		}
		return fuzzyHits[i].index < fuzzyHits[j].index
	})
	for _, r := range fuzzyHits {
		ids = append(ids, ix.docs[r.index].id)
	}
	return ids, false
}

// similarity strips the length penalty fuzzy applies for unmatched runes, so
// long clips are scored on match quality alone.
func similarity(m fuzzy.Match, doc document) int {
	return m.Score + (doc.runes - len(m.MatchedIndexes))
}

// haystacks implements fuzzy.Source over the indexed documents.
type haystacks []document

func (h haystacks) String(i int) string { return h[i].haystack }
func (h haystacks) Len() int            { return len(h) }

func bounded(s string) string {
	if len(s) <= maxFuzzyHaystack {
		return s
	}
	s = s[:maxFuzzyHaystack]
	for !utf8.ValidString(s) && len(s) > 0 {
		s = s[:len(s)-1]
	}
	return s
}
