package search

import (
	"clipboard-sync/pkg/types"
	"reflect"
	"testing"
)

func sampleClips() []types.Clip {
	return []types.Clip{
		{ID: 3, Content: "hello world", AppName: "Terminal"},
		{ID: 2, Content: "SELECT * FROM clips", WindowTitle: "psql - Notes DB", ManualTags: "work"},
		{ID: 1, Content: "https://example.com", AutoTags: "url,link"},
	}
}

func TestIndex_EmptyQueryMatchesEverything(t *testing.T) {
	ix := New(DefaultOptions())
	ix.Rebuild(sampleClips(), 1)

	for _, q := range []string{"", "   ", "\t\n"} {
		ids, all := ix.Query(q)
		if !all || ids != nil {
			t.Errorf("query %q: got ids=%v all=%v, want nil/true", q, ids, all)
		}
	}
}

func TestIndex_SubstringAcrossFields(t *testing.T) {
	ix := New(DefaultOptions())
	ix.Rebuild(sampleClips(), 1)

	tests := []struct {
		query string
		want  []int64
	}{
		{"HELLO", []int64{3}},
		{"terminal", []int64{3}},
		{"notes db", []int64{2}},
		{"url", []int64{1}},
		{"WORK", []int64{2}},
		{"o", []int64{3, 2, 1}},
		{"absent-everywhere", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ids, all := ix.Query(tt.query)
			if all {
				t.Fatal("non-empty query should not match everything")
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("got %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestIndex_NoCrossFieldMatch(t *testing.T) {
	ix := New(DefaultOptions())
	ix.Rebuild([]types.Clip{{ID: 1, Content: "abc", AppName: "def"}}, 1)

	if ids, _ := ix.Query("cd"); len(ids) != 0 {
		t.Errorf("query spanning two fields matched: %v", ids)
	}
}

func TestIndex_FuzzyTier(t *testing.T) {
	ix := New(Options{Mode: ModeFuzzy, MinFuzzyQuery: 3, MinFuzzyScore: 0})
	ix.Rebuild(sampleClips(), 1)

	ids, _ := ix.Query("hlo wrld")
	if len(ids) == 0 || ids[0] != 3 {
		t.Fatalf("expected approximate match on clip 3, got %v", ids)
	}

	// below the length floor only substring matching applies
	if ids, _ := ix.Query("hw"); len(ids) != 0 {
		t.Errorf("short query should not fuzzy match, got %v", ids)
	}

	if ids, _ := ix.Query("qqqq"); len(ids) != 0 {
		t.Errorf("expected no matches, got %v", ids)
	}
}

func TestIndex_FuzzyKeepsSubstringHitsFirst(t *testing.T) {
	ix := New(Options{Mode: ModeFuzzy, MinFuzzyQuery: 3})
	ix.Rebuild([]types.Clip{
		{ID: 2, Content: "c-a-t plain"},
		{ID: 1, Content: "cat"},
	}, 1)

	ids, _ := ix.Query("cat")
	if len(ids) < 1 || ids[0] != 1 {
		t.Errorf("substring hit should rank first, got %v", ids)
	}
}

func TestIndex_Staleness(t *testing.T) {
	ix := New(DefaultOptions())
	if !ix.Stale(0) {
		t.Error("new index should be stale")
	}
	ix.Rebuild(nil, 4)
	if ix.Stale(4) {
		t.Error("rebuilt index should be current")
	}
	if !ix.Stale(5) {
		t.Error("index should be stale for a newer cache version")
	}
	ix.Invalidate()
	if !ix.Stale(4) {
		t.Error("invalidated index should be stale")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeSubstring {
		t.Errorf("empty mode: got %q, %v", m, err)
	}
	if m, err := ParseMode("Fuzzy"); err != nil || m != ModeFuzzy {
		t.Errorf("fuzzy mode: got %q, %v", m, err)
	}
	if _, err := ParseMode("regex"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
