package main

import (
	"bytes"
	"clipboard-sync/internal/session"
	"clipboard-sync/pkg/types"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		content string
		max     int
		want    string
	}{
		{"short", 10, "short"},
		{"line one\n\tline two", 40, "line one line two"},
		{"abcdefghijkl", 8, "abcde..."},
		{"héllo wörld ünïcode", 10, "héllo w..."},
	}

	for _, tt := range tests {
		if got := preview(types.Clip{Content: tt.content}, tt.max); got != tt.want {
			t.Errorf("preview(%q, %d) = %q, want %q", tt.content, tt.max, got, tt.want)
		}
	}
}

func TestPrintState(t *testing.T) {
	color.NoColor = true
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	printState(&buf, session.State{
		Query:     "zzz",
		NoResults: true,
		Pinned:    []types.Clip{{ID: 1, Content: "pinned clip", IsPinned: true, CreatedAt: now}},
		Recent:    []types.Clip{{ID: 2, Content: "recent clip", AutoTags: "#url", CreatedAt: now}},
	})

	out := buf.String()
	for _, want := range []string{`No clips match "zzz"`, "1*", "pinned clip", "recent clip", "#url"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "pinned clip") > strings.Index(out, "recent clip") {
		t.Errorf("pinned clips should come first:\n%s", out)
	}

	buf.Reset()
	printState(&buf, session.State{})
	if strings.TrimSpace(buf.String()) != "No clips" {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestSummary(t *testing.T) {
	color.NoColor = true

	got := summary(session.State{
		Version:   3,
		Query:     "abc",
		Recent:    make([]types.Clip, 2),
		IsLoading: true,
		LastError: "Failed to delete clip 4",
	})
	want := `v3 pinned=0 recent=2 query="abc" loading error=Failed to delete clip 4`
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}
