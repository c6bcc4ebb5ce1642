package clipboard

import (
	"clipboard-sync/pkg/types"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClipboard is a settable clipboard.
type fakeClipboard struct {
	mu      sync.Mutex
	content string
	err     error
}

func (f *fakeClipboard) set(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = content
}

func (f *fakeClipboard) read() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content, f.err
}

type captured struct {
	mu    sync.Mutex
	clips []types.Clip
}

func (c *captured) handle(clip types.Clip) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clips = append(c.clips, clip)
}

func (c *captured) contents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.clips))
	for i, clip := range c.clips {
		out[i] = clip.Content
	}
	return out
}

func setupMonitor(t *testing.T, cfg Config) (*PollingMonitor, *fakeClipboard, *captured, *time.Time) {
	t.Helper()
	board := &fakeClipboard{}
	got := &captured{}
	m := newMonitor(cfg, board.read)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	m.OnChange(got.handle)
	return m, board, got, &clock
}

func TestCheckForChanges_EmitsNewContent(t *testing.T) {
	m, board, got, _ := setupMonitor(t, Config{PollInterval: time.Millisecond})

	board.set("first")
	if changed, err := m.checkForChanges(); err != nil || !changed {
		t.Fatalf("expected change, got changed=%v err=%v", changed, err)
	}
	// Unchanged content is not emitted twice
	if changed, _ := m.checkForChanges(); changed {
		t.Error("expected no change on identical content")
	}
	board.set("")
	if changed, _ := m.checkForChanges(); changed {
		t.Error("empty clipboard should not count as a change")
	}

	contents := got.contents()
	if len(contents) != 1 || contents[0] != "first" {
		t.Errorf("unexpected captures: %v", contents)
	}
}

func TestCheckForChanges_DedupeWindow(t *testing.T) {
	m, board, got, clock := setupMonitor(t, Config{DedupeWindow: 10 * time.Second})

	board.set("a")
	m.checkForChanges()
	board.set("b")
	m.checkForChanges()
	// Back to "a" within the window: dropped
	board.set("a")
	m.checkForChanges()

	*clock = clock.Add(11 * time.Second)
	board.set("b")
	m.checkForChanges()

	want := []string{"a", "b", "b"}
	contents := got.contents()
	if len(contents) != len(want) {
		t.Fatalf("got %v, want %v", contents, want)
	}
	for i := range want {
		if contents[i] != want[i] {
			t.Errorf("capture %d: got %q, want %q", i, contents[i], want[i])
		}
	}
}

func TestCheckForChanges_IgnoreNext(t *testing.T) {
	m, board, got, clock := setupMonitor(t, Config{IgnoreWindow: 1500 * time.Millisecond})

	m.IgnoreNext("pasted")
	board.set("pasted")
	m.checkForChanges()
	if n := len(got.contents()); n != 0 {
		t.Fatalf("expected ignored update, got %d captures", n)
	}

	// The mark is consumed by the first match
	board.set("other")
	m.checkForChanges()
	board.set("pasted")
	m.checkForChanges()

	// An expired mark no longer applies
	m.IgnoreNext("late")
	*clock = clock.Add(2 * time.Second)
	board.set("late")
	m.checkForChanges()

	want := []string{"other", "pasted", "late"}
	contents := got.contents()
	if len(contents) != len(want) {
		t.Fatalf("got %v, want %v", contents, want)
	}
	for i := range want {
		if contents[i] != want[i] {
			t.Errorf("capture %d: got %q, want %q", i, contents[i], want[i])
		}
	}
}

func TestCheckForChanges_ReadError(t *testing.T) {
	m, board, got, _ := setupMonitor(t, Config{})
	board.err = errors.New("no clipboard")

	if _, err := m.checkForChanges(); err == nil {
		t.Error("expected read error")
	}
	if n := len(got.contents()); n != 0 {
		t.Errorf("expected no captures, got %d", n)
	}
}

func TestMonitor_StartSkipsInitialContent(t *testing.T) {
	m, board, got, _ := setupMonitor(t, Config{PollInterval: 5 * time.Millisecond})
	board.set("already there")

	if err := m.Start(); err != nil {
		t.Fatalf("failed to start monitor: %v", err)
	}
	if err := m.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	board.set("copied later")
	deadline := time.Now().Add(2 * time.Second)
	for len(got.contents()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("failed to stop monitor: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Errorf("second stop should be a no-op, got %v", err)
	}

	contents := got.contents()
	if len(contents) != 1 || contents[0] != "copied later" {
		t.Errorf("unexpected captures: %v", contents)
	}
}

func TestNewClip(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clip := NewClip("https://example.com", "Firefox", now)

	if clip.AutoTags != "#browser,#firefox,#url" {
		t.Errorf("unexpected auto tags %q", clip.AutoTags)
	}
	if !clip.CreatedAt.Equal(now) || !clip.UpdatedAt.Equal(now) {
		t.Errorf("unexpected timestamps %v %v", clip.CreatedAt, clip.UpdatedAt)
	}
	if clip.AppName != "Firefox" || clip.WindowTitle != "" {
		t.Errorf("provenance: app %q window %q", clip.AppName, clip.WindowTitle)
	}
}
