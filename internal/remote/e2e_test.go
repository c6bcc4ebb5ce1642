package remote_test

import (
	"clipboard-sync/internal/remote"
	"clipboard-sync/internal/server"
	"clipboard-sync/internal/service"
	"clipboard-sync/internal/session"
	"clipboard-sync/internal/storage"
	"clipboard-sync/internal/storage/sqlite"
	"clipboard-sync/pkg/types"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// scriptedMonitor hands captures to the service when the test copies text.
type scriptedMonitor struct {
	mu      sync.Mutex
	handler func(types.Clip)
}

func (m *scriptedMonitor) Start() error               { return nil }
func (m *scriptedMonitor) Stop() error                { return nil }
func (m *scriptedMonitor) Read() (string, error)      { return "", nil }
func (m *scriptedMonitor) IgnoreNext(content string) {}

func (m *scriptedMonitor) OnChange(handler func(types.Clip)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

func (m *scriptedMonitor) copy(content string) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	now := time.Now()
	handler(types.Clip{Content: content, CreatedAt: now, UpdatedAt: now})
}

// waitFor blocks until the session state satisfies cond.
func waitFor(t *testing.T, s *session.Session, what string, cond func(session.State) bool) session.State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := s.State(); cond(st) {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; state %+v", what, s.State())
	return session.State{}
}

func TestSessionAgainstDaemon(t *testing.T) {
	store, err := sqlite.New(storage.Config{DBPath: filepath.Join(t.TempDir(), "clips.db")})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	monitor := &scriptedMonitor{}
	svc := service.New(monitor, store, service.Config{})
	if err := svc.Start(); err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	defer svc.Stop()

	srv := server.New(svc, server.Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Stop()

	// History that exists before the client connects
	monitor.copy("before start")

	sess := session.New(
		remote.NewClient(ts.URL, nil),
		remote.NewPushSource("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws"),
		session.Options{CommandTimeout: 5 * time.Second},
	)
	ctx := context.Background()
	if err := sess.Start(ctx); err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	defer sess.Close()

	if got := sess.Recent(); len(got) != 1 || got[0].Content != "before start" {
		t.Fatalf("initial load = %+v", got)
	}

	// A capture arrives by push
	monitor.copy("pushed later")
	st := waitFor(t, sess, "pushed clip", func(st session.State) bool {
		return len(st.Recent) == 2
	})
	if st.Recent[0].Content != "pushed later" {
		t.Errorf("newest clip = %q", st.Recent[0].Content)
	}
	pushedID := st.Recent[0].ID

	if err := sess.TogglePin(ctx, pushedID, true); err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}
	st = sess.State()
	if len(st.Pinned) != 1 || st.Pinned[0].ID != pushedID {
		t.Errorf("pinned = %+v", st.Pinned)
	}

	sess.SetQuery("before")
	st = sess.State()
	if len(st.Recent) != 1 || len(st.Pinned) != 0 || st.NoResults {
		t.Errorf("filtered state = %+v", st)
	}
	sess.SetQuery("")

	// Deleting a clip the daemon does not know fails and leaves the cache alone
	if err := sess.Delete(ctx, 9999); err == nil {
		t.Error("expected delete of unknown clip to fail")
	}
	if msg := sess.LastError(); !strings.Contains(msg, "Failed to delete clip 9999") {
		t.Errorf("LastError = %q", msg)
	}

	if err := sess.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	st = waitFor(t, sess, "empty history", func(st session.State) bool {
		return len(st.Recent) == 0 && len(st.Pinned) == 0
	})
	if st.NoResults || st.LastError != "" || st.IsLoading {
		t.Errorf("state after clear = %+v", st)
	}
}
