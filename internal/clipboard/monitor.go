// Package clipboard watches the system clipboard and turns new text into
// clips for the daemon to store.
package clipboard

import (
	"clipboard-sync/pkg/types"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	sysclip "github.com/atotto/clipboard"
)

type Monitor interface {
	Start() error
	Stop() error
	OnChange(handler func(types.Clip))
	// Read returns the current clipboard text.
	Read() (string, error)
	// IgnoreNext suppresses the next update carrying content.
	IgnoreNext(content string)
}

var ErrAlreadyRunning = errors.New("monitor already running")

// Config controls polling and capture filtering.
type Config struct {
	PollInterval time.Duration
	DedupeWindow time.Duration
	IgnoreWindow time.Duration
	AppName      string // Recorded on every clip, if set
}

// DefaultConfig returns the daemon's default capture settings.
func DefaultConfig() Config {
	return Config{
		PollInterval: 500 * time.Millisecond,
		DedupeWindow: 10 * time.Second,
		IgnoreWindow: 1500 * time.Millisecond,
	}
}

const (
	maxIdleFactor   = 3
	maxErrorBackoff = 2 * time.Second
)

type PollingMonitor struct {
	cfg    Config
	read   func() (string, error)
	now    func() time.Time
	dedupe *deduplicator
	ignore *ignoreWindow

	mutex    sync.RWMutex
	handler  func(types.Clip)
	last     string
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewMonitor creates a monitor over the system clipboard.
func NewMonitor(cfg Config) *PollingMonitor {
	return newMonitor(cfg, sysclip.ReadAll)
}

func newMonitor(cfg Config, read func() (string, error)) *PollingMonitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &PollingMonitor{
		cfg:    cfg,
		read:   read,
		now:    time.Now,
		dedupe: newDeduplicator(cfg.DedupeWindow),
		ignore: &ignoreWindow{window: cfg.IgnoreWindow},
	}
}

func (m *PollingMonitor) OnChange(handler func(types.Clip)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.handler = handler
}

func (m *PollingMonitor) Read() (string, error) {
	return m.read()
}

func (m *PollingMonitor) IgnoreNext(content string) {
	m.ignore.mark(content, m.now())
}

// Start primes the monitor with the current clipboard content, which is not
// captured, and starts polling.
func (m *PollingMonitor) Start() error {
	m.mutex.Lock()
	if m.running {
		m.mutex.Unlock()
		return ErrAlreadyRunning
	}
	if initial, err := m.read(); err == nil {
		m.last = initial
	} else {
		slog.Debug("initial clipboard read failed", "error", err)
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stopChan, m.done
	m.mutex.Unlock()

	go m.poll(stop, done)
	slog.Info("clipboard monitor started", "interval", m.cfg.PollInterval)
	return nil
}

func (m *PollingMonitor) Stop() error {
	m.mutex.Lock()
	if !m.running {
		m.mutex.Unlock()
		return nil
	}
	m.running = false
	close(m.stopChan)
	done := m.done
	m.mutex.Unlock()

	<-done
	return nil
}

func (m *PollingMonitor) poll(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	base := m.cfg.PollInterval
	interval := base
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		changed, err := m.checkForChanges()
		switch {
		case err != nil:
			// Back off while the clipboard is unavailable
			interval = min(interval*2, maxErrorBackoff)
		case changed:
			interval = base
		default:
			// Slow down gradually while idle
			interval = min(interval+base/5, base*maxIdleFactor)
		}
		timer.Reset(interval)
	}
}

// checkForChanges reads the clipboard once and emits a clip if the content
// is new. It reports whether the content differed from the last read.
func (m *PollingMonitor) checkForChanges() (bool, error) {
	content, err := m.read()
	if err != nil {
		slog.Debug("clipboard read failed", "error", err)
		return false, err
	}

	m.mutex.Lock()
	if content == "" || content == m.last {
		m.mutex.Unlock()
		return false, nil
	}
	m.last = content
	handler := m.handler
	m.mutex.Unlock()

	now := m.now()
	if m.ignore.shouldIgnore(content, now) {
		slog.Debug("ignored clipboard update", "length", len(content))
		return true, nil
	}
	if !m.dedupe.shouldSave(content, now) {
		slog.Debug("duplicate clipboard update", "length", len(content))
		return true, nil
	}

	if handler != nil {
		handler(NewClip(content, m.cfg.AppName, now))
	}
	return true, nil
}

// NewClip builds a captured clip with its auto tags. The clipboard reader
// reports no source window, so WindowTitle stays empty.
func NewClip(content, appName string, now time.Time) types.Clip {
	return types.Clip{
		Content:   content,
		AppName:   appName,
		AutoTags:  strings.Join(AutoTags(content, appName), ","),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
