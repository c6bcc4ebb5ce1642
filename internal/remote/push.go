package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// PushSource implements events.Source over the daemon's websocket.
type PushSource struct {
	url    string
	dialer *websocket.Dialer

	// OnReconnect runs after the connection was lost and re-established.
	// Events emitted while disconnected are gone, so callers typically
	// reload the history here.
	OnReconnect func()
}

// NewPushSource creates a source for the websocket at wsURL, e.g.
// "ws://127.0.0.1:7890/ws".
func NewPushSource(wsURL string) *PushSource {
	return &PushSource{url: wsURL, dialer: websocket.DefaultDialer}
}

// Subscribe dials the websocket and streams text frames until ctx is done.
// The first dial must succeed; later disconnects are retried with backoff.
func (p *PushSource) Subscribe(ctx context.Context) (<-chan []byte, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}

	frames := make(chan []byte, 64)
	go p.pump(ctx, conn, frames)
	return frames, nil
}

func (p *PushSource) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := p.dialer.DialContext(ctx, p.url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s (status %d): %w", p.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", p.url, err)
	}
	slog.Debug("push connection established", "url", p.url)
	return conn, nil
}

func (p *PushSource) pump(ctx context.Context, conn *websocket.Conn, frames chan<- []byte) {
	defer close(frames)

	for {
		if !p.read(ctx, conn, frames) {
			return
		}

		backoff := minBackoff
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			var err error
			conn, err = p.dial(ctx)
			if err == nil {
				break
			}
			slog.Debug("push reconnect failed", "error", err, "retry_in", backoff)
			backoff = min(backoff*2, maxBackoff)
		}

		slog.Info("push connection restored", "url", p.url)
		if p.OnReconnect != nil {
			p.OnReconnect()
		}
	}
}

// read forwards frames from conn until it fails. It reports whether the
// caller should reconnect.
func (p *PushSource) read(ctx context.Context, conn *websocket.Conn, frames chan<- []byte) bool {
	var once sync.Once
	closeConn := func() { once.Do(func() { conn.Close() }) }
	defer closeConn()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			closeConn()
		case <-stop:
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			slog.Warn("push connection lost", "error", err)
			return true
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case frames <- data:
		case <-ctx.Done():
			return false
		}
	}
}
