// Package events turns push notifications from the clip store into cache
// mutations.
package events

import (
	"bytes"
	"clipboard-sync/pkg/types"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	ClipAdded      Kind = "clip-added"
	ClipUpdated    Kind = "clip-updated"
	ClipDeleted    Kind = "clip-deleted"
	HistoryCleared Kind = "history-cleared"
)

var (
	ErrUnknownEvent     = errors.New("unknown event type")
	ErrMalformedPayload = errors.New("malformed event payload")
)

// Event is the single inbound message type for all push channels. Only the
// field matching Kind is meaningful.
type Event struct {
	Kind Kind
	Clip types.Clip      // ClipAdded
	Pin  types.PinChange // ClipUpdated
	ID   int64           // ClipDeleted
}

// Added builds a clip-added event.
func Added(clip types.Clip) Event { return Event{Kind: ClipAdded, Clip: clip} }

// Updated builds a clip-updated event.
func Updated(pin types.PinChange) Event { return Event{Kind: ClipUpdated, Pin: pin} }

// Deleted builds a clip-deleted event.
func Deleted(id int64) Event { return Event{Kind: ClipDeleted, ID: id} }

// Cleared builds a history-cleared event.
func Cleared() Event { return Event{Kind: HistoryCleared} }

// Envelope is the wire frame of a push event.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals ev into an envelope frame.
func Encode(ev Event) ([]byte, error) {
	var payload any
	switch ev.Kind {
	case ClipAdded:
		payload = ev.Clip
	case ClipUpdated:
		payload = ev.Pin
	case ClipDeleted:
		payload = ev.ID
	case HistoryCleared:
		payload = nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}

	env := Envelope{Type: ev.Kind}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", ev.Kind, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Decode parses an envelope frame. A clip-updated payload may be either the
// object form {"id","is_pinned","updated_at"} or the pair [id, isPinned].
func Decode(frame []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	ev := Event{Kind: env.Type}
	switch env.Type {
	case ClipAdded:
		if err := json.Unmarshal(env.Payload, &ev.Clip); err != nil {
			return Event{}, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Type, err)
		}
		if ev.Clip.ID <= 0 {
			return Event{}, fmt.Errorf("%w: %s: missing id", ErrMalformedPayload, env.Type)
		}
	case ClipUpdated:
		pin, err := decodePinChange(env.Payload)
		if err != nil {
			return Event{}, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Type, err)
		}
		ev.Pin = pin
	case ClipDeleted:
		if err := json.Unmarshal(env.Payload, &ev.ID); err != nil {
			return Event{}, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Type, err)
		}
		if ev.ID <= 0 {
			return Event{}, fmt.Errorf("%w: %s: missing id", ErrMalformedPayload, env.Type)
		}
	case HistoryCleared:
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	return ev, nil
}

func decodePinChange(raw json.RawMessage) (types.PinChange, error) {
	var pin types.PinChange
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return pin, errors.New("empty payload")
	}

	if trimmed[0] == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return pin, err
		}
		if len(pair) != 2 {
			return pin, fmt.Errorf("expected [id, isPinned], got %d elements", len(pair))
		}
		if err := json.Unmarshal(pair[0], &pin.ID); err != nil {
			return pin, fmt.Errorf("id: %w", err)
		}
		if err := json.Unmarshal(pair[1], &pin.IsPinned); err != nil {
			return pin, fmt.Errorf("isPinned: %w", err)
		}
	} else {
		var obj struct {
			ID        *int64    `json:"id"`
			IsPinned  *bool     `json:"is_pinned"`
			UpdatedAt time.Time `json:"updated_at"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return pin, err
		}
		if obj.ID == nil || obj.IsPinned == nil {
			return pin, errors.New("id and is_pinned are required")
		}
		pin = types.PinChange{ID: *obj.ID, IsPinned: *obj.IsPinned, UpdatedAt: obj.UpdatedAt}
	}

	if pin.ID <= 0 {
		return pin, errors.New("missing id")
	}
	return pin, nil
}
