package events

import (
	"clipboard-sync/pkg/types"
	"errors"
	"testing"
	"time"
)

func TestDecode_ClipUpdatedForms(t *testing.T) {
	stamp := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		frame string
		want  types.PinChange
	}{
		{"pair", `{"type":"clip-updated","payload":[7,true]}`, types.PinChange{ID: 7, IsPinned: true}},
		{"object", `{"type":"clip-updated","payload":{"id":7,"is_pinned":false,"updated_at":"2025-05-01T10:00:00Z"}}`,
			types.PinChange{ID: 7, IsPinned: false, UpdatedAt: stamp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.frame))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if ev.Kind != ClipUpdated {
				t.Fatalf("kind: got %q", ev.Kind)
			}
			if ev.Pin.ID != tt.want.ID || ev.Pin.IsPinned != tt.want.IsPinned || !ev.Pin.UpdatedAt.Equal(tt.want.UpdatedAt) {
				t.Errorf("got %+v, want %+v", ev.Pin, tt.want)
			}
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `{{{`, ErrMalformedPayload},
		{"unknown type", `{"type":"clip-exploded","payload":1}`, ErrUnknownEvent},
		{"added without id", `{"type":"clip-added","payload":{"content":"x"}}`, ErrMalformedPayload},
		{"added wrong shape", `{"type":"clip-added","payload":"x"}`, ErrMalformedPayload},
		{"updated short pair", `{"type":"clip-updated","payload":[7]}`, ErrMalformedPayload},
		{"updated missing flag", `{"type":"clip-updated","payload":{"id":7}}`, ErrMalformedPayload},
		{"updated empty", `{"type":"clip-updated"}`, ErrMalformedPayload},
		{"deleted string id", `{"type":"clip-deleted","payload":"7"}`, ErrMalformedPayload},
		{"deleted zero id", `{"type":"clip-deleted","payload":0}`, ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncode_DecodesBack(t *testing.T) {
	clip := types.Clip{ID: 3, Content: "hello", AppName: "Editor", CreatedAt: time.Unix(100, 0).UTC(), UpdatedAt: time.Unix(100, 0).UTC()}
	frame, err := Encode(Added(clip))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	ev, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ev.Kind != ClipAdded || ev.Clip.ID != clip.ID || ev.Clip.AppName != clip.AppName || !ev.Clip.UpdatedAt.Equal(clip.UpdatedAt) {
		t.Errorf("got %+v", ev)
	}

	frame, err = Encode(Cleared())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(frame) != `{"type":"history-cleared"}` {
		t.Errorf("unexpected cleared frame %s", frame)
	}

	if _, err := Encode(Event{Kind: "bogus"}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}
