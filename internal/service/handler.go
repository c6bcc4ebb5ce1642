package service

import "clipboard-sync/internal/events"

// EventHandler is implemented by components that need to be notified of
// history changes, in commit order.
type EventHandler interface {
	HandleEvent(ev events.Event)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ev events.Event)

func (f EventHandlerFunc) HandleEvent(ev events.Event) { f(ev) }
