// Package events provides the lifecycle event bus. The event set is fixed;
// listeners run sequentially in registration order, and one listener's
// failure never stops the rest.
package events

import (
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"
)

// Event names the bus recognizes. The set is closed; Register rejects
// anything else.
const (
	SessionStart  = "session_start"
	SessionEnd    = "session_end"
	PreHandoff    = "pre_handoff"
	PostSkillCall = "post_skill_call"
	Error         = "error"
	FileUpload    = "file_upload"
)

var knownEvents = map[string]bool{
	SessionStart:  true,
	SessionEnd:    true,
	PreHandoff:    true,
	PostSkillCall: true,
	Error:         true,
	FileUpload:    true,
}

// Listener handles one emitted event. A returned error is logged and, except
// for the error event itself, forwarded as an error event.
type Listener func(data map[string]any) error

// Bus dispatches lifecycle events to registered listeners. Safe for
// concurrent registration and emission, though emission itself is sequential:
// Emit returns only after every listener has run.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]Listener)}
}

// Register adds a listener for event. Listeners fire in registration order.
func (b *Bus) Register(event string, fn Listener) error {
	if !knownEvents[event] {
		return fmt.Errorf("unknown event %q", event)
	}
	if fn == nil {
		return fmt.Errorf("nil listener for event %q", event)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], fn)
	return nil
}

// Unregister removes a previously registered listener, matched by function
// identity. Removing a listener that was never registered is a no-op.
func (b *Bus) Unregister(event string, fn Listener) {
	target := reflect.ValueOf(fn).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.listeners[event]
	kept := current[:0]
	for _, l := range current {
		if reflect.ValueOf(l).Pointer() != target {
			kept = append(kept, l)
		}
	}
	b.listeners[event] = kept
}

// Emit delivers data to every listener for event, one at a time, in
// registration order. The payload is stamped with an RFC3339 timestamp
// before dispatch unless the caller set one. A listener error is logged and
// forwarded as an error event; failures while handling the error event
// itself are only logged, so the forwarding chain always terminates.
func (b *Bus) Emit(event string, data map[string]any) {
	if data == nil {
		data = make(map[string]any, 1)
	}
	if _, ok := data["timestamp"]; !ok {
		data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners[event]))
	copy(listeners, b.listeners[event])
	b.mu.RUnlock()

	for _, fn := range listeners {
		if err := fn(data); err != nil {
			log.Printf("[events] warning: %s listener failed: %v", event, err)
			if event != Error {
				b.Emit(Error, map[string]any{
					"source_event": event,
					"error":        err.Error(),
				})
			}
		}
	}
}
