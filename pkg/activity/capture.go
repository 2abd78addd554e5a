package activity

import (
	"context"
	"sync"
)

// CaptureHook records normalised events in memory. It backs tests and the
// CLI examples; Err is returned from every Notify call when set.
type CaptureHook struct {
	Events []Event
	Err    error
	mu     sync.Mutex
}

// Notify records the event and returns any configured error.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}

// ByVerb returns the captured events carrying verb, in arrival order.
func (h *CaptureHook) ByVerb(verb string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, event := range h.Events {
		if event.Verb == verb {
			out = append(out, event)
		}
	}
	return out
}

// ChangedKeys lists the option keys of captured change and reset events, in
// arrival order.
func (h *CaptureHook) ChangedKeys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var keys []string
	for _, event := range h.Events {
		if event.Verb != VerbOptionChanged && event.Verb != VerbOptionReset {
			continue
		}
		if key, ok := event.Metadata["key"].(string); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// Reset drops every captured event.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = nil
}
