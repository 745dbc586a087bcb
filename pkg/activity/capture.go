package activity

import (
	"context"
	"sync"
)

// CaptureHook records every event it receives. Useful in tests and for
// inspecting what a stack emitted during a batch of operations.
type CaptureHook struct {
	mu     sync.Mutex
	events []Event
}

// NewCaptureHook returns an empty capture hook.
func NewCaptureHook() *CaptureHook {
	return &CaptureHook{}
}

// Notify appends the event to the capture buffer.
func (c *CaptureHook) Notify(_ context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

// Events returns a copy of the captured events in arrival order.
func (c *CaptureHook) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// EventsByVerb filters captured events by verb.
func (c *CaptureHook) EventsByVerb(verb string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, event := range c.events {
		if event.Verb == verb {
			out = append(out, event)
		}
	}
	return out
}

// Reset clears the capture buffer.
func (c *CaptureHook) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// Len reports how many events have been captured.
func (c *CaptureHook) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}
