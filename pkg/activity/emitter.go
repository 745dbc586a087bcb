package activity

import (
	"context"
	"strings"
)

// Config controls activity emission defaults supplied by the host.
type Config struct {
	Enabled bool
	Channel string
	// StackID tags every emitted event so hosts running several stacks over
	// one hook set can tell the streams apart.
	StackID string
}

// Emitter fans out events to hooks while applying defaults.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	stackID string
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "presets"
	}
	normalizedHooks := cloneHooks(hooks)
	return &Emitter{
		hooks:   normalizedHooks,
		enabled: cfg.Enabled && len(normalizedHooks) > 0,
		channel: channel,
		stackID: strings.TrimSpace(cfg.StackID),
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Emit forwards the event to all hooks, applying the default channel and the
// configured stack id when missing.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" && e.channel != "" {
		event.Channel = e.channel
	}
	if e.stackID != "" {
		if _, tagged := event.Metadata["stack_id"]; !tagged {
			metadata := make(map[string]any, len(event.Metadata)+1)
			for key, value := range event.Metadata {
				metadata[key] = value
			}
			metadata["stack_id"] = e.stackID
			event.Metadata = metadata
		}
	}
	return e.hooks.Notify(ctx, event)
}

func cloneHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	return Hooks(normalized)
}
