package presets

import (
	"context"

	"github.com/goliatone/go-presets/pkg/activity"
)

// WithActivityHooks registers hooks that receive stack activity events.
// Hooks alone do not enable emission; pair with WithActivityConfig.
func WithActivityHooks(hooks ...activity.ActivityHook) Option {
	return func(cfg *stackConfig) {
		for _, hook := range hooks {
			if hook == nil {
				continue
			}
			cfg.hooks = append(cfg.hooks, hook)
		}
	}
}

// WithActivityConfig sets activity emission defaults (enabled flag, channel).
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *stackConfig) {
		cfg.activity = config
	}
}

// WithActivity is shorthand for enabling emission on the default channel
// with the given hooks.
func WithActivity(hooks ...activity.ActivityHook) Option {
	return func(cfg *stackConfig) {
		for _, hook := range hooks {
			if hook == nil {
				continue
			}
			cfg.hooks = append(cfg.hooks, hook)
		}
		cfg.activity.Enabled = true
	}
}

// emit forwards an event through the emitter. Hook failures never affect the
// operation that produced the event.
func (s *Stack) emit(event activity.Event) {
	if s.emitter == nil || !s.emitter.Enabled() {
		return
	}
	_ = s.emitter.Emit(context.Background(), event)
}

func (s *Stack) stackEventInput(presetID string, uid int) activity.StackEventInput {
	return activity.StackEventInput{
		PresetID:   presetID,
		StackUID:   uid,
		OccurredAt: s.cfg.clock(),
	}
}
