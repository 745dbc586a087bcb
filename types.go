package presets

import (
	"time"

	"github.com/goliatone/go-presets/pkg/activity"
)

// Option configures a Stack at construction time.
type Option func(*stackConfig)

type stackConfig struct {
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       OperationLogger
	hooks        activity.Hooks
	activity     activity.Config
	clock        func() time.Time
}

func applyStackOptions(opts []Option) stackConfig {
	cfg := stackConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	return cfg
}

// WithEvaluator configures the expression engine used for dynamic preset
// values. When unset, an expr-lang evaluator is constructed on first use.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *stackConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a compiled-program cache shared by the
// evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *stackConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry configures custom functions available to preset
// expressions. The registry is cloned to preserve immutability.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *stackConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for preset expressions.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *stackConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithClock overrides the time source used for logging and event
// timestamps. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(cfg *stackConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}
