package presets

import "time"

// OperationLogEvent describes one stack operation for logging.
type OperationLogEvent struct {
	Op       string
	PresetID string
	StackUID int
	Duration time.Duration
	Err      error
}

// OperationLogger records stack operations.
type OperationLogger interface {
	LogOperation(OperationLogEvent)
}

// OperationLoggerFunc adapts a function to OperationLogger.
type OperationLoggerFunc func(OperationLogEvent)

// LogOperation implements OperationLogger.
func (f OperationLoggerFunc) LogOperation(event OperationLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopOperationLogger struct{}

func (noopOperationLogger) LogOperation(OperationLogEvent) {}

// WithLogger attaches an operation logger to the stack.
func WithLogger(logger OperationLogger) Option {
	return func(cfg *stackConfig) {
		if logger == nil {
			cfg.logger = noopOperationLogger{}
			return
		}
		cfg.logger = logger
	}
}
