package engine

import "log/slog"

// Reporter receives a named progress event per pipeline stage with an
// associated result. Purely observational: reporters must not influence
// the run, and the engine ignores anything they do.
type Reporter interface {
	Event(stage string, result any)
}

// NopReporter discards all events.
type NopReporter struct{}

// Event implements Reporter.
func (NopReporter) Event(string, any) {}

// LogReporter emits stage events through slog at debug level.
type LogReporter struct {
	Logger *slog.Logger
}

// Event implements Reporter.
func (r LogReporter) Event(stage string, result any) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("stage complete", "stage", stage, "result", result)
}
