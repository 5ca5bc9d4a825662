// Package logz constructs the structured loggers used throughout
// actorrt. It mirrors the teacher's Debug-bool-gated verbosity switch
// (BaseAgent.Debug / LogDebug) with a real structured logger instead of
// a format-string helper.
package logz

import "go.uber.org/zap"

// New returns a production-configured zap.Logger, switched to debug
// level and development encoding when debug is true. Callers that don't
// want any output (library defaults, most tests) should use zap.NewNop
// directly rather than calling New(false).
func New(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	lg, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return lg
}

// Named returns a child logger scoped to component, or a no-op logger
// if base is nil.
func Named(base *zap.Logger, component string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(component)
}
