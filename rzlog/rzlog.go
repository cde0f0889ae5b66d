// Package rzlog adapts a [zerolog.Logger] to the reftree.Logger interface,
// turning on_create/on_destroy events into structured log lines.
package rzlog

import (
	"github.com/rs/zerolog"
)

// Logger emits one zerolog event per node creation and destruction. It
// satisfies reftree.Logger without importing the reftree package itself,
// so it can be reused against any tree instantiation.
type Logger struct {
	log   zerolog.Logger
	level zerolog.Level
}

// New wraps log, logging both events at level (zerolog.DebugLevel is a
// reasonable default: per-node churn in a busy tree is not something a
// production log should carry at InfoLevel).
func New(log zerolog.Logger, level zerolog.Level) *Logger {
	return &Logger{log: log, level: level}
}

// OnCreate implements reftree.Logger.
func (l *Logger) OnCreate(id uintptr) {
	l.log.WithLevel(l.level).Uint64("node", uint64(id)).Msg("reftree: node created")
}

// OnDestroy implements reftree.Logger.
func (l *Logger) OnDestroy(id uintptr) {
	l.log.WithLevel(l.level).Uint64("node", uint64(id)).Msg("reftree: node destroyed")
}
