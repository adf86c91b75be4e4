// Package verbose maps the session's four-level verbosity knob onto a
// logrus logger, honouring the MICROTRAFFIC_LOG_LEVEL environment variable
// as the default when no level is set programmatically.
package verbose

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Level is the spec.md §4.7/§6 verbosity taxonomy.
type Level int

const (
	None Level = iota
	Main
	Additional
	Detailed
)

func (l Level) String() string {
	switch l {
	case Main:
		return "main"
	case Additional:
		return "additional"
	case Detailed:
		return "detailed"
	default:
		return "none"
	}
}

func (l Level) logrusLevel() log.Level {
	switch l {
	case Main:
		return log.InfoLevel
	case Additional:
		return log.DebugLevel
	case Detailed:
		return log.TraceLevel
	default:
		return log.WarnLevel
	}
}

// EnvVar is the environment variable honoured when a session's verbosity
// is never set programmatically.
const EnvVar = "MICROTRAFFIC_LOG_LEVEL"

var fromEnvName = map[string]Level{
	"none":       None,
	"main":       Main,
	"additional": Additional,
	"detailed":   Detailed,
}

// FromEnv reads EnvVar and returns the matching Level, falling back to
// None when unset or unrecognised.
func FromEnv() Level {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvVar)))
	if lvl, ok := fromEnvName[v]; ok {
		return lvl
	}
	return None
}

// Logger wraps a logrus.Logger whose level tracks a session's verbosity.
type Logger struct {
	level Level
	entry *log.Logger
}

// NewLogger builds a Logger at the given level, falling back to FromEnv()
// when level is None (the zero value, also what a Session starts at before
// SetVerboseLevel is ever called).
func NewLogger(level Level) *Logger {
	if level == None {
		level = FromEnv()
	}
	l := log.New()
	l.SetLevel(level.logrusLevel())
	return &Logger{level: level, entry: l}
}

// SetLevel updates the logger's active verbosity.
func (l *Logger) SetLevel(level Level) {
	l.level = level
	l.entry.SetLevel(level.logrusLevel())
}

// Level returns the logger's current verbosity.
func (l *Logger) Level() Level { return l.level }

// Main logs a top-level milestone (vehicle deaths, permanently stuck
// vehicles).
func (l *Logger) Main(msg string, fields log.Fields) {
	l.entry.WithFields(fields).Info(msg)
}

// Additional logs a secondary event (trip spawns).
func (l *Logger) Additional(msg string, fields log.Fields) {
	l.entry.WithFields(fields).Debug(msg)
}

// Detailed logs per-intention/per-conflict tracing.
func (l *Logger) Detailed(msg string, fields log.Fields) {
	l.entry.WithFields(fields).Trace(msg)
}
