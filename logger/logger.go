package logger

import (
	"errors"
	"sort"
	"sync"

	"github.com/decred/slog"
)

type logger struct {
	subsystemLoggers map[string]slog.Logger
}

var instance *logger
var initCtx sync.Once

func New(loggers map[string]slog.Logger) *logger {
	initCtx.Do(func() {
		instance = &logger{
			subsystemLoggers: loggers,
		}
	})

	return instance
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func (l *logger) setLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	subsystem, ok := l.subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	level, _ := slog.LevelFromString(logLevel)
	subsystem.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func SetLogLevels(logLevel string) error {
	if instance == nil {
		return errors.New("cannot set log level on nil logger")
	}
	if _, ok := slog.LevelFromString(logLevel); !ok {
		return errors.New("invalid log level: " + logLevel)
	}
	for subsystemID := range instance.subsystemLoggers {
		instance.setLogLevel(subsystemID, logLevel)
	}
	return nil
}

// SetLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	if instance == nil {
		return
	}
	instance.setLogLevel(subsystemID, logLevel)
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	if instance == nil {
		return nil
	}
	subsystems := make([]string, 0, len(instance.subsystemLoggers))
	for subsysID := range instance.subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// IsSubsystem reports whether subsysID names a registered subsystem.
func IsSubsystem(subsysID string) bool {
	if instance == nil {
		return false
	}
	_, ok := instance.subsystemLoggers[subsysID]
	return ok
}
