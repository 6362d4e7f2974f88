package eventlog

import "github.com/sirupsen/logrus"

// Level is the 0 (disabled) .. 8 (all) event-log verbosity scale
// spec.md §4.H names, kept distinct from logrus.Level so callers use
// the spec's own numbering instead of learning logrus's.
type Level int

const (
	LevelDisabled Level = iota
	LevelFatal
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug1
	LevelDebug2
	LevelDebug3
	LevelAll
)

// logrusLevel maps a spec Level onto the nearest logrus.Level; the
// Debug1/2/3 sub-tiers above Info all land on logrus.DebugLevel since
// logrus itself has no finer debug granularity, and the event log's own
// Level check (see Logger.enabled) is what actually filters between
// them before a record ever reaches logrus.
func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDisabled:
		return logrus.PanicLevel // never emitted; enabled() rejects first
	case LevelFatal:
		return logrus.FatalLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

func (l Level) String() string {
	switch l {
	case LevelDisabled:
		return "disabled"
	case LevelFatal:
		return "fatal"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug1:
		return "debug1"
	case LevelDebug2:
		return "debug2"
	case LevelDebug3:
		return "debug3"
	case LevelAll:
		return "all"
	default:
		return "unknown"
	}
}
