package eventlog

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Sink selects where a Logger writes: screen, file, or both, per
// spec.md §4.H.
type Sink int

const (
	SinkScreen Sink = 1 << iota
	SinkFile
)

// SinkBoth writes to both the console and the log file.
const SinkBoth = SinkScreen | SinkFile

// Config configures a Logger.
type Config struct {
	Level Level
	Sink  Sink

	FilePath     string
	Append       bool
	MaxSizeBytes int64         // 0 = unbounded
	FlushEvery   time.Duration // 0 = no periodic fflush

	// UseUptime timestamps records as time-since-open instead of
	// wall-clock, per spec.md §4.H's "optional wall-clock or uptime
	// timestamps".
	UseUptime bool
}

// Logger is the engine's level-filtered event log: a logrus.Logger
// underneath, fanned out to screen/file/both per Config, with the
// app-vs-worker print serialization spec.md §4.H requires.
type Logger struct {
	cfg   Config
	log   *logrus.Logger
	file  *os.File
	start time.Time

	mu sync.Mutex // guards file rotation checks

	// midLine and workerPrinting implement §4.H's "writes must
	// serialize between app and worker threads via atomic 'is cursor
	// mid-line' state plus a 'pm-thread printing' flag; an app-side
	// print must wait for a worker's print to finish within the same
	// line" rule. A worker print sets workerPrinting for its duration;
	// an app print spins until it clears, then claims midLine the same
	// way a second app print would.
	midLine        atomic.Bool
	workerPrinting atomic.Bool

	stopFlush chan struct{}
}

// PrintSource distinguishes an app-thread print from a worker
// (pm-thread) print for the line-serialization rule above.
type PrintSource int

const (
	SourceApp PrintSource = iota
	SourceWorker
)

// New opens a Logger per cfg. Callers must call Close when done to stop
// the periodic-fflush goroutine (if any) and close the file sink.
func New(cfg Config) (*Logger, error) {
	l := &Logger{cfg: cfg, log: logrus.New(), start: time.Now()}
	l.log.SetLevel(cfg.Level.logrusLevel())
	l.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var writers []io.Writer
	if cfg.Sink&SinkScreen != 0 {
		writers = append(writers, os.Stdout)
	}
	if cfg.Sink&SinkFile != 0 {
		flags := os.O_CREATE | os.O_WRONLY
		if cfg.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(cfg.FilePath, flags, 0o644)
		if err != nil {
			return nil, fmt.Errorf("eventlog: open %q: %w", cfg.FilePath, err)
		}
		l.file = f
		writers = append(writers, f)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}
	l.log.SetOutput(io.MultiWriter(writers...))

	if cfg.FlushEvery > 0 && l.file != nil {
		l.stopFlush = make(chan struct{})
		go l.flushLoop()
	}

	return l, nil
}

func (l *Logger) flushLoop() {
	t := time.NewTicker(l.cfg.FlushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.mu.Lock()
			if l.file != nil {
				_ = l.file.Sync()
			}
			l.checkMaxSizeLocked()
			l.mu.Unlock()
		case <-l.stopFlush:
			return
		}
	}
}

// checkMaxSizeLocked truncates the log file back to empty once it
// crosses MaxSizeBytes, a simple cap rather than numbered rotation
// (spec.md §4.H names only "max-size cap", not a rotation scheme).
func (l *Logger) checkMaxSizeLocked() {
	if l.cfg.MaxSizeBytes <= 0 || l.file == nil {
		return
	}
	info, err := l.file.Stat()
	if err != nil || info.Size() < l.cfg.MaxSizeBytes {
		return
	}
	if err := l.file.Truncate(0); err != nil {
		return
	}
	_, _ = l.file.Seek(0, io.SeekStart)
}

// Close stops the flush loop and closes the file sink, if any.
func (l *Logger) Close() error {
	if l.stopFlush != nil {
		close(l.stopFlush)
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) enabled(level Level) bool {
	return level != LevelDisabled && l.cfg.Level >= level
}

// beginLine claims the line for source, spinning (never blocking on a
// mutex a worker tick can't afford to wait on) until it's safe to
// write.
func (l *Logger) beginLine(source PrintSource) {
	if source == SourceWorker {
		for !l.workerPrinting.CompareAndSwap(false, true) {
			runtime.Gosched()
		}
		return
	}
	for l.workerPrinting.Load() {
		runtime.Gosched()
	}
	for !l.midLine.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (l *Logger) endLine(source PrintSource) {
	if source == SourceWorker {
		l.workerPrinting.Store(false)
		return
	}
	l.midLine.Store(false)
}

func (l *Logger) timeField() logrus.Fields {
	if l.cfg.UseUptime {
		return logrus.Fields{"uptime": time.Since(l.start).Truncate(time.Millisecond)}
	}
	return logrus.Fields{}
}

func (l *Logger) print(source PrintSource, level Level, fields logrus.Fields, format string, args ...any) {
	if !l.enabled(level) {
		return
	}
	l.beginLine(source)
	defer l.endLine(source)

	merged := l.timeField()
	for k, v := range fields {
		merged[k] = v
	}
	entry := l.log.WithFields(merged)
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelFatal, LevelError:
		entry.Error(msg)
	case LevelWarn:
		entry.Warn(msg)
	case LevelInfo:
		entry.Info(msg)
	default:
		entry.Debug(msg)
	}
}

// Fatalf/Errorf/Warnf/Infof/Debugf are the app-thread logging surface.
// Debugf's tier argument selects LevelDebug1/2/3 for the call's granularity.

func (l *Logger) Fatalf(fields logrus.Fields, format string, args ...any) {
	l.print(SourceApp, LevelFatal, fields, format, args...)
}

func (l *Logger) Errorf(fields logrus.Fields, format string, args ...any) {
	l.print(SourceApp, LevelError, fields, format, args...)
}

func (l *Logger) Warnf(fields logrus.Fields, format string, args ...any) {
	l.print(SourceApp, LevelWarn, fields, format, args...)
}

func (l *Logger) Infof(fields logrus.Fields, format string, args ...any) {
	l.print(SourceApp, LevelInfo, fields, format, args...)
}

func (l *Logger) Debugf(tier Level, fields logrus.Fields, format string, args ...any) {
	if tier < LevelDebug1 || tier > LevelAll {
		tier = LevelDebug1
	}
	l.print(SourceApp, tier, fields, format, args...)
}

// WorkerView is the worker-thread logging surface: identical methods,
// tagged SourceWorker so an in-flight app print waits for it instead of
// interleaving onto the same line.
type WorkerView struct{ l *Logger }

// Worker returns the worker-thread view of l.
func (l *Logger) Worker() WorkerView { return WorkerView{l} }

func (w WorkerView) Errorf(fields logrus.Fields, format string, args ...any) {
	w.l.print(SourceWorker, LevelError, fields, format, args...)
}

func (w WorkerView) Warnf(fields logrus.Fields, format string, args ...any) {
	w.l.print(SourceWorker, LevelWarn, fields, format, args...)
}

func (w WorkerView) Infof(fields logrus.Fields, format string, args ...any) {
	w.l.print(SourceWorker, LevelInfo, fields, format, args...)
}

func (w WorkerView) Debugf(tier Level, fields logrus.Fields, format string, args ...any) {
	if tier < LevelDebug1 || tier > LevelAll {
		tier = LevelDebug1
	}
	w.l.print(SourceWorker, tier, fields, format, args...)
}
