package eventlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerEnabledFiltersByLevel(t *testing.T) {
	l, err := New(Config{Level: LevelWarn})
	require.NoError(t, err)
	defer l.Close()

	assert.True(t, l.enabled(LevelFatal))
	assert.True(t, l.enabled(LevelWarn))
	assert.False(t, l.enabled(LevelInfo))
	assert.False(t, l.enabled(LevelDebug1))
	assert.False(t, l.enabled(LevelDisabled))
}

func TestLoggerWritesToFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	l, err := New(Config{Level: LevelAll, Sink: SinkFile, FilePath: path})
	require.NoError(t, err)

	l.Infof(logrus.Fields{"channel": 1}, "session started %d", 42)
	require.NoError(t, l.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "session started 42")
	assert.Contains(t, string(contents), "channel=1")
}

func TestLoggerMaxSizeCapTruncatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	l, err := New(Config{Level: LevelAll, Sink: SinkFile, FilePath: path, MaxSizeBytes: 8})
	require.NoError(t, err)
	defer l.Close()

	l.Infof(nil, "a reasonably long line that exceeds the cap")

	l.mu.Lock()
	l.checkMaxSizeLocked()
	l.mu.Unlock()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestWorkerPrintBlocksConcurrentAppBeginLine(t *testing.T) {
	l, err := New(Config{Level: LevelAll})
	require.NoError(t, err)
	defer l.Close()

	l.beginLine(SourceWorker)

	done := make(chan struct{})
	go func() {
		l.beginLine(SourceApp)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("app beginLine returned while worker print was still in progress")
	case <-time.After(20 * time.Millisecond):
	}

	l.endLine(SourceWorker)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("app beginLine never unblocked after worker print ended")
	}
	l.endLine(SourceApp)
}

func TestDebugfClampsOutOfRangeTier(t *testing.T) {
	l, err := New(Config{Level: LevelAll})
	require.NoError(t, err)
	defer l.Close()

	assert.NotPanics(t, func() {
		l.Debugf(Level(0), nil, "clamped")
		l.Worker().Debugf(Level(99), nil, "clamped")
	})
}
