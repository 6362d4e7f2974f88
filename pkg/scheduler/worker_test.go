package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTicker struct {
	active bool
	err    error
}

func (s *scriptedTicker) Tick(ctx context.Context, sessionID uuid.UUID, rec Recorder) (bool, error) {
	rec.Record(OpInput, time.Microsecond)
	return s.active, s.err
}

func TestWorkerEntersEnergySaverAfterInactivity(t *testing.T) {
	ticker := &scriptedTicker{active: false}
	w := newWorker(0, ticker, nil, time.Millisecond, time.Millisecond, 0)
	w.assign(uuid.New())
	w.lastActivity = time.Now().Add(-time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool { return w.State() == StateEnergySaver }, 150*time.Millisecond, time.Millisecond)
}

func TestWorkerRecordsPerOperationTiming(t *testing.T) {
	ticker := &scriptedTicker{active: true}
	w := newWorker(0, ticker, nil, time.Hour, time.Millisecond, 0)
	w.assign(uuid.New())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	info := w.GetThreadInfo()
	assert.Equal(t, 1, info.SessionCount)
	assert.Greater(t, info.Ops["input"].Average, time.Duration(0))
}

func TestWorkerGetThreadInfoReportsExitedAfterShutdown(t *testing.T) {
	ticker := &scriptedTicker{active: true}
	w := newWorker(0, ticker, nil, time.Hour, time.Millisecond, 0)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	w.requestClose()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after requestClose")
	}

	assert.True(t, w.loadFlags().Has(FlagExited))
}

func TestWorkerSkipsFailingSessionWithoutStopping(t *testing.T) {
	ticker := &scriptedTicker{active: false, err: assertErr{}}
	w := newWorker(0, ticker, nil, time.Hour, time.Millisecond, 0)
	w.assign(uuid.New())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	assert.Equal(t, 1, w.failures)
}

type assertErr struct{}

func (assertErr) Error() string { return "invalid channel" }
