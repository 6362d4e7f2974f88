package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTicker struct {
	calls atomic.Int64
}

func (c *countingTicker) Tick(ctx context.Context, sessionID uuid.UUID, rec Recorder) (bool, error) {
	c.calls.Add(1)
	rec.Record(OpManage, time.Microsecond)
	return true, nil
}

func TestPoolAssignLinearFillsBeforeAdvancing(t *testing.T) {
	p, err := NewPool(PoolConfig{Workers: 2, Policy: PolicyLinear}, &countingTicker{})
	require.NoError(t, err)

	var lastIdx int
	for i := 0; i < NominalSessionCapacity; i++ {
		idx, err := p.Assign(uuid.New(), nil)
		require.NoError(t, err)
		lastIdx = idx
	}
	assert.Equal(t, 0, lastIdx)

	idx, err := p.Assign(uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestPoolAssignRoundRobinDistributes(t *testing.T) {
	p, err := NewPool(PoolConfig{Workers: 3, Policy: PolicyRoundRobin}, &countingTicker{})
	require.NoError(t, err)

	var got []int
	for i := 0; i < 6; i++ {
		idx, err := p.Assign(uuid.New(), nil)
		require.NoError(t, err)
		got = append(got, idx)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, got)
}

func TestPoolAssignWholeGroupKeepsGroupTogether(t *testing.T) {
	p, err := NewPool(PoolConfig{Workers: 4, Policy: PolicyWholeGroupThread}, &countingTicker{})
	require.NoError(t, err)

	group := uuid.New()
	first, err := p.Assign(uuid.New(), &group)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		idx, err := p.Assign(uuid.New(), &group)
		require.NoError(t, err)
		assert.Equal(t, first, idx)
	}
}

func TestPoolRejectsTooManyWorkers(t *testing.T) {
	_, err := NewPool(PoolConfig{Workers: MaxPktMediaThreads + 1}, &countingTicker{})
	assert.ErrorIs(t, err, ErrPoolFull)
}

func TestPoolRejectsZeroWorkers(t *testing.T) {
	_, err := NewPool(PoolConfig{Workers: 0}, &countingTicker{})
	assert.ErrorIs(t, err, ErrNoWorkers)
}

func TestPoolUnassignRemovesSession(t *testing.T) {
	p, err := NewPool(PoolConfig{Workers: 1, Policy: PolicyLinear}, &countingTicker{})
	require.NoError(t, err)

	id := uuid.New()
	_, err = p.Assign(id, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.workers[0].sessionCount())

	p.Unassign(id)
	assert.Equal(t, 0, p.workers[0].sessionCount())
}

func TestPoolRunsWorkersAndShutsDown(t *testing.T) {
	ticker := &countingTicker{}
	p, err := NewPool(PoolConfig{
		Workers:               1,
		EnergySaverInactivity: time.Hour,
		EnergySaverSleep:      time.Millisecond,
	}, ticker)
	require.NoError(t, err)

	id := uuid.New()
	_, err = p.Assign(id, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	deadline := time.After(2 * time.Second)
	for ticker.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never ticked assigned session")
		case <-time.After(time.Millisecond):
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	require.NoError(t, p.Shutdown(shutdownCtx))

	info, err := p.GetThreadInfo(0)
	require.NoError(t, err)
	assert.True(t, info.Flags.Has(FlagExited))
}
