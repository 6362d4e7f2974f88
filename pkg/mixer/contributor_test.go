package mixer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContributorPushAndPullFIFO(t *testing.T) {
	c := newContributor(uuid.New(), 42)
	now := time.Now()

	c.push([]int16{1, 2}, 100, now, OverrunDropSilence)
	c.push([]int16{3, 4}, 120, now, OverrunDropSilence)

	f, ok := c.pull()
	require.True(t, ok)
	assert.Equal(t, []int16{1, 2}, f)

	f, ok = c.pull()
	require.True(t, ok)
	assert.Equal(t, []int16{3, 4}, f)

	_, ok = c.pull()
	assert.False(t, ok)
}

func TestContributorOverrunDropSilenceEvictsOldest(t *testing.T) {
	c := newContributor(uuid.New(), 1)
	now := time.Now()
	for i := 0; i < contributorHighWater+2; i++ {
		c.push([]int16{int16(i)}, uint32(i), now, OverrunDropSilence)
	}
	require.Len(t, c.frames, contributorHighWater)
	f, _ := c.pull()
	assert.Equal(t, int16(2), f[0]) // frames 0,1 evicted
}

func TestContributorOverrunDropNextFrameKeepsRing(t *testing.T) {
	c := newContributor(uuid.New(), 1)
	now := time.Now()
	for i := 0; i < contributorHighWater; i++ {
		c.push([]int16{int16(i)}, uint32(i), now, OverrunDropNextFrame)
	}
	c.push([]int16{99}, 99, now, OverrunDropNextFrame)
	require.Len(t, c.frames, contributorHighWater)
	assert.Equal(t, uint64(1), c.dropped)
	f, _ := c.pull()
	assert.Equal(t, int16(0), f[0])
}

func TestContributorOverrunStopInputRejectsUntilDrained(t *testing.T) {
	c := newContributor(uuid.New(), 1)
	now := time.Now()
	for i := 0; i < contributorHighWater; i++ {
		c.push([]int16{int16(i)}, uint32(i), now, OverrunStopInput)
	}
	c.push([]int16{99}, 99, now, OverrunStopInput)
	assert.True(t, c.stopped)

	c.pull()
	c.push([]int16{100}, 100, now, OverrunStopInput)
	assert.False(t, c.stopped)
	require.Len(t, c.frames, contributorHighWater)
}

func TestContributorEligibleForFLCWindow(t *testing.T) {
	c := newContributor(uuid.New(), 1)
	now := time.Now()
	c.push([]int16{1}, 1, now, OverrunDropSilence)
	c.pull()

	assert.True(t, c.eligibleForFLC(now.Add(recentlyActiveWindow/2)))
	assert.False(t, c.eligibleForFLC(now.Add(recentlyActiveWindow*2)))
}
