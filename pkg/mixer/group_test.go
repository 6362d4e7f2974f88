package mixer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRejectsConferencingMode(t *testing.T) {
	_, err := NewGroup("g1", uuid.New(), Config{Mode: ModeEnableConferencing})
	require.ErrorIs(t, err, ErrNotImplemented)
}

func TestGroupMixSumsContributorsWithSaturation(t *testing.T) {
	g, err := NewGroup("g1", uuid.New(), Config{FrameSize: 4})
	require.NoError(t, err)

	now := time.Now()
	g.contribute(uuid.New(), 1, []int16{100, 200, 300, 400}, 160, now)
	g.contribute(uuid.New(), 2, []int16{32767, 10, 10, -32768}, 160, now)

	out, ts, ok := g.mix(now)
	require.True(t, ok)
	assert.Equal(t, uint32(160), ts)
	assert.Equal(t, []int16{32767, 210, 310, -32368}, out)
}

func TestGroupMixAppliesFLCForRecentlyAbsentContributor(t *testing.T) {
	g, err := NewGroup("g1", uuid.New(), Config{FrameSize: 2})
	require.NoError(t, err)

	now := time.Now()
	g.contribute(uuid.New(), 1, []int16{10, 20}, 0, now)
	out, _, ok := g.mix(now) // drains the only queued frame, primes lastDelivered
	require.True(t, ok)
	assert.Equal(t, []int16{10, 20}, out)

	// contributor 1 sends nothing this tick but is still inside its
	// recently-active window: FLC extrapolates its last frame.
	out, _, ok = g.mix(now.Add(5 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, []int16{10, 20}, out)
	assert.Equal(t, uint64(1), g.Stats().FLCFrames)
}

func TestGroupMixCountsMissingOnceOutsideFLCWindow(t *testing.T) {
	g, err := NewGroup("g1", uuid.New(), Config{FrameSize: 2})
	require.NoError(t, err)

	longAgo := time.Now().Add(-time.Hour)
	g.contribute(uuid.New(), 2, []int16{1, 2}, 0, longAgo)
	g.mix(longAgo) // drains contributor 2's only frame, staling its lastSeen

	now := time.Now()
	g.contribute(uuid.New(), 1, []int16{10, 20}, 0, now)

	_, _, ok := g.mix(now)
	require.True(t, ok)
	assert.Equal(t, uint64(1), g.Stats().MissedIntervals)
}

func TestGroupMixReturnsFalseWithNoContributors(t *testing.T) {
	g, err := NewGroup("g1", uuid.New(), Config{})
	require.NoError(t, err)
	_, _, ok := g.mix(time.Now())
	assert.False(t, ok)
}

func TestGroupMixDisableFLCOmitsAbsentContributor(t *testing.T) {
	g, err := NewGroup("g1", uuid.New(), Config{FrameSize: 2, Mode: ModeDisableFLC})
	require.NoError(t, err)

	now := time.Now()
	g.contribute(uuid.New(), 1, []int16{10, 20}, 0, now)
	g.mix(now)

	_, _, ok := g.mix(now.Add(time.Millisecond))
	assert.False(t, ok)
	assert.Equal(t, uint64(0), g.Stats().FLCFrames)
}

func TestGroupMixDeduplicationAlignsCorrelatedPair(t *testing.T) {
	g, err := NewGroup("g1", uuid.New(), Config{FrameSize: 8, Mode: ModeEnableDeduplication})
	require.NoError(t, err)

	a := []int16{0, 10, -10, 20, -20, 30, -30, 0}
	b := make([]int16, len(a))
	copy(b[2:], a[:len(a)-2])

	now := time.Now()
	g.contribute(uuid.New(), 1, a, 0, now)
	g.contribute(uuid.New(), 2, b, 0, now)

	_, _, ok := g.mix(now)
	require.True(t, ok)
	assert.Equal(t, uint64(1), g.Stats().AlignmentMarkers)
}
