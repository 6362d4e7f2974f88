package mixer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryContributeCreatesGroupImplicitly(t *testing.T) {
	r := NewRegistry(Config{FrameSize: 4})
	r.Contribute("g1", uuid.New(), 1, []int16{1, 2, 3, 4}, 0)

	g, ok := r.Get("g1")
	require.True(t, ok)
	assert.Equal(t, "g1", g.ID)
}

func TestRegistryMixUnknownGroupReturnsFalse(t *testing.T) {
	r := NewRegistry(Config{})
	_, _, ok := r.Mix("missing", time.Now())
	assert.False(t, ok)
}

func TestRegistryEnsureHonorsExplicitConfig(t *testing.T) {
	r := NewRegistry(Config{})
	owner := uuid.New()
	g, err := r.Ensure("g1", owner, Config{FrameSize: 320, Mode: ModeEnableDeduplication})
	require.NoError(t, err)
	assert.Equal(t, owner, g.OwnerID)
	assert.Equal(t, 320, g.cfg.FrameSize)

	again, err := r.Ensure("g1", uuid.New(), Config{FrameSize: 10})
	require.NoError(t, err)
	assert.Same(t, g, again, "first registration wins, later calls return the existing group")
}

func TestRegistryContributeThenMixRoundTrip(t *testing.T) {
	r := NewRegistry(Config{FrameSize: 2})
	now := time.Now()
	r.Contribute("g1", uuid.New(), 1, []int16{5, 6}, 160)

	out, ts, ok := r.Mix("g1", now)
	require.True(t, ok)
	assert.Equal(t, []int16{5, 6}, out)
	assert.Equal(t, uint32(160), ts)
}
