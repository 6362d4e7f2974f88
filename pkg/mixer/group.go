package mixer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config configures one stream group, built from the owner session's
// Termination.GroupMode bitmask plus the sizing the owner's opposite
// endpoint carries (§4.G: "group output sample rate and encoding
// inherit from the owner's opposite-direction endpoint").
type Config struct {
	Mode       Mode
	Overrun    OverrunPolicy
	SampleRate uint32
	FrameSize  int // samples per group ptime

	// DisableMultichannelSink skips the one-channel-per-contributor WAV
	// sink, "unless disabled for capacity" per §4.G.7.
	DisableMultichannelSink bool
}

// defaultFrameSize is used when a Config omits FrameSize (20ms @ 8kHz).
const defaultFrameSize = 160

// Stats are a group's run-time counters, exposed read-only via
// Group.Stats: missed intervals, FLC frames, dedup alignment markers and
// per-contributor overflows. Marginal pulls are not tracked.
type Stats struct {
	MissedIntervals      uint64
	FLCFrames            uint64
	AlignmentMarkers     uint64
	ContributorOverflows map[uint32]uint64
}

// Group is one stream-group mixer instance: an owner session plus its
// contributors, producing one mixed frame per ptime (§4.G).
type Group struct {
	ID      string
	OwnerID uuid.UUID
	cfg     Config

	mu           sync.Mutex
	contributors map[uint32]*contributor
	order        []uint32 // stable ssrc order, fixes WAV channel assignment

	groupSink        *MonoWavSink
	contributorSinks map[uint32]*MonoWavSink
	multiSink        *MultiWavSink

	stats Stats
}

// NewGroup builds a Group. Conferencing is declared in the GROUP_MODE_*
// flag set but is an explicit Non-goal; requesting it fails fast rather
// than silently falling back to merge semantics.
func NewGroup(id string, ownerID uuid.UUID, cfg Config) (*Group, error) {
	if cfg.Mode.Has(ModeEnableConferencing) {
		return nil, fmt.Errorf("mixer: group %q conferencing: %w", id, ErrNotImplemented)
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = defaultFrameSize
	}
	return &Group{
		ID:               id,
		OwnerID:          ownerID,
		cfg:              cfg,
		contributors:     make(map[uint32]*contributor),
		contributorSinks: make(map[uint32]*MonoWavSink),
		stats:            Stats{ContributorOverflows: make(map[uint32]uint64)},
	}, nil
}

// SetGroupSink attaches the per-group mono WAV sink.
func (g *Group) SetGroupSink(s *MonoWavSink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.groupSink = s
}

// SetContributorSink attaches a per-contributor mono WAV sink, keyed by
// SSRC.
func (g *Group) SetContributorSink(ssrc uint32, s *MonoWavSink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.contributorSinks[ssrc] = s
}

// SetMultiSink attaches the one-channel-per-contributor WAV sink. The
// SSRC order the sink was built with fixes which SSRC maps to which
// channel.
func (g *Group) SetMultiSink(s *MultiWavSink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.multiSink = s
}

// Stats returns a snapshot of the group's run-time counters.
func (g *Group) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := g.stats
	cp.ContributorOverflows = make(map[uint32]uint64, len(g.stats.ContributorOverflows))
	for k, v := range g.stats.ContributorOverflows {
		cp.ContributorOverflows[k] = v
	}
	return cp
}

// contribute stages one decoded frame from a member session's channel
// (§4.G step before Mix: pipeline's decode step hands samples here
// instead of emitting transcoded output directly).
func (g *Group) contribute(sessionID uuid.UUID, ssrc uint32, samples []int16, timestamp uint32, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.contributors[ssrc]
	if !ok {
		c = newContributor(sessionID, ssrc)
		g.contributors[ssrc] = c
		g.order = append(g.order, ssrc)
	}
	before := len(c.frames)
	c.push(samples, timestamp, now, g.cfg.Overrun)
	if len(c.frames) == before && before >= contributorHighWater {
		g.stats.ContributorOverflows[ssrc]++
	}
}

// mix runs one group ptime's worth of §4.G steps 1, 3-8. Step 2,
// pastdue flush, is not performed here: upstream, the pipeline pulls
// every packet the jitter buffer's target-delay gate allows, once per
// ptime boundary.
func (g *Group) mix(now time.Time) ([]int16, uint32, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.contributors) == 0 {
		return nil, 0, false
	}

	frames := make(map[uint32][]int16, len(g.order))
	missing := 0
	var latestTimestamp uint32

	for _, ssrc := range g.order {
		c := g.contributors[ssrc]
		if f, ok := c.pull(); ok {
			frames[ssrc] = f
			latestTimestamp = c.lastTimestamp
			continue
		}
		if g.cfg.Mode.Has(ModeDisableFLC) || !c.eligibleForFLC(now) {
			missing++
			continue
		}
		frames[ssrc] = c.lastDelivered
		g.stats.FLCFrames++
	}

	if missing > 0 {
		g.stats.MissedIntervals++
	}
	if len(frames) == 0 {
		return nil, 0, false
	}

	if g.cfg.Mode.Has(ModeEnableDeduplication) && len(frames) >= 2 {
		if dedupAlign(frames, g.order) {
			g.stats.AlignmentMarkers++
		}
	}

	out := make([]int16, g.cfg.FrameSize)
	for _, ssrc := range g.order {
		f, ok := frames[ssrc]
		if !ok {
			continue
		}
		mixInto(out, f)
	}

	g.writeSinks(out, frames)
	return out, latestTimestamp, true
}

func (g *Group) writeSinks(out []int16, frames map[uint32][]int16) {
	if g.groupSink != nil {
		if err := g.groupSink.Write(out); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Group.writeSinks",
				"group":    g.ID,
				"error":    err,
			}).Warn("Failed writing group WAV sink")
		}
	}
	for ssrc, f := range frames {
		if s, ok := g.contributorSinks[ssrc]; ok {
			if err := s.Write(f); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Group.writeSinks",
					"group":    g.ID,
					"ssrc":     ssrc,
					"error":    err,
				}).Warn("Failed writing contributor WAV sink")
			}
		}
	}
	if g.multiSink != nil && !g.cfg.DisableMultichannelSink {
		if err := g.multiSink.Write(frames); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Group.writeSinks",
				"group":    g.ID,
				"error":    err,
			}).Warn("Failed writing multichannel WAV sink")
		}
	}
}

// mixInto sums src into dst in place, saturation-clamped to int16.
func mixInto(dst, src []int16) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] = saturateAdd(dst[i], src[i])
	}
}

func saturateAdd(a, b int16) int16 {
	sum := int32(a) + int32(b)
	const maxInt16 = 1<<15 - 1
	const minInt16 = -1 << 15
	switch {
	case sum > maxInt16:
		return maxInt16
	case sum < minInt16:
		return minInt16
	default:
		return int16(sum)
	}
}
