package mixer

import (
	"time"

	"github.com/google/uuid"
)

// contributorHighWater bounds how many undelivered frames a
// contributor's audio ring holds before the group's overrun policy
// applies (§4.G.3).
const contributorHighWater = 4

// recentlyActiveWindow is how long after a contributor's last frame it
// remains eligible for FLC extrapolation instead of being dropped from
// the mix outright (§4.G.6: "recently active").
const recentlyActiveWindow = 200 * time.Millisecond

// contributor is one stream-group member's decoded-audio staging area:
// a small bounded ring of frames awaiting the group's next Mix, plus
// enough history (last delivered frame, last-seen time) to drive FLC.
type contributor struct {
	sessionID uuid.UUID
	ssrc      uint32

	frames [][]int16

	lastDelivered []int16
	lastTimestamp uint32
	lastSeen      time.Time

	stopped   bool
	overflows uint64
	dropped   uint64
}

func newContributor(sessionID uuid.UUID, ssrc uint32) *contributor {
	return &contributor{sessionID: sessionID, ssrc: ssrc}
}

// push enqueues one decoded frame, applying policy once the ring is at
// contributorHighWater.
func (c *contributor) push(samples []int16, timestamp uint32, now time.Time, policy OverrunPolicy) {
	c.lastTimestamp = timestamp
	c.lastSeen = now

	if c.stopped {
		if len(c.frames) < contributorHighWater {
			c.stopped = false
		} else {
			c.dropped++
			return
		}
	}

	if len(c.frames) < contributorHighWater {
		c.frames = append(c.frames, samples)
		return
	}

	c.overflows++
	switch policy {
	case OverrunDropNextFrame:
		c.dropped++
	case OverrunStopInput:
		c.stopped = true
		c.dropped++
	default: // OverrunDropSilence
		c.frames = append(c.frames[1:], samples)
	}
}

// pull removes and returns the oldest queued frame, remembering it as
// lastDelivered for any future FLC extrapolation.
func (c *contributor) pull() ([]int16, bool) {
	if len(c.frames) == 0 {
		return nil, false
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	c.lastDelivered = f
	return f, true
}

// eligibleForFLC reports whether now is still within this contributor's
// recently-active window, i.e. worth extrapolating rather than omitting.
func (c *contributor) eligibleForFLC(now time.Time) bool {
	return len(c.lastDelivered) > 0 && !c.lastSeen.IsZero() && now.Sub(c.lastSeen) <= recentlyActiveWindow
}
