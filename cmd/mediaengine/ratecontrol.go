package main

import (
	"context"

	"golang.org/x/time/rate"
)

// autoRateController implements §4.I's auto-rate controller: it watches
// each session's egress queue level once per driver tick and raises the
// shared push-rate limiter by one step when any session is below its
// low-water mark, or resets it back to the floor when any session is
// above its high-water mark. The rate is threads-wide — every session is
// pushed at the same limiter value, per spec.md's "treat all sessions
// equally".
type autoRateController struct {
	limiter *rate.Limiter
	floor   rate.Limit
	ceiling rate.Limit
	step    rate.Limit

	lowWater  float64 // fraction of capacity
	highWater float64
}

func newAutoRateController(floor, ceiling float64) *autoRateController {
	if ceiling <= floor {
		ceiling = floor + 1
	}
	return &autoRateController{
		limiter:   rate.NewLimiter(rate.Limit(floor), int(ceiling)+1),
		floor:     rate.Limit(floor),
		ceiling:   rate.Limit(ceiling),
		step:      rate.Limit((ceiling - floor) / 20),
		lowWater:  0.25,
		highWater: 0.75,
	}
}

// egressLevel is the (length, capacity) pair a session's egress queue
// reports; sample collects one per live session per tick.
type egressLevel struct {
	length, capacity int
}

// Sample adjusts the limiter given this tick's per-session egress
// levels and returns the current allowed rate in packets/sec.
func (a *autoRateController) Sample(levels []egressLevel) rate.Limit {
	lowHit, highHit := false, false
	for _, lv := range levels {
		if lv.capacity == 0 {
			continue
		}
		frac := float64(lv.length) / float64(lv.capacity)
		if frac < a.lowWater {
			lowHit = true
		}
		if frac > a.highWater {
			highHit = true
		}
	}

	cur := a.limiter.Limit()
	switch {
	case highHit:
		a.limiter.SetLimit(a.floor)
	case lowHit && cur < a.ceiling:
		next := cur + a.step
		if next > a.ceiling {
			next = a.ceiling
		}
		a.limiter.SetLimit(next)
	}
	return a.limiter.Limit()
}

// Wait blocks until the limiter admits one more push, per the shared
// push-rate budget.
func (a *autoRateController) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}
