// Package queue provides the bounded, non-blocking queues that carry
// packets between pipeline stages: ingress (captured/received packets
// awaiting classification), egress (formatted packets awaiting
// transmission or file write), and three pull sub-categories a worker
// fills per session tick — jitter-buffered packets passed through
// undecoded, transcoded (decoded and re-encoded) output, and encoded
// stream-group mix output.
//
// Ring is generic over the element type so the same queue type backs
// []byte-framed ingress/egress packets and the internal packet types
// pkg/pipeline passes between stages, matching the
// pack's go-worker-pool idiom of a buffered channel sized up front
// rather than a lock-free ring (see pkg/scheduler for the worker side
// of this).
package queue

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Category labels which pull sub-category a Ring serves, for metrics
// and log context only; it has no effect on Ring's behavior.
type Category int

const (
	CategoryIngress Category = iota
	CategoryEgress
	CategoryJitterBuffer
	CategoryTranscoded
	CategoryStreamGroup
)

func (c Category) String() string {
	switch c {
	case CategoryIngress:
		return "ingress"
	case CategoryEgress:
		return "egress"
	case CategoryJitterBuffer:
		return "jitter_buffer"
	case CategoryTranscoded:
		return "transcoded"
	case CategoryStreamGroup:
		return "stream_group"
	default:
		return "unknown"
	}
}

// Ring is a bounded, single-producer/single-consumer-oriented FIFO
// queue. Multiple producers/consumers are safe (Go channels already
// guarantee that) but the queue is sized for the one-worker-per-session
// assignment pkg/scheduler uses, not for high-contention fan-in.
type Ring[T any] struct {
	category Category
	ch       chan T

	// Stats, updated without locking; exact counts are best effort under
	// concurrent use. Only dropped is exposed, via Dropped.
	pushed  uint64
	dropped uint64
	pulled  uint64
}

// New creates a Ring with the given capacity. A capacity of 0 or less
// is replaced by 1 with a logged warning (a zero-capacity channel would
// reject every non-blocking Push).
func New[T any](category Category, capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
		logrus.WithFields(logrus.Fields{
			"function": "queue.New",
			"category": category.String(),
		}).Warn("Non-positive capacity requested, using 1")
	}
	return &Ring[T]{category: category, ch: make(chan T, capacity)}
}

// Push enqueues v without blocking. Returns ErrQueueFull if the ring is
// at capacity; the pipeline's per-tick loop treats that as backpressure
// (see the driver's auto-rate controller, which watches egress high/low
// water marks).
func (r *Ring[T]) Push(v T) error {
	select {
	case r.ch <- v:
		r.pushed++
		return nil
	default:
		r.dropped++
		return fmt.Errorf("%w: category=%s", ErrQueueFull, r.category)
	}
}

// Pull dequeues the next value without blocking. ok is false if the
// ring is currently empty.
func (r *Ring[T]) Pull() (v T, ok bool) {
	select {
	case v = <-r.ch:
		r.pulled++
		return v, true
	default:
		return v, false
	}
}

// PullAll drains every value currently queued, in FIFO order.
func (r *Ring[T]) PullAll() []T {
	out := make([]T, 0, len(r.ch))
	for {
		v, ok := r.Pull()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// Len returns the number of values currently queued.
func (r *Ring[T]) Len() int { return len(r.ch) }

// Cap returns the ring's configured capacity.
func (r *Ring[T]) Cap() int { return cap(r.ch) }

// Empty reports whether the ring currently holds no values; Session
// delete/reap logic uses this to confirm drain completion.
func (r *Ring[T]) Empty() bool { return len(r.ch) == 0 }

// Dropped returns the count of Push calls rejected by a full ring.
func (r *Ring[T]) Dropped() uint64 { return r.dropped }
