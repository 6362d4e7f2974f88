package scheduler

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Recorder accepts a single operation's elapsed duration. Worker
// implements it; a SessionTicker calls Record once per phase so the
// worker's moving-average histograms stay current regardless of what
// the ticker's internal phase breakdown looks like.
type Recorder interface {
	Record(op Operation, d time.Duration)
}

// SessionTicker runs one tick's worth of work for a single session.
// active reports whether the session had any ingress activity this
// tick, which feeds the worker's energy-saver decision.
type SessionTicker interface {
	Tick(ctx context.Context, sessionID uuid.UUID, rec Recorder) (active bool, err error)
}

// Worker runs a fixed assignment of sessions through one cooperative
// tick loop per OS thread. Workers never share jitter buffers; the
// registry/group table locks they do take are held only at
// ownership-transfer points, outside the tick hot path.
type Worker struct {
	Index int

	mu       sync.Mutex
	sessions []uuid.UUID
	groups   map[uuid.UUID]struct{}

	stateMu sync.RWMutex
	state   State

	lastActivity time.Time
	failures     int

	hist [numOperations]window
	hmu  sync.Mutex

	flags atomic.Uint32
	wake  chan struct{}

	ticker SessionTicker
	m      *metrics
	label  string

	energySaverInactivity time.Duration
	energySaverSleep      time.Duration
	preemptionAlarm       time.Duration

	exited chan struct{}
}

func newWorker(index int, ticker SessionTicker, m *metrics, inactivity, sleep, preemptionAlarm time.Duration) *Worker {
	return &Worker{
		Index:                 index,
		groups:                make(map[uuid.UUID]struct{}),
		lastActivity:          time.Now(),
		wake:                  make(chan struct{}, 1),
		ticker:                ticker,
		m:                     m,
		label:                 strconv.Itoa(index),
		energySaverInactivity: inactivity,
		energySaverSleep:      sleep,
		preemptionAlarm:       preemptionAlarm,
		exited:                make(chan struct{}),
	}
}

// Record implements Recorder.
func (w *Worker) Record(op Operation, d time.Duration) {
	w.hmu.Lock()
	w.hist[op].record(d)
	w.hmu.Unlock()
	if w.m != nil {
		w.m.opDuration.WithLabelValues(w.label, op.String()).Observe(d.Seconds())
	}
}

// Wake signals the worker's external wake-up semaphore, used to pull a
// worker out of energy-saver sleep early (e.g. a session was just
// assigned to it).
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) State() State {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.stateMu.Lock()
	changed := w.state != s
	w.state = s
	w.stateMu.Unlock()
	if changed && w.m != nil {
		v := 0.0
		if s == StateEnergySaver {
			v = 1.0
		}
		w.m.workerState.WithLabelValues(w.label).Set(v)
	}
}

func (w *Worker) assign(id uuid.UUID) {
	w.mu.Lock()
	w.sessions = append(w.sessions, id)
	n := len(w.sessions)
	w.mu.Unlock()
	if w.m != nil {
		w.m.assignedCount.WithLabelValues(w.label).Set(float64(n))
	}
}

func (w *Worker) unassign(id uuid.UUID) {
	w.mu.Lock()
	for i, s := range w.sessions {
		if s == id {
			w.sessions = append(w.sessions[:i], w.sessions[i+1:]...)
			break
		}
	}
	n := len(w.sessions)
	w.mu.Unlock()
	if w.m != nil {
		w.m.assignedCount.WithLabelValues(w.label).Set(float64(n))
	}
}

func (w *Worker) sessionCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}

func (w *Worker) snapshotSessions() []uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]uuid.UUID, len(w.sessions))
	copy(out, w.sessions)
	return out
}

// requestClose sets the closing flag; the worker finishes its current
// tick and exits on its next loop check, without draining egress.
func (w *Worker) requestClose() {
	for {
		old := w.flags.Load()
		if Flags(old).Has(FlagClosing) {
			return
		}
		if w.flags.CompareAndSwap(old, old|uint32(FlagClosing)) {
			return
		}
	}
}

func (w *Worker) setExited() {
	for {
		old := w.flags.Load()
		if w.flags.CompareAndSwap(old, old|uint32(FlagExited)) {
			return
		}
	}
}

func (w *Worker) loadFlags() Flags { return Flags(w.flags.Load()) }

// ThreadInfo is the in-process snapshot GetThreadInfo returns, mirroring
// PACKETMEDIATHREADINFO.
type ThreadInfo struct {
	WorkerIndex  int
	State        State
	Flags        Flags
	SessionCount int
	GroupCount   int
	Ops          map[string]OpStats
}

// OpStats is one operation's moving-average/max timing window.
type OpStats struct {
	Average time.Duration
	Max     time.Duration
}

// GetThreadInfo returns a point-in-time profiling snapshot for this worker.
func (w *Worker) GetThreadInfo() ThreadInfo {
	w.hmu.Lock()
	ops := make(map[string]OpStats, numOperations)
	for op := Operation(0); op < numOperations; op++ {
		ops[op.String()] = OpStats{Average: w.hist[op].average(), Max: w.hist[op].max}
	}
	w.hmu.Unlock()

	w.mu.Lock()
	groupCount := len(w.groups)
	w.mu.Unlock()

	return ThreadInfo{
		WorkerIndex:  w.Index,
		State:        w.State(),
		Flags:        w.loadFlags(),
		SessionCount: w.sessionCount(),
		GroupCount:   groupCount,
		Ops:          ops,
	}
}

// Run executes the worker's tick loop until ctx is cancelled or the
// pool requests a close. Suspension points are strictly the energy
// saver sleep and the external wake semaphore; the tick hot path
// itself never blocks.
func (w *Worker) Run(ctx context.Context) error {
	defer w.setExited()
	defer close(w.exited)

	for {
		if ctx.Err() != nil || w.loadFlags().Has(FlagClosing) {
			return ctx.Err()
		}

		tickStart := time.Now()
		anyActive := w.runTick(ctx)
		elapsed := time.Since(tickStart)
		if w.preemptionAlarm > 0 && elapsed > w.preemptionAlarm {
			logrus.WithFields(logrus.Fields{
				"function": "Worker.Run",
				"worker":   w.Index,
				"elapsed":  elapsed,
			}).Warn("Worker tick exceeded preemption alarm threshold")
		}

		now := time.Now()
		if anyActive {
			w.lastActivity = now
			w.setState(StateRun)
		} else if w.energySaverInactivity > 0 && now.Sub(w.lastActivity) > w.energySaverInactivity {
			w.setState(StateEnergySaver)
		}

		if w.State() == StateEnergySaver {
			select {
			case <-ctx.Done():
			case <-w.wake:
			case <-time.After(w.energySaverSleep):
			}
		}
	}
}

func (w *Worker) runTick(ctx context.Context) bool {
	anyActive := false
	for _, id := range w.snapshotSessions() {
		active, err := w.ticker.Tick(ctx, id, w)
		if err != nil {
			w.failures++
			logrus.WithFields(logrus.Fields{
				"function": "Worker.runTick",
				"worker":   w.Index,
				"session":  id,
				"error":    err,
				"failures": w.failures,
			}).Warn("Worker skipping invalid channel for this tick")
			continue
		}
		if active {
			anyActive = true
		}
	}
	return anyActive
}
