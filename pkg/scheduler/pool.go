package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// PoolConfig sizes a Pool and its workers' energy-saver/profiling behavior.
type PoolConfig struct {
	Workers    int
	Policy     AssignPolicy
	Registerer prometheus.Registerer

	EnergySaverInactivity time.Duration
	EnergySaverSleep      time.Duration
	PreemptionAlarm       time.Duration
}

// Pool is the fixed worker pool described in §4.E: parallel OS
// threads, each a tick loop, sharing only the assignment maps guarded
// here at ownership-transfer points.
type Pool struct {
	mu      sync.Mutex
	workers []*Worker
	policy  AssignPolicy

	linearCursor int
	rrCursor     int

	groupWorker   map[uuid.UUID]int
	sessionWorker map[uuid.UUID]int

	eg     *errgroup.Group
	cancel context.CancelFunc
}

// NewPool builds a Pool of cfg.Workers workers, each driven by ticker
// for its assigned sessions.
func NewPool(cfg PoolConfig, ticker SessionTicker) (*Pool, error) {
	if cfg.Workers <= 0 {
		return nil, ErrNoWorkers
	}
	if cfg.Workers > MaxPktMediaThreads {
		return nil, ErrPoolFull
	}

	m := newMetrics(cfg.Registerer)
	p := &Pool{
		policy:        cfg.Policy,
		groupWorker:   make(map[uuid.UUID]int),
		sessionWorker: make(map[uuid.UUID]int),
	}
	for i := 0; i < cfg.Workers; i++ {
		p.workers = append(p.workers, newWorker(i, ticker, m, cfg.EnergySaverInactivity, cfg.EnergySaverSleep, cfg.PreemptionAlarm))
	}
	return p, nil
}

// Len returns the number of workers in the pool.
func (p *Pool) Len() int { return len(p.workers) }

// Start launches every worker's tick loop. It returns immediately;
// call Shutdown to stop the pool and wait for workers to drain.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	eg, runCtx := errgroup.WithContext(runCtx)
	p.cancel = cancel
	p.eg = eg

	for _, w := range p.workers {
		w := w
		eg.Go(func() error {
			if err := w.Run(runCtx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}
}

// Shutdown requests every worker finish its current tick and exit,
// then waits (bounded by ctx) for all of them using errgroup. Workers
// do not drain pending egress before exiting.
func (p *Pool) Shutdown(ctx context.Context) error {
	for _, w := range p.workers {
		w.requestClose()
		w.Wake()
	}
	if p.cancel != nil {
		defer p.cancel()
	}
	if p.eg == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- p.eg.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Assign picks a worker for a new session per the pool's AssignPolicy
// and records the assignment. groupID is nil for sessions that do not
// belong to a stream group.
func (p *Pool) Assign(sessionID uuid.UUID, groupID *uuid.UUID) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.workers) == 0 {
		return 0, ErrNoWorkers
	}

	var idx int
	switch p.policy {
	case PolicyWholeGroupThread:
		idx = p.assignWholeGroupLocked(groupID)
	case PolicyRoundRobin:
		idx = p.rrCursor
		p.rrCursor = (p.rrCursor + 1) % len(p.workers)
	default:
		idx = p.assignLinearLocked()
	}

	p.workers[idx].assign(sessionID)
	p.sessionWorker[sessionID] = idx
	p.workers[idx].Wake()
	return idx, nil
}

func (p *Pool) assignLinearLocked() int {
	if p.workers[p.linearCursor].sessionCount() >= NominalSessionCapacity && p.linearCursor < len(p.workers)-1 {
		p.linearCursor++
	}
	return p.linearCursor
}

func (p *Pool) assignWholeGroupLocked(groupID *uuid.UUID) int {
	if groupID == nil {
		return p.leastLoadedBySessionsLocked()
	}
	if idx, ok := p.groupWorker[*groupID]; ok {
		return idx
	}
	idx := p.leastLoadedByGroupsLocked()
	p.groupWorker[*groupID] = idx
	p.workers[idx].mu.Lock()
	p.workers[idx].groups[*groupID] = struct{}{}
	p.workers[idx].mu.Unlock()
	return idx
}

func (p *Pool) leastLoadedBySessionsLocked() int {
	best := 0
	bestCount := p.workers[0].sessionCount()
	for i, w := range p.workers[1:] {
		if c := w.sessionCount(); c < bestCount {
			best, bestCount = i+1, c
		}
	}
	return best
}

func (p *Pool) leastLoadedByGroupsLocked() int {
	best := 0
	bestCount := len(p.workers[0].groups)
	for i, w := range p.workers[1:] {
		w.mu.Lock()
		c := len(w.groups)
		w.mu.Unlock()
		if c < bestCount {
			best, bestCount = i+1, c
		}
	}
	return best
}

// Unassign removes a session from its assigned worker, e.g. on
// session delete.
func (p *Pool) Unassign(sessionID uuid.UUID) {
	p.mu.Lock()
	idx, ok := p.sessionWorker[sessionID]
	if ok {
		delete(p.sessionWorker, sessionID)
	}
	p.mu.Unlock()
	if ok {
		p.workers[idx].unassign(sessionID)
	}
}

// GetThreadInfo returns the profiling snapshot for worker idx.
func (p *Pool) GetThreadInfo(idx int) (ThreadInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < 0 || idx >= len(p.workers) {
		return ThreadInfo{}, ErrUnknownWorker
	}
	return p.workers[idx].GetThreadInfo(), nil
}
