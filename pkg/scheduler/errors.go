package scheduler

import "errors"

var (
	ErrPoolFull       = errors.New("scheduler: pool has reached MaxWorkers")
	ErrNoWorkers      = errors.New("scheduler: pool has no workers configured")
	ErrUnknownWorker  = errors.New("scheduler: worker index out of range")
	ErrSessionUnknown = errors.New("scheduler: session not assigned to any worker")
)
