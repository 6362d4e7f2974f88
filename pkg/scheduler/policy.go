package scheduler

// AssignPolicy selects how a newly created session picks its worker.
type AssignPolicy int

const (
	// PolicyLinear fills the current worker to NominalSessionCapacity
	// before moving on to the next one.
	PolicyLinear AssignPolicy = iota
	// PolicyRoundRobin distributes sessions across workers evenly.
	PolicyRoundRobin
	// PolicyWholeGroupThread keeps every session of a stream group on a
	// single worker, avoiding the group lock on the mixer's hot path.
	PolicyWholeGroupThread
)

const (
	// MaxPktMediaThreads bounds the pool's worker count.
	MaxPktMediaThreads = 16

	// NominalSessionCapacity is PolicyLinear's default per-worker fill
	// target before it advances to the next worker.
	NominalSessionCapacity = 51
	// NominalGroupCapacity is PolicyWholeGroupThread's default per-worker
	// group fill target.
	NominalGroupCapacity = 17
)
