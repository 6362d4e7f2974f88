package jitter

// PullFlags mirrors the subset of DS_GETORD_PKT_* flags relevant to a
// single channel's Pull call.
type PullFlags uint32

const (
	// PullReturnAllDeliverable returns every packet currently
	// deliverable (target delay satisfied) in one call instead of one
	// packet per call.
	PullReturnAllDeliverable PullFlags = 1 << iota
	// PullTimestampGapResync treats a sequence-number gap larger than the
	// resync threshold as a resync event instead of ordinary loss: Pull
	// counts it and delivers the next buffered packet without repair
	// frames. RTP timestamps are not compared and nothing is flushed.
	//
	// Per the original SDK's flag documentation, this flag is ignored
	// whenever PullReturnAllDeliverable is also set: a bulk drain is
	// already returning everything it has, so a mid-drain resync would
	// only discard packets the caller asked to receive. Resync still
	// accepts normal loss-driven repair in that mode, scoped in Pull.
	PullTimestampGapResync
)

func (f PullFlags) has(bit PullFlags) bool { return f&bit == bit }
