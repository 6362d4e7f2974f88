package mixer

// Mode is the GROUP_MODE_*/STREAM_GROUP_ENABLE_* bitmask carried on a
// member session's Termination.GroupMode and interpreted here. A
// session's own Termination.Flags.DormantSSRCDetection stays a
// per-channel concern (pkg/session) and has no group-wide bit.
type Mode uint32

const (
	// ModeDisableFLC turns off frame-loss concealment: a missing
	// contributor is simply absent from the mix instead of extrapolated.
	ModeDisableFLC Mode = 1 << iota
	// ModeDisableRTPTimestampOnHoldAdvance is the on-hold timestamp
	// bit. It is carried for flag compatibility; Group does not act on it.
	ModeDisableRTPTimestampOnHoldAdvance
	// ModeEnableOnHoldFlushDetection is the on-hold flush bit. It is
	// carried for flag compatibility; Group does not act on it.
	ModeEnableOnHoldFlushDetection
	// ModeEnableMerging is STREAM_GROUP_ENABLE_MERGING: sum opted-in
	// contributors into one output stream (the only mixing mode this
	// package fully implements).
	ModeEnableMerging
	// ModeEnableConferencing is STREAM_GROUP_ENABLE_CONFERENCING,
	// declared for flag compatibility but unimplemented; Non-goals.
	ModeEnableConferencing
	// ModeEnableDeduplication is STREAM_GROUP_ENABLE_DEDUPLICATION:
	// cross-correlate contributor pairs and align near-duplicate audio
	// before mixing.
	ModeEnableDeduplication
)

// Has reports whether all bits in want are set.
func (m Mode) Has(want Mode) bool { return m&want == want }

// OverrunPolicy selects what happens to a contributor's audio ring once
// it reaches its high-water mark, the three-way GROUP_MODE_OVERRUN_*
// choice from spec.md §4.G.3.
type OverrunPolicy int

const (
	// OverrunDropSilence evicts the oldest queued frame (effectively
	// dropping a frame of silence from the contributor's perspective)
	// and keeps accepting new frames. Default.
	OverrunDropSilence OverrunPolicy = iota
	// OverrunDropNextFrame rejects the incoming frame instead of
	// evicting a queued one.
	OverrunDropNextFrame
	// OverrunStopInput stops accepting frames from the contributor
	// entirely until its ring drains back under the high-water mark.
	OverrunStopInput
)

func (p OverrunPolicy) String() string {
	switch p {
	case OverrunDropSilence:
		return "drop_silence"
	case OverrunDropNextFrame:
		return "drop_next_frame"
	case OverrunStopInput:
		return "stop_input"
	default:
		return "unknown"
	}
}
