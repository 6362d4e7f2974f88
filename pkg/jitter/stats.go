package jitter

// Stats mirrors the original SDK's DS_JITTER_BUFFER_INFO_* counter set
// for one channel's buffer: sizing in ptime units, repair/resync
// activity, and input/output packet accounting. pkg/eventlog's packet
// stats history report reads this directly.
type Stats struct {
	TargetDelayPtimes int
	MinDelayPtimes    int
	MaxDelayPtimes    int
	MaxDepthPtimes    int

	NumSIDRepair      int
	NumTimestampAlign int
	NumPktLossFlush   int
	NumPastdueFlush   int

	SSRC uint32

	NumMissingSeqNum       int
	NumInputOOO            int
	MaxInputOOO            int
	NumInputPkts           int
	NumOutputPkts          int
	MaxConsecMissingSeqNum int

	MediaTimestampAlign int
	SIDRepairInstance   int
	SIDState            int
	TimestampDelta      int32

	Num7198DuplicatePkts int
	NumPurges            int
	NumPkts              int

	NumUnderrunResync int
	NumOverrunResync  int
	NumGapResync      int

	NumOutputOOO           int
	MaxOutputOOO           int
	NumOutputDuplicatePkts int

	MaxNumPkts int
	MinSeqNum  uint16
}
