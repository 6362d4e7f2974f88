package eventlog

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/signalogic/mediaengine/pkg/jitter"
)

// ChannelStats pairs a channel's identity with its jitter buffer counters
// for one collation pass. ChannelIndex is 0 for a session's primary
// channel and the RFC 8108 child index for any channel spawned by a new
// SSRC on that session.
type ChannelStats struct {
	SessionID    uuid.UUID
	ChannelIndex int
	SSRC         uint32
	Stats        jitter.Stats
}

// StatsSnapshot is one collation pass across every live channel.
type StatsSnapshot struct {
	At       time.Time
	Channels []ChannelStats
}

// StatsHistory retains a bounded ring of collation passes so a packet
// stats history log can be written on demand (periodically, or when a
// session is deleted) without re-deriving counters already lost to
// channel teardown.
type StatsHistory struct {
	mu       sync.Mutex
	capacity int
	entries  []StatsSnapshot
}

// NewStatsHistory returns a history retaining at most capacity snapshots.
func NewStatsHistory(capacity int) *StatsHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &StatsHistory{capacity: capacity}
}

// Record appends a snapshot, evicting the oldest once over capacity.
func (h *StatsHistory) Record(channels []ChannelStats, at time.Time) StatsSnapshot {
	snap := StatsSnapshot{At: at, Channels: append([]ChannelStats(nil), channels...)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, snap)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
	return snap
}

// Snapshots returns a copy of every retained snapshot, oldest first.
func (h *StatsHistory) Snapshots() []StatsSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]StatsSnapshot(nil), h.entries...)
}

// Latest returns the most recent snapshot, if any.
func (h *StatsHistory) Latest() (StatsSnapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return StatsSnapshot{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// WritePacketStatsHistoryLog writes a collated per-channel report of
// dropped, repaired, reordered, deduplicated, and resynced packet counts
// to w, reading straight from jitter.Stats.
func WritePacketStatsHistoryLog(w io.Writer, snap StatsSnapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "packet stats history\tat %s\n", snap.At.Format(time.RFC3339))
	fmt.Fprintln(tw, "session\tchan\tssrc\tin\tout\tdropped\trepaired\treordered\tdup\tresync")
	for _, c := range snap.Channels {
		s := c.Stats
		dropped := s.NumPktLossFlush + s.NumMissingSeqNum
		reordered := s.NumInputOOO + s.NumOutputOOO
		dup := s.Num7198DuplicatePkts + s.NumOutputDuplicatePkts
		resync := s.NumUnderrunResync + s.NumOverrunResync + s.NumGapResync
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			c.SessionID, c.ChannelIndex, s.SSRC,
			s.NumInputPkts, s.NumOutputPkts,
			dropped, s.NumSIDRepair, reordered, dup, resync)
	}
	return tw.Flush()
}
