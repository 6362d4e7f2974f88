// Package jitter implements the per-channel adaptive jitter buffer:
// reorder by RTP sequence number, RFC 7198 duplicate rejection, missing-
// packet / SID repair, DTX expansion, and overrun/gap resync. No
// underrun resync is performed; Stats.NumUnderrunResync stays zero.
//
// A Buffer holds entries sorted by extended (unwrapped) sequence number
// so Pull always considers delivery order independent of uint16
// wraparound, following the same sorted-insert-by-binary-search shape
// the pack's RTP jitter buffer reference uses, generalized from
// timestamp-keyed to sequence-keyed ordering (RTP timestamps can repeat
// across RFC 8108 children and don't uniquely order packets the way
// sequence numbers do).
package jitter

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

type entry struct {
	extSeq    uint32
	seq       uint16
	timestamp uint32
	payload   []byte
	marker    bool
	isSID     bool
}

// Buffer is one channel's jitter buffer.
type Buffer struct {
	mu sync.Mutex

	cfg   Config
	stats Stats

	entries []entry

	haveBase      bool
	baseSeq       uint16
	highestSeq    uint32 // extended
	lastDelivered uint32 // extended, valid only once haveDelivered is true
	haveDelivered bool

	consecMissing  int
	lastSIDPayload []byte
}

// New creates a jitter buffer for one channel.
func New(cfg Config) *Buffer {
	return &Buffer{
		cfg: cfg,
		stats: Stats{
			TargetDelayPtimes: cfg.TargetDelayPtimes,
			MinDelayPtimes:    cfg.MinDelayPtimes,
			MaxDelayPtimes:    cfg.MaxDelayPtimes,
		},
	}
}

// Stats returns a snapshot of the channel's counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// extend unwraps seq against the highest sequence number seen so far,
// picking whichever of seq-as-is or seq+65536*k is nearest the current
// high-water mark (standard RTP extended-sequence-number handling).
func (b *Buffer) extend(seq uint16) uint32 {
	if !b.haveBase {
		return uint32(seq)
	}
	hi := b.highestSeq
	epoch := hi &^ 0xffff

	candidates := []uint32{epoch + uint32(seq), epoch + 0x10000 + uint32(seq)}
	if epoch >= 0x10000 {
		candidates = append(candidates, epoch-0x10000+uint32(seq))
	}

	best := candidates[0]
	bestDist := diff(best, hi)
	for _, c := range candidates[1:] {
		if d := diff(c, hi); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func diff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// Add inserts a newly-arrived packet. Packets whose extended sequence
// number has already been delivered, or exactly duplicates one already
// buffered (RFC 7198), are rejected and counted rather than inserted.
func (b *Buffer) Add(seq uint16, timestamp uint32, payload []byte, marker, isSID bool) error {
	if len(payload) == 0 && !isSID {
		return ErrEmptyPayload
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.NumInputPkts++
	b.stats.NumPkts++

	if !b.haveBase {
		b.haveBase = true
		b.baseSeq = seq
		b.highestSeq = uint32(seq)
	}

	extSeq := b.extend(seq)

	if b.haveDelivered && extSeq <= b.lastDelivered {
		b.stats.NumPastdueFlush++
		return nil
	}

	if _, found := b.find(extSeq); found {
		b.stats.Num7198DuplicatePkts++
		logrus.WithFields(logrus.Fields{
			"function": "Buffer.Add",
			"seq":      seq,
		}).Debug("Rejected RFC 7198 duplicate packet")
		return nil
	}

	if extSeq < b.highestSeq {
		b.stats.NumInputOOO++
		ooo := int(b.highestSeq - extSeq)
		if ooo > b.stats.MaxInputOOO {
			b.stats.MaxInputOOO = ooo
		}
	} else if extSeq > b.highestSeq {
		b.highestSeq = extSeq
	}

	e := entry{extSeq: extSeq, seq: seq, timestamp: timestamp, payload: payload, marker: marker, isSID: isSID}
	b.insert(e)
	if isSID {
		b.lastSIDPayload = payload
		b.stats.SIDState = int(SIDStateActive)
	}

	if depth := len(b.entries); depth > b.stats.MaxNumPkts {
		b.stats.MaxNumPkts = depth
	}
	if depth := len(b.entries); b.cfg.MaxDelayPtimes > 0 && depth > b.cfg.MaxDelayPtimes {
		b.evictOldestLocked()
		b.stats.NumOverrunResync++
	}

	return nil
}

// find returns the index of extSeq in entries if already present.
func (b *Buffer) find(extSeq uint32) (int, bool) {
	i := sort.Search(len(b.entries), func(i int) bool { return b.entries[i].extSeq >= extSeq })
	if i < len(b.entries) && b.entries[i].extSeq == extSeq {
		return i, true
	}
	return i, false
}

func (b *Buffer) insert(e entry) {
	i := sort.Search(len(b.entries), func(i int) bool { return b.entries[i].extSeq >= e.extSeq })
	b.entries = append(b.entries, entry{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = e
}

func (b *Buffer) evictOldestLocked() {
	if len(b.entries) == 0 {
		return
	}
	b.entries = b.entries[1:]
	b.stats.NumPurges++
}

// Delivered is one packet (or a synthesized repair/DTX frame) handed
// back to the caller by Pull.
type Delivered struct {
	Timestamp uint32
	Payload   []byte
	Repaired  bool // synthesized loss/SID repair, not a received packet
	DTX       bool // synthesized DTX expansion frame
}

// Pull returns the next deliverable packet(s). A packet is deliverable
// once the buffer holds at least cfg.TargetDelayPtimes entries, counting
// itself (simple depth-gated release, generalized from the reference
// buffer's fixed-time gate to a configurable ptime-count gate). Missing
// sequence numbers within MaxLossPtimes are bridged with a repair frame
// rather than blocking delivery: a SID repeat if the channel was in DTX,
// otherwise, with PacketRepair, a Repaired frame whose Payload is nil
// (the last good frame is not repeated).
func (b *Buffer) Pull(flags PullFlags) []Delivered {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Delivered
	for {
		d, ok := b.pullOneLocked(flags)
		if !ok {
			break
		}
		out = append(out, d)
		if !flags.has(PullReturnAllDeliverable) {
			break
		}
	}
	return out
}

func (b *Buffer) pullOneLocked(flags PullFlags) (Delivered, bool) {
	target := b.cfg.TargetDelayPtimes
	if target < 1 {
		target = 1
	}
	if len(b.entries) < target {
		return Delivered{}, false
	}

	next := b.entries[0]
	expected := next.extSeq
	if b.haveDelivered {
		expected = b.lastDelivered + 1
	}

	if next.extSeq == expected {
		return b.deliverLocked(next), true
	}

	gap := int(next.extSeq - expected)

	// Gap resync: a jump too large to repair, ignored when the caller
	// wants every deliverable packet in one pass (see PullFlags doc).
	if flags.has(PullTimestampGapResync) && !flags.has(PullReturnAllDeliverable) && gap > b.cfg.gapThreshold() {
		b.stats.NumGapResync++
		b.lastDelivered = next.extSeq - 1
		b.haveDelivered = true
		b.consecMissing = 0
		return b.deliverLocked(next), true
	}

	if b.cfg.MaxLossPtimes > 0 && gap > b.cfg.MaxLossPtimes {
		// Loss exceeds what repair can bridge; flush forward to what we have.
		b.stats.NumPktLossFlush++
		b.lastDelivered = next.extSeq - 1
		b.haveDelivered = true
		b.consecMissing = 0
		return b.deliverLocked(next), true
	}

	// Bridge the single missing sequence number with a repair frame.
	b.stats.NumMissingSeqNum++
	b.consecMissing++
	if b.consecMissing > b.stats.MaxConsecMissingSeqNum {
		b.stats.MaxConsecMissingSeqNum = b.consecMissing
	}
	b.lastDelivered = expected
	b.haveDelivered = true

	if b.cfg.DTXEnable && b.cfg.SIDRepair && b.lastSIDPayload != nil {
		b.stats.NumSIDRepair++
		b.stats.SIDRepairInstance++
		b.stats.SIDState = int(SIDStateExpanding)
		return Delivered{Timestamp: next.timestamp, Payload: b.lastSIDPayload, Repaired: true, DTX: true}, true
	}
	if b.cfg.PacketRepair {
		return Delivered{Timestamp: next.timestamp, Payload: nil, Repaired: true}, true
	}

	// No repair configured: skip the gap and deliver what's buffered.
	return b.deliverLocked(next), true
}

func (b *Buffer) deliverLocked(e entry) Delivered {
	b.entries = b.entries[1:]
	b.lastDelivered = e.extSeq
	b.haveDelivered = true
	b.consecMissing = 0
	b.stats.NumOutputPkts++
	if e.isSID {
		b.stats.SIDState = int(SIDStateActive)
	}
	return Delivered{Timestamp: e.timestamp, Payload: e.payload}
}

// Depth returns the number of packets currently buffered.
func (b *Buffer) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Reset clears all buffered state, for a session's resync/restart path.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	b.haveBase = false
	b.haveDelivered = false
	b.consecMissing = 0
	b.lastSIDPayload = nil
	b.stats.NumPurges++
}
