package session

import (
	"net"
	"time"
)

// IPType distinguishes the IP version a Termination's addresses use.
// Registry.Create rejects a Termination whose RemoteIP/LocalIP don't
// agree on IPType with AckInvalidIPType.
type IPType int

const (
	IPTypeV4 IPType = iota
	IPTypeV6
)

// TermFlags are the per-endpoint behavior toggles the spec's glossary
// lists on Termination: DTX handling, loss/SID repair, overrun
// resynchronization, and hold-off before advancing on silence.
type TermFlags uint32

const (
	TermFlagDTXEnable TermFlags = 1 << iota
	TermFlagSIDRepair
	TermFlagPacketRepair
	TermFlagOverrunSync
	TermFlagTimestampHoldOff
	TermFlagDormantSSRCDetection

	// TermFlagPullJitterBuffer requests the JITTER_BUFFER pull category
	// for this termination: delivered packets are enqueued to egress
	// undecoded instead of being routed through Decode/Encode.
	TermFlagPullJitterBuffer
)

// Has reports whether all bits in want are set.
func (f TermFlags) Has(want TermFlags) bool { return f&want == want }

// Termination is one endpoint of a Session: remote/local IP+port,
// codec identity and timing, and jitter-buffer sizing, per spec.md's
// Termination glossary entry.
type Termination struct {
	IPType     IPType
	RemoteIP   net.IP
	RemotePort uint16
	LocalIP    net.IP
	LocalPort  uint16

	CodecType   string
	BitRate     uint32
	SampleRate  uint32
	Ptime       time.Duration
	PayloadType uint8

	Flags TermFlags

	// Jitter-buffer sizing, in ptime units (see pkg/jitter for the
	// buffer this configures).
	JitterTargetDelayPtimes int
	JitterMinDelayPtimes    int
	JitterMaxDelayPtimes    int
	MaxLossPtimes           int

	// GroupID is the stream-group this termination contributes to, if
	// any; the empty string means no group membership. GroupMode is a
	// GROUP_MODE_* / STREAM_GROUP_ENABLE_* bitmask, interpreted by
	// pkg/mixer, carried here only so GetInfo/SetInfo can read or
	// change it per-session.
	GroupID   string
	GroupMode uint32

	// matchSSRC is the first SSRC observed on this termination's tuple;
	// used by Classify to recognize later SSRCs on the same tuple as
	// RFC 8108 children rather than the parent stream. Zero means no
	// packet has been classified against this termination yet.
	matchSSRC uint32
}

// Validate reports AckInvalidIPType or AckInvalidTermInfo for a
// Termination that Registry.Create cannot accept.
func (t Termination) Validate() Ack {
	if t.RemoteIP == nil || t.LocalIP == nil {
		return AckInvalidTermInfo
	}
	remoteIs4 := t.RemoteIP.To4() != nil
	localIs4 := t.LocalIP.To4() != nil
	if remoteIs4 != localIs4 {
		return AckInvalidIPType
	}
	wantV4 := t.IPType == IPTypeV4
	if remoteIs4 != wantV4 {
		return AckInvalidIPType
	}
	if t.RemotePort == 0 || t.LocalPort == 0 {
		return AckInvalidTermInfo
	}
	if t.Ptime <= 0 || t.SampleRate == 0 {
		return AckInvalidTermInfo
	}
	return AckOK
}

// matchKey identifies the 5-tuple Registry uses to classify an incoming
// packet into an existing session: (srcIP, dstIP, srcPort, dstPort,
// payload type). RFC 8108 child channels share everything but SSRC, so
// the SSRC is deliberately absent from the key the parent session
// matches on; see pkg/session/child.go for how children key further.
type matchKey struct {
	srcIP, dstIP     string
	srcPort, dstPort uint16
	payloadType      uint8
}

func newMatchKey(t Termination) matchKey {
	return matchKey{
		srcIP:       t.RemoteIP.String(),
		dstIP:       t.LocalIP.String(),
		srcPort:     t.RemotePort,
		dstPort:     t.LocalPort,
		payloadType: t.PayloadType,
	}
}
