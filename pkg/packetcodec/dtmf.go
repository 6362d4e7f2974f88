package packetcodec

import "fmt"

// DTMFContent distinguishes the two shapes a telephone-event payload can
// take: a single self-contained event packet, or one packet in a
// session of repeated events sharing an RTP timestamp (RFC 4733 §2.5.1.3
// calls for retransmitting the end-of-event packet up to three times
// for loss resilience, which looks like a short burst of duplicates to
// a naive reader).
type DTMFContent int

const (
	// DTMFContentSingle is a standalone telephone-event payload.
	DTMFContentSingle DTMFContent = iota
	// DTMFContentSession is one packet within a repeated end-of-event
	// burst at the same RTP timestamp.
	DTMFContentSession
)

// DTMFInfo is the decoded RFC 4733 telephone-event payload: event code
// (0-9, *, #, A-D, and the ANS/flash extensions), end-of-event flag,
// volume in -dBm0 (0 = loudest), and duration in timestamp units.
type DTMFInfo struct {
	Event      uint8
	EndOfEvent bool
	Volume     uint8
	Duration   uint16
	Content    DTMFContent
}

// GetDTMFInfo decodes an RFC 4733 telephone-event payload:
//
//	0                   1                   2                   3
//	0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|     event     |E|R| volume    |          duration             |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// lastTimestamp/haveLast let the caller classify a repeated
// end-of-event packet as DTMFContentSession rather than a fresh event;
// pass 0, false for the first packet on a channel.
func GetDTMFInfo(payload []byte, lastTimestamp uint32, haveLast bool, thisTimestamp uint32) (DTMFInfo, error) {
	if len(payload) < 4 {
		return DTMFInfo{}, fmt.Errorf("packetcodec: DTMF payload too short: %d bytes", len(payload))
	}

	info := DTMFInfo{
		Event:      payload[0],
		EndOfEvent: payload[1]&0x80 != 0,
		Volume:     payload[1] & 0x3f,
		Duration:   uint16(payload[2])<<8 | uint16(payload[3]),
		Content:    DTMFContentSingle,
	}

	if info.EndOfEvent && haveLast && thisTimestamp == lastTimestamp {
		info.Content = DTMFContentSession
	}

	return info, nil
}
