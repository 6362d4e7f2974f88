package session

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalogic/mediaengine/pkg/packetcodec"
)

// MatchKeyFromView builds the matching 5-tuple the registry indexes
// sessions under, from a parsed packet view. PayloadType is part of the
// key because two sessions can otherwise share every IP/port but carry
// distinct encodings.
func MatchKeyFromView(v *packetcodec.PacketView) matchKey {
	return matchKey{
		srcIP:       v.SrcIP.String(),
		dstIP:       v.DstIP.String(),
		srcPort:     v.SrcPort,
		dstPort:     v.DstPort,
		payloadType: v.RTP.PayloadType,
	}
}

// Classify matches an incoming packet against the registry and, for a
// session with DynChanEnable set, spawns an RFC 8108 child channel the
// first time a new SSRC appears on that session's tuple. It never
// creates new top-level sessions; see CreateDynamic for that path,
// driven by the driver (cmd/mediaengine) on a true miss.
//
// Returns the matched session (nil on a miss), the child channel if the
// packet belongs to one (nil for the parent's own SSRC), and an ack:
// AckOK on any successful classification, AckSessionNotFound on a miss,
// AckChannelFull/AckDuplicateChannel if child creation was attempted and
// failed.
func Classify(r *Registry, v *packetcodec.PacketView, now time.Time) (*Session, *Channel, Ack) {
	key := MatchKeyFromView(v)
	sess, ok := r.Match(key, now)
	if !ok {
		return nil, nil, AckSessionNotFound
	}

	sess.mu.Lock()
	parentSSRC := sess.Term1.matchSSRC
	dynEnabled := sess.DynChanEnable
	if dynEnabled && parentSSRC == 0 {
		sess.Term1.AdoptSSRC(v.RTP.SSRC)
		parentSSRC = v.RTP.SSRC
	}
	sess.mu.Unlock()

	if !dynEnabled || v.RTP.SSRC == parentSSRC {
		return sess, nil, AckOK
	}

	if existing := sess.findChild(v.RTP.SSRC); existing != nil {
		return sess, existing, AckOK
	}

	ch, ack := sess.AddChild(v.RTP.SSRC, now)
	if ack != AckOK {
		logrus.WithFields(logrus.Fields{
			"function":   "Classify",
			"session_id": sess.ID.String(),
			"ssrc":       v.RTP.SSRC,
			"ack":        ack.String(),
		}).Warn("Failed to create RFC 8108 child channel")
		return sess, nil, ack
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Classify",
		"session_id": sess.ID.String(),
		"ssrc":       v.RTP.SSRC,
		"chan_num":   ch.ChanNum,
	}).Info("Created RFC 8108 child channel for new SSRC")

	return sess, ch, AckOK
}

// AdoptSSRC records the first-seen SSRC for a session's primary
// (non-child) stream, so later packets on the same tuple with a
// different SSRC are recognized as RFC 8108 siblings rather than
// silently overwriting the parent's stream identity.
func (t *Termination) AdoptSSRC(ssrc uint32) {
	t.matchSSRC = ssrc
}
