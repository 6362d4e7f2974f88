package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/signalogic/mediaengine/pkg/jitter"
	"github.com/signalogic/mediaengine/pkg/packetcodec"
	"github.com/signalogic/mediaengine/pkg/queue"
	"github.com/signalogic/mediaengine/pkg/scheduler"
	"github.com/signalogic/mediaengine/pkg/session"
)

// maxInputPerTick bounds how many ingress packets one tick drains per
// session, keeping a single worker's tick bounded even under a burst.
const maxInputPerTick = 32

// GroupContributor is the hook pipeline.Tick calls once a session's
// decoded samples are ready, letting pkg/mixer collect per-contributor
// audio and produce mixed group output without this package depending
// on the mixer package directly.
type GroupContributor interface {
	Contribute(groupID string, sessionID uuid.UUID, ssrc uint32, samples []int16, timestamp uint32)
	Mix(groupID string, now time.Time) (samples []int16, timestamp uint32, ok bool)
}

var _ scheduler.SessionTicker = (*Engine)(nil)

// SetMixer wires a stream-group contributor sink. Sessions whose
// Term1.GroupID is non-empty hand decoded samples to it instead of
// encoding and emitting transcoded output themselves.
func (e *Engine) SetMixer(m GroupContributor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mixer = m
}

// Tick implements scheduler.SessionTicker: one worker-loop iteration's
// worth of manage/input/buffer/pull/decode/encode/group/stats work for
// a single session, per §4.F.
func (e *Engine) Tick(ctx context.Context, sessionID uuid.UUID, rec scheduler.Recorder) (bool, error) {
	start := time.Now()
	sess, ack := e.Registry.Get(sessionID)
	rec.Record(scheduler.OpManage, time.Since(start))
	if !ack.Ok() {
		return false, ErrSessionNotFound
	}

	st, ok := e.state(sessionID)
	if !ok {
		return false, ErrSessionNotFound
	}

	if sess.State == session.StateFlushPackets && st.ingress.Empty() && st.egress.Empty() {
		sess.CompleteFlush()
	}

	active := e.inputAndBuffer(sess, st, rec)

	if time.Since(st.lastPullPtime) >= e.ptime {
		st.lastPullPtime = time.Now()
		e.pullDecodeEncode(sess, st, rec)
		e.mixGroupIfOwner(sess, st, rec)
	}

	return active, nil
}

// mixGroupIfOwner runs §4.F step 6 (Mix, owner session only, one per
// group per ptime): if sess is the group it belongs to's registered
// owner, ask the wired GroupContributor for this tick's mixed frame,
// encode it with the owner's group encoder handle, and push it to the
// owner's own egress tagged CategoryStreamGroup.
func (e *Engine) mixGroupIfOwner(sess *session.Session, st *sessionState, rec scheduler.Recorder) {
	if sess.Term1.GroupID == "" {
		return
	}
	e.mu.RLock()
	mixer := e.mixer
	e.mu.RUnlock()
	if mixer == nil {
		return
	}

	info, ack := e.Registry.GetInfo(sess.ID, session.InfoGroupOwner, 1)
	if !ack.Ok() {
		return
	}
	isOwner, _ := info.(bool)
	if !isOwner {
		return
	}

	groupStart := time.Now()
	samples, timestamp, ok := mixer.Mix(sess.Term1.GroupID, groupStart)
	rec.Record(scheduler.OpGroup, time.Since(groupStart))
	if !ok {
		return
	}

	encHandle := sess.GroupEncoderHandle
	if encHandle == 0 {
		encHandle = sess.EncoderHandle
	}

	encodeStart := time.Now()
	payload, err := e.Codecs.Encode(encHandle, samples, len(samples))
	rec.Record(scheduler.OpEncode, time.Since(encodeStart))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Engine.mixGroupIfOwner",
			"session":  sess.ID,
			"group":    sess.Term1.GroupID,
			"error":    err,
		}).Warn("Dropping unencodable group mix output")
		return
	}

	pkt := EncodedPacket{
		Category:  queue.CategoryStreamGroup,
		Timestamp: timestamp,
		Payload:   payload,
		At:        time.Now(),
	}
	if err := st.egress.Push(pkt); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Engine.mixGroupIfOwner",
			"session":  sess.ID,
		}).Debug("Egress full, dropping group mix output")
	}
}

func (e *Engine) inputAndBuffer(sess *session.Session, st *sessionState, rec scheduler.Recorder) bool {
	inStart := time.Now()
	pulled := make([]*packetcodec.PacketView, 0, maxInputPerTick)
	for i := 0; i < maxInputPerTick; i++ {
		pv, ok := st.ingress.Pull()
		if !ok {
			break
		}
		pulled = append(pulled, pv)
	}
	rec.Record(scheduler.OpInput, time.Since(inStart))

	bufStart := time.Now()
	cfg := jitterConfigFor(sess.Term1)
	for _, pv := range pulled {
		cs, ok := e.channelFor(st, sess, pv.RTP.SSRC, cfg)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.inputAndBuffer",
				"session":  sess.ID,
				"ssrc":     pv.RTP.SSRC,
			}).Debug("Dropping packet for unrecognized SSRC")
			continue
		}
		isSID := isLikelySID(pv.Payload)
		if err := cs.buffer.Add(pv.RTP.SequenceNumber, pv.RTP.Timestamp, pv.Payload, pv.RTP.Marker, isSID); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.inputAndBuffer",
				"session":  sess.ID,
				"ssrc":     pv.RTP.SSRC,
				"error":    err,
			}).Debug("Dropping packet rejected by jitter buffer")
		}
	}
	rec.Record(scheduler.OpBuffer, time.Since(bufStart))

	return len(pulled) > 0
}

func jitterConfigFor(t session.Termination) jitter.Config {
	return jitter.Config{
		TargetDelayPtimes: t.JitterTargetDelayPtimes,
		MinDelayPtimes:    t.JitterMinDelayPtimes,
		MaxDelayPtimes:    t.JitterMaxDelayPtimes,
		MaxLossPtimes:     t.MaxLossPtimes,
		SIDRepair:         t.Flags.Has(session.TermFlagSIDRepair),
		PacketRepair:      t.Flags.Has(session.TermFlagPacketRepair),
		DTXEnable:         t.Flags.Has(session.TermFlagDTXEnable),
	}
}

// isLikelySID approximates DTX silence-frame detection from payload
// size alone: any 1-7 byte payload counts as SID, so an 8-byte SID
// frame is not detected (AMR/EVS SID frames are 6-8 bytes); the real decoder's
// frame-type byte is authoritative and would refine this in a full
// codec integration.
func isLikelySID(payload []byte) bool {
	return len(payload) > 0 && len(payload) <= 7
}

func (e *Engine) pullDecodeEncode(sess *session.Session, st *sessionState, rec scheduler.Recorder) {
	chanStart := time.Now()
	st.mu.Lock()
	ssrcs := make([]uint32, 0, len(st.channels))
	channels := make([]*channelState, 0, len(st.channels))
	for ssrc, cs := range st.channels {
		ssrcs = append(ssrcs, ssrc)
		channels = append(channels, cs)
	}
	st.mu.Unlock()
	rec.Record(scheduler.OpChan, time.Since(chanStart))

	for i, cs := range channels {
		pullStart := time.Now()
		delivered := cs.buffer.Pull(jitter.PullReturnAllDeliverable)
		rec.Record(scheduler.OpPull, time.Since(pullStart))

		for _, d := range delivered {
			e.decodeAndEmit(sess, st, cs, ssrcs[i], d, rec)
		}
	}
}

func (e *Engine) decodeAndEmit(sess *session.Session, st *sessionState, cs *channelState, ssrc uint32, d jitter.Delivered, rec scheduler.Recorder) {
	if sess.Term1.Flags.Has(session.TermFlagPullJitterBuffer) {
		cs.nextSeq++
		pkt := EncodedPacket{
			Category:  queue.CategoryJitterBuffer,
			SSRC:      ssrc,
			Seq:       cs.nextSeq,
			Timestamp: d.Timestamp,
			Payload:   d.Payload,
			Repaired:  d.Repaired,
			DTX:       d.DTX,
			At:        time.Now(),
		}
		if err := st.egress.Push(pkt); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.decodeAndEmit",
				"session":  sess.ID,
			}).Debug("Egress full, dropping jitter-buffer passthrough packet")
		}
		return
	}

	decodeStart := time.Now()
	samples, err := e.Codecs.Decode(sess.DecoderHandle, d.Payload)
	rec.Record(scheduler.OpDecode, time.Since(decodeStart))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Engine.decodeAndEmit",
			"session":  sess.ID,
			"ssrc":     ssrc,
			"error":    err,
		}).Warn("Dropping undecodable payload")
		return
	}

	groupStart := time.Now()
	grouped := false
	e.mu.RLock()
	mixer := e.mixer
	e.mu.RUnlock()
	if sess.Term1.GroupID != "" && mixer != nil {
		mixer.Contribute(sess.Term1.GroupID, sess.ID, ssrc, samples, d.Timestamp)
		grouped = true
	}
	rec.Record(scheduler.OpGroup, time.Since(groupStart))
	if grouped {
		return
	}

	encodeStart := time.Now()
	payload, err := e.Codecs.Encode(sess.EncoderHandle, samples, len(samples))
	rec.Record(scheduler.OpEncode, time.Since(encodeStart))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Engine.decodeAndEmit",
			"session":  sess.ID,
			"ssrc":     ssrc,
			"error":    err,
		}).Warn("Dropping unencodable samples")
		return
	}

	cs.nextSeq++
	pkt := EncodedPacket{
		Category:  queue.CategoryTranscoded,
		SSRC:      ssrc,
		Seq:       cs.nextSeq,
		Timestamp: d.Timestamp,
		Payload:   payload,
		Repaired:  d.Repaired,
		DTX:       d.DTX,
		At:        time.Now(),
	}
	if err := st.egress.Push(pkt); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Engine.decodeAndEmit",
			"session":  sess.ID,
		}).Debug("Egress full, dropping transcoded packet")
	}
}
