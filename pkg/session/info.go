package session

import (
	"github.com/google/uuid"

	"github.com/signalogic/mediaengine/pkg/codec"
)

// InfoField selects one attribute for GetInfo/SetInfo, matching the
// DS_SESSION_INFO_* item list spec.md §2 summarizes: codec handle,
// sample rate, codec type, group mode/id/owner/ptime, thread index,
// dynamic-channel list, term flags, max-loss-ptimes, name,
// current-active-channel, delete status, state.
type InfoField int

const (
	InfoCodecHandle InfoField = iota
	InfoSampleRate
	InfoCodecType
	InfoGroupMode
	InfoGroupID
	InfoGroupOwner
	InfoGroupPtime
	InfoThreadIndex
	InfoDynamicChannelList
	InfoTermFlags
	InfoMaxLossPtimes
	InfoName
	InfoCurrentActiveChannel
	InfoDeleteStatus
	InfoState
)

// GetInfo reads one field from a session. term selects Term1 or Term2
// for endpoint-scoped fields (codec handle, sample rate, codec type,
// term flags); it's ignored for session-scoped fields.
func (r *Registry) GetInfo(id uuid.UUID, field InfoField, term int) (any, Ack) {
	sess, ack := r.Get(id)
	if ack != AckOK {
		return nil, ack
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	t := &sess.Term1
	if term == 2 {
		t = &sess.Term2
	}

	switch field {
	case InfoCodecHandle:
		if term == 2 {
			return sess.EncoderHandle, AckOK
		}
		return sess.DecoderHandle, AckOK
	case InfoSampleRate:
		return t.SampleRate, AckOK
	case InfoCodecType:
		return t.CodecType, AckOK
	case InfoGroupMode:
		return t.GroupMode, AckOK
	case InfoGroupID:
		return t.GroupID, AckOK
	case InfoGroupOwner:
		return sess.ID == sess.groupOwnerID, AckOK
	case InfoGroupPtime:
		return t.Ptime, AckOK
	case InfoThreadIndex:
		return sess.WorkerIndex, AckOK
	case InfoDynamicChannelList:
		ssrcs := make([]uint32, len(sess.Children))
		for i, c := range sess.Children {
			ssrcs[i] = c.SSRC
		}
		return ssrcs, AckOK
	case InfoTermFlags:
		return t.Flags, AckOK
	case InfoMaxLossPtimes:
		return t.MaxLossPtimes, AckOK
	case InfoName:
		return sess.Name, AckOK
	case InfoCurrentActiveChannel:
		return sess.currentActiveChannel, AckOK
	case InfoDeleteStatus:
		return sess.DeleteStatus, AckOK
	case InfoState:
		return sess.State, AckOK
	default:
		return nil, AckInvalidSessionData
	}
}

// SetInfo writes one field on a session. Only the subset of fields that
// make sense to change after creation are settable; codec handles,
// sample rate, and codec type are fixed at Create time (changing them
// mid-session would orphan in-flight jitter-buffer state) and SetInfo
// rejects them with AckInvalidSessionData.
func (r *Registry) SetInfo(id uuid.UUID, field InfoField, term int, value any) Ack {
	sess, ack := r.Get(id)
	if ack != AckOK {
		return ack
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	t := &sess.Term1
	if term == 2 {
		t = &sess.Term2
	}

	switch field {
	case InfoGroupMode:
		v, ok := value.(uint32)
		if !ok {
			return AckInvalidSessionData
		}
		t.GroupMode = v
	case InfoGroupID:
		v, ok := value.(string)
		if !ok {
			return AckInvalidSessionData
		}
		t.GroupID = v
	case InfoThreadIndex:
		v, ok := value.(int)
		if !ok {
			return AckInvalidSessionData
		}
		sess.WorkerIndex = v
	case InfoTermFlags:
		v, ok := value.(TermFlags)
		if !ok {
			return AckInvalidSessionData
		}
		t.Flags = v
	case InfoMaxLossPtimes:
		v, ok := value.(int)
		if !ok {
			return AckInvalidSessionData
		}
		t.MaxLossPtimes = v
	case InfoName:
		v, ok := value.(string)
		if !ok {
			return AckInvalidSessionData
		}
		sess.Name = v
	case InfoCurrentActiveChannel:
		v, ok := value.(int)
		if !ok {
			return AckInvalidSessionData
		}
		sess.currentActiveChannel = v
	default:
		return AckInvalidSessionData
	}
	return AckOK
}

// SetCodecHandles records the decoder/encoder handles a session uses,
// set once by the codec-estimation step on session creation (§4.F).
func (r *Registry) SetCodecHandles(id uuid.UUID, decoder, encoder codec.Handle) Ack {
	sess, ack := r.Get(id)
	if ack != AckOK {
		return ack
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.DecoderHandle = decoder
	sess.EncoderHandle = encoder
	return AckOK
}

// SetGroupOwner marks id as the owning session of its GroupID: the
// first session to register a given group-id string becomes its owner
// per spec.md §2.
func (r *Registry) SetGroupOwner(id uuid.UUID) Ack {
	sess, ack := r.Get(id)
	if ack != AckOK {
		return ack
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.groupOwnerID = id
	return AckOK
}
