package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalogic/mediaengine/pkg/codec"
)

// State is a session's lifecycle stage, per spec.md §2's Session
// description: NEW -> ACTIVE on first push, ACTIVE -> FLUSH_PACKETS on
// explicit request or end-of-input, FLUSH -> DELETE_PENDING once queues
// drain.
type State int

const (
	StateNew State = iota
	StateActive
	StateFlushPackets
	StateDeletePending
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateActive:
		return "active"
	case StateFlushPackets:
		return "flush_packets"
	case StateDeletePending:
		return "delete_pending"
	default:
		return "unknown"
	}
}

// DeleteStatus is kept distinct from State: a session can be
// ACTIVE/FLUSH_PACKETS while a delete has already been requested and is
// waiting on queues to drain, and GetInfo callers need to see both the
// lifecycle stage and whether a delete is already in flight.
type DeleteStatus int

const (
	DeleteStatusNone DeleteStatus = iota
	DeleteStatusPending
	DeleteStatusComplete
)

// Channel is one dynamically-created RFC 8108 child of a Session: a new
// SSRC appearing on a session's already-matched 5-tuple, sharing the
// parent's Termination but tracked (and jitter-buffered) independently.
type Channel struct {
	ParentID uuid.UUID
	ChanNum  int
	SSRC     uint32

	DecoderHandle codec.Handle
	EncoderHandle codec.Handle

	// DormantSSRCDetection is deliberately per-channel only: the spec's
	// GROUP_MODE_DISABLE_DORMANT_SSRC_DETECTION flag in the original
	// source applies group-wide, but nothing in the source ties
	// dormant-SSRC detection itself to a group-level default, so this
	// engine decides it per child channel and does not expose a
	// group-level override.
	DormantSSRCDetection bool

	CreatedAt time.Time
}

// Session is a call context with two endpoints, matching spec.md §2.
// Term1 is normally the receive/decode side (holds DecoderHandle),
// Term2 the transmit/encode side (holds EncoderHandle); GroupTerm and
// GroupEncoderHandle are populated only when the session contributes to
// a stream group (pkg/mixer).
type Session struct {
	mu sync.RWMutex

	ID uuid.UUID

	Term1, Term2 Termination
	GroupTerm    *Termination

	DecoderHandle      codec.Handle
	EncoderHandle      codec.Handle
	GroupEncoderHandle codec.Handle

	State        State
	DeleteStatus DeleteStatus

	WorkerIndex int

	// UserManaged mirrors DS_SESSION_USER_MANAGED: the session was
	// created by an explicit command rather than dynamic first-packet
	// matching, and so is never auto-deleted on idle timeout.
	UserManaged bool
	// DynChanEnable mirrors DS_SESSION_DYN_CHAN_ENABLE (RFC 8108): a new
	// SSRC on this session's matched tuple spawns a Channel instead of
	// being rejected or merged into the existing stream.
	DynChanEnable bool
	// DisableNetIO mirrors DS_SESSION_DISABLE_NETIO. It is recorded on
	// the session only; the pipeline does not read it.
	DisableNetIO bool
	// NoJitterBuffer mirrors DS_SESSION_NO_JITTERBUFFER. It is recorded
	// on the session only; the pipeline does not read it, and every
	// packet still goes through the jitter buffer.
	NoJitterBuffer bool

	Children []*Channel

	Name string

	groupOwnerID         uuid.UUID
	currentActiveChannel int

	createdAt    time.Time
	lastActivity time.Time
}

func newSession(id uuid.UUID, term1, term2 Termination, now time.Time) *Session {
	return &Session{
		ID:           id,
		Term1:        term1,
		Term2:        term2,
		State:        StateNew,
		DeleteStatus: DeleteStatusNone,
		createdAt:    now,
		lastActivity: now,
	}
}

// touch marks activity on the session, promoting NEW to ACTIVE on first
// push per spec.md §2.
func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StateNew {
		s.State = StateActive
	}
	s.lastActivity = now
}

// RequestFlush transitions ACTIVE -> FLUSH_PACKETS. A session not in
// ACTIVE state is left unchanged; flush only makes sense once a session
// has seen traffic.
func (s *Session) RequestFlush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StateActive {
		s.State = StateFlushPackets
	}
	s.DeleteStatus = DeleteStatusPending
}

// CompleteFlush transitions FLUSH_PACKETS -> DELETE_PENDING once the
// pipeline reports this session's queues are empty.
func (s *Session) CompleteFlush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StateFlushPackets {
		s.State = StateDeletePending
	}
	s.DeleteStatus = DeleteStatusComplete
}

// AddChild registers a new RFC 8108 child channel for a new SSRC seen on
// this session's matched tuple. Returns AckChannelFull if MaxChildChannels is
// already reached, AckDuplicateChannel if ssrc is already a child.
func (s *Session) AddChild(ssrc uint32, now time.Time) (*Channel, Ack) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.Children {
		if c.SSRC == ssrc {
			return nil, AckDuplicateChannel
		}
	}
	if len(s.Children) >= MaxChildChannels {
		return nil, AckChannelFull
	}

	ch := &Channel{
		ParentID:  s.ID,
		ChanNum:   len(s.Children) + 1,
		SSRC:      ssrc,
		CreatedAt: now,
	}
	s.Children = append(s.Children, ch)
	return ch, AckOK
}

// MaxChildChannels bounds RFC 8108 fan-out per session, matching the
// original SDK's per-session dynamic channel ceiling.
const MaxChildChannels = 8

// Recognizes reports whether ssrc belongs to this session: either its
// adopted parent stream or an already-registered RFC 8108 child. Callers
// outside this package use it to refuse creating per-channel state for
// an SSRC that Classify/AddChild never admitted (e.g. AckChannelFull),
// instead of trusting every distinct SSRC on the wire.
func (s *Session) Recognizes(ssrc uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Term1.matchSSRC == ssrc {
		return true
	}
	for _, c := range s.Children {
		if c.SSRC == ssrc {
			return true
		}
	}
	return false
}

// findChild returns the existing child channel for ssrc, or nil.
func (s *Session) findChild(ssrc uint32) *Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.Children {
		if c.SSRC == ssrc {
			return c
		}
	}
	return nil
}
