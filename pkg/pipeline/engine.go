package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalogic/mediaengine/pkg/codec"
	"github.com/signalogic/mediaengine/pkg/jitter"
	"github.com/signalogic/mediaengine/pkg/packetcodec"
	"github.com/signalogic/mediaengine/pkg/queue"
	"github.com/signalogic/mediaengine/pkg/session"
)

// IngressCapacity and EgressCapacity size each session's push/pull
// queues (§4.D: two bounded ring buffers per session per direction).
const (
	IngressCapacity = 256
	EgressCapacity  = 256
)

// PullCategory selects which egress sub-ring a caller wants to drain,
// mirroring the JITTER_BUFFER / TRANSCODED / STREAM_GROUP pull flags.
type PullCategory = queue.Category

// CategoryAny requests all categories from Pull, for a session=-1-style
// drain across sub-rings instead of one specific category.
const CategoryAny PullCategory = -1

// channelState is one channel's (parent or RFC 8108 child) mutable
// per-tick state: its jitter buffer and RTP framing cursor for
// transcoded/group output.
type channelState struct {
	buffer  *jitter.Buffer
	nextSeq uint16
	haveSeq bool
}

type sessionState struct {
	ingress *queue.Ring[*packetcodec.PacketView]
	egress  *queue.Ring[EncodedPacket]

	mu       sync.Mutex
	channels map[uint32]*channelState // keyed by SSRC, 0 for the parent before any SSRC is adopted

	lastPullPtime time.Time
}

// Engine wires the session registry, jitter buffers, codec registry,
// and per-session queues together. It is the single explicit value a
// Worker's ticker (Tick) and the capture/driver loop (Push) both hold,
// per the Design Notes preference for an owned value over package
// globals.
type Engine struct {
	Registry *session.Registry
	Codecs   *codec.Registry

	ptime time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionState
	mixer    GroupContributor
}

// NewEngine builds an Engine bound to registry and codecs, ticking
// jitter-buffer pulls on the given ptime boundary.
func NewEngine(registry *session.Registry, codecs *codec.Registry, ptime time.Duration) *Engine {
	if ptime <= 0 {
		ptime = 20 * time.Millisecond
	}
	return &Engine{
		Registry: registry,
		Codecs:   codecs,
		ptime:    ptime,
		sessions: make(map[uuid.UUID]*sessionState),
	}
}

// Attach creates the ingress/egress queues and channel buffer map for
// a newly created session. Called once, after session.Registry.Create
// or CreateDynamic succeeds.
func (e *Engine) Attach(id uuid.UUID, cfg jitter.Config) {
	st := &sessionState{
		ingress:  queue.New[*packetcodec.PacketView](queue.CategoryIngress, IngressCapacity),
		egress:   queue.New[EncodedPacket](queue.CategoryEgress, EgressCapacity),
		channels: map[uint32]*channelState{0: {buffer: jitter.New(cfg)}},
	}
	e.mu.Lock()
	e.sessions[id] = st
	e.mu.Unlock()
}

// Detach drops a session's queues and buffers once the registry has
// reaped it (DeleteStatusComplete).
func (e *Engine) Detach(id uuid.UUID) {
	e.mu.Lock()
	delete(e.sessions, id)
	e.mu.Unlock()
}

func (e *Engine) state(id uuid.UUID) (*sessionState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.sessions[id]
	return st, ok
}

// Push classifies an arriving packet against the registry (matching
// the parent session, or adopting or spawning an RFC 8108 child) and
// enqueues it on the matched session's ingress ring. It never creates
// a session: on a miss it returns uuid.Nil and the registry's ack
// (AckSessionNotFound). A refused child returns the session ID with the
// refusal ack, and a full ingress ring returns AckQueueFull.
func (e *Engine) Push(v *packetcodec.PacketView, now time.Time) (uuid.UUID, session.Ack) {
	sess, _, ack := session.Classify(e.Registry, v, now)
	if sess == nil {
		return uuid.Nil, ack
	}
	if !ack.Ok() {
		// Child creation was attempted and refused (AckChannelFull,
		// AckDuplicateChannel): the packet belongs to no recognized
		// channel, so it must not be buffered under AckOK.
		return sess.ID, ack
	}

	st, ok := e.state(sess.ID)
	if !ok {
		return uuid.Nil, session.AckSessionNotFound
	}
	if err := st.ingress.Push(v); err != nil {
		return sess.ID, session.AckQueueFull
	}
	return sess.ID, session.AckOK
}

// Pull drains up to maxN egress items of the given category for a
// session (§4.D Pull(max_n) with a category flag).
func (e *Engine) Pull(id uuid.UUID, category PullCategory, maxN int) []EncodedPacket {
	st, ok := e.state(id)
	if !ok {
		return nil
	}
	out := make([]EncodedPacket, 0, maxN)
	for len(out) < maxN {
		p, ok := st.egress.Pull()
		if !ok {
			break
		}
		if category != CategoryAny && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// EgressLevel reports a session's egress queue occupancy and capacity,
// for the driver's auto-rate controller (§4.I) to sample against its
// high/low water marks.
func (e *Engine) EgressLevel(id uuid.UUID) (length, capacity int, ok bool) {
	st, ok := e.state(id)
	if !ok {
		return 0, 0, false
	}
	return st.egress.Len(), st.egress.Cap(), true
}

// channelFor returns the per-SSRC jitter-buffer state for sess,
// creating it on first sight of ssrc. It refuses to create state for an
// ssrc sess doesn't recognize as its parent stream or an already
// registered RFC 8108 child (e.g. one Classify rejected with
// AckChannelFull), so a session's child-channel cap also bounds how
// many channelStates the pipeline accumulates for it. Without
// DynChanEnable, Classify treats every SSRC on the tuple as the parent
// stream, so no SSRC is refused.
func (e *Engine) channelFor(st *sessionState, sess *session.Session, ssrc uint32, cfg jitter.Config) (*channelState, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if cs, ok := st.channels[ssrc]; ok {
		return cs, true
	}
	if sess.DynChanEnable && !sess.Recognizes(ssrc) {
		return nil, false
	}
	cs := &channelState{buffer: jitter.New(cfg)}
	st.channels[ssrc] = cs
	return cs, true
}
