// Package session implements the session/channel registry: explicit and
// dynamic session creation, RFC 8108 child-channel fan-out, and the
// GetInfo/SetInfo field-selector API spec.md §2/§3 describe.
//
// There is no package-level singleton here; a Registry is an explicit
// value a pipeline.Engine owns and passes to every call, matching the
// spec's Design Notes §9 preference for an explicit Engine over a
// global table (the original C SDK's hSession/hChannel handle tables).
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxSessions bounds total concurrent sessions a Registry will hold,
// mirroring the original SDK's static session table ceiling.
const MaxSessions = 4096

// Registry owns every live Session, indexed both by id (for
// GetInfo/SetInfo/Delete) and by matching 5-tuple (for packet
// classification on ingress).
type Registry struct {
	mu sync.RWMutex

	sessions map[uuid.UUID]*Session
	byMatch  map[matchKey]*Session

	// DynamicMode mirrors the original driver's DYNAMIC_CALL mode: an
	// unmatched packet creates a session instead of being dropped. See
	// CreateDynamic.
	DynamicMode bool
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		byMatch:  make(map[matchKey]*Session),
	}
}

// Create registers a new explicit session for (term1, term2). Returns
// AckDuplicateSession if a session is already indexed under term1's
// matching 5-tuple.
func (r *Registry) Create(term1, term2 Termination) (uuid.UUID, Ack) {
	if ack := term1.Validate(); ack != AckOK {
		return uuid.Nil, ack
	}
	if ack := term2.Validate(); ack != AckOK {
		return uuid.Nil, ack
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= MaxSessions {
		return uuid.Nil, AckSessionFull
	}

	key := newMatchKey(term1)
	if _, exists := r.byMatch[key]; exists {
		return uuid.Nil, AckDuplicateSession
	}

	id := uuid.New()
	now := time.Now()
	sess := newSession(id, term1, term2, now)
	sess.UserManaged = true

	r.sessions[id] = sess
	r.byMatch[key] = sess

	logrus.WithFields(logrus.Fields{
		"function":   "Registry.Create",
		"session_id": id.String(),
	}).Info("Created session")

	return id, AckOK
}

// Delete marks a session for deletion. The registry keeps the entry
// around (State/DeleteStatus visible via GetInfo) until Reap removes it
// once the pipeline confirms its queues have drained.
func (r *Registry) Delete(id uuid.UUID) Ack {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return AckSessionNotFound
	}
	sess.RequestFlush()
	return AckOK
}

// Reap removes sessions whose DeleteStatus is DeleteStatusComplete,
// returning the count removed. The pipeline package calls this once per
// scheduling pass after observing drained queues.
func (r *Registry) Reap() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		sess.mu.RLock()
		done := sess.DeleteStatus == DeleteStatusComplete
		sess.mu.RUnlock()
		if !done {
			continue
		}
		delete(r.sessions, id)
		delete(r.byMatch, newMatchKey(sess.Term1))
		removed++
	}
	return removed
}

// Get returns the session for id, or AckSessionNotFound.
func (r *Registry) Get(id uuid.UUID) (*Session, Ack) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, AckSessionNotFound
	}
	return sess, AckOK
}

// Match looks a packet's 5-tuple up against registered sessions,
// touching the session's activity timestamp on a hit.
func (r *Registry) Match(key matchKey, now time.Time) (*Session, bool) {
	r.mu.RLock()
	sess, ok := r.byMatch[key]
	r.mu.RUnlock()
	if ok {
		sess.touch(now)
	}
	return sess, ok
}

// CreateDynamic registers a session on first unmatched packet, per
// spec.md §2's "Dynamic session creation": the caller (the driver in
// cmd/mediaengine) has already built a Termination pair from the
// packet's 5-tuple; CreateDynamic just does the registry bookkeeping
// with DynamicMode gating and UserManaged left false.
func (r *Registry) CreateDynamic(term1, term2 Termination) (uuid.UUID, Ack) {
	r.mu.RLock()
	enabled := r.DynamicMode
	r.mu.RUnlock()
	if !enabled {
		return uuid.Nil, AckUnexpectedCommand
	}

	id, ack := r.Create(term1, term2)
	if ack != AckOK {
		return id, ack
	}

	r.mu.RLock()
	sess := r.sessions[id]
	r.mu.RUnlock()
	sess.mu.Lock()
	sess.UserManaged = false
	sess.mu.Unlock()

	return id, AckOK
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns every live session id, for callers (the driver's tick and
// auto-rate sampling loops) that need to enumerate sessions without a
// package-level iterator.
func (r *Registry) IDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// String implements fmt.Stringer for diagnostic logging.
func (r *Registry) String() string {
	return fmt.Sprintf("Registry{sessions=%d}", r.Len())
}
