package mixer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Registry owns every active stream group, keyed by the GroupID string
// member sessions share on Termination.GroupID. It implements
// pipeline.GroupContributor, so pkg/pipeline never imports pkg/mixer
// directly.
type Registry struct {
	mu         sync.Mutex
	groups     map[string]*Group
	defaultCfg Config
}

// NewRegistry builds a Registry; defaultCfg seeds every group created
// implicitly on first Contribute. Callers that need per-group
// configuration (a non-default overrun policy, dedup enabled, a
// non-default sample rate) should call Ensure explicitly before any
// session starts contributing.
func NewRegistry(defaultCfg Config) *Registry {
	return &Registry{groups: make(map[string]*Group), defaultCfg: defaultCfg}
}

// Ensure returns the group for id, creating it with cfg if this is the
// first reference. Returns the existing group unchanged if one already
// exists, even if cfg differs — group configuration is fixed at first
// contact, matching session.Registry.SetGroupOwner's "first session to
// register a group id becomes its owner" rule.
func (r *Registry) Ensure(id string, ownerID uuid.UUID, cfg Config) (*Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[id]; ok {
		return g, nil
	}
	g, err := NewGroup(id, ownerID, cfg)
	if err != nil {
		return nil, err
	}
	r.groups[id] = g
	return g, nil
}

func (r *Registry) ensureDefault(id string) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[id]; ok {
		return g
	}
	// NewGroup only fails on ModeEnableConferencing, never set by
	// defaultCfg's zero value, so the error is unreachable here.
	g, _ := NewGroup(id, uuid.Nil, r.defaultCfg)
	r.groups[id] = g
	return g
}

// Get returns the group for id, if one has been created.
func (r *Registry) Get(id string) (*Group, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	return g, ok
}

// Remove drops a group, e.g. once its owner session is deleted.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, id)
}

// Contribute implements pipeline.GroupContributor: stage one decoded
// frame from a member session's channel into its group.
func (r *Registry) Contribute(groupID string, sessionID uuid.UUID, ssrc uint32, samples []int16, timestamp uint32) {
	g := r.ensureDefault(groupID)
	g.contribute(sessionID, ssrc, samples, timestamp, time.Now())
}

// Mix implements pipeline.GroupContributor's owner-side hook: produce
// one group frame, or ok=false if the group has no contributor data
// this tick.
func (r *Registry) Mix(groupID string, now time.Time) (samples []int16, timestamp uint32, ok bool) {
	r.mu.Lock()
	g, exists := r.groups[groupID]
	r.mu.Unlock()
	if !exists {
		logrus.WithFields(logrus.Fields{
			"function": "Registry.Mix",
			"group":    groupID,
		}).Debug("Mix requested for unknown group")
		return nil, 0, false
	}
	return g.mix(now)
}
