package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTerm(remotePort, localPort uint16) Termination {
	return Termination{
		IPType:      IPTypeV4,
		RemoteIP:    net.ParseIP("10.0.0.1"),
		RemotePort:  remotePort,
		LocalIP:     net.ParseIP("10.0.0.2"),
		LocalPort:   localPort,
		CodecType:   "EVS",
		SampleRate:  16000,
		Ptime:       20 * time.Millisecond,
		PayloadType: 96,
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()

	id, ack := r.Create(validTerm(5004, 5006), validTerm(5008, 5010))
	require.Equal(t, AckOK, ack)

	sess, ack := r.Get(id)
	require.Equal(t, AckOK, ack)
	assert.Equal(t, StateNew, sess.State)
	assert.True(t, sess.UserManaged)
}

func TestRegistryCreateRejectsDuplicateTuple(t *testing.T) {
	r := NewRegistry()
	term := validTerm(5004, 5006)

	_, ack := r.Create(term, validTerm(5008, 5010))
	require.Equal(t, AckOK, ack)

	_, ack = r.Create(term, validTerm(5012, 5014))
	assert.Equal(t, AckDuplicateSession, ack)
}

func TestRegistryCreateRejectsInvalidTermInfo(t *testing.T) {
	r := NewRegistry()
	bad := Termination{} // zero value: no IPs, no port
	_, ack := r.Create(bad, validTerm(5008, 5010))
	assert.Equal(t, AckInvalidTermInfo, ack)
}

func TestRegistryDeleteAndReap(t *testing.T) {
	r := NewRegistry()
	id, ack := r.Create(validTerm(5004, 5006), validTerm(5008, 5010))
	require.Equal(t, AckOK, ack)

	assert.Equal(t, AckOK, r.Delete(id))

	sess, _ := r.Get(id)
	assert.Equal(t, DeleteStatusPending, sess.DeleteStatus)

	sess.CompleteFlush()
	assert.Equal(t, 1, r.Reap())
	assert.Equal(t, 0, r.Len())
}

func TestRegistryDeleteUnknownSession(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, AckSessionNotFound, r.Delete([16]byte{}))
}

func TestRegistryMatch(t *testing.T) {
	r := NewRegistry()
	term1 := validTerm(5004, 5006)
	id, ack := r.Create(term1, validTerm(5008, 5010))
	require.Equal(t, AckOK, ack)

	key := newMatchKey(term1)
	sess, ok := r.Match(key, time.Now())
	require.True(t, ok)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, StateActive, sess.State) // touch() promotes NEW->ACTIVE
}

func TestRegistryCreateDynamicRequiresDynamicMode(t *testing.T) {
	r := NewRegistry()
	_, ack := r.CreateDynamic(validTerm(5004, 5006), validTerm(5008, 5010))
	assert.Equal(t, AckUnexpectedCommand, ack)

	r.DynamicMode = true
	id, ack := r.CreateDynamic(validTerm(5004, 5006), validTerm(5008, 5010))
	require.Equal(t, AckOK, ack)

	sess, _ := r.Get(id)
	assert.False(t, sess.UserManaged)
}
