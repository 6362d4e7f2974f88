package session

import (
	"net"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalogic/mediaengine/pkg/packetcodec"
)

func viewFor(ssrc uint32) *packetcodec.PacketView {
	return &packetcodec.PacketView{
		SrcIP:   net.ParseIP("10.0.0.1"),
		DstIP:   net.ParseIP("10.0.0.2"),
		SrcPort: 5004,
		DstPort: 5006,
		RTP:     rtp.Header{PayloadType: 96, SSRC: ssrc},
	}
}

func TestClassifyMissReturnsSessionNotFound(t *testing.T) {
	r := NewRegistry()
	sess, ch, ack := Classify(r, viewFor(1), time.Now())
	assert.Nil(t, sess)
	assert.Nil(t, ch)
	assert.Equal(t, AckSessionNotFound, ack)
}

func TestClassifyAdoptsFirstSSRCAsParent(t *testing.T) {
	r := NewRegistry()
	id, ack := r.Create(validTerm(5004, 5006), validTerm(5008, 5010))
	require.Equal(t, AckOK, ack)
	sess, _ := r.Get(id)
	sess.DynChanEnable = true

	matched, ch, ack := Classify(r, viewFor(111), time.Now())
	require.Equal(t, AckOK, ack)
	assert.Equal(t, id, matched.ID)
	assert.Nil(t, ch) // parent SSRC, no child
}

func TestClassifySpawnsChildOnNewSSRC(t *testing.T) {
	r := NewRegistry()
	id, ack := r.Create(validTerm(5004, 5006), validTerm(5008, 5010))
	require.Equal(t, AckOK, ack)
	sess, _ := r.Get(id)
	sess.DynChanEnable = true

	_, _, ack = Classify(r, viewFor(111), time.Now()) // adopts 111 as parent
	require.Equal(t, AckOK, ack)

	matched, ch, ack := Classify(r, viewFor(222), time.Now())
	require.Equal(t, AckOK, ack)
	require.NotNil(t, ch)
	assert.Equal(t, uint32(222), ch.SSRC)
	assert.Equal(t, id, matched.ID)

	// Same new SSRC again should return the same child, not a duplicate error.
	_, ch2, ack := Classify(r, viewFor(222), time.Now())
	require.Equal(t, AckOK, ack)
	assert.Same(t, ch, ch2)
}

func TestClassifyWithoutDynChanIgnoresNewSSRC(t *testing.T) {
	r := NewRegistry()
	id, ack := r.Create(validTerm(5004, 5006), validTerm(5008, 5010))
	require.Equal(t, AckOK, ack)
	_ = id

	_, _, ack = Classify(r, viewFor(111), time.Now())
	require.Equal(t, AckOK, ack)

	matched, ch, ack := Classify(r, viewFor(222), time.Now())
	require.Equal(t, AckOK, ack)
	assert.Nil(t, ch)
	assert.NotNil(t, matched)
}
