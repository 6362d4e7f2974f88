package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTouchPromotesNewToActive(t *testing.T) {
	sess := newSession(uuid.New(), validTerm(1, 2), validTerm(3, 4), time.Now())
	assert.Equal(t, StateNew, sess.State)

	sess.touch(time.Now())
	assert.Equal(t, StateActive, sess.State)
}

func TestSessionRequestAndCompleteFlush(t *testing.T) {
	sess := newSession(uuid.New(), validTerm(1, 2), validTerm(3, 4), time.Now())
	sess.touch(time.Now())

	sess.RequestFlush()
	assert.Equal(t, StateFlushPackets, sess.State)
	assert.Equal(t, DeleteStatusPending, sess.DeleteStatus)

	sess.CompleteFlush()
	assert.Equal(t, StateDeletePending, sess.State)
	assert.Equal(t, DeleteStatusComplete, sess.DeleteStatus)
}

func TestSessionAddChildRejectsDuplicateAndOverflow(t *testing.T) {
	sess := newSession(uuid.New(), validTerm(1, 2), validTerm(3, 4), time.Now())

	_, ack := sess.AddChild(100, time.Now())
	require.Equal(t, AckOK, ack)

	_, ack = sess.AddChild(100, time.Now())
	assert.Equal(t, AckDuplicateChannel, ack)

	for i := 0; i < MaxChildChannels; i++ {
		sess.AddChild(uint32(200+i), time.Now())
	}
	_, ack = sess.AddChild(9999, time.Now())
	assert.Equal(t, AckChannelFull, ack)
}

func TestSessionRecognizesParentAndChildrenOnly(t *testing.T) {
	sess := newSession(uuid.New(), validTerm(1, 2), validTerm(3, 4), time.Now())
	sess.Term1.AdoptSSRC(42)

	assert.True(t, sess.Recognizes(42), "adopted parent SSRC must be recognized")
	assert.False(t, sess.Recognizes(7), "unregistered SSRC must not be recognized")

	_, ack := sess.AddChild(100, time.Now())
	require.Equal(t, AckOK, ack)
	assert.True(t, sess.Recognizes(100), "registered child SSRC must be recognized")

	for i := 0; i < MaxChildChannels-1; i++ {
		_, ack := sess.AddChild(uint32(200+i), time.Now())
		require.Equal(t, AckOK, ack)
	}
	_, ack = sess.AddChild(9999, time.Now())
	require.Equal(t, AckChannelFull, ack)
	assert.False(t, sess.Recognizes(9999), "SSRC rejected by AddChild must not be recognized")
}
