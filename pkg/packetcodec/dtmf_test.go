package packetcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDTMFInfoDecodesEventFields(t *testing.T) {
	// event=5 ('5'), end-of-event set, volume=10, duration=800
	payload := []byte{5, 0x80 | 10, 0x03, 0x20}

	info, err := GetDTMFInfo(payload, 0, false, 0)
	require.NoError(t, err)

	assert.Equal(t, uint8(5), info.Event)
	assert.True(t, info.EndOfEvent)
	assert.Equal(t, uint8(10), info.Volume)
	assert.Equal(t, uint16(0x0320), info.Duration)
	assert.Equal(t, DTMFContentSingle, info.Content)
}

func TestGetDTMFInfoDetectsSessionRepeat(t *testing.T) {
	payload := []byte{5, 0x80 | 10, 0x03, 0x20}

	info, err := GetDTMFInfo(payload, 160000, true, 160000)
	require.NoError(t, err)

	assert.Equal(t, DTMFContentSession, info.Content)
}

func TestGetDTMFInfoRejectsShortPayload(t *testing.T) {
	_, err := GetDTMFInfo([]byte{1, 2}, 0, false, 0)
	assert.Error(t, err)
}
