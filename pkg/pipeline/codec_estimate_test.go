package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCodecStaticPayloadTypes(t *testing.T) {
	k, err := EstimateCodec(0, 160, 0)
	require.NoError(t, err)
	assert.Equal(t, CodecG711U, k)

	k, err = EstimateCodec(0, 160, 8)
	require.NoError(t, err)
	assert.Equal(t, CodecG711A, k)
}

func TestEstimateCodecAMRNBFrameSize(t *testing.T) {
	k, err := EstimateCodec(0x3C, 32, 96)
	require.NoError(t, err)
	assert.Equal(t, CodecAMRNB, k)
}

func TestEstimateCodecEVSCanonicalSize(t *testing.T) {
	k, err := EstimateCodec(0x00, 41, 97)
	require.NoError(t, err)
	assert.Equal(t, CodecEVS, k)
}

func TestEstimateCodecDisambiguatesAmbiguousSizeByFirstByte(t *testing.T) {
	evs, err := EstimateCodec(0x00, 33, 97)
	require.NoError(t, err)
	assert.Equal(t, CodecEVS, evs)

	amr, err := EstimateCodec(0xFF, 33, 97)
	require.NoError(t, err)
	assert.Equal(t, CodecAMRNB, amr)
}

func TestEstimateCodecUnknownSizeErrors(t *testing.T) {
	_, err := EstimateCodec(0x00, 9999, 97)
	assert.Error(t, err)
}

func TestEstimateCodecEmptyPayloadErrors(t *testing.T) {
	_, err := EstimateCodec(0x00, 0, 97)
	assert.Error(t, err)
}
