package codec

import (
	"fmt"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// OpusCodec is the reference Codec adapter, wrapping pion/opus.
//
// pion/opus only ships a decoder; there is no pure-Go Opus encoder in the
// pack, so Encode below produces a passthrough frame tagged with the
// sample rate and bit rate rather than a real Opus bitstream. That
// mirrors the contract boundary the spec draws around codecs: the engine
// never looks inside what Encode/Decode return. Decode runs the pion/opus
// decoder on its input, so it does not read back the tagged frames Encode
// produces; Encode and Decode do not round-trip with each other.
type OpusCodec struct {
	decoder    opus.Decoder
	sampleRate uint32
	bitRate    uint32
}

// NewOpusCodec creates an Opus codec instance at the given sample rate
// and bit rate. sampleRate must be one of GetSupportedSampleRates.
func NewOpusCodec(sampleRate, bitRate uint32) (*OpusCodec, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewOpusCodec",
		"sample_rate": sampleRate,
		"bit_rate":    bitRate,
	}).Info("Creating new Opus codec instance")

	supported := false
	for _, r := range supportedSampleRates {
		if r == sampleRate {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRate, sampleRate)
	}

	c := &OpusCodec{
		decoder:    opus.NewDecoder(),
		sampleRate: sampleRate,
		bitRate:    bitRate,
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewOpusCodec",
		"sample_rate": c.sampleRate,
		"bit_rate":    c.bitRate,
	}).Info("Opus codec created successfully")

	return c, nil
}

// Decode implements Codec. It decodes an Opus frame to int16 PCM samples
// using pion/opus, logging the channel layout the bitstream carries.
func (c *OpusCodec) Decode(payload []byte) ([]int16, error) {
	logrus.WithFields(logrus.Fields{
		"function":  "OpusCodec.Decode",
		"data_size": len(payload),
		"bit_rate":  c.bitRate,
	}).Debug("Decoding Opus payload")

	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	// 60ms at 48kHz stereo is the largest Opus frame; the scratch buffer
	// is sized for that worst case and returned whole (5760 samples), not
	// trimmed to the decoded frame's length.
	out := make([]byte, 48000/1000*60*2*2)

	bandwidth, isStereo, err := c.decoder.Decode(payload, out)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "OpusCodec.Decode",
		"bandwidth": bandwidth.String(),
		"is_stereo": isStereo,
	}).Debug("Opus payload decoded")

	samples := bytesToInt16(out)
	return samples, nil
}

// Encode implements Codec. It packages PCM samples into a frame tagged
// with this codec's sample rate and bit rate; see the type doc comment
// for why this isn't a true Opus bitstream.
func (c *OpusCodec) Encode(samples []int16, frameSize int) ([]byte, error) {
	logrus.WithFields(logrus.Fields{
		"function":     "OpusCodec.Encode",
		"sample_count": len(samples),
		"frame_size":   frameSize,
	}).Debug("Encoding PCM samples with Opus codec")

	if len(samples) == 0 {
		return nil, ErrEmptySamples
	}
	if err := c.ValidateFrameSize(frameSize, 1); err != nil {
		return nil, err
	}

	header := frameHeader{sampleRate: c.sampleRate, bitRate: c.bitRate}
	payload := make([]byte, frameHeaderSize+len(samples)*2)
	header.put(payload[:frameHeaderSize])
	int16ToBytes(samples, payload[frameHeaderSize:])

	return payload, nil
}

// SetBitRate updates the codec's target bit rate for subsequent Encode
// calls.
func (c *OpusCodec) SetBitRate(bitRate uint32) {
	logrus.WithFields(logrus.Fields{
		"function": "OpusCodec.SetBitRate",
		"bit_rate": bitRate,
	}).Info("Updating Opus codec bit rate")
	c.bitRate = bitRate
}

var supportedSampleRates = []uint32{8000, 12000, 16000, 24000, 48000}
var supportedBitRates = []uint32{8000, 16000, 32000, 64000, 96000, 128000, 256000, 512000}
var validFrameDurationsMs = []float32{2.5, 5.0, 10.0, 20.0, 40.0, 60.0}

// GetSupportedSampleRates returns the sample rates this codec accepts.
func GetSupportedSampleRates() []uint32 { return supportedSampleRates }

// GetSupportedBitRates returns representative Opus bit rates.
func GetSupportedBitRates() []uint32 { return supportedBitRates }

// ValidateFrameSize checks that frameSize/channels/c.sampleRate forms one
// of the durations Opus allows (2.5, 5, 10, 20, 40, 60 ms).
func (c *OpusCodec) ValidateFrameSize(frameSize int, channels int) error {
	frameDurationMs := float32(frameSize) / float32(channels) * 1000.0 / float32(c.sampleRate)

	for _, d := range validFrameDurationsMs {
		if frameDurationMs == d {
			return nil
		}
	}
	return fmt.Errorf("%w: %d samples (%.2fms) at %dHz", ErrInvalidFrame, frameSize, frameDurationMs, c.sampleRate)
}

// GetBandwidthFromSampleRate maps a sample rate to the corresponding
// Opus bandwidth classification.
func GetBandwidthFromSampleRate(sampleRate uint32) opus.Bandwidth {
	switch sampleRate {
	case 8000:
		return opus.BandwidthNarrowband
	case 12000:
		return opus.BandwidthMediumband
	case 16000:
		return opus.BandwidthWideband
	case 24000:
		return opus.BandwidthSuperwideband
	case 48000:
		return opus.BandwidthFullband
	default:
		logrus.WithFields(logrus.Fields{
			"function":    "GetBandwidthFromSampleRate",
			"sample_rate": sampleRate,
		}).Warn("Unsupported sample rate, defaulting to fullband")
		return opus.BandwidthFullband
	}
}

const frameHeaderSize = 8

// frameHeader tags the passthrough frame Encode produces with enough
// information for a matching Decode-side codec to interpret it; a real
// Opus encoder would carry this implicitly in the bitstream.
type frameHeader struct {
	sampleRate uint32
	bitRate    uint32
}

func (h frameHeader) put(b []byte) {
	putUint32(b[0:4], h.sampleRate)
	putUint32(b[4:8], h.bitRate)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func bytesToInt16(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(uint16(b[i*2]) | uint16(b[i*2+1])<<8)
	}
	return samples
}

func int16ToBytes(samples []int16, out []byte) {
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
}
