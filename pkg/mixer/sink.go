package mixer

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// MonoWavSink streams 16-bit mono PCM to a WAV file, the per-group or
// per-contributor sink §4.G.7 names.
type MonoWavSink struct {
	enc *wav.Encoder
}

// NewMonoWavSink wraps w in a mono, 16-bit WAV encoder at sampleRate.
func NewMonoWavSink(w io.WriteSeeker, sampleRate int) *MonoWavSink {
	return &MonoWavSink{enc: wav.NewEncoder(w, sampleRate, 16, 1, 1)}
}

// Write appends one frame of samples to the file.
func (s *MonoWavSink) Write(samples []int16) error {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: s.enc.SampleRate},
		Data:           int16ToInt(samples),
		SourceBitDepth: 16,
	}
	return s.enc.Write(buf)
}

// Close flushes the WAV header and underlying writer.
func (s *MonoWavSink) Close() error { return s.enc.Close() }

// MultiWavSink interleaves each contributor into its own channel of a
// single multichannel WAV file, the "one channel per contributor"
// sink §4.G.7 names. order fixes the channel assignment at
// construction time; a contributor missing from a given frame is
// written as silence on its channel.
type MultiWavSink struct {
	enc   *wav.Encoder
	order []uint32
}

// NewMultiWavSink wraps w in a len(order)-channel, 16-bit WAV encoder.
func NewMultiWavSink(w io.WriteSeeker, sampleRate int, order []uint32) *MultiWavSink {
	return &MultiWavSink{
		enc:   wav.NewEncoder(w, sampleRate, 16, len(order), 1),
		order: order,
	}
}

// Write interleaves one frame per contributor (keyed by SSRC) into the
// file's channels, padding short/absent contributors with silence.
func (s *MultiWavSink) Write(perContributor map[uint32][]int16) error {
	n := 0
	for _, ssrc := range s.order {
		if l := len(perContributor[ssrc]); l > n {
			n = l
		}
	}
	nchan := len(s.order)
	data := make([]int, n*nchan)
	for col, ssrc := range s.order {
		frame := perContributor[ssrc]
		for i, v := range frame {
			data[i*nchan+col] = int(v)
		}
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: nchan, SampleRate: s.enc.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	return s.enc.Write(buf)
}

// Close flushes the WAV header and underlying writer.
func (s *MultiWavSink) Close() error { return s.enc.Close() }

func int16ToInt(samples []int16) []int {
	out := make([]int, len(samples))
	for i, v := range samples {
		out[i] = int(v)
	}
	return out
}
