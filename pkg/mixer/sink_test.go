package mixer

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memWriteSeeker is a minimal io.WriteSeeker over an in-memory buffer,
// since go-audio/wav.Encoder needs to seek back to patch its header on
// Close and *bytes.Buffer alone doesn't implement Seek.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = len(m.buf)
	default:
		return 0, fmt.Errorf("memWriteSeeker: invalid whence %d", whence)
	}
	m.pos = base + int(offset)
	return int64(m.pos), nil
}

func TestMonoWavSinkWritesRIFFHeader(t *testing.T) {
	w := &memWriteSeeker{}
	sink := NewMonoWavSink(w, 8000)

	require.NoError(t, sink.Write([]int16{1, 2, 3, 4}))
	require.NoError(t, sink.Close())

	assert.True(t, bytes.HasPrefix(w.buf, []byte("RIFF")))
	assert.Contains(t, string(w.buf[:64]), "WAVE")
}

func TestMultiWavSinkWritesInterleavedChannels(t *testing.T) {
	w := &memWriteSeeker{}
	sink := NewMultiWavSink(w, 8000, []uint32{1, 2})

	require.NoError(t, sink.Write(map[uint32][]int16{
		1: {10, 20},
		2: {30, 40},
	}))
	require.NoError(t, sink.Close())

	assert.True(t, bytes.HasPrefix(w.buf, []byte("RIFF")))
}
