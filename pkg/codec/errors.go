package codec

import "errors"

// Registry lookup errors.
var (
	ErrHandleNotFound = errors.New("codec: handle not registered")
	ErrNilCodec       = errors.New("codec: nil codec instance")
)

// Decode/Encode argument errors.
var (
	ErrEmptyPayload    = errors.New("codec: empty payload")
	ErrEmptySamples    = errors.New("codec: empty sample buffer")
	ErrInvalidFrame    = errors.New("codec: invalid frame size")
	ErrUnsupportedRate = errors.New("codec: unsupported sample rate")
)
