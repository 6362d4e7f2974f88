// Package codec defines the narrow, external codec contract the engine
// calls through instead of linking codec implementations directly.
//
// The engine never interprets a codec bitstream itself (see the codec
// estimation step in the pipeline package for the one exception: sniffing
// enough of the first payload byte to guess a codec on dynamic session
// creation). Everything past that guess goes through Decode/Encode here,
// keyed by the opaque Handle a session stores alongside its termination
// info. This package ships one reference adapter (Opus, backed by
// pion/opus) so the contract has a real implementation to exercise in
// tests; production deployments are expected to register their own.
package codec

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Handle identifies a registered codec instance, analogous to the
// codec_handle a session carries for its decoder/encoder/group-encoder.
type Handle uint32

// Codec is the two-function contract every codec implementation
// satisfies: decode a received payload into PCM samples, and encode PCM
// samples into an outgoing payload of the given frame size.
type Codec interface {
	Decode(payload []byte) (samples []int16, err error)
	Encode(samples []int16, frameSize int) (payload []byte, err error)
}

// Registry maps opaque handles to live Codec instances. The engine looks
// a handle up once per Decode/Encode call rather than holding a Codec
// reference directly, so handles can be reassigned (session delete/reuse)
// without invalidating pointers held elsewhere.
type Registry struct {
	mu     sync.RWMutex
	codecs map[Handle]Codec
	next   Handle
}

// NewRegistry creates an empty codec registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[Handle]Codec)}
}

// Register assigns a new handle to c and returns it.
func (r *Registry) Register(c Codec) (Handle, error) {
	if c == nil {
		return 0, ErrNilCodec
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	h := r.next
	r.codecs[h] = c

	logrus.WithFields(logrus.Fields{
		"function": "Registry.Register",
		"handle":   h,
	}).Debug("Registered codec instance")

	return h, nil
}

// Unregister releases a handle. Decode/Encode calls against it afterward
// fail with ErrHandleNotFound.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codecs, h)
}

func (r *Registry) lookup(h Handle) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codecs[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrHandleNotFound, h)
	}
	return c, nil
}

// Decode implements the engine's external decode contract:
// Decode(codec_handle, rtp_payload, len) -> samples[framesize].
// The payload's own length is len; framesize is implicit in the codec's
// configuration and in the returned slice's length.
func (r *Registry) Decode(h Handle, payload []byte) ([]int16, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	c, err := r.lookup(h)
	if err != nil {
		return nil, err
	}

	samples, err := c.Decode(payload)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Registry.Decode",
			"handle":   h,
			"error":    err.Error(),
		}).Error("Codec decode failed")
		return nil, fmt.Errorf("codec decode failed: %w", err)
	}
	return samples, nil
}

// Encode implements the engine's external encode contract:
// Encode(codec_handle, samples, framesize) -> rtp_payload.
func (r *Registry) Encode(h Handle, samples []int16, frameSize int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySamples
	}
	if frameSize <= 0 {
		return nil, ErrInvalidFrame
	}

	c, err := r.lookup(h)
	if err != nil {
		return nil, err
	}

	payload, err := c.Encode(samples, frameSize)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Registry.Encode",
			"handle":   h,
			"error":    err.Error(),
		}).Error("Codec encode failed")
		return nil, fmt.Errorf("codec encode failed: %w", err)
	}
	return payload, nil
}
