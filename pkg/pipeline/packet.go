package pipeline

import (
	"time"

	"github.com/signalogic/mediaengine/pkg/queue"
)

// EncodedPacket is one item placed on a session's egress ring: either a
// jitter-buffer passthrough, a transcoded frame, or stream-group output,
// distinguished by Category.
type EncodedPacket struct {
	Category  queue.Category
	SSRC      uint32
	Seq       uint16
	Timestamp uint32
	Marker    bool
	Payload   []byte
	Repaired  bool
	DTX       bool
	At        time.Time
}
