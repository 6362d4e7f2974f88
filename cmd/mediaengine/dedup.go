package main

// inputSource is one -i capture file plus the endpoint rewrite applied
// to its packets before they reach the engine.
type inputSource struct {
	Path string

	// PortOffset is added to every parsed packet's src/dst port, and
	// SSRCOffset xored into its SSRC, so that replaying the same
	// capture file N times as N separate -i arguments produces N
	// distinguishable sessions instead of one session silently
	// absorbing every copy's packets as retransmissions.
	PortOffset uint16
	SSRCOffset uint32
}

// dedupeInputs assigns a distinct (port offset, SSRC offset) pair to
// each repeated occurrence of the same capture path in paths, leaving
// the first occurrence of any path unmodified. This rewrite is driver-
// local by design: spec.md's Open Question decisions keep multi-input
// de-duplication out of the session/pipeline/engine packages, since
// rewriting a packet's identity to avoid a collision is an ingest-side
// concern, not a core session-matching one.
func dedupeInputs(paths []string) []inputSource {
	seen := make(map[string]int, len(paths))
	out := make([]inputSource, len(paths))
	for i, p := range paths {
		n := seen[p]
		seen[p] = n + 1
		out[i] = inputSource{
			Path:       p,
			PortOffset: uint16(n * 1000),
			SSRCOffset: uint32(n) << 16,
		}
	}
	return out
}

// rewritePorts returns srcPort and dstPort with the inputSource's
// PortOffset added.
func (s inputSource) rewritePorts(srcPort, dstPort uint16) (uint16, uint16) {
	return srcPort + s.PortOffset, dstPort + s.PortOffset
}

func (s inputSource) rewriteSSRC(ssrc uint32) uint32 {
	return ssrc ^ s.SSRCOffset
}
