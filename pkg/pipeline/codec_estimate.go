package pipeline

import "fmt"

// CodecKind is the result of estimating a dynamic session's codec from
// its first arriving packet, before the real decoder has a chance to
// confirm it from the bitstream.
type CodecKind int

const (
	CodecUnknown CodecKind = iota
	CodecG711U
	CodecG711A
	CodecAMRNB
	CodecAMRWB
	CodecEVS
)

func (k CodecKind) String() string {
	switch k {
	case CodecG711U:
		return "g711u"
	case CodecG711A:
		return "g711a"
	case CodecAMRNB:
		return "amr-nb"
	case CodecAMRWB:
		return "amr-wb"
	case CodecEVS:
		return "evs"
	default:
		return "unknown"
	}
}

// amrnbFrameSizes and amrwbFrameSizes are the bandwidth-efficient RTP
// payload sizes (one CMR/TOC octet included) for each of AMR's eight
// and AMR-WB's nine codec modes, plus their SID size.
var (
	amrnbFrameSizes = map[int]bool{13: true, 14: true, 16: true, 18: true, 20: true, 21: true, 27: true, 32: true, 33: true, 6: true}
	amrwbFrameSizes = map[int]bool{18: true, 24: true, 37: true, 41: true, 47: true, 51: true, 59: true, 61: true, 7: true}

	// evsCanonicalSizes are the EVS compact/full-header payload sizes
	// spec.md names, including the two that alias AMR octet-aligned
	// frame sizes (33, 61/62) and require a bitrate tiebreak.
	evsCanonicalSizes = map[int]bool{6: true, 7: true, 8: true, 33: true, 34: true, 35: true, 41: true, 42: true, 61: true, 62: true, 63: true}
)

// EstimateCodec applies the deterministic (first payload byte, payload
// size, advertised payload type) heuristic a dynamic session create
// uses to pick a codec before the real decoder re-detects it from the
// bitstream. Static payload types are authoritative; everything else
// falls back to frame-size pattern matching, with EVS/AMR ties broken
// toward EVS since its CMR/TOC octet occupies the same first-byte
// position AMR's octet-aligned frames use.
func EstimateCodec(firstByte byte, size int, payloadType uint8) (CodecKind, error) {
	switch payloadType {
	case 0:
		return CodecG711U, nil
	case 8:
		return CodecG711A, nil
	}

	if size <= 0 {
		return CodecUnknown, fmt.Errorf("pipeline: cannot estimate codec from empty payload")
	}

	isEVSSize := evsCanonicalSizes[size]
	isAMRNBSize := amrnbFrameSizes[size]
	isAMRWBSize := amrwbFrameSizes[size]

	switch {
	case isEVSSize && (isAMRNBSize || isAMRWBSize):
		// Ambiguous with AMR octet-aligned frames of the same size
		// (33 vs AMR-NB, 61 vs AMR-WB); the CMR nibble pattern in the
		// first byte disambiguates EVS compact-format headers (top bit
		// 0) from AMR TOC frames (top bit set once F=0 on the last TOC
		// entry).
		if firstByte&0x80 == 0 {
			return CodecEVS, nil
		}
		if isAMRNBSize {
			return CodecAMRNB, nil
		}
		return CodecAMRWB, nil
	case isEVSSize:
		return CodecEVS, nil
	case isAMRWBSize:
		return CodecAMRWB, nil
	case isAMRNBSize:
		return CodecAMRNB, nil
	default:
		return CodecUnknown, fmt.Errorf("pipeline: no codec matches payload size %d (pt %d)", size, payloadType)
	}
}
