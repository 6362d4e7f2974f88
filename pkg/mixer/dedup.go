package mixer

import "math"

// dedupMaxLagSamples bounds the search window for aligning a
// near-duplicate contributor pair, a "small latency offset" per
// spec.md §4.G.4 rather than a full-buffer search.
const dedupMaxLagSamples = 8

// dedupMinCorrelation is the Pearson correlation threshold above which
// two contributors' current frames are treated as near-duplicates of
// each other and aligned before mixing.
const dedupMinCorrelation = 0.85

// dedupAlign cross-correlates every pair of frames in-place, shifting
// the later-arriving stream in a detected pair so its content lines up
// with the earlier one, mirroring STREAM_GROUP_ENABLE_DEDUPLICATION.
// Returns true if any pair was aligned, for the optional alignment
// marker sample.
func dedupAlign(frames map[uint32][]int16, order []uint32) bool {
	aligned := false
	for i := 0; i < len(order); i++ {
		a := frames[order[i]]
		if len(a) == 0 {
			continue
		}
		for j := i + 1; j < len(order); j++ {
			b := frames[order[j]]
			if len(b) == 0 {
				continue
			}
			lag, corr := bestLag(a, b, dedupMaxLagSamples)
			if corr < dedupMinCorrelation {
				continue
			}
			frames[order[j]] = shiftSamples(b, lag)
			aligned = true
		}
	}
	return aligned
}

// bestLag searches [-maxLag, maxLag] for the sample offset that
// maximizes the Pearson correlation between a and b.
func bestLag(a, b []int16, maxLag int) (lag int, corr float64) {
	corr = -1
	for l := -maxLag; l <= maxLag; l++ {
		c := correlationAt(a, b, l)
		if c > corr {
			corr, lag = c, l
		}
	}
	return lag, corr
}

// minOverlapSamples is the smallest overlap correlationAt will score; a
// 2-3 sample overlap is trivially "perfectly correlated" by Pearson's
// formula regardless of actual similarity, so shorter overlaps are
// rejected outright rather than producing a false duplicate match.
const minOverlapSamples = 4

// correlationAt returns the Pearson correlation between a[i] and
// b[i+lag] over their overlapping range, or -1 if they don't overlap
// by at least minOverlapSamples.
func correlationAt(a, b []int16, lag int) float64 {
	var sumA, sumB, sumAB, sumA2, sumB2 float64
	n := 0
	for i := range a {
		j := i + lag
		if j < 0 || j >= len(b) {
			continue
		}
		av, bv := float64(a[i]), float64(b[j])
		sumA += av
		sumB += bv
		sumAB += av * bv
		sumA2 += av * av
		sumB2 += bv * bv
		n++
	}
	if n < minOverlapSamples {
		return -1
	}
	nf := float64(n)
	num := nf*sumAB - sumA*sumB
	den := math.Sqrt((nf*sumA2 - sumA*sumA) * (nf*sumB2 - sumB*sumB))
	if den == 0 {
		return 0
	}
	return num / den
}

// shiftSamples returns b shifted by lag samples, zero-filling positions
// that fall outside b's original range.
func shiftSamples(b []int16, lag int) []int16 {
	out := make([]int16, len(b))
	for i := range out {
		j := i + lag
		if j >= 0 && j < len(b) {
			out[i] = b[j]
		}
	}
	return out
}
