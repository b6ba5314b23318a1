package sv

// DefaultOverlapRatio is the minimum reciprocal overlap for two calls to merge.
const DefaultOverlapRatio = 0.5

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// EffectiveWiggle is the breakpoint tolerance used to compare a and b: the
// larger of the two wiggles, or TXWiggle for translocations.
func EffectiveWiggle(a, b Interval) int {
	if a.Type.IsTranslocation() || b.Type.IsTranslocation() {
		return TXWiggle
	}
	return max(a.Wiggle, b.Wiggle)
}

// Close reports whether both breakpoints of a and b agree within
// EffectiveWiggle.
func Close(a, b Interval) bool {
	w := EffectiveWiggle(a, b)
	return abs(a.Start-b.Start) <= w && abs(a.End-b.End) <= w
}

// OverlapRatio is the number of shared bases divided by the longer span.
// Two zero-span intervals at the same position have ratio 1.
func OverlapRatio(a, b Interval) float64 {
	overlap := min(a.End, b.End) - max(a.Start, b.Start)
	if overlap < 0 {
		overlap = 0
	}
	denom := max(a.Span(), b.Span())
	if denom == 0 {
		if a.Start == b.Start {
			return 1
		}
		return 0
	}
	return float64(overlap) / float64(denom)
}

// Mergeable reports whether a and b describe the same event: same contig and
// type, Close, and (except for point-like calls) reciprocal overlap of at
// least ratio.
func Mergeable(a, b Interval, ratio float64) bool {
	if a.Chrom != b.Chrom || a.Type != b.Type || !Close(a, b) {
		return false
	}
	if a.Type.IsPointLike() || (a.Span() <= 1 && b.Span() <= 1) {
		return true
	}
	return OverlapRatio(a, b) >= ratio
}
