package sv

// ValidationPass marks each interval Validated when at least two tools
// support it, or when one of its sources is listed in trusted.  Precise is
// set when a source reported exact breakpoints.  Calls are never removed and
// coordinates and sources are left unchanged.
func ValidationPass(ivs []Interval, trusted []string) {
	for i := range ivs {
		iv := &ivs[i]
		iv.Validated = len(iv.Sources) >= 2
		for _, tool := range trusted {
			if !iv.Validated && iv.HasSource(tool) {
				iv.Validated = true
			}
		}
		iv.Precise = iv.ExactBreakpoints
	}
}

// KeepLength reports whether iv's length lies in [minLen, maxLen].
// Translocations are always kept.  maxLen <= 0 means no upper bound.
func KeepLength(iv Interval, minLen, maxLen int) bool {
	if iv.Type.IsTranslocation() {
		return true
	}
	if iv.Length < minLen {
		return false
	}
	return maxLen <= 0 || iv.Length <= maxLen
}
