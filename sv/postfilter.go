package sv

// PostFilter inspects one tool's call after loading; false discards it.
type PostFilter func(iv Interval) bool

// PostFilters maps tool names to the filters applied to their calls.
type PostFilters map[string][]PostFilter

// Keep runs the filters registered for tool.
func (p PostFilters) Keep(tool string, iv Interval) bool {
	for _, f := range p[tool] {
		if !f(iv) {
			return false
		}
	}
	return true
}

// ShortInversionFilter drops inversions shorter than minLen.  Read-pair
// callers report spurious inversions below one fragment length.
func ShortInversionFilter(minLen int) PostFilter {
	return func(iv Interval) bool {
		return iv.Type != Inversion || abs(iv.Length) >= minLen
	}
}

// DefaultPostFilters registers ShortInversionFilter for BreakDancer with a
// threshold of meanReadLength + 4*isizeSD.
func DefaultPostFilters(meanReadLength int, isizeSD float64) PostFilters {
	return PostFilters{
		"BreakDancer": {ShortInversionFilter(meanReadLength + int(4*isizeSD))},
	}
}
