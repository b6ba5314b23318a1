package sv

import (
	"sort"
	"strings"
)

// supportOrder reports whether a should donate its attributes when merged
// with b: more sources first, then the higher-priority best source.
func supportOrder(a, b Interval) bool {
	if len(a.Sources) != len(b.Sources) {
		return len(a.Sources) > len(b.Sources)
	}
	ba, bb := bestSource(a.Sources), bestSource(b.Sources)
	if ra, rb := toolRank(ba), toolRank(bb); ra != rb {
		return ra < rb
	}
	return ba <= bb
}

func mergeNative(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		prev, ok := out[k]
		if !ok || prev == "" {
			out[k] = v
			continue
		}
		if v == "" || v == prev {
			continue
		}
		vals := sortUnique(append(strings.Split(prev, ";"), strings.Split(v, ";")...))
		out[k] = strings.Join(vals, ";")
	}
	return out
}

// Merge combines two mergeable intervals into their union envelope.
func Merge(a, b Interval) Interval {
	lead, other := a, b
	if !supportOrder(a, b) {
		lead, other = b, a
	}
	out := lead.Clone()
	out.Start = min(a.Start, b.Start)
	out.End = max(a.End, b.End)
	if out.Type.HasSpanLength() {
		out.Length = out.Span()
	}
	out.Wiggle = max(a.Wiggle, b.Wiggle)
	out.Sources = unionSources(a.Sources, b.Sources)
	out.ExactBreakpoints = a.ExactBreakpoints || b.ExactBreakpoints
	out.Precise = a.Precise || b.Precise
	out.Validated = a.Validated || b.Validated
	out.Native = mergeNative(lead.Native, other.Native)
	return out
}

// sortForMerge orders by type, contig, start, end and finally sources, so
// that the sweep sees every same-type neighbor in order.
func sortForMerge(ivs []Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		a, b := &ivs[i], &ivs[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.SourceKey() < b.SourceKey()
	})
}

// MergeTool merges one caller's intervals with a single sorted sweep: each
// interval joins the last open cluster when Mergeable with it, and starts a
// new cluster otherwise.  The input is not modified.
func MergeTool(ivs []Interval, ratio float64) []Interval {
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sortForMerge(sorted)
	var out []Interval
	for _, iv := range sorted {
		if n := len(out); n > 0 && Mergeable(out[n-1], iv, ratio) {
			out[n-1] = Merge(out[n-1], iv)
			continue
		}
		out = append(out, iv.Clone())
	}
	return out
}

// MergeRecursively repeats MergeTool passes over the pooled calls of all
// tools until a pass merges nothing.
func MergeRecursively(ivs []Interval, ratio float64) []Interval {
	cur := ivs
	for {
		next := MergeTool(cur, ratio)
		if len(next) == len(cur) {
			return next
		}
		cur = next
	}
}
