package sv

import (
	"strconv"

	"github.com/grailbio/svmerge/interval"
)

// Filter discards per-tool calls before merging.
type Filter struct {
	// Gaps, if non-nil, drops calls touching any of its intervals.
	Gaps *interval.BEDUnion
	// Contigs, if non-nil, is the set of contigs to keep.
	Contigs map[string]bool
	// Types, if non-nil, is the set of SV types to keep.
	Types map[SVType]bool
	// MinLen and MaxLen bound Length for non-translocation calls.  MaxLen <= 0
	// means no upper bound.
	MinLen, MaxLen int
}

// Keep reports whether iv passes the filter.
func (f *Filter) Keep(iv Interval) bool {
	if f.Contigs != nil && !f.Contigs[iv.Chrom] {
		return false
	}
	if f.Types != nil && !f.Types[iv.Type] {
		return false
	}
	if f.Gaps != nil && f.Gaps.Intersects(iv.Chrom, interval.PosType(iv.Start), interval.PosType(iv.End)) {
		return false
	}
	return KeepLength(iv, f.MinLen, f.MaxLen)
}

var standardContigs = func() map[string]bool {
	m := map[string]bool{}
	names := []string{"X", "Y", "MT", "M"}
	for i := 1; i <= 22; i++ {
		names = append(names, strconv.Itoa(i))
	}
	for _, n := range names {
		m[n] = true
		m["chr"+n] = true
	}
	return m
}()

// IsStandardContig is true for the autosomes 1-22, X, Y and the
// mitochondrion, with or without a "chr" prefix.
func IsStandardContig(name string) bool {
	return standardContigs[name]
}

// ContigWhitelist returns the set of contigs to process: chromosomes if
// given, otherwise the reference contigs, optionally restricted to the
// standard contigs.  A nil result means every contig is allowed.
func ContigWhitelist(referenceContigs, chromosomes []string, keepStandard bool) map[string]bool {
	base := chromosomes
	if len(base) == 0 {
		base = referenceContigs
	}
	if len(base) == 0 && !keepStandard {
		return nil
	}
	if len(base) == 0 {
		out := make(map[string]bool, len(standardContigs))
		for name := range standardContigs {
			out[name] = true
		}
		return out
	}
	out := make(map[string]bool, len(base))
	for _, name := range base {
		if keepStandard && !IsStandardContig(name) {
			continue
		}
		out[name] = true
	}
	return out
}
