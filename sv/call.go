package sv

import (
	"sort"

	psort "github.com/exascience/pargo/sort"
)

// Outcome records what refinement did to a call.
type Outcome string

const (
	// Unrefined calls come straight from the merge engine.
	Unrefined Outcome = "unrefined"
	// Refined calls carry assembly-derived breakpoints.
	Refined Outcome = "refined"
	// Fallback calls kept their consensus coordinates after a refinement
	// failure.
	Fallback Outcome = "fallback"
	// Skipped calls were never scheduled for refinement.
	Skipped Outcome = "skipped"
)

// Genotype strings.
const (
	NoCall = "./."
	HomRef = "0/0"
	Het    = "0/1"
	HomAlt = "1/1"
)

// Call is a consensus interval after refinement and genotyping.
type Call struct {
	Interval
	// RegionID names the candidate region the call was refined in.
	RegionID string
	Outcome  Outcome
	Genotype string
	// RefReads and AltReads count the fragments supporting each allele.
	RefReads, AltReads int
}

// NewCall wraps an unrefined, ungenotyped interval.
func NewCall(iv Interval) Call {
	return Call{Interval: iv, Outcome: Unrefined, Genotype: NoCall}
}

// ContigOrder maps contig names to their rank, typically the reference
// order.
type ContigOrder map[string]int

// NewContigOrder ranks names by position.
func NewContigOrder(names []string) ContigOrder {
	o := make(ContigOrder, len(names))
	for i, n := range names {
		o[n] = i
	}
	return o
}

// LessChrom orders known contigs by rank, and unknown ones after all known
// contigs by name.
func (o ContigOrder) LessChrom(a, b string) bool {
	ra, oka := o[a]
	rb, okb := o[b]
	switch {
	case oka && okb:
		return ra < rb
	case oka != okb:
		return oka
	}
	return a < b
}

// LessInterval is a total order on intervals: contig, start, end, type,
// sources, length.
func (o ContigOrder) LessInterval(a, b *Interval) bool {
	if a.Chrom != b.Chrom {
		return o.LessChrom(a.Chrom, b.Chrom)
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.End != b.End {
		return a.End < b.End
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if ka, kb := a.SourceKey(), b.SourceKey(); ka != kb {
		return ka < kb
	}
	return a.Length < b.Length
}

// LessCall extends LessInterval with the refinement fields so that equal
// call sets sort identically whatever their input order.
func (o ContigOrder) LessCall(a, b *Call) bool {
	if o.LessInterval(&a.Interval, &b.Interval) {
		return true
	}
	if o.LessInterval(&b.Interval, &a.Interval) {
		return false
	}
	if a.Outcome != b.Outcome {
		return a.Outcome < b.Outcome
	}
	if a.RegionID != b.RegionID {
		return a.RegionID < b.RegionID
	}
	return a.Genotype < b.Genotype
}

type intervalSorter struct {
	ivs   []Interval
	order ContigOrder
}

func (s intervalSorter) SequentialSort(i, j int) {
	part := s.ivs[i:j]
	sort.SliceStable(part, func(x, y int) bool { return s.order.LessInterval(&part[x], &part[y]) })
}

func (s intervalSorter) NewTemp() psort.StableSorter {
	return intervalSorter{make([]Interval, len(s.ivs)), s.order}
}

func (s intervalSorter) Len() int { return len(s.ivs) }

func (s intervalSorter) Less(i, j int) bool { return s.order.LessInterval(&s.ivs[i], &s.ivs[j]) }

func (s intervalSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s.ivs, source.(intervalSorter).ivs
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// SortIntervals sorts ivs in place by LessInterval, in parallel.
func SortIntervals(ivs []Interval, order ContigOrder) {
	psort.StableSort(intervalSorter{ivs, order})
}

type callSorter struct {
	calls []Call
	order ContigOrder
}

func (s callSorter) SequentialSort(i, j int) {
	part := s.calls[i:j]
	sort.SliceStable(part, func(x, y int) bool { return s.order.LessCall(&part[x], &part[y]) })
}

func (s callSorter) NewTemp() psort.StableSorter {
	return callSorter{make([]Call, len(s.calls)), s.order}
}

func (s callSorter) Len() int { return len(s.calls) }

func (s callSorter) Less(i, j int) bool { return s.order.LessCall(&s.calls[i], &s.calls[j]) }

func (s callSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s.calls, source.(callSorter).calls
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// SortCalls sorts calls in place by LessCall, in parallel.
func SortCalls(calls []Call, order ContigOrder) {
	psort.StableSort(callSorter{calls, order})
}
