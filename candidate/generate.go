package candidate

import (
	"sort"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/log"
	"github.com/grailbio/svmerge/sv"
)

// Opts configures Generate.
type Opts struct {
	// Pad is added on both sides of each call.
	Pad int
	// MaxIntervalSize is the longest call that is assembled.
	MaxIntervalSize int
	// MaxTools is the largest number of supporting callers for which a region
	// is still assembled.  Calls found by more callers are already well
	// supported.  MaxTools <= 0 disables the check.
	MaxTools int
	// MaxRegions caps the number of regions sent to assembly.  <= 0 means no
	// cap.
	MaxRegions int
	// AssembleTypes lists the SV types that are assembled.  Nil means
	// DefaultAssembleTypes.
	AssembleTypes []sv.SVType
	// Order sorts the output.  Nil sorts contigs by name.
	Order sv.ContigOrder
}

// DefaultAssembleTypes are the types assembled when Opts.AssembleTypes is nil.
var DefaultAssembleTypes = []sv.SVType{sv.Deletion, sv.Insertion, sv.Inversion, sv.Duplication}

// DefaultOpts holds the default generation parameters.
var DefaultOpts = Opts{
	Pad:             500,
	MaxIntervalSize: 50000,
	MaxTools:        1,
	MaxRegions:      10000,
}

func clip(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi >= 0 && v > hi {
		return hi
	}
	return v
}

// contigLen returns the length of chrom, or -1 if unknown.
func contigLen(lens map[string]int, chrom string) int {
	if n, ok := lens[chrom]; ok {
		return n
	}
	return -1
}

// Generate builds the candidate regions.  Each consensus call yields one
// padded window, clipped to its contig; overlapping windows of one type are
// merged.  Soft-clip clusters that fall inside any consensus window are
// dropped, the rest become insertion regions.  Generate never drops a
// consensus call: regions that are not assembled are marked Skip.
func Generate(consensus []sv.Interval, clips []SoftClipCluster, contigLens map[string]int, opts Opts) []Region {
	assemble := sv.TypeSet(opts.AssembleTypes)
	if assemble == nil {
		assemble = sv.TypeSet(DefaultAssembleTypes)
	}

	regions := make([]Region, 0, len(consensus))
	for _, iv := range consensus {
		n := contigLen(contigLens, iv.Chrom)
		regions = append(regions, Region{
			Chrom:     iv.Chrom,
			Start:     clip(iv.Start-opts.Pad, 0, n),
			End:       clip(iv.End+opts.Pad, 0, n),
			Type:      iv.Type,
			Origin:    Consensus,
			Sources:   append([]string(nil), iv.Sources...),
			Intervals: []sv.Interval{iv},
		})
	}
	regions = dedup(regions, opts.Order)
	for i := range regions {
		r := &regions[i]
		r.Tools = len(r.Sources)
		switch {
		case !assemble[r.Type]:
			r.Skip, r.SkipReason = true, SkipType
		case longestInterval(r) > opts.MaxIntervalSize && opts.MaxIntervalSize > 0:
			r.Skip, r.SkipReason = true, SkipSize
		case opts.MaxTools > 0 && r.Tools > opts.MaxTools:
			r.Skip, r.SkipReason = true, SkipTools
		}
	}
	sort.SliceStable(regions, func(i, j int) bool { return lessRegion(opts.Order, &regions[i], &regions[j]) })

	scRegions := softClipRegions(regions, clips, contigLens, opts)
	applyCap(regions, &scRegions, opts.MaxRegions)
	out := append(regions, scRegions...)
	sort.SliceStable(out, func(i, j int) bool { return lessRegion(opts.Order, &out[i], &out[j]) })

	nSkip := 0
	for _, r := range out {
		if r.Skip {
			nSkip++
		}
	}
	log.Printf("%d candidate region(s) from %d consensus call(s) and %d soft-clip cluster(s); %d skip assembly",
		len(out), len(consensus), len(clips), nSkip)
	return out
}

func longestInterval(r *Region) int {
	n := 0
	for _, iv := range r.Intervals {
		if s := iv.Span(); s > n {
			n = s
		}
	}
	return n
}

// dedup merges overlapping windows of the same contig and type.
func dedup(regions []Region, order sv.ContigOrder) []Region {
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := &regions[i], &regions[j]
		if a.Chrom != b.Chrom {
			return order.LessChrom(a.Chrom, b.Chrom)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
	var out []Region
	for _, r := range regions {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Type == r.Type && last.Overlaps(&r) {
				if r.End > last.End {
					last.End = r.End
				}
				last.Sources = sv.NormalizeSources(append(last.Sources, r.Sources...))
				last.Intervals = append(last.Intervals, r.Intervals...)
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// regionKey orders consensus regions in the overlap index.
type regionKey struct {
	chrom string
	start int
	// seq breaks ties between regions with the same start.
	seq int
	r   *Region
}

func (k regionKey) Compare(c llrb.Comparable) int {
	o := c.(regionKey)
	switch {
	case k.chrom < o.chrom:
		return -1
	case k.chrom > o.chrom:
		return 1
	case k.start != o.start:
		return k.start - o.start
	}
	return k.seq - o.seq
}

// regionIndex answers overlap queries against consensus regions.
type regionIndex struct {
	tree   llrb.Tree
	maxLen int
}

func newRegionIndex(regions []Region) *regionIndex {
	idx := &regionIndex{}
	for i := range regions {
		r := &regions[i]
		idx.tree.Insert(regionKey{chrom: r.Chrom, start: r.Start, seq: i, r: r})
		if r.Len() > idx.maxLen {
			idx.maxLen = r.Len()
		}
	}
	return idx
}

// overlaps checks whether any indexed region overlaps q.
func (idx *regionIndex) overlaps(q *Region) bool {
	found := false
	from := regionKey{chrom: q.Chrom, start: q.Start - idx.maxLen, seq: -1}
	to := regionKey{chrom: q.Chrom, start: q.End, seq: -1}
	idx.tree.DoRange(func(c llrb.Comparable) bool {
		if c.(regionKey).r.Overlaps(q) {
			found = true
		}
		return found
	}, from, to)
	return found
}

// softClipRegions turns clusters into padded insertion windows, dropping
// those that overlap consensus regions and merging overlapping windows.
func softClipRegions(consensus []Region, clips []SoftClipCluster, contigLens map[string]int, opts Opts) []Region {
	idx := newRegionIndex(consensus)
	var regions []Region
	for _, c := range clips {
		n := contigLen(contigLens, c.Chrom)
		r := Region{
			Chrom:   c.Chrom,
			Start:   clip(c.Pos-opts.Pad, 0, n),
			End:     clip(c.Pos+opts.Pad, 0, n),
			Type:    sv.Insertion,
			Origin:  SoftClip,
			Sources: []string{SoftClipSource},
			Support: c.Support,
		}
		if r.End <= r.Start || idx.overlaps(&r) {
			continue
		}
		regions = append(regions, r)
	}
	sort.SliceStable(regions, func(i, j int) bool { return lessRegion(opts.Order, &regions[i], &regions[j]) })
	var out []Region
	for _, r := range regions {
		if n := len(out); n > 0 && out[n-1].Overlaps(&r) {
			last := &out[n-1]
			if r.End > last.End {
				last.End = r.End
			}
			last.Support += r.Support
			continue
		}
		out = append(out, r)
	}
	return out
}

// applyCap spends the assembly budget on consensus regions in coordinate
// order, then on soft-clip regions by decreasing support.  Consensus regions
// over budget are skipped; soft-clip regions over budget are dropped.
func applyCap(consensus []Region, scRegions *[]Region, maxRegions int) {
	if maxRegions <= 0 {
		return
	}
	budget := maxRegions
	nCapped := 0
	for i := range consensus {
		r := &consensus[i]
		if r.Skip {
			continue
		}
		if budget == 0 {
			r.Skip, r.SkipReason = true, SkipCap
			nCapped++
			continue
		}
		budget--
	}
	sc := *scRegions
	sort.SliceStable(sc, func(i, j int) bool { return sc[i].Support > sc[j].Support })
	if len(sc) > budget {
		nCapped += len(sc) - budget
		sc = sc[:budget]
	}
	*scRegions = sc
	if nCapped > 0 {
		log.Printf("assembly cap of %d region(s) reached; %d region(s) not assembled", maxRegions, nCapped)
	}
}
