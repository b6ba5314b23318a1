// Package candidate selects the genomic windows that are sent to local
// assembly: padded windows around consensus calls, plus windows around
// clusters of soft-clipped reads that no caller reported.
package candidate

import (
	"fmt"
	"strconv"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/svmerge/sv"
)

// Origin records why a region exists.
type Origin string

const (
	// Consensus regions surround one or more consensus calls.
	Consensus Origin = "consensus"
	// SoftClip regions surround a cluster of soft-clipped reads.
	SoftClip Origin = "softclip"
)

// SoftClipSource is the source name of soft-clip regions.
const SoftClipSource = "SC"

// Reasons a region is not assembled.
const (
	SkipType  = "type"
	SkipSize  = "size"
	SkipTools = "tools"
	SkipCap   = "cap"
)

// Region is a window of the reference to refine.  Start and End are
// 0-based half-open and already include padding.
type Region struct {
	Chrom      string
	Start, End int
	Type       sv.SVType
	Origin     Origin
	// Sources is the union of the supporting intervals' sources, or
	// SoftClipSource.
	Sources []string
	// Tools is the number of distinct callers behind the region.  Zero for
	// soft-clip regions.
	Tools int
	// Support is the number of soft-clipped reads behind a soft-clip region.
	Support int
	// Skip regions pass through refinement unchanged.
	Skip       bool
	SkipReason string
	// Intervals are the consensus calls the region was built from.
	Intervals []sv.Interval
}

// Key is the canonical text form of the region.
func (r *Region) Key() string {
	return fmt.Sprintf("%s:%d-%d:%s:%s", r.Chrom, r.Start, r.End, r.Type, r.Origin)
}

// ID is a short stable identifier derived from Key.  It names the region's
// work directory and is the region's partition key.
func (r *Region) ID() string {
	return fmt.Sprintf("%016x", seahash.Sum64([]byte(r.Key())))
}

// Len is the window length.
func (r *Region) Len() int { return r.End - r.Start }

// Overlaps checks whether the windows of r and o share a base.
func (r *Region) Overlaps(o *Region) bool {
	return r.Chrom == o.Chrom && r.Start < o.End && o.Start < r.End
}

func (r *Region) String() string {
	s := r.Key() + "/" + strconv.Itoa(len(r.Intervals))
	if r.Skip {
		s += "/skip:" + r.SkipReason
	}
	return s
}

// lessRegion orders regions by contig order, window, type and origin.
func lessRegion(order sv.ContigOrder, a, b *Region) bool {
	if a.Chrom != b.Chrom {
		return order.LessChrom(a.Chrom, b.Chrom)
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
	return a.Origin < b.Origin
}
