package candidate

import (
	"context"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/svmerge/encoding/bamprovider"
)

// SoftClipCluster is a reference position where many reads stop aligning.
type SoftClipCluster struct {
	Chrom string
	// Pos is the 0-based position shared by the most clipped reads.
	Pos int
	// Support is the number of clipped reads in the cluster.
	Support int
	// Coverage is the number of reads aligned across Pos.
	Coverage int
}

// SoftClipOpts configures FindSoftClips.
type SoftClipOpts struct {
	// MinSupport is the minimum number of clipped reads in a cluster.
	MinSupport int
	// MinSupportFrac is the minimum ratio of clipped reads to coverage.
	MinSupportFrac float64
	// MinSoftClip is the minimum clip length for a read to count.
	MinSoftClip int
	// MinAvgBaseQual is the minimum mean base quality of counted reads.
	MinAvgBaseQual float64
	// MinMapQ is the minimum mapping quality of counted reads.
	MinMapQ int
	// ClusterWindow joins clip positions at most this far apart.
	ClusterWindow int
	// MeanReadCoverage, if > 0, enables the coverage bounds
	// [MinCovFrac, MaxCovFrac] * MeanReadCoverage.
	MeanReadCoverage       float64
	MinCovFrac, MaxCovFrac float64
	// Parallelism bounds the number of contigs scanned at once.
	Parallelism int
}

// DefaultSoftClipOpts holds the default soft-clip detection parameters.
var DefaultSoftClipOpts = SoftClipOpts{
	MinSupport:       5,
	MinSupportFrac:   0.1,
	MinSoftClip:      20,
	MinAvgBaseQual:   20,
	MinMapQ:          5,
	ClusterWindow:    20,
	MeanReadCoverage: 50,
	MinCovFrac:       0.5,
	MaxCovFrac:       1.5,
	Parallelism:      1,
}

// clipPositions returns the sorted clip positions of the qualifying reads on
// chrom.
func clipPositions(p bamprovider.Provider, chrom string, length int, opts SoftClipOpts) ([]int, error) {
	var positions []int
	iter := p.NewIterator(chrom, 0, length)
	for iter.Scan() {
		r := iter.Record()
		if !qualifies(r, opts) {
			continue
		}
		left, right := bamprovider.SoftClips(r)
		if left >= opts.MinSoftClip {
			positions = append(positions, r.Pos)
		}
		if right >= opts.MinSoftClip {
			positions = append(positions, bamprovider.AlignedEnd(r))
		}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	sort.Ints(positions)
	return positions, nil
}

func qualifies(r *sam.Record, opts SoftClipOpts) bool {
	return bamprovider.IsPrimaryMapped(r, opts.MinMapQ) && bamprovider.MeanBaseQuality(r) >= opts.MinAvgBaseQual
}

// cluster groups sorted positions.  The position of a cluster is its most
// frequent member, the smallest one on ties.
func cluster(chrom string, positions []int, window int) []SoftClipCluster {
	var out []SoftClipCluster
	for i := 0; i < len(positions); {
		j := i + 1
		for j < len(positions) && positions[j]-positions[j-1] <= window {
			j++
		}
		best, bestN := positions[i], 0
		for k := i; k < j; {
			l := k
			for l < j && positions[l] == positions[k] {
				l++
			}
			if l-k > bestN {
				best, bestN = positions[k], l-k
			}
			k = l
		}
		out = append(out, SoftClipCluster{Chrom: chrom, Pos: best, Support: j - i})
		i = j
	}
	return out
}

func coverage(p bamprovider.Provider, chrom string, pos int, opts SoftClipOpts) (int, error) {
	n := 0
	iter := p.NewIterator(chrom, pos, pos+1)
	for iter.Scan() {
		if qualifies(iter.Record(), opts) {
			n++
		}
	}
	return n, iter.Close()
}

func (opts SoftClipOpts) keep(c SoftClipCluster) bool {
	if c.Support < opts.MinSupport || float64(c.Support) < opts.MinSupportFrac*float64(c.Coverage) {
		return false
	}
	if opts.MeanReadCoverage > 0 {
		cov := float64(c.Coverage)
		return cov >= opts.MinCovFrac*opts.MeanReadCoverage && cov <= opts.MaxCovFrac*opts.MeanReadCoverage
	}
	return true
}

// FindSoftClips scans the given contigs in parallel for clusters of
// soft-clipped reads.  contigLens supplies the scan range of each contig.
// The result is ordered as chroms, then by position.
func FindSoftClips(ctx context.Context, p bamprovider.Provider, chroms []string, contigLens map[string]int, opts SoftClipOpts) ([]SoftClipCluster, error) {
	perContig := make([][]SoftClipCluster, len(chroms))
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	err := traverse.Limit(parallelism).Each(len(chroms), func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		chrom := chroms[i]
		length, ok := contigLens[chrom]
		if !ok {
			return errors.E(errors.Invalid, "unknown contig length", chrom)
		}
		positions, err := clipPositions(p, chrom, length, opts)
		if err != nil {
			return errors.E(err, "soft-clip scan", chrom)
		}
		for _, c := range cluster(chrom, positions, opts.ClusterWindow) {
			if c.Support < opts.MinSupport {
				continue
			}
			if c.Coverage, err = coverage(p, chrom, c.Pos, opts); err != nil {
				return errors.E(err, "coverage", chrom)
			}
			if opts.keep(c) {
				perContig[i] = append(perContig[i], c)
			}
		}
		log.Debug.Printf("%s: %d clipped read end(s), %d soft-clip cluster(s)", chrom, len(positions), len(perContig[i]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	var out []SoftClipCluster
	for _, c := range perContig {
		out = append(out, c...)
	}
	log.Printf("%d soft-clip cluster(s) on %d contig(s)", len(out), len(chroms))
	return out, nil
}
