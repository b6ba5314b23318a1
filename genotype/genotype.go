// Package genotype assigns a zygosity to each call from the read pairs
// around its breakpoints.
package genotype

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/svmerge/encoding/bamprovider"
	"github.com/grailbio/svmerge/sv"
)

// Opts configures a Genotyper.
type Opts struct {
	// Window is the distance scanned on each side of a breakpoint.
	Window int
	// IsizeMean and IsizeSD describe the library's insert size.  Pairs
	// within three standard deviations of the mean are concordant.
	IsizeMean, IsizeSD float64
	// NormalFrac is the reference fraction above which a call is 0/0.
	NormalFrac float64
	// HomFrac is the reference fraction below which a call is 1/1.
	HomFrac float64
	// MinMapQ drops poorly mapped reads.
	MinMapQ int
	// MinSoftClip is the shortest clip counted as breakpoint evidence.
	MinSoftClip int
	// Parallelism is the number of calls genotyped at once.
	Parallelism int
}

// DefaultOpts holds the default genotyping parameters.
var DefaultOpts = Opts{
	Window:      100,
	IsizeMean:   350,
	IsizeSD:     50,
	NormalFrac:  0.95,
	HomFrac:     0.05,
	MinMapQ:     5,
	MinSoftClip: 20,
	Parallelism: 1,
}

// clipSlop is how far a clip may lie from a breakpoint and still count.
const clipSlop = 10

func validate(opts *Opts) error {
	if opts.Window <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("genotype window must be > 0, got %d", opts.Window))
	}
	if opts.IsizeSD < 0 || opts.IsizeMean < 0 {
		return errors.E(errors.Invalid, "insert size mean and sd must be >= 0")
	}
	if opts.HomFrac < 0 || opts.HomFrac > opts.NormalFrac || opts.NormalFrac > 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("need 0 <= hom frac (%v) <= normal frac (%v) <= 1", opts.HomFrac, opts.NormalFrac))
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return nil
}

// Classify turns allele counts into a genotype.
func Classify(ref, alt int, opts Opts) string {
	total := ref + alt
	if total == 0 {
		return sv.NoCall
	}
	frac := float64(ref) / float64(total)
	switch {
	case frac > opts.NormalFrac:
		return sv.HomRef
	case frac < opts.HomFrac:
		return sv.HomAlt
	}
	return sv.Het
}

// Genotyper genotypes calls against one read source.
type Genotyper struct {
	Source bamprovider.Provider
	Opts   Opts
}

// Genotype returns a copy of calls with Genotype, RefReads and AltReads
// set.  Calls are independent and genotyped in parallel.
func (g *Genotyper) Genotype(ctx context.Context, calls []sv.Call) ([]sv.Call, error) {
	opts := g.Opts
	if err := validate(&opts); err != nil {
		return nil, err
	}
	if g.Source == nil {
		return nil, errors.E(errors.Invalid, "genotyping needs a read source")
	}
	out := make([]sv.Call, len(calls))
	copy(out, calls)
	err := traverse.Limit(opts.Parallelism).Each(len(out), func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := &out[i]
		ref, alt, err := g.count(c, opts)
		if err != nil {
			return errors.E(err, "genotype", c.Key())
		}
		c.RefReads, c.AltReads = ref, alt
		c.Genotype = Classify(ref, alt, opts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, c := range out {
		counts[c.Genotype]++
	}
	log.Printf("genotyped %d call(s): %d %s, %d %s, %d %s, %d %s", len(out),
		counts[sv.HomAlt], sv.HomAlt, counts[sv.Het], sv.Het, counts[sv.HomRef], sv.HomRef, counts[sv.NoCall], sv.NoCall)
	return out, nil
}

// breakpoints lists the positions whose neighborhood is scanned.
func breakpoints(c *sv.Call) []int {
	if c.Type.HasSpanLength() && c.End > c.Start {
		return []int{c.Start, c.End}
	}
	return []int{c.Start}
}

// vote is the evidence of one fragment.
type vote int

const (
	none vote = iota
	refVote
	altVote
)

// count scans both breakpoints and returns the number of fragments
// supporting each allele.  A fragment seen at both breakpoints, or through
// both mates, counts once; alt evidence wins over ref evidence.
func (g *Genotyper) count(c *sv.Call, opts Opts) (ref, alt int, err error) {
	votes := map[string]vote{}
	for _, bp := range breakpoints(c) {
		start := bp - opts.Window
		if start < 0 {
			start = 0
		}
		iter := g.Source.NewIterator(c.Chrom, start, bp+opts.Window)
		for iter.Scan() {
			r := iter.Record()
			if !bamprovider.IsPrimaryMapped(r, opts.MinMapQ) {
				continue
			}
			v := classifyRead(r, c.Type, bp, opts)
			if v > votes[r.Name] {
				votes[r.Name] = v
			}
		}
		if err := iter.Close(); err != nil {
			return 0, 0, err
		}
	}
	for _, v := range votes {
		switch v {
		case refVote:
			ref++
		case altVote:
			alt++
		}
	}
	return ref, alt, nil
}

// classifyRead decides what r says about a breakpoint at bp.
func classifyRead(r *sam.Record, typ sv.SVType, bp int, opts Opts) vote {
	end := bamprovider.AlignedEnd(r)
	left, right := bamprovider.SoftClips(r)
	if left >= opts.MinSoftClip && abs(r.Pos-bp) <= clipSlop {
		return altVote
	}
	if right >= opts.MinSoftClip && abs(end-bp) <= clipSlop {
		return altVote
	}
	if v := classifyPair(r, typ, bp, opts); v != none {
		return v
	}
	if r.Pos < bp-clipSlop && end > bp+clipSlop {
		return refVote
	}
	return none
}

// classifyPair looks at the pair orientation and insert size.
func classifyPair(r *sam.Record, typ sv.SVType, bp int, opts Opts) vote {
	if r.Flags&sam.Paired == 0 || r.Flags&sam.MateUnmapped != 0 || r.MateRef == nil {
		return none
	}
	if r.MateRef.Name() != r.Ref.Name() {
		if typ.IsTranslocation() {
			return altVote
		}
		return none
	}
	maxIsize := int(opts.IsizeMean + 3*opts.IsizeSD)
	minIsize := int(opts.IsizeMean - 3*opts.IsizeSD)
	isize := abs(r.TempLen)
	reverse := r.Flags&sam.Reverse != 0
	mateReverse := r.Flags&sam.MateReverse != 0
	leftmost := r.Pos < r.MatePos || (r.Pos == r.MatePos && r.Flags&sam.Read1 != 0)

	switch {
	case reverse == mateReverse:
		if typ == sv.Inversion {
			return altVote
		}
		return none
	case leftmost == reverse:
		// Everted: the leftmost read points left.
		if typ == sv.Duplication {
			return altVote
		}
		return none
	}

	lo := r.Pos
	if r.MatePos < lo {
		lo = r.MatePos
	}
	spans := lo < bp && bp < lo+isize
	switch {
	case isize > maxIsize:
		if spans && (typ == sv.Deletion || typ == sv.IntraTranslocation) {
			return altVote
		}
		return none
	case isize >= minIsize && spans:
		return refVote
	}
	return none
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
