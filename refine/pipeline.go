// Package refine turns candidate regions into refined calls by local
// assembly and alignment.  Each region runs through a small state machine:
//
//   PENDING -> EXTRACTING -> ASSEMBLING -> ALIGNING -> REFINED
//
// Any failure moves the region to FALLBACK, where its consensus calls are
// emitted unchanged.  Regions marked Skip go straight to SKIPPED.  Regions
// share no mutable state, so they are refined in parallel.
package refine

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/svmerge/candidate"
	"github.com/grailbio/svmerge/encoding/bamprovider"
	"github.com/grailbio/svmerge/encoding/fasta"
	"github.com/grailbio/svmerge/sv"
)

// Opts configures a Pipeline.
type Opts struct {
	// MaxReadPairs caps the fragments extracted per region.  Extra
	// fragments are dropped in coordinate order.  <= 0 means no cap.
	MaxReadPairs int
	// MinContigLength drops shorter assembled contigs before alignment.
	MinContigLength int
	// AssemblyTimeout and AlignmentTimeout bound each engine invocation.
	AssemblyTimeout  time.Duration
	AlignmentTimeout time.Duration
	// Window is passed to the aligner to merge nearby breakpoints.
	Window int
	// StopOnFailure makes any region failure fatal.  Otherwise the region
	// falls back to its consensus calls.
	StopOnFailure bool
	// Parallelism is the number of regions refined at once.
	Parallelism int
	// WorkDir holds one scratch directory per region, named by region ID.
	// If empty, a temporary directory is used and removed afterwards.
	WorkDir string
	// KeepWorkDir keeps the per-region scratch directories.
	KeepWorkDir bool
}

// DefaultOpts holds the default refinement parameters.
var DefaultOpts = Opts{
	MaxReadPairs:     10000,
	MinContigLength:  200,
	AssemblyTimeout:  300 * time.Second,
	AlignmentTimeout: 300 * time.Second,
	Window:           50,
	Parallelism:      1,
}

func validate(opts *Opts) error {
	if opts.MinContigLength < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("min contig length must be >= 0, got %d", opts.MinContigLength))
	}
	if opts.AssemblyTimeout < 0 || opts.AlignmentTimeout < 0 {
		return errors.E(errors.Invalid, "engine timeouts must be >= 0")
	}
	if opts.Window < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("window must be >= 0, got %d", opts.Window))
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return nil
}

// Pipeline refines candidate regions.  Without a read source, reference or
// engines every region is SKIPPED.
type Pipeline struct {
	Opts      Opts
	Source    bamprovider.Provider
	Reference fasta.Fasta
	Assembler Assembler
	Aligner   Aligner
}

// Result is the output of Pipeline.Run.
type Result struct {
	// Calls are sorted by the contig order passed to Run.
	Calls []sv.Call
	// States holds the terminal state of each input region.
	States []State
	// Outcomes counts regions per terminal state.
	Outcomes map[State]int
}

func (p *Pipeline) enabled() bool {
	return p.Source != nil && p.Reference != nil && p.Assembler != nil && p.Aligner != nil
}

// Run refines regions in parallel.  It fails only on invalid options, on
// context cancellation, or on a region failure under StopOnFailure.
func (p *Pipeline) Run(ctx context.Context, regions []candidate.Region, order sv.ContigOrder) (Result, error) {
	opts := p.Opts
	if err := validate(&opts); err != nil {
		return Result{}, err
	}
	workDir := opts.WorkDir
	if p.enabled() {
		if workDir == "" {
			dir, err := ioutil.TempDir("", "svmerge-refine")
			if err != nil {
				return Result{}, err
			}
			defer os.RemoveAll(dir) // nolint: errcheck
			workDir = dir
		} else if err := os.MkdirAll(workDir, 0755); err != nil {
			return Result{}, errors.E(err, "create work dir", workDir)
		}
	} else {
		log.Printf("refinement disabled, skipping %d region(s)", len(regions))
	}

	states := make([]State, len(regions))
	calls := make([][]sv.Call, len(regions))
	err := traverse.Limit(opts.Parallelism).Each(len(regions), func(i int) error {
		r := &regions[i]
		t := &tracker{region: r}
		var err error
		calls[i], err = p.refine(ctx, t, opts, workDir)
		states[i] = t.state
		return err
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{States: states, Outcomes: map[State]int{}}
	for i, s := range states {
		res.Outcomes[s]++
		res.Calls = append(res.Calls, calls[i]...)
	}
	sv.SortCalls(res.Calls, order)
	log.Printf("refined %d region(s): %d refined, %d fallback, %d skipped; %d call(s)",
		len(regions), res.Outcomes[Refined], res.Outcomes[Fallback], res.Outcomes[Skipped], len(res.Calls))
	return res, nil
}

// tracker holds the state of one region.
type tracker struct {
	region *candidate.Region
	state  State
}

func (t *tracker) move(to State) {
	if !canMove(t.state, to) {
		log.Panicf("region %s: illegal transition %v -> %v", t.region.ID(), t.state, to)
	}
	log.Debug.Printf("region %s: %v -> %v", t.region.ID(), t.state, to)
	t.state = to
}

// passThrough emits the region's consensus calls unchanged.
func passThrough(r *candidate.Region, outcome sv.Outcome) []sv.Call {
	calls := make([]sv.Call, len(r.Intervals))
	for i, iv := range r.Intervals {
		calls[i] = sv.NewCall(iv.Clone())
		calls[i].RegionID = r.ID()
		calls[i].Outcome = outcome
	}
	return calls
}

// refine drives one region to a terminal state.
func (p *Pipeline) refine(ctx context.Context, t *tracker, opts Opts, workDir string) ([]sv.Call, error) {
	r := t.region
	if r.Skip || !p.enabled() {
		t.move(Skipped)
		return passThrough(r, sv.Skipped), nil
	}
	dir := filepath.Join(workDir, r.ID())
	if !opts.KeepWorkDir {
		defer os.RemoveAll(dir) // nolint: errcheck
	}
	calls, err := p.assemble(ctx, t, opts, dir)
	if err == nil {
		return calls, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if opts.StopOnFailure {
		return nil, errors.E(err, "region", r.String())
	}
	log.Error.Printf("region %s (%s): %v; falling back", r.ID(), r.Key(), err)
	t.move(Fallback)
	return passThrough(r, sv.Fallback), nil
}

// assemble runs extraction, assembly and alignment.  On success the region
// is REFINED.
func (p *Pipeline) assemble(ctx context.Context, t *tracker, opts Opts, dir string) ([]sv.Call, error) {
	r := t.region
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	t.move(Extracting)
	readsPath := filepath.Join(dir, readsFile)
	n, err := extractReads(ctx, p.Source, r, readsPath, opts.MaxReadPairs)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.New("no reads in window")
	}

	t.move(Assembling)
	asmDir := filepath.Join(dir, "assembly")
	if err := os.MkdirAll(asmDir, 0755); err != nil {
		return nil, err
	}
	contigs, err := p.Assembler.Assemble(ctx, AssemblyRequest{
		RegionID:  r.ID(),
		ReadsPath: readsPath,
		OutDir:    asmDir,
		Timeout:   opts.AssemblyTimeout,
	})
	if err != nil {
		return nil, errors.E(err, "assembly")
	}
	var kept []Contig
	for _, c := range contigs {
		if len(c.Seq) >= opts.MinContigLength {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil, errors.New(fmt.Sprintf("no contig of %d bases or more among %d", opts.MinContigLength, len(contigs)))
	}

	t.move(Aligning)
	contigsPath := filepath.Join(dir, contigsFile)
	if err := writeContigs(ctx, contigsPath, kept); err != nil {
		return nil, err
	}
	refPath := filepath.Join(dir, referenceFile)
	slice, err := writeReferenceSlice(ctx, p.Reference, r, refPath)
	if err != nil {
		return nil, err
	}
	alnDir := filepath.Join(dir, "alignment")
	if err := os.MkdirAll(alnDir, 0755); err != nil {
		return nil, err
	}
	bps, err := p.Aligner.Align(ctx, AlignmentRequest{
		RegionID:      r.ID(),
		ReferencePath: refPath,
		Slice:         slice,
		ContigsPath:   contigsPath,
		OutDir:        alnDir,
		Timeout:       opts.AlignmentTimeout,
		Window:        opts.Window,
	})
	if err != nil {
		return nil, errors.E(err, "alignment")
	}
	if len(bps) == 0 {
		return nil, errors.New("no breakpoints")
	}
	calls := make([]sv.Call, 0, len(bps))
	base := template(r)
	for _, bp := range bps {
		if bp.Start < 0 || bp.Start > bp.End || bp.End > r.Len() {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("breakpoint [%d,%d) outside slice of length %d", bp.Start, bp.End, r.Len()))
		}
		iv := base.Clone()
		iv.Start = r.Start + bp.Start
		iv.End = r.Start + bp.End
		iv.Length = bp.Length
		if iv.Length == 0 && iv.Type.HasSpanLength() {
			iv.Length = iv.Span()
		}
		c := sv.NewCall(iv)
		c.RegionID = r.ID()
		c.Outcome = sv.Refined
		calls = append(calls, c)
	}
	t.move(Refined)
	return calls, nil
}

// template is the interval refined breakpoints are stamped on: the merge of
// the supporting calls, carrying the region's type and sources.
func template(r *candidate.Region) sv.Interval {
	var iv sv.Interval
	for i, in := range r.Intervals {
		if i == 0 {
			iv = in.Clone()
			continue
		}
		iv = sv.Merge(iv, in)
	}
	iv.Chrom = r.Chrom
	iv.Type = r.Type
	iv.Sources = append([]string(nil), r.Sources...)
	iv.Precise = true
	iv.ExactBreakpoints = true
	return iv
}
