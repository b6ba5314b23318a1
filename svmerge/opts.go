package svmerge

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/svmerge/candidate"
	"github.com/grailbio/svmerge/encoding/bamprovider"
	"github.com/grailbio/svmerge/genotype"
	"github.com/grailbio/svmerge/partition"
	"github.com/grailbio/svmerge/refine"
	"github.com/grailbio/svmerge/sv"
)

// Mode selects what a run does.
type Mode string

const (
	// ModeConsensus merges tool calls and stops before assembly.
	ModeConsensus Mode = "consensus"
	// ModeFull merges, refines and genotypes in one process.
	ModeFull Mode = "full"
	// ModeSliced refines and genotypes one fleet slice of a candidate
	// region file.
	ModeSliced Mode = "sliced"
	// ModeMerge joins the partial outputs of a fleet into the final VCF.
	ModeMerge Mode = "merge"
)

// ParseMode parses a run mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeConsensus, ModeFull, ModeSliced, ModeMerge:
		return m, nil
	}
	return "", errors.E(errors.Invalid, fmt.Sprintf("unknown mode %q, want one of consensus, full, sliced, merge", s))
}

// Opts configures a run.
type Opts struct {
	Mode Mode
	// Sample names the genotype column of the output VCF.
	Sample string
	// Reference is a FASTA file with a .fai index next to it.
	Reference string

	// VCFInputs and BEDInputs map tool names to call files.
	VCFInputs map[string][]string
	BEDInputs map[string][]string
	// Gaps is an optional BED of reference regions to drop calls from.
	Gaps string
	// Chromosomes restricts processing to these contigs.  Empty means every
	// reference contig.
	Chromosomes []string
	// KeepStandardContigs restricts processing to 1-22, X, Y and MT.
	KeepStandardContigs bool
	// SVTypes restricts processing to these types.  Empty means all.
	SVTypes []sv.SVType

	// MinSVLen and MaxSVLen bound non-translocation call lengths.
	MinSVLen, MaxSVLen int
	// OverlapRatio is the reciprocal overlap needed to merge calls.
	OverlapRatio float64
	// Wiggle and InsWiggle are the breakpoint tolerances.
	Wiggle, InsWiggle int
	// TrustedTools may validate a call on their own.
	TrustedTools []string
	// MeanReadLength feeds the default per-tool post-filters.
	MeanReadLength int
	// PostFilters are per-tool filters run when calls are loaded.  Nil means
	// sv.DefaultPostFilters.
	PostFilters sv.PostFilters

	// BAM is the indexed alignment file used for soft-clip discovery,
	// refinement and genotyping.
	BAM string
	// DisableSoftClips turns off soft-clip candidate regions.
	DisableSoftClips bool
	Candidates       candidate.Opts
	SoftClips        candidate.SoftClipOpts
	Refine           refine.Opts
	Genotype         genotype.Opts

	// AssemblerPath and AlignerPath name the external engines, resolved on
	// $PATH unless they contain a slash.
	AssemblerPath, AlignerPath string
	AssemblerArgs, AlignerArgs []string

	// OutDir receives every output file.  WorkDir holds scratch files; it
	// defaults to OutDir/work.
	OutDir, WorkDir string
	// Parallelism applies to soft-clip scanning, refinement and genotyping.
	Parallelism int

	// WorkerID and FleetSize select the slice processed in sliced mode.
	WorkerID, FleetSize int
	// RegionsPath is the candidate region file read in sliced mode.
	RegionsPath string
	// Partials are the slice outputs joined in merge mode.
	Partials []string

	// PerToolOutput writes each tool's loaded calls, before any merging, as
	// <tool>.vcf.
	PerToolOutput bool

	// Source, Assembler and Aligner override BAM, AssemblerPath and
	// AlignerPath.
	Source    bamprovider.Provider
	Assembler refine.Assembler
	Aligner   refine.Aligner
}

// DefaultOpts holds the default run parameters.
var DefaultOpts = Opts{
	Mode:           ModeFull,
	Sample:         "SAMPLE",
	MinSVLen:       50,
	MaxSVLen:       1000000,
	OverlapRatio:   0.5,
	Wiggle:         100,
	InsWiggle:      100,
	MeanReadLength: 100,
	Candidates:     candidate.DefaultOpts,
	SoftClips:      candidate.DefaultSoftClipOpts,
	Refine:         refine.DefaultOpts,
	Genotype:       genotype.DefaultOpts,
	Parallelism:    1,
}

// tools lists the tools with inputs, sorted.
func (o *Opts) tools() []string {
	seen := map[string]bool{}
	for t := range o.VCFInputs {
		seen[t] = true
	}
	for t := range o.BEDInputs {
		seen[t] = true
	}
	tools := make([]string, 0, len(seen))
	for t := range seen {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	return tools
}

// slice returns the fleet slice of a sliced run.
func (o *Opts) slice() (partition.Slice, error) {
	if o.Mode != ModeSliced {
		return partition.Single(), nil
	}
	return partition.NewSlice(o.WorkerID, o.FleetSize)
}

// validate checks usage errors.  Missing files are checked later, by the
// steps that open them.  Full and sliced runs need both engines and a read
// source.
func validate(opts *Opts) error {
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return err
	}
	if opts.Reference == "" {
		return errors.E(errors.Invalid, "a reference is required")
	}
	if opts.OutDir == "" {
		return errors.E(errors.Invalid, "an output directory is required")
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	switch opts.Mode {
	case ModeConsensus, ModeFull:
		if len(opts.tools()) == 0 {
			return errors.E(errors.NotExist, "no tool input given")
		}
		for tool, paths := range opts.VCFInputs {
			if len(paths) == 0 {
				return errors.E(errors.Invalid, fmt.Sprintf("tool %s has no input file", tool))
			}
		}
		if opts.MinSVLen < 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("min SV length must be >= 0, got %d", opts.MinSVLen))
		}
		if opts.MaxSVLen > 0 && opts.MaxSVLen < opts.MinSVLen {
			return errors.E(errors.Invalid, fmt.Sprintf("max SV length %d is below min SV length %d", opts.MaxSVLen, opts.MinSVLen))
		}
		if opts.OverlapRatio < 0 || opts.OverlapRatio > 1 {
			return errors.E(errors.Invalid, fmt.Sprintf("overlap ratio must be in [0,1], got %v", opts.OverlapRatio))
		}
		if opts.Wiggle < 0 || opts.InsWiggle < 0 {
			return errors.E(errors.Invalid, "wiggle must be >= 0")
		}
	case ModeSliced:
		if _, err := opts.slice(); err != nil {
			return err
		}
		if opts.RegionsPath == "" {
			return errors.E(errors.Invalid, "sliced mode needs a candidate region file")
		}
	case ModeMerge:
		if len(opts.Partials) == 0 {
			return errors.E(errors.Invalid, "merge mode needs the partial outputs of every slice")
		}
	}
	if opts.Mode == ModeFull || opts.Mode == ModeSliced {
		if opts.Assembler == nil && opts.AssemblerPath == "" {
			return errors.E(errors.Invalid, fmt.Sprintf("%s mode needs an assembler; use consensus mode to skip assembly", opts.Mode))
		}
		if opts.Aligner == nil && opts.AlignerPath == "" {
			return errors.E(errors.Invalid, fmt.Sprintf("%s mode needs an aligner; use consensus mode to skip assembly", opts.Mode))
		}
		if opts.Source == nil && opts.BAM == "" {
			return errors.E(errors.Invalid, fmt.Sprintf("%s mode needs a BAM file", opts.Mode))
		}
	}
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(opts.OutDir, "work")
	}
	if opts.PostFilters == nil {
		opts.PostFilters = sv.DefaultPostFilters(opts.MeanReadLength, opts.Genotype.IsizeSD)
	}
	opts.Refine.Parallelism = opts.Parallelism
	opts.Genotype.Parallelism = opts.Parallelism
	opts.SoftClips.Parallelism = opts.Parallelism
	return nil
}
