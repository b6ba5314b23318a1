// Package svmerge runs the structural-variant consensus pipeline: it loads
// per-tool calls, merges them into consensus calls, picks candidate regions,
// refines them by local assembly and genotypes the result.  The refinement
// can be split across a fleet of processes, each handling one slice of the
// candidate regions, and joined afterwards.
package svmerge

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/svmerge/candidate"
	"github.com/grailbio/svmerge/encoding/bamprovider"
	"github.com/grailbio/svmerge/encoding/bedio"
	"github.com/grailbio/svmerge/encoding/fasta"
	"github.com/grailbio/svmerge/encoding/vcf"
	"github.com/grailbio/svmerge/genotype"
	"github.com/grailbio/svmerge/partition"
	"github.com/grailbio/svmerge/refine"
	"github.com/grailbio/svmerge/sv"
	"github.com/minio/highwayhash"
)

// Output file names, relative to Opts.OutDir.
const (
	PreAssemblyVCF = "pre_asm.vcf"
	ConsensusBED   = "consensus.bed"
	CandidatesBED  = "candidates.bed"
	FinalVCF       = "variants.vcf"
	StatsTSV       = "stats.tsv"
)

// Header keys of the intermediate BED files.
const (
	MetaRun   = "run"
	MetaSlice = "slice"
)

// PartialName is the file name of a slice's output.
func PartialName(s partition.Slice) string {
	return fmt.Sprintf("genotyped.%d.%d.bed", s.Worker(), s.Fleet())
}

// Summary describes a finished run.
type Summary struct {
	// RunID identifies the consensus run the output derives from.
	RunID string
	// Stats counts the output calls.
	Stats *sv.Stats
	// ConsensusStats counts the pre-assembly consensus calls.  It is nil in
	// sliced and merge runs.
	ConsensusStats *sv.Stats
	// Outcomes counts refined regions per terminal state.
	Outcomes map[refine.State]int
	// Digest is a hash of the sorted output calls.  A fleet merge and a
	// single-process run over the same regions have the same digest.
	Digest string
	// Calls is the number of output calls.
	Calls int
	// Outputs lists the files written.
	Outputs []string
}

type runner struct {
	opts    Opts
	ref     *fasta.Reference
	order   sv.ContigOrder
	source  bamprovider.Provider
	summary Summary
}

// Run executes opts.Mode.  Usage errors are errors.Invalid, missing inputs
// errors.NotExist and an inconsistent fleet merge errors.Integrity.
func Run(ctx context.Context, opts Opts) (Summary, error) {
	if err := validate(&opts); err != nil {
		return Summary{}, err
	}
	if err := checkInputs(ctx, append([]string{opts.BAM, opts.Gaps}, inputPaths(&opts)...)...); err != nil {
		return Summary{}, err
	}
	ref, err := fasta.Open(ctx, opts.Reference)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := ref.Close(ctx); err != nil {
			log.Error.Printf("close %s: %v", opts.Reference, err)
		}
	}()
	if !strings.Contains(opts.OutDir, "://") {
		if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
			return Summary{}, errors.E(err, "create", opts.OutDir)
		}
	}

	r := &runner{opts: opts, ref: ref, summary: Summary{Outcomes: map[refine.State]int{}}}
	names := make([]string, len(ref.Contigs))
	for i, c := range ref.Contigs {
		names[i] = c.Name
	}
	r.order = sv.NewContigOrder(names)
	if err := r.openSource(); err != nil {
		return Summary{}, err
	}
	if r.source != nil && opts.Source == nil {
		defer func() {
			if err := r.source.Close(); err != nil {
				log.Error.Printf("close %s: %v", opts.BAM, err)
			}
		}()
	}

	switch opts.Mode {
	case ModeConsensus:
		err = r.consensusOnly(ctx)
	case ModeFull:
		err = r.full(ctx)
	case ModeSliced:
		err = r.sliced(ctx)
	case ModeMerge:
		err = r.merge(ctx)
	}
	if err != nil {
		return Summary{}, err
	}
	return r.summary, nil
}

func inputPaths(opts *Opts) []string {
	switch opts.Mode {
	case ModeSliced:
		return []string{opts.RegionsPath}
	case ModeMerge:
		return opts.Partials
	}
	var paths []string
	for _, in := range opts.inputs() {
		paths = append(paths, in.path)
	}
	return paths
}

func (r *runner) openSource() error {
	switch {
	case r.opts.Source != nil:
		r.source = r.opts.Source
	case r.opts.BAM != "" && r.opts.Mode != ModeMerge && r.opts.Mode != ModeConsensus:
		r.source = bamprovider.NewProvider(r.opts.BAM)
		if _, err := r.source.GetHeader(); err != nil {
			_ = r.source.Close()
			return errors.E(errors.NotExist, err, "read BAM header", r.opts.BAM)
		}
	}
	return nil
}

func (r *runner) path(name string) string {
	return strings.TrimSuffix(r.opts.OutDir, "/") + "/" + name
}

func (r *runner) wrote(path string) {
	log.Printf("wrote %s", path)
	r.summary.Outputs = append(r.summary.Outputs, path)
}

func (r *runner) writeVCF(ctx context.Context, path string, calls []sv.Call) error {
	opts := vcf.WriterOpts{
		Sample:        r.opts.Sample,
		Contigs:       r.ref.Contigs,
		ReferencePath: r.opts.Reference,
		Reference:     r.ref,
	}
	if err := vcf.WriteFile(ctx, path, opts, calls); err != nil {
		return err
	}
	r.wrote(path)
	return nil
}

func unrefined(ivs []sv.Interval) []sv.Call {
	calls := make([]sv.Call, len(ivs))
	for i, iv := range ivs {
		calls[i] = sv.NewCall(iv)
	}
	return calls
}

// consensus loads and merges the tool calls, and writes the pre-assembly
// call set.
func (r *runner) consensus(ctx context.Context) (sv.Result, error) {
	filter, err := newFilter(ctx, &r.opts, namesOf(r.ref.Contigs))
	if err != nil {
		return sv.Result{}, err
	}
	perTool, err := ingest(ctx, &r.opts, filter)
	if err != nil {
		return sv.Result{}, err
	}
	res := sv.Consensus(perTool, r.order, sv.ConsensusOpts{
		OverlapRatio: r.opts.OverlapRatio,
		MinLen:       r.opts.MinSVLen,
		MaxLen:       r.opts.MaxSVLen,
		TrustedTools: r.opts.TrustedTools,
	})
	r.summary.RunID = uuid.New().String()
	log.Printf("run %s: %d consensus call(s)", r.summary.RunID, len(res.Calls))

	calls := unrefined(res.Calls)
	r.summary.ConsensusStats = sv.NewStats()
	r.summary.ConsensusStats.AddCalls(calls)
	r.summary.ConsensusStats.Log("consensus")
	if err := r.writeVCF(ctx, r.path(PreAssemblyVCF), calls); err != nil {
		return sv.Result{}, err
	}
	path := r.path(ConsensusBED)
	if err := bedio.WriteCalls(ctx, path, map[string]string{MetaRun: r.summary.RunID}, calls); err != nil {
		return sv.Result{}, err
	}
	r.wrote(path)
	if r.opts.PerToolOutput {
		for _, tool := range sortedKeys(res.PerTool) {
			if err := r.writeVCF(ctx, r.path(tool+".vcf"), unrefined(res.PerTool[tool])); err != nil {
				return sv.Result{}, err
			}
		}
	}
	return res, nil
}

func (r *runner) consensusOnly(ctx context.Context) error {
	res, err := r.consensus(ctx)
	if err != nil {
		return err
	}
	return r.finish(ctx, unrefined(res.Calls))
}

func (r *runner) full(ctx context.Context) error {
	res, err := r.consensus(ctx)
	if err != nil {
		return err
	}
	var clips []candidate.SoftClipCluster
	if !r.opts.DisableSoftClips {
		chroms := r.chroms()
		if clips, err = candidate.FindSoftClips(ctx, r.source, chroms, r.ref.ContigLengths(), r.opts.SoftClips); err != nil {
			return err
		}
	}
	candOpts := r.opts.Candidates
	candOpts.Order = r.order
	regions := candidate.Generate(res.Calls, clips, r.ref.ContigLengths(), candOpts)
	path := r.path(CandidatesBED)
	if err := candidate.WriteRegions(ctx, path, map[string]string{MetaRun: r.summary.RunID}, regions); err != nil {
		return err
	}
	r.wrote(path)

	calls, err := r.refineAndGenotype(ctx, regions)
	if err != nil {
		return err
	}
	return r.finish(ctx, calls)
}

// chroms lists the reference contigs that pass the contig whitelist, in
// reference order.
func (r *runner) chroms() []string {
	names := namesOf(r.ref.Contigs)
	allowed := sv.ContigWhitelist(names, r.opts.Chromosomes, r.opts.KeepStandardContigs)
	if allowed == nil {
		return names
	}
	var out []string
	for _, n := range names {
		if allowed[n] {
			out = append(out, n)
		}
	}
	return out
}

func (r *runner) refineAndGenotype(ctx context.Context, regions []candidate.Region) ([]sv.Call, error) {
	p := &refine.Pipeline{
		Opts:      r.opts.Refine,
		Source:    r.source,
		Reference: r.ref,
		Assembler: r.opts.Assembler,
		Aligner:   r.opts.Aligner,
	}
	p.Opts.WorkDir = filepath.Join(r.opts.WorkDir, "refine")
	if p.Assembler == nil && r.opts.AssemblerPath != "" {
		p.Assembler = &refine.CommandAssembler{Path: r.opts.AssemblerPath, Args: r.opts.AssemblerArgs}
	}
	if p.Aligner == nil && r.opts.AlignerPath != "" {
		p.Aligner = &refine.CommandAligner{Path: r.opts.AlignerPath, Args: r.opts.AlignerArgs}
	}
	res, err := p.Run(ctx, regions, r.order)
	if err != nil {
		return nil, err
	}
	for s, n := range res.Outcomes {
		r.summary.Outcomes[s] += n
	}
	g := &genotype.Genotyper{Source: r.source, Opts: r.opts.Genotype}
	return g.Genotype(ctx, res.Calls)
}

func (r *runner) sliced(ctx context.Context) error {
	slice, err := r.opts.slice()
	if err != nil {
		return err
	}
	regions, meta, err := candidate.ReadRegions(ctx, r.opts.RegionsPath)
	if err != nil {
		return err
	}
	r.summary.RunID = meta[MetaRun]
	var mine []candidate.Region
	for _, i := range slice.Select(len(regions), func(i int) string { return regions[i].ID() }) {
		mine = append(mine, regions[i])
	}
	log.Printf("slice %v: %d of %d region(s)", slice, len(mine), len(regions))
	calls, err := r.refineAndGenotype(ctx, mine)
	if err != nil {
		return err
	}
	path := r.path(PartialName(slice))
	meta = map[string]string{MetaSlice: slice.String(), MetaRun: r.summary.RunID}
	if err := bedio.WriteCalls(ctx, path, meta, calls); err != nil {
		return err
	}
	r.wrote(path)
	return r.summarize(calls)
}

func (r *runner) merge(ctx context.Context) error {
	var (
		slices []partition.Slice
		calls  []sv.Call
	)
	for i, path := range r.opts.Partials {
		part, meta, err := bedio.ReadCalls(ctx, path)
		if err != nil {
			return err
		}
		slice, err := partition.ParseSlice(meta[MetaSlice])
		if err != nil {
			return errors.E(errors.Integrity, err, path, "has no valid slice header")
		}
		if i == 0 {
			r.summary.RunID = meta[MetaRun]
		} else if meta[MetaRun] != r.summary.RunID {
			return errors.E(errors.Integrity, fmt.Sprintf("%s is from run %q, %s from run %q",
				path, meta[MetaRun], r.opts.Partials[0], r.summary.RunID))
		}
		slices = append(slices, slice)
		calls = append(calls, part...)
	}
	if err := partition.CheckComplete(slices); err != nil {
		return err
	}
	log.Printf("merging %d call(s) from %d slice(s)", len(calls), len(slices))
	sv.SortCalls(calls, r.order)
	return r.finish(ctx, calls)
}

// finish writes the final VCF and statistics.
func (r *runner) finish(ctx context.Context, calls []sv.Call) error {
	if err := r.writeVCF(ctx, r.path(FinalVCF), calls); err != nil {
		return err
	}
	if err := r.summarize(calls); err != nil {
		return err
	}
	path := r.path(StatsTSV)
	if err := writeStats(ctx, path, r.summary.Stats); err != nil {
		return err
	}
	r.wrote(path)
	return nil
}

func (r *runner) summarize(calls []sv.Call) error {
	stats := sv.NewStats()
	stats.AddCalls(calls)
	stats.Log("final")
	digest, err := Digest(calls)
	if err != nil {
		return err
	}
	r.summary.Stats = stats
	r.summary.Digest = digest
	r.summary.Calls = len(calls)
	log.Printf("%d call(s), digest %s", len(calls), digest)
	return nil
}

func writeStats(ctx context.Context, path string, stats *sv.Stats) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	return stats.Write(out.Writer(ctx))
}

var digestKey [32]byte

// Digest hashes calls in their BED form.
func Digest(calls []sv.Call) (string, error) {
	h, err := highwayhash.New(digestKey[:])
	if err != nil {
		return "", err
	}
	w := bedio.NewWriter(h)
	for _, c := range calls {
		if err := w.Write(bedio.FromCall(c)); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func namesOf(contigs []fasta.Contig) []string {
	names := make([]string, len(contigs))
	for i, c := range contigs {
		names[i] = c.Name
	}
	return names
}

func sortedKeys(m map[string][]sv.Interval) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
