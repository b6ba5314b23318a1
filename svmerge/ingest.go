package svmerge

import (
	"context"
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/svmerge/encoding/bedio"
	"github.com/grailbio/svmerge/encoding/vcf"
	"github.com/grailbio/svmerge/interval"
	"github.com/grailbio/svmerge/sv"
)

// input is one call file of one tool.
type input struct {
	tool, path string
	vcf        bool
}

func (o *Opts) inputs() []input {
	var in []input
	for tool, paths := range o.VCFInputs {
		for _, p := range paths {
			in = append(in, input{tool, p, true})
		}
	}
	for tool, paths := range o.BEDInputs {
		for _, p := range paths {
			in = append(in, input{tool, p, false})
		}
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].tool != in[j].tool {
			return in[i].tool < in[j].tool
		}
		return in[i].path < in[j].path
	})
	return in
}

// checkInputs stats every input so that a missing file fails the run before
// any work starts.
func checkInputs(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := file.Stat(ctx, p); err != nil {
			return errors.E(errors.NotExist, err, "input", p)
		}
	}
	return nil
}

// readBED loads a tool's BED calls.  Every row is attributed to the tool.
func readBED(ctx context.Context, path, tool string) ([]sv.Interval, error) {
	recs, _, err := bedio.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	ivs := make([]sv.Interval, 0, len(recs))
	for i, rec := range recs {
		rec.Sources = []string{tool}
		iv, err := rec.Interval()
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("%s: record %d", path, i+1))
		}
		ivs = append(ivs, iv)
	}
	return ivs, nil
}

// ingest loads every tool's calls and applies, in order, the tool's
// post-filters, the contig, gap, type and length filter, and the wiggle.
func ingest(ctx context.Context, opts *Opts, filter *sv.Filter) (map[string][]sv.Interval, error) {
	inputs := opts.inputs()
	loaded := make([][]sv.Interval, len(inputs))
	err := traverse.Limit(opts.Parallelism).Each(len(inputs), func(i int) (err error) {
		in := inputs[i]
		if in.vcf {
			loaded[i], err = vcf.ReadFile(ctx, in.path, in.tool)
		} else {
			loaded[i], err = readBED(ctx, in.path, in.tool)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	perTool := map[string][]sv.Interval{}
	total := 0
	for i, in := range inputs {
		var postFiltered, filtered int
		for _, iv := range loaded[i] {
			if !opts.PostFilters.Keep(in.tool, iv) {
				postFiltered++
				continue
			}
			if !filter.Keep(iv) {
				filtered++
				continue
			}
			sv.AssignWiggle(&iv, opts.Wiggle, opts.InsWiggle)
			perTool[in.tool] = append(perTool[in.tool], iv)
		}
		total += len(loaded[i])
		log.Printf("%s: %s: %d call(s), %d removed by tool filters, %d by contig, gap, type and length filters",
			in.tool, in.path, len(loaded[i]), postFiltered, filtered)
		if len(loaded[i]) == 0 {
			log.Error.Printf("%s: no calls in %s", in.tool, in.path)
		}
	}
	if total == 0 {
		return nil, errors.E(errors.NotExist, "the tool inputs hold no calls")
	}
	return perTool, nil
}

// newFilter builds the ingestion filter from the options and the reference
// contigs.
func newFilter(ctx context.Context, opts *Opts, refContigs []string) (*sv.Filter, error) {
	f := &sv.Filter{
		Contigs: sv.ContigWhitelist(refContigs, opts.Chromosomes, opts.KeepStandardContigs),
		MinLen:  opts.MinSVLen,
	}
	if len(opts.SVTypes) > 0 {
		f.Types = sv.TypeSet(opts.SVTypes)
	}
	if opts.Gaps != "" {
		gaps, err := interval.NewBEDUnionFromPath(ctx, opts.Gaps)
		if err != nil {
			return nil, err
		}
		f.Gaps = &gaps
	}
	return f, nil
}
