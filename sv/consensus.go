package sv

import (
	"sort"

	"github.com/grailbio/base/log"
)

// ConsensusOpts configures Consensus.
type ConsensusOpts struct {
	// OverlapRatio is the minimum reciprocal overlap for merging.
	OverlapRatio float64
	// MinLen and MaxLen bound the length of reported calls.  Translocations
	// are exempt.  MaxLen <= 0 means no upper bound.
	MinLen, MaxLen int
	// TrustedTools may validate a call on their own.
	TrustedTools []string
}

// Result is the output of Consensus.
type Result struct {
	// Calls are the validated, length-filtered consensus intervals sorted by
	// the contig order passed to Consensus.
	Calls []Interval
	// PerTool holds each tool's ingested calls before any merging,
	// annotated by ValidationPass with the trusted-tool policy.
	PerTool map[string][]Interval
}

// Consensus merges per-tool calls: intra-tool merge for every tool,
// inter-tool merge of the pooled results until a fixed point, validation
// pass, and output length filter.
func Consensus(perTool map[string][]Interval, order ContigOrder, opts ConsensusOpts) Result {
	tools := make([]string, 0, len(perTool))
	for tool := range perTool {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	res := Result{PerTool: make(map[string][]Interval, len(tools))}
	var pooled []Interval
	for _, tool := range tools {
		loaded := make([]Interval, len(perTool[tool]))
		for i := range perTool[tool] {
			loaded[i] = perTool[tool][i].Clone()
		}
		ValidationPass(loaded, opts.TrustedTools)
		SortIntervals(loaded, order)
		res.PerTool[tool] = loaded

		merged := MergeTool(perTool[tool], opts.OverlapRatio)
		log.Printf("%s: %d call(s) after intra-tool merge of %d", tool, len(merged), len(perTool[tool]))
		pooled = append(pooled, merged...)
	}
	merged := MergeRecursively(pooled, opts.OverlapRatio)
	ValidationPass(merged, opts.TrustedTools)
	out := merged[:0]
	for _, iv := range merged {
		if KeepLength(iv, opts.MinLen, opts.MaxLen) {
			out = append(out, iv)
		}
	}
	SortIntervals(out, order)
	log.Printf("%d consensus call(s) from %d pooled", len(out), len(pooled))
	res.Calls = out
	return res
}
