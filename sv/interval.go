package sv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
)

// TXWiggle replaces the caller-supplied wiggle for translocations.
const TXWiggle = 5

// ToolPriority orders callers from most to least trusted.  It breaks ties
// when a merge has to pick one member's attributes.  Tools not listed rank
// after all listed ones, alphabetically.
var ToolPriority = []string{
	"HaplotypeCaller",
	"Pindel",
	"BreakSeq",
	"Manta",
	"Lumpy",
	"WHAM",
	"BreakDancer",
	"CNVkit",
	"CNVnator",
}

// Interval is a structural-variant call on one contig.  Coordinates are
// 0-based half-open.
type Interval struct {
	Chrom string
	Start int
	End   int
	// Length is the event size: the reference span for DEL/INV/DUP, the
	// inserted length for INS, and the caller's signed value for ITX/CTX.
	Length int
	Type   SVType
	// Wiggle is the breakpoint tolerance used when comparing with other calls.
	Wiggle int
	// Sources names the callers supporting the interval.  Sorted, no
	// duplicates.
	Sources []string
	// Precise and Validated are set by ValidationPass.
	Precise   bool
	Validated bool
	// ExactBreakpoints is set by readers when a source reported exact
	// breakpoints.  It is ORed across merges.
	ExactBreakpoints bool
	// Native holds opaque per-source payloads, such as the caller's record
	// ids, keyed by source.
	Native map[string]string
}

// NewInterval creates a single-source interval.
func NewInterval(chrom string, start, end, length int, typ SVType, source string) Interval {
	return Interval{
		Chrom:   chrom,
		Start:   start,
		End:     end,
		Length:  length,
		Type:    typ,
		Sources: []string{source},
	}
}

// Key identifies the interval by position and type, e.g. "chr1:100-200:DEL".
func (iv Interval) Key() string {
	return fmt.Sprintf("%s:%d-%d:%s", iv.Chrom, iv.Start, iv.End, iv.Type)
}

// Span is the reference footprint, End - Start.
func (iv Interval) Span() int {
	return iv.End - iv.Start
}

// SourceKey joins the sources with ",".
func (iv Interval) SourceKey() string {
	return strings.Join(iv.Sources, ",")
}

// HasSource checks whether tool contributed to the interval.
func (iv Interval) HasSource(tool string) bool {
	i := sort.SearchStrings(iv.Sources, tool)
	return i < len(iv.Sources) && iv.Sources[i] == tool
}

// Check verifies the structural invariants of an interval.
func (iv Interval) Check() error {
	switch {
	case iv.Chrom == "":
		return errors.E(errors.Invalid, "interval without contig")
	case iv.Start < 0 || iv.Start > iv.End:
		return errors.E(errors.Invalid, fmt.Sprintf("bad coordinates %s", iv.Key()))
	case iv.Wiggle < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("negative wiggle for %s", iv.Key()))
	case len(iv.Sources) == 0:
		return errors.E(errors.Invalid, fmt.Sprintf("no sources for %s", iv.Key()))
	}
	if _, err := ParseSVType(string(iv.Type)); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy.
func (iv Interval) Clone() Interval {
	out := iv
	out.Sources = append([]string(nil), iv.Sources...)
	if iv.Native != nil {
		out.Native = make(map[string]string, len(iv.Native))
		for k, v := range iv.Native {
			out.Native[k] = v
		}
	}
	return out
}

// AssignWiggle sets iv.Wiggle from the run options.
func AssignWiggle(iv *Interval, wiggle, insWiggle int) {
	if iv.Type.IsTranslocation() {
		iv.Wiggle = TXWiggle
		return
	}
	w := wiggle
	if iv.Type == Insertion && insWiggle > w {
		w = insWiggle
	}
	iv.Wiggle = w
}

func toolRank(tool string) int {
	for i, t := range ToolPriority {
		if t == tool {
			return i
		}
	}
	return len(ToolPriority)
}

// bestSource returns the highest-priority source.
func bestSource(sources []string) string {
	best := ""
	for _, s := range sources {
		if best == "" {
			best = s
			continue
		}
		if rs, rb := toolRank(s), toolRank(best); rs < rb || (rs == rb && s < best) {
			best = s
		}
	}
	return best
}

// unionSources merges two sorted, duplicate-free lists.
func unionSources(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// NormalizeSources sorts and dedups sources in place and returns the result.
func NormalizeSources(sources []string) []string {
	return sortUnique(sources)
}

func sortUnique(vals []string) []string {
	sort.Strings(vals)
	out := vals[:0]
	for _, s := range vals {
		if len(out) == 0 || s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
