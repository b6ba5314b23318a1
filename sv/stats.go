package sv

import (
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// StatsKey groups calls for reporting.
type StatsKey struct {
	Type SVType
	// Filter is "PASS" for validated calls and "LowQual" otherwise.
	Filter string
	// Precision is "PRECISE" or "IMPRECISE".
	Precision string
	// Sources is the comma-joined, sorted source list.
	Sources string
}

func (k StatsKey) String() string {
	return fmt.Sprintf("%s\t%s\t%s\t%s", k.Type, k.Filter, k.Precision, k.Sources)
}

func keyOf(iv *Interval) StatsKey {
	k := StatsKey{Type: iv.Type, Filter: "LowQual", Precision: "IMPRECISE", Sources: iv.SourceKey()}
	if iv.Validated {
		k.Filter = "PASS"
	}
	if iv.Precise {
		k.Precision = "PRECISE"
	}
	return k
}

func lessKey(a, b StatsKey) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.Filter != b.Filter {
		return a.Filter < b.Filter
	}
	if a.Precision != b.Precision {
		return a.Precision < b.Precision
	}
	return a.Sources < b.Sources
}

// Stats counts calls per StatsKey.  A Stats value is owned by one goroutine;
// parallel producers keep their own and combine them with Merge.
type Stats struct {
	counts map[StatsKey]int
}

// NewStats creates an empty aggregator.
func NewStats() *Stats {
	return &Stats{counts: map[StatsKey]int{}}
}

// Add counts iv.
func (s *Stats) Add(iv *Interval) {
	s.counts[keyOf(iv)]++
}

// AddCalls counts every call.
func (s *Stats) AddCalls(calls []Call) {
	for i := range calls {
		s.Add(&calls[i].Interval)
	}
}

// Merge adds the counts of o to s.
func (s *Stats) Merge(o *Stats) {
	for k, n := range o.counts {
		s.counts[k] += n
	}
}

// Count returns the number of calls counted under k.
func (s *Stats) Count(k StatsKey) int { return s.counts[k] }

// Total returns the number of calls counted.
func (s *Stats) Total() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Keys returns the keys seen, sorted.
func (s *Stats) Keys() []StatsKey {
	keys := make([]StatsKey, 0, len(s.counts))
	for k := range s.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
	return keys
}

// Write emits a TSV table with a header row, one row per key.
func (s *Stats) Write(w io.Writer) error {
	t := tsv.NewWriter(w)
	t.WriteString("svtype")
	t.WriteString("filter")
	t.WriteString("precision")
	t.WriteString("sources")
	t.WriteString("count")
	if err := t.EndLine(); err != nil {
		return err
	}
	for _, k := range s.Keys() {
		t.WriteString(string(k.Type))
		t.WriteString(k.Filter)
		t.WriteString(k.Precision)
		t.WriteString(k.Sources)
		t.WriteInt64(int64(s.counts[k]))
		if err := t.EndLine(); err != nil {
			return err
		}
	}
	return t.Flush()
}

// Log prints one line per key.
func (s *Stats) Log(prefix string) {
	for _, k := range s.Keys() {
		log.Printf("%s: %v\t%d", prefix, k, s.counts[k])
	}
}
