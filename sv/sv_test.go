package sv

import (
	"bytes"
	"testing"

	"github.com/grailbio/svmerge/interval"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSVType(t *testing.T) {
	typ, err := ParseSVType("dup:tandem")
	require.NoError(t, err)
	assert.Equal(t, Duplication, typ)
	_, err = ParseSVType("CNV")
	assert.Error(t, err)

	types, err := ParseSVTypes("DEL, INS")
	require.NoError(t, err)
	assert.Equal(t, []SVType{Deletion, Insertion}, types)
	assert.Nil(t, TypeSet(nil))
}

func TestCheck(t *testing.T) {
	iv := newIv("chr1", 10, 20, Deletion, "A", 0)
	assert.NoError(t, iv.Check())
	bad := iv
	bad.Start = 30
	assert.Error(t, bad.Check())
	bad = iv
	bad.Wiggle = -1
	assert.Error(t, bad.Check())
	bad = iv
	bad.Sources = nil
	assert.Error(t, bad.Check())
}

func TestValidationPass(t *testing.T) {
	ivs := []Interval{
		newIv("chr1", 100, 200, Deletion, "A", 100),
		newIv("chr1", 300, 400, Deletion, "Trusted", 100),
		Merge(newIv("chr1", 500, 600, Deletion, "A", 100), newIv("chr1", 500, 600, Deletion, "B", 100)),
	}
	ivs[1].ExactBreakpoints = true
	ValidationPass(ivs, []string{"Trusted"})
	assert.False(t, ivs[0].Validated)
	assert.True(t, ivs[1].Validated)
	assert.True(t, ivs[1].Precise)
	assert.True(t, ivs[2].Validated)
	assert.False(t, ivs[2].Precise)
	// Coordinates and sources untouched.
	assert.Equal(t, 500, ivs[2].Start)
	assert.Equal(t, []string{"A", "B"}, ivs[2].Sources)
}

func TestKeepLength(t *testing.T) {
	short := newIv("chr1", 100, 120, Deletion, "A", 0)
	long := newIv("chr1", 100, 2000, Deletion, "A", 0)
	tx := newIv("chr1", 100, 101, InterTranslocation, "A", 0)
	tx.Length = -5
	assert.False(t, KeepLength(short, 50, 1000))
	assert.False(t, KeepLength(long, 50, 1000))
	assert.True(t, KeepLength(long, 50, 0))
	assert.True(t, KeepLength(tx, 50, 1000))
}

func TestFilter(t *testing.T) {
	gaps := interval.NewBEDUnionFromEntries([]interval.Entry{{ChrName: "chr1", Start0: 5000, End: 6000}})
	f := Filter{
		Gaps:    &gaps,
		Contigs: map[string]bool{"chr1": true},
		Types:   TypeSet([]SVType{Deletion, InterTranslocation}),
		MinLen:  50,
	}
	assert.True(t, f.Keep(newIv("chr1", 100, 200, Deletion, "A", 0)))
	assert.False(t, f.Keep(newIv("chr1", 4900, 5100, Deletion, "A", 0)))
	assert.False(t, f.Keep(newIv("chr2", 100, 200, Deletion, "A", 0)))
	assert.False(t, f.Keep(newIv("chr1", 100, 200, Inversion, "A", 0)))
	assert.False(t, f.Keep(newIv("chr1", 100, 120, Deletion, "A", 0)))
	assert.True(t, f.Keep(newIv("chr1", 100, 101, InterTranslocation, "A", 0)))
}

func TestContigWhitelist(t *testing.T) {
	ref := []string{"chr1", "chr2", "chrUn_gl000220", "chrM"}
	assert.Nil(t, ContigWhitelist(nil, nil, false))
	assert.Equal(t, map[string]bool{"chr1": true, "chr2": true, "chrUn_gl000220": true, "chrM": true},
		ContigWhitelist(ref, nil, false))
	assert.Equal(t, map[string]bool{"chr1": true, "chr2": true, "chrM": true},
		ContigWhitelist(ref, nil, true))
	assert.Equal(t, map[string]bool{"chr2": true}, ContigWhitelist(ref, []string{"chr2"}, false))
	all := ContigWhitelist(nil, nil, true)
	assert.True(t, all["22"])
	assert.True(t, all["chrX"])
	assert.False(t, all["chr23"])
}

func TestShortInversionFilter(t *testing.T) {
	filters := DefaultPostFilters(100, 50)
	inv := newIv("chr1", 100, 250, Inversion, "BreakDancer", 0)
	assert.False(t, filters.Keep("BreakDancer", inv))
	inv.End, inv.Length = 400, 300
	assert.True(t, filters.Keep("BreakDancer", inv))
	short := newIv("chr1", 100, 250, Inversion, "Lumpy", 0)
	assert.True(t, filters.Keep("Lumpy", short))
	del := newIv("chr1", 100, 150, Deletion, "BreakDancer", 0)
	assert.True(t, filters.Keep("BreakDancer", del))
}

func TestStats(t *testing.T) {
	a := newIv("chr1", 100, 200, Deletion, "A", 0)
	b := Merge(newIv("chr1", 100, 200, Deletion, "B", 0), newIv("chr1", 100, 200, Deletion, "A", 0))
	b.Validated, b.Precise = true, true
	s1, s2 := NewStats(), NewStats()
	s1.Add(&a)
	s1.Add(&a)
	s2.Add(&b)
	s1.Merge(s2)
	expect.EQ(t, s1.Total(), 3)
	expect.EQ(t, s1.Keys(), []StatsKey{
		{Deletion, "LowQual", "IMPRECISE", "A"},
		{Deletion, "PASS", "PRECISE", "A,B"},
	})
	expect.EQ(t, s1.Count(StatsKey{Deletion, "LowQual", "IMPRECISE", "A"}), 2)

	var buf bytes.Buffer
	require.NoError(t, s1.Write(&buf))
	expect.EQ(t, buf.String(), "svtype\tfilter\tprecision\tsources\tcount\n"+
		"DEL\tLowQual\tIMPRECISE\tA\t2\n"+
		"DEL\tPASS\tPRECISE\tA,B\t1\n")
}

func TestSortCalls(t *testing.T) {
	order := NewContigOrder([]string{"chr2", "chr1"})
	calls := []Call{
		NewCall(newIv("chr1", 100, 200, Deletion, "A", 0)),
		NewCall(newIv("chrZ", 1, 2, Deletion, "A", 0)),
		NewCall(newIv("chr2", 500, 600, Deletion, "A", 0)),
		NewCall(newIv("chr1", 50, 200, Deletion, "A", 0)),
		NewCall(newIv("chrY", 1, 2, Deletion, "A", 0)),
		NewCall(newIv("chr2", 500, 600, Deletion, "B", 0)),
	}
	SortCalls(calls, order)
	var keys []string
	for _, c := range calls {
		keys = append(keys, c.Key()+"/"+c.SourceKey())
	}
	assert.Equal(t, []string{
		"chr2:500-600:DEL/A",
		"chr2:500-600:DEL/B",
		"chr1:50-200:DEL/A",
		"chr1:100-200:DEL/A",
		"chrY:1-2:DEL/A",
		"chrZ:1-2:DEL/A",
	}, keys)
	assert.Equal(t, NoCall, calls[0].Genotype)
	assert.Equal(t, Unrefined, calls[0].Outcome)
}
