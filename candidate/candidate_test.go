package candidate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/svmerge/encoding/bamprovider"
	"github.com/grailbio/svmerge/sv"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iv(chrom string, start, end int, typ sv.SVType, sources ...string) sv.Interval {
	length := 0
	if typ.HasSpanLength() {
		length = end - start
	}
	out := sv.NewInterval(chrom, start, end, length, typ, sources[0])
	out.Sources = sv.NormalizeSources(sources)
	return out
}

var lens = map[string]int{"chr1": 100000, "chr2": 5000}

func testInput() ([]sv.Interval, []SoftClipCluster) {
	consensus := []sv.Interval{
		iv("chr2", 4800, 4900, sv.Deletion, "C"),
		iv("chr1", 1000, 2000, sv.Deletion, "A"),
		iv("chr1", 2600, 3000, sv.Deletion, "B"),
		iv("chr1", 10000, 11000, sv.Inversion, "A"),
		iv("chr1", 20000, 20000, sv.IntraTranslocation, "A"),
		iv("chr1", 30000, 90000, sv.Deletion, "A"),
		iv("chr2", 100, 100, sv.Insertion, "A"),
	}
	clips := []SoftClipCluster{
		{Chrom: "chr1", Pos: 10200, Support: 20},
		{Chrom: "chr1", Pos: 50000, Support: 20},
		{Chrom: "chr1", Pos: 95000, Support: 8},
		{Chrom: "chr2", Pos: 2000, Support: 6},
		{Chrom: "chr2", Pos: 2300, Support: 4},
	}
	return consensus, clips
}

type summary struct {
	Chrom      string
	Start, End int
	Type       sv.SVType
	Origin     Origin
	Skip       string
	N          int
}

func summarize(regions []Region) []summary {
	var out []summary
	for _, r := range regions {
		n := len(r.Intervals)
		if r.Origin == SoftClip {
			n = r.Support
		}
		out = append(out, summary{r.Chrom, r.Start, r.End, r.Type, r.Origin, r.SkipReason, n})
	}
	return out
}

func TestGenerate(t *testing.T) {
	consensus, clips := testInput()
	regions := Generate(consensus, clips, lens, DefaultOpts)
	expect.EQ(t, summarize(regions), []summary{
		{"chr1", 500, 3500, sv.Deletion, Consensus, SkipTools, 2},
		{"chr1", 9500, 11500, sv.Inversion, Consensus, "", 1},
		{"chr1", 19500, 20500, sv.IntraTranslocation, Consensus, SkipType, 1},
		{"chr1", 29500, 90500, sv.Deletion, Consensus, SkipSize, 1},
		{"chr1", 94500, 95500, sv.Insertion, SoftClip, "", 8},
		{"chr2", 0, 600, sv.Insertion, Consensus, "", 1},
		{"chr2", 1500, 2800, sv.Insertion, SoftClip, "", 10},
		{"chr2", 4300, 5000, sv.Deletion, Consensus, "", 1},
	})
	assert.Equal(t, []string{"A", "B"}, regions[0].Sources)
	assert.Equal(t, 2, regions[0].Tools)
	assert.True(t, regions[0].Skip)
	assert.Equal(t, []string{SoftClipSource}, regions[4].Sources)

	// Every consensus call lands in exactly one region.
	n := 0
	for _, r := range regions {
		n += len(r.Intervals)
	}
	assert.Equal(t, len(consensus), n)
}

func TestGenerateCap(t *testing.T) {
	consensus, clips := testInput()
	opts := DefaultOpts

	opts.MaxRegions = 4
	got := summarize(Generate(consensus, clips, lens, opts))
	require.Len(t, got, 7)
	// The strongest soft-clip region gets the one slot left after consensus
	// regions.
	assert.Equal(t, summary{"chr2", 1500, 2800, sv.Insertion, SoftClip, "", 10}, got[5])

	opts.MaxRegions = 2
	regions := Generate(consensus, clips, lens, opts)
	got = summarize(regions)
	require.Len(t, got, 6)
	assert.Equal(t, summary{"chr2", 4300, 5000, sv.Deletion, Consensus, SkipCap, 1}, got[5])
	assembled := 0
	for _, r := range regions {
		if !r.Skip {
			assembled++
		}
	}
	assert.Equal(t, 2, assembled)
}

func TestGenerateContigOrder(t *testing.T) {
	consensus, _ := testInput()
	opts := DefaultOpts
	opts.Order = sv.NewContigOrder([]string{"chr2", "chr1"})
	regions := Generate(consensus, nil, lens, opts)
	assert.Equal(t, "chr2", regions[0].Chrom)
	assert.Equal(t, "chr1", regions[len(regions)-1].Chrom)
}

func TestRegionID(t *testing.T) {
	a := Region{Chrom: "chr1", Start: 1, End: 100, Type: sv.Deletion, Origin: Consensus}
	b := a
	assert.Equal(t, a.ID(), b.ID())
	assert.Len(t, a.ID(), 16)
	b.End = 101
	assert.NotEqual(t, a.ID(), b.ID())
	b = a
	b.Origin = SoftClip
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestRegionFile(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	consensus, clips := testInput()
	consensus[1].Wiggle = 100
	consensus[1].ExactBreakpoints = true
	consensus[1].Native = map[string]string{"A": "id7"}
	regions := Generate(consensus, clips, lens, DefaultOpts)
	path := filepath.Join(tmpdir, "candidates.bed")
	require.NoError(t, WriteRegions(ctx, path, map[string]string{"run": "r1"}, regions))
	got, meta, err := ReadRegions(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"run": "r1"}, meta)
	assert.Equal(t, regions, got)

	_, _, err = ReadRegions(ctx, filepath.Join(tmpdir, "missing.bed"))
	assert.Error(t, err)
}

var (
	chr1, _   = sam.NewReference("chr1", "", "", 10000, nil, nil)
	header, _ = sam.NewHeader(nil, []*sam.Reference{chr1})
)

func read(name string, pos int, mapq byte, cigar ...sam.CigarOp) *sam.Record {
	n := 0
	for _, op := range cigar {
		if op.Type().Consumes().Query != 0 {
			n += op.Len()
		}
	}
	seq := make([]byte, n)
	qual := make([]byte, n)
	for i := range seq {
		seq[i], qual[i] = 'A', 30
	}
	return &sam.Record{
		Name: name, Ref: chr1, Pos: pos, MapQ: mapq, Cigar: cigar,
		Seq: sam.NewSeq(seq), Qual: qual, MatePos: -1,
	}
}

func op(t sam.CigarOpType, n int) sam.CigarOp { return sam.NewCigarOp(t, n) }

func testProvider() bamprovider.Provider {
	var recs []*sam.Record
	for i := 0; i < 10; i++ {
		recs = append(recs, read("full", 960, 60, op(sam.CigarMatch, 75)))
	}
	for i := 0; i < 3; i++ {
		recs = append(recs, read("right", 955, 60, op(sam.CigarMatch, 50), op(sam.CigarSoftClipped, 25)))
	}
	for i := 0; i < 6; i++ {
		recs = append(recs, read("left", 1000, 60, op(sam.CigarSoftClipped, 25), op(sam.CigarMatch, 50)))
	}
	for i := 0; i < 6; i++ {
		recs = append(recs, read("lowmapq", 3000, 0, op(sam.CigarSoftClipped, 25), op(sam.CigarMatch, 50)))
	}
	for i := 0; i < 3; i++ {
		recs = append(recs, read("weak", 5000, 60, op(sam.CigarSoftClipped, 25), op(sam.CigarMatch, 50)))
	}
	for i := 0; i < 6; i++ {
		recs = append(recs, read("short", 7000, 60, op(sam.CigarSoftClipped, 10), op(sam.CigarMatch, 65)))
	}
	return bamprovider.NewFakeProvider(header, recs)
}

func TestFindSoftClips(t *testing.T) {
	ctx := context.Background()
	opts := DefaultSoftClipOpts
	opts.MeanReadCoverage = 0
	clips, err := FindSoftClips(ctx, testProvider(), []string{"chr1"}, map[string]int{"chr1": 10000}, opts)
	require.NoError(t, err)
	assert.Equal(t, []SoftClipCluster{{Chrom: "chr1", Pos: 1000, Support: 9, Coverage: 19}}, clips)

	opts.MeanReadCoverage = 50
	clips, err = FindSoftClips(ctx, testProvider(), []string{"chr1"}, map[string]int{"chr1": 10000}, opts)
	require.NoError(t, err)
	assert.Empty(t, clips)

	_, err = FindSoftClips(ctx, testProvider(), []string{"chrX"}, map[string]int{"chr1": 10000}, opts)
	assert.Error(t, err)
}

func TestCluster(t *testing.T) {
	got := cluster("c", []int{10, 12, 12, 30, 31, 31, 100}, 20)
	assert.Equal(t, []SoftClipCluster{
		{Chrom: "c", Pos: 12, Support: 6},
		{Chrom: "c", Pos: 100, Support: 1},
	}, got)
}
