package bamprovider_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/svmerge/encoding/bamprovider"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	chr1, _   = sam.NewReference("chr1", "", "", 10000, nil, nil)
	chr2, _   = sam.NewReference("chr2", "", "", 10000, nil, nil)
	header, _ = sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
)

func newRecord(name string, ref *sam.Reference, pos int, cigar []sam.CigarOp) *sam.Record {
	r := &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     pos,
		MapQ:    60,
		Cigar:   cigar,
		MateRef: nil,
		MatePos: -1,
	}
	n := 0
	for _, op := range cigar {
		if op.Type().Consumes().Query != 0 {
			n += op.Len()
		}
	}
	seq := make([]byte, n)
	qual := make([]byte, n)
	for i := range seq {
		seq[i] = 'A'
		qual[i] = 30
	}
	r.Seq = sam.NewSeq(seq)
	r.Qual = qual
	return r
}

func m(n int) []sam.CigarOp { return []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, n)} }

func testRecords() []*sam.Record {
	return []*sam.Record{
		newRecord("a", chr1, 100, m(50)),
		newRecord("b", chr1, 500, m(50)),
		newRecord("c", chr1, 2000, m(50)),
		newRecord("d", chr2, 10, m(50)),
	}
}

func names(t *testing.T, iter bamprovider.Iterator) []string {
	var out []string
	for iter.Scan() {
		out = append(out, iter.Record().Name)
	}
	require.NoError(t, iter.Close())
	return out
}

func checkQueries(t *testing.T, p bamprovider.Provider) {
	assert.Equal(t, []string{"b"}, names(t, p.NewIterator("chr1", 480, 600)))
	assert.Equal(t, []string{"a", "b", "c"}, names(t, p.NewIterator("chr1", 0, 10000)))
	assert.Equal(t, []string{"a"}, names(t, p.NewIterator("chr1", 149, 150)))
	assert.Equal(t, []string(nil), names(t, p.NewIterator("chr1", 150, 500)))
	assert.Equal(t, []string{"d"}, names(t, p.NewIterator("chr2", 0, 100)))
	assert.Equal(t, []string(nil), names(t, p.NewIterator("chrUn", 0, 100)))
	require.NoError(t, p.Close())
}

func TestFakeProvider(t *testing.T) {
	checkQueries(t, bamprovider.NewFakeProvider(header, testRecords()))
}

func writeIndexedBAM(t *testing.T, path string, recs []*sam.Record) {
	out, err := os.Create(path)
	require.NoError(t, err)
	w, err := bam.NewWriter(out, header, 1)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())

	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close() // nolint: errcheck
	reader, err := bam.NewReader(in, 1)
	require.NoError(t, err)
	var idx bam.Index
	for {
		r, err := reader.Read()
		if err != nil {
			break
		}
		require.NoError(t, idx.Add(r, reader.LastChunk()))
	}
	idxOut, err := os.Create(path + ".bai")
	require.NoError(t, err)
	require.NoError(t, bam.WriteIndex(idxOut, &idx))
	require.NoError(t, idxOut.Close())
}

func TestBAMProvider(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "reads.bam")
	writeIndexedBAM(t, path, testRecords())

	p := bamprovider.NewProvider(path)
	h, err := p.GetHeader()
	require.NoError(t, err)
	assert.Equal(t, 2, len(h.Refs()))

	for _, q := range []struct {
		chrom        string
		start, limit int
	}{{"chrZ", 0, 100}, {"chr1", 500, 500}} {
		iter := p.NewIterator(q.chrom, q.start, q.limit)
		assert.False(t, iter.Scan(), "%+v", q)
		assert.Nil(t, iter.Record())
		assert.NoError(t, iter.Close(), "%+v", q)
	}
	checkQueries(t, p)
}

func TestBAMProviderMissingIndex(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "reads.bam")
	writeIndexedBAM(t, path, testRecords())

	p := bamprovider.NewProvider(path, bamprovider.ProviderOpts{Index: filepath.Join(tmpdir, "none.bai")})
	iter := p.NewIterator("chr1", 0, 100)
	assert.False(t, iter.Scan())
	assert.Error(t, iter.Close())
	assert.Error(t, p.Close())
}

func TestReadHelpers(t *testing.T) {
	r := newRecord("x", chr1, 100, []sam.CigarOp{
		sam.NewCigarOp(sam.CigarHardClipped, 5),
		sam.NewCigarOp(sam.CigarSoftClipped, 20),
		sam.NewCigarOp(sam.CigarMatch, 30),
		sam.NewCigarOp(sam.CigarSoftClipped, 3),
	})
	left, right := bamprovider.SoftClips(r)
	assert.Equal(t, 20, left)
	assert.Equal(t, 3, right)
	assert.Equal(t, 130, bamprovider.AlignedEnd(r))
	assert.True(t, bamprovider.Overlaps(r, 129, 200))
	assert.False(t, bamprovider.Overlaps(r, 130, 200))
	assert.Equal(t, 30.0, bamprovider.MeanBaseQuality(r))
	assert.True(t, bamprovider.IsPrimaryMapped(r, 20))
	r.Flags |= sam.Duplicate
	assert.False(t, bamprovider.IsPrimaryMapped(r, 20))

	unmapped := newRecord("u", chr1, 300, nil)
	unmapped.Flags = sam.Unmapped
	assert.Equal(t, 301, bamprovider.AlignedEnd(unmapped))
}
