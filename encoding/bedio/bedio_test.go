package bedio

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/svmerge/sv"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderTolerance(t *testing.T) {
	const data = `track name=foo
browser position chr1
#slice=1/4
# free comment

chr1	100	200
chr1 300 400 del . Manta;Lumpy PRECISE,VALIDATED GT=0/1 extra
chr2	5	5	INS	120	Pindel	.
`
	r := NewReader(strings.NewReader(data))
	var recs []Record
	for r.Scan() {
		recs = append(recs, r.Record())
	}
	require.NoError(t, r.Err())
	require.Len(t, recs, 3)
	assert.Equal(t, map[string]string{"slice": "1/4"}, r.Meta())

	assert.Equal(t, Record{Chrom: "chr1", Start: 100, End: 200}, recs[0])
	assert.Equal(t, Record{
		Chrom: "chr1", Start: 300, End: 400, Type: sv.Deletion, Length: 100,
		Sources: []string{"Lumpy", "Manta"}, Precise: true, Validated: true,
		Attrs: map[string]string{"GT": "0/1", "extra": ""},
	}, recs[1])
	assert.Equal(t, sv.Insertion, recs[2].Type)
	assert.Equal(t, 120, recs[2].Length)
	assert.False(t, recs[2].Precise)
}

func TestReaderErrors(t *testing.T) {
	for _, data := range []string{
		"chr1\t100\n",
		"chr1\tx\t200\n",
		"chr1\t300\t200\n",
		"chr1\t100\t200\tCNV\n",
	} {
		r := NewReader(strings.NewReader("chr1\t1\t2\n" + data))
		assert.True(t, r.Scan(), data)
		assert.False(t, r.Scan(), data)
		assert.Error(t, r.Err(), data)
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteMeta(map[string]string{"slice": "0/2", "run": "abc"}))
	require.NoError(t, w.Write(Record{Chrom: "chr1", Start: 1, End: 2}))
	require.NoError(t, w.Write(Record{
		Chrom: "chr1", Start: 10, End: 20, Type: sv.Inversion, Length: 10,
		Sources: []string{"A", "B"}, Precise: true,
		Attrs: map[string]string{"Z": "1", "A": "x"},
	}))
	require.NoError(t, w.Flush())
	expect.EQ(t, buf.String(), "#run=abc\n#slice=0/2\n"+
		"chr1\t1\t2\t.\t0\t.\t.\n"+
		"chr1\t10\t20\tINV\t10\tA;B\tPRECISE\tA=x\tZ=1\n")
}

func TestCallFiles(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	iv := sv.NewInterval("chr3", 1000, 1500, 500, sv.Duplication, "Manta")
	iv.Sources = []string{"Lumpy", "Manta"}
	iv.Wiggle = 100
	iv.ExactBreakpoints = true
	iv.Precise, iv.Validated = true, true
	iv.Native = map[string]string{"Manta": "MantaDUP:1;MantaDUP:2"}
	c := sv.NewCall(iv)
	c.Outcome = sv.Refined
	c.RegionID = "r1"
	c.Genotype = sv.Het
	c.RefReads, c.AltReads = 7, 5

	for _, name := range []string{"calls.bed", "calls.bed.gz"} {
		path := filepath.Join(tmpdir, name)
		require.NoError(t, WriteCalls(ctx, path, map[string]string{"run": "x"}, []sv.Call{c}))
		got, meta, err := ReadCalls(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"run": "x"}, meta)
		require.Len(t, got, 1)
		assert.Equal(t, c, got[0])
	}

	_, _, err := ReadFile(ctx, filepath.Join(tmpdir, "missing.bed"))
	assert.Error(t, err)
}

func TestRecordWithoutTypeIsNotACall(t *testing.T) {
	_, err := Record{Chrom: "chr1", Start: 1, End: 2, Sources: []string{"A"}}.Call()
	assert.Error(t, err)
	_, err = Record{Chrom: "chr1", Start: 1, End: 2, Type: sv.Deletion}.Call()
	assert.Error(t, err)
}
