package fasta_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/svmerge/encoding/fasta"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const (
	fastaData  = ">seq1\nACGTA\nCGTAC\nGT\n>seq2 A viral sequence\nACGT\nACGT\n"
	fastaIndex = "seq1\t12\t6\t5\t6\nseq2\t8\t44\t4\t5\n"
)

func TestGet(t *testing.T) {
	tests := []struct {
		seq     string
		start   uint64
		end     uint64
		want    string
		wantErr bool
	}{
		{"seq1", 1, 2, "C", false},
		{"seq1", 1, 6, "CGTAC", false},
		{"seq1", 0, 12, "ACGTACGTACGT", false},
		{"seq1", 10, 12, "GT", false},
		{"seq2", 0, 8, "ACGTACGT", false},
		{"seq2", 2, 5, "GTA", false},
		{"seq0", 0, 1, "", true},
		{"seq1", 10, 13, "", true},
		{"seq1", 4, 3, "", true},
	}
	unindexed, err := fasta.New(strings.NewReader(fastaData))
	assert.NoError(t, err)
	indexed, err := fasta.NewIndexed(strings.NewReader(fastaData), strings.NewReader(fastaIndex))
	assert.NoError(t, err)
	for _, fa := range []fasta.Fasta{unindexed, indexed} {
		for _, tt := range tests {
			got, err := fa.Get(tt.seq, tt.start, tt.end)
			expect.EQ(t, err != nil, tt.wantErr, "%+v: %v", tt, err)
			expect.EQ(t, got, tt.want, "%+v", tt)
		}
	}
}

func TestContigs(t *testing.T) {
	fa, err := fasta.New(strings.NewReader(fastaData))
	assert.NoError(t, err)
	contigs, err := fasta.Contigs(fa)
	assert.NoError(t, err)
	expect.EQ(t, contigs, []fasta.Contig{{"seq1", 12}, {"seq2", 8}})

	contigs, err = fasta.ReadIndexContigs(strings.NewReader("chr2\t199\t300\t60\t61\nchr1\t250\t6\t60\t61\n"))
	assert.NoError(t, err)
	// Index order follows file offsets.
	expect.EQ(t, contigs, []fasta.Contig{{"chr1", 250}, {"chr2", 199}})

	_, err = fasta.ReadIndexContigs(strings.NewReader("chr1\t250\n"))
	expect.True(t, err != nil)
}

func TestNewMalformed(t *testing.T) {
	_, err := fasta.New(strings.NewReader("ACGT\n>seq1\nACGT\n"))
	expect.True(t, err != nil)
	_, err = fasta.New(strings.NewReader(">\nACGT\n"))
	expect.True(t, err != nil)
}

func TestWriterAndIndex(t *testing.T) {
	var data, idx bytes.Buffer
	w := fasta.NewWriter(&data, 4)
	assert.NoError(t, w.Write("slice", "ACGTACGTAC"))
	assert.NoError(t, w.Write("short", "GG"))
	assert.NoError(t, w.Flush())
	expect.EQ(t, data.String(), ">slice\nACGT\nACGT\nAC\n>short\nGG\n")
	assert.NoError(t, w.WriteIndex(&idx))
	expect.EQ(t, idx.String(), "slice\t10\t7\t4\t5\nshort\t2\t27\t4\t5\n")

	indexed, err := fasta.NewIndexed(bytes.NewReader(data.Bytes()), bytes.NewReader(idx.Bytes()))
	assert.NoError(t, err)
	got, err := indexed.Get("slice", 3, 9)
	assert.NoError(t, err)
	expect.EQ(t, got, "TACGTA")
	got, err = indexed.Get("short", 0, 2)
	assert.NoError(t, err)
	expect.EQ(t, got, "GG")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "ref.fa")
	assert.NoError(t, ioutil.WriteFile(path, []byte(fastaData), 0644))

	_, err := fasta.Open(ctx, path)
	expect.True(t, errors.Is(errors.NotExist, err))

	assert.NoError(t, ioutil.WriteFile(path+".fai", []byte(fastaIndex), 0644))
	ref, err := fasta.Open(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, ref.ContigLengths(), map[string]int{"seq1": 12, "seq2": 8})
	got, err := ref.Get("seq2", 3, 6)
	assert.NoError(t, err)
	expect.EQ(t, got, "TAC")
	assert.NoError(t, ref.Close(ctx))
}
