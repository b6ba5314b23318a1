package vcf

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/svmerge/encoding/fasta"
	"github.com/grailbio/svmerge/sv"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolVCF = `##fileformat=VCFv4.1
##source=Manta
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
chr1	100	MantaDEL:1	N	<DEL>	.	PASS	END=200;SVTYPE=DEL;SVLEN=-100	GT	0/1
chr1	300	MantaINS:1	N	<INS>	.	PASS	SVTYPE=INS;SVLEN=250;IMPRECISE	GT	0/1
chr1	400	.	A	ACGTACGTAC	.	PASS	SVTYPE=INS	GT	0/1
chr1	500	snv	A	G	.	PASS	.	GT	0/1
chr1	600	bnd1	N	N[chr2:321682[	.	PASS	SVTYPE=BND	GT	0/1
chr1	700	bnd2	N	N]chr1:900]	.	PASS	SVTYPE=BND	GT	0/1
chr2	800	dup	N	<DUP:TANDEM>	.	PASS	END=1000	GT	0/1
chr2	900	cnv	N	<CNV>	.	PASS	SVTYPE=CNV;END=1000	GT	0/1
chr3	50	.	N	<INV>	.	PASS	SVLEN=70	GT	0/1
`

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(toolVCF), "Manta")
	var ivs []sv.Interval
	for r.Scan() {
		ivs = append(ivs, r.Interval())
	}
	require.NoError(t, r.Err())
	assert.Equal(t, 2, r.Skipped())
	require.Len(t, ivs, 7)

	del := ivs[0]
	assert.Equal(t, sv.Interval{
		Chrom: "chr1", Start: 100, End: 200, Length: 100, Type: sv.Deletion,
		Sources: []string{"Manta"}, ExactBreakpoints: true,
		Native: map[string]string{"Manta": "MantaDEL:1"},
	}, del)

	ins := ivs[1]
	assert.Equal(t, sv.Insertion, ins.Type)
	assert.Equal(t, 300, ins.Start)
	assert.Equal(t, 300, ins.End)
	assert.Equal(t, 250, ins.Length)
	assert.False(t, ins.ExactBreakpoints)

	assert.Equal(t, 9, ivs[2].Length)
	assert.Nil(t, ivs[2].Native)

	assert.Equal(t, sv.InterTranslocation, ivs[3].Type)
	assert.Equal(t, sv.IntraTranslocation, ivs[4].Type)

	assert.Equal(t, sv.Duplication, ivs[5].Type)
	assert.Equal(t, 200, ivs[5].Length)

	assert.Equal(t, sv.Inversion, ivs[6].Type)
	assert.Equal(t, 50, ivs[6].Start)
	assert.Equal(t, 120, ivs[6].End)
}

func TestReaderBadRecord(t *testing.T) {
	r := NewReader(strings.NewReader("chr1\t100\t.\tN\t<DEL>\t.\tPASS\tEND=x\n"), "A")
	assert.False(t, r.Scan())
	assert.Error(t, r.Err())

	r = NewReader(strings.NewReader("chr1\t100\n"), "A")
	assert.False(t, r.Scan())
	assert.Error(t, r.Err())
}

func TestWriter(t *testing.T) {
	ref, err := fasta.New(strings.NewReader(">chr1\nacgtACGTAC\n"))
	require.NoError(t, err)
	iv := sv.NewInterval("chr1", 3, 8, 5, sv.Deletion, "Lumpy")
	iv.Sources = []string{"Lumpy", "Manta"}
	iv.Validated = true
	iv.Native = map[string]string{"Manta": "m1;m2"}
	c := sv.NewCall(iv)
	c.Genotype, c.RefReads, c.AltReads = sv.Het, 4, 6

	var buf bytes.Buffer
	w := NewWriter(&buf, WriterOpts{
		Sample:    "NA12878",
		Contigs:   []fasta.Contig{{Name: "chr1", Length: 10}},
		Reference: ref,
	})
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(c))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, "##fileformat=VCFv4.1", lines[0])
	assert.Contains(t, lines, "##contig=<ID=chr1,length=10>")
	assert.Equal(t, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA12878", lines[len(lines)-2])
	assert.Equal(t, "chr1\t3\t.\tG\t<DEL>\t.\tPASS\t"+
		"END=8;SVLEN=-5;SVTYPE=DEL;SVTOOL=svmerge;SOURCES=Lumpy,Manta;NUM_SVTOOLS=2;"+
		"NATIVE=Manta:m1,Manta:m2;IMPRECISE;OUTCOME=unrefined\tGT:RR:AR\t0/1:4:6", lines[len(lines)-1])
}

func TestFileRoundTrip(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	del := sv.NewInterval("chr1", 100, 400, 300, sv.Deletion, "A")
	del.Precise = true
	ins := sv.NewInterval("chr2", 50, 50, 120, sv.Insertion, "B")
	calls := []sv.Call{sv.NewCall(del), sv.NewCall(ins)}

	for _, name := range []string{"out.vcf", "out.vcf.gz"} {
		path := filepath.Join(tmpdir, name)
		require.NoError(t, WriteFile(ctx, path, WriterOpts{}, calls))
		ivs, err := ReadFile(ctx, path, "svmerge")
		require.NoError(t, err)
		require.Len(t, ivs, 2)
		assert.Equal(t, sv.Deletion, ivs[0].Type)
		assert.Equal(t, 100, ivs[0].Start)
		assert.Equal(t, 400, ivs[0].End)
		assert.Equal(t, 300, ivs[0].Length)
		assert.True(t, ivs[0].ExactBreakpoints)
		assert.Equal(t, sv.Insertion, ivs[1].Type)
		assert.Equal(t, 50, ivs[1].Start)
		assert.Equal(t, 120, ivs[1].Length)
		assert.False(t, ivs[1].ExactBreakpoints)
	}

	_, err := ReadFile(ctx, filepath.Join(tmpdir, "missing.vcf"), "A")
	assert.Error(t, err)
}
