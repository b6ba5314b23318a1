package refine

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"v.io/x/lib/gosh"
	"v.io/x/lib/lookpath"
)

func hasShell(t *testing.T) bool {
	sh := gosh.NewShell(t)
	defer sh.Cleanup()
	if _, err := lookpath.Look(sh.Vars, "sh"); err != nil {
		t.Skipf("sh not found on the machine. Skipping the test")
		return false
	}
	return true
}

func writeScript(t *testing.T, dir, name, body string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestCommandAssembler(t *testing.T) {
	if !hasShell(t) {
		return
	}
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	// Arguments: [-k 31] reads outdir.
	ok := writeScript(t, tmpdir, "asm.sh", `test "$1" = "-k" || exit 2
printf '>c1 len=8\nACGT\nACGT\n>c2\nTTTT\n' > "$4/contigs.fasta"
`)
	asm := &CommandAssembler{Path: ok, Args: []string{"-k", "31"}}
	contigs, err := asm.Assemble(ctx, AssemblyRequest{ReadsPath: "reads.fastq", OutDir: tmpdir, Timeout: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, []Contig{{"c1", "ACGTACGT"}, {"c2", "TTTT"}}, contigs)

	fail := writeScript(t, tmpdir, "fail.sh", "echo 'out of memory' >&2\nexit 3\n")
	_, err = (&CommandAssembler{Path: fail}).Assemble(ctx, AssemblyRequest{OutDir: tmpdir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")

	slow := writeScript(t, tmpdir, "slow.sh", "exec sleep 10\n")
	_, err = (&CommandAssembler{Path: slow}).Assemble(ctx, AssemblyRequest{OutDir: tmpdir, Timeout: 100 * time.Millisecond})
	assert.True(t, errors.Is(errors.Timeout, err), "%v", err)

	silent := writeScript(t, tmpdir, "silent.sh", "exit 0\n")
	_, err = (&CommandAssembler{Path: silent}).Assemble(ctx, AssemblyRequest{OutDir: filepath.Join(tmpdir, "empty")})
	assert.True(t, errors.Is(errors.NotExist, err), "%v", err)

	_, err = (&CommandAssembler{Path: "no-such-assembler-binary"}).Assemble(ctx, AssemblyRequest{OutDir: tmpdir})
	assert.True(t, errors.Is(errors.NotExist, err), "%v", err)
}

func TestCommandAligner(t *testing.T) {
	if !hasShell(t) {
		return
	}
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	// Arguments: -window n reference contigs outdir.
	aln := writeScript(t, tmpdir, "aln.sh", `test "$2" = "25" || exit 2
printf 'track name=bp\nchr1_100_900\t40\t160\tDEL\t.\nchr1_100_900\t300\t301\tINS\t42\n' > "$5/breakpoints.bed"
`)
	a := &CommandAligner{Path: aln}
	req := AlignmentRequest{ReferencePath: "ref.fa", Slice: "chr1_100_900", ContigsPath: "contigs.fa", OutDir: tmpdir, Window: 25}
	bps, err := a.Align(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []Breakpoint{{40, 160, 120}, {300, 301, 42}}, bps)

	req.Slice = "chr2_0_100"
	_, err = a.Align(ctx, req)
	assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
}
