package main

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/svmerge/sv"
	"github.com/grailbio/svmerge/svmerge"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolInputs(t *testing.T) {
	in := toolInputs{}
	require.NoError(t, in.Set("Manta=a.vcf"))
	require.NoError(t, in.Set("Lumpy=b.vcf"))
	require.NoError(t, in.Set("Manta=s3://bucket/c.vcf"))
	assert.Equal(t, toolInputs{"Manta": {"a.vcf", "s3://bucket/c.vcf"}, "Lumpy": {"b.vcf"}}, in)
	expect.EQ(t, in.String(), "Lumpy=b.vcf,Manta=a.vcf,Manta=s3://bucket/c.vcf")

	for _, bad := range []string{"a.vcf", "=a.vcf", "Manta="} {
		assert.Error(t, in.Set(bad), bad)
	}
}

func TestSplitList(t *testing.T) {
	expect.EQ(t, splitList(""), []string(nil))
	expect.EQ(t, splitList("chr1, chr2,,chrX"), []string{"chr1", "chr2", "chrX"})
}

func TestBuildOpts(t *testing.T) {
	defer func(m, s, c string) { *mode, *svTypes, *chromosomes = m, s, c }(*mode, *svTypes, *chromosomes)

	*mode, *svTypes, *chromosomes = "merge", "del,INS", "chr1,chr2"
	opts, err := buildOpts([]string{"p0.bed", "p1.bed"})
	require.NoError(t, err)
	expect.EQ(t, opts.Mode, svmerge.ModeMerge)
	expect.EQ(t, opts.Partials, []string{"p0.bed", "p1.bed"})
	expect.EQ(t, opts.SVTypes, []sv.SVType{sv.Deletion, sv.Insertion})
	expect.EQ(t, opts.Chromosomes, []string{"chr1", "chr2"})

	// Every flag starts at the library default.
	*mode, *svTypes, *chromosomes = "full", "", ""
	opts, err = buildOpts(nil)
	require.NoError(t, err)
	expect.EQ(t, opts.SoftClips, svmerge.DefaultOpts.SoftClips)
	expect.EQ(t, opts.Candidates.MaxIntervalSize, svmerge.DefaultOpts.Candidates.MaxIntervalSize)
	expect.EQ(t, opts.Refine.MaxReadPairs, svmerge.DefaultOpts.Refine.MaxReadPairs)
	expect.EQ(t, opts.Genotype.Window, svmerge.DefaultOpts.Genotype.Window)
	assert.Nil(t, opts.Candidates.AssembleTypes)

	defer func(f, c float64, p, w int, n, h float64, a string) {
		*minSupportFrac, *maxCovFrac, *maxReadPairs, *alignWindow, *gtNormalFrac, *gtHomFrac, *assembleTypes = f, c, p, w, n, h, a
	}(*minSupportFrac, *maxCovFrac, *maxReadPairs, *alignWindow, *gtNormalFrac, *gtHomFrac, *assembleTypes)
	*minSupportFrac, *maxCovFrac = 0.2, 2
	*maxReadPairs, *alignWindow = 500, 80
	*gtNormalFrac, *gtHomFrac = 0.9, 0.1
	*assembleTypes = "DEL,INV"
	opts, err = buildOpts(nil)
	require.NoError(t, err)
	expect.EQ(t, opts.SoftClips.MinSupportFrac, 0.2)
	expect.EQ(t, opts.SoftClips.MaxCovFrac, 2.0)
	expect.EQ(t, opts.Refine.MaxReadPairs, 500)
	expect.EQ(t, opts.Refine.Window, 80)
	expect.EQ(t, opts.Genotype.NormalFrac, 0.9)
	expect.EQ(t, opts.Genotype.HomFrac, 0.1)
	expect.EQ(t, opts.Candidates.AssembleTypes, []sv.SVType{sv.Deletion, sv.Inversion})

	*assembleTypes = "BND"
	_, err = buildOpts(nil)
	expect.EQ(t, exitCode(err), exitUsage)
	*assembleTypes = ""

	_, err = buildOpts([]string{"stray"})
	expect.True(t, errors.Is(errors.Invalid, err))

	*mode = "everything"
	_, err = buildOpts(nil)
	expect.EQ(t, exitCode(err), exitUsage)

	*mode, *svTypes = "full", "SNV"
	_, err = buildOpts(nil)
	expect.EQ(t, exitCode(err), exitUsage)
}

func TestExitCode(t *testing.T) {
	expect.EQ(t, exitCode(nil), 0)
	expect.EQ(t, exitCode(errors.E(errors.Invalid, "bad flag")), exitUsage)
	expect.EQ(t, exitCode(errors.E(errors.NotExist, "no such file")), exitNoInput)
	expect.EQ(t, exitCode(errors.E(errors.E(errors.NotExist, "inner"), "outer")), exitNoInput)
	expect.EQ(t, exitCode(errors.E(errors.Integrity, "fleet incomplete")), 1)
}
