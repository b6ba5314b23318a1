package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/svmerge/sv"
	"github.com/grailbio/svmerge/svmerge"
)

// Exit codes, from sysexits.h.
const (
	exitUsage   = 64
	exitNoInput = 66
)

// toolInputs collects repeated tool=path flags.
type toolInputs map[string][]string

func (t toolInputs) String() string {
	var s []string
	for tool, paths := range t {
		for _, p := range paths {
			s = append(s, tool+"="+p)
		}
	}
	sort.Strings(s)
	return strings.Join(s, ",")
}

func (t toolInputs) Set(v string) error {
	i := strings.IndexByte(v, '=')
	if i <= 0 || i == len(v)-1 {
		return fmt.Errorf("%q is not of the form tool=path", v)
	}
	tool, path := v[:i], v[i+1:]
	t[tool] = append(t[tool], path)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// buildOpts turns the flags into run options.  args are the partial outputs
// joined in merge mode; other modes take no arguments.
func buildOpts(args []string) (svmerge.Opts, error) {
	m, err := svmerge.ParseMode(*mode)
	if err != nil {
		return svmerge.Opts{}, err
	}
	if len(args) > 0 && m != svmerge.ModeMerge {
		return svmerge.Opts{}, errors.E(errors.Invalid,
			fmt.Sprintf("unparsed arguments, please check flag syntax: '%s'", strings.Join(args, " ")))
	}
	types, err := sv.ParseSVTypes(*svTypes)
	if err != nil {
		return svmerge.Opts{}, err
	}
	asmTypes, err := sv.ParseSVTypes(*assembleTypes)
	if err != nil {
		return svmerge.Opts{}, err
	}

	opts := svmerge.DefaultOpts
	opts.Mode = m
	opts.Sample = *sample
	opts.Reference = *reference
	opts.BAM = *bamFile
	opts.Gaps = *gaps
	opts.VCFInputs = vcfInputs
	opts.BEDInputs = bedInputs
	opts.Chromosomes = splitList(*chromosomes)
	opts.KeepStandardContigs = *keepStandard
	opts.SVTypes = types
	opts.MinSVLen = *minSVLen
	opts.MaxSVLen = *maxSVLen
	opts.OverlapRatio = *overlapRatio
	opts.Wiggle = *wiggle
	opts.InsWiggle = *insWiggle
	opts.TrustedTools = splitList(*trusted)
	opts.MeanReadLength = *meanReadLength
	opts.Genotype.IsizeMean = *isizeMean
	opts.Genotype.IsizeSD = *isizeSD
	opts.DisableSoftClips = *disableSC
	opts.SoftClips.MinSupport = *minSupport
	opts.SoftClips.MinSupportFrac = *minSupportFrac
	opts.SoftClips.MinSoftClip = *minSoftClip
	opts.SoftClips.MinAvgBaseQual = *minAvgBaseQual
	opts.SoftClips.MinMapQ = *minMapQ
	opts.SoftClips.ClusterWindow = *clusterWindow
	opts.SoftClips.MeanReadCoverage = *meanCoverage
	opts.SoftClips.MinCovFrac = *minCovFrac
	opts.SoftClips.MaxCovFrac = *maxCovFrac
	opts.Candidates.Pad = *pad
	opts.Candidates.MaxIntervalSize = *maxIntervalSize
	opts.Candidates.AssembleTypes = asmTypes
	opts.Candidates.MaxTools = *maxTools
	opts.Candidates.MaxRegions = *maxRegions
	opts.Refine.MaxReadPairs = *maxReadPairs
	opts.Refine.MinContigLength = *minContigLength
	opts.Refine.Window = *alignWindow
	opts.Genotype.Window = *gtWindow
	opts.Genotype.NormalFrac = *gtNormalFrac
	opts.Genotype.HomFrac = *gtHomFrac
	opts.Genotype.MinMapQ = *gtMinMapQ
	opts.Genotype.MinSoftClip = *gtMinSoftClip
	opts.AssemblerPath = *assembler
	opts.AlignerPath = *aligner
	opts.AssemblerArgs = strings.Fields(*assemblerArgs)
	opts.AlignerArgs = strings.Fields(*alignerArgs)
	opts.Refine.AssemblyTimeout = *assemblyTimeout
	opts.Refine.AlignmentTimeout = *alignTimeout
	opts.Refine.StopOnFailure = *stopOnFailure
	opts.Refine.KeepWorkDir = *keepWorkDir
	opts.OutDir = *outDir
	opts.WorkDir = *workDir
	opts.Parallelism = *parallelism
	opts.WorkerID = *workerID
	opts.FleetSize = *fleetSize
	opts.RegionsPath = *regions
	opts.Partials = args
	opts.PerToolOutput = *perTool
	return opts, nil
}

// exitCode maps usage errors to 64, missing inputs to 66 and other failures
// to 1.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(errors.Invalid, err):
		return exitUsage
	case errors.Is(errors.NotExist, err):
		return exitNoInput
	}
	return 1
}
