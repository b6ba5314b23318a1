package main

/*
  bio-svmerge merges structural-variant calls from several callers into one
  consensus call set, refines the breakpoints of candidate regions by local
  assembly, and genotypes the result.

  A run in one process:

    bio-svmerge -reference ref.fa -bam sample.bam -vcf Manta=manta.vcf \
      -vcf Lumpy=lumpy.vcf -assembler spades.sh -aligner age.sh -outdir out

  The refinement can be spread over N workers.  The consensus step writes
  out/candidates.bed; each worker then runs

    bio-svmerge -mode sliced -regions out/candidates.bed -worker-id W \
      -fleet-size N -reference ref.fa -bam sample.bam ... -outdir out

  and a final step joins the slices:

    bio-svmerge -mode merge -reference ref.fa -outdir out out/genotyped.*.bed
*/

import (
	"flag"
	"os"
	"runtime"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/svmerge/svmerge"
)

var (
	mode            = flag.String("mode", string(svmerge.ModeFull), "One of consensus, full, sliced or merge")
	sample          = flag.String("sample", svmerge.DefaultOpts.Sample, "Sample name of the output VCF")
	reference       = flag.String("reference", "", "Reference FASTA, indexed with samtools faidx")
	bamFile         = flag.String("bam", "", "Indexed BAM of the sample, used for soft-clip discovery, refinement and genotyping")
	gaps            = flag.String("gaps", "", "BED of reference gaps; calls overlapping a gap are dropped")
	chromosomes     = flag.String("chromosomes", "", "Comma-separated contigs to process. Empty means all")
	keepStandard    = flag.Bool("keep-standard-contigs", false, "Process only 1-22, X, Y and MT, with or without a chr prefix")
	svTypes         = flag.String("svtypes", "", "Comma-separated SV types to process, from DEL, INS, INV, DUP, ITX, CTX. Empty means all")
	minSVLen        = flag.Int("min-sv-length", svmerge.DefaultOpts.MinSVLen, "Shortest non-translocation call kept")
	maxSVLen        = flag.Int("max-sv-length", svmerge.DefaultOpts.MaxSVLen, "Longest non-translocation call kept")
	overlapRatio    = flag.Float64("overlap-ratio", svmerge.DefaultOpts.OverlapRatio, "Reciprocal overlap needed to merge two calls")
	wiggle          = flag.Int("wiggle", svmerge.DefaultOpts.Wiggle, "Breakpoint tolerance")
	insWiggle       = flag.Int("inswiggle", svmerge.DefaultOpts.InsWiggle, "Breakpoint tolerance of insertions")
	trusted         = flag.String("trusted-tools", "", "Comma-separated tools whose calls are validated on their own")
	meanReadLength  = flag.Int("mean-read-length", svmerge.DefaultOpts.MeanReadLength, "Mean read length of the sample")
	isizeMean       = flag.Float64("isize-mean", svmerge.DefaultOpts.Genotype.IsizeMean, "Mean insert size of the library")
	isizeSD         = flag.Float64("isize-sd", svmerge.DefaultOpts.Genotype.IsizeSD, "Insert size standard deviation of the library")
	disableSC       = flag.Bool("disable-softclips", false, "Do not look for soft-clip candidate regions")
	minSupport      = flag.Int("min-softclip-support", svmerge.DefaultOpts.SoftClips.MinSupport, "Clipped reads needed for a soft-clip region")
	minSupportFrac  = flag.Float64("min-softclip-support-frac", svmerge.DefaultOpts.SoftClips.MinSupportFrac, "Smallest ratio of clipped reads to coverage for a soft-clip region")
	minSoftClip     = flag.Int("min-softclip", svmerge.DefaultOpts.SoftClips.MinSoftClip, "Shortest clip counted when looking for soft-clip regions")
	minAvgBaseQual  = flag.Float64("min-avg-base-qual", svmerge.DefaultOpts.SoftClips.MinAvgBaseQual, "Lowest mean base quality of a clipped read")
	minMapQ         = flag.Int("min-mapq", svmerge.DefaultOpts.SoftClips.MinMapQ, "Lowest mapping quality of a clipped read")
	clusterWindow   = flag.Int("softclip-cluster-window", svmerge.DefaultOpts.SoftClips.ClusterWindow, "Clip positions at most this far apart form one cluster")
	meanCoverage    = flag.Float64("mean-read-coverage", svmerge.DefaultOpts.SoftClips.MeanReadCoverage, "Mean read coverage of the sample. 0 disables the coverage bounds")
	minCovFrac      = flag.Float64("min-coverage-frac", svmerge.DefaultOpts.SoftClips.MinCovFrac, "Soft-clip regions need at least this fraction of the mean coverage")
	maxCovFrac      = flag.Float64("max-coverage-frac", svmerge.DefaultOpts.SoftClips.MaxCovFrac, "Soft-clip regions may have at most this fraction of the mean coverage")
	pad             = flag.Int("pad", svmerge.DefaultOpts.Candidates.Pad, "Bases added on each side of a candidate region")
	maxIntervalSize = flag.Int("max-interval-size", svmerge.DefaultOpts.Candidates.MaxIntervalSize, "Longest call that is assembled")
	assembleTypes   = flag.String("assemble-svtypes", "", "Comma-separated SV types to assemble. Empty means DEL, INS, INV and DUP")
	maxTools        = flag.Int("max-tools", svmerge.DefaultOpts.Candidates.MaxTools, "Regions called by more tools are not assembled")
	maxRegions      = flag.Int("max-regions", svmerge.DefaultOpts.Candidates.MaxRegions, "Most regions sent to assembly")
	maxReadPairs    = flag.Int("max-read-pairs", svmerge.DefaultOpts.Refine.MaxReadPairs, "Most read pairs extracted per region; extra pairs are dropped in coordinate order")
	minContigLength = flag.Int("min-contig-length", svmerge.DefaultOpts.Refine.MinContigLength, "Shortest assembled contig sent to the aligner")
	alignWindow     = flag.Int("align-window", svmerge.DefaultOpts.Refine.Window, "Window passed to the aligner to join nearby breakpoints")
	gtWindow        = flag.Int("gt-window", svmerge.DefaultOpts.Genotype.Window, "Bases scanned on each side of a breakpoint when genotyping")
	gtNormalFrac    = flag.Float64("gt-normal-frac", svmerge.DefaultOpts.Genotype.NormalFrac, "Reference fraction above which a call is 0/0")
	gtHomFrac       = flag.Float64("gt-hom-frac", svmerge.DefaultOpts.Genotype.HomFrac, "Reference fraction below which a call is 1/1")
	gtMinMapQ       = flag.Int("gt-min-mapq", svmerge.DefaultOpts.Genotype.MinMapQ, "Lowest mapping quality of a read used for genotyping")
	gtMinSoftClip   = flag.Int("gt-min-softclip", svmerge.DefaultOpts.Genotype.MinSoftClip, "Shortest clip counted as breakpoint evidence when genotyping")
	assembler       = flag.String("assembler", "", "Assembler executable, run as: assembler [args] reads.fq outdir")
	aligner         = flag.String("aligner", "", "Aligner executable, run as: aligner [args] -window N ref.fa contigs.fa outdir")
	assemblerArgs   = flag.String("assembler-args", "", "Space-separated extra assembler arguments")
	alignerArgs     = flag.String("aligner-args", "", "Space-separated extra aligner arguments")
	assemblyTimeout = flag.Duration("assembly-timeout", svmerge.DefaultOpts.Refine.AssemblyTimeout, "Assembler time limit per region")
	alignTimeout    = flag.Duration("alignment-timeout", svmerge.DefaultOpts.Refine.AlignmentTimeout, "Aligner time limit per region")
	stopOnFailure   = flag.Bool("stop-on-failure", false, "Fail the run when a region fails to refine, instead of keeping its consensus calls")
	keepWorkDir     = flag.Bool("keep-work-dir", false, "Keep the per-region scratch directories")
	outDir          = flag.String("outdir", "", "Output directory")
	workDir         = flag.String("workdir", "", "Scratch directory. By default, outdir/work")
	parallelism     = flag.Int("parallelism", runtime.NumCPU(), "Number of regions processed at once")
	workerID        = flag.Int("worker-id", 0, "Slice processed in sliced mode, in [0, fleet-size)")
	fleetSize       = flag.Int("fleet-size", 1, "Number of workers in sliced mode")
	regions         = flag.String("regions", "", "Candidate region file read in sliced mode")
	perTool         = flag.Bool("per-tool-output", false, "Write each tool's loaded calls, before merging, as outdir/<tool>.vcf")
	vcfInputs       = toolInputs{}
	bedInputs       = toolInputs{}
)

func init() {
	flag.Var(vcfInputs, "vcf", "Tool calls in VCF, as tool=path. Repeatable")
	flag.Var(bedInputs, "bed", "Tool calls in BED, as tool=path. Repeatable")
}

func main() {
	shutdown := grail.Init()

	opts, err := buildOpts(flag.Args())
	if err == nil {
		ctx := vcontext.Background()
		var summary svmerge.Summary
		if summary, err = svmerge.Run(ctx, opts); err == nil {
			log.Printf("run %s done: %d call(s), digest %s", summary.RunID, summary.Calls, summary.Digest)
		}
	}
	code := exitCode(err)
	if err != nil {
		log.Error.Printf("bio-svmerge: %v", err)
	}
	shutdown()
	os.Exit(code)
}
