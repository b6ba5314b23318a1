package refine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/svmerge/encoding/bedio"
	"github.com/grailbio/svmerge/encoding/fasta"
	"v.io/x/lib/envvar"
	"v.io/x/lib/lookpath"
)

// Output files of the subprocess engines, relative to the request's OutDir.
const (
	AssemblerOutput = "contigs.fasta"
	AlignerOutput   = "breakpoints.bed"
)

// maxStderr bounds the stderr tail kept for error messages.
const maxStderr = 4096

// resolve finds an executable on $PATH, or checks an explicit path.
func resolve(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		if _, err := os.Stat(name); err != nil {
			return "", errors.E(errors.NotExist, err, "engine", name)
		}
		return name, nil
	}
	path, err := lookpath.Look(envvar.SliceToMap(os.Environ()), name)
	if err != nil {
		return "", errors.E(errors.NotExist, err, "engine", name)
	}
	return path, nil
}

// run executes a command under a timeout.  A timeout is reported as
// errors.Timeout; a non-zero exit carries the tail of stderr.
func run(ctx context.Context, timeout time.Duration, exe string, args ...string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stderr = &stderr
	log.Debug.Printf("running %s %s", exe, strings.Join(args, " "))
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return errors.E(errors.Timeout, fmt.Sprintf("%s timed out after %v", filepath.Base(exe), timeout))
	}
	if err != nil {
		tail := stderr.Bytes()
		if len(tail) > maxStderr {
			tail = tail[len(tail)-maxStderr:]
		}
		return errors.E(err, fmt.Sprintf("%s: %s", filepath.Base(exe), bytes.TrimSpace(tail)))
	}
	return nil
}

// CommandAssembler runs an external assembler as
//
//   <Path> [Args...] <reads.fastq> <outdir>
//
// which must exit 0 and leave its contigs in <outdir>/contigs.fasta.
type CommandAssembler struct {
	Path string
	Args []string
}

// Assemble implements Assembler.
func (a *CommandAssembler) Assemble(ctx context.Context, req AssemblyRequest) ([]Contig, error) {
	exe, err := resolve(a.Path)
	if err != nil {
		return nil, err
	}
	args := append(append([]string(nil), a.Args...), req.ReadsPath, req.OutDir)
	if err := run(ctx, req.Timeout, exe, args...); err != nil {
		return nil, err
	}
	return readContigs(ctx, filepath.Join(req.OutDir, AssemblerOutput))
}

func readContigs(ctx context.Context, path string) (contigs []Contig, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "assembler output")
	}
	defer file.CloseAndReport(ctx, in, &err)
	fa, err := fasta.New(in.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, path)
	}
	for _, name := range fa.SeqNames() {
		n, err := fa.Len(name)
		if err != nil {
			return nil, err
		}
		seq, err := fa.Get(name, 0, n)
		if err != nil {
			return nil, err
		}
		contigs = append(contigs, Contig{Name: name, Seq: seq})
	}
	return contigs, nil
}

// CommandAligner runs an external aligner as
//
//   <Path> [Args...] -window <n> <reference.fasta> <contigs.fasta> <outdir>
//
// which must exit 0 and leave <outdir>/breakpoints.bed, with coordinates
// relative to the reference slice.
type CommandAligner struct {
	Path string
	Args []string
}

// Align implements Aligner.
func (a *CommandAligner) Align(ctx context.Context, req AlignmentRequest) ([]Breakpoint, error) {
	exe, err := resolve(a.Path)
	if err != nil {
		return nil, err
	}
	args := append(append([]string(nil), a.Args...),
		"-window", strconv.Itoa(req.Window), req.ReferencePath, req.ContigsPath, req.OutDir)
	if err := run(ctx, req.Timeout, exe, args...); err != nil {
		return nil, err
	}
	recs, _, err := bedio.ReadFile(ctx, filepath.Join(req.OutDir, AlignerOutput))
	if err != nil {
		return nil, err
	}
	bps := make([]Breakpoint, 0, len(recs))
	for _, rec := range recs {
		if req.Slice != "" && rec.Chrom != req.Slice {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("breakpoint on %s, want %s", rec.Chrom, req.Slice))
		}
		bps = append(bps, Breakpoint{Start: rec.Start, End: rec.End, Length: rec.Length})
	}
	return bps, nil
}
