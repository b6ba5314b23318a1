package vcf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/svmerge/encoding/fasta"
	"github.com/grailbio/svmerge/sv"
)

// Source is the value of the ##source header line.
const Source = "svmerge"

var headerLines = []string{
	`##INFO=<ID=END,Number=1,Type=Integer,Description="End position of the variant described in this record">`,
	`##INFO=<ID=SVLEN,Number=.,Type=Integer,Description="Difference in length between REF and ALT alleles">`,
	`##INFO=<ID=SVTYPE,Number=1,Type=String,Description="Type of structural variant">`,
	`##INFO=<ID=SVTOOL,Number=1,Type=String,Description="Tool used to generate the record">`,
	`##INFO=<ID=SOURCES,Number=.,Type=String,Description="Callers supporting the record">`,
	`##INFO=<ID=NUM_SVTOOLS,Number=1,Type=Integer,Description="Number of callers supporting the record">`,
	`##INFO=<ID=NATIVE,Number=.,Type=String,Description="Caller record identifiers, as tool:id">`,
	`##INFO=<ID=IMPRECISE,Number=0,Type=Flag,Description="Imprecise structural variation">`,
	`##INFO=<ID=OUTCOME,Number=1,Type=String,Description="Breakpoint refinement outcome">`,
	`##INFO=<ID=REGION,Number=1,Type=String,Description="Candidate region the record was refined in">`,
	`##FILTER=<ID=LowQual,Description="Supported by a single untrusted caller">`,
	`##ALT=<ID=DEL,Description="Deletion">`,
	`##ALT=<ID=INS,Description="Insertion of novel sequence">`,
	`##ALT=<ID=INV,Description="Inversion">`,
	`##ALT=<ID=DUP,Description="Duplication">`,
	`##ALT=<ID=ITX,Description="Intra-chromosomal translocation">`,
	`##ALT=<ID=CTX,Description="Inter-chromosomal translocation">`,
	`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`,
	`##FORMAT=<ID=RR,Number=1,Type=Integer,Description="Fragments supporting the reference allele">`,
	`##FORMAT=<ID=AR,Number=1,Type=Integer,Description="Fragments supporting the alternate allele">`,
}

// WriterOpts configures a Writer.
type WriterOpts struct {
	// Sample names the single genotype column.
	Sample string
	// Contigs are listed as ##contig lines.
	Contigs []fasta.Contig
	// ReferencePath is recorded in the ##reference line if nonempty.
	ReferencePath string
	// Reference, if non-nil, supplies REF bases.  Otherwise REF is "N".
	Reference fasta.Fasta
	// Tool fills SVTOOL.  Defaults to Source.
	Tool string
}

// Writer emits VCF records.  WriteHeader must be called once before Write.
type Writer struct {
	w    *bufio.Writer
	opts WriterOpts
	buf  []byte
}

// NewWriter creates a writer on w.
func NewWriter(w io.Writer, opts WriterOpts) *Writer {
	if opts.Tool == "" {
		opts.Tool = Source
	}
	if opts.Sample == "" {
		opts.Sample = "SAMPLE"
	}
	return &Writer{w: bufio.NewWriter(w), opts: opts}
}

// WriteHeader writes the meta lines and the column header.
func (w *Writer) WriteHeader() error {
	lines := []string{"##fileformat=VCFv4.1", "##source=" + Source}
	if w.opts.ReferencePath != "" {
		lines = append(lines, "##reference="+w.opts.ReferencePath)
	}
	for _, c := range w.opts.Contigs {
		lines = append(lines, fmt.Sprintf("##contig=<ID=%s,length=%d>", c.Name, c.Length))
	}
	lines = append(lines, headerLines...)
	lines = append(lines, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t"+w.opts.Sample)
	for _, l := range lines {
		if _, err := w.w.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// refBase returns the padding base at 1-based pos, the base before the
// event.
func (w *Writer) refBase(chrom string, pos int) string {
	if w.opts.Reference == nil || pos < 1 {
		return "N"
	}
	base, err := w.opts.Reference.Get(chrom, uint64(pos-1), uint64(pos))
	if err != nil || base == "" {
		return "N"
	}
	return strings.ToUpper(base)
}

func nativeField(native map[string]string) string {
	tools := make([]string, 0, len(native))
	for t := range native {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	var parts []string
	for _, t := range tools {
		for _, id := range strings.Split(native[t], ";") {
			parts = append(parts, t+":"+id)
		}
	}
	return strings.Join(parts, ",")
}

// Write emits one call.
func (w *Writer) Write(c sv.Call) error {
	pos := c.Start
	if pos < 1 {
		pos = 1
	}
	svLen := c.Length
	if c.Type == sv.Deletion {
		svLen = -svLen
	}
	filter := "LowQual"
	if c.Validated {
		filter = "PASS"
	}
	b := w.buf[:0]
	b = append(b, c.Chrom...)
	b = append(b, '\t')
	b = strconv.AppendInt(b, int64(pos), 10)
	b = append(b, "\t.\t"...)
	b = append(b, w.refBase(c.Chrom, pos)...)
	b = append(b, "\t<"...)
	b = append(b, string(c.Type)...)
	b = append(b, ">\t.\t"...)
	b = append(b, filter...)
	b = append(b, "\tEND="...)
	b = strconv.AppendInt(b, int64(c.End), 10)
	b = append(b, ";SVLEN="...)
	b = strconv.AppendInt(b, int64(svLen), 10)
	b = append(b, ";SVTYPE="...)
	b = append(b, string(c.Type)...)
	b = append(b, ";SVTOOL="...)
	b = append(b, w.opts.Tool...)
	b = append(b, ";SOURCES="...)
	b = append(b, strings.Join(c.Sources, ",")...)
	b = append(b, ";NUM_SVTOOLS="...)
	b = strconv.AppendInt(b, int64(len(c.Sources)), 10)
	if len(c.Native) > 0 {
		b = append(b, ";NATIVE="...)
		b = append(b, nativeField(c.Native)...)
	}
	if !c.Precise {
		b = append(b, ";IMPRECISE"...)
	}
	if c.Outcome != "" {
		b = append(b, ";OUTCOME="...)
		b = append(b, string(c.Outcome)...)
	}
	if c.RegionID != "" {
		b = append(b, ";REGION="...)
		b = append(b, c.RegionID...)
	}
	gt := c.Genotype
	if gt == "" {
		gt = sv.NoCall
	}
	b = append(b, "\tGT:RR:AR\t"...)
	b = append(b, gt...)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(c.RefReads), 10)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(c.AltReads), 10)
	b = append(b, '\n')
	w.buf = b
	_, err := w.w.Write(b)
	return err
}

// Flush flushes buffered output.
func (w *Writer) Flush() error { return w.w.Flush() }

// WriteFile writes a complete VCF to path.  Paths ending in .gz are BGZF
// compressed.
func WriteFile(ctx context.Context, path string, opts WriterOpts, calls []sv.Call) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	var dst io.Writer = out.Writer(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		bgzfWriter := bgzf.NewWriter(dst, 1)
		dst = bgzfWriter
		defer func() {
			if e := bgzfWriter.Close(); e != nil && err == nil {
				err = e
			}
		}()
	}
	w := NewWriter(dst, opts)
	if err = w.WriteHeader(); err != nil {
		return err
	}
	for _, c := range calls {
		if err = w.Write(c); err != nil {
			return err
		}
	}
	return w.Flush()
}
