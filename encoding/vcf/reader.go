// Package vcf reads structural-variant calls from tool VCFs and writes the
// merged call set as VCF.
package vcf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/svmerge/sv"
)

// Column indexes of a VCF data line.
const (
	colChrom = iota
	colPos
	colID
	colRef
	colAlt
	colQual
	colFilter
	colInfo
	nFixedCols
)

// Reader yields one interval per supported SV record.  Records of other
// types (SNVs, CNV, ...) are skipped.
type Reader struct {
	tool    string
	sc      *bufio.Scanner
	line    int
	iv      sv.Interval
	err     error
	skipped int
}

// NewReader creates a reader for the VCF in r.  Intervals are attributed to
// tool.
func NewReader(r io.Reader, tool string) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &Reader{tool: tool, sc: sc}
}

// Scan advances to the next supported record.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for r.sc.Scan() {
		r.line++
		line := r.sc.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		iv, ok, err := parseRecord(line, r.tool)
		if err != nil {
			r.err = errors.E(err, fmt.Sprintf("%s: line %d", r.tool, r.line))
			return false
		}
		if !ok {
			r.skipped++
			continue
		}
		r.iv = iv
		return true
	}
	r.err = r.sc.Err()
	return false
}

// Interval returns the current interval.
func (r *Reader) Interval() sv.Interval { return r.iv }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Skipped returns the number of unsupported records passed over.
func (r *Reader) Skipped() int { return r.skipped }

func parseInfo(info string) map[string]string {
	m := map[string]string{}
	if info == "." {
		return m
	}
	for _, kv := range strings.Split(info, ";") {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		} else {
			m[kv] = ""
		}
	}
	return m
}

// mateChrom extracts the mate contig from a breakend ALT such as
// "N[chr2:321682[".
func mateChrom(alt string) (string, bool) {
	i := strings.IndexAny(alt, "[]")
	if i < 0 {
		return "", false
	}
	rest := alt[i+1:]
	j := strings.LastIndexByte(rest, ':')
	if j < 0 {
		return "", false
	}
	return strings.TrimPrefix(rest[:j], "<"), true
}

// svType determines the type from SVTYPE, falling back to a symbolic ALT.
// ok is false for unsupported types.
func svType(chrom, alt string, info map[string]string) (sv.SVType, bool) {
	name := info["SVTYPE"]
	if name == "" && strings.HasPrefix(alt, "<") && strings.HasSuffix(alt, ">") {
		name = alt[1 : len(alt)-1]
	}
	switch strings.ToUpper(name) {
	case "BND", "TRA":
		mate, ok := mateChrom(alt)
		if !ok {
			mate = info["CHR2"]
		}
		if mate != "" && mate != chrom {
			return sv.InterTranslocation, true
		}
		return sv.IntraTranslocation, true
	case "":
		return "", false
	}
	t, err := sv.ParseSVType(name)
	return t, err == nil
}

func parseRecord(line, tool string) (sv.Interval, bool, error) {
	cols := strings.Split(line, "\t")
	if len(cols) < nFixedCols {
		return sv.Interval{}, false, errors.E(errors.Invalid, "VCF line needs 8 columns")
	}
	info := parseInfo(cols[colInfo])
	typ, ok := svType(cols[colChrom], cols[colAlt], info)
	if !ok {
		return sv.Interval{}, false, nil
	}
	pos, err := strconv.Atoi(cols[colPos])
	if err != nil || pos < 0 {
		return sv.Interval{}, false, errors.E(errors.Invalid, "POS", cols[colPos])
	}
	svLen := 0
	if v, ok := info["SVLEN"]; ok {
		// Multi-allelic SVLEN keeps the first value.
		if svLen, err = strconv.Atoi(strings.Split(v, ",")[0]); err != nil {
			return sv.Interval{}, false, errors.E(errors.Invalid, err, "SVLEN", v)
		}
	}
	// POS is the padding base before the event; its 1-based position is the
	// 0-based start of the event.
	start := pos
	end := start
	if v, ok := info["END"]; ok && typ != sv.Insertion && !typ.IsTranslocation() {
		if end, err = strconv.Atoi(v); err != nil {
			return sv.Interval{}, false, errors.E(errors.Invalid, err, "END", v)
		}
	} else if typ.HasSpanLength() {
		end = start + abs(svLen)
	}
	if end < start {
		start, end = end, start
	}
	length := svLen
	switch {
	case typ.HasSpanLength():
		length = end - start
	case typ == sv.Insertion:
		length = abs(svLen)
		if length == 0 {
			if ref, alt := cols[colRef], cols[colAlt]; !strings.HasPrefix(alt, "<") && len(alt) > len(ref) {
				length = len(alt) - len(ref)
			}
		}
	}
	iv := sv.NewInterval(cols[colChrom], start, end, length, typ, tool)
	_, imprecise := info["IMPRECISE"]
	iv.ExactBreakpoints = !imprecise
	if id := cols[colID]; id != "." && id != "" {
		iv.Native = map[string]string{tool: id}
	}
	return iv, true, iv.Check()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ReadFile loads every supported record of a VCF, which may be gzip or BGZF
// compressed.
func ReadFile(ctx context.Context, path, tool string) (ivs []sv.Interval, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "open VCF", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var inr io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(inr, in.Name()); u != nil {
		inr = u
	}
	r := NewReader(inr, tool)
	for r.Scan() {
		ivs = append(ivs, r.Interval())
	}
	if err := r.Err(); err != nil {
		return nil, errors.E(err, path)
	}
	log.Debug.Printf("%s: %d SV record(s), %d skipped", path, len(ivs), r.Skipped())
	return ivs, nil
}
