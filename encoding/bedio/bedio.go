// Package bedio reads and writes the interval-BED files exchanged between
// svmerge stages: candidate regions, per-worker genotyped partials, the
// merged BED and aligner breakpoint files.
//
// Each data line has the columns
//
//   chrom start end svtype length sources flags [key=value ...]
//
// with 0-based half-open coordinates.  Only the first three columns are
// required; missing or "." columns take zero values.  Lines of the form
// "#key=value" carry file metadata.  Other "#" lines, blank lines, and
// "track"/"browser" lines are skipped.
package bedio

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/svmerge/sv"
)

// Record is one BED line.
type Record struct {
	Chrom      string
	Start, End int
	// Type is empty when the line has no svtype column.
	Type      sv.SVType
	Length    int
	Sources   []string
	Precise   bool
	Validated bool
	// Attrs holds the trailing key=value columns.
	Attrs map[string]string
}

// Attribute keys written by FromCall.
const (
	AttrOutcome  = "OUTCOME"
	AttrRegion   = "REGION"
	AttrGenotype = "GT"
	AttrRefReads = "RR"
	AttrAltReads = "AR"
	AttrWiggle   = "WIGGLE"
	AttrExact    = "EXACT"
	// AttrNativePrefix prefixes the per-source native payloads.
	AttrNativePrefix = "NATIVE_"
)

// Reader parses BED lines.
type Reader struct {
	sc   *bufio.Scanner
	meta map[string]string
	rec  Record
	line int
	err  error
}

// NewReader creates a reader for r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Reader{sc: sc, meta: map[string]string{}}
}

// Scan advances to the next record.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for r.sc.Scan() {
		r.line++
		line := strings.TrimRight(r.sc.Text(), "\r")
		if skipLine(line) {
			if strings.HasPrefix(line, "#") {
				if i := strings.IndexByte(line, '='); i > 1 && !strings.ContainsAny(line[:i], " \t") {
					r.meta[line[1:i]] = line[i+1:]
				}
			}
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			r.err = errors.E(err, fmt.Sprintf("line %d", r.line))
			return false
		}
		r.rec = rec
		return true
	}
	r.err = r.sc.Err()
	return false
}

// Record returns the current record.
func (r *Reader) Record() Record { return r.rec }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Meta returns the "#key=value" headers seen so far.
func (r *Reader) Meta() map[string]string { return r.meta }

func skipLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || trimmed[0] == '#' ||
		strings.HasPrefix(trimmed, "track") || strings.HasPrefix(trimmed, "browser")
}

func isMissing(s string) bool { return s == "" || s == "." }

// ParseLine parses one data line.  Columns are separated by tabs or spaces.
func ParseLine(line string) (Record, error) {
	cols := strings.Fields(line)
	if len(cols) < 3 {
		return Record{}, errors.E(errors.Invalid, "BED line needs at least 3 columns", line)
	}
	var (
		rec Record
		err error
	)
	rec.Chrom = cols[0]
	if rec.Start, err = strconv.Atoi(cols[1]); err != nil {
		return Record{}, errors.E(errors.Invalid, err, "start", line)
	}
	if rec.End, err = strconv.Atoi(cols[2]); err != nil {
		return Record{}, errors.E(errors.Invalid, err, "end", line)
	}
	if rec.Start < 0 || rec.End < rec.Start {
		return Record{}, errors.E(errors.Invalid, "bad coordinates", line)
	}
	if len(cols) > 3 && !isMissing(cols[3]) {
		if rec.Type, err = sv.ParseSVType(cols[3]); err != nil {
			return Record{}, err
		}
	}
	if len(cols) > 4 && !isMissing(cols[4]) {
		if rec.Length, err = strconv.Atoi(cols[4]); err != nil {
			return Record{}, errors.E(errors.Invalid, err, "length", line)
		}
	} else if rec.Type.HasSpanLength() {
		rec.Length = rec.End - rec.Start
	}
	if len(cols) > 5 && !isMissing(cols[5]) {
		rec.Sources = sv.NormalizeSources(strings.Split(cols[5], ";"))
	}
	if len(cols) > 6 && !isMissing(cols[6]) {
		for _, flag := range strings.Split(cols[6], ",") {
			switch flag {
			case "PRECISE":
				rec.Precise = true
			case "VALIDATED":
				rec.Validated = true
			}
		}
	}
	if len(cols) > 7 {
		rec.Attrs = make(map[string]string, len(cols)-7)
		for _, kv := range cols[7:] {
			if i := strings.IndexByte(kv, '='); i > 0 {
				rec.Attrs[kv[:i]] = kv[i+1:]
			} else {
				rec.Attrs[kv] = ""
			}
		}
	}
	return rec, nil
}

// Writer emits BED lines.
type Writer struct {
	w *tsv.Writer
}

// NewWriter creates a writer on w.  Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: tsv.NewWriter(w)}
}

// WriteMeta writes the headers in key order.  It must precede Write.
func (w *Writer) WriteMeta(meta map[string]string) error {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.w.WriteString("#" + k + "=" + meta[k])
		if err := w.w.EndLine(); err != nil {
			return err
		}
	}
	return nil
}

// Write emits one record.  Attributes are written in key order.
func (w *Writer) Write(rec Record) error {
	w.w.WriteString(rec.Chrom)
	w.w.WriteInt64(int64(rec.Start))
	w.w.WriteInt64(int64(rec.End))
	w.w.WriteString(orDot(string(rec.Type)))
	w.w.WriteInt64(int64(rec.Length))
	w.w.WriteString(orDot(strings.Join(rec.Sources, ";")))
	var flags []string
	if rec.Precise {
		flags = append(flags, "PRECISE")
	}
	if rec.Validated {
		flags = append(flags, "VALIDATED")
	}
	w.w.WriteString(orDot(strings.Join(flags, ",")))
	keys := make([]string, 0, len(rec.Attrs))
	for k := range rec.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.w.WriteString(k + "=" + rec.Attrs[k])
	}
	return w.w.EndLine()
}

// Flush flushes buffered output.
func (w *Writer) Flush() error { return w.w.Flush() }

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}
