package fasta

import (
	"bufio"
	"io"

	"github.com/grailbio/base/tsv"
)

// DefaultLineWidth is the number of bases per line written by Writer.
const DefaultLineWidth = 60

// Writer writes FASTA records with a fixed line width and remembers their
// layout so that a matching .fai index can be produced afterwards.
type Writer struct {
	w     *bufio.Writer
	width int
	off   int64
	index []indexRecord
	err   error
}

type indexRecord struct {
	name   string
	length int
	offset int64
}

// NewWriter creates a Writer that wraps lines at width bases.  A width <= 0
// selects DefaultLineWidth.
func NewWriter(w io.Writer, width int) *Writer {
	if width <= 0 {
		width = DefaultLineWidth
	}
	return &Writer{w: bufio.NewWriter(w), width: width}
}

func (w *Writer) writeString(s string) {
	if w.err != nil {
		return
	}
	var n int
	n, w.err = w.w.WriteString(s)
	w.off += int64(n)
}

// Write appends one record.  The first error encountered is sticky.
func (w *Writer) Write(name, seq string) error {
	w.writeString(">" + name + "\n")
	w.index = append(w.index, indexRecord{name: name, length: len(seq), offset: w.off})
	for len(seq) > 0 {
		n := w.width
		if n > len(seq) {
			n = len(seq)
		}
		w.writeString(seq[:n])
		w.writeString("\n")
		seq = seq[n:]
	}
	return w.err
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// WriteIndex writes a samtools-style .fai index describing the records
// written so far.
func (w *Writer) WriteIndex(out io.Writer) error {
	t := tsv.NewWriter(out)
	for _, rec := range w.index {
		t.WriteString(rec.name)
		t.WriteInt64(int64(rec.length))
		t.WriteInt64(rec.offset)
		t.WriteInt64(int64(w.width))
		t.WriteInt64(int64(w.width + 1))
		if err := t.EndLine(); err != nil {
			return err
		}
	}
	return t.Flush()
}
