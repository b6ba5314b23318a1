package fastq

import (
	"bufio"
	"io"
)

// Writer is a FASTQ file writer.
type Writer struct {
	w   *bufio.Writer
	n   int
	err error
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes the read r in FASTQ format.
// An error is returned if the write failed.
func (w *Writer) Write(r *Read) error {
	w.writeln(r.ID)
	w.writeln(r.Seq)
	w.writeln(r.Unk)
	w.writeln(r.Qual)
	if w.err == nil {
		w.n++
	}
	return w.err
}

// WritePair writes two mates back to back, as expected by assemblers that
// take interleaved paired-end input.
func (w *Writer) WritePair(r1, r2 *Read) error {
	if err := w.Write(r1); err != nil {
		return err
	}
	return w.Write(r2)
}

// Count returns the number of reads written.
func (w *Writer) Count() int { return w.n }

// Flush flushes buffered reads to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	if _, w.err = w.w.WriteString(line); w.err == nil {
		w.err = w.w.WriteByte('\n')
	}
}
