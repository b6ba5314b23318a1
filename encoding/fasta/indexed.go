package fasta

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Index files consist of one tab-separated line per sequence in the associated
// FASTA file.  The format is: "<sequence name>\t<length>\t<byte
// offset>\t<bases per line>\t<bytes per line>".
// For example: "chr3\t12345\t9000\t80\t81".
type indexEntry struct {
	length    uint64
	offset    uint64
	lineBase  uint64
	lineWidth uint64
}

type indexedFasta struct {
	seqs      map[string]indexEntry
	seqNames  []string // returned by SeqNames()
	reader    io.ReadSeeker
	bufOff    int64
	buf       []byte // caches file contents starting at bufOff.
	resultBuf []byte // temp for concatenating multi-line sequences.
	mutex     sync.Mutex
}

func parseIndex(index io.Reader) (map[string]indexEntry, []string, error) {
	seqs := make(map[string]indexEntry)
	var names []string
	scanner := bufio.NewScanner(index)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			return nil, nil, errors.Errorf("invalid index line %d: %q", lineIdx, line)
		}
		var (
			ent  indexEntry
			vals [4]uint64
		)
		for i := range vals {
			v, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "invalid index line %d", lineIdx)
			}
			vals[i] = v
		}
		ent.length, ent.offset, ent.lineBase, ent.lineWidth = vals[0], vals[1], vals[2], vals[3]
		if ent.length > 0 && (ent.lineBase == 0 || ent.lineWidth < ent.lineBase) {
			return nil, nil, errors.Errorf("invalid line geometry on index line %d", lineIdx)
		}
		if _, dup := seqs[fields[0]]; dup {
			return nil, nil, errors.Errorf("duplicate sequence %s in index", fields[0])
		}
		seqs[fields[0]] = ent
		names = append(names, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "couldn't read FASTA index")
	}
	sort.SliceStable(names, func(i, j int) bool {
		return seqs[names[i]].offset < seqs[names[j]].offset
	})
	return seqs, names, nil
}

// NewIndexed creates a new Fasta that can perform efficient random lookups
// using the provided index, without reading the data into memory.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	seqs, names, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	return &indexedFasta{seqs: seqs, seqNames: names, reader: fasta}, nil
}

// ReadIndexContigs reads a .fai index and returns the contigs it describes,
// in FASTA file order.  This doesn't require reading the FASTA itself.
func ReadIndexContigs(index io.Reader) ([]Contig, error) {
	seqs, names, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	return indexContigs(seqs, names), nil
}

func indexContigs(seqs map[string]indexEntry, names []string) []Contig {
	contigs := make([]Contig, len(names))
	for i, name := range names {
		contigs[i] = Contig{Name: name, Length: int(seqs[name].length)}
	}
	return contigs
}

// Len implements Fasta.Len().
func (f *indexedFasta) Len(seqName string) (uint64, error) {
	ent, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", seqName)
	}
	return ent.length, nil
}

// Read range [off, off+n) from the underlying fasta file.
func (f *indexedFasta) read(off int64, n int) ([]byte, error) {
	limit := off + int64(n)
	if off >= f.bufOff && limit <= f.bufOff+int64(len(f.buf)) {
		return f.buf[off-f.bufOff : limit-f.bufOff], nil
	}
	if newOffset, err := f.reader.Seek(off, io.SeekStart); err != nil || newOffset != off {
		return nil, errors.Errorf("failed to seek to offset %d: %d, %v", off, newOffset, err)
	}
	bufSize := 8192
	if bufSize < n {
		bufSize = n
	}
	f.resizeBuf(&f.buf, bufSize)
	bytesRead, err := io.ReadAtLeast(f.reader, f.buf, n)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	if bytesRead < n {
		return nil, errors.Errorf("encountered unexpected end of file (bad index? file doesn't end in newline?)")
	}
	f.bufOff = off
	f.buf = f.buf[:bytesRead]
	return f.buf[:n], nil
}

func (f *indexedFasta) resizeBuf(buf *[]byte, n int) {
	if cap(*buf) < n {
		*buf = make([]byte, n)
	} else {
		*buf = (*buf)[0:n]
	}
}

// Get implements Fasta.Get().
func (f *indexedFasta) Get(seqName string, start uint64, end uint64) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if end <= start {
		return "", errors.Errorf("start must be less than end")
	}
	ent, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found in index: %s", seqName)
	}
	if end > ent.length {
		return "", errors.Errorf("end is past end of sequence %s: %d", seqName, ent.length)
	}

	// Start the read at a byte offset allowing for the presence of newline
	// characters.
	charsPerNewline := ent.lineWidth - ent.lineBase
	offset := ent.offset + start + charsPerNewline*(start/ent.lineBase)

	// Figure out how many characters (including newlines) we should read.
	firstLineBases := ent.lineBase - (start % ent.lineBase)
	newlinesToRead := uint64(0)
	if end-start > firstLineBases {
		newlinesToRead = 1 + (end-start-firstLineBases)/ent.lineBase
	}
	capacity := end - start + newlinesToRead*charsPerNewline
	// The last line may lack its terminator.
	if avail := ent.offset + ent.length + charsPerNewline*((ent.length-1)/ent.lineBase) - offset; capacity > avail {
		capacity = avail
	}

	buffer, err := f.read(int64(offset), int(capacity))
	if err != nil {
		return "", err
	}

	f.resizeBuf(&f.resultBuf, int(end-start))
	linePos := (offset - ent.offset) % ent.lineWidth
	resultPos := 0
	for i := range buffer {
		if linePos < ent.lineBase && resultPos < len(f.resultBuf) {
			f.resultBuf[resultPos] = buffer[i]
			resultPos++
		}
		linePos++
		if linePos == ent.lineWidth {
			linePos = 0
		}
	}
	return string(f.resultBuf), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}
