package bamprovider

import (
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// bamProvider reads an indexed BAM file.  The header and index are loaded
// once; each open iterator holds its own reader, and closed iterators return
// their reader to a pool.
type bamProvider struct {
	path, indexPath string
	err             errors.Once

	mu      sync.Mutex
	header  *sam.Header
	index   *bam.Index
	pool    []*bamReader
	nActive int
}

// bamReader is one open handle on the BAM file.
type bamReader struct {
	in file.File
	r  *bam.Reader
}

func (br *bamReader) close() error {
	ctx := vcontext.Background()
	err := br.r.Close()
	if e := br.in.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}

func (b *bamProvider) open() (*bamReader, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.path)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "open BAM", b.path)
	}
	r, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(errors.Invalid, err, "read BAM", b.path)
	}
	return &bamReader{in: in, r: r}, nil
}

// GetHeader implements the Provider interface.
func (b *bamProvider) GetHeader() (*sam.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.header != nil {
		return b.header, nil
	}
	br, err := b.open()
	if err != nil {
		b.err.Set(err)
		return nil, err
	}
	b.header = br.r.Header()
	b.pool = append(b.pool, br)
	return b.header, nil
}

func (b *bamProvider) loadIndex() (*bam.Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index != nil {
		return b.index, nil
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.indexPath)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "open BAM index", b.indexPath)
	}
	defer in.Close(ctx) // nolint: errcheck
	if b.index, err = bam.ReadIndex(in.Reader(ctx)); err != nil {
		return nil, errors.E(errors.Invalid, err, "read BAM index", b.indexPath)
	}
	return b.index, nil
}

func (b *bamProvider) get() (*bamReader, error) {
	b.mu.Lock()
	b.nActive++
	if n := len(b.pool); n > 0 {
		br := b.pool[n-1]
		b.pool = b.pool[:n-1]
		b.mu.Unlock()
		return br, nil
	}
	b.mu.Unlock()
	return b.open()
}

// put returns br to the pool.  A reader that saw an error is closed
// instead.
func (b *bamProvider) put(br *bamReader, err error) {
	if br != nil && err != nil {
		if cerr := br.close(); cerr != nil {
			b.err.Set(cerr)
		}
		br = nil
	}
	if err != nil {
		b.err.Set(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive--; b.nActive < 0 {
		vlog.Fatalf("%s: more iterators closed than opened", b.path)
	}
	if br != nil {
		b.pool = append(b.pool, br)
	}
}

// Close implements the Provider interface.
func (b *bamProvider) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive > 0 {
		vlog.Fatalf("%s: %d iterators still open", b.path, b.nActive)
	}
	for _, br := range b.pool {
		if err := br.close(); err != nil {
			b.err.Set(err)
		}
	}
	b.pool = nil
	return b.err.Err()
}

// NewIterator implements the Provider interface.
func (b *bamProvider) NewIterator(refName string, start, limit int) Iterator {
	header, err := b.GetHeader()
	if err != nil {
		return doneIterator(err)
	}
	ref := RefByName(header, refName)
	if ref == nil || limit <= start {
		vlog.VI(1).Infof("%s: empty window %s:%d-%d", b.path, refName, start, limit)
		return doneIterator(nil)
	}
	idx, err := b.loadIndex()
	if err != nil {
		b.err.Set(err)
		return doneIterator(err)
	}
	chunks, err := idx.Chunks(ref, start, limit)
	if err == index.ErrInvalid || (err == nil && len(chunks) == 0) {
		return doneIterator(nil)
	}
	if err != nil {
		return doneIterator(errors.E(err, "query BAM index", b.indexPath))
	}
	br, err := b.get()
	it := &bamIterator{b: b, br: br, ref: ref, start: start, limit: limit, err: err}
	if err == nil {
		vlog.VI(2).Infof("%s:%d-%d: seek to %+v", ref.Name(), start, limit, chunks[0].Begin)
		it.err = br.r.Seek(chunks[0].Begin)
	}
	return it
}

type bamIterator struct {
	b            *bamProvider
	br           *bamReader
	ref          *sam.Reference
	start, limit int
	rec          *sam.Record
	err          error
	closed       bool
}

// Scan implements the Iterator interface.
func (i *bamIterator) Scan() bool {
	if i.closed {
		vlog.Fatalf("%s: scan after close", i.b.path)
	}
	for i.err == nil {
		i.rec, i.err = i.br.r.Read()
		switch {
		case i.err != nil:
		case i.rec.Ref == nil || i.rec.Ref.ID() != i.ref.ID() || i.rec.Pos >= i.limit:
			i.err = io.EOF
		case Overlaps(i.rec, i.start, i.limit):
			return true
		}
	}
	return false
}

// Record implements the Iterator interface.
func (i *bamIterator) Record() *sam.Record { return i.rec }

// Err implements the Iterator interface.
func (i *bamIterator) Err() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Close implements the Iterator interface.
func (i *bamIterator) Close() error {
	if i.closed {
		vlog.Fatalf("%s: iterator closed twice", i.b.path)
	}
	i.closed = true
	err := i.Err()
	if i.br != nil || err != nil {
		i.b.put(i.br, err)
	}
	return err
}

// finishedIterator yields nothing.  Err and Close report err, which is nil
// for an empty window.
type finishedIterator struct{ err error }

func doneIterator(err error) Iterator { return &finishedIterator{err: err} }

func (i *finishedIterator) Scan() bool          { return false }
func (i *finishedIterator) Record() *sam.Record { return nil }
func (i *finishedIterator) Err() error          { return i.err }
func (i *finishedIterator) Close() error        { return i.err }
