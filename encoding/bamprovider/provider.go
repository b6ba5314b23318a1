package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// ProviderOpts defines options for NewProvider.
type ProviderOpts struct {
	// Index specifies the name of the BAM index file.  If empty, Path + ".bai"
	// is used.
	Index string
}

// Provider allows reading aligned reads overlapping a genomic window.  It is
// thread compatible: multiple iterators may be open at once, and each
// iterator must be used by a single goroutine.
type Provider interface {
	// GetHeader returns the header for the provided BAM data.  The callee
	// must not modify the returned header object.
	GetHeader() (*sam.Header, error)

	// NewIterator returns an iterator over the reads that overlap the 0-based
	// half-open range [start, limit) of refName, in coordinate order.  An
	// unmapped read placed next to its mate counts as covering one base at
	// its position.  An unknown refName yields an empty iterator.
	NewIterator(refName string, start, limit int) Iterator

	// Close must be called exactly once.  It returns any error encountered by
	// the provider, or any iterator created by the provider.  All iterators
	// must be closed before calling Close.
	Close() error
}

// Iterator iterates over sam.Records in a particular genomic range, in
// coordinate order.  Thread compatible.
type Iterator interface {
	// Scan returns whether there are any records remaining in the iterator,
	// and if so, advances the iterator to the next record.  If the iterator
	// reaches the end of its range, Scan() returns false.  If an error
	// occurs, Scan() returns false and the error can be retrieved by calling
	// Err().
	Scan() bool

	// Record returns the current record in the iterator.  This must be
	// called only after a call to Scan() returns true.
	Record() *sam.Record

	// Err returns the error encountered during iteration, or nil if no error
	// occurred.  An unknown reference is not an error.
	Err() error

	// Close must be called exactly once.  It returns the value of Err().
	Close() error
}

func mergeOpts(optList []ProviderOpts) ProviderOpts {
	opts := ProviderOpts{}
	for _, o := range optList {
		if o.Index != "" {
			opts.Index = o.Index
		}
	}
	return opts
}

// NewProvider creates a Provider object that reads the BAM file at path.
//
// Example:
//   p := bamprovider.NewProvider("foo.bam")
//   iter := p.NewIterator("chr1", 1000, 2000)
//   for iter.Scan() {
//     rec := iter.Record()
//   }
//   err := iter.Close()
//   ...
//   err := p.Close()
func NewProvider(path string, optList ...ProviderOpts) Provider {
	opts := mergeOpts(optList)
	if opts.Index == "" {
		opts.Index = path + ".bai"
	}
	return &bamProvider{path: path, indexPath: opts.Index}
}
