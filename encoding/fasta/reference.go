package fasta

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Reference is an indexed FASTA file opened for random access.
type Reference struct {
	Fasta
	// Contigs lists the reference sequences in file order.
	Contigs []Contig
	in      file.File
}

// Open opens the FASTA file at path together with its samtools-style index
// at path+".fai".  A missing index is reported as errors.NotExist.
func Open(ctx context.Context, path string) (*Reference, error) {
	idxPath := path + ".fai"
	idx, err := file.Open(ctx, idxPath)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "reference is not indexed:", idxPath)
	}
	seqs, names, err := parseIndex(idx.Reader(ctx))
	if cerr := idx.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.E(err, "read", idxPath)
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "open reference", path)
	}
	fa := &indexedFasta{seqs: seqs, seqNames: names, reader: in.Reader(ctx)}
	return &Reference{Fasta: fa, Contigs: indexContigs(seqs, names), in: in}, nil
}

// ContigLengths returns a name-keyed view of r.Contigs.
func (r *Reference) ContigLengths() map[string]int {
	m := make(map[string]int, len(r.Contigs))
	for _, c := range r.Contigs {
		m[c.Name] = c.Length
	}
	return m
}

// Close releases the underlying FASTA file.
func (r *Reference) Close(ctx context.Context) error {
	return r.in.Close(ctx)
}
