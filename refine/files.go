package refine

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/svmerge/candidate"
	"github.com/grailbio/svmerge/encoding/bamprovider"
	"github.com/grailbio/svmerge/encoding/fasta"
	"github.com/grailbio/svmerge/encoding/fastq"
)

const (
	readsFile     = "reads.fastq"
	contigsFile   = "contigs.fasta"
	referenceFile = "reference.fasta"
)

// extractReads writes the primary reads overlapping r as interleaved FASTQ.
// Mates found in the window are written back to back.  At most maxPairs
// fragments are written, in coordinate order of their first read.  It returns
// the number of fragments written.
func extractReads(ctx context.Context, src bamprovider.Provider, r *candidate.Region, path string, maxPairs int) (n int, err error) {
	type fragment struct {
		reads [2]*sam.Record
	}
	var (
		order []*fragment
		byName = map[string]*fragment{}
	)
	const skip = sam.Unmapped | sam.Secondary | sam.Supplementary | sam.QCFail
	iter := src.NewIterator(r.Chrom, r.Start, r.End)
	for iter.Scan() {
		rec := iter.Record()
		if rec.Flags&skip != 0 {
			continue
		}
		mate := 0
		if rec.Flags&sam.Read2 != 0 {
			mate = 1
		}
		f, ok := byName[rec.Name]
		if !ok {
			if maxPairs > 0 && len(order) >= maxPairs {
				continue
			}
			f = &fragment{}
			byName[rec.Name] = f
			order = append(order, f)
		}
		if f.reads[mate] == nil {
			f.reads[mate] = rec
		}
	}
	if err := iter.Close(); err != nil {
		return 0, errors.E(err, "extract reads", r.String())
	}

	out, err := file.Create(ctx, path)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := fastq.NewWriter(out.Writer(ctx))
	for _, f := range order {
		var reads []fastq.Read
		for _, rec := range f.reads {
			if rec != nil {
				reads = append(reads, fastq.FromRecord(rec))
			}
		}
		if len(reads) == 2 {
			err = w.WritePair(&reads[0], &reads[1])
		} else {
			err = w.Write(&reads[0])
		}
		if err != nil {
			return 0, err
		}
	}
	return len(order), w.Flush()
}

// writeReferenceSlice writes the window of r as a single FASTA record, with
// a .fai index next to it.  It returns the record name.
func writeReferenceSlice(ctx context.Context, ref fasta.Fasta, r *candidate.Region, path string) (name string, err error) {
	seq, err := ref.Get(r.Chrom, uint64(r.Start), uint64(r.End))
	if err != nil {
		return "", errors.E(err, "reference slice", r.String())
	}
	name = fmt.Sprintf("%s_%d_%d", r.Chrom, r.Start, r.End)
	out, err := file.Create(ctx, path)
	if err != nil {
		return "", err
	}
	w := fasta.NewWriter(out.Writer(ctx), 0)
	e := errors.Once{}
	e.Set(w.Write(name, seq))
	e.Set(w.Flush())
	e.Set(out.Close(ctx))
	if err := e.Err(); err != nil {
		return "", err
	}
	idx, err := file.Create(ctx, path+".fai")
	if err != nil {
		return "", err
	}
	defer file.CloseAndReport(ctx, idx, &err)
	return name, w.WriteIndex(idx.Writer(ctx))
}

// writeContigs saves contigs as FASTA.
func writeContigs(ctx context.Context, path string, contigs []Contig) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := fasta.NewWriter(out.Writer(ctx), 0)
	for _, c := range contigs {
		if err := w.Write(c.Name, c.Seq); err != nil {
			return err
		}
	}
	return w.Flush()
}
