// Package fastq converts aligned reads back to sequencer orientation and
// writes them as FASTQ, the input format of the local assembler.
package fastq

import (
	"github.com/grailbio/hts/sam"
)

// A Read is a FASTQ read, comprising an ID, sequence, line 3
// ("unknown"), and a quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

// phredOffset is the Sanger quality encoding offset.
const phredOffset = 33

var complement = [256]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'a': 't', 'c': 'g', 'g': 'c', 't': 'a', 'n': 'n',
}

// FromRecord returns r as it came off the sequencer: reverse-strand reads are
// reverse-complemented.  Mates get "/1" or "/2" name suffixes.  Reads without
// base qualities (0xff) get '!' qualities.
func FromRecord(r *sam.Record) Read {
	seq := r.Seq.Expand()
	qual := make([]byte, len(seq))
	for i := range qual {
		q := byte(0)
		if i < len(r.Qual) && r.Qual[i] != 0xff {
			q = r.Qual[i]
		}
		qual[i] = q + phredOffset
	}
	if r.Flags&sam.Reverse != 0 {
		for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
			seq[i], seq[j] = seq[j], seq[i]
			qual[i], qual[j] = qual[j], qual[i]
		}
		for i, b := range seq {
			if c := complement[b]; c != 0 {
				seq[i] = c
			} else {
				seq[i] = 'N'
			}
		}
	}
	id := "@" + r.Name
	switch {
	case r.Flags&sam.Read1 != 0:
		id += "/1"
	case r.Flags&sam.Read2 != 0:
		id += "/2"
	}
	return Read{ID: id, Seq: string(seq), Unk: "+", Qual: string(qual)}
}
