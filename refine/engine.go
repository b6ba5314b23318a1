package refine

import (
	"context"
	"time"
)

// Contig is an assembled sequence.
type Contig struct {
	Name string
	Seq  string
}

// AssemblyRequest describes one local assembly.
type AssemblyRequest struct {
	RegionID string
	// ReadsPath is an interleaved FASTQ of the region's reads.
	ReadsPath string
	// OutDir is a private scratch directory for the engine.
	OutDir  string
	Timeout time.Duration
}

// Assembler assembles the reads of one region into contigs.
type Assembler interface {
	Assemble(ctx context.Context, req AssemblyRequest) ([]Contig, error)
}

// Breakpoint is a refined event reported by an Aligner.  Coordinates are
// 0-based half-open and relative to the start of the reference slice.
type Breakpoint struct {
	Start, End int
	// Length is the event size.  Zero means the span.
	Length int
}

// AlignmentRequest describes one local alignment of contigs against the
// reference slice of a region.
type AlignmentRequest struct {
	RegionID string
	// ReferencePath is a FASTA file holding the reference slice, with a .fai
	// index next to it.
	ReferencePath string
	// Slice is the name of the reference slice record.
	Slice string
	// ContigsPath is a FASTA file of the assembled contigs.
	ContigsPath string
	OutDir      string
	Timeout     time.Duration
	// Window merges breakpoints closer than this many bases.
	Window int
}

// Aligner finds breakpoints by aligning contigs to a reference slice.
type Aligner interface {
	Align(ctx context.Context, req AlignmentRequest) ([]Breakpoint, error)
}
