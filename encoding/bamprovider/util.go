package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// RefByName finds a sam.Reference with the given name. It returns nil if a
// reference is not found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	return nil
}

// AlignedEnd returns the 0-based exclusive end of r on the reference.
// Records without reference-consuming operations cover one base.
func AlignedEnd(r *sam.Record) int {
	if end := r.End(); end > r.Pos {
		return end
	}
	return r.Pos + 1
}

// Overlaps reports whether r covers any base of [start, limit).
func Overlaps(r *sam.Record, start, limit int) bool {
	return r.Pos < limit && AlignedEnd(r) > start
}

// SoftClips returns the number of soft-clipped bases at the left and right
// ends of the alignment.  Hard clips are skipped over.
func SoftClips(r *sam.Record) (left, right int) {
	cigar := r.Cigar
	for i := 0; i < len(cigar); i++ {
		t := cigar[i].Type()
		if t == sam.CigarHardClipped {
			continue
		}
		if t == sam.CigarSoftClipped {
			left = cigar[i].Len()
		}
		break
	}
	for i := len(cigar) - 1; i >= 0; i-- {
		t := cigar[i].Type()
		if t == sam.CigarHardClipped {
			continue
		}
		if t == sam.CigarSoftClipped {
			right = cigar[i].Len()
		}
		break
	}
	return left, right
}

// MeanBaseQuality returns the average base quality of r, or 0 if r has no
// qualities.
func MeanBaseQuality(r *sam.Record) float64 {
	if len(r.Qual) == 0 || r.Qual[0] == 0xff {
		return 0
	}
	total := 0
	for _, q := range r.Qual {
		total += int(q)
	}
	return float64(total) / float64(len(r.Qual))
}

// IsPrimaryMapped reports whether r is a mapped, primary, non-duplicate,
// QC-passing alignment with mapping quality at least minMapQ.
func IsPrimaryMapped(r *sam.Record, minMapQ int) bool {
	const skip = sam.Unmapped | sam.Secondary | sam.Supplementary | sam.Duplicate | sam.QCFail
	return r.Flags&skip == 0 && int(r.MapQ) >= minMapQ
}
