package sv

import (
	"strings"

	"github.com/grailbio/base/errors"
)

// SVType is the kind of a structural variant.
type SVType string

const (
	// Deletion of reference sequence.
	Deletion SVType = "DEL"
	// Insertion of novel sequence.  Insertions are point-like on the reference.
	Insertion SVType = "INS"
	// Inversion of reference sequence.
	Inversion SVType = "INV"
	// Duplication of reference sequence.
	Duplication SVType = "DUP"
	// IntraTranslocation moves sequence within a contig.
	IntraTranslocation SVType = "ITX"
	// InterTranslocation moves sequence between contigs.
	InterTranslocation SVType = "CTX"
)

// AllTypes lists every SVType in output order.
var AllTypes = []SVType{Deletion, Insertion, Inversion, Duplication, IntraTranslocation, InterTranslocation}

// ParseSVType parses a type name, case-insensitively.  Subtypes such as
// "DUP:TANDEM" map to their base type.
func ParseSVType(s string) (SVType, error) {
	name := strings.ToUpper(s)
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	for _, t := range AllTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return "", errors.E(errors.Invalid, "unknown SV type", s)
}

// ParseSVTypes parses a comma-separated list of type names.  An empty string
// yields nil.
func ParseSVTypes(s string) ([]SVType, error) {
	if s == "" {
		return nil, nil
	}
	var types []SVType
	for _, name := range strings.Split(s, ",") {
		t, err := ParseSVType(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// TypeSet converts a list to a set.  A nil or empty list yields nil, which
// callers treat as "all types".
func TypeSet(types []SVType) map[SVType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[SVType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// IsTranslocation is true for ITX and CTX.
func (t SVType) IsTranslocation() bool {
	return t == IntraTranslocation || t == InterTranslocation
}

// IsPointLike is true for types whose reference footprint carries no size
// information.
func (t SVType) IsPointLike() bool {
	return t == Insertion
}

// HasSpanLength is true for types whose length is the reference span.
func (t SVType) HasSpanLength() bool {
	return t == Deletion || t == Inversion || t == Duplication
}
