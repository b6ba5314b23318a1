package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// PosType is BEDUnion's coordinate type.
type PosType int32

const posTypeMax = math.MaxInt32

// searchPosType returns the index of x in a[], or the position where x would
// be inserted if x isn't in a (this could be len(a)).  It's exactly the same
// as sort.SearchInt(), except for PosType.
func searchPosType(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// BEDUnion is a chromosome-keyed collection of length-2N sequences, where N is
// the number of disjoint intervals on that chromosome.  The (0-based) start of
// interval #k is in element [2k] and its end in element [2k+1], and intervals
// are stored in increasing order.
//
// A BEDUnion is immutable once built and may be queried concurrently.
type BEDUnion struct {
	nameMap map[string][]PosType
}

// NewBEDUnionFromEntries builds a BEDUnion from entries in any order, merging
// touching/overlapping intervals and eliminating empty ones.
func NewBEDUnionFromEntries(entries []Entry) BEDUnion {
	byChr := make(map[string][]Entry)
	for _, e := range entries {
		if e.End <= e.Start0 {
			continue
		}
		byChr[e.ChrName] = append(byChr[e.ChrName], e)
	}
	u := BEDUnion{nameMap: make(map[string][]PosType, len(byChr))}
	for chr, es := range byChr {
		sort.Slice(es, func(i, j int) bool {
			if es[i].Start0 != es[j].Start0 {
				return es[i].Start0 < es[j].Start0
			}
			return es[i].End < es[j].End
		})
		endpoints := make([]PosType, 0, 2*len(es))
		prevStart, prevEnd := es[0].Start0, es[0].End
		for _, e := range es[1:] {
			if e.Start0 > prevEnd {
				endpoints = append(endpoints, prevStart, prevEnd)
				prevStart, prevEnd = e.Start0, e.End
				continue
			}
			if e.End > prevEnd {
				prevEnd = e.End
			}
		}
		u.nameMap[chr] = append(endpoints, prevStart, prevEnd)
	}
	return u
}

// scanBEDUnion reads the first three columns of each BED line.  Header-ish
// lines ('#', "track", "browser") and blank lines are skipped.
func scanBEDUnion(scanner *bufio.Scanner) (entries []Entry, err error) {
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Bytes()
		nToken := getTokens(tokens[:], line)
		if nToken == 0 || tokens[0][0] == '#' {
			continue
		}
		if s := gunsafe.BytesToString(tokens[0]); s == "track" || s == "browser" {
			continue
		}
		if nToken < 3 {
			return nil, fmt.Errorf("interval.scanBEDUnion: line %d has fewer than 3 columns", lineIdx)
		}
		var start, end int
		if start, err = strconv.Atoi(gunsafe.BytesToString(tokens[1])); err != nil {
			return nil, err
		}
		if end, err = strconv.Atoi(gunsafe.BytesToString(tokens[2])); err != nil {
			return nil, err
		}
		if start < 0 || end < start || end >= posTypeMax {
			return nil, fmt.Errorf("interval.scanBEDUnion: invalid coordinate pair on line %d", lineIdx)
		}
		entries = append(entries, Entry{
			// Copy: tokens refer to the scanner's buffer.
			ChrName: string(tokens[0]),
			Start0:  PosType(start),
			End:     PosType(end),
		})
	}
	return entries, scanner.Err()
}

// NewBEDUnion loads the intervals from an interval-BED in any order, merging
// touching/overlapping intervals and eliminating empty ones in the process.
func NewBEDUnion(reader io.Reader) (BEDUnion, error) {
	entries, err := scanBEDUnion(bufio.NewScanner(reader))
	if err != nil {
		return BEDUnion{}, err
	}
	u := NewBEDUnionFromEntries(entries)
	log.Printf("BED loaded, %d base(s) covered.", u.TotalBases())
	return u, nil
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader.  Gzip-compressed files are detected by extension.
func NewBEDUnionFromPath(ctx context.Context, path string) (bedUnion BEDUnion, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return BEDUnion{}, errors.E(errors.NotExist, err, "open BED", path)
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return BEDUnion{}, errors.E(err, "gunzip", path)
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	return NewBEDUnion(reader)
}

// Intersects checks whether the 0-based half-open interval [start, end) on
// chrName shares at least one base with the union.  Empty query intervals
// are treated as the single base [start, start+1).
func (u BEDUnion) Intersects(chrName string, start, end PosType) bool {
	endpoints := u.nameMap[chrName]
	if len(endpoints) == 0 {
		return false
	}
	if end <= start {
		end = start + 1
	}
	// The first endpoint strictly greater than start.
	idx := searchPosType(endpoints, start+1)
	if idx&1 == 1 {
		// start is inside interval #idx/2.
		return true
	}
	return idx < len(endpoints) && endpoints[idx] < end
}

// ContainsByName checks whether the (0-based) interval [pos, pos+1) is
// contained within the BEDUnion.
func (u BEDUnion) ContainsByName(chrName string, pos PosType) bool {
	return searchPosType(u.nameMap[chrName], pos+1)&1 == 1
}

// Chroms returns the sorted chromosome names mentioned by the union.
func (u BEDUnion) Chroms() []string {
	names := make([]string, 0, len(u.nameMap))
	for name := range u.nameMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalBases returns the number of bases covered by the union.
func (u BEDUnion) TotalBases() int {
	total := 0
	for _, endpoints := range u.nameMap {
		for i := 0; i < len(endpoints); i += 2 {
			total += int(endpoints[i+1] - endpoints[i])
		}
	}
	return total
}
