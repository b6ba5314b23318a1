// Package partition splits refinement work across a fleet of independent
// workers.  Each unit of work is identified by a string key and assigned to
// exactly one worker by a stable hash, so every worker computes the same
// assignment without coordination.
package partition

import (
	"fmt"
	"strconv"
	"strings"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
)

// Slice is one worker's share of a fleet.
type Slice struct {
	worker, fleet int
}

// NewSlice creates the slice of worker in a fleet of the given size.
func NewSlice(worker, fleet int) (Slice, error) {
	if fleet < 1 {
		return Slice{}, errors.E(errors.Invalid, fmt.Sprintf("fleet size %d must be positive", fleet))
	}
	if worker < 0 || worker >= fleet {
		return Slice{}, errors.E(errors.Invalid, fmt.Sprintf("worker id %d not in [0, %d)", worker, fleet))
	}
	return Slice{worker: worker, fleet: fleet}, nil
}

// Single is the whole of the work.
func Single() Slice { return Slice{worker: 0, fleet: 1} }

// Worker returns the worker id.
func (s Slice) Worker() int { return s.worker }

// Fleet returns the fleet size.
func (s Slice) Fleet() int { return s.fleet }

// String formats the slice as worker/fleet.
func (s Slice) String() string { return fmt.Sprintf("%d/%d", s.worker, s.fleet) }

// ParseSlice parses the output of Slice.String.
func ParseSlice(str string) (Slice, error) {
	parts := strings.Split(str, "/")
	if len(parts) != 2 {
		return Slice{}, errors.E(errors.Invalid, "malformed slice", str)
	}
	worker, err := strconv.Atoi(parts[0])
	if err != nil {
		return Slice{}, errors.E(errors.Invalid, err, "malformed slice", str)
	}
	fleet, err := strconv.Atoi(parts[1])
	if err != nil {
		return Slice{}, errors.E(errors.Invalid, err, "malformed slice", str)
	}
	return NewSlice(worker, fleet)
}

// Assign returns the worker that owns key.
func (s Slice) Assign(key string) int {
	return int(farm.Fingerprint64([]byte(key)) % uint64(s.fleet))
}

// Owns checks whether key belongs to this slice.
func (s Slice) Owns(key string) bool {
	return s.fleet <= 1 || s.Assign(key) == s.worker
}

// Select returns the indexes in [0, n) whose keys this slice owns, in
// increasing order.
func (s Slice) Select(n int, key func(i int) string) []int {
	var out []int
	for i := 0; i < n; i++ {
		if s.Owns(key(i)) {
			out = append(out, i)
		}
	}
	return out
}

// CheckComplete verifies that slices cover one fleet exactly: all share
// one fleet size, and every worker id appears once.
func CheckComplete(slices []Slice) error {
	if len(slices) == 0 {
		return errors.E(errors.Integrity, "no slices")
	}
	fleet := slices[0].fleet
	seen := make([]int, fleet)
	for _, s := range slices {
		if s.fleet != fleet {
			return errors.E(errors.Integrity, fmt.Sprintf("slice %v is from a different fleet than %v", s, slices[0]))
		}
		seen[s.worker]++
	}
	var missing, dup []string
	for w, n := range seen {
		switch {
		case n == 0:
			missing = append(missing, strconv.Itoa(w))
		case n > 1:
			dup = append(dup, strconv.Itoa(w))
		}
	}
	if len(missing) > 0 || len(dup) > 0 {
		return errors.E(errors.Integrity, fmt.Sprintf("fleet of %d: missing workers [%s], duplicated workers [%s]",
			fleet, strings.Join(missing, ","), strings.Join(dup, ",")))
	}
	return nil
}
