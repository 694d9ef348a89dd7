package coverage

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Range is an inclusive span of identifiers.
// It is stored on disk as a two-element array: [start, end].
type Range struct {
	Start uint64
	End   uint64
}

// NewRange returns the range covering both bounds regardless of their order.
func NewRange(a, b uint64) Range {
	if a > b {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

// Len returns the number of identifiers in the range.
func (r Range) Len() uint64 {
	return r.End - r.Start + 1
}

// String renders the range as "start-end".
func (r Range) String() string {
	return strconv.FormatUint(r.Start, 10) + "-" + strconv.FormatUint(r.End, 10)
}

// MarshalJSON implements json.Marshaler.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{r.Start, r.End})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("range: expected [start, end], got %d elements", len(pair))
	}
	*r = NewRange(pair[0], pair[1])
	return nil
}

// Ranges is a normalized set of ranges.
type Ranges []Range

// Add inserts r and re-normalizes the set.
func (rs *Ranges) Add(r Range) {
	*rs = append(*rs, NewRange(r.Start, r.End))
	rs.normalize()
}

// normalize sorts by start and merges overlapping or adjacent ranges in a
// single pass. Two ranges merge when next.Start <= cur.End+1.
func (rs *Ranges) normalize() {
	if len(*rs) == 0 {
		return
	}

	sorted := slices.Clone(*rs)
	slices.SortFunc(sorted, func(a, b Range) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})

	merged := make(Ranges, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if cur.End == math.MaxUint64 || next.Start <= cur.End+1 {
			cur.End = max(cur.End, next.End)
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	merged = append(merged, cur)

	*rs = merged
}

// Contains reports whether id falls inside any range.
func (rs Ranges) Contains(id uint64) bool {
	for _, r := range rs {
		if id >= r.Start && id <= r.End {
			return true
		}
	}
	return false
}

// Count returns the number of distinct identifiers covered.
func (rs Ranges) Count() uint64 {
	var n uint64
	for _, r := range rs {
		n += r.Len()
	}
	return n
}

// String renders the set as "a-b, c-d", or "none" when empty.
func (rs Ranges) String() string {
	if len(rs) == 0 {
		return "none"
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
