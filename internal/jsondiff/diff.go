package jsondiff

import (
	"encoding/json"
	"slices"
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind classifies a Difference.
type Kind int

const (
	// ValueMismatch means both sides hold the same JSON kind with different values.
	ValueMismatch Kind = iota + 1
	// MissingOnRight means the field exists on the left only.
	MissingOnRight
	// MissingOnLeft means the field exists on the right only.
	MissingOnLeft
	// ArrayLengthMismatch means both sides are arrays of different length.
	ArrayLengthMismatch
	// TypeMismatch means the two sides hold different JSON kinds.
	TypeMismatch
)

// String returns the kind name used in reports and the run log.
func (k Kind) String() string {
	switch k {
	case ValueMismatch:
		return "value_mismatch"
	case MissingOnRight:
		return "missing_on_right"
	case MissingOnLeft:
		return "missing_on_left"
	case ArrayLengthMismatch:
		return "array_length_mismatch"
	case TypeMismatch:
		return "type_mismatch"
	default:
		return "unknown"
	}
}

// Difference is a single divergence between the left and right documents.
//
// Left is meaningless for MissingOnLeft and Right is meaningless for
// MissingOnRight; a nil Left or Right otherwise stands for JSON null.
type Difference struct {
	Path  string
	Left  any
	Right any
	Kind  Kind
}

// valueKind is the JSON kind of a decoded value.
type valueKind int

const (
	kindNull valueKind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
	kindUnknown
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil:
		return kindNull
	case bool:
		return kindBool
	case json.Number, float64, float32, int, int64, uint64:
		return kindNumber
	case string:
		return kindString
	case []any:
		return kindArray
	case map[string]any:
		return kindObject
	default:
		return kindUnknown
	}
}

// differ carries the per-call lowercasing state. cases.Caser is not safe for
// concurrent use, so every Diff/Equal call builds its own.
type differ struct {
	lower cases.Caser
	diffs []Difference
}

func newDiffer() *differ {
	return &differ{lower: cases.Lower(language.Und)}
}

// Diff returns every difference between left and right.
// Non-TypeMismatch differences come first; relative order is otherwise the
// order of discovery.
func Diff(left, right any) []Difference {
	d := newDiffer()
	d.walk(left, right, "")
	slices.SortStableFunc(d.diffs, func(a, b Difference) int {
		return typeRank(a.Kind) - typeRank(b.Kind)
	})
	return d.diffs
}

func typeRank(k Kind) int {
	if k == TypeMismatch {
		return 1
	}
	return 0
}

// Equal reports whether Diff(left, right) would be empty.
func Equal(left, right any) bool {
	return newDiffer().equal(left, right)
}

func (d *differ) emit(path string, left, right any, kind Kind) {
	d.diffs = append(d.diffs, Difference{Path: path, Left: left, Right: right, Kind: kind})
}

func (d *differ) walk(left, right any, path string) {
	lk, rk := kindOf(left), kindOf(right)
	if lk != rk {
		d.emit(path, left, right, TypeMismatch)
		return
	}

	switch lk {
	case kindObject:
		lm, rm := left.(map[string]any), right.(map[string]any)
		for _, key := range sortedKeys(lm) {
			child := joinKey(path, key)
			rv, ok := rm[key]
			if !ok {
				d.emit(child, lm[key], nil, MissingOnRight)
				continue
			}
			d.walk(lm[key], rv, child)
		}
		for _, key := range sortedKeys(rm) {
			if _, ok := lm[key]; !ok {
				d.emit(joinKey(path, key), nil, rm[key], MissingOnLeft)
			}
		}

	case kindArray:
		la, ra := left.([]any), right.([]any)
		if len(la) != len(ra) {
			d.emit(path, la, ra, ArrayLengthMismatch)
		}
		n := min(len(la), len(ra))
		for i := 0; i < n; i++ {
			d.walk(la[i], ra[i], joinIndex(path, i))
		}

	default:
		if !d.scalarEqual(lk, left, right) {
			d.emit(path, left, right, ValueMismatch)
		}
	}
}

func (d *differ) equal(left, right any) bool {
	lk, rk := kindOf(left), kindOf(right)
	if lk != rk {
		return false
	}

	switch lk {
	case kindObject:
		lm, rm := left.(map[string]any), right.(map[string]any)
		if len(lm) != len(rm) {
			return false
		}
		for key, lv := range lm {
			rv, ok := rm[key]
			if !ok || !d.equal(lv, rv) {
				return false
			}
		}
		return true

	case kindArray:
		la, ra := left.([]any), right.([]any)
		if len(la) != len(ra) {
			return false
		}
		for i := range la {
			if !d.equal(la[i], ra[i]) {
				return false
			}
		}
		return true

	default:
		return d.scalarEqual(lk, left, right)
	}
}

func (d *differ) scalarEqual(k valueKind, left, right any) bool {
	switch k {
	case kindNull:
		return true
	case kindBool:
		return left.(bool) == right.(bool)
	case kindString:
		return d.lower.String(left.(string)) == d.lower.String(right.(string))
	case kindNumber:
		return numbersEqual(left, right)
	default:
		return false
	}
}

// numbersEqual compares numbers as exact decimals, so 1 and 1.0 are equal
// and integers beyond float64 precision stay distinct. Literals that do not
// parse as decimals compare by text.
func numbersEqual(left, right any) bool {
	ls, rs := numberLiteral(left), numberLiteral(right)
	if ls == rs {
		return true
	}
	ld, _, lerr := apd.NewFromString(ls)
	rd, _, rerr := apd.NewFromString(rs)
	if lerr != nil || rerr != nil {
		return false
	}
	return ld.Cmp(rd) == 0
}

func numberLiteral(v any) string {
	switch n := v.(type) {
	case json.Number:
		return n.String()
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'g', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	default:
		return ""
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func joinIndex(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
