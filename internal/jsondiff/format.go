package jsondiff

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxValueLen bounds rendered values in one-line difference output.
const maxValueLen = 100

// String renders the difference on one line, e.g.
// "at.height: left=\"5\" vs right=\"6\"".
func (d Difference) String() string {
	switch d.Kind {
	case ValueMismatch:
		return fmt.Sprintf("%s: left=%s vs right=%s", d.Path, renderValue(d.Left), renderValue(d.Right))
	case MissingOnRight:
		return fmt.Sprintf("%s: missing on right (left=%s)", d.Path, renderValue(d.Left))
	case MissingOnLeft:
		return fmt.Sprintf("%s: missing on left (right=%s)", d.Path, renderValue(d.Right))
	case ArrayLengthMismatch:
		return fmt.Sprintf("%s: array length mismatch (left=%d vs right=%d)", d.Path, arrayLen(d.Left), arrayLen(d.Right))
	case TypeMismatch:
		return fmt.Sprintf("%s: type mismatch (left=%s vs right=%s)", d.Path, TypeName(d.Left), TypeName(d.Right))
	default:
		return fmt.Sprintf("%s: unknown difference", d.Path)
	}
}

// TypeName returns the short JSON kind name of a decoded value.
func TypeName(v any) string {
	switch kindOf(v) {
	case kindNull:
		return "null"
	case kindBool:
		return "bool"
	case kindNumber:
		return "number"
	case kindString:
		return "string"
	case kindArray:
		return "array"
	case kindObject:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Summarize renders a diff list the way issue records carry it: the single
// difference inline, up to five listed, or the first ten of a longer list.
func Summarize(diffs []Difference) string {
	switch {
	case len(diffs) == 0:
		return "unknown differences"
	case len(diffs) == 1:
		return "1 difference: " + diffs[0].String()
	case len(diffs) <= 5:
		return fmt.Sprintf("%d differences:\n    - %s", len(diffs), joinDiffs(diffs))
	default:
		return fmt.Sprintf("%d differences (showing first 10):\n    - %s", len(diffs), joinDiffs(diffs[:min(10, len(diffs))]))
	}
}

func joinDiffs(diffs []Difference) string {
	lines := make([]string, len(diffs))
	for i, d := range diffs {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n    - ")
}

func renderValue(v any) string {
	var s string
	switch val := v.(type) {
	case string:
		s = `"` + val + `"`
	default:
		b, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprintf("%v", val)
		} else {
			s = string(b)
		}
	}
	return truncate(s, maxValueLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func arrayLen(v any) int {
	if a, ok := v.([]any); ok {
		return len(a)
	}
	return 0
}
