// Package compare provides the total-order comparators shared by every
// order-sensitive tabforge operator. A Comparator orders two equal-length
// sequences of selected fields; the three modes are byte-lexicographic,
// numeric-aware, and case-folded. Keeping the mode dispatch here, behind a
// single closed type, prevents the per-operator branching from drifting
// apart.
package compare

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tabforge/tabforge/pkg/errors"
)

// Mode selects a comparison strategy.
type Mode int

const (
	// Lexicographic compares fields byte by byte.
	Lexicographic Mode = iota
	// Numeric parses each field pair as numbers, falling back to byte
	// comparison for fields that do not parse. Mixed columns degrade
	// field by field, not row by row.
	Numeric
	// CaseFolded lowercases each field's decoded text before comparison.
	// Fields that do not decode as UTF-8 sort strictly least.
	CaseFolded
)

// String returns the flag-facing name of the mode.
func (m Mode) String() string {
	switch m {
	case Lexicographic:
		return "lexicographic"
	case Numeric:
		return "numeric"
	case CaseFolded:
		return "case-folded"
	default:
		return "unknown"
	}
}

// ParseMode maps a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "lexicographic", "lex":
		return Lexicographic, nil
	case "numeric":
		return Numeric, nil
	case "case-folded", "ignore-case":
		return CaseFolded, nil
	default:
		return Lexicographic, errors.Newf(errors.ErrorTypeConfig, "unknown comparator mode %q", s)
	}
}

// Comparator is a total order over field sequences of equal selection
// width. Fields may be nil (absent); nil sorts before any present field.
type Comparator struct {
	mode Mode
}

// New returns a comparator for the given mode.
func New(mode Mode) Comparator {
	return Comparator{mode: mode}
}

// Mode returns the comparator's mode.
func (c Comparator) Mode() Mode {
	return c.mode
}

// Compare returns -1, 0, or +1 ordering a before/equal/after b. Sequences
// are compared field by field in selection order; the first unequal field
// decides. A shorter sequence that is a prefix of the longer one sorts
// first; two sequences exhausted together are equal.
//
// An empty selection projects zero fields from every record, so all records
// compare equal; callers reject that configuration upstream.
func (c Comparator) Compare(a, b [][]byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if r := c.compareField(a[i], b[i]); r != 0 {
			return r
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func (c Comparator) compareField(a, b []byte) int {
	switch c.mode {
	case Numeric:
		return compareNumeric(a, b)
	case CaseFolded:
		return compareFolded(a, b)
	default:
		return compareBytes(a, b)
	}
}

func compareBytes(a, b []byte) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return bytes.Compare(a, b)
	}
}

// compareNumeric orders a field pair numerically when both sides parse,
// falling back to byte order for that field otherwise. NaN parses but has
// no place in a total order, so it falls back to byte order as well.
func compareNumeric(a, b []byte) int {
	if a == nil || b == nil {
		return compareBytes(a, b)
	}
	fa, errA := strconv.ParseFloat(string(a), 64)
	fb, errB := strconv.ParseFloat(string(b), 64)
	if errA != nil || errB != nil || math.IsNaN(fa) || math.IsNaN(fb) {
		return compareBytes(a, b)
	}
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

// compareFolded orders a field pair by lowercased text. Absent fields and
// invalid UTF-8 sort strictly least, with absent below invalid.
func compareFolded(a, b []byte) int {
	ka, okA := foldKey(a)
	kb, okB := foldKey(b)
	switch {
	case !okA && !okB:
		return compareBytes(a, b)
	case !okA:
		return -1
	case !okB:
		return 1
	default:
		return strings.Compare(ka, kb)
	}
}

func foldKey(f []byte) (string, bool) {
	if f == nil || !utf8.Valid(f) {
		return "", false
	}
	return strings.ToLower(string(f)), true
}
