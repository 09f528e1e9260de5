package record

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/tabforge/tabforge/pkg/errors"
)

// Selection is an ordered subset of field positions used for comparison and
// extraction. It is parsed once from a spec string (field names, 0-based
// indices, or inclusive ranges like "0,2-4,city") and resolved against the
// header and observed record width before any output is produced.
type Selection struct {
	spec      string
	tokens    []selToken
	positions []int
	resolved  bool
}

type selToken struct {
	name  string
	lo    int
	hi    int
	named bool
}

// ParseSelection parses a selection spec. An empty spec selects all fields
// in natural order; operators that require an explicit non-empty selection
// reject that upstream.
func ParseSelection(spec string) (*Selection, error) {
	s := &Selection{spec: spec}
	if strings.TrimSpace(spec) == "" {
		return s, nil
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig, "empty token in selection %q", spec)
		}
		if lo, hi, ok := parseRange(part); ok {
			if hi < lo {
				return nil, errors.Newf(errors.ErrorTypeConfig,
					"inverted range %q in selection %q", part, spec)
			}
			s.tokens = append(s.tokens, selToken{lo: lo, hi: hi})
			continue
		}
		if i, err := strconv.Atoi(part); err == nil {
			if i < 0 {
				return nil, errors.Newf(errors.ErrorTypeConfig,
					"negative field index %d in selection %q", i, spec)
			}
			s.tokens = append(s.tokens, selToken{lo: i, hi: i})
			continue
		}
		s.tokens = append(s.tokens, selToken{name: part, named: true})
	}
	return s, nil
}

func parseRange(part string) (lo, hi int, ok bool) {
	dash := strings.IndexByte(part, '-')
	if dash <= 0 || dash == len(part)-1 {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(part[:dash])
	hi, err2 := strconv.Atoi(part[dash+1:])
	if err1 != nil || err2 != nil || lo < 0 || hi < 0 {
		return 0, 0, false
	}
	return lo, hi, true
}

// Resolve maps the selection onto concrete positions. Named tokens are
// looked up in the header; every position must be valid for the observed
// record width. Resolution failure is a hard error raised before any record
// is emitted.
func (s *Selection) Resolve(header Record, width int) error {
	if width <= 0 {
		return errors.New(errors.ErrorTypeConfig, "cannot resolve selection against zero-width records")
	}

	s.positions = s.positions[:0]
	if len(s.tokens) == 0 {
		for i := 0; i < width; i++ {
			s.positions = append(s.positions, i)
		}
		s.resolved = true
		return nil
	}

	for _, tok := range s.tokens {
		if tok.named {
			pos, ok := findField(header, tok.name)
			if !ok {
				return errors.Newf(errors.ErrorTypeConfig,
					"selection field %q not found in header", tok.name)
			}
			s.positions = append(s.positions, pos)
			continue
		}
		for i := tok.lo; i <= tok.hi; i++ {
			if i >= width {
				return errors.Newf(errors.ErrorTypeConfig,
					"selection index %d out of range for %d-field records", i, width)
			}
			s.positions = append(s.positions, i)
		}
	}
	s.resolved = true
	return nil
}

func findField(header Record, name string) (int, bool) {
	for i, f := range header {
		if bytes.Equal(f, []byte(name)) {
			return i, true
		}
	}
	return 0, false
}

// Positions returns the resolved field positions in selection order.
func (s *Selection) Positions() []int {
	return s.positions
}

// Resolved reports whether Resolve has run.
func (s *Selection) Resolved() bool {
	return s.resolved
}

// Spec returns the original selection spec string.
func (s *Selection) Spec() string {
	return s.spec
}

// Project extracts the selected fields from a record in selection order.
// Positions beyond the record's width project as nil fields, which
// comparators treat as absent.
func (s *Selection) Project(rec Record) [][]byte {
	out := make([][]byte, len(s.positions))
	for i, pos := range s.positions {
		if pos < len(rec) {
			out[i] = rec[pos]
		}
	}
	return out
}
