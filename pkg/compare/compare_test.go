package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestLexicographic(t *testing.T) {
	cmp := New(Lexicographic)

	tests := []struct {
		name string
		a, b [][]byte
		want int
	}{
		{"equal", fields("a", "b"), fields("a", "b"), 0},
		{"less", fields("a"), fields("b"), -1},
		{"greater", fields("b"), fields("a"), 1},
		{"first unequal field decides", fields("a", "z"), fields("a", "a"), 1},
		{"prefix sorts first", fields("a"), fields("a", "b"), -1},
		{"empty fields equal", fields("", ""), fields("", ""), 0},
		{"both empty sequences", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cmp.Compare(tt.a, tt.b))
		})
	}
}

func TestLexicographicNilField(t *testing.T) {
	cmp := New(Lexicographic)

	// Absent (nil) fields sort before any present field, including empty.
	assert.Equal(t, -1, cmp.Compare([][]byte{nil}, fields("")))
	assert.Equal(t, 1, cmp.Compare(fields(""), [][]byte{nil}))
	assert.Equal(t, 0, cmp.Compare([][]byte{nil}, [][]byte{nil}))
}

func TestNumeric(t *testing.T) {
	cmp := New(Numeric)

	tests := []struct {
		name string
		a, b [][]byte
		want int
	}{
		{"integers", fields("9"), fields("10"), -1},
		{"floats", fields("2.5"), fields("2.50"), 0},
		{"negative", fields("-3"), fields("2"), -1},
		{"fallback both unparsable", fields("abc"), fields("abd"), -1},
		{"fallback one side unparsable", fields("abc"), fields("9"), 1},
		{"mixed columns degrade per field", fields("1", "zzz"), fields("1", "aaa"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cmp.Compare(tt.a, tt.b))
		})
	}
}

func TestNumericNaN(t *testing.T) {
	cmp := New(Numeric)

	// NaN parses but admits no numeric order; such fields fall back to
	// byte order so the comparator stays a total order.
	assert.Equal(t, 0, cmp.Compare(fields("NaN"), fields("NaN")))
	assert.Equal(t, 1, cmp.Compare(fields("NaN"), fields("5")))
	assert.Equal(t, -1, cmp.Compare(fields("5"), fields("NaN")))
	assert.Equal(t, -1, cmp.Compare(fields("NaN"), fields("nan")))
}

func TestCaseFolded(t *testing.T) {
	cmp := New(CaseFolded)

	assert.Equal(t, 0, cmp.Compare(fields("ABC"), fields("abc")))
	assert.Equal(t, -1, cmp.Compare(fields("Apple"), fields("banana")))
	assert.Equal(t, 1, cmp.Compare(fields("zoo"), fields("APPLE")))
}

func TestCaseFoldedInvalidUTF8(t *testing.T) {
	cmp := New(CaseFolded)
	invalid := [][]byte{{0xff, 0xfe}}

	// Undecodable bytes sort strictly least.
	assert.Equal(t, -1, cmp.Compare(invalid, fields("a")))
	assert.Equal(t, 1, cmp.Compare(fields("a"), invalid))
	assert.Equal(t, 0, cmp.Compare(invalid, invalid))
}

func TestEmptySelectionComparesEqual(t *testing.T) {
	// An empty selection projects no fields, so every pair is equal.
	for _, mode := range []Mode{Lexicographic, Numeric, CaseFolded} {
		cmp := New(mode)
		assert.Equal(t, 0, cmp.Compare(nil, nil), mode.String())
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("numeric")
	require.NoError(t, err)
	assert.Equal(t, Numeric, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Lexicographic, m)

	_, err = ParseMode("bogus")
	require.Error(t, err)
}
