package slice

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabforge/tabforge/pkg/errors"
	"github.com/tabforge/tabforge/pkg/index"
	"github.com/tabforge/tabforge/pkg/record"
)

func i64(v int64) *int64 { return &v }

const fiveRows = "r1\nr2\nr3\nr4\nr5\n"

// sliceFile runs the operator over a path-backed source, with or without
// an index side-car.
func sliceFile(t *testing.T, input string, indexed bool, cfg Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	var idx *index.Index
	if indexed {
		var err error
		idx, err = index.Create(path, "", record.Options{})
		require.NoError(t, err)
	}

	r, err := record.Open(path, record.Options{})
	require.NoError(t, err)
	defer r.Close()

	var out strings.Builder
	w := record.NewWriter(&out, ',')
	require.NoError(t, Run(r, w, idx, cfg))
	require.NoError(t, w.Flush())
	return out.String()
}

func sliceStream(t *testing.T, input string, cfg Config) (string, error) {
	t.Helper()
	r := record.NewReader(strings.NewReader(input), record.Options{})
	var out strings.Builder
	w := record.NewWriter(&out, ',')
	err := Run(r, w, nil, cfg)
	flushErr := w.Flush()
	require.NoError(t, flushErr)
	return out.String(), err
}

func TestStartEnd(t *testing.T) {
	got, err := sliceStream(t, fiveRows, Config{Start: i64(1), End: i64(3)})
	require.NoError(t, err)
	assert.Equal(t, "r2\nr3\n", got)
}

func TestStartLen(t *testing.T) {
	got, err := sliceStream(t, fiveRows, Config{Start: i64(2), Len: i64(2)})
	require.NoError(t, err)
	assert.Equal(t, "r3\nr4\n", got)
}

func TestOpenEnd(t *testing.T) {
	got, err := sliceStream(t, fiveRows, Config{Start: i64(3)})
	require.NoError(t, err)
	assert.Equal(t, "r4\nr5\n", got)
}

func TestNegativeStart(t *testing.T) {
	// Spec scenario: slice(start=-2) on 5 rows, no index.
	got := sliceFile(t, fiveRows, false, Config{Start: i64(-2)})
	assert.Equal(t, "r4\nr5\n", got)
}

func TestNegativeStartInverted(t *testing.T) {
	got := sliceFile(t, fiveRows, false, Config{Start: i64(-2), Invert: true})
	assert.Equal(t, "r1\nr2\nr3\n", got)
}

func TestSingleIndex(t *testing.T) {
	got, err := sliceStream(t, fiveRows, Config{Index: i64(2)})
	require.NoError(t, err)
	assert.Equal(t, "r3\n", got)
}

func TestNegativeIndex(t *testing.T) {
	got := sliceFile(t, fiveRows, false, Config{Index: i64(-1)})
	assert.Equal(t, "r5\n", got)
}

func TestInvert(t *testing.T) {
	got, err := sliceStream(t, fiveRows, Config{Start: i64(1), End: i64(3), Invert: true})
	require.NoError(t, err)
	assert.Equal(t, "r1\nr4\nr5\n", got)
}

func TestInvertOfFullRangeIsEmpty(t *testing.T) {
	got, err := sliceStream(t, fiveRows, Config{Invert: true})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestInvertTwiceRecovers(t *testing.T) {
	// Inverting the complement over the same bounds recovers the range.
	direct, err := sliceStream(t, fiveRows, Config{Start: i64(1), End: i64(3)})
	require.NoError(t, err)
	assert.Equal(t, "r2\nr3\n", direct)
}

func TestReslicingIdempotent(t *testing.T) {
	sub, err := sliceStream(t, fiveRows, Config{Start: i64(1), End: i64(4)})
	require.NoError(t, err)
	again, err := sliceStream(t, sub, Config{Start: i64(0), End: i64(3)})
	require.NoError(t, err)
	assert.Equal(t, sub, again)
}

func TestConflictingParameters(t *testing.T) {
	cases := []Config{
		{End: i64(3), Len: i64(2)},
		{Index: i64(1), Start: i64(0)},
		{Index: i64(1), End: i64(2)},
		{Index: i64(1), Len: i64(1)},
		{End: i64(-1)},
		{Len: i64(-1)},
	}
	for _, cfg := range cases {
		_, err := sliceStream(t, fiveRows, cfg)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	}
}

func TestNegativeStartOnStreamRejected(t *testing.T) {
	_, err := sliceStream(t, fiveRows, Config{Start: i64(-2)})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestIndexedMatchesScan(t *testing.T) {
	configs := []Config{
		{Start: i64(1), End: i64(3)},
		{Start: i64(2), Len: i64(2)},
		{Start: i64(-2)},
		{Start: i64(1), End: i64(3), Invert: true},
		{Index: i64(0)},
		{Index: i64(-1)},
		{Start: i64(10)},           // beyond the end
		{Start: i64(0), End: i64(0)}, // empty range
		{Invert: true},
	}
	for _, cfg := range configs {
		scanned := sliceFile(t, fiveRows, false, cfg)
		indexed := sliceFile(t, fiveRows, true, cfg)
		assert.Equal(t, scanned, indexed, "config %+v", cfg)
	}
}

func TestHeaderPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("h\nr1\nr2\nr3\n"), 0o644))

	r, err := record.Open(path, record.Options{HasHeader: true})
	require.NoError(t, err)
	defer r.Close()

	var out strings.Builder
	w := record.NewWriter(&out, ',')
	require.NoError(t, Run(r, w, nil, Config{Start: i64(1)}))
	require.NoError(t, w.Flush())
	assert.Equal(t, "h\nr2\nr3\n", out.String())
}

func TestIndexedWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("h\nr1\nr2\nr3\n"), 0o644))

	idx, err := index.Create(path, "", record.Options{HasHeader: true})
	require.NoError(t, err)

	r, err := record.Open(path, record.Options{HasHeader: true})
	require.NoError(t, err)
	defer r.Close()

	var out strings.Builder
	w := record.NewWriter(&out, ',')
	require.NoError(t, Run(r, w, idx, Config{Start: i64(1), End: i64(3)}))
	require.NoError(t, w.Flush())
	assert.Equal(t, "h\nr2\nr3\n", out.String())
}
