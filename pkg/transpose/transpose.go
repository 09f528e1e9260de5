// Package transpose exchanges the rows and columns of a byte-record
// stream. It operates on the raw physical record stream: a header record,
// when the source has one, is transposed like any other row.
//
// Two strategies produce byte-identical output. The in-memory strategy
// loads every record once and emits columns from the held rows. The
// multipass strategy bounds working memory to O(1) records by rescanning
// the source once per output row through a read-only memory-mapped view;
// it is correct only because the source is immutable for the operator's
// duration, and it requires a real file path. Strategy selection is a
// decision value from the memory policy gate, never a hidden retry.
package transpose

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/tabforge/tabforge/pkg/errors"
	"github.com/tabforge/tabforge/pkg/logger"
	"github.com/tabforge/tabforge/pkg/mmap"
	"github.com/tabforge/tabforge/pkg/record"
	"github.com/tabforge/tabforge/pkg/sysmem"
)

// Strategy selects the execution path.
type Strategy int

const (
	// Auto lets the memory policy gate choose: in-memory when the input
	// fits, multipass otherwise.
	Auto Strategy = iota
	// InMemory always materializes the input.
	InMemory
	// Multipass always rescans via a memory-mapped view.
	Multipass
)

// Config carries the operator parameters.
type Config struct {
	Strategy Strategy
	// Factor and ForceCheck feed the memory policy gate under Auto.
	Factor     float64
	ForceCheck bool
}

// Run transposes the stream from r into w. Field [i][j] of the output is
// field [j][i] of the input; rows shorter than the widest row contribute
// empty fields.
func Run(r *record.Reader, w *record.Writer, cfg Config) error {
	strategy, err := choose(r, cfg)
	if err != nil {
		return err
	}

	switch strategy {
	case Multipass:
		return runMultipass(r.Path(), r.Options().Delimiter, w)
	default:
		return runInMemory(r, w)
	}
}

// choose resolves Auto into a concrete strategy via the memory gate.
func choose(r *record.Reader, cfg Config) (Strategy, error) {
	switch cfg.Strategy {
	case InMemory:
		return InMemory, nil
	case Multipass:
		if r.Path() == "" {
			return 0, errors.New(errors.ErrorTypeConfig,
				"multipass transpose requires a file source, not a stream")
		}
		return Multipass, nil
	}

	path := r.Path()
	if path == "" {
		// Streams cannot be memory mapped; materialize.
		return InMemory, nil
	}
	stat, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeIO, "failed to stat source")
	}
	if err := sysmem.Decide(stat.Size(), cfg.Factor, cfg.ForceCheck); err != nil {
		if errors.IsType(err, errors.ErrorTypeResource) {
			logger.Get().Info("input too large to materialize, using multipass transpose",
				zap.String("source", path),
				zap.Int64("file_size", stat.Size()))
			return Multipass, nil
		}
		return 0, err
	}
	return InMemory, nil
}

func runInMemory(r *record.Reader, w *record.Writer) error {
	var rows []record.Record
	width := 0

	// The header, when the reader carries one, is transposed like any
	// other row; both strategies see the full physical stream.
	header, err := r.Header()
	if err != nil {
		return err
	}
	if header != nil {
		rows = append(rows, header)
		width = len(header)
	}

	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(rec) > width {
			width = len(rec)
		}
		rows = append(rows, rec)
	}

	out := make(record.Record, len(rows))
	for col := 0; col < width; col++ {
		for i, row := range rows {
			if col < len(row) {
				out[i] = row[col]
			} else {
				out[i] = nil
			}
		}
		if err := w.Write(out); err != nil {
			return err
		}
	}
	return nil
}

// runMultipass scans the mapped source once to learn the column count,
// then once more per output row, extracting a single column each pass.
func runMultipass(path string, delimiter byte, w *record.Writer) error {
	if delimiter == 0 {
		delimiter = record.DefaultDelimiter
	}

	view, err := mmap.Open(path)
	if err != nil {
		return err
	}
	defer view.Close()

	data := view.Bytes()

	rows, width := shape(data, delimiter)
	logger.Get().Debug("multipass transpose",
		zap.String("source", path),
		zap.Int("rows", rows),
		zap.Int("columns", width))

	out := make(record.Record, rows)
	for col := 0; col < width; col++ {
		i := 0
		scanLines(data, func(line []byte) {
			out[i] = fieldAt(line, delimiter, col)
			i++
		})
		if err := w.Write(out); err != nil {
			return err
		}
	}
	return nil
}

// shape returns the row count and maximum field count of the mapped data.
func shape(data []byte, delimiter byte) (rows, width int) {
	scanLines(data, func(line []byte) {
		rows++
		n := 1
		for _, b := range line {
			if b == delimiter {
				n++
			}
		}
		if n > width {
			width = n
		}
	})
	return rows, width
}

// scanLines invokes fn for every record in data, with the line terminator
// stripped. A trailing newline does not produce an empty final record.
func scanLines(data []byte, fn func(line []byte)) {
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			fn(record.TrimTerminator(data[start : i+1]))
			start = i + 1
		}
	}
	if start < len(data) {
		fn(record.TrimTerminator(data[start:]))
	}
}

// fieldAt returns the col-th field of line, or nil when the line is too
// narrow. The returned slice is a view into line.
func fieldAt(line []byte, delimiter byte, col int) []byte {
	start := 0
	n := 0
	for i := 0; i <= len(line); i++ {
		if i == len(line) || line[i] == delimiter {
			if n == col {
				return line[start:i]
			}
			n++
			start = i + 1
		}
	}
	return nil
}
