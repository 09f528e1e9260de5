package record

import (
	"bufio"
	"io"
	"os"

	"github.com/tabforge/tabforge/pkg/errors"
)

// Writer emits byte records to a destination, joining fields with the
// delimiter and terminating each record with '\n'. Output is buffered;
// callers must Flush (or Close) on every exit path, including error paths,
// so no trailing bytes are lost.
type Writer struct {
	w     *bufio.Writer
	file  *os.File // non-nil when the writer owns the file
	delim byte
	count uint64
}

// NewWriter wraps an io.Writer.
func NewWriter(w io.Writer, delimiter byte) *Writer {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	return &Writer{
		w:     bufio.NewWriterSize(w, 64*1024),
		delim: delimiter,
	}
}

// Create opens a path-backed destination, truncating any existing file.
// The caller must Close the writer.
func Create(path string, delimiter byte) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create destination")
	}
	w := NewWriter(f, delimiter)
	w.file = f
	return w, nil
}

// Write emits one record.
func (w *Writer) Write(rec Record) error {
	for i, f := range rec {
		if i > 0 {
			if err := w.w.WriteByte(w.delim); err != nil {
				return errors.Wrap(err, errors.ErrorTypeIO, "failed to write record")
			}
		}
		if _, err := w.w.Write(f); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write record")
		}
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write record")
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() uint64 {
	return w.count
}

// Flush commits buffered bytes to the destination.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to flush destination")
	}
	return nil
}

// Close flushes and, for path-backed writers, closes the file.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.file != nil {
		if closeErr := w.file.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, errors.ErrorTypeIO, "failed to close destination")
		}
		w.file = nil
	}
	return err
}
