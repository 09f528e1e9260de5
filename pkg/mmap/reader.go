// Package mmap provides scoped read-only memory-mapped views over source
// files. A view is valid from Open until Close; callers defer Close so the
// mapping is released on every exit path. The backing file must not be
// truncated or moved while the view is open.
package mmap

import (
	"os"

	"github.com/tabforge/tabforge/pkg/errors"
)

// Reader is a read-only memory-mapped view of a file.
type Reader struct {
	file *os.File
	data []byte
	size int64
}

// Open maps the file at path read-only. Empty files map to a zero-length
// view. The kernel is advised of sequential access, which suits the
// multipass scan pattern the transpose engine uses.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open file for mapping")
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to stat file for mapping")
	}

	size := stat.Size()
	if size == 0 {
		return &Reader{file: file, data: nil, size: 0}, nil
	}

	data, err := mmap(int(file.Fd()), 0, int(size), protRead, mapShared)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to mmap file")
	}

	// Advisory only; failure does not invalidate the mapping.
	_ = madvise(data, madvSequential)

	return &Reader{
		file: file,
		data: data,
		size: size,
	}, nil
}

// Bytes returns the mapped view. The slice is valid only until Close.
func (r *Reader) Bytes() []byte {
	return r.data
}

// Len returns the size of the mapped file in bytes.
func (r *Reader) Len() int64 {
	return r.size
}

// Close unmaps the view and closes the backing file. Safe to call more than
// once.
func (r *Reader) Close() error {
	var err error

	if r.data != nil {
		err = munmap(r.data)
		r.data = nil
	}

	if r.file != nil {
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		r.file = nil
	}

	return err
}
