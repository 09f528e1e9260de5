package record

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/tabforge/tabforge/pkg/errors"
)

// DefaultDelimiter is the field delimiter assumed when none is configured.
const DefaultDelimiter = ','

// Options configures how a source is split into records and fields.
type Options struct {
	// Delimiter is the single-byte field separator. Zero means
	// DefaultDelimiter.
	Delimiter byte
	// HasHeader indicates the first record names the fields and is not a
	// data record.
	HasHeader bool
}

func (o Options) delimiter() byte {
	if o.Delimiter == 0 {
		return DefaultDelimiter
	}
	return o.Delimiter
}

// Reader streams byte records from a delimited source. Records are
// terminated by '\n' (a trailing '\r' is stripped); fields are split on the
// configured delimiter. The reader tracks byte offsets so the indexer can
// map record numbers to positions in the source.
type Reader struct {
	r       *bufio.Reader
	file    *os.File // non-nil when the reader owns the file
	opts    Options
	header  Record
	offset  int64 // offset at which the next unread record begins
	count   uint64
	started bool
}

// NewReader wraps an io.Reader. Use Open for path-backed sources.
func NewReader(r io.Reader, opts Options) *Reader {
	return &Reader{
		r:    bufio.NewReaderSize(r, 64*1024),
		opts: opts,
	}
}

// Open opens a path-backed source. The caller must Close the reader.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open source")
	}
	r := NewReader(f, opts)
	r.file = f
	return r, nil
}

// Header returns the header record, reading it from the source on first
// use. It returns nil when the source is headerless.
func (r *Reader) Header() (Record, error) {
	if !r.opts.HasHeader {
		return nil, nil
	}
	if err := r.start(); err != nil {
		return nil, err
	}
	return r.header, nil
}

// start consumes the header record if one is configured.
func (r *Reader) start() error {
	if r.started {
		return nil
	}
	r.started = true
	if !r.opts.HasHeader {
		return nil
	}
	rec, err := r.readRecord()
	if err == io.EOF {
		// Empty source: no header, no records.
		return nil
	}
	if err != nil {
		return err
	}
	r.header = rec.Clone()
	return nil
}

// Next returns the next data record, or io.EOF at end of input. The
// returned record's field slices are owned by the caller.
func (r *Reader) Next() (Record, error) {
	if err := r.start(); err != nil {
		return nil, err
	}
	rec, err := r.readRecord()
	if err != nil {
		return nil, err
	}
	r.count++
	return rec, nil
}

// readRecord reads one physical record and advances the offset.
func (r *Reader) readRecord() (Record, error) {
	line, err := r.r.ReadBytes('\n')
	if len(line) == 0 {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read record")
		}
	}
	r.offset += int64(len(line))
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read record")
	}

	return SplitLine(line, r.opts.delimiter()), nil
}

// SplitLine splits a raw line into a record on the delimiter, stripping the
// trailing line terminator. The field slices are copies, not views into
// line.
func SplitLine(line []byte, delimiter byte) Record {
	line = TrimTerminator(line)

	n := bytes.Count(line, []byte{delimiter}) + 1
	rec := make(Record, 0, n)
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] == delimiter {
			rec = append(rec, append([]byte(nil), line[start:i]...))
			start = i + 1
		}
	}
	rec = append(rec, append([]byte(nil), line[start:]...))
	return rec
}

// TrimTerminator strips one trailing '\n' and an optional preceding '\r'.
func TrimTerminator(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line
}

// Offset returns the byte offset at which the next unread physical record
// begins. Calling it before the first Next (and before Header) yields 0,
// the offset of the header when one is present.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Count returns the number of data records returned so far.
func (r *Reader) Count() uint64 {
	return r.count
}

// Options returns the reader's configuration.
func (r *Reader) Options() Options {
	return r.opts
}

// Path returns the backing file path, or "" for stream-backed readers.
// Operators that require random access or file size reject stream-backed
// sources.
func (r *Reader) Path() string {
	if r.file == nil {
		return ""
	}
	return r.file.Name()
}

// Close releases the backing file for path-backed readers. It is a no-op
// for stream-backed readers.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
