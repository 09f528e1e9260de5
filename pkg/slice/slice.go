// Package slice extracts a contiguous sub-range of records, or its
// complement, from a byte-record stream. When a random-access index
// side-car is available the slicer seeks directly to the range instead of
// scanning the records it skips; without one, the same semantics come from
// a single linear scan with position filtering.
package slice

import (
	"io"
	"os"

	"github.com/tabforge/tabforge/pkg/errors"
	"github.com/tabforge/tabforge/pkg/index"
	"github.com/tabforge/tabforge/pkg/record"
)

// Config carries the operator parameters. Start, End, Len and Index are
// pointers so "not given" is distinguishable from zero. Exactly one
// end-determining parameter may be given: End and Len conflict, and Index
// (the single-record shorthand for start+len=1) conflicts with all of
// Start, End and Len.
type Config struct {
	// Start is the first record of the range; negative counts from the
	// end of the input.
	Start *int64
	// End bounds the range exclusively.
	End *int64
	// Len bounds the range by length from Start.
	Len *int64
	// Index selects the single record at that position; negative counts
	// from the end.
	Index *int64
	// Invert emits the complement of the computed range. Inverting an
	// empty range is a no-op producing zero records, not an error.
	Invert bool
}

// bounds is the resolved half-open range [start, end); end < 0 means
// unbounded (to end of stream).
type bounds struct {
	start int64
	end   int64
}

// Run slices the stream from r into w, using idx to seek when non-nil.
// Resolving a negative Start or Index without an index side-car costs one
// extra counting pass, which stream-backed sources cannot replay.
func Run(r *record.Reader, w *record.Writer, idx *index.Index, cfg Config) error {
	if err := validate(cfg); err != nil {
		return err
	}

	header, err := r.Header()
	if err != nil {
		return err
	}
	if header != nil {
		if err := w.Write(header); err != nil {
			return err
		}
	}

	b, err := resolve(r, idx, cfg)
	if err != nil {
		return err
	}

	if idx != nil && r.Path() != "" {
		return runIndexed(r, w, idx, b, cfg.Invert)
	}
	return runScan(r, w, b, cfg.Invert)
}

// validate rejects conflicting parameter combinations before any record is
// read or written.
func validate(cfg Config) error {
	if cfg.End != nil && cfg.Len != nil {
		return errors.New(errors.ErrorTypeConfig, "end and len are mutually exclusive")
	}
	if cfg.Index != nil && (cfg.Start != nil || cfg.End != nil || cfg.Len != nil) {
		return errors.New(errors.ErrorTypeConfig, "index cannot be combined with start, end or len")
	}
	if cfg.End != nil && *cfg.End < 0 {
		return errors.New(errors.ErrorTypeConfig, "end must not be negative")
	}
	if cfg.Len != nil && *cfg.Len < 0 {
		return errors.New(errors.ErrorTypeConfig, "len must not be negative")
	}
	return nil
}

// resolve computes concrete bounds, counting the input when a negative
// position demands it.
func resolve(r *record.Reader, idx *index.Index, cfg Config) (bounds, error) {
	if cfg.Index != nil {
		pos := *cfg.Index
		if pos < 0 {
			total, err := totalCount(r, idx)
			if err != nil {
				return bounds{}, err
			}
			pos += total
			if pos < 0 {
				pos = 0
			}
		}
		return bounds{start: pos, end: pos + 1}, nil
	}

	var start int64
	if cfg.Start != nil {
		start = *cfg.Start
	}
	if start < 0 {
		total, err := totalCount(r, idx)
		if err != nil {
			return bounds{}, err
		}
		start += total
		if start < 0 {
			start = 0
		}
	}

	end := int64(-1) // unbounded
	switch {
	case cfg.End != nil:
		end = *cfg.End
	case cfg.Len != nil:
		end = start + *cfg.Len
	}
	if end >= 0 && end < start {
		end = start
	}
	return bounds{start: start, end: end}, nil
}

// totalCount learns the logical record count, from the index when present
// or by a full counting pass over a reopened source otherwise.
func totalCount(r *record.Reader, idx *index.Index) (int64, error) {
	if idx != nil {
		return int64(idx.Count()), nil
	}
	path := r.Path()
	if path == "" {
		return 0, errors.New(errors.ErrorTypeConfig,
			"negative positions require a file source or an index side-car, not a stream")
	}
	cr, err := record.Open(path, r.Options())
	if err != nil {
		return 0, err
	}
	defer cr.Close()
	if _, err := cr.Header(); err != nil {
		return 0, err
	}
	var n int64
	for {
		if _, err := cr.Next(); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return 0, err
		}
		n++
	}
}

// runScan filters the stream by position in one pass.
func runScan(r *record.Reader, w *record.Writer, b bounds, invert bool) error {
	var pos int64
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		in := pos >= b.start && (b.end < 0 || pos < b.end)
		if in != invert {
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		pos++
		// Past the range and not inverted: nothing further can match.
		if !invert && b.end >= 0 && pos >= b.end {
			return nil
		}
	}
}

// runIndexed seeks straight to the range, or around it when inverted,
// never scanning skipped records.
func runIndexed(r *record.Reader, w *record.Writer, idx *index.Index, b bounds, invert bool) error {
	count := int64(idx.Count())
	start, end := clamp(b, count)

	if !invert {
		return emitRange(r.Path(), r.Options(), idx, w, start, end)
	}
	if err := emitRange(r.Path(), r.Options(), idx, w, 0, start); err != nil {
		return err
	}
	return emitRange(r.Path(), r.Options(), idx, w, end, count)
}

func clamp(b bounds, count int64) (start, end int64) {
	start = b.start
	if start > count {
		start = count
	}
	end = b.end
	if end < 0 || end > count {
		end = count
	}
	if end < start {
		end = start
	}
	return start, end
}

// emitRange copies logical records [from, to) by seeking once and reading
// forward.
func emitRange(path string, opts record.Options, idx *index.Index, w *record.Writer, from, to int64) error {
	if from >= to {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to open source")
	}
	defer f.Close()

	if err := idx.SeekReader(f, uint64(from)); err != nil {
		return err
	}

	// Mid-file position: no header to skip.
	rr := record.NewReader(f, record.Options{Delimiter: opts.Delimiter})
	for n := from; n < to; n++ {
		rec, err := rr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
