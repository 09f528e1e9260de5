// Package dedup implements duplicate elimination over byte-record streams.
//
// Two execution modes share one set of emit semantics. Sorted mode assumes
// the input is already ordered under the chosen comparator and streams with
// a one-record lookahead, never holding more than two records; it fails on
// the first order violation. Unsorted mode materializes the input (gated by
// the memory policy), stable-sorts it in parallel, then performs the same
// adjacent-pair pass.
//
// Unsorted mode emits records in sorted order, not input order. This is
// deliberate: the duplicate count is defined over adjacent equality after
// the sort, and callers are documented to expect sorted output from it.
// Sorted mode preserves input order.
package dedup

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/tabforge/tabforge/pkg/compare"
	"github.com/tabforge/tabforge/pkg/errors"
	"github.com/tabforge/tabforge/pkg/logger"
	"github.com/tabforge/tabforge/pkg/record"
	"github.com/tabforge/tabforge/pkg/sysmem"
)

// Config carries the operator parameters.
type Config struct {
	// Selection names the fields compared for equality.
	Selection *record.Selection
	// Comparator orders selected field sequences.
	Comparator compare.Comparator
	// Sorted selects the streaming mode that assumes pre-sorted input.
	Sorted bool
	// Factor and ForceCheck feed the memory policy gate in unsorted mode.
	Factor     float64
	ForceCheck bool
	// Jobs bounds the worker pool for the unsorted-mode sort. Zero means
	// one worker per CPU.
	Jobs int
	// DupSink optionally receives every discarded duplicate record.
	DupSink *record.Writer
}

// Result reports the outcome of a run.
type Result struct {
	// Emitted is the number of records written to the primary sink.
	Emitted uint64
	// Duplicates is the number of records discarded as adjacent-equal.
	Duplicates uint64
}

// Run eliminates duplicates from r into w. Emitted plus Duplicates always
// equals the input record count; the final record is never dropped.
func Run(r *record.Reader, w *record.Writer, cfg Config) (Result, error) {
	if cfg.Selection == nil {
		cfg.Selection = &record.Selection{}
	}

	header, err := r.Header()
	if err != nil {
		return Result{}, err
	}

	first, err := r.Next()
	if err == io.EOF {
		// Nothing to deduplicate; still emit the header.
		if header != nil {
			if err := w.Write(header); err != nil {
				return Result{}, err
			}
		}
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	width := len(first)
	if header != nil {
		width = len(header)
	}
	if err := cfg.Selection.Resolve(header, width); err != nil {
		return Result{}, err
	}

	if header != nil {
		if err := w.Write(header); err != nil {
			return Result{}, err
		}
	}
	if cfg.DupSink != nil && header != nil {
		if err := cfg.DupSink.Write(header); err != nil {
			return Result{}, err
		}
	}

	if cfg.Sorted {
		return runSorted(r, w, first, cfg)
	}
	return runUnsorted(r, w, first, cfg)
}

// runSorted streams with one record of lookahead. Equal keeps the
// earlier-held record; Less emits and advances; Greater is an order
// violation carrying both offending records for diagnosis.
func runSorted(r *record.Reader, w *record.Writer, first record.Record, cfg Config) (Result, error) {
	var res Result
	cur := first
	curKey := cfg.Selection.Project(cur)

	for {
		next, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}

		nextKey := cfg.Selection.Project(next)
		switch c := cfg.Comparator.Compare(curKey, nextKey); {
		case c == 0:
			res.Duplicates++
			if cfg.DupSink != nil {
				if err := cfg.DupSink.Write(next); err != nil {
					return res, err
				}
			}
		case c < 0:
			if err := w.Write(cur); err != nil {
				return res, err
			}
			res.Emitted++
			cur, curKey = next, nextKey
		default:
			return res, orderViolation(cur, next, cfg)
		}
	}

	if err := w.Write(cur); err != nil {
		return res, err
	}
	res.Emitted++
	return res, nil
}

// runUnsorted materializes, sorts stably in parallel, then runs the same
// adjacent-pair pass. Greater cannot occur post-sort.
func runUnsorted(r *record.Reader, w *record.Writer, first record.Record, cfg Config) (Result, error) {
	if err := gate(r, cfg); err != nil {
		return Result{}, err
	}

	recs := []record.Record{first}
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, err
		}
		recs = append(recs, rec)
	}

	logger.Get().Debug("materialized input for unsorted dedup",
		zap.Int("records", len(recs)),
		zap.Int("jobs", cfg.Jobs))

	sortRecords(recs, cfg.Selection, cfg.Comparator, cfg.Jobs)

	var res Result
	cur := recs[0]
	curKey := cfg.Selection.Project(cur)
	for _, next := range recs[1:] {
		nextKey := cfg.Selection.Project(next)
		if cfg.Comparator.Compare(curKey, nextKey) == 0 {
			res.Duplicates++
			if cfg.DupSink != nil {
				if err := cfg.DupSink.Write(next); err != nil {
					return res, err
				}
			}
			continue
		}
		if err := w.Write(cur); err != nil {
			return res, err
		}
		res.Emitted++
		cur, curKey = next, nextKey
	}

	if err := w.Write(cur); err != nil {
		return res, err
	}
	res.Emitted++
	return res, nil
}

// gate runs the memory policy for path-backed sources. Stream-backed
// sources have no knowable size, so the gate does not apply.
func gate(r *record.Reader, cfg Config) error {
	path := r.Path()
	if path == "" || !cfg.ForceCheck {
		return nil
	}
	stat, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to stat source")
	}
	return sysmem.Decide(stat.Size(), cfg.Factor, cfg.ForceCheck)
}

func orderViolation(cur, next record.Record, cfg Config) error {
	return errors.New(errors.ErrorTypeOrder,
		"input not sorted under the active comparator; sorted mode requires pre-sorted input").
		WithDetail("earlier_record", recordString(cur)).
		WithDetail("later_record", recordString(next)).
		WithDetail("comparator", cfg.Comparator.Mode().String()).
		WithDetail("selection", cfg.Selection.Spec())
}

func recordString(rec record.Record) string {
	out := make([]byte, 0, rec.Size())
	for i, f := range rec {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, f...)
	}
	return string(out)
}
