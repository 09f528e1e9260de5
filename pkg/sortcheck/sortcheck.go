// Package sortcheck verifies whether a byte-record stream is globally
// ordered under a chosen comparator and selection. It streams adjacent-pair
// comparisons, so memory use is two records regardless of input size.
//
// By default the verifier stops at the first order break and reports the
// partial scan. The exhaustive switch makes it scan to the end, counting
// every break and duplicate; that trade of early-exit speed for complete
// counts is a caller decision, never auto-detected.
package sortcheck

import (
	"io"

	"github.com/tabforge/tabforge/pkg/compare"
	"github.com/tabforge/tabforge/pkg/record"
)

// Config carries the operator parameters.
type Config struct {
	// Selection names the fields the order is defined over.
	Selection *record.Selection
	// Comparator orders selected field sequences.
	Comparator compare.Comparator
	// Exhaustive scans past every break instead of stopping at the first.
	Exhaustive bool
}

// Break records one adjacent pair that violates the order.
type Break struct {
	// Position is the 0-based position of the later record of the pair.
	Position uint64
	Earlier  record.Record
	Later    record.Record
}

// Report is the verifier's result.
type Report struct {
	// Sorted is true when no break was observed.
	Sorted bool
	// Records is the number of records scanned. For a non-exhaustive run
	// that found a break this is a partial count.
	Records uint64
	// Duplicates counts adjacent-equal pairs observed during the scan.
	Duplicates uint64
	// Breaks counts order violations. At most 1 unless Exhaustive.
	Breaks uint64
	// FirstBreak describes the first violation, when any occurred.
	FirstBreak *Break
}

// Run verifies the stream from r.
func Run(r *record.Reader, cfg Config) (Report, error) {
	if cfg.Selection == nil {
		cfg.Selection = &record.Selection{}
	}

	rep := Report{Sorted: true}

	header, err := r.Header()
	if err != nil {
		return rep, err
	}

	cur, err := r.Next()
	if err == io.EOF {
		return rep, nil
	}
	if err != nil {
		return rep, err
	}
	rep.Records = 1

	width := len(cur)
	if header != nil {
		width = len(header)
	}
	if err := cfg.Selection.Resolve(header, width); err != nil {
		return rep, err
	}

	curKey := cfg.Selection.Project(cur)
	for {
		next, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rep, err
		}
		rep.Records++

		nextKey := cfg.Selection.Project(next)
		switch c := cfg.Comparator.Compare(curKey, nextKey); {
		case c == 0:
			rep.Duplicates++
		case c > 0:
			rep.Sorted = false
			rep.Breaks++
			if rep.FirstBreak == nil {
				rep.FirstBreak = &Break{
					Position: rep.Records - 1,
					Earlier:  cur,
					Later:    next,
				}
			}
			if !cfg.Exhaustive {
				return rep, nil
			}
		}
		cur, curKey = next, nextKey
	}

	return rep, nil
}
