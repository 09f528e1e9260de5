// Package tabforge provides streaming operators for delimited tabular data:
// deduplication, sort verification, transposition, record slicing, and a
// parallel block compression codec, all designed to handle files larger than
// available memory.
//
// # Architecture
//
// Every operator works on a common byte-oriented record model (pkg/record)
// and reports failures through a shared structured error taxonomy
// (pkg/errors). Operators that can materialize their input consult a memory
// policy gate (pkg/sysmem) before doing so and fall back to streaming or
// multipass strategies when the gate refuses.
//
// # Key Packages
//
//	pkg/record    - Byte-level record model, delimited reader and writer
//	pkg/compare   - Lexicographic, numeric, and case-folded comparators
//	pkg/index     - Random-access side-car index for record seeking
//	pkg/dedup     - Sorted streaming and unsorted parallel deduplication
//	pkg/sortcheck - Sortedness verification with break reporting
//	pkg/transpose - Row/column transposition, in-memory and mmap multipass
//	pkg/slice     - Positional record extraction with index acceleration
//	pkg/codec     - Parallel block compression container
//	pkg/sysmem    - Memory policy gate for in-memory strategies
//
// # Quick Start
//
// Deduplicate a sorted CSV file:
//
//	r, _ := record.Open("input.csv", record.Options{HasHeader: true})
//	defer r.Close()
//	w, _ := record.Create("output.csv", record.DefaultDelimiter)
//	defer w.Close()
//
//	res, err := dedup.Run(r, w, dedup.Config{
//	    Comparator: compare.New(compare.Lexicographic),
//	    Sorted:     true,
//	})
//
// The tabforge command under cmd/tabforge exposes every operator on the
// command line.
package tabforge
