package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabforge/tabforge/pkg/codec"
	"github.com/tabforge/tabforge/pkg/dedup"
	"github.com/tabforge/tabforge/pkg/index"
	"github.com/tabforge/tabforge/pkg/record"
	"github.com/tabforge/tabforge/pkg/slice"
	"github.com/tabforge/tabforge/pkg/sortcheck"
	"github.com/tabforge/tabforge/pkg/transpose"
)

func newDedupCmd(flags *globalFlags) *cobra.Command {
	var (
		selectSpec string
		numeric    bool
		ignoreCase bool
		sorted     bool
		noMemcheck bool
		jobs       int
		dupesOut   string
	)

	cmd := &cobra.Command{
		Use:   "dedup [source]",
		Short: "Remove duplicate records",
		Long: `Remove duplicate records under the chosen comparator and selection.

With --sorted the input is assumed pre-sorted and processed in one streaming
pass; an out-of-order record is an error. Without --sorted the input is
materialized, sorted, and deduplicated; output is then in sorted order, not
input order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := recordOptions(flags)
			if err != nil {
				return err
			}
			cmp, err := parseComparator(numeric, ignoreCase)
			if err != nil {
				return err
			}
			sel, err := record.ParseSelection(selectSpec)
			if err != nil {
				return err
			}

			r, err := openSource(args, opts)
			if err != nil {
				return err
			}
			defer r.Close()

			w, err := openSink(flags.output, opts.Delimiter)
			if err != nil {
				return err
			}
			defer w.Close()

			var dupSink *record.Writer
			if dupesOut != "" {
				dupSink, err = record.Create(dupesOut, opts.Delimiter)
				if err != nil {
					return err
				}
				defer dupSink.Close()
			}

			if jobs == 0 {
				jobs = defaultJobs()
			}
			res, err := dedup.Run(r, w, dedup.Config{
				Selection:  sel,
				Comparator: cmp,
				Sorted:     sorted,
				Factor:     defaultFactor(),
				ForceCheck: !noMemcheck,
				Jobs:       jobs,
				DupSink:    dupSink,
			})
			if err != nil {
				return err
			}
			printReport(map[string]uint64{
				"records_emitted": res.Emitted,
				"duplicates":      res.Duplicates,
			})
			return nil
		},
	}

	cmd.Flags().StringVarP(&selectSpec, "select", "s", "", "fields to compare (names, indices, ranges)")
	cmd.Flags().BoolVarP(&numeric, "numeric", "N", false, "compare fields numerically")
	cmd.Flags().BoolVarP(&ignoreCase, "ignore-case", "C", false, "compare fields case-insensitively")
	cmd.Flags().BoolVar(&sorted, "sorted", false, "assume input is already sorted")
	cmd.Flags().BoolVar(&noMemcheck, "no-memcheck", false, "skip the memory availability check")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "worker count for the unsorted-mode sort (0 = all CPUs)")
	cmd.Flags().StringVar(&dupesOut, "dupes-output", "", "write discarded duplicates to this file")
	return cmd
}

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	var (
		selectSpec string
		numeric    bool
		ignoreCase bool
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "verify [source]",
		Short: "Verify that records are sorted",
		Long: `Stream adjacent-pair comparisons to confirm or refute global order.

By default verification stops at the first order break. With --all it scans
to the end, counting every break and duplicate.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := recordOptions(flags)
			if err != nil {
				return err
			}
			cmp, err := parseComparator(numeric, ignoreCase)
			if err != nil {
				return err
			}
			sel, err := record.ParseSelection(selectSpec)
			if err != nil {
				return err
			}

			r, err := openSource(args, opts)
			if err != nil {
				return err
			}
			defer r.Close()

			rep, err := sortcheck.Run(r, sortcheck.Config{
				Selection:  sel,
				Comparator: cmp,
				Exhaustive: all,
			})
			if err != nil {
				return err
			}
			printReport(rep)
			if !rep.Sorted {
				return fmt.Errorf("input is not sorted")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&selectSpec, "select", "s", "", "fields to compare (names, indices, ranges)")
	cmd.Flags().BoolVarP(&numeric, "numeric", "N", false, "compare fields numerically")
	cmd.Flags().BoolVarP(&ignoreCase, "ignore-case", "C", false, "compare fields case-insensitively")
	cmd.Flags().BoolVar(&all, "all", false, "scan past breaks and report aggregate counts")
	return cmd
}

func newTransposeCmd(flags *globalFlags) *cobra.Command {
	var (
		multipass  bool
		inMemory   bool
		noMemcheck bool
	)

	cmd := &cobra.Command{
		Use:   "transpose [source]",
		Short: "Exchange rows and columns",
		Long: `Exchange the rows and columns of the input.

The whole table is held in memory when it fits; otherwise the source is
rescanned once per output row through a memory-mapped view, which requires a
file source. The header record, when present, is transposed like any other
row.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := recordOptions(flags)
			if err != nil {
				return err
			}
			if multipass && inMemory {
				return fmt.Errorf("--multipass and --in-memory are mutually exclusive")
			}

			// Transpose works on the raw record stream; the header is
			// not consumed separately.
			opts.HasHeader = false
			r, err := openSource(args, opts)
			if err != nil {
				return err
			}
			defer r.Close()

			w, err := openSink(flags.output, opts.Delimiter)
			if err != nil {
				return err
			}
			defer w.Close()

			strategy := transpose.Auto
			if multipass {
				strategy = transpose.Multipass
			}
			if inMemory {
				strategy = transpose.InMemory
			}
			return transpose.Run(r, w, transpose.Config{
				Strategy:   strategy,
				Factor:     defaultFactor(),
				ForceCheck: !noMemcheck,
			})
		},
	}

	cmd.Flags().BoolVar(&multipass, "multipass", false, "always use the memory-mapped multipass strategy")
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "always materialize the input")
	cmd.Flags().BoolVar(&noMemcheck, "no-memcheck", false, "skip the memory availability check")
	return cmd
}

func newSliceCmd(flags *globalFlags) *cobra.Command {
	var (
		start, end, length, at int64
		invert                 bool
		noIndex                bool
	)

	cmd := &cobra.Command{
		Use:   "slice [source]",
		Short: "Extract a contiguous range of records",
		Long: `Extract a contiguous range of records, or its complement with --invert.

Negative --start and --index count from the end of the input. When an index
side-car exists next to the source, the slicer seeks directly to the range
instead of scanning skipped records.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := recordOptions(flags)
			if err != nil {
				return err
			}

			cfg := slice.Config{Invert: invert}
			if cmd.Flags().Changed("start") {
				cfg.Start = &start
			}
			if cmd.Flags().Changed("end") {
				cfg.End = &end
			}
			if cmd.Flags().Changed("len") {
				cfg.Len = &length
			}
			if cmd.Flags().Changed("index") {
				cfg.Index = &at
			}

			r, err := openSource(args, opts)
			if err != nil {
				return err
			}
			defer r.Close()

			w, err := openSink(flags.output, opts.Delimiter)
			if err != nil {
				return err
			}
			defer w.Close()

			var idx *index.Index
			if !noIndex && r.Path() != "" {
				idx = index.ForSource(r.Path())
			}
			return slice.Run(r, w, idx, cfg)
		},
	}

	cmd.Flags().Int64Var(&start, "start", 0, "first record of the range (negative = from end)")
	cmd.Flags().Int64Var(&end, "end", 0, "end of the range, exclusive")
	cmd.Flags().Int64Var(&length, "len", 0, "length of the range")
	cmd.Flags().Int64Var(&at, "index", 0, "select the single record at this position")
	cmd.Flags().BoolVar(&invert, "invert", false, "emit the complement of the range")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "ignore any index side-car and scan")
	return cmd
}

func newIndexCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <source>",
		Short: "Create a random-access index side-car",
		Long: `Scan the source once and persist a side-car mapping record number to byte
offset, enabling O(1) seeks for later operations. The side-car becomes stale
if the source is modified; recreate it after any change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := recordOptions(flags)
			if err != nil {
				return err
			}
			idx, err := index.Create(args[0], flags.output, opts)
			if err != nil {
				return err
			}
			printReport(map[string]uint64{"records": idx.Count()})
			return nil
		},
	}
	return cmd
}

func newCompressCmd(flags *globalFlags) *cobra.Command {
	var (
		format    string
		level     int
		blockSize int
		jobs      int
	)

	cmd := &cobra.Command{
		Use:   "compress [source]",
		Short: "Compress a byte stream into a block container",
		Long: `Compress the input into a framed block container. Blocks are compressed in
parallel but written sequentially, so the container decodes in one pass.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openRawInput(args)
			if err != nil {
				return err
			}
			defer in.Close()

			out, err := openRawOutput(flags.output)
			if err != nil {
				return err
			}
			defer out.Close()

			if jobs == 0 {
				jobs = defaultJobs()
			}
			n, err := codec.Compress(out, in, codec.Config{
				Algorithm: codec.Algorithm(format),
				Level:     codec.Level(level),
				BlockSize: blockSize,
				Jobs:      jobs,
			})
			if err != nil {
				return err
			}
			printReport(map[string]int64{"input_bytes": n})
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(codec.Snappy), "algorithm: snappy, s2, zstd, gzip, lz4")
	cmd.Flags().IntVar(&level, "level", int(codec.Default), "compression level (1 = fastest, 9 = best)")
	cmd.Flags().IntVar(&blockSize, "block-size", 0, "uncompressed block size in bytes")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "compression worker count (0 = all CPUs)")
	return cmd
}

func newDecompressCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decompress [source]",
		Short: "Decompress a block container",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openRawInput(args)
			if err != nil {
				return err
			}
			defer in.Close()

			out, err := openRawOutput(flags.output)
			if err != nil {
				return err
			}
			defer out.Close()

			n, err := codec.Decompress(out, in)
			if err != nil {
				return err
			}
			printReport(map[string]int64{"decompressed_bytes": n})
			return nil
		},
	}
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [source]",
		Short: "Cheaply check that the input looks like a block container",
		Long: `Read only the container header prefix and report whether it is well formed.
This is fast but not exhaustive: corruption beyond the prefix is not
detected. Use validate for a full integrity pass.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openRawInput(args)
			if err != nil {
				return err
			}
			defer in.Close()

			ok := codec.Check(in)
			printReport(map[string]bool{"valid": ok})
			if !ok {
				return fmt.Errorf("input is not a valid block container")
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [source]",
		Short: "Fully validate a block container",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openRawInput(args)
			if err != nil {
				return err
			}
			defer in.Close()

			n, err := codec.Validate(in)
			if err != nil {
				return err
			}
			printReport(map[string]int64{"decompressed_bytes": n})
			return nil
		},
	}
}
