// Command tabforge is the thin command-line shim over the tabular
// processing engine. It parses flags, wires sources and sinks, and
// delegates to the operator packages; no processing logic lives here.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tabforge/tabforge/pkg/compare"
	"github.com/tabforge/tabforge/pkg/logger"
	"github.com/tabforge/tabforge/pkg/record"
	"github.com/tabforge/tabforge/pkg/sysmem"
)

var version = "0.1.0"

// globalFlags are shared by every operator subcommand.
type globalFlags struct {
	output    string
	delimiter string
	noHeaders bool
	logLevel  string
}

func main() {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "tabforge",
		Short: "tabforge - out-of-core tabular data processing",
		Long: `tabforge transforms very large delimited-record datasets while preserving
record order, exact byte content, and strict memory bounds.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadDefaults()
			return logger.Init(logger.Config{
				Level:    flags.logLevel,
				Encoding: "console",
			})
		},
	}

	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "", "write output to file instead of stdout")
	root.PersistentFlags().StringVarP(&flags.delimiter, "delimiter", "d", ",", "field delimiter (single byte)")
	root.PersistentFlags().BoolVar(&flags.noHeaders, "no-headers", false, "input has no header record")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tabforge v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newDedupCmd(flags))
	root.AddCommand(newVerifyCmd(flags))
	root.AddCommand(newTransposeCmd(flags))
	root.AddCommand(newSliceCmd(flags))
	root.AddCommand(newIndexCmd(flags))
	root.AddCommand(newCompressCmd(flags))
	root.AddCommand(newDecompressCmd(flags))
	root.AddCommand(newCheckCmd())
	root.AddCommand(newValidateCmd())

	if err := root.Execute(); err != nil {
		logger.Get().Error("command failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// loadDefaults reads optional defaults (jobs, memory_factor, delimiter)
// from $HOME/.tabforge.yaml.
func loadDefaults() {
	viper.SetConfigName(".tabforge")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetDefault("jobs", 0)
	viper.SetDefault("memory_factor", sysmem.DefaultFactor)
	_ = viper.ReadInConfig() // defaults apply when no config file exists
}

func defaultJobs() int {
	return viper.GetInt("jobs")
}

func defaultFactor() float64 {
	return viper.GetFloat64("memory_factor")
}

// recordOptions converts the shared flags to reader options.
func recordOptions(flags *globalFlags) (record.Options, error) {
	if len(flags.delimiter) != 1 {
		return record.Options{}, fmt.Errorf("delimiter must be a single byte, got %q", flags.delimiter)
	}
	return record.Options{
		Delimiter: flags.delimiter[0],
		HasHeader: !flags.noHeaders,
	}, nil
}

// openSource opens the positional source argument; "-" or no argument
// means stdin.
func openSource(args []string, opts record.Options) (*record.Reader, error) {
	if len(args) == 0 || args[0] == "-" {
		return record.NewReader(os.Stdin, opts), nil
	}
	return record.Open(args[0], opts)
}

// openSink opens the output destination; empty means stdout.
func openSink(path string, delimiter byte) (*record.Writer, error) {
	if path == "" {
		return record.NewWriter(os.Stdout, delimiter), nil
	}
	return record.Create(path, delimiter)
}

// openRawInput opens the positional argument as a plain byte stream.
func openRawInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(args[0])
}

// openRawOutput opens the output destination as a plain byte stream.
func openRawOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// printReport writes an operator report as JSON to stderr, keeping stdout
// clean for record output.
func printReport(v interface{}) {
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// parseComparator maps the shared comparator flags to a mode.
func parseComparator(numeric, ignoreCase bool) (compare.Comparator, error) {
	if numeric && ignoreCase {
		return compare.Comparator{}, fmt.Errorf("--numeric and --ignore-case are mutually exclusive")
	}
	switch {
	case numeric:
		return compare.New(compare.Numeric), nil
	case ignoreCase:
		return compare.New(compare.CaseFolded), nil
	default:
		return compare.New(compare.Lexicographic), nil
	}
}
