/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for stdfkit. Decodes binary tester datalogs and
prints lot summaries, bin and site tables, per-test statistics, exports and integrity
checks, with configuration from flags, config files and STDFKIT_* environment variables.
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kleascm/stdfkit/cmd/stdfkit/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string
	logLevel   string

	// Decode configuration
	workers         int
	maxRecordLength int

	// Logging configuration
	logDir      string
	logFormat   string
	logMaxFiles int
	logMaxSize  int64
	logCompress bool

	// Output configuration
	outputDir    string
	exportFormat string
	jsonOutput   bool
	topN         int
	pruneLogs    bool
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "stdfkit",
		Short: "stdfkit - binary tester datalog decoder and yield toolkit",
		Long: `stdfkit decodes binary semiconductor test datalogs into lot information,
parametric and functional test results, part results, bin histograms and per-site
breakdowns. Truncated or corrupt files still decode; every skipped byte range is
reported as a warning.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Parallel payload decoders (0 or 1 = serial)")
	rootCmd.PersistentFlags().IntVar(&maxRecordLength, "max-record-length", 0, "Reject records declaring a longer payload (0 = no limit)")

	// Add logging-specific flags
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Log output directory (empty = console only)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "decode", "Log format (text, json, custom, decode)")
	rootCmd.PersistentFlags().IntVar(&logMaxFiles, "log-max-files", 10, "Maximum number of log files to keep")
	rootCmd.PersistentFlags().Int64Var(&logMaxSize, "log-max-size", 100*1024*1024, "Maximum log file size in bytes")
	rootCmd.PersistentFlags().BoolVar(&logCompress, "log-compress", false, "Compress rotated log files")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("max_record_length", rootCmd.PersistentFlags().Lookup("max-record-length"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log_max_files", rootCmd.PersistentFlags().Lookup("log-max-files"))
	viper.BindPFlag("log_max_size", rootCmd.PersistentFlags().Lookup("log-max-size"))
	viper.BindPFlag("log_compress", rootCmd.PersistentFlags().Lookup("log-compress"))

	// Add decode command
	decodeCmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode a datalog and print the lot summary",
		Long: `Decode a datalog (optionally gzip, zstd or lz4 compressed) and print lot
information, yield, bin histograms, the per-site breakdown and any warnings.`,
		Args: cobra.ExactArgs(1),
		RunE: commands.RunDecode,
	}
	decodeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full decode result as JSON")
	viper.BindPFlag("decode.json", decodeCmd.Flags().Lookup("json"))
	rootCmd.AddCommand(decodeCmd)

	// Add bins command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "bins <file>",
		Short: "Print hard and soft bin histograms",
		Long: `Print the hard and soft bin histograms with names and pass/fail designations
taken from the bin summary records, plus a Pareto of the bins failing parts landed in.`,
		Args: cobra.ExactArgs(1),
		RunE: commands.RunBins,
	})

	// Add sites command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "sites <file>",
		Short: "Print the per-site breakdown",
		Long:  `Print tests, parts and yield for every test site in ascending site order.`,
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunSites,
	})

	// Add stats command
	statsCmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Print per-test statistics and failure Pareto",
		Long: `Print count, fails, mean, standard deviation, median, range and process
capability (Cp, Cpk) for every test number, followed by the most frequent failing tests.`,
		Args: cobra.ExactArgs(1),
		RunE: commands.RunStats,
	}
	statsCmd.Flags().IntVar(&topN, "top", 10, "Number of failing tests to list in the Pareto")
	viper.BindPFlag("stats.top", statsCmd.Flags().Lookup("top"))
	rootCmd.AddCommand(statsCmd)

	// Add export command
	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export part and test results",
		Long: `Export part and test results as Parquet (zstd) or CSV tables, or write a JSON
report with a run ID, summary, bins, sites and per-test statistics.`,
		Args: cobra.ExactArgs(1),
		RunE: commands.RunExport,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "parquet", "Export format (parquet, csv, json)")
	exportCmd.Flags().StringVar(&outputDir, "output", "./stdfkit_output", "Directory for exported files")
	viper.BindPFlag("export.format", exportCmd.Flags().Lookup("format"))
	viper.BindPFlag("output_dir", exportCmd.Flags().Lookup("output"))
	rootCmd.AddCommand(exportCmd)

	// Add check command for CI integration
	rootCmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a datalog and fail on any warning",
		Long: `Decode a datalog and report every warning grouped by kind. Exits non-zero when
the file produced any warning, which makes it useful as a CI gate on tester output.`,
		Args: cobra.ExactArgs(1),
		RunE: commands.RunCheck,
	})

	// Add logs command
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Summarize the log directory",
		Long: `Print file statistics for the configured log directory and count decode events
across its logs: decodes, record warnings, skipped records, cross-validation
mismatches and exports.`,
		Args: cobra.NoArgs,
		RunE: commands.RunLogs,
	}
	logsCmd.Flags().BoolVar(&pruneLogs, "prune", false, "Rotate oversized logs and remove the oldest beyond --log-max-files first")
	viper.BindPFlag("logs.prune", logsCmd.Flags().Lookup("prune"))
	rootCmd.AddCommand(logsCmd)

	// Cancel an in-flight decode on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute root command
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
