/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logs.go
Description: Logs command. Summarizes the stdfkit log directory: file statistics and
decode event counts (decodes, record warnings, skipped records, cross-validation
mismatches, exports).
*/

package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kleascm/stdfkit/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrNoLogDir is returned by logs when no log directory is configured.
var ErrNoLogDir = errors.New("no log directory configured (set --log-dir or STDFKIT_LOG_DIR)")

// RunLogs prints statistics and an event analysis of the log directory
func RunLogs(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	dir := viper.GetString("log_dir")
	if dir == "" {
		return ErrNoLogDir
	}

	manager := logging.NewLogManager(dir, viper.GetInt("log_max_files"), viper.GetInt64("log_max_size"), viper.GetBool("log_compress"))
	if viper.GetBool("logs.prune") {
		if err := manager.RotateLogs(); err != nil {
			return errors.Wrap(err, "failed to rotate logs")
		}
		if err := manager.CleanupOldLogs(); err != nil {
			return errors.Wrap(err, "failed to prune logs")
		}
	}

	stats, err := manager.GetLogStats()
	if err != nil {
		return err
	}
	analysis, err := logging.NewLogAnalyzer(dir).AnalyzeLogs()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printHeader(out, "📜 stdfkit - Logs: "+dir)

	t := newTable(out, "Log files")
	t.AppendRows([]table.Row{
		{"Files", stats.TotalFiles},
		{"Compressed", stats.CompressedFiles},
		{"Uncompressed", stats.UncompressedFiles},
		{"Total size", fmt.Sprintf("%d bytes", stats.TotalSize)},
	})
	if stats.TotalFiles > 0 {
		t.AppendRows([]table.Row{
			{"Oldest", stats.OldestFile.Format("2006-01-02 15:04:05")},
			{"Newest", stats.NewestFile.Format("2006-01-02 15:04:05")},
		})
	}
	t.Render()

	fmt.Fprintln(out)
	fmt.Fprintln(out, analysis.GetLogSummary())
	return nil
}
