/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: export.go
Description: Export and check commands. Export writes part and test tables or a JSON
report; check fails when a datalog produced any warning, for use as a CI gate.
*/

package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/stdfkit/pkg/export"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrWarningsFound is returned by check when the datalog is not clean.
var ErrWarningsFound = errors.New("datalog produced warnings")

// RunExport writes the decoded result in the configured format
func RunExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(viper.GetString("export.format"))
	if err != nil {
		return err
	}

	res, logger, err := decodeInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer logger.Close()

	dir := viper.GetString("output_dir")
	paths, err := export.Write(dir, baseName(args[0]), format, res)
	if err != nil {
		return errors.Wrapf(err, "failed to export %s", args[0])
	}
	logger.LogExport(string(format), paths)

	out := cmd.OutOrStdout()
	printHeader(out, "💾 stdfkit - Export: "+args[0])
	for _, p := range paths {
		fmt.Fprintf(out, "✅ %s\n", p)
	}
	return nil
}

// RunCheck decodes a datalog and fails when any warning was raised
func RunCheck(cmd *cobra.Command, args []string) error {
	res, logger, err := decodeInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer logger.Close()

	out := cmd.OutOrStdout()
	printHeader(out, "🔍 stdfkit - Check: "+args[0])
	fmt.Fprintf(out, "📊 Records: %d  Parts: %d  Tests: %d\n\n",
		totalRecords(res.RecordsByName), res.Summary.TotalParts, len(res.TestResults))

	if len(res.Warnings) == 0 {
		fmt.Fprintln(out, "✨ No warnings. Datalog decoded cleanly.")
		return nil
	}
	renderWarnings(out, res.Warnings)
	fmt.Fprintf(out, "⚠️  %d warning(s) found.\n", len(res.Warnings))
	return errors.Wrapf(ErrWarningsFound, "%d warning(s)", len(res.Warnings))
}

func totalRecords(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
