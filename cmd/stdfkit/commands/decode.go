/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decode.go
Description: Decode, bins, sites and stats commands. Each decodes the datalog named on
the command line and prints its view of the result as tables, or JSON for decode.
*/

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/stdfkit/pkg/analytics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", utf8.RuneCountInString(title)+1))
	fmt.Fprintln(w)
}

// RunDecode prints the lot summary, bins, sites and warnings of a datalog
func RunDecode(cmd *cobra.Command, args []string) error {
	res, logger, err := decodeInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer logger.Close()

	out := cmd.OutOrStdout()
	if viper.GetBool("decode.json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return errors.Wrap(err, "failed to encode result")
		}
		return nil
	}

	printHeader(out, "🔬 stdfkit - Decode: "+args[0])
	renderLot(out, res)
	renderBins(out, "Hard bins", res.HardBins)
	renderBins(out, "Soft bins", res.SoftBins)
	renderSites(out, res)
	renderWarnings(out, res.Warnings)
	return nil
}

// RunBins prints the hard and soft bin histograms and the failing-bin Pareto
func RunBins(cmd *cobra.Command, args []string) error {
	res, logger, err := decodeInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer logger.Close()

	out := cmd.OutOrStdout()
	printHeader(out, "🗂️  stdfkit - Bins: "+args[0])
	renderBins(out, "Hard bins", res.HardBins)
	renderBins(out, "Soft bins", res.SoftBins)
	if pareto := analytics.BinPareto(res, false); len(pareto) > 0 {
		renderPareto(out, "Failing soft bins", pareto, 0)
	}
	return nil
}

// RunSites prints the per-site breakdown
func RunSites(cmd *cobra.Command, args []string) error {
	res, logger, err := decodeInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer logger.Close()

	out := cmd.OutOrStdout()
	printHeader(out, "📍 stdfkit - Sites: "+args[0])
	if res.Sites.Len() == 0 {
		fmt.Fprintln(out, "No site data recorded.")
		return nil
	}
	renderSites(out, res)
	return nil
}

// RunStats prints per-test statistics and the most frequent failing tests
func RunStats(cmd *cobra.Command, args []string) error {
	res, logger, err := decodeInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer logger.Close()

	out := cmd.OutOrStdout()
	printHeader(out, "📊 stdfkit - Test statistics: "+args[0])
	stats := analytics.ComputeTestStats(res)
	if len(stats) == 0 {
		fmt.Fprintln(out, "No test results recorded.")
		return nil
	}
	renderStats(out, stats)
	if pareto := analytics.TestPareto(res); len(pareto) > 0 {
		renderPareto(out, "Failing tests", pareto, viper.GetInt("stats.top"))
	}
	return nil
}
