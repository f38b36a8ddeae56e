/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tables.go
Description: Table rendering for decode results: lot header, bin histograms, site
breakdown, per-test statistics, Pareto rankings and warnings.
*/

package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/kleascm/stdfkit/pkg/analytics"
	"github.com/kleascm/stdfkit/pkg/stdf"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// renderLot prints lot identification and the yield summary
func renderLot(w io.Writer, res *stdf.Result) {
	t := newTable(w, "Lot")
	lot := res.LotInfo
	t.AppendRows([]table.Row{
		{"Lot", orDash(lot.LotID)},
		{"Sublot", orDash(lot.SublotID)},
		{"Part type", orDash(lot.PartType)},
		{"Tester", orDash(lot.TesterType)},
		{"Node", orDash(lot.NodeName)},
		{"Job", orDash(lot.JobName)},
		{"Start", formatTime(lot)},
		{"Lot size", lot.LotSize},
	})
	t.AppendSeparator()
	s := res.Summary
	t.AppendRows([]table.Row{
		{"Parts", s.TotalParts},
		{"Passed", s.PassedParts},
		{"Failed", s.FailedParts},
		{"Yield", fmt.Sprintf("%.2f%%", s.YieldPercent)},
		{"Tests", len(res.TestResults)},
		{"Warnings", len(res.Warnings)},
	})
	t.Render()
}

func formatTime(lot stdf.LotInfo) string {
	if lot.StartTime.IsZero() {
		return "-"
	}
	return lot.StartTime.Format("2006-01-02 15:04:05 MST")
}

// renderBins prints one bin histogram in ascending bin order
func renderBins(w io.Writer, title string, hist stdf.BinHistogram) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Bin", "Name", "P/F", "Count", "%"})
	total := hist.Total()
	for _, e := range hist.Sorted() {
		t.AppendRow(table.Row{e.Number, orDash(e.Name), orDash(e.PassFail), e.Count, percent(e.Count, total)})
	}
	t.AppendFooter(table.Row{"", "", "Total", total, ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
}

// renderSites prints the per-site breakdown
func renderSites(w io.Writer, res *stdf.Result) {
	t := newTable(w, "Sites")
	t.AppendHeader(table.Row{"Site", "Tests", "Parts", "Passed", "Yield"})
	for _, y := range analytics.SiteYields(res) {
		b, _ := res.Sites.Get(y.Site)
		t.AppendRow(table.Row{y.Site, b.Tests, y.Parts, y.Passed, fmt.Sprintf("%.2f%%", y.Yield)})
	}
	t.Render()
}

// renderStats prints one row per test number
func renderStats(w io.Writer, stats []analytics.TestStats) {
	t := newTable(w, "Tests")
	t.AppendHeader(table.Row{"Test", "Name", "Kind", "Count", "Fails", "Mean", "StdDev", "Median", "Min", "Max", "Cp", "Cpk"})
	for _, s := range stats {
		if s.Kind == stdf.TestFunctional {
			t.AppendRow(table.Row{s.Number, orDash(s.Name), s.Kind, s.Count, s.Fails, "-", "-", "-", "-", "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{
			s.Number, orDash(s.Name), s.Kind, s.Count, s.Fails,
			withUnits(s.Mean, s.Units), fmtFloat(s.StdDev), fmtFloat(s.Median),
			fmtFloat(s.Min), fmtFloat(s.Max), optFloat(s.Cp), optFloat(s.Cpk),
		})
	}
	t.Render()
}

// renderPareto prints the first n entries of a ranking, all when n <= 0
func renderPareto(w io.Writer, title string, entries []analytics.ParetoEntry, n int) {
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	t := newTable(w, title)
	t.AppendHeader(table.Row{"#", "Key", "Label", "Count", "%", "Cum %"})
	for i, e := range entries {
		t.AppendRow(table.Row{i + 1, e.Key, e.Label, e.Count, fmt.Sprintf("%.1f", e.Percent), fmt.Sprintf("%.1f", e.Cumulative)})
	}
	t.Render()
}

// renderWarnings prints a count per warning kind followed by each warning
func renderWarnings(w io.Writer, warnings []stdf.Warning) {
	if len(warnings) == 0 {
		return
	}

	counts := map[stdf.WarningKind]int{}
	for _, wn := range warnings {
		counts[wn.Kind]++
	}
	kinds := make([]stdf.WarningKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	summary := newTable(w, "Warnings by kind")
	summary.AppendHeader(table.Row{"Kind", "Count"})
	for _, k := range kinds {
		summary.AppendRow(table.Row{k.String(), counts[k]})
	}
	summary.Render()

	detail := newTable(w, "Warnings")
	detail.AppendHeader(table.Row{"Offset", "Record", "Kind", "Message"})
	for _, wn := range warnings {
		detail.AppendRow(table.Row{
			fmt.Sprintf("0x%06x", wn.Offset),
			stdf.RecordName(stdf.RecordKey{Type: wn.Type, Sub: wn.Sub}),
			wn.Kind.String(),
			wn.Message,
		})
	}
	detail.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", float64(n)/float64(total)*100)
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func withUnits(v float64, units string) string {
	if units == "" {
		return fmtFloat(v)
	}
	return fmtFloat(v) + " " + units
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}
