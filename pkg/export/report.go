/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: JSON report writer. Bundles the decoded lot, summary, bins, site yield,
per-test statistics and warnings under a run ID, and writes it with a timestamped
file name so repeated runs over one lot never overwrite each other.
*/

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/kleascm/stdfkit/pkg/analytics"
	"github.com/kleascm/stdfkit/pkg/stdf"
)

// Report is the JSON document written for one decoded file
type Report struct {
	RunID       uuid.UUID               `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Source      string                  `json:"source"`
	Lot         stdf.LotInfo            `json:"lot"`
	Summary     stdf.Summary            `json:"summary"`
	HardBins    []stdf.BinEntry         `json:"hard_bins"`
	SoftBins    []stdf.BinEntry         `json:"soft_bins"`
	Sites       []analytics.SiteYield   `json:"sites"`
	Tests       []analytics.TestStats   `json:"tests"`
	FailingBins []analytics.ParetoEntry `json:"failing_soft_bins"`
	Records     map[string]int          `json:"records"`
	Warnings    []stdf.Warning          `json:"warnings"`
}

// NewReport builds a report for res decoded from source.
func NewReport(res *stdf.Result, source string) *Report {
	return &Report{
		RunID:       uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Source:      source,
		Lot:         res.LotInfo,
		Summary:     res.Summary,
		HardBins:    res.HardBins.Sorted(),
		SoftBins:    res.SoftBins.Sorted(),
		Sites:       analytics.SiteYields(res),
		Tests:       analytics.ComputeTestStats(res),
		FailingBins: analytics.BinPareto(res, false),
		Records:     res.RecordsByName,
		Warnings:    res.Warnings,
	}
}

// FileName returns the timestamped name the report is written under, e.g.
// 2024-06-11_01-30-00_LOT42_1b4e28ba.json
func (r *Report) FileName() string {
	lot := sanitize(r.Lot.LotID)
	if lot == "" {
		lot = "unknown-lot"
	}
	return fmt.Sprintf("%s_%s_%s.json", r.GeneratedAt.Format("2006-01-02_15-04-05"), lot, r.RunID.String()[:8])
}

// WriteReport writes the report into dir and returns its path.
func WriteReport(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create report directory")
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal report")
	}

	path := filepath.Join(dir, r.FileName())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(err, "failed to write report")
	}
	return path, nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
