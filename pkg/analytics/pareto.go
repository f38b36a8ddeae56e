/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pareto.go
Description: Pareto rankings of failing bins and failing tests, and per-site yield.
*/

package analytics

import (
	"fmt"
	"sort"

	"github.com/kleascm/stdfkit/pkg/stdf"
)

// ParetoEntry is one ranked failure contributor
type ParetoEntry struct {
	Key        uint32  `json:"key"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"`
	Cumulative float64 `json:"cumulative"`
}

// SiteYield is the part yield of one test site
type SiteYield struct {
	Site   uint8   `json:"site"`
	Parts  int     `json:"parts"`
	Passed int     `json:"passed"`
	Yield  float64 `json:"yield_percent"`
}

// BinPareto ranks the bins that failing parts landed in.
func BinPareto(res *stdf.Result, hard bool) []ParetoEntry {
	hist := res.SoftBins
	if hard {
		hist = res.HardBins
	}
	counts := map[uint32]int{}
	for _, p := range res.PartResults {
		if p.Passed {
			continue
		}
		bin := p.SoftBin
		if hard {
			bin = p.HardBin
		}
		counts[uint32(bin)]++
	}
	return rank(counts, func(key uint32) string {
		if e, ok := hist[uint16(key)]; ok && e.Name != "" {
			return e.Name
		}
		return fmt.Sprintf("bin %d", key)
	})
}

// TestPareto ranks tests by failure count.
func TestPareto(res *stdf.Result) []ParetoEntry {
	counts := map[uint32]int{}
	names := map[uint32]string{}
	for _, tr := range res.TestResults {
		if tr.Kind == stdf.TestParametric && tr.Parametric.TestName != "" {
			names[tr.Number()] = tr.Parametric.TestName
		}
		if !tr.Passed() {
			counts[tr.Number()]++
		}
	}
	return rank(counts, func(key uint32) string {
		if n, ok := names[key]; ok {
			return n
		}
		return fmt.Sprintf("test %d", key)
	})
}

// rank sorts by descending count, ties broken by ascending key.
func rank(counts map[uint32]int, label func(uint32) string) []ParetoEntry {
	total := 0
	out := make([]ParetoEntry, 0, len(counts))
	for key, n := range counts {
		total += n
		out = append(out, ParetoEntry{Key: key, Label: label(key), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	cumulative := 0
	for i := range out {
		cumulative += out[i].Count
		out[i].Percent = float64(out[i].Count) / float64(total) * 100
		out[i].Cumulative = float64(cumulative) / float64(total) * 100
	}
	return out
}

// SiteYields returns part yield per site in ascending site order.
func SiteYields(res *stdf.Result) []SiteYield {
	out := make([]SiteYield, 0, res.Sites.Len())
	for _, b := range res.Sites.All() {
		y := SiteYield{Site: b.Site, Parts: b.Parts, Passed: b.Passed}
		if b.Parts > 0 {
			y.Yield = float64(b.Passed) / float64(b.Parts) * 100
		}
		out = append(out, y)
	}
	return out
}
