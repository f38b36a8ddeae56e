/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Per-test statistics over a decoded result. Parametric measurements feed the
distribution figures and process capability; functional tests contribute execution and
failure counts only.
*/

package analytics

import (
	"math"
	"sort"

	"github.com/kleascm/stdfkit/pkg/stdf"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TestStats summarizes every execution of one test number
type TestStats struct {
	Number    uint32        `json:"number"`
	Name      string        `json:"name"`
	Kind      stdf.TestKind `json:"kind"`
	Units     string        `json:"units,omitempty"`
	Count     int           `json:"count"`
	Fails     int           `json:"fails"`
	Mean      float64       `json:"mean"`
	StdDev    float64       `json:"stddev"`
	Median    float64       `json:"median"`
	Min       float64       `json:"min"`
	Max       float64       `json:"max"`
	LowLimit  *float64      `json:"low_limit,omitempty"`
	HighLimit *float64      `json:"high_limit,omitempty"`
	Cp        *float64      `json:"cp,omitempty"`
	Cpk       *float64      `json:"cpk,omitempty"`
}

// FailRate returns the fraction of executions that failed.
func (s TestStats) FailRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Fails) / float64(s.Count)
}

type accumulator struct {
	stats  TestStats
	values []float64
}

// ComputeTestStats groups test results by test number and returns them in
// ascending test number order.
func ComputeTestStats(res *stdf.Result) []TestStats {
	byNumber := map[uint32]*accumulator{}
	var order []uint32

	for _, tr := range res.TestResults {
		num := tr.Number()
		acc, ok := byNumber[num]
		if !ok {
			acc = &accumulator{stats: TestStats{Number: num, Kind: tr.Kind}}
			byNumber[num] = acc
			order = append(order, num)
		}
		acc.stats.Count++
		if !tr.Passed() {
			acc.stats.Fails++
		}
		if tr.Kind != stdf.TestParametric {
			continue
		}
		p := tr.Parametric
		if acc.stats.Name == "" {
			acc.stats.Name = p.TestName
		}
		if acc.stats.Units == "" {
			acc.stats.Units = p.Units
		}
		// Limits are usually only written on the first execution.
		if acc.stats.LowLimit == nil && p.LowLimit != nil && finite(float64(*p.LowLimit)) {
			acc.stats.LowLimit = ptr(float64(*p.LowLimit))
		}
		if acc.stats.HighLimit == nil && p.HighLimit != nil && finite(float64(*p.HighLimit)) {
			acc.stats.HighLimit = ptr(float64(*p.HighLimit))
		}
		if v := float64(p.Value); finite(v) {
			acc.values = append(acc.values, v)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]TestStats, 0, len(order))
	for _, num := range order {
		acc := byNumber[num]
		acc.finish()
		out = append(out, acc.stats)
	}
	return out
}

func (a *accumulator) finish() {
	if len(a.values) == 0 {
		return
	}
	s := &a.stats
	if len(a.values) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(a.values, nil)
	} else {
		s.Mean = a.values[0]
	}
	s.Min = floats.Min(a.values)
	s.Max = floats.Max(a.values)

	sorted := append([]float64(nil), a.values...)
	sort.Float64s(sorted)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	if s.LowLimit != nil && s.HighLimit != nil && s.StdDev > 0 {
		lo, hi := *s.LowLimit, *s.HighLimit
		s.Cp = ptr((hi - lo) / (6 * s.StdDev))
		s.Cpk = ptr(math.Min(hi-s.Mean, s.Mean-lo) / (3 * s.StdDev))
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ptr(v float64) *float64 {
	return &v
}
