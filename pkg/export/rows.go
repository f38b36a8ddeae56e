/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: rows.go
Description: Flat row types shared by the tabular exporters.
*/

package export

import (
	"github.com/kleascm/stdfkit/pkg/stdf"
)

// PartRow is one part result flattened for tabular output
type PartRow struct {
	Index     int    `parquet:"index"`
	Head      int32  `parquet:"head"`
	Site      int32  `parquet:"site"`
	X         int32  `parquet:"x"`
	Y         int32  `parquet:"y"`
	HardBin   int32  `parquet:"hard_bin"`
	SoftBin   int32  `parquet:"soft_bin"`
	TestCount int32  `parquet:"test_count"`
	TestTime  int64  `parquet:"test_time_ms"`
	Passed    bool   `parquet:"passed"`
	PartID    string `parquet:"part_id"`
	PartText  string `parquet:"part_text,optional"`
}

// TestRow is one test execution flattened for tabular output
type TestRow struct {
	Index      int      `parquet:"index"`
	Kind       string   `parquet:"kind"`
	TestNumber int64    `parquet:"test_number"`
	TestName   string   `parquet:"test_name,optional"`
	Head       int32    `parquet:"head"`
	Site       int32    `parquet:"site"`
	Value      *float32 `parquet:"value,optional"`
	LowLimit   *float32 `parquet:"low_limit,optional"`
	HighLimit  *float32 `parquet:"high_limit,optional"`
	Units      string   `parquet:"units,optional"`
	FailCount  *int64   `parquet:"fail_count,optional"`
	Passed     bool     `parquet:"passed"`
}

var partHeader = []string{
	"index", "head", "site", "x", "y", "hard_bin", "soft_bin",
	"test_count", "test_time_ms", "passed", "part_id", "part_text",
}

var testHeader = []string{
	"index", "kind", "test_number", "test_name", "head", "site",
	"value", "low_limit", "high_limit", "units", "fail_count", "passed",
}

// PartRows flattens the part results of res.
func PartRows(res *stdf.Result) []PartRow {
	rows := make([]PartRow, 0, len(res.PartResults))
	for i, p := range res.PartResults {
		rows = append(rows, PartRow{
			Index:     i,
			Head:      int32(p.Head),
			Site:      int32(p.Site),
			X:         int32(p.X),
			Y:         int32(p.Y),
			HardBin:   int32(p.HardBin),
			SoftBin:   int32(p.SoftBin),
			TestCount: int32(p.TestCount),
			TestTime:  int64(p.TestTime),
			Passed:    p.Passed,
			PartID:    p.PartID,
			PartText:  p.PartText,
		})
	}
	return rows
}

// TestRows flattens the test results of res.
func TestRows(res *stdf.Result) []TestRow {
	rows := make([]TestRow, 0, len(res.TestResults))
	for i, t := range res.TestResults {
		row := TestRow{
			Index:      i,
			Kind:       t.Kind.String(),
			TestNumber: int64(t.Number()),
			Site:       int32(t.Site()),
			Passed:     t.Passed(),
		}
		switch t.Kind {
		case stdf.TestParametric:
			p := t.Parametric
			v := p.Value
			row.TestName = p.TestName
			row.Head = int32(p.Head)
			row.Value = &v
			row.LowLimit = p.LowLimit
			row.HighLimit = p.HighLimit
			row.Units = p.Units
		case stdf.TestFunctional:
			f := t.Functional
			row.TestName = f.TestText
			row.Head = int32(f.Head)
			if f.FailCount != nil {
				n := int64(*f.FailCount)
				row.FailCount = &n
			}
		}
		rows = append(rows, row)
	}
	return rows
}
