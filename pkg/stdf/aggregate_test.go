/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: aggregate_test.go
Description: Tests for the aggregation engine: verdicts, histograms, site buckets,
part count cross-validation and summary math.
*/

package stdf

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed applies records as if they had been framed back to back.
func feed(a *Aggregator, recs ...Record) {
	off := 0
	for _, r := range recs {
		payload := encodePayload(r)
		raw := RawRecord{Type: r.Key().Type, Sub: r.Key().Sub, Length: uint16(len(payload)), Offset: off}
		a.Apply(raw, r)
		off = raw.End()
	}
}

func aggregate(recs ...Record) *Result {
	a := NewAggregator(Options{})
	feed(a, recs...)
	return a.Finish()
}

func TestParametricVerdict(t *testing.T) {
	tests := []struct {
		name string
		rec  *ParametricTest
		want bool
	}{
		{"within limits", &ParametricTest{Result: 1, LowLimit: f32(0), HighLimit: f32(2)}, true},
		{"on the limits", &ParametricTest{Result: 2, LowLimit: f32(2), HighLimit: f32(2)}, true},
		{"above high limit", &ParametricTest{Result: 2.1, HighLimit: f32(2)}, false},
		{"below low limit", &ParametricTest{Result: -1, LowLimit: f32(0)}, false},
		{"no limits", &ParametricTest{Result: 1e9}, true},
		{"fail flag wins", &ParametricTest{Result: 1, TestFlags: TestFlagFailed, LowLimit: f32(0), HighLimit: f32(2)}, false},
		{"other flags ignored", &ParametricTest{Result: 1, TestFlags: TestFlagAlarm | TestFlagTimeout}, true},
		{"NaN result against limits", &ParametricTest{Result: nan32(), LowLimit: f32(0), HighLimit: f32(2)}, false},
		{"NaN result without limits", &ParametricTest{Result: nan32()}, true},
		{"infinite result against low limit", &ParametricTest{Result: float32(math.Inf(1)), LowLimit: f32(0)}, false},
		{"negative infinity against high limit", &ParametricTest{Result: float32(math.Inf(-1)), HighLimit: f32(2)}, false},
		{"NaN low limit ignored", &ParametricTest{Result: 1, LowLimit: f32(nan32()), HighLimit: f32(2)}, true},
		{"NaN limits only", &ParametricTest{Result: nan32(), LowLimit: f32(nan32()), HighLimit: f32(nan32())}, true},
		{"infinite high limit", &ParametricTest{Result: 1e30, LowLimit: f32(0), HighLimit: f32(float32(math.Inf(1)))}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := aggregate(tt.rec)
			require.Len(t, res.TestResults, 1)
			assert.Equal(t, tt.want, res.TestResults[0].Passed())
			assert.Equal(t, TestParametric, res.TestResults[0].Kind)
		})
	}
}

func TestFunctionalVerdict(t *testing.T) {
	res := aggregate(
		&FunctionalTest{Number: 1, Site: 0},
		&FunctionalTest{Number: 2, Site: 0, TestFlags: TestFlagFailed, OptFlags: FTROptFailCount, FailCount: u32(3)},
	)
	require.Len(t, res.TestResults, 2)
	assert.True(t, res.TestResults[0].Passed())
	assert.False(t, res.TestResults[1].Passed())
	assert.Equal(t, TestFunctional, res.TestResults[1].Kind)
	assert.Equal(t, uint32(3), *res.TestResults[1].Functional.FailCount)
}

func TestPartVerdict(t *testing.T) {
	tests := []struct {
		name  string
		flags uint8
		hard  uint16
		want  bool
	}{
		{"clean", 0, 1, true},
		{"fail flag", PartFlagFailed, 1, false},
		{"clean in a failing bin", 0, 5, true},
		{"no verdict, bin 1", PartFlagNoPassFail, 1, true},
		{"no verdict, other bin", PartFlagNoPassFail, 7, false},
		{"no verdict overrides fail flag", PartFlagNoPassFail | PartFlagFailed, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := aggregate(&PartFinished{Site: 1, PartFlags: tt.flags, HardBin: tt.hard, SoftBin: tt.hard})
			require.Len(t, res.PartResults, 1)
			assert.Equal(t, tt.want, res.PartResults[0].Passed)
		})
	}
}

func TestHistogramsCountOnlyParts(t *testing.T) {
	res := aggregate(
		&BinSummary{Hard: true, Head: AllSites, Number: 1, Count: 1000, PassFail: 'P', Name: "PASS"},
		&PartFinished{Site: 0, HardBin: 1, SoftBin: 10},
		&PartFinished{Site: 1, HardBin: 1, SoftBin: 11},
		&PartFinished{Site: 0, HardBin: 3, SoftBin: 30, PartFlags: PartFlagFailed},
		&BinSummary{Hard: false, Head: AllSites, Number: 30, Count: 1000, PassFail: 'F', Name: "OPEN"},
		&BinSummary{Hard: false, Head: AllSites, Number: 99, Count: 7, Name: "UNUSED"},
	)

	assert.Equal(t, map[uint16]int{1: 2, 3: 1}, res.HardBins.Counts())
	assert.Equal(t, map[uint16]int{10: 1, 11: 1, 30: 1, 99: 0}, res.SoftBins.Counts())
	assert.Equal(t, len(res.PartResults), res.HardBins.Total())
	assert.Equal(t, len(res.PartResults), res.SoftBins.Total())

	assert.Equal(t, "PASS", res.HardBins[1].Name)
	assert.Equal(t, "P", res.HardBins[1].PassFail)
	assert.Equal(t, "OPEN", res.SoftBins[30].Name)
	assert.Equal(t, "F", res.SoftBins[30].PassFail)

	sorted := res.SoftBins.Sorted()
	require.Len(t, sorted, 4)
	assert.Equal(t, uint16(10), sorted[0].Number)
	assert.Equal(t, uint16(99), sorted[3].Number)
}

func TestSiteBuckets(t *testing.T) {
	res := aggregate(
		&LotOpen{LotID: "L"},
		&ParametricTest{Number: 1, Site: 3, Result: 1},
		&ParametricTest{Number: 1, Site: 1, Result: 1},
		&PartFinished{Site: 3, HardBin: 1},
		&FunctionalTest{Number: 2, Site: 1},
		&PartFinished{Site: 1, HardBin: 2, PartFlags: PartFlagFailed},
		&PartCount{Head: 1, Site: 9, PartCount: 1},
	)

	assert.Equal(t, []uint8{1, 3}, res.Sites.Sites())

	site3, ok := res.Sites.Get(3)
	require.True(t, ok)
	assert.Equal(t, []SiteEntry{{Kind: EntryTest, Index: 0}, {Kind: EntryPart, Index: 0}}, site3.Entries)
	assert.Equal(t, 1, site3.Passed)

	site1, ok := res.Sites.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, site1.Tests)
	assert.Equal(t, 1, site1.Parts)
	assert.Equal(t, 0, site1.Passed)

	tests := res.SiteTests(1)
	require.Len(t, tests, 2)
	assert.Equal(t, TestParametric, tests[0].Kind)
	assert.Equal(t, TestFunctional, tests[1].Kind)
	assert.Len(t, res.SiteParts(1), 1)

	_, ok = res.Sites.Get(9)
	assert.False(t, ok, "part count records never create a site bucket")
}

func TestSummary(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		res := aggregate()
		assert.Equal(t, Summary{}, res.Summary)
		assert.Equal(t, 0.0, res.Summary.YieldPercent)
	})

	t.Run("mixed", func(t *testing.T) {
		res := aggregate(
			&PartFinished{HardBin: 1},
			&PartFinished{HardBin: 1},
			&PartFinished{HardBin: 1},
			&PartFinished{HardBin: 2, PartFlags: PartFlagFailed},
		)
		assert.Equal(t, 4, res.Summary.TotalParts)
		assert.Equal(t, 3, res.Summary.PassedParts)
		assert.Equal(t, 1, res.Summary.FailedParts)
		assert.InDelta(t, 75.0, res.Summary.YieldPercent, 1e-9)
		assert.Equal(t, res.Summary.TotalParts, res.Summary.PassedParts+res.Summary.FailedParts)
	})

	t.Run("yield bounds", func(t *testing.T) {
		assert.Equal(t, 0.0, yieldPercent(0, 0))
		assert.Equal(t, 100.0, yieldPercent(5, 5))
		assert.Equal(t, 100.0, yieldPercent(7, 5))
		assert.Equal(t, 0.0, yieldPercent(-1, 5))
	})
}

func TestLotInfoMerge(t *testing.T) {
	res := aggregate(
		&LotOpen{LotID: "LOT1", PartType: "DEV", StartTime: 1700000000, ModeCode: 'P'},
		&LotOpen{LotID: "LOT2", JobName: "job"},
		&LotClose{FinishTime: 1700003600, DispositionCode: 'Q', UserDescription: "hold"},
	)
	lot := res.LotInfo
	assert.Equal(t, "LOT2", lot.LotID)
	assert.Equal(t, "DEV", lot.PartType)
	assert.Equal(t, "job", lot.JobName)
	assert.Equal(t, "P", lot.ModeCode)
	assert.Equal(t, "Q", lot.DispositionCode)
	assert.Equal(t, "hold", lot.UserDescription)
	assert.Equal(t, int64(1700000000), lot.StartTime.Unix())
	assert.Equal(t, int64(1700003600), lot.FinishTime.Unix())
	assert.True(t, lot.SetupTime.IsZero())
}

func TestPartCountCrossValidation(t *testing.T) {
	parts := []Record{
		&PartFinished{Site: 0, HardBin: 1},
		&PartFinished{Site: 1, HardBin: 1},
		&PartFinished{Site: 1, HardBin: 2, PartFlags: PartFlagFailed},
	}

	t.Run("lot record agrees", func(t *testing.T) {
		res := aggregate(append(parts, &PartCount{Head: AllSites, PartCount: 3, GoodCount: 2})...)
		assert.False(t, res.HasWarning(WarnCrossValidationMismatch))
		assert.Equal(t, 3, res.LotInfo.LotSize)
	})

	t.Run("lot record preferred over site records", func(t *testing.T) {
		res := aggregate(append(parts,
			&PartCount{Head: 1, Site: 0, PartCount: 50, GoodCount: 50},
			&PartCount{Head: AllSites, PartCount: 3, GoodCount: 2},
		)...)
		assert.False(t, res.HasWarning(WarnCrossValidationMismatch))
		assert.Len(t, res.PartCounts, 2)
	})

	t.Run("site records summed", func(t *testing.T) {
		res := aggregate(append(parts,
			&PartCount{Head: 1, Site: 0, PartCount: 1, GoodCount: 1},
			&PartCount{Head: 1, Site: 1, PartCount: 2, GoodCount: 1},
		)...)
		assert.False(t, res.HasWarning(WarnCrossValidationMismatch))
		assert.Equal(t, 3, res.LotInfo.LotSize)
	})

	t.Run("disagreement warns", func(t *testing.T) {
		res := aggregate(append(parts, &PartCount{Head: AllSites, PartCount: 10, GoodCount: 9})...)
		var mismatches int
		for _, w := range res.Warnings {
			if w.Kind == WarnCrossValidationMismatch {
				mismatches++
			}
		}
		assert.Equal(t, 2, mismatches)
		assert.Equal(t, 10, res.LotInfo.LotSize)
		assert.Equal(t, 3, res.Summary.TotalParts)
	})

	t.Run("unrecorded good count skipped", func(t *testing.T) {
		res := aggregate(append(parts, &PartCount{Head: AllSites, PartCount: 3, GoodCount: 0xFFFFFFFF})...)
		assert.False(t, res.HasWarning(WarnCrossValidationMismatch))
	})

	t.Run("no part count falls back to part results", func(t *testing.T) {
		res := aggregate(parts...)
		assert.Equal(t, 3, res.LotInfo.LotSize)
		assert.Empty(t, res.Warnings)
	})
}

func TestIncompletePartWarning(t *testing.T) {
	res := aggregate(
		&PartStart{Head: 1, Site: 0},
		&PartStart{Head: 1, Site: 1},
		&PartFinished{Head: 1, Site: 0, HardBin: 1},
		&PartFinished{Head: 1, Site: 2, HardBin: 1},
	)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnIncompletePart, res.Warnings[0].Kind)
	assert.Contains(t, res.Warnings[0].Message, "site 1")
	assert.Equal(t, 2, res.Summary.TotalParts)
}

func TestUnknownKindsWarnOncePerKey(t *testing.T) {
	res := aggregate(
		&RawPayload{RecordKey: RecordKey{Type: 180, Sub: 1}, Data: []byte{1}},
		&RawPayload{RecordKey: RecordKey{Type: 180, Sub: 1}, Data: []byte{2}},
		&RawPayload{RecordKey: RecordKey{Type: 181, Sub: 1}},
	)
	assert.Len(t, res.Unknown, 3)
	require.Len(t, res.Warnings, 2)
	for _, w := range res.Warnings {
		assert.Equal(t, WarnUnknownRecordType, w.Kind)
		assert.ErrorIs(t, w.Kind.Err(), ErrUnknownRecordType)
	}
	assert.Equal(t, 2, res.RecordCounts[RecordKey{Type: 180, Sub: 1}])
}

func TestSupplementaryRecords(t *testing.T) {
	res := aggregate(
		&FileAttributes{CPUType: 2, Version: 4},
		&AuditTrail{ModTime: 5, CommandLine: "fix"},
		&WaferOpen{Head: 1, StartTime: 10, WaferID: "W1"},
		&TestSynopsis{Number: 1000, Name: "VDD_LEAK"},
		&ParametricTest{Number: 1000, Result: 1},
		&WaferClose{Head: 1, FinishTime: 20, PartCount: 4, GoodCount: 3, WaferID: "W1"},
		&DatalogText{Text: "note"},
	)
	require.NotNil(t, res.FileAttributes)
	assert.Equal(t, uint8(4), res.FileAttributes.Version)
	require.Len(t, res.Wafers, 1)
	assert.True(t, res.Wafers[0].Closed)
	assert.Equal(t, uint32(3), res.Wafers[0].GoodCount)
	assert.Equal(t, "VDD_LEAK", res.TestResults[0].Parametric.TestName)
	assert.Equal(t, []string{"note"}, res.DatalogText)
	assert.Len(t, res.AuditTrail, 1)
	assert.Equal(t, 1, res.RecordsByName["WIR"])
}

func nan32() float32 { return float32(math.NaN()) }

func TestParametricScalesCarried(t *testing.T) {
	res := aggregate(&ParametricTest{
		Number:      7,
		Result:      1.5,
		OptFlags:    PTROptScales,
		ResultScale: i8(-3),
		LowScale:    i8(-6),
		HighScale:   i8(3),
	})
	require.Len(t, res.TestResults, 1)
	p := res.TestResults[0].Parametric
	require.NotNil(t, p.ResultScale)
	require.NotNil(t, p.LowLimitScale)
	require.NotNil(t, p.HighLimitScale)
	assert.Equal(t, int8(-3), *p.ResultScale)
	assert.Equal(t, int8(-6), *p.LowLimitScale)
	assert.Equal(t, int8(3), *p.HighLimitScale)
}

func TestResultJSONWithNonFiniteValues(t *testing.T) {
	res := aggregate(
		&ParametricTest{Number: 1, Result: nan32(), LowLimit: f32(0), HighLimit: f32(float32(math.Inf(1)))},
		&ParametricTest{Number: 2, Result: float32(math.Inf(-1))},
		&ParametricTest{Number: 3, Result: 0.25, LowLimit: f32(0), HighLimit: f32(1)},
	)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded struct {
		TestResults []struct {
			Parametric map[string]any `json:"parametric"`
		} `json:"test_results"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.TestResults, 3)

	nanTest := decoded.TestResults[0].Parametric
	assert.Nil(t, nanTest["value"])
	assert.Contains(t, nanTest, "value")
	assert.Equal(t, 0.0, nanTest["low_limit"])
	assert.Contains(t, nanTest, "high_limit")
	assert.Nil(t, nanTest["high_limit"])
	assert.Equal(t, false, nanTest["passed"])
	assert.Equal(t, 1.0, nanTest["test_number"])

	assert.Nil(t, decoded.TestResults[1].Parametric["value"])
	assert.NotContains(t, decoded.TestResults[1].Parametric, "low_limit")

	finiteTest := decoded.TestResults[2].Parametric
	assert.Equal(t, 0.25, finiteTest["value"])
	assert.Equal(t, 1.0, finiteTest["high_limit"])
}

func TestCloneIsIndependent(t *testing.T) {
	res := aggregate(
		&ParametricTest{Number: 1, Site: 0, Result: 1, LowLimit: f32(0), ResultScale: i8(2)},
		&FunctionalTest{Number: 2, Site: 0, OptFlags: FTROptFailCount, FailCount: u32(3)},
		&PartFinished{Site: 0, HardBin: 1},
		&RawPayload{RecordKey: RecordKey{Type: 200, Sub: 1}, Data: []byte{7}},
	)
	c := res.Clone()
	require.Equal(t, res.Summary, c.Summary)

	c.TestResults[0].Parametric.Value = 99
	*c.TestResults[0].Parametric.LowLimit = 42
	*c.TestResults[0].Parametric.ResultScale = 9
	*c.TestResults[1].Functional.FailCount = 11
	c.HardBins[1].Count = 42
	c.PartResults[0].HardBin = 9
	c.Unknown[0].Data[0] = 0
	b, _ := c.Sites.Get(0)
	b.Entries[0].Index = 5

	assert.Equal(t, float32(1), res.TestResults[0].Parametric.Value)
	assert.Equal(t, float32(0), *res.TestResults[0].Parametric.LowLimit)
	assert.Equal(t, int8(2), *res.TestResults[0].Parametric.ResultScale)
	assert.Equal(t, uint32(3), *res.TestResults[1].Functional.FailCount)
	assert.Equal(t, 1, res.HardBins[1].Count)
	assert.Equal(t, uint16(1), res.PartResults[0].HardBin)
	assert.Equal(t, byte(7), res.Unknown[0].Data[0])
	orig, _ := res.Sites.Get(0)
	assert.Equal(t, 0, orig.Entries[0].Index)
}
