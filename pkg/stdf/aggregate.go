/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: aggregate.go
Description: Aggregation engine. Folds decoded records into lot metadata, test and part
results, bin histograms and per-site buckets. Summary counters and cross-validation
against part-count records are computed once in Finish.
*/

package stdf

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Aggregator accumulates one decode pass. It is not safe for concurrent use;
// each pass owns its own instance.
type Aggregator struct {
	logger logrus.FieldLogger
	result *Result

	testNames   map[uint32]string
	seenUnknown map[RecordKey]bool
	openParts   map[partSlot]int

	lotCount   *PartCount
	siteCounts []PartCount

	finished bool
}

type partSlot struct {
	head uint8
	site uint8
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts Options) *Aggregator {
	return &Aggregator{
		logger: opts.logger(),
		result: &Result{
			TestResults:   []TestResult{},
			PartResults:   []PartResult{},
			HardBins:      BinHistogram{},
			SoftBins:      BinHistogram{},
			Sites:         newSiteBuckets(),
			Warnings:      []Warning{},
			RecordCounts:  map[RecordKey]int{},
			RecordsByName: map[string]int{},
		},
		testNames:   map[uint32]string{},
		seenUnknown: map[RecordKey]bool{},
		openParts:   map[partSlot]int{},
	}
}

// Warn records a non-fatal condition.
func (a *Aggregator) Warn(w Warning) {
	a.result.Warnings = append(a.result.Warnings, w)
}

// Apply folds one decoded record into the running state.
func (a *Aggregator) Apply(raw RawRecord, rec Record) {
	key := raw.Key()
	a.result.RecordCounts[key]++
	a.result.RecordsByName[RecordName(key)]++

	switch r := rec.(type) {
	case *FileAttributes:
		fa := *r
		a.result.FileAttributes = &fa
	case *AuditTrail:
		a.result.AuditTrail = append(a.result.AuditTrail, *r)
	case *LotOpen:
		a.applyLotOpen(r)
	case *LotClose:
		a.applyLotClose(r)
	case *PartCount:
		a.applyPartCount(r)
	case *BinSummary:
		a.applyBinSummary(r)
	case *WaferOpen:
		a.result.Wafers = append(a.result.Wafers, Wafer{
			ID:        r.WaferID,
			Head:      r.Head,
			StartTime: unixTime(r.StartTime),
		})
	case *WaferClose:
		a.applyWaferClose(r)
	case *PartStart:
		a.openParts[partSlot{r.Head, r.Site}]++
	case *PartFinished:
		a.applyPartFinished(r)
	case *TestSynopsis:
		a.result.TestSynopses = append(a.result.TestSynopses, *r)
		if r.Name != "" {
			if _, ok := a.testNames[r.Number]; !ok {
				a.testNames[r.Number] = r.Name
			}
		}
	case *ParametricTest:
		a.applyParametric(r)
	case *FunctionalTest:
		a.applyFunctional(r)
	case *DatalogText:
		a.result.DatalogText = append(a.result.DatalogText, r.Text)
	case *RawPayload:
		a.applyUnknown(r)
	}
}

func (a *Aggregator) applyLotOpen(r *LotOpen) {
	lot := &a.result.LotInfo
	setString(&lot.LotID, r.LotID)
	setString(&lot.SublotID, r.SublotID)
	setString(&lot.PartType, r.PartType)
	setString(&lot.NodeName, r.NodeName)
	setString(&lot.TesterType, r.TesterType)
	setString(&lot.JobName, r.JobName)
	setString(&lot.JobRevision, r.JobRevision)
	setString(&lot.OperatorName, r.OperatorName)
	setString(&lot.ExecType, r.ExecType)
	setString(&lot.ExecVersion, r.ExecVersion)
	setString(&lot.TestCode, r.TestCode)
	setString(&lot.Temperature, r.Temperature)
	setString(&lot.PackageType, r.PackageType)
	setString(&lot.FamilyID, r.FamilyID)
	setString(&lot.FacilityID, r.FacilityID)
	setString(&lot.FloorID, r.FloorID)
	setString(&lot.ProcessID, r.ProcessID)
	if r.ModeCode != 0 && r.ModeCode != ' ' {
		lot.ModeCode = string(rune(r.ModeCode))
	}
	if r.StationNumber != 0 {
		lot.StationNumber = r.StationNumber
	}
	if r.SetupTime != 0 {
		lot.SetupTime = unixTime(r.SetupTime)
	}
	if r.StartTime != 0 {
		lot.StartTime = unixTime(r.StartTime)
	}
}

func (a *Aggregator) applyLotClose(r *LotClose) {
	lot := &a.result.LotInfo
	if r.FinishTime != 0 {
		lot.FinishTime = unixTime(r.FinishTime)
	}
	if r.DispositionCode != 0 && r.DispositionCode != ' ' {
		lot.DispositionCode = string(rune(r.DispositionCode))
	}
	setString(&lot.UserDescription, r.UserDescription)
	setString(&lot.ExecDescription, r.ExecDescription)
}

func (a *Aggregator) applyPartCount(r *PartCount) {
	a.result.PartCounts = append(a.result.PartCounts, *r)
	if r.Head == AllSites {
		pc := *r
		a.lotCount = &pc
		return
	}
	a.siteCounts = append(a.siteCounts, *r)
}

func (a *Aggregator) applyBinSummary(r *BinSummary) {
	hist := a.result.SoftBins
	if r.Hard {
		hist = a.result.HardBins
	}
	e, ok := hist[r.Number]
	if !ok {
		// Named bins with no parts still show up, with a zero count.
		e = &BinEntry{Number: r.Number}
		hist[r.Number] = e
	}
	if r.Name != "" {
		e.Name = r.Name
	}
	if r.PassFail == 'P' || r.PassFail == 'F' {
		e.PassFail = string(rune(r.PassFail))
	}
}

func (a *Aggregator) applyWaferClose(r *WaferClose) {
	for i := len(a.result.Wafers) - 1; i >= 0; i-- {
		w := &a.result.Wafers[i]
		if w.Closed || w.Head != r.Head {
			continue
		}
		if r.WaferID != "" && w.ID != "" && w.ID != r.WaferID {
			continue
		}
		w.FinishTime = unixTime(r.FinishTime)
		w.PartCount = r.PartCount
		w.GoodCount = r.GoodCount
		w.Closed = true
		return
	}
	a.result.Wafers = append(a.result.Wafers, Wafer{
		ID:         r.WaferID,
		Head:       r.Head,
		FinishTime: unixTime(r.FinishTime),
		PartCount:  r.PartCount,
		GoodCount:  r.GoodCount,
		Closed:     true,
	})
}

func (a *Aggregator) applyPartFinished(r *PartFinished) {
	slot := partSlot{r.Head, r.Site}
	if n := a.openParts[slot]; n > 0 {
		if n == 1 {
			delete(a.openParts, slot)
		} else {
			a.openParts[slot] = n - 1
		}
	}

	part := PartResult{
		Head:      r.Head,
		Site:      r.Site,
		X:         r.X,
		Y:         r.Y,
		HardBin:   r.HardBin,
		SoftBin:   r.SoftBin,
		TestCount: r.NumTests,
		TestTime:  r.TestTime,
		PartFlags: r.PartFlags,
		Passed:    partPassed(r),
		PartID:    r.PartID,
		PartText:  r.PartText,
	}
	a.result.PartResults = append(a.result.PartResults, part)
	a.result.HardBins.increment(r.HardBin)
	a.result.SoftBins.increment(r.SoftBin)

	b := a.result.Sites.bucket(r.Site)
	b.Entries = append(b.Entries, SiteEntry{Kind: EntryPart, Index: len(a.result.PartResults) - 1})
	b.Parts++
	if part.Passed {
		b.Passed++
	}
}

func (a *Aggregator) applyParametric(r *ParametricTest) {
	name := r.Text
	if name == "" {
		name = a.testNames[r.Number]
	} else if _, ok := a.testNames[r.Number]; !ok {
		a.testNames[r.Number] = name
	}

	res := &ParametricResult{
		TestNumber:     r.Number,
		TestName:       name,
		Head:           r.Head,
		Site:           r.Site,
		Value:          r.Result,
		Units:          r.Units,
		LowLimit:       r.LowLimit,
		HighLimit:      r.HighLimit,
		ResultScale:    r.ResultScale,
		LowLimitScale:  r.LowScale,
		HighLimitScale: r.HighScale,
		LowSpec:        r.LowSpec,
		HighSpec:       r.HighSpec,
		AlarmID:        r.AlarmID,
		TestFlags:      r.TestFlags,
		ParmFlags:      r.ParmFlags,
		OptFlags:       r.OptFlags,
		Passed:         parametricPassed(r),
	}
	a.addTest(TestResult{Kind: TestParametric, Parametric: res}, r.Site)
}

func (a *Aggregator) applyFunctional(r *FunctionalTest) {
	res := &FunctionalResult{
		TestNumber:   r.Number,
		Head:         r.Head,
		Site:         r.Site,
		CycleCount:   r.CycleCount,
		RelVecAddr:   r.RelVecAddr,
		RepeatCount:  r.RepeatCount,
		FailCount:    r.FailCount,
		XFailAddr:    r.XFailAddr,
		YFailAddr:    r.YFailAddr,
		VectorOffset: r.VectorOffset,
		VectorName:   r.VectorName,
		TimeSet:      r.TimeSet,
		OpCode:       r.OpCode,
		TestText:     r.Text,
		AlarmID:      r.AlarmID,
		ProgramText:  r.ProgramText,
		ResultText:   r.ResultText,
		TestFlags:    r.TestFlags,
		OptFlags:     r.OptFlags,
		Passed:       r.TestFlags&TestFlagFailed == 0,
	}
	a.addTest(TestResult{Kind: TestFunctional, Functional: res}, r.Site)
}

func (a *Aggregator) addTest(t TestResult, site uint8) {
	a.result.TestResults = append(a.result.TestResults, t)
	b := a.result.Sites.bucket(site)
	b.Entries = append(b.Entries, SiteEntry{Kind: EntryTest, Index: len(a.result.TestResults) - 1})
	b.Tests++
}

func (a *Aggregator) applyUnknown(r *RawPayload) {
	a.result.Unknown = append(a.result.Unknown, *r)
	if a.seenUnknown[r.RecordKey] {
		return
	}
	a.seenUnknown[r.RecordKey] = true
	a.Warn(Warning{
		Kind:    WarnUnknownRecordType,
		Offset:  r.Offset,
		Type:    r.RecordKey.Type,
		Sub:     r.RecordKey.Sub,
		Message: fmt.Sprintf("no decoder for record %s, payload kept (%d bytes)", r.RecordKey, len(r.Data)),
	})
}

// Finish computes the summary, runs cross-validation and returns the result.
// The aggregator must not be used afterwards.
func (a *Aggregator) Finish() *Result {
	if a.finished {
		return a.result
	}
	a.finished = true
	res := a.result

	for _, p := range res.PartResults {
		res.Summary.TotalParts++
		if p.Passed {
			res.Summary.PassedParts++
		}
	}
	res.Summary.FailedParts = res.Summary.TotalParts - res.Summary.PassedParts
	res.Summary.YieldPercent = yieldPercent(res.Summary.PassedParts, res.Summary.TotalParts)

	if count, ok := a.combinedPartCount(); ok {
		res.LotInfo.LotSize = int(count.PartCount)
		a.crossValidate(count)
	} else {
		res.LotInfo.LotSize = res.Summary.TotalParts
	}

	slots := make([]partSlot, 0, len(a.openParts))
	for slot := range a.openParts {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].head != slots[j].head {
			return slots[i].head < slots[j].head
		}
		return slots[i].site < slots[j].site
	})
	for _, slot := range slots {
		n := a.openParts[slot]
		a.Warn(Warning{
			Kind:    WarnIncompletePart,
			Type:    KeyPartStart.Type,
			Sub:     KeyPartStart.Sub,
			Message: fmt.Sprintf("%d part(s) started on head %d site %d never finished", n, slot.head, slot.site),
		})
	}
	return res
}

// combinedPartCount prefers the lot-wide count and falls back to summing per-site ones.
func (a *Aggregator) combinedPartCount() (PartCount, bool) {
	if a.lotCount != nil {
		return *a.lotCount, true
	}
	if len(a.siteCounts) == 0 {
		return PartCount{}, false
	}
	sum := PartCount{Head: AllSites, Site: AllSites}
	for _, c := range a.siteCounts {
		sum.PartCount += c.PartCount
		sum.RetestCnt += c.RetestCnt
		sum.AbortCnt += c.AbortCnt
		sum.GoodCount += c.GoodCount
		sum.FunctCount += c.FunctCount
	}
	return sum, true
}

func (a *Aggregator) crossValidate(count PartCount) {
	s := a.result.Summary
	check := func(field string, declared uint32, derived int) {
		if int(declared) == derived {
			return
		}
		msg := fmt.Sprintf("part count record says %s=%d, part results give %d", field, declared, derived)
		a.logger.WithFields(logrus.Fields{
			"field":    field,
			"declared": declared,
			"derived":  derived,
		}).Warn("Part count cross-validation mismatch")
		a.Warn(Warning{
			Kind:    WarnCrossValidationMismatch,
			Type:    KeyPartCount.Type,
			Sub:     KeyPartCount.Sub,
			Message: msg,
		})
	}
	check("part_cnt", count.PartCount, s.TotalParts)
	// A good count of all-ones means the tester did not record it.
	if count.GoodCount != 0xFFFFFFFF {
		check("good_cnt", count.GoodCount, s.PassedParts)
	}
}

func partPassed(r *PartFinished) bool {
	if r.PartFlags&PartFlagNoPassFail != 0 {
		return r.HardBin == 1
	}
	return r.PartFlags&PartFlagFailed == 0
}

// parametricPassed applies the fail flag and the limits. A NaN limit is
// ignored; a NaN or infinite result fails against any remaining limit.
func parametricPassed(r *ParametricTest) bool {
	if r.TestFlags&TestFlagFailed != 0 {
		return false
	}
	low := usableLimit(r.LowLimit)
	high := usableLimit(r.HighLimit)
	if low == nil && high == nil {
		return true
	}
	v := float64(r.Result)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if low != nil && r.Result < *low {
		return false
	}
	if high != nil && r.Result > *high {
		return false
	}
	return true
}

func usableLimit(p *float32) *float32 {
	if p == nil || math.IsNaN(float64(*p)) {
		return nil
	}
	return p
}

func yieldPercent(passed, total int) float64 {
	if total <= 0 {
		return 0
	}
	y := float64(passed) / float64(total) * 100
	switch {
	case y < 0:
		return 0
	case y > 100:
		return 100
	}
	return y
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func unixTime(sec uint32) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
