/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: result.go
Description: Structured output of a decode pass: lot metadata, test and part results,
bin histograms, per-site buckets, summary counters and warnings. Consumers treat a
Result as read-only and Clone it when they need to derive a modified copy.
*/

package stdf

import (
	"encoding/json"
	"math"
	"slices"
	"sort"
	"time"
)

// LotInfo is the merged lot context of a file
type LotInfo struct {
	LotID           string    `json:"lot_id"`
	SublotID        string    `json:"sublot_id,omitempty"`
	PartType        string    `json:"part_type"`
	NodeName        string    `json:"node_name"`
	TesterType      string    `json:"tester_type"`
	JobName         string    `json:"job_name"`
	JobRevision     string    `json:"job_revision,omitempty"`
	OperatorName    string    `json:"operator_name,omitempty"`
	ExecType        string    `json:"exec_type,omitempty"`
	ExecVersion     string    `json:"exec_version,omitempty"`
	TestCode        string    `json:"test_code,omitempty"`
	Temperature     string    `json:"temperature,omitempty"`
	PackageType     string    `json:"package_type,omitempty"`
	FamilyID        string    `json:"family_id,omitempty"`
	FacilityID      string    `json:"facility_id,omitempty"`
	FloorID         string    `json:"floor_id,omitempty"`
	ProcessID       string    `json:"process_id,omitempty"`
	StationNumber   uint8     `json:"station_number"`
	ModeCode        string    `json:"mode_code,omitempty"`
	SetupTime       time.Time `json:"setup_time"`
	StartTime       time.Time `json:"start_time"`
	FinishTime      time.Time `json:"finish_time"`
	DispositionCode string    `json:"disposition_code,omitempty"`
	UserDescription string    `json:"user_description,omitempty"`
	ExecDescription string    `json:"exec_description,omitempty"`
	LotSize         int       `json:"lot_size"`
}

// TestKind tags a TestResult
type TestKind int

const (
	TestParametric TestKind = iota
	TestFunctional
)

func (k TestKind) String() string {
	if k == TestFunctional {
		return "functional"
	}
	return "parametric"
}

// MarshalText renders the kind by name.
func (k TestKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParametricResult is one parametric measurement with its verdict
type ParametricResult struct {
	TestNumber     uint32   `json:"test_number"`
	TestName       string   `json:"test_name"`
	Head           uint8    `json:"head"`
	Site           uint8    `json:"site"`
	Value          float32  `json:"value"`
	Units          string   `json:"units,omitempty"`
	LowLimit       *float32 `json:"low_limit,omitempty"`
	HighLimit      *float32 `json:"high_limit,omitempty"`
	ResultScale    *int8    `json:"result_scale,omitempty"`
	LowLimitScale  *int8    `json:"low_limit_scale,omitempty"`
	HighLimitScale *int8    `json:"high_limit_scale,omitempty"`
	LowSpec        *float32 `json:"low_spec,omitempty"`
	HighSpec       *float32 `json:"high_spec,omitempty"`
	AlarmID        string   `json:"alarm_id,omitempty"`
	TestFlags      uint8    `json:"test_flags"`
	ParmFlags      uint8    `json:"parm_flags"`
	OptFlags       uint8    `json:"opt_flags"`
	Passed         bool     `json:"passed"`
}

// jsonFloat encodes NaN and infinities as null, which JSON cannot represent.
type jsonFloat float32

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float32(f))
}

func jsonFloatPtr(p *float32) *jsonFloat {
	if p == nil {
		return nil
	}
	v := jsonFloat(*p)
	return &v
}

// MarshalJSON writes non-finite measurements and limits as null. An absent
// limit is still omitted.
func (p ParametricResult) MarshalJSON() ([]byte, error) {
	type plain ParametricResult
	return json.Marshal(struct {
		plain
		Value     jsonFloat  `json:"value"`
		LowLimit  *jsonFloat `json:"low_limit,omitempty"`
		HighLimit *jsonFloat `json:"high_limit,omitempty"`
		LowSpec   *jsonFloat `json:"low_spec,omitempty"`
		HighSpec  *jsonFloat `json:"high_spec,omitempty"`
	}{
		plain:     plain(p),
		Value:     jsonFloat(p.Value),
		LowLimit:  jsonFloatPtr(p.LowLimit),
		HighLimit: jsonFloatPtr(p.HighLimit),
		LowSpec:   jsonFloatPtr(p.LowSpec),
		HighSpec:  jsonFloatPtr(p.HighSpec),
	})
}

func (p *ParametricResult) clone() *ParametricResult {
	c := *p
	c.LowLimit = clonePtr(p.LowLimit)
	c.HighLimit = clonePtr(p.HighLimit)
	c.ResultScale = clonePtr(p.ResultScale)
	c.LowLimitScale = clonePtr(p.LowLimitScale)
	c.HighLimitScale = clonePtr(p.HighLimitScale)
	c.LowSpec = clonePtr(p.LowSpec)
	c.HighSpec = clonePtr(p.HighSpec)
	return &c
}

// FunctionalResult is one functional test outcome with its verdict
type FunctionalResult struct {
	TestNumber   uint32  `json:"test_number"`
	Head         uint8   `json:"head"`
	Site         uint8   `json:"site"`
	CycleCount   *uint32 `json:"cycle_count,omitempty"`
	RelVecAddr   *uint32 `json:"rel_vector_addr,omitempty"`
	RepeatCount  *uint32 `json:"repeat_count,omitempty"`
	FailCount    *uint32 `json:"fail_count,omitempty"`
	XFailAddr    *int32  `json:"x_fail_addr,omitempty"`
	YFailAddr    *int32  `json:"y_fail_addr,omitempty"`
	VectorOffset *int16  `json:"vector_offset,omitempty"`
	VectorName   string  `json:"vector_name,omitempty"`
	TimeSet      string  `json:"time_set,omitempty"`
	OpCode       string  `json:"op_code,omitempty"`
	TestText     string  `json:"test_text,omitempty"`
	AlarmID      string  `json:"alarm_id,omitempty"`
	ProgramText  string  `json:"program_text,omitempty"`
	ResultText   string  `json:"result_text,omitempty"`
	TestFlags    uint8   `json:"test_flags"`
	OptFlags     uint8   `json:"opt_flags"`
	Passed       bool    `json:"passed"`
}

func (f *FunctionalResult) clone() *FunctionalResult {
	c := *f
	c.CycleCount = clonePtr(f.CycleCount)
	c.RelVecAddr = clonePtr(f.RelVecAddr)
	c.RepeatCount = clonePtr(f.RepeatCount)
	c.FailCount = clonePtr(f.FailCount)
	c.XFailAddr = clonePtr(f.XFailAddr)
	c.YFailAddr = clonePtr(f.YFailAddr)
	c.VectorOffset = clonePtr(f.VectorOffset)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// TestResult is a parametric or functional result tagged by kind.
// Exactly one of Parametric and Functional is set.
type TestResult struct {
	Kind       TestKind          `json:"kind"`
	Parametric *ParametricResult `json:"parametric,omitempty"`
	Functional *FunctionalResult `json:"functional,omitempty"`
}

// Number returns the test number regardless of kind.
func (t TestResult) Number() uint32 {
	if t.Kind == TestFunctional {
		return t.Functional.TestNumber
	}
	return t.Parametric.TestNumber
}

// Site returns the site number regardless of kind.
func (t TestResult) Site() uint8 {
	if t.Kind == TestFunctional {
		return t.Functional.Site
	}
	return t.Parametric.Site
}

// Passed returns the verdict regardless of kind.
func (t TestResult) Passed() bool {
	if t.Kind == TestFunctional {
		return t.Functional.Passed
	}
	return t.Parametric.Passed
}

// PartResult is one finished part
type PartResult struct {
	Head      uint8  `json:"head"`
	Site      uint8  `json:"site"`
	X         int16  `json:"x"`
	Y         int16  `json:"y"`
	HardBin   uint16 `json:"hard_bin"`
	SoftBin   uint16 `json:"soft_bin"`
	TestCount uint16 `json:"test_count"`
	TestTime  uint32 `json:"test_time_ms"`
	PartFlags uint8  `json:"part_flags"`
	Passed    bool   `json:"passed"`
	PartID    string `json:"part_id"`
	PartText  string `json:"part_text,omitempty"`
}

// BinEntry is one histogram bucket. Count only ever comes from part results.
type BinEntry struct {
	Number   uint16 `json:"number"`
	Count    int    `json:"count"`
	Name     string `json:"name,omitempty"`
	PassFail string `json:"pass_fail,omitempty"`
}

// BinHistogram maps bin number to its entry
type BinHistogram map[uint16]*BinEntry

func (h BinHistogram) increment(bin uint16) {
	if e, ok := h[bin]; ok {
		e.Count++
		return
	}
	h[bin] = &BinEntry{Number: bin, Count: 1}
}

// Total returns the sum of all counts.
func (h BinHistogram) Total() int {
	total := 0
	for _, e := range h {
		total += e.Count
	}
	return total
}

// Sorted returns the entries in ascending bin order.
func (h BinHistogram) Sorted() []BinEntry {
	out := make([]BinEntry, 0, len(h))
	for _, e := range h {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Counts returns a plain bin → count map.
func (h BinHistogram) Counts() map[uint16]int {
	out := make(map[uint16]int, len(h))
	for n, e := range h {
		out[n] = e.Count
	}
	return out
}

func (h BinHistogram) clone() BinHistogram {
	out := make(BinHistogram, len(h))
	for n, e := range h {
		c := *e
		out[n] = &c
	}
	return out
}

// EntryKind tags a SiteEntry
type EntryKind int

const (
	EntryTest EntryKind = iota
	EntryPart
)

// SiteEntry points at a TestResult or PartResult by index
type SiteEntry struct {
	Kind  EntryKind `json:"kind"`
	Index int       `json:"index"`
}

// SiteBucket lists the results observed at one site in stream order
type SiteBucket struct {
	Site    uint8       `json:"site"`
	Entries []SiteEntry `json:"entries"`
	Tests   int         `json:"tests"`
	Parts   int         `json:"parts"`
	Passed  int         `json:"passed"`
}

// SiteBuckets is an ordered site → bucket mapping
type SiteBuckets struct {
	order   []uint8
	buckets map[uint8]*SiteBucket
}

func newSiteBuckets() SiteBuckets {
	return SiteBuckets{buckets: map[uint8]*SiteBucket{}}
}

func (s *SiteBuckets) bucket(site uint8) *SiteBucket {
	if b, ok := s.buckets[site]; ok {
		return b
	}
	b := &SiteBucket{Site: site}
	s.buckets[site] = b
	i, _ := slices.BinarySearch(s.order, site)
	s.order = slices.Insert(s.order, i, site)
	return b
}

// Sites returns the observed site numbers in ascending order.
func (s SiteBuckets) Sites() []uint8 {
	return slices.Clone(s.order)
}

// Get returns the bucket for site.
func (s SiteBuckets) Get(site uint8) (*SiteBucket, bool) {
	b, ok := s.buckets[site]
	return b, ok
}

// Len returns the number of sites.
func (s SiteBuckets) Len() int {
	return len(s.order)
}

// All returns the buckets in ascending site order.
func (s SiteBuckets) All() []*SiteBucket {
	out := make([]*SiteBucket, 0, len(s.order))
	for _, site := range s.order {
		out = append(out, s.buckets[site])
	}
	return out
}

// MarshalJSON renders the buckets as an ordered list.
func (s SiteBuckets) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.All())
}

func (s SiteBuckets) clone() SiteBuckets {
	out := SiteBuckets{order: slices.Clone(s.order), buckets: make(map[uint8]*SiteBucket, len(s.buckets))}
	for site, b := range s.buckets {
		c := *b
		c.Entries = slices.Clone(b.Entries)
		out.buckets[site] = &c
	}
	return out
}

// Summary holds the end-of-pass counters
type Summary struct {
	TotalParts   int     `json:"total_parts"`
	PassedParts  int     `json:"passed_parts"`
	FailedParts  int     `json:"failed_parts"`
	YieldPercent float64 `json:"yield_percent"`
}

// Wafer pairs a wafer open record with its close record
type Wafer struct {
	ID         string    `json:"id"`
	Head       uint8     `json:"head"`
	StartTime  time.Time `json:"start_time"`
	FinishTime time.Time `json:"finish_time"`
	PartCount  uint32    `json:"part_count"`
	GoodCount  uint32    `json:"good_count"`
	Closed     bool      `json:"closed"`
}

// Result is the structured output of one decode pass
type Result struct {
	FileAttributes *FileAttributes   `json:"file_attributes,omitempty"`
	LotInfo        LotInfo           `json:"lot_info"`
	TestResults    []TestResult      `json:"test_results"`
	PartResults    []PartResult      `json:"part_results"`
	HardBins       BinHistogram      `json:"hard_bins"`
	SoftBins       BinHistogram      `json:"soft_bins"`
	Sites          SiteBuckets       `json:"sites"`
	Summary        Summary           `json:"summary"`
	Warnings       []Warning         `json:"warnings"`
	PartCounts     []PartCount       `json:"part_counts,omitempty"`
	Wafers         []Wafer           `json:"wafers,omitempty"`
	TestSynopses   []TestSynopsis    `json:"test_synopses,omitempty"`
	AuditTrail     []AuditTrail      `json:"audit_trail,omitempty"`
	DatalogText    []string          `json:"datalog_text,omitempty"`
	Unknown        []RawPayload      `json:"unknown,omitempty"`
	RecordCounts   map[RecordKey]int `json:"-"`
	RecordsByName  map[string]int    `json:"record_counts"`
}

// SiteTests returns the test results recorded at site, in stream order.
func (r *Result) SiteTests(site uint8) []TestResult {
	b, ok := r.Sites.Get(site)
	if !ok {
		return nil
	}
	out := make([]TestResult, 0, b.Tests)
	for _, e := range b.Entries {
		if e.Kind == EntryTest {
			out = append(out, r.TestResults[e.Index])
		}
	}
	return out
}

// SiteParts returns the part results recorded at site, in stream order.
func (r *Result) SiteParts(site uint8) []PartResult {
	b, ok := r.Sites.Get(site)
	if !ok {
		return nil
	}
	out := make([]PartResult, 0, b.Parts)
	for _, e := range b.Entries {
		if e.Kind == EntryPart {
			out = append(out, r.PartResults[e.Index])
		}
	}
	return out
}

// HasWarning reports whether any warning of kind was recorded.
func (r *Result) HasWarning(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that callers may modify freely.
func (r *Result) Clone() *Result {
	c := *r
	if r.FileAttributes != nil {
		fa := *r.FileAttributes
		c.FileAttributes = &fa
	}
	c.TestResults = make([]TestResult, len(r.TestResults))
	for i, t := range r.TestResults {
		c.TestResults[i] = t
		if t.Parametric != nil {
			c.TestResults[i].Parametric = t.Parametric.clone()
		}
		if t.Functional != nil {
			c.TestResults[i].Functional = t.Functional.clone()
		}
	}
	c.PartResults = slices.Clone(r.PartResults)
	c.HardBins = r.HardBins.clone()
	c.SoftBins = r.SoftBins.clone()
	c.Sites = r.Sites.clone()
	c.Warnings = slices.Clone(r.Warnings)
	c.PartCounts = slices.Clone(r.PartCounts)
	c.Wafers = slices.Clone(r.Wafers)
	c.TestSynopses = slices.Clone(r.TestSynopses)
	c.AuditTrail = slices.Clone(r.AuditTrail)
	c.DatalogText = slices.Clone(r.DatalogText)
	c.Unknown = make([]RawPayload, len(r.Unknown))
	for i, u := range r.Unknown {
		c.Unknown[i] = u
		c.Unknown[i].Data = slices.Clone(u.Data)
	}
	c.RecordCounts = make(map[RecordKey]int, len(r.RecordCounts))
	for k, v := range r.RecordCounts {
		c.RecordCounts[k] = v
	}
	c.RecordsByName = make(map[string]int, len(r.RecordsByName))
	for k, v := range r.RecordsByName {
		c.RecordsByName[k] = v
	}
	return &c
}
