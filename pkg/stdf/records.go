/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: records.go
Description: Typed record payloads produced by the record decoders. Each type mirrors
the field order of its record on the wire; optional fields are pointers that stay nil
when the record's flag byte says they are absent.
*/

package stdf

// Record kind codes
var (
	KeyFileAttributes = RecordKey{Type: 0, Sub: 10}
	KeyAuditTrail     = RecordKey{Type: 0, Sub: 20}
	KeyLotOpen        = RecordKey{Type: 1, Sub: 10}
	KeyLotClose       = RecordKey{Type: 1, Sub: 20}
	KeyPartCount      = RecordKey{Type: 1, Sub: 30}
	KeyHardBin        = RecordKey{Type: 1, Sub: 40}
	KeySoftBin        = RecordKey{Type: 1, Sub: 50}
	KeyWaferOpen      = RecordKey{Type: 2, Sub: 10}
	KeyWaferClose     = RecordKey{Type: 2, Sub: 20}
	KeyPartStart      = RecordKey{Type: 5, Sub: 10}
	KeyPartFinished   = RecordKey{Type: 5, Sub: 20}
	KeyTestSynopsis   = RecordKey{Type: 10, Sub: 30}
	KeyParametricTest = RecordKey{Type: 15, Sub: 10}
	KeyFunctionalTest = RecordKey{Type: 15, Sub: 20}
	KeyDatalogText    = RecordKey{Type: 50, Sub: 30}
)

// AllSites is the head number a part-count or bin record uses for lot totals.
const AllSites uint8 = 255

// Test flag bits shared by parametric and functional records
const (
	TestFlagFailed       uint8 = 0x80
	TestFlagPassInvalid  uint8 = 0x40
	TestFlagNotExecuted  uint8 = 0x10
	TestFlagTimeout      uint8 = 0x08
	TestFlagAlarm        uint8 = 0x01
	PartFlagFailed       uint8 = 0x08
	PartFlagNoPassFail   uint8 = 0x10
	PartFlagAbnormalEnd  uint8 = 0x04
	PartFlagRetestPartID uint8 = 0x01
)

// Parametric OPT_FLAG presence bits
const (
	PTROptScales    uint8 = 0x01
	PTROptUnits     uint8 = 0x02
	PTROptLowSpec   uint8 = 0x04
	PTROptHighSpec  uint8 = 0x08
	PTROptLowLimit  uint8 = 0x10
	PTROptHighLimit uint8 = 0x20
)

// Functional OPT_FLAG presence bits
const (
	FTROptCycleCount  uint8 = 0x01
	FTROptRelVecAddr  uint8 = 0x02
	FTROptRepeatCount uint8 = 0x04
	FTROptFailCount   uint8 = 0x08
	FTROptFailAddress uint8 = 0x10
	FTROptVectorOff   uint8 = 0x20
	FTROptPatternText uint8 = 0x40
	FTROptTestText    uint8 = 0x80
)

// Record is implemented by every decoded payload
type Record interface {
	Key() RecordKey
}

// FileAttributes is the first record of a file
type FileAttributes struct {
	CPUType uint8 `json:"cpu_type"`
	Version uint8 `json:"version"`
}

func (*FileAttributes) Key() RecordKey { return KeyFileAttributes }

// AuditTrail records a modification of the file after it was written
type AuditTrail struct {
	ModTime     uint32 `json:"mod_time"`
	CommandLine string `json:"command_line"`
}

func (*AuditTrail) Key() RecordKey { return KeyAuditTrail }

// LotOpen carries lot-level metadata written when testing starts
type LotOpen struct {
	SetupTime     uint32
	StartTime     uint32
	StationNumber uint8
	ModeCode      byte
	RetestCode    byte
	ProtectCode   byte
	BurnInTime    uint16
	CommandMode   byte
	LotID         string
	PartType      string
	NodeName      string
	TesterType    string
	JobName       string
	JobRevision   string
	SublotID      string
	OperatorName  string
	ExecType      string
	ExecVersion   string
	TestCode      string
	Temperature   string
	UserText      string
	AuxFile       string
	PackageType   string
	FamilyID      string
	DateCode      string
	FacilityID    string
	FloorID       string
	ProcessID     string
}

func (*LotOpen) Key() RecordKey { return KeyLotOpen }

// LotClose carries lot-level metadata written when testing finishes
type LotClose struct {
	FinishTime      uint32
	DispositionCode byte
	UserDescription string
	ExecDescription string
}

func (*LotClose) Key() RecordKey { return KeyLotClose }

// PartCount summarizes parts tested on one site, or the whole lot when Head is AllSites
type PartCount struct {
	Head       uint8  `json:"head"`
	Site       uint8  `json:"site"`
	PartCount  uint32 `json:"part_count"`
	RetestCnt  uint32 `json:"retest_count"`
	AbortCnt   uint32 `json:"abort_count"`
	GoodCount  uint32 `json:"good_count"`
	FunctCount uint32 `json:"functional_count"`
}

func (*PartCount) Key() RecordKey { return KeyPartCount }

// BinSummary is a hardware or software bin summary line
type BinSummary struct {
	Hard     bool
	Head     uint8
	Site     uint8
	Number   uint16
	Count    uint32
	PassFail byte
	Name     string
}

func (b *BinSummary) Key() RecordKey {
	if b.Hard {
		return KeyHardBin
	}
	return KeySoftBin
}

// WaferOpen marks the start of a wafer
type WaferOpen struct {
	Head      uint8
	SiteGroup uint8
	StartTime uint32
	WaferID   string
}

func (*WaferOpen) Key() RecordKey { return KeyWaferOpen }

// WaferClose marks the end of a wafer with its counts
type WaferClose struct {
	Head       uint8
	SiteGroup  uint8
	FinishTime uint32
	PartCount  uint32
	RetestCnt  uint32
	AbortCnt   uint32
	GoodCount  uint32
	FunctCount uint32
	WaferID    string
}

func (*WaferClose) Key() RecordKey { return KeyWaferClose }

// PartStart marks a part being inserted on a site
type PartStart struct {
	Head uint8
	Site uint8
}

func (*PartStart) Key() RecordKey { return KeyPartStart }

// PartFinished is written when a part finishes testing
type PartFinished struct {
	Head      uint8
	Site      uint8
	PartFlags uint8
	NumTests  uint16
	HardBin   uint16
	SoftBin   uint16
	X         int16
	Y         int16
	TestTime  uint32
	PartID    string
	PartText  string
}

func (*PartFinished) Key() RecordKey { return KeyPartFinished }

// TestSynopsis summarizes one test over the lot or a site
type TestSynopsis struct {
	Head      uint8
	Site      uint8
	TestType  byte
	Number    uint32
	ExecCount uint32
	FailCount uint32
	AlarmCnt  uint32
	Name      string
	Sequencer string
	Label     string
}

func (*TestSynopsis) Key() RecordKey { return KeyTestSynopsis }

// ParametricTest is one measured value, optionally with limits and units
type ParametricTest struct {
	Number      uint32
	Head        uint8
	Site        uint8
	TestFlags   uint8
	ParmFlags   uint8
	Result      float32
	Text        string
	AlarmID     string
	OptFlags    uint8
	ResultScale *int8
	LowScale    *int8
	HighScale   *int8
	LowLimit    *float32
	HighLimit   *float32
	Units       string
	LowSpec     *float32
	HighSpec    *float32
}

func (*ParametricTest) Key() RecordKey { return KeyParametricTest }

// FunctionalTest is one functional (vector) test outcome
type FunctionalTest struct {
	Number       uint32
	Head         uint8
	Site         uint8
	TestFlags    uint8
	OptFlags     uint8
	CycleCount   *uint32
	RelVecAddr   *uint32
	RepeatCount  *uint32
	FailCount    *uint32
	XFailAddr    *int32
	YFailAddr    *int32
	VectorOffset *int16
	VectorName   string
	TimeSet      string
	OpCode       string
	Text         string
	AlarmID      string
	ProgramText  string
	ResultText   string
}

func (*FunctionalTest) Key() RecordKey { return KeyFunctionalTest }

// DatalogText is a free-form text line written into the datalog
type DatalogText struct {
	Text string
}

func (*DatalogText) Key() RecordKey { return KeyDatalogText }

// RawPayload preserves a record with no registered decoder
type RawPayload struct {
	RecordKey RecordKey `json:"key"`
	Offset    int       `json:"offset"`
	Data      []byte    `json:"data"`
}

func (r *RawPayload) Key() RecordKey { return r.RecordKey }
