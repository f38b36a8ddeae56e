/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: encoder_test.go
Description: Test-only record encoder. Writes records in the same layout the decoders
read so tests can build files field by field and check byte-exact round trips.
*/

package stdf

import (
	"encoding/binary"
	"fmt"
	"math"
)

type payloadWriter struct {
	buf []byte
}

func (w *payloadWriter) u1(v uint8)  { w.buf = append(w.buf, v) }
func (w *payloadWriter) i1(v int8)   { w.buf = append(w.buf, byte(v)) }
func (w *payloadWriter) u2(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *payloadWriter) i2(v int16)  { w.u2(uint16(v)) }
func (w *payloadWriter) u4(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *payloadWriter) i4(v int32)  { w.u4(uint32(v)) }
func (w *payloadWriter) r4(v float32) {
	w.u4(math.Float32bits(v))
}

func (w *payloadWriter) cn(s ...string) {
	for _, v := range s {
		if len(v) > 255 {
			panic(fmt.Sprintf("string of %d bytes does not fit a Cn field", len(v)))
		}
		w.u1(uint8(len(v)))
		w.buf = append(w.buf, v...)
	}
}

func (w *payloadWriter) optI1(p *int8) {
	if p != nil {
		w.i1(*p)
	}
}

func (w *payloadWriter) optR4(p *float32) {
	if p != nil {
		w.r4(*p)
	}
}

func (w *payloadWriter) optU4(p *uint32) {
	if p != nil {
		w.u4(*p)
	}
}

// encodePayload writes the payload bytes for rec.
func encodePayload(rec Record) []byte {
	w := &payloadWriter{}
	switch r := rec.(type) {
	case *FileAttributes:
		w.u1(r.CPUType)
		w.u1(r.Version)
	case *AuditTrail:
		w.u4(r.ModTime)
		w.cn(r.CommandLine)
	case *LotOpen:
		w.u4(r.SetupTime)
		w.u4(r.StartTime)
		w.u1(r.StationNumber)
		w.u1(r.ModeCode)
		w.u1(r.RetestCode)
		w.u1(r.ProtectCode)
		w.u2(r.BurnInTime)
		w.u1(r.CommandMode)
		w.cn(r.LotID, r.PartType, r.NodeName, r.TesterType, r.JobName,
			r.JobRevision, r.SublotID, r.OperatorName, r.ExecType, r.ExecVersion,
			r.TestCode, r.Temperature, r.UserText, r.AuxFile, r.PackageType,
			r.FamilyID, r.DateCode, r.FacilityID, r.FloorID, r.ProcessID)
	case *LotClose:
		w.u4(r.FinishTime)
		w.u1(r.DispositionCode)
		w.cn(r.UserDescription, r.ExecDescription)
	case *PartCount:
		w.u1(r.Head)
		w.u1(r.Site)
		w.u4(r.PartCount)
		w.u4(r.RetestCnt)
		w.u4(r.AbortCnt)
		w.u4(r.GoodCount)
		w.u4(r.FunctCount)
	case *BinSummary:
		w.u1(r.Head)
		w.u1(r.Site)
		w.u2(r.Number)
		w.u4(r.Count)
		w.u1(r.PassFail)
		w.cn(r.Name)
	case *WaferOpen:
		w.u1(r.Head)
		w.u1(r.SiteGroup)
		w.u4(r.StartTime)
		w.cn(r.WaferID)
	case *WaferClose:
		w.u1(r.Head)
		w.u1(r.SiteGroup)
		w.u4(r.FinishTime)
		w.u4(r.PartCount)
		w.u4(r.RetestCnt)
		w.u4(r.AbortCnt)
		w.u4(r.GoodCount)
		w.u4(r.FunctCount)
		w.cn(r.WaferID)
	case *PartStart:
		w.u1(r.Head)
		w.u1(r.Site)
	case *PartFinished:
		w.u1(r.Head)
		w.u1(r.Site)
		w.u1(r.PartFlags)
		w.u2(r.NumTests)
		w.u2(r.HardBin)
		w.u2(r.SoftBin)
		w.i2(r.X)
		w.i2(r.Y)
		w.u4(r.TestTime)
		w.cn(r.PartID, r.PartText)
	case *TestSynopsis:
		w.u1(r.Head)
		w.u1(r.Site)
		w.u1(r.TestType)
		w.u4(r.Number)
		w.u4(r.ExecCount)
		w.u4(r.FailCount)
		w.u4(r.AlarmCnt)
		w.cn(r.Name, r.Sequencer, r.Label)
	case *ParametricTest:
		w.u4(r.Number)
		w.u1(r.Head)
		w.u1(r.Site)
		w.u1(r.TestFlags)
		w.u1(r.ParmFlags)
		w.r4(r.Result)
		w.cn(r.Text, r.AlarmID)
		w.u1(r.OptFlags)
		if r.OptFlags&PTROptScales != 0 {
			w.optI1(r.ResultScale)
			w.optI1(r.LowScale)
			w.optI1(r.HighScale)
		}
		if r.OptFlags&PTROptLowLimit != 0 {
			w.optR4(r.LowLimit)
		}
		if r.OptFlags&PTROptHighLimit != 0 {
			w.optR4(r.HighLimit)
		}
		if r.OptFlags&PTROptUnits != 0 {
			w.cn(r.Units)
		}
		if r.OptFlags&PTROptLowSpec != 0 {
			w.optR4(r.LowSpec)
		}
		if r.OptFlags&PTROptHighSpec != 0 {
			w.optR4(r.HighSpec)
		}
	case *FunctionalTest:
		w.u4(r.Number)
		w.u1(r.Head)
		w.u1(r.Site)
		w.u1(r.TestFlags)
		w.u1(r.OptFlags)
		if r.OptFlags&FTROptCycleCount != 0 {
			w.optU4(r.CycleCount)
		}
		if r.OptFlags&FTROptRelVecAddr != 0 {
			w.optU4(r.RelVecAddr)
		}
		if r.OptFlags&FTROptRepeatCount != 0 {
			w.optU4(r.RepeatCount)
		}
		if r.OptFlags&FTROptFailCount != 0 {
			w.optU4(r.FailCount)
		}
		if r.OptFlags&FTROptFailAddress != 0 {
			w.i4(*r.XFailAddr)
			w.i4(*r.YFailAddr)
		}
		if r.OptFlags&FTROptVectorOff != 0 {
			w.i2(*r.VectorOffset)
		}
		if r.OptFlags&FTROptPatternText != 0 {
			w.cn(r.VectorName, r.TimeSet, r.OpCode)
		}
		if r.OptFlags&FTROptTestText != 0 {
			w.cn(r.Text, r.AlarmID, r.ProgramText, r.ResultText)
		}
	case *DatalogText:
		w.cn(r.Text)
	case *RawPayload:
		w.buf = append(w.buf, r.Data...)
	default:
		panic(fmt.Sprintf("no encoder for %T", rec))
	}
	return w.buf
}

// frame prefixes payload with a record header.
func frame(key RecordKey, payload []byte) []byte {
	out := binary.LittleEndian.AppendUint16(nil, uint16(len(payload)))
	out = append(out, key.Type, key.Sub)
	return append(out, payload...)
}

// encodeRecord frames one record.
func encodeRecord(rec Record) []byte {
	return frame(rec.Key(), encodePayload(rec))
}

// fileBuilder concatenates framed records into a file image.
type fileBuilder struct {
	buf []byte
}

func (b *fileBuilder) add(recs ...Record) *fileBuilder {
	for _, r := range recs {
		b.buf = append(b.buf, encodeRecord(r)...)
	}
	return b
}

func (b *fileBuilder) raw(data ...byte) *fileBuilder {
	b.buf = append(b.buf, data...)
	return b
}

func (b *fileBuilder) bytes() []byte {
	return b.buf
}

func f32(v float32) *float32 { return &v }
func i8(v int8) *int8       { return &v }
func u32(v uint32) *uint32  { return &v }
func i32(v int32) *int32    { return &v }
func i16(v int16) *int16    { return &v }

// lot42 builds a file with one lot of 100 parts on two sites: 95 pass into
// hard bin 1, 5 fail into hard bin 2. Every part gets one in-limit parametric
// test except the failing ones, which read above the high limit.
func lot42() []byte {
	b := &fileBuilder{}
	b.add(
		&FileAttributes{CPUType: 2, Version: 4},
		&LotOpen{
			SetupTime: 1700000000, StartTime: 1700000100, StationNumber: 1,
			ModeCode: 'P', LotID: "LOT42", PartType: "DEV9", NodeName: "node1",
			TesterType: "T2000", JobName: "final_test",
		},
	)
	for i := 0; i < 100; i++ {
		site := uint8(i % 2)
		fail := i >= 95
		value := float32(1.0)
		flags := uint8(0)
		hard, soft := uint16(1), uint16(1)
		if fail {
			value = 2.5
			flags = PartFlagFailed
			hard, soft = 2, 20
		}
		b.add(
			&PartStart{Head: 1, Site: site},
			&ParametricTest{
				Number: 1000, Head: 1, Site: site, Result: value, Text: "VDD_LEAK",
				OptFlags: PTROptLowLimit | PTROptHighLimit | PTROptUnits,
				LowLimit: f32(0.5), HighLimit: f32(2.0), Units: "uA",
			},
			&PartFinished{
				Head: 1, Site: site, PartFlags: flags, NumTests: 1,
				HardBin: hard, SoftBin: soft, X: int16(i), Y: int16(-i),
				TestTime: 120, PartID: fmt.Sprintf("P%03d", i),
			},
		)
	}
	b.add(
		&BinSummary{Hard: true, Head: AllSites, Number: 1, Count: 95, PassFail: 'P', Name: "PASS"},
		&BinSummary{Hard: true, Head: AllSites, Number: 2, Count: 5, PassFail: 'F', Name: "LEAKAGE"},
		&PartCount{Head: AllSites, Site: AllSites, PartCount: 100, GoodCount: 95},
		&LotClose{FinishTime: 1700003600, DispositionCode: 'A'},
	)
	return b.bytes()
}
