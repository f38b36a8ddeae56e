/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decoders.go
Description: Record type decoders and the capability table that maps each explicit
(type, subtype) pair to its decoder. Records without an entry are preserved as opaque
payloads so unknown kinds never abort a decode.
*/

package stdf

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// decodeFunc turns a payload into a typed record
type decodeFunc func(r *FieldReader) (Record, error)

type decoderEntry struct {
	name   string
	decode decodeFunc
}

var decoders = map[RecordKey]decoderEntry{}

func register(key RecordKey, name string, fn decodeFunc) {
	if existing, ok := decoders[key]; ok {
		panic(fmt.Sprintf("stdf: record %s registered twice (%s, %s)", key, existing.name, name))
	}
	decoders[key] = decoderEntry{name: name, decode: fn}
}

func init() {
	register(KeyFileAttributes, "FAR", decodeFileAttributes)
	register(KeyAuditTrail, "ATR", decodeAuditTrail)
	register(KeyLotOpen, "MIR", decodeLotOpen)
	register(KeyLotClose, "MRR", decodeLotClose)
	register(KeyPartCount, "PCR", decodePartCount)
	register(KeyHardBin, "HBR", decodeBinSummary(true))
	register(KeySoftBin, "SBR", decodeBinSummary(false))
	register(KeyWaferOpen, "WIR", decodeWaferOpen)
	register(KeyWaferClose, "WRR", decodeWaferClose)
	register(KeyPartStart, "PIR", decodePartStart)
	register(KeyPartFinished, "PRR", decodePartFinished)
	register(KeyTestSynopsis, "TSR", decodeTestSynopsis)
	register(KeyParametricTest, "PTR", decodeParametricTest)
	register(KeyFunctionalTest, "FTR", decodeFunctionalTest)
	register(KeyDatalogText, "DTR", decodeDatalogText)
}

// RecordName returns the short mnemonic for a known record kind, or its codes.
func RecordName(key RecordKey) string {
	if e, ok := decoders[key]; ok {
		return e.name
	}
	return key.String()
}

// IsKnown reports whether a decoder is registered for key.
func IsKnown(key RecordKey) bool {
	_, ok := decoders[key]
	return ok
}

// DecodePayload decodes one record payload. Unknown kinds come back as a
// *RawPayload holding a copy of the bytes; a failed read returns an error
// matching ErrOutOfBounds.
func DecodePayload(key RecordKey, offset int, payload []byte) (Record, error) {
	entry, ok := decoders[key]
	if !ok {
		data := make([]byte, len(payload))
		copy(data, payload)
		return &RawPayload{RecordKey: key, Offset: offset, Data: data}, nil
	}
	rec, err := entry.decode(NewFieldReader(payload))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s at offset %d", entry.name, offset)
	}
	return rec, nil
}

// DecodeRecord decodes the payload a framed record points at in buf.
func DecodeRecord(raw RawRecord, buf []byte) (Record, error) {
	return DecodePayload(raw.Key(), raw.Offset, raw.Payload(buf))
}

// fields is a sticky-error cursor: after the first failure every read is a no-op.
type fields struct {
	r   *FieldReader
	err error
}

func (f *fields) u1(dst *uint8) {
	if f.err == nil {
		*dst, f.err = f.r.U1()
	}
}

func (f *fields) u2(dst *uint16) {
	if f.err == nil {
		*dst, f.err = f.r.U2()
	}
}

func (f *fields) u4(dst *uint32) {
	if f.err == nil {
		*dst, f.err = f.r.U4()
	}
}

func (f *fields) c1(dst *byte) {
	if f.err == nil {
		*dst, f.err = f.r.C1()
	}
}

func (f *fields) i2(dst *int16) {
	if f.err == nil {
		*dst, f.err = f.r.I2()
	}
}

func (f *fields) r4(dst *float32) {
	if f.err == nil {
		*dst, f.err = f.r.R4()
	}
}

func (f *fields) cn(dst *string) {
	if f.err == nil {
		*dst, f.err = f.r.Cn()
	}
}

// trailing reads strings that may be cut off the end of the record.
func (f *fields) trailing(dsts ...*string) {
	for _, dst := range dsts {
		if f.err != nil {
			return
		}
		*dst, f.err = f.r.OptionalCn()
	}
}

func decodeFileAttributes(r *FieldReader) (Record, error) {
	rec := &FileAttributes{}
	f := fields{r: r}
	f.u1(&rec.CPUType)
	f.u1(&rec.Version)
	return rec, f.err
}

func decodeAuditTrail(r *FieldReader) (Record, error) {
	rec := &AuditTrail{}
	f := fields{r: r}
	f.u4(&rec.ModTime)
	f.trailing(&rec.CommandLine)
	return rec, f.err
}

func decodeLotOpen(r *FieldReader) (Record, error) {
	rec := &LotOpen{}
	f := fields{r: r}
	f.u4(&rec.SetupTime)
	f.u4(&rec.StartTime)
	f.u1(&rec.StationNumber)
	f.c1(&rec.ModeCode)
	f.c1(&rec.RetestCode)
	f.c1(&rec.ProtectCode)
	f.u2(&rec.BurnInTime)
	f.c1(&rec.CommandMode)
	f.cn(&rec.LotID)
	f.cn(&rec.PartType)
	f.cn(&rec.NodeName)
	f.cn(&rec.TesterType)
	f.cn(&rec.JobName)
	f.trailing(
		&rec.JobRevision, &rec.SublotID, &rec.OperatorName, &rec.ExecType,
		&rec.ExecVersion, &rec.TestCode, &rec.Temperature, &rec.UserText,
		&rec.AuxFile, &rec.PackageType, &rec.FamilyID, &rec.DateCode,
		&rec.FacilityID, &rec.FloorID, &rec.ProcessID,
	)
	return rec, f.err
}

func decodeLotClose(r *FieldReader) (Record, error) {
	rec := &LotClose{}
	f := fields{r: r}
	f.u4(&rec.FinishTime)
	if r.Remaining() > 0 {
		f.c1(&rec.DispositionCode)
	}
	f.trailing(&rec.UserDescription, &rec.ExecDescription)
	return rec, f.err
}

func decodePartCount(r *FieldReader) (Record, error) {
	rec := &PartCount{}
	f := fields{r: r}
	f.u1(&rec.Head)
	f.u1(&rec.Site)
	f.u4(&rec.PartCount)
	f.u4(&rec.RetestCnt)
	f.u4(&rec.AbortCnt)
	f.u4(&rec.GoodCount)
	f.u4(&rec.FunctCount)
	return rec, f.err
}

func decodeBinSummary(hard bool) decodeFunc {
	return func(r *FieldReader) (Record, error) {
		rec := &BinSummary{Hard: hard}
		f := fields{r: r}
		f.u1(&rec.Head)
		f.u1(&rec.Site)
		f.u2(&rec.Number)
		f.u4(&rec.Count)
		if f.err == nil && r.Remaining() > 0 {
			f.c1(&rec.PassFail)
		}
		f.trailing(&rec.Name)
		return rec, f.err
	}
}

func decodeWaferOpen(r *FieldReader) (Record, error) {
	rec := &WaferOpen{}
	f := fields{r: r}
	f.u1(&rec.Head)
	f.u1(&rec.SiteGroup)
	f.u4(&rec.StartTime)
	f.trailing(&rec.WaferID)
	return rec, f.err
}

func decodeWaferClose(r *FieldReader) (Record, error) {
	rec := &WaferClose{}
	f := fields{r: r}
	f.u1(&rec.Head)
	f.u1(&rec.SiteGroup)
	f.u4(&rec.FinishTime)
	f.u4(&rec.PartCount)
	f.u4(&rec.RetestCnt)
	f.u4(&rec.AbortCnt)
	f.u4(&rec.GoodCount)
	f.u4(&rec.FunctCount)
	f.trailing(&rec.WaferID)
	return rec, f.err
}

func decodePartStart(r *FieldReader) (Record, error) {
	rec := &PartStart{}
	f := fields{r: r}
	f.u1(&rec.Head)
	f.u1(&rec.Site)
	return rec, f.err
}

func decodePartFinished(r *FieldReader) (Record, error) {
	rec := &PartFinished{}
	f := fields{r: r}
	f.u1(&rec.Head)
	f.u1(&rec.Site)
	f.u1(&rec.PartFlags)
	f.u2(&rec.NumTests)
	f.u2(&rec.HardBin)
	f.u2(&rec.SoftBin)
	f.i2(&rec.X)
	f.i2(&rec.Y)
	f.u4(&rec.TestTime)
	f.trailing(&rec.PartID, &rec.PartText)
	return rec, f.err
}

func decodeTestSynopsis(r *FieldReader) (Record, error) {
	rec := &TestSynopsis{}
	f := fields{r: r}
	f.u1(&rec.Head)
	f.u1(&rec.Site)
	f.c1(&rec.TestType)
	f.u4(&rec.Number)
	f.u4(&rec.ExecCount)
	f.u4(&rec.FailCount)
	f.u4(&rec.AlarmCnt)
	f.trailing(&rec.Name, &rec.Sequencer, &rec.Label)
	return rec, f.err
}

func decodeParametricTest(r *FieldReader) (Record, error) {
	rec := &ParametricTest{}
	f := fields{r: r}
	f.u4(&rec.Number)
	f.u1(&rec.Head)
	f.u1(&rec.Site)
	f.u1(&rec.TestFlags)
	f.u1(&rec.ParmFlags)
	f.r4(&rec.Result)
	f.cn(&rec.Text)
	f.cn(&rec.AlarmID)
	f.u1(&rec.OptFlags)
	if f.err != nil {
		return nil, f.err
	}
	if err := applyOptional(r, rec.OptFlags, parametricOptional, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeFunctionalTest(r *FieldReader) (Record, error) {
	rec := &FunctionalTest{}
	f := fields{r: r}
	f.u4(&rec.Number)
	f.u1(&rec.Head)
	f.u1(&rec.Site)
	f.u1(&rec.TestFlags)
	f.u1(&rec.OptFlags)
	if f.err != nil {
		return nil, f.err
	}
	if err := applyOptional(r, rec.OptFlags, functionalOptional, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeDatalogText(r *FieldReader) (Record, error) {
	rec := &DatalogText{}
	f := fields{r: r}
	f.cn(&rec.Text)
	return rec, f.err
}
