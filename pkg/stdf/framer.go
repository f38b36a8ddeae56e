/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: framer.go
Description: Record framer. Walks a complete buffer header by header and yields record
boundaries. Corrupt headers are stepped over a few bytes at a time so the valid part
of a partially written file is still recovered.
*/

package stdf

import (
	"encoding/binary"
	"fmt"
	"iter"
)

const (
	// HeaderSize is the fixed record header: length (U2), type (U1), subtype (U1).
	HeaderSize = 4

	// resyncStep is how far the framer advances past a corrupt header.
	resyncStep = 4
)

// RecordKey identifies a record kind by its type and subtype codes
type RecordKey struct {
	Type uint8 `json:"type"`
	Sub  uint8 `json:"sub"`
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%d/%d", k.Type, k.Sub)
}

// RawRecord is one framed record. Offset points at the header; the payload
// occupies [Offset+HeaderSize, Offset+HeaderSize+Length).
type RawRecord struct {
	Type   uint8
	Sub    uint8
	Length uint16
	Offset int
}

// Key returns the record's (type, subtype) pair.
func (r RawRecord) Key() RecordKey {
	return RecordKey{Type: r.Type, Sub: r.Sub}
}

// PayloadStart returns the offset of the first payload byte.
func (r RawRecord) PayloadStart() int {
	return r.Offset + HeaderSize
}

// End returns the offset just past the payload.
func (r RawRecord) End() int {
	return r.Offset + HeaderSize + int(r.Length)
}

// Payload slices the record's payload out of buf.
func (r RawRecord) Payload(buf []byte) []byte {
	return buf[r.PayloadStart():r.End()]
}

// Framer yields RawRecords from a buffer in file order. A Framer is single
// use: to restart, create a new one.
type Framer struct {
	buf       []byte
	off       int
	maxLength int
	warnings  []Warning
	done      bool
}

// NewFramer creates a framer over buf.
func NewFramer(buf []byte) *Framer {
	return &Framer{buf: buf}
}

// WithMaxRecordLength treats any header declaring a longer payload as corrupt.
// Zero disables the limit.
func (f *Framer) WithMaxRecordLength(n int) *Framer {
	f.maxLength = n
	return f
}

// Next returns the next valid record, or false once fewer than HeaderSize
// bytes remain.
func (f *Framer) Next() (RawRecord, bool) {
	for !f.done {
		remaining := len(f.buf) - f.off
		if remaining < HeaderSize {
			if remaining > 0 {
				f.warn(WarnCorruptRecordHeader, 0, 0,
					fmt.Sprintf("%d trailing bytes too short for a record header", remaining))
			}
			f.done = true
			break
		}

		length := binary.LittleEndian.Uint16(f.buf[f.off:])
		rec := RawRecord{
			Length: length,
			Type:   f.buf[f.off+2],
			Sub:    f.buf[f.off+3],
			Offset: f.off,
		}

		if rec.End() > len(f.buf) {
			f.warn(WarnCorruptRecordHeader, rec.Type, rec.Sub,
				fmt.Sprintf("declared length %d overruns buffer by %d bytes", length, rec.End()-len(f.buf)))
			f.off += resyncStep
			continue
		}
		if f.maxLength > 0 && int(length) > f.maxLength {
			f.warn(WarnCorruptRecordHeader, rec.Type, rec.Sub,
				fmt.Sprintf("declared length %d exceeds limit %d", length, f.maxLength))
			f.off += resyncStep
			continue
		}

		f.off = rec.End()
		return rec, true
	}
	return RawRecord{}, false
}

// All returns the remaining records as an iterator.
func (f *Framer) All() iter.Seq[RawRecord] {
	return func(yield func(RawRecord) bool) {
		for {
			rec, ok := f.Next()
			if !ok || !yield(rec) {
				return
			}
		}
	}
}

// Warnings returns the corrupt-header warnings collected so far.
func (f *Framer) Warnings() []Warning {
	return f.warnings
}

func (f *Framer) warn(kind WarningKind, typ, sub uint8, msg string) {
	f.warnings = append(f.warnings, Warning{
		Kind:    kind,
		Offset:  f.off,
		Type:    typ,
		Sub:     sub,
		Message: msg,
	})
}
