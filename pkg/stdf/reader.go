/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reader.go
Description: Primitive field reader for STDF payloads. Reads little-endian fixed-width
integers and floats plus length-prefixed strings from a byte buffer with explicit
bounds checks. Failed reads never move the offset.
*/

package stdf

import (
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf8"
)

// ReadU1 reads an unsigned byte at off and returns the value and the next offset.
func ReadU1(buf []byte, off int) (uint8, int, error) {
	if err := need(buf, off, 1); err != nil {
		return 0, off, err
	}
	return buf[off], off + 1, nil
}

// ReadU2 reads a little-endian uint16.
func ReadU2(buf []byte, off int) (uint16, int, error) {
	if err := need(buf, off, 2); err != nil {
		return 0, off, err
	}
	return binary.LittleEndian.Uint16(buf[off:]), off + 2, nil
}

// ReadU4 reads a little-endian uint32.
func ReadU4(buf []byte, off int) (uint32, int, error) {
	if err := need(buf, off, 4); err != nil {
		return 0, off, err
	}
	return binary.LittleEndian.Uint32(buf[off:]), off + 4, nil
}

// ReadI2 reads a little-endian int16.
func ReadI2(buf []byte, off int) (int16, int, error) {
	v, next, err := ReadU2(buf, off)
	return int16(v), next, err
}

// ReadR4 reads a little-endian IEEE-754 float32.
func ReadR4(buf []byte, off int) (float32, int, error) {
	v, next, err := ReadU4(buf, off)
	return math.Float32frombits(v), next, err
}

// ReadCn reads a string prefixed by a single length byte. Invalid UTF-8 is
// replaced rather than rejected: lot and device names are free-form text.
func ReadCn(buf []byte, off int) (string, int, error) {
	n, next, err := ReadU1(buf, off)
	if err != nil {
		return "", off, err
	}
	if err := need(buf, next, int(n)); err != nil {
		return "", off, err
	}
	return decodeText(buf[next : next+int(n)]), next + int(n), nil
}

func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}

func need(buf []byte, off, width int) error {
	if off < 0 || width < 0 || off > len(buf) || len(buf)-off < width {
		return outOfBounds(off, width, len(buf))
	}
	return nil
}

// FieldReader walks a single record payload, keeping the offset bookkeeping
// in one place so decoders read fields in declaration order.
type FieldReader struct {
	buf []byte
	off int
}

// NewFieldReader creates a reader positioned at the start of payload.
func NewFieldReader(payload []byte) *FieldReader {
	return &FieldReader{buf: payload}
}

// Offset returns the current read position.
func (r *FieldReader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *FieldReader) Remaining() int { return len(r.buf) - r.off }

// U1 reads an unsigned byte.
func (r *FieldReader) U1() (uint8, error) {
	v, next, err := ReadU1(r.buf, r.off)
	r.off = next
	return v, err
}

// U2 reads a little-endian uint16.
func (r *FieldReader) U2() (uint16, error) {
	v, next, err := ReadU2(r.buf, r.off)
	r.off = next
	return v, err
}

// U4 reads a little-endian uint32.
func (r *FieldReader) U4() (uint32, error) {
	v, next, err := ReadU4(r.buf, r.off)
	r.off = next
	return v, err
}

// I1 reads a signed byte.
func (r *FieldReader) I1() (int8, error) {
	v, err := r.U1()
	return int8(v), err
}

// I2 reads a little-endian int16.
func (r *FieldReader) I2() (int16, error) {
	v, next, err := ReadI2(r.buf, r.off)
	r.off = next
	return v, err
}

// I4 reads a little-endian int32.
func (r *FieldReader) I4() (int32, error) {
	v, err := r.U4()
	return int32(v), err
}

// R4 reads a little-endian float32.
func (r *FieldReader) R4() (float32, error) {
	v, next, err := ReadR4(r.buf, r.off)
	r.off = next
	return v, err
}

// C1 reads a single character field.
func (r *FieldReader) C1() (byte, error) {
	return r.U1()
}

// Cn reads a length-prefixed string.
func (r *FieldReader) Cn() (string, error) {
	v, next, err := ReadCn(r.buf, r.off)
	r.off = next
	return v, err
}

// Bytes reads n raw bytes. The returned slice aliases the payload.
func (r *FieldReader) Bytes(n int) ([]byte, error) {
	if err := need(r.buf, r.off, n); err != nil {
		return nil, err
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Bn reads a length-prefixed byte field.
func (r *FieldReader) Bn() ([]byte, error) {
	start := r.off
	n, err := r.U1()
	if err != nil {
		return nil, err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		r.off = start
		return nil, err
	}
	return b, nil
}

// OptionalCn reads a trailing string when bytes remain and returns "" otherwise.
// Trailing fields may be left off the end of a record.
func (r *FieldReader) OptionalCn() (string, error) {
	if r.Remaining() == 0 {
		return "", nil
	}
	return r.Cn()
}
