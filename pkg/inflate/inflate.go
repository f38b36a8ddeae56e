/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inflate.go
Description: Decompression front-end. Turns a possibly compressed capture into the raw
record stream the decoder expects. Formats are detected by magic bytes; anything that
does not match a known magic is passed through untouched.
*/

package inflate

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

//go:generate mockgen -source inflate.go -destination inflate_mock.go -package inflate

// ErrDecompressionFailed is returned when compressed input cannot be inflated.
var ErrDecompressionFailed = errors.New("decompression failed")

// Inflater produces the raw record stream from a complete input buffer
type Inflater interface {
	Decompress(data []byte) ([]byte, error)
}

// Format identifies a compression container
type Format int

const (
	FormatNone Format = iota
	FormatGzip
	FormatZstd
	FormatLZ4
)

func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	case FormatLZ4:
		return "lz4"
	default:
		return "none"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Detect reports the container format of data from its leading bytes.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return FormatZstd
	case bytes.HasPrefix(data, lz4Magic):
		return FormatLZ4
	case bytes.HasPrefix(data, gzipMagic):
		return FormatGzip
	default:
		return FormatNone
	}
}

// ForFormat returns the inflater for a format. FormatNone yields Identity.
func ForFormat(f Format) Inflater {
	switch f {
	case FormatGzip:
		return Gzip{}
	case FormatZstd:
		return Zstd{}
	case FormatLZ4:
		return LZ4{}
	default:
		return Identity{}
	}
}

// Auto picks an inflater by magic bytes
type Auto struct{}

func (Auto) Decompress(data []byte) ([]byte, error) {
	return ForFormat(Detect(data)).Decompress(data)
}

// Identity returns its input unchanged
type Identity struct{}

func (Identity) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

// Gzip inflates gzip members
type Gzip struct{}

func (Gzip) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, failed(FormatGzip, err)
	}
	defer r.Close()
	return readAll(FormatGzip, r)
}

// Zstd inflates zstd frames
type Zstd struct{}

func (Zstd) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, failed(FormatZstd, err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, failed(FormatZstd, err)
	}
	return out, nil
}

// LZ4 inflates a standard lz4 frame. The frame must carry its end mark;
// the lz4 reader reports a frame cut at a block boundary as a clean EOF.
type LZ4 struct{}

func (LZ4) Decompress(data []byte) ([]byte, error) {
	ok, err := lz4.ValidFrameHeader(data)
	if err != nil {
		return nil, failed(FormatLZ4, err)
	}
	if !ok {
		return nil, failed(FormatLZ4, errors.New("invalid frame header"))
	}
	if !lz4FrameComplete(data) {
		return nil, failed(FormatLZ4, errors.Wrap(io.ErrUnexpectedEOF, "frame ends before its end mark"))
	}
	return readAll(FormatLZ4, lz4.NewReader(bytes.NewReader(data)))
}

// lz4 frame descriptor flags
const (
	lz4FlagDictID        = 0x01
	lz4FlagContentSize   = 0x08
	lz4FlagBlockChecksum = 0x10
)

// lz4FrameComplete walks the block headers of a standard frame and reports
// whether the zero-size end mark is reached inside data.
func lz4FrameComplete(data []byte) bool {
	if !bytes.HasPrefix(data, lz4Magic) || len(data) < 7 {
		return false
	}
	flags := data[4]
	off := 7 // magic, FLG, BD, header checksum
	if flags&lz4FlagContentSize != 0 {
		off += 8
	}
	if flags&lz4FlagDictID != 0 {
		off += 4
	}
	for off+4 <= len(data) {
		size := binary.LittleEndian.Uint32(data[off:])
		off += 4
		if size == 0 {
			return true
		}
		off += int(size & 0x7fffffff)
		if flags&lz4FlagBlockChecksum != 0 {
			off += 4
		}
	}
	return false
}

func readAll(f Format, r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, failed(f, err)
	}
	return out, nil
}

func failed(f Format, err error) error {
	return errors.Wrapf(errors.Mark(err, ErrDecompressionFailed), "%s", f)
}
