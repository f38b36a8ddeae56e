/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decode_test.go
Description: End-to-end decode tests: the reference lot, damaged input, parallel decode,
cancellation and the decompression boundary.
*/

package stdf

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/kleascm/stdfkit/pkg/inflate"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDecodeLot42(t *testing.T) {
	res, err := Decode(context.Background(), lot42(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "LOT42", res.LotInfo.LotID)
	assert.Equal(t, "DEV9", res.LotInfo.PartType)
	assert.Equal(t, 100, res.LotInfo.LotSize)
	assert.Equal(t, "A", res.LotInfo.DispositionCode)

	assert.Equal(t, 100, res.Summary.TotalParts)
	assert.Equal(t, 95, res.Summary.PassedParts)
	assert.Equal(t, 5, res.Summary.FailedParts)
	assert.InDelta(t, 95.0, res.Summary.YieldPercent, 1e-9)

	assert.Equal(t, map[uint16]int{1: 95, 2: 5}, res.HardBins.Counts())
	assert.Equal(t, map[uint16]int{1: 95, 20: 5}, res.SoftBins.Counts())
	assert.Equal(t, "LEAKAGE", res.HardBins[2].Name)

	require.Len(t, res.TestResults, 100)
	failing := 0
	for _, tr := range res.TestResults {
		if !tr.Passed() {
			failing++
		}
	}
	assert.Equal(t, 5, failing)

	assert.Equal(t, []uint8{0, 1}, res.Sites.Sites())
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 100, res.RecordsByName["PRR"])
}

func TestDecodeTruncatedLastRecord(t *testing.T) {
	full := lot42()
	last := encodeRecord(&LotClose{FinishTime: 1700003600, DispositionCode: 'A'})
	buf := full[:len(full)-len(last)+5]

	res, err := Decode(context.Background(), buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Summary.TotalParts)
	assert.Equal(t, "LOT42", res.LotInfo.LotID)
	assert.True(t, res.LotInfo.FinishTime.IsZero())
	require.True(t, res.HasWarning(WarnCorruptRecordHeader))
	assert.Equal(t, len(full)-len(last), res.Warnings[0].Offset)
}

func TestDecodeUnknownRecordInTheMiddle(t *testing.T) {
	buf := (&fileBuilder{}).
		add(&LotOpen{LotID: "L1"}, &PartFinished{Site: 0, HardBin: 1}).
		raw(frame(RecordKey{Type: 220, Sub: 7}, []byte{0xde, 0xad, 0xbe, 0xef, 0x00})...).
		add(&PartFinished{Site: 1, HardBin: 2, PartFlags: PartFlagFailed}).
		bytes()

	res, err := Decode(context.Background(), buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.TotalParts)
	assert.Equal(t, 1, res.Summary.PassedParts)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnUnknownRecordType, res.Warnings[0].Kind)
	require.Len(t, res.Unknown, 1)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef, 0x00}, res.Unknown[0].Data)
}

func TestDecodeTwoByteBuffer(t *testing.T) {
	res, err := Decode(context.Background(), []byte{0x02, 0x00}, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.TestResults)
	assert.Empty(t, res.PartResults)
	assert.Equal(t, Summary{}, res.Summary)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnCorruptRecordHeader, res.Warnings[0].Kind)
}

func TestDecodeEmptyBuffer(t *testing.T) {
	res, err := Decode(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 0.0, res.Summary.YieldPercent)
}

func TestDecodeSkipsUndecodableRecord(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	buf := (&fileBuilder{}).
		raw(frame(KeyPartFinished, []byte{0x01, 0x00, 0x00})...).
		add(&PartFinished{Site: 0, HardBin: 1}).
		bytes()

	res, err := Decode(context.Background(), buf, Options{Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.TotalParts)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnSkippedRecord, res.Warnings[0].Kind)
	assert.Equal(t, 0, res.Warnings[0].Offset)
	assert.ErrorIs(t, res.Warnings[0].Kind.Err(), ErrOutOfBounds)

	var skipped bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Skipping undecodable record" {
			skipped = true
			assert.Equal(t, "PRR", e.Data["record"])
		}
	}
	assert.True(t, skipped)
}

func TestDecodeParallelMatchesSerial(t *testing.T) {
	buf := (&fileBuilder{}).
		raw(lot42()...).
		raw(frame(RecordKey{Type: 220, Sub: 7}, []byte{1, 2})...).
		raw(frame(KeyParametricTest, []byte{0x01})...).
		add(&PartStart{Head: 1, Site: 4}).
		raw(0x09, 0x00).
		bytes()

	serial, err := Decode(context.Background(), buf, Options{})
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8, 64} {
		parallel, err := Decode(context.Background(), buf, Options{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, serial, parallel, "workers=%d", workers)
	}
	assert.GreaterOrEqual(t, len(serial.Warnings), 4)
}

func TestDecodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		res, err := Decode(ctx, lot42(), Options{Workers: workers})
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, context.Canceled))
	}
}

// cancelAfter reports cancellation once Err has been asked more than limit times.
type cancelAfter struct {
	context.Context
	limit int
	calls int
}

func (c *cancelAfter) Err() error {
	c.calls++
	if c.calls > c.limit {
		return context.Canceled
	}
	return nil
}

func TestDecodeCancelledWhileFraming(t *testing.T) {
	buf := lot42()
	require.Greater(t, len(collect(NewFramer(buf))), 3)

	for _, workers := range []int{1, 4} {
		ctx := &cancelAfter{Context: context.Background(), limit: 2}
		res, err := Decode(ctx, buf, Options{Workers: workers})
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 3, ctx.calls, "workers=%d", workers)
	}
}

func TestDecodeRejectsInvalidOptions(t *testing.T) {
	tests := []Options{
		{Workers: -1},
		{MaxRecordLength: -5},
		{MaxRecordLength: 1 << 20},
	}
	for _, opts := range tests {
		_, err := Decode(context.Background(), lot42(), opts)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidOptions))
	}
}

func TestDecodeUsesInflater(t *testing.T) {
	ctrl := gomock.NewController(t)
	compressed := []byte("compressed")

	m := inflate.NewMockInflater(ctrl)
	m.EXPECT().Decompress(compressed).Return(lot42(), nil)

	res, err := Decode(context.Background(), compressed, Options{Inflater: m})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Summary.TotalParts)
}

func TestDecodeInflaterFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)

	m := inflate.NewMockInflater(ctrl)
	m.EXPECT().Decompress(gomock.Any()).Return(nil, errors.New("bad block"))

	res, err := Decode(context.Background(), []byte{1, 2, 3}, Options{Inflater: m})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrDecompressionFailed))
}

func TestDecodeCorruptLZ4IsFatal(t *testing.T) {
	inputs := map[string][]byte{
		"magic only":      {0x04, 0x22, 0x4d, 0x18},
		"garbage header":  {0x04, 0x22, 0x4d, 0x18, 0xff, 0xff, 0xff},
		"truncated block": {0x04, 0x22, 0x4d, 0x18, 0x64, 0x40, 0xa7, 0x20, 0x00, 0x00, 0x00, 0x01},
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			res, err := Decode(context.Background(), data, Options{Inflater: inflate.Auto{}})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrDecompressionFailed))
		})
	}
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write(lot42())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	plain := filepath.Join(dir, "lot42.stdf")
	packed := filepath.Join(dir, "lot42.stdf.gz")
	broken := filepath.Join(dir, "broken.stdf.gz")
	require.NoError(t, os.WriteFile(plain, lot42(), 0o644))
	require.NoError(t, os.WriteFile(packed, gz.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(broken, gz.Bytes()[:20], 0o644))

	for _, path := range []string{plain, packed} {
		res, err := DecodeFile(context.Background(), path, Options{})
		require.NoError(t, err)
		assert.Equal(t, 95, res.Summary.PassedParts)
	}

	_, err = DecodeFile(context.Background(), broken, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecompressionFailed))

	_, err = DecodeFile(context.Background(), filepath.Join(dir, "missing.stdf"), Options{})
	require.Error(t, err)
}
