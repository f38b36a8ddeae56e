/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decode.go
Description: Decode orchestration. Frames the buffer, decodes each payload through the
dispatch table and folds the records into a fresh Aggregator. With more than one worker
the payloads are decoded concurrently after a single sequential framing pass, and the
records are still aggregated in file order.
*/

package stdf

import (
	"context"
	"io"
	"math"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/stdfkit/pkg/inflate"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options configures a decode pass
type Options struct {
	// Workers is the number of payload decoders. Zero or one decodes serially.
	Workers int

	// MaxRecordLength rejects headers that declare a longer payload. Zero means no limit.
	MaxRecordLength int

	// Logger receives debug detail about skipped records. Nil discards.
	Logger logrus.FieldLogger

	// Inflater decompresses the input before framing. Nil leaves Decode input as is.
	Inflater inflate.Inflater
}

// Validate checks the options for consistency
func (o Options) Validate() error {
	if o.Workers < 0 {
		return errors.Wrapf(ErrInvalidOptions, "workers must be non-negative, got %d", o.Workers)
	}
	if o.MaxRecordLength < 0 || o.MaxRecordLength > math.MaxUint16 {
		return errors.Wrapf(ErrInvalidOptions, "max record length must be within [0, %d], got %d",
			math.MaxUint16, o.MaxRecordLength)
	}
	return nil
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Decode decodes a complete in-memory buffer. Malformed input degrades into
// warnings on the result; only invalid options, decompression failure and
// cancellation return an error, and then no result.
func Decode(ctx context.Context, buf []byte, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.logger()

	if opts.Inflater != nil {
		inflated, err := opts.Inflater.Decompress(buf)
		if err != nil {
			if !errors.Is(err, ErrDecompressionFailed) {
				err = errors.Mark(err, ErrDecompressionFailed)
			}
			return nil, errors.Wrap(err, "inflate input")
		}
		buf = inflated
	}

	start := time.Now()
	var (
		res *Result
		err error
	)
	if opts.Workers > 1 {
		res, err = decodeParallel(ctx, buf, opts)
	} else {
		res, err = decodeSerial(ctx, buf, opts)
	}
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"bytes":    len(buf),
		"parts":    res.Summary.TotalParts,
		"tests":    len(res.TestResults),
		"warnings": len(res.Warnings),
		"workers":  opts.Workers,
		"duration": time.Since(start),
	}).Debug("Decode finished")
	return res, nil
}

// DecodeFile reads path and decodes it. Compressed files are detected by
// magic bytes unless opts carries its own inflater.
func DecodeFile(ctx context.Context, path string, opts Options) (*Result, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if opts.Inflater == nil {
		opts.Inflater = inflate.Auto{}
	}
	res, err := Decode(ctx, buf, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return res, nil
}

// framed is one record from the framing pass plus how many framer warnings
// had been raised when it was produced.
type framed struct {
	raw      RawRecord
	warnings int
}

// pending forwards framer warnings to the aggregator in file order.
type pending struct {
	framer   *Framer
	agg      *Aggregator
	consumed int
}

func (p *pending) flush(upto int) {
	ws := p.framer.Warnings()
	for ; p.consumed < upto && p.consumed < len(ws); p.consumed++ {
		p.agg.Warn(ws[p.consumed])
	}
}

func decodeSerial(ctx context.Context, buf []byte, opts Options) (*Result, error) {
	agg := NewAggregator(opts)
	framer := NewFramer(buf).WithMaxRecordLength(opts.MaxRecordLength)
	p := &pending{framer: framer, agg: agg}

	for raw := range framer.All() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "decode cancelled")
		}
		p.flush(len(framer.Warnings()))
		rec, err := DecodeRecord(raw, buf)
		apply(agg, raw, rec, err)
	}
	p.flush(len(framer.Warnings()))
	return agg.Finish(), nil
}

func decodeParallel(ctx context.Context, buf []byte, opts Options) (*Result, error) {
	framer := NewFramer(buf).WithMaxRecordLength(opts.MaxRecordLength)
	var records []framed
	for raw := range framer.All() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "decode cancelled")
		}
		records = append(records, framed{raw: raw, warnings: len(framer.Warnings())})
	}

	decoded := make([]Record, len(records))
	failures := make([]error, len(records))

	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(records) + opts.Workers - 1) / opts.Workers
	for lo := 0; lo < len(records); lo += chunk {
		hi := min(lo+chunk, len(records))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				decoded[i], failures[i] = DecodeRecord(records[i].raw, buf)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "decode cancelled")
	}

	agg := NewAggregator(opts)
	p := &pending{framer: framer, agg: agg}
	for i, f := range records {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "decode cancelled")
		}
		p.flush(f.warnings)
		apply(agg, f.raw, decoded[i], failures[i])
	}
	p.flush(len(framer.Warnings()))
	return agg.Finish(), nil
}

// apply folds a decoded record, or records why it was skipped.
func apply(agg *Aggregator, raw RawRecord, rec Record, err error) {
	if err == nil {
		agg.Apply(raw, rec)
		return
	}
	agg.logger.WithFields(logrus.Fields{
		"record": RecordName(raw.Key()),
		"offset": raw.Offset,
		"length": raw.Length,
	}).WithError(err).Debug("Skipping undecodable record")
	agg.Warn(Warning{
		Kind:    WarnSkippedRecord,
		Offset:  raw.Offset,
		Type:    raw.Type,
		Sub:     raw.Sub,
		Message: err.Error(),
	})
}
