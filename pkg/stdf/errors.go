/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error taxonomy for the STDF decoder. Only decompression failures and
buffer acquisition failures abort a decode; everything else degrades into a warning.
*/

package stdf

import (
	"github.com/cockroachdb/errors"
	"github.com/kleascm/stdfkit/pkg/inflate"
)

var (
	// ErrOutOfBounds is returned when a primitive read would run past the buffer.
	ErrOutOfBounds = errors.New("read out of bounds")

	// ErrCorruptRecordHeader marks a header whose declared length overruns the buffer.
	ErrCorruptRecordHeader = errors.New("corrupt record header")

	// ErrUnknownRecordType marks a well-framed record with no registered decoder.
	ErrUnknownRecordType = errors.New("unknown record type")

	// ErrCrossValidationMismatch marks part-count totals that disagree with part results.
	ErrCrossValidationMismatch = errors.New("part count cross-validation mismatch")

	// ErrDecompressionFailed is fatal: the inflater could not produce a buffer.
	ErrDecompressionFailed = inflate.ErrDecompressionFailed

	// ErrInvalidOptions is returned by Options.Validate.
	ErrInvalidOptions = errors.New("invalid decode options")
)

// outOfBounds builds an ErrOutOfBounds carrying the failing position.
func outOfBounds(offset, width, size int) error {
	return errors.Wrapf(ErrOutOfBounds, "need %d bytes at offset %d, buffer has %d", width, offset, size)
}
