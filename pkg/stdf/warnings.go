/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: warnings.go
Description: Non-fatal decode warnings. Every condition that is skipped rather than
aborted leaves a Warning behind so a result never has an unexplained gap.
*/

package stdf

import "fmt"

// WarningKind classifies a non-fatal decode condition
type WarningKind int

const (
	WarnCorruptRecordHeader WarningKind = iota
	WarnSkippedRecord
	WarnUnknownRecordType
	WarnCrossValidationMismatch
	WarnIncompletePart
)

var warningKindNames = map[WarningKind]string{
	WarnCorruptRecordHeader:     "corrupt_record_header",
	WarnSkippedRecord:           "skipped_record",
	WarnUnknownRecordType:       "unknown_record_type",
	WarnCrossValidationMismatch: "cross_validation_mismatch",
	WarnIncompletePart:          "incomplete_part",
}

// String returns the snake_case name used in logs and reports.
func (k WarningKind) String() string {
	if name, ok := warningKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("warning_%d", int(k))
}

// MarshalText lets warning kinds appear by name in JSON reports.
func (k WarningKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Err returns the sentinel error this kind corresponds to, if any.
func (k WarningKind) Err() error {
	switch k {
	case WarnCorruptRecordHeader:
		return ErrCorruptRecordHeader
	case WarnSkippedRecord:
		return ErrOutOfBounds
	case WarnUnknownRecordType:
		return ErrUnknownRecordType
	case WarnCrossValidationMismatch:
		return ErrCrossValidationMismatch
	default:
		return nil
	}
}

// Warning describes one skipped or suspicious piece of input
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Offset  int         `json:"offset"`
	Type    uint8       `json:"type"`
	Sub     uint8       `json:"sub"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s at offset %d (%d,%d): %s", w.Kind, w.Offset, w.Type, w.Sub, w.Message)
}
