/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: export.go
Description: Export entry point. Selects a writer by format name and places its files
in the output directory.
*/

package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/stdfkit/pkg/stdf"
)

// Format names an export format
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
)

// ErrUnknownFormat is returned for a format name with no writer.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat resolves a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatParquet, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%q", name)
	}
}

// Write exports res into dir and returns the files it created. Tabular
// formats produce a parts file and a tests file named after base.
func Write(dir, base string, format Format, res *stdf.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	partsPath := filepath.Join(dir, base+"_parts."+string(format))
	testsPath := filepath.Join(dir, base+"_tests."+string(format))

	switch format {
	case FormatParquet:
		if err := writeParquet(partsPath, PartRows(res)); err != nil {
			return nil, err
		}
		if err := writeParquet(testsPath, TestRows(res)); err != nil {
			return nil, err
		}
		return []string{partsPath, testsPath}, nil
	case FormatCSV:
		if err := writeCSV(partsPath, partHeader, partRecords(PartRows(res))); err != nil {
			return nil, err
		}
		if err := writeCSV(testsPath, testHeader, testRecords(TestRows(res))); err != nil {
			return nil, err
		}
		return []string{partsPath, testsPath}, nil
	case FormatJSON:
		path, err := WriteReport(dir, NewReport(res, base))
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", string(format))
	}
}
