/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: csv.go
Description: CSV exporter for part and test rows.
*/

package export

import (
	"bufio"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
)

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	writer := csv.NewWriter(bufWriter)

	if err := writer.Write(header); err != nil {
		file.Close()
		return errors.Wrap(err, "failed to write header")
	}
	if err := writer.WriteAll(rows); err != nil {
		file.Close()
		return errors.Wrap(err, "failed to write rows")
	}
	if err := bufWriter.Flush(); err != nil {
		file.Close()
		return errors.Wrap(err, "failed to flush")
	}
	return file.Close()
}

func partRecords(rows []PartRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.Itoa(r.Index),
			itoa32(r.Head),
			itoa32(r.Site),
			itoa32(r.X),
			itoa32(r.Y),
			itoa32(r.HardBin),
			itoa32(r.SoftBin),
			itoa32(r.TestCount),
			strconv.FormatInt(r.TestTime, 10),
			strconv.FormatBool(r.Passed),
			r.PartID,
			r.PartText,
		})
	}
	return out
}

func testRecords(rows []TestRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.Itoa(r.Index),
			r.Kind,
			strconv.FormatInt(r.TestNumber, 10),
			r.TestName,
			itoa32(r.Head),
			itoa32(r.Site),
			optFloat(r.Value),
			optFloat(r.LowLimit),
			optFloat(r.HighLimit),
			r.Units,
			optInt(r.FailCount),
			strconv.FormatBool(r.Passed),
		})
	}
	return out
}

func itoa32(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

func optFloat(v *float32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*v), 'g', -1, 32)
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
