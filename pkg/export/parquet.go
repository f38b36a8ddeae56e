/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parquet.go
Description: Parquet exporter. Writes part and test rows as zstd-compressed columnar
files, flushing in row groups so large lots do not sit in the page buffer.
*/

package export

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"
)

const parquetFlushEvery = 50000

// writeParquet writes rows to path with a schema derived from T.
func writeParquet[T any](path string, rows []T) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}

	var zero T
	writer := parquet.NewWriter(file, parquet.SchemaOf(zero),
		parquet.Compression(&parquet.Zstd),
		parquet.PageBufferSize(256*1024),
	)

	for i, row := range rows {
		if err := writer.Write(row); err != nil {
			file.Close()
			return errors.Wrapf(err, "failed to write row %d", i)
		}
		if (i+1)%parquetFlushEvery == 0 {
			if err := writer.Flush(); err != nil {
				file.Close()
				return errors.Wrap(err, "flush error")
			}
		}
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return errors.Wrap(err, "failed to close parquet writer")
	}
	return file.Close()
}
