package format

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/go-quern/quern"
)

// parquetCodec reads and writes Parquet files (.parquet) through Arrow.
//
// Write parameters: compression (snappy, gzip, zstd or none; snappy default).
type parquetCodec struct{}

// Kind returns the short name of this Codec's format family
func (c *parquetCodec) Kind() string { return "parquet" }

// Defaults returns the default parameters for this Codec
func (c *parquetCodec) Defaults() Params { return Params{} }

// Read reads a Parquet file into a Frame
func (c *parquetCodec) Read(path string, params Params) (*quern.Frame, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, err
	}
	table, err := reader.ReadTable(context.Background())
	if err != nil {
		return nil, err
	}
	defer table.Release()

	return tableToFrame(table)
}

func tableToFrame(table arrow.Table) (*quern.Frame, error) {
	reader := array.NewTableReader(table, 0)
	defer reader.Release()
	var records []arrow.Record
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		defer rec.Release()
		records = append(records, rec)
	}
	return recordsToFrame(table.Schema(), records)
}

// Write serializes a Frame to a Parquet file
func (c *parquetCodec) Write(frame *quern.Frame, path string, params Params) error {
	codec, err := compressionCodec(params.String("compression", "snappy"))
	if err != nil {
		return err
	}
	rec, err := frameToRecord(frame)
	if err != nil {
		return err
	}
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(codec))
	writer, err := pqarrow.NewFileWriter(rec.Schema(), f, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return err
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func compressionCodec(name string) (compress.Compression, error) {
	switch name {
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("Unknown parquet compression %s", name)
	}
}
