package format

import (
	"errors"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/go-quern/quern"
)

// featherCodec reads and writes Arrow IPC files (.feather).
type featherCodec struct{}

// Kind returns the short name of this Codec's format family
func (c *featherCodec) Kind() string { return "feather" }

// Defaults returns the default parameters for this Codec
func (c *featherCodec) Defaults() Params { return Params{} }

// Read reads an Arrow IPC file into a Frame
func (c *featherCodec) Read(path string, params Params) (*quern.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, err := ipc.NewFileReader(f)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var records []arrow.Record
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec.Retain()
		defer rec.Release()
		records = append(records, rec)
	}
	return recordsToFrame(reader.Schema(), records)
}

// Write serializes a Frame to an Arrow IPC file
func (c *featherCodec) Write(frame *quern.Frame, path string, params Params) error {
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

	writer, err := ipc.NewFileWriter(f, ipc.WithSchema(rec.Schema()))
	if err != nil {
		return err
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}
