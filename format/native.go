package format

import (
	"encoding/gob"
	"os"
	"time"

	"github.com/go-quern/quern"
	"github.com/pierrec/lz4/v4"
)

// nativeCodec serializes Frames in quern's own binary format (.pkl,
// .pickle): a gob-encoded column snapshot behind lz4 compression. It is
// self-describing and lossless for every column type, making it the fastest
// way to persist an intermediate Frame between pipeline runs.
type nativeCodec struct{}

// nativeColumn is the serialized form of one column. Exactly one value slice
// is populated, chosen by Type.
type nativeColumn struct {
	Name    string
	Type    int
	Bools   []bool
	Ints    []int64
	Floats  []float64
	Strings []string
	Times   []time.Time
}

type nativeFrame struct {
	Columns []nativeColumn
	NumRows int
}

// Kind returns the short name of this Codec's format family
func (c *nativeCodec) Kind() string { return "native" }

// Defaults returns the default parameters for this Codec
func (c *nativeCodec) Defaults() Params { return Params{} }

// Read reads a native binary file into a Frame
func (c *nativeCodec) Read(path string, params Params) (*quern.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snapshot nativeFrame
	if err := gob.NewDecoder(lz4.NewReader(f)).Decode(&snapshot); err != nil {
		return nil, err
	}
	cols := make([]quern.Column, len(snapshot.Columns))
	for i, col := range snapshot.Columns {
		cols[i] = quern.Column{Name: col.Name, Type: quern.ColumnType(col.Type)}
	}
	schema, err := quern.CreateSchema(cols...)
	if err != nil {
		return nil, err
	}
	frame := quern.CreateFrame(schema)
	values := make([]interface{}, len(cols))
	for row := 0; row < snapshot.NumRows; row++ {
		for i, col := range snapshot.Columns {
			switch quern.ColumnType(col.Type) {
			case quern.BoolType:
				values[i] = col.Bools[row]
			case quern.IntType:
				values[i] = col.Ints[row]
			case quern.FloatType:
				values[i] = col.Floats[row]
			case quern.StringType:
				values[i] = col.Strings[row]
			case quern.TimeType:
				values[i] = col.Times[row]
			}
		}
		if err := frame.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// Write serializes a Frame to a native binary file
func (c *nativeCodec) Write(frame *quern.Frame, path string, params Params) error {
	snapshot := nativeFrame{NumRows: frame.NumRows()}
	for _, col := range frame.Schema().Columns() {
		nc := nativeColumn{Name: col.Name, Type: int(col.Type)}
		var err error
		switch col.Type {
		case quern.BoolType:
			nc.Bools, err = frame.Bools(col.Name)
		case quern.IntType:
			nc.Ints, err = frame.Ints(col.Name)
		case quern.FloatType:
			nc.Floats, err = frame.Floats(col.Name)
		case quern.StringType:
			nc.Strings, err = frame.Strings(col.Name)
		case quern.TimeType:
			nc.Times, err = frame.Times(col.Name)
		}
		if err != nil {
			return err
		}
		snapshot.Columns = append(snapshot.Columns, nc)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	compressor := lz4.NewWriter(f)
	if err := gob.NewEncoder(compressor).Encode(&snapshot); err != nil {
		return err
	}
	return compressor.Close()
}
