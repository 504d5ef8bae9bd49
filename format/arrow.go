package format

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-quern/quern"
)

// Conversion between Frames and Arrow records, shared by the parquet and
// feather codecs.

func arrowSchema(schema *quern.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, schema.NumColumns())
	for _, col := range schema.Columns() {
		var dt arrow.DataType
		switch col.Type {
		case quern.BoolType:
			dt = arrow.FixedWidthTypes.Boolean
		case quern.IntType:
			dt = arrow.PrimitiveTypes.Int64
		case quern.FloatType:
			dt = arrow.PrimitiveTypes.Float64
		case quern.StringType:
			dt = arrow.BinaryTypes.String
		case quern.TimeType:
			dt = arrow.FixedWidthTypes.Timestamp_us
		default:
			return nil, fmt.Errorf("Column %s has no Arrow equivalent for type %s", col.Name, col.Type)
		}
		fields = append(fields, arrow.Field{Name: col.Name, Type: dt})
	}
	return arrow.NewSchema(fields, nil), nil
}

// frameToRecord converts a Frame to a single Arrow record. The caller must
// Release the record.
func frameToRecord(frame *quern.Frame) (arrow.Record, error) {
	schema, err := arrowSchema(frame.Schema())
	if err != nil {
		return nil, err
	}
	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	for i, col := range frame.Schema().Columns() {
		switch col.Type {
		case quern.BoolType:
			vals, err := frame.Bools(col.Name)
			if err != nil {
				return nil, err
			}
			builder.Field(i).(*array.BooleanBuilder).AppendValues(vals, nil)
		case quern.IntType:
			vals, err := frame.Ints(col.Name)
			if err != nil {
				return nil, err
			}
			builder.Field(i).(*array.Int64Builder).AppendValues(vals, nil)
		case quern.FloatType:
			vals, err := frame.Floats(col.Name)
			if err != nil {
				return nil, err
			}
			builder.Field(i).(*array.Float64Builder).AppendValues(vals, nil)
		case quern.StringType:
			vals, err := frame.Strings(col.Name)
			if err != nil {
				return nil, err
			}
			builder.Field(i).(*array.StringBuilder).AppendValues(vals, nil)
		case quern.TimeType:
			vals, err := frame.Times(col.Name)
			if err != nil {
				return nil, err
			}
			tb := builder.Field(i).(*array.TimestampBuilder)
			for _, t := range vals {
				tb.Append(arrow.Timestamp(t.UnixMicro()))
			}
		}
	}
	return builder.NewRecord(), nil
}

// recordsToFrame converts a sequence of Arrow records sharing one schema
// into a Frame
func recordsToFrame(schema *arrow.Schema, records []arrow.Record) (*quern.Frame, error) {
	cols := make([]quern.Column, 0, schema.NumFields())
	for _, fld := range schema.Fields() {
		var colType quern.ColumnType
		switch fld.Type.ID() {
		case arrow.BOOL:
			colType = quern.BoolType
		case arrow.INT64:
			colType = quern.IntType
		case arrow.FLOAT64:
			colType = quern.FloatType
		case arrow.STRING:
			colType = quern.StringType
		case arrow.TIMESTAMP:
			colType = quern.TimeType
		default:
			return nil, fmt.Errorf("Column %s has no Frame equivalent for Arrow type %s", fld.Name, fld.Type)
		}
		cols = append(cols, quern.Column{Name: fld.Name, Type: colType})
	}
	frameSchema, err := quern.CreateSchema(cols...)
	if err != nil {
		return nil, err
	}
	frame := quern.CreateFrame(frameSchema)
	values := make([]interface{}, len(cols))
	for _, rec := range records {
		for row := 0; row < int(rec.NumRows()); row++ {
			for i := range cols {
				v, err := arrowValue(rec.Column(i), schema.Field(i), row)
				if err != nil {
					return nil, err
				}
				values[i] = v
			}
			if err := frame.AppendRow(values...); err != nil {
				return nil, err
			}
		}
	}
	return frame, nil
}

func arrowValue(arr arrow.Array, fld arrow.Field, row int) (interface{}, error) {
	switch col := arr.(type) {
	case *array.Boolean:
		return col.Value(row), nil
	case *array.Int64:
		return col.Value(row), nil
	case *array.Float64:
		return col.Value(row), nil
	case *array.String:
		return col.Value(row), nil
	case *array.Timestamp:
		unit := fld.Type.(*arrow.TimestampType).Unit
		return col.Value(row).ToTime(unit).UTC(), nil
	default:
		return nil, fmt.Errorf("Column %s has unsupported Arrow array type %T", fld.Name, arr)
	}
}
