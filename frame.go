package quern

import (
	"fmt"
	"time"
)

// columnData is the typed backing store for a single column. Exactly one
// slice is in use, chosen by the column's ColumnType.
type columnData struct {
	bools   []bool
	ints    []int64
	floats  []float64
	strings []string
	times   []time.Time
}

func (d *columnData) clone(colType ColumnType) columnData {
	return d.slice(colType, 0, d.len(colType))
}

func (d *columnData) slice(colType ColumnType, start int, end int) columnData {
	var out columnData
	switch colType {
	case BoolType:
		out.bools = append([]bool(nil), d.bools[start:end]...)
	case IntType:
		out.ints = append([]int64(nil), d.ints[start:end]...)
	case FloatType:
		out.floats = append([]float64(nil), d.floats[start:end]...)
	case StringType:
		out.strings = append([]string(nil), d.strings[start:end]...)
	case TimeType:
		out.times = append([]time.Time(nil), d.times[start:end]...)
	}
	return out
}

func (d *columnData) len(colType ColumnType) int {
	switch colType {
	case BoolType:
		return len(d.bools)
	case IntType:
		return len(d.ints)
	case FloatType:
		return len(d.floats)
	case StringType:
		return len(d.strings)
	case TimeType:
		return len(d.times)
	}
	return 0
}

func (d *columnData) appendFrom(colType ColumnType, other *columnData) {
	switch colType {
	case BoolType:
		d.bools = append(d.bools, other.bools...)
	case IntType:
		d.ints = append(d.ints, other.ints...)
	case FloatType:
		d.floats = append(d.floats, other.floats...)
	case StringType:
		d.strings = append(d.strings, other.strings...)
	case TimeType:
		d.times = append(d.times, other.times...)
	}
}

// A Frame is an in-memory, column-oriented set of records. Frames are the unit
// of exchange between pipeline stages. Row order within a Frame is stable, but
// Frames merged from concurrent work arrive in completion order, so no stage
// may rely on row order being preserved across a concurrent boundary.
type Frame struct {
	schema *Schema
	data   []columnData
	nrows  int
}

// CreateFrame is a factory for empty Frames with the given Schema
func CreateFrame(schema *Schema) *Frame {
	if schema == nil {
		schema, _ = CreateSchema()
	}
	return &Frame{
		schema: schema,
		data:   make([]columnData, schema.NumColumns()),
	}
}

// Schema returns the Schema of this Frame
func (f *Frame) Schema() *Schema {
	return f.schema
}

// NumRows returns the number of rows in this Frame
func (f *Frame) NumRows() int {
	return f.nrows
}

// NumColumns returns the number of columns in this Frame
func (f *Frame) NumColumns() int {
	return f.schema.NumColumns()
}

// IsEmpty returns true iff this Frame is nil or contains no rows
func (f *Frame) IsEmpty() bool {
	return f == nil || f.nrows == 0
}

// Bools returns the backing data for a BoolType column. The caller must not
// modify the returned slice unless it owns the Frame.
func (f *Frame) Bools(colName string) ([]bool, error) {
	_, idx, err := f.typedColumn(colName, BoolType)
	if err != nil {
		return nil, err
	}
	return f.data[idx].bools, nil
}

// Ints returns the backing data for an IntType column. The caller must not
// modify the returned slice unless it owns the Frame.
func (f *Frame) Ints(colName string) ([]int64, error) {
	_, idx, err := f.typedColumn(colName, IntType)
	if err != nil {
		return nil, err
	}
	return f.data[idx].ints, nil
}

// Floats returns the backing data for a FloatType column. The caller must not
// modify the returned slice unless it owns the Frame.
func (f *Frame) Floats(colName string) ([]float64, error) {
	_, idx, err := f.typedColumn(colName, FloatType)
	if err != nil {
		return nil, err
	}
	return f.data[idx].floats, nil
}

// Strings returns the backing data for a StringType column. The caller must
// not modify the returned slice unless it owns the Frame.
func (f *Frame) Strings(colName string) ([]string, error) {
	_, idx, err := f.typedColumn(colName, StringType)
	if err != nil {
		return nil, err
	}
	return f.data[idx].strings, nil
}

// Times returns the backing data for a TimeType column. The caller must not
// modify the returned slice unless it owns the Frame.
func (f *Frame) Times(colName string) ([]time.Time, error) {
	_, idx, err := f.typedColumn(colName, TimeType)
	if err != nil {
		return nil, err
	}
	return f.data[idx].times, nil
}

func (f *Frame) typedColumn(colName string, colType ColumnType) (Column, int, error) {
	col, idx, err := f.schema.Column(colName)
	if err != nil {
		return Column{}, -1, err
	}
	if col.Type != colType {
		return Column{}, -1, fmt.Errorf("Column %s is not of type %s. Was: %s", colName, colType, col.Type)
	}
	return col, idx, nil
}

// AddColumn defines a new column within this Frame, populated with the given
// values. values must be a []bool, []int64, []float64, []string or
// []time.Time matching col.Type, with one value per existing row.
func (f *Frame) AddColumn(col Column, values interface{}) error {
	var data columnData
	var n int
	switch vals := values.(type) {
	case []bool:
		if col.Type != BoolType {
			return fmt.Errorf("Column %s is of type %s but values are []bool", col.Name, col.Type)
		}
		data.bools, n = vals, len(vals)
	case []int64:
		if col.Type != IntType {
			return fmt.Errorf("Column %s is of type %s but values are []int64", col.Name, col.Type)
		}
		data.ints, n = vals, len(vals)
	case []float64:
		if col.Type != FloatType {
			return fmt.Errorf("Column %s is of type %s but values are []float64", col.Name, col.Type)
		}
		data.floats, n = vals, len(vals)
	case []string:
		if col.Type != StringType {
			return fmt.Errorf("Column %s is of type %s but values are []string", col.Name, col.Type)
		}
		data.strings, n = vals, len(vals)
	case []time.Time:
		if col.Type != TimeType {
			return fmt.Errorf("Column %s is of type %s but values are []time.Time", col.Name, col.Type)
		}
		data.times, n = vals, len(vals)
	default:
		return fmt.Errorf("Unsupported column data %T for column %s", values, col.Name)
	}
	if n != f.nrows {
		return fmt.Errorf("Column %s has %d values but Frame has %d rows", col.Name, n, f.nrows)
	}
	if err := f.schema.CreateColumn(col); err != nil {
		return err
	}
	f.data = append(f.data, data)
	return nil
}

// AppendRow adds a row to the end of this Frame, one value per column in
// Schema order. Int columns accept int or int64 values.
func (f *Frame) AppendRow(values ...interface{}) error {
	if len(values) != f.schema.NumColumns() {
		return fmt.Errorf("Row width %d is not compatible with Schema width %d", len(values), f.schema.NumColumns())
	}
	// validate before mutating, so a bad row leaves the Frame untouched
	for i, col := range f.schema.cols {
		if typeOfValue(values[i]) != col.Type {
			return fmt.Errorf("Value for column %s is not a %s. Was: %#v", col.Name, col.Type, values[i])
		}
	}
	for i, col := range f.schema.cols {
		d := &f.data[i]
		switch col.Type {
		case BoolType:
			d.bools = append(d.bools, values[i].(bool))
		case IntType:
			if v, ok := values[i].(int); ok {
				d.ints = append(d.ints, int64(v))
			} else {
				d.ints = append(d.ints, values[i].(int64))
			}
		case FloatType:
			d.floats = append(d.floats, values[i].(float64))
		case StringType:
			d.strings = append(d.strings, values[i].(string))
		case TimeType:
			d.times = append(d.times, values[i].(time.Time))
		}
	}
	f.nrows++
	return nil
}

func typeOfValue(v interface{}) ColumnType {
	switch v.(type) {
	case bool:
		return BoolType
	case int, int64:
		return IntType
	case float64:
		return FloatType
	case string:
		return StringType
	case time.Time:
		return TimeType
	default:
		return ColumnType(-1)
	}
}

// Value returns the value at a row and column index as a bool, int64,
// float64, string or time.Time
func (f *Frame) Value(rowNum int, colNum int) interface{} {
	d := &f.data[colNum]
	switch f.schema.cols[colNum].Type {
	case BoolType:
		return d.bools[rowNum]
	case IntType:
		return d.ints[rowNum]
	case FloatType:
		return d.floats[rowNum]
	case StringType:
		return d.strings[rowNum]
	case TimeType:
		return d.times[rowNum]
	}
	return nil
}

// Clone returns a deep copy of this Frame
func (f *Frame) Clone() *Frame {
	clone := &Frame{
		schema: f.schema.Clone(),
		data:   make([]columnData, len(f.data)),
		nrows:  f.nrows,
	}
	for i, col := range f.schema.cols {
		clone.data[i] = f.data[i].clone(col.Type)
	}
	return clone
}

// Slice returns a deep copy of rows [start, end) of this Frame
func (f *Frame) Slice(start int, end int) (*Frame, error) {
	if start < 0 || end < start || end > f.nrows {
		return nil, fmt.Errorf("Slice bounds [%d, %d) are invalid for Frame with %d rows", start, end, f.nrows)
	}
	out := &Frame{
		schema: f.schema.Clone(),
		data:   make([]columnData, len(f.data)),
		nrows:  end - start,
	}
	for i, col := range f.schema.cols {
		out.data[i] = f.data[i].slice(col.Type, start, end)
	}
	return out, nil
}

// Split divides this Frame into n contiguous Partitions of near-equal size.
// When rows do not divide evenly, the first NumRows % n partitions receive one
// extra row. Each Partition owns an independent copy of its rows.
func (f *Frame) Split(n int) ([]Partition, error) {
	if n < 1 {
		return nil, fmt.Errorf("Cannot split Frame into %d partitions", n)
	}
	parts := make([]Partition, n)
	base := f.nrows / n
	rem := f.nrows % n
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		slice, err := f.Slice(start, start+size)
		if err != nil {
			return nil, err
		}
		parts[i] = Partition{Frame: slice, Index: i}
		start += size
	}
	return parts, nil
}

// Concat unions the rows of the given Frames into a new Frame, in the order
// given. All Frames must share an identical Schema. Nil and empty Frames are
// skipped; Concat of no non-empty Frames returns an empty Frame.
func Concat(frames ...*Frame) (*Frame, error) {
	var first *Frame
	for _, f := range frames {
		if f != nil && f.nrows > 0 {
			first = f
			break
		}
	}
	if first == nil {
		// no rows anywhere; preserve a schema if any Frame carries one
		for _, f := range frames {
			if f != nil {
				return CreateFrame(f.schema.Clone()), nil
			}
		}
		return CreateFrame(nil), nil
	}
	out := CreateFrame(first.schema.Clone())
	for _, f := range frames {
		if f == nil || f.nrows == 0 {
			continue
		}
		if err := first.schema.Equals(f.schema); err != nil {
			return nil, fmt.Errorf("Cannot concat Frames with mismatched schemas: %w", err)
		}
		for i, col := range out.schema.cols {
			out.data[i].appendFrom(col.Type, &f.data[i])
		}
		out.nrows += f.nrows
	}
	return out, nil
}
