package quern

import "fmt"

// ColumnType enumerates the value types a Frame column can hold.
type ColumnType int

const (
	// BoolType indicates that a column stores boolean values
	BoolType ColumnType = iota
	// IntType indicates that a column stores 64-bit signed integers
	IntType
	// FloatType indicates that a column stores 64-bit floats
	FloatType
	// StringType indicates that a column stores strings
	StringType
	// TimeType indicates that a column stores timestamps
	TimeType
)

// String returns the name of this ColumnType
func (t ColumnType) String() string {
	switch t {
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case StringType:
		return "string"
	case TimeType:
		return "time"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// A Column is a named, typed column within a Schema.
type Column struct {
	Name string
	Type ColumnType
}
