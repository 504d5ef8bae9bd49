package format

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-quern/quern"
)

// defaultDateLayout is the layout used for timestamps in text formats unless
// the date_format parameter overrides it.
const defaultDateLayout = "2006-01-02 15:04:05"

// layouts tried, in order, when parsing timestamp cells
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

func parseTimeCell(cell string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("Cell %#v could not be parsed as a timestamp", cell)
}

// columnTypes resolves the type of each named column from read parameters:
// a full schema parameter wins, then per-column dtype entries, then
// parse_dates, then inference over the string cells.
func columnTypes(names []string, cells [][]string, params Params) ([]quern.ColumnType, error) {
	types := make([]quern.ColumnType, len(names))
	resolved := make([]bool, len(names))
	if schema, ok := params["schema"].(*quern.Schema); ok && schema != nil {
		for i, name := range names {
			col, _, err := schema.Column(name)
			if err != nil {
				return nil, err
			}
			types[i] = col.Type
			resolved[i] = true
		}
		return types, nil
	}
	dtype, _ := params["dtype"].(map[string]quern.ColumnType)
	for i, name := range names {
		if t, ok := dtype[name]; ok {
			types[i] = t
			resolved[i] = true
		}
	}
	for _, name := range params.Strings("parse_dates") {
		for i, colName := range names {
			if colName == name && !resolved[i] {
				types[i] = quern.TimeType
				resolved[i] = true
			}
		}
	}
	for i := range names {
		if !resolved[i] {
			types[i] = inferColumnType(cells, i)
		}
	}
	return types, nil
}

// inferColumnType picks the narrowest type that parses every non-empty cell
// of a column, trying int, then float, then bool, falling back to string.
// A column with no cells at all is a string column.
func inferColumnType(cells [][]string, col int) quern.ColumnType {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, row := range cells {
		cell := row[col]
		if cell == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if cell != "true" && cell != "false" && cell != "True" && cell != "False" {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			break
		}
	}
	switch {
	case !seen:
		return quern.StringType
	case isInt:
		return quern.IntType
	case isFloat:
		return quern.FloatType
	case isBool:
		return quern.BoolType
	default:
		return quern.StringType
	}
}

// buildFrame assembles a Frame from a header row and string cells, resolving
// column types from read parameters
func buildFrame(names []string, cells [][]string, params Params) (*quern.Frame, error) {
	types, err := columnTypes(names, cells, params)
	if err != nil {
		return nil, err
	}
	cols := make([]quern.Column, len(names))
	for i, name := range names {
		cols[i] = quern.Column{Name: name, Type: types[i]}
	}
	schema, err := quern.CreateSchema(cols...)
	if err != nil {
		return nil, err
	}
	frame := quern.CreateFrame(schema)
	values := make([]interface{}, len(names))
	for rowNum, row := range cells {
		for i := range names {
			v, err := parseCell(row[i], types[i])
			if err != nil {
				return nil, fmt.Errorf("Row %d: %w", rowNum, err)
			}
			values[i] = v
		}
		if err := frame.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func parseCell(cell string, colType quern.ColumnType) (interface{}, error) {
	switch colType {
	case quern.BoolType:
		if cell == "" {
			return false, nil
		}
		return strconv.ParseBool(cell)
	case quern.IntType:
		if cell == "" {
			return int64(0), nil
		}
		return strconv.ParseInt(cell, 10, 64)
	case quern.FloatType:
		if cell == "" {
			return float64(0), nil
		}
		return strconv.ParseFloat(cell, 64)
	case quern.TimeType:
		if cell == "" {
			return time.Time{}, nil
		}
		return parseTimeCell(cell)
	default:
		return cell, nil
	}
}

// renderCell formats a single Frame value for a text format
func renderCell(v interface{}, dateLayout string) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.Format(dateLayout)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// renderTable converts a Frame to a header row plus string cells. When the
// index parameter is explicitly true, a leading index column carrying the row
// number is included, mirroring the Frame's row order at write time.
func renderTable(frame *quern.Frame, params Params) ([]string, [][]string) {
	withIndex := params.Bool("index", false)
	dateLayout := params.String("date_format", defaultDateLayout)
	names := frame.Schema().ColumnNames()
	header := names
	if withIndex {
		header = append([]string{"index"}, names...)
	}
	cells := make([][]string, frame.NumRows())
	for row := 0; row < frame.NumRows(); row++ {
		line := make([]string, 0, len(header))
		if withIndex {
			line = append(line, strconv.Itoa(row))
		}
		for col := 0; col < frame.NumColumns(); col++ {
			line = append(line, renderCell(frame.Value(row, col), dateLayout))
		}
		cells[row] = line
	}
	return header, cells
}
