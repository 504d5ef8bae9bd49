package format

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-quern/quern"
	"github.com/tidwall/gjson"
)

// jsonCodec reads and writes JSON records (.json), either as one array of
// objects (orient "records", the default) or as newline-delimited objects
// (orient "lines").
//
// Numeric JSON values whose every occurrence is integral are read back as int
// columns; booleans and strings keep their types. parse_dates applies to
// string-valued columns.
type jsonCodec struct{}

// Kind returns the short name of this Codec's format family
func (c *jsonCodec) Kind() string { return "json" }

// Defaults returns the default parameters for this Codec
func (c *jsonCodec) Defaults() Params {
	return Params{"orient": "records"}
}

// Read reads a JSON file into a Frame
func (c *jsonCodec) Read(path string, params Params) (*quern.Frame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var objects []gjson.Result
	if params.String("orient", "records") == "lines" || params.Bool("lines", false) {
		for _, line := range strings.Split(string(raw), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			objects = append(objects, gjson.Parse(line))
		}
	} else {
		parsed := gjson.ParseBytes(raw)
		if !parsed.IsArray() {
			return nil, fmt.Errorf("JSON file %s is not an array of records", path)
		}
		objects = parsed.Array()
	}
	if len(objects) == 0 {
		return quern.CreateFrame(nil), nil
	}

	// column order follows first appearance across all records
	var names []string
	seen := map[string]bool{}
	for _, obj := range objects {
		obj.ForEach(func(key, _ gjson.Result) bool {
			if !seen[key.String()] {
				seen[key.String()] = true
				names = append(names, key.String())
			}
			return true
		})
	}
	types := make([]quern.ColumnType, len(names))
	for i, name := range names {
		types[i] = jsonColumnType(objects, name)
	}
	for _, name := range params.Strings("parse_dates") {
		for i, colName := range names {
			if colName == name {
				types[i] = quern.TimeType
			}
		}
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
	for _, obj := range objects {
		for i, name := range names {
			v, err := jsonValue(obj.Get(name), types[i])
			if err != nil {
				return nil, fmt.Errorf("Column %s: %w", name, err)
			}
			values[i] = v
		}
		if err := frame.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func jsonColumnType(objects []gjson.Result, name string) quern.ColumnType {
	integral := true
	numeric := true
	boolean := true
	for _, obj := range objects {
		v := obj.Get(name)
		switch v.Type {
		case gjson.Number:
			boolean = false
			if v.Num != math.Trunc(v.Num) {
				integral = false
			}
		case gjson.True, gjson.False:
			numeric = false
		case gjson.Null:
			// nulls do not constrain the type
		default:
			return quern.StringType
		}
	}
	switch {
	case boolean && !numeric:
		return quern.BoolType
	case numeric && integral:
		return quern.IntType
	case numeric:
		return quern.FloatType
	default:
		return quern.StringType
	}
}

func jsonValue(v gjson.Result, colType quern.ColumnType) (interface{}, error) {
	switch colType {
	case quern.BoolType:
		return v.Bool(), nil
	case quern.IntType:
		return int64(v.Num), nil
	case quern.FloatType:
		return v.Num, nil
	case quern.TimeType:
		if v.Type != gjson.String || v.Str == "" {
			return time.Time{}, nil
		}
		return parseTimeCell(v.Str)
	default:
		return v.String(), nil
	}
}

// Write serializes a Frame as JSON records
func (c *jsonCodec) Write(frame *quern.Frame, path string, params Params) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	lines := params.String("orient", "records") == "lines" || params.Bool("lines", false)
	dateLayout := params.String("date_format", defaultDateLayout)
	names := frame.Schema().ColumnNames()
	if !lines {
		if _, err := bw.WriteString("[\n"); err != nil {
			return err
		}
	}
	for row := 0; row < frame.NumRows(); row++ {
		var sb strings.Builder
		sb.WriteByte('{')
		for col, name := range names {
			if col > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(name))
			sb.WriteByte(':')
			writeJSONValue(&sb, frame.Value(row, col), dateLayout)
		}
		sb.WriteByte('}')
		if !lines && row < frame.NumRows()-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
		if _, err := bw.WriteString(sb.String()); err != nil {
			return err
		}
	}
	if !lines {
		if _, err := bw.WriteString("]\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeJSONValue(sb *strings.Builder, v interface{}, dateLayout string) {
	switch val := v.(type) {
	case bool:
		sb.WriteString(strconv.FormatBool(val))
	case int64:
		sb.WriteString(strconv.FormatInt(val, 10))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			sb.WriteString("null")
			return
		}
		sb.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case time.Time:
		sb.WriteString(strconv.Quote(val.Format(dateLayout)))
	case string:
		sb.WriteString(strconv.Quote(val))
	default:
		sb.WriteString(strconv.Quote(fmt.Sprintf("%v", val)))
	}
}
