package quern

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
)

// AggOp names an aggregation operation applied to a column during a GroupBy.
type AggOp string

const (
	// Sum totals a numeric column per group
	Sum AggOp = "sum"
	// Count counts rows per group
	Count AggOp = "count"
	// Nunique counts distinct values of a column per group
	Nunique AggOp = "nunique"
	// Mean averages a numeric column per group
	Mean AggOp = "mean"
	// Min takes the smallest value of a column per group
	Min AggOp = "min"
	// Max takes the largest value of a column per group
	Max AggOp = "max"
)

// aggSpec is a resolved aggregation: a source column plus the op applied to it
type aggSpec struct {
	col Column
	idx int
	op  AggOp
}

func resultColumn(spec aggSpec) (Column, error) {
	switch spec.op {
	case Count, Nunique:
		return Column{Name: spec.col.Name, Type: IntType}, nil
	case Mean:
		if spec.col.Type != IntType && spec.col.Type != FloatType {
			return Column{}, fmt.Errorf("Cannot take mean of column %s of type %s", spec.col.Name, spec.col.Type)
		}
		return Column{Name: spec.col.Name, Type: FloatType}, nil
	case Sum:
		if spec.col.Type != IntType && spec.col.Type != FloatType {
			return Column{}, fmt.Errorf("Cannot sum column %s of type %s", spec.col.Name, spec.col.Type)
		}
		return spec.col, nil
	case Min, Max:
		if spec.col.Type == BoolType {
			return Column{}, fmt.Errorf("Cannot take %s of column %s of type bool", spec.op, spec.col.Name)
		}
		return spec.col, nil
	default:
		return Column{}, fmt.Errorf("Unknown aggregation op %s for column %s", spec.op, spec.col.Name)
	}
}

// group collects the rows sharing one distinct key
type group struct {
	keyStr string
	rows   []int
}

// GroupBy groups the rows of this Frame by the given columns and computes the
// requested aggregations over each group. The result carries one row per
// distinct group: grouping columns first, in the order given, followed by one
// column per aggregation, ordered by column name. Result rows are sorted
// ascending by group key. Aggregated columns keep their source names; use
// Schema.RenameColumn on the result to relabel one.
func (f *Frame) GroupBy(by []string, aggs map[string]AggOp) (*Frame, error) {
	if len(by) == 0 {
		return nil, fmt.Errorf("GroupBy requires at least one grouping column")
	}
	groupCols := make([]Column, len(by))
	groupIdxs := make([]int, len(by))
	for i, name := range by {
		col, idx, err := f.schema.Column(name)
		if err != nil {
			return nil, err
		}
		groupCols[i] = col
		groupIdxs[i] = idx
	}
	aggNames := make([]string, 0, len(aggs))
	for name := range aggs {
		aggNames = append(aggNames, name)
	}
	sort.Strings(aggNames)
	specs := make([]aggSpec, 0, len(aggs))
	outCols := make([]Column, 0, len(by)+len(aggs))
	outCols = append(outCols, groupCols...)
	for _, name := range aggNames {
		col, idx, err := f.schema.Column(name)
		if err != nil {
			return nil, err
		}
		for _, g := range by {
			if g == name {
				return nil, fmt.Errorf("Cannot aggregate grouping column %s", name)
			}
		}
		spec := aggSpec{col: col, idx: idx, op: aggs[name]}
		resCol, err := resultColumn(spec)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
		outCols = append(outCols, resCol)
	}
	outSchema, err := CreateSchema(outCols...)
	if err != nil {
		return nil, err
	}
	out := CreateFrame(outSchema)

	// bucket rows by group key. Keys hash to buckets, with exact key
	// comparison within a bucket to guard against hash collisions.
	buckets := make(map[uint64][]*group)
	groups := make([]*group, 0)
	var sb strings.Builder
	for row := 0; row < f.nrows; row++ {
		sb.Reset()
		for i, idx := range groupIdxs {
			if i > 0 {
				sb.WriteByte(0x1f)
			}
			writeKeyValue(&sb, f, row, idx, groupCols[i].Type)
		}
		keyStr := sb.String()
		h := xxhash.Sum64String(keyStr)
		var grp *group
		for _, candidate := range buckets[h] {
			if candidate.keyStr == keyStr {
				grp = candidate
				break
			}
		}
		if grp == nil {
			grp = &group{keyStr: keyStr}
			buckets[h] = append(buckets[h], grp)
			groups = append(groups, grp)
		}
		grp.rows = append(grp.rows, row)
	}
	sort.Slice(groups, func(i, j int) bool {
		return lessGroup(f, groups[i], groups[j], groupIdxs, groupCols)
	})

	for _, grp := range groups {
		values := make([]interface{}, 0, len(outCols))
		for _, idx := range groupIdxs {
			values = append(values, f.Value(grp.rows[0], idx))
		}
		for _, spec := range specs {
			v, err := computeAgg(f, spec, grp.rows)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		if err := out.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeKeyValue(sb *strings.Builder, f *Frame, row int, colIdx int, colType ColumnType) {
	d := &f.data[colIdx]
	switch colType {
	case BoolType:
		sb.WriteString(strconv.FormatBool(d.bools[row]))
	case IntType:
		sb.WriteString(strconv.FormatInt(d.ints[row], 10))
	case FloatType:
		sb.WriteString(strconv.FormatFloat(d.floats[row], 'g', -1, 64))
	case StringType:
		sb.WriteString(d.strings[row])
	case TimeType:
		sb.WriteString(strconv.FormatInt(d.times[row].UnixNano(), 10))
	}
}

// lessGroup orders groups by their key values, column by column
func lessGroup(f *Frame, a *group, b *group, groupIdxs []int, groupCols []Column) bool {
	ra, rb := a.rows[0], b.rows[0]
	for i, idx := range groupIdxs {
		d := &f.data[idx]
		switch groupCols[i].Type {
		case BoolType:
			if d.bools[ra] != d.bools[rb] {
				return !d.bools[ra]
			}
		case IntType:
			if d.ints[ra] != d.ints[rb] {
				return d.ints[ra] < d.ints[rb]
			}
		case FloatType:
			if d.floats[ra] != d.floats[rb] {
				return d.floats[ra] < d.floats[rb]
			}
		case StringType:
			if d.strings[ra] != d.strings[rb] {
				return d.strings[ra] < d.strings[rb]
			}
		case TimeType:
			if !d.times[ra].Equal(d.times[rb]) {
				return d.times[ra].Before(d.times[rb])
			}
		}
	}
	return false
}

func computeAgg(f *Frame, spec aggSpec, rows []int) (interface{}, error) {
	d := &f.data[spec.idx]
	switch spec.op {
	case Count:
		return int64(len(rows)), nil
	case Nunique:
		seen := make(map[string]struct{}, len(rows))
		var sb strings.Builder
		for _, row := range rows {
			sb.Reset()
			writeKeyValue(&sb, f, row, spec.idx, spec.col.Type)
			seen[sb.String()] = struct{}{}
		}
		return int64(len(seen)), nil
	case Sum:
		if spec.col.Type == IntType {
			var sum int64
			for _, row := range rows {
				sum += d.ints[row]
			}
			return sum, nil
		}
		var sum float64
		for _, row := range rows {
			sum += d.floats[row]
		}
		return sum, nil
	case Mean:
		var sum float64
		for _, row := range rows {
			if spec.col.Type == IntType {
				sum += float64(d.ints[row])
			} else {
				sum += d.floats[row]
			}
		}
		return sum / float64(len(rows)), nil
	case Min, Max:
		return extremum(f, spec, rows), nil
	default:
		return nil, fmt.Errorf("Unknown aggregation op %s for column %s", spec.op, spec.col.Name)
	}
}

func extremum(f *Frame, spec aggSpec, rows []int) interface{} {
	d := &f.data[spec.idx]
	wantMax := spec.op == Max
	switch spec.col.Type {
	case IntType:
		best := d.ints[rows[0]]
		for _, row := range rows[1:] {
			if v := d.ints[row]; (wantMax && v > best) || (!wantMax && v < best) {
				best = v
			}
		}
		return best
	case FloatType:
		best := d.floats[rows[0]]
		for _, row := range rows[1:] {
			if v := d.floats[row]; (wantMax && v > best) || (!wantMax && v < best) {
				best = v
			}
		}
		return best
	case StringType:
		best := d.strings[rows[0]]
		for _, row := range rows[1:] {
			if v := d.strings[row]; (wantMax && v > best) || (!wantMax && v < best) {
				best = v
			}
		}
		return best
	case TimeType:
		best := d.times[rows[0]]
		for _, row := range rows[1:] {
			if v := d.times[row]; (wantMax && v.After(best)) || (!wantMax && v.Before(best)) {
				best = v
			}
		}
		return best
	}
	return nil
}
