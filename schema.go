package quern

import "fmt"

// Schema is an ordered mapping from column names to column types. It allows
// one to look up columns by name, define new columns, rename columns, etc.
type Schema struct {
	cols  []Column
	index map[string]int
}

// CreateSchema is a factory for Schemas
func CreateSchema(cols ...Column) (*Schema, error) {
	s := &Schema{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for _, col := range cols {
		if err := s.CreateColumn(col); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NumColumns returns the number of columns in this Schema
func (s *Schema) NumColumns() int {
	return len(s.cols)
}

// Columns returns the columns in this Schema, in index order
func (s *Schema) Columns() []Column {
	cols := make([]Column, len(s.cols))
	copy(cols, s.cols)
	return cols
}

// ColumnNames returns the column names in this Schema, in index order
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.cols))
	for i, col := range s.cols {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column and its index within this Schema
func (s *Schema) Column(colName string) (Column, int, error) {
	idx, ok := s.index[colName]
	if !ok {
		return Column{}, -1, fmt.Errorf("Schema does not contain column with name %s", colName)
	}
	return s.cols[idx], idx, nil
}

// HasColumn returns true iff this Schema contains a column with the given name
func (s *Schema) HasColumn(colName string) bool {
	_, ok := s.index[colName]
	return ok
}

// CreateColumn defines a new column within this Schema
func (s *Schema) CreateColumn(col Column) error {
	if _, ok := s.index[col.Name]; ok {
		return fmt.Errorf("Schema already contains column with name %s", col.Name)
	}
	s.index[col.Name] = len(s.cols)
	s.cols = append(s.cols, col)
	return nil
}

// RenameColumn renames a column within this Schema
func (s *Schema) RenameColumn(oldName string, newName string) error {
	idx, ok := s.index[oldName]
	if !ok {
		return fmt.Errorf("Schema does not contain column with name %s", oldName)
	}
	if _, taken := s.index[newName]; taken && newName != oldName {
		return fmt.Errorf("Schema already contains column with name %s", newName)
	}
	delete(s.index, oldName)
	s.index[newName] = idx
	s.cols[idx].Name = newName
	return nil
}

// Clone returns a copy of this Schema
func (s *Schema) Clone() *Schema {
	clone := &Schema{
		cols:  make([]Column, len(s.cols)),
		index: make(map[string]int, len(s.index)),
	}
	copy(clone.cols, s.cols)
	for k, v := range s.index {
		clone.index[k] = v
	}
	return clone
}

// Equals returns nil iff this and another Schema have identical columns, in order
func (s *Schema) Equals(otherSchema *Schema) error {
	if otherSchema == nil {
		return fmt.Errorf("Other schema is nil")
	}
	if s.NumColumns() != otherSchema.NumColumns() {
		return fmt.Errorf("Schemas have unequal numbers of columns")
	}
	for i, col := range s.cols {
		other := otherSchema.cols[i]
		if col.Name != other.Name {
			return fmt.Errorf("Column %d names do not match: %s vs %s", i, col.Name, other.Name)
		}
		if col.Type != other.Type {
			return fmt.Errorf("Column %s types do not match: %s vs %s", col.Name, col.Type, other.Type)
		}
	}
	return nil
}
