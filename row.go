package arbor

// Row is a single result row keyed by column name. Column order is
// preserved from the SELECT list, so serializing a Row yields columns in
// the order the query produced them.
type Row struct {
	columns []string
	values  map[string]any
}

// NewRow returns a Row with the given column order and values.
func NewRow(columns []string, values map[string]any) Row {
	return Row{columns: columns, values: values}
}

// Columns returns the column names in SELECT order.
func (r Row) Columns() []string {
	return r.columns
}

// Get returns the value of the named column.
func (r Row) Get(column string) any {
	return r.values[column]
}

// Has reports whether the row contains the named column.
func (r Row) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.columns)
}

// ToMap returns a copy of the row values as a plain map.
func (r Row) ToMap() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}
