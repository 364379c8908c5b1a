package schema

// columnType enumerates the portable column types a Blueprint can
// declare. Each dialect grammar maps them to native types.
type columnType int

const (
	typeBigIncrements columnType = iota
	typeBigInteger
	typeInteger
	typeSmallInteger
	typeString
	typeText
	typeBoolean
	typeDecimal
	typeFloat
	typeDate
	typeDateTime
	typeTimestamp
	typeJSON
	typeBinary
	typeUUID
)

// ColumnDefinition is one column being added. The chainable modifiers
// mutate the definition in place and return it, so declarations read as
// one fluent line.
type ColumnDefinition struct {
	name          string
	typ           columnType
	length        int
	precision     int
	scale         int
	nullable      bool
	hasDefault    bool
	defaultValue  any
	unsigned      bool
	autoIncrement bool
	primary       bool
	unique        bool
}

// Nullable allows NULL values. Columns are NOT NULL by default.
func (c *ColumnDefinition) Nullable() *ColumnDefinition {
	c.nullable = true
	return c
}

// Default sets the column default.
func (c *ColumnDefinition) Default(v any) *ColumnDefinition {
	c.hasDefault = true
	c.defaultValue = v
	return c
}

// Unsigned marks an integer column unsigned (MySQL; elsewhere a no-op).
func (c *ColumnDefinition) Unsigned() *ColumnDefinition {
	c.unsigned = true
	return c
}

// AutoIncrement makes the column a backend-assigned serial key.
func (c *ColumnDefinition) AutoIncrement() *ColumnDefinition {
	c.autoIncrement = true
	c.primary = true
	return c
}

// Primary makes the column the primary key inline.
func (c *ColumnDefinition) Primary() *ColumnDefinition {
	c.primary = true
	return c
}

// Unique adds an inline unique constraint on the column.
func (c *ColumnDefinition) Unique() *ColumnDefinition {
	c.unique = true
	return c
}

// commandKind enumerates the non-column operations a Blueprint records.
type commandKind int

const (
	cmdIndex commandKind = iota
	cmdUnique
	cmdPrimary
	cmdForeign
	cmdDropColumn
	cmdDropIndex
	cmdRenameColumn
)

type command struct {
	kind    commandKind
	columns []string
	index   string
	to      string
	foreign *ForeignKeyDefinition
}

// ForeignKeyDefinition declares a foreign key constraint, built with the
// chainable References / On / OnDelete / OnUpdate calls.
type ForeignKeyDefinition struct {
	column     string
	references string
	on         string
	onDelete   string
	onUpdate   string
}

// References names the referenced column.
func (f *ForeignKeyDefinition) References(column string) *ForeignKeyDefinition {
	f.references = column
	return f
}

// On names the referenced table.
func (f *ForeignKeyDefinition) On(table string) *ForeignKeyDefinition {
	f.on = table
	return f
}

// OnDelete sets the referential delete action ("cascade", "set null",
// "restrict", "no action").
func (f *ForeignKeyDefinition) OnDelete(action string) *ForeignKeyDefinition {
	f.onDelete = action
	return f
}

// OnUpdate sets the referential update action.
func (f *ForeignKeyDefinition) OnUpdate(action string) *ForeignKeyDefinition {
	f.onUpdate = action
	return f
}

// Blueprint accumulates column definitions and table commands in call
// order. A create blueprint renders one CREATE TABLE; an alter blueprint
// renders one ALTER TABLE statement per added column and per command,
// and deliberately does not wrap them in a transaction — the migration
// runner owns transactional safety.
type Blueprint struct {
	table    string
	create   bool
	columns  []*ColumnDefinition
	commands []command
}

func (b *Blueprint) addColumn(name string, t columnType) *ColumnDefinition {
	col := &ColumnDefinition{name: name, typ: t}
	b.columns = append(b.columns, col)
	return col
}

// ID adds an auto-incrementing unsigned big integer primary key, named
// "id" unless overridden.
func (b *Blueprint) ID(name ...string) *ColumnDefinition {
	n := "id"
	if len(name) > 0 {
		n = name[0]
	}
	col := b.addColumn(n, typeBigIncrements)
	col.unsigned = true
	col.autoIncrement = true
	col.primary = true
	return col
}

// BigInteger adds a 64-bit integer column.
func (b *Blueprint) BigInteger(name string) *ColumnDefinition {
	return b.addColumn(name, typeBigInteger)
}

// Integer adds a 32-bit integer column.
func (b *Blueprint) Integer(name string) *ColumnDefinition {
	return b.addColumn(name, typeInteger)
}

// SmallInteger adds a 16-bit integer column.
func (b *Blueprint) SmallInteger(name string) *ColumnDefinition {
	return b.addColumn(name, typeSmallInteger)
}

// String adds a varchar column, length 255 unless given.
func (b *Blueprint) String(name string, length ...int) *ColumnDefinition {
	col := b.addColumn(name, typeString)
	col.length = 255
	if len(length) > 0 {
		col.length = length[0]
	}
	return col
}

// Text adds an unbounded text column.
func (b *Blueprint) Text(name string) *ColumnDefinition {
	return b.addColumn(name, typeText)
}

// Boolean adds a boolean column.
func (b *Blueprint) Boolean(name string) *ColumnDefinition {
	return b.addColumn(name, typeBoolean)
}

// Decimal adds an exact numeric column with the given precision and
// scale.
func (b *Blueprint) Decimal(name string, precision, scale int) *ColumnDefinition {
	col := b.addColumn(name, typeDecimal)
	col.precision = precision
	col.scale = scale
	return col
}

// Float adds a double-precision column.
func (b *Blueprint) Float(name string) *ColumnDefinition {
	return b.addColumn(name, typeFloat)
}

// Date adds a date column.
func (b *Blueprint) Date(name string) *ColumnDefinition {
	return b.addColumn(name, typeDate)
}

// DateTime adds a datetime column.
func (b *Blueprint) DateTime(name string) *ColumnDefinition {
	return b.addColumn(name, typeDateTime)
}

// Timestamp adds a timestamp column.
func (b *Blueprint) Timestamp(name string) *ColumnDefinition {
	return b.addColumn(name, typeTimestamp)
}

// JSON adds a JSON document column (TEXT on backends without a native
// type).
func (b *Blueprint) JSON(name string) *ColumnDefinition {
	return b.addColumn(name, typeJSON)
}

// Binary adds a binary blob column.
func (b *Blueprint) Binary(name string) *ColumnDefinition {
	return b.addColumn(name, typeBinary)
}

// UUID adds a char(36) column (native uuid on Postgres).
func (b *Blueprint) UUID(name string) *ColumnDefinition {
	return b.addColumn(name, typeUUID)
}

// Timestamps adds nullable created_at and updated_at columns.
func (b *Blueprint) Timestamps() {
	b.Timestamp("created_at").Nullable()
	b.Timestamp("updated_at").Nullable()
}

// SoftDeletes adds the nullable deleted_at column, named "deleted_at"
// unless overridden.
func (b *Blueprint) SoftDeletes(name ...string) *ColumnDefinition {
	n := "deleted_at"
	if len(name) > 0 {
		n = name[0]
	}
	return b.Timestamp(n).Nullable()
}

// ForeignID adds an unsigned big integer column suited to referencing an
// ID() key, plus a Foreign command to attach the constraint to.
func (b *Blueprint) ForeignID(name string) *ColumnDefinition {
	col := b.addColumn(name, typeBigInteger)
	col.unsigned = true
	return col
}

// Index records a plain index over the given columns.
func (b *Blueprint) Index(columns ...string) {
	b.commands = append(b.commands, command{kind: cmdIndex, columns: columns, index: b.indexName("idx", columns)})
}

// Unique records a unique index over the given columns.
func (b *Blueprint) Unique(columns ...string) {
	b.commands = append(b.commands, command{kind: cmdUnique, columns: columns, index: b.indexName("uq", columns)})
}

// Primary records a composite primary key command.
func (b *Blueprint) Primary(columns ...string) {
	b.commands = append(b.commands, command{kind: cmdPrimary, columns: columns})
}

// Foreign starts a foreign key declaration on the given column.
func (b *Blueprint) Foreign(column string) *ForeignKeyDefinition {
	fk := &ForeignKeyDefinition{column: column}
	b.commands = append(b.commands, command{kind: cmdForeign, columns: []string{column}, foreign: fk})
	return fk
}

// DropColumn records column removals.
func (b *Blueprint) DropColumn(columns ...string) {
	for _, c := range columns {
		b.commands = append(b.commands, command{kind: cmdDropColumn, columns: []string{c}})
	}
}

// DropIndex records an index removal by name.
func (b *Blueprint) DropIndex(name string) {
	b.commands = append(b.commands, command{kind: cmdDropIndex, index: name})
}

// RenameColumn records a column rename.
func (b *Blueprint) RenameColumn(from, to string) {
	b.commands = append(b.commands, command{kind: cmdRenameColumn, columns: []string{from}, to: to})
}

func (b *Blueprint) indexName(kind string, columns []string) string {
	name := b.table + "_" + kind
	for _, c := range columns {
		name += "_" + c
	}
	return name
}
