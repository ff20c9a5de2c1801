package ddl

// ColumnDef describes a single column in a table definition after the logical
// type has been mapped to a dialect type.
//
// Fields:
//   - Name: column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, NVARCHAR(MAX))
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is expected in dotted form (e.g., "schema.table") and will
// be quoted by renderers as needed.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Field is a dialect-independent column: a name plus a logical type such as
// "string", "bigint" or "timestamp".
type Field struct {
	Name     string
	Type     string
	Required bool
	Key      bool
	Default  string
}

// TableSpec is what callers hand to a backend bootstrapper. Each backend maps
// Field.Type through its own MapType to produce a TableDef.
type TableSpec struct {
	Table  string
	Fields []Field
}

// Columns returns the field names in order.
func (s TableSpec) Columns() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}
