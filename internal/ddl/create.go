// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render simple CREATE TABLE statements from that model.
//
// The generic builder does not quote identifiers and does not emit IF NOT
// EXISTS. Backend packages (internal/storage/<kind>/ddl) wrap or replace it
// with their dialect's quoting and guards.
package ddl

import (
	"fmt"
	"strings"
)

// Resolve turns a TableSpec into a TableDef using the backend's type mapper.
// Key fields are rendered NOT NULL and become part of the primary key.
func Resolve(spec TableSpec, mapType func(string) string) (TableDef, error) {
	table := strings.TrimSpace(spec.Table)
	if table == "" {
		return TableDef{}, fmt.Errorf("ddl: missing table")
	}
	if len(spec.Fields) == 0 {
		return TableDef{}, fmt.Errorf("ddl: table %s has no fields", table)
	}
	if mapType == nil {
		return TableDef{}, fmt.Errorf("ddl: nil type mapper")
	}

	seen := make(map[string]struct{}, len(spec.Fields))
	cols := make([]ColumnDef, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return TableDef{}, fmt.Errorf("ddl: table %s: field with empty name", table)
		}
		if _, dup := seen[name]; dup {
			return TableDef{}, fmt.Errorf("ddl: table %s: duplicate field %q", table, name)
		}
		seen[name] = struct{}{}
		cols = append(cols, ColumnDef{
			Name:       name,
			SQLType:    mapType(f.Type),
			Nullable:   !f.Required && !f.Key,
			PrimaryKey: f.Key,
			Default:    f.Default,
		})
	}
	return TableDef{FQN: table, Columns: cols}, nil
}

// ColumnRenderer renders one column definition for a dialect.
type ColumnRenderer func(quotedName string, c ColumnDef) string

// RenderColumn emits "<name> <type> [NOT NULL] [DEFAULT expr]".
func RenderColumn(quotedName string, c ColumnDef) string {
	var sb strings.Builder
	sb.WriteString(quotedName)
	sb.WriteByte(' ')
	sb.WriteString(strings.TrimSpace(c.SQLType))
	if !c.Nullable || c.PrimaryKey {
		sb.WriteString(" NOT NULL")
	}
	if def := strings.TrimSpace(c.Default); def != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(def)
	}
	return sb.String()
}

// ColumnList validates t and returns the rendered column clauses, with a
// trailing PRIMARY KEY clause when any column is a key. quote is applied to
// every column name.
func ColumnList(t TableDef, quote func(string) string) ([]string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return nil, fmt.Errorf("table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("column with empty name in table %s", fqn)
		}
		if strings.TrimSpace(c.SQLType) == "" {
			return nil, fmt.Errorf("column %s missing SQLType", name)
		}
		q := quote(name)
		cols = append(cols, RenderColumn(q, c))
		if c.PrimaryKey {
			pks = append(pks, q)
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return cols, nil
}

// BuildCreateTableSQL renders a generic, unquoted CREATE TABLE statement:
//
//	CREATE TABLE <FQN> (
//	  <col1-def>,
//	  ...,
//	  [PRIMARY KEY (<pk-cols>)]
//	);
func BuildCreateTableSQL(t TableDef) (string, error) {
	cols, err := ColumnList(t, func(s string) string { return s })
	if err != nil {
		return "", fmt.Errorf("ddl: %w", err)
	}
	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n);",
		strings.TrimSpace(t.FQN),
		strings.Join(cols, ",\n  "),
	), nil
}

// QuoteFQN splits a dotted name and quotes each non-empty segment.
func QuoteFQN(fqn string, quote func(string) string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}
