// Package ddl contains SQLite-specific helpers for generating DDL.
package ddl

import "strings"

// MapType maps a logical type string into a SQLite column affinity.
//
//	int/integer/bigint -> INTEGER
//	bool/boolean       -> INTEGER (0/1)
//	float/double/real  -> REAL
//	date/timestamp     -> TEXT (ISO-8601)
//	everything else    -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "INTEGER"
	case "bool", "boolean":
		return "INTEGER"
	case "float", "double", "real":
		return "REAL"
	case "date", "timestamp", "datetime", "timestamptz":
		return "TEXT"
	default:
		return "TEXT"
	}
}
