// Package ddl contains MySQL-specific helpers for generating DDL.
package ddl

import "strings"

// MapType maps a logical type string into a MySQL column type.
//
//	int/integer/bigint -> BIGINT
//	bool/boolean       -> TINYINT(1)
//	date               -> DATE
//	timestamp          -> DATETIME(6)
//	key                -> VARCHAR(255) (indexable)
//	everything else    -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "TINYINT(1)"
	case "date":
		return "DATE"
	case "timestamp", "datetime", "timestamptz":
		return "DATETIME(6)"
	case "json":
		return "JSON"
	case "key":
		return "VARCHAR(255)"
	default:
		return "TEXT"
	}
}
