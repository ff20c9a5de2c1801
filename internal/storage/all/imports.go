// Package all wires all built-in storage backends into the storage factory.
//
// Importing it for side effects registers the "sqlite", "postgres", "mssql"
// and "mysql" kinds and their DDL bootstrappers:
//
//	import _ "keyvalidator/internal/storage/all"
//
// A binary that needs only a subset can import individual backends instead.
package all

import (
	_ "keyvalidator/internal/storage/mssql"
	_ "keyvalidator/internal/storage/mysql"
	_ "keyvalidator/internal/storage/postgres"
	_ "keyvalidator/internal/storage/sqlite"
)
