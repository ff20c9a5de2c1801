package ddl

import (
	"context"
	"fmt"

	gddl "keyvalidator/internal/ddl"
	"keyvalidator/internal/storage"
)

// EnsureTable maps spec to SQLite types and creates the table if missing.
func EnsureTable(ctx context.Context, repo storage.Repository, spec gddl.TableSpec) error {
	td, err := gddl.Resolve(spec, MapType)
	if err != nil {
		return fmt.Errorf("sqlite ddl: %w", err)
	}
	sql, err := BuildCreateTableSQL(td)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
