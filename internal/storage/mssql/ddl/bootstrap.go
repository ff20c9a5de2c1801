package ddl

import (
	"context"
	"fmt"

	gddl "keyvalidator/internal/ddl"
	"keyvalidator/internal/storage"
)

// EnsureTable creates the target SQL Server table if it does not exist.
func EnsureTable(ctx context.Context, repo storage.Repository, spec gddl.TableSpec) error {
	td, err := gddl.Resolve(spec, MapType)
	if err != nil {
		return fmt.Errorf("mssql ddl: %w", err)
	}
	sql, err := BuildCreateTableSQL(td)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
