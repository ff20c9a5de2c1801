package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"keyvalidator/internal/ddl"
)

// DDLBootstrapper maps a dialect-independent TableSpec to the backend's types
// and applies the CREATE statement via repo.Exec. It must be idempotent.
type DDLBootstrapper func(ctx context.Context, repo Repository, spec ddl.TableSpec) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) a DDLBootstrapper for the given storage
// kind. It is called from backend packages' init functions.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[strings.ToLower(kind)] = fn
}

// EnsureTable creates spec.Table on an open repository of the given kind if it
// does not exist yet.
func EnsureTable(ctx context.Context, kind string, repo Repository, spec ddl.TableSpec) error {
	ddlMu.RLock()
	fn, ok := ddlFns[strings.ToLower(kind)]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage kind %q", kind)
	}
	if err := fn(ctx, repo, spec); err != nil {
		return fmt.Errorf("ensure table %s: %w", spec.Table, err)
	}
	return nil
}
