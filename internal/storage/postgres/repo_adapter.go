// Package postgres wires the Postgres backend into the storage factory and
// registers its DDL bootstrapper so callers can stay backend-agnostic.
package postgres

import (
	"context"

	gddl "keyvalidator/internal/ddl"
	"keyvalidator/internal/storage"
	pgddl "keyvalidator/internal/storage/postgres/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:     cfg.DSN,
			Table:   cfg.Table,
			Columns: cfg.Columns,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("postgres", func(ctx context.Context, repo storage.Repository, spec gddl.TableSpec) error {
		return pgddl.EnsureTable(ctx, repo, spec)
	})
}
