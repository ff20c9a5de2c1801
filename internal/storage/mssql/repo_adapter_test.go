package mssql

import (
	"context"
	"testing"

	"keyvalidator/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	closed := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:    "mssql",
		DSN:     "sqlserver://sa:pw@localhost:1433?database=kv",
		Table:   "dbo.kv_errors",
		Columns: []string{"kind"},
	})
	require.NoError(t, err)
	assert.Equal(t, "dbo.kv_errors", gotCfg.Table)
	assert.Equal(t, []string{"kind"}, gotCfg.Columns)

	repo.Close()
	assert.True(t, closed)
	assert.Contains(t, storage.ListKinds(), "mssql")
}

func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"})
	assert.ErrorContains(t, err, "mssql dsn")
}

func TestCopyFromEmptyIsNoop(t *testing.T) {
	t.Parallel()

	r := &Repository{}
	n, err := r.CopyFrom(context.Background(), []string{"kind"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
