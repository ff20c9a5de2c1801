package mysql

import (
	"context"
	"testing"

	"keyvalidator/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertStatement(t *testing.T) {
	t.Parallel()

	stmt, args, err := insertStatement("kv.errors", []string{"kind", "line_number"}, [][]any{
		{"RELATION", 4},
		{"SURJECTION", -1},
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `kv`.`errors` (`kind`,`line_number`) VALUES (?,?),(?,?)", stmt)
	assert.Equal(t, []any{"RELATION", 4, "SURJECTION", -1}, args)

	_, _, err = insertStatement("t", []string{"a", "b"}, [][]any{{1}})
	assert.ErrorContains(t, err, "row 0")
}

func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{cfg: cfg}, nil, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:  "mysql",
		DSN:   "u:p@tcp(localhost:3306)/kv",
		Table: "kv_errors",
	})
	require.NoError(t, err)
	assert.Equal(t, "kv_errors", gotCfg.Table)
	repo.Close() // nil closeFn is tolerated
}

func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn"})
	assert.ErrorContains(t, err, "mysql dsn")
}

func TestCopyFromValidation(t *testing.T) {
	t.Parallel()

	r := &Repository{}
	_, err := r.CopyFrom(context.Background(), nil, [][]any{{1}})
	assert.Error(t, err)

	n, err := r.CopyFrom(context.Background(), []string{"a"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
