package storage

import (
	"context"
	"errors"
	"testing"

	"keyvalidator/internal/ddl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is a minimal Repository implementation for tests.
type fakeRepo struct {
	closed bool
	execs  []string
}

func (f *fakeRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}
func (f *fakeRepo) Exec(ctx context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	return nil
}
func (f *fakeRepo) Close() { f.closed = true }

// TestRegisterAndNew_Success verifies that registering a backend enables New
// to return the corresponding repository, case-insensitively.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	var got Config
	Register("fake-ok", func(ctx context.Context, cfg Config) (Repository, error) {
		got = cfg
		return &fakeRepo{}, nil
	})

	cfg := Config{Kind: "FAKE-OK", DSN: "x", Table: "t", Columns: []string{"a"}}
	repo, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, cfg, got)
	assert.Contains(t, ListKinds(), "fake-ok")
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported kind")
}

func TestNew_FactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	Register("fake-err", func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, boom
	})
	_, err := New(context.Background(), Config{Kind: "fake-err"})
	assert.ErrorIs(t, err, boom)
}

func TestEnsureTable(t *testing.T) {
	t.Parallel()

	var gotSpec ddl.TableSpec
	RegisterDDL("fake-ddl", func(ctx context.Context, repo Repository, spec ddl.TableSpec) error {
		gotSpec = spec
		return repo.Exec(ctx, "CREATE "+spec.Table)
	})

	repo := &fakeRepo{}
	spec := ddl.TableSpec{Table: "errs", Fields: []ddl.Field{{Name: "kind", Type: "string"}}}
	require.NoError(t, EnsureTable(context.Background(), "fake-ddl", repo, spec))
	assert.Equal(t, spec, gotSpec)
	assert.Equal(t, []string{"CREATE errs"}, repo.execs)

	err := EnsureTable(context.Background(), "nope", repo, spec)
	assert.ErrorContains(t, err, "no DDL bootstrapper")
}
