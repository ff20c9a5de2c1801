package ddl

import (
	"context"
	"testing"

	gddl "keyvalidator/internal/ddl"
	"keyvalidator/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execRecorder struct {
	storage.Repository
	sql []string
}

func (r *execRecorder) Exec(_ context.Context, sql string) error {
	r.sql = append(r.sql, sql)
	return nil
}

func TestMapType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BIGINT", MapType("bigint"))
	assert.Equal(t, "BIT", MapType("boolean"))
	assert.Equal(t, "DATETIME2", MapType("timestamptz"))
	assert.Equal(t, "NVARCHAR(450)", MapType("key"))
	assert.Equal(t, "NVARCHAR(MAX)", MapType("string"))
	assert.Equal(t, "NVARCHAR(MAX)", MapType(""))
}

func TestEnsureTable(t *testing.T) {
	t.Parallel()

	rec := &execRecorder{}
	spec := gddl.TableSpec{
		Table: "dbo.kv_errors",
		Fields: []gddl.Field{
			{Name: "kind", Type: "string", Required: true},
			{Name: "line]no", Type: "bigint"},
		},
	}
	require.NoError(t, EnsureTable(context.Background(), rec, spec))
	require.Len(t, rec.sql, 1)

	want := "IF OBJECT_ID(N'[dbo].[kv_errors]', N'U') IS NULL\n" +
		"BEGIN\n" +
		"  CREATE TABLE [dbo].[kv_errors] (\n" +
		"    [kind] NVARCHAR(MAX) NOT NULL,\n" +
		"    [line]]no] BIGINT\n" +
		"  );\n" +
		"END;"
	assert.Equal(t, want, rec.sql[0])
}

func TestBuildCreateTableSQLPrimaryKey(t *testing.T) {
	t.Parallel()

	sql, err := BuildCreateTableSQL(gddl.TableDef{
		FQN:     "errors",
		Columns: []gddl.ColumnDef{{Name: "run_id", SQLType: "NVARCHAR(450)", PrimaryKey: true}},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "[run_id] NVARCHAR(450) NOT NULL")
	assert.Contains(t, sql, "PRIMARY KEY ([run_id])")
}
