package ddl

import (
	"fmt"
	"strings"

	gddl "keyvalidator/internal/ddl"
)

// BuildCreateTableSQL returns a T-SQL script that creates the table if it
// does not already exist. T-SQL has no CREATE TABLE IF NOT EXISTS, so the
// statement is guarded by OBJECT_ID:
//
//	IF OBJECT_ID(N'[dbo].[errors]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[errors] (
//	    [kind] NVARCHAR(MAX) NOT NULL
//	  );
//	END;
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	cols, err := gddl.ColumnList(t, quoteIdent)
	if err != nil {
		return "", fmt.Errorf("mssql ddl: %w", err)
	}
	fqn := gddl.QuoteFQN(t.FQN, quoteIdent)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		strings.ReplaceAll(fqn, "'", "''"),
		fqn,
		strings.Join(cols, ",\n    "),
	), nil
}

// quoteIdent quotes one identifier with brackets, escaping ']'.
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
