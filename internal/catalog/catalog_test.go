// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/psqlpack/psqlpack/internal/sqlast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	pg := &Postgres{target: fakeDB{conn}}
	return pg, mock
}

// fakeDB adapts a *sql.DB straight through, bypassing RDB's retry wrapper
// so sqlmock expectations match exactly one attempt per call.
type fakeDB struct{ *sql.DB }

func (f fakeDB) WithRetryableTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	tx, err := f.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func TestDatabaseExistsQueriesHostConnection(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	pg := &Postgres{host: fakeDB{conn}}
	mock.ExpectQuery(`SELECT 1 FROM pg_database WHERE datname = \$1`).
		WithArgs("widgets").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := pg.DatabaseExists(context.Background(), "widgets")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListExtensionsMarksEveryRowInstalled(t *testing.T) {
	pg, mock := newTestCatalog(t)
	mock.ExpectQuery(`SELECT extname, extversion`).
		WillReturnRows(sqlmock.NewRows([]string{"extname", "extversion"}).
			AddRow("uuid-ossp", "1.1").
			AddRow("pgcrypto", "1.3"))

	extensions, err := pg.ListExtensions(context.Background())
	require.NoError(t, err)
	require.Len(t, extensions, 2)
	assert.Equal(t, Extension{Name: "uuid-ossp", Version: "1.1", Installed: true}, extensions[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeColumnsReparsesTypesAndNullability(t *testing.T) {
	pg, mock := newTestCatalog(t)
	mock.ExpectQuery(`SELECT column_name, data_type, is_nullable, column_default`).
		WithArgs("public", "widgets").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default"}).
			AddRow("id", "integer", "NO", nil).
			AddRow("name", "character varying(50)", "YES", "'unnamed'::character varying"))

	columns, err := pg.DescribeColumns(context.Background(), "public", "widgets")
	require.NoError(t, err)
	require.Len(t, columns, 2)

	assert.Equal(t, "id", columns[0].Name)
	assert.Equal(t, sqlast.Integer, columns[0].Type.SimpleType.Kind)
	assert.True(t, columns[0].HasConstraint(sqlast.ColumnNotNull))

	assert.Equal(t, "name", columns[1].Name)
	assert.Equal(t, sqlast.VariableLengthString, columns[1].Type.SimpleType.Kind)
	assert.EqualValues(t, 50, columns[1].Type.SimpleType.Size)
	assert.False(t, columns[1].HasConstraint(sqlast.ColumnNotNull))
	assert.True(t, columns[1].HasConstraint(sqlast.ColumnDefault))
}

func TestListTypesReconstructsEnumsInSortOrder(t *testing.T) {
	pg, mock := newTestCatalog(t)
	mock.ExpectQuery(`SELECT t.typname, t.oid`).
		WillReturnRows(sqlmock.NewRows([]string{"typname", "oid"}).AddRow("mood", 16400))
	mock.ExpectQuery(`SELECT enumlabel FROM pg_catalog.pg_enum WHERE enumtypid = \$1`).
		WithArgs(int64(16400)).
		WillReturnRows(sqlmock.NewRows([]string{"enumlabel"}).
			AddRow("sad").
			AddRow("ok").
			AddRow("happy"))

	types, err := pg.ListTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "mood", types[0].Name.Name)
	assert.Equal(t, []string{"sad", "ok", "happy"}, types[0].Kind.EnumValues)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFunctionsReparsesArgumentsAndReturnType(t *testing.T) {
	pg, mock := newTestCatalog(t)
	mock.ExpectQuery(`SELECT n.nspname, p.proname, p.prosrc`).
		WillReturnRows(sqlmock.NewRows([]string{
			"nspname", "proname", "prosrc", "pg_get_function_arguments", "lanname", "pg_get_function_result",
		}).AddRow("public", "greet", "select 'hi'", "name text", "sql", "text"))

	functions, err := pg.ListFunctions(context.Background())
	require.NoError(t, err)
	require.Len(t, functions, 1)
	fn := functions[0]
	assert.Equal(t, "greet", fn.Name.Name)
	assert.Equal(t, sqlast.LangSQL, fn.Language)
	require.Len(t, fn.Arguments, 1)
	assert.Equal(t, "name", fn.Arguments[0].Name)
	assert.Equal(t, sqlast.ReturnsSqlType, fn.ReturnType.Tag)
	assert.Equal(t, sqlast.Text, fn.ReturnType.Type.SimpleType.Kind)
}

func TestParseConstraintDefHandlesPrimaryAndForeignKeys(t *testing.T) {
	pk, ok := parseConstraintDef("widgets_pkey", "PRIMARY KEY (id)")
	require.True(t, ok)
	assert.Equal(t, sqlast.TagPrimary, pk.Tag)
	assert.Equal(t, []string{"id"}, pk.Columns)

	fk, ok := parseConstraintDef("widgets_owner_fkey", "FOREIGN KEY (owner_id) REFERENCES public.owners(id)")
	require.True(t, ok)
	assert.Equal(t, sqlast.TagForeign, fk.Tag)
	assert.Equal(t, []string{"owner_id"}, fk.Columns)
	assert.Equal(t, sqlast.ObjectName{Schema: "public", Name: "owners"}, fk.RefTable)
	assert.Equal(t, []string{"id"}, fk.RefColumns)

	_, ok = parseConstraintDef("widgets_check", "CHECK (price > 0)")
	assert.False(t, ok)
}
