// SPDX-License-Identifier: Apache-2.0

package differ_test

import (
	"context"
	"testing"

	"github.com/psqlpack/psqlpack/internal/catalog"
	"github.com/psqlpack/psqlpack/internal/connstr"
	"github.com/psqlpack/psqlpack/internal/differ"
	"github.com/psqlpack/psqlpack/internal/plog"
	"github.com/psqlpack/psqlpack/internal/project"
	"github.com/psqlpack/psqlpack/internal/schema"
	"github.com/psqlpack/psqlpack/internal/semver"
	"github.com/psqlpack/psqlpack/internal/sqlast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog is a hand-rolled in-memory catalog.Catalog, grounded on the
// sqlmock-based fake in internal/catalog/catalog_test.go but avoiding SQL
// entirely since the differ never issues queries itself.
type fakeCatalog struct {
	databases  map[string]bool
	extensions []catalog.Extension
	schemas    []sqlast.SchemaDefinition
	types      []sqlast.TypeDefinition
	tables     []sqlast.TableDefinition
	functions  []sqlast.FunctionDefinition
	indexes    []sqlast.IndexDefinition
}

func (f *fakeCatalog) DatabaseExists(ctx context.Context, name string) (bool, error) {
	return f.databases[name], nil
}
func (f *fakeCatalog) ExtensionExists(ctx context.Context, name string) (bool, error) {
	for _, e := range f.extensions {
		if e.Name == name {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeCatalog) ListExtensions(ctx context.Context) ([]catalog.Extension, error) {
	return f.extensions, nil
}
func (f *fakeCatalog) SchemaExists(ctx context.Context, name string) (bool, error) {
	for _, s := range f.schemas {
		if s.Name == name {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeCatalog) ListSchemas(ctx context.Context) ([]sqlast.SchemaDefinition, error) {
	return f.schemas, nil
}
func (f *fakeCatalog) TableExists(ctx context.Context, schema, name string) (bool, error) {
	for _, t := range f.tables {
		if t.Name.Schema == schema && t.Name.Name == name {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeCatalog) ListTables(ctx context.Context) ([]sqlast.TableDefinition, error) {
	return f.tables, nil
}
func (f *fakeCatalog) DescribeColumns(ctx context.Context, schemaName, table string) ([]sqlast.ColumnDefinition, error) {
	for _, t := range f.tables {
		if t.Name.Schema == schemaName && t.Name.Name == table {
			return t.Columns, nil
		}
	}
	return nil, nil
}
func (f *fakeCatalog) TypeExists(ctx context.Context, name string) (bool, error) {
	for _, t := range f.types {
		if t.Name.Name == name {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeCatalog) ListTypes(ctx context.Context) ([]sqlast.TypeDefinition, error) {
	return f.types, nil
}
func (f *fakeCatalog) ListFunctions(ctx context.Context) ([]sqlast.FunctionDefinition, error) {
	return f.functions, nil
}
func (f *fakeCatalog) ListIndexes(ctx context.Context) ([]sqlast.IndexDefinition, error) {
	return f.indexes, nil
}
func (f *fakeCatalog) ServerVersion(ctx context.Context) (semver.Semver, error) {
	return semver.Semver{Major: 16}, nil
}
func (f *fakeCatalog) Execute(ctx context.Context, sql string) error          { return nil }
func (f *fakeCatalog) RunHostStatement(ctx context.Context, sql string) error { return nil }

var _ catalog.Catalog = (*fakeCatalog)(nil)

func widgetsTable() sqlast.TableDefinition {
	return sqlast.TableDefinition{
		Name: sqlast.ObjectName{Schema: "public", Name: "widgets"},
		Columns: []sqlast.ColumnDefinition{
			{Name: "id", Type: sqlast.SqlType{Tag: sqlast.TagSimple, SimpleType: sqlast.Simple{Kind: sqlast.Integer}}, Constraints: []sqlast.ColumnConstraint{{Kind: sqlast.ColumnNotNull}}},
			{Name: "name", Type: sqlast.SqlType{Tag: sqlast.TagSimple, SimpleType: sqlast.Simple{Kind: sqlast.Text}}},
		},
	}
}

func TestGenerateOnMissingDatabaseEmitsCreateAndEveryObject(t *testing.T) {
	pkg := schema.New()
	pkg.PushTable(widgetsTable())
	require.NoError(t, pkg.GenerateDependencyGraph())

	cat := &fakeCatalog{databases: map[string]bool{}}
	conn := connstr.Connection{Database: "widgets_db"}

	changeset, err := differ.Generate(context.Background(), pkg, cat, conn, project.DefaultPublishProfile(), plog.NewNoop())
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(changeset), 3)
	assert.Equal(t, differ.CreateDatabase, changeset[0].Kind)
	assert.Equal(t, differ.UseDatabase, changeset[1].Kind)
	assert.Equal(t, differ.AddTable, changeset[2].Kind)
}

func TestGenerateAddsMissingColumnOnExistingTable(t *testing.T) {
	pkg := schema.New()
	table := widgetsTable()
	table.Columns = append(table.Columns, sqlast.ColumnDefinition{
		Name: "description", Type: sqlast.SqlType{Tag: sqlast.TagSimple, SimpleType: sqlast.Simple{Kind: sqlast.Text}},
	})
	pkg.PushTable(table)
	require.NoError(t, pkg.GenerateDependencyGraph())

	cat := &fakeCatalog{
		databases: map[string]bool{"widgets_db": true},
		tables:    []sqlast.TableDefinition{widgetsTable()},
	}
	conn := connstr.Connection{Database: "widgets_db"}

	changeset, err := differ.Generate(context.Background(), pkg, cat, conn, project.DefaultPublishProfile(), plog.NewNoop())
	require.NoError(t, err)

	var found bool
	for _, c := range changeset {
		if c.Kind == differ.AddColumn && c.Column.Name == "description" {
			found = true
		}
	}
	assert.True(t, found, "expected an AddColumn instruction for the new column")
}

func TestGenerateSkipsOrphanDropsWithoutUnsafeOperations(t *testing.T) {
	pkg := schema.New()
	require.NoError(t, pkg.GenerateDependencyGraph())

	cat := &fakeCatalog{
		databases: map[string]bool{"widgets_db": true},
		tables:    []sqlast.TableDefinition{widgetsTable()},
	}
	conn := connstr.Connection{Database: "widgets_db"}

	changeset, err := differ.Generate(context.Background(), pkg, cat, conn, project.DefaultPublishProfile(), plog.NewNoop())
	require.NoError(t, err)

	for _, c := range changeset {
		assert.NotEqual(t, differ.RemoveTable, c.Kind, "orphan table drop must be gated behind AllowUnsafeOperations")
	}
}

func TestGenerateDropsOrphanTableWhenUnsafeOperationsAllowed(t *testing.T) {
	pkg := schema.New()
	require.NoError(t, pkg.GenerateDependencyGraph())

	cat := &fakeCatalog{
		databases: map[string]bool{"widgets_db": true},
		tables:    []sqlast.TableDefinition{widgetsTable()},
	}
	conn := connstr.Connection{Database: "widgets_db"}
	profile := project.PublishProfile{GenerationOptions: project.GenerationOptions{AllowUnsafeOperations: true}}

	changeset, err := differ.Generate(context.Background(), pkg, cat, conn, profile, plog.NewNoop())
	require.NoError(t, err)

	var found bool
	for _, c := range changeset {
		if c.Kind == differ.RemoveTable && c.TableName.Name == "widgets" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGenerateRecreatesDatabaseWhenAlwaysRecreateSet(t *testing.T) {
	pkg := schema.New()
	require.NoError(t, pkg.GenerateDependencyGraph())

	cat := &fakeCatalog{databases: map[string]bool{"widgets_db": true}}
	conn := connstr.Connection{Database: "widgets_db"}
	profile := project.PublishProfile{GenerationOptions: project.GenerationOptions{AlwaysRecreateDatabase: true}}

	changeset, err := differ.Generate(context.Background(), pkg, cat, conn, profile, plog.NewNoop())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(changeset), 2)
	assert.Equal(t, differ.DropDatabase, changeset[0].Kind)
	assert.Equal(t, differ.CreateDatabase, changeset[1].Kind)
}

func moodType(values ...string) sqlast.TypeDefinition {
	return sqlast.TypeDefinition{
		Name: sqlast.ObjectName{Schema: "public", Name: "mood"},
		Kind: sqlast.TypeDefinitionKind{Tag: sqlast.TypeEnum, EnumValues: values},
	}
}

func TestGenerateEmitsModifyTypeForAppendedEnumValue(t *testing.T) {
	pkg := schema.New()
	pkg.PushType(moodType("happy", "sad", "excited"))
	require.NoError(t, pkg.GenerateDependencyGraph())

	cat := &fakeCatalog{
		databases: map[string]bool{"widgets_db": true},
		types:     []sqlast.TypeDefinition{moodType("happy", "sad")},
	}
	conn := connstr.Connection{Database: "widgets_db"}

	changeset, err := differ.Generate(context.Background(), pkg, cat, conn, project.DefaultPublishProfile(), plog.NewNoop())
	require.NoError(t, err)

	var found *differ.ChangeInstruction
	for i, c := range changeset {
		if c.Kind == differ.AddType || c.Kind == differ.ModifyType {
			found = &changeset[i]
		}
	}
	require.NotNil(t, found, "expected a type-modification instruction")
	assert.Equal(t, differ.ModifyType, found.Kind, "an append-only enum change must be ModifyType, not AddType")
	assert.Equal(t, []string{"excited"}, found.AddedEnumValues)
	assert.False(t, found.IsUnsafe())
}

func TestGenerateSuppressesUnsafeEnumModificationWithoutAllowUnsafeOperations(t *testing.T) {
	pkg := schema.New()
	pkg.PushType(moodType("sad", "happy"))
	require.NoError(t, pkg.GenerateDependencyGraph())

	cat := &fakeCatalog{
		databases: map[string]bool{"widgets_db": true},
		types:     []sqlast.TypeDefinition{moodType("happy", "sad")},
	}
	conn := connstr.Connection{Database: "widgets_db"}

	changeset, err := differ.Generate(context.Background(), pkg, cat, conn, project.DefaultPublishProfile(), plog.NewNoop())
	require.NoError(t, err)

	for _, c := range changeset {
		assert.NotEqual(t, differ.ModifyType, c.Kind, "a reordering enum change must be suppressed without AllowUnsafeOperations")
	}
}

func TestGenerateEmitsModifyTypeForUnsafeEnumChangeWhenAllowed(t *testing.T) {
	pkg := schema.New()
	pkg.PushType(moodType("sad", "happy"))
	require.NoError(t, pkg.GenerateDependencyGraph())

	cat := &fakeCatalog{
		databases: map[string]bool{"widgets_db": true},
		types:     []sqlast.TypeDefinition{moodType("happy", "sad")},
	}
	conn := connstr.Connection{Database: "widgets_db"}
	profile := project.PublishProfile{GenerationOptions: project.GenerationOptions{AllowUnsafeOperations: true}}

	changeset, err := differ.Generate(context.Background(), pkg, cat, conn, profile, plog.NewNoop())
	require.NoError(t, err)

	var found *differ.ChangeInstruction
	for i, c := range changeset {
		if c.Kind == differ.ModifyType {
			found = &changeset[i]
		}
	}
	require.NotNil(t, found, "expected a ModifyType instruction once unsafe operations are allowed")
	assert.Empty(t, found.AddedEnumValues)
	assert.True(t, found.IsUnsafe())
}

func ordersTableWithForeignKeyAction(action sqlast.ForeignConstraintAction) sqlast.TableDefinition {
	return sqlast.TableDefinition{
		Name: sqlast.ObjectName{Schema: "public", Name: "orders"},
		Columns: []sqlast.ColumnDefinition{
			{Name: "id", Type: sqlast.SqlType{Tag: sqlast.TagSimple, SimpleType: sqlast.Simple{Kind: sqlast.Integer}}},
			{Name: "widget_id", Type: sqlast.SqlType{Tag: sqlast.TagSimple, SimpleType: sqlast.Simple{Kind: sqlast.Integer}}},
		},
		Constraints: []sqlast.TableConstraint{
			{
				Tag:        sqlast.TagForeign,
				Name:       "fk_widget",
				Columns:    []string{"widget_id"},
				RefTable:   sqlast.ObjectName{Schema: "public", Name: "widgets"},
				RefColumns: []string{"id"},
				Events:     []sqlast.ForeignConstraintEvent{{Kind: sqlast.OnDelete, Action: action}},
			},
		},
	}
}

func TestGenerateReplacesConstraintWhenForeignKeyActionChanges(t *testing.T) {
	pkg := schema.New()
	pkg.PushTable(widgetsTable())
	pkg.PushTable(ordersTableWithForeignKeyAction(sqlast.Cascade))
	require.NoError(t, pkg.GenerateDependencyGraph())

	cat := &fakeCatalog{
		databases: map[string]bool{"widgets_db": true},
		tables: []sqlast.TableDefinition{
			widgetsTable(),
			ordersTableWithForeignKeyAction(sqlast.Restrict),
		},
	}
	conn := connstr.Connection{Database: "widgets_db"}

	changeset, err := differ.Generate(context.Background(), pkg, cat, conn, project.DefaultPublishProfile(), plog.NewNoop())
	require.NoError(t, err)

	var droppedFK, addedFK bool
	for _, c := range changeset {
		if c.Kind == differ.DropConstraint && c.ConstraintName == "fk_widget" {
			droppedFK = true
		}
		if c.Kind == differ.AddConstraint && c.Constraint.Name == "fk_widget" {
			addedFK = true
		}
	}
	assert.True(t, droppedFK, "expected the changed foreign key to be dropped")
	assert.True(t, addedFK, "expected the changed foreign key to be re-added")
}

func TestProgressMessageCoversEveryKind(t *testing.T) {
	table := sqlast.ObjectName{Schema: "public", Name: "widgets"}
	cases := []differ.ChangeInstruction{
		{Kind: differ.DropDatabase, DatabaseName: "d"},
		{Kind: differ.CreateDatabase, DatabaseName: "d"},
		{Kind: differ.UseDatabase, DatabaseName: "d"},
		{Kind: differ.AddExtension, Extension: &sqlast.ExtensionDefinition{Name: "pgcrypto"}},
		{Kind: differ.AddSchema, Schema: &sqlast.SchemaDefinition{Name: "app"}},
		{Kind: differ.AddType, Type: &sqlast.TypeDefinition{Name: sqlast.ObjectName{Name: "mood"}}},
		{Kind: differ.ModifyType, Type: &sqlast.TypeDefinition{Name: sqlast.ObjectName{Name: "mood"}}},
		{Kind: differ.RemoveType, TypeName: sqlast.ObjectName{Name: "mood"}},
		{Kind: differ.RunScript, Script: &sqlast.ScriptDefinition{Name: "seed.sql"}},
		{Kind: differ.AddTable, Table: &sqlast.TableDefinition{Name: table}},
		{Kind: differ.RemoveTable, TableName: table},
		{Kind: differ.AddColumn, Column: &sqlast.ColumnDefinition{Name: "c"}, ColumnTable: table},
		{Kind: differ.ModifyColumn, Column: &sqlast.ColumnDefinition{Name: "c"}, ColumnTable: table},
		{Kind: differ.RemoveColumn, ColumnName: "c", ColumnTable: table},
		{Kind: differ.AddConstraint, Constraint: &sqlast.TableConstraint{Name: "pk"}, ConstraintTable: table},
		{Kind: differ.DropConstraint, ConstraintName: "pk", ConstraintTable: table},
		{Kind: differ.AddFunction, Function: &sqlast.FunctionDefinition{Name: sqlast.ObjectName{Name: "f"}}},
		{Kind: differ.ModifyFunction, Function: &sqlast.FunctionDefinition{Name: sqlast.ObjectName{Name: "f"}}},
		{Kind: differ.DropFunction, FunctionName: sqlast.ObjectName{Name: "f"}},
		{Kind: differ.AddIndex, Index: &sqlast.IndexDefinition{Name: "idx"}},
		{Kind: differ.DropIndex, IndexName: "idx"},
	}
	for _, c := range cases {
		msg := c.ProgressMessage()
		assert.NotEmpty(t, msg)
		assert.NotEqual(t, "Unknown change", msg)
	}
}
