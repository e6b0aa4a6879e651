// SPDX-License-Identifier: Apache-2.0

package schema_test

import (
	"testing"

	"github.com/psqlpack/psqlpack/internal/depgraph"
	"github.com/psqlpack/psqlpack/internal/pserrors"
	"github.com/psqlpack/psqlpack/internal/schema"
	"github.com/psqlpack/psqlpack/internal/sqlast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, path, src string) []sqlast.Statement {
	t.Helper()
	stmts, err := schema.ParseFile(path, src)
	require.NoError(t, err)
	return stmts
}

func TestAddStatementsDispatchesByTag(t *testing.T) {
	p := schema.New()
	var warnings []string
	p.AddStatements(mustParse(t, "a.sql", `
		CREATE SCHEMA app;
		CREATE EXTENSION pgcrypto;
		CREATE TABLE app.widgets (id serial PRIMARY KEY);
		CREATE TYPE app.status AS ENUM ('a', 'b');
		CREATE INDEX idx_id ON app.widgets (id);
	`), func(msg string) { warnings = append(warnings, msg) })

	assert.Len(t, p.Schemas, 1)
	assert.Len(t, p.Tables, 1)
	assert.Len(t, p.Types, 1)
	assert.Len(t, p.Indexes, 1)
	assert.Empty(t, p.Extensions)
	require.Len(t, warnings, 1)
}

func TestSetDefaultsAddsPublicSchemaAndFillsUnqualifiedNames(t *testing.T) {
	p := schema.New()
	p.AddStatements(mustParse(t, "a.sql", `CREATE TABLE widgets (id serial PRIMARY KEY);`), nil)
	p.SetDefaults("public")

	var hasPublic bool
	for _, s := range p.Schemas {
		if s.Name == "public" {
			hasPublic = true
		}
	}
	assert.True(t, hasPublic)
	assert.Equal(t, "public", p.Tables[0].Name.Schema)
}

func TestSetDefaultsFillsForeignKeyReferenceSchema(t *testing.T) {
	p := schema.New()
	p.AddStatements(mustParse(t, "a.sql", `
		CREATE TABLE orders (
			account_id integer,
			CONSTRAINT fk_account FOREIGN KEY (account_id) REFERENCES accounts (id)
		);
	`), nil)
	p.SetDefaults("app")
	assert.Equal(t, "app", p.Tables[0].Constraints[0].RefTable.Schema)
}

func TestValidateDetectsDuplicatePrimaryKey(t *testing.T) {
	p := schema.New()
	p.AddStatements(mustParse(t, "a.sql", `
		CREATE TABLE t (
			id integer,
			other integer,
			CONSTRAINT pk1 PRIMARY KEY (id),
			CONSTRAINT pk2 PRIMARY KEY (other)
		);
	`), nil)

	err := p.Validate()
	require.Error(t, err)
	var valErr *pserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assertHasFinding(t, valErr, pserrors.DuplicatePrimaryKey)
}

func TestValidateDetectsDuplicateColumnLevelPrimaryKey(t *testing.T) {
	p := schema.New()
	p.AddStatements(mustParse(t, "a.sql", `
		CREATE TABLE t (
			id integer PRIMARY KEY,
			other integer PRIMARY KEY
		);
	`), nil)

	err := p.Validate()
	require.Error(t, err)
	var valErr *pserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assertHasFinding(t, valErr, pserrors.DuplicatePrimaryKey)
}

func TestValidateDetectsMixedColumnAndTableLevelPrimaryKey(t *testing.T) {
	p := schema.New()
	p.AddStatements(mustParse(t, "a.sql", `
		CREATE TABLE t (
			id integer PRIMARY KEY,
			other integer,
			CONSTRAINT pk1 PRIMARY KEY (other)
		);
	`), nil)

	err := p.Validate()
	require.Error(t, err)
	var valErr *pserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assertHasFinding(t, valErr, pserrors.DuplicatePrimaryKey)
}

func TestValidateDetectsUnknownColumnReference(t *testing.T) {
	p := schema.New()
	p.AddStatements(mustParse(t, "a.sql", `
		CREATE TABLE t (
			id integer,
			CONSTRAINT pk PRIMARY KEY (missing_col)
		);
	`), nil)

	err := p.Validate()
	require.Error(t, err)
	var valErr *pserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assertHasFinding(t, valErr, pserrors.UnknownColumnReference)
}

func TestValidateDetectsMismatchedForeignKeyColumnCount(t *testing.T) {
	p := schema.New()
	p.AddStatements(mustParse(t, "a.sql", `
		CREATE TABLE t (
			a integer, b integer,
			CONSTRAINT fk FOREIGN KEY (a, b) REFERENCES other (id)
		);
	`), nil)

	err := p.Validate()
	require.Error(t, err)
	var valErr *pserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assertHasFinding(t, valErr, pserrors.MismatchedForeignKeyColumnCount)
}

func TestValidateDetectsEmptyAndDuplicateEnum(t *testing.T) {
	p := schema.New()
	p.PushType(sqlast.TypeDefinition{
		Name: sqlast.ObjectName{Name: "empty_enum"},
		Kind: sqlast.TypeDefinitionKind{Tag: sqlast.TypeEnum},
	})
	p.PushType(sqlast.TypeDefinition{
		Name: sqlast.ObjectName{Name: "dup_enum"},
		Kind: sqlast.TypeDefinitionKind{Tag: sqlast.TypeEnum, EnumValues: []string{"a", "a"}},
	})

	err := p.Validate()
	require.Error(t, err)
	var valErr *pserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assertHasFinding(t, valErr, pserrors.EmptyEnum)
	assertHasFinding(t, valErr, pserrors.DuplicateEnumValue)
}

func TestValidateDetectsDuplicateScriptOrder(t *testing.T) {
	p := schema.New()
	p.PushScript(sqlast.ScriptDefinition{Name: "one.sql", Kind: sqlast.PreDeployment, Order: 0})
	p.PushScript(sqlast.ScriptDefinition{Name: "two.sql", Kind: sqlast.PreDeployment, Order: 0})

	err := p.Validate()
	require.Error(t, err)
	var valErr *pserrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assertHasFinding(t, valErr, pserrors.DuplicateScriptOrder)
}

func TestValidatePassesForWellFormedPackage(t *testing.T) {
	p := schema.New()
	p.AddStatements(mustParse(t, "a.sql", `
		CREATE TABLE accounts (
			id serial,
			CONSTRAINT accounts_pkey PRIMARY KEY (id)
		);
		CREATE TABLE orders (
			id serial,
			account_id integer,
			CONSTRAINT orders_pkey PRIMARY KEY (id),
			CONSTRAINT fk_account FOREIGN KEY (account_id) REFERENCES accounts (id)
		);
	`), nil)
	p.SetDefaults("public")

	assert.NoError(t, p.Validate())
}

func TestGenerateDependencyGraphOrdersReferencedTableFirst(t *testing.T) {
	p := schema.New()
	p.AddStatements(mustParse(t, "a.sql", `
		CREATE TABLE coefficients (
			id serial,
			version_id integer,
			CONSTRAINT fk_coefficients__version_id FOREIGN KEY (version_id)
				REFERENCES versions (id)
		);
		CREATE TABLE versions (
			id serial
		);
	`), nil)
	p.SetDefaults("public")

	require.NoError(t, p.GenerateDependencyGraph())

	versionsIdx := indexOfTable(t, p.Order, "public.versions")
	coefficientsIdx := indexOfTable(t, p.Order, "public.coefficients")
	assert.Less(t, versionsIdx, coefficientsIdx)
}

func assertHasFinding(t *testing.T, err *pserrors.ValidationError, kind pserrors.ValidationErrorKind) {
	t.Helper()
	for _, f := range err.Findings {
		if f.Kind == kind {
			return
		}
	}
	t.Fatalf("expected a finding of kind %v, got %v", kind, err.Findings)
}

func indexOfTable(t *testing.T, order []depgraph.Node, name string) int {
	t.Helper()
	for i, n := range order {
		if n.String() == name {
			return i
		}
	}
	t.Fatalf("table %q not found in order", name)
	return -1
}
