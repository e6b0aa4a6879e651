// SPDX-License-Identifier: Apache-2.0

package emit_test

import (
	"encoding/json"
	"testing"

	"github.com/psqlpack/psqlpack/internal/differ"
	"github.com/psqlpack/psqlpack/internal/emit"
	"github.com/psqlpack/psqlpack/internal/sqlast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddTableSQLMatchesScenarioOne reproduces spec.md §8 scenario 1
// verbatim: a column declared "PRIMARY KEY NOT NULL" in source still
// renders canonically as "NOT NULL PRIMARY KEY".
func TestAddTableSQLMatchesScenarioOne(t *testing.T) {
	table := sqlast.TableDefinition{
		Name: sqlast.ObjectName{Schema: "x", Name: "t"},
		Columns: []sqlast.ColumnDefinition{
			{
				Name: "id",
				Type: sqlast.NewCustomType("serial", ""),
				Constraints: []sqlast.ColumnConstraint{
					{Kind: sqlast.ColumnPrimaryKey},
					{Kind: sqlast.ColumnNotNull},
				},
			},
			{
				Name: "name",
				Type: sqlast.SqlType{Tag: sqlast.TagSimple, SimpleType: sqlast.Simple{Kind: sqlast.VariableLengthString, Size: 50}},
				Constraints: []sqlast.ColumnConstraint{
					{Kind: sqlast.ColumnNotNull},
				},
			},
		},
	}

	got := emit.SQL(differ.ChangeInstruction{Kind: differ.AddTable, Table: &table})
	want := "CREATE TABLE x.t (\n" +
		"  id serial NOT NULL PRIMARY KEY,\n" +
		"  name varchar(50) NOT NULL\n" +
		")"
	assert.Equal(t, want, got)
}

func TestScriptTerminatesEachInstructionWithSemicolonAndBlankLine(t *testing.T) {
	changeset := []differ.ChangeInstruction{
		{Kind: differ.CreateDatabase, DatabaseName: "widgets_db"},
		{Kind: differ.UseDatabase, DatabaseName: "widgets_db"},
	}
	got := emit.Script(changeset)
	want := "CREATE DATABASE widgets_db;\n\n-- Using database `widgets_db`;\n\n"
	assert.Equal(t, want, got)
}

func TestAddConstraintRendersForeignKeyWithEvents(t *testing.T) {
	matchType := sqlast.MatchSimple
	constraint := sqlast.TableConstraint{
		Tag:        sqlast.TagForeign,
		Name:       "fk_owner",
		Columns:    []string{"owner_id"},
		RefTable:   sqlast.ObjectName{Schema: "public", Name: "owners"},
		RefColumns: []string{"id"},
		MatchType:  &matchType,
		Events: []sqlast.ForeignConstraintEvent{
			{Kind: sqlast.OnDelete, Action: sqlast.Cascade},
		},
	}
	got := emit.SQL(differ.ChangeInstruction{
		Kind:            differ.AddConstraint,
		Constraint:      &constraint,
		ConstraintTable: sqlast.ObjectName{Schema: "public", Name: "widgets"},
	})
	assert.Equal(t, "ALTER TABLE public.widgets ADD CONSTRAINT fk_owner FOREIGN KEY (owner_id) REFERENCES public.owners (id) MATCH SIMPLE ON DELETE CASCADE", got)
}

func TestAddIndexRendersUniqueWithMethodAndNulls(t *testing.T) {
	idx := sqlast.IndexDefinition{
		Name:      "widgets_name_idx",
		Table:     sqlast.ObjectName{Schema: "public", Name: "widgets"},
		Unique:    true,
		IndexType: "btree",
		Columns: []sqlast.IndexColumn{
			{Name: "name", Order: sqlast.SortDesc, Nulls: sqlast.NullsLast},
		},
	}
	got := emit.SQL(differ.ChangeInstruction{Kind: differ.AddIndex, Index: &idx})
	assert.Equal(t, "CREATE UNIQUE INDEX widgets_name_idx ON public.widgets USING btree (name DESC NULLS LAST)", got)
}

func TestReportPreservesApplyOrderAndIncludesDefinitions(t *testing.T) {
	table := &sqlast.TableDefinition{Name: sqlast.ObjectName{Schema: "public", Name: "widgets"}}
	changeset := []differ.ChangeInstruction{
		{Kind: differ.CreateDatabase, DatabaseName: "widgets_db"},
		{Kind: differ.AddTable, Table: table},
	}
	raw, err := emit.Report(changeset)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "CreateDatabase", decoded[0]["kind"])
	assert.Equal(t, "AddTable", decoded[1]["kind"])
	assert.Equal(t, "public.widgets", decoded[1]["object"])
	assert.NotNil(t, decoded[1]["table"])
}
