// SPDX-License-Identifier: Apache-2.0

// Package emit renders a differ changeset into the two output formats a
// publish can produce: a runnable SQL script and a JSON deployment
// report. Grounded on
// _examples/original_source/psqlpack/src/model/delta.rs's to_sql, but
// every instruction kind is fully rendered here rather than left as the
// original's "TODO" fallback (per the specification's instruction to
// complete what the original stubbed out).
package emit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/psqlpack/psqlpack/internal/differ"
	"github.com/psqlpack/psqlpack/internal/sqlast"
)

// Script renders the full changeset as a runnable SQL script: each
// instruction's statement, terminated by a semicolon and a blank line,
// in apply order (§6.5).
func Script(changeset []differ.ChangeInstruction) string {
	var b strings.Builder
	for _, instr := range changeset {
		b.WriteString(SQL(instr))
		b.WriteString(";\n\n")
	}
	return b.String()
}

// SQL renders a single instruction's statement body, without a trailing
// semicolon (the caller, Script, supplies that).
func SQL(instr differ.ChangeInstruction) string {
	switch instr.Kind {
	case differ.DropDatabase:
		return fmt.Sprintf("DROP DATABASE %s", instr.DatabaseName)
	case differ.CreateDatabase:
		return fmt.Sprintf("CREATE DATABASE %s", instr.DatabaseName)
	case differ.UseDatabase:
		return fmt.Sprintf("-- Using database `%s`", instr.DatabaseName)

	case differ.AddExtension:
		return fmt.Sprintf("CREATE EXTENSION %s", instr.Extension.Name)

	case differ.AddSchema:
		return fmt.Sprintf("CREATE SCHEMA %s", instr.Schema.Name)

	case differ.AddType:
		return addTypeSQL(instr.Type)
	case differ.ModifyType:
		return modifyTypeSQL(instr)
	case differ.RemoveType:
		return fmt.Sprintf("DROP TYPE %s", instr.TypeName)

	case differ.RunScript:
		return fmt.Sprintf("-- Script: %s\n%s", instr.Script.Name, strings.TrimRight(instr.Script.Contents, "\n"))

	case differ.AddTable:
		return addTableSQL(instr.Table)
	case differ.RemoveTable:
		return fmt.Sprintf("DROP TABLE %s", instr.TableName)

	case differ.AddColumn:
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", instr.ColumnTable, columnSQL(*instr.Column))
	case differ.ModifyColumn:
		return modifyColumnSQL(instr.ColumnTable, *instr.Column)
	case differ.RemoveColumn:
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", instr.ColumnTable, instr.ColumnName)

	case differ.AddConstraint:
		return fmt.Sprintf("ALTER TABLE %s ADD %s", instr.ConstraintTable, tableConstraintSQL(*instr.Constraint))
	case differ.DropConstraint:
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", instr.ConstraintTable, instr.ConstraintName)

	case differ.AddFunction, differ.ModifyFunction:
		return functionSQL(instr.Function)
	case differ.DropFunction:
		return fmt.Sprintf("DROP FUNCTION %s", instr.FunctionName)

	case differ.AddIndex:
		return indexSQL(instr.Index)
	case differ.DropIndex:
		return fmt.Sprintf("DROP INDEX %s", instr.IndexName)

	default:
		return "-- unsupported instruction"
	}
}

func addTypeSQL(t *sqlast.TypeDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TYPE %s AS ", t.Name)
	switch t.Kind.Tag {
	case sqlast.TypeAlias:
		b.WriteString(t.Kind.AliasTarget.String())
	case sqlast.TypeEnum:
		b.WriteString("ENUM (\n")
		for i, v := range t.Kind.EnumValues {
			if i > 0 {
				b.WriteString(",\n")
			}
			fmt.Fprintf(&b, "  '%s'", v)
		}
		b.WriteString("\n)")
	}
	return b.String()
}

// modifyTypeSQL renders a changed enum type. When the change is the safe
// append-only-superset case, it emits one ALTER TYPE ... ADD VALUE per
// newly appended value, in order (the only form PostgreSQL supports
// without a drop). Otherwise — the AllowUnsafeOperations-gated case,
// where values were removed or reordered — PostgreSQL offers no ALTER
// path at all, so the type is dropped and recreated with the desired
// values.
func modifyTypeSQL(instr differ.ChangeInstruction) string {
	if len(instr.AddedEnumValues) > 0 {
		var b strings.Builder
		for i, v := range instr.AddedEnumValues {
			if i > 0 {
				b.WriteString(";\n")
			}
			fmt.Fprintf(&b, "ALTER TYPE %s ADD VALUE '%s'", instr.Type.Name, v)
		}
		return b.String()
	}
	return fmt.Sprintf("DROP TYPE %s CASCADE;\n%s", instr.Type.Name, addTypeSQL(instr.Type))
}

func addTableSQL(t *sqlast.TableDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Name)
	for i, col := range t.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "  %s", columnSQL(col))
	}
	if len(t.Constraints) > 0 {
		b.WriteString(",\n")
		for i, c := range t.Constraints {
			if i > 0 {
				b.WriteString(",\n")
			}
			fmt.Fprintf(&b, "  %s", tableConstraintSQL(c))
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// columnSQL renders "<name> <type>" plus its constraints. Constraints
// are sorted by ColumnConstraintKind (Default < NotNull < Null < Unique
// < PrimaryKey) before rendering: the parser preserves source
// declaration order in ColumnDefinition.Constraints, but the
// specification's canonical rendering is kind-ordered regardless of how
// the source declared them (scenario 1: "id serial PRIMARY KEY NOT
// NULL" renders as "id serial NOT NULL PRIMARY KEY").
func columnSQL(col sqlast.ColumnDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", col.Name, col.Type.String())

	constraints := append([]sqlast.ColumnConstraint(nil), col.Constraints...)
	sort.SliceStable(constraints, func(i, j int) bool { return constraints[i].Kind < constraints[j].Kind })

	for _, c := range constraints {
		switch c.Kind {
		case sqlast.ColumnDefault:
			fmt.Fprintf(&b, " DEFAULT %s", c.Default.String())
		case sqlast.ColumnNotNull:
			b.WriteString(" NOT NULL")
		case sqlast.ColumnNull:
			b.WriteString(" NULL")
		case sqlast.ColumnUnique:
			b.WriteString(" UNIQUE")
		case sqlast.ColumnPrimaryKey:
			b.WriteString(" PRIMARY KEY")
		}
	}
	return b.String()
}

// modifyColumnSQL renders a column change as ALTER COLUMN clauses,
// chained with "," as PostgreSQL allows within a single ALTER TABLE: one
// clause each for the type, the nullability and the default, always all
// three, taken from the desired column. Attributes that did not change
// are re-asserted as well; the live column is not passed in.
func modifyColumnSQL(table sqlast.ObjectName, col sqlast.ColumnDefinition) string {
	var clauses []string
	clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s TYPE %s", col.Name, col.Type.String()))
	if col.HasConstraint(sqlast.ColumnNotNull) {
		clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", col.Name))
	} else {
		clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", col.Name))
	}
	if def, ok := columnDefault(col); ok {
		clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", col.Name, def))
	} else {
		clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", col.Name))
	}
	return fmt.Sprintf("ALTER TABLE %s\n  %s", table, strings.Join(clauses, ",\n  "))
}

func columnDefault(col sqlast.ColumnDefinition) (string, bool) {
	for _, c := range col.Constraints {
		if c.Kind == sqlast.ColumnDefault {
			return c.Default.String(), true
		}
	}
	return "", false
}

func tableConstraintSQL(c sqlast.TableConstraint) string {
	var b strings.Builder
	switch c.Tag {
	case sqlast.TagPrimary:
		fmt.Fprintf(&b, "CONSTRAINT %s PRIMARY KEY (%s)", c.Name, strings.Join(c.Columns, ", "))
		if len(c.Parameters) > 0 {
			b.WriteString(" WITH (")
			b.WriteString(indexParametersSQL(c.Parameters))
			b.WriteString(")")
		}
	case sqlast.TagForeign:
		fmt.Fprintf(&b, "CONSTRAINT %s FOREIGN KEY (%s)", c.Name, strings.Join(c.Columns, ", "))
		fmt.Fprintf(&b, " REFERENCES %s (%s)", c.RefTable, strings.Join(c.RefColumns, ", "))
		if c.MatchType != nil {
			fmt.Fprintf(&b, " %s", c.MatchType)
		}
		for _, e := range c.Events {
			switch e.Kind {
			case sqlast.OnDelete:
				fmt.Fprintf(&b, " ON DELETE %s", e.Action)
			case sqlast.OnUpdate:
				fmt.Fprintf(&b, " ON UPDATE %s", e.Action)
			}
		}
	}
	return b.String()
}

func indexParametersSQL(params []sqlast.IndexParameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		switch p.Kind {
		case sqlast.FillFactor:
			parts = append(parts, fmt.Sprintf("FILLFACTOR=%d", p.Value))
		}
	}
	return strings.Join(parts, ", ")
}

func functionSQL(fn *sqlast.FunctionDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE FUNCTION %s (", fn.Name)
	for i, arg := range fn.Arguments {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s%s %s", argumentModePrefix(arg.Mode), arg.Name, arg.Type.String())
	}
	b.WriteString(")\n")
	b.WriteString("RETURNS ")
	switch fn.ReturnType.Tag {
	case sqlast.ReturnsTable:
		b.WriteString("TABLE (\n")
		for i, col := range fn.ReturnType.TableCols {
			if i > 0 {
				b.WriteString(",\n")
			}
			fmt.Fprintf(&b, "  %s %s", col.Name, col.Type.String())
		}
		b.WriteString("\n)\n")
	case sqlast.ReturnsSqlType:
		if fn.ReturnType.SetOf {
			b.WriteString("SETOF ")
		}
		fmt.Fprintf(&b, "%s ", fn.ReturnType.Type.String())
	}
	b.WriteString("AS $$")
	b.WriteString(fn.Body)
	b.WriteString("$$\n")
	b.WriteString("LANGUAGE ")
	b.WriteString(fn.Language.String())
	return b.String()
}

func argumentModePrefix(mode sqlast.FunctionArgumentMode) string {
	switch mode {
	case sqlast.ArgOut:
		return "OUT "
	case sqlast.ArgInOut:
		return "INOUT "
	case sqlast.ArgVariadic:
		return "VARIADIC "
	default:
		return ""
	}
}

func indexSQL(idx *sqlast.IndexDefinition) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX %s ON %s ", idx.Name, idx.Table)
	if idx.IndexType != "" {
		fmt.Fprintf(&b, "USING %s ", idx.IndexType)
	}
	b.WriteString("(")
	for i, col := range idx.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col.Name)
		if col.Order == sqlast.SortDesc {
			b.WriteString(" DESC")
		}
		switch col.Nulls {
		case sqlast.NullsFirst:
			b.WriteString(" NULLS FIRST")
		case sqlast.NullsLast:
			b.WriteString(" NULLS LAST")
		}
	}
	b.WriteString(")")
	if len(idx.StorageParameters) > 0 {
		b.WriteString(" WITH (")
		b.WriteString(indexParametersSQL(idx.StorageParameters))
		b.WriteString(")")
	}
	return b.String()
}

// reportEntry is the JSON shape of one instruction in a deployment
// report (§6.6): the kind, the affected object's identity, and — for
// Add* instructions — the full definition payload so a reviewer can see
// exactly what would be created without re-deriving it from the SQL
// text.
type reportEntry struct {
	Kind   string `json:"kind"`
	Object string `json:"object"`

	Extension *sqlast.ExtensionDefinition `json:"extension,omitempty"`
	Schema    *sqlast.SchemaDefinition    `json:"schema,omitempty"`
	Type      *sqlast.TypeDefinition      `json:"type,omitempty"`
	Table     *sqlast.TableDefinition     `json:"table,omitempty"`
	Column    *sqlast.ColumnDefinition    `json:"column,omitempty"`
	Function  *sqlast.FunctionDefinition  `json:"function,omitempty"`
	Index     *sqlast.IndexDefinition     `json:"index,omitempty"`
}

// Report renders the changeset as the pretty-printed JSON array
// described by §6.6, preserving apply order.
func Report(changeset []differ.ChangeInstruction) ([]byte, error) {
	entries := make([]reportEntry, 0, len(changeset))
	for _, instr := range changeset {
		entries = append(entries, reportEntry{
			Kind:      instr.Kind.String(),
			Object:    instr.ObjectName(),
			Extension: instr.Extension,
			Schema:    instr.Schema,
			Type:      instr.Type,
			Table:     instr.Table,
			Column:    instr.Column,
			Function:  instr.Function,
			Index:     instr.Index,
		})
	}
	return json.MarshalIndent(entries, "", "  ")
}
