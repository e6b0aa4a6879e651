// SPDX-License-Identifier: Apache-2.0

// Package schema assembles a Package — the in-memory desired-state
// document compiled from a project's SQL source files — and validates
// it against the semantic invariants a live deployment depends on:
// no duplicate primary keys, no dangling column references, no
// mismatched foreign key arity, no duplicate script ordering, no
// circular or unresolved object dependencies.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/psqlpack/psqlpack/internal/depgraph"
	"github.com/psqlpack/psqlpack/internal/pserrors"
	"github.com/psqlpack/psqlpack/internal/sqlast"
	"github.com/psqlpack/psqlpack/internal/sqlparse"
	"github.com/psqlpack/psqlpack/internal/sqltoken"
)

// Package is the compiled desired-state document: every object a
// project's SQL sources declare, plus the deployment order computed
// from their dependencies once GenerateDependencyGraph has run.
type Package struct {
	Extensions []sqlast.ExtensionDefinition
	Functions  []sqlast.FunctionDefinition
	Schemas    []sqlast.SchemaDefinition
	Scripts    []sqlast.ScriptDefinition
	Tables     []sqlast.TableDefinition
	Types      []sqlast.TypeDefinition
	Indexes    []sqlast.IndexDefinition

	Order []depgraph.Node
}

func New() *Package {
	return &Package{}
}

func (p *Package) PushExtension(e sqlast.ExtensionDefinition) { p.Extensions = append(p.Extensions, e) }
func (p *Package) PushFunction(f sqlast.FunctionDefinition)   { p.Functions = append(p.Functions, f) }
func (p *Package) PushSchema(s sqlast.SchemaDefinition)       { p.Schemas = append(p.Schemas, s) }
func (p *Package) PushScript(s sqlast.ScriptDefinition)       { p.Scripts = append(p.Scripts, s) }
func (p *Package) PushTable(t sqlast.TableDefinition)         { p.Tables = append(p.Tables, t) }
func (p *Package) PushType(t sqlast.TypeDefinition)           { p.Types = append(p.Types, t) }
func (p *Package) PushIndex(i sqlast.IndexDefinition)         { p.Indexes = append(p.Indexes, i) }

func (p *Package) Table(name sqlast.ObjectName) (*sqlast.TableDefinition, bool) {
	for i := range p.Tables {
		if p.Tables[i].Name == name {
			return &p.Tables[i], true
		}
	}
	return nil, false
}

// ParseFile tokenizes and parses a single DDL source file, wrapping a
// lexical failure as a *pserrors.SyntaxError (which, unlike a bare
// *pserrors.LexicalError, carries the offending file's name).
func ParseFile(path, contents string) ([]sqlast.Statement, error) {
	tokens, err := sqltoken.Tokenize(contents)
	if err != nil {
		if lexErr, ok := err.(*pserrors.LexicalError); ok {
			return nil, &pserrors.SyntaxError{
				File: path, Line: lexErr.Line, LineNumber: lexErr.LineNumber,
				Start: lexErr.Start, End: lexErr.End,
			}
		}
		return nil, err
	}

	return sqlparse.Parse(path, tokens)
}

// AddStatements dispatches parsed statements into the package's
// collections. An inline CREATE EXTENSION statement is reported through
// warn (may be nil) and otherwise ignored: extensions are expected to be
// declared in the project manifest, not a DDL file.
func (p *Package) AddStatements(stmts []sqlast.Statement, warn func(string)) {
	for _, stmt := range stmts {
		switch stmt.Tag {
		case sqlast.StmtExtension:
			if warn != nil {
				warn(fmt.Sprintf("extension statement for %q found in DDL source, ignoring", stmt.Extension.Name))
			}
		case sqlast.StmtFunction:
			p.PushFunction(stmt.Function)
		case sqlast.StmtSchema:
			p.PushSchema(stmt.Schema)
		case sqlast.StmtTable:
			p.PushTable(stmt.Table)
		case sqlast.StmtType:
			p.PushType(stmt.Type)
		case sqlast.StmtIndex:
			p.PushIndex(stmt.Index)
		}
	}
}

// SetDefaults normalizes the package against a project's default
// schema: ensures "public" is always declared, and fills in the schema
// of any unqualified table name or foreign key reference.
func (p *Package) SetDefaults(defaultSchema string) {
	hasPublic := false
	for _, s := range p.Schemas {
		if strings.EqualFold(s.Name, "public") {
			hasPublic = true
			break
		}
	}
	if !hasPublic {
		p.Schemas = append(p.Schemas, sqlast.SchemaDefinition{Name: "public"})
	}

	for i := range p.Tables {
		table := &p.Tables[i]
		if table.Name.Schema == "" {
			table.Name.Schema = defaultSchema
		}
		for j := range table.Constraints {
			c := &table.Constraints[j]
			if c.Tag == sqlast.TagForeign && c.RefTable.Schema == "" {
				c.RefTable.Schema = defaultSchema
			}
		}
	}
	for i := range p.Indexes {
		if p.Indexes[i].Table.Schema == "" {
			p.Indexes[i].Table.Schema = defaultSchema
		}
	}
	for i := range p.Functions {
		if p.Functions[i].Name.Schema == "" {
			p.Functions[i].Name.Schema = defaultSchema
		}
	}
	for i := range p.Types {
		if p.Types[i].Name.Schema == "" {
			p.Types[i].Name.Schema = defaultSchema
		}
	}
}

// GenerateDependencyGraph builds the weighted dependency graph for every
// table, column, constraint and function in the package, then sets
// Order to its topological sort. A foreign key's edge to its referenced
// column carries a heavier weight than its edge to its own column, so
// the referenced table is always ordered ahead of the table declaring
// the key.
func (p *Package) GenerateDependencyGraph() error {
	g := depgraph.New()

	for _, table := range p.Tables {
		tableNode := depgraph.Node{Kind: depgraph.NodeTable, Value: table.Name.String()}
		g.AddNode(tableNode)

		for _, col := range table.Columns {
			colNode := depgraph.Node{Kind: depgraph.NodeColumn, Value: table.Name.String() + "." + col.Name}
			g.AddNodeWithEdges(colNode, []depgraph.Edge{{Node: tableNode, Weight: 1.0}})
		}

		for _, c := range table.Constraints {
			constraintNode := depgraph.Node{Kind: depgraph.NodeConstraint, Value: table.Name.String() + "." + c.Name}

			switch c.Tag {
			case sqlast.TagPrimary:
				edges := make([]depgraph.Edge, 0, len(c.Columns))
				for _, col := range c.Columns {
					edges = append(edges, depgraph.Edge{
						Node:   depgraph.Node{Kind: depgraph.NodeColumn, Value: table.Name.String() + "." + col},
						Weight: 1.0,
					})
				}
				g.AddNodeWithEdges(constraintNode, edges)

			case sqlast.TagForeign:
				edges := make([]depgraph.Edge, 0, len(c.Columns)+len(c.RefColumns))
				for _, col := range c.Columns {
					edges = append(edges, depgraph.Edge{
						Node:   depgraph.Node{Kind: depgraph.NodeColumn, Value: table.Name.String() + "." + col},
						Weight: 1.0,
					})
				}
				for _, col := range c.RefColumns {
					edges = append(edges, depgraph.Edge{
						Node:   depgraph.Node{Kind: depgraph.NodeColumn, Value: c.RefTable.String() + "." + col},
						Weight: 1.1,
					})
				}
				g.AddNodeWithEdges(constraintNode, edges)
			}
		}
	}

	for _, fn := range p.Functions {
		g.AddNode(depgraph.Node{Kind: depgraph.NodeFunction, Value: fn.Name.String()})
	}

	switch g.Validate() {
	case depgraph.CircularReference:
		return &pserrors.ValidationError{Findings: []pserrors.ValidationFinding{
			{Kind: pserrors.CircularReference},
		}}
	case depgraph.UnresolvedDependencies:
		var findings []pserrors.ValidationFinding
		for _, n := range g.Unresolved() {
			findings = append(findings, pserrors.ValidationFinding{
				Kind: pserrors.UnresolvedDependencies, Object: n.String(),
			})
		}
		return &pserrors.ValidationError{Findings: findings}
	}

	p.Order = g.TopologicalSort()
	return nil
}

// Validate checks every semantic invariant that doesn't require a live
// database connection: at most one primary key per table, every
// constraint's columns actually exist, foreign key column counts match
// on both sides, script ordering has no collision within a kind, and
// enum types are neither empty nor self-duplicating.
func (p *Package) Validate() error {
	var findings []pserrors.ValidationFinding

	for _, table := range p.Tables {
		primaryCount := 0
		for _, c := range table.Constraints {
			switch c.Tag {
			case sqlast.TagPrimary:
				primaryCount++
				findings = append(findings, checkColumnsExist(table, c.Name, c.Columns)...)
			case sqlast.TagForeign:
				findings = append(findings, checkColumnsExist(table, c.Name, c.Columns)...)
				if len(c.Columns) != len(c.RefColumns) {
					findings = append(findings, pserrors.ValidationFinding{
						Kind:   pserrors.MismatchedForeignKeyColumnCount,
						Object: table.Name.String() + "." + c.Name,
						Detail: fmt.Sprintf("%d column(s) vs %d referenced column(s)", len(c.Columns), len(c.RefColumns)),
					})
				}
			}
		}
		for _, col := range table.Columns {
			if col.HasConstraint(sqlast.ColumnPrimaryKey) {
				primaryCount++
			}
		}
		if primaryCount > 1 {
			findings = append(findings, pserrors.ValidationFinding{
				Kind: pserrors.DuplicatePrimaryKey, Object: table.Name.String(),
			})
		}
	}

	findings = append(findings, checkScriptOrdering(p.Scripts)...)

	for _, t := range p.Types {
		if t.Kind.Tag != sqlast.TypeEnum {
			continue
		}
		if len(t.Kind.EnumValues) == 0 {
			findings = append(findings, pserrors.ValidationFinding{Kind: pserrors.EmptyEnum, Object: t.Name.String()})
			continue
		}
		seen := make(map[string]bool, len(t.Kind.EnumValues))
		for _, v := range t.Kind.EnumValues {
			if seen[v] {
				findings = append(findings, pserrors.ValidationFinding{
					Kind: pserrors.DuplicateEnumValue, Object: t.Name.String(), Detail: v,
				})
			}
			seen[v] = true
		}
	}

	if len(findings) > 0 {
		return &pserrors.ValidationError{Findings: findings}
	}
	return nil
}

func checkColumnsExist(table sqlast.TableDefinition, constraintName string, columns []string) []pserrors.ValidationFinding {
	var findings []pserrors.ValidationFinding
	for _, col := range columns {
		if _, ok := table.Column(col); !ok {
			findings = append(findings, pserrors.ValidationFinding{
				Kind:   pserrors.UnknownColumnReference,
				Object: table.Name.String() + "." + constraintName,
				Detail: col,
			})
		}
	}
	return findings
}

func checkScriptOrdering(scripts []sqlast.ScriptDefinition) []pserrors.ValidationFinding {
	byKind := map[sqlast.ScriptKind]map[int][]string{}
	for _, s := range scripts {
		if byKind[s.Kind] == nil {
			byKind[s.Kind] = make(map[int][]string)
		}
		byKind[s.Kind][s.Order] = append(byKind[s.Kind][s.Order], s.Name)
	}

	var findings []pserrors.ValidationFinding
	for kind, orders := range byKind {
		for order, names := range orders {
			if len(names) <= 1 {
				continue
			}
			sort.Strings(names)
			findings = append(findings, pserrors.ValidationFinding{
				Kind:   pserrors.DuplicateScriptOrder,
				Object: fmt.Sprintf("%v order %d", kind, order),
				Detail: strings.Join(names, ", "),
			})
		}
	}
	return findings
}
