// SPDX-License-Identifier: Apache-2.0

// Package differ compares a desired-state Package against a live
// database's catalog snapshot and produces an ordered, deterministic
// changeset: the list of instructions that would bring the target up
// to date with the package, gated by a publish profile's safety knobs.
package differ

import (
	"context"
	"fmt"
	"sort"

	"github.com/psqlpack/psqlpack/internal/catalog"
	"github.com/psqlpack/psqlpack/internal/connstr"
	"github.com/psqlpack/psqlpack/internal/depgraph"
	"github.com/psqlpack/psqlpack/internal/plog"
	"github.com/psqlpack/psqlpack/internal/project"
	"github.com/psqlpack/psqlpack/internal/schema"
	"github.com/psqlpack/psqlpack/internal/sqlast"
)

// Kind discriminates the shape of a single ChangeInstruction, mirroring
// the closed instruction set of the specification's §4.6 Output.
type Kind int

const (
	DropDatabase Kind = iota
	CreateDatabase
	UseDatabase

	AddExtension

	AddSchema

	AddType
	ModifyType
	RemoveType

	RunScript

	AddTable
	RemoveTable

	AddColumn
	ModifyColumn
	RemoveColumn

	// AddConstraint/DropConstraint extend the specification's literal
	// instruction enum: §4.6 step 3's table bullet requires "add
	// missing, drop extraneous, replace changed" for table-level
	// constraints, but the Output list names no constraint-specific
	// instruction. A constraint carries its own identity (name) distinct
	// from any single column, so folding it into AddColumn/ModifyColumn
	// would either lose that identity or force a whole-table
	// recreate for a one-constraint change; these two kinds are the
	// smallest extension that keeps the required granularity.
	AddConstraint
	DropConstraint

	AddFunction
	ModifyFunction
	DropFunction

	AddIndex
	DropIndex
)

func (k Kind) String() string {
	switch k {
	case DropDatabase:
		return "DropDatabase"
	case CreateDatabase:
		return "CreateDatabase"
	case UseDatabase:
		return "UseDatabase"
	case AddExtension:
		return "AddExtension"
	case AddSchema:
		return "AddSchema"
	case AddType:
		return "AddType"
	case ModifyType:
		return "ModifyType"
	case RemoveType:
		return "RemoveType"
	case RunScript:
		return "RunScript"
	case AddTable:
		return "AddTable"
	case RemoveTable:
		return "RemoveTable"
	case AddColumn:
		return "AddColumn"
	case ModifyColumn:
		return "ModifyColumn"
	case RemoveColumn:
		return "RemoveColumn"
	case AddConstraint:
		return "AddConstraint"
	case DropConstraint:
		return "DropConstraint"
	case AddFunction:
		return "AddFunction"
	case ModifyFunction:
		return "ModifyFunction"
	case DropFunction:
		return "DropFunction"
	case AddIndex:
		return "AddIndex"
	case DropIndex:
		return "DropIndex"
	default:
		return "Unknown"
	}
}

// ChangeInstruction is a single step of a Delta. Only the fields
// relevant to Kind are populated; the rest are the zero value.
type ChangeInstruction struct {
	Kind Kind

	DatabaseName string

	Extension *sqlast.ExtensionDefinition

	Schema *sqlast.SchemaDefinition

	Type            *sqlast.TypeDefinition
	TypeName        sqlast.ObjectName // RemoveType
	AddedEnumValues []string          // ModifyType, safe (append-only) case

	Script *sqlast.ScriptDefinition

	Table     *sqlast.TableDefinition
	TableName sqlast.ObjectName // RemoveTable

	Column      *sqlast.ColumnDefinition
	ColumnTable sqlast.ObjectName
	ColumnName  string // RemoveColumn

	Constraint      *sqlast.TableConstraint
	ConstraintTable sqlast.ObjectName
	ConstraintName  string // DropConstraint

	Function     *sqlast.FunctionDefinition
	FunctionName sqlast.ObjectName // DropFunction

	Index      *sqlast.IndexDefinition
	IndexName  string // DropIndex
	IndexTable sqlast.ObjectName
}

// ObjectName returns the identity the instruction acts on, used for
// logging and for the report emitter's "object" field.
func (c ChangeInstruction) ObjectName() string {
	switch c.Kind {
	case DropDatabase, CreateDatabase, UseDatabase:
		return c.DatabaseName
	case AddExtension:
		return c.Extension.Name
	case AddSchema:
		return c.Schema.Name
	case AddType, ModifyType:
		return c.Type.Name.String()
	case RemoveType:
		return c.TypeName.String()
	case RunScript:
		return c.Script.Name
	case AddTable:
		return c.Table.Name.String()
	case RemoveTable:
		return c.TableName.String()
	case AddColumn, ModifyColumn:
		return c.ColumnTable.String() + "." + c.Column.Name
	case RemoveColumn:
		return c.ColumnTable.String() + "." + c.ColumnName
	case AddConstraint:
		return c.ConstraintTable.String() + "." + c.Constraint.Name
	case DropConstraint:
		return c.ConstraintTable.String() + "." + c.ConstraintName
	case AddFunction, ModifyFunction:
		return c.Function.Name.String()
	case DropFunction:
		return c.FunctionName.String()
	case AddIndex:
		return c.Index.Name
	case DropIndex:
		return c.IndexName
	default:
		return ""
	}
}

// ProgressMessage renders the one-line human-readable description shown
// during apply, grounded on original_source/psqlpack/src/model/delta.rs's
// to_progress_message (which only covered three kinds); every kind is
// covered here, per SPEC_FULL.md §7.2.
func (c ChangeInstruction) ProgressMessage() string {
	switch c.Kind {
	case DropDatabase:
		return fmt.Sprintf("Dropping database %s", c.DatabaseName)
	case CreateDatabase:
		return fmt.Sprintf("Creating database %s", c.DatabaseName)
	case UseDatabase:
		return fmt.Sprintf("Using database %s", c.DatabaseName)
	case AddExtension:
		return fmt.Sprintf("Adding extension %s", c.Extension.Name)
	case AddSchema:
		return fmt.Sprintf("Adding schema %s", c.Schema.Name)
	case AddType:
		return fmt.Sprintf("Adding type %s", c.Type.Name)
	case ModifyType:
		return fmt.Sprintf("Modifying type %s", c.Type.Name)
	case RemoveType:
		return fmt.Sprintf("Removing type %s", c.TypeName)
	case RunScript:
		return fmt.Sprintf("Running script %s", c.Script.Name)
	case AddTable:
		return fmt.Sprintf("Adding table %s", c.Table.Name)
	case RemoveTable:
		return fmt.Sprintf("Removing table %s", c.TableName)
	case AddColumn:
		return fmt.Sprintf("Adding column %s to %s", c.Column.Name, c.ColumnTable)
	case ModifyColumn:
		return fmt.Sprintf("Modifying column %s on %s", c.Column.Name, c.ColumnTable)
	case RemoveColumn:
		return fmt.Sprintf("Removing column %s from %s", c.ColumnName, c.ColumnTable)
	case AddConstraint:
		return fmt.Sprintf("Adding constraint %s to %s", c.Constraint.Name, c.ConstraintTable)
	case DropConstraint:
		return fmt.Sprintf("Dropping constraint %s from %s", c.ConstraintName, c.ConstraintTable)
	case AddFunction:
		return fmt.Sprintf("Adding function %s", c.Function.Name)
	case ModifyFunction:
		return fmt.Sprintf("Modifying function %s", c.Function.Name)
	case DropFunction:
		return fmt.Sprintf("Dropping function %s", c.FunctionName)
	case AddIndex:
		return fmt.Sprintf("Adding index %s", c.Index.Name)
	case DropIndex:
		return fmt.Sprintf("Dropping index %s", c.IndexName)
	default:
		return "Unknown change"
	}
}

// IsUnsafe reports whether the instruction can destroy data, per the
// glossary's definition of "unsafe operation": column drop, table drop,
// type removal, and database drop (via always-recreate). A ModifyType
// is unsafe only in its drop-and-recreate form (no appended values to
// fall back on); the append-only-superset form is always safe. Index
// and function drops are not data-destructive and are never gated.
func (c ChangeInstruction) IsUnsafe() bool {
	switch c.Kind {
	case DropDatabase, RemoveTable, RemoveColumn, RemoveType:
		return true
	case ModifyType:
		return len(c.AddedEnumValues) == 0
	default:
		return false
	}
}

// Generate computes the deterministic changeset that would bring the
// catalog's database up to date with pkg, per the algorithm in §4.6 of
// the specification. database names the target database (pulled from
// conn so callers needn't pass it separately); cat must already be
// positioned to introspect that server.
func Generate(ctx context.Context, pkg *schema.Package, cat catalog.Catalog, conn connstr.Connection, profile project.PublishProfile, log plog.Sink) ([]ChangeInstruction, error) {
	if log == nil {
		log = plog.NewNoop()
	}

	database := conn.Database
	log.LogDiffStart(database)

	exists, err := cat.DatabaseExists(ctx, database)
	if err != nil {
		return nil, err
	}

	order := buildOrder(pkg)

	var changeset []ChangeInstruction

	recreate := exists && profile.GenerationOptions.AlwaysRecreateDatabase
	if recreate {
		log.LogDatabaseRecreate(database)
		changeset = append(changeset, ChangeInstruction{Kind: DropDatabase, DatabaseName: database})
	}

	if !exists || recreate {
		log.LogDatabaseMissing(database)
		changeset = append(changeset, ChangeInstruction{Kind: CreateDatabase, DatabaseName: database})
		changeset = append(changeset, ChangeInstruction{Kind: UseDatabase, DatabaseName: database})
		changeset = append(changeset, buildFreshInstructions(order)...)
		for i := range pkg.Indexes {
			changeset = append(changeset, ChangeInstruction{Kind: AddIndex, Index: &pkg.Indexes[i]})
		}
		return finish(changeset, log), nil
	}

	log.LogConnecting(database)
	changeset = append(changeset, ChangeInstruction{Kind: UseDatabase, DatabaseName: database})

	snapshot, err := loadSnapshot(ctx, cat)
	if err != nil {
		return nil, err
	}

	for _, item := range order {
		instrs, err := diffItem(item, snapshot, profile)
		if err != nil {
			return nil, err
		}
		changeset = append(changeset, instrs...)
	}

	changeset = append(changeset, diffOrphans(pkg, snapshot, profile)...)

	return finish(changeset, log), nil
}

func finish(changeset []ChangeInstruction, log plog.Sink) []ChangeInstruction {
	for _, instr := range changeset {
		log.LogInstruction(instr.Kind.String(), instr.ObjectName())
	}
	log.LogDiffComplete(len(changeset))
	return changeset
}

// snapshot is the live catalog's definitions, fetched once per Generate
// call so every item in the build order is compared against the same
// consistent view, keyed for O(1) lookup during the per-item diff.
type snapshot struct {
	extensions map[string]catalog.Extension
	schemas    map[string]sqlast.SchemaDefinition
	types      map[string]sqlast.TypeDefinition
	tables     map[string]sqlast.TableDefinition
	functions  map[string]sqlast.FunctionDefinition
	indexes    map[string]sqlast.IndexDefinition
}

func loadSnapshot(ctx context.Context, cat catalog.Catalog) (*snapshot, error) {
	extensions, err := cat.ListExtensions(ctx)
	if err != nil {
		return nil, err
	}
	schemas, err := cat.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}
	types, err := cat.ListTypes(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := cat.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	functions, err := cat.ListFunctions(ctx)
	if err != nil {
		return nil, err
	}
	indexes, err := cat.ListIndexes(ctx)
	if err != nil {
		return nil, err
	}

	s := &snapshot{
		extensions: make(map[string]catalog.Extension, len(extensions)),
		schemas:    make(map[string]sqlast.SchemaDefinition, len(schemas)),
		types:      make(map[string]sqlast.TypeDefinition, len(types)),
		tables:     make(map[string]sqlast.TableDefinition, len(tables)),
		functions:  make(map[string]sqlast.FunctionDefinition, len(functions)),
		indexes:    make(map[string]sqlast.IndexDefinition, len(indexes)),
	}
	for _, e := range extensions {
		s.extensions[e.Name] = e
	}
	for _, sc := range schemas {
		s.schemas[sc.Name] = sc
	}
	for _, t := range types {
		s.types[t.Name.String()] = t
	}
	for _, t := range tables {
		s.tables[t.Name.String()] = t
	}
	for _, f := range functions {
		s.functions[f.Name.String()] = f
	}
	for _, i := range indexes {
		s.indexes[i.Name] = i
	}
	return s, nil
}

// buildItemTag discriminates the kind of desired-state object a
// buildItem carries through the deployment sequence.
type buildItemTag int

const (
	itemScript buildItemTag = iota
	itemExtension
	itemSchema
	itemType
	itemTable
	itemFunction
)

type buildItem struct {
	tag       buildItemTag
	script    *sqlast.ScriptDefinition
	extension *sqlast.ExtensionDefinition
	schemaDef *sqlast.SchemaDefinition
	typeDef   *sqlast.TypeDefinition
	table     *sqlast.TableDefinition
	function  *sqlast.FunctionDefinition
}

// buildOrder sequences every desired-state object per §4.6 step 1:
// pre-deploy scripts, extensions, schemas, types, then the
// topologically-sorted tables/functions, then post-deploy scripts.
// Indexes are not part of this sequence (§3.4: they are not graph
// nodes); they are diffed in their own pass after the table loop.
func buildOrder(pkg *schema.Package) []buildItem {
	var order []buildItem

	for i := range pkg.Scripts {
		if pkg.Scripts[i].Kind == sqlast.PreDeployment {
			order = append(order, buildItem{tag: itemScript, script: &pkg.Scripts[i]})
		}
	}
	for i := range pkg.Extensions {
		order = append(order, buildItem{tag: itemExtension, extension: &pkg.Extensions[i]})
	}
	for i := range pkg.Schemas {
		order = append(order, buildItem{tag: itemSchema, schemaDef: &pkg.Schemas[i]})
	}
	for i := range pkg.Types {
		order = append(order, buildItem{tag: itemType, typeDef: &pkg.Types[i]})
	}

	for _, node := range pkg.Order {
		switch node.Kind {
		case depgraph.NodeTable:
			if t, ok := findTable(pkg, node.Value); ok {
				order = append(order, buildItem{tag: itemTable, table: t})
			}
		case depgraph.NodeFunction:
			if f, ok := findFunction(pkg, node.Value); ok {
				order = append(order, buildItem{tag: itemFunction, function: f})
			}
		}
	}

	for i := range pkg.Scripts {
		if pkg.Scripts[i].Kind == sqlast.PostDeployment {
			order = append(order, buildItem{tag: itemScript, script: &pkg.Scripts[i]})
		}
	}
	return order
}

func findTable(pkg *schema.Package, name string) (*sqlast.TableDefinition, bool) {
	for i := range pkg.Tables {
		if pkg.Tables[i].Name.String() == name {
			return &pkg.Tables[i], true
		}
	}
	return nil, false
}

func findFunction(pkg *schema.Package, name string) (*sqlast.FunctionDefinition, bool) {
	for i := range pkg.Functions {
		if pkg.Functions[i].Name.String() == name {
			return &pkg.Functions[i], true
		}
	}
	return nil, false
}

// buildFreshInstructions emits an unconditional Add* for every item in
// order, used when the target database doesn't exist yet (or is being
// recreated).
func buildFreshInstructions(order []buildItem) []ChangeInstruction {
	var out []ChangeInstruction
	for _, item := range order {
		switch item.tag {
		case itemScript:
			out = append(out, ChangeInstruction{Kind: RunScript, Script: item.script})
		case itemExtension:
			out = append(out, ChangeInstruction{Kind: AddExtension, Extension: item.extension})
		case itemSchema:
			out = append(out, ChangeInstruction{Kind: AddSchema, Schema: item.schemaDef})
		case itemType:
			out = append(out, ChangeInstruction{Kind: AddType, Type: item.typeDef})
		case itemTable:
			out = append(out, ChangeInstruction{Kind: AddTable, Table: item.table})
		case itemFunction:
			out = append(out, ChangeInstruction{Kind: AddFunction, Function: item.function})
		}
	}
	return out
}

// diffItem compares a single desired-state item against the snapshot,
// per §4.6 step 3.
func diffItem(item buildItem, snap *snapshot, profile project.PublishProfile) ([]ChangeInstruction, error) {
	switch item.tag {
	case itemScript:
		return []ChangeInstruction{{Kind: RunScript, Script: item.script}}, nil
	case itemExtension:
		if _, ok := snap.extensions[item.extension.Name]; ok {
			return nil, nil
		}
		return []ChangeInstruction{{Kind: AddExtension, Extension: item.extension}}, nil
	case itemSchema:
		if _, ok := snap.schemas[item.schemaDef.Name]; ok {
			return nil, nil
		}
		return []ChangeInstruction{{Kind: AddSchema, Schema: item.schemaDef}}, nil
	case itemType:
		return diffType(item.typeDef, snap, profile), nil
	case itemTable:
		return diffTable(item.table, snap, profile)
	case itemFunction:
		// CREATE OR REPLACE FUNCTION makes add-or-modify unconditional;
		// this mirrors delta.rs's own comment that a hash check to skip
		// unchanged functions would be a future improvement.
		return []ChangeInstruction{{Kind: ModifyFunction, Function: item.function}}, nil
	default:
		return nil, nil
	}
}

func diffType(desired *sqlast.TypeDefinition, snap *snapshot, profile project.PublishProfile) []ChangeInstruction {
	existing, ok := snap.types[desired.Name.String()]
	if !ok {
		return []ChangeInstruction{{Kind: AddType, Type: desired}}
	}
	if desired.Kind.Tag != sqlast.TypeEnum || existing.Kind.Tag != sqlast.TypeEnum {
		return nil
	}
	if stringSliceEqual(desired.Kind.EnumValues, existing.Kind.EnumValues) {
		return nil
	}
	if isAppendOnlySuperset(existing.Kind.EnumValues, desired.Kind.EnumValues) {
		added := append([]string(nil), desired.Kind.EnumValues[len(existing.Kind.EnumValues):]...)
		return []ChangeInstruction{{Kind: ModifyType, Type: desired, AddedEnumValues: added}}
	}
	if profile.GenerationOptions.AllowUnsafeOperations {
		return []ChangeInstruction{{Kind: ModifyType, Type: desired}}
	}
	return nil
}

// isAppendOnlySuperset reports whether next equals prev with zero or
// more values appended at the end — the one enum change §4.6 step 3
// treats as safe to re-create without the unsafe-operations gate.
func isAppendOnlySuperset(prev, next []string) bool {
	if len(next) < len(prev) {
		return false
	}
	for i, v := range prev {
		if next[i] != v {
			return false
		}
	}
	return true
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func diffTable(desired *sqlast.TableDefinition, snap *snapshot, profile project.PublishProfile) ([]ChangeInstruction, error) {
	existing, ok := snap.tables[desired.Name.String()]
	if !ok {
		return []ChangeInstruction{{Kind: AddTable, Table: desired}}, nil
	}

	var instrs []ChangeInstruction

	existingCols := make(map[string]sqlast.ColumnDefinition, len(existing.Columns))
	for _, c := range existing.Columns {
		existingCols[c.Name] = c
	}
	seen := make(map[string]bool, len(desired.Columns))
	for i := range desired.Columns {
		col := &desired.Columns[i]
		seen[col.Name] = true
		existingCol, found := existingCols[col.Name]
		if !found {
			instrs = append(instrs, ChangeInstruction{Kind: AddColumn, Column: col, ColumnTable: desired.Name})
			continue
		}
		if columnsDiffer(*col, existingCol) {
			instrs = append(instrs, ChangeInstruction{Kind: ModifyColumn, Column: col, ColumnTable: desired.Name})
		}
	}
	for _, c := range existing.Columns {
		if !seen[c.Name] {
			if !profile.GenerationOptions.AllowUnsafeOperations {
				continue
			}
			instrs = append(instrs, ChangeInstruction{Kind: RemoveColumn, ColumnName: c.Name, ColumnTable: desired.Name})
		}
	}

	existingConstraints := make(map[string]sqlast.TableConstraint, len(existing.Constraints))
	for _, c := range existing.Constraints {
		existingConstraints[c.Name] = c
	}
	seenConstraints := make(map[string]bool, len(desired.Constraints))
	for i := range desired.Constraints {
		c := &desired.Constraints[i]
		seenConstraints[c.Name] = true
		existingConstraint, found := existingConstraints[c.Name]
		if !found {
			instrs = append(instrs, ChangeInstruction{Kind: AddConstraint, Constraint: c, ConstraintTable: desired.Name})
			continue
		}
		if constraintsDiffer(*c, existingConstraint) {
			// replace changed: drop then add, in that order.
			instrs = append(instrs, ChangeInstruction{Kind: DropConstraint, ConstraintName: existingConstraint.Name, ConstraintTable: desired.Name})
			instrs = append(instrs, ChangeInstruction{Kind: AddConstraint, Constraint: c, ConstraintTable: desired.Name})
		}
	}
	inlinePK := false
	for _, col := range desired.Columns {
		if col.HasConstraint(sqlast.ColumnPrimaryKey) {
			inlinePK = true
		}
	}
	for _, c := range existing.Constraints {
		if !seenConstraints[c.Name] {
			// A column-level PRIMARY KEY shows up in the catalog under a
			// synthesized constraint name; it is not reconciled here.
			if c.Tag == sqlast.TagPrimary && (inlinePK || !profile.GenerationOptions.AllowUnsafeOperations) {
				continue
			}
			instrs = append(instrs, ChangeInstruction{Kind: DropConstraint, ConstraintName: c.Name, ConstraintTable: desired.Name})
		}
	}

	return instrs, nil
}

// columnsDiffer reports whether the desired column's type, nullability,
// or default value differs from what's already live, per §4.6 step 3.
func columnsDiffer(desired, existing sqlast.ColumnDefinition) bool {
	if !desired.Type.Equal(existing.Type) {
		return true
	}
	if desired.HasConstraint(sqlast.ColumnNotNull) != existing.HasConstraint(sqlast.ColumnNotNull) {
		return true
	}
	return defaultValue(desired) != defaultValue(existing)
}

func defaultValue(col sqlast.ColumnDefinition) string {
	for _, c := range col.Constraints {
		if c.Kind == sqlast.ColumnDefault {
			return c.Default.String()
		}
	}
	return ""
}

func constraintsDiffer(desired, existing sqlast.TableConstraint) bool {
	if desired.Tag != existing.Tag {
		return true
	}
	if !stringSliceEqual(desired.Columns, existing.Columns) {
		return true
	}
	if desired.Tag == sqlast.TagForeign {
		if desired.RefTable != existing.RefTable {
			return true
		}
		if !stringSliceEqual(desired.RefColumns, existing.RefColumns) {
			return true
		}
		if matchTypeValue(desired.MatchType) != matchTypeValue(existing.MatchType) {
			return true
		}
		if !foreignEventsEqual(desired.Events, existing.Events) {
			return true
		}
	}
	return false
}

// matchTypeValue normalizes a possibly-nil MatchType to its effective
// value: an omitted MATCH clause means MatchSimple, the same as an
// explicit one, so the two must compare equal.
func matchTypeValue(m *sqlast.ForeignConstraintMatchType) sqlast.ForeignConstraintMatchType {
	if m == nil {
		return sqlast.MatchSimple
	}
	return *m
}

// foreignEventsEqual compares ON DELETE/ON UPDATE actions by kind,
// independent of declaration order.
func foreignEventsEqual(a, b []sqlast.ForeignConstraintEvent) bool {
	if len(a) != len(b) {
		return false
	}
	byKind := func(events []sqlast.ForeignConstraintEvent) map[sqlast.ForeignConstraintEventKind]sqlast.ForeignConstraintAction {
		m := make(map[sqlast.ForeignConstraintEventKind]sqlast.ForeignConstraintAction, len(events))
		for _, e := range events {
			m[e.Kind] = e.Action
		}
		return m
	}
	am, bm := byKind(a), byKind(b)
	if len(am) != len(bm) {
		return false
	}
	for k, v := range am {
		if bv, ok := bm[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// diffOrphans finds objects present in the live catalog but absent from
// the desired package: orphan tables, functions, types, and indexes.
// Table/type removal is data-destructive and gated; function and index
// removal are not.
func diffOrphans(pkg *schema.Package, snap *snapshot, profile project.PublishProfile) []ChangeInstruction {
	var instrs []ChangeInstruction

	desiredTables := make(map[string]bool, len(pkg.Tables))
	for _, t := range pkg.Tables {
		desiredTables[t.Name.String()] = true
	}
	instrs = append(instrs, orphanTables(desiredTables, snap, profile)...)

	desiredFunctions := make(map[string]bool, len(pkg.Functions))
	for _, f := range pkg.Functions {
		desiredFunctions[f.Name.String()] = true
	}
	instrs = append(instrs, orphanFunctions(desiredFunctions, snap)...)

	desiredTypes := make(map[string]bool, len(pkg.Types))
	for _, t := range pkg.Types {
		desiredTypes[t.Name.String()] = true
	}
	instrs = append(instrs, orphanTypes(desiredTypes, snap, profile)...)

	instrs = append(instrs, diffIndexes(pkg, snap, profile)...)

	return instrs
}

func orphanTables(desired map[string]bool, snap *snapshot, profile project.PublishProfile) []ChangeInstruction {
	if !profile.GenerationOptions.AllowUnsafeOperations {
		return nil
	}
	var names []string
	for name := range snap.tables {
		if !desired[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	instrs := make([]ChangeInstruction, 0, len(names))
	for _, name := range names {
		t := snap.tables[name]
		instrs = append(instrs, ChangeInstruction{Kind: RemoveTable, TableName: t.Name})
	}
	return instrs
}

func orphanFunctions(desired map[string]bool, snap *snapshot) []ChangeInstruction {
	var names []string
	for name := range snap.functions {
		if !desired[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	instrs := make([]ChangeInstruction, 0, len(names))
	for _, name := range names {
		f := snap.functions[name]
		instrs = append(instrs, ChangeInstruction{Kind: DropFunction, FunctionName: f.Name})
	}
	return instrs
}

func orphanTypes(desired map[string]bool, snap *snapshot, profile project.PublishProfile) []ChangeInstruction {
	if !profile.GenerationOptions.AllowUnsafeOperations {
		return nil
	}
	var names []string
	for name := range snap.types {
		if !desired[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	instrs := make([]ChangeInstruction, 0, len(names))
	for _, name := range names {
		t := snap.types[name]
		instrs = append(instrs, ChangeInstruction{Kind: RemoveType, TypeName: t.Name})
	}
	return instrs
}

// diffIndexes reconciles every declared index (name, table) against the
// catalog: missing indexes are added, extraneous ones dropped, and a
// changed index is replaced by a drop followed by an add, in that order.
func diffIndexes(pkg *schema.Package, snap *snapshot, profile project.PublishProfile) []ChangeInstruction {
	var instrs []ChangeInstruction

	seen := make(map[string]bool, len(pkg.Indexes))
	names := make([]string, 0, len(pkg.Indexes))
	for i := range pkg.Indexes {
		names = append(names, pkg.Indexes[i].Name)
	}
	sort.Strings(names)

	byName := make(map[string]*sqlast.IndexDefinition, len(pkg.Indexes))
	for i := range pkg.Indexes {
		byName[pkg.Indexes[i].Name] = &pkg.Indexes[i]
	}

	for _, name := range names {
		desired := byName[name]
		seen[name] = true
		existing, ok := snap.indexes[name]
		if !ok {
			instrs = append(instrs, ChangeInstruction{Kind: AddIndex, Index: desired})
			continue
		}
		if indexesDiffer(*desired, existing) {
			instrs = append(instrs, ChangeInstruction{Kind: DropIndex, IndexName: name, IndexTable: desired.Table})
			instrs = append(instrs, ChangeInstruction{Kind: AddIndex, Index: desired})
		}
	}

	var extraneous []string
	for name := range snap.indexes {
		if !seen[name] {
			extraneous = append(extraneous, name)
		}
	}
	sort.Strings(extraneous)
	for _, name := range extraneous {
		idx := snap.indexes[name]
		instrs = append(instrs, ChangeInstruction{Kind: DropIndex, IndexName: name, IndexTable: idx.Table})
	}

	return instrs
}

func indexesDiffer(desired, existing sqlast.IndexDefinition) bool {
	if desired.Unique != existing.Unique {
		return true
	}
	if desired.IndexType != "" && existing.IndexType != "" && desired.IndexType != existing.IndexType {
		return true
	}
	if len(desired.Columns) != len(existing.Columns) {
		return true
	}
	for i := range desired.Columns {
		if desired.Columns[i].Name != existing.Columns[i].Name {
			return true
		}
	}
	return false
}

