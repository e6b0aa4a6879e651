// SPDX-License-Identifier: Apache-2.0

// Package catalog introspects a live PostgreSQL database, reconstructing
// the same definitions the parser produces from source so the differ can
// compare a desired package against what's actually there.
package catalog

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/psqlpack/psqlpack/internal/connstr"
	"github.com/psqlpack/psqlpack/internal/pserrors"
	"github.com/psqlpack/psqlpack/internal/semver"
	"github.com/psqlpack/psqlpack/internal/sqlast"
	"github.com/psqlpack/psqlpack/internal/sqlparse"
	"github.com/psqlpack/psqlpack/internal/sqltoken"
	"github.com/psqlpack/psqlpack/pkg/db"

	_ "github.com/lib/pq"
)

// Extension is an installed PostgreSQL extension, as reported by
// pg_extension.
type Extension struct {
	Name      string
	Version   string
	Installed bool
}

// Catalog is the capability the differ depends on: introspection of a
// live database plus the two execution entry points a publish needs.
// Implementations surface PostgreSQL failures as *pserrors.DatabaseError,
// a *pserrors.DatabaseExecuteError from Execute/RunHostStatement, or a
// *pserrors.PackageQueryError naming the failing query.
type Catalog interface {
	DatabaseExists(ctx context.Context, name string) (bool, error)

	ExtensionExists(ctx context.Context, name string) (bool, error)
	ListExtensions(ctx context.Context) ([]Extension, error)

	SchemaExists(ctx context.Context, name string) (bool, error)
	ListSchemas(ctx context.Context) ([]sqlast.SchemaDefinition, error)

	TableExists(ctx context.Context, schema, name string) (bool, error)
	ListTables(ctx context.Context) ([]sqlast.TableDefinition, error)
	DescribeColumns(ctx context.Context, schema, table string) ([]sqlast.ColumnDefinition, error)

	TypeExists(ctx context.Context, name string) (bool, error)
	ListTypes(ctx context.Context) ([]sqlast.TypeDefinition, error)

	ListFunctions(ctx context.Context) ([]sqlast.FunctionDefinition, error)
	ListIndexes(ctx context.Context) ([]sqlast.IndexDefinition, error)

	ServerVersion(ctx context.Context) (semver.Semver, error)

	Execute(ctx context.Context, sql string) error
	RunHostStatement(ctx context.Context, sql string) error
}

// Postgres is the lib/pq-backed Catalog implementation. Host-level
// operations (database existence, CREATE/DROP DATABASE) run against a
// connection to the server's default database; everything else runs
// against the target database itself.
type Postgres struct {
	conn   connstr.Connection
	host   db.DB
	target db.DB
}

// Open connects and pings the host connection (used for database-level
// operations) only. The target database connection is not opened here:
// connectTarget opens it lazily on first use, since the target database
// may not yet exist.
func Open(ctx context.Context, conn connstr.Connection) (*Postgres, error) {
	hostConn, err := sql.Open("postgres", conn.HostURL()+"/postgres")
	if err != nil {
		return nil, &pserrors.DatabaseError{Message: err.Error()}
	}
	if err := hostConn.PingContext(ctx); err != nil {
		return nil, &pserrors.DatabaseError{Message: err.Error()}
	}
	return &Postgres{conn: conn, host: &db.RDB{DB: hostConn}}, nil
}

// connectTarget lazily opens the connection to the target database,
// which may not exist yet when Open was called.
func (p *Postgres) connectTarget(ctx context.Context) (db.DB, error) {
	if p.target != nil {
		return p.target, nil
	}
	conn, err := sql.Open("postgres", p.conn.DatabaseURL())
	if err != nil {
		return nil, &pserrors.DatabaseError{Message: err.Error()}
	}
	if err := conn.PingContext(ctx); err != nil {
		return nil, &pserrors.DatabaseError{Message: err.Error()}
	}
	p.target = &db.RDB{DB: conn}
	return p.target, nil
}

// Close closes both the host and target connections, if open.
func (p *Postgres) Close() error {
	var firstErr error
	if p.target != nil {
		if err := p.target.Close(); err != nil {
			firstErr = err
		}
	}
	if err := p.host.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

const queryDatabaseExists = `SELECT 1 FROM pg_database WHERE datname = $1`

func (p *Postgres) DatabaseExists(ctx context.Context, name string) (bool, error) {
	return rowExists(ctx, p.host, queryDatabaseExists, name)
}

const queryExtensionExists = `SELECT 1 FROM pg_catalog.pg_extension WHERE extname = $1`

func (p *Postgres) ExtensionExists(ctx context.Context, name string) (bool, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return false, err
	}
	return rowExists(ctx, conn, queryExtensionExists, name)
}

const queryExtensions = `SELECT extname, extversion FROM pg_catalog.pg_extension WHERE extowner <> 10`

func (p *Postgres) ListExtensions(ctx context.Context) ([]Extension, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, queryExtensions)
	if err != nil {
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryExtensions, Err: err}
	}
	defer rows.Close()

	var extensions []Extension
	for rows.Next() {
		var ext Extension
		if err := rows.Scan(&ext.Name, &ext.Version); err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryExtensions, Err: err}
		}
		ext.Installed = true
		extensions = append(extensions, ext)
	}
	return extensions, rows.Err()
}

const querySchemaExists = `SELECT 1 FROM information_schema.schemata WHERE schema_name = $1`

func (p *Postgres) SchemaExists(ctx context.Context, name string) (bool, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return false, err
	}
	return rowExists(ctx, conn, querySchemaExists, name)
}

const queryListSchemas = `SELECT schema_name FROM information_schema.schemata
                          WHERE catalog_name = current_database() AND schema_owner <> 'postgres'`

func (p *Postgres) ListSchemas(ctx context.Context) ([]sqlast.SchemaDefinition, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, queryListSchemas)
	if err != nil {
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QuerySchemas, Err: err}
	}
	defer rows.Close()

	var schemas []sqlast.SchemaDefinition
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QuerySchemas, Err: err}
		}
		schemas = append(schemas, sqlast.SchemaDefinition{Name: name})
	}
	return schemas, rows.Err()
}

const queryTableExists = `SELECT 1
                          FROM pg_catalog.pg_class c
                          JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
                          WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind = 'r'`

func (p *Postgres) TableExists(ctx context.Context, schema, name string) (bool, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return false, err
	}
	return rowExists(ctx, conn, queryTableExists, schema, name)
}

const queryListTables = `SELECT n.nspname, c.relname
                         FROM pg_catalog.pg_class c
                         JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
                         LEFT JOIN pg_catalog.pg_depend d ON d.objid = c.oid AND d.deptype = 'e'
                         WHERE c.relkind = 'r' AND d.objid IS NULL
                           AND n.nspname NOT IN ('pg_catalog', 'information_schema')
                         ORDER BY n.nspname, c.relname`

const queryTableConstraints = `SELECT conname, pg_get_constraintdef(oid)
                               FROM pg_catalog.pg_constraint
                               WHERE conrelid = (quote_ident($1) || '.' || quote_ident($2))::regclass
                               ORDER BY conname`

// ListTables reconstructs every ordinary table owned by the database,
// including its columns and table-level constraints, by re-running
// DescribeColumns and a constraint-definition query per table. Unlike the
// original implementation's table introspection (which never populated
// columns or constraints), this is exercised directly by the differ's
// column and constraint diff.
func (p *Postgres) ListTables(ctx context.Context) ([]sqlast.TableDefinition, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, queryListTables)
	if err != nil {
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryTables, Err: err}
	}

	var names []sqlast.ObjectName
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			rows.Close()
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryTables, Err: err}
		}
		names = append(names, sqlast.ObjectName{Schema: schema, Name: name})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryTables, Err: err}
	}
	rows.Close()

	tables := make([]sqlast.TableDefinition, 0, len(names))
	for _, name := range names {
		columns, err := p.DescribeColumns(ctx, name.Schema, name.Name)
		if err != nil {
			return nil, err
		}
		constraints, err := p.tableConstraints(ctx, conn, name.Schema, name.Name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, sqlast.TableDefinition{Name: name, Columns: columns, Constraints: constraints})
	}
	return tables, nil
}

// tableConstraints reads back PRIMARY KEY and FOREIGN KEY definitions via
// pg_get_constraintdef, matching the original's Q_TABLES join against
// pg_constraint. Parsing pg_get_constraintdef's output is delegated to a
// tiny fragment of the table-constraint grammar understood here, since
// that output ("PRIMARY KEY (a, b)", "FOREIGN KEY (a) REFERENCES t(b)")
// is not itself a full CREATE TABLE statement the main parser accepts.
func (p *Postgres) tableConstraints(ctx context.Context, conn db.DB, schema, table string) ([]sqlast.TableConstraint, error) {
	rows, err := conn.QueryContext(ctx, queryTableConstraints, schema, table)
	if err != nil {
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryConstraints, Err: err}
	}
	defer rows.Close()

	var constraints []sqlast.TableConstraint
	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryConstraints, Err: err}
		}
		constraint, ok := parseConstraintDef(name, definition)
		if ok {
			constraints = append(constraints, constraint)
		}
	}
	return constraints, rows.Err()
}

const queryDescribeColumns = `SELECT column_name, data_type, is_nullable, column_default
                              FROM information_schema.columns
                              WHERE table_schema = $1 AND table_name = $2
                              ORDER BY ordinal_position`

func (p *Postgres) DescribeColumns(ctx context.Context, schema, table string) ([]sqlast.ColumnDefinition, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, queryDescribeColumns, schema, table)
	if err != nil {
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryColumns, Err: err}
	}
	defer rows.Close()

	var columns []sqlast.ColumnDefinition
	for rows.Next() {
		var name, dataType, isNullable string
		var defaultExpr sql.NullString
		if err := rows.Scan(&name, &dataType, &isNullable, &defaultExpr); err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryColumns, Err: err}
		}

		sqlType, err := reparseType(dataType)
		if err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryColumns, Err: err}
		}

		column := sqlast.ColumnDefinition{Name: name, Type: sqlType}
		if isNullable == "NO" {
			column.Constraints = append(column.Constraints, sqlast.ColumnConstraint{Kind: sqlast.ColumnNotNull})
		}
		if defaultExpr.Valid {
			column.Constraints = append(column.Constraints, sqlast.ColumnConstraint{
				Kind:    sqlast.ColumnDefault,
				Default: sqlast.AnyValue{Tag: sqlast.AnyString, Str: defaultExpr.String},
			})
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

const queryTypeExists = `SELECT 1 FROM pg_catalog.pg_type WHERE typcategory <> 'A' AND typname = $1`

func (p *Postgres) TypeExists(ctx context.Context, name string) (bool, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return false, err
	}
	return rowExists(ctx, conn, queryTypeExists, name)
}

const queryListTypes = `SELECT t.typname, t.oid
                        FROM pg_catalog.pg_type t
                        JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
                        WHERE t.typcategory = 'E' AND substr(t.typname, 1, 1) <> '_'
                        ORDER BY t.typname`

const queryEnumValues = `SELECT enumlabel FROM pg_catalog.pg_enum WHERE enumtypid = $1 ORDER BY enumsortorder`

// ListTypes reconstructs every enum type, preserving declaration order via
// enumsortorder exactly as the original's Q_ENUMS does.
func (p *Postgres) ListTypes(ctx context.Context) ([]sqlast.TypeDefinition, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, queryListTypes)
	if err != nil {
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryTypes, Err: err}
	}

	type enumRef struct {
		name string
		oid  int64
	}
	var enums []enumRef
	for rows.Next() {
		var ref enumRef
		if err := rows.Scan(&ref.name, &ref.oid); err != nil {
			rows.Close()
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryTypes, Err: err}
		}
		enums = append(enums, ref)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryTypes, Err: err}
	}
	rows.Close()

	types := make([]sqlast.TypeDefinition, 0, len(enums))
	for _, ref := range enums {
		valueRows, err := conn.QueryContext(ctx, queryEnumValues, ref.oid)
		if err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryTypes, Err: err}
		}
		var values []string
		for valueRows.Next() {
			var value string
			if err := valueRows.Scan(&value); err != nil {
				valueRows.Close()
				return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryTypes, Err: err}
			}
			values = append(values, value)
		}
		err = valueRows.Err()
		valueRows.Close()
		if err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryTypes, Err: err}
		}

		types = append(types, sqlast.TypeDefinition{
			Name: sqlast.ObjectName{Name: ref.name},
			Kind: sqlast.TypeDefinitionKind{Tag: sqlast.TypeEnum, EnumValues: values},
		})
	}
	return types, nil
}

const queryListFunctions = `SELECT n.nspname, p.proname, p.prosrc,
                                   pg_get_function_arguments(p.oid), l.lanname,
                                   pg_get_function_result(p.oid)
                            FROM pg_catalog.pg_proc p
                            JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
                            JOIN pg_catalog.pg_language l ON l.oid = p.prolang
                            LEFT JOIN pg_catalog.pg_depend d ON d.objid = p.oid AND d.deptype = 'e'
                            WHERE d.objid IS NULL AND n.nspname NOT IN ('pg_catalog', 'information_schema')
                            ORDER BY n.nspname, p.proname`

// ListFunctions reconstructs every non-extension-owned function, re-lexing
// and re-parsing pg_get_function_arguments/pg_get_function_result's
// textual output through the same grammar the source parser uses, per
// the decision recorded for internal/sqlparse.
func (p *Postgres) ListFunctions(ctx context.Context) ([]sqlast.FunctionDefinition, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, queryListFunctions)
	if err != nil {
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryFunctions, Err: err}
	}
	defer rows.Close()

	var functions []sqlast.FunctionDefinition
	for rows.Next() {
		var schema, name, body, rawArgs, langName, rawResult string
		if err := rows.Scan(&schema, &name, &body, &rawArgs, &langName, &rawResult); err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryFunctions, Err: err}
		}

		args, err := reparseArgumentList(rawArgs)
		if err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryFunctions, Err: err}
		}
		returnType, err := reparseReturnType(rawResult)
		if err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryFunctions, Err: err}
		}

		functions = append(functions, sqlast.FunctionDefinition{
			Name:       sqlast.ObjectName{Schema: schema, Name: name},
			Arguments:  args,
			ReturnType: returnType,
			Body:       body,
			Language:   languageFromName(langName),
		})
	}
	return functions, rows.Err()
}

const queryListIndexes = `SELECT i.relname, t.relname, ix.indisunique, am.amname, n.nspname
                          FROM pg_catalog.pg_index ix
                          JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
                          JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
                          JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
                          JOIN pg_catalog.pg_am am ON am.oid = i.relam
                          WHERE NOT ix.indisprimary
                          ORDER BY i.relname`

const queryIndexColumns = `SELECT a.attname
                           FROM pg_catalog.pg_index ix
                           JOIN pg_catalog.pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = ANY(ix.indkey)
                           JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
                           WHERE i.relname = $1
                           ORDER BY array_position(ix.indkey, a.attnum)`

// ListIndexes reconstructs every non-primary-key index (primary keys
// surface through ListTables' constraint diff instead).
func (p *Postgres) ListIndexes(ctx context.Context) ([]sqlast.IndexDefinition, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, queryListIndexes)
	if err != nil {
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryIndexes, Err: err}
	}

	type indexRow struct {
		name, table, method, schema string
		unique                      bool
	}
	var refs []indexRow
	for rows.Next() {
		var r indexRow
		if err := rows.Scan(&r.name, &r.table, &r.unique, &r.method, &r.schema); err != nil {
			rows.Close()
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryIndexes, Err: err}
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryIndexes, Err: err}
	}
	rows.Close()

	indexes := make([]sqlast.IndexDefinition, 0, len(refs))
	for _, r := range refs {
		colRows, err := conn.QueryContext(ctx, queryIndexColumns, r.name)
		if err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryIndexes, Err: err}
		}
		var columns []sqlast.IndexColumn
		for colRows.Next() {
			var col string
			if err := colRows.Scan(&col); err != nil {
				colRows.Close()
				return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryIndexes, Err: err}
			}
			columns = append(columns, sqlast.IndexColumn{Name: col})
		}
		err = colRows.Err()
		colRows.Close()
		if err != nil {
			return nil, &pserrors.PackageQueryError{Kind: pserrors.QueryIndexes, Err: err}
		}

		indexes = append(indexes, sqlast.IndexDefinition{
			Name:      r.name,
			Table:     sqlast.ObjectName{Schema: r.schema, Name: r.table},
			Columns:   columns,
			Unique:    r.unique,
			IndexType: r.method,
		})
	}
	return indexes, nil
}

func (p *Postgres) ServerVersion(ctx context.Context) (semver.Semver, error) {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return semver.Semver{}, err
	}
	rows, err := conn.QueryContext(ctx, `SHOW server_version`)
	if err != nil {
		return semver.Semver{}, &pserrors.DatabaseError{Message: err.Error()}
	}
	defer rows.Close()
	if !rows.Next() {
		return semver.Semver{}, &pserrors.DatabaseError{Message: "server_version returned no rows"}
	}
	var raw string
	if err := rows.Scan(&raw); err != nil {
		return semver.Semver{}, &pserrors.DatabaseError{Message: err.Error()}
	}
	return semver.Parse(raw)
}

// Execute runs a statement against the target database.
func (p *Postgres) Execute(ctx context.Context, sql string) error {
	conn, err := p.connectTarget(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, sql); err != nil {
		return &pserrors.DatabaseExecuteError{Query: sql, Err: err}
	}
	return nil
}

// RunHostStatement runs a statement against the server's default
// database, outside any particular target database's context — the only
// place CREATE DATABASE/DROP DATABASE are legal.
func (p *Postgres) RunHostStatement(ctx context.Context, sql string) error {
	if _, err := p.host.ExecContext(ctx, sql); err != nil {
		return &pserrors.DatabaseExecuteError{Query: sql, Err: err}
	}
	return nil
}

func rowExists(ctx context.Context, conn db.DB, query string, args ...interface{}) (bool, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return false, &pserrors.DatabaseError{Message: err.Error()}
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

func reparseType(raw string) (sqlast.SqlType, error) {
	tokens, err := sqltoken.Tokenize(raw)
	if err != nil {
		return sqlast.SqlType{}, err
	}
	return sqlparse.ParseSqlType("catalog", tokens)
}

func reparseArgumentList(raw string) ([]sqlast.FunctionArgument, error) {
	tokens, err := sqltoken.Tokenize(raw)
	if err != nil {
		return nil, err
	}
	return sqlparse.ParseFunctionArgumentList("catalog", tokens)
}

func reparseReturnType(raw string) (sqlast.FunctionReturnType, error) {
	tokens, err := sqltoken.Tokenize(raw)
	if err != nil {
		return sqlast.FunctionReturnType{}, err
	}
	return sqlparse.ParseFunctionReturnType("catalog", tokens)
}

func languageFromName(name string) sqlast.FunctionLanguage {
	switch name {
	case "internal":
		return sqlast.LangInternal
	case "c":
		return sqlast.LangC
	case "sql":
		return sqlast.LangSQL
	default:
		return sqlast.LangPostgreSQL
	}
}

// parseConstraintDef parses the small slice of pg_get_constraintdef's
// grammar this tool cares about: "PRIMARY KEY (a, b)" and
// "FOREIGN KEY (a) REFERENCES schema.table(b)". Anything else (CHECK,
// UNIQUE, EXCLUDE) is outside the declarative schema's vocabulary and is
// skipped.
func parseConstraintDef(name, definition string) (sqlast.TableConstraint, bool) {
	switch {
	case strings.HasPrefix(definition, "PRIMARY KEY"):
		cols := extractParenList(definition)
		sort.Strings(cols) // stable regardless of catalog ordering
		return sqlast.TableConstraint{Tag: sqlast.TagPrimary, Name: name, Columns: cols}, true
	case strings.HasPrefix(definition, "FOREIGN KEY"):
		refIdx := strings.Index(definition, "REFERENCES")
		if refIdx < 0 {
			return sqlast.TableConstraint{}, false
		}
		cols := extractParenList(definition[:refIdx])
		refPart := definition[refIdx+len("REFERENCES"):]
		refTable, refCols := splitReference(refPart)
		return sqlast.TableConstraint{
			Tag: sqlast.TagForeign, Name: name,
			Columns: cols, RefTable: refTable, RefColumns: refCols,
		}, true
	default:
		return sqlast.TableConstraint{}, false
	}
}

func extractParenList(s string) []string {
	start := strings.Index(s, "(")
	end := strings.Index(s, ")")
	if start < 0 || end < 0 || end <= start {
		return nil
	}
	return splitCommaList(s[start+1 : end])
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitReference(s string) (sqlast.ObjectName, []string) {
	s = strings.TrimSpace(s)
	paren := strings.Index(s, "(")
	if paren < 0 {
		return sqlast.ObjectName{Name: strings.TrimSpace(s)}, nil
	}
	tableName := strings.TrimSpace(s[:paren])
	end := strings.Index(s, ")")
	var cols []string
	if end > paren {
		cols = splitCommaList(s[paren+1 : end])
	}
	return parseObjectName(tableName), cols
}

func parseObjectName(s string) sqlast.ObjectName {
	dot := strings.Index(s, ".")
	if dot < 0 {
		return sqlast.ObjectName{Name: s}
	}
	return sqlast.ObjectName{Schema: s[:dot], Name: s[dot+1:]}
}
