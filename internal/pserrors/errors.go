// SPDX-License-Identifier: Apache-2.0

// Package pserrors defines the error taxonomy used across psqlpack: one
// exported type per error kind, each carrying the context needed to
// render a precise, human-readable message.
package pserrors

import (
	"fmt"
	"strings"
)

type ProjectReadError struct {
	Path string
	Err  error
}

func (e *ProjectReadError) Error() string {
	return fmt.Sprintf("couldn't read project file: %s: %v", e.Path, e.Err)
}

func (e *ProjectReadError) Unwrap() error { return e.Err }

type ProjectParseError struct {
	Path string
	Err  error
}

func (e *ProjectParseError) Error() string {
	return fmt.Sprintf("couldn't parse project file: %s: %v", e.Path, e.Err)
}

func (e *ProjectParseError) Unwrap() error { return e.Err }

type InvalidScriptPathError struct {
	Path string
}

func (e *InvalidScriptPathError) Error() string {
	return fmt.Sprintf("invalid script path in project file: %s", e.Path)
}

type PublishProfileReadError struct {
	Path string
	Err  error
}

func (e *PublishProfileReadError) Error() string {
	return fmt.Sprintf("couldn't read publish profile file: %s: %v", e.Path, e.Err)
}

func (e *PublishProfileReadError) Unwrap() error { return e.Err }

type PublishProfileParseError struct {
	Path string
	Err  error
}

func (e *PublishProfileParseError) Error() string {
	return fmt.Sprintf("couldn't parse publish profile file: %s: %v", e.Path, e.Err)
}

func (e *PublishProfileParseError) Unwrap() error { return e.Err }

type PackageReadError struct {
	Path string
	Err  error
}

func (e *PackageReadError) Error() string {
	return fmt.Sprintf("couldn't read package file: %s: %v", e.Path, e.Err)
}

func (e *PackageReadError) Unwrap() error { return e.Err }

type PackageUnarchiveError struct {
	Path string
	Err  error
}

func (e *PackageUnarchiveError) Error() string {
	return fmt.Sprintf("couldn't unarchive package file: %s: %v", e.Path, e.Err)
}

func (e *PackageUnarchiveError) Unwrap() error { return e.Err }

type PackageInternalReadError struct {
	Entry string
	Err   error
}

func (e *PackageInternalReadError) Error() string {
	return fmt.Sprintf("couldn't read part of the package file: %s: %v", e.Entry, e.Err)
}

func (e *PackageInternalReadError) Unwrap() error { return e.Err }

// LexicalError pinpoints the offending span of a lexer failure. Columns are
// half-open [Start, End) and 0-based; LineNumber is 1-based.
type LexicalError struct {
	Line       string
	LineNumber int
	Start      int
	End        int
}

func (e *LexicalError) Error() string {
	end := e.End
	if end < e.Start {
		end = e.Start
	}
	return fmt.Sprintf("lexical error encountered on line %d:\n  %s\n  %s%s",
		e.LineNumber, e.Line, strings.Repeat(" ", e.Start), strings.Repeat("^", end-e.Start))
}

// SyntaxError wraps a LexicalError with the source file it occurred in.
type SyntaxError struct {
	File       string
	Line       string
	LineNumber int
	Start      int
	End        int
}

func (e *SyntaxError) Error() string {
	end := e.End
	if end < e.Start {
		end = e.Start
	}
	return fmt.Sprintf("SQL syntax error encountered in %s on line %d:\n  %s\n  %s%s",
		e.File, e.LineNumber, e.Line, strings.Repeat(" ", e.Start), strings.Repeat("^", end-e.Start))
}

// ParseErrorKind discriminates the shape of a single parser failure.
type ParseErrorKind int

const (
	InvalidToken ParseErrorKind = iota
	UnrecognizedToken
	ExtraToken
	UserError
)

// ParseErrorEntry is a single parser failure at a specific token.
type ParseErrorEntry struct {
	Kind     ParseErrorKind
	Found    string
	Expected []string
	Message  string
}

func (e ParseErrorEntry) String() string {
	switch e.Kind {
	case InvalidToken:
		return "invalid token"
	case UnrecognizedToken:
		if e.Found == "" {
			return fmt.Sprintf("unexpected end of file\n   expected one of:\n   %s", strings.Join(e.Expected, ", "))
		}
		return fmt.Sprintf("unexpected %s\n   expected one of:\n   %s", e.Found, strings.Join(e.Expected, ", "))
	case ExtraToken:
		return fmt.Sprintf("extra token detected: %s", e.Found)
	case UserError:
		return e.Message
	default:
		return "unknown parse error"
	}
}

// ParseError aggregates every syntax error found in a single file.
type ParseError struct {
	File   string
	Errors []ParseErrorEntry
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parser errors in %s:\n", e.File)
	for i, entry := range e.Errors {
		fmt.Fprintf(&b, "%d: %s\n", i, entry)
	}
	return b.String()
}

// InlineParseError is a single parse failure not associated with a file
// (e.g. parsing a function body's re-lexed argument list from the catalog).
type InlineParseError struct {
	Entry ParseErrorEntry
}

func (e *InlineParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Entry)
}

// ValidationErrorKind names a single semantic-invariant violation.
type ValidationErrorKind int

const (
	CircularReference ValidationErrorKind = iota
	UnresolvedDependencies
	DuplicatePrimaryKey
	UnknownColumnReference
	MismatchedForeignKeyColumnCount
	DuplicateScriptOrder
	DuplicateEnumValue
	EmptyEnum
)

func (k ValidationErrorKind) String() string {
	switch k {
	case CircularReference:
		return "circular reference detected in dependency graph"
	case UnresolvedDependencies:
		return "unresolved dependencies in dependency graph"
	case DuplicatePrimaryKey:
		return "table declares more than one primary key"
	case UnknownColumnReference:
		return "constraint references an unknown column"
	case MismatchedForeignKeyColumnCount:
		return "foreign key column count does not match referenced table"
	case DuplicateScriptOrder:
		return "duplicate script order within the same script kind"
	case DuplicateEnumValue:
		return "duplicate value in enum type"
	case EmptyEnum:
		return "enum type declares no values"
	default:
		return "unknown validation error"
	}
}

// ValidationFinding is one occurrence of a ValidationErrorKind against a
// specific named object.
type ValidationFinding struct {
	Kind   ValidationErrorKind
	Object string
	Detail string
}

func (f ValidationFinding) String() string {
	if f.Detail == "" {
		return fmt.Sprintf("%s (%s)", f.Kind, f.Object)
	}
	return fmt.Sprintf("%s (%s): %s", f.Kind, f.Object, f.Detail)
}

// ValidationError aggregates every semantic invariant violation found
// while validating a Package.
type ValidationError struct {
	Findings []ValidationFinding
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("error validating package: ")
	for _, f := range e.Findings {
		fmt.Fprintf(&b, "\n  - %s", f)
	}
	return b.String()
}

type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("error generating package: %s", e.Message)
}

// ConnectionErrorKind discriminates connection-string parsing failures.
type ConnectionErrorKind int

const (
	MalformedConnectionString ConnectionErrorKind = iota
	RequiredPartMissing
	TlsNotSupported
)

type ConnectionError struct {
	Kind   ConnectionErrorKind
	Detail string
}

func (e *ConnectionError) Error() string {
	switch e.Kind {
	case MalformedConnectionString:
		return fmt.Sprintf("malformed connection string: %s", e.Detail)
	case RequiredPartMissing:
		return fmt.Sprintf("required connection string part missing: %s", e.Detail)
	case TlsNotSupported:
		return "tlsmode=true is not supported"
	default:
		return "connection error"
	}
}

type DatabaseError struct {
	Message string
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error: %s", e.Message)
}

type DatabaseExecuteError struct {
	Query string
	Err   error
}

func (e *DatabaseExecuteError) Error() string {
	return fmt.Sprintf("database error executing: %s: %v", e.Query, e.Err)
}

func (e *DatabaseExecuteError) Unwrap() error { return e.Err }

type DatabaseConnectionFinishError struct {
	Err error
}

func (e *DatabaseConnectionFinishError) Error() string {
	return fmt.Sprintf("database connection couldn't finish: %v", e.Err)
}

func (e *DatabaseConnectionFinishError) Unwrap() error { return e.Err }

// PackageQueryErrorKind names which catalog introspection query failed.
type PackageQueryErrorKind int

const (
	QueryExtensions PackageQueryErrorKind = iota
	QuerySchemas
	QueryTypes
	QueryFunctions
	QueryTables
	QueryColumns
	QueryConstraints
	QueryIndexes
)

func (k PackageQueryErrorKind) String() string {
	switch k {
	case QueryExtensions:
		return "couldn't query extensions"
	case QuerySchemas:
		return "couldn't query schemas"
	case QueryTypes:
		return "couldn't query types"
	case QueryFunctions:
		return "couldn't query functions"
	case QueryTables:
		return "couldn't query tables"
	case QueryColumns:
		return "couldn't query columns"
	case QueryConstraints:
		return "couldn't query table constraints"
	case QueryIndexes:
		return "couldn't query indexes"
	default:
		return "couldn't query catalog"
	}
}

type PackageQueryError struct {
	Kind PackageQueryErrorKind
	Err  error
}

func (e *PackageQueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PackageQueryError) Unwrap() error { return e.Err }

type PublishInvalidOperationError struct {
	Message string
}

func (e *PublishInvalidOperationError) Error() string {
	return fmt.Sprintf("couldn't publish database due to an invalid operation: %s", e.Message)
}

type PublishUnsafeOperationError struct {
	Message string
}

func (e *PublishUnsafeOperationError) Error() string {
	return fmt.Sprintf("couldn't publish database due to an unsafe operation: %s", e.Message)
}

// MultipleErrors aggregates independent failures collected from several
// files or validation passes so a user sees every problem in one run.
type MultipleErrors struct {
	Errors []error
}

func (e *MultipleErrors) Error() string {
	var b strings.Builder
	b.WriteString("multiple errors:\n")
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "--- Error %d ---\n%v\n", i, err)
	}
	return b.String()
}

// Unwrap supports errors.Is/errors.As traversal of the aggregate via the
// stdlib multi-error convention (errors.Join-compatible).
func (e *MultipleErrors) Unwrap() []error { return e.Errors }
