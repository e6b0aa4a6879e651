// SPDX-License-Identifier: Apache-2.0

// Package sqlparse is a hand-written recursive-descent parser with
// one-token lookahead over the token stream produced by sqltoken. It
// accepts the restricted PostgreSQL DDL dialect described by the grammar
// in the schema specification and produces sqlast.Statement values.
package sqlparse

import (
	"fmt"
	"strings"

	"github.com/psqlpack/psqlpack/internal/pserrors"
	"github.com/psqlpack/psqlpack/internal/sqlast"
	"github.com/psqlpack/psqlpack/internal/sqltoken"
)

// Parse consumes a token stream and returns the statements it describes,
// or a *pserrors.ParseError aggregating every syntax error found. The
// first error in a file aborts that file's parse; callers building a
// Package from many files collect per-file ParseErrors into a
// pserrors.MultipleErrors.
func Parse(file string, tokens []sqltoken.Token) ([]sqlast.Statement, error) {
	p := &parser{file: file, tokens: tokens}
	stmts, err := p.parseStatements()
	if err != nil {
		return nil, &pserrors.ParseError{File: file, Errors: []pserrors.ParseErrorEntry{err.(entryError).entry}}
	}
	return stmts, nil
}

// entryError wraps a single ParseErrorEntry so it satisfies the error
// interface while letting Parse recover the structured entry.
type entryError struct {
	entry pserrors.ParseErrorEntry
}

func (e entryError) Error() string { return e.entry.String() }

type parser struct {
	file   string
	tokens []sqltoken.Token
	pos    int
}

func (p *parser) parseStatements() ([]sqlast.Statement, error) {
	var stmts []sqlast.Statement
	for !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if err := p.expect(sqltoken.Semicolon); err != nil {
			return nil, err
		}
		for p.peekKind() == sqltoken.Semicolon {
			p.pos++
		}
	}
	return stmts, nil
}

func (p *parser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() (sqltoken.Token, bool) {
	if p.atEnd() {
		return sqltoken.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) peekKind() sqltoken.Kind {
	t, ok := p.peek()
	if !ok {
		return -1
	}
	return t.Kind
}

func (p *parser) advance() sqltoken.Token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) userError(format string, args ...interface{}) error {
	return entryError{pserrors.ParseErrorEntry{Kind: pserrors.UserError, Message: fmt.Sprintf(format, args...)}}
}

func (p *parser) unexpected(expected ...string) error {
	t, ok := p.peek()
	if !ok {
		return entryError{pserrors.ParseErrorEntry{Kind: pserrors.UnrecognizedToken, Expected: expected}}
	}
	return entryError{pserrors.ParseErrorEntry{Kind: pserrors.UnrecognizedToken, Found: t.String(), Expected: expected}}
}

func (p *parser) expect(kind sqltoken.Kind) error {
	if p.peekKind() != kind {
		return p.unexpected(kindName(kind))
	}
	p.pos++
	return nil
}

func (p *parser) expectIdentifier() (string, error) {
	t, ok := p.peek()
	if !ok || t.Kind != sqltoken.Identifier {
		return "", p.unexpected("identifier")
	}
	p.pos++
	return t.Text, nil
}

func kindName(k sqltoken.Kind) string {
	return k.Name()
}

// parseStatement dispatches on the leading CREATE keyword.
func (p *parser) parseStatement() (sqlast.Statement, error) {
	if err := p.expect(sqltoken.KwCREATE); err != nil {
		return sqlast.Statement{}, err
	}

	switch p.peekKind() {
	case sqltoken.KwSCHEMA:
		p.pos++
		return p.parseSchema()
	case sqltoken.KwEXTENSION:
		p.pos++
		return p.parseExtension()
	case sqltoken.KwTYPE:
		p.pos++
		return p.parseType()
	case sqltoken.KwTABLE:
		p.pos++
		return p.parseTable()
	case sqltoken.KwOR:
		p.pos++
		if err := p.expect(sqltoken.KwREPLACE); err != nil {
			return sqlast.Statement{}, err
		}
		if err := p.expect(sqltoken.KwFUNCTION); err != nil {
			return sqlast.Statement{}, err
		}
		return p.parseFunction()
	case sqltoken.KwUNIQUE:
		p.pos++
		if err := p.expect(sqltoken.KwINDEX); err != nil {
			return sqlast.Statement{}, err
		}
		return p.parseIndex(true)
	case sqltoken.KwINDEX:
		p.pos++
		return p.parseIndex(false)
	default:
		return sqlast.Statement{}, p.unexpected("SCHEMA", "EXTENSION", "TYPE", "TABLE", "OR REPLACE FUNCTION", "INDEX")
	}
}

func (p *parser) parseObjectName() (sqlast.ObjectName, error) {
	first, err := p.expectIdentifier()
	if err != nil {
		return sqlast.ObjectName{}, err
	}
	if p.peekKind() == sqltoken.Period {
		p.pos++
		second, err := p.expectIdentifier()
		if err != nil {
			return sqlast.ObjectName{}, err
		}
		return sqlast.ObjectName{Schema: first, Name: second}, nil
	}
	return sqlast.ObjectName{Name: first}, nil
}

func (p *parser) parseSchema() (sqlast.Statement, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return sqlast.Statement{}, err
	}
	return sqlast.Statement{Tag: sqlast.StmtSchema, Schema: sqlast.SchemaDefinition{Name: name}}, nil
}

func (p *parser) parseExtension() (sqlast.Statement, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return sqlast.Statement{}, err
	}
	return sqlast.Statement{Tag: sqlast.StmtExtension, Extension: sqlast.ExtensionDefinition{Name: name}}, nil
}

func (p *parser) parseType() (sqlast.Statement, error) {
	name, err := p.parseObjectName()
	if err != nil {
		return sqlast.Statement{}, err
	}
	if err := p.expect(sqltoken.KwAS); err != nil {
		return sqlast.Statement{}, err
	}
	if err := p.expect(sqltoken.KwENUM); err != nil {
		return sqlast.Statement{}, err
	}
	if err := p.expect(sqltoken.LeftBracket); err != nil {
		return sqlast.Statement{}, err
	}

	var values []string
	for {
		t, ok := p.peek()
		if !ok || t.Kind != sqltoken.StringValue {
			return sqlast.Statement{}, p.unexpected("string literal")
		}
		p.pos++
		values = append(values, t.Str)
		if p.peekKind() == sqltoken.Comma {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(sqltoken.RightBracket); err != nil {
		return sqlast.Statement{}, err
	}

	return sqlast.Statement{
		Tag:  sqlast.StmtType,
		Type: sqlast.TypeDefinition{Name: name, Kind: sqlast.TypeDefinitionKind{Tag: sqlast.TypeEnum, EnumValues: values}},
	}, nil
}

func (p *parser) parseTable() (sqlast.Statement, error) {
	name, err := p.parseObjectName()
	if err != nil {
		return sqlast.Statement{}, err
	}
	if err := p.expect(sqltoken.LeftBracket); err != nil {
		return sqlast.Statement{}, err
	}

	var columns []sqlast.ColumnDefinition
	var constraints []sqlast.TableConstraint

	for {
		if p.peekKind() == sqltoken.KwCONSTRAINT {
			p.pos++
			tc, err := p.parseTableConstraint()
			if err != nil {
				return sqlast.Statement{}, err
			}
			constraints = append(constraints, tc)
		} else {
			col, err := p.parseColumnDef()
			if err != nil {
				return sqlast.Statement{}, err
			}
			columns = append(columns, col)
		}

		if p.peekKind() == sqltoken.Comma {
			p.pos++
			continue
		}
		break
	}

	if err := p.expect(sqltoken.RightBracket); err != nil {
		return sqlast.Statement{}, err
	}

	return sqlast.Statement{
		Tag:   sqlast.StmtTable,
		Table: sqlast.TableDefinition{Name: name, Columns: columns, Constraints: constraints},
	}, nil
}

func (p *parser) parseColumnDef() (sqlast.ColumnDefinition, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return sqlast.ColumnDefinition{}, err
	}
	sqlType, err := p.parseSqlType()
	if err != nil {
		return sqlast.ColumnDefinition{}, err
	}

	var constraints []sqlast.ColumnConstraint
	for {
		cc, matched, err := p.tryParseColumnConstraint()
		if err != nil {
			return sqlast.ColumnDefinition{}, err
		}
		if !matched {
			break
		}
		constraints = append(constraints, cc)
	}

	return sqlast.ColumnDefinition{Name: name, Type: sqlType, Constraints: constraints}, nil
}

func (p *parser) tryParseColumnConstraint() (sqlast.ColumnConstraint, bool, error) {
	switch p.peekKind() {
	case sqltoken.KwNOT:
		p.pos++
		if err := p.expect(sqltoken.KwNULL); err != nil {
			return sqlast.ColumnConstraint{}, false, err
		}
		return sqlast.ColumnConstraint{Kind: sqlast.ColumnNotNull}, true, nil
	case sqltoken.KwNULL:
		p.pos++
		return sqlast.ColumnConstraint{Kind: sqlast.ColumnNull}, true, nil
	case sqltoken.KwUNIQUE:
		p.pos++
		return sqlast.ColumnConstraint{Kind: sqlast.ColumnUnique}, true, nil
	case sqltoken.KwPRIMARY:
		p.pos++
		if err := p.expect(sqltoken.KwKEY); err != nil {
			return sqlast.ColumnConstraint{}, false, err
		}
		return sqlast.ColumnConstraint{Kind: sqlast.ColumnPrimaryKey}, true, nil
	case sqltoken.KwDEFAULT:
		p.pos++
		v, err := p.parseAnyValue()
		if err != nil {
			return sqlast.ColumnConstraint{}, false, err
		}
		return sqlast.ColumnConstraint{Kind: sqlast.ColumnDefault, Default: v}, true, nil
	default:
		return sqlast.ColumnConstraint{}, false, nil
	}
}

func (p *parser) parseAnyValue() (sqlast.AnyValue, error) {
	t, ok := p.peek()
	if !ok {
		return sqlast.AnyValue{}, p.unexpected("value")
	}
	switch t.Kind {
	case sqltoken.Boolean:
		p.pos++
		return sqlast.AnyValue{Tag: sqlast.AnyBoolean, Bool: t.Bool}, nil
	case sqltoken.Digit:
		p.pos++
		return sqlast.AnyValue{Tag: sqlast.AnyInteger, Int: t.Int}, nil
	case sqltoken.StringValue:
		p.pos++
		return sqlast.AnyValue{Tag: sqlast.AnyString, Str: t.Str}, nil
	default:
		return sqlast.AnyValue{}, p.unexpected("boolean", "integer", "string literal")
	}
}

func (p *parser) parseTableConstraint() (sqlast.TableConstraint, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return sqlast.TableConstraint{}, err
	}

	switch p.peekKind() {
	case sqltoken.KwPRIMARY:
		p.pos++
		if err := p.expect(sqltoken.KwKEY); err != nil {
			return sqlast.TableConstraint{}, err
		}
		cols, err := p.parseIdentList()
		if err != nil {
			return sqlast.TableConstraint{}, err
		}
		var params []sqlast.IndexParameter
		if p.peekKind() == sqltoken.KwWITH {
			p.pos++
			params, err = p.parseIndexParameters()
			if err != nil {
				return sqlast.TableConstraint{}, err
			}
		}
		return sqlast.TableConstraint{Tag: sqlast.TagPrimary, Name: name, Columns: cols, Parameters: params}, nil

	case sqltoken.KwFOREIGN:
		p.pos++
		if err := p.expect(sqltoken.KwKEY); err != nil {
			return sqlast.TableConstraint{}, err
		}
		cols, err := p.parseIdentList()
		if err != nil {
			return sqlast.TableConstraint{}, err
		}
		if err := p.expect(sqltoken.KwREFERENCES); err != nil {
			return sqlast.TableConstraint{}, err
		}
		refTable, err := p.parseObjectName()
		if err != nil {
			return sqlast.TableConstraint{}, err
		}
		refCols, err := p.parseIdentList()
		if err != nil {
			return sqlast.TableConstraint{}, err
		}

		var matchType *sqlast.ForeignConstraintMatchType
		if p.peekKind() == sqltoken.KwMATCH {
			p.pos++
			mt, err := p.parseMatchType()
			if err != nil {
				return sqlast.TableConstraint{}, err
			}
			matchType = &mt
		}

		var events []sqlast.ForeignConstraintEvent
		for p.peekKind() == sqltoken.KwON {
			p.pos++
			ev, err := p.parseFkEvent()
			if err != nil {
				return sqlast.TableConstraint{}, err
			}
			events = append(events, ev)
		}

		return sqlast.TableConstraint{
			Tag: sqlast.TagForeign, Name: name, Columns: cols,
			RefTable: refTable, RefColumns: refCols, MatchType: matchType, Events: events,
		}, nil

	default:
		return sqlast.TableConstraint{}, p.unexpected("PRIMARY KEY", "FOREIGN KEY")
	}
}

func (p *parser) parseMatchType() (sqlast.ForeignConstraintMatchType, error) {
	switch p.peekKind() {
	case sqltoken.KwSIMPLE:
		p.pos++
		return sqlast.MatchSimple, nil
	case sqltoken.KwPARTIAL:
		p.pos++
		return sqlast.MatchPartial, nil
	case sqltoken.KwFULL:
		p.pos++
		return sqlast.MatchFull, nil
	default:
		return 0, p.unexpected("SIMPLE", "PARTIAL", "FULL")
	}
}

func (p *parser) parseFkEvent() (sqlast.ForeignConstraintEvent, error) {
	var kind sqlast.ForeignConstraintEventKind
	switch p.peekKind() {
	case sqltoken.KwDELETE:
		p.pos++
		kind = sqlast.OnDelete
	case sqltoken.KwUPDATE:
		p.pos++
		kind = sqlast.OnUpdate
	default:
		return sqlast.ForeignConstraintEvent{}, p.unexpected("DELETE", "UPDATE")
	}

	action, err := p.parseFkAction()
	if err != nil {
		return sqlast.ForeignConstraintEvent{}, err
	}
	return sqlast.ForeignConstraintEvent{Kind: kind, Action: action}, nil
}

func (p *parser) parseFkAction() (sqlast.ForeignConstraintAction, error) {
	switch p.peekKind() {
	case sqltoken.KwNO:
		p.pos++
		if err := p.expect(sqltoken.KwACTION); err != nil {
			return 0, err
		}
		return sqlast.NoAction, nil
	case sqltoken.KwRESTRICT:
		p.pos++
		return sqlast.Restrict, nil
	case sqltoken.KwCASCADE:
		p.pos++
		return sqlast.Cascade, nil
	case sqltoken.KwSET:
		p.pos++
		switch p.peekKind() {
		case sqltoken.KwNULL:
			p.pos++
			return sqlast.SetNull, nil
		case sqltoken.KwDEFAULT:
			p.pos++
			return sqlast.SetDefault, nil
		default:
			return 0, p.unexpected("NULL", "DEFAULT")
		}
	default:
		return 0, p.unexpected("NO ACTION", "RESTRICT", "CASCADE", "SET NULL", "SET DEFAULT")
	}
}

func (p *parser) parseIdentList() ([]string, error) {
	if err := p.expect(sqltoken.LeftBracket); err != nil {
		return nil, err
	}
	var idents []string
	for {
		id, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		idents = append(idents, id)
		if p.peekKind() == sqltoken.Comma {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(sqltoken.RightBracket); err != nil {
		return nil, err
	}
	return idents, nil
}

func (p *parser) parseIndexParameters() ([]sqlast.IndexParameter, error) {
	if err := p.expect(sqltoken.LeftBracket); err != nil {
		return nil, err
	}
	var params []sqlast.IndexParameter
	for {
		if p.peekKind() != sqltoken.KwFILLFACTOR {
			return nil, p.unexpected("FILLFACTOR")
		}
		p.pos++
		if err := p.expect(sqltoken.Equals); err != nil {
			return nil, err
		}
		t, ok := p.peek()
		if !ok || t.Kind != sqltoken.Digit {
			return nil, p.unexpected("integer")
		}
		p.pos++
		params = append(params, sqlast.IndexParameter{Kind: sqlast.FillFactor, Value: uint32(t.Int)})
		if p.peekKind() == sqltoken.Comma {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(sqltoken.RightBracket); err != nil {
		return nil, err
	}
	return params, nil
}

// parseSqlType resolves keyword ambiguity (CHARACTER VARYING vs VARCHAR,
// DOUBLE PRECISION, TIMESTAMP WITH/WITHOUT TIME ZONE) into the canonical
// SqlType, then consumes trailing `[]` array suffixes.
// ParseSqlType re-parses a single type fragment as reported by
// format_type(), e.g. "character varying(50)" or "timestamp without time
// zone[]".
func ParseSqlType(file string, tokens []sqltoken.Token) (sqlast.SqlType, error) {
	p := &parser{file: file, tokens: tokens}
	t, err := p.parseSqlType()
	if err != nil {
		return sqlast.SqlType{}, wrapEntryError(file, err)
	}
	if !p.atEnd() {
		return sqlast.SqlType{}, wrapEntryError(file, p.unexpected(";"))
	}
	return t, nil
}

func (p *parser) parseSqlType() (sqlast.SqlType, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return sqlast.SqlType{}, err
	}

	if base.Tag != sqlast.TagSimple {
		// Custom/array-of-custom types are not stacked further here; arrays
		// of unrecognized types fall through to Custom with a "[]" modifier.
		dim := uint32(0)
		for p.peekKind() == sqltoken.LeftSquare {
			p.pos++
			if err := p.expect(sqltoken.RightSquare); err != nil {
				return sqlast.SqlType{}, err
			}
			dim++
		}
		if dim == 0 {
			return base, nil
		}
		return sqlast.NewCustomType(base.CustomName, base.CustomModifier+strings.Repeat("[]", int(dim))), nil
	}

	dim := uint32(0)
	for p.peekKind() == sqltoken.LeftSquare {
		p.pos++
		if err := p.expect(sqltoken.RightSquare); err != nil {
			return sqlast.SqlType{}, err
		}
		dim++
	}
	if dim == 0 {
		return base, nil
	}
	return sqlast.NewArrayType(base.SimpleType, dim), nil
}

func (p *parser) parseBaseType() (sqlast.SqlType, error) {
	t, ok := p.peek()
	if !ok {
		return sqlast.SqlType{}, p.unexpected("type name")
	}

	switch t.Kind {
	case sqltoken.KwCHAR:
		p.pos++
		size, err := p.parseOptionalSize(1)
		if err != nil {
			return sqlast.SqlType{}, err
		}
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.FixedLengthString, Size: size}), nil

	case sqltoken.KwCHARACTER:
		p.pos++
		if p.peekKind() == sqltoken.KwVARYING {
			p.pos++
			size, hasSize, err := p.parseOptionalSizeMaybe()
			if err != nil {
				return sqlast.SqlType{}, err
			}
			if hasSize {
				return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.VariableLengthString, Size: size}), nil
			}
			return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.UnsizedVariableLengthString}), nil
		}
		size, err := p.parseOptionalSize(1)
		if err != nil {
			return sqlast.SqlType{}, err
		}
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.FixedLengthString, Size: size}), nil

	case sqltoken.KwVARCHAR:
		p.pos++
		size, hasSize, err := p.parseOptionalSizeMaybe()
		if err != nil {
			return sqlast.SqlType{}, err
		}
		if hasSize {
			return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.VariableLengthString, Size: size}), nil
		}
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.UnsizedVariableLengthString}), nil

	case sqltoken.KwTEXT:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Text}), nil

	case sqltoken.KwBIT:
		p.pos++
		if p.peekKind() == sqltoken.KwVARYING {
			p.pos++
			size, err := p.parseOptionalSize(1)
			if err != nil {
				return sqlast.SqlType{}, err
			}
			return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.VariableLengthBitString, Size: size}), nil
		}
		size, err := p.parseOptionalSize(1)
		if err != nil {
			return sqlast.SqlType{}, err
		}
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.FixedLengthBitString, Size: size}), nil

	case sqltoken.KwVARBIT:
		p.pos++
		size, err := p.parseOptionalSize(1)
		if err != nil {
			return sqlast.SqlType{}, err
		}
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.VariableLengthBitString, Size: size}), nil

	case sqltoken.KwSMALLINT, sqltoken.KwINT2:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.SmallInteger}), nil
	case sqltoken.KwINT, sqltoken.KwINTEGER, sqltoken.KwINT4:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Integer}), nil
	case sqltoken.KwBIGINT, sqltoken.KwINT8:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.BigInteger}), nil

	case sqltoken.KwSMALLSERIAL, sqltoken.KwSERIAL2:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.SmallSerial}), nil
	case sqltoken.KwSERIAL, sqltoken.KwSERIAL4:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Serial}), nil
	case sqltoken.KwBIGSERIAL, sqltoken.KwSERIAL8:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.BigSerial}), nil

	case sqltoken.KwNUMERIC:
		p.pos++
		if p.peekKind() != sqltoken.LeftBracket {
			return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Numeric}), nil
		}
		p.pos++
		prec, err := p.expectDigit()
		if err != nil {
			return sqlast.SqlType{}, err
		}
		if err := p.expect(sqltoken.Comma); err != nil {
			return sqlast.SqlType{}, err
		}
		scale, err := p.expectDigit()
		if err != nil {
			return sqlast.SqlType{}, err
		}
		if err := p.expect(sqltoken.RightBracket); err != nil {
			return sqlast.SqlType{}, err
		}
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Numeric, Precision: prec, Scale: scale}), nil

	case sqltoken.KwDOUBLE:
		p.pos++
		if err := p.expect(sqltoken.KwPRECISION); err != nil {
			return sqlast.SqlType{}, err
		}
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Double}), nil

	case sqltoken.KwREAL:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Single}), nil

	case sqltoken.KwMONEY:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Money}), nil

	case sqltoken.KwBOOL, sqltoken.KwBOOLEAN:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Boolean}), nil

	case sqltoken.KwDATE:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Date}), nil

	case sqltoken.KwTIMESTAMP:
		p.pos++
		withTz, err := p.parseOptionalTimeZone()
		if err != nil {
			return sqlast.SqlType{}, err
		}
		if withTz {
			return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.DateTimeWithTimeZone}), nil
		}
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.DateTime}), nil

	case sqltoken.KwTIMESTAMPTZ:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.DateTimeWithTimeZone}), nil

	case sqltoken.KwTIME:
		p.pos++
		withTz, err := p.parseOptionalTimeZone()
		if err != nil {
			return sqlast.SqlType{}, err
		}
		if withTz {
			return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.TimeWithTimeZone}), nil
		}
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Time}), nil

	case sqltoken.KwTIMETZ:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.TimeWithTimeZone}), nil

	case sqltoken.KwUUID:
		p.pos++
		return sqlast.NewSimpleType(sqlast.Simple{Kind: sqlast.Uuid}), nil

	case sqltoken.Identifier:
		p.pos++
		modifier := ""
		if p.peekKind() == sqltoken.LeftBracket {
			p.pos++
			d, err := p.expectDigit()
			if err != nil {
				return sqlast.SqlType{}, err
			}
			if err := p.expect(sqltoken.RightBracket); err != nil {
				return sqlast.SqlType{}, err
			}
			modifier = fmt.Sprintf("%d", d)
		}
		return sqlast.NewCustomType(t.Text, modifier), nil

	default:
		return sqlast.SqlType{}, p.unexpected("type name")
	}
}

// parseOptionalTimeZone consumes an optional WITH/WITHOUT TIME ZONE clause,
// defaulting to "without" (false) when absent, per PostgreSQL semantics.
func (p *parser) parseOptionalTimeZone() (bool, error) {
	switch p.peekKind() {
	case sqltoken.KwWITH:
		p.pos++
		if err := p.expect(sqltoken.KwTIME); err != nil {
			return false, err
		}
		if err := p.expect(sqltoken.KwZONE); err != nil {
			return false, err
		}
		return true, nil
	case sqltoken.KwWITHOUT:
		p.pos++
		if err := p.expect(sqltoken.KwTIME); err != nil {
			return false, err
		}
		if err := p.expect(sqltoken.KwZONE); err != nil {
			return false, err
		}
		return false, nil
	default:
		return false, nil
	}
}

func (p *parser) parseOptionalSize(defaultSize uint32) (uint32, error) {
	size, has, err := p.parseOptionalSizeMaybe()
	if err != nil {
		return 0, err
	}
	if !has {
		return defaultSize, nil
	}
	return size, nil
}

func (p *parser) parseOptionalSizeMaybe() (uint32, bool, error) {
	if p.peekKind() != sqltoken.LeftBracket {
		return 0, false, nil
	}
	p.pos++
	size, err := p.expectDigit()
	if err != nil {
		return 0, false, err
	}
	if err := p.expect(sqltoken.RightBracket); err != nil {
		return 0, false, err
	}
	return size, true, nil
}

func (p *parser) expectDigit() (uint32, error) {
	t, ok := p.peek()
	if !ok || t.Kind != sqltoken.Digit {
		return 0, p.unexpected("integer")
	}
	p.pos++
	return uint32(t.Int), nil
}

func (p *parser) parseFunction() (sqlast.Statement, error) {
	name, err := p.parseObjectName()
	if err != nil {
		return sqlast.Statement{}, err
	}
	if err := p.expect(sqltoken.LeftBracket); err != nil {
		return sqlast.Statement{}, err
	}

	var args []sqlast.FunctionArgument
	if p.peekKind() != sqltoken.RightBracket {
		for {
			arg, err := p.parseFunctionArgument()
			if err != nil {
				return sqlast.Statement{}, err
			}
			args = append(args, arg)
			if p.peekKind() == sqltoken.Comma {
				p.pos++
				continue
			}
			break
		}
	}
	if err := p.expect(sqltoken.RightBracket); err != nil {
		return sqlast.Statement{}, err
	}

	if err := p.expect(sqltoken.KwRETURNS); err != nil {
		return sqlast.Statement{}, err
	}
	returnType, err := p.parseReturnType()
	if err != nil {
		return sqlast.Statement{}, err
	}

	if err := p.expect(sqltoken.KwAS); err != nil {
		return sqlast.Statement{}, err
	}
	t, ok := p.peek()
	if !ok || t.Kind != sqltoken.Literal {
		return sqlast.Statement{}, p.unexpected("dollar-quoted body")
	}
	p.pos++
	body := t.Str

	if err := p.expect(sqltoken.KwLANGUAGE); err != nil {
		return sqlast.Statement{}, err
	}
	lang, err := p.parseLanguage()
	if err != nil {
		return sqlast.Statement{}, err
	}

	return sqlast.Statement{
		Tag: sqlast.StmtFunction,
		Function: sqlast.FunctionDefinition{
			Name: name, Arguments: args, ReturnType: returnType, Body: body, Language: lang,
		},
	}, nil
}

// ParseFunctionArgumentList re-parses the comma-separated argument list
// PostgreSQL's pg_get_function_arguments() returns for a catalog function,
// e.g. "a integer, OUT b text". An empty input yields a nil, non-error
// result.
func ParseFunctionArgumentList(file string, tokens []sqltoken.Token) ([]sqlast.FunctionArgument, error) {
	p := &parser{file: file, tokens: tokens}
	if len(tokens) == 0 {
		return nil, nil
	}

	var args []sqlast.FunctionArgument
	for {
		arg, err := p.parseFunctionArgument()
		if err != nil {
			return nil, wrapEntryError(file, err)
		}
		args = append(args, arg)
		if p.peekKind() == sqltoken.Comma {
			p.pos++
			continue
		}
		break
	}
	if !p.atEnd() {
		return nil, wrapEntryError(file, p.unexpected(";"))
	}
	return args, nil
}

// ParseFunctionReturnType re-parses the type fragment
// pg_get_function_result() returns for a catalog function, e.g.
// "SETOF text" or "TABLE(id integer, name text)".
func ParseFunctionReturnType(file string, tokens []sqltoken.Token) (sqlast.FunctionReturnType, error) {
	p := &parser{file: file, tokens: tokens}
	rt, err := p.parseReturnType()
	if err != nil {
		return sqlast.FunctionReturnType{}, wrapEntryError(file, err)
	}
	if !p.atEnd() {
		return sqlast.FunctionReturnType{}, wrapEntryError(file, p.unexpected(";"))
	}
	return rt, nil
}

func wrapEntryError(file string, err error) error {
	if ee, ok := err.(entryError); ok {
		return &pserrors.ParseError{File: file, Errors: []pserrors.ParseErrorEntry{ee.entry}}
	}
	return err
}

func (p *parser) parseFunctionArgument() (sqlast.FunctionArgument, error) {
	mode := sqlast.ArgIn
	switch p.peekKind() {
	case sqltoken.KwIN:
		p.pos++
		mode = sqlast.ArgIn
	case sqltoken.KwOUT:
		p.pos++
		mode = sqlast.ArgOut
	case sqltoken.KwINOUT:
		p.pos++
		mode = sqlast.ArgInOut
	case sqltoken.KwVARIADIC:
		p.pos++
		mode = sqlast.ArgVariadic
	}

	name, err := p.expectIdentifier()
	if err != nil {
		return sqlast.FunctionArgument{}, err
	}
	sqlType, err := p.parseSqlType()
	if err != nil {
		return sqlast.FunctionArgument{}, err
	}
	return sqlast.FunctionArgument{Name: name, Type: sqlType, Mode: mode}, nil
}

func (p *parser) parseReturnType() (sqlast.FunctionReturnType, error) {
	setOf := false
	if p.peekKind() == sqltoken.KwSETOF {
		p.pos++
		setOf = true
	}

	if p.peekKind() == sqltoken.KwTABLE {
		p.pos++
		if err := p.expect(sqltoken.LeftBracket); err != nil {
			return sqlast.FunctionReturnType{}, err
		}
		var cols []sqlast.ColumnDefinition
		for {
			name, err := p.expectIdentifier()
			if err != nil {
				return sqlast.FunctionReturnType{}, err
			}
			sqlType, err := p.parseSqlType()
			if err != nil {
				return sqlast.FunctionReturnType{}, err
			}
			cols = append(cols, sqlast.ColumnDefinition{Name: name, Type: sqlType})
			if p.peekKind() == sqltoken.Comma {
				p.pos++
				continue
			}
			break
		}
		if err := p.expect(sqltoken.RightBracket); err != nil {
			return sqlast.FunctionReturnType{}, err
		}
		return sqlast.FunctionReturnType{Tag: sqlast.ReturnsTable, TableCols: cols, SetOf: setOf}, nil
	}

	sqlType, err := p.parseSqlType()
	if err != nil {
		return sqlast.FunctionReturnType{}, err
	}
	return sqlast.FunctionReturnType{Tag: sqlast.ReturnsSqlType, Type: sqlType, SetOf: setOf}, nil
}

func (p *parser) parseLanguage() (sqlast.FunctionLanguage, error) {
	t, ok := p.peek()
	if !ok || t.Kind != sqltoken.Identifier {
		return 0, p.unexpected("C", "INTERNAL", "PGSQL", "PLPGSQL", "SQL")
	}
	p.pos++
	switch strings.ToUpper(t.Text) {
	case "C":
		return sqlast.LangC, nil
	case "INTERNAL":
		return sqlast.LangInternal, nil
	case "PGSQL", "PLPGSQL":
		return sqlast.LangPostgreSQL, nil
	case "SQL":
		return sqlast.LangSQL, nil
	default:
		return 0, p.userError("unrecognized function language %q", t.Text)
	}
}

func (p *parser) parseIndex(unique bool) (sqlast.Statement, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return sqlast.Statement{}, err
	}
	if err := p.expect(sqltoken.KwON); err != nil {
		return sqlast.Statement{}, err
	}
	table, err := p.parseObjectName()
	if err != nil {
		return sqlast.Statement{}, err
	}

	indexType := ""
	if p.peekKind() == sqltoken.KwUSING {
		p.pos++
		indexType, err = p.parseIndexMethod()
		if err != nil {
			return sqlast.Statement{}, err
		}
	}

	if err := p.expect(sqltoken.LeftBracket); err != nil {
		return sqlast.Statement{}, err
	}
	var cols []sqlast.IndexColumn
	for {
		col, err := p.parseIndexColumn()
		if err != nil {
			return sqlast.Statement{}, err
		}
		cols = append(cols, col)
		if p.peekKind() == sqltoken.Comma {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(sqltoken.RightBracket); err != nil {
		return sqlast.Statement{}, err
	}

	var params []sqlast.IndexParameter
	if p.peekKind() == sqltoken.KwWITH {
		p.pos++
		params, err = p.parseIndexParameters()
		if err != nil {
			return sqlast.Statement{}, err
		}
	}

	return sqlast.Statement{
		Tag: sqlast.StmtIndex,
		Index: sqlast.IndexDefinition{
			Name: name, Table: table, Columns: cols, Unique: unique,
			IndexType: indexType, StorageParameters: params,
		},
	}, nil
}

func (p *parser) parseIndexMethod() (string, error) {
	switch p.peekKind() {
	case sqltoken.KwBTREE:
		p.pos++
		return "btree", nil
	case sqltoken.KwHASH:
		p.pos++
		return "hash", nil
	case sqltoken.KwGIN:
		p.pos++
		return "gin", nil
	case sqltoken.KwGIST:
		p.pos++
		return "gist", nil
	default:
		return "", p.unexpected("BTREE", "HASH", "GIN", "GIST")
	}
}

func (p *parser) parseIndexColumn() (sqlast.IndexColumn, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return sqlast.IndexColumn{}, err
	}

	order := sqlast.SortAsc
	switch p.peekKind() {
	case sqltoken.KwASC:
		p.pos++
	case sqltoken.KwDESC:
		p.pos++
		order = sqlast.SortDesc
	}

	nulls := sqlast.NullsDefault
	if p.peekKind() == sqltoken.KwNULLS {
		p.pos++
		switch p.peekKind() {
		case sqltoken.KwFIRST:
			p.pos++
			nulls = sqlast.NullsFirst
		case sqltoken.KwLAST:
			p.pos++
			nulls = sqlast.NullsLast
		default:
			return sqlast.IndexColumn{}, p.unexpected("FIRST", "LAST")
		}
	}

	return sqlast.IndexColumn{Name: name, Order: order, Nulls: nulls}, nil
}
