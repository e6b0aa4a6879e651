// SPDX-License-Identifier: Apache-2.0

// Package sqlast is the typed abstract syntax tree produced by the parser:
// the statements, identifiers, and SQL type lattice described in the data
// model.
package sqlast

import (
	"fmt"
	"strings"
)

// ObjectName is an (optional schema, name) pair. Two ObjectNames are equal
// iff both parts match case-sensitively; an unqualified name acquires its
// schema from the project's default schema during normalization.
type ObjectName struct {
	Schema string `json:"schema,omitempty"` // empty means unqualified
	Name   string `json:"name"`
}

func (o ObjectName) String() string {
	if o.Schema == "" {
		return o.Name
	}
	return o.Schema + "." + o.Name
}

func (o ObjectName) Qualified() bool { return o.Schema != "" }

// SimpleSqlType is the closed set of primitive PostgreSQL scalar types.
type SimpleSqlType int

const (
	FixedLengthString SimpleSqlType = iota // char(n)
	VariableLengthString                   // varchar(n)
	UnsizedVariableLengthString             // varchar
	Text

	FixedLengthBitString    // bit(n)
	VariableLengthBitString // varbit(n)

	SmallInteger
	Integer
	BigInteger

	SmallSerial
	Serial
	BigSerial

	Numeric // numeric(p,s)
	Double
	Single // real
	Money

	Boolean

	Date
	DateTime             // timestamp without time zone
	DateTimeWithTimeZone // timestamp with time zone
	Time
	TimeWithTimeZone

	Uuid
)

// Simple is a fully-specified simple scalar type: the Kind plus whichever
// of Size/Precision/Scale it requires.
type Simple struct {
	Kind      SimpleSqlType `json:"kind"`
	Size      uint32        `json:"size,omitempty"`      // char/varchar/bit/varbit length
	Precision uint32        `json:"precision,omitempty"` // numeric precision
	Scale     uint32        `json:"scale,omitempty"`     // numeric scale
}

func (s Simple) String() string {
	switch s.Kind {
	case FixedLengthString:
		return fmt.Sprintf("char(%d)", s.Size)
	case VariableLengthString:
		return fmt.Sprintf("varchar(%d)", s.Size)
	case UnsizedVariableLengthString:
		return "varchar"
	case Text:
		return "text"
	case FixedLengthBitString:
		return fmt.Sprintf("bit(%d)", s.Size)
	case VariableLengthBitString:
		return fmt.Sprintf("varbit(%d)", s.Size)
	case SmallInteger:
		return "smallint"
	case Integer:
		return "int"
	case BigInteger:
		return "bigint"
	case SmallSerial:
		return "smallserial"
	case Serial:
		return "serial"
	case BigSerial:
		return "bigserial"
	case Numeric:
		return fmt.Sprintf("numeric(%d,%d)", s.Precision, s.Scale)
	case Double:
		return "double precision"
	case Single:
		return "real"
	case Money:
		return "money"
	case Boolean:
		return "bool"
	case Date:
		return "date"
	case DateTime:
		return "timestamp without time zone"
	case DateTimeWithTimeZone:
		return "timestamp with time zone"
	case Time:
		return "time"
	case TimeWithTimeZone:
		return "time with time zone"
	case Uuid:
		return "uuid"
	default:
		return "unknown"
	}
}

// SqlTypeTag discriminates the SqlType tagged union.
type SqlTypeTag int

const (
	TagSimple SqlTypeTag = iota
	TagArray
	TagCustom
)

// SqlType is a tagged union over {Simple(t), Array(t, dim), Custom(name,
// modifier)}. Equality is structural; compare with Equal.
type SqlType struct {
	Tag SqlTypeTag `json:"tag"`

	SimpleType Simple `json:"simpleType,omitempty"` // valid when Tag == TagSimple or TagArray
	ArrayDim   uint32 `json:"arrayDim,omitempty"`   // valid when Tag == TagArray, >= 1

	CustomName     string `json:"customName,omitempty"`     // valid when Tag == TagCustom
	CustomModifier string `json:"customModifier,omitempty"` // optional, valid when Tag == TagCustom
}

func NewSimpleType(s Simple) SqlType { return SqlType{Tag: TagSimple, SimpleType: s} }

func NewArrayType(s Simple, dim uint32) SqlType {
	return SqlType{Tag: TagArray, SimpleType: s, ArrayDim: dim}
}

func NewCustomType(name, modifier string) SqlType {
	return SqlType{Tag: TagCustom, CustomName: name, CustomModifier: modifier}
}

func (t SqlType) String() string {
	switch t.Tag {
	case TagSimple:
		return t.SimpleType.String()
	case TagArray:
		return t.SimpleType.String() + strings.Repeat("[]", int(t.ArrayDim))
	case TagCustom:
		if t.CustomModifier != "" {
			return fmt.Sprintf("%s(%s)", t.CustomName, t.CustomModifier)
		}
		return t.CustomName
	default:
		return "unknown"
	}
}

func (t SqlType) Equal(o SqlType) bool {
	if t.Tag != o.Tag {
		return false
	}
	switch t.Tag {
	case TagSimple:
		return t.SimpleType == o.SimpleType
	case TagArray:
		return t.SimpleType == o.SimpleType && t.ArrayDim == o.ArrayDim
	case TagCustom:
		return t.CustomName == o.CustomName && t.CustomModifier == o.CustomModifier
	default:
		return false
	}
}

// AnyValue is a literal value usable in a DEFAULT clause.
type AnyValueTag int

const (
	AnyBoolean AnyValueTag = iota
	AnyInteger
	AnyString
)

type AnyValue struct {
	Tag  AnyValueTag `json:"tag"`
	Bool bool        `json:"bool,omitempty"`
	Int  int32       `json:"int,omitempty"`
	Str  string      `json:"str,omitempty"`
}

func (v AnyValue) String() string {
	switch v.Tag {
	case AnyBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case AnyInteger:
		return fmt.Sprintf("%d", v.Int)
	case AnyString:
		return fmt.Sprintf("'%s'", v.Str)
	default:
		return ""
	}
}

// ColumnConstraintKind enumerates the column-level constraint forms.
type ColumnConstraintKind int

const (
	ColumnDefault ColumnConstraintKind = iota
	ColumnNotNull
	ColumnNull
	ColumnUnique
	ColumnPrimaryKey
)

type ColumnConstraint struct {
	Kind    ColumnConstraintKind `json:"kind"`
	Default AnyValue             `json:"default,omitempty"` // valid when Kind == ColumnDefault
}

// ColumnDefinition is a single column within a TableDefinition.
type ColumnDefinition struct {
	Name        string             `json:"name"`
	Type        SqlType            `json:"type"`
	Constraints []ColumnConstraint `json:"constraints,omitempty"`
}

func (c ColumnDefinition) HasConstraint(kind ColumnConstraintKind) bool {
	for _, cc := range c.Constraints {
		if cc.Kind == kind {
			return true
		}
	}
	return false
}

// IndexParameter is a storage parameter attached via WITH (...).
type IndexParameterKind int

const (
	FillFactor IndexParameterKind = iota
)

type IndexParameter struct {
	Kind  IndexParameterKind `json:"kind"`
	Value uint32             `json:"value"`
}

// ForeignConstraintMatchType is the MATCH clause of a foreign key.
type ForeignConstraintMatchType int

const (
	MatchSimple ForeignConstraintMatchType = iota
	MatchPartial
	MatchFull
)

func (m ForeignConstraintMatchType) String() string {
	switch m {
	case MatchSimple:
		return "MATCH SIMPLE"
	case MatchPartial:
		return "MATCH PARTIAL"
	case MatchFull:
		return "MATCH FULL"
	default:
		return ""
	}
}

// ForeignConstraintAction is the action of an ON DELETE/ON UPDATE clause.
type ForeignConstraintAction int

const (
	NoAction ForeignConstraintAction = iota
	Restrict
	Cascade
	SetNull
	SetDefault
)

func (a ForeignConstraintAction) String() string {
	switch a {
	case NoAction:
		return "NO ACTION"
	case Restrict:
		return "RESTRICT"
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	default:
		return ""
	}
}

// ForeignConstraintEventKind discriminates ON DELETE vs. ON UPDATE.
type ForeignConstraintEventKind int

const (
	OnDelete ForeignConstraintEventKind = iota
	OnUpdate
)

type ForeignConstraintEvent struct {
	Kind   ForeignConstraintEventKind `json:"kind"`
	Action ForeignConstraintAction    `json:"action"`
}

// TableConstraintTag discriminates the TableConstraint union.
type TableConstraintTag int

const (
	TagPrimary TableConstraintTag = iota
	TagForeign
)

// TableConstraint is either a table-level PRIMARY KEY or FOREIGN KEY.
type TableConstraint struct {
	Tag  TableConstraintTag `json:"tag"`
	Name string             `json:"name"`

	// Primary
	Columns    []string         `json:"columns,omitempty"`
	Parameters []IndexParameter `json:"parameters,omitempty"`

	// Foreign
	RefTable   ObjectName                  `json:"refTable,omitempty"`
	RefColumns []string                    `json:"refColumns,omitempty"`
	MatchType  *ForeignConstraintMatchType `json:"matchType,omitempty"`
	Events     []ForeignConstraintEvent    `json:"events,omitempty"`
}

// TableDefinition is a table and its columns/constraints, as declared by
// the project source (not yet diffed against a live database).
type TableDefinition struct {
	Name        ObjectName         `json:"name"`
	Columns     []ColumnDefinition `json:"columns,omitempty"`
	Constraints []TableConstraint  `json:"constraints,omitempty"`
}

func (t *TableDefinition) Column(name string) (*ColumnDefinition, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// SchemaDefinition declares a PostgreSQL schema.
type SchemaDefinition struct {
	Name string `json:"name"`
}

// ExtensionDefinition declares a PostgreSQL extension.
type ExtensionDefinition struct {
	Name string `json:"name"`
}

// TypeDefinitionKindTag discriminates a user-defined type's kind.
type TypeDefinitionKindTag int

const (
	TypeAlias TypeDefinitionKindTag = iota
	TypeEnum
)

type TypeDefinitionKind struct {
	Tag         TypeDefinitionKindTag `json:"tag"`
	AliasTarget SqlType               `json:"aliasTarget,omitempty"` // valid when Tag == TypeAlias
	EnumValues  []string              `json:"enumValues,omitempty"`  // valid when Tag == TypeEnum, ordered
}

type TypeDefinition struct {
	Name ObjectName         `json:"name"`
	Kind TypeDefinitionKind `json:"kind"`
}

// ScriptKind discriminates pre- and post-deployment scripts.
type ScriptKind int

const (
	PreDeployment ScriptKind = iota
	PostDeployment
)

func (k ScriptKind) String() string {
	if k == PostDeployment {
		return "post-deployment"
	}
	return "pre-deployment"
}

// ScriptDefinition is a single pre/post-deployment script file.
type ScriptDefinition struct {
	Name     string     `json:"name"`
	Kind     ScriptKind `json:"kind"`
	Order    int        `json:"order"`
	Contents string     `json:"contents"`
}

// FunctionArgumentMode is the IN/OUT/INOUT/VARIADIC modifier of a function
// argument.
type FunctionArgumentMode int

const (
	ArgIn FunctionArgumentMode = iota
	ArgOut
	ArgInOut
	ArgVariadic
)

type FunctionArgument struct {
	Name string               `json:"name"`
	Type SqlType              `json:"type"`
	Mode FunctionArgumentMode `json:"mode"`
}

// FunctionReturnTypeTag discriminates a function's return type union.
type FunctionReturnTypeTag int

const (
	ReturnsTable FunctionReturnTypeTag = iota
	ReturnsSqlType
)

type FunctionReturnType struct {
	Tag       FunctionReturnTypeTag `json:"tag"`
	TableCols []ColumnDefinition    `json:"tableCols,omitempty"` // valid when Tag == ReturnsTable
	Type      SqlType               `json:"type,omitempty"`      // valid when Tag == ReturnsSqlType
	SetOf     bool                  `json:"setOf,omitempty"`
}

type FunctionLanguage int

const (
	LangC FunctionLanguage = iota
	LangInternal
	LangPostgreSQL
	LangSQL
)

func (l FunctionLanguage) String() string {
	switch l {
	case LangC:
		return "C"
	case LangInternal:
		return "INTERNAL"
	case LangPostgreSQL:
		return "PGSQL"
	case LangSQL:
		return "SQL"
	default:
		return ""
	}
}

// FunctionDefinition is a CREATE OR REPLACE FUNCTION statement.
type FunctionDefinition struct {
	Name       ObjectName         `json:"name"`
	Arguments  []FunctionArgument `json:"arguments,omitempty"`
	ReturnType FunctionReturnType `json:"returnType"`
	Body       string             `json:"body"`
	Language   FunctionLanguage   `json:"language"`
}

// IndexColumn is a single column reference within an index definition,
// including its sort order and null placement.
type IndexSortOrder int

const (
	SortAsc IndexSortOrder = iota
	SortDesc
)

type IndexNullsPosition int

const (
	NullsDefault IndexNullsPosition = iota
	NullsFirst
	NullsLast
)

type IndexColumn struct {
	Name  string             `json:"name"`
	Order IndexSortOrder     `json:"order,omitempty"`
	Nulls IndexNullsPosition `json:"nulls,omitempty"`
}

// IndexDefinition is a CREATE INDEX statement, whether declared directly or
// promoted from a table constraint.
type IndexDefinition struct {
	Name              string           `json:"name"`
	Table             ObjectName       `json:"table"`
	Columns           []IndexColumn    `json:"columns,omitempty"`
	Unique            bool             `json:"unique,omitempty"`
	IndexType         string           `json:"indexType,omitempty"` // e.g. "btree", "gin"; empty means unspecified
	StorageParameters []IndexParameter `json:"storageParameters,omitempty"`
}

// StatementTag discriminates the Statement union produced by the parser.
type StatementTag int

const (
	StmtExtension StatementTag = iota
	StmtFunction
	StmtSchema
	StmtTable
	StmtType
	StmtIndex
)

// Statement is one top-level DDL statement as produced by the parser.
type Statement struct {
	Tag StatementTag

	Extension ExtensionDefinition
	Function  FunctionDefinition
	Schema    SchemaDefinition
	Table     TableDefinition
	Type      TypeDefinition
	Index     IndexDefinition
}
