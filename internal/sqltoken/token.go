// SPDX-License-Identifier: Apache-2.0

// Package sqltoken implements the token model for the restricted PostgreSQL
// DDL dialect accepted by the SQL front end.
package sqltoken

import "fmt"

// Kind discriminates a Token's payload.
type Kind int

const (
	// Keywords, recognized case-insensitively.
	KwACTION Kind = iota
	KwAS
	KwASC
	KwBIGINT
	KwBIGSERIAL
	KwBIT
	KwBOOL
	KwBOOLEAN
	KwBTREE
	KwCASCADE
	KwCHAR
	KwCHARACTER
	KwCONSTRAINT
	KwCREATE
	KwDATE
	KwDEFAULT
	KwDELETE
	KwDESC
	KwDOUBLE
	KwENUM
	KwEXTENSION
	KwFILLFACTOR
	KwFIRST
	KwFOREIGN
	KwFULL
	KwFUNCTION
	KwGIN
	KwGIST
	KwHASH
	KwIN
	KwINDEX
	KwINOUT
	KwINT
	KwINT2
	KwINT4
	KwINT8
	KwINTEGER
	KwKEY
	KwLANGUAGE
	KwLAST
	KwMATCH
	KwMONEY
	KwNO
	KwNOT
	KwNULL
	KwNULLS
	KwNUMERIC
	KwON
	KwOR
	KwOUT
	KwPARTIAL
	KwPRECISION
	KwPRIMARY
	KwREAL
	KwREFERENCES
	KwREPLACE
	KwRESTRICT
	KwRETURNS
	KwSCHEMA
	KwSERIAL
	KwSERIAL2
	KwSERIAL4
	KwSERIAL8
	KwSET
	KwSETOF
	KwSIMPLE
	KwSMALLINT
	KwSMALLSERIAL
	KwTABLE
	KwTEXT
	KwTIME
	KwTIMESTAMP
	KwTIMESTAMPTZ
	KwTIMETZ
	KwTYPE
	KwUNIQUE
	KwUPDATE
	KwUSING
	KwUUID
	KwVARBIT
	KwVARCHAR
	KwVARIADIC
	KwVARYING
	KwWITH
	KwWITHOUT
	KwZONE

	// Value-bearing tokens.
	Identifier
	Digit
	Decimal
	Boolean
	StringValue
	Literal

	// Punctuation.
	LeftBracket
	RightBracket
	LeftSquare
	RightSquare
	Colon
	Comma
	Period
	Semicolon
	Equals
)

// keywords maps the upper-cased spelling of a keyword to its Kind. Lookups
// are performed case-insensitively by uppercasing the candidate buffer.
var keywords = map[string]Kind{
	"ACTION": KwACTION, "AS": KwAS, "ASC": KwASC, "BIGINT": KwBIGINT,
	"BIGSERIAL": KwBIGSERIAL, "BIT": KwBIT, "BOOL": KwBOOL, "BOOLEAN": KwBOOLEAN,
	"BTREE": KwBTREE, "CASCADE": KwCASCADE, "CHAR": KwCHAR, "CHARACTER": KwCHARACTER,
	"CONSTRAINT": KwCONSTRAINT, "CREATE": KwCREATE, "DATE": KwDATE, "DEFAULT": KwDEFAULT,
	"DELETE": KwDELETE, "DESC": KwDESC, "DOUBLE": KwDOUBLE, "ENUM": KwENUM,
	"EXTENSION": KwEXTENSION, "FILLFACTOR": KwFILLFACTOR, "FIRST": KwFIRST,
	"FOREIGN": KwFOREIGN, "FULL": KwFULL, "FUNCTION": KwFUNCTION, "GIN": KwGIN,
	"GIST": KwGIST, "HASH": KwHASH, "IN": KwIN, "INDEX": KwINDEX, "INOUT": KwINOUT,
	"INT": KwINT, "INT2": KwINT2, "INT4": KwINT4, "INT8": KwINT8, "INTEGER": KwINTEGER,
	"KEY": KwKEY, "LANGUAGE": KwLANGUAGE, "LAST": KwLAST, "MATCH": KwMATCH,
	"MONEY": KwMONEY, "NO": KwNO, "NOT": KwNOT, "NULL": KwNULL, "NULLS": KwNULLS,
	"NUMERIC": KwNUMERIC, "ON": KwON, "OR": KwOR, "OUT": KwOUT, "PARTIAL": KwPARTIAL,
	"PRECISION": KwPRECISION, "PRIMARY": KwPRIMARY, "REAL": KwREAL,
	"REFERENCES": KwREFERENCES, "REPLACE": KwREPLACE, "RESTRICT": KwRESTRICT,
	"RETURNS": KwRETURNS, "SCHEMA": KwSCHEMA, "SERIAL": KwSERIAL,
	"SERIAL2": KwSERIAL2, "SERIAL4": KwSERIAL4, "SERIAL8": KwSERIAL8, "SET": KwSET,
	"SETOF": KwSETOF, "SIMPLE": KwSIMPLE, "SMALLINT": KwSMALLINT,
	"SMALLSERIAL": KwSMALLSERIAL, "TABLE": KwTABLE, "TEXT": KwTEXT, "TIME": KwTIME,
	"TIMESTAMP": KwTIMESTAMP, "TIMESTAMPTZ": KwTIMESTAMPTZ, "TIMETZ": KwTIMETZ,
	"TYPE": KwTYPE, "UNIQUE": KwUNIQUE, "UPDATE": KwUPDATE, "USING": KwUSING,
	"UUID": KwUUID, "VARBIT": KwVARBIT, "VARCHAR": KwVARCHAR, "VARIADIC": KwVARIADIC,
	"VARYING": KwVARYING, "WITH": KwWITH, "WITHOUT": KwWITHOUT, "ZONE": KwZONE,
}

// Token is a single lexical unit together with its value payload, where
// applicable.
type Token struct {
	Kind    Kind
	Text    string  // Identifier name, raw spelling for punctuation, upper-cased spelling for keywords
	Int     int32   // Digit
	Decimal string  // Decimal, kept as the canonical fixed-point string form
	Bool    bool    // Boolean
	Str     string  // StringValue or Literal body
}

func (t Token) String() string {
	switch t.Kind {
	case Identifier:
		return fmt.Sprintf("Identifier(%s)", t.Text)
	case Digit:
		return fmt.Sprintf("Digit(%d)", t.Int)
	case Decimal:
		return fmt.Sprintf("Decimal(%s)", t.Decimal)
	case Boolean:
		return fmt.Sprintf("Boolean(%t)", t.Bool)
	case StringValue:
		return fmt.Sprintf("StringValue(%q)", t.Str)
	case Literal:
		return fmt.Sprintf("Literal(%q)", t.Str)
	default:
		if t.Text != "" {
			return t.Text
		}
		return fmt.Sprintf("Kind(%d)", t.Kind)
	}
}

// IsKeyword reports whether s (any case) names a keyword, returning its Kind.
func IsKeyword(s string) (Kind, bool) {
	k, ok := keywords[toUpperASCII(s)]
	return k, ok
}

var punctuationNames = map[Kind]string{
	Identifier:   "identifier",
	Digit:        "integer literal",
	Decimal:      "decimal literal",
	Boolean:      "boolean literal",
	StringValue:  "string literal",
	Literal:      "dollar-quoted literal",
	LeftBracket:  "(",
	RightBracket: ")",
	LeftSquare:   "[",
	RightSquare:  "]",
	Colon:        ":",
	Comma:        ",",
	Period:       ".",
	Semicolon:    ";",
	Equals:       "=",
}

var reverseKeywords map[Kind]string

func init() {
	reverseKeywords = make(map[Kind]string, len(keywords))
	for spelling, kind := range keywords {
		reverseKeywords[kind] = spelling
	}
}

// Name returns a human-readable name for k, suitable for "expected ..."
// parser diagnostics.
func (k Kind) Name() string {
	if name, ok := punctuationNames[k]; ok {
		return name
	}
	if spelling, ok := reverseKeywords[k]; ok {
		return spelling
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
