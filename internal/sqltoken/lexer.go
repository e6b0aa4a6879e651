// SPDX-License-Identifier: Apache-2.0

package sqltoken

import (
	"strconv"
	"strings"

	"github.com/psqlpack/psqlpack/internal/pserrors"
)

type lexerState int

const (
	stateNormal lexerState = iota
	stateLineComment
	stateBlockComment
	stateString
	stateLiteralStart
	stateLiteralBody
	stateLiteralEnd
)

// Tokenize converts source text into a token stream. On the first lexical
// error it aborts and returns a *pserrors.LexicalError pinpointing the
// offending span; no partial token stream is returned on failure.
func Tokenize(text string) ([]Token, error) {
	var tokens []Token

	lines := strings.Split(text, "\n")
	state := stateNormal
	var buffer []rune
	var literalTag []rune

	for lineIdx, line := range lines {
		lineNumber := lineIdx + 1
		pos := 0
		var lastChar rune

		runes := []rune(line)
		for _, c := range runes {
			switch state {
			case stateNormal:
				switch {
				case lastChar == '-' && c == '-':
					if len(buffer) > 0 {
						buffer = buffer[:len(buffer)-1]
					}
					if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
						return nil, err
					}
					buffer = nil
					state = stateLineComment
				case lastChar == '/' && c == '*':
					if len(buffer) > 0 {
						buffer = buffer[:len(buffer)-1]
					}
					if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
						return nil, err
					}
					buffer = nil
					state = stateBlockComment
				case c == '\'':
					if len(buffer) == 0 {
						state = stateString
					} else {
						return nil, spanError(line, lineNumber, pos, pos)
					}
				case c == '$':
					if len(buffer) == 0 {
						state = stateLiteralStart
					} else {
						return nil, spanError(line, lineNumber, pos, pos)
					}
				case isSpace(c):
					if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
						return nil, err
					}
					buffer = nil
				default:
					switch c {
					case '(':
						if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
							return nil, err
						}
						buffer = nil
						tokens = append(tokens, Token{Kind: LeftBracket, Text: "("})
					case ')':
						if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
							return nil, err
						}
						buffer = nil
						tokens = append(tokens, Token{Kind: RightBracket, Text: ")"})
					case ',':
						if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
							return nil, err
						}
						buffer = nil
						tokens = append(tokens, Token{Kind: Comma, Text: ","})
					case ':':
						if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
							return nil, err
						}
						buffer = nil
						tokens = append(tokens, Token{Kind: Colon, Text: ":"})
					case ';':
						if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
							return nil, err
						}
						buffer = nil
						tokens = append(tokens, Token{Kind: Semicolon, Text: ";"})
					case '=':
						if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
							return nil, err
						}
						buffer = nil
						tokens = append(tokens, Token{Kind: Equals, Text: "="})
					case '.':
						if allDigits(buffer) {
							buffer = append(buffer, c)
						} else {
							if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
								return nil, err
							}
							buffer = nil
							tokens = append(tokens, Token{Kind: Period, Text: "."})
						}
					case '[':
						if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
							return nil, err
						}
						buffer = nil
						tokens = append(tokens, Token{Kind: LeftSquare, Text: "["})
					case ']':
						if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
							return nil, err
						}
						buffer = nil
						tokens = append(tokens, Token{Kind: RightSquare, Text: "]"})
					default:
						buffer = append(buffer, c)
					}
				}

			case stateLineComment:
				// discard until end of line

			case stateBlockComment:
				if lastChar == '*' && c == '/' {
					state = stateNormal
				}

			case stateString:
				if c == '\'' {
					tokens = append(tokens, Token{Kind: StringValue, Str: string(buffer)})
					buffer = nil
					state = stateNormal
				} else {
					buffer = append(buffer, c)
				}

			case stateLiteralStart:
				if c == '$' {
					state = stateLiteralBody
				} else {
					literalTag = append(literalTag, c)
				}

			case stateLiteralEnd:
				if c == '$' {
					if len(literalTag) == 0 {
						state = stateNormal
					} else {
						return nil, spanError(line, lineNumber, pos, pos)
					}
				} else if len(literalTag) == 0 {
					return nil, spanError(line, lineNumber, pos, pos)
				} else {
					l := literalTag[len(literalTag)-1]
					literalTag = literalTag[:len(literalTag)-1]
					if l != c {
						return nil, spanError(line, lineNumber, pos, pos)
					}
				}

			case stateLiteralBody:
				if c == '$' {
					tokens = append(tokens, Token{Kind: Literal, Str: strings.TrimSpace(string(buffer))})
					buffer = nil
					if len(literalTag) > 0 {
						reverse(literalTag)
					}
					state = stateLiteralEnd
				} else {
					buffer = append(buffer, c)
				}
			}

			pos++
			lastChar = c
		}

		switch state {
		case stateNormal:
			if err := flushBuffer(&tokens, buffer, line, lineNumber, pos); err != nil {
				return nil, err
			}
			buffer = nil
		case stateLineComment:
			state = stateNormal
		case stateBlockComment:
			// multi-line comment continues
		case stateString, stateLiteralStart, stateLiteralEnd:
			return nil, spanError(line, lineNumber, pos, pos)
		case stateLiteralBody:
			buffer = append(buffer, '\n')
		}
	}

	return tokens, nil
}

func flushBuffer(tokens *[]Token, buffer []rune, line string, lineNumber, pos int) error {
	if len(buffer) == 0 {
		return nil
	}
	tok, ok := createToken(string(buffer))
	if !ok {
		return spanError(line, lineNumber, pos-len(buffer), pos)
	}
	*tokens = append(*tokens, tok)
	return nil
}

func createToken(value string) (Token, bool) {
	switch strings.ToLower(value) {
	case "true":
		return Token{Kind: Boolean, Bool: true}, true
	case "false":
		return Token{Kind: Boolean, Bool: false}, true
	}

	if kind, ok := IsKeyword(value); ok {
		return Token{Kind: kind, Text: strings.ToUpper(value)}, true
	}

	if isIdentifier(value) {
		return Token{Kind: Identifier, Text: value}, true
	}
	if isDecimal(value) {
		return Token{Kind: Decimal, Decimal: value}, true
	}
	if isDigit(value) {
		n, err := strconv.ParseInt(value, 10, 32)
		if err == nil {
			return Token{Kind: Digit, Int: int32(n)}, true
		}
	}

	return Token{}, false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)
	if !isAlpha(r[0]) {
		return false
	}
	for _, c := range r[1:] {
		if !isAlpha(c) && !isDigitRune(c) && c != '_' {
			return false
		}
	}
	return true
}

func isDecimal(s string) bool {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && len(parts[1]) > 0 && isDigit(parts[0]) && isDigit(parts[1])
}

func isDigit(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isDigitRune(c) {
			return false
		}
	}
	return true
}

func isAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigitRune(c rune) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c rune) bool {
	switch c {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func allDigits(buffer []rune) bool {
	if len(buffer) == 0 {
		return false
	}
	for _, c := range buffer {
		if !isDigitRune(c) {
			return false
		}
	}
	return true
}

func reverse(r []rune) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

func spanError(line string, lineNumber, start, end int) error {
	if end < start {
		end = start
	}
	return &pserrors.LexicalError{
		Line:       line,
		LineNumber: lineNumber,
		Start:      start,
		End:        end,
	}
}
