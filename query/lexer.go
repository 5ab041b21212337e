package query

import (
	"strings"
	"unicode"
)

// Lexer tokenizes query strings
type Lexer struct {
	input string
	pos   int
	ch    rune
	line  int
	col   int
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, col: 0}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.pos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = rune(l.input[l.pos])
		l.col++
	}
	l.pos++
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return rune(l.input[l.pos])
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string
func (l *Lexer) readString(quote rune) string {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case '\\':
				result.WriteRune('\\')
			case quote:
				result.WriteRune(quote)
			default:
				result.WriteRune(l.ch)
			}
		} else {
			result.WriteRune(l.ch)
		}
		l.readChar()
	}

	if l.ch == quote {
		l.readChar() // skip closing quote
	}

	return result.String()
}

// readNumber reads a number
func (l *Lexer) readNumber() string {
	var result strings.Builder

	if l.ch == '-' {
		result.WriteRune(l.ch)
		l.readChar()
	}

	for unicode.IsDigit(l.ch) || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// isIdentChar reports whether r can continue an identifier.
func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// isPathChar reports whether r can appear in a datasource path.
func isPathChar(r rune) bool {
	return isIdentChar(r) || r == '.' || r == '/' || r == '-' || r == '|' || r == ':' || r == '~' || r == '#'
}

// readIdentifier reads an identifier, keyword or datasource literal.
//
// An identifier immediately followed by ':' continues as a type:path
// datasource literal. A trailing '*' attached directly to the identifier
// is a footnote marker and stays part of the name.
func (l *Lexer) readIdentifier() (string, bool) {
	var result strings.Builder
	datasource := false

	for isIdentChar(l.ch) {
		result.WriteRune(l.ch)
		l.readChar()
	}

	if l.ch == ':' {
		datasource = true
		for isPathChar(l.ch) {
			result.WriteRune(l.ch)
			l.readChar()
		}
		return result.String(), datasource
	}

	if l.ch == '*' {
		result.WriteRune(l.ch)
		l.readChar()
	}

	return result.String(), datasource
}

// readBracketed reads a [bracketed column name], returning the inner text.
func (l *Lexer) readBracketed() (string, bool) {
	var result strings.Builder
	l.readChar() // skip [

	for l.ch != ']' && l.ch != 0 {
		result.WriteRune(l.ch)
		l.readChar()
	}

	if l.ch != ']' {
		return result.String(), false
	}
	l.readChar() // skip ]
	return result.String(), true
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	line, col := l.line, l.col
	var tok Token

	switch l.ch {
	case 0:
		tok = Token{Type: TokenEOF, Value: ""}
	case '=':
		tok = Token{Type: TokenEqual, Value: "="}
		l.readChar()
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "!="}
			l.readChar()
		} else {
			tok = Token{Type: TokenError, Value: "!"}
			l.readChar()
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenLessEqual, Value: "<="}
			l.readChar()
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "<>"}
			l.readChar()
		} else {
			tok = Token{Type: TokenLess, Value: "<"}
			l.readChar()
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenGreaterEqual, Value: ">="}
			l.readChar()
		} else {
			tok = Token{Type: TokenGreater, Value: ">"}
			l.readChar()
		}
	case '\'', '"':
		quote := l.ch
		tok = Token{Type: TokenString, Value: l.readString(quote)}
	case '*':
		tok = Token{Type: TokenStar, Value: "*"}
		l.readChar()
	case '.':
		tok = Token{Type: TokenDot, Value: "."}
		l.readChar()
	case ',':
		tok = Token{Type: TokenComma, Value: ","}
		l.readChar()
	case ';':
		tok = Token{Type: TokenSemicolon, Value: ";"}
		l.readChar()
	case '(':
		tok = Token{Type: TokenLeftParen, Value: "("}
		l.readChar()
	case ')':
		tok = Token{Type: TokenRightParen, Value: ")"}
		l.readChar()
	case '[':
		name, ok := l.readBracketed()
		if !ok {
			tok = Token{Type: TokenError, Value: "[" + name}
		} else {
			tok = Token{Type: TokenBracketName, Value: name}
		}
	case '#':
		l.readChar()
		var digits strings.Builder
		for unicode.IsDigit(l.ch) {
			digits.WriteRune(l.ch)
			l.readChar()
		}
		if digits.Len() == 0 {
			tok = Token{Type: TokenError, Value: "#"}
		} else {
			tok = Token{Type: TokenIndex, Value: digits.String()}
		}
	default:
		if unicode.IsDigit(l.ch) || l.ch == '-' {
			value := l.readNumber()
			if value == "-" {
				tok = Token{Type: TokenError, Value: "-"}
			} else {
				tok = Token{Type: TokenNumber, Value: value}
			}
		} else if unicode.IsLetter(l.ch) || l.ch == '_' {
			value, datasource := l.readIdentifier()
			if datasource {
				tok = Token{Type: TokenDatasource, Value: value}
			} else {
				tok = Token{Type: identifierType(value), Value: value}
			}
		} else {
			tok = Token{Type: TokenError, Value: string(l.ch)}
			l.readChar()
		}
	}

	tok.Line = line
	tok.Col = col
	return tok
}

var keywords = map[string]TokenType{
	"select":   TokenSelect,
	"distinct": TokenDistinct,
	"into":     TokenInto,
	"from":     TokenFrom,
	"as":       TokenAs,
	"join":     TokenJoin,
	"inner":    TokenInner,
	"left":     TokenLeft,
	"right":    TokenRight,
	"full":     TokenFull,
	"outer":    TokenOuter,
	"on":       TokenOn,
	"where":    TokenWhere,
	"and":      TokenAnd,
	"or":       TokenOr,
	"not":      TokenNot,
	"like":     TokenLike,
	"group":    TokenGroup,
	"by":       TokenBy,
	"order":    TokenOrder,
	"asc":      TokenAsc,
	"desc":     TokenDesc,
	"limit":    TokenLimit,
	"tail":     TokenTail,
	"insert":   TokenInsert,
	"values":   TokenValues,
	"update":   TokenUpdate,
	"set":      TokenSet,
	"delete":   TokenDelete,
	"true":     TokenBool,
	"false":    TokenBool,
}

// identifierType determines if an identifier is a keyword. Keywords are
// case-insensitive.
func identifierType(ident string) TokenType {
	if tokType, ok := keywords[strings.ToLower(ident)]; ok {
		return tokType
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
