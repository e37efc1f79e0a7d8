// Package lexer tokenizes preprocessed C source into a random-access token stream.
package lexer

import (
	"strconv"
	"unicode"
)

// Lexer tokenizes C source code
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // next reading position
	ch        byte // current character
	line      int
	column    int
	lineStart bool // only whitespace seen since the last newline

	files []string
	file  int
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	return NewFile("", input)
}

// NewFile creates a new Lexer whose tokens are attributed to filename
// until a line marker says otherwise.
func NewFile(filename, input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0, lineStart: true, files: []string{filename}}
	l.readChar()
	return l
}

// Files returns the file table referenced by Token.File.
func (l *Lexer) Files() []string {
	return l.files
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
		l.lineStart = true
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) peekCharN(n int) byte {
	if l.readPos+n-1 >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+n-1]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()
		l.skipComments()
		l.skipWhitespace()
		if l.ch == '#' && l.lineStart {
			l.readDirective()
			continue
		}
		break
	}
	l.lineStart = false

	tok := Token{File: l.file, Line: l.line, Column: l.column}

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
		tok.Literal = ""
	case '+':
		tok = l.either(tok, TokenPlus, map[byte]TokenType{'+': TokenIncrement, '=': TokenPlusAssign})
	case '-':
		tok = l.either(tok, TokenMinus, map[byte]TokenType{'-': TokenDecrement, '=': TokenMinusAssign, '>': TokenArrow})
	case '*':
		tok = l.either(tok, TokenStar, map[byte]TokenType{'=': TokenStarAssign})
	case '/':
		tok = l.either(tok, TokenSlash, map[byte]TokenType{'=': TokenSlashAssign})
	case '%':
		tok = l.either(tok, TokenPercent, map[byte]TokenType{'=': TokenPercentAssign})
	case '=':
		tok = l.either(tok, TokenAssign, map[byte]TokenType{'=': TokenEq})
	case '!':
		tok = l.either(tok, TokenNot, map[byte]TokenType{'=': TokenNe})
	case '<':
		if l.peekChar() == '<' && l.peekCharN(2) == '=' {
			tok.Type, tok.Literal = TokenShlAssign, "<<="
			l.readChar()
			l.readChar()
		} else {
			tok = l.either(tok, TokenLt, map[byte]TokenType{'=': TokenLe, '<': TokenShl})
		}
	case '>':
		if l.peekChar() == '>' && l.peekCharN(2) == '=' {
			tok.Type, tok.Literal = TokenShrAssign, ">>="
			l.readChar()
			l.readChar()
		} else {
			tok = l.either(tok, TokenGt, map[byte]TokenType{'=': TokenGe, '>': TokenShr})
		}
	case '&':
		tok = l.either(tok, TokenAmpersand, map[byte]TokenType{'&': TokenAnd, '=': TokenAndAssign})
	case '|':
		tok = l.either(tok, TokenPipe, map[byte]TokenType{'|': TokenOr, '=': TokenOrAssign})
	case '^':
		tok = l.either(tok, TokenCaret, map[byte]TokenType{'=': TokenXorAssign})
	case '~':
		tok = l.newToken(tok, TokenTilde)
	case '?':
		tok = l.newToken(tok, TokenQuestion)
	case ':':
		tok = l.newToken(tok, TokenColon)
	case '(':
		tok = l.newToken(tok, TokenLParen)
	case ')':
		tok = l.newToken(tok, TokenRParen)
	case '{':
		tok = l.newToken(tok, TokenLBrace)
	case '}':
		tok = l.newToken(tok, TokenRBrace)
	case '[':
		tok = l.newToken(tok, TokenLBracket)
	case ']':
		tok = l.newToken(tok, TokenRBracket)
	case ';':
		tok = l.newToken(tok, TokenSemicolon)
	case ',':
		tok = l.newToken(tok, TokenComma)
	case '@':
		tok = l.newToken(tok, TokenAt)
	case '.':
		if l.peekChar() == '.' && l.peekCharN(2) == '.' {
			tok.Type, tok.Literal = TokenEllipsis, "..."
			l.readChar()
			l.readChar()
		} else if isDigit(l.peekChar()) {
			tok.Literal = l.readNumber()
			tok.Type = numberType(tok.Literal)
			return tok
		} else {
			tok = l.newToken(tok, TokenDot)
		}
	case '"':
		tok.Type = TokenString
		tok.Literal = l.readQuoted('"')
		return tok
	case '\'':
		tok.Type = TokenChar
		tok.Literal = l.readQuoted('\'')
		return tok
	default:
		if l.ch == 'L' && (l.peekChar() == '\'' || l.peekChar() == '"') {
			l.readChar()
			if l.ch == '\'' {
				tok.Type = TokenWChar
				tok.Literal = l.readQuoted('\'')
			} else {
				tok.Type = TokenString
				tok.Literal = l.readQuoted('"')
			}
			return tok
		}
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			tok.Literal = l.readNumber()
			tok.Type = numberType(tok.Literal)
			return tok
		} else {
			tok = l.newToken(tok, TokenIllegal)
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(tok Token, tokenType TokenType) Token {
	tok.Type = tokenType
	tok.Literal = string(l.ch)
	return tok
}

// either picks a two-character token when the next byte matches, otherwise
// the single-character fallback.
func (l *Lexer) either(tok Token, single TokenType, pairs map[byte]TokenType) Token {
	if tt, ok := pairs[l.peekChar()]; ok {
		tok.Type = tt
		tok.Literal = string([]byte{l.ch, l.peekChar()})
		l.readChar()
		return tok
	}
	return l.newToken(tok, single)
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v' {
		l.readChar()
	}
}

func (l *Lexer) skipComments() {
	for l.ch == '/' {
		if l.peekChar() == '/' {
			// Single-line comment
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			l.skipWhitespace()
		} else if l.peekChar() == '*' {
			// Multi-line comment
			l.readChar() // consume /
			l.readChar() // consume *
			for {
				if l.ch == 0 {
					break
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // consume *
					l.readChar() // consume /
					break
				}
				l.readChar()
			}
			l.skipWhitespace()
		} else {
			break
		}
	}
}

// readDirective consumes a preprocessor line. Line markers of the form
// `# 12 "file.h"` or `#line 12 "file.h"` retarget the location of the
// following tokens; anything else (#pragma, #ident) is dropped.
func (l *Lexer) readDirective() {
	l.readChar() // consume '#'
	l.skipBlanks()
	if isLetter(l.ch) {
		if name := l.readIdentifier(); name != "line" {
			l.skipLine()
			return
		}
		l.skipBlanks()
	}
	if !isDigit(l.ch) {
		l.skipLine()
		return
	}
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	n, err := strconv.Atoi(l.input[start:l.pos])
	if err != nil {
		l.skipLine()
		return
	}
	l.skipBlanks()
	if l.ch == '"' {
		name := l.readQuoted('"')
		l.file = l.intern(name)
	}
	l.skipLine()
	// readChar already counted the newline that ended the marker
	l.line = n
}

func (l *Lexer) intern(name string) int {
	for i, f := range l.files {
		if f == name {
			return i
		}
	}
	l.files = append(l.files, name)
	return len(l.files) - 1
}

func (l *Lexer) skipBlanks() {
	for l.ch == ' ' || l.ch == '\t' {
		l.readChar()
	}
}

func (l *Lexer) skipLine() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

func (l *Lexer) readNumber() string {
	pos := l.pos
	hex := l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X')
	for {
		switch {
		case isDigit(l.ch) || isLetter(l.ch) || l.ch == '.':
			exp := (!hex && (l.ch == 'e' || l.ch == 'E')) || (hex && (l.ch == 'p' || l.ch == 'P'))
			l.readChar()
			if exp && (l.ch == '+' || l.ch == '-') {
				l.readChar()
			}
		default:
			return l.input[pos:l.pos]
		}
	}
}

func numberType(lit string) TokenType {
	hex := len(lit) > 1 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X')
	for i := 0; i < len(lit); i++ {
		c := lit[i]
		if c == '.' {
			return TokenFloat
		}
		if !hex && (c == 'e' || c == 'E') {
			return TokenFloat
		}
		if hex && (c == 'p' || c == 'P') {
			return TokenFloat
		}
	}
	return TokenInt
}

func (l *Lexer) readQuoted(quote byte) string {
	l.readChar() // consume opening quote
	pos := l.pos
	for l.ch != quote && l.ch != 0 && l.ch != '\n' {
		if l.ch == '\\' {
			l.readChar() // skip escape char
		}
		l.readChar()
	}
	str := l.input[pos:l.pos]
	l.readChar() // consume closing quote
	return str
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
