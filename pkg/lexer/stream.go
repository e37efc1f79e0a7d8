package lexer

import (
	"fmt"
)

// Loc is a location handle for a token in a Stream. The zero value means
// "unknown location".
type Loc uint32

// NoLoc is the unknown location.
const NoLoc Loc = 0

// Location is a resolved source position.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("line %d, col %d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Stream is a finalized, random-access token sequence with a cursor.
// Copying a Stream by value gives an independent cursor over the same
// tokens, which is how nested parsers re-read recorded ranges.
type Stream struct {
	tokens  []Token
	files   []string
	Current int
}

// Tokenize lexes src completely. The returned stream always ends with an
// EOF token.
func Tokenize(filename, src string) (*Stream, error) {
	l := NewFile(filename, src)
	var toks []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenIllegal {
			loc := Location{File: l.files[tok.File], Line: tok.Line, Column: tok.Column}
			return nil, fmt.Errorf("%s: unexpected character %q", loc, tok.Literal)
		}
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return &Stream{tokens: toks, files: l.Files()}, nil
}

// NewStream wraps an already lexed token slice. A trailing EOF token is
// appended when missing.
func NewStream(tokens []Token, files []string) *Stream {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		tokens = append(tokens, Token{Type: TokenEOF})
	}
	if len(files) == 0 {
		files = []string{""}
	}
	return &Stream{tokens: tokens, files: files}
}

// Filename is the main file of the stream.
func (s *Stream) Filename() string {
	return s.files[0]
}

// Tokens exposes the underlying token slice.
func (s *Stream) Tokens() []Token {
	return s.tokens
}

// Len returns the number of tokens including the trailing EOF.
func (s *Stream) Len() int {
	return len(s.tokens)
}

// Peek returns the token under the cursor.
func (s *Stream) Peek() *Token {
	return s.PeekN(0)
}

// PeekN returns the token n positions after the cursor, clamped to EOF.
func (s *Stream) PeekN(n int) *Token {
	i := s.Current + n
	if i >= len(s.tokens) {
		i = len(s.tokens) - 1
	}
	if i < 0 {
		i = 0
	}
	return &s.tokens[i]
}

// Is reports whether the token under the cursor has type t.
func (s *Stream) Is(t TokenType) bool {
	return s.Peek().Type == t
}

// Next advances the cursor, never past EOF.
func (s *Stream) Next() {
	if s.Current < len(s.tokens)-1 {
		s.Current++
	}
}

// Prev moves the cursor back one token.
func (s *Stream) Prev() {
	if s.Current > 0 {
		s.Current--
	}
}

// Save returns the cursor position for a later Restore.
func (s *Stream) Save() int {
	return s.Current
}

// Restore moves the cursor to a saved position.
func (s *Stream) Restore(pos int) {
	s.Current = pos
}

// At returns an independent cursor over the same tokens positioned at pos.
func (s *Stream) At(pos int) *Stream {
	c := *s
	c.Current = pos
	return &c
}

// Loc returns the location handle of the token under the cursor.
func (s *Stream) Loc() Loc {
	return Loc(s.Current + 1)
}

// LastLoc returns the location handle of the previous token, useful to
// point at "the end of what was just read".
func (s *Stream) LastLoc() Loc {
	if s.Current == 0 {
		return s.Loc()
	}
	return Loc(s.Current)
}

// Location resolves a handle.
func (s *Stream) Location(loc Loc) Location {
	if loc == NoLoc || int(loc) > len(s.tokens) {
		return Location{}
	}
	tok := &s.tokens[loc-1]
	return Location{File: s.files[tok.File], Line: tok.Line, Column: tok.Column}
}

// File returns the file a location belongs to.
func (s *Stream) File(loc Loc) string {
	return s.Location(loc).File
}

// Line returns the line a location belongs to.
func (s *Stream) Line(loc Loc) int {
	return s.Location(loc).Line
}

// TokenAt returns the token a location handle refers to.
func (s *Stream) TokenAt(loc Loc) *Token {
	if loc == NoLoc || int(loc) > len(s.tokens) {
		return nil
	}
	return &s.tokens[loc-1]
}
