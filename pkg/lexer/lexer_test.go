package lexer

import "testing"

type expectedToken struct {
	expectedType    TokenType
	expectedLiteral string
}

func checkTokens(t *testing.T, input string, tests []expectedToken) {
	t.Helper()
	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken(t *testing.T) {
	checkTokens(t, `static int f(void) { return 0x2Au; }`, []expectedToken{
		{TokenStatic, "static"},
		{TokenInt_, "int"},
		{TokenIdent, "f"},
		{TokenLParen, "("},
		{TokenVoid, "void"},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenReturn, "return"},
		{TokenInt, "0x2Au"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	})
}

func TestOperators(t *testing.T) {
	checkTokens(t, `+ - * / % = == != < <= > >= && || ! & | ^ ~ << >> <<= >>= += -> ++ -- ... ? : @`, []expectedToken{
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNe, "!="},
		{TokenLt, "<"},
		{TokenLe, "<="},
		{TokenGt, ">"},
		{TokenGe, ">="},
		{TokenAnd, "&&"},
		{TokenOr, "||"},
		{TokenNot, "!"},
		{TokenAmpersand, "&"},
		{TokenPipe, "|"},
		{TokenCaret, "^"},
		{TokenTilde, "~"},
		{TokenShl, "<<"},
		{TokenShr, ">>"},
		{TokenShlAssign, "<<="},
		{TokenShrAssign, ">>="},
		{TokenPlusAssign, "+="},
		{TokenArrow, "->"},
		{TokenIncrement, "++"},
		{TokenDecrement, "--"},
		{TokenEllipsis, "..."},
		{TokenQuestion, "?"},
		{TokenColon, ":"},
		{TokenAt, "@"},
		{TokenEOF, ""},
	})
}

func TestComments(t *testing.T) {
	checkTokens(t, `int // comment
main /* block
comment */ ()`, []expectedToken{
		{TokenInt_, "int"},
		{TokenIdent, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenEOF, ""},
	})
}

func TestLiterals(t *testing.T) {
	checkTokens(t, `'a' L'b' "s\"x" 1.5f .5 1e3 0x1p3 _Static_assert _Alignas`, []expectedToken{
		{TokenChar, "a"},
		{TokenWChar, "b"},
		{TokenString, `s\"x`},
		{TokenFloat, "1.5f"},
		{TokenFloat, ".5"},
		{TokenFloat, "1e3"},
		{TokenFloat, "0x1p3"},
		{TokenStaticAssert, "_Static_assert"},
		{TokenAlignas, "_Alignas"},
		{TokenEOF, ""},
	})
}

func TestLineMarkers(t *testing.T) {
	input := "int a;\n# 40 \"inc.h\"\nint b;\n#pragma once\nint c;\n"
	s, err := Tokenize("main.c", input)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	// int a ; int b ; int c ; EOF
	if s.Len() != 10 {
		t.Fatalf("expected 10 tokens, got %d", s.Len())
	}
	a := s.Location(Loc(2))
	if a.File != "main.c" || a.Line != 1 {
		t.Errorf("a: got %v", a)
	}
	b := s.Location(Loc(5))
	if b.File != "inc.h" || b.Line != 40 {
		t.Errorf("b: got %v", b)
	}
	c := s.Location(Loc(8))
	if c.File != "inc.h" || c.Line != 42 {
		t.Errorf("c: got %v", c)
	}
}

func TestTokenizeIllegal(t *testing.T) {
	if _, err := Tokenize("x.c", "int a = `;"); err == nil {
		t.Fatal("expected an error for an illegal character")
	}
}

func TestStreamCursor(t *testing.T) {
	s, err := Tokenize("x.c", "a b c")
	if err != nil {
		t.Fatal(err)
	}
	pos := s.Save()
	s.Next()
	s.Next()
	if s.Peek().Literal != "c" {
		t.Fatalf("expected c, got %q", s.Peek().Literal)
	}
	mini := s.At(pos)
	if mini.Peek().Literal != "a" || s.Peek().Literal != "c" {
		t.Fatal("At must not disturb the parent cursor")
	}
	s.Next()
	s.Next()
	s.Next()
	if !s.Is(TokenEOF) {
		t.Fatal("cursor must clamp at EOF")
	}
	s.Restore(pos)
	if s.Peek().Literal != "a" {
		t.Fatal("Restore did not rewind")
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		lit      string
		value    uint64
		unsigned bool
	}{
		{"42", 42, false},
		{"0x2A", 42, false},
		{"052", 42, false},
		{"42u", 42, true},
		{"42ULL", 42, true},
		{"42l", 42, false},
		{"0", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			v, suffix, err := ParseInt(tt.lit)
			if err != nil {
				t.Fatal(err)
			}
			if v != tt.value || suffix.Unsigned() != tt.unsigned {
				t.Errorf("ParseInt(%q) = %d,%v want %d,%v", tt.lit, v, suffix.Unsigned(), tt.value, tt.unsigned)
			}
		})
	}
}

func TestCharValue(t *testing.T) {
	tests := map[string]int64{
		"a":    'a',
		`\n`:   '\n',
		`\0`:   0,
		`\x41`: 0x41,
		`\\`:   '\\',
	}
	for body, want := range tests {
		got, err := CharValue(body)
		if err != nil {
			t.Fatalf("CharValue(%q): %v", body, err)
		}
		if got != want {
			t.Errorf("CharValue(%q) = %d, want %d", body, got, want)
		}
	}
}
