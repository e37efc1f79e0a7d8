package parser

import (
	"slices"

	"github.com/raymyers/cfront/pkg/lexer"
)

func isOpen(t lexer.TokenType) bool {
	return t == lexer.TokenLParen || t == lexer.TokenLBracket || t == lexer.TokenLBrace
}

func isClose(t lexer.TokenType) bool {
	return t == lexer.TokenRParen || t == lexer.TokenRBracket || t == lexer.TokenRBrace
}

// skipGroup steps over the bracketed group opening at the cursor and stops
// just past its matching close.
func (c *Context) skipGroup() {
	loc := c.loc()
	open := c.peek()
	if !isOpen(open.Type) {
		c.fatalf(loc, "expected a bracket, got %s", describe(open))
	}
	depth := 0
	for {
		tt := c.peek().Type
		switch {
		case isOpen(tt):
			depth++
		case isClose(tt):
			depth--
		case tt == lexer.TokenEOF:
			c.fatalf(loc, "unbalanced '%s'", open.Type)
		}
		c.next()
		if depth == 0 {
			return
		}
	}
}

// skipExpr steps over tokens until one of stops appears outside any
// brackets, and returns it without consuming it.
func (c *Context) skipExpr(stops ...lexer.TokenType) lexer.TokenType {
	loc := c.loc()
	depth := 0
	for {
		tt := c.peek().Type
		if depth == 0 && slices.Contains(stops, tt) {
			return tt
		}
		switch {
		case isOpen(tt):
			depth++
		case isClose(tt):
			if depth == 0 {
				c.fatalf(c.loc(), "unexpected %s", describe(c.peek()))
			}
			depth--
		case tt == lexer.TokenEOF:
			c.fatalf(loc, "unexpected end of file in expression")
		}
		c.next()
	}
}

// skipInitializer steps over a global initializer and returns the token
// that ends it.
func (c *Context) skipInitializer() lexer.TokenType {
	switch {
	case c.is(lexer.TokenLBrace):
		c.skipGroup()
		return lexer.TokenRBrace
	case c.is(lexer.TokenAt):
		c.next()
		if c.is(lexer.TokenLParen) {
			c.skipGroup()
		}
		if !c.is(lexer.TokenLBrace) {
			c.fatalf(c.loc(), "expected function literal body, got %s", describe(c.peek()))
		}
		c.skipGroup()
		return lexer.TokenRBrace
	}
	return c.skipExpr(lexer.TokenComma, lexer.TokenSemicolon)
}

func (c *Context) skipAttributes() {
	for c.accept(lexer.TokenAttribute) {
		if c.is(lexer.TokenLParen) {
			c.skipGroup()
		}
	}
}

// skipPragma steps over _Pragma("...").
func (c *Context) skipPragma() {
	c.next()
	c.expect(lexer.TokenLParen)
	if !c.is(lexer.TokenString) {
		c.fatalf(c.loc(), "_Pragma expects a string literal")
	}
	c.next()
	c.expect(lexer.TokenRParen)
}
