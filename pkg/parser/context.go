package parser

import (
	"fmt"
	"math"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/consteval"
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
	"github.com/raymyers/cfront/pkg/report"
	"github.com/raymyers/cfront/pkg/symtab"
	"github.com/raymyers/cfront/pkg/target"
	"github.com/raymyers/cfront/pkg/unit"
)

// bailout unwinds the current phase or function after a fatal error has
// been reported.
type bailout struct{}

// global is shared by every context of one parse. Phases 1 and 2 write it
// from a single goroutine; phase 3 only reads it.
type global struct {
	tokens *lexer.Stream
	rep    *report.Reporter
	tu     *unit.TranslationUnit
	types  *ctypes.Arena
	target *target.Target

	globals *symtab.SymbolTable
	tags    *symtab.TagTable

	staticAsserts []int
	aligns        []pendingAlign
	entryName     string
}

type pendingAlign struct {
	t   *ctypes.Type
	pos int
	loc lexer.Loc
}

func (g *global) failed() bool {
	return g.rep.Status.HasErrors()
}

// Context is the parser state of one phase, or of one phase-3 batch.
type Context struct {
	g *global
	s *lexer.Stream

	// outOfOrder is set during the skeleton scan: unknown type names become
	// placeholders and array counts, enum values and alignments are deferred.
	outOfOrder bool
	// local is set while parsing a function body.
	local bool

	locals symtab.Locals
	labels symtab.Labels
	ast    cabs.Arena
	eval   consteval.Evaluator

	breakable   cabs.Stmt
	continuable cabs.Stmt
	sw          *switchChain

	first, last *cabs.Ident
}

func newContext(g *global, outOfOrder bool) *Context {
	c := &Context{g: g, s: g.tokens.At(0), outOfOrder: outOfOrder}
	c.eval = consteval.Evaluator{Env: c, Types: g.types}
	return c
}

// protect runs fn and absorbs a bailout. It reports whether fn completed.
func (c *Context) protect(fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, isBailout := r.(bailout); !isBailout {
				panic(r)
			}
			ok = false
		}
	}()
	fn()
	return true
}

func (c *Context) position(loc lexer.Loc) string {
	return c.g.tokens.Location(loc).String()
}

func (c *Context) report(level report.Level, loc lexer.Loc, msg string, notes ...report.Note) {
	c.g.rep.Report(report.Diagnostic{Level: level, Pos: c.position(loc), Message: msg, Notes: notes})
}

func (c *Context) note(loc lexer.Loc, format string, args ...any) report.Note {
	return report.Note{Pos: c.position(loc), Message: fmt.Sprintf(format, args...)}
}

// Errorf reports a recoverable error.
func (c *Context) Errorf(loc lexer.Loc, format string, args ...any) {
	c.report(report.Error, loc, fmt.Sprintf(format, args...))
}

func (c *Context) warnf(loc lexer.Loc, format string, args ...any) {
	c.report(report.Warning, loc, fmt.Sprintf(format, args...))
}

func (c *Context) fatalf(loc lexer.Loc, format string, args ...any) {
	c.Errorf(loc, format, args...)
	panic(bailout{})
}

// redefined reports a fatal redefinition with a note at the first one.
func (c *Context) redefined(loc, prev lexer.Loc, format string, args ...any) {
	c.report(report.Error, loc, fmt.Sprintf(format, args...), c.note(prev, "previous definition is here"))
	panic(bailout{})
}

// bail unwinds after an error that has already been reported.
func (c *Context) bail() {
	panic(bailout{})
}

func (c *Context) peek() *lexer.Token { return c.s.Peek() }

func (c *Context) is(t lexer.TokenType) bool { return c.s.Is(t) }

func (c *Context) isAt(n int, t lexer.TokenType) bool { return c.s.PeekN(n).Type == t }

func (c *Context) next() { c.s.Next() }

func (c *Context) loc() lexer.Loc { return c.s.Loc() }

func (c *Context) accept(t lexer.TokenType) bool {
	if c.s.Is(t) {
		c.s.Next()
		return true
	}
	return false
}

func (c *Context) expect(t lexer.TokenType) {
	if !c.accept(t) {
		c.fatalf(c.loc(), "expected '%s', got %s", t, describe(c.peek()))
	}
}

func (c *Context) expectIdent() (string, lexer.Loc) {
	tok := c.peek()
	loc := c.loc()
	if tok.Type != lexer.TokenIdent {
		c.fatalf(loc, "expected identifier, got %s", describe(tok))
	}
	c.next()
	return tok.Literal, loc
}

func describe(tok *lexer.Token) string {
	switch {
	case tok.Type == lexer.TokenEOF:
		return "end of file"
	case tok.Literal != "":
		return "'" + tok.Literal + "'"
	}
	return "'" + tok.Type.String() + "'"
}

// withCursor runs fn with the cursor at token position pos and restores it.
func (c *Context) withCursor(pos int, fn func()) {
	saved := c.s
	c.s = c.g.tokens.At(pos)
	defer func() { c.s = saved }()
	fn()
}

// ConstExprAt evaluates the deferred constant expression at pos. Layout
// calls back into it for array counts and enum values.
func (c *Context) ConstExprAt(pos int, terminator lexer.TokenType) (v int64, err error) {
	first, last := c.first, c.last
	defer func() { c.first, c.last = first, last }()
	c.withCursor(pos, func() {
		e := c.conditional()
		if terminator != lexer.TokenEOF {
			c.expect(terminator)
		}
		var val consteval.Value
		val, err = c.eval.Eval(e)
		v = val.Int()
	})
	return v, err
}

// constInt parses and folds a constant expression at the cursor.
func (c *Context) constInt() int64 {
	loc := c.loc()
	v, err := c.eval.Eval(c.conditional())
	if err != nil {
		c.bail()
	}
	if !v.Signed && v.U > math.MaxInt64 {
		c.Errorf(loc, "Constant integer cannot be represented as signed integer.")
	}
	return v.Int()
}

// layout lays out t now and unwinds if that fails.
func (c *Context) layout(t *ctypes.Type) {
	if err := ctypes.Layout(c, t); err != nil {
		c.bail()
	}
}

func (c *Context) startChain() {
	c.first, c.last = nil, nil
}

func (c *Context) chain(id *cabs.Ident) {
	if c.last == nil {
		c.first = id
	} else {
		c.last.Next = id
	}
	c.last = id
}

func (c *Context) findSymbol(name string) *symtab.Symbol {
	if s := c.locals.FindSymbol(name); s != nil {
		return s
	}
	return c.g.globals.Find(name)
}

func (c *Context) findTag(name string) *ctypes.Type {
	if t := c.locals.FindTag(name); t != nil {
		return t
	}
	return c.g.tags.Find(name)
}

func (c *Context) defineTag(name string, t *ctypes.Type) {
	if c.local {
		c.locals.PushTag(name, t)
		return
	}
	c.g.tags.Put(name, t)
}

func (c *Context) isTypedefName(name string) bool {
	s := c.findSymbol(name)
	return s != nil && s.Class == symtab.Typedef
}

func (c *Context) addTopLevel(s cabs.Stmt) {
	c.g.tu.TopLevel = append(c.g.tu.TopLevel, s)
}

// bodyState is the per-function state a function literal sets aside.
type bodyState struct {
	labels      symtab.Labels
	first, last *cabs.Ident
	breakable   cabs.Stmt
	continuable cabs.Stmt
	sw          *switchChain
	local       bool
}

func (c *Context) enterBody() bodyState {
	saved := bodyState{c.labels, c.first, c.last, c.breakable, c.continuable, c.sw, c.local}
	c.labels = symtab.Labels{}
	c.first, c.last = nil, nil
	c.breakable, c.continuable, c.sw = nil, nil, nil
	c.local = true
	return saved
}

func (c *Context) leaveBody(s bodyState) {
	c.labels = s.labels
	c.first, c.last = s.first, s.last
	c.breakable, c.continuable, c.sw = s.breakable, s.continuable, s.sw
	c.local = s.local
}
