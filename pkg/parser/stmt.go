package parser

import (
	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/lexer"
	"github.com/raymyers/cfront/pkg/symtab"
)

// maxCaseRange bounds how many case labels one `case a ... b` expands to.
const maxCaseRange = 1 << 16

// switchChain threads the labels of one switch through their Next fields.
type switchChain struct {
	tail       cabs.Stmt
	hasDefault bool
}

func (sc *switchChain) link(n cabs.Stmt) {
	switch t := sc.tail.(type) {
	case *cabs.Switch:
		t.Next = n
	case *cabs.Case:
		t.Next = n
	case *cabs.Default:
		t.Next = n
	}
	sc.tail = n
}

// functionBody parses the deferred body of sym.
func (c *Context) functionBody(sym *symtab.Symbol) {
	fn := sym.Stmt.(*cabs.FuncDecl)
	c.s = c.g.tokens.At(sym.Pos)
	c.labels.Reset()
	c.startChain()
	c.breakable, c.continuable, c.sw = nil, nil, nil

	scope := c.locals.Enter()
	defer scope.Leave()
	for i, p := range fn.Params {
		if p.Name == "" {
			continue
		}
		c.locals.PushSymbol(&symtab.Symbol{Name: p.Name, Type: p.Type, Class: symtab.Param, Loc: p.Loc, Stmt: p, ParamIndex: i})
	}
	fn.Body = c.compound()
	c.checkLabels()
	fn.First = c.first
}

func (c *Context) checkLabels() {
	for _, l := range c.labels.Unplaced() {
		c.Errorf(l.Loc, "label '%s' is not defined", l.Name)
	}
}

func (c *Context) compound() *cabs.Compound {
	b := cabs.Alloc(&c.ast, &cabs.Compound{Loc: c.loc()})
	c.expect(lexer.TokenLBrace)
	scope := c.locals.Enter()
	defer scope.Leave()
	for !c.accept(lexer.TokenRBrace) {
		if c.is(lexer.TokenEOF) {
			c.fatalf(b.Loc, "expected '}' to close this block")
		}
		b.Items = append(b.Items, c.blockItem()...)
	}
	return b
}

func (c *Context) blockItem() []cabs.Stmt {
	switch {
	case c.is(lexer.TokenStaticAssert):
		c.staticAssertDecl()
		return nil
	case c.is(lexer.TokenPragma):
		c.skipPragma()
		return nil
	case c.is(lexer.TokenIdent) && c.isAt(1, lexer.TokenColon):
		return []cabs.Stmt{c.label()}
	case c.isTypeStart():
		return c.localDecl()
	}
	return []cabs.Stmt{c.statement()}
}

func (c *Context) label() *cabs.Label {
	name, loc := c.expectIdent()
	c.expect(lexer.TokenColon)
	l, err := c.labels.Define(&c.ast, name, loc)
	if err != nil {
		c.Errorf(loc, "label '%s' is already defined", name)
	}
	return l
}

func (c *Context) statement() cabs.Stmt {
	loc := c.loc()
	switch c.peek().Type {
	case lexer.TokenLBrace:
		return c.compound()
	case lexer.TokenIf:
		return c.ifStmt()
	case lexer.TokenSwitch:
		return c.switchStmt()
	case lexer.TokenCase:
		return c.caseStmt()
	case lexer.TokenDefault:
		return c.defaultStmt()
	case lexer.TokenWhile:
		return c.whileStmt()
	case lexer.TokenDo:
		return c.doStmt()
	case lexer.TokenFor:
		return c.forStmt()

	case lexer.TokenGoto:
		c.next()
		if c.is(lexer.TokenStar) {
			c.fatalf(c.loc(), "computed goto is not supported")
		}
		name, nloc := c.expectIdent()
		c.expect(lexer.TokenSemicolon)
		return cabs.Alloc(&c.ast, &cabs.Goto{Loc: loc, Target: c.labels.Reference(&c.ast, name, nloc)})

	case lexer.TokenReturn:
		c.next()
		r := cabs.Alloc(&c.ast, &cabs.Return{Loc: loc})
		if !c.is(lexer.TokenSemicolon) {
			r.X = c.expr()
		}
		c.expect(lexer.TokenSemicolon)
		return r

	case lexer.TokenBreak:
		c.next()
		c.expect(lexer.TokenSemicolon)
		if c.breakable == nil {
			c.Errorf(loc, "break statement not within a loop or switch")
		}
		return cabs.Alloc(&c.ast, &cabs.Break{Loc: loc, Target: c.breakable})

	case lexer.TokenContinue:
		c.next()
		c.expect(lexer.TokenSemicolon)
		if c.continuable == nil {
			c.Errorf(loc, "continue statement not within a loop")
		}
		return cabs.Alloc(&c.ast, &cabs.Continue{Loc: loc, Target: c.continuable})

	case lexer.TokenSemicolon:
		c.next()
		return cabs.Alloc(&c.ast, &cabs.ExprStmt{Loc: loc})

	case lexer.TokenPragma:
		c.skipPragma()
		return cabs.Alloc(&c.ast, &cabs.ExprStmt{Loc: loc})

	case lexer.TokenIdent:
		if c.isAt(1, lexer.TokenColon) {
			l := c.label()
			return cabs.Alloc(&c.ast, &cabs.Compound{Loc: loc, Items: []cabs.Stmt{l, c.statement()}})
		}
	}

	x := c.expr()
	c.expect(lexer.TokenSemicolon)
	return cabs.Alloc(&c.ast, &cabs.ExprStmt{Loc: loc, X: x})
}

func (c *Context) parenExpr() cabs.Expr {
	c.expect(lexer.TokenLParen)
	x := c.expr()
	c.expect(lexer.TokenRParen)
	return x
}

func (c *Context) ifStmt() cabs.Stmt {
	s := cabs.Alloc(&c.ast, &cabs.If{Loc: c.loc()})
	c.next()
	s.Cond = c.parenExpr()
	s.Then = c.statement()
	if c.accept(lexer.TokenElse) {
		s.Else = c.statement()
	}
	return s
}

// loopBody parses the body of loop with break and continue bound to it.
func (c *Context) loopBody(loop cabs.Stmt) cabs.Stmt {
	brk, cont := c.breakable, c.continuable
	c.breakable, c.continuable = loop, loop
	defer func() { c.breakable, c.continuable = brk, cont }()
	return c.statement()
}

func (c *Context) whileStmt() cabs.Stmt {
	s := cabs.Alloc(&c.ast, &cabs.While{Loc: c.loc()})
	c.next()
	s.Cond = c.parenExpr()
	s.Body = c.loopBody(s)
	return s
}

func (c *Context) doStmt() cabs.Stmt {
	s := cabs.Alloc(&c.ast, &cabs.DoWhile{Loc: c.loc()})
	c.next()
	s.Body = c.loopBody(s)
	c.expect(lexer.TokenWhile)
	s.Cond = c.parenExpr()
	c.expect(lexer.TokenSemicolon)
	return s
}

func (c *Context) forStmt() cabs.Stmt {
	s := cabs.Alloc(&c.ast, &cabs.For{Loc: c.loc()})
	c.next()
	c.expect(lexer.TokenLParen)

	scope := c.locals.Enter()
	defer scope.Leave()

	init := cabs.Alloc(&c.ast, &cabs.Compound{Loc: c.loc()})
	switch {
	case c.accept(lexer.TokenSemicolon):
	case c.isTypeStart():
		init.Items = c.localDecl()
	default:
		loc := c.loc()
		init.Items = []cabs.Stmt{cabs.Alloc(&c.ast, &cabs.ExprStmt{Loc: loc, X: c.expr()})}
		c.expect(lexer.TokenSemicolon)
	}
	if len(init.Items) > 0 {
		s.Init = init
	}

	if !c.is(lexer.TokenSemicolon) {
		s.Cond = c.expr()
	}
	c.expect(lexer.TokenSemicolon)
	if !c.is(lexer.TokenRParen) {
		s.Post = c.expr()
	}
	c.expect(lexer.TokenRParen)
	s.Body = c.loopBody(s)
	return s
}

func (c *Context) switchStmt() cabs.Stmt {
	s := cabs.Alloc(&c.ast, &cabs.Switch{Loc: c.loc()})
	c.next()
	s.Cond = c.parenExpr()

	sw, brk := c.sw, c.breakable
	c.sw, c.breakable = &switchChain{tail: s}, s
	defer func() { c.sw, c.breakable = sw, brk }()
	s.Body = c.statement()
	return s
}

// labelBody parses the statement a case or default label applies to. A
// label right before the closing brace gets an empty statement.
func (c *Context) labelBody() cabs.Stmt {
	if c.is(lexer.TokenRBrace) {
		return cabs.Alloc(&c.ast, &cabs.ExprStmt{Loc: c.loc()})
	}
	return c.statement()
}

// caseStmt parses `case k:` and the range form `case lo ... hi:`, which
// expands to one label per value, each the body of the one before.
func (c *Context) caseStmt() cabs.Stmt {
	loc := c.loc()
	c.next()
	lo := c.constInt()
	hi := lo
	if c.accept(lexer.TokenEllipsis) {
		hi = c.constInt()
		switch {
		case hi <= lo:
			c.Errorf(loc, "case range must be increasing (got %d ... %d)", lo, hi)
			hi = lo
		case uint64(hi-lo) > maxCaseRange:
			c.Errorf(loc, "case range %d ... %d is too large", lo, hi)
			hi = lo
		}
	}
	c.expect(lexer.TokenColon)
	if c.sw == nil {
		c.Errorf(loc, "case label not within a switch statement")
	}

	first := cabs.Alloc(&c.ast, &cabs.Case{Loc: loc, Key: lo})
	c.linkLabel(first)
	last := first
	for n := uint64(hi - lo); n > 0; n-- {
		next := cabs.Alloc(&c.ast, &cabs.Case{Loc: loc, Key: last.Key + 1})
		last.Body = next
		c.linkLabel(next)
		last = next
	}
	last.Body = c.labelBody()
	return first
}

func (c *Context) defaultStmt() cabs.Stmt {
	loc := c.loc()
	c.next()
	c.expect(lexer.TokenColon)
	switch {
	case c.sw == nil:
		c.Errorf(loc, "default label not within a switch statement")
	case c.sw.hasDefault:
		c.Errorf(loc, "multiple default labels in one switch")
	default:
		c.sw.hasDefault = true
	}
	d := cabs.Alloc(&c.ast, &cabs.Default{Loc: loc})
	c.linkLabel(d)
	d.Body = c.labelBody()
	return d
}

func (c *Context) linkLabel(n cabs.Stmt) {
	if c.sw != nil {
		c.sw.link(n)
	}
}
