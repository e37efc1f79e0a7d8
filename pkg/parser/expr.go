package parser

import (
	"strconv"
	"strings"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/lexer"
	"github.com/raymyers/cfront/pkg/symtab"
)

var assignOps = map[lexer.TokenType]cabs.BinaryOp{
	lexer.TokenAssign:        cabs.OpAssign,
	lexer.TokenPlusAssign:    cabs.OpAdd,
	lexer.TokenMinusAssign:   cabs.OpSub,
	lexer.TokenStarAssign:    cabs.OpMul,
	lexer.TokenSlashAssign:   cabs.OpDiv,
	lexer.TokenPercentAssign: cabs.OpMod,
	lexer.TokenAndAssign:     cabs.OpBitAnd,
	lexer.TokenOrAssign:      cabs.OpBitOr,
	lexer.TokenXorAssign:     cabs.OpBitXor,
	lexer.TokenShlAssign:     cabs.OpShl,
	lexer.TokenShrAssign:     cabs.OpShr,
}

type binaryOp struct {
	op   cabs.BinaryOp
	prec int
}

// Binary operator precedence, lowest first.
var binaryOps = map[lexer.TokenType]binaryOp{
	lexer.TokenOr:        {cabs.OpOr, 1},
	lexer.TokenAnd:       {cabs.OpAnd, 2},
	lexer.TokenPipe:      {cabs.OpBitOr, 3},
	lexer.TokenCaret:     {cabs.OpBitXor, 4},
	lexer.TokenAmpersand: {cabs.OpBitAnd, 5},
	lexer.TokenEq:        {cabs.OpEq, 6},
	lexer.TokenNe:        {cabs.OpNe, 6},
	lexer.TokenLt:        {cabs.OpLt, 7},
	lexer.TokenLe:        {cabs.OpLe, 7},
	lexer.TokenGt:        {cabs.OpGt, 7},
	lexer.TokenGe:        {cabs.OpGe, 7},
	lexer.TokenShl:       {cabs.OpShl, 8},
	lexer.TokenShr:       {cabs.OpShr, 8},
	lexer.TokenPlus:      {cabs.OpAdd, 9},
	lexer.TokenMinus:     {cabs.OpSub, 9},
	lexer.TokenStar:      {cabs.OpMul, 10},
	lexer.TokenSlash:     {cabs.OpDiv, 10},
	lexer.TokenPercent:   {cabs.OpMod, 10},
}

var unaryOps = map[lexer.TokenType]cabs.UnaryOp{
	lexer.TokenMinus:     cabs.OpNeg,
	lexer.TokenPlus:      cabs.OpPlus,
	lexer.TokenNot:       cabs.OpNot,
	lexer.TokenTilde:     cabs.OpBitNot,
	lexer.TokenAmpersand: cabs.OpAddrOf,
	lexer.TokenStar:      cabs.OpDeref,
	lexer.TokenIncrement: cabs.OpPreInc,
	lexer.TokenDecrement: cabs.OpPreDec,
}

// expr parses a full expression including the comma operator.
func (c *Context) expr() cabs.Expr {
	x := c.assign()
	for c.is(lexer.TokenComma) {
		loc := c.loc()
		c.next()
		x = cabs.Alloc(&c.ast, &cabs.Binary{Loc: loc, Op: cabs.OpComma, Left: x, Right: c.assign()})
	}
	return x
}

func (c *Context) assign() cabs.Expr {
	x := c.conditional()
	if op, ok := assignOps[c.peek().Type]; ok {
		loc := c.loc()
		c.next()
		return cabs.Alloc(&c.ast, &cabs.Assign{Loc: loc, Op: op, Left: x, Right: c.assign()})
	}
	return x
}

func (c *Context) conditional() cabs.Expr {
	cond := c.binary(1)
	if !c.is(lexer.TokenQuestion) {
		return cond
	}
	loc := c.loc()
	c.next()
	then := cond
	if !c.is(lexer.TokenColon) {
		then = c.expr()
	}
	c.expect(lexer.TokenColon)
	return cabs.Alloc(&c.ast, &cabs.Ternary{Loc: loc, Cond: cond, Then: then, Else: c.conditional()})
}

// binary is precedence climbing over binaryOps. Operators of equal
// precedence group to the left.
func (c *Context) binary(minPrec int) cabs.Expr {
	x := c.cast()
	for {
		info, ok := binaryOps[c.peek().Type]
		if !ok || info.prec < minPrec {
			return x
		}
		loc := c.loc()
		c.next()
		y := c.binary(info.prec + 1)
		x = cabs.Alloc(&c.ast, &cabs.Binary{Loc: loc, Op: info.op, Left: x, Right: y})
	}
}

func (c *Context) cast() cabs.Expr {
	if c.is(lexer.TokenLParen) && c.isTypeStartAt(1) {
		loc := c.loc()
		c.next()
		t := c.typeName()
		c.expect(lexer.TokenRParen)
		if c.is(lexer.TokenLBrace) {
			return c.postfix(c.compoundLiteral(t))
		}
		return cabs.Alloc(&c.ast, &cabs.Cast{Loc: loc, Type: t, X: c.cast()})
	}
	return c.unary()
}

func (c *Context) unary() cabs.Expr {
	loc := c.loc()
	if op, ok := unaryOps[c.peek().Type]; ok {
		c.next()
		var x cabs.Expr
		if op == cabs.OpPreInc || op == cabs.OpPreDec {
			x = c.unary()
		} else {
			x = c.cast()
		}
		return cabs.Alloc(&c.ast, &cabs.Unary{Loc: loc, Op: op, X: x})
	}
	if c.is(lexer.TokenSizeof) || c.is(lexer.TokenAlignof) {
		isAlignof := c.is(lexer.TokenAlignof)
		c.next()
		if c.is(lexer.TokenLParen) && c.isTypeStartAt(1) {
			c.next()
			t := c.typeName()
			c.expect(lexer.TokenRParen)
			if c.is(lexer.TokenLBrace) {
				x := c.postfix(c.compoundLiteral(t))
				return cabs.Alloc(&c.ast, &cabs.Sizeof{Loc: loc, X: x, IsAlignof: isAlignof})
			}
			return cabs.Alloc(&c.ast, &cabs.Sizeof{Loc: loc, Type: t, IsAlignof: isAlignof})
		}
		return cabs.Alloc(&c.ast, &cabs.Sizeof{Loc: loc, X: c.unary(), IsAlignof: isAlignof})
	}
	return c.postfix(c.primary())
}

func (c *Context) postfix(x cabs.Expr) cabs.Expr {
	for {
		loc := c.loc()
		switch c.peek().Type {
		case lexer.TokenLBracket:
			c.next()
			idx := c.expr()
			c.expect(lexer.TokenRBracket)
			x = cabs.Alloc(&c.ast, &cabs.Index{Loc: loc, Array: x, Index: idx})
		case lexer.TokenLParen:
			c.next()
			var args []cabs.Expr
			for !c.is(lexer.TokenRParen) {
				args = append(args, c.assign())
				if !c.accept(lexer.TokenComma) {
					break
				}
			}
			c.expect(lexer.TokenRParen)
			x = cabs.Alloc(&c.ast, &cabs.Call{Loc: loc, Func: x, Args: args})
		case lexer.TokenDot, lexer.TokenArrow:
			arrow := c.is(lexer.TokenArrow)
			c.next()
			name, _ := c.expectIdent()
			x = cabs.Alloc(&c.ast, &cabs.Member{Loc: loc, X: x, Name: name, IsArrow: arrow})
		case lexer.TokenIncrement:
			c.next()
			x = cabs.Alloc(&c.ast, &cabs.Unary{Loc: loc, Op: cabs.OpPostInc, X: x})
		case lexer.TokenDecrement:
			c.next()
			x = cabs.Alloc(&c.ast, &cabs.Unary{Loc: loc, Op: cabs.OpPostDec, X: x})
		default:
			return x
		}
	}
}

func (c *Context) primary() cabs.Expr {
	tok := c.peek()
	loc := c.loc()
	switch tok.Type {
	case lexer.TokenInt:
		v, suffix, err := lexer.ParseInt(tok.Literal)
		if err != nil {
			c.fatalf(loc, "%v", err)
		}
		c.next()
		return cabs.Alloc(&c.ast, &cabs.IntLit{Loc: loc, Value: v, Suffix: suffix})

	case lexer.TokenFloat:
		lit := tok.Literal
		single := strings.HasSuffix(lit, "f") || strings.HasSuffix(lit, "F")
		v, err := strconv.ParseFloat(strings.TrimRight(lit, "fFlL"), 64)
		if err != nil {
			c.fatalf(loc, "invalid floating constant '%s'", lit)
		}
		c.next()
		return cabs.Alloc(&c.ast, &cabs.FloatLit{Loc: loc, Value: v, Single: single})

	case lexer.TokenChar, lexer.TokenWChar:
		v, err := lexer.CharValue(tok.Literal)
		if err != nil {
			c.fatalf(loc, "%v", err)
		}
		c.next()
		return cabs.Alloc(&c.ast, &cabs.CharLit{Loc: loc, Value: v, Wide: tok.Type == lexer.TokenWChar})

	case lexer.TokenString:
		return c.stringLiteral()

	case lexer.TokenIdent:
		c.next()
		return c.identifier(tok.Literal, loc)

	case lexer.TokenLParen:
		c.next()
		x := c.expr()
		c.expect(lexer.TokenRParen)
		return x

	case lexer.TokenAt:
		return c.funcLiteral(nil)
	}
	c.fatalf(loc, "expected an expression, got %s", describe(tok))
	return nil
}

// stringLiteral concatenates adjacent string literals.
func (c *Context) stringLiteral() *cabs.StringLit {
	loc := c.loc()
	var b strings.Builder
	for c.is(lexer.TokenString) {
		s, err := lexer.Unquote(c.peek().Literal)
		if err != nil {
			c.fatalf(c.loc(), "%v", err)
		}
		b.WriteString(s)
		c.next()
	}
	return cabs.Alloc(&c.ast, &cabs.StringLit{Loc: loc, Value: b.String()})
}

// identifier resolves name against the locals and then the globals. An
// unknown name is an error but still yields an Ident so parsing continues.
func (c *Context) identifier(name string, loc lexer.Loc) cabs.Expr {
	sym := c.findSymbol(name)
	if sym != nil {
		switch sym.Class {
		case symtab.Enum:
			return cabs.Alloc(&c.ast, &cabs.EnumConst{Loc: loc, Name: name, Type: sym.Type, Index: sym.EnumIndex})
		case symtab.Typedef:
			c.fatalf(loc, "unexpected type name '%s'", name)
		}
	} else if !strings.HasPrefix(name, "__builtin_") {
		c.Errorf(loc, "could not find symbol '%s'", name)
	}
	id := cabs.Alloc(&c.ast, &cabs.Ident{Loc: loc, Name: name})
	if sym != nil {
		id.Decl = sym.Stmt
	}
	c.chain(id)
	return id
}
