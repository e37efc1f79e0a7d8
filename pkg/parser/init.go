package parser

import (
	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
	"github.com/raymyers/cfront/pkg/symtab"
)

// initializer parses what follows `=` in a declaration of type t.
func (c *Context) initializer(t *ctypes.Type) cabs.Expr {
	switch {
	case c.is(lexer.TokenAt):
		return c.funcLiteral(t)
	case c.is(lexer.TokenLBrace):
		return c.initList(nil)
	}
	return c.assign()
}

// globalInitializer parses the initializer the skeleton scan skipped for
// sym. The Idents it creates are chained from the declaration.
func (c *Context) globalInitializer(sym *symtab.Symbol) {
	decl := sym.Stmt.(*cabs.GlobalDecl)
	c.withCursor(sym.Pos, func() {
		c.startChain()
		decl.Init = c.initializer(decl.Type)
		if _, braced := decl.Init.(*cabs.InitList); !braced && sym.Terminator != lexer.TokenRBrace {
			c.expect(sym.Terminator)
		}
		decl.First = c.first
		c.startChain()
	})
	decl.Type = c.completeArray(decl.Type, decl.Init)
	sym.Type = decl.Type
}

func (c *Context) initList(t *ctypes.Type) *cabs.InitList {
	list := cabs.Alloc(&c.ast, &cabs.InitList{Loc: c.loc(), Type: t})
	c.expect(lexer.TokenLBrace)
	for !c.accept(lexer.TokenRBrace) {
		var item cabs.InitItem
		for c.is(lexer.TokenDot) || c.is(lexer.TokenLBracket) {
			if c.accept(lexer.TokenDot) {
				name, _ := c.expectIdent()
				item.Designators = append(item.Designators, cabs.Designator{Field: name})
				continue
			}
			c.next()
			idx := c.conditional()
			c.expect(lexer.TokenRBracket)
			item.Designators = append(item.Designators, cabs.Designator{Index: idx})
		}
		if len(item.Designators) > 0 {
			c.expect(lexer.TokenAssign)
		}
		if c.is(lexer.TokenLBrace) {
			item.Value = c.initList(nil)
		} else {
			item.Value = c.assign()
		}
		list.Items = append(list.Items, item)
		if !c.accept(lexer.TokenComma) {
			c.expect(lexer.TokenRBrace)
			break
		}
	}
	return list
}

func (c *Context) compoundLiteral(t *ctypes.Type) *cabs.InitList {
	list := c.initList(t)
	list.Type = c.completeArray(t, list)
	c.layout(list.Type)
	return list
}

// completeArray gives an array declared with [] its count from the
// initializer. The declared type may be a shared typedef, so a new array
// type is returned instead of changing it.
func (c *Context) completeArray(t *ctypes.Type, init cabs.Expr) *ctypes.Type {
	u := t.Unqualified()
	if u.Kind != ctypes.KindArray || u.ArrayCount != 0 || u.CountDeferred {
		return t
	}
	var n int64
	switch init := init.(type) {
	case *cabs.InitList:
		n = c.initListLength(init)
	case *cabs.StringLit:
		n = int64(len(init.Value)) + 1
	default:
		return t
	}
	arr := c.g.types.Array(u.Base, n)
	arr.Loc = u.Loc
	return arr
}

// initListLength counts the elements an array initializer covers, following
// index designators.
func (c *Context) initListLength(list *cabs.InitList) int64 {
	var n, cursor int64
	for _, item := range list.Items {
		if len(item.Designators) > 0 && item.Designators[0].Index != nil {
			v, err := c.eval.Eval(item.Designators[0].Index)
			if err != nil {
				c.bail()
			}
			cursor = v.Int()
		}
		cursor++
		n = max(n, cursor)
	}
	return n
}

// funcTypeOf returns the function type t names directly or through a
// pointer, or nil.
func funcTypeOf(t *ctypes.Type) *ctypes.Type {
	if t == nil {
		return nil
	}
	u := t.Unqualified()
	if u.Kind == ctypes.KindPtr {
		u = u.Base.Unqualified()
	}
	if u.Kind == ctypes.KindFunc {
		return u
	}
	return nil
}

// funcLiteral parses `@(params) { body }`. The parameter list may be left
// out when the declared type already gives the signature. The body sees
// none of the enclosing function's locals.
func (c *Context) funcLiteral(declared *ctypes.Type) *cabs.FuncLit {
	loc := c.loc()
	c.expect(lexer.TokenAt)
	ft := funcTypeOf(declared)
	if c.is(lexer.TokenLParen) {
		ret := c.g.types.Int()
		if ft != nil {
			ret = ft.Func.Return
		}
		ft = c.funcSuffix(ret)
	}
	if ft == nil {
		c.fatalf(loc, "function literal needs a parameter list")
	}
	lit := cabs.Alloc(&c.ast, &cabs.FuncLit{Loc: loc, Type: ft})

	restore := c.locals.Isolate()
	defer restore()
	saved := c.enterBody()
	defer c.leaveBody(saved)

	for i, p := range ft.Func.Params {
		d := cabs.Alloc(&c.ast, &cabs.Decl{Loc: p.Loc, Name: p.Name, Type: p.Type, IsParam: true})
		lit.Params = append(lit.Params, d)
		if p.Name != "" {
			c.locals.PushSymbol(&symtab.Symbol{Name: p.Name, Type: p.Type, Class: symtab.Param, Loc: p.Loc, Stmt: d, ParamIndex: i})
		}
	}
	lit.Body = c.compound()
	c.checkLabels()
	lit.First = c.first
	return lit
}
