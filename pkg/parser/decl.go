package parser

import (
	"math"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
	"github.com/raymyers/cfront/pkg/symtab"
	"github.com/raymyers/cfront/pkg/unit"
)

// Type specifiers are counted into one integer so that every valid
// combination ("unsigned long long int") maps to a single value.
const (
	specVoid   = 1 << 0
	specBool   = 1 << 2
	specChar   = 1 << 4
	specShort  = 1 << 6
	specInt    = 1 << 8
	specLong   = 1 << 10
	specFloat  = 1 << 12
	specDouble = 1 << 14
	specOther  = 1 << 16

	specSigned   = 1 << 17
	specUnsigned = 1 << 18
)

type declarator struct {
	name string
	loc  lexer.Loc
	t    *ctypes.Type
}

// topLevel parses one file-scope declaration.
func (c *Context) topLevel() {
	switch c.peek().Type {
	case lexer.TokenSemicolon:
		c.next()
		return
	case lexer.TokenStaticAssert:
		c.staticAssertDecl()
		return
	case lexer.TokenPragma:
		c.skipPragma()
		return
	}

	loc := c.loc()
	base, attrs := c.declSpec()
	if c.accept(lexer.TokenSemicolon) {
		attrs.IsRoot = true
		c.addTopLevel(cabs.Alloc(&c.ast, &cabs.GlobalDecl{Loc: loc, Type: base, Attrs: attrs}))
		return
	}
	c.declList(base, func(d declarator) bool {
		return c.topLevelDeclarator(d, attrs)
	})
}

// declList parses a comma separated declarator list. each returns true
// when the declaration ended without a semicolon (a function body).
func (c *Context) declList(base *ctypes.Type, each func(d declarator) bool) {
	for {
		d := c.declarator(base)
		c.skipAttributes()
		if each(d) {
			return
		}
		if !c.accept(lexer.TokenComma) {
			break
		}
	}
	c.expect(lexer.TokenSemicolon)
}

func (c *Context) topLevelDeclarator(d declarator, attrs cabs.Attrs) bool {
	if d.name == "" {
		c.fatalf(d.loc, "declaration does not declare anything")
	}
	if attrs.IsTypedef {
		if c.is(lexer.TokenAssign) {
			c.fatalf(c.loc(), "You cannot assign a typedef")
		}
		t := c.defineTypedef(d)
		c.addTopLevel(cabs.Alloc(&c.ast, &cabs.GlobalDecl{Loc: d.loc, Name: d.name, Type: t, Attrs: attrs}))
		return false
	}
	if d.t.Unqualified().Kind == ctypes.KindFunc {
		if c.is(lexer.TokenLBrace) {
			c.functionDefinition(d, attrs)
			return true
		}
		c.functionPrototype(d, attrs)
		return false
	}
	c.globalVariable(d, attrs)
	return false
}

// functionDefinition records the function and skips its body for phase 3.
func (c *Context) functionDefinition(d declarator, attrs cabs.Attrs) {
	fn := cabs.Alloc(&c.ast, &cabs.FuncDecl{Loc: d.loc, Name: d.name, Type: d.t, Attrs: attrs})
	for _, p := range d.t.Unqualified().Func.Params {
		fn.Params = append(fn.Params, cabs.Alloc(&c.ast, &cabs.Decl{Loc: p.Loc, Name: p.Name, Type: p.Type, IsParam: true}))
	}

	class := symtab.Func
	if prev := c.g.globals.Find(d.name); prev != nil {
		switch {
		case !prev.Class.IsFunc():
			c.redefined(d.loc, prev.Loc, "'%s' redeclared as a different kind of symbol", d.name)
		case prev.Deferred:
			c.redefined(d.loc, prev.Loc, "Cannot redefine function declaration '%s'", d.name)
		case prev.Class == symtab.StaticFunc:
			fn.Attrs.IsStatic = true
		}
	}
	if fn.Attrs.IsStatic {
		class = symtab.StaticFunc
	}

	c.g.globals.Put(&symtab.Symbol{
		Name:       d.name,
		Type:       d.t,
		Class:      class,
		Loc:        d.loc,
		Pos:        c.s.Save(),
		Deferred:   true,
		Terminator: lexer.TokenRBrace,
		Stmt:       fn,
	})
	c.skipGroup()
	c.addTopLevel(fn)

	switch {
	case c.g.entryName != "" && d.name == c.g.entryName:
		c.g.tu.Entry = unit.EntryCustom
	case d.name == "main":
		c.g.tu.Entry = unit.EntryMain
	case d.name == "WinMain":
		c.g.tu.Entry = unit.EntryWinMain
	}
}

func (c *Context) functionPrototype(d declarator, attrs cabs.Attrs) {
	decl := cabs.Alloc(&c.ast, &cabs.GlobalDecl{Loc: d.loc, Name: d.name, Type: d.t, Attrs: attrs})
	c.addTopLevel(decl)
	if prev := c.g.globals.Find(d.name); prev != nil {
		if !prev.Class.IsFunc() {
			c.redefined(d.loc, prev.Loc, "'%s' redeclared as a different kind of symbol", d.name)
		}
		return
	}
	class := symtab.Func
	if attrs.IsStatic {
		class = symtab.StaticFunc
	}
	c.g.globals.Put(&symtab.Symbol{Name: d.name, Type: d.t, Class: class, Loc: d.loc, Stmt: decl})
}

// globalVariable records a file-scope variable. Its initializer is skipped
// and parsed in phase 2.
func (c *Context) globalVariable(d declarator, attrs cabs.Attrs) {
	decl := cabs.Alloc(&c.ast, &cabs.GlobalDecl{Loc: d.loc, Name: d.name, Type: d.t, Attrs: attrs})
	c.addTopLevel(decl)

	class := symtab.Global
	if attrs.IsStatic {
		class = symtab.StaticGlobal
	}
	sym := &symtab.Symbol{Name: d.name, Type: d.t, Class: class, Loc: d.loc, Stmt: decl}
	if c.accept(lexer.TokenAssign) {
		if attrs.IsExtern {
			c.warnf(d.loc, "'%s' initialized and declared 'extern'", d.name)
		}
		sym.Pos = c.s.Save()
		sym.Deferred = true
		sym.Terminator = c.skipInitializer()
	}

	if prev := c.g.globals.Find(d.name); prev != nil {
		switch {
		case prev.Class != symtab.Global && prev.Class != symtab.StaticGlobal:
			c.redefined(d.loc, prev.Loc, "'%s' redeclared as a different kind of symbol", d.name)
		case prev.Deferred && sym.Deferred:
			c.redefined(d.loc, prev.Loc, "redefinition of '%s'", d.name)
		case prev.Deferred:
			return
		}
	}
	c.g.globals.Put(sym)
}

// localDecl parses a block-scope declaration.
func (c *Context) localDecl() []cabs.Stmt {
	base, attrs := c.declSpec()
	if c.accept(lexer.TokenSemicolon) {
		return nil
	}
	var out []cabs.Stmt
	c.declList(base, func(d declarator) bool {
		out = append(out, c.localDeclarator(d, attrs))
		return false
	})
	return out
}

func (c *Context) localDeclarator(d declarator, attrs cabs.Attrs) cabs.Stmt {
	if d.name == "" {
		c.fatalf(d.loc, "declaration does not declare anything")
	}
	decl := cabs.Alloc(&c.ast, &cabs.Decl{Loc: d.loc, Name: d.name, Type: d.t, Attrs: attrs})
	if attrs.IsTypedef {
		if c.is(lexer.TokenAssign) {
			c.fatalf(c.loc(), "You cannot assign a typedef")
		}
		decl.Type = c.defineTypedef(d)
		return decl
	}

	class := symtab.Local
	if d.t.Unqualified().Kind == ctypes.KindFunc {
		class = symtab.Func
	}
	sym := &symtab.Symbol{Name: d.name, Type: d.t, Class: class, Loc: d.loc, Stmt: decl}
	c.locals.PushSymbol(sym)
	if c.accept(lexer.TokenAssign) {
		decl.Init = c.initializer(d.t)
		decl.Type = c.completeArray(decl.Type, decl.Init)
		sym.Type = decl.Type
	}
	if class == symtab.Local {
		c.layout(decl.Type)
	}
	return decl
}

// defineTypedef declares d as a typedef name in the current scope. At file
// scope it fills a placeholder left by an earlier use, and accepts a
// redefinition only with an identical type.
func (c *Context) defineTypedef(d declarator) *ctypes.Type {
	if c.local {
		t := c.g.types.New(ctypes.Type{Kind: ctypes.KindQualified, Base: d.t, AlsoKnownAs: d.name, Loc: d.loc})
		c.locals.PushSymbol(&symtab.Symbol{Name: d.name, Type: t, Class: symtab.Typedef, Loc: d.loc})
		return t
	}
	if prev := c.g.globals.Find(d.name); prev != nil {
		if prev.Class != symtab.Typedef {
			c.redefined(d.loc, prev.Loc, "'%s' redeclared as a different kind of symbol", d.name)
		}
		if prev.Type.Kind == ctypes.KindPlaceholder {
			*prev.Type = ctypes.Type{Kind: ctypes.KindQualified, Base: d.t, AlsoKnownAs: d.name, Loc: d.loc}
			prev.Loc = d.loc
			return prev.Type
		}
		if !ctypes.Equal(prev.Type, d.t) {
			c.redefined(d.loc, prev.Loc, "typedef '%s' redefined with a different type (%s vs %s)", d.name, d.t, prev.Type.Unqualified())
		}
		return prev.Type
	}
	t := c.g.types.New(ctypes.Type{Kind: ctypes.KindQualified, Base: d.t, AlsoKnownAs: d.name, Loc: d.loc})
	c.g.globals.Put(&symtab.Symbol{Name: d.name, Type: t, Class: symtab.Typedef, Loc: d.loc})
	return t
}

// placeholder stands in for a type name used before its typedef.
func (c *Context) placeholder(name string, loc lexer.Loc) *ctypes.Type {
	t := c.g.types.New(ctypes.Type{Kind: ctypes.KindPlaceholder, PlaceholderName: name, Loc: loc})
	c.g.globals.Put(&symtab.Symbol{Name: name, Type: t, Class: symtab.Typedef, Loc: loc})
	return t
}

func (c *Context) isTypeStart() bool {
	return c.isTypeStartAt(0)
}

func (c *Context) isTypeStartAt(n int) bool {
	tok := c.s.PeekN(n)
	switch tok.Type {
	case lexer.TokenVoid, lexer.TokenBool, lexer.TokenChar_, lexer.TokenShort, lexer.TokenInt_,
		lexer.TokenLong, lexer.TokenFloat_, lexer.TokenDouble, lexer.TokenSigned, lexer.TokenUnsigned,
		lexer.TokenStruct, lexer.TokenUnion, lexer.TokenEnum,
		lexer.TokenConst, lexer.TokenVolatile, lexer.TokenRestrict, lexer.TokenAtomic,
		lexer.TokenTypedef, lexer.TokenStatic, lexer.TokenExtern, lexer.TokenInline, lexer.TokenNoreturn,
		lexer.TokenThreadLocal, lexer.TokenAuto, lexer.TokenRegister, lexer.TokenAlignas, lexer.TokenAttribute:
		return true
	case lexer.TokenIdent:
		return c.isTypedefName(tok.Literal)
	}
	return false
}

// typeName parses a type with an abstract declarator, as in casts and sizeof.
func (c *Context) typeName() *ctypes.Type {
	base, _ := c.declSpec()
	return c.declarator(base).t
}

// declSpec parses declaration specifiers.
func (c *Context) declSpec() (*ctypes.Type, cabs.Attrs) {
	loc := c.loc()
	var (
		attrs                         cabs.Attrs
		t                             *ctypes.Type
		counter                       int
		isConst, isVolatile, isAtomic bool
		align                         int
		alignPos                      = -1
		sawAny                        bool
	)

loop:
	for {
		tok := c.peek()
		switch tok.Type {
		case lexer.TokenTypedef:
			attrs.IsTypedef = true
		case lexer.TokenStatic:
			attrs.IsStatic = true
		case lexer.TokenExtern:
			attrs.IsExtern = true
		case lexer.TokenInline:
			attrs.IsInline = true
		case lexer.TokenNoreturn:
			attrs.IsNoreturn = true
		case lexer.TokenThreadLocal:
			attrs.IsTLS = true
		case lexer.TokenAuto, lexer.TokenRegister, lexer.TokenRestrict:
		case lexer.TokenConst:
			isConst = true
		case lexer.TokenVolatile:
			isVolatile = true
		case lexer.TokenAtomic:
			isAtomic = true
			if c.isAt(1, lexer.TokenLParen) {
				if counter != 0 {
					c.fatalf(c.loc(), "cannot combine _Atomic(type) with another type")
				}
				c.next()
				c.next()
				t = c.typeName()
				c.expect(lexer.TokenRParen)
				counter += specOther
				sawAny = true
				continue
			}
		case lexer.TokenAttribute:
			c.skipAttributes()
			continue
		case lexer.TokenAlignas:
			align, alignPos = c.alignas()
			sawAny = true
			continue
		case lexer.TokenStruct, lexer.TokenUnion:
			if counter != 0 {
				break loop
			}
			t = c.recordSpecifier()
			counter += specOther
			sawAny = true
			continue
		case lexer.TokenEnum:
			if counter != 0 {
				break loop
			}
			t = c.enumSpecifier()
			counter += specOther
			sawAny = true
			continue
		case lexer.TokenIdent:
			if counter != 0 {
				break loop
			}
			sym := c.findSymbol(tok.Literal)
			switch {
			case sym != nil && sym.Class == symtab.Typedef:
				t = sym.Type
			case sym == nil && c.outOfOrder:
				t = c.placeholder(tok.Literal, c.loc())
			default:
				break loop
			}
			counter += specOther
		case lexer.TokenVoid:
			counter += specVoid
		case lexer.TokenBool:
			counter += specBool
		case lexer.TokenChar_:
			counter += specChar
		case lexer.TokenShort:
			counter += specShort
		case lexer.TokenInt_:
			counter += specInt
		case lexer.TokenLong:
			counter += specLong
		case lexer.TokenFloat_:
			counter += specFloat
		case lexer.TokenDouble:
			counter += specDouble
		case lexer.TokenSigned:
			counter |= specSigned
		case lexer.TokenUnsigned:
			counter |= specUnsigned
		default:
			break loop
		}
		sawAny = true
		c.next()
	}

	switch {
	case counter&specOther != 0:
		if counter != specOther {
			c.fatalf(loc, "invalid combination of type specifiers")
		}
	case counter == 0 && !sawAny:
		c.fatalf(loc, "expected a type, got %s", describe(c.peek()))
	default:
		t = c.builtinType(counter, loc)
	}

	if isConst || isVolatile || isAtomic || align != 0 {
		t = c.g.types.New(ctypes.Type{
			Kind:       ctypes.KindQualified,
			Base:       t,
			Loc:        loc,
			IsConst:    isConst,
			IsVolatile: isVolatile,
			IsAtomic:   isAtomic,
			Align:      align,
		})
		if alignPos >= 0 {
			c.g.aligns = append(c.g.aligns, pendingAlign{t: t, pos: alignPos, loc: loc})
		}
	}
	return t, attrs
}

func (c *Context) builtinType(counter int, loc lexer.Loc) *ctypes.Type {
	a := c.g.types
	unsigned := counter&specUnsigned != 0
	if unsigned && counter&specSigned != 0 {
		c.fatalf(loc, "cannot combine signed and unsigned")
	}
	switch counter &^ (specSigned | specUnsigned) {
	case specVoid:
		return a.Void()
	case specBool:
		return a.Builtin(ctypes.KindBool, false)
	case specChar:
		return a.Builtin(ctypes.KindChar, unsigned)
	case specShort, specShort + specInt:
		return a.Builtin(ctypes.KindShort, unsigned)
	case 0, specInt:
		return a.Builtin(ctypes.KindInt, unsigned)
	case specLong, specLong + specInt:
		return a.Builtin(ctypes.KindLong, unsigned)
	case 2 * specLong, 2*specLong + specInt:
		return a.Builtin(ctypes.KindLLong, unsigned)
	case specFloat:
		return a.Builtin(ctypes.KindFloat, false)
	case specDouble, specLong + specDouble:
		return a.Builtin(ctypes.KindDouble, false)
	}
	c.fatalf(loc, "invalid combination of type specifiers")
	return nil
}

// alignas parses _Alignas(...). It returns the alignment, or PendingAlign
// and the expression position when evaluation has to wait for phase 2.
func (c *Context) alignas() (int, int) {
	loc := c.loc()
	c.next()
	c.expect(lexer.TokenLParen)
	if c.isTypeStart() {
		t := c.typeName()
		c.layout(t)
		c.expect(lexer.TokenRParen)
		if t.Align <= 0 {
			c.Errorf(loc, "_Alignas cannot use incomplete type %s", t)
			return 0, -1
		}
		return t.Align, -1
	}
	if c.outOfOrder {
		pos := c.s.Save()
		c.skipExpr(lexer.TokenRParen)
		c.expect(lexer.TokenRParen)
		return ctypes.PendingAlign, pos
	}
	v := c.constInt()
	c.expect(lexer.TokenRParen)
	return c.checkAlign(loc, v), -1
}

func (c *Context) checkAlign(loc lexer.Loc, v int64) int {
	switch {
	case v == 0:
		c.Errorf(loc, "cannot apply an alignment of 0")
		return 0
	case v < 0 || v >= math.MaxInt16:
		c.Errorf(loc, "alignment %d is out of range", v)
		return 0
	}
	return int(v)
}

func (c *Context) resolveAlign(pa pendingAlign) {
	v, err := c.ConstExprAt(pa.pos, lexer.TokenRParen)
	if err != nil {
		pa.t.Align = 0
		return
	}
	pa.t.Align = c.checkAlign(pa.loc, v)
}

// declarator parses pointers, the declared name (or a parenthesized inner
// declarator) and array and function suffixes. The name may be absent.
func (c *Context) declarator(base *ctypes.Type) declarator {
	t := c.pointers(base)
	if c.is(lexer.TokenLParen) && !c.isParamListStart(1) {
		// the suffix after the parens binds tighter than the inner declarator
		open := c.s.Save()
		c.skipGroup()
		t = c.typeSuffix(t)
		end := c.s.Save()
		c.s.Restore(open + 1)
		d := c.declarator(t)
		c.expect(lexer.TokenRParen)
		c.s.Restore(end)
		return d
	}
	d := declarator{loc: c.loc()}
	if c.is(lexer.TokenIdent) {
		d.name = c.peek().Literal
		c.next()
	}
	d.t = c.typeSuffix(t)
	return d
}

// isParamListStart reports whether the paren at the cursor opens a
// parameter list rather than a nested declarator.
func (c *Context) isParamListStart(n int) bool {
	return c.isAt(n, lexer.TokenRParen) || c.isAt(n, lexer.TokenEllipsis) || c.isTypeStartAt(n)
}

func (c *Context) pointers(t *ctypes.Type) *ctypes.Type {
	for c.accept(lexer.TokenStar) {
		t = c.g.types.Pointer(t)
		var isConst, isVolatile, isAtomic bool
	quals:
		for {
			switch c.peek().Type {
			case lexer.TokenConst:
				isConst = true
			case lexer.TokenVolatile:
				isVolatile = true
			case lexer.TokenAtomic:
				isAtomic = true
			case lexer.TokenRestrict:
			case lexer.TokenAttribute:
				c.skipAttributes()
				continue
			default:
				break quals
			}
			c.next()
		}
		if isConst || isVolatile || isAtomic {
			t = c.g.types.New(ctypes.Type{Kind: ctypes.KindQualified, Base: t, IsConst: isConst, IsVolatile: isVolatile, IsAtomic: isAtomic})
		}
	}
	return t
}

func (c *Context) typeSuffix(t *ctypes.Type) *ctypes.Type {
	switch {
	case c.is(lexer.TokenLParen):
		return c.funcSuffix(t)
	case c.is(lexer.TokenLBracket):
		return c.arraySuffix(t)
	}
	return t
}

func (c *Context) funcSuffix(ret *ctypes.Type) *ctypes.Type {
	loc := c.loc()
	c.expect(lexer.TokenLParen)
	fn := &ctypes.Func{Return: ret}
	switch {
	case c.is(lexer.TokenVoid) && c.isAt(1, lexer.TokenRParen):
		c.next()
	case c.is(lexer.TokenRParen):
	default:
		for {
			if c.accept(lexer.TokenEllipsis) {
				fn.Variadic = true
				break
			}
			base, _ := c.declSpec()
			d := c.declarator(base)
			pt := d.t
			switch u := pt.Unqualified(); u.Kind {
			case ctypes.KindArray:
				pt = c.g.types.Pointer(u.Base)
			case ctypes.KindFunc:
				pt = c.g.types.Pointer(pt)
			}
			fn.Params = append(fn.Params, ctypes.Param{Name: d.name, Type: pt, Loc: d.loc})
			c.skipAttributes()
			if !c.accept(lexer.TokenComma) {
				break
			}
		}
	}
	c.expect(lexer.TokenRParen)
	if len(fn.Params) >= math.MaxInt16 {
		c.Errorf(loc, "too many parameters (%d), a function takes fewer than %d", len(fn.Params), math.MaxInt16)
	}
	return c.g.types.New(ctypes.Type{Kind: ctypes.KindFunc, Func: fn, Loc: loc})
}

func (c *Context) arraySuffix(elem *ctypes.Type) *ctypes.Type {
	arr := ctypes.Type{Kind: ctypes.KindArray, Loc: c.loc()}
	c.expect(lexer.TokenLBracket)
	for c.is(lexer.TokenStatic) || c.is(lexer.TokenConst) || c.is(lexer.TokenVolatile) || c.is(lexer.TokenRestrict) {
		c.next()
	}
	switch {
	case c.accept(lexer.TokenRBracket):
	case c.outOfOrder:
		arr.CountDeferred = true
		arr.ArrayCountPos = c.s.Save()
		c.skipExpr(lexer.TokenRBracket)
		c.expect(lexer.TokenRBracket)
	default:
		loc := c.loc()
		arr.ArrayCount = c.constInt()
		if arr.ArrayCount < 0 {
			c.Errorf(loc, "array count cannot be negative (%d)", arr.ArrayCount)
			arr.ArrayCount = 0
		}
		c.expect(lexer.TokenRBracket)
	}
	if c.is(lexer.TokenLBracket) {
		elem = c.arraySuffix(elem)
	}
	arr.Base = elem
	return c.g.types.New(arr)
}

// tagForDefinition returns the type a `{` body fills: an existing forward
// declaration of the same tag, or a fresh type.
func (c *Context) tagForDefinition(name string, kind ctypes.Kind, loc lexer.Loc) *ctypes.Type {
	if name != "" {
		var prev *ctypes.Type
		if c.local {
			prev = c.locals.FindTag(name)
		} else {
			prev = c.g.tags.Find(name)
		}
		if prev != nil {
			switch {
			case prev.Kind != kind:
				c.redefined(loc, prev.Loc, "'%s' defined as the wrong kind of tag", name)
			case prev.IsIncomplete:
				return prev
			case !c.local:
				c.redefined(loc, prev.Loc, "redefinition of '%s %s'", kind, name)
			}
		}
	}
	t := c.g.types.New(ctypes.Type{Kind: kind, IsIncomplete: true, Loc: loc})
	if kind == ctypes.KindEnum {
		t.Enum = &ctypes.Enum{Name: name}
	} else {
		t.Record = &ctypes.Record{Name: name}
	}
	if name != "" {
		c.defineTag(name, t)
	}
	return t
}

// tagReference resolves `struct S` without a body, declaring it when new.
func (c *Context) tagReference(name string, kind ctypes.Kind, loc lexer.Loc) *ctypes.Type {
	if name == "" {
		c.fatalf(loc, "expected a tag name or '{'")
	}
	if t := c.findTag(name); t != nil {
		if t.Kind != kind {
			c.redefined(loc, t.Loc, "'%s' defined as the wrong kind of tag", name)
		}
		return t
	}
	t := c.g.types.New(ctypes.Type{Kind: kind, IsIncomplete: true, Loc: loc})
	if kind == ctypes.KindEnum {
		t.Enum = &ctypes.Enum{Name: name}
	} else {
		t.Record = &ctypes.Record{Name: name}
	}
	c.defineTag(name, t)
	return t
}

func (c *Context) tagName() string {
	c.skipAttributes()
	name := ""
	if c.is(lexer.TokenIdent) {
		name = c.peek().Literal
		c.next()
	}
	c.skipAttributes()
	return name
}

func (c *Context) recordSpecifier() *ctypes.Type {
	loc := c.loc()
	kind := ctypes.KindStruct
	if c.is(lexer.TokenUnion) {
		kind = ctypes.KindUnion
	}
	c.next()
	name := c.tagName()
	if !c.is(lexer.TokenLBrace) {
		return c.tagReference(name, kind, loc)
	}

	t := c.tagForDefinition(name, kind, loc)
	c.next()
	members := c.recordMembers()
	c.expect(lexer.TokenRBrace)
	c.skipAttributes()

	t.Record.Members = members
	t.IsIncomplete = false
	t.Loc = loc
	if !c.outOfOrder {
		c.layout(t)
	}
	return t
}

func (c *Context) recordMembers() []ctypes.Member {
	var members []ctypes.Member
	for !c.is(lexer.TokenRBrace) {
		switch {
		case c.is(lexer.TokenEOF):
			c.fatalf(c.loc(), "expected '}', got end of file")
		case c.is(lexer.TokenStaticAssert):
			c.staticAssertDecl()
			continue
		case c.accept(lexer.TokenSemicolon):
			continue
		}

		loc := c.loc()
		base, _ := c.declSpec()
		if c.accept(lexer.TokenSemicolon) {
			if !base.Unqualified().Kind.IsRecord() {
				c.warnf(loc, "declaration does not declare anything")
				continue
			}
			members = append(members, ctypes.Member{Type: base, Loc: loc})
			continue
		}
		for {
			m := ctypes.Member{Type: base, Loc: c.loc()}
			if !c.is(lexer.TokenColon) {
				d := c.declarator(base)
				m.Name, m.Type, m.Loc = d.name, d.t, d.loc
			}
			if c.accept(lexer.TokenColon) {
				wloc := c.loc()
				width := c.constInt()
				if width < 0 {
					c.Errorf(wloc, "bitfield width cannot be negative (%d)", width)
					width = 0
				}
				m.IsBitfield = true
				m.BitWidth = int(width)
			}
			c.skipAttributes()
			members = append(members, m)
			if !c.accept(lexer.TokenComma) {
				break
			}
		}
		c.expect(lexer.TokenSemicolon)
	}
	return members
}

// enumSpecifier parses an enum. Enumerator values are never evaluated
// here; Layout evaluates them in order from their recorded positions.
func (c *Context) enumSpecifier() *ctypes.Type {
	loc := c.loc()
	c.next()
	name := c.tagName()
	if !c.is(lexer.TokenLBrace) {
		return c.tagReference(name, ctypes.KindEnum, loc)
	}

	t := c.tagForDefinition(name, ctypes.KindEnum, loc)
	c.next()
	for !c.is(lexer.TokenRBrace) {
		ident, iloc := c.expectIdent()
		e := ctypes.Enumerator{Name: ident, Loc: iloc}
		if c.accept(lexer.TokenAssign) {
			e.HasExpr = true
			e.ExprPos = c.s.Save()
			c.skipExpr(lexer.TokenComma, lexer.TokenRBrace)
		}
		t.Enum.Entries = append(t.Enum.Entries, e)
		c.defineEnumerator(ident, iloc, t, len(t.Enum.Entries)-1)
		if !c.accept(lexer.TokenComma) {
			break
		}
	}
	c.expect(lexer.TokenRBrace)
	c.skipAttributes()

	t.IsIncomplete = false
	t.Loc = loc
	if !c.outOfOrder {
		c.layout(t)
	}
	return t
}

func (c *Context) defineEnumerator(name string, loc lexer.Loc, t *ctypes.Type, index int) {
	sym := &symtab.Symbol{Name: name, Type: t, Class: symtab.Enum, Loc: loc, EnumIndex: index}
	if c.local {
		c.locals.PushSymbol(sym)
		return
	}
	if prev := c.g.globals.Find(name); prev != nil {
		c.redefined(loc, prev.Loc, "redefinition of '%s'", name)
	}
	c.g.globals.Put(sym)
}

// staticAssertDecl handles _Static_assert. During the skeleton scan it is
// only recorded; phase 2 evaluates it once every type is known.
func (c *Context) staticAssertDecl() {
	c.next()
	if c.outOfOrder {
		c.g.staticAsserts = append(c.g.staticAsserts, c.s.Save())
		if !c.is(lexer.TokenLParen) {
			c.fatalf(c.loc(), "expected '(' after _Static_assert")
		}
		c.skipGroup()
	} else {
		c.staticAssertBody()
	}
	c.expect(lexer.TokenSemicolon)
}

// staticAssertBody evaluates `(cond [, "msg"])` at the cursor.
func (c *Context) staticAssertBody() {
	loc := c.loc()
	c.expect(lexer.TokenLParen)
	cond := c.conditional()
	msg, hasMsg := "", false
	if c.accept(lexer.TokenComma) {
		if !c.is(lexer.TokenString) {
			c.fatalf(c.loc(), "static assertion message must be a string literal")
		}
		msg, hasMsg = c.stringLiteral().Value, true
	}
	c.expect(lexer.TokenRParen)

	v, err := c.eval.Eval(cond)
	if err != nil || !v.IsZero() {
		return
	}
	if hasMsg {
		c.Errorf(loc, "Static assertion failed: %s", msg)
	} else {
		c.Errorf(loc, "Static assertion failed")
	}
}
