package cabs

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/cfront/pkg/ctypes"
)

// Printer outputs the AST in a C-like, human-readable format
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// PrintTopLevel prints every top-level statement of a translation unit
func (p *Printer) PrintTopLevel(stmts []Stmt) {
	for _, s := range stmts {
		p.PrintStmt(s)
	}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func attrPrefix(a Attrs) string {
	var b strings.Builder
	if a.IsTypedef {
		b.WriteString("typedef ")
	}
	if a.IsExtern {
		b.WriteString("extern ")
	}
	if a.IsStatic {
		b.WriteString("static ")
	}
	if a.IsTLS {
		b.WriteString("_Thread_local ")
	}
	if a.IsInline {
		b.WriteString("inline ")
	}
	return b.String()
}

func (p *Printer) printFuncDecl(f *FuncDecl) {
	ret := "int"
	variadic := false
	if f.Type != nil && f.Type.Func != nil {
		ret = f.Type.Func.Return.String()
		variadic = f.Type.Func.Variadic
	}
	fmt.Fprintf(p.w, "%s%s %s(", attrPrefix(f.Attrs), ret, f.Name)
	p.printParams(f.Params, variadic)
	if f.Body == nil {
		fmt.Fprintln(p.w, ");")
		return
	}
	fmt.Fprintln(p.w, ")")
	p.printBlock(f.Body)
}

func (p *Printer) printParams(params []*Decl, variadic bool) {
	for i, param := range params {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprint(p.w, declString(param.Type, param.Name))
	}
	if variadic {
		if len(params) > 0 {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprint(p.w, "...")
	}
}

// declString renders `type name` with array and pointer suffixes kept on the type.
func declString(t *ctypes.Type, name string) string {
	if name == "" {
		return t.String()
	}
	return t.String() + " " + name
}

func (p *Printer) printBlock(b *Compound) {
	p.writeIndent()
	fmt.Fprintln(p.w, "{")
	p.indent++
	for _, stmt := range b.Items {
		p.PrintStmt(stmt)
	}
	p.indent--
	p.writeIndent()
	fmt.Fprintln(p.w, "}")
}

// PrintStmt prints one statement, including declarations.
func (p *Printer) PrintStmt(stmt Stmt) {
	if b, ok := stmt.(*Compound); ok {
		p.printBlock(b)
		return
	}
	p.writeIndent()
	switch s := stmt.(type) {
	case *FuncDecl:
		p.printFuncDecl(s)
	case *GlobalDecl:
		fmt.Fprint(p.w, attrPrefix(s.Attrs)+declString(s.Type, s.Name))
		if s.Init != nil {
			fmt.Fprint(p.w, " = ")
			p.printExpr(s.Init)
		}
		fmt.Fprintln(p.w, ";")
	case *Decl:
		fmt.Fprint(p.w, attrPrefix(s.Attrs)+declString(s.Type, s.Name))
		if s.Init != nil {
			fmt.Fprint(p.w, " = ")
			p.printExpr(s.Init)
		}
		fmt.Fprintln(p.w, ";")
	case *Return:
		fmt.Fprint(p.w, "return")
		if s.X != nil {
			fmt.Fprint(p.w, " ")
			p.printExpr(s.X)
		}
		fmt.Fprintln(p.w, ";")
	case *ExprStmt:
		if s.X != nil {
			p.printExpr(s.X)
		}
		fmt.Fprintln(p.w, ";")
	case *If:
		fmt.Fprint(p.w, "if (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ")")
		p.printNested(s.Then)
		if s.Else != nil {
			p.writeIndent()
			fmt.Fprintln(p.w, "else")
			p.printNested(s.Else)
		}
	case *While:
		fmt.Fprint(p.w, "while (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ")")
		p.printNested(s.Body)
	case *DoWhile:
		fmt.Fprintln(p.w, "do")
		p.printNested(s.Body)
		p.writeIndent()
		fmt.Fprint(p.w, "while (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ");")
	case *For:
		fmt.Fprint(p.w, "for (")
		switch init := s.Init.(type) {
		case *Decl:
			fmt.Fprint(p.w, declString(init.Type, init.Name))
			if init.Init != nil {
				fmt.Fprint(p.w, " = ")
				p.printExpr(init.Init)
			}
		case *Compound:
			for i, item := range init.Items {
				if i > 0 {
					fmt.Fprint(p.w, ", ")
				}
				switch d := item.(type) {
				case *Decl:
					fmt.Fprint(p.w, declString(d.Type, d.Name))
					if d.Init != nil {
						fmt.Fprint(p.w, " = ")
						p.printExpr(d.Init)
					}
				case *ExprStmt:
					if d.X != nil {
						p.printExpr(d.X)
					}
				}
			}
		case *ExprStmt:
			if init.X != nil {
				p.printExpr(init.X)
			}
		}
		fmt.Fprint(p.w, "; ")
		if s.Cond != nil {
			p.printExpr(s.Cond)
		}
		fmt.Fprint(p.w, "; ")
		if s.Post != nil {
			p.printExpr(s.Post)
		}
		fmt.Fprintln(p.w, ")")
		p.printNested(s.Body)
	case *Break:
		fmt.Fprintln(p.w, "break;")
	case *Continue:
		fmt.Fprintln(p.w, "continue;")
	case *Switch:
		fmt.Fprint(p.w, "switch (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ")")
		p.printNested(s.Body)
	case *Case:
		fmt.Fprintf(p.w, "case %d:\n", s.Key)
		p.printNested(s.Body)
	case *Default:
		fmt.Fprintln(p.w, "default:")
		p.printNested(s.Body)
	case *Goto:
		fmt.Fprintf(p.w, "goto %s;\n", s.Target.Name)
	case *Label:
		fmt.Fprintf(p.w, "%s:\n", s.Name)
	default:
		fmt.Fprintf(p.w, "/* unknown stmt %T */;\n", stmt)
	}
}

func (p *Printer) printNested(s Stmt) {
	if s == nil {
		return
	}
	if _, ok := s.(*Compound); ok {
		p.PrintStmt(s)
		return
	}
	p.indent++
	p.PrintStmt(s)
	p.indent--
}

func (p *Printer) printExpr(expr Expr) {
	switch e := expr.(type) {
	case *IntLit:
		fmt.Fprintf(p.w, "%d", e.Value)
		if e.Suffix.Unsigned() {
			fmt.Fprint(p.w, "u")
		}
	case *CharLit:
		fmt.Fprintf(p.w, "%d", e.Value)
	case *FloatLit:
		fmt.Fprintf(p.w, "%g", e.Value)
	case *StringLit:
		fmt.Fprintf(p.w, "%q", e.Value)
	case *Ident:
		fmt.Fprint(p.w, e.Name)
	case *EnumConst:
		fmt.Fprint(p.w, e.Name)
	case *Unary:
		p.printUnary(e)
	case *Binary:
		p.printOperand(e.Left)
		if e.Op == OpComma {
			fmt.Fprint(p.w, ", ")
		} else {
			fmt.Fprintf(p.w, " %s ", e.Op)
		}
		p.printOperand(e.Right)
	case *Assign:
		p.printOperand(e.Left)
		if e.Op == OpAssign {
			fmt.Fprint(p.w, " = ")
		} else {
			fmt.Fprintf(p.w, " %s= ", e.Op)
		}
		p.printOperand(e.Right)
	case *Ternary:
		p.printOperand(e.Cond)
		fmt.Fprint(p.w, " ? ")
		p.printOperand(e.Then)
		fmt.Fprint(p.w, " : ")
		p.printOperand(e.Else)
	case *Call:
		p.printOperand(e.Func)
		fmt.Fprint(p.w, "(")
		for i, arg := range e.Args {
			if i > 0 {
				fmt.Fprint(p.w, ", ")
			}
			p.printExpr(arg)
		}
		fmt.Fprint(p.w, ")")
	case *Index:
		p.printOperand(e.Array)
		fmt.Fprint(p.w, "[")
		p.printExpr(e.Index)
		fmt.Fprint(p.w, "]")
	case *Member:
		p.printOperand(e.X)
		if e.IsArrow {
			fmt.Fprint(p.w, "->")
		} else {
			fmt.Fprint(p.w, ".")
		}
		fmt.Fprint(p.w, e.Name)
	case *Sizeof:
		op := "sizeof"
		if e.IsAlignof {
			op = "_Alignof"
		}
		if e.Type != nil {
			fmt.Fprintf(p.w, "%s(%s)", op, e.Type)
		} else {
			fmt.Fprint(p.w, op+" ")
			p.printOperand(e.X)
		}
	case *Cast:
		fmt.Fprintf(p.w, "(%s)", e.Type)
		p.printOperand(e.X)
	case *InitList:
		if e.Type != nil {
			fmt.Fprintf(p.w, "(%s)", e.Type)
		}
		fmt.Fprint(p.w, "{")
		for i, it := range e.Items {
			if i > 0 {
				fmt.Fprint(p.w, ", ")
			}
			for _, d := range it.Designators {
				if d.Index != nil {
					fmt.Fprint(p.w, "[")
					p.printExpr(d.Index)
					fmt.Fprint(p.w, "]")
				} else {
					fmt.Fprint(p.w, "."+d.Field)
				}
			}
			if len(it.Designators) > 0 {
				fmt.Fprint(p.w, " = ")
			}
			p.printExpr(it.Value)
		}
		fmt.Fprint(p.w, "}")
	case *FuncLit:
		fmt.Fprint(p.w, "@(")
		variadic := e.Type != nil && e.Type.Func != nil && e.Type.Func.Variadic
		p.printParams(e.Params, variadic)
		fmt.Fprintln(p.w, ")")
		p.indent++
		p.printBlock(e.Body)
		p.indent--
		p.writeIndent()
	default:
		fmt.Fprintf(p.w, "/* unknown expr %T */", expr)
	}
}

// printOperand parenthesizes compound operands so precedence survives.
func (p *Printer) printOperand(e Expr) {
	switch e.(type) {
	case *Binary, *Assign, *Ternary, *Cast:
		fmt.Fprint(p.w, "(")
		p.printExpr(e)
		fmt.Fprint(p.w, ")")
	default:
		p.printExpr(e)
	}
}

func (p *Printer) printUnary(u *Unary) {
	switch u.Op {
	case OpPostInc, OpPostDec:
		p.printOperand(u.X)
		fmt.Fprint(p.w, u.Op.String())
	default:
		fmt.Fprint(p.w, u.Op.String())
		p.printOperand(u.X)
	}
}
