// Package cabs defines the abstract syntax tree built by the parser.
package cabs

import (
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
)

// Node is the base interface for all AST nodes
type Node interface {
	Pos() lexer.Loc
	implCabsNode()
}

// Expr is the interface for all expression nodes
type Expr interface {
	Node
	implCabsExpr()
}

// Stmt is the interface for all statement nodes
type Stmt interface {
	Node
	implCabsStmt()
}

// BinaryOp represents binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd // &&
	OpOr  // ||
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl // <<
	OpShr // >>
	OpComma
	OpAssign
)

func (op BinaryOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "<", "<=", ">", ">=", "==", "!=", "&&", "||", "&", "|", "^", "<<", ">>", ",", "="}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// UnaryOp represents unary operators
type UnaryOp int

const (
	OpNeg     UnaryOp = iota // -
	OpPlus                   // +
	OpNot                    // !
	OpBitNot                 // ~
	OpAddrOf                 // &
	OpDeref                  // *
	OpPreInc                 // ++x
	OpPreDec                 // --x
	OpPostInc                // x++
	OpPostDec                // x--
)

func (op UnaryOp) String() string {
	names := []string{"-", "+", "!", "~", "&", "*", "++", "--", "++", "--"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Attrs are the storage and function specifiers of a declaration.
type Attrs struct {
	IsStatic   bool
	IsExtern   bool
	IsTypedef  bool
	IsInline   bool
	IsTLS      bool
	IsNoreturn bool
	// IsRoot marks declarations that must be kept even when unreferenced.
	IsRoot bool
}

// IntLit is an integer constant with its suffix.
type IntLit struct {
	Loc    lexer.Loc
	Value  uint64
	Suffix lexer.IntSuffix
}

// CharLit is a character constant.
type CharLit struct {
	Loc   lexer.Loc
	Value int64
	Wide  bool
}

// FloatLit is a floating constant.
type FloatLit struct {
	Loc    lexer.Loc
	Value  float64
	Single bool
}

// StringLit is a (possibly concatenated) string literal without quotes.
type StringLit struct {
	Loc   lexer.Loc
	Value string
	Wide  bool
}

// Ident references a declaration. Decl is nil while the name is still
// unresolved; Next threads every Ident created inside one function body.
type Ident struct {
	Loc  lexer.Loc
	Name string
	Decl Stmt
	Next *Ident
}

// EnumConst references an enumerator. Its value is known once the enum
// has been laid out.
type EnumConst struct {
	Loc   lexer.Loc
	Name  string
	Type  *ctypes.Type
	Index int
}

// Value returns the enumerator's value.
func (e *EnumConst) Value() int64 {
	return e.Type.Enum.Entries[e.Index].Value
}

// Unary represents a unary expression
type Unary struct {
	Loc lexer.Loc
	Op  UnaryOp
	X   Expr
}

// Binary represents a binary expression
type Binary struct {
	Loc   lexer.Loc
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Assign is a plain (Op == OpAssign) or compound assignment.
type Assign struct {
	Loc   lexer.Loc
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Cast converts X to Type.
type Cast struct {
	Loc  lexer.Loc
	Type *ctypes.Type
	X    Expr
}

// Member is x.name or x->name.
type Member struct {
	Loc     lexer.Loc
	X       Expr
	Name    string
	IsArrow bool
}

// Ternary represents the conditional operator: cond ? then : else
type Ternary struct {
	Loc  lexer.Loc
	Cond Expr
	Then Expr
	Else Expr
}

// Call represents a function call
type Call struct {
	Loc  lexer.Loc
	Func Expr
	Args []Expr
}

// Index represents array subscript access: arr[idx]
type Index struct {
	Loc   lexer.Loc
	Array Expr
	Index Expr
}

// Sizeof is sizeof or _Alignof applied to either a type or an expression.
type Sizeof struct {
	Loc       lexer.Loc
	Type      *ctypes.Type // nil when X is set
	X         Expr
	IsAlignof bool
}

// FuncLit is the `@(params) { body }` function literal extension.
type FuncLit struct {
	Loc    lexer.Loc
	Type   *ctypes.Type
	Params []*Decl
	Body   *Compound
	First  *Ident
}

// Designator is one `.field` or `[index]` step of a designated initializer.
type Designator struct {
	Field string
	Index Expr
}

// InitItem is one element of a brace initializer.
type InitItem struct {
	Designators []Designator
	Value       Expr
}

// InitList is a brace initializer; Type is set for compound literals.
type InitList struct {
	Loc   lexer.Loc
	Type  *ctypes.Type
	Items []InitItem
}

// Compound is a block.
type Compound struct {
	Loc   lexer.Loc
	Items []Stmt
}

// If represents an if statement
type If struct {
	Loc  lexer.Loc
	Cond Expr
	Then Stmt
	Else Stmt
}

// Switch heads a chain of its Case/Default labels in source order.
type Switch struct {
	Loc  lexer.Loc
	Cond Expr
	Body Stmt
	Next Stmt
}

// Case is one `case Key:` label.
type Case struct {
	Loc  lexer.Loc
	Key  int64
	Body Stmt
	Next Stmt
}

// Default is the `default:` label.
type Default struct {
	Loc  lexer.Loc
	Body Stmt
	Next Stmt
}

// While represents a while loop
type While struct {
	Loc  lexer.Loc
	Cond Expr
	Body Stmt
}

// DoWhile represents a do-while loop
type DoWhile struct {
	Loc  lexer.Loc
	Body Stmt
	Cond Expr
}

// For represents a for loop; Init is a declaration or expression statement.
type For struct {
	Loc  lexer.Loc
	Init Stmt
	Cond Expr
	Post Expr
	Body Stmt
}

// Goto jumps to Target, which may still be an unplaced label.
type Goto struct {
	Loc    lexer.Loc
	Target *Label
}

// Label is a jump target. Placed is false while only gotos have named it.
type Label struct {
	Loc    lexer.Loc
	Name   string
	Placed bool
}

// Return represents a return statement
type Return struct {
	Loc lexer.Loc
	X   Expr // nil for bare return
}

// Break leaves Target (a loop or switch).
type Break struct {
	Loc    lexer.Loc
	Target Stmt
}

// Continue resumes Target (a loop).
type Continue struct {
	Loc    lexer.Loc
	Target Stmt
}

// ExprStmt is an expression statement; X is nil for `;`.
type ExprStmt struct {
	Loc lexer.Loc
	X   Expr
}

// Decl is a local variable, parameter or local typedef.
type Decl struct {
	Loc     lexer.Loc
	Name    string
	Type    *ctypes.Type
	Attrs   Attrs
	Init    Expr
	IsParam bool
}

// GlobalDecl is a file-scope declaration that is not a function definition:
// variables, prototypes, typedefs and tag-only declarations. First roots the
// chain of Idents created while parsing Init.
type GlobalDecl struct {
	Loc   lexer.Loc
	Name  string
	Type  *ctypes.Type
	Attrs Attrs
	Init  Expr
	First *Ident
}

// FuncDecl is a function definition. First roots the chain of every Ident
// created while parsing the body.
type FuncDecl struct {
	Loc    lexer.Loc
	Name   string
	Type   *ctypes.Type
	Attrs  Attrs
	Params []*Decl
	Body   *Compound
	First  *Ident
}

func (e *IntLit) Pos() lexer.Loc     { return e.Loc }
func (e *CharLit) Pos() lexer.Loc    { return e.Loc }
func (e *FloatLit) Pos() lexer.Loc   { return e.Loc }
func (e *StringLit) Pos() lexer.Loc  { return e.Loc }
func (e *Ident) Pos() lexer.Loc      { return e.Loc }
func (e *EnumConst) Pos() lexer.Loc  { return e.Loc }
func (e *Unary) Pos() lexer.Loc      { return e.Loc }
func (e *Binary) Pos() lexer.Loc     { return e.Loc }
func (e *Assign) Pos() lexer.Loc     { return e.Loc }
func (e *Cast) Pos() lexer.Loc       { return e.Loc }
func (e *Member) Pos() lexer.Loc     { return e.Loc }
func (e *Ternary) Pos() lexer.Loc    { return e.Loc }
func (e *Call) Pos() lexer.Loc       { return e.Loc }
func (e *Index) Pos() lexer.Loc      { return e.Loc }
func (e *Sizeof) Pos() lexer.Loc     { return e.Loc }
func (e *FuncLit) Pos() lexer.Loc    { return e.Loc }
func (e *InitList) Pos() lexer.Loc   { return e.Loc }
func (s *Compound) Pos() lexer.Loc   { return s.Loc }
func (s *If) Pos() lexer.Loc         { return s.Loc }
func (s *Switch) Pos() lexer.Loc     { return s.Loc }
func (s *Case) Pos() lexer.Loc       { return s.Loc }
func (s *Default) Pos() lexer.Loc    { return s.Loc }
func (s *While) Pos() lexer.Loc      { return s.Loc }
func (s *DoWhile) Pos() lexer.Loc    { return s.Loc }
func (s *For) Pos() lexer.Loc        { return s.Loc }
func (s *Goto) Pos() lexer.Loc       { return s.Loc }
func (s *Label) Pos() lexer.Loc      { return s.Loc }
func (s *Return) Pos() lexer.Loc     { return s.Loc }
func (s *Break) Pos() lexer.Loc      { return s.Loc }
func (s *Continue) Pos() lexer.Loc   { return s.Loc }
func (s *ExprStmt) Pos() lexer.Loc   { return s.Loc }
func (s *Decl) Pos() lexer.Loc       { return s.Loc }
func (s *GlobalDecl) Pos() lexer.Loc { return s.Loc }
func (s *FuncDecl) Pos() lexer.Loc   { return s.Loc }

// Marker methods for interface implementation
func (*IntLit) implCabsNode()    {}
func (*IntLit) implCabsExpr()    {}
func (*CharLit) implCabsNode()   {}
func (*CharLit) implCabsExpr()   {}
func (*FloatLit) implCabsNode()  {}
func (*FloatLit) implCabsExpr()  {}
func (*StringLit) implCabsNode() {}
func (*StringLit) implCabsExpr() {}
func (*Ident) implCabsNode()     {}
func (*Ident) implCabsExpr()     {}
func (*EnumConst) implCabsNode() {}
func (*EnumConst) implCabsExpr() {}
func (*Unary) implCabsNode()     {}
func (*Unary) implCabsExpr()     {}
func (*Binary) implCabsNode()    {}
func (*Binary) implCabsExpr()    {}
func (*Assign) implCabsNode()    {}
func (*Assign) implCabsExpr()    {}
func (*Cast) implCabsNode()      {}
func (*Cast) implCabsExpr()      {}
func (*Member) implCabsNode()    {}
func (*Member) implCabsExpr()    {}
func (*Ternary) implCabsNode()   {}
func (*Ternary) implCabsExpr()   {}
func (*Call) implCabsNode()      {}
func (*Call) implCabsExpr()      {}
func (*Index) implCabsNode()     {}
func (*Index) implCabsExpr()     {}
func (*Sizeof) implCabsNode()    {}
func (*Sizeof) implCabsExpr()    {}
func (*FuncLit) implCabsNode()   {}
func (*FuncLit) implCabsExpr()   {}
func (*InitList) implCabsNode()  {}
func (*InitList) implCabsExpr()  {}

func (*Compound) implCabsNode()   {}
func (*Compound) implCabsStmt()   {}
func (*If) implCabsNode()         {}
func (*If) implCabsStmt()         {}
func (*Switch) implCabsNode()     {}
func (*Switch) implCabsStmt()     {}
func (*Case) implCabsNode()       {}
func (*Case) implCabsStmt()       {}
func (*Default) implCabsNode()    {}
func (*Default) implCabsStmt()    {}
func (*While) implCabsNode()      {}
func (*While) implCabsStmt()      {}
func (*DoWhile) implCabsNode()    {}
func (*DoWhile) implCabsStmt()    {}
func (*For) implCabsNode()        {}
func (*For) implCabsStmt()        {}
func (*Goto) implCabsNode()       {}
func (*Goto) implCabsStmt()       {}
func (*Label) implCabsNode()      {}
func (*Label) implCabsStmt()      {}
func (*Return) implCabsNode()     {}
func (*Return) implCabsStmt()     {}
func (*Break) implCabsNode()      {}
func (*Break) implCabsStmt()      {}
func (*Continue) implCabsNode()   {}
func (*Continue) implCabsStmt()   {}
func (*ExprStmt) implCabsNode()   {}
func (*ExprStmt) implCabsStmt()   {}
func (*Decl) implCabsNode()       {}
func (*Decl) implCabsStmt()       {}
func (*GlobalDecl) implCabsNode() {}
func (*GlobalDecl) implCabsStmt() {}
func (*FuncDecl) implCabsNode()   {}
func (*FuncDecl) implCabsStmt()   {}
