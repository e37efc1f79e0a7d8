// Package symtab holds the scoped symbol and tag tables used while parsing.
//
// Globals live in hash tables that keep insertion order, so later phases
// can partition them into batches. Locals live in stacks that are cut back
// to a saved height when a scope ends.
package symtab

import (
	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
)

// Class is the storage class of a symbol.
type Class int

const (
	Global Class = iota
	StaticGlobal
	Func
	StaticFunc
	Local
	Param
	Typedef
	Enum
)

func (c Class) String() string {
	names := []string{"global", "static global", "function", "static function", "local", "parameter", "typedef", "enumerator"}
	if int(c) < len(names) {
		return names[c]
	}
	return "?"
}

// IsFunc reports whether c names a function.
func (c Class) IsFunc() bool {
	return c == Func || c == StaticFunc
}

// Symbol is what an identifier resolves to.
type Symbol struct {
	Name  string
	Type  *ctypes.Type
	Class Class
	Loc   lexer.Loc

	// Pos is the token position of a deferred body or initializer and
	// Terminator the token that ends it.
	Pos        int
	Deferred   bool
	Terminator lexer.TokenType

	// Stmt is the declaration node that owns the symbol.
	Stmt cabs.Stmt

	ParamIndex int
	// EnumIndex selects the entry of Type for Enum symbols.
	EnumIndex int
}

// SymbolTable is an insertion-ordered hash table of global symbols.
type SymbolTable struct {
	index map[string]int
	list  []*Symbol
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]int)}
}

// Put inserts s, or replaces the symbol of the same name in place. It
// returns the symbol that was replaced, if any.
func (t *SymbolTable) Put(s *Symbol) *Symbol {
	if i, ok := t.index[s.Name]; ok {
		prev := t.list[i]
		t.list[i] = s
		return prev
	}
	t.index[s.Name] = len(t.list)
	t.list = append(t.list, s)
	return nil
}

// Find looks a symbol up by name.
func (t *SymbolTable) Find(name string) *Symbol {
	if i, ok := t.index[name]; ok {
		return t.list[i]
	}
	return nil
}

// At returns the i-th symbol in insertion order.
func (t *SymbolTable) At(i int) *Symbol {
	return t.list[i]
}

// Len returns the number of symbols.
func (t *SymbolTable) Len() int {
	return len(t.list)
}

// Symbols returns the symbols in insertion order. The slice is shared.
func (t *SymbolTable) Symbols() []*Symbol {
	return t.list
}

// TagTable maps struct, union and enum tags to their types.
type TagTable struct {
	m map[string]*ctypes.Type
}

// NewTagTable creates an empty table.
func NewTagTable() *TagTable {
	return &TagTable{m: make(map[string]*ctypes.Type)}
}

// Put binds name to t.
func (t *TagTable) Put(name string, typ *ctypes.Type) {
	t.m[name] = typ
}

// Find returns the type bound to name, or nil.
func (t *TagTable) Find(name string) *ctypes.Type {
	return t.m[name]
}

// Len returns the number of tags.
func (t *TagTable) Len() int {
	return len(t.m)
}
