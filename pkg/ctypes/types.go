// Package ctypes defines the C type graph and the layout engine that sizes it.
package ctypes

import (
	"fmt"
	"strings"
	"sync"

	"github.com/raymyers/cfront/pkg/lexer"
)

// Kind discriminates Type.
type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindChar
	KindShort
	KindInt
	KindLong
	KindLLong
	KindFloat
	KindDouble
	KindPtr
	KindArray
	KindFunc
	KindStruct
	KindUnion
	KindEnum
	KindQualified
	KindPlaceholder
)

func (k Kind) String() string {
	names := []string{"void", "_Bool", "char", "short", "int", "long", "long long", "float", "double",
		"pointer", "array", "function", "struct", "union", "enum", "qualified", "placeholder"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// IsInteger reports whether k is an integer kind (including _Bool and enums).
func (k Kind) IsInteger() bool {
	return (k >= KindBool && k <= KindLLong) || k == KindEnum
}

// IsRecord reports whether k is a struct or union.
func (k Kind) IsRecord() bool {
	return k == KindStruct || k == KindUnion
}

// PendingAlign marks a type whose _Alignas expression is not evaluated yet.
const PendingAlign = -1

// Type is a node in the type graph. Size zero means "not laid out yet".
type Type struct {
	Kind     Kind
	Size     int
	Align    int
	Unsigned bool
	Loc      lexer.Loc

	IsConst      bool
	IsVolatile   bool
	IsAtomic     bool
	IsIncomplete bool

	// AlsoKnownAs is the typedef name this type was introduced under.
	AlsoKnownAs string

	// Ordinal is a dense index over struct/union types used by the cycle check.
	Ordinal int

	// Base is the pointee, the array element, or the qualified/aliased type.
	Base *Type

	// Array count, or a deferred token position holding its expression.
	ArrayCount    int64
	ArrayCountPos int
	CountDeferred bool

	Func   *Func
	Record *Record
	Enum   *Enum

	PlaceholderName string

	inProgress bool
	// laidOut is set once layout finished; a zero-sized record such as
	// `struct E {}` is laid out too. layoutErr keeps a fatal layout error
	// so later calls return it without reporting again.
	laidOut   bool
	layoutErr error
}

// LaidOut reports whether layout has finished for t.
func (t *Type) LaidOut() bool {
	return t.laidOut
}

// Member is a struct/union field.
type Member struct {
	Name   string
	Type   *Type
	Loc    lexer.Loc
	Offset int
	Align  int

	IsBitfield bool
	BitOffset  int
	BitWidth   int
}

// Record holds struct/union members.
type Record struct {
	Name    string
	Members []Member
}

// Enumerator is one enum constant. ExprPos is the token position of an
// explicit value expression when HasExpr is set.
type Enumerator struct {
	Name    string
	Value   int64
	Loc     lexer.Loc
	ExprPos int
	HasExpr bool
}

// Enum holds enumerators in declaration order.
type Enum struct {
	Name    string
	Entries []Enumerator
}

// Param is a function parameter.
type Param struct {
	Name string
	Type *Type
	Loc  lexer.Loc
}

// Func holds a function signature.
type Func struct {
	Return   *Type
	Params   []Param
	Variadic bool
}

// InProgress reports whether the type is currently being laid out.
func (t *Type) InProgress() bool {
	return t.inProgress
}

// Unqualified follows alias/qualified links down to the underlying type.
func (t *Type) Unqualified() *Type {
	for t != nil && t.Kind == KindQualified {
		t = t.Base
	}
	return t
}

// FindMember looks up a member by name, descending into anonymous
// struct/union members. The returned offset is relative to t.
func (t *Type) FindMember(name string) (*Member, int, bool) {
	t = t.Unqualified()
	if t == nil || t.Record == nil {
		return nil, 0, false
	}
	for i := range t.Record.Members {
		m := &t.Record.Members[i]
		if m.Name == name {
			return m, m.Offset, true
		}
		if m.Name == "" && m.Type.Unqualified().Kind.IsRecord() {
			if inner, off, ok := m.Type.FindMember(name); ok {
				return inner, m.Offset + off, true
			}
		}
	}
	return nil, 0, false
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	var b strings.Builder
	if t.IsConst {
		b.WriteString("const ")
	}
	if t.IsVolatile {
		b.WriteString("volatile ")
	}
	if t.IsAtomic {
		b.WriteString("_Atomic ")
	}
	switch t.Kind {
	case KindBool, KindVoid, KindFloat, KindDouble:
		b.WriteString(t.Kind.String())
	case KindChar, KindShort, KindInt, KindLong, KindLLong:
		if t.Unsigned {
			b.WriteString("unsigned ")
		}
		b.WriteString(t.Kind.String())
	case KindPtr:
		b.WriteString(t.Base.String() + " *")
	case KindArray:
		if t.CountDeferred {
			fmt.Fprintf(&b, "%s[?]", t.Base)
		} else {
			fmt.Fprintf(&b, "%s[%d]", t.Base, t.ArrayCount)
		}
	case KindFunc:
		b.WriteString(t.Func.Return.String() + " (")
		for i, p := range t.Func.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Type.String())
		}
		if t.Func.Variadic {
			if len(t.Func.Params) > 0 {
				b.WriteString(", ")
			}
			b.WriteString("...")
		}
		b.WriteString(")")
	case KindStruct, KindUnion:
		name := t.Record.Name
		if name == "" {
			name = "<anonymous>"
		}
		b.WriteString(t.Kind.String() + " " + name)
	case KindEnum:
		name := t.Enum.Name
		if name == "" {
			name = "<anonymous>"
		}
		b.WriteString("enum " + name)
	case KindQualified:
		if t.AlsoKnownAs != "" {
			b.WriteString(t.AlsoKnownAs)
		} else {
			b.WriteString(t.Base.String())
		}
	case KindPlaceholder:
		b.WriteString(t.PlaceholderName)
	}
	return b.String()
}

// Equal checks if two types are structurally equal
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	a, b = a.Unqualified(), b.Unqualified()
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindVoid, KindBool, KindFloat, KindDouble:
		return true
	case KindChar, KindShort, KindInt, KindLong, KindLLong:
		return a.Unsigned == b.Unsigned
	case KindPtr:
		return Equal(a.Base, b.Base)
	case KindArray:
		return a.ArrayCount == b.ArrayCount && Equal(a.Base, b.Base)
	case KindStruct, KindUnion:
		return a.Record == b.Record
	case KindEnum:
		return a.Enum == b.Enum
	case KindPlaceholder:
		return a.PlaceholderName == b.PlaceholderName
	case KindFunc:
		fa, fb := a.Func, b.Func
		if fa.Variadic != fb.Variadic || len(fa.Params) != len(fb.Params) {
			return false
		}
		if !Equal(fa.Return, fb.Return) {
			return false
		}
		for i, p := range fa.Params {
			if !Equal(p.Type, fb.Params[i].Type) {
				return false
			}
		}
		return true
	}
	return false
}

// Arena owns every type created while parsing one translation unit.
// Creation order is preserved; phase 2 walks types in that order.
type Arena struct {
	mu    sync.Mutex
	types []*Type

	builtins map[builtinKey]*Type
}

type builtinKey struct {
	kind     Kind
	unsigned bool
}

// NewArena creates an arena whose builtin long is longSize bytes (4 on
// Windows targets, 8 elsewhere).
func NewArena(longSize int) *Arena {
	a := &Arena{builtins: make(map[builtinKey]*Type)}
	add := func(k Kind, size int) {
		a.builtins[builtinKey{k, false}] = &Type{Kind: k, Size: size, Align: size}
		if k.IsInteger() && k != KindBool {
			a.builtins[builtinKey{k, true}] = &Type{Kind: k, Size: size, Align: size, Unsigned: true}
		}
	}
	a.builtins[builtinKey{KindVoid, false}] = &Type{Kind: KindVoid}
	add(KindBool, 1)
	add(KindChar, 1)
	add(KindShort, 2)
	add(KindInt, 4)
	add(KindLong, longSize)
	add(KindLLong, 8)
	add(KindFloat, 4)
	add(KindDouble, 8)
	return a
}

// Builtin returns the shared, pre-sized type for a scalar kind.
func (a *Arena) Builtin(k Kind, unsigned bool) *Type {
	if t, ok := a.builtins[builtinKey{k, unsigned}]; ok {
		return t
	}
	return a.builtins[builtinKey{k, false}]
}

// Int returns a signed 32-bit int type
func (a *Arena) Int() *Type { return a.Builtin(KindInt, false) }

// UInt returns an unsigned 32-bit int type
func (a *Arena) UInt() *Type { return a.Builtin(KindInt, true) }

// Char returns a signed char type
func (a *Arena) Char() *Type { return a.Builtin(KindChar, false) }

// Void returns the void type
func (a *Arena) Void() *Type { return a.Builtin(KindVoid, false) }

// ULong returns the unsigned long type of the target
func (a *Arena) ULong() *Type { return a.Builtin(KindLong, true) }

// New allocates a type in the arena.
func (a *Arena) New(t Type) *Type {
	p := &t
	a.mu.Lock()
	a.types = append(a.types, p)
	a.mu.Unlock()
	return p
}

// Pointer returns a pointer to the given type
func (a *Arena) Pointer(elem *Type) *Type {
	return a.New(Type{Kind: KindPtr, Size: 8, Align: 8, Base: elem})
}

// Array returns an array type with a known count
func (a *Arena) Array(elem *Type, count int64) *Type {
	return a.New(Type{Kind: KindArray, Base: elem, ArrayCount: count})
}

// Types returns a snapshot of all types in creation order.
func (a *Arena) Types() []*Type {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Type(nil), a.types...)
}

// Len returns the number of arena-owned types.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.types)
}

// AssignOrdinals numbers every struct/union densely and returns the count.
func (a *Arena) AssignOrdinals() int {
	n := 0
	for _, t := range a.Types() {
		if t.Kind.IsRecord() {
			t.Ordinal = n
			n++
		}
	}
	return n
}

// ResolveQualified collapses every qualified/alias node into a copy of the
// type it wraps, keeping its own alignment and qualifier bits.
func (a *Arena) ResolveQualified() {
	for _, t := range a.Types() {
		if t.Kind != KindQualified {
			continue
		}
		base := t.Unqualified()
		if base == nil {
			continue
		}
		align, isConst, isVolatile, isAtomic, aka := t.Align, t.IsConst, t.IsVolatile, t.IsAtomic, t.AlsoKnownAs
		*t = *base
		if align > 0 {
			t.Align = align
		}
		t.IsConst = t.IsConst || isConst
		t.IsVolatile = t.IsVolatile || isVolatile
		t.IsAtomic = t.IsAtomic || isAtomic
		if aka != "" {
			t.AlsoKnownAs = aka
		}
	}
}
