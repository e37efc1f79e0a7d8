package symtab

import "github.com/raymyers/cfront/pkg/ctypes"

type tag struct {
	name string
	typ  *ctypes.Type
}

// Locals is the block-scope symbol and tag stack of one parser. Lookups scan
// from the top down to the current function boundary, so inner
// declarations shadow outer ones.
type Locals struct {
	symbols []*Symbol
	tags    []tag

	symbolStart int
	tagStart    int
}

// PushSymbol declares s in the innermost scope.
func (l *Locals) PushSymbol(s *Symbol) {
	l.symbols = append(l.symbols, s)
}

// PushTag declares a tag in the innermost scope.
func (l *Locals) PushTag(name string, t *ctypes.Type) {
	l.tags = append(l.tags, tag{name: name, typ: t})
}

// FindSymbol returns the nearest visible local named name, or nil.
func (l *Locals) FindSymbol(name string) *Symbol {
	for i := len(l.symbols) - 1; i >= l.symbolStart; i-- {
		if l.symbols[i].Name == name {
			return l.symbols[i]
		}
	}
	return nil
}

// FindTag returns the nearest visible local tag named name, or nil.
func (l *Locals) FindTag(name string) *ctypes.Type {
	for i := len(l.tags) - 1; i >= l.tagStart; i-- {
		if l.tags[i].name == name {
			return l.tags[i].typ
		}
	}
	return nil
}

// Len returns the number of local symbols currently declared.
func (l *Locals) Len() int {
	return len(l.symbols)
}

// Scope records the stack heights at the start of a block.
type Scope struct {
	l       *Locals
	symbols int
	tags    int
}

// Enter opens a scope. Pair it with a deferred Leave.
func (l *Locals) Enter() Scope {
	return Scope{l: l, symbols: len(l.symbols), tags: len(l.tags)}
}

// Leave drops everything declared since the matching Enter.
func (s Scope) Leave() {
	l := s.l
	clear(l.symbols[s.symbols:])
	l.symbols = l.symbols[:s.symbols]
	clear(l.tags[s.tags:])
	l.tags = l.tags[:s.tags]
}

// Isolate hides every enclosing local, as a nested function body must not
// see them. The returned func restores visibility and drops the nested
// declarations.
func (l *Locals) Isolate() func() {
	scope := l.Enter()
	symbolStart, tagStart := l.symbolStart, l.tagStart
	l.symbolStart, l.tagStart = len(l.symbols), len(l.tags)
	return func() {
		scope.Leave()
		l.symbolStart, l.tagStart = symbolStart, tagStart
	}
}

// Reset empties both stacks.
func (l *Locals) Reset() {
	clear(l.symbols)
	clear(l.tags)
	*l = Locals{symbols: l.symbols[:0], tags: l.tags[:0]}
}
