package unit

import (
	"errors"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/raymyers/cfront/pkg/cabs"
)

// ErrAlreadyLinked is returned when a unit already belongs to a
// compilation unit.
var ErrAlreadyLinked = errors.New("translation unit is already part of a compilation unit")

// CompilationUnit is a list of translation units that are linked together.
//
// The unit list and the export table share one mutex. Add and InternalLink
// take it themselves; callers that walk Units while other goroutines may be
// adding must hold Lock around the walk.
type CompilationUnit struct {
	mu    sync.Mutex
	head  *TranslationUnit
	tail  *TranslationUnit
	count int

	exports *treemap.Map
}

// NewCompilationUnit creates an empty compilation unit.
func NewCompilationUnit() *CompilationUnit {
	return &CompilationUnit{exports: treemap.NewWithStringComparator()}
}

// Lock acquires the compilation unit's mutex.
func (cu *CompilationUnit) Lock() { cu.mu.Lock() }

// Unlock releases the compilation unit's mutex.
func (cu *CompilationUnit) Unlock() { cu.mu.Unlock() }

// Add appends tu to the list.
func (cu *CompilationUnit) Add(tu *TranslationUnit) error {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	if tu.parent != nil || tu.next != nil {
		return ErrAlreadyLinked
	}
	tu.parent = cu
	if cu.tail != nil {
		cu.tail.next = tu
	} else {
		cu.head = tu
	}
	cu.tail = tu
	cu.count++
	return nil
}

// First returns the head of the unit list.
func (cu *CompilationUnit) First() *TranslationUnit {
	return cu.head
}

// Count returns the number of attached units.
func (cu *CompilationUnit) Count() int {
	return cu.count
}

// Units returns the attached units in the order they were added.
func (cu *CompilationUnit) Units() []*TranslationUnit {
	out := make([]*TranslationUnit, 0, cu.count)
	for tu := cu.head; tu != nil; tu = tu.next {
		out = append(out, tu)
	}
	return out
}

// InternalLink rebuilds the export table from every unit's top-level
// declarations. A later unit exporting a name replaces the earlier one.
func (cu *CompilationUnit) InternalLink() {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	cu.exports.Clear()
	for tu := cu.head; tu != nil; tu = tu.next {
		for _, s := range tu.TopLevel {
			if name, ok := exportedName(s); ok {
				cu.exports.Put(name, s)
			}
		}
	}
}

// exportedName reports whether s is visible to other units: functions that
// are neither static nor inline, and globals that are defined here with an
// initializer.
func exportedName(s cabs.Stmt) (string, bool) {
	switch d := s.(type) {
	case *cabs.FuncDecl:
		return d.Name, !d.Attrs.IsStatic && !d.Attrs.IsInline
	case *cabs.GlobalDecl:
		a := d.Attrs
		if d.Name == "" || a.IsStatic || a.IsExtern || a.IsTypedef || a.IsInline {
			return "", false
		}
		return d.Name, d.Init != nil
	}
	return "", false
}

// Export looks up the declaration exported under name.
func (cu *CompilationUnit) Export(name string) (cabs.Stmt, bool) {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	v, ok := cu.exports.Get(name)
	if !ok {
		return nil, false
	}
	return v.(cabs.Stmt), true
}

// Exports returns the exported names in sorted order.
func (cu *CompilationUnit) Exports() []string {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	names := make([]string, 0, cu.exports.Size())
	for _, k := range cu.exports.Keys() {
		names = append(names, k.(string))
	}
	return names
}

// Destroy destroys every attached unit and empties the list.
func (cu *CompilationUnit) Destroy() {
	cu.mu.Lock()
	defer cu.mu.Unlock()
	for tu := cu.head; tu != nil; {
		next := tu.next
		tu.Destroy()
		tu.next, tu.parent = nil, nil
		tu = next
	}
	cu.head, cu.tail, cu.count = nil, nil, 0
	cu.exports.Clear()
}
