package symtab

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/lexer"
)

// ErrLabelRedefined is returned when a label is placed twice.
var ErrLabelRedefined = errors.New("label redefined")

// LabelState is what the function body has said about a label so far.
type LabelState int

const (
	LabelUnseen LabelState = iota
	// LabelReferenced means a goto named the label before it was placed.
	LabelReferenced
	LabelDefined
)

// Labels resolves goto targets within one function body. A goto ahead of
// its label creates a placeholder that the label definition later claims,
// so both refer to the same node.
type Labels struct {
	m map[string]*cabs.Label
}

// Reference returns the label a goto jumps to, creating a placeholder
// when the name is new.
func (t *Labels) Reference(a *cabs.Arena, name string, loc lexer.Loc) *cabs.Label {
	if l, ok := t.m[name]; ok {
		return l
	}
	l := cabs.Alloc(a, &cabs.Label{Loc: loc, Name: name})
	t.put(name, l)
	return l
}

// Define places a label. A placeholder left by an earlier goto is reused.
func (t *Labels) Define(a *cabs.Arena, name string, loc lexer.Loc) (*cabs.Label, error) {
	if l, ok := t.m[name]; ok {
		if l.Placed {
			return l, fmt.Errorf("%w: '%s'", ErrLabelRedefined, name)
		}
		l.Placed = true
		l.Loc = loc
		return l, nil
	}
	l := cabs.Alloc(a, &cabs.Label{Loc: loc, Name: name, Placed: true})
	t.put(name, l)
	return l, nil
}

func (t *Labels) put(name string, l *cabs.Label) {
	if t.m == nil {
		t.m = make(map[string]*cabs.Label)
	}
	t.m[name] = l
}

// State reports what is known about name.
func (t *Labels) State(name string) LabelState {
	l, ok := t.m[name]
	switch {
	case !ok:
		return LabelUnseen
	case l.Placed:
		return LabelDefined
	}
	return LabelReferenced
}

// Unplaced returns the labels that gotos named but the body never placed,
// in source order.
func (t *Labels) Unplaced() []*cabs.Label {
	var out []*cabs.Label
	for _, l := range t.m {
		if !l.Placed {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b *cabs.Label) int { return cmp.Compare(a.Loc, b.Loc) })
	return out
}

// Reset forgets every label; called at the start of each function body.
func (t *Labels) Reset() {
	clear(t.m)
}
