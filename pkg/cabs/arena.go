package cabs

import "slices"

// Arena records every node allocated by one parser. A worker parses into a
// private arena and splices it into the unit's arena when its batch is done;
// nodes keep their identity across the splice.
type Arena struct {
	nodes []Node
}

// Alloc registers n with the arena and returns it.
func Alloc[T Node](a *Arena, n T) T {
	a.nodes = append(a.nodes, n)
	return n
}

// Len returns the number of nodes allocated so far.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Nodes returns the nodes in allocation order.
func (a *Arena) Nodes() []Node {
	return a.nodes
}

// Trim releases unused capacity.
func (a *Arena) Trim() {
	a.nodes = slices.Clip(a.nodes)
}

// Append splices other onto the end of a and empties other.
func (a *Arena) Append(other *Arena) {
	a.nodes = append(a.nodes, other.nodes...)
	other.nodes = nil
}

// Reset drops every node.
func (a *Arena) Reset() {
	a.nodes = nil
}
