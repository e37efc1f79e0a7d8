package ctypes

import "github.com/raymyers/cfront/pkg/lexer"

// CycleReporter receives one call per detected record cycle.
type CycleReporter func(record *Type, via lexer.Loc)

type dfsResult int

const (
	noCycle dfsResult = iota
	cycleFound
	cycleReported
)

// bitset is a fixed-size bit vector indexed by record ordinal.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) has(i int) bool { return b[i/64]&(1<<(i%64)) != 0 }
func (b bitset) set(i int)      { b[i/64] |= 1 << (i % 64) }

// CheckCycles walks every struct/union in the arena looking for records that
// contain themselves by value. Ordinals must be assigned first and count is
// the number of records. Each independent cycle is reported exactly once,
// by the record whose member closes the cycle. Returns the
// number of cycles reported.
func CheckCycles(types []*Type, count int, report CycleReporter) int {
	visited := newBitset(count)
	finished := newBitset(count)

	cycles := 0
	for _, t := range types {
		if !t.Kind.IsRecord() {
			continue
		}
		if typeCyclesDFS(t, visited, finished, report) != noCycle {
			cycles++
		}
	}
	return cycles
}

// byValue strips wrappers that embed storage directly: qualifiers and arrays.
func byValue(t *Type) *Type {
	for t != nil && (t.Kind == KindQualified || t.Kind == KindArray) {
		t = t.Base
	}
	return t
}

func typeCyclesDFS(t *Type, visited, finished bitset, report CycleReporter) dfsResult {
	// non-record types are always finished
	t = byValue(t)
	if t == nil || !t.Kind.IsRecord() {
		return noCycle
	}

	o := t.Ordinal
	if o >= len(visited)*64 || finished.has(o) {
		return noCycle
	}
	if visited.has(o) {
		return cycleFound
	}
	visited.set(o)

	// the record is finished either way, so a cycle is never rediscovered
	// from a later root
	defer finished.set(o)

	for _, m := range t.Record.Members {
		switch typeCyclesDFS(m.Type, visited, finished, report) {
		case cycleFound:
			report(t, m.Loc)
			return cycleReported
		case cycleReported:
			return cycleReported
		}
	}
	return noCycle
}
