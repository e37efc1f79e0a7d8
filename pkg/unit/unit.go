// Package unit holds parsed translation units and links them into
// compilation units.
package unit

import (
	"sync"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
	"github.com/raymyers/cfront/pkg/pool"
	"github.com/raymyers/cfront/pkg/report"
	"github.com/raymyers/cfront/pkg/target"
)

// EntryPoint classifies how a unit is entered.
type EntryPoint int

const (
	EntryNone EntryPoint = iota
	EntryMain
	EntryWinMain
	EntryCustom
)

func (e EntryPoint) String() string {
	names := []string{"none", "main", "WinMain", "custom"}
	if int(e) < len(names) {
		return names[e]
	}
	return "?"
}

// TranslationUnit is the parse result of one token stream.
type TranslationUnit struct {
	Filename string
	Tokens   *lexer.Stream
	Status   *report.Status
	Target   *target.Target
	// IRModule is carried for the backend and never inspected here.
	IRModule any

	TopLevel []cabs.Stmt
	Entry    EntryPoint
	Types    *ctypes.Arena

	mu  sync.Mutex
	ast cabs.Arena

	next   *TranslationUnit
	parent *CompilationUnit
}

// New creates an empty unit over tokens.
func New(tokens *lexer.Stream, status *report.Status, tgt *target.Target) *TranslationUnit {
	return &TranslationUnit{
		Filename: tokens.Filename(),
		Tokens:   tokens,
		Status:   status,
		Target:   tgt,
		Types:    ctypes.NewArena(tgt.LongSize),
	}
}

// MergeArena moves every node of a into the unit's arena. Safe to call
// from several goroutines.
func (tu *TranslationUnit) MergeArena(a *cabs.Arena) {
	a.Trim()
	tu.mu.Lock()
	tu.ast.Append(a)
	tu.mu.Unlock()
}

// NodeCount returns the number of AST nodes the unit owns.
func (tu *TranslationUnit) NodeCount() int {
	tu.mu.Lock()
	defer tu.mu.Unlock()
	return tu.ast.Len()
}

// Next returns the following unit of the owning compilation unit.
func (tu *TranslationUnit) Next() *TranslationUnit {
	return tu.next
}

// File returns the source file loc points into.
func (tu *TranslationUnit) File(loc lexer.Loc) string {
	return tu.Tokens.File(loc)
}

// Line returns the source line loc points at.
func (tu *TranslationUnit) Line(loc lexer.Loc) int {
	return tu.Tokens.Line(loc)
}

// IsInMainFile reports whether loc is in the file being compiled rather
// than an included header.
func (tu *TranslationUnit) IsInMainFile(loc lexer.Loc) bool {
	return tu.Tokens.File(loc) == tu.Filename
}

// VisitTopLevel calls fn for each top-level statement in order.
func (tu *TranslationUnit) VisitTopLevel(fn func(tu *TranslationUnit, stmt cabs.Stmt)) {
	for _, s := range tu.TopLevel {
		fn(tu, s)
	}
}

// VisitTopLevelThreaded calls fn for each top-level statement, handing out
// batches of batchSize statements to p. It returns once every call has
// finished. fn must be safe for concurrent use.
func (tu *TranslationUnit) VisitTopLevelThreaded(p pool.Pool, batchSize int, fn func(tu *TranslationUnit, stmt cabs.Stmt)) {
	pool.ForEachBatch(p, len(tu.TopLevel), batchSize, func(start, end int) {
		for _, s := range tu.TopLevel[start:end] {
			fn(tu, s)
		}
	})
}

// Destroy drops the unit's AST and types.
func (tu *TranslationUnit) Destroy() {
	tu.mu.Lock()
	tu.ast.Reset()
	tu.mu.Unlock()
	tu.TopLevel = nil
	tu.Types = nil
	tu.Tokens = nil
}
