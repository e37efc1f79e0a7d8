// Package parser implements the recursive descent parser for C.
//
// A translation unit is parsed in phases so that top-level declarations may
// refer to each other in any order:
//
//  1. The skeleton scan reads every top-level declaration but only records
//     where function bodies and initializers start.
//  2. Global resolution checks record cycles, parses global initializers,
//     lays out every type and evaluates static assertions.
//  3. Function bodies are parsed, in batches that may run on a worker pool.
//
// An optional semantic pass runs last.
package parser

import (
	"errors"
	"fmt"
	"slices"

	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
	"github.com/raymyers/cfront/pkg/pool"
	"github.com/raymyers/cfront/pkg/profile"
	"github.com/raymyers/cfront/pkg/report"
	"github.com/raymyers/cfront/pkg/symtab"
	"github.com/raymyers/cfront/pkg/target"
	"github.com/raymyers/cfront/pkg/unit"
)

// DefaultBatchSize is the number of global symbols one phase-3 job covers.
const DefaultBatchSize = 32768

// ErrParse is returned when any error was reported. The diagnostics
// themselves went to the Reporter.
var ErrParse = errors.New("parse failed")

// Desc configures ParseTranslationUnit.
type Desc struct {
	Tokens   *lexer.Stream
	Reporter *report.Reporter

	// Target defaults to target.Default().
	Target *target.Target
	// IRModule is handed to the unit untouched.
	IRModule any
	// Pool, when set, parses function bodies on its workers.
	Pool pool.Pool
	// Profiler receives one region per phase.
	Profiler profile.Profiler
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int
	// EntryName marks a custom entry point function.
	EntryName string
	// Sema is the semantic pass run after parsing.
	Sema func(tu *unit.TranslationUnit) error
}

// ParseTranslationUnit parses desc.Tokens. On any error it returns
// ErrParse and no unit.
func ParseTranslationUnit(desc Desc) (*unit.TranslationUnit, error) {
	if desc.Tokens == nil {
		panic("parser: Desc.Tokens is required")
	}
	if desc.Reporter == nil {
		panic("parser: Desc.Reporter is required")
	}
	tgt := desc.Target
	if tgt == nil {
		tgt = target.Default()
	}
	batchSize := desc.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	status := desc.Reporter.Status

	defer profile.Region(desc.Profiler, "parse: "+desc.Tokens.Filename())()

	tu := unit.New(desc.Tokens, status, tgt)
	tu.IRModule = desc.IRModule
	g := &global{
		tokens:    desc.Tokens,
		rep:       desc.Reporter,
		tu:        tu,
		types:     tu.Types,
		target:    tgt,
		globals:   symtab.NewSymbolTable(),
		tags:      symtab.NewTagTable(),
		entryName: desc.EntryName,
	}

	stop := profile.Region(desc.Profiler, "phase 1")
	g.skeleton()
	stop()
	if status.HasErrors() {
		return nil, ErrParse
	}

	stop = profile.Region(desc.Profiler, "phase 2")
	g.resolveGlobals()
	stop()
	if status.HasErrors() {
		return nil, ErrParse
	}

	pool.ForEachBatch(desc.Pool, g.globals.Len(), batchSize, func(start, end int) {
		defer profile.Region(desc.Profiler, fmt.Sprintf("phase 3: %d-%d", start, end))()
		g.parseBodies(start, end)
	})
	if status.HasErrors() {
		return nil, ErrParse
	}
	g.types.ResolveQualified()

	if desc.Sema != nil {
		stop = profile.Region(desc.Profiler, "phase 4")
		err := desc.Sema(tu)
		stop()
		if err != nil {
			return nil, fmt.Errorf("%w: semantic analysis: %w", ErrParse, err)
		}
		if status.HasErrors() {
			return nil, ErrParse
		}
	}
	return tu, nil
}

// skeleton is phase 1: scan every top-level declaration, deferring bodies
// and initializers.
func (g *global) skeleton() {
	c := newContext(g, true)
	defer g.tu.MergeArena(&c.ast)
	c.protect(func() {
		c.predefine()
		for !c.is(lexer.TokenEOF) {
			c.topLevel()
		}
	})
}

// resolveGlobals is phase 2.
func (g *global) resolveGlobals() {
	c := newContext(g, false)
	defer g.tu.MergeArena(&c.ast)
	c.protect(func() {
		for _, sym := range g.globals.Symbols() {
			if sym.Class == symtab.Typedef && sym.Type.Kind == ctypes.KindPlaceholder {
				c.Errorf(sym.Loc, "could not find type '%s'!", sym.Name)
			}
		}
		count := g.types.AssignOrdinals()
		ctypes.CheckCycles(g.types.Types(), count, func(t *ctypes.Type, via lexer.Loc) {
			c.Errorf(via, "type %s has a circular dependency", t)
		})
		if g.failed() {
			return
		}

		for _, pa := range g.aligns {
			c.resolveAlign(pa)
		}
		for _, sym := range g.globals.Symbols() {
			if sym.Deferred && (sym.Class == symtab.Global || sym.Class == symtab.StaticGlobal) {
				c.globalInitializer(sym)
			}
		}
		if g.failed() {
			return
		}

		for _, t := range g.types.Types() {
			// failures are reported; keep going so every bad type shows up
			_ = ctypes.Layout(c, t)
		}
		if g.failed() {
			return
		}

		for _, pos := range g.staticAsserts {
			c.withCursor(pos, c.staticAssertBody)
		}
	})
}

// parseBodies is one phase-3 batch. Each batch gets a fresh context, so no
// parser state leaks between batches.
func (g *global) parseBodies(start, end int) {
	c := newContext(g, false)
	c.local = true
	for i := start; i < end; i++ {
		sym := g.globals.At(i)
		if sym.Class.IsFunc() && sym.Deferred {
			c.protect(func() { c.functionBody(sym) })
		}
	}
	g.tu.MergeArena(&c.ast)
}

// predefine declares the target's builtin typedefs.
func (c *Context) predefine() {
	names := make([]string, 0, len(c.g.target.Typedefs))
	for name := range c.g.target.Typedefs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		spelled := c.g.target.Typedefs[name]
		toks, err := lexer.Tokenize("<target>", spelled)
		if err != nil {
			c.fatalf(lexer.NoLoc, "target %s: bad typedef %s: %v", c.g.target, name, err)
		}
		saved := c.s
		c.s = toks
		t := c.typeName()
		c.s = saved
		c.defineTypedef(declarator{name: name, t: t})
	}
}
