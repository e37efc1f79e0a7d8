package unit

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/lexer"
	"github.com/raymyers/cfront/pkg/pool"
	"github.com/raymyers/cfront/pkg/report"
	"github.com/raymyers/cfront/pkg/target"
)

func newUnit(t *testing.T, src string, top ...cabs.Stmt) *TranslationUnit {
	t.Helper()
	toks, err := lexer.Tokenize("main.c", src)
	require.NoError(t, err)
	tu := New(toks, &report.Status{}, target.Default())
	tu.TopLevel = top
	return tu
}

func TestExportRules(t *testing.T) {
	one := &cabs.IntLit{Value: 1}
	tu := newUnit(t, "",
		&cabs.FuncDecl{Name: "api"},
		&cabs.FuncDecl{Name: "helper", Attrs: cabs.Attrs{IsStatic: true}},
		&cabs.FuncDecl{Name: "fast", Attrs: cabs.Attrs{IsInline: true}},
		&cabs.GlobalDecl{Name: "counter", Init: one},
		&cabs.GlobalDecl{Name: "tentative"},
		&cabs.GlobalDecl{Name: "hidden", Attrs: cabs.Attrs{IsStatic: true}, Init: one},
		&cabs.GlobalDecl{Name: "imported", Attrs: cabs.Attrs{IsExtern: true}, Init: one},
		&cabs.GlobalDecl{Name: "T", Attrs: cabs.Attrs{IsTypedef: true}},
		&cabs.GlobalDecl{Attrs: cabs.Attrs{IsRoot: true}},
	)

	cu := NewCompilationUnit()
	require.NoError(t, cu.Add(tu))
	cu.InternalLink()

	assert.Equal(t, []string{"api", "counter"}, cu.Exports())
	_, ok := cu.Export("helper")
	assert.False(t, ok, "static functions are never exported")
	_, ok = cu.Export("tentative")
	assert.False(t, ok, "globals without an initializer are never exported")
	decl, ok := cu.Export("counter")
	require.True(t, ok)
	assert.Same(t, tu.TopLevel[3], decl)
}

func TestExportLastWriterWins(t *testing.T) {
	first := &cabs.FuncDecl{Name: "dup"}
	second := &cabs.FuncDecl{Name: "dup"}
	a := newUnit(t, "", first)
	b := newUnit(t, "", second)

	cu := NewCompilationUnit()
	require.NoError(t, cu.Add(a))
	require.NoError(t, cu.Add(b))
	cu.InternalLink()

	got, ok := cu.Export("dup")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestAddOrderAndRelink(t *testing.T) {
	cu := NewCompilationUnit()
	units := []*TranslationUnit{newUnit(t, ""), newUnit(t, ""), newUnit(t, "")}
	for _, tu := range units {
		require.NoError(t, cu.Add(tu))
	}

	assert.Equal(t, units, cu.Units())
	assert.Equal(t, 3, cu.Count())
	assert.Same(t, units[0], cu.First())
	assert.Same(t, units[1], units[0].Next())
	assert.Nil(t, units[2].Next())

	assert.ErrorIs(t, cu.Add(units[0]), ErrAlreadyLinked)
	assert.ErrorIs(t, NewCompilationUnit().Add(units[2]), ErrAlreadyLinked)
}

func TestConcurrentAdd(t *testing.T) {
	cu := NewCompilationUnit()
	var wg sync.WaitGroup
	for range 16 {
		tu := newUnit(t, "")
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cu.Add(tu))
		}()
	}
	wg.Wait()
	assert.Len(t, cu.Units(), 16)
}

func TestLocationQueries(t *testing.T) {
	src := "int a;\n# 1 \"inc.h\"\nint b;\n# 3 \"main.c\"\nint c;\n"
	tu := newUnit(t, src)

	toks := tu.Tokens.Tokens()
	locOf := func(name string) lexer.Loc {
		for i, tok := range toks {
			if tok.Literal == name {
				return lexer.Loc(i + 1)
			}
		}
		t.Fatalf("no token %s", name)
		return lexer.NoLoc
	}

	assert.True(t, tu.IsInMainFile(locOf("a")))
	assert.Equal(t, 1, tu.Line(locOf("a")))
	assert.False(t, tu.IsInMainFile(locOf("b")))
	assert.Equal(t, "inc.h", tu.File(locOf("b")))
	assert.Equal(t, 1, tu.Line(locOf("b")))
	assert.True(t, tu.IsInMainFile(locOf("c")))
	assert.Equal(t, 3, tu.Line(locOf("c")))
}

func TestVisitTopLevel(t *testing.T) {
	var top []cabs.Stmt
	for range 100 {
		top = append(top, &cabs.GlobalDecl{Name: "g"})
	}
	tu := newUnit(t, "", top...)

	var plain int
	tu.VisitTopLevel(func(_ *TranslationUnit, _ cabs.Stmt) { plain++ })
	assert.Equal(t, 100, plain)

	w := pool.New(3)
	defer w.Close()
	var threaded atomic.Int32
	tu.VisitTopLevelThreaded(w, 8, func(got *TranslationUnit, _ cabs.Stmt) {
		assert.Same(t, tu, got)
		threaded.Add(1)
	})
	assert.Equal(t, int32(100), threaded.Load())
}

func TestMergeArena(t *testing.T) {
	tu := newUnit(t, "")
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var a cabs.Arena
			for range 10 {
				cabs.Alloc(&a, &cabs.IntLit{})
			}
			tu.MergeArena(&a)
			assert.Zero(t, a.Len())
		}()
	}
	wg.Wait()
	assert.Equal(t, 80, tu.NodeCount())

	cu := NewCompilationUnit()
	require.NoError(t, cu.Add(tu))
	cu.Destroy()
	assert.Zero(t, tu.NodeCount())
	assert.Nil(t, cu.First())
	assert.Empty(t, cu.Exports())
}
