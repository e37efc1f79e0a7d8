package cabs

import (
	"bytes"
	"testing"

	"github.com/raymyers/cfront/pkg/ctypes"
)

func TestArenaSplice(t *testing.T) {
	var unit, worker Arena
	Alloc(&unit, &IntLit{Value: 1})
	lit := Alloc(&worker, &IntLit{Value: 2})
	Alloc(&worker, &Return{X: lit})

	worker.Trim()
	unit.Append(&worker)

	if unit.Len() != 3 {
		t.Fatalf("unit has %d nodes, want 3", unit.Len())
	}
	if worker.Len() != 0 {
		t.Errorf("worker arena not emptied: %d", worker.Len())
	}
	if unit.Nodes()[1] != Node(lit) {
		t.Error("spliced node lost its identity")
	}
}

func TestInspectCountsNodes(t *testing.T) {
	body := &Compound{Items: []Stmt{
		&ExprStmt{X: &Assign{Op: OpAssign, Left: &Ident{Name: "x"}, Right: &Binary{Op: OpAdd, Left: &IntLit{Value: 1}, Right: &IntLit{Value: 2}}}},
		&Return{X: &Ident{Name: "x"}},
	}}
	fn := &FuncDecl{Name: "f", Body: body}

	count := 0
	Inspect(fn, func(Node) bool { count++; return true })
	// FuncDecl, Compound, ExprStmt, Assign, Ident, Binary, IntLit, IntLit, Return, Ident
	if count != 10 {
		t.Errorf("visited %d nodes, want 10", count)
	}

	count = 0
	Inspect(fn, func(n Node) bool {
		count++
		_, isStmt := n.(*ExprStmt)
		return !isStmt
	})
	if count != 5 {
		t.Errorf("visited %d nodes with pruning, want 5", count)
	}
}

func TestPrinter(t *testing.T) {
	arena := ctypes.NewArena(8)
	fnType := arena.New(ctypes.Type{Kind: ctypes.KindFunc, Func: &ctypes.Func{
		Return: arena.Int(),
		Params: []ctypes.Param{{Name: "n", Type: arena.Int()}},
	}})
	n := &Decl{Name: "n", Type: arena.Int(), IsParam: true}
	label := &Label{Name: "out", Placed: true}

	tests := []struct {
		name string
		stmt Stmt
		want string
	}{
		{
			name: "global with initializer",
			stmt: &GlobalDecl{Name: "g", Type: arena.Int(), Attrs: Attrs{IsStatic: true}, Init: &IntLit{Value: 3}},
			want: "static int g = 3;\n",
		},
		{
			name: "function",
			stmt: &FuncDecl{Name: "f", Type: fnType, Params: []*Decl{n}, Body: &Compound{Items: []Stmt{
				&If{
					Cond: &Binary{Op: OpLt, Left: &Ident{Name: "n", Decl: n}, Right: &IntLit{Value: 0}},
					Then: &Goto{Target: label},
				},
				&Return{X: &Binary{Op: OpMul, Left: &Ident{Name: "n"}, Right: &Binary{Op: OpAdd, Left: &IntLit{Value: 1}, Right: &IntLit{Value: 2}}}},
				label,
				&Return{X: &Unary{Op: OpNeg, X: &IntLit{Value: 1}}},
			}}},
			want: "int f(int n)\n{\n  if (n < 0)\n    goto out;\n  return n * (1 + 2);\n  out:\n  return -1;\n}\n",
		},
		{
			name: "sizeof and member",
			stmt: &ExprStmt{X: &Sizeof{X: &Member{X: &Ident{Name: "p"}, Name: "x", IsArrow: true}}},
			want: "sizeof p->x;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf).PrintStmt(tt.stmt)
			if got := buf.String(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}
