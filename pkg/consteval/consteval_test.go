package consteval

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
)

type fakeEnv struct {
	errs []string
}

func (e *fakeEnv) ConstExprAt(pos int, _ lexer.TokenType) (int64, error) {
	return 0, fmt.Errorf("no deferred expression at %d", pos)
}

func (e *fakeEnv) Errorf(_ lexer.Loc, format string, args ...any) {
	e.errs = append(e.errs, fmt.Sprintf(format, args...))
}

func lit(v uint64) *cabs.IntLit { return &cabs.IntLit{Value: v} }

func bin(op cabs.BinaryOp, l, r cabs.Expr) *cabs.Binary {
	return &cabs.Binary{Op: op, Left: l, Right: r}
}

func newEvaluator() (*Evaluator, *fakeEnv) {
	env := &fakeEnv{}
	return &Evaluator{Env: env, Types: ctypes.NewArena(8)}, env
}

func structType(a *ctypes.Arena, members ...ctypes.Member) *ctypes.Type {
	return a.New(ctypes.Type{Kind: ctypes.KindStruct, Record: &ctypes.Record{Name: "S", Members: members}})
}

func TestEvalArithmetic(t *testing.T) {
	ev, _ := newEvaluator()
	a := ev.Types

	tests := []struct {
		name string
		expr cabs.Expr
		want Value
	}{
		{"precedence", bin(cabs.OpAdd, lit(1), bin(cabs.OpMul, lit(2), lit(3))), Signed(7)},
		{"left associative chain", bin(cabs.OpSub, bin(cabs.OpSub, lit(1), lit(2)), lit(3)), Signed(-4)},
		{"unsigned wins", bin(cabs.OpSub, &cabs.Cast{Type: a.UInt(), X: lit(5)}, lit(10)), Unsigned(math.MaxUint64 - 4)},
		{"suffix u", bin(cabs.OpAdd, &cabs.IntLit{Value: 1, Suffix: lexer.SuffixU}, lit(1)), Unsigned(2)},
		{"signed division", bin(cabs.OpDiv, &cabs.Unary{Op: cabs.OpNeg, X: lit(7)}, lit(2)), Signed(-3)},
		{"modulo", bin(cabs.OpMod, lit(17), lit(5)), Signed(2)},
		{"shift keeps left type", bin(cabs.OpShl, lit(1), &cabs.IntLit{Value: 4, Suffix: lexer.SuffixU}), Signed(16)},
		{"arithmetic shift right", bin(cabs.OpShr, &cabs.Unary{Op: cabs.OpNeg, X: lit(8)}, lit(1)), Signed(-4)},
		{"bitwise", bin(cabs.OpBitOr, bin(cabs.OpBitAnd, lit(0xF0), lit(0x3C)), bin(cabs.OpBitXor, lit(1), lit(3))), Signed(0x32)},
		{"not", &cabs.Unary{Op: cabs.OpNot, X: lit(0)}, Signed(1)},
		{"complement", &cabs.Unary{Op: cabs.OpBitNot, X: lit(0)}, Signed(-1)},
		{"char literal", &cabs.CharLit{Value: 'A'}, Signed(65)},
		{"narrow to char", &cabs.Cast{Type: a.Char(), X: lit(300)}, Signed(44)},
		{"narrow to unsigned char", &cabs.Cast{Type: a.Builtin(ctypes.KindChar, true), X: &cabs.Unary{Op: cabs.OpNeg, X: lit(1)}}, Unsigned(255)},
		{"bool cast", &cabs.Cast{Type: a.Builtin(ctypes.KindBool, false), X: lit(42)}, Signed(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Eval(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalComparisons(t *testing.T) {
	ev, _ := newEvaluator()
	minusOne := &cabs.Unary{Op: cabs.OpNeg, X: lit(1)}

	got, err := ev.Eval(bin(cabs.OpLt, minusOne, lit(1)))
	require.NoError(t, err)
	assert.Equal(t, Signed(1), got)

	// -1 converts to a huge unsigned value
	got, err = ev.Eval(bin(cabs.OpLt, minusOne, &cabs.IntLit{Value: 1, Suffix: lexer.SuffixU}))
	require.NoError(t, err)
	assert.Equal(t, Signed(0), got, "comparison results are plain int")

	got, err = ev.Eval(bin(cabs.OpEq, lit(3), lit(3)))
	require.NoError(t, err)
	assert.Equal(t, Signed(1), got)
}

func TestEvalShortCircuits(t *testing.T) {
	ev, env := newEvaluator()
	unknown := &cabs.Ident{Name: "x"}

	tests := []struct {
		name string
		expr cabs.Expr
		want Value
	}{
		{"ternary then", &cabs.Ternary{Cond: lit(1), Then: lit(2), Else: unknown}, Signed(2)},
		{"ternary else", &cabs.Ternary{Cond: lit(0), Then: unknown, Else: lit(3)}, Signed(3)},
		{"and", bin(cabs.OpAnd, lit(0), unknown), Signed(0)},
		{"or", bin(cabs.OpOr, lit(2), unknown), Signed(1)},
		{"or both", bin(cabs.OpOr, lit(0), lit(5)), Signed(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Eval(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Empty(t, env.errs, "untaken operands must not be evaluated")
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		expr cabs.Expr
		msg  string
	}{
		{"identifier", &cabs.Ident{Name: "x"}, "Could not resolve as constant expression"},
		{"division by zero", bin(cabs.OpDiv, lit(1), lit(0)), "division by zero in constant expression"},
		{"comma", bin(cabs.OpComma, lit(1), lit(2)), "Could not resolve as constant expression"},
		{"address of variable", &cabs.Unary{Op: cabs.OpAddrOf, X: &cabs.Ident{Name: "g"}}, "Could not resolve as constant expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, env := newEvaluator()
			_, err := ev.Eval(tt.expr)
			require.ErrorIs(t, err, ErrNotConstant)
			require.Len(t, env.errs, 1)
			assert.Equal(t, tt.msg, env.errs[0])
		})
	}
}

func TestEvalSizeof(t *testing.T) {
	ev, env := newEvaluator()
	a := ev.Types

	s := structType(a,
		ctypes.Member{Name: "a", Type: a.Char()},
		ctypes.Member{Name: "b", Type: a.Int()},
	)
	got, err := ev.Eval(&cabs.Sizeof{Type: s})
	require.NoError(t, err)
	assert.Equal(t, Unsigned(8), got)
	assert.Equal(t, 8, s.Size, "sizeof lays the type out")

	got, err = ev.Eval(&cabs.Sizeof{Type: s, IsAlignof: true})
	require.NoError(t, err)
	assert.Equal(t, Unsigned(4), got)

	arr := &cabs.Decl{Name: "arr", Type: a.Array(a.Int(), 3)}
	got, err = ev.Eval(&cabs.Sizeof{X: &cabs.Ident{Name: "arr", Decl: arr}})
	require.NoError(t, err)
	assert.Equal(t, Unsigned(12), got)

	got, err = ev.Eval(&cabs.Sizeof{X: &cabs.StringLit{Value: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, Unsigned(3), got)

	got, err = ev.Eval(&cabs.Sizeof{X: bin(cabs.OpAdd, &cabs.CharLit{Value: 1}, &cabs.Cast{Type: a.ULong(), X: lit(1)})})
	require.NoError(t, err)
	assert.Equal(t, Unsigned(8), got)

	incomplete := a.New(ctypes.Type{Kind: ctypes.KindStruct, IsIncomplete: true, Record: &ctypes.Record{Name: "T"}})
	_, err = ev.Eval(&cabs.Sizeof{Type: incomplete})
	require.ErrorIs(t, err, ErrNotConstant)
	assert.Len(t, env.errs, 1)
}

func TestEvalEnumConst(t *testing.T) {
	ev, _ := newEvaluator()
	e := ev.Types.New(ctypes.Type{Kind: ctypes.KindEnum, Enum: &ctypes.Enum{Entries: []ctypes.Enumerator{
		{Name: "A"}, {Name: "B"}, {Name: "C"},
	}}})

	got, err := ev.Eval(bin(cabs.OpMul, &cabs.EnumConst{Name: "C", Type: e, Index: 2}, lit(10)))
	require.NoError(t, err)
	assert.Equal(t, Signed(20), got)
}

func TestEvalOffsetof(t *testing.T) {
	ev, env := newEvaluator()
	a := ev.Types

	inner := structType(a,
		ctypes.Member{Name: "x", Type: a.Int()},
		ctypes.Member{Name: "y", Type: a.Int()},
	)
	s := structType(a,
		ctypes.Member{Name: "a", Type: a.Int()},
		ctypes.Member{Name: "b", Type: a.Array(a.Char(), 4)},
		ctypes.Member{Name: "c", Type: a.Int()},
		ctypes.Member{Name: "in", Type: inner},
		ctypes.Member{Name: "bits", Type: a.Int(), IsBitfield: true, BitWidth: 3},
	)
	base := func(k uint64) cabs.Expr {
		return &cabs.Cast{Type: a.Pointer(s), X: lit(k)}
	}
	arrow := func(x cabs.Expr, name string) *cabs.Member {
		return &cabs.Member{X: x, Name: name, IsArrow: true}
	}
	addr := func(x cabs.Expr) cabs.Expr { return &cabs.Unary{Op: cabs.OpAddrOf, X: x} }

	tests := []struct {
		name string
		expr cabs.Expr
		want uint64
	}{
		{"first member", addr(arrow(base(0), "a")), 0},
		{"after array", addr(arrow(base(0), "c")), 8},
		{"indexed", addr(&cabs.Index{Array: arrow(base(0), "b"), Index: lit(2)}), 6},
		{"nested", addr(&cabs.Member{X: arrow(base(0), "in"), Name: "y"}), 16},
		{"non-null base", addr(arrow(base(100), "c")), 108},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Eval(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, Unsigned(tt.want), got)
		})
	}

	t.Run("bitfield", func(t *testing.T) {
		_, err := ev.Eval(addr(arrow(base(0), "bits")))
		require.ErrorIs(t, err, ErrNotConstant)
		assert.Contains(t, env.errs[len(env.errs)-1], "bitfield")
	})
	t.Run("unknown member", func(t *testing.T) {
		_, err := ev.Eval(addr(arrow(base(0), "nope")))
		require.ErrorIs(t, err, ErrNotConstant)
		assert.Contains(t, env.errs[len(env.errs)-1], "no member named 'nope'")
	})
}
