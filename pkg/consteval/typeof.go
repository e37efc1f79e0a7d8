package consteval

import (
	"math"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
)

// offsetOf recognizes the offsetof idiom `&((T *)k)->a.b[i]`: a chain of
// member and constant index steps hanging off a cast of a constant to a
// record pointer. The result is k plus the byte offset of the chain.
// ok is false when e does not have that shape.
func (ev *Evaluator) offsetOf(e cabs.Expr) (uint64, bool, error) {
	var steps []cabs.Expr
	cur := e
loop:
	for {
		switch n := cur.(type) {
		case *cabs.Member:
			steps = append(steps, n)
			cur = n.X
		case *cabs.Index:
			steps = append(steps, n)
			cur = n.Array
		default:
			break loop
		}
	}
	if len(steps) == 0 {
		return 0, false, nil
	}

	cast, ok := cur.(*cabs.Cast)
	if !ok {
		return 0, false, nil
	}
	ptr := cast.Type.Unqualified()
	if ptr.Kind != ctypes.KindPtr || !ptr.Base.Unqualified().Kind.IsRecord() {
		return 0, false, nil
	}
	first, ok := steps[len(steps)-1].(*cabs.Member)
	if !ok || !first.IsArrow {
		return 0, false, nil
	}

	base, err := ev.Eval(cast.X)
	if err != nil {
		return 0, false, err
	}
	if base.U >= math.MaxUint32 {
		_, err := ev.fail(cast.Loc, "offsetof base pointer is out of range")
		return 0, false, err
	}

	offset := base.U
	t := ptr.Base
	for i := len(steps) - 1; i >= 0; i-- {
		switch step := steps[i].(type) {
		case *cabs.Member:
			if step.IsArrow && i != len(steps)-1 {
				// a second arrow dereferences a real pointer
				return 0, false, nil
			}
			if err := ctypes.Layout(ev.Env, t); err != nil {
				return 0, false, err
			}
			m, off, found := t.FindMember(step.Name)
			if !found {
				_, err := ev.fail(step.Loc, "%s has no member named '%s'", t, step.Name)
				return 0, false, err
			}
			if m.IsBitfield {
				_, err := ev.fail(step.Loc, "cannot take the address of bitfield '%s'", step.Name)
				return 0, false, err
			}
			offset += uint64(off)
			t = m.Type
		case *cabs.Index:
			arr := t.Unqualified()
			if arr.Kind != ctypes.KindArray {
				return 0, false, nil
			}
			idx, err := ev.Eval(step.Index)
			if err != nil {
				return 0, false, err
			}
			if err := ctypes.Layout(ev.Env, arr.Base); err != nil {
				return 0, false, err
			}
			offset += idx.U * uint64(arr.Base.Size)
			t = arr.Base
		}
	}
	return offset, true, nil
}

// TypeOf computes the type of an expression as far as sizeof needs it.
func (ev *Evaluator) TypeOf(e cabs.Expr) (*ctypes.Type, error) {
	a := ev.Types
	switch e := e.(type) {
	case *cabs.IntLit:
		return ev.intLitType(e), nil
	case *cabs.CharLit, *cabs.EnumConst:
		return a.Int(), nil
	case *cabs.FloatLit:
		if e.Single {
			return a.Builtin(ctypes.KindFloat, false), nil
		}
		return a.Builtin(ctypes.KindDouble, false), nil
	case *cabs.StringLit:
		elem := a.Char()
		if e.Wide {
			elem = a.Builtin(ctypes.KindShort, true)
		}
		return a.Array(elem, int64(len(e.Value)+1)), nil
	case *cabs.Ident:
		switch d := e.Decl.(type) {
		case *cabs.Decl:
			return d.Type, nil
		case *cabs.GlobalDecl:
			return d.Type, nil
		case *cabs.FuncDecl:
			return d.Type, nil
		}
		return ev.failType(e.Loc, "could not resolve the type of '%s'", e.Name)
	case *cabs.Unary:
		return ev.unaryType(e)
	case *cabs.Binary:
		return ev.binaryType(e)
	case *cabs.Assign:
		return ev.TypeOf(e.Left)
	case *cabs.Cast:
		return e.Type, nil
	case *cabs.Ternary:
		return ev.TypeOf(e.Then)
	case *cabs.Member:
		return ev.memberType(e)
	case *cabs.Call:
		ft, err := ev.TypeOf(e.Func)
		if err != nil {
			return nil, err
		}
		ft = ft.Unqualified()
		if ft.Kind == ctypes.KindPtr {
			ft = ft.Base.Unqualified()
		}
		if ft.Kind != ctypes.KindFunc {
			return ev.failType(e.Loc, "called object is not a function")
		}
		return ft.Func.Return, nil
	case *cabs.Index:
		t, err := ev.TypeOf(e.Array)
		if err != nil {
			return nil, err
		}
		if t = t.Unqualified(); t.Kind != ctypes.KindPtr && t.Kind != ctypes.KindArray {
			// 2[arr]
			if t, err = ev.TypeOf(e.Index); err != nil {
				return nil, err
			}
			t = t.Unqualified()
		}
		if t.Kind != ctypes.KindPtr && t.Kind != ctypes.KindArray {
			return ev.failType(e.Loc, "subscripted value is not an array or pointer")
		}
		return t.Base, nil
	case *cabs.Sizeof:
		return a.ULong(), nil
	case *cabs.FuncLit:
		return a.Pointer(e.Type), nil
	case *cabs.InitList:
		if e.Type != nil {
			return e.Type, nil
		}
	}
	return ev.failType(e.Pos(), "could not resolve the type of this expression")
}

func (ev *Evaluator) failType(loc lexer.Loc, format string, args ...any) (*ctypes.Type, error) {
	ev.Env.Errorf(loc, format, args...)
	return nil, ErrNotConstant
}

func (ev *Evaluator) intLitType(e *cabs.IntLit) *ctypes.Type {
	a := ev.Types
	switch e.Suffix {
	case lexer.SuffixU:
		if e.Value > math.MaxUint32 {
			return a.ULong()
		}
		return a.UInt()
	case lexer.SuffixL:
		return a.Builtin(ctypes.KindLong, false)
	case lexer.SuffixUL:
		return a.ULong()
	case lexer.SuffixLL:
		return a.Builtin(ctypes.KindLLong, false)
	case lexer.SuffixULL:
		return a.Builtin(ctypes.KindLLong, true)
	}
	if e.Value > math.MaxInt32 {
		return a.Builtin(ctypes.KindLLong, false)
	}
	return a.Int()
}

func (ev *Evaluator) unaryType(e *cabs.Unary) (*ctypes.Type, error) {
	if e.Op == cabs.OpNot {
		return ev.Types.Int(), nil
	}
	t, err := ev.TypeOf(e.X)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case cabs.OpAddrOf:
		return ev.Types.Pointer(t), nil
	case cabs.OpDeref:
		u := t.Unqualified()
		if u.Kind != ctypes.KindPtr && u.Kind != ctypes.KindArray {
			return ev.failType(e.Loc, "cannot dereference %s", t)
		}
		return u.Base, nil
	case cabs.OpNeg, cabs.OpPlus, cabs.OpBitNot:
		return ev.promote(t), nil
	}
	return t, nil
}

func (ev *Evaluator) binaryType(e *cabs.Binary) (*ctypes.Type, error) {
	switch e.Op {
	case cabs.OpLt, cabs.OpLe, cabs.OpGt, cabs.OpGe, cabs.OpEq, cabs.OpNe, cabs.OpAnd, cabs.OpOr:
		return ev.Types.Int(), nil
	case cabs.OpComma:
		return ev.TypeOf(e.Right)
	}
	lhs, err := ev.TypeOf(e.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := ev.TypeOf(e.Right)
	if err != nil {
		return nil, err
	}
	l, r := lhs.Unqualified(), rhs.Unqualified()
	lptr := l.Kind == ctypes.KindPtr || l.Kind == ctypes.KindArray
	rptr := r.Kind == ctypes.KindPtr || r.Kind == ctypes.KindArray
	switch {
	case lptr && rptr && e.Op == cabs.OpSub:
		return ev.Types.Builtin(ctypes.KindLong, false), nil
	case lptr:
		return ev.Types.Pointer(l.Base), nil
	case rptr:
		return ev.Types.Pointer(r.Base), nil
	case e.Op == cabs.OpShl || e.Op == cabs.OpShr:
		return ev.promote(l), nil
	}
	return ev.common(l, r), nil
}

func (ev *Evaluator) memberType(e *cabs.Member) (*ctypes.Type, error) {
	t, err := ev.TypeOf(e.X)
	if err != nil {
		return nil, err
	}
	t = t.Unqualified()
	if e.IsArrow {
		if t.Kind != ctypes.KindPtr {
			return ev.failType(e.Loc, "'->' applied to non-pointer %s", t)
		}
		t = t.Base.Unqualified()
	}
	if !t.Kind.IsRecord() {
		return ev.failType(e.Loc, "member access on non-record %s", t)
	}
	m, _, ok := t.FindMember(e.Name)
	if !ok {
		return ev.failType(e.Loc, "%s has no member named '%s'", t, e.Name)
	}
	return m.Type, nil
}

// promote applies the integer promotions.
func (ev *Evaluator) promote(t *ctypes.Type) *ctypes.Type {
	u := t.Unqualified()
	if u.Kind.IsInteger() && (u.Kind == ctypes.KindEnum || u.Size < 4) {
		return ev.Types.Int()
	}
	return t
}

// common picks the result type of the usual arithmetic conversions.
func (ev *Evaluator) common(l, r *ctypes.Type) *ctypes.Type {
	if l.Kind == ctypes.KindDouble || r.Kind == ctypes.KindDouble {
		return ev.Types.Builtin(ctypes.KindDouble, false)
	}
	if l.Kind == ctypes.KindFloat || r.Kind == ctypes.KindFloat {
		return ev.Types.Builtin(ctypes.KindFloat, false)
	}
	l, r = ev.promote(l).Unqualified(), ev.promote(r).Unqualified()
	if l.Size != r.Size {
		if l.Size > r.Size {
			return l
		}
		return r
	}
	if r.Unsigned {
		return r
	}
	return l
}
