// Package consteval folds constant expressions into 64-bit values using C's
// signed/unsigned arithmetic rules.
package consteval

import (
	"errors"
	"fmt"

	"github.com/raymyers/cfront/pkg/cabs"
	"github.com/raymyers/cfront/pkg/ctypes"
	"github.com/raymyers/cfront/pkg/lexer"
)

// ErrNotConstant is returned once the failing node has been reported.
var ErrNotConstant = errors.New("not a constant expression")

// Value is a folded constant: 64 bits plus a signedness bit.
type Value struct {
	Signed bool
	U      uint64
}

// Signed makes a signed value.
func Signed(v int64) Value { return Value{Signed: true, U: uint64(v)} }

// Unsigned makes an unsigned value.
func Unsigned(v uint64) Value { return Value{U: v} }

// Int reinterprets the bits as signed.
func (v Value) Int() int64 { return int64(v.U) }

// IsZero reports whether all bits are clear.
func (v Value) IsZero() bool { return v.U == 0 }

func (v Value) String() string {
	if v.Signed {
		return fmt.Sprintf("%d", v.Int())
	}
	return fmt.Sprintf("%du", v.U)
}

func boolValue(b bool) Value {
	if b {
		return Signed(1)
	}
	return Signed(0)
}

// Evaluator folds expressions. Env lays out types that sizeof touches and
// receives the diagnostic for the node that could not be folded.
type Evaluator struct {
	Env   ctypes.Env
	Types *ctypes.Arena
}

func (ev *Evaluator) fail(loc lexer.Loc, format string, args ...any) (Value, error) {
	ev.Env.Errorf(loc, format, args...)
	return Value{}, ErrNotConstant
}

// Eval folds e. On failure the offending node has already been reported.
func (ev *Evaluator) Eval(e cabs.Expr) (Value, error) {
	switch e := e.(type) {
	case *cabs.IntLit:
		if e.Suffix.Unsigned() {
			return Unsigned(e.Value), nil
		}
		return Signed(int64(e.Value)), nil

	case *cabs.CharLit:
		return Signed(e.Value), nil

	case *cabs.EnumConst:
		// while its enum is being laid out, the earlier entries already
		// hold their values
		if !e.Type.InProgress() {
			if err := ctypes.Layout(ev.Env, e.Type); err != nil {
				return Value{}, err
			}
		}
		return Signed(e.Value()), nil

	case *cabs.Ternary:
		cond, err := ev.Eval(e.Cond)
		if err != nil {
			return Value{}, err
		}
		if !cond.IsZero() {
			return ev.Eval(e.Then)
		}
		return ev.Eval(e.Else)

	case *cabs.Binary:
		switch e.Op {
		case cabs.OpAnd, cabs.OpOr:
			return ev.evalLogical(e)
		case cabs.OpComma, cabs.OpAssign:
			return ev.fail(e.Loc, "Could not resolve as constant expression")
		}
		return ev.evalChain(e)

	case *cabs.Sizeof:
		return ev.evalSizeof(e)

	case *cabs.Unary:
		return ev.evalUnary(e)

	case *cabs.Cast:
		v, err := ev.Eval(e.X)
		if err != nil {
			return Value{}, err
		}
		return convert(v, e.Type), nil
	}
	return ev.fail(e.Pos(), "Could not resolve as constant expression")
}

// evalChain folds a run of the same left-associative operator with an
// explicit accumulator, so a long `a - b - c - ...` never recurses down the
// left spine.
func (ev *Evaluator) evalChain(e *cabs.Binary) (Value, error) {
	op := e.Op
	var rights []*cabs.Binary
	var cur cabs.Expr = e
	for {
		b, ok := cur.(*cabs.Binary)
		if !ok || b.Op != op {
			break
		}
		rights = append(rights, b)
		cur = b.Left
	}

	acc, err := ev.Eval(cur)
	if err != nil {
		return Value{}, err
	}
	for i := len(rights) - 1; i >= 0; i-- {
		rhs, err := ev.Eval(rights[i].Right)
		if err != nil {
			return Value{}, err
		}
		acc, err = ev.binary(rights[i].Loc, op, acc, rhs)
		if err != nil {
			return Value{}, err
		}
	}
	return acc, nil
}

func (ev *Evaluator) evalLogical(e *cabs.Binary) (Value, error) {
	lhs, err := ev.Eval(e.Left)
	if err != nil {
		return Value{}, err
	}
	if e.Op == cabs.OpAnd && lhs.IsZero() {
		return Signed(0), nil
	}
	if e.Op == cabs.OpOr && !lhs.IsZero() {
		return Signed(1), nil
	}
	rhs, err := ev.Eval(e.Right)
	if err != nil {
		return Value{}, err
	}
	return boolValue(!rhs.IsZero()), nil
}

// binary applies op with the usual arithmetic conversion: if either side is
// unsigned, so is the operation and its result.
func (ev *Evaluator) binary(loc lexer.Loc, op cabs.BinaryOp, a, b Value) (Value, error) {
	signed := a.Signed && b.Signed
	result := func(u uint64) Value { return Value{Signed: signed, U: u} }

	switch op {
	case cabs.OpAdd:
		return result(a.U + b.U), nil
	case cabs.OpSub:
		return result(a.U - b.U), nil
	case cabs.OpMul:
		return result(a.U * b.U), nil
	case cabs.OpDiv, cabs.OpMod:
		if b.U == 0 {
			return ev.fail(loc, "division by zero in constant expression")
		}
		if signed {
			if op == cabs.OpDiv {
				return Signed(a.Int() / b.Int()), nil
			}
			return Signed(a.Int() % b.Int()), nil
		}
		if op == cabs.OpDiv {
			return result(a.U / b.U), nil
		}
		return result(a.U % b.U), nil
	case cabs.OpBitAnd:
		return result(a.U & b.U), nil
	case cabs.OpBitOr:
		return result(a.U | b.U), nil
	case cabs.OpBitXor:
		return result(a.U ^ b.U), nil
	case cabs.OpShl:
		// the left operand alone decides the type of a shift
		return Value{Signed: a.Signed, U: a.U << b.U}, nil
	case cabs.OpShr:
		if a.Signed {
			return Signed(a.Int() >> b.U), nil
		}
		return Unsigned(a.U >> b.U), nil
	case cabs.OpEq:
		return boolValue(a.U == b.U), nil
	case cabs.OpNe:
		return boolValue(a.U != b.U), nil
	case cabs.OpLt:
		if signed {
			return boolValue(a.Int() < b.Int()), nil
		}
		return boolValue(a.U < b.U), nil
	case cabs.OpLe:
		if signed {
			return boolValue(a.Int() <= b.Int()), nil
		}
		return boolValue(a.U <= b.U), nil
	case cabs.OpGt:
		if signed {
			return boolValue(a.Int() > b.Int()), nil
		}
		return boolValue(a.U > b.U), nil
	case cabs.OpGe:
		if signed {
			return boolValue(a.Int() >= b.Int()), nil
		}
		return boolValue(a.U >= b.U), nil
	}
	return ev.fail(loc, "Could not resolve as constant expression")
}

func (ev *Evaluator) evalUnary(e *cabs.Unary) (Value, error) {
	if e.Op == cabs.OpAddrOf {
		if off, ok, err := ev.offsetOf(e.X); err != nil {
			return Value{}, err
		} else if ok {
			return Unsigned(off), nil
		}
		return ev.fail(e.Loc, "Could not resolve as constant expression")
	}

	v, err := ev.Eval(e.X)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case cabs.OpNeg:
		return Signed(-v.Int()), nil
	case cabs.OpPlus:
		return v, nil
	case cabs.OpNot:
		return boolValue(v.IsZero()), nil
	case cabs.OpBitNot:
		return Value{Signed: v.Signed, U: ^v.U}, nil
	}
	return ev.fail(e.Loc, "Could not resolve as constant expression")
}

func (ev *Evaluator) evalSizeof(e *cabs.Sizeof) (Value, error) {
	t := e.Type
	if t == nil {
		var err error
		if t, err = ev.TypeOf(e.X); err != nil {
			return Value{}, err
		}
	}
	if err := ctypes.Layout(ev.Env, t); err != nil {
		return Value{}, err
	}
	if e.IsAlignof {
		return Unsigned(uint64(t.Align)), nil
	}
	if t.Size == 0 {
		return ev.fail(e.Loc, "cannot take the size of incomplete type %s", t)
	}
	return Unsigned(uint64(t.Size)), nil
}

// convert narrows v to an integer type, or passes it through for pointers.
func convert(v Value, t *ctypes.Type) Value {
	u := t.Unqualified()
	if u == nil || !u.Kind.IsInteger() || u.Size == 0 || u.Size >= 8 {
		if u != nil && u.Kind.IsInteger() {
			return Value{Signed: !u.Unsigned, U: v.U}
		}
		return v
	}
	if u.Kind == ctypes.KindBool {
		return boolValue(!v.IsZero())
	}
	bits := uint(u.Size * 8)
	mask := uint64(1)<<bits - 1
	if u.Unsigned {
		return Unsigned(v.U & mask)
	}
	// sign-extend from the narrowed width
	shift := 64 - bits
	return Signed(int64(v.U<<shift) >> shift)
}
