package ctypes

import (
	"errors"
	"fmt"
	"math"

	"github.com/raymyers/cfront/pkg/lexer"
)

// MaxObjectSize is the first array byte size that is rejected.
const MaxObjectSize = math.MaxInt32

// ErrCircular is returned when layout re-enters a type it is still sizing.
var ErrCircular = errors.New("type has a circular dependency")

var errLayoutAborted = errors.New("layout was aborted")

// Env is what the layout engine needs from the parser: a way to evaluate
// a deferred constant expression and a sink for non-fatal diagnostics.
type Env interface {
	// ConstExprAt evaluates the constant expression starting at token
	// position pos. When terminator is not EOF it must follow the expression.
	ConstExprAt(pos int, terminator lexer.TokenType) (int64, error)
	Errorf(loc lexer.Loc, format string, args ...any)
}

// AlignUp rounds offset up to a multiple of align; AlignUp(x, 0) is 0.
func AlignUp(offset, align int) int {
	if align == 0 {
		return 0
	}
	return offset + (align-offset%align)%align
}

// Layout computes size, alignment and member offsets of t. It is a no-op
// on a type that is already laid out, so once every shared type is done
// concurrent callers only read it. Errors returned are fatal and sticky:
// a second call returns the same error without reporting it again.
// Recoverable problems go through env.Errorf.
func Layout(env Env, t *Type) error {
	if t.laidOut || t.Size != 0 || !needsLayout(t) {
		return nil
	}
	if t.layoutErr != nil {
		return t.layoutErr
	}
	if t.inProgress {
		env.Errorf(t.Loc, "type has a circular dependency")
		return ErrCircular
	}

	t.inProgress = true
	finished := false
	defer func() {
		t.inProgress = false
		if !finished {
			// unwound by a bailout from a deferred expression
			t.layoutErr = errLayoutAborted
		}
	}()
	err := layout(env, t)
	finished = true
	if err != nil {
		t.layoutErr = err
		return err
	}
	// an alias of a still incomplete record is redone once the record
	// has members
	t.laidOut = t.Kind != KindQualified || !t.IsIncomplete || t.Base.laidOut
	return nil
}

func layout(env Env, t *Type) error {
	switch t.Kind {
	case KindArray:
		return layoutArray(env, t)
	case KindEnum:
		return layoutEnum(env, t)
	case KindStruct, KindUnion:
		return layoutRecord(env, t)
	case KindQualified:
		if err := Layout(env, t.Base); err != nil {
			return err
		}
		t.Size = t.Base.Size
		if t.Align == 0 {
			t.Align = t.Base.Align
		}
		t.IsIncomplete = t.Base.IsIncomplete
	}
	return nil
}

// needsLayout reports whether t has anything left to compute. Scalars are
// pre-sized, and functions, void and forward-declared records have no size;
// skipping them keeps shared builtins untouched.
func needsLayout(t *Type) bool {
	switch t.Kind {
	case KindArray, KindEnum, KindQualified:
		return true
	case KindStruct, KindUnion:
		return !t.IsIncomplete || len(t.Record.Members) > 0
	}
	return false
}

func layoutArray(env Env, t *Type) error {
	if t.CountDeferred {
		count, err := env.ConstExprAt(t.ArrayCountPos, lexer.TokenRBracket)
		if err != nil {
			return err
		}
		if count < 0 {
			env.Errorf(t.Loc, "array count cannot be negative (got %d)", count)
			count = 0
		}
		t.ArrayCount = count
		t.CountDeferred = false
	}

	elem := t.Base
	if err := Layout(env, elem); err != nil {
		return err
	}
	if elem.Kind == KindFunc {
		env.Errorf(t.Loc, "cannot declare an array of functions")
		return nil
	}
	if t.ArrayCount != 0 && elem.Size == 0 {
		env.Errorf(t.Loc, "array element type %s is incomplete", elem)
		return nil
	}

	result := uint64(elem.Size) * uint64(t.ArrayCount)
	if result >= MaxObjectSize || (elem.Size != 0 && uint64(t.ArrayCount) > MaxObjectSize) {
		env.Errorf(t.Loc, "cannot declare an array that exceeds 0x7FFFFFFE bytes (got 0x%X or %d)", result, result)
		return fmt.Errorf("array of %d elements exceeds the maximum object size", t.ArrayCount)
	}

	t.Size = int(result)
	if t.Align <= 0 {
		t.Align = elem.Align
	}
	t.IsIncomplete = t.ArrayCount == 0
	return nil
}

func layoutEnum(env Env, t *Type) error {
	var cursor int64
	for i := range t.Enum.Entries {
		e := &t.Enum.Entries[i]
		if e.HasExpr {
			v, err := env.ConstExprAt(e.ExprPos, lexer.TokenEOF)
			if err != nil {
				return err
			}
			cursor = v
		}
		// enums are 4 bytes: values must fit int, or unsigned int when
		// non-negative
		if cursor < math.MinInt32 || cursor > math.MaxUint32 {
			env.Errorf(e.Loc, "enumerator '%s' value %d does not fit in int", e.Name, cursor)
		}
		e.Value = cursor
		cursor++
	}
	t.Size = 4
	if t.Align <= 0 {
		t.Align = 4
	}
	t.IsIncomplete = false
	return nil
}

// bitUnit tracks the storage unit that consecutive bitfields pack into.
type bitUnit struct {
	open   bool
	size   int // bytes
	cursor int // bits consumed
}

func layoutRecord(env Env, t *Type) error {
	isUnion := t.Kind == KindUnion
	members := t.Record.Members

	offset := 0 // next free byte for structs, max size for unions
	align := 0
	var unit bitUnit

	closeUnit := func(memberAlign int) {
		if unit.open {
			offset = AlignUp(offset+unit.size, max(memberAlign, 1))
		}
		unit = bitUnit{}
	}

	for i := range members {
		m := &members[i]

		if m.Type.Unqualified().Kind == KindFunc {
			env.Errorf(m.Loc, "cannot put function types into a struct, try a function pointer")
			continue
		}
		if err := Layout(env, m.Type); err != nil {
			return err
		}
		if m.Type.Size == 0 && !isFlexibleMember(t, i) {
			env.Errorf(m.Loc, "member '%s' has incomplete type %s", m.Name, m.Type)
			continue
		}

		memberAlign := m.Type.Align
		memberSize := m.Type.Size
		m.Align = memberAlign
		if memberAlign > align {
			align = memberAlign
		}

		if isUnion {
			m.Offset = 0
			m.BitOffset = 0
			if m.IsBitfield && m.BitWidth > storageBits(m.Type) {
				env.Errorf(m.Loc, "bitfield '%s' cannot fit in %s", m.Name, m.Type)
			}
			if memberSize > offset {
				offset = memberSize
			}
			continue
		}

		if m.IsBitfield {
			bits := storageBits(m.Type)
			if m.BitWidth > bits {
				env.Errorf(m.Loc, "bitfield '%s' cannot fit in %s", m.Name, m.Type)
				continue
			}
			if m.BitWidth == 0 {
				closeUnit(memberAlign)
				m.Offset = offset
				continue
			}
			if unit.open && (AlignUp(offset, memberAlign) != offset || unit.cursor+m.BitWidth > bits) {
				closeUnit(memberAlign)
			}
			if !unit.open {
				offset = AlignUp(offset, memberAlign)
				unit = bitUnit{open: true, size: memberSize}
			}
			if memberSize > unit.size {
				unit.size = memberSize
			}
			m.Offset = offset
			m.BitOffset = unit.cursor
			unit.cursor += m.BitWidth
			continue
		}

		closeUnit(1)
		offset = AlignUp(offset, memberAlign)
		m.Offset = offset
		offset += memberSize
	}
	closeUnit(1)

	if t.Align > 0 && t.Align > align {
		align = t.Align
	}
	if align == 0 {
		align = 1
	}
	t.Align = align
	t.Size = AlignUp(offset, align)
	t.IsIncomplete = false
	return nil
}

// storageBits is the bit width of a bitfield's storage unit.
func storageBits(t *Type) int {
	if t.Unqualified().Kind == KindBool {
		return 1
	}
	return t.Size * 8
}

// isFlexibleMember reports whether member i is a trailing `T name[]`.
func isFlexibleMember(t *Type, i int) bool {
	m := t.Record.Members[i]
	mt := m.Type.Unqualified()
	return t.Kind == KindStruct && i == len(t.Record.Members)-1 && mt.Kind == KindArray && mt.ArrayCount == 0
}
