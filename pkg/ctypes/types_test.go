package ctypes

import (
	"fmt"
	"strings"
	"testing"

	"github.com/raymyers/cfront/pkg/lexer"
)

// fakeEnv resolves deferred expressions from a position table and records
// diagnostics.
type fakeEnv struct {
	values map[int]int64
	errs   []string
}

func (e *fakeEnv) ConstExprAt(pos int, _ lexer.TokenType) (int64, error) {
	v, ok := e.values[pos]
	if !ok {
		return 0, fmt.Errorf("no expression at %d", pos)
	}
	return v, nil
}

func (e *fakeEnv) Errorf(_ lexer.Loc, format string, args ...any) {
	e.errs = append(e.errs, fmt.Sprintf(format, args...))
}

func record(a *Arena, kind Kind, name string, members ...Member) *Type {
	return a.New(Type{Kind: kind, Record: &Record{Name: name, Members: members}})
}

func field(name string, t *Type) Member {
	return Member{Name: name, Type: t}
}

func bitfield(name string, t *Type, width int) Member {
	return Member{Name: name, Type: t, IsBitfield: true, BitWidth: width}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		offset, align, want int
	}{
		{0, 0, 0},
		{13, 0, 0},
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{17, 1, 17},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.offset, tt.align), func(t *testing.T) {
			got := AlignUp(tt.offset, tt.align)
			if got != tt.want {
				t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.offset, tt.align, got, tt.want)
			}
			if tt.align > 0 && (got < tt.offset || got%tt.align != 0) {
				t.Errorf("AlignUp(%d, %d) = %d is not an aligned upper bound", tt.offset, tt.align, got)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	a := NewArena(8)
	tests := []struct {
		name string
		typ  *Type
		want string
	}{
		{"void", a.Void(), "void"},
		{"int", a.Int(), "int"},
		{"unsigned int", a.UInt(), "unsigned int"},
		{"pointer to int", a.Pointer(a.Int()), "int *"},
		{"array of char", a.Array(a.Char(), 10), "char[10]"},
		{"struct", record(a, KindStruct, "point"), "struct point"},
		{"const", a.New(Type{Kind: KindQualified, Base: a.Int(), IsConst: true}), "const int"},
		{"typedef", a.New(Type{Kind: KindQualified, Base: a.Int(), AlsoKnownAs: "myint"}), "myint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeEquality(t *testing.T) {
	a := NewArena(8)
	s1 := record(a, KindStruct, "A")
	s2 := record(a, KindStruct, "A")
	fn := func(ret *Type, params ...*Type) *Type {
		f := &Func{Return: ret}
		for _, p := range params {
			f.Params = append(f.Params, Param{Type: p})
		}
		return a.New(Type{Kind: KindFunc, Func: f})
	}

	tests := []struct {
		name  string
		x, y  *Type
		equal bool
	}{
		{"int == int", a.Int(), a.Int(), true},
		{"int != unsigned int", a.Int(), a.UInt(), false},
		{"int != long", a.Int(), a.Builtin(KindLong, false), false},
		{"pointer to int == pointer to int", a.Pointer(a.Int()), a.Pointer(a.Int()), true},
		{"pointer to int != pointer to char", a.Pointer(a.Int()), a.Pointer(a.Char()), false},
		{"array[10] == array[10]", a.Array(a.Int(), 10), a.Array(a.Int(), 10), true},
		{"array[10] != array[20]", a.Array(a.Int(), 10), a.Array(a.Int(), 20), false},
		{"same record", s1, s1, true},
		{"distinct records with one name", s1, s2, false},
		{"typedef sees through", a.New(Type{Kind: KindQualified, Base: a.Int(), AlsoKnownAs: "T"}), a.Int(), true},
		{"same signature", fn(a.Int(), a.Int()), fn(a.Int(), a.Int()), true},
		{"param count differs", fn(a.Int(), a.Int()), fn(a.Int()), false},
		{"return differs", fn(a.Int()), fn(a.Void()), false},
		{"nil == nil", nil, nil, true},
		{"nil != int", nil, a.Int(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.x, tt.y); got != tt.equal {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.equal)
			}
		})
	}
}

func TestStructLayout(t *testing.T) {
	a := NewArena(8)
	tests := []struct {
		name        string
		members     []Member
		wantSize    int
		wantAlign   int
		wantOffsets []int
	}{
		{"char int", []Member{field("a", a.Char()), field("b", a.Int())}, 8, 4, []int{0, 4}},
		{"int char", []Member{field("a", a.Int()), field("b", a.Char())}, 8, 4, []int{0, 4}},
		{"char long char", []Member{field("a", a.Char()), field("b", a.Builtin(KindLong, false)), field("c", a.Char())}, 24, 8, []int{0, 8, 16}},
		{"shorts", []Member{field("a", a.Builtin(KindShort, false)), field("b", a.Builtin(KindShort, false)), field("c", a.Char())}, 6, 2, []int{0, 2, 4}},
		{"array member", []Member{field("a", a.Char()), field("b", a.Array(a.Int(), 3))}, 16, 4, []int{0, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &fakeEnv{}
			s := record(a, KindStruct, "", tt.members...)
			if err := Layout(env, s); err != nil {
				t.Fatalf("Layout: %v", err)
			}
			if len(env.errs) != 0 {
				t.Fatalf("unexpected diagnostics: %v", env.errs)
			}
			if s.Size != tt.wantSize || s.Align != tt.wantAlign {
				t.Errorf("size/align = %d/%d, want %d/%d", s.Size, s.Align, tt.wantSize, tt.wantAlign)
			}
			for i, want := range tt.wantOffsets {
				if got := s.Record.Members[i].Offset; got != want {
					t.Errorf("member %d offset = %d, want %d", i, got, want)
				}
			}
			last := s.Record.Members[len(s.Record.Members)-1]
			if AlignUp(last.Offset+last.Type.Size, s.Align) != s.Size {
				t.Errorf("last member end %d does not round to size %d", last.Offset+last.Type.Size, s.Size)
			}
		})
	}
}

func TestUnionLayout(t *testing.T) {
	a := NewArena(8)
	env := &fakeEnv{}
	u := record(a, KindUnion, "u",
		field("c", a.Char()),
		field("arr", a.Array(a.Char(), 5)),
		field("i", a.Int()),
	)
	if err := Layout(env, u); err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if u.Size != 8 || u.Align != 4 {
		t.Errorf("size/align = %d/%d, want 8/4", u.Size, u.Align)
	}
	for _, m := range u.Record.Members {
		if m.Offset != 0 {
			t.Errorf("member %s offset = %d, want 0", m.Name, m.Offset)
		}
	}
}

func TestBitfieldLayout(t *testing.T) {
	a := NewArena(8)

	t.Run("packs into one unit", func(t *testing.T) {
		env := &fakeEnv{}
		s := record(a, KindStruct, "",
			bitfield("a", a.UInt(), 3),
			bitfield("b", a.UInt(), 5),
			bitfield("c", a.UInt(), 24),
		)
		if err := Layout(env, s); err != nil {
			t.Fatal(err)
		}
		if s.Size != 4 {
			t.Errorf("size = %d, want 4", s.Size)
		}
		wantBits := []int{0, 3, 8}
		for i, m := range s.Record.Members {
			if m.Offset != 0 || m.BitOffset != wantBits[i] {
				t.Errorf("%s at %d:%d, want 0:%d", m.Name, m.Offset, m.BitOffset, wantBits[i])
			}
		}
	})

	t.Run("overflow starts a new unit", func(t *testing.T) {
		env := &fakeEnv{}
		s := record(a, KindStruct, "",
			bitfield("a", a.UInt(), 30),
			bitfield("b", a.UInt(), 4),
		)
		if err := Layout(env, s); err != nil {
			t.Fatal(err)
		}
		b := s.Record.Members[1]
		if b.Offset != 4 || b.BitOffset != 0 {
			t.Errorf("b at %d:%d, want 4:0", b.Offset, b.BitOffset)
		}
		if s.Size != 8 {
			t.Errorf("size = %d, want 8", s.Size)
		}
	})

	t.Run("plain member after bitfield", func(t *testing.T) {
		env := &fakeEnv{}
		s := record(a, KindStruct, "",
			bitfield("a", a.UInt(), 1),
			field("b", a.Char()),
		)
		if err := Layout(env, s); err != nil {
			t.Fatal(err)
		}
		if got := s.Record.Members[1].Offset; got != 4 {
			t.Errorf("b offset = %d, want 4", got)
		}
	})

	t.Run("zero width closes the unit", func(t *testing.T) {
		env := &fakeEnv{}
		s := record(a, KindStruct, "",
			bitfield("a", a.UInt(), 1),
			bitfield("", a.UInt(), 0),
			bitfield("b", a.UInt(), 1),
		)
		if err := Layout(env, s); err != nil {
			t.Fatal(err)
		}
		if got := s.Record.Members[2].Offset; got != 4 {
			t.Errorf("b offset = %d, want 4", got)
		}
	})

	t.Run("wider than storage", func(t *testing.T) {
		env := &fakeEnv{}
		s := record(a, KindStruct, "", bitfield("a", a.Char(), 9))
		if err := Layout(env, s); err != nil {
			t.Fatal(err)
		}
		if len(env.errs) != 1 {
			t.Errorf("got %d diagnostics, want 1: %v", len(env.errs), env.errs)
		}
	})

	t.Run("bool is one bit", func(t *testing.T) {
		env := &fakeEnv{}
		s := record(a, KindStruct, "", bitfield("a", a.Builtin(KindBool, false), 2))
		_ = Layout(env, s)
		if len(env.errs) != 1 {
			t.Errorf("got %d diagnostics, want 1", len(env.errs))
		}
	})
}

func TestLayoutIdempotent(t *testing.T) {
	a := NewArena(8)
	env := &fakeEnv{}
	s := record(a, KindStruct, "", field("a", a.Char()), bitfield("b", a.Char(), 9))
	if err := Layout(env, s); err != nil {
		t.Fatal(err)
	}
	size := s.Size
	if err := Layout(env, s); err != nil {
		t.Fatal(err)
	}
	if s.Size != size {
		t.Errorf("size changed from %d to %d", size, s.Size)
	}
	if len(env.errs) != 1 {
		t.Errorf("got %d diagnostics after two layouts, want 1", len(env.errs))
	}
}

func TestEmptyRecordLaidOutOnce(t *testing.T) {
	a := NewArena(8)
	env := &fakeEnv{}
	s := record(a, KindStruct, "E")
	if s.LaidOut() {
		t.Fatal("laid out before Layout")
	}
	if err := Layout(env, s); err != nil {
		t.Fatal(err)
	}
	if s.Size != 0 || s.Align != 1 || !s.LaidOut() {
		t.Errorf("got size=%d align=%d laidOut=%v", s.Size, s.Align, s.LaidOut())
	}
	// a second call must not write the type again
	s.Align = 16
	if err := Layout(env, s); err != nil {
		t.Fatal(err)
	}
	if s.Align != 16 || s.InProgress() {
		t.Errorf("empty record was laid out again (align=%d)", s.Align)
	}
	if len(env.errs) != 0 {
		t.Errorf("unexpected diagnostics: %v", env.errs)
	}
}

func TestLayoutErrorIsSticky(t *testing.T) {
	a := NewArena(8)

	t.Run("oversized member", func(t *testing.T) {
		env := &fakeEnv{}
		arr := a.Array(a.Char(), 0x7fffffff)
		s := record(a, KindStruct, "R", field("c", arr))
		first := Layout(env, s)
		if first == nil {
			t.Fatal("expected an error")
		}
		if err := Layout(env, arr); err == nil {
			t.Error("member array lost its error")
		}
		if err := Layout(env, s); err != first {
			t.Errorf("second layout returned %v, want %v", err, first)
		}
		if len(env.errs) != 1 {
			t.Errorf("got %d diagnostics, want 1: %v", len(env.errs), env.errs)
		}
		if s.LaidOut() || arr.LaidOut() {
			t.Error("failed types are marked laid out")
		}
	})

	t.Run("enum value", func(t *testing.T) {
		env := &fakeEnv{}
		e := a.New(Type{Kind: KindEnum, Enum: &Enum{Entries: []Enumerator{
			{Name: "A", HasExpr: true, ExprPos: 9},
		}}})
		if err := Layout(env, e); err == nil {
			t.Fatal("expected an error")
		}
		// the expression is not evaluated a second time
		env.values = map[int]int64{9: 1}
		if err := Layout(env, e); err == nil {
			t.Fatal("expected the first error again")
		}
		if len(env.errs) != 0 {
			t.Errorf("layout reported on its own: %v", env.errs)
		}
		if e.Size != 0 {
			t.Errorf("size = %d, want 0", e.Size)
		}
	})
}

func TestArrayLayout(t *testing.T) {
	a := NewArena(8)

	t.Run("deferred count", func(t *testing.T) {
		env := &fakeEnv{values: map[int]int64{7: 12}}
		arr := a.New(Type{Kind: KindArray, Base: a.Int(), ArrayCountPos: 7, CountDeferred: true})
		if err := Layout(env, arr); err != nil {
			t.Fatal(err)
		}
		if arr.ArrayCount != 12 || arr.Size != 48 || arr.Align != 4 || arr.CountDeferred {
			t.Errorf("got count=%d size=%d align=%d", arr.ArrayCount, arr.Size, arr.Align)
		}
	})

	t.Run("too large", func(t *testing.T) {
		env := &fakeEnv{}
		arr := a.Array(a.Int(), 1<<30)
		if err := Layout(env, arr); err == nil {
			t.Error("expected an error")
		}
		if len(env.errs) != 1 {
			t.Errorf("got %d diagnostics, want 1", len(env.errs))
		}
	})

	t.Run("array of functions", func(t *testing.T) {
		env := &fakeEnv{}
		fn := a.New(Type{Kind: KindFunc, Func: &Func{Return: a.Int()}})
		_ = Layout(env, a.Array(fn, 2))
		if len(env.errs) != 1 {
			t.Errorf("got %d diagnostics, want 1", len(env.errs))
		}
	})
}

func TestEnumLayout(t *testing.T) {
	a := NewArena(8)
	env := &fakeEnv{values: map[int]int64{3: 5}}
	e := a.New(Type{Kind: KindEnum, Enum: &Enum{Entries: []Enumerator{
		{Name: "A"},
		{Name: "B", HasExpr: true, ExprPos: 3},
		{Name: "C"},
	}}})
	if err := Layout(env, e); err != nil {
		t.Fatal(err)
	}
	want := []int64{0, 5, 6}
	for i, ent := range e.Enum.Entries {
		if ent.Value != want[i] {
			t.Errorf("%s = %d, want %d", ent.Name, ent.Value, want[i])
		}
	}
	if e.Size != 4 || e.Align != 4 {
		t.Errorf("size/align = %d/%d, want 4/4", e.Size, e.Align)
	}
}

func TestEnumValueRange(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		errs  int
	}{
		{"int max", 0x7fffffff, 0},
		{"unsigned max", 0xffffffff, 0},
		{"int min", -0x80000000, 0},
		{"too big", 1 << 40, 1},
		{"too small", -0x80000001, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArena(8)
			env := &fakeEnv{values: map[int]int64{1: tt.value}}
			e := a.New(Type{Kind: KindEnum, Enum: &Enum{Entries: []Enumerator{
				{Name: "A", HasExpr: true, ExprPos: 1},
			}}})
			if err := Layout(env, e); err != nil {
				t.Fatal(err)
			}
			if len(env.errs) != tt.errs {
				t.Fatalf("got %d diagnostics, want %d: %v", len(env.errs), tt.errs, env.errs)
			}
			if tt.errs > 0 && !strings.Contains(env.errs[0], "does not fit in int") {
				t.Errorf("unexpected diagnostic %q", env.errs[0])
			}
			if e.Size != 4 {
				t.Errorf("size = %d, want 4", e.Size)
			}
		})
	}
}

func TestRecordRejectsFunctionMember(t *testing.T) {
	a := NewArena(8)
	env := &fakeEnv{}
	fn := a.New(Type{Kind: KindFunc, Func: &Func{Return: a.Int()}})
	s := record(a, KindStruct, "", field("f", fn))
	_ = Layout(env, s)
	if len(env.errs) != 1 {
		t.Errorf("got %d diagnostics, want 1", len(env.errs))
	}
}

func TestFindMemberAnonymous(t *testing.T) {
	a := NewArena(8)
	env := &fakeEnv{}
	inner := record(a, KindUnion, "", field("x", a.Int()), field("y", a.Char()))
	s := record(a, KindStruct, "", field("tag", a.Char()), field("", inner))
	if err := Layout(env, s); err != nil {
		t.Fatal(err)
	}
	m, off, ok := s.FindMember("y")
	if !ok || m.Name != "y" || off != 4 {
		t.Errorf("FindMember(y) = %v, %d, %v", m, off, ok)
	}
	if _, _, ok := s.FindMember("z"); ok {
		t.Error("found a member that does not exist")
	}
}

func TestCheckCycles(t *testing.T) {
	countCycles := func(a *Arena) (int, int) {
		n := a.AssignOrdinals()
		reports := 0
		cycles := CheckCycles(a.Types(), n, func(*Type, lexer.Loc) { reports++ })
		return cycles, reports
	}

	t.Run("self containing", func(t *testing.T) {
		a := NewArena(8)
		s := record(a, KindStruct, "node")
		s.Record.Members = []Member{field("v", a.Int()), field("next", s)}
		cycles, reports := countCycles(a)
		if cycles != 1 || reports != 1 {
			t.Errorf("cycles=%d reports=%d, want 1/1", cycles, reports)
		}
	})

	t.Run("transitive through array", func(t *testing.T) {
		a := NewArena(8)
		x := record(a, KindStruct, "x")
		y := record(a, KindStruct, "y")
		z := record(a, KindStruct, "z")
		x.Record.Members = []Member{field("y", y)}
		y.Record.Members = []Member{field("z", a.Array(z, 2))}
		z.Record.Members = []Member{field("x", x)}
		cycles, reports := countCycles(a)
		if cycles != 1 || reports != 1 {
			t.Errorf("cycles=%d reports=%d, want 1/1", cycles, reports)
		}
	})

	t.Run("pointer breaks the cycle", func(t *testing.T) {
		a := NewArena(8)
		s := record(a, KindStruct, "list")
		s.Record.Members = []Member{field("next", a.Pointer(s))}
		if cycles, reports := countCycles(a); cycles != 0 || reports != 0 {
			t.Errorf("cycles=%d reports=%d, want 0/0", cycles, reports)
		}
	})

	t.Run("two independent cycles", func(t *testing.T) {
		a := NewArena(8)
		p := record(a, KindStruct, "p")
		q := record(a, KindStruct, "q")
		p.Record.Members = []Member{field("q", q)}
		q.Record.Members = []Member{field("p", p)}
		r := record(a, KindUnion, "r")
		r.Record.Members = []Member{field("r", r)}
		cycles, reports := countCycles(a)
		if cycles != 2 || reports != 2 {
			t.Errorf("cycles=%d reports=%d, want 2/2", cycles, reports)
		}
	})

	t.Run("shared acyclic member", func(t *testing.T) {
		a := NewArena(8)
		leaf := record(a, KindStruct, "leaf", field("v", a.Int()))
		record(a, KindStruct, "a", field("l", leaf))
		record(a, KindStruct, "b", field("l", leaf))
		if cycles, _ := countCycles(a); cycles != 0 {
			t.Errorf("cycles=%d, want 0", cycles)
		}
	})
}

func TestResolveQualified(t *testing.T) {
	a := NewArena(8)
	s := record(a, KindStruct, "s", field("a", a.Int()))
	q := a.New(Type{Kind: KindQualified, Base: s, IsConst: true, Align: 16, AlsoKnownAs: "S"})
	if err := Layout(&fakeEnv{}, q); err != nil {
		t.Fatal(err)
	}
	a.ResolveQualified()
	if q.Kind != KindStruct || q.Record != s.Record {
		t.Fatalf("qualified type not resolved to its base: %v", q.Kind)
	}
	if !q.IsConst || q.Align != 16 || q.AlsoKnownAs != "S" {
		t.Errorf("lost qualifiers: const=%v align=%d aka=%q", q.IsConst, q.Align, q.AlsoKnownAs)
	}
}
