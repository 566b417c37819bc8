package types

import "testing"

func TestCanWiden(t *testing.T) {
	cases := []struct {
		from, to Base
		want     bool
	}{
		{Integer, Double, true},
		{Short, Integer, true},
		{Double, Integer, false},
		{Integer, Short, false},
		{Single, Double, true},
		{Byte, Byte, true},
	}
	for _, c := range cases {
		if got := CanWiden(c.from, c.to); got != c.want {
			t.Errorf("CanWiden(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestResultOfBinaryNumeric(t *testing.T) {
	r := ResultOfBinaryNumeric(Scalar(Integer), Scalar(Double))
	if r.BaseType != Double {
		t.Errorf("expected DOUBLE, got %s", r.BaseType)
	}
	r2 := ResultOfBinaryNumeric(Scalar(Integer), Scalar(Short))
	if r2.BaseType != Integer {
		t.Errorf("expected INTEGER, got %s", r2.BaseType)
	}
}

func TestNewClassTableInheritance(t *testing.T) {
	base := NewClassTable("Animal", nil,
		[]Field{{Name: "Name", Type: Scalar(StringT)}},
		[]Method{{Name: "Speak", IsSub: true}, {Name: "NEW", IsSub: true}})

	derived := NewClassTable("Dog", base,
		[]Field{{Name: "Breed", Type: Scalar(StringT)}},
		[]Method{{Name: "Speak", IsSub: true}})

	if len(derived.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(derived.Fields))
	}
	if derived.Fields[0].Name != "Name" || derived.Fields[1].Name != "Breed" {
		t.Errorf("fields not prefixed correctly: %+v", derived.Fields)
	}
	if len(derived.Methods) != 2 {
		t.Fatalf("expected 2 vtable slots, got %d", len(derived.Methods))
	}
	if derived.Methods[0].DeclaredBy != "Dog" {
		t.Errorf("expected Speak slot overridden by Dog, got %s", derived.Methods[0].DeclaredBy)
	}

	lookup := map[string]*ClassTable{"Animal": base, "Dog": derived}
	if !IsAncestor(derived, "Animal", func(n string) *ClassTable { return lookup[n] }) {
		t.Errorf("expected Animal to be an ancestor of Dog")
	}
}

func TestNarrowingNotAllowed(t *testing.T) {
	if CanWiden(Double, Integer) {
		t.Errorf("double -> integer must not be an allowed implicit widen")
	}
}
