package symtab

import (
	"testing"

	"fasterbasic/internal/types"
)

func TestDeclareAndLookupVariable(t *testing.T) {
	tbl := New()
	_, ok := tbl.DeclareVariable("Count", types.Scalar(types.Integer), true)
	if !ok {
		t.Fatalf("expected first declaration to succeed")
	}
	if _, ok := tbl.DeclareVariable("count", types.Scalar(types.Integer), true); ok {
		t.Fatalf("expected case-insensitive duplicate declaration to fail")
	}
	sym, ok := tbl.LookupVariable("COUNT")
	if !ok || sym.Type.BaseType != types.Integer {
		t.Fatalf("lookup failed or wrong type: %+v", sym)
	}
}

func TestLocalShadowsGlobal(t *testing.T) {
	tbl := New()
	tbl.DeclareVariable("X", types.Scalar(types.Double), true)

	leave := tbl.EnterScope()
	tbl.DeclareVariable("X", types.Scalar(types.Integer), false)

	sym, _ := tbl.LookupVariable("x")
	if sym.Type.BaseType != types.Integer {
		t.Errorf("expected local X to shadow global, got %s", sym.Type.BaseType)
	}

	leave()
	sym, _ = tbl.LookupVariable("x")
	if sym.Type.BaseType != types.Double {
		t.Errorf("expected global X visible again after leaving scope, got %s", sym.Type.BaseType)
	}
}

func TestNameMangling(t *testing.T) {
	if got := MangleVar("total", "i32"); got != "var_total_i32" {
		t.Errorf("got %s", got)
	}
	if got := MangleFunc("fact"); got != "func_FACT" {
		t.Errorf("got %s", got)
	}
	if got := MangleMethod("Dog", "Speak"); got != "Dog__Speak" {
		t.Errorf("got %s", got)
	}
	if got := MangleVTable("Dog"); got != "vtable_Dog" {
		t.Errorf("got %s", got)
	}
}

func TestFunctionNamesSortedDeterministic(t *testing.T) {
	tbl := New()
	tbl.DeclareFunction("Zeta", nil, types.Scalar(types.Integer), false)
	tbl.DeclareFunction("Alpha", nil, types.Scalar(types.Integer), false)
	names := tbl.FunctionNames()
	if len(names) != 2 || names[0] != "ALPHA" || names[1] != "ZETA" {
		t.Errorf("expected sorted [ALPHA ZETA], got %v", names)
	}
}
