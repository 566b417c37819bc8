package ssa

import (
	"strings"
	"testing"

	"fasterbasic/internal/cfg"
	"fasterbasic/internal/lexer"
	"fasterbasic/internal/parser"
)

func buildModule(t *testing.T, src string) string {
	t.Helper()
	scanner := lexer.NewScanner(src, "test.bas")
	tokens := scanner.ScanTokens()
	if len(scanner.Errors) > 0 {
		t.Fatalf("lex errors: %v", scanner.Errors)
	}
	p := parser.NewParserWithSource(tokens, src, "test.bas")
	stmts := p.Parse()
	if len(p.Errors) > 0 {
		t.Fatalf("parse errors: %v", p.Errors)
	}
	prog := cfg.BuildProgram(stmts)
	m := EmitProgram(prog)
	return m.String()
}

func countOccurrences(text, sub string) int {
	return strings.Count(text, sub)
}

// The setjmp/condbr adjacency invariant (spec §4.6): a TRY block's
// setjmp call and its condbr must land in the same block, with the
// guarded body split off into a successor rather than sharing it.
func TestTrySetjmpCondBrAdjacency(t *testing.T) {
	src := "TRY\nPRINT 1\nCATCH e\nPRINT 2\nEND TRY\n"
	text := buildModule(t, src)

	lines := strings.Split(text, "\n")
	setjmpLine := -1
	for i, line := range lines {
		if strings.Contains(line, "call i32 @setjmp") {
			setjmpLine = i
			break
		}
	}
	if setjmpLine < 0 {
		t.Fatalf("expected a setjmp call in emitted IR, got:\n%s", text)
	}
	// The line right after setjmp's result is compared and branched on;
	// nothing else may run in between, or a longjmp landing mid-body
	// could observe half-finished state.
	found := false
	for i := setjmpLine + 1; i < len(lines) && i < setjmpLine+4; i++ {
		if strings.Contains(lines[i], "br i1") {
			found = true
			break
		}
		if strings.Contains(lines[i], "call ") {
			t.Fatalf("expected no call between setjmp and its condbr, found one at line %d: %s", i, lines[i])
		}
	}
	if !found {
		t.Fatalf("expected a conditional branch shortly after setjmp, got:\n%s", strings.Join(lines[setjmpLine:setjmpLine+5], "\n"))
	}
}

func TestForLoopEmitsBothDirectionComparisons(t *testing.T) {
	src := "FOR i = 1 TO 10\nPRINT i\nNEXT i\n"
	text := buildModule(t, src)

	if !strings.Contains(text, ".desc") || !strings.Contains(text, ".asc") {
		t.Fatalf("expected both a .desc and .asc header split for re-checked step direction, got:\n%s", text)
	}
	if countOccurrences(text, "icmp sle") < 1 {
		t.Fatalf("expected an ascending (sle) comparison in the FOR header, got:\n%s", text)
	}
	if countOccurrences(text, "icmp sge") < 1 {
		t.Fatalf("expected a descending (sge) comparison in the FOR header, got:\n%s", text)
	}
}

func TestForEachEmitsListAccessors(t *testing.T) {
	src := "DIM items(5) AS INTEGER\nFOR EACH x IN items\nPRINT x\nNEXT x\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "call i32 @list_length") {
		t.Errorf("expected FOR EACH to call list_length, got:\n%s", text)
	}
	if !strings.Contains(text, "call ptr @list_get_ptr") && !strings.Contains(text, "call i8* @list_get_ptr") {
		t.Errorf("expected FOR EACH to call list_get_ptr, got:\n%s", text)
	}
	if !strings.Contains(text, "call i32 @list_get_tag") {
		t.Errorf("expected FOR EACH to call list_get_tag, got:\n%s", text)
	}
}

func TestSharedVariableUsesModuleGlobal(t *testing.T) {
	src := "SHARED counter\nLET counter = 1\nFUNCTION Bump()\nSHARED counter\nLET counter = counter + 1\nEND FUNCTION\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "@shared.counter") {
		t.Fatalf("expected a module-level global for the SHARED variable, got:\n%s", text)
	}
	if countOccurrences(text, "@shared.counter") < 2 {
		t.Fatalf("expected both main and Bump to reference the same shared global, got:\n%s", text)
	}
}

func TestReturnValuePropagatesThroughExitBlock(t *testing.T) {
	src := "FUNCTION Square(n AS INTEGER)\nRETURN n * n\nEND FUNCTION\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "define double @Square") {
		t.Fatalf("expected Square (no AS clause, no suffix) to be emitted with the default double return type, got:\n%s", text)
	}
	if !strings.Contains(text, "ret double") {
		t.Fatalf("expected a ret double once Square's RETURN value is stored and reloaded, got:\n%s", text)
	}
}

func TestObjectAllocationStampsTagAndTracksScope(t *testing.T) {
	src := "CLASS Animal\nDIM Legs AS INTEGER\nEND CLASS\nDIM a AS Animal\nLET a = NEW Animal()\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "call void @samm_track") {
		t.Fatalf("expected NEW to register the allocation with samm_track, got:\n%s", text)
	}
	if !strings.Contains(text, "call ptr @object_alloc") && !strings.Contains(text, "call i8* @object_alloc") {
		t.Fatalf("expected NEW to allocate via object_alloc, got:\n%s", text)
	}
}

func TestMethodCallOnVariableDispatchesDynamically(t *testing.T) {
	src := "CLASS Animal\nFUNCTION Speak() AS STRING\nRETURN \"...\"\nEND FUNCTION\nEND CLASS\n" +
		"CLASS Dog EXTENDS Animal\nFUNCTION Speak() AS STRING\nRETURN \"Woof!\"\nEND FUNCTION\nEND CLASS\n" +
		"DIM pet AS Animal\nLET pet = NEW Dog()\nPRINT pet.Speak()\n"
	text := buildModule(t, src)

	if strings.Contains(text, "call ptr @Animal__Speak(") || strings.Contains(text, "call i8* @Animal__Speak(") {
		t.Fatalf("expected a base-typed variable's method call to NOT be statically devirtualized to Animal__Speak, got:\n%s", text)
	}
	if strings.Contains(text, "call ptr @object_invoke_method") || strings.Contains(text, "call i8* @object_invoke_method") {
		t.Fatalf("expected pet.Speak() to dispatch through a real vtable load, not object_invoke_method's by-name fallback, got:\n%s", text)
	}
	if !strings.Contains(text, "@vtable.Dog") {
		t.Fatalf("expected the Dog instance actually allocated to carry a vtable global, got:\n%s", text)
	}
	if countOccurrences(text, "getelementptr") == 0 {
		t.Fatalf("expected pet.Speak() to index into a vtable via getelementptr, got:\n%s", text)
	}
}

func TestCaretOperatorCallsMathPow(t *testing.T) {
	src := "DIM x AS DOUBLE\nLET x = 2 ^ 8\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "call double @math_pow") {
		t.Fatalf("expected the ^ operator to lower to a math_pow call regardless of operand type, got:\n%s", text)
	}
}

func TestIntegerCaretPromotesBeforeMathPow(t *testing.T) {
	src := "DIM n AS INTEGER\nDIM x AS DOUBLE\nLET n = 2\nLET x = n ^ 3\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "call double @math_pow") {
		t.Fatalf("expected an integer-operand ^ to also lower to math_pow, got:\n%s", text)
	}
}

func TestFloatDivisionUsesBothOperands(t *testing.T) {
	src := "DIM x AS DOUBLE\nLET x = 7.0 / 2.0\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "fdiv double") {
		t.Fatalf("expected a genuine fdiv instruction (both operands), got:\n%s", text)
	}
}

func TestSwapIsRefcountNeutral(t *testing.T) {
	src := "DIM a AS STRING\nDIM b AS STRING\nLET a = \"x\"\nLET b = \"y\"\nSWAP a, b\n"
	text := buildModule(t, src)

	retains := countOccurrences(text, "call void @string_retain")
	releases := countOccurrences(text, "call void @string_release")
	if retains == 0 {
		t.Fatalf("expected SWAP's underlying assignments to retain their string values, got:\n%s", text)
	}
	if retains != releases {
		t.Fatalf("expected SWAP's two assignments to balance retains (%d) against releases (%d)", retains, releases)
	}
}

func TestIncDecMutateInPlace(t *testing.T) {
	src := "DIM n AS INTEGER\nLET n = 1\nINC n\nDEC n\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "add i32") {
		t.Fatalf("expected INC to emit an add, got:\n%s", text)
	}
	if !strings.Contains(text, "sub i32") {
		t.Fatalf("expected DEC to emit a sub, got:\n%s", text)
	}
}

func TestRedimPreserveCallsArrayResize(t *testing.T) {
	src := "DIM items(5) AS INTEGER\nREDIM PRESERVE items(10)\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "call ptr @array_resize") && !strings.Contains(text, "call i8* @array_resize") {
		t.Fatalf("expected REDIM PRESERVE to call array_resize rather than array_create, got:\n%s", text)
	}
}

func TestMainEntersAndExitsScope(t *testing.T) {
	src := "DIM s AS STRING\nLET s = \"hi\"\nPRINT s\n"
	text := buildModule(t, src)

	if !strings.Contains(text, "call void @samm_enter_scope") {
		t.Fatalf("expected main to enter a SAMM scope since it allocates a string, got:\n%s", text)
	}
	if !strings.Contains(text, "call void @samm_exit_scope") {
		t.Fatalf("expected main to exit its SAMM scope before returning, got:\n%s", text)
	}
}
