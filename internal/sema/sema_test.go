package sema

import (
	"testing"

	fberrors "fasterbasic/internal/errors"
	"fasterbasic/internal/lexer"
	"fasterbasic/internal/parser"
	"fasterbasic/internal/types"
)

func analyzeSource(t *testing.T, src string) *Analyzer {
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
	a := New("test.bas")
	a.Analyze(stmts)
	return a
}

func firstCategory(t *testing.T, a *Analyzer) fberrors.Category {
	t.Helper()
	if !a.Errors.HasErrors() {
		t.Fatalf("expected at least one diagnostic, got none")
	}
	return a.Errors.Errors()[0].Category
}

func TestUndeclaredIdentifierReported(t *testing.T) {
	a := analyzeSource(t, "LET x = y + 1\n")
	if got := firstCategory(t, a); got != fberrors.ResolutionError {
		t.Errorf("expected ResolutionError, got %s", got)
	}
}

func TestForwardFunctionReferenceResolves(t *testing.T) {
	a := analyzeSource(t, "LET x = Square(5)\nFUNCTION Square(n AS INTEGER)\nRETURN n * n\nEND FUNCTION\n")
	if a.Errors.HasErrors() {
		t.Fatalf("unexpected errors: %s", a.Errors.String())
	}
}

func TestDuplicateFunctionDeclarationRejected(t *testing.T) {
	a := analyzeSource(t, "FUNCTION F()\nEND FUNCTION\nFUNCTION F()\nEND FUNCTION\n")
	if got := firstCategory(t, a); got != fberrors.SemanticError {
		t.Errorf("expected SemanticError, got %s", got)
	}
}

func TestWrongArityReported(t *testing.T) {
	a := analyzeSource(t, "FUNCTION Add(a AS INTEGER, b AS INTEGER)\nRETURN a + b\nEND FUNCTION\nLET x = Add(1)\n")
	if !a.Errors.HasErrors() {
		t.Fatalf("expected a wrong-arity diagnostic")
	}
}

func TestNarrowingAssignmentRejected(t *testing.T) {
	a := analyzeSource(t, "DIM x AS INTEGER\nDIM y AS DOUBLE\nLET x = y\n")
	if got := firstCategory(t, a); got != fberrors.TypeError {
		t.Errorf("expected TypeError for narrowing assignment, got %s", got)
	}
}

func TestWideningAssignmentAccepted(t *testing.T) {
	a := analyzeSource(t, "DIM x AS DOUBLE\nDIM y AS INTEGER\nLET x = y\n")
	if a.Errors.HasErrors() {
		t.Fatalf("unexpected errors: %s", a.Errors.String())
	}
}

func TestClassInheritanceCycleDetected(t *testing.T) {
	a := analyzeSource(t, "CLASS A EXTENDS B\nEND CLASS\nCLASS B EXTENDS A\nEND CLASS\n")
	if !a.Errors.HasErrors() {
		t.Fatalf("expected an inheritance-cycle diagnostic")
	}
}

func TestClassMethodInheritedAndOverridden(t *testing.T) {
	src := `CLASS Animal
FUNCTION Speak() AS STRING
RETURN "..."
END FUNCTION
END CLASS
CLASS Dog EXTENDS Animal
FUNCTION Speak() AS STRING
RETURN "Woof"
END FUNCTION
END CLASS
`
	a := analyzeSource(t, src)
	if a.Errors.HasErrors() {
		t.Fatalf("unexpected errors: %s", a.Errors.String())
	}
	dog := a.Classes["DOG"]
	if dog == nil {
		t.Fatalf("expected class DOG to be registered")
	}
	if len(dog.Methods) != 1 {
		t.Fatalf("expected Speak to override rather than duplicate the vtable slot, got %d methods", len(dog.Methods))
	}
}

func TestGotoUndefinedLabelReported(t *testing.T) {
	a := analyzeSource(t, "GOTO Missing\n")
	if got := firstCategory(t, a); got != fberrors.ResolutionError {
		t.Errorf("expected ResolutionError, got %s", got)
	}
}

func TestGotoForwardLabelResolves(t *testing.T) {
	a := analyzeSource(t, "GOTO Skip\nPRINT 1\nSkip:\nPRINT 2\n")
	if a.Errors.HasErrors() {
		t.Fatalf("unexpected errors: %s", a.Errors.String())
	}
}

func TestMatchTypeDuplicateArmRejected(t *testing.T) {
	src := `CLASS Shape
END CLASS
DIM s AS Shape
MATCH TYPE s
CASE Shape sh
PRINT 1
CASE Shape sh2
PRINT 2
END SELECT
`
	a := analyzeSource(t, src)
	if !a.Errors.HasErrors() {
		t.Fatalf("expected a duplicate-arm diagnostic")
	}
}

func TestMatchTypeBindingScopedToArm(t *testing.T) {
	src := `CLASS Shape
END CLASS
DIM s AS Shape
MATCH TYPE s
CASE Shape sh
PRINT 1
END SELECT
PRINT sh
`
	a := analyzeSource(t, src)
	if !a.Errors.HasErrors() {
		t.Fatalf("expected undeclared-identifier diagnostic for sh used outside its arm")
	}
}

func TestExitForOutsideLoopRejected(t *testing.T) {
	a := analyzeSource(t, "EXIT FOR\n")
	if !a.Errors.HasErrors() {
		t.Fatalf("expected a diagnostic for EXIT FOR outside any loop")
	}
}

func TestExitForInsideForAccepted(t *testing.T) {
	a := analyzeSource(t, "FOR i = 1 TO 10\nEXIT FOR\nNEXT i\n")
	if a.Errors.HasErrors() {
		t.Fatalf("unexpected errors: %s", a.Errors.String())
	}
}

func TestArrayAccessRewriteFromFunctionCallSyntax(t *testing.T) {
	a := analyzeSource(t, "DIM arr(10) AS INTEGER\nLET x = arr(3)\n")
	if a.Errors.HasErrors() {
		t.Fatalf("unexpected errors: %s", a.Errors.String())
	}
}

func TestForEachOverListBindsElementType(t *testing.T) {
	a := analyzeSource(t, "DIM xs AS LIST OF INTEGER\nFOR EACH x IN xs\nPRINT x\nNEXT\n")
	if a.Errors.HasErrors() {
		t.Fatalf("unexpected errors: %s", a.Errors.String())
	}
	sym, ok := a.Symbols.LookupFunction("nonexistent")
	if ok {
		t.Fatalf("unexpected lookup: %v", sym)
	}
}

func TestFieldNotFoundReported(t *testing.T) {
	src := `TYPE Point
x AS INTEGER
y AS INTEGER
END TYPE
DIM p AS Point
LET z = p.Missing
`
	a := analyzeSource(t, src)
	if got := firstCategory(t, a); got != fberrors.SemanticError {
		t.Errorf("expected SemanticError for missing field, got %s", got)
	}
}

func TestStringConcatenationWidening(t *testing.T) {
	a := analyzeSource(t, `LET greeting = "Hi " + "there"` + "\n")
	if a.Errors.HasErrors() {
		t.Fatalf("unexpected errors: %s", a.Errors.String())
	}
	sym, ok := a.Symbols.LookupVariable("greeting")
	if !ok || sym.Type.BaseType != types.StringT {
		t.Fatalf("expected greeting to infer STRING, got %+v", sym)
	}
}
