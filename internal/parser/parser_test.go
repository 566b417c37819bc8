package parser

import (
	"testing"

	"fasterbasic/internal/ast"
	"fasterbasic/internal/lexer"
)

func parseSource(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	scanner := lexer.NewScanner(src, "test.bas")
	toks := scanner.ScanTokens()
	if len(scanner.Errors) != 0 {
		t.Fatalf("unexpected lex errors: %v", scanner.Errors)
	}
	p := NewParserWithSource(toks, src, "test.bas")
	stmts := p.Parse()
	if len(p.Errors) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors)
	}
	return stmts
}

func TestLetAssignment(t *testing.T) {
	stmts := parseSource(t, "LET x% = 5\n")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	let, ok := stmts[0].(*ast.LetStmt)
	if !ok {
		t.Fatalf("expected *ast.LetStmt, got %T", stmts[0])
	}
	if let.Name != "x" || let.Suffix != lexer.SuffixInt {
		t.Errorf("unexpected target: %+v", let)
	}
}

func TestBareAssignmentWithoutLet(t *testing.T) {
	stmts := parseSource(t, "total = total + 1\n")
	let, ok := stmts[0].(*ast.LetStmt)
	if !ok {
		t.Fatalf("expected *ast.LetStmt, got %T", stmts[0])
	}
	bin, ok := let.Value.(*ast.BinaryExpr)
	if !ok || bin.Operator != "+" {
		t.Fatalf("expected binary + expression, got %+v", let.Value)
	}
}

func TestEqualityInsideIfIsNotAssignment(t *testing.T) {
	stmts := parseSource(t, "IF x = 1 THEN\nPRINT x\nEND IF\n")
	ifs, ok := stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", stmts[0])
	}
	bin, ok := ifs.Condition.(*ast.BinaryExpr)
	if !ok || bin.Operator != "=" {
		t.Fatalf("expected equality BinaryExpr condition, got %+v", ifs.Condition)
	}
}

func TestSingleLineIf(t *testing.T) {
	stmts := parseSource(t, "IF x > 0 THEN PRINT x ELSE PRINT 0\n")
	ifs, ok := stmts[0].(*ast.IfStmt)
	if !ok || !ifs.SingleLine {
		t.Fatalf("expected single-line IfStmt, got %+v", stmts[0])
	}
	if len(ifs.Then) != 1 || len(ifs.Else) != 1 {
		t.Fatalf("expected one statement per branch, got then=%d else=%d", len(ifs.Then), len(ifs.Else))
	}
}

func TestBlockIfWithElseIfChain(t *testing.T) {
	src := "IF x = 1 THEN\nPRINT 1\nELSEIF x = 2 THEN\nPRINT 2\nELSE\nPRINT 3\nEND IF\n"
	stmts := parseSource(t, src)
	outer, ok := stmts[0].(*ast.IfStmt)
	if !ok || outer.SingleLine {
		t.Fatalf("expected block IfStmt, got %+v", stmts[0])
	}
	if len(outer.Else) != 1 {
		t.Fatalf("expected ELSEIF lowered to a single nested IfStmt, got %d stmts", len(outer.Else))
	}
	if _, ok := outer.Else[0].(*ast.IfStmt); !ok {
		t.Fatalf("expected nested *ast.IfStmt for ELSEIF, got %T", outer.Else[0])
	}
}

func TestForLoop(t *testing.T) {
	stmts := parseSource(t, "FOR i = 1 TO 10 STEP 2\nPRINT i\nNEXT i\n")
	forStmt, ok := stmts[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("expected *ast.ForStmt, got %T", stmts[0])
	}
	if forStmt.Var != "i" || forStmt.Step == nil {
		t.Errorf("unexpected for-loop fields: %+v", forStmt)
	}
}

func TestDoLoopUntilPostCondition(t *testing.T) {
	stmts := parseSource(t, "DO\nINC x\nLOOP UNTIL x > 10\n")
	doStmt, ok := stmts[0].(*ast.DoStmt)
	if !ok {
		t.Fatalf("expected *ast.DoStmt, got %T", stmts[0])
	}
	if doStmt.Kind != ast.DoLoopPostUntil {
		t.Errorf("expected DoLoopPostUntil, got %v", doStmt.Kind)
	}
}

func TestSelectCase(t *testing.T) {
	src := "SELECT CASE x\nCASE 1\nPRINT 1\nCASE 2, 3\nPRINT 2\nCASE ELSE\nPRINT 0\nEND SELECT\n"
	stmts := parseSource(t, src)
	sc, ok := stmts[0].(*ast.SelectCaseStmt)
	if !ok {
		t.Fatalf("expected *ast.SelectCaseStmt, got %T", stmts[0])
	}
	if len(sc.Arms) != 3 || !sc.Arms[2].IsElse {
		t.Fatalf("unexpected arms: %+v", sc.Arms)
	}
	if len(sc.Arms[1].Values) != 2 {
		t.Errorf("expected 2 values in second arm, got %d", len(sc.Arms[1].Values))
	}
}

func TestTryCatchFinally(t *testing.T) {
	src := "TRY\nTHROW 1\nCATCH e\nPRINT e\nFINALLY\nPRINT \"done\"\nEND TRY\n"
	stmts := parseSource(t, src)
	try, ok := stmts[0].(*ast.TryCatchStmt)
	if !ok {
		t.Fatalf("expected *ast.TryCatchStmt, got %T", stmts[0])
	}
	if try.CatchVar != "e" || len(try.FinallyBlock) != 1 {
		t.Errorf("unexpected try/catch fields: %+v", try)
	}
	if _, ok := try.TryBlock[0].(*ast.ThrowStmt); !ok {
		t.Errorf("expected ThrowStmt in try block, got %T", try.TryBlock[0])
	}
}

func TestFunctionDeclWithReturnType(t *testing.T) {
	src := "FUNCTION Square(n AS INTEGER) AS INTEGER\nRETURN n * n\nEND FUNCTION\n"
	stmts := parseSource(t, src)
	fn, ok := stmts[0].(*ast.FunctionDeclStmt)
	if !ok {
		t.Fatalf("expected *ast.FunctionDeclStmt, got %T", stmts[0])
	}
	if fn.Name != "Square" || len(fn.Params) != 1 || fn.ReturnType != "INTEGER" {
		t.Errorf("unexpected function decl: %+v", fn)
	}
}

func TestClassDeclWithConstructorAndExtends(t *testing.T) {
	src := "CLASS Dog EXTENDS Animal\nDIM Breed AS STRING\nSUB NEW(b AS STRING)\nBreed = b\nEND SUB\nFUNCTION Speak() AS STRING\nRETURN \"Woof\"\nEND FUNCTION\nEND CLASS\n"
	stmts := parseSource(t, src)
	cd, ok := stmts[0].(*ast.ClassDeclStmt)
	if !ok {
		t.Fatalf("expected *ast.ClassDeclStmt, got %T", stmts[0])
	}
	if cd.Extends != "Animal" || cd.Constructor == nil || len(cd.Methods) != 1 || len(cd.Fields) != 1 {
		t.Errorf("unexpected class decl: %+v", cd)
	}
}

// --- Required disambiguations ---

func TestSliceVsArrayIndexDisambiguation(t *testing.T) {
	stmts := parseSource(t, "LET a$ = s$(1 TO 3)\nLET b% = arr(2)\n")
	let1 := stmts[0].(*ast.LetStmt)
	if _, ok := let1.Value.(*ast.SliceExpr); !ok {
		t.Fatalf("expected SliceExpr for '(1 TO 3)', got %T", let1.Value)
	}
	let2 := stmts[1].(*ast.LetStmt)
	switch let2.Value.(type) {
	case *ast.FunctionCallExpr, *ast.ArrayAccessExpr:
		// ok: array-vs-call ambiguity for "(2)" is intentionally left for sema
	default:
		t.Fatalf("expected call-or-index node for '(2)', got %T", let2.Value)
	}
}

func TestListConstructorVsFunctionCallDisambiguation(t *testing.T) {
	stmts := parseSource(t, "LET lst = LIST(1, 2, 3)\nLET r = Square(4)\n")
	let1 := stmts[0].(*ast.LetStmt)
	lc, ok := let1.Value.(*ast.ListConstructorExpr)
	if !ok || len(lc.Elements) != 3 {
		t.Fatalf("expected a 3-element ListConstructorExpr, got %+v", let1.Value)
	}
	let2 := stmts[1].(*ast.LetStmt)
	call, ok := let2.Value.(*ast.FunctionCallExpr)
	if !ok || call.Name != "Square" {
		t.Fatalf("expected FunctionCallExpr for Square(4), got %+v", let2.Value)
	}
}

func TestMethodCallVsMemberAccessDisambiguation(t *testing.T) {
	stmts := parseSource(t, "LET a = obj.Speak()\nLET b = obj.Name\n")
	let1 := stmts[0].(*ast.LetStmt)
	if _, ok := let1.Value.(*ast.MethodCallExpr); !ok {
		t.Fatalf("expected MethodCallExpr for 'obj.Speak()', got %T", let1.Value)
	}
	let2 := stmts[1].(*ast.LetStmt)
	if _, ok := let2.Value.(*ast.MemberAccessExpr); !ok {
		t.Fatalf("expected MemberAccessExpr for 'obj.Name', got %T", let2.Value)
	}
}

func TestGotoAndLabel(t *testing.T) {
	stmts := parseSource(t, "GOTO Again\nAgain:\nPRINT 1\n")
	if _, ok := stmts[0].(*ast.GotoStmt); !ok {
		t.Fatalf("expected *ast.GotoStmt, got %T", stmts[0])
	}
	if _, ok := stmts[1].(*ast.LabelStmt); !ok {
		t.Fatalf("expected *ast.LabelStmt, got %T", stmts[1])
	}
}

func TestOnGotoStatement(t *testing.T) {
	stmts := parseSource(t, "ON n GOTO First, Second, Third\n")
	on, ok := stmts[0].(*ast.OnGotoStmt)
	if !ok {
		t.Fatalf("expected *ast.OnGotoStmt, got %T", stmts[0])
	}
	if len(on.Labels) != 3 || on.Labels[1] != "Second" {
		t.Errorf("unexpected labels: %v", on.Labels)
	}
}

func TestMatchTypeStatement(t *testing.T) {
	src := "MATCH TYPE obj\nCASE Dog d\nPRINT d.Speak()\nCASE ELSE\nPRINT \"unknown\"\nEND SELECT\n"
	stmts := parseSource(t, src)
	mt, ok := stmts[0].(*ast.MatchTypeStmt)
	if !ok {
		t.Fatalf("expected *ast.MatchTypeStmt, got %T", stmts[0])
	}
	if len(mt.Arms) != 2 || mt.Arms[0].TypeName != "Dog" || mt.Arms[0].BindName != "d" || !mt.Arms[1].IsElse {
		t.Errorf("unexpected arms: %+v", mt.Arms)
	}
}

func TestDimWithArrayBoundsAndType(t *testing.T) {
	stmts := parseSource(t, "DIM scores(10) AS INTEGER\n")
	dim, ok := stmts[0].(*ast.DimStmt)
	if !ok {
		t.Fatalf("expected *ast.DimStmt, got %T", stmts[0])
	}
	if len(dim.Decls) != 1 || dim.Decls[0].TypeName != "INTEGER" || len(dim.Decls[0].Dimensions) != 1 {
		t.Errorf("unexpected dim decl: %+v", dim.Decls)
	}
}

func TestSyntaxErrorRecoversToNextStatement(t *testing.T) {
	scanner := lexer.NewScanner("LET x = \nPRINT 42\n", "test.bas")
	toks := scanner.ScanTokens()
	p := NewParserWithSource(toks, "LET x = \nPRINT 42\n", "test.bas")
	stmts := p.Parse()
	if len(p.Errors) == 0 {
		t.Fatalf("expected a recorded syntax error")
	}
	found := false
	for _, s := range stmts {
		if _, ok := s.(*ast.PrintStmt); ok {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected parser to recover and still parse the PRINT statement, got %+v", stmts)
	}
}
