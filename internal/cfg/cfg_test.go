package cfg

import (
	"testing"

	"fasterbasic/internal/ast"
	"fasterbasic/internal/lexer"
	"fasterbasic/internal/parser"
)

func parseSource(t *testing.T, src string) []ast.Stmt {
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
	return stmts
}

func countEdges(blocks []*BasicBlock, kind EdgeKind) int {
	n := 0
	for _, b := range blocks {
		for _, e := range b.Succs {
			if e.Kind == kind {
				n++
			}
		}
	}
	return n
}

func TestIfStmtProducesBranchPair(t *testing.T) {
	stmts := parseSource(t, "DIM x AS INTEGER\nIF x THEN\nPRINT 1\nELSE\nPRINT 2\nEND IF\n")
	prog := BuildProgram(stmts)

	if countEdges(prog.Main.Blocks, EdgeBranchTrue) != 1 {
		t.Fatalf("expected exactly one branch_true edge")
	}
	if countEdges(prog.Main.Blocks, EdgeBranchFalse) != 1 {
		t.Fatalf("expected exactly one branch_false edge")
	}
}

func TestIfStmtWithoutElseFallsToJoin(t *testing.T) {
	stmts := parseSource(t, "DIM x AS INTEGER\nIF x THEN\nPRINT 1\nEND IF\nPRINT 2\n")
	prog := BuildProgram(stmts)

	if countEdges(prog.Main.Blocks, EdgeBranchFalse) != 1 {
		t.Fatalf("expected a branch_false edge straight to the join block when ELSE is absent")
	}
}

func TestForLoopHasBackEdgeFromIncrementToHeader(t *testing.T) {
	stmts := parseSource(t, "FOR i = 1 TO 10\nPRINT i\nNEXT i\n")
	prog := BuildProgram(stmts)

	var increment *BasicBlock
	for _, b := range prog.Main.Blocks {
		if b.Kind == BlockLoopIncrement {
			increment = b
		}
	}
	if increment == nil {
		t.Fatalf("expected a loop_increment block")
	}
	if len(increment.Succs) != 1 || increment.Succs[0].Kind != EdgeBackEdge {
		t.Fatalf("expected the increment block's only successor to be a back_edge, got %+v", increment.Succs)
	}
	if increment.Succs[0].To.Kind != BlockLoopHeader {
		t.Fatalf("expected the back edge to target the loop header")
	}
}

func TestWhileLoopExitsOnFalseBranch(t *testing.T) {
	stmts := parseSource(t, "DIM x AS INTEGER\nWHILE x\nPRINT 1\nWEND\n")
	prog := BuildProgram(stmts)

	var header *BasicBlock
	for _, b := range prog.Main.Blocks {
		if b.Kind == BlockLoopHeader {
			header = b
		}
	}
	if header == nil {
		t.Fatalf("expected a loop_header block")
	}
	foundExit := false
	for _, e := range header.Succs {
		if e.Kind == EdgeBranchFalse && e.To.Kind == BlockLoopExit {
			foundExit = true
		}
	}
	if !foundExit {
		t.Fatalf("expected the header's branch_false edge to target the loop_exit block")
	}
}

func TestGotoForwardLabelResolvesToRealEdge(t *testing.T) {
	stmts := parseSource(t, "GOTO Skip\nPRINT 1\nSkip:\nPRINT 2\n")
	prog := BuildProgram(stmts)

	if countEdges(prog.Main.Blocks, EdgeJump) != 1 {
		t.Fatalf("expected exactly one jump edge once the forward label resolves")
	}
	var jumpTarget *BasicBlock
	for _, b := range prog.Main.Blocks {
		for _, e := range b.Succs {
			if e.Kind == EdgeJump {
				jumpTarget = e.To
			}
		}
	}
	if jumpTarget == nil {
		t.Fatalf("expected to find the jump edge's target block")
	}
	if !jumpTarget.Reachable {
		t.Fatalf("the label's block must be reachable once the forward GOTO resolves to it")
	}
}

func TestGosubReturnTargetsEveryContinuation(t *testing.T) {
	src := "GOSUB Sub1\nPRINT \"after\"\nEND\nSub1:\nPRINT \"in sub\"\nRETURN\n"
	stmts := parseSource(t, src)
	prog := BuildProgram(stmts)

	if countEdges(prog.Main.Blocks, EdgeGosubCall) != 1 {
		t.Fatalf("expected exactly one gosub_call edge")
	}
	if countEdges(prog.Main.Blocks, EdgeGosubReturn) != 1 {
		t.Fatalf("expected exactly one gosub_return edge for the single GOSUB site")
	}
}

func TestGosubReturnOverApproximatesAcrossMultipleSites(t *testing.T) {
	src := "GOSUB Helper\nGOSUB Helper\nEND\nHelper:\nPRINT 1\nRETURN\n"
	stmts := parseSource(t, src)
	prog := BuildProgram(stmts)

	if countEdges(prog.Main.Blocks, EdgeGosubCall) != 2 {
		t.Fatalf("expected two gosub_call edges, one per GOSUB site")
	}
	if countEdges(prog.Main.Blocks, EdgeGosubReturn) != 2 {
		t.Fatalf("expected RETURN to fan out to both GOSUB continuations (the documented over-approximation)")
	}
}

func TestSelectCaseBuildsMatchAndNextChain(t *testing.T) {
	src := "DIM x AS INTEGER\nSELECT CASE x\nCASE 1\nPRINT 1\nCASE 2\nPRINT 2\nCASE ELSE\nPRINT 3\nEND SELECT\n"
	stmts := parseSource(t, src)
	prog := BuildProgram(stmts)

	if countEdges(prog.Main.Blocks, EdgeCaseMatch) != 3 {
		t.Fatalf("expected three case_match edges (one per CASE value plus CASE ELSE)")
	}
}

func TestExitForTargetsLoopExitBlock(t *testing.T) {
	stmts := parseSource(t, "FOR i = 1 TO 10\nEXIT FOR\nNEXT i\n")
	prog := BuildProgram(stmts)

	if countEdges(prog.Main.Blocks, EdgeLoopExit) != 1 {
		t.Fatalf("expected exactly one loop_exit edge for EXIT FOR")
	}
	for _, b := range prog.Main.Blocks {
		for _, e := range b.Succs {
			if e.Kind == EdgeLoopExit && e.To.Kind != BlockLoopExit {
				t.Fatalf("EXIT FOR's loop_exit edge must target a loop_exit block")
			}
		}
	}
}

func TestTryCatchFinallyWiresExceptionAndFinallyEdges(t *testing.T) {
	src := "TRY\nPRINT 1\nCATCH e\nPRINT 2\nFINALLY\nPRINT 3\nEND TRY\n"
	stmts := parseSource(t, src)
	prog := BuildProgram(stmts)

	if countEdges(prog.Main.Blocks, EdgeException) != 1 {
		t.Fatalf("expected exactly one exception edge from the try block to the catch block")
	}
	if countEdges(prog.Main.Blocks, EdgeFinally) != 2 {
		t.Fatalf("expected both the try and catch paths to fall into the finally block")
	}
}

func TestComputeRPOMarksStraightLineCodeReachable(t *testing.T) {
	stmts := parseSource(t, "PRINT 1\nPRINT 2\nPRINT 3\n")
	prog := BuildProgram(stmts)

	for _, b := range prog.Main.Blocks {
		if !b.Reachable {
			t.Errorf("block %d (%s) should be reachable in straight-line code", b.Index, b.Kind)
		}
	}
	if len(prog.Main.RPO) != len(prog.Main.Blocks) {
		t.Fatalf("expected RPO to order every reachable block")
	}
}

func TestBuildProgramSeparatesFunctionsFromMain(t *testing.T) {
	src := "PRINT 1\nFUNCTION Square(n AS INTEGER)\nRETURN n * n\nEND FUNCTION\n"
	stmts := parseSource(t, src)
	prog := BuildProgram(stmts)

	if len(prog.Functions) != 1 || prog.Functions[0].Name != "Square" {
		t.Fatalf("expected Square to be lowered into its own Function, got %+v", prog.Functions)
	}
	for _, s := range prog.Main.Entry.Stmts {
		if _, ok := s.(*ast.FunctionDeclStmt); ok {
			t.Fatalf("FUNCTION declarations must not leak into Main's block statements")
		}
	}
}

func TestClassMethodsEachGetTheirOwnFunction(t *testing.T) {
	src := `CLASS Animal
FUNCTION Speak()
RETURN "..."
END FUNCTION
END CLASS
`
	stmts := parseSource(t, src)
	prog := BuildProgram(stmts)

	found := false
	for _, fn := range prog.Functions {
		if fn.Name == "Animal__Speak" && fn.MeType == "Animal" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Animal__Speak as its own Function with MeType=Animal, got %+v", prog.Functions)
	}
}
