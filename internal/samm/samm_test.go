package samm

import (
	"sync"
	"testing"

	"fasterbasic/internal/ast"
	"fasterbasic/internal/cfg"
	"fasterbasic/internal/lexer"
	"fasterbasic/internal/parser"
)

func buildTestProgram(t *testing.T, src string) *cfg.Program {
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
	return cfg.BuildProgram(stmts)
}

func TestNeedsScopeTrueForDim(t *testing.T) {
	prog := buildTestProgram(t, "DIM x AS INTEGER\nPRINT x\n")
	if !NeedsScope(prog.Main) {
		t.Fatalf("expected a routine with DIM to need scope management")
	}
}

func TestNeedsScopeFalseForPlainArithmetic(t *testing.T) {
	prog := buildTestProgram(t, "PRINT 1 + 2\n")
	if NeedsScope(prog.Main) {
		t.Fatalf("expected a routine with no allocation to skip scope management")
	}
}

func TestNeedsScopeTrueForStringLiteralInLoop(t *testing.T) {
	prog := buildTestProgram(t, "FOR i = 1 TO 3\nPRINT \"hi\"\nNEXT i\n")
	if !NeedsScope(prog.Main) {
		t.Fatalf("expected a loop body constructing a string literal to need scope management")
	}
}

func TestNeedsScopeFalseForStringLiteralOutsideLoop(t *testing.T) {
	prog := buildTestProgram(t, "PRINT \"hi\"\n")
	if NeedsScope(prog.Main) {
		t.Fatalf("a single top-level string literal outside any loop should not force scope management")
	}
}

func TestExprAllocatesDetectsNewInsideBinary(t *testing.T) {
	e := &ast.BinaryExpr{Operator: "+", Left: &ast.NewExpr{ClassName: "Foo"}, Right: &ast.NumberExpr{IntVal: 1}}
	if !exprAllocates(e) {
		t.Fatalf("expected NEW nested inside a binary expression to be detected")
	}
}

func TestBloomNeverFalseNegative(t *testing.T) {
	b := NewBloom(1000, 0.001, 8)
	for i := uint64(0); i < 500; i++ {
		b.Add(i)
	}
	for i := uint64(0); i < 500; i++ {
		if !b.MaybeFreed(i) {
			t.Fatalf("bloom filter produced a false negative for %d", i)
		}
	}
}

func TestBloomLowFalsePositiveRate(t *testing.T) {
	b := NewBloom(1000, 0.001, 8)
	for i := uint64(0); i < 1000; i++ {
		b.Add(i * 2) // only even pointers are "freed"
	}
	falsePositives := 0
	const probes = 2000
	for i := uint64(0); i < probes; i++ {
		odd := i*2 + 1
		if b.MaybeFreed(odd) {
			falsePositives++
		}
	}
	rate := float64(falsePositives) / float64(probes)
	if rate > 0.05 {
		t.Fatalf("false-positive rate too high: %f (%d/%d)", rate, falsePositives, probes)
	}
}

func TestWorkerDrainsQueuedBatchesAndFlagsDoubleFree(t *testing.T) {
	filter := NewBloom(100, 0.001, 8)
	var cleaned []Allocation
	var mu sync.Mutex
	w := NewWorker(4, filter, func(a Allocation) {
		mu.Lock()
		cleaned = append(cleaned, a)
		mu.Unlock()
	})

	w.Submit(Batch{ScopeID: 1, Items: []Allocation{{Ptr: 1, Kind: KindString}, {Ptr: 2, Kind: KindObject}}})
	w.Submit(Batch{ScopeID: 2, Items: []Allocation{{Ptr: 1, Kind: KindString}}}) // pointer 1 reused/freed twice
	w.Wait()

	processed, doubleFrees := w.Stats()
	if processed != 3 {
		t.Fatalf("expected 3 processed allocations, got %d", processed)
	}
	if doubleFrees < 1 {
		t.Fatalf("expected at least one double-free flag for the reused pointer")
	}
	if len(cleaned) != 3 {
		t.Fatalf("expected the cleanup callback to run once per allocation, got %d", len(cleaned))
	}
}
