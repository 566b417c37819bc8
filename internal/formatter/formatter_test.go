package formatter

import (
	"strings"
	"testing"

	"fasterbasic/internal/lexer"
	"fasterbasic/internal/parser"
)

func format(t *testing.T, src string) string {
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
	return Format(stmts)
}

func TestFormatPrintAndLet(t *testing.T) {
	out := format(t, "LET x = 1\nPRINT x\n")
	for _, want := range []string{"LET x = 1", "PRINT x"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatIndentsIfBody(t *testing.T) {
	out := format(t, "IF 1 THEN\nPRINT 1\nEND IF\n")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (IF/body/END IF), got %d: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[1], "    ") {
		t.Errorf("expected the IF body to be indented one step, got %q", lines[1])
	}
	if strings.HasPrefix(lines[0], " ") || strings.HasPrefix(lines[2], " ") {
		t.Errorf("expected IF/END IF to sit flush left, got %q / %q", lines[0], lines[2])
	}
}

func TestFormatElseIfStaysFlat(t *testing.T) {
	out := format(t, "IF 1 THEN\nPRINT 1\nELSEIF 2 THEN\nPRINT 2\nELSE\nPRINT 3\nEND IF\n")
	if strings.Count(out, "ELSEIF") != 1 {
		t.Fatalf("expected exactly one ELSEIF line rather than nested IFs, got:\n%s", out)
	}
	if !strings.Contains(out, "ELSE\n") {
		t.Fatalf("expected a final ELSE branch, got:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for _, l := range lines {
		if strings.HasPrefix(l, "ELSEIF") || strings.HasPrefix(l, "ELSE") || strings.HasPrefix(l, "END IF") {
			if strings.HasPrefix(l, " ") {
				t.Errorf("expected ELSEIF/ELSE/END IF flush left, got %q", l)
			}
		}
	}
}

func TestFormatForLoopRoundTrips(t *testing.T) {
	out := format(t, "FOR i = 1 TO 10 STEP 2\nPRINT i\nNEXT i\n")
	if !strings.Contains(out, "FOR i = 1 TO 10 STEP 2") {
		t.Errorf("expected the FOR header with STEP preserved, got:\n%s", out)
	}
	if !strings.Contains(out, "NEXT i") {
		t.Errorf("expected a matching NEXT i, got:\n%s", out)
	}
}

func TestFormatClassDeclNestsFieldsAndMethods(t *testing.T) {
	src := "CLASS Animal\nDIM Legs AS INTEGER\nFUNCTION Speak()\nRETURN \"...\"\nEND FUNCTION\nEND CLASS\n"
	out := format(t, src)
	if !strings.Contains(out, "CLASS Animal") || !strings.Contains(out, "END CLASS") {
		t.Fatalf("expected a CLASS/END CLASS pair, got:\n%s", out)
	}
	if !strings.Contains(out, "DIM Legs AS INTEGER") {
		t.Errorf("expected the class field rendered as a DIM, got:\n%s", out)
	}
	if !strings.Contains(out, "FUNCTION Speak()") {
		t.Errorf("expected the method signature preserved, got:\n%s", out)
	}
}

func TestFormatDimWithArrayBounds(t *testing.T) {
	out := format(t, "DIM items(5) AS INTEGER\n")
	if !strings.Contains(out, "DIM items(5) AS INTEGER") {
		t.Errorf("expected array bounds and type clause preserved, got:\n%s", out)
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	src := "FOR i = 1 TO 3\nIF i THEN\nPRINT i\nELSE\nPRINT 0\nEND IF\nNEXT i\n"
	first := format(t, src)
	second := format(t, first)
	if first != second {
		t.Fatalf("expected formatting an already-formatted program to be a fixed point:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}
