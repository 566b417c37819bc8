package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// scenario bundles one golden txtar fixture: input.bas is compiled and
// every line of expect.want must appear somewhere in the result (the
// emitted IR text on success, or the joined diagnostics on failure).
type scenario struct {
	name  string
	input string
	want  []string
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	matches, err := filepath.Glob("testdata/*.txtar")
	if err != nil || len(matches) == 0 {
		t.Fatalf("no golden fixtures found under testdata/: %v", err)
	}
	var out []scenario
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		arc := txtar.Parse(data)
		var input, want string
		for _, f := range arc.Files {
			switch f.Name {
			case "input.bas":
				input = string(f.Data)
			case "expect.want":
				want = string(f.Data)
			}
		}
		if input == "" || want == "" {
			t.Fatalf("%s: missing input.bas or expect.want section", path)
		}
		var wantLines []string
		for _, line := range strings.Split(strings.TrimSpace(want), "\n") {
			if line != "" {
				wantLines = append(wantLines, line)
			}
		}
		out = append(out, scenario{name: filepath.Base(path), input: input, want: wantLines})
	}
	return out
}

func TestGoldenScenarios(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			res, err := Compile(sc.input, Options{File: sc.name})
			if err != nil {
				t.Fatalf("internal compiler error: %v", err)
			}

			var haystack string
			switch {
			case res.Failed():
				haystack = diagnosticText(res)
			case res.Module != nil:
				haystack = res.Module.String()
			default:
				t.Fatalf("compile produced neither diagnostics nor a module")
			}

			for _, want := range sc.want {
				if !strings.Contains(haystack, want) {
					t.Errorf("%s: expected output to contain %q, got:\n%s", sc.name, want, haystack)
				}
			}
		})
	}
}

func diagnosticText(res *Result) string {
	var sb strings.Builder
	for _, e := range res.LexErrors {
		sb.WriteString(e.Error())
	}
	for _, e := range res.ParseErrors {
		sb.WriteString(e.Error())
	}
	if res.SemaErrors != nil {
		sb.WriteString(res.SemaErrors.String())
	}
	return sb.String()
}

func TestCompileStampsRunID(t *testing.T) {
	res, err := Compile("PRINT 1\n", Options{File: "t.bas"})
	if err != nil {
		t.Fatalf("unexpected internal error: %v", err)
	}
	if res.RunID == "" {
		t.Fatalf("expected a non-empty correlation ID")
	}
}

func TestVerboseTraceReceivesPerPhaseLines(t *testing.T) {
	var lines []string
	_, err := Compile("PRINT 1\n", Options{
		File:    "t.bas",
		Verbose: true,
		Trace:   func(line string) { lines = append(lines, line) },
	})
	if err != nil {
		t.Fatalf("unexpected internal error: %v", err)
	}
	if len(lines) < 5 {
		t.Fatalf("expected at least one trace line per phase (lex/parse/sema/cfg/ssa), got %d: %v", len(lines), lines)
	}
}

func TestCompileStopsAtFirstFailingPhase(t *testing.T) {
	res, err := Compile("DIM x AS INTEGER\nLET x = \"nope\"\n", Options{File: "t.bas"})
	if err != nil {
		t.Fatalf("unexpected internal error: %v", err)
	}
	if !res.Failed() {
		t.Fatalf("expected the type mismatch to be reported")
	}
	if res.Module != nil {
		t.Fatalf("expected SSA emission to be skipped once sema reports an error")
	}
}
