// Package driver orchestrates the compiler's five phases — lex, parse,
// semantic analysis, CFG build, SSA emission — the way
// cmd/sentra/main.go's run handler sequences lex/parse-with-recover/
// compile/execute, but as a library call rather than inline in main so
// both cmd/fbc and the test harness can drive it the same way.
package driver

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/kr/pretty"
	"github.com/llir/llvm/ir"
	pkgerrors "github.com/pkg/errors"

	"fasterbasic/internal/cfg"
	fberrors "fasterbasic/internal/errors"
	"fasterbasic/internal/lexer"
	"fasterbasic/internal/parser"
	"fasterbasic/internal/sema"
	"fasterbasic/internal/ssa"
)

// Options configures one Compile invocation. There is no config file or
// persisted state (spec §6.5) — every knob a caller needs crosses in
// through this struct.
type Options struct {
	File    string
	Verbose bool
	// Trace, when Verbose is set, receives one line per phase boundary;
	// callers that don't care about the trace (most tests) can leave it
	// nil and Compile silently skips writing to it.
	Trace func(line string)
}

// Result is everything a caller might want out of a Compile: the emitted
// module (nil if compilation failed before reaching SSA) and the
// diagnostics of the phase that failed. Compile stops at the first phase
// that reports any diagnostic, so at most one of the error fields is set;
// within that phase every diagnostic is kept.
type Result struct {
	Module      *ir.Module
	LexErrors   []*fberrors.FasterBASICError
	ParseErrors []error
	SemaErrors  *fberrors.Bag
	RunID       string
}

// Failed reports whether any phase produced a diagnostic, regardless of
// whether SSA emission itself was reached.
func (r *Result) Failed() bool {
	if r == nil {
		return true
	}
	return len(r.LexErrors) > 0 || len(r.ParseErrors) > 0 || (r.SemaErrors != nil && r.SemaErrors.HasErrors())
}

// Compile runs every phase of the pipeline over src, stopping at the
// first phase that reports any diagnostic (lex/parse errors mean the
// later phases would only compound confusion; sema errors are reported
// alongside a best-effort partial CFG/SSA skipped entirely, per spec §7).
// A compiler-internal panic (an invariant violation in CFG building or
// SSA emission, never a user source error) is recovered here and wrapped
// with a stack trace via github.com/pkg/errors, distinguishing "the
// compiler has a bug" from "the BASIC program is invalid".
func Compile(src string, opts Options) (res *Result, err error) {
	runID := uuid.NewString()
	res = &Result{RunID: runID}
	trace := func(format string, args ...interface{}) {
		if opts.Verbose && opts.Trace != nil {
			opts.Trace(fmt.Sprintf("[%s] %s", runID, fmt.Sprintf(format, args...)))
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.Wrapf(fmt.Errorf("%v", r), "internal compiler error (run %s)", runID)
		}
	}()

	lexStart := time.Now()
	scanner := lexer.NewScanner(src, opts.File)
	tokens := scanner.ScanTokens()
	trace("lex: %s tokens in %s", humanize.Comma(int64(len(tokens))), shortDuration(time.Since(lexStart)))
	if len(scanner.Errors) > 0 {
		res.LexErrors = scanner.Errors
		return res, nil
	}

	parseStart := time.Now()
	p := parser.NewParserWithSource(tokens, src, opts.File)
	stmts := p.Parse()
	trace("parse: %s statements in %s", humanize.Comma(int64(len(stmts))), shortDuration(time.Since(parseStart)))
	if len(p.Errors) > 0 {
		res.ParseErrors = p.Errors
		return res, nil
	}

	semaStart := time.Now()
	analyzer := sema.New(opts.File)
	analyzer.Analyze(stmts)
	trace("sema: %s diagnostics in %s", humanize.Comma(int64(len(analyzer.Errors.Errors()))), shortDuration(time.Since(semaStart)))
	if analyzer.Errors.HasErrors() {
		res.SemaErrors = analyzer.Errors
		return res, nil
	}

	cfgStart := time.Now()
	prog := cfg.BuildProgram(stmts)
	trace("cfg: %s routine(s) in %s", humanize.Comma(int64(1+len(prog.Functions))), shortDuration(time.Since(cfgStart)))
	if opts.Verbose {
		trace("cfg dump:\n%s", dumpProgram(prog))
	}

	ssaStart := time.Now()
	module := ssa.EmitProgram(prog)
	trace("ssa: emitted in %s", shortDuration(time.Since(ssaStart)))

	res.Module = module
	return res, nil
}

// dumpProgram renders the built CFG's routine names and per-routine block
// counts with github.com/kr/pretty, the same debug-dump library the rest
// of the pack reaches for behind a verbose flag, rather than a bespoke
// %#v walk of the block arena.
func dumpProgram(prog *cfg.Program) string {
	type routine struct {
		Name   string
		Blocks int
	}
	routines := []routine{{Name: "main", Blocks: len(prog.Main.Blocks)}}
	for _, fn := range prog.Functions {
		routines = append(routines, routine{Name: fn.Name, Blocks: len(fn.Blocks)})
	}
	return pretty.Sprint(routines)
}

// shortDuration renders a sub-second-precision duration the way
// humanize.Time renders a point in time: a short, human-facing
// approximation rather than Go's full %v precision, since a verbose
// trace line is read by a person watching a build, not parsed by a
// machine.
func shortDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fµs", float64(d.Nanoseconds())/1000)
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Milliseconds()))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
