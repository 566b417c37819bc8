// cmd/fbc/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"fasterbasic/internal/driver"
	fberrors "fasterbasic/internal/errors"
	"fasterbasic/internal/formatter"
	"fasterbasic/internal/lexer"
	"fasterbasic/internal/parser"
)

const version = "0.1.0"

// command aliases, same convention as the teacher's CLI
var commandAliases = map[string]string{
	"b": "build",
	"c": "check",
	"f": "fmt",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is main's body factored out so it can be driven by both the real
// process entry point and testscript's in-process "fbc" command.
func run(args []string) int {
	if len(args) == 0 {
		showUsage()
		return 0
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
		return 0
	case "--version", "-v", "version":
		fmt.Printf("fbc (FasterBASIC compiler) v%s\n", version)
		return 0
	case "build":
		return buildCommand(args[1:])
	case "check":
		return checkCommand(args[1:])
	case "fmt":
		return fmtCommand(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "fbc: unknown command %q\n", args[0])
		showUsage()
		return 1
	}
}

func showUsage() {
	fmt.Println("fbc - FasterBASIC AOT compiler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  fbc build <file.bas> [-o out] [-emit=ir|asm|exe] [-verbose]   Compile a program (alias: b)")
	fmt.Println("  fbc check <file.bas> [-verbose]                              Compile and report diagnostics, write no output (alias: c)")
	fmt.Println("  fbc fmt <file.bas> [-w]                                      Pretty-print BASIC source (alias: f)")
	fmt.Println("  fbc help                                                     Show this message")
	fmt.Println("  fbc version                                                  Show the compiler version")
}

type emitMode int

const (
	emitIR emitMode = iota
	emitAsm
	emitExe
)

// flags bundles the parsed trailing options shared by build/check.
type flags struct {
	file    string
	out     string
	emit    emitMode
	verbose bool
}

func parseFlags(args []string) (flags, error) {
	f := flags{emit: emitIR}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-verbose" || a == "--verbose":
			f.verbose = true
		case a == "-o":
			// "-o" takes the next argument as its path; a stray "-o" with nothing after is an error
			if i+1 >= len(args) {
				return f, fmt.Errorf("-o requires an argument")
			}
			i++
			f.out = args[i]
		case strings.HasPrefix(a, "-o="):
			f.out = strings.TrimPrefix(a, "-o=")
		case strings.HasPrefix(a, "-emit="):
			switch strings.TrimPrefix(a, "-emit=") {
			case "ir":
				f.emit = emitIR
			case "asm":
				f.emit = emitAsm
			case "exe":
				f.emit = emitExe
			default:
				return f, fmt.Errorf("unknown -emit value %q (want ir, asm, or exe)", a)
			}
		case strings.HasPrefix(a, "-"):
			return f, fmt.Errorf("unknown flag %q", a)
		default:
			f.file = a
		}
	}
	if f.file == "" {
		return f, fmt.Errorf("no input file given")
	}
	return f, nil
}

func colorize(code, s string) string {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func buildCommand(args []string) int {
	f, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fbc build: %v\n", err)
		return 2
	}

	src, err := os.ReadFile(f.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fbc: %v\n", err)
		return 1
	}

	res, err := driver.Compile(string(src), driver.Options{
		File:    f.file,
		Verbose: f.verbose,
		Trace:   func(line string) { fmt.Fprintln(os.Stderr, colorize("2", line)) },
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, colorize("31", err.Error()))
		return 1
	}
	if res.Failed() {
		reportDiagnostics(res)
		return 1
	}

	switch f.emit {
	case emitIR:
		return writeOutput(f.out, res.Module.String())
	default:
		// Lowering IR text to machine assembly or a linked executable is
		// mechanical glue onto an external backend/assembler/linker
		// (os/exec), not part of the compiler contract itself.
		fmt.Fprintln(os.Stderr, "fbc: -emit=asm/-emit=exe require an external backend toolchain; pass -emit=ir to inspect the generated IR")
		return 1
	}
}

func writeOutput(path, text string) int {
	if path == "" || path == "-" {
		fmt.Print(text)
		return 0
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "fbc: writing %s: %v\n", path, err)
		return 1
	}
	return 0
}

func checkCommand(args []string) int {
	f, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fbc check: %v\n", err)
		return 2
	}

	src, err := os.ReadFile(f.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fbc: %v\n", err)
		return 1
	}

	res, err := driver.Compile(string(src), driver.Options{
		File:    f.file,
		Verbose: f.verbose,
		Trace:   func(line string) { fmt.Fprintln(os.Stderr, colorize("2", line)) },
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, colorize("31", err.Error()))
		return 1
	}
	if res.Failed() {
		reportDiagnostics(res)
		return 1
	}
	fmt.Printf("%s: OK\n", f.file)
	return 0
}

func reportDiagnostics(res *driver.Result) {
	red := func(s string) string { return colorize("31", s) }
	for _, e := range res.LexErrors {
		fmt.Fprintln(os.Stderr, red(e.Error()))
	}
	for _, e := range res.ParseErrors {
		fmt.Fprintln(os.Stderr, red(e.Error()))
	}
	if res.SemaErrors != nil {
		for _, e := range res.SemaErrors.Errors() {
			fmt.Fprintln(os.Stderr, red(e.Error()))
		}
	}
}

func fmtCommand(args []string) int {
	write := false
	var file string
	for _, a := range args {
		if a == "-w" {
			write = true
			continue
		}
		file = a
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "fbc fmt: no input file given")
		return 2
	}

	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fbc: %v\n", err)
		return 1
	}

	scanner := lexer.NewScanner(string(src), file)
	tokens := scanner.ScanTokens()
	if len(scanner.Errors) > 0 {
		reportLexErrors(scanner.Errors)
		return 1
	}

	p := parser.NewParserWithSource(tokens, string(src), file)
	stmts := p.Parse()
	if len(p.Errors) > 0 {
		for _, e := range p.Errors {
			fmt.Fprintln(os.Stderr, colorize("31", e.Error()))
		}
		return 1
	}

	out := formatter.Format(stmts)
	if write {
		if err := os.WriteFile(file, []byte(out), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "fbc: writing %s: %v\n", file, err)
			return 1
		}
		return 0
	}
	fmt.Print(out)
	return 0
}

func reportLexErrors(errs []*fberrors.FasterBASICError) {
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, colorize("31", e.Error()))
	}
}
