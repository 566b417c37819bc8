package lexer

import "testing"

func scanTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	sc := NewScanner(src, "test.bas")
	toks := sc.ScanTokens()
	if len(sc.Errors) > 0 {
		t.Fatalf("unexpected lex errors: %v", sc.Errors)
	}
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	return types
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	for _, src := range []string{"PRINT", "print", "Print"} {
		types := scanTypes(t, src)
		if len(types) != 2 || types[0] != TokenPrint || types[1] != TokenEOF {
			t.Errorf("scanning %q: got %v", src, types)
		}
	}
}

func TestIdentifierSuffixes(t *testing.T) {
	sc := NewScanner("total% x$ ratio!", "test.bas")
	toks := sc.ScanTokens()
	if len(sc.Errors) > 0 {
		t.Fatalf("unexpected lex errors: %v", sc.Errors)
	}
	want := []struct {
		lexeme string
		suffix Suffix
	}{
		{"total%", SuffixInt},
		{"x$", SuffixString},
		{"ratio!", SuffixSingle},
	}
	if len(toks) != 4 { // 3 idents + EOF
		t.Fatalf("expected 4 tokens, got %d: %v", len(toks), toks)
	}
	for i, w := range want {
		if toks[i].Type != TokenIdent || toks[i].Suffix != w.suffix {
			t.Errorf("token %d: got %v, want suffix %q", i, toks[i], w.suffix)
		}
	}
}

func TestRemAndQuoteComments(t *testing.T) {
	types := scanTypes(t, "PRINT 1 REM hello\nPRINT 2 ' world\n")
	// PRINT INT_LITERAL NEWLINE PRINT INT_LITERAL NEWLINE EOF
	want := []TokenType{TokenPrint, TokenInt, TokenNewline, TokenPrint, TokenInt, TokenNewline, TokenEOF}
	if len(types) != len(want) {
		t.Fatalf("got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, types[i], want[i])
		}
	}
}

func TestLineContinuation(t *testing.T) {
	types := scanTypes(t, "LET x% = 1 + _\n2\n")
	want := []TokenType{TokenLet, TokenIdent, TokenEqual, TokenInt, TokenPlus, TokenInt, TokenNewline, TokenEOF}
	if len(types) != len(want) {
		t.Fatalf("got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, types[i], want[i])
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	cases := []struct {
		src  string
		want TokenType
	}{
		{"42", TokenInt},
		{"3.14", TokenFloat},
		{"1.5e10", TokenFloat},
		{"5#", TokenFloat},
		{"5%", TokenInt},
	}
	for _, c := range cases {
		types := scanTypes(t, c.src)
		if types[0] != c.want {
			t.Errorf("scanning %q: got %s, want %s", c.src, types[0], c.want)
		}
	}
}

func TestStringPoolInterning(t *testing.T) {
	sc := NewScanner(`PRINT "hi" + "hi"`, "test.bas")
	sc.ScanTokens()
	if len(sc.Errors) > 0 {
		t.Fatalf("unexpected lex errors: %v", sc.Errors)
	}
	if got := sc.StringPool.Intern("hi"); got != 0 {
		t.Errorf("expected repeated intern to reuse slot 0, got %d", got)
	}
	if len(sc.StringPool.Values()) != 1 {
		t.Errorf("expected one pooled string, got %d", len(sc.StringPool.Values()))
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	sc := NewScanner(`PRINT "oops`, "test.bas")
	sc.ScanTokens()
	if len(sc.Errors) == 0 {
		t.Fatalf("expected a lex error for unterminated string")
	}
}
