// Package formatter pretty-prints a parsed FasterBASIC program back to
// canonical source text: consistent keyword casing, one statement per
// line, and a fixed indent step per nested block — `fbc fmt`'s entire
// job, purely an ambient developer-experience tool, never consulted by
// the compile pipeline itself.
package formatter

import (
	"fmt"
	"strings"

	"fasterbasic/internal/ast"
	"fasterbasic/internal/lexer"
)

// Formatter accumulates one program's worth of output. Built fresh per
// call to Format rather than reused, the same way internal/ssa builds a
// fresh emitter per routine.
type Formatter struct {
	indent    int
	indentStr string
	output    strings.Builder
}

func New() *Formatter {
	return &Formatter{indentStr: "    "}
}

// Format renders a parsed program as canonical BASIC source text.
func Format(stmts []ast.Stmt) string {
	f := New()
	for _, s := range stmts {
		f.formatStmt(s)
	}
	return f.output.String()
}

func (f *Formatter) writeIndent() {
	f.output.WriteString(strings.Repeat(f.indentStr, f.indent))
}

func (f *Formatter) line(format string, args ...interface{}) {
	f.writeIndent()
	fmt.Fprintf(&f.output, format, args...)
	f.output.WriteString("\n")
}

func (f *Formatter) block(stmts []ast.Stmt) {
	f.indent++
	for _, s := range stmts {
		f.formatStmt(s)
	}
	f.indent--
}

func suffixStr(s interface{}) string {
	suf, ok := s.(lexer.Suffix)
	if !ok || suf == lexer.SuffixNone {
		return ""
	}
	return string(byte(suf))
}

func typeClause(typeName string) string {
	if typeName == "" {
		return ""
	}
	return " AS " + typeName
}

func (f *Formatter) formatStmt(s ast.Stmt) {
	switch d := s.(type) {
	case *ast.PrintStmt:
		f.formatPrint(d)
	case *ast.ConsoleStmt:
		f.formatConsole(d)
	case *ast.LetStmt:
		f.formatLet(d)
	case *ast.DimStmt:
		f.formatDim(d)
	case *ast.IfStmt:
		f.formatIf(d)
	case *ast.WhileStmt:
		f.line("WHILE %s", f.expr(d.Condition))
		f.block(d.Body)
		f.line("WEND")
	case *ast.DoStmt:
		f.formatDo(d)
	case *ast.RepeatStmt:
		f.line("REPEAT")
		f.block(d.Body)
		f.line("UNTIL %s", f.expr(d.Condition))
	case *ast.ForStmt:
		f.formatFor(d)
	case *ast.ForEachStmt:
		f.line("FOR EACH %s IN %s", d.Var, f.expr(d.Collection))
		f.block(d.Body)
		f.line("NEXT %s", d.Var)
	case *ast.SelectCaseStmt:
		f.formatSelectCase(d)
	case *ast.TryCatchStmt:
		f.formatTryCatch(d)
	case *ast.FunctionDeclStmt:
		f.formatFunction(d)
	case *ast.SubDeclStmt:
		f.formatSub(d)
	case *ast.CallStmt:
		f.line("CALL %s", f.expr(d.Callee))
	case *ast.ReturnStmt:
		if d.Value != nil {
			f.line("RETURN %s", f.expr(d.Value))
		} else {
			f.line("RETURN")
		}
	case *ast.GotoStmt:
		f.line("GOTO %s", d.Label)
	case *ast.GosubStmt:
		f.line("GOSUB %s", d.Label)
	case *ast.OnGotoStmt:
		f.line("ON %s GOTO %s", f.expr(d.Selector), strings.Join(d.Labels, ", "))
	case *ast.OnGosubStmt:
		f.line("ON %s GOSUB %s", f.expr(d.Selector), strings.Join(d.Labels, ", "))
	case *ast.ExitStmt:
		f.line("EXIT %s", exitKindWord(d.Kind))
	case *ast.EndStmt:
		if d.Code != nil {
			f.line("END %s", f.expr(d.Code))
		} else {
			f.line("END")
		}
	case *ast.LocalStmt:
		f.line("LOCAL %s", strings.Join(d.Names, ", "))
	case *ast.SharedStmt:
		f.line("SHARED %s", strings.Join(d.Names, ", "))
	case *ast.IncStmt:
		f.line("INC %s", f.bump(d.Target, d.Amount))
	case *ast.DecStmt:
		f.line("DEC %s", f.bump(d.Target, d.Amount))
	case *ast.SwapStmt:
		f.line("SWAP %s, %s", f.expr(d.Left), f.expr(d.Right))
	case *ast.TypeDeclStmt:
		f.formatTypeDecl(d)
	case *ast.ClassDeclStmt:
		f.formatClassDecl(d)
	case *ast.OptionStmt:
		if d.Value != nil {
			f.line("OPTION %s %s", d.Name, f.expr(d.Value))
		} else {
			f.line("OPTION %s", d.Name)
		}
	case *ast.DataStmt:
		f.line("DATA %s", f.exprList(d.Values))
	case *ast.MatchTypeStmt:
		f.formatMatchType(d)
	case *ast.ThrowStmt:
		if d.Line != nil {
			f.line("THROW %s, %s", f.expr(d.Code), f.expr(d.Line))
		} else {
			f.line("THROW %s", f.expr(d.Code))
		}
	case *ast.LabelStmt:
		// Labels sit flush left regardless of enclosing indent, matching
		// how BASIC source conventionally lines them up as jump targets.
		fmt.Fprintf(&f.output, "%s:\n", d.Name)
	case *ast.ExpressionStmt:
		f.line("%s", f.expr(d.Expr))
	default:
		f.line("' unformattable statement: %T", s)
	}
}

func (f *Formatter) bump(target, amount ast.Expr) string {
	if amount == nil {
		return f.expr(target)
	}
	return fmt.Sprintf("%s, %s", f.expr(target), f.expr(amount))
}

func exitKindWord(k ast.LoopKind) string {
	switch k {
	case ast.LoopFor:
		return "FOR"
	case ast.LoopWhile:
		return "WHILE"
	case ast.LoopDo:
		return "DO"
	case ast.LoopRepeat:
		return "REPEAT"
	case ast.LoopSelect:
		return "SELECT"
	case ast.LoopFunction:
		return "FUNCTION"
	case ast.LoopSub:
		return "SUB"
	default:
		return ""
	}
}

func (f *Formatter) formatPrint(s *ast.PrintStmt) {
	sep := "; "
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		parts[i] = f.expr(a)
	}
	line := "PRINT " + strings.Join(parts, sep)
	if !s.Newline {
		line += ";"
	}
	f.line("%s", strings.TrimRight(line, " "))
}

func (f *Formatter) formatConsole(s *ast.ConsoleStmt) {
	if len(s.Args) == 0 {
		f.line("CONSOLE %s", s.Command)
		return
	}
	f.line("CONSOLE %s %s", s.Command, f.exprList(s.Args))
}

func (f *Formatter) formatLet(s *ast.LetStmt) {
	if s.Target != nil {
		f.line("LET %s = %s", f.expr(s.Target), f.expr(s.Value))
		return
	}
	f.line("LET %s%s = %s", s.Name, suffixStr(s.Suffix), f.expr(s.Value))
}

func (f *Formatter) formatDim(s *ast.DimStmt) {
	kw := "DIM"
	if s.Redim {
		kw = "REDIM"
		if s.Preserve {
			kw = "REDIM PRESERVE"
		}
	}
	decls := make([]string, len(s.Decls))
	for i, d := range s.Decls {
		decls[i] = f.dimDecl(d)
	}
	f.line("%s %s", kw, strings.Join(decls, ", "))
}

func (f *Formatter) dimDecl(d ast.DimDecl) string {
	s := d.Name + suffixStr(d.Suffix)
	if len(d.Dimensions) > 0 {
		s += "(" + f.exprList(d.Dimensions) + ")"
	}
	s += typeClause(d.TypeName)
	if d.Init != nil {
		s += " = " + f.expr(d.Init)
	}
	return s
}

// formatIf flattens the parser's nested-IfStmt ELSEIF representation
// back into a single ELSEIF chain rather than re-indenting for each
// nesting level, matching how the source almost certainly read before
// it was parsed.
func (f *Formatter) formatIf(s *ast.IfStmt) {
	f.line("IF %s THEN", f.expr(s.Condition))
	f.block(s.Then)
	for s.Else != nil {
		if len(s.Else) == 1 {
			if nested, ok := s.Else[0].(*ast.IfStmt); ok {
				f.writeIndent()
				fmt.Fprintf(&f.output, "ELSEIF %s THEN\n", f.expr(nested.Condition))
				f.block(nested.Then)
				s = nested
				continue
			}
		}
		f.line("ELSE")
		f.block(s.Else)
		break
	}
	f.line("END IF")
}

func (f *Formatter) formatDo(s *ast.DoStmt) {
	switch s.Kind {
	case ast.DoLoopPreWhile:
		f.line("DO WHILE %s", f.expr(s.Condition))
		f.block(s.Body)
		f.line("LOOP")
	case ast.DoLoopPreUntil:
		f.line("DO UNTIL %s", f.expr(s.Condition))
		f.block(s.Body)
		f.line("LOOP")
	case ast.DoLoopPostWhile:
		f.line("DO")
		f.block(s.Body)
		f.line("LOOP WHILE %s", f.expr(s.Condition))
	case ast.DoLoopPostUntil:
		f.line("DO")
		f.block(s.Body)
		f.line("LOOP UNTIL %s", f.expr(s.Condition))
	default:
		f.line("DO")
		f.block(s.Body)
		f.line("LOOP")
	}
}

func (f *Formatter) formatFor(s *ast.ForStmt) {
	header := fmt.Sprintf("FOR %s%s = %s TO %s", s.Var, suffixStr(s.Suffix), f.expr(s.Start), f.expr(s.End))
	if s.Step != nil {
		header += " STEP " + f.expr(s.Step)
	}
	f.line("%s", header)
	f.block(s.Body)
	f.line("NEXT %s", s.Var)
}

func (f *Formatter) formatSelectCase(s *ast.SelectCaseStmt) {
	f.line("SELECT CASE %s", f.expr(s.Selector))
	f.indent++
	for _, arm := range s.Arms {
		if arm.IsElse {
			f.line("CASE ELSE")
		} else {
			f.line("CASE %s", f.exprList(arm.Values))
		}
		f.block(arm.Body)
	}
	f.indent--
	f.line("END SELECT")
}

func (f *Formatter) formatTryCatch(s *ast.TryCatchStmt) {
	f.line("TRY")
	f.block(s.TryBlock)
	f.line("CATCH %s", s.CatchVar)
	f.block(s.CatchBlock)
	if len(s.FinallyBlock) > 0 {
		f.line("FINALLY")
		f.block(s.FinallyBlock)
	}
	f.line("END TRY")
}

func (f *Formatter) params(ps []ast.Param) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		prefix := ""
		if p.ByRef {
			prefix = "BYREF "
		}
		parts[i] = prefix + p.Name + suffixStr(p.Suffix) + typeClause(p.TypeName)
	}
	return strings.Join(parts, ", ")
}

func (f *Formatter) formatFunction(s *ast.FunctionDeclStmt) {
	sig := fmt.Sprintf("FUNCTION %s(%s)", s.Name, f.params(s.Params))
	if s.ReturnType != "" {
		sig += " AS " + s.ReturnType
	}
	f.line("%s", sig)
	f.block(s.Body)
	f.line("END FUNCTION")
}

func (f *Formatter) formatSub(s *ast.SubDeclStmt) {
	f.line("SUB %s(%s)", s.Name, f.params(s.Params))
	f.block(s.Body)
	f.line("END SUB")
}

func (f *Formatter) formatTypeDecl(s *ast.TypeDeclStmt) {
	f.line("TYPE %s", s.Name)
	f.indent++
	for _, field := range s.Fields {
		f.line("%s%s%s", field.Name, suffixStr(field.Suffix), typeClause(field.TypeName))
	}
	f.indent--
	f.line("END TYPE")
}

func (f *Formatter) formatClassDecl(s *ast.ClassDeclStmt) {
	header := "CLASS " + s.Name
	if s.Extends != "" {
		header += " EXTENDS " + s.Extends
	}
	f.line("%s", header)
	f.indent++
	for _, field := range s.Fields {
		f.line("DIM %s%s%s", field.Name, suffixStr(field.Suffix), typeClause(field.TypeName))
	}
	if s.Constructor != nil {
		f.formatSub(&ast.SubDeclStmt{Base: s.Constructor.Base, Name: "NEW", Params: s.Constructor.Params, Body: s.Constructor.Body})
	}
	if s.Destructor != nil {
		f.formatSub(&ast.SubDeclStmt{Base: s.Destructor.Base, Name: "DELETE", Params: s.Destructor.Params, Body: s.Destructor.Body})
	}
	for _, m := range s.Methods {
		f.formatFunction(m)
	}
	for _, sub := range s.Subs {
		f.formatSub(sub)
	}
	f.indent--
	f.line("END CLASS")
}

func (f *Formatter) formatMatchType(s *ast.MatchTypeStmt) {
	f.line("MATCH TYPE %s", f.expr(s.Value))
	f.indent++
	for _, arm := range s.Arms {
		if arm.IsElse {
			f.line("CASE ELSE")
		} else {
			f.line("CASE %s %s%s", arm.TypeName, arm.BindName, suffixStr(arm.BindSuffix))
		}
		f.block(arm.Body)
	}
	f.indent--
	f.line("END MATCH")
}

func (f *Formatter) exprList(es []ast.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = f.expr(e)
	}
	return strings.Join(parts, ", ")
}

// expr renders one expression node. Unlike formatStmt, this never needs
// to track indentation, so it returns a string rather than writing
// directly to f.output — every statement that embeds an expression
// builds its own line out of one or more of these.
func (f *Formatter) expr(e ast.Expr) string {
	switch x := e.(type) {
	case nil:
		return ""
	case *ast.NumberExpr:
		if x.IsFloat {
			return fmt.Sprintf("%g", x.FltVal)
		}
		return fmt.Sprintf("%d", x.IntVal)
	case *ast.StringLiteralExpr:
		return fmt.Sprintf("%q", x.Value)
	case *ast.VariableExpr:
		return x.Name + suffixStr(x.Suffix)
	case *ast.BinaryExpr:
		return fmt.Sprintf("%s %s %s", f.expr(x.Left), x.Operator, f.expr(x.Right))
	case *ast.UnaryExpr:
		return fmt.Sprintf("%s%s", unaryPrefix(x.Operator), f.expr(x.Operand))
	case *ast.FunctionCallExpr:
		return fmt.Sprintf("%s(%s)", x.Name, f.exprList(x.Args))
	case *ast.MethodCallExpr:
		return fmt.Sprintf("%s.%s(%s)", f.expr(x.Receiver), x.Method, f.exprList(x.Args))
	case *ast.MemberAccessExpr:
		return fmt.Sprintf("%s.%s", f.expr(x.Receiver), x.Field)
	case *ast.ArrayAccessExpr:
		return fmt.Sprintf("%s(%s)", f.expr(x.Array), f.exprList(x.Indices))
	case *ast.SliceExpr:
		return fmt.Sprintf("%s(%s TO %s)", f.expr(x.Target), f.expr(x.Start), f.expr(x.End))
	case *ast.IIFExpr:
		return fmt.Sprintf("IIF(%s, %s, %s)", f.expr(x.Cond), f.expr(x.Then), f.expr(x.Else))
	case *ast.NewExpr:
		return fmt.Sprintf("NEW %s(%s)", x.ClassName, f.exprList(x.Args))
	case *ast.CreateExpr:
		return "CREATE " + x.TypeName
	case *ast.MeExpr:
		return "ME"
	case *ast.NothingExpr:
		return "NOTHING"
	case *ast.SuperCallExpr:
		if x.Method != "" {
			return fmt.Sprintf("SUPER.%s(%s)", x.Method, f.exprList(x.Args))
		}
		return fmt.Sprintf("SUPER(%s)", f.exprList(x.Args))
	case *ast.IsTypeExpr:
		return fmt.Sprintf("TYPEOF %s IS %s", f.expr(x.Value), x.TypeName)
	case *ast.ListConstructorExpr:
		return fmt.Sprintf("LIST(%s)", f.exprList(x.Elements))
	case *ast.ArrayBinOpExpr:
		return fmt.Sprintf("%s %s %s", f.expr(x.Left), x.Operator, f.expr(x.Right))
	case *ast.RegistryFunctionExpr:
		return fmt.Sprintf("%s(%s)", x.Name, f.exprList(x.Args))
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

func unaryPrefix(op string) string {
	switch op {
	case "NOT":
		return "NOT "
	default:
		return op
	}
}
