package sema

import (
	"fasterbasic/internal/ast"
	fberrors "fasterbasic/internal/errors"
	"fasterbasic/internal/lexer"
	"fasterbasic/internal/symtab"
	"fasterbasic/internal/types"
)

// checkStmt type-checks one statement. Unlike checkExpr, statements are
// never rewritten, so the visitor's interface{} return is unused outside
// of satisfying ast.StmtVisitor.
func (a *Analyzer) checkStmt(s ast.Stmt) {
	if s == nil {
		return
	}
	s.Accept(a)
}

func (a *Analyzer) checkStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		a.checkStmt(s)
	}
}

func (a *Analyzer) pushLoop(kind ast.LoopKind, label string) {
	a.fn.loops = append(a.fn.loops, loopFrame{kind: kind, label: label})
}

func (a *Analyzer) popLoop() {
	a.fn.loops = a.fn.loops[:len(a.fn.loops)-1]
}

func (a *Analyzer) VisitPrintStmt(s *ast.PrintStmt) interface{} {
	for i, arg := range s.Args {
		checked, _ := a.checkExpr(arg)
		s.Args[i] = checked
	}
	return nil
}

func (a *Analyzer) VisitConsoleStmt(s *ast.ConsoleStmt) interface{} {
	for i, arg := range s.Args {
		checked, _ := a.checkExpr(arg)
		s.Args[i] = checked
	}
	return nil
}

func (a *Analyzer) VisitLetStmt(s *ast.LetStmt) interface{} {
	value, vt := a.checkExpr(s.Value)
	s.Value = value

	if s.Target != nil {
		target, tt := a.checkExpr(s.Target)
		s.Target = target
		a.checkAssignable(s.Position(), tt, vt)
		return nil
	}

	sym, ok := a.Symbols.LookupVariable(s.Name)
	if !ok {
		t := a.resolveDeclaredType("", suffixOf(s.Suffix))
		if vt != nil {
			t = vt
		}
		sym, _ = a.Symbols.DeclareVariable(s.Name, t, a.fn == nil)
	}
	a.checkAssignable(s.Position(), sym.Type, vt)
	return nil
}

func (a *Analyzer) VisitDimStmt(s *ast.DimStmt) interface{} {
	for i := range s.Decls {
		d := &s.Decls[i]
		elem := a.resolveDeclaredType(d.TypeName, suffixOf(d.Suffix))

		if len(d.Dimensions) > 0 {
			for j, bound := range d.Dimensions {
				checked, bt := a.checkExpr(bound)
				d.Dimensions[j] = checked
				if bt != nil && !bt.BaseType.IsNumeric() {
					a.errorAt(fberrors.TypeError, s.Position(), "array bound must be numeric, got %s", bt)
				}
			}
			if !s.Redim {
				if _, ok := a.Symbols.DeclareArray(d.Name, elem, len(d.Dimensions), a.fn == nil); !ok {
					a.errorAt(fberrors.SemanticError, s.Position(), "duplicate declaration of %q", d.Name)
				}
			} else if sym, ok := a.Symbols.LookupVariable(d.Name); !ok || sym.Kind != symtab.KindArray {
				a.errorAt(fberrors.ResolutionError, s.Position(), "REDIM of undeclared array %q", d.Name)
			}
			continue
		}

		init, it := a.checkExpr(d.Init)
		d.Init = init
		if d.TypeName == "" && suffixOf(d.Suffix) == lexer.SuffixNone && it != nil {
			elem = it // initializer-driven inference, spec §4.3 precedence tier 3
		}
		if _, ok := a.Symbols.DeclareVariable(d.Name, elem, a.fn == nil); !ok {
			a.errorAt(fberrors.SemanticError, s.Position(), "duplicate declaration of %q", d.Name)
		}
		if it != nil {
			a.checkAssignable(s.Position(), elem, it)
		}
	}
	return nil
}

func (a *Analyzer) checkCondition(pos ast.Pos, e ast.Expr) ast.Expr {
	checked, t := a.checkExpr(e)
	if t != nil && !t.BaseType.IsNumeric() {
		a.errorAt(fberrors.TypeError, pos, "condition must be numeric, got %s", t)
	}
	return checked
}

func (a *Analyzer) VisitIfStmt(s *ast.IfStmt) interface{} {
	s.Condition = a.checkCondition(s.Position(), s.Condition)
	a.checkStmts(s.Then)
	a.checkStmts(s.Else)
	return nil
}

func (a *Analyzer) VisitWhileStmt(s *ast.WhileStmt) interface{} {
	s.Condition = a.checkCondition(s.Position(), s.Condition)
	a.pushLoop(ast.LoopWhile, s.Label)
	a.checkStmts(s.Body)
	a.popLoop()
	return nil
}

func (a *Analyzer) VisitDoStmt(s *ast.DoStmt) interface{} {
	if s.Kind != ast.DoLoopForever {
		s.Condition = a.checkCondition(s.Position(), s.Condition)
	}
	a.pushLoop(ast.LoopDo, s.Label)
	a.checkStmts(s.Body)
	a.popLoop()
	return nil
}

func (a *Analyzer) VisitRepeatStmt(s *ast.RepeatStmt) interface{} {
	a.pushLoop(ast.LoopRepeat, s.Label)
	a.checkStmts(s.Body)
	a.popLoop()
	s.Condition = a.checkCondition(s.Position(), s.Condition)
	return nil
}

func (a *Analyzer) VisitForStmt(s *ast.ForStmt) interface{} {
	start, st := a.checkExpr(s.Start)
	end, et := a.checkExpr(s.End)
	s.Start, s.End = start, end
	if st != nil && !st.BaseType.IsNumeric() {
		a.errorAt(fberrors.TypeError, s.Position(), "FOR start value must be numeric, got %s", st)
	}
	if et != nil && !et.BaseType.IsNumeric() {
		a.errorAt(fberrors.TypeError, s.Position(), "FOR end value must be numeric, got %s", et)
	}
	if s.Step != nil {
		step, stepT := a.checkExpr(s.Step)
		s.Step = step
		if stepT != nil && !stepT.BaseType.IsNumeric() {
			a.errorAt(fberrors.TypeError, s.Position(), "FOR step value must be numeric, got %s", stepT)
		}
	}

	loopVarType := a.resolveDeclaredType("", suffixOf(s.Suffix))
	if suffixOf(s.Suffix) == lexer.SuffixNone {
		loopVarType = types.Scalar(types.Integer)
	}
	sym, ok := a.Symbols.LookupVariable(s.Var)
	if !ok {
		sym, _ = a.Symbols.DeclareVariable(s.Var, loopVarType, a.fn == nil)
	}
	_ = sym

	a.pushLoop(ast.LoopFor, s.Label)
	a.checkStmts(s.Body)
	a.popLoop()
	return nil
}

func (a *Analyzer) VisitForEachStmt(s *ast.ForEachStmt) interface{} {
	coll, ct := a.checkExpr(s.Collection)
	s.Collection = coll
	var elem *types.Descriptor
	if ct != nil {
		elem = ct.ElementType
	}
	if ct != nil && elem == nil {
		a.errorAt(fberrors.TypeError, s.Position(), "FOR EACH requires a LIST or ARRAY, got %s", ct)
	}
	if elem == nil {
		elem = types.Scalar(types.Unknown)
	}

	leave := a.Symbols.EnterScope()
	a.Symbols.DeclareVariable(s.Var, elem, false)
	a.pushLoop(ast.LoopFor, s.Label)
	a.checkStmts(s.Body)
	a.popLoop()
	leave()
	return nil
}

func (a *Analyzer) VisitSelectCaseStmt(s *ast.SelectCaseStmt) interface{} {
	selector, _ := a.checkExpr(s.Selector)
	s.Selector = selector
	a.pushLoop(ast.LoopSelect, "")
	for i := range s.Arms {
		arm := &s.Arms[i]
		for j, v := range arm.Values {
			checked, _ := a.checkExpr(v)
			arm.Values[j] = checked
		}
		a.checkStmts(arm.Body)
	}
	a.popLoop()
	return nil
}

func (a *Analyzer) VisitTryCatchStmt(s *ast.TryCatchStmt) interface{} {
	a.checkStmts(s.TryBlock)
	if s.CatchVar != "" {
		leave := a.Symbols.EnterScope()
		a.Symbols.DeclareVariable(s.CatchVar, types.Scalar(types.Integer), false)
		a.checkStmts(s.CatchBlock)
		leave()
	} else {
		a.checkStmts(s.CatchBlock)
	}
	a.checkStmts(s.FinallyBlock)
	return nil
}

func (a *Analyzer) checkFunctionLikeBody(name string, params []ast.Param, isSub bool, ret *types.Descriptor, meType *types.Descriptor, body []ast.Stmt) {
	leave := a.Symbols.EnterScope()
	prevFn := a.fn
	a.fn = &funcContext{name: name, returnType: ret, isSub: isSub, meType: meType}
	for _, p := range params {
		a.Symbols.DeclareVariable(p.Name, a.resolveDeclaredType(p.TypeName, suffixOf(p.Suffix)), false)
	}
	a.checkStmts(body)
	a.fn = prevFn
	leave()
}

func (a *Analyzer) VisitFunctionDeclStmt(s *ast.FunctionDeclStmt) interface{} {
	fn, ok := a.Symbols.LookupFunction(s.Name)
	var ret *types.Descriptor
	if ok {
		ret = fn.ReturnType
	} else {
		ret = a.resolveDeclaredType(s.ReturnType, suffixOf(s.ReturnSuffix))
	}
	a.checkFunctionLikeBody(s.Name, s.Params, false, ret, nil, s.Body)
	return nil
}

func (a *Analyzer) VisitSubDeclStmt(s *ast.SubDeclStmt) interface{} {
	a.checkFunctionLikeBody(s.Name, s.Params, true, nil, nil, s.Body)
	return nil
}

func (a *Analyzer) VisitCallStmt(s *ast.CallStmt) interface{} {
	callee, _ := a.checkExpr(s.Callee)
	s.Callee = callee
	return nil
}

// VisitReturnStmt checks both of RETURN's roles: a FUNCTION/SUB return
// (a.fn non-nil) and a top-level RETURN closing a GOSUB-reached
// subroutine (a.fn nil, spec §4.4's unstructured GOSUB/RETURN), which
// never carries a value.
func (a *Analyzer) VisitReturnStmt(s *ast.ReturnStmt) interface{} {
	value, vt := a.checkExpr(s.Value)
	s.Value = value
	if a.fn == nil {
		if s.Value != nil {
			a.errorAt(fberrors.SemanticError, s.Position(), "a GOSUB-targeted RETURN cannot carry a value")
		}
		return nil
	}
	if a.fn.isSub && s.Value != nil {
		a.errorAt(fberrors.SemanticError, s.Position(), "SUB %q cannot RETURN a value", a.fn.name)
	}
	if !a.fn.isSub && s.Value != nil {
		a.checkAssignable(s.Position(), a.fn.returnType, vt)
	}
	return nil
}

func (a *Analyzer) VisitGotoStmt(s *ast.GotoStmt) interface{} {
	if _, ok := a.Symbols.LookupLabel(s.Label); !ok {
		a.errorAt(fberrors.ResolutionError, s.Position(), "GOTO target label %q is not defined", s.Label)
	}
	return nil
}

func (a *Analyzer) VisitGosubStmt(s *ast.GosubStmt) interface{} {
	if _, ok := a.Symbols.LookupLabel(s.Label); !ok {
		a.errorAt(fberrors.ResolutionError, s.Position(), "GOSUB target label %q is not defined", s.Label)
	}
	return nil
}

func (a *Analyzer) VisitOnGotoStmt(s *ast.OnGotoStmt) interface{} {
	s.Selector = a.checkCondition(s.Position(), s.Selector)
	for _, label := range s.Labels {
		if _, ok := a.Symbols.LookupLabel(label); !ok {
			a.errorAt(fberrors.ResolutionError, s.Position(), "ON GOTO target label %q is not defined", label)
		}
	}
	return nil
}

func (a *Analyzer) VisitOnGosubStmt(s *ast.OnGosubStmt) interface{} {
	s.Selector = a.checkCondition(s.Position(), s.Selector)
	for _, label := range s.Labels {
		if _, ok := a.Symbols.LookupLabel(label); !ok {
			a.errorAt(fberrors.ResolutionError, s.Position(), "ON GOSUB target label %q is not defined", label)
		}
	}
	return nil
}

func (a *Analyzer) VisitExitStmt(s *ast.ExitStmt) interface{} {
	if a.fn == nil {
		a.errorAt(fberrors.SemanticError, s.Position(), "EXIT used outside any function, sub, or loop")
		return nil
	}
	switch s.Kind {
	case ast.LoopFunction, ast.LoopSub:
		return nil
	}
	for i := len(a.fn.loops) - 1; i >= 0; i-- {
		if a.fn.loops[i].kind == s.Kind && (s.Label == "" || a.fn.loops[i].label == s.Label) {
			return nil
		}
	}
	a.errorAt(fberrors.SemanticError, s.Position(), "EXIT does not match any enclosing loop or SELECT CASE")
	return nil
}

func (a *Analyzer) VisitEndStmt(s *ast.EndStmt) interface{} {
	if s.Code != nil {
		s.Code = a.checkCondition(s.Position(), s.Code)
	}
	return nil
}

func (a *Analyzer) VisitLocalStmt(s *ast.LocalStmt) interface{} {
	for _, name := range s.Names {
		if _, ok := a.Symbols.LookupVariable(name); !ok {
			a.Symbols.DeclareVariable(name, types.Scalar(types.Double), false)
		}
	}
	return nil
}

func (a *Analyzer) VisitSharedStmt(s *ast.SharedStmt) interface{} {
	for _, name := range s.Names {
		if _, ok := a.Symbols.LookupGlobalVariable(name); !ok {
			a.errorAt(fberrors.ResolutionError, s.Position(), "SHARED %q does not name a global variable", name)
			continue
		}
		a.Symbols.MarkShared(name)
	}
	return nil
}

func (a *Analyzer) VisitIncStmt(s *ast.IncStmt) interface{} {
	target, tt := a.checkExpr(s.Target)
	s.Target = target
	if tt != nil && !tt.BaseType.IsNumeric() {
		a.errorAt(fberrors.TypeError, s.Position(), "INC requires a numeric target, got %s", tt)
	}
	if s.Amount != nil {
		amount, _ := a.checkExpr(s.Amount)
		s.Amount = amount
	}
	return nil
}

func (a *Analyzer) VisitDecStmt(s *ast.DecStmt) interface{} {
	target, tt := a.checkExpr(s.Target)
	s.Target = target
	if tt != nil && !tt.BaseType.IsNumeric() {
		a.errorAt(fberrors.TypeError, s.Position(), "DEC requires a numeric target, got %s", tt)
	}
	if s.Amount != nil {
		amount, _ := a.checkExpr(s.Amount)
		s.Amount = amount
	}
	return nil
}

func (a *Analyzer) VisitSwapStmt(s *ast.SwapStmt) interface{} {
	left, lt := a.checkExpr(s.Left)
	right, rt := a.checkExpr(s.Right)
	s.Left, s.Right = left, right
	if lt != nil && rt != nil && !types.Equal(lt, rt) {
		a.errorAt(fberrors.TypeError, s.Position(), "SWAP requires operands of the same type, got %s and %s", lt, rt)
	}
	return nil
}

func (a *Analyzer) VisitTypeDeclStmt(s *ast.TypeDeclStmt) interface{} {
	return nil // fully handled in pass 1
}

func (a *Analyzer) VisitClassDeclStmt(s *ast.ClassDeclStmt) interface{} {
	ct, ok := a.Classes[symtab.Normalize(s.Name)]
	if !ok {
		a.internalf("class %q checked in pass 2 but missing from pass 1 table", s.Name)
	}
	meType := types.ClassOf(s.Name)

	for _, m := range s.Methods {
		fn := findMethod(ct, m.Name)
		var ret *types.Descriptor
		if fn != nil {
			ret = fn.ReturnType
		}
		a.checkFunctionLikeBody(m.Name, m.Params, false, ret, meType, m.Body)
	}
	for _, sub := range s.Subs {
		a.checkFunctionLikeBody(sub.Name, sub.Params, true, nil, meType, sub.Body)
	}
	if s.Constructor != nil {
		a.checkFunctionLikeBody("NEW", s.Constructor.Params, true, nil, meType, s.Constructor.Body)
	}
	if s.Destructor != nil {
		a.checkFunctionLikeBody("DELETE", nil, true, nil, meType, s.Destructor.Body)
	}
	return nil
}

func (a *Analyzer) VisitOptionStmt(s *ast.OptionStmt) interface{} {
	if s.Value != nil {
		value, _ := a.checkExpr(s.Value)
		s.Value = value
	}
	return nil
}

func (a *Analyzer) VisitDataStmt(s *ast.DataStmt) interface{} {
	for i, v := range s.Values {
		checked, _ := a.checkExpr(v)
		s.Values[i] = checked
	}
	return nil
}

// VisitMatchTypeStmt validates the spec §4.8 dispatch: the scrutinee must
// be an object-family type, every non-ELSE arm names a distinct declared
// type, and the arm's binding variable is scoped to that arm's body only
// with the declared arm type (its own suffix, if given, must agree).
func (a *Analyzer) VisitMatchTypeStmt(s *ast.MatchTypeStmt) interface{} {
	value, vt := a.checkExpr(s.Value)
	s.Value = value
	if vt != nil && vt.BaseType != types.ClassInstance && vt.BaseType != types.UserDefined && vt.BaseType != types.Unknown {
		a.errorAt(fberrors.TypeError, s.Position(), "MATCH TYPE requires an object-valued expression, got %s", vt)
	}

	seen := make(map[string]bool)
	for i := range s.Arms {
		arm := &s.Arms[i]
		if arm.IsElse {
			a.checkStmts(arm.Body)
			continue
		}
		key := symtab.Normalize(arm.TypeName)
		if seen[key] {
			a.errorAt(fberrors.SemanticError, s.Position(), "duplicate MATCH TYPE arm for %q", arm.TypeName)
		}
		seen[key] = true

		armType := a.resolveTypeName(arm.TypeName)
		if bindSuffix := suffixOf(arm.BindSuffix); bindSuffix != lexer.SuffixNone {
			suffixType := descriptorForSuffix(bindSuffix)
			if suffixType.BaseType.IsNumeric() != armType.BaseType.IsNumeric() {
				a.errorAt(fberrors.SemanticError, s.Position(), "MATCH TYPE arm %q binding suffix does not match the declared arm type", arm.TypeName)
			}
		}

		leave := a.Symbols.EnterScope()
		a.Symbols.DeclareVariable(arm.BindName, armType, false)
		a.checkStmts(arm.Body)
		leave()
	}
	return nil
}

func (a *Analyzer) VisitThrowStmt(s *ast.ThrowStmt) interface{} {
	s.Code = a.checkCondition(s.Position(), s.Code)
	if s.Line != nil {
		s.Line = a.checkCondition(s.Position(), s.Line)
	}
	return nil
}

func (a *Analyzer) VisitLabelStmt(s *ast.LabelStmt) interface{} {
	return nil // registered up front by collectLabels
}

func (a *Analyzer) VisitExpressionStmt(s *ast.ExpressionStmt) interface{} {
	e, _ := a.checkExpr(s.Expr)
	s.Expr = e
	return nil
}
