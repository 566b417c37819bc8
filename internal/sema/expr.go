package sema

import (
	"fasterbasic/internal/ast"
	fberrors "fasterbasic/internal/errors"
	"fasterbasic/internal/symtab"
	"fasterbasic/internal/types"
)

// exprResult is what every VisitXxxExpr returns through the Accept/visitor
// boundary: the (possibly rewritten, see VisitFunctionCallExpr) node and
// its resolved type.
type exprResult struct {
	Expr ast.Expr
	Type *types.Descriptor
}

// checkExpr type-checks e and returns the (possibly rewritten) expression
// together with its resolved type. Callers must use the returned
// expression to relink their own field, since checkExpr may replace the
// node (see the FunctionCallExpr/ArrayAccessExpr note below).
func (a *Analyzer) checkExpr(e ast.Expr) (ast.Expr, *types.Descriptor) {
	if e == nil {
		return nil, nil
	}
	res, ok := e.Accept(a).(exprResult)
	if !ok {
		a.internalf("expression visitor returned unexpected type for %T", e)
	}
	return res.Expr, res.Type
}

func unknownResult(e ast.Expr) exprResult {
	return exprResult{Expr: e, Type: types.Scalar(types.Unknown)}
}

func (a *Analyzer) VisitNumberExpr(e *ast.NumberExpr) interface{} {
	t := types.Scalar(types.Double)
	if !e.IsFloat {
		t = descriptorForSuffix(e.Suffix)
		if e.Suffix == 0 {
			t = types.Scalar(types.Integer)
		}
	} else if e.Suffix != 0 {
		t = descriptorForSuffix(e.Suffix)
	}
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

func (a *Analyzer) VisitStringLiteralExpr(e *ast.StringLiteralExpr) interface{} {
	t := types.Scalar(types.StringT)
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

func (a *Analyzer) VisitVariableExpr(e *ast.VariableExpr) interface{} {
	sym, ok := a.Symbols.LookupVariable(e.Name)
	if !ok {
		a.errorAt(fberrors.ResolutionError, e.Position(), "undeclared identifier %q", e.Name)
		return unknownResult(e)
	}
	e.Type = sym.Type
	return exprResult{Expr: e, Type: sym.Type}
}

func (a *Analyzer) VisitBinaryExpr(e *ast.BinaryExpr) interface{} {
	left, lt := a.checkExpr(e.Left)
	right, rt := a.checkExpr(e.Right)
	e.Left, e.Right = left, right

	var result *types.Descriptor
	switch e.Operator {
	case "AND", "OR":
		result = types.Scalar(types.Integer)
	case "=", "<>", "<", ">", "<=", ">=", "IS":
		result = types.Scalar(types.Integer)
	case "+":
		if lt != nil && rt != nil && (lt.BaseType == types.StringT || rt.BaseType == types.StringT) {
			result = types.Scalar(types.StringT)
		} else {
			result = a.numericBinaryResult(e.Position(), lt, rt)
		}
	case "&":
		result = types.Scalar(types.StringT)
	default:
		result = a.numericBinaryResult(e.Position(), lt, rt)
	}
	e.Type = result
	return exprResult{Expr: e, Type: result}
}

func (a *Analyzer) numericBinaryResult(pos ast.Pos, lt, rt *types.Descriptor) *types.Descriptor {
	if lt == nil || rt == nil {
		return types.Scalar(types.Unknown)
	}
	if !lt.BaseType.IsNumeric() || !rt.BaseType.IsNumeric() {
		a.errorAt(fberrors.TypeError, pos, "operator requires numeric operands, got %s and %s", lt, rt)
		return types.Scalar(types.Unknown)
	}
	return types.ResultOfBinaryNumeric(lt, rt)
}

func (a *Analyzer) VisitUnaryExpr(e *ast.UnaryExpr) interface{} {
	operand, t := a.checkExpr(e.Operand)
	e.Operand = operand
	if e.Operator == "NOT" {
		e.Type = types.Scalar(types.Integer)
		return exprResult{Expr: e, Type: e.Type.(*types.Descriptor)}
	}
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

// VisitFunctionCallExpr resolves a call-or-index parse (spec §4.2 leaves
// function-call vs array-access ambiguous when written NAME(args), since
// both share identical syntax). If NAME names a declared array variable
// rather than a function, this rewrites the node into an ArrayAccessExpr
// in place, per the Open Question decision recorded in DESIGN.md.
func (a *Analyzer) VisitFunctionCallExpr(e *ast.FunctionCallExpr) interface{} {
	if sym, ok := a.Symbols.LookupVariable(e.Name); ok && sym.Kind == symtab.KindArray {
		rewritten := &ast.ArrayAccessExpr{Base: e.Base, Array: &ast.VariableExpr{Base: e.Base, Name: e.Name, Type: sym.Type}}
		for _, arg := range e.Args {
			checked, _ := a.checkExpr(arg)
			rewritten.Indices = append(rewritten.Indices, checked)
		}
		rewritten.Type = sym.ElementType
		return exprResult{Expr: rewritten, Type: sym.ElementType}
	}

	fn, ok := a.Symbols.LookupFunction(e.Name)
	if !ok {
		a.errorAt(fberrors.ResolutionError, e.Position(), "call to undeclared function %q", e.Name)
		for i, arg := range e.Args {
			checked, _ := a.checkExpr(arg)
			e.Args[i] = checked
		}
		return unknownResult(e)
	}
	if fn.IsSub {
		a.errorAt(fberrors.SemanticError, e.Position(), "%q is a SUB and cannot be used in an expression", e.Name)
	}
	if len(e.Args) != len(fn.ParamTypes) {
		a.errorAt(fberrors.SemanticError, e.Position(), "%q expects %d argument(s), got %d", e.Name, len(fn.ParamTypes), len(e.Args))
	}
	for i, arg := range e.Args {
		checked, at := a.checkExpr(arg)
		e.Args[i] = checked
		if i < len(fn.ParamTypes) {
			a.checkAssignable(e.Position(), fn.ParamTypes[i], at)
		}
	}
	e.Type = fn.ReturnType
	return exprResult{Expr: e, Type: fn.ReturnType}
}

func (a *Analyzer) VisitMethodCallExpr(e *ast.MethodCallExpr) interface{} {
	recv, rt := a.checkExpr(e.Receiver)
	e.Receiver = recv
	var ret *types.Descriptor
	if rt != nil && rt.BaseType == types.ClassInstance {
		ct, ok := a.Classes[symtab.Normalize(rt.ObjectTypeName)]
		if !ok {
			a.errorAt(fberrors.ResolutionError, e.Position(), "unknown class %q", rt.ObjectTypeName)
		} else if m := findMethod(ct, e.Method); m == nil {
			a.errorAt(fberrors.SemanticError, e.Position(), "class %q has no method %q", rt.ObjectTypeName, e.Method)
		} else {
			ret = m.ReturnType
		}
	} else if rt != nil {
		a.errorAt(fberrors.TypeError, e.Position(), "method call on non-object type %s", rt)
	}
	for i, arg := range e.Args {
		checked, _ := a.checkExpr(arg)
		e.Args[i] = checked
	}
	e.Type = ret
	return exprResult{Expr: e, Type: ret}
}

func findMethod(ct *types.ClassTable, name string) *types.Method {
	for i := range ct.Methods {
		if symtab.Normalize(ct.Methods[i].Name) == symtab.Normalize(name) {
			return &ct.Methods[i]
		}
	}
	return nil
}

func (a *Analyzer) VisitMemberAccessExpr(e *ast.MemberAccessExpr) interface{} {
	recv, rt := a.checkExpr(e.Receiver)
	e.Receiver = recv
	var ft *types.Descriptor
	if rt != nil {
		switch rt.BaseType {
		case types.ClassInstance:
			ct, ok := a.Classes[symtab.Normalize(rt.ObjectTypeName)]
			if !ok {
				a.errorAt(fberrors.ResolutionError, e.Position(), "unknown class %q", rt.ObjectTypeName)
			} else if f := findField(ct.Fields, e.Field); f == nil {
				a.errorAt(fberrors.SemanticError, e.Position(), "class %q has no field %q", rt.ObjectTypeName, e.Field)
			} else {
				ft = f.Type
			}
		case types.UserDefined:
			if sym, ok := a.Symbols.LookupUserType(rt.ObjectTypeName); ok {
				if f := findField(sym.Fields, e.Field); f == nil {
					a.errorAt(fberrors.SemanticError, e.Position(), "type %q has no field %q", rt.ObjectTypeName, e.Field)
				} else {
					ft = f.Type
				}
			}
		default:
			a.errorAt(fberrors.TypeError, e.Position(), "member access on non-record type %s", rt)
		}
	}
	e.Type = ft
	return exprResult{Expr: e, Type: ft}
}

func findField(fields []types.Field, name string) *types.Field {
	for i := range fields {
		if symtab.Normalize(fields[i].Name) == symtab.Normalize(name) {
			return &fields[i]
		}
	}
	return nil
}

func (a *Analyzer) VisitArrayAccessExpr(e *ast.ArrayAccessExpr) interface{} {
	arr, at := a.checkExpr(e.Array)
	e.Array = arr
	for i, idx := range e.Indices {
		checked, it := a.checkExpr(idx)
		e.Indices[i] = checked
		if it != nil && !it.BaseType.IsNumeric() {
			a.errorAt(fberrors.TypeError, e.Position(), "array index must be numeric, got %s", it)
		}
	}
	var elem *types.Descriptor
	if at != nil {
		elem = at.ElementType
	}
	if elem == nil {
		elem = types.Scalar(types.Unknown)
	}
	e.Type = elem
	return exprResult{Expr: e, Type: elem}
}

func (a *Analyzer) VisitSliceExpr(e *ast.SliceExpr) interface{} {
	target, tt := a.checkExpr(e.Target)
	e.Target = target
	start, _ := a.checkExpr(e.Start)
	end, _ := a.checkExpr(e.End)
	e.Start, e.End = start, end
	if tt != nil && tt.BaseType != types.StringT {
		a.errorAt(fberrors.TypeError, e.Position(), "slice expression requires a STRING, got %s", tt)
	}
	e.Type = types.Scalar(types.StringT)
	return exprResult{Expr: e, Type: e.Type.(*types.Descriptor)}
}

func (a *Analyzer) VisitIIFExpr(e *ast.IIFExpr) interface{} {
	cond, _ := a.checkExpr(e.Cond)
	then, tt := a.checkExpr(e.Then)
	els, et := a.checkExpr(e.Else)
	e.Cond, e.Then, e.Else = cond, then, els
	result := tt
	if result == nil {
		result = et
	}
	e.Type = result
	return exprResult{Expr: e, Type: result}
}

func (a *Analyzer) VisitNewExpr(e *ast.NewExpr) interface{} {
	ct, ok := a.Classes[symtab.Normalize(e.ClassName)]
	if !ok {
		a.errorAt(fberrors.ResolutionError, e.Position(), "NEW of undeclared class %q", e.ClassName)
		for i, arg := range e.Args {
			checked, _ := a.checkExpr(arg)
			e.Args[i] = checked
		}
		return unknownResult(e)
	}
	if ct.CtorIdx >= 0 {
		ctor := ct.Methods[ct.CtorIdx]
		if len(e.Args) != len(ctor.ParamTypes) {
			a.errorAt(fberrors.SemanticError, e.Position(), "%s.NEW expects %d argument(s), got %d", e.ClassName, len(ctor.ParamTypes), len(e.Args))
		}
	} else if len(e.Args) != 0 {
		a.errorAt(fberrors.SemanticError, e.Position(), "%s has no constructor but NEW was given arguments", e.ClassName)
	}
	for i, arg := range e.Args {
		checked, _ := a.checkExpr(arg)
		e.Args[i] = checked
	}
	t := types.ClassOf(e.ClassName)
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

func (a *Analyzer) VisitCreateExpr(e *ast.CreateExpr) interface{} {
	t := a.resolveTypeName(e.TypeName)
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

func (a *Analyzer) VisitMeExpr(e *ast.MeExpr) interface{} {
	var t *types.Descriptor
	if a.fn != nil {
		t = a.fn.meType
	}
	if t == nil {
		a.errorAt(fberrors.SemanticError, e.Position(), "ME used outside a method body")
		t = types.Scalar(types.Unknown)
	}
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

func (a *Analyzer) VisitNothingExpr(e *ast.NothingExpr) interface{} {
	t := types.Scalar(types.Object)
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

func (a *Analyzer) VisitSuperCallExpr(e *ast.SuperCallExpr) interface{} {
	var t *types.Descriptor
	if a.fn == nil || a.fn.meType == nil {
		a.errorAt(fberrors.SemanticError, e.Position(), "SUPER used outside a method body")
	} else {
		ct := a.Classes[symtab.Normalize(a.fn.meType.ObjectTypeName)]
		if ct == nil || ct.Parent == "" {
			a.errorAt(fberrors.SemanticError, e.Position(), "SUPER has no parent class to call")
		} else if e.Method != "" {
			parent := a.Classes[symtab.Normalize(ct.Parent)]
			if m := findMethod(parent, e.Method); m == nil {
				a.errorAt(fberrors.SemanticError, e.Position(), "parent class %q has no method %q", ct.Parent, e.Method)
			} else {
				t = m.ReturnType
			}
		}
	}
	for i, arg := range e.Args {
		checked, _ := a.checkExpr(arg)
		e.Args[i] = checked
	}
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

func (a *Analyzer) VisitIsTypeExpr(e *ast.IsTypeExpr) interface{} {
	value, _ := a.checkExpr(e.Value)
	e.Value = value
	t := types.Scalar(types.Integer)
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

func (a *Analyzer) VisitListConstructorExpr(e *ast.ListConstructorExpr) interface{} {
	var elemType *types.Descriptor
	mixed := false
	for i, el := range e.Elements {
		checked, t := a.checkExpr(el)
		e.Elements[i] = checked
		if elemType == nil {
			elemType = t
			continue
		}
		if t == nil || !types.Equal(elemType, t) {
			if elemType.BaseType.IsNumeric() && t != nil && t.BaseType.IsNumeric() {
				elemType = types.ResultOfBinaryNumeric(elemType, t)
			} else {
				mixed = true
			}
		}
	}
	if len(e.Elements) == 0 {
		elemType = types.Scalar(types.Unknown)
	} else if mixed {
		elemType = types.Scalar(types.Unknown)
	}
	t := types.ListOf(elemType)
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

func (a *Analyzer) VisitArrayBinOpExpr(e *ast.ArrayBinOpExpr) interface{} {
	left, lt := a.checkExpr(e.Left)
	right, _ := a.checkExpr(e.Right)
	e.Left, e.Right = left, right
	e.Type = lt
	return exprResult{Expr: e, Type: lt}
}

// registryFunctionTypes gives a known type to the fixed runtime calls a
// RegistryFunctionExpr can name; anything else stays Unknown (the node
// exists for exactly these few exception-state accessors today).
var registryFunctionTypes = map[string]types.Base{
	"basic_err": types.Integer,
	"basic_erl": types.Integer,
}

func (a *Analyzer) VisitRegistryFunctionExpr(e *ast.RegistryFunctionExpr) interface{} {
	for i, arg := range e.Args {
		checked, _ := a.checkExpr(arg)
		e.Args[i] = checked
	}
	kind := types.Unknown
	if k, ok := registryFunctionTypes[e.Name]; ok {
		kind = k
	}
	t := types.Scalar(kind)
	e.Type = t
	return exprResult{Expr: e, Type: t}
}

// checkAssignable enforces spec §3.3's widening/narrowing rule: numeric
// widening only in the allowed direction, no implicit narrowing, and
// object assignment requires the same class or an ancestor relationship.
func (a *Analyzer) checkAssignable(pos ast.Pos, target, value *types.Descriptor) {
	if target == nil || value == nil {
		return
	}
	if types.Equal(target, value) {
		return
	}
	if target.BaseType.IsNumeric() && value.BaseType.IsNumeric() {
		if !types.CanWiden(value.BaseType, target.BaseType) {
			a.errorAt(fberrors.TypeError, pos, "cannot narrow %s to %s without an explicit conversion", value, target)
		}
		return
	}
	if target.BaseType == types.ClassInstance && value.BaseType == types.ClassInstance {
		if !types.IsAncestor(a.Classes[symtab.Normalize(value.ObjectTypeName)], target.ObjectTypeName, a.classLookup) {
			a.errorAt(fberrors.TypeError, pos, "%s is not assignable to %s", value, target)
		}
		return
	}
	if target.BaseType == types.Unknown || value.BaseType == types.Unknown {
		return
	}
	a.errorAt(fberrors.TypeError, pos, "type mismatch: cannot assign %s to %s", value, target)
}

func (a *Analyzer) classLookup(name string) *types.ClassTable {
	return a.Classes[symtab.Normalize(name)]
}
