// Package sema implements the semantic analyzer described in spec §4.3:
// two-pass symbol resolution (pass 1 registers top-level declarations so
// forward references resolve, pass 2 type-checks bodies), suffix/AS-clause
// driven type inference, and the full failure taxonomy reported through a
// shared diagnostics bag.
package sema

import (
	"fmt"

	"github.com/pkg/errors"

	"fasterbasic/internal/ast"
	fberrors "fasterbasic/internal/errors"
	"fasterbasic/internal/lexer"
	"fasterbasic/internal/symtab"
	"fasterbasic/internal/types"
)

// loopFrame tracks one nesting level of an enclosing loop/select/function
// body, so EXIT <kind> and RETURN can be validated against what actually
// encloses them.
type loopFrame struct {
	kind  ast.LoopKind
	label string
}

// funcContext holds the state specific to the function/sub body currently
// being checked.
type funcContext struct {
	name       string
	returnType *types.Descriptor
	isSub      bool
	loops      []loopFrame
	meType     *types.Descriptor // set while checking a class method/constructor/destructor body
}

// Analyzer walks a parsed program, annotating it with resolved types and
// reporting diagnostics. The file field is carried only for diagnostic
// locations.
type Analyzer struct {
	File    string
	Symbols *symtab.Table
	Classes map[string]*types.ClassTable
	Errors  *fberrors.Bag

	fn *funcContext

	matchBindType *types.Descriptor // set while checking a MATCH TYPE arm body
}

func New(file string) *Analyzer {
	return &Analyzer{
		File:    file,
		Symbols: symtab.New(),
		Classes: make(map[string]*types.ClassTable),
		Errors:  &fberrors.Bag{},
	}
}

// Analyze runs both passes over a parsed program. Internal invariant
// violations (bugs in the compiler itself, not user errors) are reported
// as panics wrapped with github.com/pkg/errors and are expected to be
// recovered by the driver at the phase boundary, per spec §7.
func (a *Analyzer) Analyze(program []ast.Stmt) {
	a.collectLabels(program)
	a.pass1(program)
	for _, s := range program {
		a.checkStmt(s)
	}
}

// collectLabels registers every LabelStmt reachable anywhere in the
// program before pass 2 runs, so a GOTO/GOSUB appearing textually before
// its target (or inside a sibling block) still resolves. BlockIndex is
// left for internal/cfg to fill in once basic blocks exist.
func (a *Analyzer) collectLabels(stmts []ast.Stmt) {
	for _, s := range stmts {
		switch d := s.(type) {
		case *ast.LabelStmt:
			if _, ok := a.Symbols.DeclareLabel(d.Name, d.Position().Line, -1); !ok {
				a.errorAt(fberrors.SemanticError, d.Position(), "duplicate label %q", d.Name)
			}
		case *ast.IfStmt:
			a.collectLabels(d.Then)
			a.collectLabels(d.Else)
		case *ast.WhileStmt:
			a.collectLabels(d.Body)
		case *ast.DoStmt:
			a.collectLabels(d.Body)
		case *ast.RepeatStmt:
			a.collectLabels(d.Body)
		case *ast.ForStmt:
			a.collectLabels(d.Body)
		case *ast.ForEachStmt:
			a.collectLabels(d.Body)
		case *ast.SelectCaseStmt:
			for _, arm := range d.Arms {
				a.collectLabels(arm.Body)
			}
		case *ast.TryCatchStmt:
			a.collectLabels(d.TryBlock)
			a.collectLabels(d.CatchBlock)
			a.collectLabels(d.FinallyBlock)
		case *ast.MatchTypeStmt:
			for _, arm := range d.Arms {
				a.collectLabels(arm.Body)
			}
		case *ast.FunctionDeclStmt:
			a.collectLabels(d.Body)
		case *ast.SubDeclStmt:
			a.collectLabels(d.Body)
		case *ast.ClassDeclStmt:
			for _, m := range d.Methods {
				a.collectLabels(m.Body)
			}
			for _, sub := range d.Subs {
				a.collectLabels(sub.Body)
			}
			if d.Constructor != nil {
				a.collectLabels(d.Constructor.Body)
			}
			if d.Destructor != nil {
				a.collectLabels(d.Destructor.Body)
			}
		}
	}
}

// --- diagnostics ---

func (a *Analyzer) errorAt(category fberrors.Category, pos ast.Pos, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	a.Errors.Add(&fberrors.FasterBASICError{
		Category: category,
		Message:  msg,
		Location: fberrors.SourceLocation{File: a.File, Line: pos.Line, Column: pos.Column},
	})
}

func (a *Analyzer) internalf(format string, args ...interface{}) {
	panic(errors.Wrap(fmt.Errorf(format, args...), "sema internal invariant violated"))
}

// --- pass 1: declarations ---

func (a *Analyzer) pass1(program []ast.Stmt) {
	// Register TYPE and CLASS shapes first (classes may reference types,
	// and methods need their enclosing class table to exist).
	for _, s := range program {
		switch d := s.(type) {
		case *ast.TypeDeclStmt:
			a.declareUserType(d)
		}
	}
	for _, s := range program {
		switch d := s.(type) {
		case *ast.ClassDeclStmt:
			a.declareClass(d)
		}
	}
	for _, s := range program {
		switch d := s.(type) {
		case *ast.FunctionDeclStmt:
			a.declareFunction(d)
		case *ast.SubDeclStmt:
			a.declareSub(d)
		}
	}
}

func (a *Analyzer) declareUserType(d *ast.TypeDeclStmt) {
	var fields []types.Field
	offset := 0
	for _, f := range d.Fields {
		t := a.resolveDeclaredType(f.TypeName, suffixOf(f.Suffix))
		fields = append(fields, types.Field{Name: f.Name, Type: t, Offset: offset})
		offset += t.BaseType.Size()
	}
	if _, ok := a.Symbols.DeclareUserType(d.Name, fields); !ok {
		a.errorAt(fberrors.SemanticError, d.Position(), "duplicate declaration of type %q", d.Name)
	}
}

func (a *Analyzer) declareClass(d *ast.ClassDeclStmt) {
	var parent *types.ClassTable
	if d.Extends != "" {
		p, ok := a.Classes[symtab.Normalize(d.Extends)]
		if !ok {
			a.errorAt(fberrors.ResolutionError, d.Position(), "class %q extends undeclared class %q", d.Name, d.Extends)
		} else {
			parent = p
		}
	}

	var ownFields []types.Field
	for _, f := range d.Fields {
		ownFields = append(ownFields, types.Field{Name: f.Name, Type: a.resolveDeclaredType(f.TypeName, suffixOf(f.Suffix))})
	}

	var ownMethods []types.Method
	addMethod := func(name string, params []ast.Param, retName string, retSuffix lexer.Suffix, isSub bool) {
		var pts []*types.Descriptor
		for _, p := range params {
			pts = append(pts, a.resolveDeclaredType(p.TypeName, suffixOf(p.Suffix)))
		}
		var rt *types.Descriptor
		if !isSub {
			rt = a.resolveDeclaredType(retName, retSuffix)
		}
		ownMethods = append(ownMethods, types.Method{Name: name, ParamTypes: pts, ReturnType: rt, IsSub: isSub})
	}
	for _, m := range d.Methods {
		addMethod(m.Name, m.Params, m.ReturnType, suffixOf(m.ReturnSuffix), false)
	}
	for _, sub := range d.Subs {
		addMethod(sub.Name, sub.Params, "", lexer.SuffixNone, true)
	}
	if d.Constructor != nil {
		addMethod("NEW", d.Constructor.Params, "", lexer.SuffixNone, true)
	}
	if d.Destructor != nil {
		addMethod("DELETE", nil, "", lexer.SuffixNone, true)
	}

	if a.classCycle(d.Name, d.Extends) {
		a.errorAt(fberrors.SemanticError, d.Position(), "class %q has an inheritance cycle through %q", d.Name, d.Extends)
		return
	}

	ct := types.NewClassTable(d.Name, parent, ownFields, ownMethods)
	a.Classes[symtab.Normalize(d.Name)] = ct
	if _, ok := a.Symbols.DeclareClass(ct); !ok {
		a.errorAt(fberrors.SemanticError, d.Position(), "duplicate declaration of class %q", d.Name)
	}
}

func (a *Analyzer) classCycle(name, parent string) bool {
	seen := map[string]bool{symtab.Normalize(name): true}
	for cur := parent; cur != ""; {
		key := symtab.Normalize(cur)
		if seen[key] {
			return true
		}
		seen[key] = true
		ct, ok := a.Classes[key]
		if !ok {
			return false
		}
		cur = ct.Parent
	}
	return false
}

func (a *Analyzer) declareFunction(d *ast.FunctionDeclStmt) {
	var params []*types.Descriptor
	for _, p := range d.Params {
		params = append(params, a.resolveDeclaredType(p.TypeName, suffixOf(p.Suffix)))
	}
	ret := a.resolveDeclaredType(d.ReturnType, suffixOf(d.ReturnSuffix))
	if _, ok := a.Symbols.DeclareFunction(d.Name, params, ret, false); !ok {
		a.errorAt(fberrors.SemanticError, d.Position(), "duplicate declaration of function %q", d.Name)
	}
}

func (a *Analyzer) declareSub(d *ast.SubDeclStmt) {
	var params []*types.Descriptor
	for _, p := range d.Params {
		params = append(params, a.resolveDeclaredType(p.TypeName, suffixOf(p.Suffix)))
	}
	if _, ok := a.Symbols.DeclareFunction(d.Name, params, nil, true); !ok {
		a.errorAt(fberrors.SemanticError, d.Position(), "duplicate declaration of sub %q", d.Name)
	}
}

// resolveDeclaredType computes the static type of a declaration: an
// explicit AS clause wins, otherwise suffix-character inference, per
// spec §4.3's precedence (AS clause > suffix > initializer > default).
func (a *Analyzer) resolveDeclaredType(typeName string, suffix lexer.Suffix) *types.Descriptor {
	if typeName != "" {
		return a.resolveTypeName(typeName)
	}
	return descriptorForSuffix(suffix)
}

func (a *Analyzer) resolveTypeName(name string) *types.Descriptor {
	switch name {
	case "BYTE":
		return types.Scalar(types.Byte)
	case "SHORT":
		return types.Scalar(types.Short)
	case "INTEGER":
		return types.Scalar(types.Integer)
	case "LONG":
		return types.Scalar(types.Long)
	case "SINGLE":
		return types.Scalar(types.Single)
	case "DOUBLE":
		return types.Scalar(types.Double)
	case "STRING":
		return types.Scalar(types.StringT)
	case "ANY":
		return types.Scalar(types.Unknown)
	}
	if sym, ok := a.Symbols.LookupClass(name); ok {
		return sym.Type
	}
	if sym, ok := a.Symbols.LookupUserType(name); ok {
		return sym.Type
	}
	return types.Scalar(types.Unknown)
}

func descriptorForSuffix(suffix lexer.Suffix) *types.Descriptor {
	switch suffix {
	case lexer.SuffixByte:
		return types.Scalar(types.Byte)
	case lexer.SuffixShort:
		return types.Scalar(types.Short)
	case lexer.SuffixInt:
		return types.Scalar(types.Integer)
	case lexer.SuffixLong:
		return types.Scalar(types.Long)
	case lexer.SuffixSingle:
		return types.Scalar(types.Single)
	case lexer.SuffixDouble:
		return types.Scalar(types.Double)
	case lexer.SuffixString:
		return types.Scalar(types.StringT)
	default:
		return types.Scalar(types.Double) // default numeric, per spec §4.3
	}
}

func suffixOf(v interface{}) lexer.Suffix {
	if s, ok := v.(lexer.Suffix); ok {
		return s
	}
	return lexer.SuffixNone
}
