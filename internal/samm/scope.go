// Package samm models the Scope-Aware Memory Manager the emitted program
// links against: the automatic scope-injection heuristic consulted by
// internal/ssa before emitting a routine's prologue/epilogue, the runtime
// call surface that routine bracketing compiles down to, and a runnable
// reference model (Bloom filter + background cleanup worker) used to
// validate the double-free-diagnostic and false-positive-rate behaviors
// against something that actually executes, since the real C runtime is
// out of core scope.
package samm

import (
	"fasterbasic/internal/ast"
	"fasterbasic/internal/cfg"
)

// NeedsScope decides whether a routine must be wrapped in
// samm_enter_scope/samm_exit_scope: it declares a DIM/REDIM anywhere, or
// a statement in one of its loop_body blocks constructs an object or a
// string literal. Only blocks of kind loop_body are inspected, so an
// allocation that an IF, SELECT CASE or similar construct inside a loop
// body places in a block of another kind is not seen. A routine with
// neither pays zero SAMM overhead. Class methods and the
// program's main routine are scoped unconditionally by the caller
// regardless of what this returns.
func NeedsScope(fn *cfg.Function) bool {
	for _, b := range fn.Blocks {
		for _, s := range b.Stmts {
			if _, ok := s.(*ast.DimStmt); ok {
				return true
			}
		}
	}
	for _, b := range fn.Blocks {
		if b.Kind != cfg.BlockLoopBody {
			continue
		}
		for _, s := range b.Stmts {
			if stmtAllocates(s) {
				return true
			}
		}
	}
	return false
}

func stmtAllocates(s ast.Stmt) bool {
	switch d := s.(type) {
	case *ast.LetStmt:
		return exprAllocates(d.Value) || exprAllocates(d.Target)
	case *ast.DimStmt:
		for _, decl := range d.Decls {
			if exprAllocates(decl.Init) {
				return true
			}
		}
	case *ast.CallStmt:
		return exprAllocates(d.Callee)
	case *ast.PrintStmt:
		for _, a := range d.Args {
			if exprAllocates(a) {
				return true
			}
		}
	case *ast.ExpressionStmt:
		return exprAllocates(d.Expr)
	case *ast.IncStmt:
		return exprAllocates(d.Target)
	case *ast.DecStmt:
		return exprAllocates(d.Target)
	}
	return false
}

func exprAllocates(e ast.Expr) bool {
	switch d := e.(type) {
	case nil:
		return false
	case *ast.NewExpr:
		return true
	case *ast.StringLiteralExpr:
		return true
	case *ast.BinaryExpr:
		return exprAllocates(d.Left) || exprAllocates(d.Right)
	case *ast.UnaryExpr:
		return exprAllocates(d.Operand)
	case *ast.FunctionCallExpr:
		for _, a := range d.Args {
			if exprAllocates(a) {
				return true
			}
		}
	case *ast.MethodCallExpr:
		if exprAllocates(d.Receiver) {
			return true
		}
		for _, a := range d.Args {
			if exprAllocates(a) {
				return true
			}
		}
	case *ast.ArrayAccessExpr:
		for _, i := range d.Indices {
			if exprAllocates(i) {
				return true
			}
		}
	case *ast.MemberAccessExpr:
		return exprAllocates(d.Receiver)
	case *ast.SliceExpr:
		return exprAllocates(d.Target)
	case *ast.ListConstructorExpr:
		for _, el := range d.Elements {
			if exprAllocates(el) {
				return true
			}
		}
	case *ast.IIFExpr:
		return exprAllocates(d.Cond) || exprAllocates(d.Then) || exprAllocates(d.Else)
	}
	return false
}
