// Package ast defines the FasterBASIC abstract syntax tree: a closed set
// of expression and statement node types built by internal/parser and
// walked by internal/sema and internal/cfg.
//
// Every node carries a unique ID (for cross-referencing label targets
// across GOTO/GOSUB edges) and a source location. Nodes are tree-linked
// with ordinary Go pointers, built once by the parser and walked
// read-mostly afterward; sema attaches a resolved type.Descriptor to each
// expression node via the Type field rather than rebuilding the tree.
package ast

import "fasterbasic/internal/lexer"

// NodeID uniquely identifies a node for diagnostics and label cross-
// referencing.
type NodeID int

// Pos is the source location a node originates from.
type Pos struct {
	Line   int
	Column int
}

func PosOf(tok lexer.Token) Pos { return Pos{Line: tok.Line, Column: tok.Column} }

// Expr is implemented by every expression node variant.
type Expr interface {
	Accept(v ExprVisitor) interface{}
	Position() Pos
	exprNode()
}

type Base struct {
	ID  NodeID
	Pos Pos
}

func (b Base) Position() Pos { return b.Pos }

// NumberExpr: a numeric literal (number variant).
type NumberExpr struct {
	Base
	IsFloat bool
	IntVal  int64
	FltVal  float64
	Suffix  lexer.Suffix
	Type    interface{}
}

func (n *NumberExpr) exprNode() {}
func (n *NumberExpr) Accept(v ExprVisitor) interface{} { return v.VisitNumberExpr(n) }

// StringLiteralExpr: string_literal variant.
type StringLiteralExpr struct {
	Base
	Value string
	Type  interface{}
}

func (s *StringLiteralExpr) exprNode() {}
func (s *StringLiteralExpr) Accept(v ExprVisitor) interface{} { return v.VisitStringLiteralExpr(s) }

// VariableExpr: variable reference, possibly suffixed.
type VariableExpr struct {
	Base
	Name   string
	Suffix lexer.Suffix
	Type   interface{}
}

func (n *VariableExpr) exprNode() {}
func (n *VariableExpr) Accept(v ExprVisitor) interface{} { return v.VisitVariableExpr(n) }

// BinaryExpr: binary variant, e.g. a + b, a < b.
type BinaryExpr struct {
	Base
	Left     Expr
	Operator string
	Right    Expr
	Type     interface{}
}

func (n *BinaryExpr) exprNode() {}
func (n *BinaryExpr) Accept(v ExprVisitor) interface{} { return v.VisitBinaryExpr(n) }

// UnaryExpr: unary variant, e.g. -x, NOT x.
type UnaryExpr struct {
	Base
	Operator string
	Operand  Expr
	Type     interface{}
}

func (n *UnaryExpr) exprNode() {}
func (n *UnaryExpr) Accept(v ExprVisitor) interface{} { return v.VisitUnaryExpr(n) }

// FunctionCallExpr: function_call variant.
type FunctionCallExpr struct {
	Base
	Name string
	Args []Expr
	Type interface{}
}

func (n *FunctionCallExpr) exprNode() {}
func (n *FunctionCallExpr) Accept(v ExprVisitor) interface{} { return v.VisitFunctionCallExpr(n) }

// MethodCallExpr: method_call variant, obj.Method(args).
type MethodCallExpr struct {
	Base
	Receiver Expr
	Method   string
	Args     []Expr
	Type     interface{}
}

func (n *MethodCallExpr) exprNode() {}
func (n *MethodCallExpr) Accept(v ExprVisitor) interface{} { return v.VisitMethodCallExpr(n) }

// MemberAccessExpr: member_access variant, obj.Field.
type MemberAccessExpr struct {
	Base
	Receiver Expr
	Field    string
	Type     interface{}
}

func (n *MemberAccessExpr) exprNode() {}
func (n *MemberAccessExpr) Accept(v ExprVisitor) interface{} { return v.VisitMemberAccessExpr(n) }

// ArrayAccessExpr: array_access variant, arr(i) or arr(i, j).
type ArrayAccessExpr struct {
	Base
	Array   Expr
	Indices []Expr
	Type    interface{}
}

func (n *ArrayAccessExpr) exprNode() {}
func (n *ArrayAccessExpr) Accept(v ExprVisitor) interface{} { return v.VisitArrayAccessExpr(n) }

// SliceExpr: var$(start TO end) string-slice disambiguation result.
type SliceExpr struct {
	Base
	Target Expr
	Start  Expr
	End    Expr
	Type   interface{}
}

func (n *SliceExpr) exprNode() {}
func (n *SliceExpr) Accept(v ExprVisitor) interface{} { return v.VisitSliceExpr(n) }

// IIFExpr: iif variant, IIF(cond, t, f).
type IIFExpr struct {
	Base
	Cond Expr
	Then Expr
	Else Expr
	Type interface{}
}

func (n *IIFExpr) exprNode() {}
func (n *IIFExpr) Accept(v ExprVisitor) interface{} { return v.VisitIIFExpr(n) }

// NewExpr: new variant, NEW ClassName(args).
type NewExpr struct {
	Base
	ClassName string
	Args      []Expr
	Type      interface{}
}

func (n *NewExpr) exprNode() {}
func (n *NewExpr) Accept(v ExprVisitor) interface{} { return v.VisitNewExpr(n) }

// CreateExpr: create variant, CREATE TypeName (value-type allocation,
// distinct from NEW's class-instance allocation).
type CreateExpr struct {
	Base
	TypeName string
	Type     interface{}
}

func (n *CreateExpr) exprNode() {}
func (n *CreateExpr) Accept(v ExprVisitor) interface{} { return v.VisitCreateExpr(n) }

// MeExpr: me variant, the implicit receiver inside a method body.
type MeExpr struct {
	Base
	Type interface{}
}

func (n *MeExpr) exprNode() {}
func (n *MeExpr) Accept(v ExprVisitor) interface{} { return v.VisitMeExpr(n) }

// NothingExpr: nothing variant, the null object reference.
type NothingExpr struct {
	Base
	Type interface{}
}

func (n *NothingExpr) exprNode() {}
func (n *NothingExpr) Accept(v ExprVisitor) interface{} { return v.VisitNothingExpr(n) }

// SuperCallExpr: super_call variant, SUPER.Method(args) or SUPER(args)
// for a base-class constructor call.
type SuperCallExpr struct {
	Base
	Method string
	Args   []Expr
	Type   interface{}
}

func (n *SuperCallExpr) exprNode() {}
func (n *SuperCallExpr) Accept(v ExprVisitor) interface{} { return v.VisitSuperCallExpr(n) }

// IsTypeExpr: is_type variant, used both as a boolean test (TYPEOF x IS T)
// and as the per-arm predicate MATCH TYPE lowers to internally.
type IsTypeExpr struct {
	Base
	Value    Expr
	TypeName string
	Type     interface{}
}

func (n *IsTypeExpr) exprNode() {}
func (n *IsTypeExpr) Accept(v ExprVisitor) interface{} { return v.VisitIsTypeExpr(n) }

// ListConstructorExpr: list_constructor variant, LIST(e1, e2, ...).
type ListConstructorExpr struct {
	Base
	Elements []Expr
	Type     interface{}
}

func (n *ListConstructorExpr) exprNode() {}
func (n *ListConstructorExpr) Accept(v ExprVisitor) interface{} { return v.VisitListConstructorExpr(n) }

// ArrayBinOpExpr: array_binop variant, an elementwise array operation
// (e.g. arr1 + arr2 for ARRAY OF numeric types).
type ArrayBinOpExpr struct {
	Base
	Left     Expr
	Operator string
	Right    Expr
	Type     interface{}
}

func (n *ArrayBinOpExpr) exprNode() {}
func (n *ArrayBinOpExpr) Accept(v ExprVisitor) interface{} { return v.VisitArrayBinOpExpr(n) }

// RegistryFunctionExpr: registry_function variant, a call into the fixed
// runtime symbol surface (spec §6.3) rather than a user-defined function.
type RegistryFunctionExpr struct {
	Base
	Name string
	Args []Expr
	Type interface{}
}

func (n *RegistryFunctionExpr) exprNode() {}
func (n *RegistryFunctionExpr) Accept(v ExprVisitor) interface{} { return v.VisitRegistryFunctionExpr(n) }

// ExprVisitor dispatches over every expression variant.
type ExprVisitor interface {
	VisitNumberExpr(e *NumberExpr) interface{}
	VisitStringLiteralExpr(e *StringLiteralExpr) interface{}
	VisitVariableExpr(e *VariableExpr) interface{}
	VisitBinaryExpr(e *BinaryExpr) interface{}
	VisitUnaryExpr(e *UnaryExpr) interface{}
	VisitFunctionCallExpr(e *FunctionCallExpr) interface{}
	VisitMethodCallExpr(e *MethodCallExpr) interface{}
	VisitMemberAccessExpr(e *MemberAccessExpr) interface{}
	VisitArrayAccessExpr(e *ArrayAccessExpr) interface{}
	VisitSliceExpr(e *SliceExpr) interface{}
	VisitIIFExpr(e *IIFExpr) interface{}
	VisitNewExpr(e *NewExpr) interface{}
	VisitCreateExpr(e *CreateExpr) interface{}
	VisitMeExpr(e *MeExpr) interface{}
	VisitNothingExpr(e *NothingExpr) interface{}
	VisitSuperCallExpr(e *SuperCallExpr) interface{}
	VisitIsTypeExpr(e *IsTypeExpr) interface{}
	VisitListConstructorExpr(e *ListConstructorExpr) interface{}
	VisitArrayBinOpExpr(e *ArrayBinOpExpr) interface{}
	VisitRegistryFunctionExpr(e *RegistryFunctionExpr) interface{}
}

// NewBase constructs the embedded Base fields; exported so the parser can
// stamp IDs from a single counter.
func NewBase(id NodeID, pos Pos) Base { return Base{ID: id, Pos: pos} }
