package ast

// Stmt is implemented by every statement node variant.
type Stmt interface {
	Accept(v StmtVisitor) interface{}
	Position() Pos
	stmtNode()
}

// PrintStmt: print variant. Args are comma-separated print items. The
// lexer has no ';' token, so semicolon separators are not accepted, and
// the parser always sets Newline to true.
type PrintStmt struct {
	Base
	Args    []Expr
	Newline bool
}

func (s *PrintStmt) stmtNode() {}
func (s *PrintStmt) Accept(v StmtVisitor) interface{} { return v.VisitPrintStmt(s) }

// ConsoleStmt: console variant, a console/terminal control directive
// (e.g. CONSOLE CLS, CONSOLE LOCATE x, y) distinct from PRINT's data
// output.
type ConsoleStmt struct {
	Base
	Command string
	Args    []Expr
}

func (s *ConsoleStmt) stmtNode() {}
func (s *ConsoleStmt) Accept(v StmtVisitor) interface{} { return v.VisitConsoleStmt(s) }

// LetStmt: let variant, LET x = expr (LET keyword optional at parse
// time, always present in the AST).
type LetStmt struct {
	Base
	Name   string
	Suffix interface{}
	Target Expr // non-nil for member/array/index assignment targets
	Value  Expr

	// MatchBindType is non-empty only for the synthetic bind a MATCH TYPE
	// arm's CASE <Type> <name> generates: the declared type name for the
	// arm, so the SSA emitter knows to load the selector as that type
	// rather than store its raw, untouched value.
	MatchBindType string
}

func (s *LetStmt) stmtNode() {}
func (s *LetStmt) Accept(v StmtVisitor) interface{} { return v.VisitLetStmt(s) }

// DimDecl is one variable declared by a DIM/REDIM statement.
type DimDecl struct {
	Name       string
	Suffix     interface{}
	TypeName   string // from AS clause, if any
	Dimensions []Expr // array bounds, empty for scalars
	Init       Expr
}

// DimStmt: dim variant. Preserve is true for REDIM PRESERVE.
type DimStmt struct {
	Base
	Redim    bool
	Preserve bool
	Decls    []DimDecl
}

func (s *DimStmt) stmtNode() {}
func (s *DimStmt) Accept(v StmtVisitor) interface{} { return v.VisitDimStmt(s) }

// IfStmt: if variant (IF/ELSEIF/ELSE/END IF). ElseIfs are lowered into
// nested IfStmt chains the way the teacher's parser builds else-if, so
// Else here holds either a single nested *IfStmt (another ELSEIF) or the
// final ELSE body.
type IfStmt struct {
	Base
	Condition Expr
	Then      []Stmt
	Else      []Stmt
	SingleLine bool
}

func (s *IfStmt) stmtNode() {}
func (s *IfStmt) Accept(v StmtVisitor) interface{} { return v.VisitIfStmt(s) }

// WhileStmt: while variant (WHILE/WEND).
type WhileStmt struct {
	Base
	Label     string
	Condition Expr
	Body      []Stmt
}

func (s *WhileStmt) stmtNode() {}
func (s *WhileStmt) Accept(v StmtVisitor) interface{} { return v.VisitWhileStmt(s) }

// DoLoopKind selects among the four DO/LOOP variants.
type DoLoopKind int

const (
	DoLoopPreWhile DoLoopKind = iota
	DoLoopPreUntil
	DoLoopPostWhile
	DoLoopPostUntil
	DoLoopForever // plain DO ... LOOP, exited only via EXIT DO
)

// DoStmt: do variant (DO/LOOP WHILE|UNTIL, all four placements).
type DoStmt struct {
	Base
	Label     string
	Kind      DoLoopKind
	Condition Expr
	Body      []Stmt
}

func (s *DoStmt) stmtNode() {}
func (s *DoStmt) Accept(v StmtVisitor) interface{} { return v.VisitDoStmt(s) }

// RepeatStmt: repeat variant (REPEAT/UNTIL, body always runs once).
type RepeatStmt struct {
	Base
	Label     string
	Body      []Stmt
	Condition Expr
}

func (s *RepeatStmt) stmtNode() {}
func (s *RepeatStmt) Accept(v StmtVisitor) interface{} { return v.VisitRepeatStmt(s) }

// ForStmt: for variant (FOR/NEXT), always integer arithmetic per spec.
type ForStmt struct {
	Base
	Label   string
	Var     string
	Suffix  interface{}
	Start   Expr
	End     Expr
	Step    Expr // nil means step 1
	Body    []Stmt
}

func (s *ForStmt) stmtNode() {}
func (s *ForStmt) Accept(v StmtVisitor) interface{} { return v.VisitForStmt(s) }

// ForEachStmt: FOR EACH item IN collection ... NEXT, the LIST/ARRAY
// iteration sibling of the counted ForStmt.
type ForEachStmt struct {
	Base
	Label      string
	Var        string
	Collection Expr
	Body       []Stmt
}

func (s *ForEachStmt) stmtNode() {}
func (s *ForEachStmt) Accept(v StmtVisitor) interface{} { return v.VisitForEachStmt(s) }

// SelectCaseArm is one CASE (or CASE ELSE) arm.
type SelectCaseArm struct {
	Values []Expr // empty for CASE ELSE
	IsElse bool
	Body   []Stmt
}

// SelectCaseStmt: select_case variant.
type SelectCaseStmt struct {
	Base
	Selector Expr
	Arms     []SelectCaseArm
}

func (s *SelectCaseStmt) stmtNode() {}
func (s *SelectCaseStmt) Accept(v StmtVisitor) interface{} { return v.VisitSelectCaseStmt(s) }

// TryCatchStmt: try_catch variant (TRY/CATCH/FINALLY).
type TryCatchStmt struct {
	Base
	TryBlock     []Stmt
	CatchVar     string
	CatchBlock   []Stmt
	FinallyBlock []Stmt
}

func (s *TryCatchStmt) stmtNode() {}
func (s *TryCatchStmt) Accept(v StmtVisitor) interface{} { return v.VisitTryCatchStmt(s) }

// Param is one formal parameter of a FUNCTION/SUB/method.
type Param struct {
	Name     string
	Suffix   interface{}
	TypeName string
	ByRef    bool
}

// FunctionDeclStmt: function_def variant (FUNCTION ... END FUNCTION).
type FunctionDeclStmt struct {
	Base
	Name       string
	Params     []Param
	ReturnType string
	ReturnSuffix interface{}
	Body       []Stmt
}

func (s *FunctionDeclStmt) stmtNode() {}
func (s *FunctionDeclStmt) Accept(v StmtVisitor) interface{} { return v.VisitFunctionDeclStmt(s) }

// SubDeclStmt: sub_def variant (SUB ... END SUB, no return value).
type SubDeclStmt struct {
	Base
	Name   string
	Params []Param
	Body   []Stmt
}

func (s *SubDeclStmt) stmtNode() {}
func (s *SubDeclStmt) Accept(v StmtVisitor) interface{} { return v.VisitSubDeclStmt(s) }

// CallStmt: call variant, CALL Sub(args) or a bare statement-level
// function/sub invocation.
type CallStmt struct {
	Base
	Callee Expr
}

func (s *CallStmt) stmtNode() {}
func (s *CallStmt) Accept(v StmtVisitor) interface{} { return v.VisitCallStmt(s) }

// ReturnStmt: return variant.
type ReturnStmt struct {
	Base
	Value Expr
}

func (s *ReturnStmt) stmtNode() {}
func (s *ReturnStmt) Accept(v StmtVisitor) interface{} { return v.VisitReturnStmt(s) }

// GotoStmt: goto variant.
type GotoStmt struct {
	Base
	Label string
}

func (s *GotoStmt) stmtNode() {}
func (s *GotoStmt) Accept(v StmtVisitor) interface{} { return v.VisitGotoStmt(s) }

// GosubStmt: gosub variant.
type GosubStmt struct {
	Base
	Label string
}

func (s *GosubStmt) stmtNode() {}
func (s *GosubStmt) Accept(v StmtVisitor) interface{} { return v.VisitGosubStmt(s) }

// OnGotoStmt: on_goto variant, ON n GOTO a, b, c.
type OnGotoStmt struct {
	Base
	Selector Expr
	Labels   []string
}

func (s *OnGotoStmt) stmtNode() {}
func (s *OnGotoStmt) Accept(v StmtVisitor) interface{} { return v.VisitOnGotoStmt(s) }

// OnGosubStmt: on_gosub variant, ON n GOSUB a, b, c.
type OnGosubStmt struct {
	Base
	Selector Expr
	Labels   []string
}

func (s *OnGosubStmt) stmtNode() {}
func (s *OnGosubStmt) Accept(v StmtVisitor) interface{} { return v.VisitOnGosubStmt(s) }

// LoopKind names which enclosing construct EXIT/CONTINUE targets.
type LoopKind int

const (
	LoopFor LoopKind = iota
	LoopWhile
	LoopDo
	LoopRepeat
	LoopSelect
	LoopFunction
	LoopSub
)

// ExitStmt: exit variant, EXIT FOR / EXIT WHILE / EXIT DO / EXIT
// FUNCTION / EXIT SUB, etc.
type ExitStmt struct {
	Base
	Kind  LoopKind
	Label string // optional, targets a specific labeled loop
}

func (s *ExitStmt) stmtNode() {}
func (s *ExitStmt) Accept(v StmtVisitor) interface{} { return v.VisitExitStmt(s) }

// EndStmt: end variant, terminates the program.
type EndStmt struct {
	Base
	Code Expr // optional exit code expression
}

func (s *EndStmt) stmtNode() {}
func (s *EndStmt) Accept(v StmtVisitor) interface{} { return v.VisitEndStmt(s) }

// LocalStmt: local variant, explicit LOCAL declaration inside a
// function/sub body (shadows any SHARED of the same name).
type LocalStmt struct {
	Base
	Names []string
}

func (s *LocalStmt) stmtNode() {}
func (s *LocalStmt) Accept(v StmtVisitor) interface{} { return v.VisitLocalStmt(s) }

// SharedStmt: shared variant, SHARED declares module-global visibility
// inside a function/sub body.
type SharedStmt struct {
	Base
	Names []string
}

func (s *SharedStmt) stmtNode() {}
func (s *SharedStmt) Accept(v StmtVisitor) interface{} { return v.VisitSharedStmt(s) }

// IncStmt: inc variant, INC x[, amount].
type IncStmt struct {
	Base
	Target Expr
	Amount Expr
}

func (s *IncStmt) stmtNode() {}
func (s *IncStmt) Accept(v StmtVisitor) interface{} { return v.VisitIncStmt(s) }

// DecStmt: dec variant, DEC x[, amount].
type DecStmt struct {
	Base
	Target Expr
	Amount Expr
}

func (s *DecStmt) stmtNode() {}
func (s *DecStmt) Accept(v StmtVisitor) interface{} { return v.VisitDecStmt(s) }

// SwapStmt: swap variant, SWAP a, b.
type SwapStmt struct {
	Base
	Left  Expr
	Right Expr
}

func (s *SwapStmt) stmtNode() {}
func (s *SwapStmt) Accept(v StmtVisitor) interface{} { return v.VisitSwapStmt(s) }

// TypeField is one field of a user-defined record TYPE declaration.
type TypeField struct {
	Name     string
	Suffix   interface{}
	TypeName string
}

// TypeDeclStmt: type_decl variant (TYPE ... END TYPE, a plain record,
// not a class).
type TypeDeclStmt struct {
	Base
	Name   string
	Fields []TypeField
}

func (s *TypeDeclStmt) stmtNode() {}
func (s *TypeDeclStmt) Accept(v StmtVisitor) interface{} { return v.VisitTypeDeclStmt(s) }

// ClassField is one field declared directly in a CLASS body.
type ClassField struct {
	Name     string
	Suffix   interface{}
	TypeName string
}

// ClassDeclStmt: class_decl variant (CLASS ... END CLASS), single
// inheritance via EXTENDS.
type ClassDeclStmt struct {
	Base
	Name       string
	Extends    string
	Fields     []ClassField
	Methods    []*FunctionDeclStmt
	Subs       []*SubDeclStmt
	Constructor *SubDeclStmt // NEW method, nil if not declared
	Destructor  *SubDeclStmt // DELETE method, nil if not declared
}

func (s *ClassDeclStmt) stmtNode() {}
func (s *ClassDeclStmt) Accept(v StmtVisitor) interface{} { return v.VisitClassDeclStmt(s) }

// OptionStmt: option variant, OPTION EXPLICIT / OPTION BASE n, etc.
type OptionStmt struct {
	Base
	Name  string
	Value Expr
}

func (s *OptionStmt) stmtNode() {}
func (s *OptionStmt) Accept(v StmtVisitor) interface{} { return v.VisitOptionStmt(s) }

// DataStmt: data variant, a DATA statement feeding READ.
type DataStmt struct {
	Base
	Values []Expr
}

func (s *DataStmt) stmtNode() {}
func (s *DataStmt) Accept(v StmtVisitor) interface{} { return v.VisitDataStmt(s) }

// MatchTypeArm is one CASE arm of a MATCH TYPE statement: a declared
// type, a binding variable (with its own suffix, which sema validates
// against the declared type), and the arm body.
type MatchTypeArm struct {
	TypeName   string
	BindName   string
	BindSuffix interface{}
	IsElse     bool
	Body       []Stmt
}

// MatchTypeStmt: match_type variant.
type MatchTypeStmt struct {
	Base
	Value Expr
	Arms  []MatchTypeArm
}

func (s *MatchTypeStmt) stmtNode() {}
func (s *MatchTypeStmt) Accept(v StmtVisitor) interface{} { return v.VisitMatchTypeStmt(s) }

// ThrowStmt: THROW code[, line] — raises a runtime exception caught by
// the nearest enclosing TRY/CATCH, or terminated at top level with a
// two-line diagnostic if uncaught.
type ThrowStmt struct {
	Base
	Code Expr
	Line Expr // optional explicit BASIC source line override
}

func (s *ThrowStmt) stmtNode() {}
func (s *ThrowStmt) Accept(v StmtVisitor) interface{} { return v.VisitThrowStmt(s) }

// LabelStmt marks a line/label target for GOTO/GOSUB; it is not one of
// the spec's named statement variants on its own but is how the parser
// records a label so the CFG builder can resolve jump targets.
type LabelStmt struct {
	Base
	Name string
}

func (s *LabelStmt) stmtNode() {}
func (s *LabelStmt) Accept(v StmtVisitor) interface{} { return v.VisitLabelStmt(s) }

// ExpressionStmt wraps a bare expression used as a statement (e.g. a
// registry function invoked for its side effect without CALL).
type ExpressionStmt struct {
	Base
	Expr Expr
}

func (s *ExpressionStmt) stmtNode() {}
func (s *ExpressionStmt) Accept(v StmtVisitor) interface{} { return v.VisitExpressionStmt(s) }

// StmtVisitor dispatches over every statement variant.
type StmtVisitor interface {
	VisitPrintStmt(s *PrintStmt) interface{}
	VisitConsoleStmt(s *ConsoleStmt) interface{}
	VisitLetStmt(s *LetStmt) interface{}
	VisitDimStmt(s *DimStmt) interface{}
	VisitIfStmt(s *IfStmt) interface{}
	VisitWhileStmt(s *WhileStmt) interface{}
	VisitDoStmt(s *DoStmt) interface{}
	VisitRepeatStmt(s *RepeatStmt) interface{}
	VisitForStmt(s *ForStmt) interface{}
	VisitForEachStmt(s *ForEachStmt) interface{}
	VisitSelectCaseStmt(s *SelectCaseStmt) interface{}
	VisitTryCatchStmt(s *TryCatchStmt) interface{}
	VisitFunctionDeclStmt(s *FunctionDeclStmt) interface{}
	VisitSubDeclStmt(s *SubDeclStmt) interface{}
	VisitCallStmt(s *CallStmt) interface{}
	VisitReturnStmt(s *ReturnStmt) interface{}
	VisitGotoStmt(s *GotoStmt) interface{}
	VisitGosubStmt(s *GosubStmt) interface{}
	VisitOnGotoStmt(s *OnGotoStmt) interface{}
	VisitOnGosubStmt(s *OnGosubStmt) interface{}
	VisitExitStmt(s *ExitStmt) interface{}
	VisitEndStmt(s *EndStmt) interface{}
	VisitLocalStmt(s *LocalStmt) interface{}
	VisitSharedStmt(s *SharedStmt) interface{}
	VisitIncStmt(s *IncStmt) interface{}
	VisitDecStmt(s *DecStmt) interface{}
	VisitSwapStmt(s *SwapStmt) interface{}
	VisitTypeDeclStmt(s *TypeDeclStmt) interface{}
	VisitClassDeclStmt(s *ClassDeclStmt) interface{}
	VisitOptionStmt(s *OptionStmt) interface{}
	VisitDataStmt(s *DataStmt) interface{}
	VisitMatchTypeStmt(s *MatchTypeStmt) interface{}
	VisitThrowStmt(s *ThrowStmt) interface{}
	VisitLabelStmt(s *LabelStmt) interface{}
	VisitExpressionStmt(s *ExpressionStmt) interface{}
}
