package cfg

import (
	"fmt"

	"github.com/pkg/errors"

	"fasterbasic/internal/ast"
)

// loopFrame is one nesting level of a loop or SELECT CASE, tracked so
// EXIT <kind> [label] can find the right exit block, mirroring
// internal/sema's own loopFrame (sema validates the match exists; cfg
// only needs to resolve it to a block).
type loopFrame struct {
	kind  ast.LoopKind
	label string
	exit  *BasicBlock
}

// pendingGoto is an unresolved GOTO/ON GOTO/GOSUB edge recorded before its
// target label's block has been built (a forward reference); resolved by
// resolveLabel once that label is reached.
type pendingGoto struct {
	from  *BasicBlock
	kind  EdgeKind
	label string
}

// Builder lowers one routine's statement list into a Function CFG.
type Builder struct {
	fn      *Function
	current *BasicBlock

	loopStack    []loopFrame
	labelBlocks  map[string]*BasicBlock
	pending      []pendingGoto
	gosubConts   []*BasicBlock // continuation blocks of every GOSUB/ON GOSUB reached in this routine
	inGosubScope bool          // true once any GOSUB/ON GOSUB has been seen, so a bare RETURN is recognized
}

// BuildProgram lowers the whole type-checked program: the top-level
// statements become the Main routine, and every FUNCTION/SUB/class
// method becomes its own Function, per spec §4.5's per-signature model.
func BuildProgram(program []ast.Stmt) *Program {
	p := &Program{Types: make(map[string]*RecordLayout)}

	var topLevel []ast.Stmt
	for _, s := range program {
		switch d := s.(type) {
		case *ast.TypeDeclStmt:
			fields := make([]string, len(d.Fields))
			for i, f := range d.Fields {
				fields[i] = f.Name
			}
			p.Types[d.Name] = &RecordLayout{Name: d.Name, Fields: fields}
		case *ast.FunctionDeclStmt:
			p.Functions = append(p.Functions, buildRoutine(d.Name, d.Params, false, "", d.ReturnSuffix, d.Body))
		case *ast.SubDeclStmt:
			p.Functions = append(p.Functions, buildRoutine(d.Name, d.Params, true, "", nil, d.Body))
		case *ast.ClassDeclStmt:
			fields := make([]string, len(d.Fields))
			for i, f := range d.Fields {
				fields[i] = f.Name
			}
			methods := make([]string, 0, len(d.Methods)+len(d.Subs))
			for _, m := range d.Methods {
				methods = append(methods, m.Name)
			}
			for _, sub := range d.Subs {
				methods = append(methods, sub.Name)
			}
			p.Types[d.Name] = &RecordLayout{Name: d.Name, BaseName: d.Extends, Fields: fields, Methods: methods}
			for _, m := range d.Methods {
				p.Functions = append(p.Functions, buildRoutine(fmt.Sprintf("%s__%s", d.Name, m.Name), m.Params, false, d.Name, m.ReturnSuffix, m.Body))
			}
			for _, sub := range d.Subs {
				p.Functions = append(p.Functions, buildRoutine(fmt.Sprintf("%s__%s", d.Name, sub.Name), sub.Params, true, d.Name, nil, sub.Body))
			}
			if d.Constructor != nil {
				p.Functions = append(p.Functions, buildRoutine(fmt.Sprintf("%s__NEW", d.Name), d.Constructor.Params, true, d.Name, nil, d.Constructor.Body))
			}
			if d.Destructor != nil {
				p.Functions = append(p.Functions, buildRoutine(fmt.Sprintf("%s__DELETE", d.Name), d.Destructor.Params, true, d.Name, nil, d.Destructor.Body))
			}
		default:
			topLevel = append(topLevel, s)
		}
	}

	p.Main = buildRoutine("main", nil, true, "", nil, topLevel)
	return p
}

func buildRoutine(name string, params []ast.Param, isSub bool, meType string, returnSuffix interface{}, body []ast.Stmt) *Function {
	fn := &Function{Name: name, Params: params, IsSub: isSub, MeType: meType, ReturnSuffix: returnSuffix}
	b := &Builder{fn: fn, labelBlocks: make(map[string]*BasicBlock)}

	fn.Entry = b.newBlock(BlockEntry)
	fn.ExitNode = &BasicBlock{Kind: BlockExitBlock, Name: "exit"} // appended last, once its final index is known
	b.current = fn.Entry

	b.emitBody(body)

	addEdge(b.current, EdgeFallthrough, fn.ExitNode)
	fn.ExitNode.Index = len(fn.Blocks)
	fn.Blocks = append(fn.Blocks, fn.ExitNode)

	b.resolveRemainingPending()
	ComputeRPO(fn)
	return fn
}

func (b *Builder) newBlock(kind BlockKind) *BasicBlock {
	blk := &BasicBlock{Index: len(b.fn.Blocks), Kind: kind}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

func (b *Builder) internalf(format string, args ...interface{}) {
	panic(errors.Wrap(fmt.Errorf(format, args...), "cfg internal invariant violated"))
}

// resolveLabel is called the moment a LabelStmt's block is created,
// patching in any GOTO/GOSUB/ON GOTO/ON GOSUB edge that referenced it
// before it existed.
func (b *Builder) resolveLabel(name string, target *BasicBlock) {
	b.labelBlocks[name] = target
	remaining := b.pending[:0]
	for _, pg := range b.pending {
		if pg.label == name {
			addEdge(pg.from, pg.kind, target)
		} else {
			remaining = append(remaining, pg)
		}
	}
	b.pending = remaining
}

// resolveRemainingPending is the end-of-routine step for any jump whose
// label's block never appeared during this routine's body — internal/sema
// already verified every label exists somewhere in the whole program, so a
// target left unresolved here lives in a different routine than the jump
// (a cross-routine GOTO). Such a jump is left without an edge to its
// target rather than causing a panic; no later phase resolves it, since
// internal/ssa keeps no label table of its own.
func (b *Builder) resolveRemainingPending() {
	// Nothing to do here structurally. Kept as a named step so the
	// policy above is documented at the call site.
}

func (b *Builder) emitBody(stmts []ast.Stmt) {
	for _, s := range stmts {
		b.emitStmt(s)
	}
}

func (b *Builder) emitStmt(s ast.Stmt) {
	switch d := s.(type) {
	case *ast.LabelStmt:
		next := b.newBlock(BlockNormal)
		addEdge(b.current, EdgeFallthrough, next)
		b.current = next
		b.resolveLabel(d.Name, next)
	case *ast.IfStmt:
		b.emitIf(d)
	case *ast.WhileStmt:
		b.emitWhile(d)
	case *ast.DoStmt:
		b.emitDo(d)
	case *ast.RepeatStmt:
		b.emitRepeat(d)
	case *ast.ForStmt:
		b.emitFor(d)
	case *ast.ForEachStmt:
		b.emitForEach(d)
	case *ast.SelectCaseStmt:
		b.emitSelectCase(d)
	case *ast.MatchTypeStmt:
		b.emitMatchType(d)
	case *ast.TryCatchStmt:
		b.emitTry(d)
	case *ast.GotoStmt:
		b.emitGoto(d)
	case *ast.GosubStmt:
		b.emitGosub(d)
	case *ast.OnGotoStmt:
		b.emitOnGoto(d)
	case *ast.OnGosubStmt:
		b.emitOnGosub(d)
	case *ast.ExitStmt:
		b.emitExit(d)
	case *ast.EndStmt:
		b.current.Stmts = append(b.current.Stmts, d)
		addEdge(b.current, EdgeExit, b.fn.ExitNode)
		b.current = b.newBlock(BlockNormal)
	case *ast.ReturnStmt:
		b.emitReturn(d)
	case *ast.FunctionDeclStmt, *ast.SubDeclStmt, *ast.ClassDeclStmt, *ast.TypeDeclStmt:
		// declarations carry no control flow of their own; BuildProgram
		// already gave each one its own routine.
	default:
		b.current.Stmts = append(b.current.Stmts, s)
	}
}

// --- IF ---

func (b *Builder) emitIf(s *ast.IfStmt) {
	head := b.current
	head.Cond = s.Condition

	thenBlock := b.newBlock(BlockNormal)
	addEdge(head, EdgeBranchTrue, thenBlock)
	b.current = thenBlock
	b.emitBody(s.Then)
	thenEnd := b.current

	join := b.newBlock(BlockNormal)

	if len(s.Else) > 0 {
		elseBlock := b.newBlock(BlockNormal)
		addEdge(head, EdgeBranchFalse, elseBlock)
		b.current = elseBlock
		b.emitBody(s.Else)
		addEdge(b.current, EdgeFallthrough, join)
	} else {
		addEdge(head, EdgeBranchFalse, join)
	}

	addEdge(thenEnd, EdgeFallthrough, join)
	b.current = join
}

// --- WHILE ---

func (b *Builder) emitWhile(s *ast.WhileStmt) {
	header := b.newBlock(BlockLoopHeader)
	addEdge(b.current, EdgeFallthrough, header)
	header.Cond = s.Condition

	body := b.newBlock(BlockLoopBody)
	exit := b.newBlock(BlockLoopExit)
	addEdge(header, EdgeBranchTrue, body)
	addEdge(header, EdgeBranchFalse, exit)

	b.loopStack = append(b.loopStack, loopFrame{kind: ast.LoopWhile, label: s.Label, exit: exit})
	b.current = body
	b.emitBody(s.Body)
	addEdge(b.current, EdgeBackEdge, header)
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	b.current = exit
}

// --- DO/LOOP ---

func (b *Builder) emitDo(s *ast.DoStmt) {
	switch s.Kind {
	case ast.DoLoopPreWhile, ast.DoLoopPreUntil:
		header := b.newBlock(BlockLoopHeader)
		addEdge(b.current, EdgeFallthrough, header)
		header.Cond = s.Condition
		body := b.newBlock(BlockLoopBody)
		exit := b.newBlock(BlockLoopExit)
		if s.Kind == ast.DoLoopPreWhile {
			addEdge(header, EdgeBranchTrue, body)
			addEdge(header, EdgeBranchFalse, exit)
		} else {
			addEdge(header, EdgeBranchFalse, body)
			addEdge(header, EdgeBranchTrue, exit)
		}
		b.loopStack = append(b.loopStack, loopFrame{kind: ast.LoopDo, label: s.Label, exit: exit})
		b.current = body
		b.emitBody(s.Body)
		addEdge(b.current, EdgeBackEdge, header)
		b.loopStack = b.loopStack[:len(b.loopStack)-1]
		b.current = exit

	case ast.DoLoopPostWhile, ast.DoLoopPostUntil:
		body := b.newBlock(BlockLoopBody)
		addEdge(b.current, EdgeFallthrough, body)
		exit := b.newBlock(BlockLoopExit)
		b.loopStack = append(b.loopStack, loopFrame{kind: ast.LoopDo, label: s.Label, exit: exit})
		b.current = body
		b.emitBody(s.Body)
		tail := b.current
		tail.Cond = s.Condition
		if s.Kind == ast.DoLoopPostWhile {
			addEdge(tail, EdgeBranchTrue, body)
			addEdge(tail, EdgeBranchFalse, exit)
		} else {
			addEdge(tail, EdgeBranchFalse, body)
			addEdge(tail, EdgeBranchTrue, exit)
		}
		b.loopStack = b.loopStack[:len(b.loopStack)-1]
		b.current = exit

	default: // DoLoopForever
		body := b.newBlock(BlockLoopBody)
		addEdge(b.current, EdgeFallthrough, body)
		exit := b.newBlock(BlockLoopExit)
		b.loopStack = append(b.loopStack, loopFrame{kind: ast.LoopDo, label: s.Label, exit: exit})
		b.current = body
		b.emitBody(s.Body)
		addEdge(b.current, EdgeBackEdge, body)
		b.loopStack = b.loopStack[:len(b.loopStack)-1]
		b.current = exit
	}
}

// --- REPEAT/UNTIL ---

func (b *Builder) emitRepeat(s *ast.RepeatStmt) {
	body := b.newBlock(BlockLoopBody)
	addEdge(b.current, EdgeFallthrough, body)
	exit := b.newBlock(BlockLoopExit)

	b.loopStack = append(b.loopStack, loopFrame{kind: ast.LoopRepeat, label: s.Label, exit: exit})
	b.current = body
	b.emitBody(s.Body)
	tail := b.current
	tail.Cond = s.Condition
	addEdge(tail, EdgeBranchFalse, body) // condition false -> loop again
	addEdge(tail, EdgeBranchTrue, exit)  // condition true -> exit
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	b.current = exit
}

// --- FOR/NEXT ---

func (b *Builder) emitFor(s *ast.ForStmt) {
	init := b.newBlock(BlockNormal)
	addEdge(b.current, EdgeFallthrough, init)
	init.Stmts = append(init.Stmts, s) // carries Start/End/Step; ssa reads them back off the node

	header := b.newBlock(BlockLoopHeader)
	addEdge(init, EdgeFallthrough, header)
	header.Cond = s // internal/ssa recognizes a *ast.ForStmt Cond and re-checks the step direction itself on every header visit

	body := b.newBlock(BlockLoopBody)
	exit := b.newBlock(BlockLoopExit)
	addEdge(header, EdgeBranchTrue, body)
	addEdge(header, EdgeBranchFalse, exit)

	b.loopStack = append(b.loopStack, loopFrame{kind: ast.LoopFor, label: s.Label, exit: exit})
	b.current = body
	b.emitBody(s.Body)

	increment := b.newBlock(BlockLoopIncrement)
	increment.Stmts = append(increment.Stmts, s) // carries Var/Step back to ssa, same node as init/header
	addEdge(b.current, EdgeFallthrough, increment)
	addEdge(increment, EdgeBackEdge, header)
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	b.current = exit
}

func (b *Builder) emitForEach(s *ast.ForEachStmt) {
	init := b.newBlock(BlockNormal)
	addEdge(b.current, EdgeFallthrough, init)
	init.Stmts = append(init.Stmts, s)

	header := b.newBlock(BlockLoopHeader)
	addEdge(init, EdgeFallthrough, header)
	header.Cond = s // internal/ssa recognizes a *ast.ForEachStmt Cond and drives the iterator-has-next check itself

	body := b.newBlock(BlockLoopBody)
	exit := b.newBlock(BlockLoopExit)
	addEdge(header, EdgeBranchTrue, body)
	addEdge(header, EdgeBranchFalse, exit)

	b.loopStack = append(b.loopStack, loopFrame{kind: ast.LoopFor, label: s.Label, exit: exit})
	b.current = body
	b.emitBody(s.Body)
	addEdge(b.current, EdgeBackEdge, header)
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	b.current = exit
}

// --- SELECT CASE ---

func (b *Builder) emitSelectCase(s *ast.SelectCaseStmt) {
	join := &BasicBlock{Kind: BlockNormal} // appended once its position in creation order is settled below
	exit := join
	b.loopStack = append(b.loopStack, loopFrame{kind: ast.LoopSelect, exit: exit})

	test := b.newBlock(BlockCaseTest)
	addEdge(b.current, EdgeFallthrough, test)
	test.Cond = s.Selector

	for i := range s.Arms {
		arm := &s.Arms[i]
		matchBlock := b.newBlock(BlockCaseMatch)
		if arm.IsElse {
			addEdge(test, EdgeCaseMatch, matchBlock)
		} else {
			for _, v := range arm.Values {
				addValueEdge(test, EdgeCaseMatch, matchBlock, v)
			}
		}
		b.current = matchBlock
		b.emitBody(arm.Body)
		addEdge(b.current, EdgeFallthrough, exit)

		if i < len(s.Arms)-1 && !arm.IsElse {
			next := b.newBlock(BlockCaseTest)
			next.Cond = s.Selector
			addEdge(test, EdgeCaseNext, next)
			test = next
		}
	}
	addEdge(test, EdgeCaseNext, exit) // no arm matched: falls out of SELECT CASE

	exit.Index = len(b.fn.Blocks)
	b.fn.Blocks = append(b.fn.Blocks, exit)
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
	b.current = exit
}

// --- MATCH TYPE ---

// emitMatchType builds exactly the same case_test/case_match chain
// emitSelectCase does, so MATCH TYPE's tag dispatch is verified by the
// same reachability/RPO machinery as an ordinary SELECT CASE; the arm
// value internal/ssa reads back off each case_match edge is an
// *ast.IsTypeExpr wrapping the arm's declared type name, fusing the tag
// check and the narrowed load into one runtime-visible step.
func (b *Builder) emitMatchType(s *ast.MatchTypeStmt) {
	join := &BasicBlock{Kind: BlockNormal}
	b.loopStack = append(b.loopStack, loopFrame{kind: ast.LoopSelect, exit: join})

	test := b.newBlock(BlockCaseTest)
	addEdge(b.current, EdgeFallthrough, test)
	test.Cond = s.Value

	for i := range s.Arms {
		arm := &s.Arms[i]
		matchBlock := b.newBlock(BlockCaseMatch)
		if arm.IsElse {
			addEdge(test, EdgeCaseMatch, matchBlock)
		} else {
			check := &ast.IsTypeExpr{Value: s.Value, TypeName: arm.TypeName}
			addValueEdge(test, EdgeCaseMatch, matchBlock, check)
		}
		b.current = matchBlock
		if arm.BindName != "" {
			bind := &ast.LetStmt{Name: arm.BindName, Suffix: arm.BindSuffix, Value: s.Value, MatchBindType: arm.TypeName}
			b.current.Stmts = append(b.current.Stmts, bind)
		}
		b.emitBody(arm.Body)
		addEdge(b.current, EdgeFallthrough, join)

		if i < len(s.Arms)-1 && !arm.IsElse {
			next := b.newBlock(BlockCaseTest)
			next.Cond = s.Value
			addEdge(test, EdgeCaseNext, next)
			test = next
		}
	}
	addEdge(test, EdgeCaseNext, join) // no arm's type matched

	join.Index = len(b.fn.Blocks)
	b.fn.Blocks = append(b.fn.Blocks, join)
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
	b.current = join
}

// --- TRY/CATCH/FINALLY ---

func (b *Builder) emitTry(s *ast.TryCatchStmt) {
	tryBlock := b.newBlock(BlockTryBlock)
	addEdge(b.current, EdgeFallthrough, tryBlock)
	b.current = tryBlock
	b.emitBody(s.TryBlock)
	tryEnd := b.current

	finallyBlock := b.newBlock(BlockFinallyBlock)

	catchBlock := b.newBlock(BlockCatchBlock)
	addEdge(tryBlock, EdgeException, catchBlock)
	b.current = catchBlock
	b.emitBody(s.CatchBlock)
	addEdge(b.current, EdgeFinally, finallyBlock)

	addEdge(tryEnd, EdgeFinally, finallyBlock)

	b.current = finallyBlock
	b.emitBody(s.FinallyBlock)
}

// --- GOTO / GOSUB / ON GOTO / ON GOSUB ---

func (b *Builder) jumpToLabel(kind EdgeKind, label string) {
	if target, ok := b.labelBlocks[label]; ok {
		addEdge(b.current, kind, target)
	} else {
		b.pending = append(b.pending, pendingGoto{from: b.current, kind: kind, label: label})
	}
}

func (b *Builder) emitGoto(s *ast.GotoStmt) {
	b.jumpToLabel(EdgeJump, s.Label)
	b.current = b.newBlock(BlockNormal) // dead unless reached via a later label/jump
}

func (b *Builder) emitGosub(s *ast.GosubStmt) {
	b.jumpToLabel(EdgeGosubCall, s.Label)
	cont := b.newBlock(BlockNormal)
	b.gosubConts = append(b.gosubConts, cont)
	b.current = cont
}

func (b *Builder) emitOnGoto(s *ast.OnGotoStmt) {
	dispatch := b.current
	dispatch.Cond = s.Selector
	for _, label := range s.Labels {
		b.jumpToLabel(EdgeComputedBranch, label)
	}
	b.current = b.newBlock(BlockNormal)
}

func (b *Builder) emitOnGosub(s *ast.OnGosubStmt) {
	dispatch := b.current
	dispatch.Cond = s.Selector
	for _, label := range s.Labels {
		b.jumpToLabel(EdgeGosubCall, label)
	}
	cont := b.newBlock(BlockNormal)
	b.gosubConts = append(b.gosubConts, cont)
	b.current = cont
}

// emitReturn handles RETURN's two roles. Inside a FUNCTION/SUB body it is
// a normal function return (an exit edge); at top level it closes a
// GOSUB-reached subroutine, and since BASIC's call stack is dynamic
// rather than lexically scoped to one label's region, its successor set
// is the union of every GOSUB/ON GOSUB continuation block seen so far in
// this routine (an intentional over-approximation — see DESIGN.md).
func (b *Builder) emitReturn(s *ast.ReturnStmt) {
	b.current.Stmts = append(b.current.Stmts, s)
	if len(b.gosubConts) == 0 {
		addEdge(b.current, EdgeExit, b.fn.ExitNode)
	} else {
		for _, cont := range b.gosubConts {
			addEdge(b.current, EdgeGosubReturn, cont)
		}
	}
	b.current = b.newBlock(BlockNormal)
}

func (b *Builder) emitExit(s *ast.ExitStmt) {
	if s.Kind == ast.LoopFunction || s.Kind == ast.LoopSub {
		b.current.Stmts = append(b.current.Stmts, s)
		addEdge(b.current, EdgeExit, b.fn.ExitNode)
		b.current = b.newBlock(BlockNormal)
		return
	}
	for i := len(b.loopStack) - 1; i >= 0; i-- {
		frame := b.loopStack[i]
		if frame.kind == s.Kind && (s.Label == "" || frame.label == s.Label) {
			addEdge(b.current, EdgeLoopExit, frame.exit)
			b.current = b.newBlock(BlockNormal)
			return
		}
	}
	b.internalf("EXIT statement with no matching loop frame reached the CFG builder (sema should have rejected it)")
}

// ComputeRPO runs a DFS from fn.Entry, flags every reached block
// Reachable, and records the reverse-postorder numbering the SSA emitter
// consumes as its canonical emission order (spec §4.4/§9 decision #3:
// numbered once, never renumbered).
func ComputeRPO(fn *Function) {
	visited := make(map[*BasicBlock]bool)
	var post []*BasicBlock

	var visit func(*BasicBlock)
	visit = func(blk *BasicBlock) {
		if visited[blk] {
			return
		}
		visited[blk] = true
		blk.Reachable = true
		for _, e := range blk.Succs {
			visit(e.To)
		}
		post = append(post, blk)
	}
	visit(fn.Entry)

	rpo := make([]*BasicBlock, len(post))
	for i, blk := range post {
		rpo[len(post)-1-i] = blk
	}
	fn.RPO = rpo
}
