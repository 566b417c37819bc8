package ssa

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"fasterbasic/internal/ast"
	"fasterbasic/internal/cfg"
	"fasterbasic/internal/lexer"
	"fasterbasic/internal/samm"
)

// emitter carries the state for one routine's emission: the module-wide
// Context plus everything specific to the *cfg.Function currently being
// walked. A fresh emitter is built per routine rather than reused, so
// nothing here needs to be reset between functions.
type emitter struct {
	c *Context

	fn      *cfg.Function
	irFn    *ir.Func
	blockOf map[*cfg.BasicBlock]*ir.Block
	locals  map[string]*ir.InstAlloca
	types   map[string]types.Type
	classOf map[string]string // variable name -> known class, from a DIM ... AS ClassName
	listOf  map[string]bool   // variable name -> true for a LIST OF ANY-typed DIM

	needsScope bool
	tryBody    map[*cfg.BasicBlock]*ir.Block // a TRY block's statements, split off its setjmp prologue
	shared     map[string]bool               // names routed through a module-level SHARED global rather than a local alloca
	retSlot    *ir.InstAlloca                // RETURN/END's value, if this routine ever stores one; lazily allocated

	// listElemVars/listElemTag track FOR EACH loop variables bound from a
	// LIST's elements: the loop variable holds a raw element pointer whose
	// hidden tag word (populated by list_get_tag) lives in listElemTag,
	// so a MATCH TYPE selector built from one of these names can fetch the
	// tag instead of mistaking the pointer for an object header.
	listElemVars map[string]bool
	listElemTag  map[string]*ir.InstAlloca

	forSlots     map[*ast.ForStmt]forSlotPair
	forEachSlots map[*ast.ForEachStmt]forEachSlotSet

	cur     *ir.Block
	curKind cfg.BlockKind // the cfg.BasicBlock.Kind currently being emitted, so a FOR's init/increment marker statement knows which role it plays
}

// EmitProgram is the package's entry point: given a fully built CFG
// program (internal/cfg's output), produce the LLVM-IR-as-text module
// spec §4.5 describes. Main is emitted as a function named "main";
// every other routine is emitted under its internal/cfg name
// (FUNCTION/SUB name, or "ClassName__Method" for class members).
func EmitProgram(prog *cfg.Program) *ir.Module {
	c := NewContext()
	c.Types = prog.Types

	// Declare every user routine's signature before filling any body, so
	// a call to a FUNCTION/SUB/method defined later in the source (or a
	// constructor invoked from NEW before its own declaration site) still
	// resolves — BASIC has no forward-declaration requirement.
	declareFunc(c, "main", prog.Main)
	for _, fn := range prog.Functions {
		declareFunc(c, fn.Name, fn)
	}

	fillFunc(c, prog.Main)
	for _, fn := range prog.Functions {
		fillFunc(c, fn)
	}
	return c.Module
}

func declareFunc(c *Context, name string, fn *cfg.Function) {
	retType := types.Type(types.Void)
	if !fn.IsSub {
		retType = basicType(suffixOf(fn.ReturnSuffix))
	}
	params := make([]*ir.Param, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = ir.NewParam(p.Name, basicType(suffixOf(p.Suffix)))
	}
	c.Funcs[name] = c.Module.NewFunc(name, retType, params...)
}

func suffixOf(v interface{}) lexer.Suffix {
	if s, ok := v.(lexer.Suffix); ok {
		return s
	}
	return lexer.SuffixNone
}

func fillFunc(c *Context, fn *cfg.Function) {
	irFn := c.Funcs[fn.Name]

	em := &emitter{
		c:            c,
		fn:           fn,
		irFn:         irFn,
		blockOf:      make(map[*cfg.BasicBlock]*ir.Block, len(fn.Blocks)),
		locals:       make(map[string]*ir.InstAlloca),
		types:        make(map[string]types.Type),
		classOf:      make(map[string]string),
		listOf:       make(map[string]bool),
		tryBody:      make(map[*cfg.BasicBlock]*ir.Block),
		shared:       make(map[string]bool),
		forSlots:     make(map[*ast.ForStmt]forSlotPair),
		forEachSlots: make(map[*ast.ForEachStmt]forEachSlotSet),
		listElemVars: make(map[string]bool),
		listElemTag:  make(map[string]*ir.InstAlloca),
	}
	em.needsScope = samm.NeedsScope(fn) || fn.Name == "main" || fn.MeType != ""

	for _, b := range fn.Blocks {
		em.blockOf[b] = irFn.NewBlock(b.Name)
	}
	entry := em.blockOf[fn.Entry]
	em.cur = entry

	if em.needsScope {
		em.cur.NewCall(c.Runtime["samm_enter_scope"])
	}
	for i, p := range fn.Params {
		slot := em.cur.NewAlloca(basicType(suffixOf(p.Suffix)))
		em.cur.NewStore(irFn.Params[i], slot)
		em.locals[p.Name] = slot
		em.types[p.Name] = basicType(suffixOf(p.Suffix))
		if _, known := c.Types[p.TypeName]; known {
			em.classOf[p.Name] = p.TypeName
		}
	}
	if fn.MeType != "" {
		em.classOf["ME"] = fn.MeType
	}

	for _, b := range fn.RPO {
		em.emitBlockBody(b)
	}
	for _, b := range fn.RPO {
		em.emitTerminator(b)
	}

	// The exit block always falls to a single ret; needsScope routines
	// release their scope first (spec §4.7's automatic injection).
	exitBlock := em.blockOf[fn.ExitNode]
	if exitBlock.Term == nil {
		if em.needsScope {
			exitBlock.NewCall(c.Runtime["samm_exit_scope"])
		}
		if irFn.Sig.RetType == types.Void {
			exitBlock.NewRet(nil)
		} else if em.retSlot != nil {
			exitBlock.NewRet(exitBlock.NewLoad(irFn.Sig.RetType, em.retSlot))
		} else {
			exitBlock.NewRet(zeroValueOf(irFn.Sig.RetType))
		}
	}
}

// emitBlockBody emits one basic block's straight-line statements into
// its corresponding llir block, without yet emitting the terminator
// (done in a second pass so every block's llir.Block already exists
// when a branch target is resolved).
func (em *emitter) emitBlockBody(b *cfg.BasicBlock) {
	if b.Kind == cfg.BlockTryBlock {
		// The block's Stmts are the guarded body; they belong after the
		// setjmp/condbr pair emitTryEntry appends to the block itself, so
		// they're built into their own successor block here and spliced
		// in once the terminator pass runs.
		body := em.irFn.NewBlock(b.Name + ".body")
		em.tryBody[b] = body
		em.cur = body
		em.curKind = b.Kind
		for _, s := range b.Stmts {
			em.emitStmt(s)
		}
		return
	}

	em.cur = em.blockOf[b]
	em.curKind = b.Kind
	if b.Kind == cfg.BlockFinallyBlock {
		// FINALLY always runs, whether the TRY body completed normally or
		// a CATCH just ran, so the matching pop of basic_exception_push's
		// region belongs here rather than split across both paths.
		em.cur.NewCall(em.c.Runtime["basic_exception_pop"])
	}
	for _, s := range b.Stmts {
		em.emitStmt(s)
	}
}

// emitTerminator consults a block's Kind/Succs/Cond (the shape
// internal/cfg already computed) and emits the one terminator
// instruction every llir block needs.
func (em *emitter) emitTerminator(b *cfg.BasicBlock) {
	blk := em.blockOf[b]
	if blk.Term != nil {
		return // a statement (e.g. THROW, a TRY's setjmp branch) already terminated it
	}
	if b == em.fn.ExitNode {
		return // finished in fillFunc once every block body is emitted
	}
	// Cond (a SELECT CASE selector, an ON GOTO selector, a FOR header's own
	// node, ...) is evaluated fresh here, in the second pass, so em.cur must
	// be pointed back at this block rather than wherever the body pass
	// left it.
	em.cur = blk
	em.curKind = b.Kind
	if b.Kind == cfg.BlockTryBlock {
		em.emitTryEntry(b)
		return
	}

	switch len(b.Succs) {
	case 0:
		blk.NewUnreachable()
	case 1:
		blk.NewBr(em.blockOf[b.Succs[0].To])
	default:
		var tBlock, fBlock *ir.Block
		for _, e := range b.Succs {
			switch e.Kind {
			case cfg.EdgeBranchTrue:
				tBlock = em.blockOf[e.To]
			case cfg.EdgeBranchFalse:
				fBlock = em.blockOf[e.To]
			}
		}
		if tBlock != nil && fBlock != nil {
			switch forNode := b.Cond.(type) {
			case *ast.ForStmt:
				em.emitForHeader(b, forNode, tBlock, fBlock)
			case *ast.ForEachStmt:
				em.emitForEachHeader(b, forNode, tBlock, fBlock)
			default:
				cond := em.emitExpr(b.Cond)
				blk.NewCondBr(em.toBool(cond), tBlock, fBlock)
			}
			return
		}
		// ON GOTO/ON GOSUB's computed multi-way branch: a chain of
		// equality checks against the selector, in arm order, falling to
		// the last arm unconditionally (BASIC's ON GOTO past-range behavior
		// is a no-op continuation, modeled as falling through).
		em.emitComputedBranch(b)
	}
}

// emitComputedBranch lowers every multi-way dispatch block internal/cfg
// produces that isn't a plain true/false pair: ON GOTO/ON GOSUB compare
// the selector for equality against each Value in turn; SELECT CASE
// does the same; MATCH TYPE's edges instead carry an *ast.IsTypeExpr,
// whose fused tag-check-and-load is evaluated directly rather than
// compared against a selector, per spec §4.8 — so the cast and the tag
// check share a single evaluation and can never desynchronize. In every
// case the final edge is the unconditional catch-all (SELECT CASE/MATCH
// TYPE's "no arm matched" edge, or ON GOTO's past-range continuation).
func (em *emitter) emitComputedBranch(b *cfg.BasicBlock) {
	blk := em.blockOf[b]
	var selI value.Value
	needsSelector := false
	for _, e := range b.Succs {
		if _, isType := e.Value.(*ast.IsTypeExpr); e.Value != nil && !isType {
			needsSelector = true
		}
	}
	if needsSelector {
		selI = em.toInt32(em.emitExpr(b.Cond))
	}

	for i, e := range b.Succs {
		target := em.blockOf[e.To]
		if i == len(b.Succs)-1 {
			blk.NewBr(target)
			return
		}
		var cond value.Value
		if isType, ok := e.Value.(*ast.IsTypeExpr); ok {
			cond = em.toBool(em.emitExpr(isType))
		} else {
			val := em.toInt32(em.emitExpr(e.Value))
			cond = blk.NewICmp(enum.IPredEQ, selI, val)
		}
		next := em.irFn.NewBlock(fmt.Sprintf("%s.on%d", b.Name, i))
		blk.NewCondBr(cond, target, next)
		blk = next
	}
}

func (em *emitter) toBool(v value.Value) value.Value {
	if v.Type() == types.I1 {
		return v
	}
	return em.cur.NewICmp(enum.IPredNE, em.toInt32(v), constant.NewInt(types.I32, 0))
}

func (em *emitter) toInt32(v value.Value) value.Value {
	switch v.Type() {
	case types.I32:
		return v
	case types.I1:
		return em.cur.NewZExt(v, types.I32)
	}
	if isFloatType(v.Type()) {
		return em.cur.NewFPToSI(v, types.I32)
	}
	if it, ok := v.Type().(*types.IntType); ok && it.BitSize < 32 {
		return em.cur.NewSExt(v, types.I32)
	}
	return v
}

func (em *emitter) toDouble(v value.Value) value.Value {
	if v.Type() == types.Double {
		return v
	}
	if isFloatType(v.Type()) {
		return em.cur.NewFPExt(v, types.Double)
	}
	return em.cur.NewSIToFP(v, types.Double)
}
