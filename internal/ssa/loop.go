package ssa

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"fasterbasic/internal/ast"
	"fasterbasic/internal/cfg"
)

// forSlotPair is FOR's per-loop scratch storage: End and Step are
// evaluated once at init and read back at every header re-entry, per
// spec §4.4's "evaluate start/end/step to integer, store to slots".
type forSlotPair struct {
	end  *ir.InstAlloca
	step *ir.InstAlloca
}

func (em *emitter) forSlot(s *ast.ForStmt) forSlotPair {
	if p, ok := em.forSlots[s]; ok {
		return p
	}
	entry := em.blockOf[em.fn.Entry]
	p := forSlotPair{end: entry.NewAlloca(types.I32), step: entry.NewAlloca(types.I32)}
	em.forSlots[s] = p
	return p
}

// emitForMarker handles the *ast.ForStmt node's two appearances in a
// routine's block list: once in the init block (BlockNormal) and once in
// the increment block (BlockLoopIncrement), distinguished by em.curKind —
// internal/cfg gives both blocks the same node so the Start/End/Step/Var
// fields never have to be threaded through separately.
func (em *emitter) emitForMarker(s *ast.ForStmt) {
	if em.curKind == cfg.BlockLoopIncrement {
		em.emitForIncrement(s)
		return
	}
	slots := em.forSlot(s)
	start := em.toInt32(em.emitExpr(s.Start))
	em.storeForVar(s.Var, start)

	end := em.toInt32(em.emitExpr(s.End))
	em.cur.NewStore(end, slots.end)

	step := value.Value(constant.NewInt(types.I32, 1))
	if s.Step != nil {
		step = em.toInt32(em.emitExpr(s.Step))
	}
	em.cur.NewStore(step, slots.step)
}

func (em *emitter) emitForIncrement(s *ast.ForStmt) {
	slots := em.forSlot(s)
	step := em.cur.NewLoad(types.I32, slots.step)
	v := em.toInt32(em.loadVariable(s.Var, suffixOf(s.Suffix)))
	em.storeForVar(s.Var, em.cur.NewAdd(v, step))
}

// storeForVar stores into FOR's loop variable, always as I32 regardless
// of any declared suffix: spec §4.4 makes FOR integer arithmetic
// unconditionally, truncating a double expression at init rather than
// letting the loop variable itself go fractional.
func (em *emitter) storeForVar(name string, v value.Value) {
	slot, isShared := em.sharedSlot(name, types.I32)
	em.store(slot, isShared, v)
}

// emitForHeader re-derives the step's sign every time control reaches
// the header (spec §4.4: "step direction is re-checked per iteration to
// support negative step correctly") rather than caching a single
// direction flag at init, splitting into a descending/ascending
// comparison pair that both land on the same tBlock/fBlock internal/cfg
// already wired for this block.
func (em *emitter) emitForHeader(b *cfg.BasicBlock, s *ast.ForStmt, tBlock, fBlock *ir.Block) {
	blk := em.blockOf[b]
	slots := em.forSlot(s)

	v := em.toInt32(em.loadVariable(s.Var, suffixOf(s.Suffix)))
	end := blk.NewLoad(types.I32, slots.end)
	step := blk.NewLoad(types.I32, slots.step)
	negStep := blk.NewICmp(enum.IPredSLT, step, constant.NewInt(types.I32, 0))

	descBlock := em.irFn.NewBlock(b.Name + ".desc")
	ascBlock := em.irFn.NewBlock(b.Name + ".asc")
	blk.NewCondBr(negStep, descBlock, ascBlock)

	descCond := descBlock.NewICmp(enum.IPredSGE, v, end)
	descBlock.NewCondBr(descCond, tBlock, fBlock)

	ascCond := ascBlock.NewICmp(enum.IPredSLE, v, end)
	ascBlock.NewCondBr(ascCond, tBlock, fBlock)
}

// forEachSlotSet is FOR EACH's per-loop scratch storage: the collection
// handle, its length (read once via list_length), the next index to
// fetch, and the current element's runtime tag — the "hidden slot"
// spec §4.8 describes MATCH TYPE reading inside a FOR EACH body.
type forEachSlotSet struct {
	list   *ir.InstAlloca
	length *ir.InstAlloca
	idx    *ir.InstAlloca
	tag    *ir.InstAlloca
}

func (em *emitter) forEachSlot(s *ast.ForEachStmt) forEachSlotSet {
	if p, ok := em.forEachSlots[s]; ok {
		return p
	}
	entry := em.blockOf[em.fn.Entry]
	p := forEachSlotSet{
		list:   entry.NewAlloca(ptrT),
		length: entry.NewAlloca(types.I32),
		idx:    entry.NewAlloca(types.I32),
		tag:    entry.NewAlloca(types.I32),
	}
	em.forEachSlots[s] = p
	return p
}

// emitForEachMarker is ForEachStmt's one appearance, in the init block:
// evaluate the collection once, cache its length, and start the index
// at 0 — internal/cfg gives FOR EACH no separate increment block, since
// the index advance happens inside the header's own bind step below.
func (em *emitter) emitForEachMarker(s *ast.ForEachStmt) {
	slots := em.forEachSlot(s)
	list := em.emitExpr(s.Collection)
	em.cur.NewStore(list, slots.list)
	em.cur.NewStore(em.cur.NewCall(em.c.Runtime["list_length"], list), slots.length)
	em.cur.NewStore(constant.NewInt(types.I32, 0), slots.idx)
}

// emitForEachHeader is FOR EACH's iterator-has-next check: true while
// idx < length. The matching true edge doesn't go straight to the body —
// it first passes through a synthetic bind block that fetches the
// current element (by index, via list_get_ptr/list_get_tag), stashes its
// tag for a MATCH TYPE inside the body to read, advances idx for next
// time, and only then falls into the real body block.
func (em *emitter) emitForEachHeader(b *cfg.BasicBlock, s *ast.ForEachStmt, tBlock, fBlock *ir.Block) {
	blk := em.blockOf[b]
	slots := em.forEachSlot(s)

	idx := blk.NewLoad(types.I32, slots.idx)
	length := blk.NewLoad(types.I32, slots.length)
	cond := blk.NewICmp(enum.IPredSLT, idx, length)

	bind := em.irFn.NewBlock(b.Name + ".bind")
	blk.NewCondBr(cond, bind, fBlock)

	em.cur = bind
	list := bind.NewLoad(ptrT, slots.list)
	elem := bind.NewCall(em.c.Runtime["list_get_ptr"], list, idx)
	tag := bind.NewCall(em.c.Runtime["list_get_tag"], list, idx)
	bind.NewStore(tag, slots.tag)

	slot, isShared := em.sharedSlot(s.Var, ptrT)
	em.store(slot, isShared, elem)

	// s.Var now holds a raw LIST element pointer, not an object header: a
	// MATCH TYPE selector built from this name must read its type tag back
	// off slots.tag instead of treating it as an object and loading a
	// header word that isn't there.
	em.listElemVars[s.Var] = true
	em.listElemTag[s.Var] = slots.tag

	bind.NewStore(bind.NewAdd(idx, constant.NewInt(types.I32, 1)), slots.idx)
	bind.NewBr(tBlock)
}
