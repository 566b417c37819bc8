package ssa

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"fasterbasic/internal/cfg"
)

// emitTryEntry lowers a BlockTryBlock's terminator: spec §4.6's one hard
// ordering invariant is that setjmp is called directly and the conditional
// branch on its return value follows it in the same block. The only
// instruction between them is the icmp that turns setjmp's i32 result into
// the branch's i1 condition; no call is ever inserted between them (no
// helper call wraps the pair), so a longjmp from deep in the try body
// lands exactly where this function left off.
//
// basic_exception_push opens the region (giving the runtime a handle to
// long-jump back to); setjmp's result distinguishes the two ways
// execution reaches this point: 0 on the direct fall-through into the
// block, nonzero after a THROW unwound back to it.
func (em *emitter) emitTryEntry(b *cfg.BasicBlock) {
	blk := em.blockOf[b]
	bodyBlk := em.tryBody[b]

	var exceptionTarget, normalTarget *cfg.BasicBlock
	for _, e := range b.Succs {
		if e.Kind == cfg.EdgeException {
			exceptionTarget = e.To
		} else if normalTarget == nil {
			normalTarget = e.To
		}
	}

	buf := blk.NewCall(em.c.Runtime["basic_exception_push"])
	rc := blk.NewCall(em.c.Runtime["setjmp"], buf)
	cond := blk.NewICmp(enum.IPredNE, rc, constant.NewInt(types.I32, 0))
	blk.NewCondBr(cond, em.blockOf[exceptionTarget], bodyBlk)

	if bodyBlk.Term == nil {
		bodyBlk.NewBr(em.blockOf[normalTarget])
	}
}
