package ssa

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"fasterbasic/internal/ast"
	"fasterbasic/internal/lexer"
)

// emitStmt is the leaf-statement half of spec §4.5's emission table —
// every construct internal/cfg turned into control flow (IF, loops,
// SELECT CASE, TRY/CATCH, GOTO/GOSUB) never reaches here; only the
// straight-line statements a BasicBlock carries in its Stmts do.
func (em *emitter) emitStmt(s ast.Stmt) {
	switch d := s.(type) {
	case *ast.PrintStmt:
		em.emitPrint(d)
	case *ast.ConsoleStmt:
		em.emitConsole(d)
	case *ast.LetStmt:
		em.emitLet(d)
	case *ast.DimStmt:
		em.emitDim(d)
	case *ast.CallStmt:
		em.emitExpr(d.Callee)
	case *ast.ExpressionStmt:
		em.emitExpr(d.Expr)
	case *ast.ReturnStmt:
		em.emitReturnStmt(d)
	case *ast.EndStmt:
		em.emitEndStmt(d)
	case *ast.ExitStmt:
		// EXIT FUNCTION/SUB's value-less flavors: internal/cfg already
		// wired the edge to the exit node (or a loop's exit block); the
		// statement itself carries nothing to emit.
	case *ast.LocalStmt:
		em.emitLocal(d)
	case *ast.SharedStmt:
		em.emitShared(d)
	case *ast.IncStmt:
		em.bumpTarget(d.Target, d.Amount, 1)
	case *ast.DecStmt:
		em.bumpTarget(d.Target, d.Amount, -1)
	case *ast.SwapStmt:
		em.emitSwap(d)
	case *ast.ThrowStmt:
		em.emitThrow(d)
	case *ast.OptionStmt:
		// Compile-time directive (OPTION EXPLICIT/BASE); sema already
		// consulted it, nothing left to emit.
	case *ast.DataStmt:
		// DATA's values have no READ counterpart in this grammar yet; left
		// as a no-op rather than wiring a reader with nothing to drive it.
	case *ast.ForStmt:
		em.emitForMarker(d)
	case *ast.ForEachStmt:
		em.emitForEachMarker(d)
	default:
		internalf("unhandled statement kind %T reached the SSA emitter", s)
	}
}

func (em *emitter) emitPrint(s *ast.PrintStmt) {
	for _, a := range s.Args {
		v := em.emitExpr(a)
		switch {
		case v.Type() == ptrT:
			em.cur.NewCall(em.c.Runtime["print_string"], v)
		case isFloatType(v.Type()):
			em.cur.NewCall(em.c.Runtime["print_double"], em.toDouble(v))
		default:
			em.cur.NewCall(em.c.Runtime["print_int"], em.toInt32(v))
		}
	}
	if s.Newline {
		em.cur.NewCall(em.c.Runtime["print_newline"])
	}
}

// emitConsole lowers CONSOLE's various subcommands (CLS, LOCATE, COLOR,
// ...) onto one runtime entry point: the command name plus its argument
// list crosses into the runtime's own dispatch rather than giving each
// subcommand its own IR shape, since they share nothing but a name.
func (em *emitter) emitConsole(s *ast.ConsoleStmt) {
	cmd := em.emitStringLiteral(s.Command)
	// Built with the same list_append_* calls emitListConstructor uses —
	// this is a LIST, not a HASHMAP, so it gets list_new/trackList too.
	args := em.cur.NewCall(em.c.Runtime["list_new"])
	em.track(args, trackList)
	for _, a := range s.Args {
		v := em.emitExpr(a)
		switch {
		case v.Type() == ptrT:
			em.cur.NewCall(em.c.Runtime["list_append_string"], args, v)
		case isFloatType(v.Type()):
			em.cur.NewCall(em.c.Runtime["list_append_float"], args, em.toDouble(v))
		default:
			em.cur.NewCall(em.c.Runtime["list_append_int"], args, em.toInt32(v))
		}
	}
	em.cur.NewCall(em.c.Runtime["console_command"], cmd, args)
}

// emitLet handles LET's two shapes: a plain scalar binding (Target nil,
// Name/Suffix identify the variable) and an assignment through a member
// or array-index target, carrying the same string/object retain-before-
// release ordering either way so a self-assignment (x = x) never drops
// the only reference to its own right-hand side mid-store.
func (em *emitter) emitLet(s *ast.LetStmt) {
	if s.Target == nil && s.MatchBindType != "" {
		em.emitMatchBind(s)
		return
	}
	v := em.emitExpr(s.Value)
	if s.Target != nil {
		em.storeToExpr(s.Target, v)
		return
	}
	em.assignScalar(s.Name, suffixOf(s.Suffix), v)
}

// emitMatchBind lowers a MATCH TYPE arm's CASE <Type> <name> binding.
// When the selector is a FOR EACH LIST element, the arm's declared type
// says how to reinterpret that element's raw storage cell (the fused
// typed load IsTypeExpr's tag check already proved safe); otherwise the
// selector's own value is already the narrowed value (an ordinary
// class-typed MATCH TYPE over a variable, not a LIST element) and is
// bound as-is.
func (em *emitter) emitMatchBind(s *ast.LetStmt) {
	suffix := suffixOf(s.Suffix)
	_, knownClass := em.c.Types[s.MatchBindType]
	t := basicType(suffix)
	if knownClass {
		t = ptrT
	}

	var v value.Value
	if vx, ok := s.Value.(*ast.VariableExpr); ok && em.listElemVars[vx.Name] {
		addr := em.emitExpr(vx)
		v = em.loadListElement(addr, t)
	} else {
		v = em.emitExpr(s.Value)
	}

	if knownClass {
		em.classOf[s.Name] = s.MatchBindType
	}
	if _, ok := em.locals[s.Name]; !ok && !em.shared[s.Name] {
		em.allocLocal(s.Name, t)
	}
	em.assignScalar(s.Name, suffix, v)
}

// storeToExpr stores v into whatever l-value expr denotes; used by LET,
// INC/DEC, and SWAP, so all four share one assignment path regardless of
// which BASIC statement reached it.
func (em *emitter) storeToExpr(target ast.Expr, v value.Value) {
	switch t := target.(type) {
	case *ast.VariableExpr:
		em.assignScalar(t.Name, suffixOf(t.Suffix), v)
	case *ast.MemberAccessExpr:
		em.storeMember(t, v)
	case *ast.ArrayAccessExpr:
		em.storeArrayElement(t, v)
	default:
		internalf("unsupported assignment target %T", target)
	}
}

// assignScalar stores into a local or SHARED variable slot, applying the
// string/object refcount discipline spec §5 requires whenever the slot's
// type is a pointer: retain the incoming value, load what's there now,
// store the new value, then release the old one — in that order, so a
// self-assignment's retain happens before its own release.
func (em *emitter) assignScalar(name string, suffix lexer.Suffix, v value.Value) {
	t := basicType(suffix)
	if cls := em.classOf[name]; cls != "" {
		t = ptrT
	} else if em.listOf[name] {
		t = ptrT
	}
	slot, isShared := em.sharedSlot(name, t)

	if t != ptrT {
		em.store(slot, isShared, v)
		return
	}
	kind := refString
	switch {
	case em.classOf[name] != "":
		kind = refObject
	case em.listOf[name]:
		kind = refList
	}
	em.retain(v, kind)
	old := em.load(slot, isShared, t)
	em.store(slot, isShared, v)
	em.release(old, kind)
}

// sharedSlot resolves name to either its function-local alloca or its
// module-level SHARED global, auto-vivifying a local the way
// loadVariable/allocLocal already do for an identifier seen without a
// prior DIM.
func (em *emitter) sharedSlot(name string, t types.Type) (slotValue interface{}, isShared bool) {
	if em.shared[name] {
		return em.c.globalSlot(name, t), true
	}
	slot, ok := em.locals[name]
	if !ok {
		slot = em.allocLocal(name, t)
	}
	return slot, false
}

func (em *emitter) load(slot interface{}, isShared bool, t types.Type) value.Value {
	if isShared {
		return em.cur.NewLoad(t, slot.(*ir.Global))
	}
	return em.cur.NewLoad(t, slot.(*ir.InstAlloca))
}

func (em *emitter) store(slot interface{}, isShared bool, v value.Value) {
	if isShared {
		em.cur.NewStore(v, slot.(*ir.Global))
		return
	}
	em.cur.NewStore(v, slot.(*ir.InstAlloca))
}

// refKind picks which runtime's retain/release pair a pointer-typed slot
// uses: a string, a class instance, and a LIST handle each have their own
// cleanup dispatch in SAMM (spec §3.7), so assignScalar can't just reuse
// a single string_retain/release pair for all three.
type refKind int

const (
	refString refKind = iota
	refObject
	refList
)

func (em *emitter) retain(v value.Value, kind refKind) {
	switch kind {
	case refObject:
		em.cur.NewCall(em.c.Runtime["object_retain"], v)
	case refList:
		em.cur.NewCall(em.c.Runtime["list_retain"], v)
	default:
		em.cur.NewCall(em.c.Runtime["string_retain"], v)
	}
}

func (em *emitter) release(v value.Value, kind refKind) {
	switch kind {
	case refObject:
		em.cur.NewCall(em.c.Runtime["object_release"], v)
	case refList:
		em.cur.NewCall(em.c.Runtime["list_release"], v)
	default:
		em.cur.NewCall(em.c.Runtime["string_release"], v)
	}
}

func (em *emitter) storeMember(x *ast.MemberAccessExpr, v value.Value) {
	addr := em.memberAddr(x)
	ft := em.memberType(x)
	if ft != ptrT {
		em.cur.NewStore(em.coerce(v, ft), addr)
		return
	}
	old := em.cur.NewLoad(ft, addr)
	em.cur.NewCall(em.c.Runtime["string_retain"], v)
	em.cur.NewStore(v, addr)
	em.cur.NewCall(em.c.Runtime["string_release"], old)
}

func (em *emitter) storeArrayElement(x *ast.ArrayAccessExpr, v value.Value) {
	arr := em.emitExpr(x.Array)
	idx := em.toInt32(em.emitExpr(x.Indices[0]))
	em.cur.NewCall(em.c.Runtime["array_bounds_check"], arr, idx)
	addr := em.cur.NewCall(em.c.Runtime["array_element_addr"], arr, idx)
	em.cur.NewStore(em.toDouble(v), addr)
}

// coerce converts v to t when it isn't already, covering the same int/
// float promotions toInt32/toDouble already handle for expressions.
func (em *emitter) coerce(v value.Value, t types.Type) value.Value {
	if v.Type() == t {
		return v
	}
	if t == types.Double || t == types.Float {
		return em.toDouble(v)
	}
	return em.toInt32(v)
}

// bumpTarget implements both INC and DEC: read the target, add (or
// subtract) the amount (default 1), store the result back through the
// same l-value path LET uses.
func (em *emitter) bumpTarget(target, amount ast.Expr, sign int64) {
	cur := em.emitExpr(target)
	var amt value.Value
	if amount != nil {
		amt = em.emitExpr(amount)
	} else {
		amt = constant.NewInt(types.I32, 1)
	}

	var next value.Value
	if isFloatType(cur.Type()) || isFloatType(amt.Type()) {
		d := em.toDouble(amt)
		if sign < 0 {
			next = em.cur.NewFSub(em.toDouble(cur), d)
		} else {
			next = em.cur.NewFAdd(em.toDouble(cur), d)
		}
	} else {
		i := em.toInt32(amt)
		if sign < 0 {
			next = em.cur.NewSub(em.toInt32(cur), i)
		} else {
			next = em.cur.NewAdd(em.toInt32(cur), i)
		}
	}
	em.storeToExpr(target, next)
}

// emitSwap exchanges two l-values' contents through the same retain/
// release-carrying store path every other assignment uses: each side's
// store already balances its own retain against the other side's
// release, so the pair together never touches either value's refcount.
func (em *emitter) emitSwap(s *ast.SwapStmt) {
	l := em.emitExpr(s.Left)
	r := em.emitExpr(s.Right)
	em.storeToExpr(s.Left, r)
	em.storeToExpr(s.Right, l)
}

func (em *emitter) emitThrow(s *ast.ThrowStmt) {
	code := em.toInt32(em.emitExpr(s.Code))
	line := value.Value(constant.NewInt(types.I32, 0))
	if s.Line != nil {
		line = em.toInt32(em.emitExpr(s.Line))
	}
	em.cur.NewCall(em.c.Runtime["basic_throw"], code, line)
}

// emitLocal pre-binds LOCAL's names to fresh slots (suffixless, BASIC's
// double default) so a read before any assignment sees the zero value
// rather than triggering loadVariable's own auto-vivification with a
// possibly-wrong inferred type.
func (em *emitter) emitLocal(s *ast.LocalStmt) {
	for _, name := range s.Names {
		if _, ok := em.locals[name]; !ok {
			em.allocLocal(name, types.Double)
		}
	}
}

// emitShared marks each name as routed through a module-level global for
// the rest of this routine (loadVariable/assignScalar consult em.shared),
// giving every routine that declares the same SHARED name a view onto
// the same storage.
func (em *emitter) emitShared(s *ast.SharedStmt) {
	for _, name := range s.Names {
		em.shared[name] = true
	}
}

// emitReturnStmt stores RETURN's value (if any) into the routine's
// return slot; the control-transfer edge to ExitNode or a GOSUB
// continuation was already built by internal/cfg, so this only needs to
// make the value available for fillFunc's final load-and-ret.
func (em *emitter) emitReturnStmt(s *ast.ReturnStmt) {
	if s.Value == nil {
		return
	}
	em.storeReturn(em.emitExpr(s.Value))
}

// emitEndStmt treats END's optional exit code the same way RETURN treats
// its value: main's eventual `ret` becomes the process's exit status.
func (em *emitter) emitEndStmt(s *ast.EndStmt) {
	if s.Code == nil {
		return
	}
	em.storeReturn(em.emitExpr(s.Code))
}

// storeReturn lazily allocates the one return-value slot a non-void
// routine needs, in its entry block like every other local, and stores
// into it; fillFunc's exit-block pass loads it back for the final ret.
func (em *emitter) storeReturn(v value.Value) {
	if em.irFn.Sig.RetType == types.Void {
		return
	}
	if em.retSlot == nil {
		entry := em.blockOf[em.fn.Entry]
		em.retSlot = entry.NewAlloca(em.irFn.Sig.RetType)
		entry.NewStore(zeroValueOf(em.irFn.Sig.RetType), em.retSlot)
	}
	em.cur.NewStore(em.coerce(v, em.irFn.Sig.RetType), em.retSlot)
}
