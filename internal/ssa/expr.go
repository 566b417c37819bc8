package ssa

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"fasterbasic/internal/ast"
	"fasterbasic/internal/lexer"
)

func irIncoming(v value.Value, pred *ir.Block) *ir.Incoming {
	return ir.NewIncoming(v, pred)
}

// emitExpr is the expression-emission table of spec §4.5: every node
// kind maps onto one of a small number of shapes — a constant, a
// load/runtime-call, or (for IIF and the short-circuit boolean
// operators) a self-contained micro-CFG joined by a phi.
func (em *emitter) emitExpr(e ast.Expr) value.Value {
	switch x := e.(type) {
	case *ast.NumberExpr:
		if x.IsFloat {
			return constant.NewFloat(types.Double, x.FltVal)
		}
		return constant.NewInt(types.I32, x.IntVal)

	case *ast.StringLiteralExpr:
		return em.emitStringLiteral(x.Value)

	case *ast.VariableExpr:
		return em.loadVariable(x.Name, suffixOf(x.Suffix))

	case *ast.BinaryExpr:
		return em.emitBinary(x)

	case *ast.UnaryExpr:
		return em.emitUnary(x)

	case *ast.FunctionCallExpr:
		return em.emitCall(x.Name, x.Args)

	case *ast.RegistryFunctionExpr:
		return em.emitCall(x.Name, x.Args)

	case *ast.MethodCallExpr:
		return em.emitMethodCall(x)

	case *ast.SuperCallExpr:
		base := em.c.Types[em.fn.MeType].BaseName
		return em.emitCall(fmt.Sprintf("%s__%s", base, x.Method), x.Args)

	case *ast.MemberAccessExpr:
		addr := em.memberAddr(x)
		return em.cur.NewLoad(em.memberType(x), addr)

	case *ast.ArrayAccessExpr:
		return em.emitArrayLoad(x)

	case *ast.SliceExpr:
		target := em.emitExpr(x.Target)
		start := em.toInt32(em.emitExpr(x.Start))
		end := em.toInt32(em.emitExpr(x.End))
		return em.cur.NewCall(em.c.Runtime["string_slice"], target, start, end)

	case *ast.IIFExpr:
		return em.emitIIF(x)

	case *ast.NewExpr:
		return em.emitNew(x)

	case *ast.CreateExpr:
		size := constant.NewInt(types.I32, int64(objectHeaderBytes)+em.c.classByteSize(x.TypeName))
		rec := em.cur.NewCall(em.c.Runtime["object_alloc"], size, em.c.vtablePtr(x.TypeName))
		em.stampTag(rec, x.TypeName)
		em.track(rec, trackObject)
		return rec

	case *ast.MeExpr:
		return em.loadVariable("ME", lexer.SuffixNone)

	case *ast.NothingExpr:
		return constant.NewNull(ptrT)

	case *ast.IsTypeExpr:
		// A LIST OF ANY element carries its runtime type in the hidden tag
		// word list_get_tag reads back, not in an object header: NEW/CREATE's
		// typeTag hash only means anything for an actual allocated object.
		if vx, ok := x.Value.(*ast.VariableExpr); ok && em.listElemVars[vx.Name] {
			tag := em.cur.NewLoad(types.I32, em.listElemTag[vx.Name])
			return em.boolResult(em.cur.NewICmp(enum.IPredEQ, tag, listElementTag(x.TypeName)))
		}
		v := em.emitExpr(x.Value)
		tagConst := em.typeTag(x.TypeName)
		loaded := em.loadTag(v)
		return em.boolResult(em.cur.NewICmp(enum.IPredEQ, loaded, tagConst))

	case *ast.ListConstructorExpr:
		return em.emitListConstructor(x)

	case *ast.ArrayBinOpExpr:
		return em.emitArrayBinOp(x)

	default:
		internalf("unhandled expression kind %T reached the SSA emitter", e)
		return nil
	}
}

func (em *emitter) emitStringLiteral(s string) value.Value {
	g := em.c.internString(s)
	ptr := em.cur.NewBitCast(g, ptrT)
	length := constant.NewInt(types.I32, int64(len(s)))
	created := em.cur.NewCall(em.c.Runtime["string_create"], ptr, length)
	em.track(created, trackString)
	return created
}

// trackKind is the samm_track/samm_retain "kind" tag (spec §4.7): the
// Bloom filter and cleanup worker don't care which BASIC type produced
// an allocation, only whether it's a string or an object, so the tag is
// just enough to pick the matching release call at scope exit.
type trackKind int32

const (
	trackString trackKind = 0
	trackObject trackKind = 1
	trackArray  trackKind = 2
	trackList   trackKind = 3
)

// track registers a fresh allocation with the enclosing scope the way
// spec §4.7 describes: every NEW/string-literal/array-create site inside
// a scoped routine hands its result to samm_track so the scope's exit
// knows what to release, skipped entirely in routines NeedsScope ruled
// out since nothing here would ever be tracked.
func (em *emitter) track(v value.Value, kind trackKind) {
	if !em.needsScope {
		return
	}
	em.cur.NewCall(em.c.Runtime["samm_track"], v, constant.NewInt(types.I32, int64(kind)))
}

// loadVariable resolves a BASIC variable reference function-context
// first (a local/parameter slot), auto-vivifying a slot of the suffix's
// natural type the first time an identifier is seen without a prior DIM
// (BASIC's implicit-declaration default), per spec §4.5.
func (em *emitter) loadVariable(name string, suffix lexer.Suffix) value.Value {
	t := basicType(suffix)
	if cls := em.classOf[name]; cls != "" {
		t = ptrT
	} else if em.listOf[name] {
		t = ptrT
	}
	slot, isShared := em.sharedSlot(name, t)
	if isShared {
		return em.load(slot, true, t)
	}
	return em.load(slot, false, em.types[name])
}

func (em *emitter) allocLocal(name string, t types.Type) *ir.InstAlloca {
	entry := em.blockOf[em.fn.Entry]
	slot := entry.NewAlloca(t)
	entry.NewStore(zeroValueOf(t), slot)
	em.locals[name] = slot
	em.types[name] = t
	return slot
}

func (em *emitter) emitBinary(x *ast.BinaryExpr) value.Value {
	switch x.Operator {
	case "AND", "ANDALSO":
		return em.emitShortCircuit(x, true)
	case "OR", "ORELSE":
		return em.emitShortCircuit(x, false)
	}

	l := em.emitExpr(x.Left)
	r := em.emitExpr(x.Right)

	if l.Type() == ptrT && r.Type() == ptrT {
		return em.emitStringBinary(x.Operator, l, r)
	}

	if isFloatType(l.Type()) || isFloatType(r.Type()) {
		l, r = em.toDouble(l), em.toDouble(r)
		switch x.Operator {
		case "+":
			return em.cur.NewFAdd(l, r)
		case "-":
			return em.cur.NewFSub(l, r)
		case "*":
			return em.cur.NewFMul(l, r)
		case "/":
			return em.cur.NewFDiv(l, r)
		case "MOD":
			return em.cur.NewFRem(l, r)
		case "^":
			return em.cur.NewCall(em.c.Runtime["math_pow"], l, r)
		default:
			return em.boolResult(em.cur.NewFCmp(fpred(x.Operator), l, r))
		}
	}

	l, r = em.toInt32(l), em.toInt32(r)
	switch x.Operator {
	case "+":
		return em.cur.NewAdd(l, r)
	case "-":
		return em.cur.NewSub(l, r)
	case "*":
		return em.cur.NewMul(l, r)
	case "/":
		return em.cur.NewFDiv(em.toDouble(l), em.toDouble(r)) // integer / always promotes to double division, per spec §4.5
	case "\\":
		return em.cur.NewSDiv(l, r)
	case "MOD":
		return em.cur.NewSRem(l, r)
	case "^":
		return em.cur.NewCall(em.c.Runtime["math_pow"], em.toDouble(l), em.toDouble(r))
	default:
		return em.boolResult(em.cur.NewICmp(ipred(x.Operator), l, r))
	}
}

func (em *emitter) emitStringBinary(op string, l, r value.Value) value.Value {
	if op == "+" {
		return em.cur.NewCall(em.c.Runtime["string_concat"], l, r)
	}
	cmp := em.cur.NewCall(em.c.Runtime["string_compare"], l, r)
	zero := constant.NewInt(types.I32, 0)
	switch op {
	case "=":
		return em.boolResult(em.cur.NewICmp(enum.IPredEQ, cmp, zero))
	case "<>":
		return em.boolResult(em.cur.NewICmp(enum.IPredNE, cmp, zero))
	case "<":
		return em.boolResult(em.cur.NewICmp(enum.IPredSLT, cmp, zero))
	case ">":
		return em.boolResult(em.cur.NewICmp(enum.IPredSGT, cmp, zero))
	case "<=":
		return em.boolResult(em.cur.NewICmp(enum.IPredSLE, cmp, zero))
	default: // ">="
		return em.boolResult(em.cur.NewICmp(enum.IPredSGE, cmp, zero))
	}
}

// boolResult emits comparison results as an i32 (0/1), matching every
// other BASIC value's integer representation rather than a raw i1, per
// spec §4.5's "comparisons always produce an integer result".
func (em *emitter) boolResult(i1 value.Value) value.Value {
	return em.cur.NewZExt(i1, types.I32)
}

func ipred(op string) enum.IPred {
	switch op {
	case "=":
		return enum.IPredEQ
	case "<>":
		return enum.IPredNE
	case "<":
		return enum.IPredSLT
	case ">":
		return enum.IPredSGT
	case "<=":
		return enum.IPredSLE
	default: // ">="
		return enum.IPredSGE
	}
}

func fpred(op string) enum.FPred {
	switch op {
	case "=":
		return enum.FPredOEQ
	case "<>":
		return enum.FPredONE
	case "<":
		return enum.FPredOLT
	case ">":
		return enum.FPredOGT
	case "<=":
		return enum.FPredOLE
	default: // ">="
		return enum.FPredOGE
	}
}

// emitShortCircuit builds AND/OR's own tiny two-predecessor CFG (the
// right operand is only evaluated when the left doesn't already decide
// the result), joined by a phi — the same IIF-style shape spec §4.5
// prescribes rather than eager evaluation of both sides.
func (em *emitter) emitShortCircuit(x *ast.BinaryExpr, isAnd bool) value.Value {
	l := em.toBool(em.emitExpr(x.Left))
	lBlock := em.cur

	rhsBlock := em.irFn.NewBlock(em.c.temp() + ".rhs")
	joinBlock := em.irFn.NewBlock(em.c.temp() + ".join")

	if isAnd {
		lBlock.NewCondBr(l, rhsBlock, joinBlock)
	} else {
		lBlock.NewCondBr(l, joinBlock, rhsBlock)
	}

	em.cur = rhsBlock
	r := em.toBool(em.emitExpr(x.Right))
	rhsBlock = em.cur
	rhsBlock.NewBr(joinBlock)

	em.cur = joinBlock
	phi := joinBlock.NewPhi(irIncoming(l, lBlock), irIncoming(r, rhsBlock))
	return em.boolResult(phi)
}

func (em *emitter) emitUnary(x *ast.UnaryExpr) value.Value {
	v := em.emitExpr(x.Operand)
	switch x.Operator {
	case "-":
		if isFloatType(v.Type()) {
			return em.cur.NewFNeg(v)
		}
		return em.cur.NewSub(constant.NewInt(types.I32, 0), em.toInt32(v))
	case "NOT":
		b := em.toBool(v)
		flipped := em.cur.NewXor(b, constant.NewInt(types.I1, 1))
		return em.boolResult(flipped)
	default:
		return v
	}
}

func (em *emitter) emitCall(name string, args []ast.Expr) value.Value {
	if fn, ok := em.c.Funcs[name]; ok {
		vals := make([]value.Value, len(args))
		for i, a := range args {
			vals[i] = em.emitExpr(a)
		}
		return em.cur.NewCall(fn, vals...)
	}
	if fn, ok := em.c.Runtime[name]; ok {
		vals := make([]value.Value, len(args))
		for i, a := range args {
			vals[i] = em.emitExpr(a)
		}
		return em.cur.NewCall(fn, vals...)
	}
	internalf("call to unknown routine %q reached the SSA emitter (sema should have rejected it)", name)
	return nil
}

// emitMethodCall dispatches a method call through whichever of three
// tiers its receiver shape allows, from cheapest/most-specific to most
// general:
//  1. staticClassOf: the receiver's runtime type is provably identical to
//     its static type (ME, a fresh NEW(...)) — call the concrete
//     function directly, no indirection at all.
//  2. declaredClassOf + a known vtable slot: any DIM-declared class gives
//     a safe slot INDEX (single inheritance fixes it), even though the
//     actual object at runtime may be a subclass — load that object's own
//     vtable pointer and call through the indexed slot, spec §8 scenario
//     C's polymorphic case.
//  3. no declared class at all — fall back to the runtime's by-name
//     vtable walk.
func (em *emitter) emitMethodCall(x *ast.MethodCallExpr) value.Value {
	staticClass := em.staticClassOf(x.Receiver)
	recv := em.emitExpr(x.Receiver)
	args := em.emitArgs(x.Args)

	if staticClass != "" {
		if fn, ok := em.c.Funcs[fmt.Sprintf("%s__%s", staticClass, x.Method)]; ok {
			vals := append([]value.Value{recv}, args...)
			return em.cur.NewCall(fn, vals...)
		}
	}

	if className := em.declaredClassOf(x.Receiver); className != "" {
		if idx, ok := em.c.vtableSlotIndex(className, x.Method); ok {
			return em.emitVtableCall(recv, className, x.Method, idx, args)
		}
	}

	nameArg := em.emitStringLiteral(x.Method)
	return em.cur.NewCall(em.c.Runtime["object_invoke_method"], recv, nameArg)
}

// emitVtableCall loads recv's own vtable pointer (the object header's
// first field, stamped in by object_alloc) and calls through slot idx,
// rather than trusting className's compile-time resolveMethod result
// directly — the whole point of this tier is that recv's actual runtime
// class may override the slot with something declaredClassOf never saw.
// The prototype function resolveMethod finds is used only for its call
// signature, to bitcast the loaded slot back to a callable type.
func (em *emitter) emitVtableCall(recv value.Value, className, method string, idx int, args []value.Value) value.Value {
	vtablePtrAddr := em.cur.NewBitCast(recv, types.NewPointer(ptrT))
	vtable := em.cur.NewLoad(ptrT, vtablePtrAddr)
	slotAddr := em.cur.NewGetElementPtr(types.I8, vtable, constant.NewInt(types.I32, int64(idx*8)))
	slotPtr := em.cur.NewBitCast(slotAddr, types.NewPointer(ptrT))
	raw := em.cur.NewLoad(ptrT, slotPtr)

	proto, ok := em.c.resolveMethod(className, method)
	if !ok {
		internalf("no implementation of %q found on %q's vtable slot %d", method, className, idx)
	}
	fn := em.cur.NewBitCast(raw, types.NewPointer(proto.Sig))
	vals := append([]value.Value{recv}, args...)
	return em.cur.NewCall(fn, vals...)
}

// staticClassOf returns the receiver's known class name only when the
// receiver's runtime type is guaranteed identical to its static type:
// ME inside a method body, and a method called directly off a fresh
// NEW(...) expression. A named variable's DIM-declared type is not
// enough — spec §8 scenario C's whole point is that a base-typed
// variable can hold a derived instance, so dispatching on a variable's
// declared class would silently defeat virtual dispatch. Any other
// receiver shape falls through to emitMethodCall's vtable/by-name tiers.
func (em *emitter) staticClassOf(e ast.Expr) string {
	switch r := e.(type) {
	case *ast.MeExpr:
		return em.fn.MeType
	case *ast.NewExpr:
		return r.ClassName
	}
	return ""
}

// declaredClassOf returns the receiver's statically known class, widening
// staticClassOf with any DIM/parameter-declared class name. This is safe
// for resolving FIELD LAYOUT (memberAddr) and VTABLE SLOT INDEX
// (emitMethodCall) — both fixed by single-inheritance regardless of the
// object's actual runtime subclass — but must never be used to pick which
// concrete function executes; that stays staticClassOf's job alone.
func (em *emitter) declaredClassOf(e ast.Expr) string {
	if cls := em.staticClassOf(e); cls != "" {
		return cls
	}
	if v, ok := e.(*ast.VariableExpr); ok {
		return em.classOf[v.Name]
	}
	return ""
}

func (em *emitter) emitArgs(args []ast.Expr) []value.Value {
	vals := make([]value.Value, len(args))
	for i, a := range args {
		vals[i] = em.emitExpr(a)
	}
	return vals
}

// memberType resolves a member access's static storage type; field
// types aren't modeled per-field in cfg.RecordLayout (only field order
// is), so every member load/store uses the pool-wide double
// representation unless the field name carries a BASIC suffix
// character, matching spec §3's suffix-is-type convention.
func (em *emitter) memberType(x *ast.MemberAccessExpr) types.Type {
	return basicType(lexer.Suffix(suffixFromName(x.Field)))
}

func suffixFromName(name string) byte {
	if len(name) == 0 {
		return 0
	}
	switch name[len(name)-1] {
	case '%', '&', '!', '#', '$', '@', '^':
		return name[len(name)-1]
	}
	return 0
}

// memberAddr computes a field's real address from its real byte offset
// (fieldOffset, which accounts for every preceding field's own width)
// rather than treating the object as a uniform-stride array of elements
// all sized like the field actually being accessed — a class whose
// fields mix widths (e.g. an INTEGER after a DOUBLE) would otherwise
// land on the wrong byte for any field past the first differently-sized
// one. declaredClassOf is safe here (unlike staticClassOf) because
// single-inheritance field layout is a fixed prefix regardless of the
// object's actual runtime subclass.
func (em *emitter) memberAddr(x *ast.MemberAccessExpr) value.Value {
	className := em.declaredClassOf(x.Receiver)
	recv := em.emitExpr(x.Receiver)
	if className == "" {
		// No declared class known: ask the runtime to resolve the field by
		// name against the object's own layout descriptor.
		nameArg := em.emitStringLiteral(x.Field)
		return em.cur.NewCall(em.c.Runtime["object_field_by_name"], recv, nameArg)
	}
	offset, ok := em.c.fieldOffset(className, x.Field)
	if !ok {
		internalf("member %q not found on %q (sema should have rejected it)", x.Field, className)
	}
	base := em.fieldsBase(recv)
	addr := em.cur.NewGetElementPtr(types.I8, base, constant.NewInt(types.I32, int64(offset)))
	return em.cur.NewBitCast(addr, types.NewPointer(em.memberType(x)))
}

func (em *emitter) emitArrayLoad(x *ast.ArrayAccessExpr) value.Value {
	arr := em.emitExpr(x.Array)
	idx := em.toInt32(em.emitExpr(x.Indices[0]))
	em.cur.NewCall(em.c.Runtime["array_bounds_check"], arr, idx)
	addr := em.cur.NewCall(em.c.Runtime["array_element_addr"], arr, idx)
	return em.cur.NewLoad(types.Double, addr)
}

// emitIIF is the canonical micro-CFG-with-phi pattern spec §4.5 singles
// out: IIF(cond, t, f) lowers to the same then/else/join shape an IF
// statement would use, so the two constructs never diverge in how
// branches are verified, joined here by a phi instead of an assignment
// to a shared temp.
func (em *emitter) emitIIF(x *ast.IIFExpr) value.Value {
	cond := em.toBool(em.emitExpr(x.Cond))
	head := em.cur

	thenBlock := em.irFn.NewBlock(em.c.temp() + ".iif_then")
	elseBlock := em.irFn.NewBlock(em.c.temp() + ".iif_else")
	joinBlock := em.irFn.NewBlock(em.c.temp() + ".iif_join")
	head.NewCondBr(cond, thenBlock, elseBlock)

	em.cur = thenBlock
	tVal := em.emitExpr(x.Then)
	thenBlock = em.cur
	thenBlock.NewBr(joinBlock)

	em.cur = elseBlock
	fVal := em.emitExpr(x.Else)
	elseBlock = em.cur
	elseBlock.NewBr(joinBlock)

	em.cur = joinBlock
	if isFloatType(tVal.Type()) || isFloatType(fVal.Type()) {
		tVal, fVal = em.toDouble(tVal), em.toDouble(fVal)
	}
	return joinBlock.NewPhi(irIncoming(tVal, thenBlock), irIncoming(fVal, elseBlock))
}

// objectHeaderBytes is the fixed header every NEW/CREATE allocation
// carries ahead of its fields: an 8-byte vtable pointer (offset 0,
// object_alloc's own vtable argument stamped in by the runtime) followed
// by the 4-byte class tag word (offset objectTagOffset) IS TYPE/MATCH
// TYPE's loadTag reads, padded to 16 so every field after it starts on an
// 8-byte boundary. Field offsets computed by memberAddr are relative to
// fieldsBase, which skips this whole header.
const objectHeaderBytes = 16
const objectTagOffset = 8

// fieldsBase advances a raw object pointer past its 16-byte header, the one
// place that offset is applied so memberAddr and emitNew/CreateExpr's
// sizing can never drift apart.
func (em *emitter) fieldsBase(obj value.Value) value.Value {
	return em.cur.NewGetElementPtr(types.I8, obj, constant.NewInt(types.I32, objectHeaderBytes))
}

func (em *emitter) stampTag(obj value.Value, className string) {
	tagAddr := em.cur.NewGetElementPtr(types.I8, obj, constant.NewInt(types.I32, objectTagOffset))
	tagPtr := em.cur.NewBitCast(tagAddr, types.NewPointer(types.I32))
	em.cur.NewStore(em.typeTag(className), tagPtr)
}

// emitNew allocates an object (object_alloc, sized by the byte widths of
// the class's whole inherited field chain plus the 16-byte header) and
// invokes its constructor with ME
// bound to the fresh pointer, per spec §4.5's NEW lowering.
func (em *emitter) emitNew(x *ast.NewExpr) value.Value {
	size := constant.NewInt(types.I32, int64(objectHeaderBytes)+em.c.classByteSize(x.ClassName))
	vtable := em.c.vtablePtr(x.ClassName)
	obj := em.cur.NewCall(em.c.Runtime["object_alloc"], size, vtable)
	em.stampTag(obj, x.ClassName)
	em.track(obj, trackObject)

	ctorName := fmt.Sprintf("%s__NEW", x.ClassName)
	if ctor, ok := em.c.Funcs[ctorName]; ok {
		args := append([]value.Value{obj}, em.emitArgs(x.Args)...)
		em.cur.NewCall(ctor, args...)
	}
	return obj
}

func (em *emitter) typeTag(name string) value.Value {
	// A stable tag per class name, derived the same way spec §4.8 assumes
	// MATCH TYPE's cast-and-tag-check pair never desynchronizes: both read
	// from this one function.
	h := int64(0)
	for _, r := range name {
		h = h*31 + int64(r)
	}
	return constant.NewInt(types.I32, h&0x7fffffff)
}

func (em *emitter) loadTag(obj value.Value) value.Value {
	tagAddr := em.cur.NewGetElementPtr(types.I8, obj, constant.NewInt(types.I32, objectTagOffset))
	addr := em.cur.NewBitCast(tagAddr, types.NewPointer(types.I32))
	return em.cur.NewLoad(types.I32, addr)
}

// listElementTag returns the small fixed tag list_get_tag reports for a
// LIST element of the given declared type, in the same vocabulary
// list_append_int/float/string commit an element to at construction:
// integers tag 0, DOUBLE/SINGLE tag 1, STRING tag 2, anything else
// (a class instance) tag 3.
func listElementTag(typeName string) value.Value {
	switch strings.ToUpper(typeName) {
	case "DOUBLE", "SINGLE":
		return constant.NewInt(types.I32, 1)
	case "STRING":
		return constant.NewInt(types.I32, 2)
	case "", "INTEGER", "LONG", "BYTE", "SHORT":
		return constant.NewInt(types.I32, 0)
	default:
		return constant.NewInt(types.I32, 3)
	}
}

// loadListElement performs MATCH TYPE's fused typed load: addr is the raw
// element storage cell list_get_ptr returned, reinterpreted as a pointer
// to t and loaded, so CASE INTEGER n / CASE STRING s each read their arm's
// own narrowed type out of the same generic cell instead of the untouched
// address IsTypeExpr already tag-checked.
func (em *emitter) loadListElement(addr value.Value, t types.Type) value.Value {
	ptr := em.cur.NewBitCast(addr, types.NewPointer(t))
	return em.cur.NewLoad(t, ptr)
}

// emitListConstructor allocates LIST(...)'s own atom-chain handle via
// list_new, distinct from HASHMAP's allocator: spec §3.7 gives the two a
// different cleanup dispatch (a list frees its atom chain; a hashmap
// frees its bucket table), so samm_track needs to see them as different
// kinds even though both are "a growable container" at this call site.
func (em *emitter) emitListConstructor(x *ast.ListConstructorExpr) value.Value {
	list := em.cur.NewCall(em.c.Runtime["list_new"])
	em.track(list, trackList)
	for _, elem := range x.Elements {
		v := em.emitExpr(elem)
		switch {
		case v.Type() == ptrT:
			em.cur.NewCall(em.c.Runtime["list_append_string"], list, v)
		case isFloatType(v.Type()):
			em.cur.NewCall(em.c.Runtime["list_append_float"], list, em.toDouble(v))
		default:
			em.cur.NewCall(em.c.Runtime["list_append_int"], list, em.toInt32(v))
		}
	}
	return list
}

func (em *emitter) emitArrayBinOp(x *ast.ArrayBinOpExpr) value.Value {
	// Elementwise array arithmetic crosses into the runtime's array
	// surface rather than being unrolled inline, since the emitter here
	// doesn't carry the static element count: delegate the whole operation.
	l := em.emitExpr(x.Left)
	r := em.emitExpr(x.Right)
	return em.cur.NewCall(em.c.Runtime["array_create"], l, r, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
}
