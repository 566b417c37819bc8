package ssa

import (
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"fasterbasic/internal/ast"
	"fasterbasic/internal/lexer"
)

// isListOfAnyType reports whether a DimDecl's TypeName came from the
// parser's "LIST OF " + elem construction (consumeTypeName), i.e. a bare
// DIM ... AS LIST OF ANY rather than a sized array or a class.
func isListOfAnyType(typeName string) bool {
	return strings.HasPrefix(typeName, "LIST OF ")
}

// arrayElemKind tags array_create's element shape, mirroring trackKind's
// small fixed vocabulary rather than carrying the full IR type across
// the runtime boundary.
type arrayElemKind int32

const (
	elemInt    arrayElemKind = 0
	elemDouble arrayElemKind = 1
	elemString arrayElemKind = 2
	elemObject arrayElemKind = 3
)

func arrayElemOf(suffix lexer.Suffix, typeName string, knownClass bool) (arrayElemKind, int64) {
	switch {
	case knownClass:
		return elemObject, 8
	case suffix == lexer.SuffixString:
		return elemString, 8
	case basicType(suffix) == types.Double || basicType(suffix) == types.Float:
		return elemDouble, 8
	default:
		return elemInt, 4
	}
}

// emitDim lowers one DIM/REDIM statement: each declared name is either a
// plain scalar (auto-vivified the same slot loadVariable would produce,
// optionally initialized) or an array, sized by its Dimensions.
func (em *emitter) emitDim(s *ast.DimStmt) {
	for _, d := range s.Decls {
		em.emitDimDecl(d, s.Redim && s.Preserve)
	}
}

func (em *emitter) emitDimDecl(d ast.DimDecl, preserve bool) {
	suffix := suffixOf(d.Suffix)
	_, knownClass := em.c.Types[d.TypeName]

	if len(d.Dimensions) > 0 {
		arr := em.createArray(d.Dimensions, suffix, d.TypeName, knownClass, preserve, d.Name)
		slot, isShared := em.sharedSlot(d.Name, ptrT)
		em.store(slot, isShared, arr)
		return
	}

	t := basicType(suffix)
	isList := isListOfAnyType(d.TypeName)
	if knownClass {
		t = ptrT
		em.classOf[d.Name] = d.TypeName
	} else if isList {
		t = ptrT
		em.listOf[d.Name] = true
	}
	if _, ok := em.locals[d.Name]; !ok && !em.shared[d.Name] {
		em.allocLocal(d.Name, t)
	}
	if d.Init != nil {
		em.assignScalar(d.Name, suffix, em.coerce(em.emitExpr(d.Init), t))
	} else if isList {
		// A bare DIM ... AS LIST OF ANY still needs a live handle: FOR EACH
		// and list_append_* callers expect a real list, not a null pointer.
		list := em.cur.NewCall(em.c.Runtime["list_new"])
		em.track(list, trackList)
		em.assignScalar(d.Name, suffix, list)
	}
}

// createArray builds the dims-array argument array_create expects (one
// i32 per dimension, bounds-checked bottom layer owned by the runtime,
// not this emitter) and either allocates a fresh array or, for REDIM
// PRESERVE, asks the runtime to grow the existing one in place.
func (em *emitter) createArray(dims []ast.Expr, suffix lexer.Suffix, typeName string, knownClass, preserve bool, name string) value.Value {
	n := len(dims)
	dimsArrType := types.NewArray(uint64(n), types.I32)
	dimsSlot := em.cur.NewAlloca(dimsArrType)
	for i, dexpr := range dims {
		v := em.toInt32(em.emitExpr(dexpr))
		addr := em.cur.NewGetElementPtr(dimsArrType, dimsSlot,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(i)))
		em.cur.NewStore(v, addr)
	}
	dimsPtr := em.cur.NewBitCast(dimsSlot, ptrT)
	kind, size := arrayElemOf(suffix, typeName, knownClass)

	var arr value.Value
	if preserve {
		old := em.loadVariable(name, suffix)
		arr = em.cur.NewCall(em.c.Runtime["array_resize"], old, dimsPtr, constant.NewInt(types.I32, int64(n)))
	} else {
		arr = em.cur.NewCall(em.c.Runtime["array_create"],
			constant.NewInt(types.I32, int64(n)), dimsPtr,
			constant.NewInt(types.I32, int64(kind)), constant.NewInt(types.I32, size))
	}
	em.track(arr, trackArray)
	return arr
}
