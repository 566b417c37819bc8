package ssa

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"fasterbasic/internal/lexer"
)

// basicType maps a BASIC type suffix onto the llir IR type the emitter
// uses for it, per spec §4.5's value representation table. Suffixless
// identifiers default to double, matching classic BASIC's numeric
// default.
func basicType(s lexer.Suffix) types.Type {
	switch s {
	case lexer.SuffixInt:
		return types.I32
	case lexer.SuffixLong:
		return types.I64
	case lexer.SuffixSingle:
		return types.Float
	case lexer.SuffixDouble:
		return types.Double
	case lexer.SuffixString:
		return ptrT
	case lexer.SuffixByte:
		return types.I8
	case lexer.SuffixShort:
		return types.I16
	default:
		return types.Double
	}
}

func isFloatType(t types.Type) bool {
	return t == types.Double || t == types.Float
}

// zeroValueOf returns a type's default BASIC value (0, 0.0, or a null
// pointer for a string/object reference never retained anywhere).
func zeroValueOf(t types.Type) value.Value {
	return zeroConstOf(t)
}

// zeroConstOf is zeroValueOf narrowed to constant.Constant, for the one
// caller (a module-level global's initializer) that needs a compile-time
// constant rather than any value.Value.
func zeroConstOf(t types.Type) constant.Constant {
	if t == ptrT {
		return constant.NewNull(t.(*types.PointerType))
	}
	if isFloatType(t) {
		return constant.NewFloat(t.(*types.FloatType), 0)
	}
	if it, ok := t.(*types.IntType); ok {
		return constant.NewInt(it, 0)
	}
	return constant.NewInt(types.I32, 0)
}
