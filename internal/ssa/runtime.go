package ssa

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"fasterbasic/internal/samm"
)

// ptrT is the one pointer type every runtime call's "l" (length-prefixed
// pointer) parameters use; the runtime's actual layouts are opaque to
// the emitter (spec §6.3's "known signatures", not known struct shapes).
var ptrT = types.NewPointer(types.I8)

type runtimeSig struct {
	name   string
	ret    types.Type
	params []types.Type
}

// runtimeSignatures is the fixed, representative (not exhaustive) set of
// runtime symbols spec §6.3 names, grouped the way that section groups
// them. SAMM's own slice of this surface (samm.CallSurface) is merged in
// rather than duplicated, so internal/samm stays the one place that
// names the scope/allocation lifecycle calls.
var runtimeSignatures = []runtimeSig{
	{"print_int", types.Void, []types.Type{types.I32}},
	{"print_double", types.Void, []types.Type{types.Double}},
	{"print_string", types.Void, []types.Type{ptrT}},
	{"print_newline", types.Void, nil},
	{"print_tab", types.Void, nil},
	{"console_command", types.Void, []types.Type{ptrT, ptrT}},
	{"input_string", ptrT, nil},
	{"input_number", types.Double, nil},

	{"string_create", ptrT, []types.Type{ptrT, types.I32}},
	{"string_concat", ptrT, []types.Type{ptrT, ptrT}},
	{"string_compare", types.I32, []types.Type{ptrT, ptrT}},
	{"string_length", types.I32, []types.Type{ptrT}},
	{"string_mid", ptrT, []types.Type{ptrT, types.I32, types.I32}},
	{"string_left", ptrT, []types.Type{ptrT, types.I32}},
	{"string_right", ptrT, []types.Type{ptrT, types.I32}},
	{"string_slice", ptrT, []types.Type{ptrT, types.I32, types.I32}},
	{"string_retain", types.Void, []types.Type{ptrT}},
	{"string_release", types.Void, []types.Type{ptrT}},
	{"string_from_int", ptrT, []types.Type{types.I32}},
	{"string_from_double", ptrT, []types.Type{types.Double}},
	{"string_clone", ptrT, []types.Type{ptrT}},

	{"math_pow", types.Double, []types.Type{types.Double, types.Double}},

	{"array_create", ptrT, []types.Type{types.I32, ptrT, types.I32, types.I32}},
	{"array_resize", ptrT, []types.Type{ptrT, ptrT, types.I32}},
	{"array_bounds_check", types.Void, []types.Type{ptrT, types.I32}},
	{"array_element_addr", ptrT, []types.Type{ptrT, types.I32}},
	{"array_erase", types.Void, []types.Type{ptrT}},

	{"object_alloc", ptrT, []types.Type{types.I32, ptrT}},
	{"object_retain", types.Void, []types.Type{ptrT}},
	{"object_release", types.Void, []types.Type{ptrT}},
	{"object_field_by_name", ptrT, []types.Type{ptrT, ptrT}},
	{"object_invoke_method", ptrT, []types.Type{ptrT, ptrT}},

	{"basic_exception_push", ptrT, nil},
	{"basic_exception_pop", types.Void, nil},
	{"basic_throw", types.Void, []types.Type{types.I32, types.I32}},
	{"basic_err", types.I32, nil},
	{"basic_erl", types.I32, nil},
	{"setjmp", types.I32, []types.Type{ptrT}},

	{"list_new", ptrT, nil},
	{"list_retain", types.Void, []types.Type{ptrT}},
	{"list_release", types.Void, []types.Type{ptrT}},
	{"list_append_int", types.Void, []types.Type{ptrT, types.I32}},
	{"list_append_float", types.Void, []types.Type{ptrT, types.Double}},
	{"list_append_string", types.Void, []types.Type{ptrT, ptrT}},
	{"list_get_ptr", ptrT, []types.Type{ptrT, types.I32}},
	{"list_get_tag", types.I32, []types.Type{ptrT, types.I32}},
	{"list_length", types.I32, []types.Type{ptrT}},
	{"hashmap_new", ptrT, nil},
	{"hashmap_insert", types.Void, []types.Type{ptrT, ptrT, ptrT}},
	{"hashmap_lookup", ptrT, []types.Type{ptrT, ptrT}},

	{"marshall_udt_flat", types.Void, []types.Type{ptrT, ptrT}},
	{"marshall_udt_deep", types.Void, []types.Type{ptrT, ptrT}},
	{"unmarshall_udt_flat", types.Void, []types.Type{ptrT, ptrT}},
	{"unmarshall_udt_deep", types.Void, []types.Type{ptrT, ptrT}},

	{"worker_spawn", ptrT, []types.Type{ptrT, ptrT}},
	{"worker_await", ptrT, []types.Type{ptrT}},
}

func sammTypeOf(k samm.ValueKind) types.Type {
	switch k {
	case samm.KindInt32:
		return types.I32
	case samm.KindPointer:
		return ptrT
	default:
		return types.Void
	}
}

// declareRuntime declares every runtime symbol the emitter may call into
// as an external function (a Func with no blocks serializes as an LLVM
// `declare`, never a `define`) — these are never given bodies, since the
// C implementations live in the out-of-core-scope runtime (spec §1/§6.3).
func declareRuntime(m *ir.Module) map[string]*ir.Func {
	fns := make(map[string]*ir.Func, len(runtimeSignatures)+len(samm.CallSurface))
	for _, sig := range runtimeSignatures {
		fns[sig.name] = declareOne(m, sig.name, sig.ret, sig.params)
	}
	for _, sig := range samm.CallSurface {
		params := make([]types.Type, len(sig.Params))
		for i, p := range sig.Params {
			params[i] = sammTypeOf(p)
		}
		fns[sig.Name] = declareOne(m, sig.Name, sammTypeOf(sig.Ret), params)
	}
	return fns
}

func declareOne(m *ir.Module, name string, ret types.Type, params []types.Type) *ir.Func {
	ps := make([]*ir.Param, len(params))
	for i, pt := range params {
		ps[i] = ir.NewParam("", pt)
	}
	return m.NewFunc(name, ret, ps...)
}
