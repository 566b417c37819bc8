package samm

// ValueKind tags a runtime call's parameter/return shape in terms
// internal/ssa can map onto its own concrete IR types, without this
// package importing an IR library itself — SAMM's contract with the
// emitter is "these calls exist with these shapes", not how any one
// backend represents a pointer.
type ValueKind byte

const (
	KindVoid ValueKind = iota
	KindInt32
	KindPointer
)

// Signature describes one runtime entry point's shape.
type Signature struct {
	Name   string
	Ret    ValueKind
	Params []ValueKind
}

// CallSurface is SAMM's slice of the full runtime symbol table (spec
// §4.7): scope/allocation lifecycle calls the IR emitter issues around a
// routine's body and every NEW/DIM site. These are declarations only —
// the C implementations live in the out-of-scope runtime (§1).
var CallSurface = []Signature{
	{"samm_init", KindVoid, nil},
	{"samm_shutdown", KindVoid, nil},
	{"samm_enter_scope", KindVoid, nil},
	{"samm_exit_scope", KindVoid, nil},
	{"samm_alloc_object", KindPointer, []ValueKind{KindInt32, KindPointer}},
	{"samm_track", KindVoid, []ValueKind{KindPointer, KindInt32}},
	{"samm_retain", KindVoid, []ValueKind{KindPointer, KindInt32}},
	{"samm_retain_parent", KindVoid, []ValueKind{KindPointer}},
	{"samm_is_probably_freed", KindInt32, []ValueKind{KindPointer}},
	{"samm_wait", KindVoid, nil},
}
