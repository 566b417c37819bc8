// Package ssa walks a built CFG (internal/cfg's output) in the block
// order the builder already computed and emits SSA IR text over
// llir/llvm/ir: spec §4.5's expression/statement emission table, §4.6's
// setjmp/longjmp exception model, §4.7's SAMM prologue/epilogue
// injection, and §4.8's fused MATCH TYPE dispatch.
package ssa

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"fasterbasic/internal/cfg"
	"fasterbasic/internal/lexer"
)

// Context is the single mutable piece of state threaded explicitly
// through emission of one compilation unit — the module under
// construction, the runtime function table, and the interned string
// pool — rather than held in package-level or thread-local mutable
// state, so nothing about emission depends on being called from any one
// particular goroutine.
type Context struct {
	Module  *ir.Module
	Runtime map[string]*ir.Func
	Funcs   map[string]*ir.Func // user FUNCTION/SUB/method table, keyed by cfg.Function.Name
	Types   map[string]*cfg.RecordLayout
	strings map[string]*ir.Global
	globals map[string]*ir.Global // SHARED variables, one module-level slot per name
	vtables map[string]*ir.Global // one lazily built vtable global per class actually dispatched through
	tempSeq int
}

func NewContext() *Context {
	m := ir.NewModule()
	c := &Context{
		Module:  m,
		strings: make(map[string]*ir.Global),
		globals: make(map[string]*ir.Global),
		vtables: make(map[string]*ir.Global),
		Funcs:   make(map[string]*ir.Func),
	}
	c.Runtime = declareRuntime(m)
	return c
}

// globalSlot returns the module-level storage for a SHARED variable,
// creating it (zero-initialized) the first time any routine's SharedStmt
// or reference to it is seen. A name is given a fixed type by whichever
// use reaches it first, matching loadVariable's own auto-vivification
// rule for ordinary locals.
func (c *Context) globalSlot(name string, t types.Type) *ir.Global {
	if g, ok := c.globals[name]; ok {
		return g
	}
	g := c.Module.NewGlobalDef(fmt.Sprintf("shared.%s", name), zeroConstOf(t))
	c.globals[name] = g
	return g
}

// internalf reports a compiler-internal invariant violation: a shape
// sema should already have rejected reaching the emitter at all. Spec
// errors (bad BASIC source) never take this path.
func internalf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// fieldChain returns className's full field list in storage order: base
// fields first (single inheritance means they always occupy a fixed
// prefix regardless of which subclass the object actually is), then the
// class's own fields in declaration order.
func (c *Context) fieldChain(className string) []string {
	layout, ok := c.Types[className]
	if !ok {
		return nil
	}
	var chain []string
	if layout.BaseName != "" {
		chain = append(chain, c.fieldChain(layout.BaseName)...)
	}
	return append(chain, layout.Fields...)
}

// fieldByteSize returns how many bytes field's own storage occupies,
// going by its suffix character the same way memberType resolves a
// member access's load/store type (spec §3's suffix-is-type convention).
func fieldByteSize(field string) int64 {
	switch basicType(lexer.Suffix(suffixFromName(field))) {
	case types.I64, types.Double, ptrT:
		return 8
	case types.I32, types.Float:
		return 4
	case types.I16:
		return 2
	case types.I8:
		return 1
	default:
		return 8
	}
}

// fieldOffset returns field's real byte offset within className's object
// (relative to fieldsBase, i.e. past the header), computed from each
// preceding field's own byte size rather than assuming every field is the
// same width as the one being accessed.
func (c *Context) fieldOffset(className, field string) (int64, bool) {
	var offset int64
	for _, f := range c.fieldChain(className) {
		if f == field {
			return offset, true
		}
		offset += fieldByteSize(f)
	}
	return 0, false
}

// classByteSize returns the total field storage className's instances
// need (again relative to fieldsBase), the real per-field-width sizing
// NEW/CREATE's object_alloc call uses instead of a uniform 8-byte stride.
func (c *Context) classByteSize(className string) int64 {
	var size int64
	for _, f := range c.fieldChain(className) {
		size += fieldByteSize(f)
	}
	return size
}

// vtableSlots returns className's vtable layout: the base class's own
// slots first (in its own declared order), then any of the class's own
// methods/subs that aren't already an override of one of those slots
// appended after — the same prefix-stable, append-only algorithm
// internal/types.ClassTable builds its layout with, so a base-typed
// reference's vtable slot index for an inherited method never depends on
// which subclass it actually points to.
func (c *Context) vtableSlots(className string) []string {
	layout, ok := c.Types[className]
	if !ok {
		return nil
	}
	var slots []string
	if layout.BaseName != "" {
		slots = append(slots, c.vtableSlots(layout.BaseName)...)
	}
	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		seen[s] = true
	}
	for _, m := range layout.Methods {
		if !seen[m] {
			slots = append(slots, m)
			seen[m] = true
		}
	}
	return slots
}

// vtableSlotIndex returns method's fixed slot index in className's
// vtable layout (and any class derived from it, since overriding never
// changes a slot's index), or false if no class in the chain declares it.
func (c *Context) vtableSlotIndex(className, method string) (int, bool) {
	for i, s := range c.vtableSlots(className) {
		if s == method {
			return i, true
		}
	}
	return 0, false
}

// resolveMethod finds the concrete function that should occupy
// className's vtable slot for method: className's own override if it has
// one, otherwise the nearest ancestor's.
func (c *Context) resolveMethod(className, method string) (*ir.Func, bool) {
	for className != "" {
		if fn, ok := c.Funcs[fmt.Sprintf("%s__%s", className, method)]; ok {
			return fn, true
		}
		layout, ok := c.Types[className]
		if !ok {
			return nil, false
		}
		className = layout.BaseName
	}
	return nil, false
}

// vtableGlobal lazily builds and caches className's vtable as a
// module-level array of bitcast function pointers, one per vtableSlots
// entry, so a virtual call only ever needs an index into this array
// rather than a runtime by-name lookup.
func (c *Context) vtableGlobal(className string) *ir.Global {
	if g, ok := c.vtables[className]; ok {
		return g
	}
	slots := c.vtableSlots(className)
	elems := make([]constant.Constant, len(slots))
	for i, m := range slots {
		if fn, ok := c.resolveMethod(className, m); ok {
			elems[i] = constant.NewBitCast(fn, ptrT)
		} else {
			elems[i] = constant.NewNull(ptrT)
		}
	}
	arrType := types.NewArray(uint64(len(slots)), ptrT)
	init := constant.Constant(constant.NewZeroInitializer(arrType))
	if len(elems) > 0 {
		init = constant.NewArray(arrType, elems...)
	}
	g := c.Module.NewGlobalDef(fmt.Sprintf("vtable.%s", className), init)
	c.vtables[className] = g
	return g
}

// vtablePtr returns the i8* NEW/CREATE should hand object_alloc for
// className: a real pointer to its vtable global when it has any virtual
// slots at all, a null pointer otherwise (a plain TYPE, or a class with no
// methods, never needs one built).
func (c *Context) vtablePtr(className string) value.Value {
	if len(c.vtableSlots(className)) == 0 {
		return constant.NewNull(ptrT)
	}
	return constant.NewBitCast(c.vtableGlobal(className), ptrT)
}

// temp returns a fresh SSA temporary name; llir/llvm assigns the actual
// `%name` identifier, this only needs to be unique within the module so
// two unrelated functions never collide in -verbose dumps.
func (c *Context) temp() string {
	c.tempSeq++
	return fmt.Sprintf("t%d", c.tempSeq)
}

// internString registers s in the process-wide string pool (spec §5's
// "the string pool is process-wide and refcounted"), returning the
// existing global if the same literal text was already interned.
func (c *Context) internString(s string) *ir.Global {
	if g, ok := c.strings[s]; ok {
		return g
	}
	name := fmt.Sprintf("str.%d", len(c.strings))
	data := constant.NewCharArrayFromString(s + "\x00")
	g := c.Module.NewGlobalDef(name, data)
	c.strings[s] = g
	return g
}
