// Package symtab implements the scoped, uppercase-normalized symbol
// table described in spec §3.4: variables, functions/subs, classes, user
// types, arrays and labels, with the lookup order and name-mangling
// scheme the SSA emitter relies on.
package symtab

import (
	"fmt"
	"strings"

	"fasterbasic/internal/types"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Kind distinguishes the symbol variants of spec §3.4.
type Kind int

const (
	KindVariable Kind = iota
	KindFunction
	KindSub
	KindClass
	KindUserType
	KindArray
	KindLabel
)

// Symbol is the scoped-table's uniform record; only the fields relevant
// to Kind are populated.
type Symbol struct {
	Name   string // uppercase-normalized
	Kind   Kind
	Type   *types.Descriptor
	Global bool
	StackSlot int // >=0 if this variable has an assigned local slot

	// KindFunction / KindSub
	ParamTypes []*types.Descriptor
	ReturnType *types.Descriptor
	IsSub      bool

	// KindClass
	Class *types.ClassTable

	// KindUserType
	Fields []types.Field

	// KindArray
	Dimensions  int
	ElementType *types.Descriptor

	// KindLabel
	LineNumber int
	BlockIndex int
}

// Scope is one lexical level of the symbol table: current function
// parameters, current function locals, or the global scope. Lookup
// climbs Parent per spec §3.4's order (params -> locals -> SHARED ->
// globals -> functions -> classes -> user types); functions/classes/user
// types live in the dedicated top-level tables below rather than in the
// Scope chain, since they are always visible globally regardless of
// declaration order (two-pass resolution, spec §4.3).
type Scope struct {
	Parent  *Scope
	vars    map[string]*Symbol
	shared  map[string]bool // names explicitly re-exposed via SHARED
}

func newScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, vars: make(map[string]*Symbol), shared: make(map[string]bool)}
}

// Table is the whole-program symbol table: a chain of variable scopes
// plus global tables for functions, classes, and user types, which are
// visible everywhere once pass 1 registers them.
type Table struct {
	Global    *Scope
	current   *Scope
	functions map[string]*Symbol
	classes   map[string]*Symbol
	userTypes map[string]*Symbol
	labels    map[string]*Symbol
}

func New() *Table {
	g := newScope(nil)
	return &Table{
		Global:    g,
		current:   g,
		functions: make(map[string]*Symbol),
		classes:   make(map[string]*Symbol),
		userTypes: make(map[string]*Symbol),
		labels:    make(map[string]*Symbol),
	}
}

// Normalize uppercases a BASIC identifier for table lookup, per spec
// §3.4 (case-insensitive names, case-preserving lexemes elsewhere).
func Normalize(name string) string {
	return strings.ToUpper(name)
}

// EnterScope pushes a new local scope (a function/sub body, or a MATCH
// TYPE/FOR-EACH arm binding scope) and returns a function to leave it.
func (t *Table) EnterScope() func() {
	prev := t.current
	t.current = newScope(prev)
	return func() { t.current = prev }
}

// DeclareVariable adds a variable to the current scope. Returns false if
// a variable of the same name already exists in this exact scope
// (DuplicateDeclaration, spec §4.3).
func (t *Table) DeclareVariable(name string, typ *types.Descriptor, global bool) (*Symbol, bool) {
	key := Normalize(name)
	if _, exists := t.current.vars[key]; exists {
		return nil, false
	}
	sym := &Symbol{Name: key, Kind: KindVariable, Type: typ, Global: global, StackSlot: -1}
	t.current.vars[key] = sym
	return sym, true
}

// DeclareArray adds an array variable to the current scope (DIM a(10) AS
// INTEGER, or a LIST OF T binding). Its Type is the full ARRAY/LIST
// descriptor; ElementType and Dimensions are cached separately so
// internal/sema's array-access rewrite doesn't need to unwrap the
// descriptor every time.
func (t *Table) DeclareArray(name string, elem *types.Descriptor, dims int, global bool) (*Symbol, bool) {
	key := Normalize(name)
	if _, exists := t.current.vars[key]; exists {
		return nil, false
	}
	sym := &Symbol{
		Name: key, Kind: KindArray, Type: types.ArrayOf(elem), Global: global, StackSlot: -1,
		Dimensions: dims, ElementType: elem,
	}
	t.current.vars[key] = sym
	return sym, true
}

// MarkShared records that "name" (normally a global) is explicitly
// re-exposed inside the current function body via a SHARED statement.
func (t *Table) MarkShared(name string) {
	t.current.shared[Normalize(name)] = true
}

// LookupVariable implements spec §3.4's lookup order for a bare name
// reference: current function's parameters and locals (the innermost
// scopes) shadow SHARED references and global variables, which live in
// the outermost (Global) scope the chain always terminates at.
func (t *Table) LookupVariable(name string) (*Symbol, bool) {
	key := Normalize(name)
	for s := t.current; s != nil; s = s.Parent {
		if sym, ok := s.vars[key]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupGlobalVariable looks up "name" directly in the outermost (global)
// scope, ignoring any shadowing local of the same name. Used to validate
// a SHARED declaration actually names a global.
func (t *Table) LookupGlobalVariable(name string) (*Symbol, bool) {
	sym, ok := t.Global.vars[Normalize(name)]
	return sym, ok
}

func (t *Table) DeclareFunction(name string, params []*types.Descriptor, ret *types.Descriptor, isSub bool) (*Symbol, bool) {
	key := Normalize(name)
	if _, exists := t.functions[key]; exists {
		return nil, false
	}
	kind := KindFunction
	if isSub {
		kind = KindSub
	}
	sym := &Symbol{Name: key, Kind: kind, ParamTypes: params, ReturnType: ret, IsSub: isSub}
	t.functions[key] = sym
	return sym, true
}

func (t *Table) LookupFunction(name string) (*Symbol, bool) {
	sym, ok := t.functions[Normalize(name)]
	return sym, ok
}

func (t *Table) DeclareClass(ct *types.ClassTable) (*Symbol, bool) {
	key := Normalize(ct.Name)
	if _, exists := t.classes[key]; exists {
		return nil, false
	}
	sym := &Symbol{Name: key, Kind: KindClass, Class: ct, Type: types.ClassOf(ct.Name)}
	t.classes[key] = sym
	return sym, true
}

func (t *Table) LookupClass(name string) (*Symbol, bool) {
	sym, ok := t.classes[Normalize(name)]
	return sym, ok
}

func (t *Table) DeclareUserType(name string, fields []types.Field) (*Symbol, bool) {
	key := Normalize(name)
	if _, exists := t.userTypes[key]; exists {
		return nil, false
	}
	sym := &Symbol{Name: key, Kind: KindUserType, Fields: fields, Type: types.UserTypeOf(name)}
	t.userTypes[key] = sym
	return sym, true
}

func (t *Table) LookupUserType(name string) (*Symbol, bool) {
	sym, ok := t.userTypes[Normalize(name)]
	return sym, ok
}

func (t *Table) DeclareLabel(name string, lineNumber, blockIndex int) (*Symbol, bool) {
	key := Normalize(name)
	if _, exists := t.labels[key]; exists {
		return nil, false
	}
	sym := &Symbol{Name: key, Kind: KindLabel, LineNumber: lineNumber, BlockIndex: blockIndex}
	t.labels[key] = sym
	return sym, true
}

func (t *Table) LookupLabel(name string) (*Symbol, bool) {
	sym, ok := t.labels[Normalize(name)]
	return sym, ok
}

// FunctionNames returns every declared function/sub name in a stable,
// sorted order, used for deterministic diagnostic listings and verbose
// dumps.
func (t *Table) FunctionNames() []string {
	names := maps.Keys(t.functions)
	slices.Sort(names)
	return names
}

// --- Name mangling (spec §3.4) ---

func MangleVar(name string, typeTag string) string {
	if typeTag == "" {
		return fmt.Sprintf("var_%s", strings.ToLower(name))
	}
	return fmt.Sprintf("var_%s_%s", strings.ToLower(name), typeTag)
}

func MangleFunc(name string) string {
	return fmt.Sprintf("func_%s", strings.ToUpper(name))
}

func MangleSub(name string) string {
	return fmt.Sprintf("sub_%s", strings.ToUpper(name))
}

func MangleMethod(class, method string) string {
	return fmt.Sprintf("%s__%s", class, method)
}

func MangleVTable(class string) string {
	return fmt.Sprintf("vtable_%s", class)
}

func MangleArrayDesc(name string) string {
	return fmt.Sprintf("arr_%s_desc", strings.ToUpper(name))
}
