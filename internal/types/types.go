// Package types implements the FasterBASIC type lattice: the base-type
// enumeration, the {base, object_type_name?, element_type?} descriptor
// triple, the numeric-widening rules, and the class/vtable layout tables
// consumed by internal/sema and internal/ssa.
package types

import "fmt"

// Base is the base-type tag of a type descriptor.
type Base int

const (
	Byte Base = iota
	UByte
	Short
	UShort
	Integer
	UInteger
	Long
	ULong
	Single
	Double
	StringT
	UserDefined
	ClassInstance
	Object
	ArrayDesc
	Void
	Unknown // LIST OF ANY, heterogeneous
)

func (b Base) String() string {
	switch b {
	case Byte:
		return "BYTE"
	case UByte:
		return "UBYTE"
	case Short:
		return "SHORT"
	case UShort:
		return "USHORT"
	case Integer:
		return "INTEGER"
	case UInteger:
		return "UINTEGER"
	case Long:
		return "LONG"
	case ULong:
		return "ULONG"
	case Single:
		return "SINGLE"
	case Double:
		return "DOUBLE"
	case StringT:
		return "STRING"
	case UserDefined:
		return "USER_DEFINED"
	case ClassInstance:
		return "CLASS_INSTANCE"
	case Object:
		return "OBJECT"
	case ArrayDesc:
		return "ARRAY_DESC"
	case Void:
		return "VOID"
	case Unknown:
		return "ANY"
	}
	return "?"
}

// Size is the in-memory size in bytes of scalar base types; 0 for
// reference/pointer-carrying bases (callers use pointer width instead).
func (b Base) Size() int {
	switch b {
	case Byte, UByte:
		return 1
	case Short, UShort:
		return 2
	case Integer, UInteger, Single:
		return 4
	case Long, ULong, Double:
		return 8
	default:
		return 8 // pointer-sized
	}
}

func (b Base) IsNumeric() bool {
	switch b {
	case Byte, UByte, Short, UShort, Integer, UInteger, Long, ULong, Single, Double:
		return true
	}
	return false
}

func (b Base) IsFloat() bool {
	return b == Single || b == Double
}

func (b Base) IsSigned() bool {
	switch b {
	case Byte, Short, Integer, Long, Single, Double:
		return true
	}
	return false
}

func (b Base) IsUnsigned() bool {
	switch b {
	case UByte, UShort, UInteger, ULong:
		return true
	}
	return false
}

// Descriptor is the {base_type, object_type_name?, element_type?} triple
// of spec §3.3.
type Descriptor struct {
	BaseType       Base
	ObjectTypeName string      // class/user-type name, for UserDefined/ClassInstance/Object
	ElementType    *Descriptor // element type for LIST/ARRAY, nil otherwise
	IsList         bool        // LIST OF T vs ARRAY OF T (both use ElementType)
	KeyType        *Descriptor // HASHMAP key type
	ValueType      *Descriptor // HASHMAP value type
}

func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	switch {
	case d.KeyType != nil || d.ValueType != nil:
		return fmt.Sprintf("HASHMAP OF %s, %s", d.KeyType, d.ValueType)
	case d.ElementType != nil && d.IsList:
		return fmt.Sprintf("LIST OF %s", d.ElementType)
	case d.ElementType != nil:
		return fmt.Sprintf("ARRAY OF %s", d.ElementType)
	case d.ObjectTypeName != "":
		return fmt.Sprintf("%s(%s)", d.BaseType, d.ObjectTypeName)
	default:
		return d.BaseType.String()
	}
}

func Scalar(b Base) *Descriptor { return &Descriptor{BaseType: b} }

func ListOf(elem *Descriptor) *Descriptor {
	return &Descriptor{BaseType: Object, ObjectTypeName: "LIST", ElementType: elem, IsList: true}
}

func ArrayOf(elem *Descriptor) *Descriptor {
	return &Descriptor{BaseType: ArrayDesc, ElementType: elem}
}

func Hashmap(key, value *Descriptor) *Descriptor {
	return &Descriptor{BaseType: Object, ObjectTypeName: "HASHMAP", KeyType: key, ValueType: value}
}

func ClassOf(name string) *Descriptor {
	return &Descriptor{BaseType: ClassInstance, ObjectTypeName: name}
}

func UserTypeOf(name string) *Descriptor {
	return &Descriptor{BaseType: UserDefined, ObjectTypeName: name}
}

// Equal reports structural equality of two descriptors (used for
// assignment compatibility between LIST element types, HASHMAP key/value
// types, etc., prior to any class-ancestor relaxation).
func Equal(a, b *Descriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.BaseType != b.BaseType || a.ObjectTypeName != b.ObjectTypeName || a.IsList != b.IsList {
		return false
	}
	if !Equal(a.ElementType, b.ElementType) {
		return false
	}
	if !Equal(a.KeyType, b.KeyType) || !Equal(a.ValueType, b.ValueType) {
		return false
	}
	return true
}

// widenRank orders the numeric tower for widening-direction checks: a
// value may widen to any base with a strictly higher rank, never narrow.
var widenRank = map[Base]int{
	Byte: 0, UByte: 0,
	Short: 1, UShort: 1,
	Integer: 2, UInteger: 2,
	Long: 3, ULong: 3,
	Single: 4,
	Double: 5,
}

// CanWiden reports whether a value of base "from" may be implicitly
// widened to base "to" (int -> double, short -> int, etc.). Narrowing
// (including float -> int) is never allowed implicitly.
func CanWiden(from, to Base) bool {
	if from == to {
		return true
	}
	if !from.IsNumeric() || !to.IsNumeric() {
		return false
	}
	rf, ok1 := widenRank[from]
	rt, ok2 := widenRank[to]
	if !ok1 || !ok2 {
		return false
	}
	return rt > rf
}

// ResultOfBinaryNumeric computes the promoted result type of a numeric
// binary operator per spec §4.3/§4.5: int (op) int -> int (the wider of
// the two integer ranks); int (op) double -> double (int widened);
// double (op) double -> double.
func ResultOfBinaryNumeric(a, b *Descriptor) *Descriptor {
	if a.BaseType.IsFloat() || b.BaseType.IsFloat() {
		return Scalar(Double)
	}
	if widenRank[a.BaseType] >= widenRank[b.BaseType] {
		return Scalar(a.BaseType)
	}
	return Scalar(b.BaseType)
}

// ClassTable holds the static layout of a single class: its parent link,
// the ordered field list inheriting the parent's fields prefix-wise, the
// ordered method list, and the computed vtable layout (spec §3.6).
type ClassTable struct {
	Name    string
	Parent  string // "" if none
	Fields  []Field
	Methods []Method // includes inherited slots first, own slots after
	CtorIdx int      // index into Methods of the constructor, -1 if none
	DtorIdx int      // index into Methods of the destructor, -1 if none
	Size    int      // object size in bytes: 16 (header) + sum(Fields)
}

// Field is one field of a class or a plain TYPE record, with its
// computed byte offset within the owning layout.
type Field struct {
	Name   string
	Type   *Descriptor
	Offset int
}

// Method is one vtable slot.
type Method struct {
	Name       string
	ParamTypes []*Descriptor
	ReturnType *Descriptor
	IsSub      bool
	DeclaredBy string // the class that declared (or last overrode) this slot
}

// ObjectHeaderSize is the fixed [vtable_ptr(8B)][class_id(8B)] prefix of
// every class instance's memory layout (spec §3.6).
const ObjectHeaderSize = 16

// NewClassTable builds a class's layout from its own declared fields and
// methods plus its resolved parent table (nil for a root class). Fields
// are prefixed by the parent's fields in declaration order; methods
// append new slots and replace inherited slots by name when overridden.
func NewClassTable(name string, parent *ClassTable, ownFields []Field, ownMethods []Method) *ClassTable {
	ct := &ClassTable{Name: name, CtorIdx: -1, DtorIdx: -1}
	offset := ObjectHeaderSize
	if parent != nil {
		ct.Parent = parent.Name
		for _, f := range parent.Fields {
			ct.Fields = append(ct.Fields, f)
		}
		offset = ObjectHeaderSize
		for i := range ct.Fields {
			ct.Fields[i].Offset = offset
			offset += ct.Fields[i].Type.BaseType.Size()
		}
		ct.Methods = append(ct.Methods, parent.Methods...)
	}
	for _, f := range ownFields {
		f.Offset = offset
		offset += f.Type.BaseType.Size()
		ct.Fields = append(ct.Fields, f)
	}
	ct.Size = offset

	for _, m := range ownMethods {
		replaced := false
		for i, existing := range ct.Methods {
			if existing.Name == m.Name {
				m.DeclaredBy = name
				ct.Methods[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			m.DeclaredBy = name
			ct.Methods = append(ct.Methods, m)
		}
	}
	for i, m := range ct.Methods {
		if m.Name == "NEW" {
			ct.CtorIdx = i
		}
		if m.Name == "DELETE" {
			ct.DtorIdx = i
		}
	}
	return ct
}

// IsAncestor reports whether ancestorName names self or a transitive
// parent of class c, per the table's Parent chain (resolved via lookup).
func IsAncestor(c *ClassTable, ancestorName string, lookup func(name string) *ClassTable) bool {
	for cur := c; cur != nil; {
		if cur.Name == ancestorName {
			return true
		}
		if cur.Parent == "" {
			return false
		}
		cur = lookup(cur.Parent)
	}
	return false
}
