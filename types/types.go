// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package types implements the value-type system of the language:
// TypeDecl, a small closed set of base kinds plus optional structure
// payload, array dimensions and a ref flag.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the base kind of a TypeDecl.
type Kind int

const (
	KindNone Kind = iota
	KindVoid
	KindBool
	KindInt
	KindUint
	KindInt2
	KindInt3
	KindInt4
	KindUint2
	KindUint3
	KindUint4
	KindFloat
	KindFloat2
	KindFloat3
	KindFloat4
	KindString
	KindPointer
	KindStructure
	// KindTable and KindRange are runtime primitives supplemented from
	// daScript's module_builtin_runtime.cpp / runtime_range.cpp; they
	// behave as opaque scalar handles for the purposes of size_of/mangled.
	KindTable
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindInt2:
		return "int2"
	case KindInt3:
		return "int3"
	case KindInt4:
		return "int4"
	case KindUint2:
		return "uint2"
	case KindUint3:
		return "uint3"
	case KindUint4:
		return "uint4"
	case KindFloat:
		return "float"
	case KindFloat2:
		return "float2"
	case KindFloat3:
		return "float3"
	case KindFloat4:
		return "float4"
	case KindString:
		return "string"
	case KindPointer:
		return "pointer"
	case KindStructure:
		return "structure"
	case KindTable:
		return "table"
	case KindRange:
		return "range"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// scalarSize is the byte size table for kinds that are never backed by
// a Structure and never carry dims; see size_of.
var scalarSize = map[Kind]int{
	KindVoid:    0,
	KindBool:    1,
	KindInt:     8,
	KindUint:    8,
	KindInt2:    8,
	KindInt3:    12,
	KindInt4:    16,
	KindUint2:   8,
	KindUint3:   12,
	KindUint4:   16,
	KindFloat:   8, // word-scalar register width, not C's 4-byte float (see IsWordScalar)
	KindFloat2:  8,
	KindFloat3:  12,
	KindFloat4:  16,
	KindString:  16, // {ptr,len}
	KindPointer: 8,
	KindTable:   24,
	KindRange:   16, // {lo,hi}
}

// StructureRef is anything that can be asked for its name, size and
// field layout. symbols.Structure implements this; kept as an interface
// here so that the types package does not import symbols (which would
// be a cycle: symbols needs TypeDecl).
type StructureRef interface {
	StructName() string
	FieldSize() int // sum of field sizes, computed by the owning Program's layout pass
	// Same reports whether two StructureRef values name the identical
	// structure declaration (identity, not structural equality).
	Same(StructureRef) bool
}

// Loc is a source location, carried through for diagnostics. It mirrors
// the location information the parser attaches to synode.Node.
type Loc struct {
	File   string
	Line   int
	Column int
}

func (l Loc) String() string {
	if l.File == "" && l.Line == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// TypeDecl is an immutable, copyable value describing a type: a base
// kind, an optional owning Structure (for KindStructure/KindPointer),
// an ordered list of array dimensions (empty means scalar), and a ref
// flag. See spec §3 Data Model / TypeDecl.
type TypeDecl struct {
	Base   Kind
	Struct StructureRef // non-nil iff Base == KindStructure or KindPointer to a structure
	Dims   []int        // empty == scalar
	Ref    bool
	At     Loc
}

// Void, Bool, Int, Uint, Float, String are the common scalar
// constructors used throughout the resolver and builtin registration.
func Void() TypeDecl   { return TypeDecl{Base: KindVoid} }
func Bool() TypeDecl   { return TypeDecl{Base: KindBool} }
func Int() TypeDecl    { return TypeDecl{Base: KindInt} }
func Uint() TypeDecl   { return TypeDecl{Base: KindUint} }
func Float() TypeDecl  { return TypeDecl{Base: KindFloat} }
func String() TypeDecl { return TypeDecl{Base: KindString} }

// Struct constructs a (non-ref, non-pointer) structure type.
func Struct(s StructureRef) TypeDecl {
	return TypeDecl{Base: KindStructure, Struct: s}
}

// Pointer constructs a pointer-to-structure type. Invariant: pointer
// kinds never carry dims (spec §3).
func Pointer(s StructureRef) TypeDecl {
	return TypeDecl{Base: KindPointer, Struct: s}
}

// WithRef returns a copy of t with the ref flag set as requested.
func (t TypeDecl) WithRef(ref bool) TypeDecl {
	t.Ref = ref
	return t
}

// WithDims returns a copy of t with the given dims appended (outermost
// first), forcing Ref true per the invariant that arrays are addressable.
func (t TypeDecl) WithDims(dims ...int) TypeDecl {
	nt := t
	nt.Dims = append(append([]int{}, t.Dims...), dims...)
	nt.Ref = true
	return nt
}

// DropLastDim returns a copy of t with the last array dimension
// removed and Ref forced true, as produced by At (spec §4.4 At rule).
func (t TypeDecl) DropLastDim() TypeDecl {
	nt := t
	if len(t.Dims) > 0 {
		nt.Dims = append([]int{}, t.Dims[:len(t.Dims)-1]...)
	}
	nt.Ref = true
	return nt
}

// IsScalar reports whether t carries no array dims.
func (t TypeDecl) IsScalar() bool { return len(t.Dims) == 0 }

// BaseSize returns the size of one element of base kind t.Base,
// ignoring dims (used by size_of and stride).
func (t TypeDecl) BaseSize() int {
	if t.Base == KindStructure {
		if t.Struct == nil {
			return 0
		}
		return t.Struct.FieldSize()
	}
	if sz, ok := scalarSize[t.Base]; ok {
		return sz
	}
	return 0
}

// SizeOf returns the byte size of t: for scalars a fixed table lookup,
// for a structure the sum of field sizes, for an array the base size
// times the product of dims. See spec §4.1 size_of and §8 testable
// property `size_of(T) == base_size(T) * product(T.dim)`.
func (t TypeDecl) SizeOf() int {
	n := t.BaseSize()
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// Stride returns the product of all but the last dim times the base
// size, used to index the last dimension (spec §4.1 stride).
func (t TypeDecl) Stride() int {
	n := t.BaseSize()
	if len(t.Dims) == 0 {
		return n
	}
	for _, d := range t.Dims[:len(t.Dims)-1] {
		n *= d
	}
	return n
}

// LastDim returns the size of the last (outermost-indexed) dimension,
// used by exec.At to bounds-check indexing, and 0 if t is scalar.
func (t TypeDecl) LastDim() int {
	if len(t.Dims) == 0 {
		return 0
	}
	return t.Dims[len(t.Dims)-1]
}

// IsRef reports true when t is explicitly marked ref, when its base is
// a structure, or when it carries any array dim (spec §4.1 is_ref).
func (t TypeDecl) IsRef() bool {
	return t.Ref || t.Base == KindStructure || len(t.Dims) > 0
}

// IsIndex reports whether t is a scalar int or uint (spec §4.1 is_index).
func (t TypeDecl) IsIndex() bool {
	return t.IsScalar() && (t.Base == KindInt || t.Base == KindUint)
}

// IsWordScalar reports whether t fits in a single machine-word value
// register (bool/int/uint/float/pointer, no dims) — the set of types Ref2Value
// may legally target (spec §4.3 Ref2Value: "child must be a ref to a
// simple scalar"). Strings, vectors, structures, tables and ranges are
// always carried by address, never collapsed into a bare value word.
func (t TypeDecl) IsWordScalar() bool {
	if len(t.Dims) != 0 {
		return false
	}
	switch t.Base {
	case KindBool, KindInt, KindUint, KindFloat, KindPointer:
		return true
	default:
		return false
	}
}

// IsSame compares base, structure identity and dims, and (conditionally)
// the ref flag. See spec §4.1 is_same and §8 mangling property.
func (t TypeDecl) IsSame(o TypeDecl, refMatters bool) bool {
	if t.Base != o.Base {
		return false
	}
	if (t.Base == KindStructure || t.Base == KindPointer) && !sameStruct(t.Struct, o.Struct) {
		return false
	}
	if len(t.Dims) != len(o.Dims) {
		return false
	}
	for i := range t.Dims {
		if t.Dims[i] != o.Dims[i] {
			return false
		}
	}
	if refMatters && t.Ref != o.Ref {
		return false
	}
	return true
}

func sameStruct(a, b StructureRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Same(b)
}

// Mangled produces a deterministic string `base("#ref"?)("#"<dim>)*`
// used as the primary key for function overload sets (spec §4.1
// mangled, §8 "mangled(T1)==mangled(T2) iff is_same(ref_matters=true)").
func (t TypeDecl) Mangled() string {
	var b strings.Builder
	switch t.Base {
	case KindStructure, KindPointer:
		name := "?"
		if t.Struct != nil {
			name = t.Struct.StructName()
		}
		if t.Base == KindPointer {
			b.WriteString("ptr<")
			b.WriteString(name)
			b.WriteString(">")
		} else {
			b.WriteString(name)
		}
	default:
		b.WriteString(t.Base.String())
	}
	if t.Ref {
		b.WriteString("#ref")
	}
	for _, d := range t.Dims {
		b.WriteString("#")
		b.WriteString(strconv.Itoa(d))
	}
	return b.String()
}

// String renders a human-readable type, for diagnostics.
func (t TypeDecl) String() string {
	s := t.Mangled()
	if t.Base == KindStructure || t.Base == KindPointer {
		// Mangled already embeds structure name; human form drops #ref marker noise.
		s = strings.TrimSuffix(s, "#ref")
	}
	return s
}
