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

package exec

import (
	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/types"
)

// Kind tags a Node's variant; the family is closed (spec §9: "Dispatch
// through a static match on the tag; keep per-variant payloads in
// separate records"). Grounded on the shape of vm.ssaop in the teacher
// (an int-keyed closed op enum), scaled down to the handful of node
// shapes a tree-walking interpreter over scalar/struct/array values
// needs rather than a vectorized bytecode instruction set.
type Kind int

const (
	KInvalid Kind = iota

	// --- storage access ---
	KConstBool     // literal bool
	KConstInt      // literal int64
	KConstUint     // literal uint64
	KConstFloat    // literal float64
	KConstString   // literal string (interned via the Context name pool)
	KConstNullptr  // literal null pointer (address 0)
	KGetLocal      // returns frame+Offset as the address of a local
	KGetArgument   // argument index Offset: the slot's address for a word scalar, else the address the slot holds
	KGetGlobal     // returns the address of the global byte-offset Offset
	KField         // adds Offset to the child address (A)
	KAt            // base address (A), index (B), Stride, Range -> bounds-checked address
	KRef2Value     // loads a word-scalar value from the address produced by A
	KPtr2Ref       // interprets A's value as an address; fails (null-pointer) if zero
	KNew           // bump-allocates Size bytes from the heap, zero-initialized
	KRangeOf       // wraps a Range-typed head (A) as a Foreach iteration source, rather than array memory

	// --- control flow / sequencing ---
	KBlock     // evaluate Items in order, short-circuit on any stop flag
	KLet       // evaluate Items (per-variable init/zero-init), then A (the body)
	KIfThenElse // A=cond, B=then, C=else (Nil if absent)
	KWhile      // A=cond, B=body
	KForeach    // A=head address (or KRangeOf), B=body; IterSlot, Stride, Range describe the binding (Range==-1 for a KRangeOf head)
	KTryCatch   // A=try, B=catch; clears the fail flag on entry to B
	KReturn     // A=value (Nil for void-context early exits); sets the return stop flag
	KBreak      // sets the break stop flag

	// --- assignment / init primitives (used inside KLet) ---
	KCopyValue    // copies a word value from src (B) into dst address (A)
	KCopyRefValue // copies Size bytes from the address at B into the address at A
	KInitLocal    // zero-fills Size bytes at frame+Offset

	// --- calls ---
	KCall // invokes Func; Items holds argument-value nodes, ArgSlots their staging offsets

	// --- native ---
	KNative // invokes Native with the evaluated Items as arguments
)

// NativeFn is the host- or builtin-supplied implementation behind a
// KNative node. It receives the already-evaluated argument words (for
// a word-scalar argument, its value; for anything else, its address)
// and an Eval callback for any operations a native function needs
// (heap allocation, failure signaling); see package runtime.
//
// This is the concrete instantiation of spec §6 "register_builtin...
// native_node_factory": rather than growing a bespoke Kind per
// arithmetic/string primitive (the teacher's vm/ssa.go approach, which
// needs hundreds of vectorized ops), the language's entire built-in
// surface is expressed as KNative nodes wrapping small Go closures,
// which is the idiomatic Go rendition of the same "native node
// factory" contract.
type NativeFn func(m Machine, args []uint64) (uint64, error)

// Machine is the minimal surface a NativeFn needs from the running
// Context, kept here (rather than importing package runtime) to avoid
// an import cycle between exec and runtime.
type Machine interface {
	// ReadWord reads a machine word from address addr.
	ReadWord(addr int64) uint64
	// WriteWord writes a machine word to address addr.
	WriteWord(addr int64, v uint64)
	// ReadBytes returns a view of n bytes starting at addr.
	ReadBytes(addr int64, n int) []byte
	// HeapAlloc bump-allocates n zeroed bytes and returns their address.
	HeapAlloc(n int) int64
	// InternString interns s and returns a {ptr,len} descriptor address.
	InternString(s string) int64
	// ReadString reads back a {ptr,len} descriptor at addr.
	ReadString(addr int64) string
}

// NativeFactory builds the entry SimNode for a built-in Function: it
// is invoked once, during lowering, with a Builder scoped to that
// function, and returns the root of a small SimNode subtree (almost
// always a single KNative node reading its arguments via b.Arg).
// This is symbols.Function.NativeNode's concrete type (stored there as
// interface{} to avoid symbols depending on exec).
type NativeFactory func(b *Builder) NodeRef

// Node is one execution-graph node; see Kind for the meaning of each
// field combination. Node is a plain value (not boxed) so that Arena's
// backing slice is a contiguous allocation.
type Node struct {
	Kind Kind
	Type types.TypeDecl // result type, carried through from the AST for diagnostics and for Ref2Value's word width

	A, B, C NodeRef // generic children slots; meaning depends on Kind
	Items   []NodeRef

	BoolVal  bool
	IntVal   int64
	UintVal  uint64
	FloatVal float64
	StrVal   string

	Offset int // local byte offset / field byte offset / global byte offset / argument index
	Size   int // byte size for New/CopyRefValue/InitLocal/SizeOf
	Stride int // element stride for At/Foreach
	Range  int // bound for At's index check / Foreach's element count (-1 if dynamic)

	IterSlot int // Foreach: stack offset the per-iteration element is copied into

	Func     *symbols.Function // Call: target function
	ArgSlots []int             // Call: stack offsets argument values are staged into before the jump

	Native NativeFn // KNative
}
