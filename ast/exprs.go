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

package ast

import (
	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/types"
)

// --- constants ---

type ConstBool struct {
	base
	Value bool
}

func NewConstBool(at types.Loc, v bool) *ConstBool { return &ConstBool{base{at: at}, v} }
func (c *ConstBool) Children() []Expr              { return nil }
func (c *ConstBool) Clone() Expr                   { return &ConstBool{c.cloneBase(), c.Value} }

type ConstInt struct {
	base
	Value int64
}

func NewConstInt(at types.Loc, v int64) *ConstInt { return &ConstInt{base{at: at}, v} }
func (c *ConstInt) Children() []Expr               { return nil }
func (c *ConstInt) Clone() Expr                    { return &ConstInt{c.cloneBase(), c.Value} }

type ConstUint struct {
	base
	Value uint64
}

func NewConstUint(at types.Loc, v uint64) *ConstUint { return &ConstUint{base{at: at}, v} }
func (c *ConstUint) Children() []Expr                { return nil }
func (c *ConstUint) Clone() Expr                     { return &ConstUint{c.cloneBase(), c.Value} }

type ConstFloat struct {
	base
	Value float64
}

func NewConstFloat(at types.Loc, v float64) *ConstFloat { return &ConstFloat{base{at: at}, v} }
func (c *ConstFloat) Children() []Expr                  { return nil }
func (c *ConstFloat) Clone() Expr                       { return &ConstFloat{c.cloneBase(), c.Value} }

type ConstString struct {
	base
	Value string
}

func NewConstString(at types.Loc, v string) *ConstString { return &ConstString{base{at: at}, v} }
func (c *ConstString) Children() []Expr                  { return nil }
func (c *ConstString) Clone() Expr                       { return &ConstString{c.cloneBase(), c.Value} }

type ConstNullptr struct {
	base
}

func NewConstNullptr(at types.Loc) *ConstNullptr { return &ConstNullptr{base{at: at}} }
func (c *ConstNullptr) Children() []Expr          { return nil }
func (c *ConstNullptr) Clone() Expr               { return &ConstNullptr{c.cloneBase()} }

// --- Var ---

// VarScope records where a Var resolved to; filled in by resolve.Context.
type VarScope int

const (
	ScopeUnresolved VarScope = iota
	ScopeLocal
	ScopeArgument
	ScopeGlobal
)

// Var is a bare name reference, resolved against locals, then
// arguments, then globals (spec §4.4 Var rule).
type Var struct {
	base
	Name string

	Scope    VarScope
	Resolved *symbols.Variable // filled by the resolver
}

func NewVar(at types.Loc, name string) *Var { return &Var{base: base{at: at}, Name: name} }
func (v *Var) Children() []Expr             { return nil }
func (v *Var) Clone() Expr {
	nv := &Var{base: v.cloneBase(), Name: v.Name, Scope: v.Scope, Resolved: v.Resolved}
	return nv
}

// --- Field ---

// Field accesses a named member of a structure value; the result is
// ref iff the value is ref (spec §4.3/§4.4 Field rule).
type Field struct {
	base
	Value Expr
	Name  string

	Resolved *symbols.Field // filled by the resolver
}

func NewField(at types.Loc, value Expr, name string) *Field {
	return &Field{base: base{at: at}, Value: value, Name: name}
}
func (f *Field) Children() []Expr { return []Expr{f.Value} }
func (f *Field) Clone() Expr {
	return &Field{base: f.cloneBase(), Value: f.Value.Clone(), Name: f.Name, Resolved: f.Resolved}
}

// --- At (array indexing) ---

// At indexes the last dimension of an array, producing a ref one
// dimension lower (spec §4.3/§4.4 At rule).
type At struct {
	base
	Value Expr
	Index Expr
}

func NewAt(at types.Loc, value, index Expr) *At {
	return &At{base: base{at: at}, Value: value, Index: index}
}
func (a *At) Children() []Expr { return []Expr{a.Value, a.Index} }
func (a *At) Clone() Expr {
	return &At{base: a.cloneBase(), Value: a.Value.Clone(), Index: a.Index.Clone()}
}

// --- Call / operators ---

// Call invokes a user or built-in function resolved against the
// program's overload set (spec §4.5).
type Call struct {
	base
	Name string
	Args []Expr

	Resolved *symbols.Function // filled by the resolver
}

func NewCall(at types.Loc, name string, args []Expr) *Call {
	return &Call{base: base{at: at}, Name: name, Args: args}
}
func (c *Call) Children() []Expr { return c.Args }
func (c *Call) Clone() Expr {
	args := make([]Expr, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.Clone()
	}
	return &Call{base: c.cloneBase(), Name: c.Name, Args: args, Resolved: c.Resolved}
}

// Op1, Op2, Op3 are unary/binary/ternary operators, resolved against
// the built-in operator overload set by the same rules as Call (spec
// §4.3). Op3 is the 3-ary selector called out as an Open Question in
// spec §9: it evaluates all three children (with auto-dereference on
// non-ref formals) and dispatches like any other overloaded call.
type Op1 struct {
	base
	Op       string
	A        Expr
	Resolved *symbols.Function
}

func NewOp1(at types.Loc, op string, a Expr) *Op1 { return &Op1{base: base{at: at}, Op: op, A: a} }
func (o *Op1) Children() []Expr                   { return []Expr{o.A} }
func (o *Op1) Clone() Expr {
	return &Op1{base: o.cloneBase(), Op: o.Op, A: o.A.Clone(), Resolved: o.Resolved}
}

type Op2 struct {
	base
	Op       string
	A, B     Expr
	Resolved *symbols.Function
}

func NewOp2(at types.Loc, op string, a, b Expr) *Op2 {
	return &Op2{base: base{at: at}, Op: op, A: a, B: b}
}
func (o *Op2) Children() []Expr { return []Expr{o.A, o.B} }
func (o *Op2) Clone() Expr {
	return &Op2{base: o.cloneBase(), Op: o.Op, A: o.A.Clone(), B: o.B.Clone(), Resolved: o.Resolved}
}

type Op3 struct {
	base
	Op       string
	A, B, C  Expr
	Resolved *symbols.Function
}

func NewOp3(at types.Loc, op string, a, b, c Expr) *Op3 {
	return &Op3{base: base{at: at}, Op: op, A: a, B: b, C: c}
}
func (o *Op3) Children() []Expr { return []Expr{o.A, o.B, o.C} }
func (o *Op3) Clone() Expr {
	return &Op3{base: o.cloneBase(), Op: o.Op, A: o.A.Clone(), B: o.B.Clone(), C: o.C.Clone(), Resolved: o.Resolved}
}

// --- coercions ---

// Ref2Value materializes a value from a ref to a simple scalar type;
// inserted automatically by auto-dereference (spec §4.4).
type Ref2Value struct {
	base
	Value Expr
}

func NewRef2Value(at types.Loc, v Expr) *Ref2Value { return &Ref2Value{base: base{at: at}, Value: v} }
func (r *Ref2Value) Children() []Expr              { return []Expr{r.Value} }
func (r *Ref2Value) Clone() Expr                   { return &Ref2Value{base: r.cloneBase(), Value: r.Value.Clone()} }

// Ptr2Ref dereferences a pointer into a ref to its pointee structure.
type Ptr2Ref struct {
	base
	Value Expr
}

func NewPtr2Ref(at types.Loc, v Expr) *Ptr2Ref { return &Ptr2Ref{base: base{at: at}, Value: v} }
func (p *Ptr2Ref) Children() []Expr            { return []Expr{p.Value} }
func (p *Ptr2Ref) Clone() Expr                 { return &Ptr2Ref{base: p.cloneBase(), Value: p.Value.Clone()} }

// --- new / sizeof ---

// New allocates a structure on the context heap; result is a pointer
// to that structure (spec §4.3/§4.4 New rule). AllocHint is a
// supplemented, non-binding annotation for host introspection (see
// SPEC_FULL.md "Heap allocation diagnostics"); it never affects
// type-checking or lowering semantics.
type New struct {
	base
	StructType types.TypeDecl
	AllocHint  string
}

func NewNew(at types.Loc, st types.TypeDecl) *New { return &New{base: base{at: at}, StructType: st} }
func (n *New) Children() []Expr                   { return nil }
func (n *New) Clone() Expr {
	return &New{base: n.cloneBase(), StructType: n.StructType, AllocHint: n.AllocHint}
}

// SizeOf is a compile-time constant int; if given an expression it
// takes that expression's type, otherwise OfType is used directly.
type SizeOf struct {
	base
	Value  Expr // nil if OfType is used instead
	OfType *types.TypeDecl
}

func NewSizeOfExpr(at types.Loc, v Expr) *SizeOf { return &SizeOf{base: base{at: at}, Value: v} }
func NewSizeOfType(at types.Loc, t types.TypeDecl) *SizeOf {
	return &SizeOf{base: base{at: at}, OfType: &t}
}
func (s *SizeOf) Children() []Expr {
	if s.Value != nil {
		return []Expr{s.Value}
	}
	return nil
}
func (s *SizeOf) Clone() Expr {
	ns := &SizeOf{base: s.cloneBase()}
	if s.Value != nil {
		ns.Value = s.Value.Clone()
	}
	if s.OfType != nil {
		t := *s.OfType
		ns.OfType = &t
	}
	return ns
}
