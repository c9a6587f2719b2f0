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

// Package ast holds the closed family of expression variants produced
// by building a synode.Node tree into typed expressions (see package
// dascript). Each variant is a concrete Go type
// rather than a virtual base class: re-architected per spec §9 Design
// Notes away from the original's deep-inheritance/vtable dispatch into
// a closed tagged-variant family dispatched by type switch in the
// resolve and exec packages. Grounded on the shape of expr.Node in the
// teacher repo (github.com/SnellerInc/sneller/expr), simplified from
// its SQL-specific variant set to the spec's scripting-language set.
package ast

import (
	"github.com/doytsujin/daScript/types"
)

// Expr is satisfied by every AST variant. The interface is closed to
// this package: exprNode is unexported, so no external type can
// implement Expr, preserving exhaustiveness of type switches in
// resolve/exec.
type Expr interface {
	exprNode()
	// Loc returns the source location this node was built from.
	Loc() types.Loc
	// Type returns the inferred type, or nil if infer has not run yet
	// (spec §3: "inferred type (null before resolve, non-null after)").
	Type() *types.TypeDecl
	// SetType records the inferred type; used only by the resolver.
	SetType(types.TypeDecl)
	// Children returns the immediate sub-expressions, in evaluation
	// order, for generic traversal (diagnostics, free-variable scans).
	Children() []Expr
	// Clone returns a deep copy of the node and its subtree; location
	// and inferred type (if any) are carried forward, per spec §4.3.
	Clone() Expr
}

// base is embedded by every variant to provide the location/type
// bookkeeping shared across the family.
type base struct {
	at  types.Loc
	typ *types.TypeDecl
}

func (b *base) exprNode() {}

func (b *base) Loc() types.Loc { return b.at }

func (b *base) Type() *types.TypeDecl { return b.typ }

func (b *base) SetType(t types.TypeDecl) { b.typ = &t }

func (b base) cloneBase() base {
	nb := base{at: b.at}
	if b.typ != nil {
		t := *b.typ
		nb.typ = &t
	}
	return nb
}

// Visitor is invoked for each node encountered by Walk, in the style of
// go/ast.Visitor and the teacher's expr.Visitor. A nil return value
// stops recursion into the node's children.
type Visitor interface {
	Visit(Expr) Visitor
}

// Walk traverses an AST in depth-first order, calling v.Visit(n) for
// n and then, if a non-nil Visitor is returned, for every child.
func Walk(v Visitor, n Expr) {
	if n == nil {
		return
	}
	w := v.Visit(n)
	if w == nil {
		return
	}
	for _, c := range n.Children() {
		Walk(w, c)
	}
}

// visitFn adapts a plain function to the Visitor interface, mirroring
// the common `ast.Inspect`-style helper.
type visitFn func(Expr) bool

func (f visitFn) Visit(n Expr) Visitor {
	if f(n) {
		return f
	}
	return nil
}

// Inspect traverses the tree calling f(n) for every node; if f returns
// false, Inspect does not recurse into that node's children.
func Inspect(n Expr, f func(Expr) bool) {
	Walk(visitFn(f), n)
}
