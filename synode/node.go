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

// Package synode is the parser collaborator spec §6 describes: it
// produces a tree of lisp-like Node values (atoms and lists) that
// feeds package dascript's declaration builder. It carries no
// knowledge of the language's types or semantics — that is entirely
// package dascript's job, matching spec §1's framing of textual
// parsing as "an external collaborator".
//
// Grounded on the overall hand-rolled scanner/parser shape of
// expr/partiql (github.com/SnellerInc/sneller/expr/partiql), scaled
// down from a goyacc SQL grammar to a small recursive-descent
// lisp-surface reader, since a yacc grammar is unwarranted machinery
// for `(head arg ...)` syntax.
package synode

import (
	"fmt"

	"github.com/doytsujin/daScript/types"
)

// Kind tags what an atom's literal value actually is, or that the
// Node is a list rather than an atom (spec §6 Parser contract: "each
// of which is either an atom ... or a list").
type Kind int

const (
	KindList Kind = iota
	KindName
	KindInt
	KindUint
	KindFloat
	KindString
	KindBool
	KindNil
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindName:
		return "name"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNil:
		return "nil"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is either an atom (name, number, string, boolean, nil) or a
// list of child Nodes, matching spec §6's Parser contract exactly:
// "Atoms expose: kind, textual name, numeric value, and a source
// location. Lists expose their children in order."
type Node struct {
	kind Kind
	loc  types.Loc

	name    string // KindName: the identifier text
	text    string // KindString: the unescaped string value
	intVal  int64
	uintVal uint64
	floatVal float64
	boolVal bool

	items []*Node // KindList
}

// Kind reports which atom/list variant n is.
func (n *Node) Kind() Kind { return n.kind }

// Loc is n's source location (spec §6 "a source location: line,
// column, file"), propagated onto every ast.Expr built from n.
func (n *Node) Loc() types.Loc { return n.loc }

// IsList reports whether n is a list rather than an atom.
func (n *Node) IsList() bool { return n.kind == KindList }

// Name returns an atom's textual name; valid only for KindName.
func (n *Node) Name() string { return n.name }

// Text returns a KindString atom's decoded value.
func (n *Node) Text() string { return n.text }

// Int, Uint, Float return an atom's numeric value, per its Kind.
func (n *Node) Int() int64     { return n.intVal }
func (n *Node) Uint() uint64   { return n.uintVal }
func (n *Node) Float() float64 { return n.floatVal }

// Bool returns a KindBool atom's value.
func (n *Node) Bool() bool { return n.boolVal }

// Items returns a list's children in source order; nil for an atom.
func (n *Node) Items() []*Node { return n.items }

// Len is a convenience for len(n.Items()).
func (n *Node) Len() int { return len(n.items) }

// At returns the i'th child of a list, or nil if out of range.
func (n *Node) At(i int) *Node {
	if i < 0 || i >= len(n.items) {
		return nil
	}
	return n.items[i]
}

// Head returns the first child of a list (the syntactic "head" of
// every `(head arg ...)` declaration), or nil if the list is empty.
func (n *Node) Head() *Node { return n.At(0) }

// HeadName returns Head().Name() if the head is a plain atom name, or
// "" otherwise; used throughout dascript's dispatch on recognized
// heads (struct, let, defun, if, while, foreach, try, sizeof, new,
// return) and on operator/call names.
func (n *Node) HeadName() string {
	h := n.Head()
	if h == nil || h.kind != KindName {
		return ""
	}
	return h.name
}

// String renders n for diagnostics (not meant to round-trip to
// source).
func (n *Node) String() string {
	switch n.kind {
	case KindList:
		s := "("
		for i, it := range n.items {
			if i > 0 {
				s += " "
			}
			s += it.String()
		}
		return s + ")"
	case KindName:
		return n.name
	case KindString:
		return fmt.Sprintf("%q", n.text)
	case KindBool:
		if n.boolVal {
			return "true"
		}
		return "false"
	case KindNil:
		return "nil"
	case KindInt:
		return fmt.Sprintf("%d", n.intVal)
	case KindUint:
		return fmt.Sprintf("%du", n.uintVal)
	case KindFloat:
		return fmt.Sprintf("%g", n.floatVal)
	default:
		return "?"
	}
}
