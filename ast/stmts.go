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

// Block is a sequence of sub-expressions; its type is always void and
// at runtime it evaluates children in order, propagating stop flags
// (spec §4.3 Block).
type Block struct {
	base
	Items []Expr
}

func NewBlock(at types.Loc, items []Expr) *Block { return &Block{base: base{at: at}, Items: items} }
func (b *Block) Children() []Expr                { return b.Items }
func (b *Block) Clone() Expr {
	items := make([]Expr, len(b.Items))
	for i, it := range b.Items {
		items[i] = it.Clone()
	}
	return &Block{base: b.cloneBase(), Items: items}
}

// Let introduces one or more locals (each possibly with an
// initializer), visible only to Sub (spec §4.3/§4.4 Let).
type Let struct {
	base
	Vars []*symbols.Variable
	Inits []Expr // parallel to Vars; nil entry means no initializer
	Sub   Expr
}

func NewLet(at types.Loc, vars []*symbols.Variable, inits []Expr, sub Expr) *Let {
	return &Let{base: base{at: at}, Vars: vars, Inits: inits, Sub: sub}
}
func (l *Let) Children() []Expr {
	out := make([]Expr, 0, len(l.Inits)+1)
	for _, e := range l.Inits {
		if e != nil {
			out = append(out, e)
		}
	}
	out = append(out, l.Sub)
	return out
}
func (l *Let) Clone() Expr {
	vars := make([]*symbols.Variable, len(l.Vars))
	copy(vars, l.Vars) // Variable records are shared by value after resolve; clone is shallow on purpose
	inits := make([]Expr, len(l.Inits))
	for i, e := range l.Inits {
		if e != nil {
			inits[i] = e.Clone()
		}
	}
	return &Let{base: l.cloneBase(), Vars: vars, Inits: inits, Sub: l.Sub.Clone()}
}

// Return is a non-local exit carrying the function's result value
// (spec §4.3/§4.4/§4.8 Return).
type Return struct {
	base
	Value Expr // nil for void-returning early exits, if ever allowed by a host extension
}

func NewReturn(at types.Loc, v Expr) *Return { return &Return{base: base{at: at}, Value: v} }
func (r *Return) Children() []Expr {
	if r.Value != nil {
		return []Expr{r.Value}
	}
	return nil
}
func (r *Return) Clone() Expr {
	nr := &Return{base: r.cloneBase()}
	if r.Value != nil {
		nr.Value = r.Value.Clone()
	}
	return nr
}

// Break is a non-local exit out of the nearest enclosing loop.
type Break struct {
	base
}

func NewBreak(at types.Loc) *Break { return &Break{base{at: at}} }
func (b *Break) Children() []Expr  { return nil }
func (b *Break) Clone() Expr       { return &Break{b.cloneBase()} }

// IfThenElse is structured conditional control flow; Else may be nil.
type IfThenElse struct {
	base
	Cond, Then, Else Expr
}

func NewIfThenElse(at types.Loc, cond, then, els Expr) *IfThenElse {
	return &IfThenElse{base: base{at: at}, Cond: cond, Then: then, Else: els}
}
func (i *IfThenElse) Children() []Expr {
	if i.Else != nil {
		return []Expr{i.Cond, i.Then, i.Else}
	}
	return []Expr{i.Cond, i.Then}
}
func (i *IfThenElse) Clone() Expr {
	ni := &IfThenElse{base: i.cloneBase(), Cond: i.Cond.Clone(), Then: i.Then.Clone()}
	if i.Else != nil {
		ni.Else = i.Else.Clone()
	}
	return ni
}

// While is structured loop control flow.
type While struct {
	base
	Cond, Body Expr
}

func NewWhile(at types.Loc, cond, body Expr) *While {
	return &While{base: base{at: at}, Cond: cond, Body: body}
}
func (w *While) Children() []Expr { return []Expr{w.Cond, w.Body} }
func (w *While) Clone() Expr {
	return &While{base: w.cloneBase(), Cond: w.Cond.Clone(), Body: w.Body.Clone()}
}

// Foreach iterates Head (an array or, per the supplemented Range type,
// a range), binding each element to IterVar before evaluating Body
// (spec §4.3/§4.4/§4.7 Foreach).
type Foreach struct {
	base
	IterVar *symbols.Variable
	Head    Expr
	Body    Expr
}

func NewForeach(at types.Loc, iterVar *symbols.Variable, head, body Expr) *Foreach {
	return &Foreach{base: base{at: at}, IterVar: iterVar, Head: head, Body: body}
}
func (f *Foreach) Children() []Expr { return []Expr{f.Head, f.Body} }
func (f *Foreach) Clone() Expr {
	iv := *f.IterVar
	return &Foreach{base: f.cloneBase(), IterVar: &iv, Head: f.Head.Clone(), Body: f.Body.Clone()}
}

// TryCatch runs Try; if a recoverable failure is raised, the fail flag
// is cleared and Catch runs instead (spec §4.3/§4.7/§7 TryCatch).
type TryCatch struct {
	base
	Try, Catch Expr
}

func NewTryCatch(at types.Loc, try, catch Expr) *TryCatch {
	return &TryCatch{base: base{at: at}, Try: try, Catch: catch}
}
func (t *TryCatch) Children() []Expr { return []Expr{t.Try, t.Catch} }
func (t *TryCatch) Clone() Expr {
	return &TryCatch{base: t.cloneBase(), Try: t.Try.Clone(), Catch: t.Catch.Clone()}
}
