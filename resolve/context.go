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

package resolve

import (
	"github.com/doytsujin/daScript/symbols"
)

// frameAlign is the stack-slot alignment specified in spec §4.6: every
// local's byte offset is its enclosing function's stack_top cursor,
// rounded up to this boundary before the cursor advances past it.
const frameAlign = 16

// alignUp rounds n up to the next multiple of frameAlign.
func alignUp(n int) int {
	if n%frameAlign == 0 {
		return n
	}
	return n + (frameAlign - n%frameAlign)
}

// Context threads the state a single top-down resolver pass needs:
// the program being resolved, the function whose body is being
// walked, a byte cursor into that function's stack frame, and a stack
// of visible locals searched innermost-first. See spec §4.4.
//
// Grounded on plan/pir.Trace (the teacher's per-query resolve context)
// generalized from a single-pass SQL planner context to a per-function
// scripting-language resolver context.
type Context struct {
	Program *symbols.Program
	Func    *symbols.Function

	stackTop int
	maxStack int
	locals   []*symbols.Variable
}

// NewContext starts a resolver pass over fn's body. The frame begins
// after a fixed preamble: a return-pointer slot plus a value-register
// slot (spec §4.6).
const framePreamble = 16 // one return-pointer slot (8B) + one value register slot (8B), each padded to frameAlign together

func NewContext(prog *symbols.Program, fn *symbols.Function) *Context {
	return &Context{
		Program:  prog,
		Func:     fn,
		stackTop: framePreamble,
		maxStack: framePreamble,
	}
}

// PushLocal introduces v into scope, assigning it a 16-byte aligned
// stack offset and advancing stack_top (spec §4.4 Let rule, §4.6).
func (c *Context) PushLocal(v *symbols.Variable) {
	v.Role = symbols.RoleLocal
	v.Offset = c.stackTop
	c.stackTop += alignUp(v.Type.SizeOf())
	if c.stackTop > c.maxStack {
		c.maxStack = c.stackTop
	}
	c.locals = append(c.locals, v)
}

// mark/restore bracket a Let scope: on exit, stack_top is restored and
// the locals introduced since mark are popped (spec §4.4 Let rule:
// "On exit, restore stack_top and pop the locals").
func (c *Context) mark() (stackTop, localsLen int) {
	return c.stackTop, len(c.locals)
}

func (c *Context) restore(stackTop, localsLen int) {
	c.stackTop = stackTop
	c.locals = c.locals[:localsLen]
}

// LookupLocal searches locals innermost (most recently pushed) outward.
func (c *Context) LookupLocal(name string) (*symbols.Variable, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			return c.locals[i], true
		}
	}
	return nil, false
}

// LookupArgument searches the current function's arguments.
func (c *Context) LookupArgument(name string) (*symbols.Variable, int, bool) {
	for i := range c.Func.Args {
		if c.Func.Args[i].Name == name {
			return &c.Func.Args[i], i, true
		}
	}
	return nil, -1, false
}

// LookupGlobal searches the program's globals.
func (c *Context) LookupGlobal(name string) (*symbols.Variable, bool) {
	return c.Program.Global(name)
}

// FinishFunction stores the computed max stack size onto Func, per
// spec §4.4 "Track the function's max stack size".
func (c *Context) FinishFunction() {
	c.Func.StackSize = c.maxStack
}
