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

package runtime

import (
	"fmt"
	"math"

	"github.com/doytsujin/daScript/exec"
	"github.com/doytsujin/daScript/symbols"
)

// RuntimeError is a recoverable failure raised during evaluation: array
// bounds, null-pointer dereference, or a native builtin's own failure
// (spec §7 "recoverable failure ... caught by the nearest enclosing
// TryCatch").
type RuntimeError struct {
	Loc string
	Msg string
}

func (e *RuntimeError) Error() string {
	if e.Loc == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
}

func (c *Context) fail(format string, args ...interface{}) uint64 {
	c.stop.Fail = true
	c.failErr = &RuntimeError{Msg: fmt.Sprintf(format, args...)}
	if c.Trace != nil {
		c.Trace("fail: "+format, args...)
	}
	return 0
}

// Eval walks node ref r, returning its word result (meaningless for
// void-typed nodes). It is the tree-walking core of spec §4.8's
// interpreter: every Kind maps to exactly one case here, mirroring
// exec.Lower's one-case-per-AST-variant shape on the other side of the
// lowering boundary.
func (c *Context) Eval(r exec.NodeRef) uint64 {
	if c.stop.Terminate {
		return 0
	}
	n := c.Arena.At(r)
	if c.Trace != nil {
		c.Trace("eval: kind=%d", n.Kind)
	}
	switch n.Kind {
	case exec.KConstBool:
		if n.BoolVal {
			return 1
		}
		return 0
	case exec.KConstInt:
		return uint64(n.IntVal)
	case exec.KConstUint:
		return n.UintVal
	case exec.KConstFloat:
		return math.Float64bits(n.FloatVal)
	case exec.KConstString:
		return uint64(c.InternString(n.StrVal))
	case exec.KConstNullptr:
		return 0

	case exec.KGetLocal:
		return uint64(addrOf(spaceStack, c.frameBase+int64(n.Offset)))
	case exec.KGetArgument:
		// Offset is the argument index; enterCall stages slots 8 bytes
		// apart. A word-scalar argument is addressed like a local; any
		// other argument's slot already holds the address of its data.
		slot := addrOf(spaceArg, c.argBase+int64(n.Offset)*8)
		if n.Type.IsWordScalar() {
			return uint64(slot)
		}
		return c.ReadWord(slot)
	case exec.KGetGlobal:
		return uint64(addrOf(spaceGlobal, int64(n.Offset)))

	case exec.KField:
		base := int64(c.Eval(n.A))
		if c.stop.any() {
			return 0
		}
		return uint64(base + int64(n.Offset))

	case exec.KAt:
		base := int64(c.Eval(n.A))
		if c.stop.any() {
			return 0
		}
		idx := int64(c.Eval(n.B))
		if c.stop.any() {
			return 0
		}
		if n.Range >= 0 && (idx < 0 || idx >= int64(n.Range)) {
			return c.fail("index %d out of range [0,%d)", idx, n.Range)
		}
		return uint64(base + idx*int64(n.Stride))

	case exec.KRef2Value:
		addr := int64(c.Eval(n.A))
		if c.stop.any() {
			return 0
		}
		return c.ReadWord(addr)

	case exec.KPtr2Ref:
		ptr := c.Eval(n.A)
		if c.stop.any() {
			return 0
		}
		if ptr == 0 {
			return c.fail("dereferenced a null pointer")
		}
		return ptr

	case exec.KNew:
		return uint64(c.HeapAlloc(n.Size))

	case exec.KRangeOf:
		return c.Eval(n.A)

	case exec.KReturn:
		var v uint64
		if n.A != exec.Nil {
			v = c.Eval(n.A)
		}
		if c.stop.any() {
			return 0
		}
		c.retval = v
		c.stop.Return = true
		return v

	case exec.KBreak:
		c.stop.Break = true
		return 0

	case exec.KBlock:
		var v uint64
		for _, it := range n.Items {
			v = c.Eval(it)
			if c.stop.any() {
				break
			}
		}
		return v

	case exec.KLet:
		for _, it := range n.Items {
			c.Eval(it)
			if c.stop.any() {
				return 0
			}
		}
		return c.Eval(n.A)

	case exec.KCopyValue:
		dst := int64(c.Eval(n.A))
		if c.stop.any() {
			return 0
		}
		v := c.Eval(n.B)
		if c.stop.any() {
			return 0
		}
		c.WriteWord(dst, v)
		return 0

	case exec.KCopyRefValue:
		dst := int64(c.Eval(n.A))
		if c.stop.any() {
			return 0
		}
		src := int64(c.Eval(n.B))
		if c.stop.any() {
			return 0
		}
		copy(c.ReadBytes(dst, n.Size), c.ReadBytes(src, n.Size))
		return 0

	case exec.KInitLocal:
		addr := addrOf(spaceStack, c.frameBase+int64(n.Offset))
		buf := c.ReadBytes(addr, n.Size)
		for i := range buf {
			buf[i] = 0
		}
		return 0

	case exec.KIfThenElse:
		cond := c.Eval(n.A)
		if c.stop.any() {
			return 0
		}
		if cond != 0 {
			return c.Eval(n.B)
		}
		if n.C != exec.Nil {
			return c.Eval(n.C)
		}
		return 0

	case exec.KWhile:
		for {
			cond := c.Eval(n.A)
			if c.stop.any() {
				return 0
			}
			if cond == 0 {
				return 0
			}
			c.Eval(n.B)
			if c.stop.Break {
				c.stop.Break = false
				return 0
			}
			if c.stop.any() {
				return 0
			}
		}

	case exec.KForeach:
		isRange := c.Arena.At(n.A).Kind == exec.KRangeOf
		head := int64(c.Eval(n.A))
		if c.stop.any() {
			return 0
		}
		slot := addrOf(spaceStack, c.frameBase+int64(n.IterSlot))
		if isRange {
			lo := int64(c.ReadWord(head))
			hi := int64(c.ReadWord(head + 8))
			for i := lo; i < hi; i++ {
				c.WriteWord(slot, uint64(i))
				c.Eval(n.B)
				if c.stop.Break {
					c.stop.Break = false
					return 0
				}
				if c.stop.any() {
					return 0
				}
			}
			return 0
		}
		for i := 0; i < n.Range; i++ {
			elem := head + int64(i)*int64(n.Stride)
			copy(c.ReadBytes(slot, n.Stride), c.ReadBytes(elem, n.Stride))
			c.Eval(n.B)
			if c.stop.Break {
				c.stop.Break = false
				return 0
			}
			if c.stop.any() {
				return 0
			}
		}
		return 0

	case exec.KTryCatch:
		v := c.Eval(n.A)
		if c.stop.Fail {
			c.stop.Fail = false
			c.failErr = nil
			return c.Eval(n.B)
		}
		return v

	case exec.KCall:
		return c.call(n)

	case exec.KNative:
		args := make([]uint64, len(n.Items))
		for i, it := range n.Items {
			args[i] = c.Eval(it)
			if c.stop.any() {
				return 0
			}
		}
		v, err := n.Native(c, args)
		if err != nil {
			return c.fail("%s", err)
		}
		return v

	default:
		panic(fmt.Sprintf("runtime: unhandled node kind %d", n.Kind))
	}
}

// call implements spec §4.8's calling convention: evaluate each
// argument in the caller's frame, stage the results into a fresh
// argument frame, reserve a new stack window sized to the callee's
// total_stack_size, run its entry node, then restore the caller's
// windows. Built-ins skip the stop-flag/return-register protocol
// entirely: their entry node's own evaluated value IS the result.
func (c *Context) call(n *exec.Node) uint64 {
	argVals := make([]uint64, len(n.Items))
	for i, it := range n.Items {
		argVals[i] = c.Eval(it)
		if c.stop.any() {
			return 0
		}
	}
	return c.enterCall(n.Func, argVals)
}

// enterCall performs the frame/argument-window staging shared by an
// in-script Call node and a host-initiated Invoke.
func (c *Context) enterCall(fn *symbols.Function, argVals []uint64) uint64 {
	c.depth++
	if c.depth > c.maxDepth {
		c.depth--
		return c.fail("stack overflow: call depth exceeded %d", c.maxDepth)
	}
	defer func() { c.depth-- }()

	newArgBase := c.argCursor
	needed := newArgBase + int64(len(argVals))*8
	if needed > int64(len(c.argStack)) {
		grown := make([]byte, needed*2+64)
		copy(grown, c.argStack)
		c.argStack = grown
	}
	for i, v := range argVals {
		c.WriteWord(addrOf(spaceArg, newArgBase+int64(i)*8), v)
	}

	c.argBaseStack = append(c.argBaseStack, c.argBase)
	c.argBase = newArgBase
	c.argCursor += int64(len(argVals)) * 8

	newFrameBase := c.frameCursor
	frameNeeded := newFrameBase + int64(fn.StackSize)
	if frameNeeded > int64(len(c.stack)) {
		grown := make([]byte, frameNeeded*2+64)
		copy(grown, c.stack)
		c.stack = grown
	}
	c.frameBaseStack = append(c.frameBaseStack, c.frameBase)
	c.frameBase = newFrameBase
	c.frameCursor += int64(fn.StackSize)

	entry := c.entries[fn.Index]
	result := c.Eval(entry)
	if !fn.BuiltIn {
		if c.stop.Return {
			result = c.retval
			c.stop.Return = false
		} else {
			result = 0
		}
	}

	c.frameCursor = c.frameBase
	c.frameBase = c.frameBaseStack[len(c.frameBaseStack)-1]
	c.frameBaseStack = c.frameBaseStack[:len(c.frameBaseStack)-1]

	c.argCursor = c.argBase
	c.argBase = c.argBaseStack[len(c.argBaseStack)-1]
	c.argBaseStack = c.argBaseStack[:len(c.argBaseStack)-1]

	return result
}

// Invoke runs the function at the given dense index with the given
// argument words and returns its result, or the error raised by an
// uncaught Fail/Terminate stop (spec §6 "invoke(Context, function_index,
// argv) -> value").
func (c *Context) Invoke(functionIndex int, argv []uint64) (uint64, error) {
	if functionIndex < 0 || functionIndex >= len(c.funcs) || c.funcs[functionIndex] == nil {
		return 0, fmt.Errorf("runtime: no function at index %d", functionIndex)
	}
	fn := c.funcs[functionIndex]
	if len(argv) != len(fn.Args) {
		return 0, fmt.Errorf("runtime: function %q takes %d argument(s), got %d", fn.Name, len(fn.Args), len(argv))
	}
	c.stop = StopFlags{}
	c.failErr = nil
	result := c.enterCall(fn, argv)
	if c.failErr != nil {
		return 0, c.failErr
	}
	if c.stop.Terminate {
		return 0, fmt.Errorf("runtime: execution was terminated")
	}
	return result, nil
}
