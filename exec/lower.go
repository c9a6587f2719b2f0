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
	"github.com/doytsujin/daScript/ast"
	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/types"
)

// Builder scopes one function's lowering pass: it owns no state of its
// own beyond which Arena and Function/Program it is lowering against
// (mirrors how plan/pir's build.go threads a *Trace through one query's
// worth of expression lowering).
type Builder struct {
	Arena *Arena
	Prog  *symbols.Program
	Func  *symbols.Function
}

// NewBuilder returns a Builder that lowers fn's body (or native factory)
// into arena.
func NewBuilder(arena *Arena, prog *symbols.Program, fn *symbols.Function) *Builder {
	return &Builder{Arena: arena, Prog: prog, Func: fn}
}

// Arg returns a node that reads the address of argument i (see
// Context.argBase in package runtime for why arguments are addressable
// like locals: spec's worked example for `add(int a, int b)` requires
// referencing `a`/`b` to auto-dereference, which only makes sense if
// Var/GetArgument produces an address, mirroring GetLocal/GetGlobal).
func (b *Builder) Arg(i int) NodeRef {
	a := b.Func.Args[i]
	return b.Arena.Alloc(Node{Kind: KGetArgument, Type: a.Type.WithRef(true), Offset: i})
}

// ArgValue returns a node producing argument i's value: for a
// word-scalar formal, the dereferenced word (matching the
// NativeFn.args contract: "for a word-scalar argument, its value");
// for anything else, the bare address, since the native function
// receives and manages structured/variable-size data by address.
func (b *Builder) ArgValue(i int) NodeRef {
	addr := b.Arg(i)
	a := b.Func.Args[i]
	if !a.Type.IsWordScalar() {
		return addr
	}
	t := a.Type.WithRef(false)
	return b.Arena.Alloc(Node{Kind: KRef2Value, Type: t, A: addr})
}

// Native allocates a KNative node computing fn over the given
// already-lowered argument nodes. It is the building block
// NativeFactory implementations use (see package runtime/builtins.go).
func (b *Builder) Native(resultType types.TypeDecl, fn NativeFn, args ...NodeRef) NodeRef {
	return b.Arena.Alloc(Node{Kind: KNative, Type: resultType, Items: args, Native: fn})
}

// LowerFunction lowers fn's entry node: for a user function, its typed
// AST body; for a built-in, its NativeFactory. Returns the entry
// NodeRef to store in the runtime's per-function entry table.
func LowerFunction(arena *Arena, prog *symbols.Program, fn *symbols.Function) (NodeRef, error) {
	b := NewBuilder(arena, prog, fn)
	if fn.BuiltIn {
		factory, ok := fn.NativeNode.(NativeFactory)
		if !ok || factory == nil {
			return Nil, errorfFn(fn, "built-in function %q has no native node factory", fn.Mangled)
		}
		return factory(b), nil
	}
	body, ok := fn.Body.(ast.Expr)
	if !ok || body == nil {
		return Nil, errorfFn(fn, "function %q has no lowerable body", fn.Mangled)
	}
	return Lower(b, body)
}

// Lower translates one typed AST expression into a fresh SimNode tree
// in b.Arena, per spec §4.7. It mirrors resolve.Infer's type-switch
// dispatch shape but targets the execution graph instead of type
// annotations.
func Lower(b *Builder, e ast.Expr) (NodeRef, error) {
	switch n := e.(type) {
	case *ast.ConstBool:
		return b.Arena.Alloc(Node{Kind: KConstBool, Type: *n.Type(), BoolVal: n.Value}), nil
	case *ast.ConstInt:
		return b.Arena.Alloc(Node{Kind: KConstInt, Type: *n.Type(), IntVal: n.Value}), nil
	case *ast.ConstUint:
		return b.Arena.Alloc(Node{Kind: KConstUint, Type: *n.Type(), UintVal: n.Value}), nil
	case *ast.ConstFloat:
		return b.Arena.Alloc(Node{Kind: KConstFloat, Type: *n.Type(), FloatVal: n.Value}), nil
	case *ast.ConstString:
		return b.Arena.Alloc(Node{Kind: KConstString, Type: *n.Type(), StrVal: n.Value}), nil
	case *ast.ConstNullptr:
		return b.Arena.Alloc(Node{Kind: KConstNullptr, Type: *n.Type()}), nil

	case *ast.Var:
		return lowerVar(b, n)

	case *ast.Field:
		addr, err := Lower(b, n.Value)
		if err != nil {
			return Nil, err
		}
		return b.Arena.Alloc(Node{Kind: KField, Type: *n.Type(), A: addr, Offset: n.Resolved.Offset}), nil

	case *ast.At:
		base, err := Lower(b, n.Value)
		if err != nil {
			return Nil, err
		}
		idx, err := Lower(b, n.Index)
		if err != nil {
			return Nil, err
		}
		arrType := *n.Value.Type()
		return b.Arena.Alloc(Node{
			Kind: KAt, Type: *n.Type(),
			A: base, B: idx,
			Stride: arrType.Stride(), Range: arrType.LastDim(),
		}), nil

	case *ast.Ref2Value:
		addr, err := Lower(b, n.Value)
		if err != nil {
			return Nil, err
		}
		return b.Arena.Alloc(Node{Kind: KRef2Value, Type: *n.Type(), A: addr}), nil

	case *ast.Ptr2Ref:
		ptrVal, err := Lower(b, n.Value)
		if err != nil {
			return Nil, err
		}
		return b.Arena.Alloc(Node{Kind: KPtr2Ref, Type: *n.Type(), A: ptrVal}), nil

	case *ast.New:
		size := n.StructType.SizeOf()
		return b.Arena.Alloc(Node{Kind: KNew, Type: *n.Type(), Size: size}), nil

	case *ast.SizeOf:
		var size int
		if n.Value != nil {
			size = n.Value.Type().SizeOf()
		} else {
			size = n.OfType.SizeOf()
		}
		return b.Arena.Alloc(Node{Kind: KConstInt, Type: types.Int(), IntVal: int64(size)}), nil

	case *ast.Return:
		var val NodeRef = Nil
		if n.Value != nil {
			v, err := Lower(b, n.Value)
			if err != nil {
				return Nil, err
			}
			val = v
		}
		return b.Arena.Alloc(Node{Kind: KReturn, Type: types.Void(), A: val}), nil

	case *ast.Break:
		return b.Arena.Alloc(Node{Kind: KBreak, Type: types.Void()}), nil

	case *ast.Block:
		items := make([]NodeRef, len(n.Items))
		for i, it := range n.Items {
			r, err := Lower(b, it)
			if err != nil {
				return Nil, err
			}
			items[i] = r
		}
		return b.Arena.Alloc(Node{Kind: KBlock, Type: types.Void(), Items: items}), nil

	case *ast.Let:
		return lowerLet(b, n)

	case *ast.IfThenElse:
		cond, err := Lower(b, n.Cond)
		if err != nil {
			return Nil, err
		}
		then, err := Lower(b, n.Then)
		if err != nil {
			return Nil, err
		}
		els := Nil
		if n.Else != nil {
			e, err := Lower(b, n.Else)
			if err != nil {
				return Nil, err
			}
			els = e
		}
		return b.Arena.Alloc(Node{Kind: KIfThenElse, Type: types.Void(), A: cond, B: then, C: els}), nil

	case *ast.While:
		cond, err := Lower(b, n.Cond)
		if err != nil {
			return Nil, err
		}
		body, err := Lower(b, n.Body)
		if err != nil {
			return Nil, err
		}
		return b.Arena.Alloc(Node{Kind: KWhile, Type: types.Void(), A: cond, B: body}), nil

	case *ast.Foreach:
		head, err := Lower(b, n.Head)
		if err != nil {
			return Nil, err
		}
		body, err := Lower(b, n.Body)
		if err != nil {
			return Nil, err
		}
		headType := *n.Head.Type()
		if headType.Base == types.KindRange {
			// A Range head has no static element count or stride: the
			// interpreter reads {lo,hi} off the RangeOf node at entry
			// and counts iterations dynamically (Range: -1).
			rangeOf := b.Arena.Alloc(Node{Kind: KRangeOf, Type: headType, A: head})
			return b.Arena.Alloc(Node{
				Kind: KForeach, Type: types.Void(),
				A: rangeOf, B: body,
				IterSlot: n.IterVar.Offset,
				Stride:   8,
				Range:    -1,
			}), nil
		}
		elemSize := headType.DropLastDim().SizeOf()
		return b.Arena.Alloc(Node{
			Kind: KForeach, Type: types.Void(),
			A: head, B: body,
			IterSlot: n.IterVar.Offset,
			Stride:   elemSize,
			Range:    headType.LastDim(),
		}), nil

	case *ast.TryCatch:
		try, err := Lower(b, n.Try)
		if err != nil {
			return Nil, err
		}
		catch, err := Lower(b, n.Catch)
		if err != nil {
			return Nil, err
		}
		return b.Arena.Alloc(Node{Kind: KTryCatch, Type: *n.Type(), A: try, B: catch}), nil

	case *ast.Call:
		return lowerCall(b, *n.Type(), n.Resolved, n.Args)
	case *ast.Op1:
		return lowerCall(b, *n.Type(), n.Resolved, []ast.Expr{n.A})
	case *ast.Op2:
		return lowerCall(b, *n.Type(), n.Resolved, []ast.Expr{n.A, n.B})
	case *ast.Op3:
		return lowerCall(b, *n.Type(), n.Resolved, []ast.Expr{n.A, n.B, n.C})

	default:
		return Nil, errorf(e, "exec: unhandled AST node type %T", e)
	}
}

func lowerVar(b *Builder, n *ast.Var) (NodeRef, error) {
	switch n.Scope {
	case ast.ScopeLocal:
		return b.Arena.Alloc(Node{Kind: KGetLocal, Type: *n.Type(), Offset: n.Resolved.Offset}), nil
	case ast.ScopeArgument:
		return b.Arena.Alloc(Node{Kind: KGetArgument, Type: *n.Type(), Offset: n.Resolved.Index}), nil
	case ast.ScopeGlobal:
		return b.Arena.Alloc(Node{Kind: KGetGlobal, Type: *n.Type(), Offset: n.Resolved.Offset}), nil
	default:
		return Nil, errorf(n, "exec: variable %q was never resolved", n.Name)
	}
}

// lowerCall lowers a Call/Op1/Op2/Op3 uniformly: all three operator
// arities resolve and lower exactly like an ordinary call (spec §9
// Open Question: "make 3-ary lowering consistent with 1- and 2-ary").

// lowerLet lowers each declared local's init/zero-init node (spec's
// CopyValue/CopyRefValue/InitLocal primitives), followed by the body.
func lowerLet(b *Builder, n *ast.Let) (NodeRef, error) {
	items := make([]NodeRef, 0, len(n.Vars))
	for i, v := range n.Vars {
		dst := b.Arena.Alloc(Node{Kind: KGetLocal, Type: v.Type.WithRef(true), Offset: v.Offset})
		var init ast.Expr
		if i < len(n.Inits) {
			init = n.Inits[i]
		}
		if init == nil {
			items = append(items, b.Arena.Alloc(Node{Kind: KInitLocal, Type: types.Void(), Offset: v.Offset, Size: v.Type.SizeOf()}))
			continue
		}
		src, err := Lower(b, init)
		if err != nil {
			return Nil, err
		}
		if v.Type.IsWordScalar() {
			items = append(items, b.Arena.Alloc(Node{Kind: KCopyValue, Type: types.Void(), A: dst, B: src}))
		} else {
			items = append(items, b.Arena.Alloc(Node{Kind: KCopyRefValue, Type: types.Void(), A: dst, B: src, Size: v.Type.SizeOf()}))
		}
	}
	sub, err := Lower(b, n.Sub)
	if err != nil {
		return Nil, err
	}
	return b.Arena.Alloc(Node{Kind: KLet, Type: *n.Type(), Items: items, A: sub}), nil
}

func lowerCall(b *Builder, resultType types.TypeDecl, fn *symbols.Function, args []ast.Expr) (NodeRef, error) {
	items := make([]NodeRef, len(args))
	slots := make([]int, len(args))
	for i, a := range args {
		r, err := Lower(b, a)
		if err != nil {
			return Nil, err
		}
		items[i] = r
		slots[i] = i * 8
	}
	return b.Arena.Alloc(Node{
		Kind: KCall, Type: resultType,
		Items: items, Func: fn, ArgSlots: slots,
	}), nil
}
