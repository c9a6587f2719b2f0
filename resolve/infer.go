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
	"fmt"

	"github.com/doytsujin/daScript/ast"
	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/types"
)

// InferProgram runs the resolver over every user-declared (non-builtin)
// function body in the program, in declaration order (spec §5
// "resolver passes are deterministic"). It is the driver behind
// compile()'s final "runs infer_types" step (spec §6).
func InferProgram(prog *symbols.Program) error {
	var errs []error
	for _, fn := range prog.Functions() {
		if fn.BuiltIn {
			continue
		}
		body, _ := fn.Body.(ast.Expr)
		if body == nil {
			errs = append(errs, fmt.Errorf("function %q has no body", fn.Name))
			continue
		}
		ctx := NewContext(prog, fn)
		if err := Infer(ctx, body); err != nil {
			errs = append(errs, err)
			continue
		}
		ctx.FinishFunction()
	}
	return manyErrors(errs)
}

// Infer assigns ctx's types.TypeDecl to e and, recursively, to every
// sub-expression, following the per-variant rules of spec §4.4. It
// also performs the tree rewrites auto-dereference requires (spec
// §4.4 "Auto-dereference"), which is why children are re-assigned back
// onto their parent's fields rather than merely visited.
func Infer(ctx *Context, e ast.Expr) error {
	switch n := e.(type) {
	case *ast.ConstBool:
		n.SetType(types.Bool())
	case *ast.ConstInt:
		n.SetType(types.Int())
	case *ast.ConstUint:
		n.SetType(types.Uint())
	case *ast.ConstFloat:
		n.SetType(types.Float())
	case *ast.ConstString:
		n.SetType(types.String())
	case *ast.ConstNullptr:
		n.SetType(types.TypeDecl{Base: types.KindPointer})
	case *ast.Var:
		return inferVar(ctx, n)
	case *ast.Field:
		return inferField(ctx, n)
	case *ast.At:
		return inferAt(ctx, n)
	case *ast.Call:
		return inferCall(ctx, n)
	case *ast.Op1:
		return inferOp1(ctx, n)
	case *ast.Op2:
		return inferOp2(ctx, n)
	case *ast.Op3:
		return inferOp3(ctx, n)
	case *ast.Ref2Value:
		return inferRef2Value(ctx, n)
	case *ast.Ptr2Ref:
		return inferPtr2Ref(ctx, n)
	case *ast.New:
		return inferNew(ctx, n)
	case *ast.SizeOf:
		return inferSizeOf(ctx, n)
	case *ast.Return:
		return inferReturn(ctx, n)
	case *ast.Break:
		n.SetType(types.Void())
	case *ast.Block:
		return inferBlock(ctx, n)
	case *ast.Let:
		return inferLet(ctx, n)
	case *ast.IfThenElse:
		return inferIf(ctx, n)
	case *ast.While:
		return inferWhile(ctx, n)
	case *ast.Foreach:
		return inferForeach(ctx, n)
	case *ast.TryCatch:
		return inferTryCatch(ctx, n)
	default:
		return fmt.Errorf("resolve: unhandled AST node type %T", e)
	}
	return nil
}

// autoDeref wraps e in a Ref2Value node when e's type is a ref to a
// simple scalar (not a structure, not an array); it is a no-op
// otherwise, per spec §4.4 "Auto-dereference is spelled as wrapping
// the child in a Ref2Value node."
func autoDeref(e ast.Expr) ast.Expr {
	t := e.Type()
	if t == nil || !t.IsRef() {
		return e
	}
	if !t.IsWordScalar() {
		return e
	}
	nt := *t
	nt.Ref = false
	r := ast.NewRef2Value(e.Loc(), e)
	r.SetType(nt)
	return r
}

func inferVar(ctx *Context, n *ast.Var) error {
	if v, ok := ctx.LookupLocal(n.Name); ok {
		n.Scope = ast.ScopeLocal
		n.Resolved = v
		n.SetType(v.Type.WithRef(true))
		return nil
	}
	if v, _, ok := ctx.LookupArgument(n.Name); ok {
		n.Scope = ast.ScopeArgument
		n.Resolved = v
		n.SetType(v.Type.WithRef(true))
		return nil
	}
	if v, ok := ctx.LookupGlobal(n.Name); ok {
		n.Scope = ast.ScopeGlobal
		n.Resolved = v
		n.SetType(v.Type.WithRef(true))
		return nil
	}
	return errtype(n, "undefined variable %q", n.Name)
}

func inferField(ctx *Context, n *ast.Field) error {
	if err := Infer(ctx, n.Value); err != nil {
		return err
	}
	t := *n.Value.Type()
	if t.Base != types.KindStructure || len(t.Dims) > 0 {
		return errtype(n, "field access requires a structure value, got %s", t)
	}
	structure, ok := t.Struct.(*symbols.Structure)
	if !ok || structure == nil {
		return errtype(n, "field access on an incomplete structure type")
	}
	f, ok := structure.FieldByName(n.Name)
	if !ok {
		return errtype(n, "structure %q has no field %q", structure.Name, n.Name)
	}
	n.Resolved = &f
	ft := f.Type
	ft.Ref = t.IsRef()
	n.SetType(ft)
	return nil
}

func inferAt(ctx *Context, n *ast.At) error {
	if err := Infer(ctx, n.Value); err != nil {
		return err
	}
	vt := *n.Value.Type()
	if !vt.IsRef() || len(vt.Dims) == 0 {
		return errtype(n, "indexing requires a ref array type, got %s", vt)
	}
	if err := Infer(ctx, n.Index); err != nil {
		return err
	}
	n.Index = autoDeref(n.Index)
	it := *n.Index.Type()
	if !it.IsIndex() {
		return errtype(n, "array index must be int or uint, got %s", it)
	}
	n.SetType(vt.DropLastDim())
	return nil
}

func inferRef2Value(ctx *Context, n *ast.Ref2Value) error {
	if err := Infer(ctx, n.Value); err != nil {
		return err
	}
	t := *n.Value.Type()
	if !t.IsRef() || !t.IsWordScalar() {
		return errtype(n, "ref2value requires a ref to a simple scalar, got %s", t)
	}
	nt := t
	nt.Ref = false
	n.SetType(nt)
	return nil
}

func inferPtr2Ref(ctx *Context, n *ast.Ptr2Ref) error {
	if err := Infer(ctx, n.Value); err != nil {
		return err
	}
	n.Value = autoDeref(n.Value)
	t := *n.Value.Type()
	if t.Base != types.KindPointer {
		return errtype(n, "ptr2ref requires a pointer type, got %s", t)
	}
	n.SetType(types.TypeDecl{Base: types.KindStructure, Struct: t.Struct, Ref: true})
	return nil
}

// resolveOperands infers each argument, resolves the (name, argtypes)
// overload, auto-dereferences every argument whose formal is non-ref,
// and backfills any omitted trailing defaults (spec §4.5).
func resolveOperands(ctx *Context, at ast.Expr, name string, args []ast.Expr) (*symbols.Function, []ast.Expr, error) {
	actualTypes := make([]types.TypeDecl, len(args))
	for i, a := range args {
		if err := Infer(ctx, a); err != nil {
			return nil, nil, err
		}
		actualTypes[i] = *a.Type()
	}
	fn, err := ResolveOverload(ctx.Program, at, name, actualTypes)
	if err != nil {
		return nil, nil, err
	}
	out := make([]ast.Expr, len(args))
	copy(out, args)
	for i := range out {
		if !fn.Args[i].Type.IsRef() {
			out[i] = autoDeref(out[i])
		}
	}
	for _, d := range BackfillDefaults(fn, len(out)) {
		if d == nil {
			continue
		}
		if d.Type() == nil {
			if err := Infer(ctx, d); err != nil {
				return nil, nil, err
			}
		}
		out = append(out, d)
	}
	return fn, out, nil
}

func inferCall(ctx *Context, n *ast.Call) error {
	fn, args, err := resolveOperands(ctx, n, n.Name, n.Args)
	if err != nil {
		return err
	}
	n.Args = args
	n.Resolved = fn
	n.SetType(fn.Result)
	return nil
}

func inferOp1(ctx *Context, n *ast.Op1) error {
	fn, args, err := resolveOperands(ctx, n, n.Op, []ast.Expr{n.A})
	if err != nil {
		return err
	}
	n.A = args[0]
	n.Resolved = fn
	n.SetType(fn.Result)
	return nil
}

func inferOp2(ctx *Context, n *ast.Op2) error {
	fn, args, err := resolveOperands(ctx, n, n.Op, []ast.Expr{n.A, n.B})
	if err != nil {
		return err
	}
	n.A, n.B = args[0], args[1]
	n.Resolved = fn
	n.SetType(fn.Result)
	return nil
}

// inferOp3 resolves the 3-ary operator exactly like Op1/Op2 (see spec
// §9 Open Question: the 3-ary case is a polymorphic selector that
// evaluates all three children, with the same auto-dereference and
// overload-resolution rules, and no special-casing).
func inferOp3(ctx *Context, n *ast.Op3) error {
	fn, args, err := resolveOperands(ctx, n, n.Op, []ast.Expr{n.A, n.B, n.C})
	if err != nil {
		return err
	}
	n.A, n.B, n.C = args[0], args[1], args[2]
	n.Resolved = fn
	n.SetType(fn.Result)
	return nil
}

func inferNew(ctx *Context, n *ast.New) error {
	st := n.StructType
	if st.Base != types.KindStructure || st.Ref || len(st.Dims) > 0 {
		return errtype(n, "new requires a plain structure type, got %s", st)
	}
	n.SetType(types.TypeDecl{Base: types.KindPointer, Struct: st.Struct})
	return nil
}

func inferSizeOf(ctx *Context, n *ast.SizeOf) error {
	if n.Value != nil {
		if err := Infer(ctx, n.Value); err != nil {
			return err
		}
	} else if n.OfType == nil {
		return errtype(n, "sizeof requires a type or an expression")
	}
	n.SetType(types.Int())
	return nil
}

func inferReturn(ctx *Context, n *ast.Return) error {
	if ctx.Func.Result.Base == types.KindVoid {
		return errtype(n, "return in a void function %q", ctx.Func.Name)
	}
	if n.Value == nil {
		return errtype(n, "return requires a value in non-void function %q", ctx.Func.Name)
	}
	if err := Infer(ctx, n.Value); err != nil {
		return err
	}
	vt := *n.Value.Type()
	if !vt.IsSame(ctx.Func.Result, false) {
		return errtype(n, "return type %s does not match function result type %s", vt, ctx.Func.Result)
	}
	if !ctx.Func.Result.IsRef() {
		n.Value = autoDeref(n.Value)
	}
	n.SetType(ctx.Func.Result.WithRef(true))
	return nil
}

func inferBlock(ctx *Context, n *ast.Block) error {
	for _, it := range n.Items {
		if err := Infer(ctx, it); err != nil {
			return err
		}
	}
	n.SetType(types.Void())
	return nil
}

func inferLet(ctx *Context, n *ast.Let) error {
	markTop, markLen := ctx.mark()
	defer ctx.restore(markTop, markLen)

	for i, v := range n.Vars {
		if i < len(n.Inits) && n.Inits[i] != nil {
			if err := Infer(ctx, n.Inits[i]); err != nil {
				return err
			}
			it := *n.Inits[i].Type()
			if !it.IsSame(v.Type, false) {
				return errtype(n, "initializer type %s does not match declared type %s for %q", it, v.Type, v.Name)
			}
			n.Inits[i] = autoDeref(n.Inits[i])
		}
		ctx.PushLocal(v)
	}
	if err := Infer(ctx, n.Sub); err != nil {
		return err
	}
	n.SetType(*n.Sub.Type())
	return nil
}

func inferIf(ctx *Context, n *ast.IfThenElse) error {
	if err := Infer(ctx, n.Cond); err != nil {
		return err
	}
	n.Cond = autoDeref(n.Cond)
	ct := *n.Cond.Type()
	if ct.Base != types.KindBool || !ct.IsScalar() {
		return errtype(n, "if condition must be a simple bool, got %s", ct)
	}
	if err := Infer(ctx, n.Then); err != nil {
		return err
	}
	if n.Else != nil {
		if err := Infer(ctx, n.Else); err != nil {
			return err
		}
	}
	n.SetType(types.Void())
	return nil
}

func inferWhile(ctx *Context, n *ast.While) error {
	if err := Infer(ctx, n.Cond); err != nil {
		return err
	}
	n.Cond = autoDeref(n.Cond)
	ct := *n.Cond.Type()
	if ct.Base != types.KindBool || !ct.IsScalar() {
		return errtype(n, "while condition must be a simple bool, got %s", ct)
	}
	if err := Infer(ctx, n.Body); err != nil {
		return err
	}
	n.SetType(types.Void())
	return nil
}

func inferForeach(ctx *Context, n *ast.Foreach) error {
	if err := Infer(ctx, n.Head); err != nil {
		return err
	}
	ht := *n.Head.Type()
	var elemType types.TypeDecl
	switch {
	case ht.Base == types.KindRange && len(ht.Dims) == 0:
		// A Range head (spec.md's supplemented range type) yields int
		// iterator values computed from {lo,hi}, not addresses into
		// contiguous memory; see exec.Lower's KRangeOf wrapping.
		elemType = types.Int().WithRef(true)
	case len(ht.Dims) == 1:
		elemType = ht.DropLastDim()
	default:
		return errtype(n, "foreach head must have exactly one array dimension or be a range, got %s", ht)
	}
	if n.IterVar.Type.Base == types.KindNone {
		// Surface syntax gives the iterator no type annotation of its
		// own (spec §8 scenario 4: `(foreach a i (+ s i))`); adopt the
		// head's element type rather than requiring it be pre-declared.
		n.IterVar.Type = elemType
	} else if n.IterVar.Type.Base != elemType.Base {
		return errtype(n, "foreach iterator type %s does not match head element type %s", n.IterVar.Type, elemType)
	} else {
		n.IterVar.Type = n.IterVar.Type.WithRef(true)
	}

	markTop, markLen := ctx.mark()
	ctx.PushLocal(n.IterVar)
	if err := Infer(ctx, n.Body); err != nil {
		ctx.restore(markTop, markLen)
		return err
	}
	ctx.restore(markTop, markLen)
	n.SetType(types.Void())
	return nil
}

func inferTryCatch(ctx *Context, n *ast.TryCatch) error {
	if err := Infer(ctx, n.Try); err != nil {
		return err
	}
	if err := Infer(ctx, n.Catch); err != nil {
		return err
	}
	tt := *n.Try.Type()
	ct := *n.Catch.Type()
	if !tt.IsSame(ct, false) {
		return errtype(n, "try type %s does not match catch type %s", tt, ct)
	}
	n.Try = autoDeref(n.Try)
	n.Catch = autoDeref(n.Catch)
	n.SetType(*n.Try.Type())
	return nil
}
