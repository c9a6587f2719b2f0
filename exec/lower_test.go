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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doytsujin/daScript/ast"
	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/types"
)

var loc = types.Loc{File: "t.ds", Line: 1, Column: 1}

func newConstInt(v int64) *ast.ConstInt {
	e := ast.NewConstInt(loc, v)
	e.SetType(types.Int())
	return e
}

// TestLowerConstAllocatesTypedLiteralNode confirms a bare literal
// lowers to a single KConstInt node carrying its value and type.
func TestLowerConstAllocatesTypedLiteralNode(t *testing.T) {
	arena := NewArena(4)
	b := NewBuilder(arena, symbols.NewProgram(), &symbols.Function{})

	ref, err := Lower(b, newConstInt(42))
	require.NoError(t, err)

	n := arena.At(ref)
	require.Equal(t, KConstInt, n.Kind)
	require.Equal(t, int64(42), n.IntVal)
	require.Equal(t, types.KindInt, n.Type.Base)
}

// TestLowerVarDispatchesByScope confirms lowerVar picks KGetLocal,
// KGetArgument or KGetGlobal according to the resolved Var's Scope,
// per spec §4.7's address-producing contract for each scope kind.
func TestLowerVarDispatchesByScope(t *testing.T) {
	arena := NewArena(8)
	b := NewBuilder(arena, symbols.NewProgram(), &symbols.Function{})

	local := &symbols.Variable{Name: "x", Type: types.Int(), Offset: 3}
	v := ast.NewVar(loc, "x")
	v.SetType(types.Int())
	v.Scope = ast.ScopeLocal
	v.Resolved = local

	ref, err := Lower(b, v)
	require.NoError(t, err)
	require.Equal(t, KGetLocal, arena.At(ref).Kind)
	require.Equal(t, 3, arena.At(ref).Offset)

	arg := &symbols.Variable{Name: "a", Type: types.Int(), Index: 1}
	v2 := ast.NewVar(loc, "a")
	v2.SetType(types.Int())
	v2.Scope = ast.ScopeArgument
	v2.Resolved = arg

	ref2, err := Lower(b, v2)
	require.NoError(t, err)
	require.Equal(t, KGetArgument, arena.At(ref2).Kind)
	require.Equal(t, 1, arena.At(ref2).Offset)

	glob := &symbols.Variable{Name: "g", Type: types.Int(), Offset: 7}
	v3 := ast.NewVar(loc, "g")
	v3.SetType(types.Int())
	v3.Scope = ast.ScopeGlobal
	v3.Resolved = glob

	ref3, err := Lower(b, v3)
	require.NoError(t, err)
	require.Equal(t, KGetGlobal, arena.At(ref3).Kind)
	require.Equal(t, 7, arena.At(ref3).Offset)
}

// TestLowerVarUnresolvedErrors confirms Lower refuses to lower a Var
// that Infer never visited (ScopeUnresolved), rather than emitting a
// malformed node.
func TestLowerVarUnresolvedErrors(t *testing.T) {
	arena := NewArena(4)
	b := NewBuilder(arena, symbols.NewProgram(), &symbols.Function{})

	v := ast.NewVar(loc, "mystery")
	v.SetType(types.Int())
	_, err := Lower(b, v)
	require.Error(t, err)
}

// TestLowerOp2AsCallProducesKCallWithBothOperands confirms Op2 lowers
// exactly like a 2-arg Call (spec §9 Open Question: operator arities
// lower the same way as an ordinary call).
func TestLowerOp2AsCallProducesKCallWithBothOperands(t *testing.T) {
	arena := NewArena(8)
	b := NewBuilder(arena, symbols.NewProgram(), &symbols.Function{})

	fn := &symbols.Function{Name: "+", Result: types.Int()}
	op := ast.NewOp2(loc, "+", newConstInt(1), newConstInt(2))
	op.SetType(types.Int())
	op.Resolved = fn

	ref, err := Lower(b, op)
	require.NoError(t, err)

	n := arena.At(ref)
	require.Equal(t, KCall, n.Kind)
	require.Same(t, fn, n.Func)
	require.Len(t, n.Items, 2)
	require.Equal(t, []int{0, 8}, n.ArgSlots)
	require.Equal(t, int64(1), arena.At(n.Items[0]).IntVal)
	require.Equal(t, int64(2), arena.At(n.Items[1]).IntVal)
}

// TestLowerBlockPreservesItemOrder confirms a Block lowers each item
// in source order into one KBlock's Items slice.
func TestLowerBlockPreservesItemOrder(t *testing.T) {
	arena := NewArena(8)
	b := NewBuilder(arena, symbols.NewProgram(), &symbols.Function{})

	blk := ast.NewBlock(loc, []ast.Expr{newConstInt(1), newConstInt(2), newConstInt(3)})
	ref, err := Lower(b, blk)
	require.NoError(t, err)

	n := arena.At(ref)
	require.Equal(t, KBlock, n.Kind)
	require.Len(t, n.Items, 3)
	for i, want := range []int64{1, 2, 3} {
		require.Equal(t, want, arena.At(n.Items[i]).IntVal)
	}
}

// TestLowerReturnWithNoValueLeavesANilOperand confirms a bare `return`
// (no expression) lowers to a KReturn whose A is Nil rather than
// attempting to lower a nonexistent value.
func TestLowerReturnWithNoValueLeavesANilOperand(t *testing.T) {
	arena := NewArena(4)
	b := NewBuilder(arena, symbols.NewProgram(), &symbols.Function{})

	ref, err := Lower(b, ast.NewReturn(loc, nil))
	require.NoError(t, err)

	n := arena.At(ref)
	require.Equal(t, KReturn, n.Kind)
	require.Equal(t, Nil, n.A)
}

// TestLowerFunctionRejectsBodylessUserFunction confirms LowerFunction
// refuses to lower a declared (non-builtin) function with no body,
// rather than producing a garbage entry node.
func TestLowerFunctionRejectsBodylessUserFunction(t *testing.T) {
	arena := NewArena(4)
	prog := symbols.NewProgram()
	fn := &symbols.Function{Name: "f", Result: types.Void(), Mangled: "f()"}

	_, err := LowerFunction(arena, prog, fn)
	require.Error(t, err)
}

// TestLowerFunctionUsesNativeFactoryForBuiltins confirms a builtin
// function's entry node comes from its NativeFactory rather than
// attempting to lower a (nonexistent) AST body.
func TestLowerFunctionUsesNativeFactoryForBuiltins(t *testing.T) {
	arena := NewArena(4)
	prog := symbols.NewProgram()

	var sawBuilder *Builder
	factory := NativeFactory(func(b *Builder) NodeRef {
		sawBuilder = b
		return b.Arena.Alloc(Node{Kind: KConstInt, Type: types.Int(), IntVal: 9})
	})
	fn := &symbols.Function{Name: "nine", Result: types.Int(), Mangled: "nine()", BuiltIn: true, NativeNode: factory}

	ref, err := LowerFunction(arena, prog, fn)
	require.NoError(t, err)
	require.Same(t, fn, sawBuilder.Func)
	require.Equal(t, int64(9), arena.At(ref).IntVal)
}

// TestArgValueDereferencesWordScalarsButNotAggregates confirms
// ArgValue adds a KRef2Value for a word-scalar argument's address but
// returns the bare address unchanged for a struct-typed argument,
// matching the NativeFn argument-passing contract.
func TestArgValueDereferencesWordScalarsButNotAggregates(t *testing.T) {
	arena := NewArena(4)
	st := &symbols.Structure{Name: "S"}
	fn := &symbols.Function{Args: []symbols.Variable{
		{Name: "n", Type: types.Int()},
		{Name: "s", Type: types.Struct(st)},
	}}
	b := NewBuilder(arena, symbols.NewProgram(), fn)

	intRef := b.ArgValue(0)
	require.Equal(t, KRef2Value, arena.At(intRef).Kind)

	structRef := b.ArgValue(1)
	require.Equal(t, KGetArgument, arena.At(structRef).Kind)
}
