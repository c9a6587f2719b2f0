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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doytsujin/daScript/exec"
	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/types"
)

// TestRangeBuiltinsRoundTrip exercises rangeNew/rangeLow/rangeHigh
// directly: a range is a 16-byte {lo,hi} heap blob, per types.KindRange's
// scalarSize.
func TestRangeBuiltinsRoundTrip(t *testing.T) {
	prog := symbols.NewProgram()
	ctx := NewContext(prog, exec.NewArena(1), nil, 0)

	addr := ctx.rangeNew(3, 9)
	require.Equal(t, int64(3), ctx.rangeLow(addr))
	require.Equal(t, int64(9), ctx.rangeHigh(addr))

	// ranges can be negative-bounded (a half-open interval, not a size).
	addr2 := ctx.rangeNew(-5, 0)
	require.Equal(t, int64(-5), ctx.rangeLow(addr2))
	require.Equal(t, int64(0), ctx.rangeHigh(addr2))
}

// TestForeachOverRangeIteratesLowToHigh hand-lowers a Range-headed
// KForeach (exec.KRangeOf wrapping a range value), mirroring
// TestForeachSumsArrayElements's array-headed construction: a foreach
// over range(2,6) must bind the iterator to 2,3,4,5 in order, each as
// a raw int word rather than an address into array memory.
func TestForeachOverRangeIteratesLowToHigh(t *testing.T) {
	prog := symbols.NewProgram()
	fn := &symbols.Function{Name: "f", Result: types.Int(), StackSize: 16}
	require.NoError(t, prog.AddFunction(fn))

	arena := exec.NewArena(16)

	var seen []int64
	collect := exec.NativeFn(func(m exec.Machine, args []uint64) (uint64, error) {
		seen = append(seen, int64(args[0]))
		return 0, nil
	})

	ctx := NewContext(prog, arena, make([]exec.NodeRef, 1), prog.GlobalBytes())
	rangeAddr := ctx.rangeNew(2, 6)

	// The range value is already materialized on the heap (as rangeNew
	// would leave it after a `range` builtin call); a KConstInt standing
	// in for "the address of a range-typed head" is wrapped in KRangeOf
	// exactly as exec.Lower's Foreach case does for a Range-typed head.
	headAddr := arena.Alloc(exec.Node{Kind: exec.KConstInt, Type: types.Int(), IntVal: rangeAddr})
	rangeOf := arena.Alloc(exec.Node{Kind: exec.KRangeOf, Type: types.TypeDecl{Base: types.KindRange}, A: headAddr})

	iterSlot := 0
	iterVal := arena.Alloc(exec.Node{Kind: exec.KGetLocal, Type: types.Int().WithRef(true), Offset: iterSlot})
	iterDeref := arena.Alloc(exec.Node{Kind: exec.KRef2Value, Type: types.Int(), A: iterVal})
	body := arena.Alloc(exec.Node{Kind: exec.KNative, Type: types.Void(), Items: []exec.NodeRef{iterDeref}, Native: collect})
	foreach := arena.Alloc(exec.Node{
		Kind: exec.KForeach, Type: types.Void(),
		A: rangeOf, B: body,
		IterSlot: iterSlot, Stride: 8, Range: -1,
	})
	retVal := arena.Alloc(exec.Node{Kind: exec.KConstInt, Type: types.Int()})
	ret := arena.Alloc(exec.Node{Kind: exec.KReturn, Type: types.Void(), A: retVal})
	entry := arena.Alloc(exec.Node{Kind: exec.KBlock, Type: types.Void(), Items: []exec.NodeRef{foreach, ret}})
	ctx.entries[0] = entry

	_, err := ctx.Invoke(0, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3, 4, 5}, seen)
}

// TestForeachOverEmptyRangeDoesNotIterate confirms a range whose low
// bound is not strictly less than its high bound contributes zero
// iterations, matching the half-open-interval semantics rangeNew's
// doc comment describes.
func TestForeachOverEmptyRangeDoesNotIterate(t *testing.T) {
	prog := symbols.NewProgram()
	fn := &symbols.Function{Name: "f", Result: types.Void(), StackSize: 16}
	require.NoError(t, prog.AddFunction(fn))

	arena := exec.NewArena(16)
	var iterations int
	count := exec.NativeFn(func(m exec.Machine, args []uint64) (uint64, error) {
		iterations++
		return 0, nil
	})

	ctx := NewContext(prog, arena, make([]exec.NodeRef, 1), prog.GlobalBytes())
	rangeAddr := ctx.rangeNew(5, 5)

	headAddr := arena.Alloc(exec.Node{Kind: exec.KConstInt, Type: types.Int(), IntVal: rangeAddr})
	rangeOf := arena.Alloc(exec.Node{Kind: exec.KRangeOf, Type: types.TypeDecl{Base: types.KindRange}, A: headAddr})
	body := arena.Alloc(exec.Node{Kind: exec.KNative, Type: types.Void(), Native: count})
	foreach := arena.Alloc(exec.Node{Kind: exec.KForeach, Type: types.Void(), A: rangeOf, B: body, Stride: 8, Range: -1})
	entry := arena.Alloc(exec.Node{Kind: exec.KBlock, Type: types.Void(), Items: []exec.NodeRef{foreach}})
	ctx.entries[0] = entry

	_, err := ctx.Invoke(0, nil)
	require.NoError(t, err)
	require.Equal(t, 0, iterations)
}
