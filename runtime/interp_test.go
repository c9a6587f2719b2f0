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

// TestForeachSumsArrayElements hand-lowers spec §8 scenario 4 ("array
// indexing and foreach"): a global int[3] pre-populated with
// {10,20,30}, summed via KForeach into a KNative accumulator, matching
// the scenario's literal expected result of 60.
func TestForeachSumsArrayElements(t *testing.T) {
	prog := symbols.NewProgram()
	arrType := types.Int().WithDims(3)
	arrVar := &symbols.Variable{Name: "a", Type: arrType}
	require.NoError(t, prog.AddGlobal(arrVar))

	fn := &symbols.Function{Name: "sum", Result: types.Int(), StackSize: 16}
	require.NoError(t, prog.AddFunction(fn))

	arena := exec.NewArena(16)

	var sum int64
	accumulate := exec.NativeFn(func(m exec.Machine, args []uint64) (uint64, error) {
		sum += int64(args[0])
		return 0, nil
	})

	iterSlot := 0
	headAddr := arena.Alloc(exec.Node{Kind: exec.KGetGlobal, Type: arrType.WithRef(true), Offset: arrVar.Offset})
	iterVal := arena.Alloc(exec.Node{Kind: exec.KGetLocal, Type: types.Int().WithRef(true), Offset: iterSlot})
	iterDeref := arena.Alloc(exec.Node{Kind: exec.KRef2Value, Type: types.Int(), A: iterVal})
	body := arena.Alloc(exec.Node{Kind: exec.KNative, Type: types.Void(), Items: []exec.NodeRef{iterDeref}, Native: accumulate})
	foreach := arena.Alloc(exec.Node{
		Kind: exec.KForeach, Type: types.Void(),
		A: headAddr, B: body,
		IterSlot: iterSlot, Stride: 8, Range: 3,
	})
	retVal := arena.Alloc(exec.Node{Kind: exec.KConstInt, Type: types.Int()})
	ret := arena.Alloc(exec.Node{Kind: exec.KReturn, Type: types.Void(), A: retVal})
	entry := arena.Alloc(exec.Node{Kind: exec.KBlock, Type: types.Void(), Items: []exec.NodeRef{foreach, ret}})

	entries := []exec.NodeRef{entry}
	ctx := NewContext(prog, arena, entries, prog.GlobalBytes())

	globalAddr := addrOf(spaceGlobal, int64(arrVar.Offset))
	for i, v := range []int64{10, 20, 30} {
		ctx.WriteWord(globalAddr+int64(i)*8, uint64(v))
	}

	// KReturn with a zero-valued ConstInt is just a stop-flag signal
	// here; the test reads the accumulator the native closure built up
	// directly, since the return value itself is not under test.
	_, err := ctx.Invoke(0, nil)
	require.NoError(t, err)
	require.Equal(t, int64(60), sum)
}

// TestForeachBreakStopsEarly confirms a break inside a foreach body
// clears only the break flag and stops iteration, per spec §4.8's
// stop-flag handling for KForeach.
func TestForeachBreakStopsEarly(t *testing.T) {
	prog := symbols.NewProgram()
	arrType := types.Int().WithDims(5)
	arrVar := &symbols.Variable{Name: "a", Type: arrType}
	require.NoError(t, prog.AddGlobal(arrVar))
	fn := &symbols.Function{Name: "f", Result: types.Int(), StackSize: 16}
	require.NoError(t, prog.AddFunction(fn))

	arena := exec.NewArena(16)
	var iterations int
	count := exec.NativeFn(func(m exec.Machine, args []uint64) (uint64, error) {
		iterations++
		return 0, nil
	})

	headAddr := arena.Alloc(exec.Node{Kind: exec.KGetGlobal, Type: arrType.WithRef(true), Offset: arrVar.Offset})
	countCall := arena.Alloc(exec.Node{Kind: exec.KNative, Type: types.Void(), Native: count})
	brk := arena.Alloc(exec.Node{Kind: exec.KBreak, Type: types.Void()})
	body := arena.Alloc(exec.Node{Kind: exec.KBlock, Type: types.Void(), Items: []exec.NodeRef{countCall, brk}})
	foreach := arena.Alloc(exec.Node{Kind: exec.KForeach, Type: types.Void(), A: headAddr, B: body, Stride: 8, Range: 5})
	retVal := arena.Alloc(exec.Node{Kind: exec.KConstInt, Type: types.Int()})
	ret := arena.Alloc(exec.Node{Kind: exec.KReturn, Type: types.Void(), A: retVal})
	entry := arena.Alloc(exec.Node{Kind: exec.KBlock, Type: types.Void(), Items: []exec.NodeRef{foreach, ret}})

	ctx := NewContext(prog, arena, []exec.NodeRef{entry}, prog.GlobalBytes())
	_, err := ctx.Invoke(0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, iterations, "break must stop the loop after its first iteration")
}

// TestAtOutOfRangeFailsAndTryCatchRecovers hand-lowers spec §8
// scenario 6: indexing an array of size 3 at index 99 raises a
// recoverable failure, caught by the nearest TryCatch.
func TestAtOutOfRangeFailsAndTryCatchRecovers(t *testing.T) {
	prog := symbols.NewProgram()
	arrType := types.Int().WithDims(3)
	arrVar := &symbols.Variable{Name: "a", Type: arrType}
	require.NoError(t, prog.AddGlobal(arrVar))
	fn := &symbols.Function{Name: "f", Result: types.Int(), StackSize: 16}
	require.NoError(t, prog.AddFunction(fn))

	arena := exec.NewArena(16)
	headAddr := arena.Alloc(exec.Node{Kind: exec.KGetGlobal, Type: arrType.WithRef(true), Offset: arrVar.Offset})
	idx := arena.Alloc(exec.Node{Kind: exec.KConstInt, Type: types.Int(), IntVal: 99})
	at := arena.Alloc(exec.Node{Kind: exec.KAt, Type: types.Int().WithRef(true), A: headAddr, B: idx, Stride: 8, Range: 3})
	tryBranch := arena.Alloc(exec.Node{Kind: exec.KRef2Value, Type: types.Int(), A: at})
	catchBranch := arena.Alloc(exec.Node{Kind: exec.KConstInt, Type: types.Int(), IntVal: 0})
	tryCatch := arena.Alloc(exec.Node{Kind: exec.KTryCatch, Type: types.Int(), A: tryBranch, B: catchBranch})
	ret := arena.Alloc(exec.Node{Kind: exec.KReturn, Type: types.Void(), A: tryCatch})

	ctx := NewContext(prog, arena, []exec.NodeRef{ret}, prog.GlobalBytes())
	result, err := ctx.Invoke(0, nil)
	require.NoError(t, err, "the out-of-range index must be recovered by try/catch, not surfaced as a Go error")
	require.Equal(t, uint64(0), result)
}

// TestAtOutOfRangeWithoutTryCatchFails confirms the same out-of-range
// access becomes an uncaught error when there is no enclosing
// TryCatch.
func TestAtOutOfRangeWithoutTryCatchFails(t *testing.T) {
	prog := symbols.NewProgram()
	arrType := types.Int().WithDims(3)
	arrVar := &symbols.Variable{Name: "a", Type: arrType}
	require.NoError(t, prog.AddGlobal(arrVar))
	fn := &symbols.Function{Name: "f", Result: types.Int(), StackSize: 16}
	require.NoError(t, prog.AddFunction(fn))

	arena := exec.NewArena(16)
	headAddr := arena.Alloc(exec.Node{Kind: exec.KGetGlobal, Type: arrType.WithRef(true), Offset: arrVar.Offset})
	idx := arena.Alloc(exec.Node{Kind: exec.KConstInt, Type: types.Int(), IntVal: 99})
	at := arena.Alloc(exec.Node{Kind: exec.KAt, Type: types.Int().WithRef(true), A: headAddr, B: idx, Stride: 8, Range: 3})
	deref := arena.Alloc(exec.Node{Kind: exec.KRef2Value, Type: types.Int(), A: at})
	ret := arena.Alloc(exec.Node{Kind: exec.KReturn, Type: types.Void(), A: deref})

	ctx := NewContext(prog, arena, []exec.NodeRef{ret}, prog.GlobalBytes())
	_, err := ctx.Invoke(0, nil)
	require.Error(t, err)
}
