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
)

// TestTableSetGetRoundTrip exercises a fresh table's basic set/get/len
// contract: tableNew starts empty at capacity 4 (see tableNew), and a key set twice overwrites rather than duplicates.
func TestTableSetGetRoundTrip(t *testing.T) {
	prog := symbols.NewProgram()
	ctx := NewContext(prog, exec.NewArena(1), nil, 0)

	hdr := ctx.tableNew()
	require.Equal(t, int64(0), ctx.tableCount(hdr))
	require.Equal(t, int64(4), ctx.tableCap(hdr))

	ctx.tableSet(hdr, 1, 100)
	ctx.tableSet(hdr, 2, 200)
	require.Equal(t, int64(2), ctx.tableCount(hdr))

	v, ok := ctx.tableGet(hdr, 1)
	require.True(t, ok)
	require.Equal(t, uint64(100), v)

	// Overwriting an existing key updates in place, not append.
	ctx.tableSet(hdr, 1, 999)
	require.Equal(t, int64(2), ctx.tableCount(hdr))
	v, ok = ctx.tableGet(hdr, 1)
	require.True(t, ok)
	require.Equal(t, uint64(999), v)
}

// TestTableGetMissingKeyReportsNotFound confirms a lookup of a key that
// was never set reports ok=false rather than a zero value.
func TestTableGetMissingKeyReportsNotFound(t *testing.T) {
	prog := symbols.NewProgram()
	ctx := NewContext(prog, exec.NewArena(1), nil, 0)
	hdr := ctx.tableNew()
	_, ok := ctx.tableGet(hdr, 42)
	require.False(t, ok)
}

// TestTableGrowsPastInitialCapacity exercises tableGrow by inserting
// more entries than the initial capacity of 4, confirming every
// previously-set key survives the reallocation.
func TestTableGrowsPastInitialCapacity(t *testing.T) {
	prog := symbols.NewProgram()
	ctx := NewContext(prog, exec.NewArena(1), nil, 0)
	hdr := ctx.tableNew()

	const n = 20
	for i := int64(0); i < n; i++ {
		ctx.tableSet(hdr, i, uint64(i*10))
	}
	require.Equal(t, int64(n), ctx.tableCount(hdr))
	require.GreaterOrEqual(t, ctx.tableCap(hdr), int64(n))

	for i := int64(0); i < n; i++ {
		v, ok := ctx.tableGet(hdr, i)
		require.True(t, ok, "key %d must survive growth", i)
		require.Equal(t, uint64(i*10), v)
	}
}

// TestTableBuiltinsViaNativeNodes confirms the registered opSpecs
// (table_new/table_set/table_get/table_len) invoke the same underlying
// Context methods a direct call would, matching how exec.Lower wires a
// KCall's arguments into a KNative node.
func TestTableBuiltinsViaNativeNodes(t *testing.T) {
	prog := symbols.NewProgram()
	require.NoError(t, RegisterBuiltins(prog))
	ctx := NewContext(prog, exec.NewArena(1), make([]exec.NodeRef, prog.NumFunctions()), 0)

	var newFn, setFn, getFn, lenFn exec.NativeFn
	for _, s := range tableSpecs() {
		switch s.name {
		case "table_new":
			newFn = s.fn
		case "table_set":
			setFn = s.fn
		case "table_get":
			getFn = s.fn
		case "table_len":
			lenFn = s.fn
		}
	}
	require.NotNil(t, newFn)
	require.NotNil(t, setFn)
	require.NotNil(t, getFn)
	require.NotNil(t, lenFn)

	hdr, err := newFn(ctx, nil)
	require.NoError(t, err)

	_, err = setFn(ctx, []uint64{hdr, 7, 70})
	require.NoError(t, err)

	v, err := getFn(ctx, []uint64{hdr, 7})
	require.NoError(t, err)
	require.Equal(t, uint64(70), v)

	l, err := lenFn(ctx, []uint64{hdr})
	require.NoError(t, err)
	require.Equal(t, uint64(1), l)

	_, err = getFn(ctx, []uint64{hdr, 999})
	require.Error(t, err, "table_get on a missing key must surface a RuntimeError")
}
