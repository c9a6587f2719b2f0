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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doytsujin/daScript/exec"
	"github.com/doytsujin/daScript/symbols"
)

// TestDumpLoadHeapRoundTrip confirms DumpHeap/LoadHeap reproduces a
// Context's heap, globals and interned strings byte-for-byte in a
// freshly constructed Context, per SPEC_FULL.md's zstd entry under
// "DOMAIN STACK".
func TestDumpLoadHeapRoundTrip(t *testing.T) {
	prog := symbols.NewProgram()
	src := NewContext(prog, exec.NewArena(1), nil, 64)

	strAddr := src.InternString("hello snapshot")
	numAddr := src.HeapAlloc(8)
	src.WriteWord(numAddr, 0xdeadbeef)
	src.WriteWord(addrOf(spaceGlobal, 0), 42)
	src.WriteWord(addrOf(spaceGlobal, 8), 7)

	var buf bytes.Buffer
	require.NoError(t, src.DumpHeap(&buf))

	// A fresh Context, differently sized, to confirm LoadHeap fully
	// replaces rather than merely patches heap/globals/names.
	dst := NewContext(prog, exec.NewArena(1), nil, 8)
	require.NoError(t, dst.LoadHeap(&buf))

	require.Equal(t, "hello snapshot", dst.ReadString(strAddr))
	require.Equal(t, uint64(0xdeadbeef), dst.ReadWord(numAddr))
	require.Equal(t, uint64(42), dst.ReadWord(addrOf(spaceGlobal, 0)))
	require.Equal(t, uint64(7), dst.ReadWord(addrOf(spaceGlobal, 8)))
}

// TestLoadHeapRejectsNonSnapshotInput confirms LoadHeap fails rather
// than silently corrupting state when handed bytes that were never
// produced by DumpHeap (not even valid zstd framing).
func TestLoadHeapRejectsNonSnapshotInput(t *testing.T) {
	prog := symbols.NewProgram()
	ctx := NewContext(prog, exec.NewArena(1), nil, 0)
	err := ctx.LoadHeap(strings.NewReader("not a snapshot"))
	require.Error(t, err)
}

// TestLoadHeapRejectsEmptyInput confirms an empty reader (valid as an
// io.Reader but containing no zstd frame at all) is rejected rather
// than silently producing a zeroed Context.
func TestLoadHeapRejectsEmptyInput(t *testing.T) {
	prog := symbols.NewProgram()
	dst := NewContext(prog, exec.NewArena(1), nil, 0)
	err := dst.LoadHeap(&bytes.Buffer{})
	require.Error(t, err)
}
