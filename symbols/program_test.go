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

package symbols

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doytsujin/daScript/types"
)

func TestStructureLayoutFieldsPacksLeftToRight(t *testing.T) {
	s := &Structure{Name: "Point", Fields: []Field{
		{Name: "x", Type: types.Int()},
		{Name: "y", Type: types.Bool()},
		{Name: "z", Type: types.Int()},
	}}
	prog := NewProgram()
	require.NoError(t, prog.AddStructure(s))

	require.Equal(t, 0, s.Fields[0].Offset)
	require.Equal(t, 8, s.Fields[1].Offset)
	require.Equal(t, 9, s.Fields[2].Offset)
	require.Equal(t, 17, s.FieldSize())
}

func TestStructureLayoutRejectsDuplicateFieldNames(t *testing.T) {
	s := &Structure{Name: "Bad", Fields: []Field{
		{Name: "x", Type: types.Int()},
		{Name: "x", Type: types.Int()},
	}}
	require.Error(t, s.layoutFields())
}

func TestAddGlobalAssignsPackedByteOffsets(t *testing.T) {
	prog := NewProgram()
	a := &Variable{Name: "a", Type: types.Bool()}
	b := &Variable{Name: "b", Type: types.Int()}
	require.NoError(t, prog.AddGlobal(a))
	require.NoError(t, prog.AddGlobal(b))

	require.Equal(t, 0, a.Offset)
	require.Equal(t, 0, a.Index)
	require.Equal(t, 1, b.Offset, "global offsets pack left-to-right with no padding")
	require.Equal(t, 1, b.Index)
	require.Equal(t, 9, prog.GlobalBytes())
}

func TestAddGlobalRejectsDuplicateNames(t *testing.T) {
	prog := NewProgram()
	require.NoError(t, prog.AddGlobal(&Variable{Name: "g", Type: types.Int()}))
	require.Error(t, prog.AddGlobal(&Variable{Name: "g", Type: types.Int()}))
}

func TestAddFunctionMangledNameIncludesArgTypes(t *testing.T) {
	prog := NewProgram()
	fn1 := &Function{Name: "add", Args: []Variable{{Type: types.Int()}, {Type: types.Int()}}, Result: types.Int()}
	fn2 := &Function{Name: "add", Args: []Variable{{Type: types.Float()}, {Type: types.Float()}}, Result: types.Float()}
	require.NoError(t, prog.AddFunction(fn1))
	require.NoError(t, prog.AddFunction(fn2))
	require.NotEqual(t, fn1.Mangled, fn2.Mangled)
	require.ElementsMatch(t, []*Function{fn1, fn2}, prog.Overloads("add"))
}

func TestAddFunctionRejectsDuplicateSignature(t *testing.T) {
	prog := NewProgram()
	mk := func() *Function {
		return &Function{Name: "f", Args: []Variable{{Type: types.Int()}}, Result: types.Void()}
	}
	require.NoError(t, prog.AddFunction(mk()))
	require.Error(t, prog.AddFunction(mk()))
}

func TestFunctionByMangledRoundTrips(t *testing.T) {
	prog := NewProgram()
	fn := &Function{Name: "f", Args: []Variable{{Type: types.Int()}}, Result: types.Void()}
	require.NoError(t, prog.AddFunction(fn))
	got, ok := prog.FunctionByMangled(fn.Mangled)
	require.True(t, ok)
	require.Same(t, fn, got)
}
