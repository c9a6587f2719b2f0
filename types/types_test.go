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

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStruct struct {
	name   string
	fields int
}

func (f *fakeStruct) StructName() string       { return f.name }
func (f *fakeStruct) FieldSize() int           { return f.fields }
func (f *fakeStruct) Same(o StructureRef) bool { fo, ok := o.(*fakeStruct); return ok && f == fo }

func TestSizeOfScalars(t *testing.T) {
	require.Equal(t, 8, Int().SizeOf())
	require.Equal(t, 1, Bool().SizeOf())
	require.Equal(t, 16, String().SizeOf())
	require.Equal(t, 0, Void().SizeOf())
}

func TestSizeOfArrayIsBaseTimesDims(t *testing.T) {
	arr := Int().WithDims(3, 4)
	require.Equal(t, 8*3*4, arr.SizeOf())
	require.True(t, arr.Ref, "WithDims must force Ref true")
}

func TestStrideDropsLastDim(t *testing.T) {
	arr := Int().WithDims(3, 4)
	require.Equal(t, 8*3, arr.Stride())
	require.Equal(t, 4, arr.LastDim())

	dropped := arr.DropLastDim()
	require.Equal(t, []int{3}, dropped.Dims)
	require.True(t, dropped.Ref)
}

func TestSizeOfStructure(t *testing.T) {
	s := &fakeStruct{name: "Point", fields: 16}
	st := Struct(s)
	require.Equal(t, 16, st.SizeOf())
	require.True(t, st.IsRef(), "a structure-based type is always ref")

	ptr := Pointer(s)
	require.Equal(t, 8, ptr.SizeOf())
}

func TestIsSameRespectsStructIdentityAndDims(t *testing.T) {
	a := &fakeStruct{name: "A"}
	b := &fakeStruct{name: "A"} // same name, distinct identity
	require.True(t, Struct(a).IsSame(Struct(a), true))
	require.False(t, Struct(a).IsSame(Struct(b), true), "identity, not structural, equality")

	require.False(t, Int().IsSame(Int().WithDims(2), true))
}

func TestIsSameRefMattersFlag(t *testing.T) {
	plain := Int()
	ref := Int().WithRef(true)
	require.False(t, plain.IsSame(ref, true))
	require.True(t, plain.IsSame(ref, false))
}

func TestIsWordScalar(t *testing.T) {
	require.True(t, Int().IsWordScalar())
	require.True(t, Bool().IsWordScalar())
	require.False(t, String().IsWordScalar())
	require.False(t, Int().WithDims(3).IsWordScalar())
	require.False(t, Struct(&fakeStruct{}).IsWordScalar())
}

func TestMangledDistinguishesRefAndDims(t *testing.T) {
	require.NotEqual(t, Int().Mangled(), Int().WithRef(true).Mangled())
	require.NotEqual(t, Int().Mangled(), Int().WithDims(3).Mangled())
	require.Equal(t, Int().Mangled(), Int().Mangled())
}

func TestMangledStructureUsesIdentityViaName(t *testing.T) {
	s := &fakeStruct{name: "Vec3"}
	require.Contains(t, Struct(s).Mangled(), "Vec3")
	require.Contains(t, Pointer(s).Mangled(), "Vec3")
	require.NotEqual(t, Struct(s).Mangled(), Pointer(s).Mangled())
}

func TestIsIndex(t *testing.T) {
	require.True(t, Int().IsIndex())
	require.True(t, Uint().IsIndex())
	require.False(t, Float().IsIndex())
	require.False(t, Int().WithDims(2).IsIndex())
}
