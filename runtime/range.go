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
	"github.com/doytsujin/daScript/exec"
	"github.com/doytsujin/daScript/types"
)

// Range is the supplemented runtime primitive grounded on daScript's
// Range builtin (original_source's runtime_range.cpp): a half-open
// [low, high) interval of ints, stored as two consecutive words
// matching types.KindRange's 16-byte scalarSize.
func (c *Context) rangeNew(low, high int64) int64 {
	addr := c.HeapAlloc(16)
	c.WriteWord(addr, uint64(low))
	c.WriteWord(addr+8, uint64(high))
	return addr
}

func (c *Context) rangeLow(addr int64) int64  { return int64(c.ReadWord(addr)) }
func (c *Context) rangeHigh(addr int64) int64 { return int64(c.ReadWord(addr + 8)) }

func rangeSpecs() []opSpec {
	rg := types.TypeDecl{Base: types.KindRange}
	i := types.Int()
	return []opSpec{
		{"range", []types.TypeDecl{i, i}, rg, func(m exec.Machine, a []uint64) (uint64, error) {
			return uint64(m.(*Context).rangeNew(int64(a[0]), int64(a[1]))), nil
		}},
		{"range_low", []types.TypeDecl{rg}, i, func(m exec.Machine, a []uint64) (uint64, error) {
			return uint64(m.(*Context).rangeLow(int64(a[0]))), nil
		}},
		{"range_high", []types.TypeDecl{rg}, i, func(m exec.Machine, a []uint64) (uint64, error) {
			return uint64(m.(*Context).rangeHigh(int64(a[0]))), nil
		}},
	}
}
