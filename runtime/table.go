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

// Table is the supplemented runtime primitive grounded on daScript's
// Table builtin (original_source's module_builtin_runtime.cpp); it is
// a simple int64-keyed, uint64-valued associative array. Header layout
// in Context heap memory: [count int64][capacity int64][dataPtr int64]
// (24 bytes, matching types.KindTable's scalarSize), with the entry
// array itself a separate heap allocation of capacity*16-byte
// (key,value) pairs.
const tableHeaderSize = 24

func (c *Context) tableNew() int64 {
	hdr := c.HeapAlloc(tableHeaderSize)
	data := c.HeapAlloc(4 * 16)
	c.WriteWord(hdr, 0)           // count
	c.WriteWord(hdr+8, 4)         // capacity
	c.WriteWord(hdr+16, uint64(data))
	return hdr
}

func (c *Context) tableCount(hdr int64) int64  { return int64(c.ReadWord(hdr)) }
func (c *Context) tableCap(hdr int64) int64    { return int64(c.ReadWord(hdr + 8)) }
func (c *Context) tableData(hdr int64) int64   { return int64(c.ReadWord(hdr + 16)) }

func (c *Context) tableGrow(hdr int64) {
	oldCap := c.tableCap(hdr)
	oldData := c.tableData(hdr)
	newCap := oldCap * 2
	newData := c.HeapAlloc(int(newCap) * 16)
	copy(c.ReadBytes(newData, int(oldCap)*16), c.ReadBytes(oldData, int(oldCap)*16))
	c.WriteWord(hdr+8, uint64(newCap))
	c.WriteWord(hdr+16, uint64(newData))
}

func (c *Context) tableSet(hdr int64, key, value uint64) {
	count := c.tableCount(hdr)
	data := c.tableData(hdr)
	for i := int64(0); i < count; i++ {
		entry := data + i*16
		if c.ReadWord(entry) == key {
			c.WriteWord(entry+8, value)
			return
		}
	}
	if count >= c.tableCap(hdr) {
		c.tableGrow(hdr)
		data = c.tableData(hdr)
	}
	entry := data + count*16
	c.WriteWord(entry, key)
	c.WriteWord(entry+8, value)
	c.WriteWord(hdr, uint64(count+1))
}

func (c *Context) tableGet(hdr int64, key uint64) (uint64, bool) {
	count := c.tableCount(hdr)
	data := c.tableData(hdr)
	for i := int64(0); i < count; i++ {
		entry := data + i*16
		if c.ReadWord(entry) == key {
			return c.ReadWord(entry + 8), true
		}
	}
	return 0, false
}

// tableSpecs registers the Table builtins: table_new, table_set,
// table_get, table_len. Keys and values are passed/returned as plain
// int words; a richer generic-value Table is left to host extension
// (see SPEC_FULL.md "Supplemented features" for the scope decision).
func tableSpecs() []opSpec {
	tbl := types.TypeDecl{Base: types.KindTable}
	i := types.Int()
	return []opSpec{
		{"table_new", nil, tbl, func(m exec.Machine, a []uint64) (uint64, error) {
			c := m.(*Context)
			return uint64(c.tableNew()), nil
		}},
		{"table_set", []types.TypeDecl{tbl, i, i}, types.Void(), func(m exec.Machine, a []uint64) (uint64, error) {
			m.(*Context).tableSet(int64(a[0]), a[1], a[2])
			return 0, nil
		}},
		{"table_get", []types.TypeDecl{tbl, i}, i, func(m exec.Machine, a []uint64) (uint64, error) {
			v, ok := m.(*Context).tableGet(int64(a[0]), a[1])
			if !ok {
				return 0, &RuntimeError{Msg: "table_get: key not found"}
			}
			return v, nil
		}},
		{"table_len", []types.TypeDecl{tbl}, i, func(m exec.Machine, a []uint64) (uint64, error) {
			return uint64(m.(*Context).tableCount(int64(a[0]))), nil
		}},
	}
}
