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
	"github.com/dchest/siphash"
)

// NamePool interns strings into one append-only byte buffer, deduping
// by content hash the way the teacher's vm package hashes row memory
// for its string/symbol tables (vm/interphash.go's bchashvaluego using
// siphash.Hash128) rather than comparing byte slices directly.
type NamePool struct {
	buf    []byte
	byHash map[uint64][]int64 // siphash lo-word -> candidate offsets (collisions are rare but handled)
}

// NewNamePool returns an empty pool.
func NewNamePool() *NamePool {
	return &NamePool{byHash: make(map[uint64][]int64)}
}

// Intern returns the (offset, length) of s within the pool's buffer,
// appending it only if an identical string was never interned before.
func (p *NamePool) Intern(s string) (int64, int64) {
	lo, _ := siphash.Hash128(0, 0, []byte(s))
	for _, off := range p.byHash[lo] {
		if p.At(int(off), len(s)) == s {
			return off, int64(len(s))
		}
	}
	off := int64(len(p.buf))
	p.buf = append(p.buf, s...)
	p.byHash[lo] = append(p.byHash[lo], off)
	return off, int64(len(s))
}

// At returns the n-byte string starting at offset off.
func (p *NamePool) At(off, n int) string {
	return string(p.buf[off : off+n])
}
