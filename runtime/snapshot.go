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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// snapshotMagic/version guard DumpHeap/LoadHeap against being fed an
// unrelated blob or a future incompatible layout.
const (
	snapshotMagic   = "dScx"
	snapshotVersion = 1
)

// DumpHeap serializes the Context's heap, global and name-pool bytes
// (everything a restored Context needs to keep reading previously
// allocated values) into a zstd-compressed snapshot. This underwrites
// the round-trip property described in SPEC_FULL.md's zstd entry under
// "DOMAIN STACK": dump then load must reproduce byte-identical memory.
func (c *Context) DumpHeap(w io.Writer) error {
	var raw bytes.Buffer
	raw.WriteString(snapshotMagic)
	_ = binary.Write(&raw, binary.LittleEndian, uint32(snapshotVersion))
	writeSection := func(b []byte) {
		_ = binary.Write(&raw, binary.LittleEndian, uint64(len(b)))
		raw.Write(b)
	}
	writeSection(c.heap[:c.heapTop])
	_ = binary.Write(&raw, binary.LittleEndian, c.heapTop)
	writeSection(c.globals)
	writeSection(c.names.buf)

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := enc.Write(raw.Bytes()); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// LoadHeap restores heap, globals and the name pool from a snapshot
// produced by DumpHeap. The Context's arena/entries are unaffected:
// only data, never code, is snapshotted (spec §5's arena/program split
// means code is reconstructed by re-lowering, not by restoring bytes).
func (c *Context) LoadHeap(r io.Reader) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return err
	}
	buf := bytes.NewReader(raw)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(buf, magic); err != nil {
		return err
	}
	if string(magic) != snapshotMagic {
		return fmt.Errorf("runtime: snapshot has bad magic %q", magic)
	}
	var version uint32
	if err := binary.Read(buf, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != snapshotVersion {
		return fmt.Errorf("runtime: unsupported snapshot version %d", version)
	}

	readSection := func() ([]byte, error) {
		var n uint64
		if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(buf, b); err != nil {
			return nil, err
		}
		return b, nil
	}

	heapBytes, err := readSection()
	if err != nil {
		return err
	}
	var heapTop int64
	if err := binary.Read(buf, binary.LittleEndian, &heapTop); err != nil {
		return err
	}
	globalBytes, err := readSection()
	if err != nil {
		return err
	}
	nameBytes, err := readSection()
	if err != nil {
		return err
	}

	c.heap = make([]byte, len(heapBytes))
	copy(c.heap, heapBytes)
	c.heapTop = heapTop
	c.globals = make([]byte, len(globalBytes))
	copy(c.globals, globalBytes)
	// byHash starts empty: strings restored from a snapshot remain
	// readable by their original offsets, but new Intern calls after a
	// restore will not dedupe against them until re-interned.
	c.names = NewNamePool()
	c.names.buf = append([]byte{}, nameBytes...)
	return nil
}
