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

// Package runtime implements the tree-walking interpreter (spec §3 Data
// Model / Context, §4.8 Interpreter) over a lowered exec.Arena: a
// per-call fixed stack buffer, a bump heap for New, a dense global-value
// area and a per-call argument frame, all addressed through one
// int64 tagged address space so every exec.Node only ever juggles
// machine words. Grounded on the overall Context/VM-state shape of
// vm.QueryState in the teacher repo (github.com/SnellerInc/sneller/vm),
// scaled down from its vectorized register file to one scalar value
// register per evaluation, as spec §9 calls for.
package runtime

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sys/cpu"

	"github.com/doytsujin/daScript/exec"
	"github.com/doytsujin/daScript/symbols"
)

// address spaces: the high nibble of every int64 address tags which
// backing buffer it indexes, so exec.Node never needs to know how
// Context lays memory out (spec §9 "SimNode never touches the stack
// shape directly, only Context does").
type space int64

const (
	spaceStack space = iota
	spaceArg
	spaceGlobal
	spaceHeap
	spaceString
)

const spaceShift = 60

func addrOf(sp space, offset int64) int64 {
	return int64(sp)<<spaceShift | offset
}

func addrSpace(a int64) space {
	return space(a >> spaceShift)
}

func addrOffset(a int64) int64 {
	return a &^ (int64(0xF) << spaceShift)
}

// StopFlags mirrors spec §3's "a small bitset {break, return,
// terminate}", extended with a Fail bit: §7's TryCatch contract
// ("a recoverable failure sets a fail bit, handled by the nearest
// enclosing TryCatch") needs a fourth, independently-clearable bit,
// since a fail can occur nested inside a loop or call that must not
// treat it as its own break/return.
type StopFlags struct {
	Break     bool
	Return    bool
	Terminate bool
	Fail      bool
}

func (s StopFlags) any() bool { return s.Break || s.Return || s.Terminate || s.Fail }

// Context is one simulation's live state: everything spec §3 calls
// out plus the address-space buffers backing it. A Context is created
// fresh per spec §6 simulate(Program) and torn down as a unit; its
// Arena is never individually freed node-by-node.
type Context struct {
	ID uuid.UUID

	Prog  *symbols.Program
	Arena *exec.Arena

	// _ pads Context to its own cache line: simulate() hands out one
	// Context per concurrent script invocation (spec §6), so adjacent
	// Contexts on the same allocation should not false-share a line.
	_ cpu.CacheLinePad

	// entries[fn.Index] is the lowered entry node for that function,
	// populated once up front by Simulate (spec §6 "lowers every
	// function body once, eagerly"); funcs[fn.Index] is the function
	// itself, for Invoke's function_index lookup.
	entries []exec.NodeRef
	funcs   []*symbols.Function

	// stack holds one bump-allocated frame per active call; frameCursor
	// is the next free offset, frameBase the current call's frame start.
	// Call pushes frameBase and bumps frameCursor by the callee's
	// StackSize; Return pops back (spec §4.8 "reserve a new stack
	// window ... restore the caller's window on return").
	stack         []byte
	frameBase     int64
	frameCursor   int64
	frameBaseStack []int64

	// argStack holds each active call's evaluated argument words,
	// addressed the same way as locals (spec's worked example requires
	// referencing an argument by name to be ref, i.e. addressable; see
	// exec.Builder.Arg / KGetArgument).
	argStack      []byte
	argBase       int64
	argCursor     int64
	argBaseStack  []int64

	globals []byte

	heap    []byte
	heapTop int64

	names *NamePool

	stop    StopFlags
	failErr error
	retval  uint64

	depth    int
	maxDepth int

	// Trace, if non-nil, is called for each node Eval dispatches and
	// each failure fail raises; a vm/log.go-style optional diagnostic
	// hook, off by default (SPEC_FULL.md "Logging").
	Trace func(string, ...any)
}

// DefaultStackSize / DefaultHeapSize / DefaultArgSize / DefaultMaxDepth
// are the buffer sizes and limits a fresh Context uses; a host
// overrides them through ContextOption (SPEC_FULL.md "Configuration").
const (
	DefaultStackSize = 1 << 20
	DefaultHeapSize  = 1 << 20
	DefaultArgSize   = 1 << 16
	DefaultGlobalPad = 1 << 16
	DefaultMaxDepth  = 4096
)

// ContextOption overrides one of a fresh Context's buffer sizes or
// limits, following the small-surface option-struct style used
// throughout plan (plan.Env, plan.Rules); see dascript.SimulateOption,
// which is how a host actually reaches these (SPEC_FULL.md
// "Configuration").
type ContextOption func(*contextConfig)

type contextConfig struct {
	stackSize int
	heapSize  int
	argSize   int
	maxDepth  int
}

func defaultContextConfig() contextConfig {
	return contextConfig{
		stackSize: DefaultStackSize,
		heapSize:  DefaultHeapSize,
		argSize:   DefaultArgSize,
		maxDepth:  DefaultMaxDepth,
	}
}

// WithStackSize overrides DefaultStackSize, the per-call bump-allocated
// frame buffer's total capacity.
func WithStackSize(n int) ContextOption { return func(c *contextConfig) { c.stackSize = n } }

// WithHeapSize overrides DefaultHeapSize, the New-allocation bump
// heap's initial capacity (it still grows on demand; see HeapAlloc).
func WithHeapSize(n int) ContextOption { return func(c *contextConfig) { c.heapSize = n } }

// WithArgSize overrides DefaultArgSize, the per-call argument frame
// buffer's initial capacity.
func WithArgSize(n int) ContextOption { return func(c *contextConfig) { c.argSize = n } }

// WithMaxDepth overrides DefaultMaxDepth, the call-depth limit enforced
// by enterCall's stack-overflow check.
func WithMaxDepth(n int) ContextOption { return func(c *contextConfig) { c.maxDepth = n } }

// NewContext allocates a Context over prog and arena, sized for
// globalBytes worth of global-variable storage. entries is indexed by
// symbols.Function.Index and must already hold every function's
// lowered entry node (see Simulate). opts override the Default*
// buffer sizes/limits.
func NewContext(prog *symbols.Program, arena *exec.Arena, entries []exec.NodeRef, globalBytes int, opts ...ContextOption) *Context {
	if globalBytes == 0 {
		globalBytes = DefaultGlobalPad
	}
	cfg := defaultContextConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	funcs := make([]*symbols.Function, len(entries))
	for _, fn := range prog.Functions() {
		funcs[fn.Index] = fn
	}
	return &Context{
		ID:       uuid.New(),
		Prog:     prog,
		Arena:    arena,
		entries:  entries,
		funcs:    funcs,
		stack:    make([]byte, cfg.stackSize),
		argStack: make([]byte, cfg.argSize),
		globals:  make([]byte, globalBytes),
		heap:     make([]byte, cfg.heapSize),
		names:    NewNamePool(),
		maxDepth: cfg.maxDepth,
	}
}

// --- exec.Machine implementation ---

func (c *Context) bufFor(sp space) []byte {
	switch sp {
	case spaceStack:
		return c.stack
	case spaceArg:
		return c.argStack
	case spaceGlobal:
		return c.globals
	case spaceHeap:
		return c.heap
	default:
		panic(fmt.Sprintf("runtime: address space %d has no backing byte buffer", sp))
	}
}

// ReadWord implements exec.Machine.
func (c *Context) ReadWord(addr int64) uint64 {
	buf := c.bufFor(addrSpace(addr))
	off := addrOffset(addr)
	return uint64(buf[off]) | uint64(buf[off+1])<<8 | uint64(buf[off+2])<<16 | uint64(buf[off+3])<<24 |
		uint64(buf[off+4])<<32 | uint64(buf[off+5])<<40 | uint64(buf[off+6])<<48 | uint64(buf[off+7])<<56
}

// WriteWord implements exec.Machine.
func (c *Context) WriteWord(addr int64, v uint64) {
	buf := c.bufFor(addrSpace(addr))
	off := addrOffset(addr)
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
	buf[off+4] = byte(v >> 32)
	buf[off+5] = byte(v >> 40)
	buf[off+6] = byte(v >> 48)
	buf[off+7] = byte(v >> 56)
}

// ReadBytes implements exec.Machine.
func (c *Context) ReadBytes(addr int64, n int) []byte {
	buf := c.bufFor(addrSpace(addr))
	off := addrOffset(addr)
	return buf[off : off+int64(n)]
}

// HeapAlloc implements exec.Machine: bump-allocates n zeroed bytes.
func (c *Context) HeapAlloc(n int) int64 {
	if c.heapTop+int64(n) > int64(len(c.heap)) {
		grown := make([]byte, len(c.heap)*2+n)
		copy(grown, c.heap)
		c.heap = grown
	}
	addr := addrOf(spaceHeap, c.heapTop)
	c.heapTop += int64(n)
	return addr
}

// InternString implements exec.Machine: strings live as a {ptr,len}
// descriptor pointing into the name pool's backing bytes (spec's
// supplemented string/Table builtins need a stable string
// representation; see SPEC_FULL.md "Supplemented features").
func (c *Context) InternString(s string) int64 {
	off, n := c.names.Intern(s)
	addr := c.HeapAlloc(16)
	c.WriteWord(addr, uint64(off))
	c.WriteWord(addr+8, uint64(n))
	return addr
}

// ReadString implements exec.Machine.
func (c *Context) ReadString(addr int64) string {
	off := c.ReadWord(addr)
	n := c.ReadWord(addr + 8)
	return c.names.At(int(off), int(n))
}

// FloatBits / bit-pattern helpers used by native arithmetic builtins.
func Float64Bits(f float64) uint64    { return math.Float64bits(f) }
func Float64FromBits(u uint64) float64 { return math.Float64frombits(u) }
