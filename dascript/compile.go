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

package dascript

import (
	"fmt"

	yaml "sigs.k8s.io/yaml"

	"github.com/doytsujin/daScript/exec"
	"github.com/doytsujin/daScript/resolve"
	"github.com/doytsujin/daScript/runtime"
	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/synode"
	"github.com/doytsujin/daScript/types"
)

// CompileOption configures one aspect of Compile, functional-option
// style (SPEC_FULL.md "Configuration": "the host configures the
// compiler through functional options on Compile/Simulate"), following
// the small-surface option-struct style used throughout plan
// (plan.Env, plan.Rules).
type CompileOption func(*compileConfig)

type compileConfig struct {
	skipDefaultBuiltins bool
}

// WithoutDefaultBuiltins skips registering the standard builtin set
// (runtime.RegisterBuiltins), for a host that wants to supply its own
// builtin surface from scratch via hostInit/RegisterBuiltin instead.
func WithoutDefaultBuiltins() CompileOption {
	return func(c *compileConfig) { c.skipDefaultBuiltins = true }
}

// Compile implements spec §6's embedding entry point: parse -> build ->
// host_init -> infer_types. hostInit runs after structures/globals/
// function signatures are registered but before type inference, so a
// host can register additional builtins (spec's "compile(root_node,
// host_init) ... host_init runs exactly once, before infer_types") that
// user code's overload resolution can already see. hostInit may be nil.
func Compile(root *synode.Node, hostInit func(*symbols.Program) error, opts ...CompileOption) (*symbols.Program, error) {
	cfg := compileConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	prog := symbols.NewProgram()
	if !cfg.skipDefaultBuiltins {
		if err := runtime.RegisterBuiltins(prog); err != nil {
			return nil, fmt.Errorf("dascript: registering builtins: %w", err)
		}
	}
	if err := Build(prog, root); err != nil {
		return nil, fmt.Errorf("dascript: build: %w", err)
	}
	if hostInit != nil {
		if err := hostInit(prog); err != nil {
			return nil, fmt.Errorf("dascript: host_init: %w", err)
		}
	}
	if err := resolve.InferProgram(prog); err != nil {
		return nil, fmt.Errorf("dascript: %w", err)
	}
	return prog, nil
}

// CompileSource parses src and compiles it in one step; file is used
// only to stamp source locations.
func CompileSource(file, src string, hostInit func(*symbols.Program) error, opts ...CompileOption) (*symbols.Program, error) {
	root, err := synode.ParseProgram(file, src)
	if err != nil {
		return nil, fmt.Errorf("dascript: parse: %w", err)
	}
	return Compile(root, hostInit, opts...)
}

// SimulateOption configures one aspect of Simulate, functional-option
// style: arena sizing and the runtime.Context buffer sizes/limits a
// host may want to tune for a particular script's working set
// (SPEC_FULL.md "Configuration").
type SimulateOption func(*simulateConfig)

type simulateConfig struct {
	arenaNodesPerFunc int
	ctxOpts           []runtime.ContextOption
}

func defaultSimulateConfig() simulateConfig {
	return simulateConfig{arenaNodesPerFunc: 256}
}

// WithArenaSize overrides the per-function SimNode capacity hint used
// to size the exec.Arena up front (exec.NewArena still grows on
// demand; this only avoids early reallocation for large bodies).
func WithArenaSize(nodesPerFunction int) SimulateOption {
	return func(c *simulateConfig) { c.arenaNodesPerFunc = nodesPerFunction }
}

// WithStackSize overrides the simulated Context's per-call stack
// buffer size (runtime.DefaultStackSize).
func WithStackSize(n int) SimulateOption {
	return func(c *simulateConfig) { c.ctxOpts = append(c.ctxOpts, runtime.WithStackSize(n)) }
}

// WithHeapSize overrides the simulated Context's bump-heap initial
// capacity (runtime.DefaultHeapSize).
func WithHeapSize(n int) SimulateOption {
	return func(c *simulateConfig) { c.ctxOpts = append(c.ctxOpts, runtime.WithHeapSize(n)) }
}

// WithArgSize overrides the simulated Context's argument-frame buffer
// initial capacity (runtime.DefaultArgSize).
func WithArgSize(n int) SimulateOption {
	return func(c *simulateConfig) { c.ctxOpts = append(c.ctxOpts, runtime.WithArgSize(n)) }
}

// WithMaxDepth overrides the simulated Context's call-depth limit
// (runtime.DefaultMaxDepth).
func WithMaxDepth(n int) SimulateOption {
	return func(c *simulateConfig) { c.ctxOpts = append(c.ctxOpts, runtime.WithMaxDepth(n)) }
}

// Simulate implements spec §6's simulate(Program): it lowers every
// function's body once, eagerly, into a fresh exec.Arena and returns a
// runtime.Context ready for Invoke calls. Each call to Simulate
// produces an independent Context, so one compiled Program can be
// simulated concurrently from multiple goroutines (spec §6 "simulate
// may be called more than once against the same compiled Program").
func Simulate(prog *symbols.Program, opts ...SimulateOption) (*runtime.Context, error) {
	cfg := defaultSimulateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	arena := exec.NewArena(cfg.arenaNodesPerFunc * max(1, prog.NumFunctions()))

	entries := make([]exec.NodeRef, prog.NumFunctions())
	for _, fn := range prog.Functions() {
		ref, err := exec.LowerFunction(arena, prog, fn)
		if err != nil {
			return nil, fmt.Errorf("dascript: lowering %q: %w", fn.Name, err)
		}
		entries[fn.Index] = ref
	}
	return runtime.NewContext(prog, arena, entries, prog.GlobalBytes(), cfg.ctxOpts...), nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Invoke implements spec §6's invoke(Context, function_index, argv):
// a thin wrapper over runtime.Context.Invoke, kept here only so a host
// using solely the dascript package never has to import package
// runtime directly.
func Invoke(ctx *runtime.Context, functionIndex int, argv []uint64) (uint64, error) {
	return ctx.Invoke(functionIndex, argv)
}

// RegisterBuiltin implements spec §6's register_builtin(name, arg_types,
// result_type, native_node_factory): it is the mechanism hostInit (see
// Compile) uses to extend the overload set with host-supplied native
// functions, following the exact registration path user functions use
// (symbols.Program.AddFunction with BuiltIn set), per spec §4.2
// "Built-in registration is identical to user registration except it
// marks the function as builtIn".
func RegisterBuiltin(prog *symbols.Program, name string, argTypes []types.TypeDecl, resultType types.TypeDecl, factory exec.NativeFactory) error {
	args := make([]symbols.Variable, len(argTypes))
	for i, t := range argTypes {
		args[i] = symbols.Variable{Name: argName(i), Type: t, Role: symbols.RoleArgument, Index: i}
	}
	fn := &symbols.Function{
		Name:       name,
		Args:       args,
		Result:     resultType,
		BuiltIn:    true,
		NativeNode: factory,
	}
	return prog.AddFunction(fn)
}

func argName(i int) string {
	return fmt.Sprintf("a%d", i)
}

// builtinManifestEntry is one entry of the YAML document
// RegisterBuiltinsFromYAML consumes: a builtin's signature only. YAML
// cannot carry executable Go code, so the implementation comes from
// impls, keyed by Name.
type builtinManifestEntry struct {
	Name   string   `json:"name"`
	Args   []string `json:"args"`
	Result string   `json:"result"`
}

// RegisterBuiltinsFromYAML registers a batch of native functions whose
// signatures are described in a YAML manifest (decoded via
// sigs.k8s.io/yaml, which round-trips YAML through encoding/json) and
// whose implementations are supplied by the host via impls. Each
// manifest entry's Args/Result are type spellings as accepted by
// typeByKeyword (a base-type keyword or "StructName*" for a pointer).
func RegisterBuiltinsFromYAML(prog *symbols.Program, data []byte, impls map[string]exec.NativeFn) error {
	var entries []builtinManifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("dascript: decoding builtin manifest: %w", err)
	}
	for _, e := range entries {
		fn, ok := impls[e.Name]
		if !ok {
			return fmt.Errorf("dascript: builtin manifest names %q, no implementation supplied", e.Name)
		}
		argTypes := make([]types.TypeDecl, len(e.Args))
		for i, spelling := range e.Args {
			t, err := typeByKeyword(prog, spelling)
			if err != nil {
				return fmt.Errorf("dascript: builtin %q argument %d: %w", e.Name, i, err)
			}
			argTypes[i] = t
		}
		resultType, err := typeByKeyword(prog, e.Result)
		if err != nil {
			return fmt.Errorf("dascript: builtin %q result: %w", e.Name, err)
		}
		native := fn
		factory := func(b *exec.Builder) exec.NodeRef {
			args := make([]exec.NodeRef, len(argTypes))
			for i := range argTypes {
				args[i] = b.ArgValue(i)
			}
			return b.Native(resultType, native, args...)
		}
		if err := RegisterBuiltin(prog, e.Name, argTypes, resultType, factory); err != nil {
			return fmt.Errorf("dascript: registering builtin %q: %w", e.Name, err)
		}
	}
	return nil
}
