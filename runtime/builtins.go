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
	"math"
	"strings"

	"github.com/doytsujin/daScript/exec"
	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/types"
)

// opSpec describes one built-in overload: its operator/function name,
// formal (non-ref, value-semantics) argument types, result type, and
// the native implementation. RegisterBuiltins turns each opSpec into a
// symbols.Function registered the same way spec §4.2 registers any
// other function, marked BuiltIn (spec "Built-in registration is
// identical to user registration except it marks the function as
// builtIn").
type opSpec struct {
	name   string
	args   []types.TypeDecl
	result types.TypeDecl
	fn     exec.NativeFn
}

// RegisterBuiltins populates prog with the language's arithmetic,
// comparison, logical and string operators, plus the supplemented
// Table/Range primitives (see SPEC_FULL.md "Domain stack" and
// "Supplemented features"). Grounded on the teacher's builtin
// registration shape (expr.Builtins LUT in the teacher repo), adapted
// from a static map keyed by ssaop to a per-overload
// exec.NativeFactory closure, per spec §9's redesign of native
// dispatch away from a vectorized op enum.
func RegisterBuiltins(prog *symbols.Program) error {
	specs := arithmeticSpecs()
	specs = append(specs, comparisonSpecs()...)
	specs = append(specs, logicalSpecs()...)
	specs = append(specs, stringSpecs()...)
	specs = append(specs, tableSpecs()...)
	specs = append(specs, rangeSpecs()...)

	for _, s := range specs {
		fn := &symbols.Function{
			Name:    s.name,
			Result:  s.result,
			BuiltIn: true,
		}
		for i, t := range s.args {
			fn.Args = append(fn.Args, symbols.Variable{
				Name: argName(i),
				Type: t,
				Role: symbols.RoleArgument,
				Index: i,
			})
		}
		fn.NativeNode = exec.NativeFactory(makeFactory(s))
		if err := prog.AddFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func argName(i int) string {
	names := []string{"a", "b", "c"}
	if i < len(names) {
		return names[i]
	}
	return "_"
}

func makeFactory(s opSpec) func(b *exec.Builder) exec.NodeRef {
	return func(b *exec.Builder) exec.NodeRef {
		argNodes := make([]exec.NodeRef, len(s.args))
		for i := range s.args {
			argNodes[i] = b.ArgValue(i)
		}
		return b.Native(s.result, s.fn, argNodes...)
	}
}

func boolWord(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func fbits(f float64) uint64    { return math.Float64bits(f) }
func funf(u uint64) float64     { return math.Float64frombits(u) }

// arithmeticSpecs covers +,-,*,/ over int/uint/float, % over int, plus
// unary negation over int and float, matching spec §8's worked `(+ int int) -> int` example.
func arithmeticSpecs() []opSpec {
	i, u, f := types.Int(), types.Uint(), types.Float()
	var out []opSpec
	out = append(out,
		opSpec{"+", []types.TypeDecl{i, i}, i, func(m exec.Machine, a []uint64) (uint64, error) { return uint64(int64(a[0]) + int64(a[1])), nil }},
		opSpec{"-", []types.TypeDecl{i, i}, i, func(m exec.Machine, a []uint64) (uint64, error) { return uint64(int64(a[0]) - int64(a[1])), nil }},
		opSpec{"*", []types.TypeDecl{i, i}, i, func(m exec.Machine, a []uint64) (uint64, error) { return uint64(int64(a[0]) * int64(a[1])), nil }},
		opSpec{"/", []types.TypeDecl{i, i}, i, func(m exec.Machine, a []uint64) (uint64, error) {
			if int64(a[1]) == 0 {
				return 0, errDivByZero
			}
			return uint64(int64(a[0]) / int64(a[1])), nil
		}},
		opSpec{"%", []types.TypeDecl{i, i}, i, func(m exec.Machine, a []uint64) (uint64, error) {
			if int64(a[1]) == 0 {
				return 0, errDivByZero
			}
			return uint64(int64(a[0]) % int64(a[1])), nil
		}},
		opSpec{"-", []types.TypeDecl{i}, i, func(m exec.Machine, a []uint64) (uint64, error) { return uint64(-int64(a[0])), nil }},

		opSpec{"+", []types.TypeDecl{u, u}, u, func(m exec.Machine, a []uint64) (uint64, error) { return a[0] + a[1], nil }},
		opSpec{"-", []types.TypeDecl{u, u}, u, func(m exec.Machine, a []uint64) (uint64, error) { return a[0] - a[1], nil }},
		opSpec{"*", []types.TypeDecl{u, u}, u, func(m exec.Machine, a []uint64) (uint64, error) { return a[0] * a[1], nil }},
		opSpec{"/", []types.TypeDecl{u, u}, u, func(m exec.Machine, a []uint64) (uint64, error) {
			if a[1] == 0 {
				return 0, errDivByZero
			}
			return a[0] / a[1], nil
		}},

		opSpec{"+", []types.TypeDecl{f, f}, f, func(m exec.Machine, a []uint64) (uint64, error) { return fbits(funf(a[0]) + funf(a[1])), nil }},
		opSpec{"-", []types.TypeDecl{f, f}, f, func(m exec.Machine, a []uint64) (uint64, error) { return fbits(funf(a[0]) - funf(a[1])), nil }},
		opSpec{"*", []types.TypeDecl{f, f}, f, func(m exec.Machine, a []uint64) (uint64, error) { return fbits(funf(a[0]) * funf(a[1])), nil }},
		opSpec{"/", []types.TypeDecl{f, f}, f, func(m exec.Machine, a []uint64) (uint64, error) { return fbits(funf(a[0]) / funf(a[1])), nil }},
		opSpec{"-", []types.TypeDecl{f}, f, func(m exec.Machine, a []uint64) (uint64, error) { return fbits(-funf(a[0])), nil }},
	)
	return out
}

var errDivByZero = &RuntimeError{Msg: "division by zero"}

// comparisonSpecs covers ==,!=,<,<=,>,>= over int/uint/float and
// ==,!= over bool and pointer (identity comparison).
func comparisonSpecs() []opSpec {
	i, u, f, bl, p := types.Int(), types.Uint(), types.Float(), types.Bool(), types.TypeDecl{Base: types.KindPointer}
	bo := types.Bool()
	var out []opSpec
	add := func(name string, t types.TypeDecl, cmp func(a, b uint64) bool) {
		out = append(out, opSpec{name, []types.TypeDecl{t, t}, bo, func(m exec.Machine, a []uint64) (uint64, error) {
			return boolWord(cmp(a[0], a[1])), nil
		}})
	}
	addI := func(name string, cmp func(a, b int64) bool) {
		add(name, i, func(a, b uint64) bool { return cmp(int64(a), int64(b)) })
	}
	addU := func(name string, cmp func(a, b uint64) bool) {
		add(name, u, cmp)
	}
	addF := func(name string, cmp func(a, b float64) bool) {
		add(name, f, func(a, b uint64) bool { return cmp(funf(a), funf(b)) })
	}
	addI("==", func(a, b int64) bool { return a == b })
	addI("!=", func(a, b int64) bool { return a != b })
	addI("<", func(a, b int64) bool { return a < b })
	addI("<=", func(a, b int64) bool { return a <= b })
	addI(">", func(a, b int64) bool { return a > b })
	addI(">=", func(a, b int64) bool { return a >= b })

	addU("==", func(a, b uint64) bool { return a == b })
	addU("!=", func(a, b uint64) bool { return a != b })
	addU("<", func(a, b uint64) bool { return a < b })
	addU("<=", func(a, b uint64) bool { return a <= b })
	addU(">", func(a, b uint64) bool { return a > b })
	addU(">=", func(a, b uint64) bool { return a >= b })

	addF("==", func(a, b float64) bool { return a == b })
	addF("!=", func(a, b float64) bool { return a != b })
	addF("<", func(a, b float64) bool { return a < b })
	addF("<=", func(a, b float64) bool { return a <= b })
	addF(">", func(a, b float64) bool { return a > b })
	addF(">=", func(a, b float64) bool { return a >= b })

	add("==", bl, func(a, b uint64) bool { return a == b })
	add("!=", bl, func(a, b uint64) bool { return a != b })
	add("==", p, func(a, b uint64) bool { return a == b })
	add("!=", p, func(a, b uint64) bool { return a != b })
	return out
}

// logicalSpecs covers &&, ||, ! over bool. The language has no
// short-circuit special form (Call/Op2 always evaluates both operands,
// spec §4.5), so these are plain strict boolean operators.
func logicalSpecs() []opSpec {
	bo := types.Bool()
	return []opSpec{
		{"&&", []types.TypeDecl{bo, bo}, bo, func(m exec.Machine, a []uint64) (uint64, error) { return boolWord(a[0] != 0 && a[1] != 0), nil }},
		{"||", []types.TypeDecl{bo, bo}, bo, func(m exec.Machine, a []uint64) (uint64, error) { return boolWord(a[0] != 0 || a[1] != 0), nil }},
		{"!", []types.TypeDecl{bo}, bo, func(m exec.Machine, a []uint64) (uint64, error) { return boolWord(a[0] == 0), nil }},
	}
}

// stringSpecs covers string concatenation, equality and length,
// supplemented from daScript's builtin string module
// (module_builtin_string.cpp; see SPEC_FULL.md "Supplemented
// features").
func stringSpecs() []opSpec {
	s, bo, i := types.String(), types.Bool(), types.Int()
	return []opSpec{
		{"+", []types.TypeDecl{s, s}, s, func(m exec.Machine, a []uint64) (uint64, error) {
			return uint64(m.InternString(m.ReadString(int64(a[0])) + m.ReadString(int64(a[1])))), nil
		}},
		{"==", []types.TypeDecl{s, s}, bo, func(m exec.Machine, a []uint64) (uint64, error) {
			return boolWord(m.ReadString(int64(a[0])) == m.ReadString(int64(a[1]))), nil
		}},
		{"!=", []types.TypeDecl{s, s}, bo, func(m exec.Machine, a []uint64) (uint64, error) {
			return boolWord(m.ReadString(int64(a[0])) != m.ReadString(int64(a[1]))), nil
		}},
		{"length", []types.TypeDecl{s}, i, func(m exec.Machine, a []uint64) (uint64, error) {
			return uint64(len(m.ReadString(int64(a[0])))), nil
		}},
		{"upper", []types.TypeDecl{s}, s, func(m exec.Machine, a []uint64) (uint64, error) {
			return uint64(m.InternString(strings.ToUpper(m.ReadString(int64(a[0]))))), nil
		}},
	}
}
