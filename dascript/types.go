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

// Package dascript implements spec §6's Embedding API (Compile,
// Simulate, Invoke, RegisterBuiltin) by building synode.Node forms
// into the ast/symbols declaration layer, driving resolve.InferProgram
// over them, and lowering the result through package exec into a
// package runtime Context. It is the one package that knows about
// every other layer, mirroring how the teacher's top-level package
// wires plan/pir and vm together behind a small host-facing surface.
package dascript

import (
	"fmt"
	"strings"

	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/synode"
	"github.com/doytsujin/daScript/types"
)

// baseKeywords maps the type keywords a synode.Node atom can spell to
// their types.Kind, per spec §3 TypeDecl's base-kind set.
var baseKeywords = map[string]types.Kind{
	"void":   types.KindVoid,
	"bool":   types.KindBool,
	"int":    types.KindInt,
	"uint":   types.KindUint,
	"int2":   types.KindInt2,
	"int3":   types.KindInt3,
	"int4":   types.KindInt4,
	"uint2":  types.KindUint2,
	"uint3":  types.KindUint3,
	"uint4":  types.KindUint4,
	"float":  types.KindFloat,
	"float2": types.KindFloat2,
	"float3": types.KindFloat3,
	"float4": types.KindFloat4,
	"string": types.KindString,
	"table":  types.KindTable,
	"range":  types.KindRange,
}

// isTypeName reports whether name spells a recognized type: a base
// keyword or a previously-declared structure. Used by buildSizeOf to
// tell a type operand (SizeOfType) from an expression operand
// (SizeOfExpr).
func isTypeName(prog *symbols.Program, name string) bool {
	if _, ok := baseKeywords[name]; ok {
		return true
	}
	_, ok := prog.Structure(name)
	return ok
}

// typeByName resolves a bare type-name atom (no pointer/dims suffix)
// to a TypeDecl: a base keyword, or a structure registered in prog.
func typeByName(prog *symbols.Program, name string) (types.TypeDecl, error) {
	if k, ok := baseKeywords[name]; ok {
		return types.TypeDecl{Base: k}, nil
	}
	if s, ok := prog.Structure(name); ok {
		return types.Struct(s), nil
	}
	return types.TypeDecl{}, fmt.Errorf("unknown type name %q", name)
}

// typeByKeyword resolves a string-form type spelling as used by YAML
// builtin manifests (see RegisterBuiltinsFromYAML): a bare type name,
// or a structure name followed by "*" for a pointer-to-structure.
func typeByKeyword(prog *symbols.Program, spelling string) (types.TypeDecl, error) {
	s := strings.TrimSpace(spelling)
	if strings.HasSuffix(s, "*") {
		base := strings.TrimSpace(strings.TrimSuffix(s, "*"))
		st, ok := prog.Structure(base)
		if !ok {
			return types.TypeDecl{}, fmt.Errorf("unknown structure %q in pointer type %q", base, spelling)
		}
		return types.Pointer(st), nil
	}
	return typeByName(prog, s)
}

// parseTypeNode resolves a single plain type-name atom (a base keyword
// or a declared structure) to a TypeDecl; pointer and dims suffixes are
// not handled here. It is used for a defun's result type.
func parseTypeNode(prog *symbols.Program, n *synode.Node) (types.TypeDecl, error) {
	if n == nil || n.Kind() != synode.KindName {
		return types.TypeDecl{}, fmt.Errorf("%s: expected a type name", locString(n))
	}
	return typeByName(prog, n.Name())
}

func locString(n *synode.Node) string {
	if n == nil {
		return "<eof>"
	}
	return n.Loc().String()
}
