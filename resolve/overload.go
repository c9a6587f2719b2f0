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

package resolve

import (
	"github.com/doytsujin/daScript/ast"
	"github.com/doytsujin/daScript/symbols"
	"github.com/doytsujin/daScript/types"
)

// ResolveOverload implements spec §4.5: given a name and a positional
// list of actual argument types, find the unique matching function.
// Operators are resolved through the same path; their "name" is their
// textual symbol (e.g. "+", "=="), registered into the same
// byPlainName overload set as ordinary functions.
func ResolveOverload(prog *symbols.Program, at ast.Expr, name string, actual []types.TypeDecl) (*symbols.Function, error) {
	candidates := prog.Overloads(name)
	if len(candidates) == 0 {
		return nil, errtype(at, "no function named %q", name)
	}

	var survivors []*symbols.Function
candidate:
	for _, fn := range candidates {
		if len(fn.Args) < len(actual) {
			continue // formal arity must be >= actual count
		}
		for i, a := range actual {
			formal := fn.Args[i].Type
			if formal.IsRef() && !a.IsRef() {
				continue candidate
			}
			if !formal.IsSame(a, false) {
				continue candidate
			}
		}
		for i := len(actual); i < len(fn.Args); i++ {
			if !fn.Args[i].HasInit {
				continue candidate // tail argument omitted but has no default
			}
		}
		survivors = append(survivors, fn)
	}

	switch len(survivors) {
	case 0:
		return nil, errtype(at, "no matching function for %q with %d argument(s)", name, len(actual))
	case 1:
		return survivors[0], nil
	default:
		return nil, errtype(at, "too many matching functions for %q with %d argument(s)", name, len(actual))
	}
}

// BackfillDefaults returns clones of the default initializer
// expressions for every formal argument beyond len(actual), per spec
// §4.5 step 4. The clones are returned untyped; the caller infers each
// one at the call site (see resolveOperands).
func BackfillDefaults(fn *symbols.Function, actualCount int) []ast.Expr {
	if actualCount >= len(fn.Args) {
		return nil
	}
	out := make([]ast.Expr, 0, len(fn.Args)-actualCount)
	for i := actualCount; i < len(fn.Args); i++ {
		init, _ := fn.Args[i].Init.(ast.Expr)
		if init == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, init.Clone())
	}
	return out
}
