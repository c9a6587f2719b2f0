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

package exec

import (
	"fmt"

	"github.com/doytsujin/daScript/ast"
	"github.com/doytsujin/daScript/symbols"
)

// CompileError is an error associated with lowering a resolved AST into
// the SimNode execution graph (mirrors plan/pir.CompileError). In is
// the expression being lowered when the failure happened, or nil for a
// whole-function failure (no native factory, no lowerable body) in
// which case Fn names the function instead.
type CompileError struct {
	In  ast.Expr
	Fn  *symbols.Function
	Err string
}

func (c *CompileError) Error() string { return c.Err }

func errorf(e ast.Expr, f string, args ...interface{}) error {
	return &CompileError{In: e, Err: fmt.Sprintf(f, args...)}
}

func errorfFn(fn *symbols.Function, f string, args ...interface{}) error {
	return &CompileError{Fn: fn, Err: fmt.Sprintf(f, args...)}
}
