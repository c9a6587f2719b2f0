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

// Package resolve implements the single top-down resolver/type
// inference pass (spec §4.4), overload resolution (spec §4.5) and
// stack-frame layout (spec §4.6). Grounded on plan/pir (the teacher's
// resolve/typecheck stage: plan/pir/resolve.go, plan/pir/scope.go,
// plan/pir/build.go) and on expr.TypeError / expr.SyntaxError for the
// error shape.
package resolve

import (
	"fmt"

	"github.com/doytsujin/daScript/ast"
	"github.com/doytsujin/daScript/types"
)

// TypeError is returned when an expression is well-formed but
// ill-typed: name resolution failure, type mismatch, ambiguous
// overload, illegal operation for type, etc. (spec §7).
type TypeError struct {
	At  ast.Expr
	Msg string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: ill-typed: %s", e.At.Loc(), e.Msg)
}

// SyntaxError is returned for malformed declarations recognized during
// lexing/parsing (package synode) or AST building (package dascript's
// build.go: arity, unknown heads) rather than during type inference;
// kept distinct from TypeError per spec §7 taxonomy. It carries a raw
// types.Loc rather than an ast.Expr because these failures occur
// before any typed AST node exists.
type SyntaxError struct {
	Loc types.Loc
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
}

// NewSyntaxError builds a SyntaxError at loc with a formatted message.
func NewSyntaxError(loc types.Loc, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

func errtype(e ast.Expr, format string, args ...interface{}) *TypeError {
	return &TypeError{At: e, Msg: fmt.Sprintf(format, args...)}
}

// manyErrors collapses multiple accumulated errors, following the
// teacher's `"%w and %d other errors"` convention (expr/check.go).
func manyErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("%w and %d other errors", errs[0], len(errs)-1)
}
