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

package synode

import (
	"github.com/doytsujin/daScript/resolve"
	"github.com/doytsujin/daScript/types"
)

// Parse reads a full source unit and returns the top-level forms, in
// order (spec §6: "every declaration is `(head arg ...)`"). file is
// used only to stamp source locations; it need not be a real path.
func Parse(file, src string) ([]*Node, error) {
	l := newLexer(file, src)
	var forms []*Node
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			return forms, nil
		}
		n, err := parseForm(l, tok)
		if err != nil {
			return nil, err
		}
		forms = append(forms, n)
	}
}

// ParseProgram reads a full source unit and wraps its top-level forms
// in a single synthetic list Node, matching spec §6's singular
// "compile(root_node, ...)" signature: the host hands the core one
// root_node rather than a slice of forms.
func ParseProgram(file, src string) (*Node, error) {
	forms, err := Parse(file, src)
	if err != nil {
		return nil, err
	}
	return &Node{kind: KindList, items: forms, loc: types.Loc{File: file, Line: 1, Column: 1}}, nil
}

// ParseOne reads exactly one top-level form; convenient for tests and
// for hosts that build up a program one expression at a time.
func ParseOne(file, src string) (*Node, error) {
	forms, err := Parse(file, src)
	if err != nil {
		return nil, err
	}
	if len(forms) != 1 {
		return nil, resolve.NewSyntaxError(types.Loc{File: file, Line: 1, Column: 1},
			"expected exactly one top-level form, got %d", len(forms))
	}
	return forms[0], nil
}

// parseForm parses a single atom or list starting at the already-read
// token tok.
func parseForm(l *lexer, tok token) (*Node, error) {
	switch tok.kind {
	case tokLParen:
		return parseList(l, tok)
	case tokString:
		return &Node{kind: KindString, text: tok.text, loc: l.locAt(tok)}, nil
	case tokAtom:
		return classifyAtom(tok.text, l.locAt(tok))
	case tokRParen:
		return nil, resolve.NewSyntaxError(l.locAt(tok), "unexpected ')'")
	default:
		return nil, resolve.NewSyntaxError(l.locAt(tok), "unexpected token")
	}
}

func parseList(l *lexer, open token) (*Node, error) {
	n := &Node{kind: KindList, loc: l.locAt(open)}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			return nil, resolve.NewSyntaxError(l.locAt(open), "unterminated list")
		}
		if tok.kind == tokRParen {
			return n, nil
		}
		child, err := parseForm(l, tok)
		if err != nil {
			return nil, err
		}
		n.items = append(n.items, child)
	}
}
