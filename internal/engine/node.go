/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package engine

import (
	"go/ast"
	"go/token"
)

// NodeExpr represents an expression-level mutation point.
// Unlike NodeToken which mutates tokens, NodeExpr supports mutations that
// require AST reconstruction (e.g., wrapping expressions).
type NodeExpr struct {
	expr ast.Expr  // The expression to mutate
	pos  token.Pos // Position for reporting
}

// NewExprNode checks if the ast.Node represents an expression that can be
// mutated at the expression level. Returns false if the node type is not
// supported for expression mutations.
func NewExprNode(n ast.Node) (*NodeExpr, bool) {
	switch expr := n.(type) {
	case *ast.UnaryExpr:
		// Support unary expressions for wrapping mutations (e.g., !x → !!x)
		return &NodeExpr{
			expr: expr,
			pos:  expr.Pos(),
		}, true
	case *ast.BasicLit:
		switch expr.Kind {
		case token.INT, token.FLOAT, token.STRING:
			if expr.Kind == token.STRING && isRawStringLit(expr.Value) {
				return nil, false
			}

			return &NodeExpr{
				expr: expr,
				pos:  expr.Pos(),
			}, true
		default:
			return nil, false
		}
	case *ast.Ident:
		if expr.Name == "true" || expr.Name == "false" {
			return &NodeExpr{
				expr: expr,
				pos:  expr.Pos(),
			}, true
		}

		return nil, false
	default:
		return nil, false
	}
}

// isRawStringLit reports whether a string literal's source text is a raw
// (backtick-delimited) string, which gremlor never mutates since a `XX`
// sentinel can collide with backtick-quoting rules.
func isRawStringLit(value string) bool {
	return len(value) > 0 && value[0] == '`'
}

// Expr returns the expression node.
func (n *NodeExpr) Expr() ast.Expr {
	return n.expr
}

// Pos returns the position of the expression.
func (n *NodeExpr) Pos() token.Pos {
	return n.pos
}
