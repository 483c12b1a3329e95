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

	"github.com/gremlor/gremlor/internal/mutator"
)

// GetExprMutantTypes returns the mutator.Type values applicable to an
// expression-level mutation point: a logical NOT wrap, a numeric/string
// literal rewrite, or a boolean literal flip.
func GetExprMutantTypes(expr ast.Expr) []mutator.Type {
	switch e := expr.(type) {
	case *ast.UnaryExpr:
		if e.Op == token.NOT {
			return []mutator.Type{mutator.InvertLogicalNot}
		}

		return nil
	case *ast.BasicLit:
		switch e.Kind {
		case token.INT, token.FLOAT:
			return []mutator.Type{mutator.NumberLiteral}
		case token.STRING:
			return []mutator.Type{mutator.StringLiteral}
		default:
			return nil
		}
	case *ast.Ident:
		if e.Name == "true" || e.Name == "false" {
			return []mutator.Type{mutator.BoolLiteral}
		}

		return nil
	default:
		return nil
	}
}

// GetArgumentZeroingType reports whether expr, found as astNode's literal
// child under parent, is also eligible for ArgumentZeroing: a literal
// passed directly as a call argument. It is evaluated independently of
// GetExprMutantTypes so a single literal argument can carry both its
// literal-kind mutation and the call-argument-specific one.
func GetArgumentZeroingType(parent ast.Node, expr ast.Expr) (mutator.Type, bool) {
	call, ok := parent.(*ast.CallExpr)
	if !ok {
		return 0, false
	}

	for _, arg := range call.Args {
		if arg != expr {
			continue
		}

		switch e := expr.(type) {
		case *ast.BasicLit:
			if (e.Kind == token.INT && e.Value != "0") || e.Kind == token.FLOAT || (e.Kind == token.STRING && e.Value != `""`) {
				return mutator.ArgumentZeroing, true
			}
		case *ast.Ident:
			if e.Name == "true" {
				return mutator.ArgumentZeroing, true
			}
		}
	}

	return 0, false
}
