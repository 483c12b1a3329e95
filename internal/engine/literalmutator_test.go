/*
 * Copyright 2024 The Gremlins Authors
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

package engine_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gremlor/gremlor/internal/engine"
	"github.com/gremlor/gremlor/internal/mutator"
)

func TestExprMutatorLiteralApply(t *testing.T) {
	testCases := []struct {
		name         string
		original     string
		mutated      string
		mutationType mutator.Type
	}{
		{
			name:         "number literal increments decimal int",
			original:     "package main\n\nfunc f() int {\n\treturn 1\n}\n",
			mutated:      "package main\n\nfunc f() int {\n\treturn 2\n}\n",
			mutationType: mutator.NumberLiteral,
		},
		{
			name:         "number literal increments hex int preserving base",
			original:     "package main\n\nfunc f() int {\n\treturn 0x1\n}\n",
			mutated:      "package main\n\nfunc f() int {\n\treturn 0x2\n}\n",
			mutationType: mutator.NumberLiteral,
		},
		{
			name:         "number literal increments float",
			original:     "package main\n\nfunc f() float64 {\n\treturn 1.5\n}\n",
			mutated:      "package main\n\nfunc f() float64 {\n\treturn 2.5\n}\n",
			mutationType: mutator.NumberLiteral,
		},
		{
			name:         "string literal wraps interior with XX sentinels",
			original:     "package main\n\nfunc f() string {\n\treturn \"hello\"\n}\n",
			mutated:      "package main\n\nfunc f() string {\n\treturn \"XXhelloXX\"\n}\n",
			mutationType: mutator.StringLiteral,
		},
		{
			name:         "bool literal flips true to false",
			original:     "package main\n\nfunc f() bool {\n\treturn true\n}\n",
			mutated:      "package main\n\nfunc f() bool {\n\treturn false\n}\n",
			mutationType: mutator.BoolLiteral,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			workdir := t.TempDir()
			filePath := "sourceFile.go"
			fileFullPath := filepath.Join(workdir, filePath)

			if err := os.WriteFile(fileFullPath, []byte(tc.original), 0600); err != nil {
				t.Fatal(err)
			}

			set := token.NewFileSet()
			f, err := parser.ParseFile(set, filePath, tc.original, parser.ParseComments)
			if err != nil {
				t.Fatal(err)
			}

			var foundExpr ast.Expr
			ast.Inspect(f, func(n ast.Node) bool {
				if foundExpr != nil {
					return false
				}
				if node, ok := engine.NewExprNode(n); ok {
					types := engine.GetExprMutantTypes(node.Expr())
					for _, mt := range types {
						if mt == tc.mutationType {
							foundExpr = node.Expr()

							return false
						}
					}
				}

				return true
			})

			if foundExpr == nil {
				t.Fatalf("no eligible %s literal found", tc.mutationType)
			}

			exprNode, ok := engine.NewExprNode(foundExpr)
			if !ok {
				t.Fatal("new expr node should be created")
			}

			parentNode, replaceFunc := findParentAndReplacerForTest(f, foundExpr)
			if parentNode == nil || replaceFunc == nil {
				t.Fatal("parent/replacer should be found")
			}

			mut := engine.NewExprMutant("example.com/test", set, f, exprNode, parentNode, replaceFunc)
			mut.SetType(tc.mutationType)
			mut.SetStatus(mutator.Runnable)
			mut.SetWorkdir(workdir)

			if err := mut.Apply(); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}

			//nolint:gosec // test code reading test file
			got, err := os.ReadFile(fileFullPath)
			if err != nil {
				t.Fatal(err)
			}
			if !cmp.Equal(string(got), tc.mutated) {
				t.Errorf("After Apply:\n%s", cmp.Diff(tc.mutated, string(got)))
			}

			if err := mut.Rollback(); err != nil {
				t.Fatalf("Rollback failed: %v", err)
			}

			//nolint:gosec // test code reading test file
			got, err = os.ReadFile(fileFullPath)
			if err != nil {
				t.Fatal(err)
			}
			if !cmp.Equal(string(got), tc.original) {
				t.Errorf("After Rollback:\n%s", cmp.Diff(tc.original, string(got)))
			}
		})
	}
}

func TestGetArgumentZeroingType(t *testing.T) {
	src := "package main\n\nfunc g(int, string) {}\nfunc f() {\n\tg(1, \"x\")\n}\n"
	set := token.NewFileSet()
	f, err := parser.ParseFile(set, "f.go", src, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	var call *ast.CallExpr
	ast.Inspect(f, func(n ast.Node) bool {
		if c, ok := n.(*ast.CallExpr); ok {
			if ident, ok := c.Fun.(*ast.Ident); ok && ident.Name == "g" {
				call = c

				return false
			}
		}

		return true
	})

	if call == nil {
		t.Fatal("call to g not found")
	}

	for _, arg := range call.Args {
		mt, ok := engine.GetArgumentZeroingType(call, arg)
		if !ok {
			t.Errorf("expected arg %v to be eligible for ArgumentZeroing", arg)
		}
		if mt != mutator.ArgumentZeroing {
			t.Errorf("expected ArgumentZeroing, got %v", mt)
		}
	}

	if _, ok := engine.GetArgumentZeroingType(call, call.Fun); ok {
		t.Error("the callee itself should not be eligible for ArgumentZeroing")
	}
}

func TestExprMutatorZeroArgument(t *testing.T) {
	workdir := t.TempDir()
	filePath := "sourceFile.go"
	original := "package main\n\nfunc g(int) {}\nfunc f() {\n\tg(42)\n}\n"
	mutated := "package main\n\nfunc g(int) {}\nfunc f() {\n\tg(0)\n}\n"

	fileFullPath := filepath.Join(workdir, filePath)
	if err := os.WriteFile(fileFullPath, []byte(original), 0600); err != nil {
		t.Fatal(err)
	}

	set := token.NewFileSet()
	f, err := parser.ParseFile(set, filePath, original, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	var lit *ast.BasicLit
	ast.Inspect(f, func(n ast.Node) bool {
		if l, ok := n.(*ast.BasicLit); ok && l.Kind == token.INT {
			lit = l

			return false
		}

		return true
	})

	if lit == nil {
		t.Fatal("int literal not found")
	}

	exprNode, ok := engine.NewExprNode(lit)
	if !ok {
		t.Fatal("new expr node should be created")
	}

	parentNode, replaceFunc := findParentAndReplacerForTest(f, lit)
	if parentNode == nil || replaceFunc == nil {
		t.Fatal("parent/replacer should be found")
	}

	mut := engine.NewExprMutant("example.com/test", set, f, exprNode, parentNode, replaceFunc)
	mut.SetType(mutator.ArgumentZeroing)
	mut.SetWorkdir(workdir)

	if err := mut.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	//nolint:gosec // test code reading test file
	got, err := os.ReadFile(fileFullPath)
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(string(got), mutated) {
		t.Errorf("After Apply:\n%s", cmp.Diff(mutated, string(got)))
	}
}
