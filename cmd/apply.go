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

package cmd

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/gremlor/gremlor/internal/cache"
	"github.com/gremlor/gremlor/internal/engine"
	"github.com/gremlor/gremlor/internal/gomodule"
	"github.com/gremlor/gremlor/internal/log"
	"github.com/gremlor/gremlor/internal/mutator"
)

type applyCmd struct {
	cmd *cobra.Command
}

const paramBackup = "backup"

func newApplyCmd() (*applyCmd, error) {
	cmd := &cobra.Command{
		Use:   "apply <pk>",
		Args:  cobra.ExactArgs(1),
		Short: "Write a cached mutant's source change back into the module",
		Long: heredoc.Doc(`
			Re-derives the mutation cached under <pk> by re-parsing its source file and
			locating the node that produced it, then overwrites the file in place with
			the mutation applied. Use --backup to keep a copy of the original file
			alongside it, suffixed '.orig'.
		`),
		RunE: runApply,
	}
	cmd.Flags().Bool(paramBackup, false, "keep a copy of the original file, suffixed '.orig'")

	return &applyCmd{cmd: cmd}, nil
}

func runApply(cmd *cobra.Command, args []string) error {
	pk, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid pk %q: %w", args[0], err)
	}

	mod, mutCache, _, err := openModuleCache("")
	if err != nil {
		return err
	}
	defer mutCache.Close()

	rec, ok := mutCache.GetByID(uint(pk))
	if !ok {
		return fmt.Errorf("no mutant with pk %d", pk)
	}

	backup, _ := cmd.Flags().GetBool(paramBackup)

	return applyRecord(mod, rec, backup)
}

func applyRecord(mod gomodule.GoModule, rec cache.Record, backup bool) error {
	absPath := filepath.Join(mod.Root, mod.CallingDir, rec.Filename)
	workdir := filepath.Join(mod.Root, mod.CallingDir)

	mt, ok := mutator.ParseType(rec.MutantType)
	if !ok {
		return fmt.Errorf("unknown mutant type %q cached for pk %d", rec.MutantType, rec.ID)
	}

	applier, err := findMutant(absPath, rec.Filename, rec.LineNumber, mt)
	if err != nil {
		return err
	}

	if backup {
		if err := backupFile(absPath); err != nil {
			return fmt.Errorf("failed to back up %s: %w", rec.Filename, err)
		}
	}

	applier.SetWorkdir(workdir)
	if err := applier.Apply(); err != nil {
		return fmt.Errorf("failed to apply mutation: %w", err)
	}

	log.Infof("applied mutant #%d (%s) to %s:%d\n", rec.ID, rec.MutantType, rec.Filename, rec.LineNumber)

	return nil
}

// applier is the subset of mutator.Mutator that applyRecord needs: both
// *mutator.TokenMutant and *engine.ExprMutator satisfy it.
type applier interface {
	SetWorkdir(path string)
	Apply() error
}

// findMutant re-parses filename and walks it the same way the engine does
// during discovery, returning the first mutant on line whose type matches
// wanted, trying token-based mutations before expression-based ones. Ties
// on the same line and type resolve to the first node encountered, the
// best available approximation without replaying the full run that minted
// the original pk.
func findMutant(absPath, relPath string, line int, wanted mutator.Type) (applier, error) {
	set := token.NewFileSet()

	file, err := parser.ParseFile(set, absPath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relPath, err)
	}

	if tm := findTokenMutant(set, file, line, wanted); tm != nil {
		return tm, nil
	}

	if em := findExprMutant(set, file, line, wanted); em != nil {
		return em, nil
	}

	return nil, fmt.Errorf("no %s mutation found at %s:%d", wanted, relPath, line)
}

func backupFile(absPath string) error {
	data, err := os.ReadFile(absPath) //nolint:gosec
	if err != nil {
		return err
	}

	return os.WriteFile(absPath+".orig", data, 0600)
}

// findTokenMutant returns the first token-based mutant on line whose type
// matches wanted, or nil if none matches.
func findTokenMutant(set *token.FileSet, file *ast.File, line int, wanted mutator.Type) *mutator.TokenMutant {
	var found *mutator.TokenMutant

	ast.Inspect(file, func(node ast.Node) bool {
		if found != nil {
			return false
		}

		n, ok := mutator.NewTokenNode(node)
		if !ok {
			return true
		}

		pos := set.Position(n.TokPos)
		if pos.Line != line {
			return true
		}

		for _, mt := range mutator.TokenMutantType[n.Tok()] {
			if mt == wanted {
				tm := mutator.NewTokenMutant(file.Name.Name, set, file, n)
				tm.SetType(mt)
				found = tm

				return false
			}
		}

		return true
	})

	return found
}

// findExprMutant returns the first expression-based mutant on line whose
// type matches wanted, or nil if none matches.
func findExprMutant(set *token.FileSet, file *ast.File, line int, wanted mutator.Type) *engine.ExprMutator {
	var found *engine.ExprMutator

	ast.Inspect(file, func(node ast.Node) bool {
		if found != nil {
			return false
		}

		n, ok := engine.NewExprNode(node)
		if !ok {
			return true
		}

		if set.Position(n.Pos()).Line != line {
			return true
		}

		candidates := engine.GetExprMutantTypes(n.Expr())
		parent, replaceFunc := findParentAndReplacer(file, node)
		if parent != nil {
			if mt, ok := engine.GetArgumentZeroingType(parent, n.Expr()); ok {
				candidates = append(candidates, mt)
			}
		}

		for _, mt := range candidates {
			if mt != wanted {
				continue
			}
			if parent == nil || replaceFunc == nil {
				continue
			}

			em := engine.NewExprMutant(file.Name.Name, set, file, n, parent, replaceFunc)
			em.SetType(mt)
			found = em

			return false
		}

		return true
	})

	return found
}

// findParentAndReplacer mirrors internal/engine's unexported helper of the
// same name: it locates the AST parent of target and a function to splice
// a replacement expression into the exact slot target occupied.
func findParentAndReplacer(file *ast.File, target ast.Node) (ast.Node, func(ast.Expr) error) {
	var parent ast.Node
	var replacer func(ast.Expr) error

	ast.Inspect(file, func(n ast.Node) bool {
		if n == nil {
			return false
		}

		switch p := n.(type) {
		case *ast.UnaryExpr:
			if p.X == target {
				parent = p
				replacer = func(e ast.Expr) error { p.X = e; return nil }

				return false
			}
		case *ast.BinaryExpr:
			if p.X == target {
				parent = p
				replacer = func(e ast.Expr) error { p.X = e; return nil }

				return false
			}
			if p.Y == target {
				parent = p
				replacer = func(e ast.Expr) error { p.Y = e; return nil }

				return false
			}
		case *ast.ParenExpr:
			if p.X == target {
				parent = p
				replacer = func(e ast.Expr) error { p.X = e; return nil }

				return false
			}
		case *ast.CallExpr:
			for i, arg := range p.Args {
				if arg == target {
					parent = p
					idx := i
					replacer = func(e ast.Expr) error { p.Args[idx] = e; return nil }

					return false
				}
			}
		case *ast.ReturnStmt:
			for i, result := range p.Results {
				if result == target {
					parent = p
					idx := i
					replacer = func(e ast.Expr) error { p.Results[idx] = e; return nil }

					return false
				}
			}
		case *ast.AssignStmt:
			for i, expr := range p.Lhs {
				if expr == target {
					parent = p
					idx := i
					replacer = func(e ast.Expr) error { p.Lhs[idx] = e; return nil }

					return false
				}
			}
			for i, expr := range p.Rhs {
				if expr == target {
					parent = p
					idx := i
					replacer = func(e ast.Expr) error { p.Rhs[idx] = e; return nil }

					return false
				}
			}
		case *ast.IfStmt:
			if p.Cond == target {
				parent = p
				replacer = func(e ast.Expr) error { p.Cond = e; return nil }

				return false
			}
		case *ast.ForStmt:
			if p.Cond == target {
				parent = p
				replacer = func(e ast.Expr) error { p.Cond = e; return nil }

				return false
			}
		case *ast.SwitchStmt:
			if p.Tag == target {
				parent = p
				replacer = func(e ast.Expr) error { p.Tag = e; return nil }

				return false
			}
		}

		return true
	})

	return parent, replacer
}
