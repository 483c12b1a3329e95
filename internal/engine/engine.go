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

// Package engine orchestrates mutation testing by discovering, applying, and testing mutations.
package engine

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gremlor/gremlor/internal/coverage"
	"github.com/gremlor/gremlor/internal/diff"
	"github.com/gremlor/gremlor/internal/engine/workerpool"
	"github.com/gremlor/gremlor/internal/exclusion"
	"github.com/gremlor/gremlor/internal/mutantid"
	"github.com/gremlor/gremlor/internal/mutator"
	"github.com/gremlor/gremlor/internal/report"
	"github.com/gremlor/gremlor/internal/sourcefile"

	"github.com/gremlor/gremlor/internal/configuration"
	"github.com/gremlor/gremlor/internal/gomodule"
)

// Engine is the "engine" that performs the mutation testing.
//
// It traverses the AST of the project, finds which TokenMutator can be applied and
// performs the actual mutation testing.
type Engine struct {
	fs           fs.FS
	rootDir      string
	jDealer      ExecutorDealer
	codeData     CodeData
	mutantStream chan mutator.Mutator
	module       gomodule.GoModule
	logger       report.MutantLogger
	cache        Cache
	testsHash    string
}

// Cache is the subset of *cache.Cache the Engine needs to skip mutants
// that were already tested against the current test suite. It is defined
// here, rather than depending on package cache directly, so the cache
// stays an implementation detail of the command layer that opens it.
type Cache interface {
	Get(id mutantid.ID, testsHash string) (mutator.Status, bool)
}

// CodeData is used to check if the mutant should be executed.
type CodeData struct {
	Cov       coverage.Profile
	Diff      diff.Diff
	Exclusion exclusion.Rules
}

// Option for the Engine initialization.
type Option func(m Engine) Engine

// New instantiates an Engine.
//
// It gets a fs.FS on which to perform the analysis, a CodeData to
// check if the mutants are executable and a sets of Option.
func New(mod gomodule.GoModule, codeData CodeData, jDealer ExecutorDealer, opts ...Option) Engine {
	root := filepath.Join(mod.Root, mod.CallingDir)
	dirFS := os.DirFS(root)
	mut := Engine{
		module:   mod,
		jDealer:  jDealer,
		codeData: codeData,
		fs:       dirFS,
		rootDir:  root,
		logger:   report.NewLogger(),
	}
	for _, opt := range opts {
		mut = opt(mut)
	}

	return mut
}

// WithDirFs overrides the fs.FS of the module (mainly used for testing purposes).
func WithDirFs(dirFS fs.FS) Option {
	return func(m Engine) Engine {
		m.fs = dirFS

		return m
	}
}

// WithCache makes the Engine consult c before scheduling a mutant, skipping
// it when a verdict is already cached under testsHash. Without this option
// the Engine re-executes every mutant it discovers.
func WithCache(c Cache, testsHash string) Option {
	return func(m Engine) Engine {
		m.cache = c
		m.testsHash = testsHash

		return m
	}
}

// Run executes the mutation testing.
//
// It walks the fs.FS provided and checks every .go file which is not a test.
// For each file it will scan for tokenMutations and gather all the mutants found.
// It returns a non-nil error only when a mutant violated the unchanged-source
// invariant, which always aborts the run.
func (mu *Engine) Run(ctx context.Context) (report.Results, error) {
	mu.mutantStream = make(chan mutator.Mutator)
	go func() {
		defer close(mu.mutantStream)
		_ = fs.WalkDir(mu.fs, ".", func(path string, _ fs.DirEntry, _ error) error {
			isGoCode := filepath.Ext(path) == ".go" && !strings.HasSuffix(path, "_test.go")

			if isGoCode && !mu.codeData.Exclusion.IsFileExcluded(path) {
				mu.runOnFile(path)
			}

			return nil
		})
	}()

	start := time.Now()
	res, err := mu.executeTests(ctx)
	res.Elapsed = time.Since(start)
	res.Module = mu.module.Name

	return res, err
}

func (mu *Engine) runOnFile(fileName string) {
	src, _ := mu.fs.Open(fileName)
	set := token.NewFileSet()
	file, _ := parser.ParseFile(set, fileName, src, parser.ParseComments)
	_ = src.Close()

	sf, _ := sourcefile.New(filepath.Join(mu.rootDir, fileName))
	lineIdx := map[int]int{}

	ast.Inspect(file, func(node ast.Node) bool {
		// Check for token-based mutations
		if n, ok := mutator.NewTokenNode(node); ok {
			if !sf.IsNoMutateLine(set.Position(n.TokPos).Line) {
				mu.findMutations(fileName, set, file, n, sf, lineIdx)
			}
		}

		// Check for expression-based mutations
		if e, ok := NewExprNode(node); ok {
			if !sf.IsNoMutateLine(set.Position(e.Pos()).Line) {
				mu.findExprMutations(fileName, set, file, e, node, sf, lineIdx)
			}
		}

		return true
	})
}

func (mu *Engine) findMutations(fileName string, set *token.FileSet, file *ast.File, node *mutator.NodeToken, sf sourcefile.SourceFile, lineIdx map[int]int) {
	mutantTypes := mutator.GetMutantTypesForToken(node.Tok(), node.NodeType())
	if len(mutantTypes) == 0 {
		return
	}

	pkg := mu.pkgName(fileName, file.Name.Name)
	line := set.Position(node.TokPos).Line
	for _, mt := range mutantTypes {
		if !configuration.Get[bool](configuration.MutantTypeEnabledKey(mt)) {
			continue
		}
		mutantType := mt
		tm := mutator.NewTokenMutant(pkg, set, file, node)
		tm.SetType(mutantType)
		tm.SetStatus(mu.mutationStatus(set.Position(node.TokPos)))
		tm.SetID(mu.nextID(fileName, sf, line, lineIdx))

		mu.mutantStream <- tm
	}
}

func (mu *Engine) findExprMutations(fileName string, set *token.FileSet, file *ast.File, node *NodeExpr, astNode ast.Node, sf sourcefile.SourceFile, lineIdx map[int]int) {
	mutantTypes := GetExprMutantTypes(node.Expr())

	// Find parent node and create replace function
	parentNode, replaceFunc := mu.findParentAndReplacer(file, astNode)
	if parentNode == nil || replaceFunc == nil {
		// Cannot mutate if we can't find parent or create replacer
		return
	}

	if mt, ok := GetArgumentZeroingType(parentNode, node.Expr()); ok {
		mutantTypes = append(mutantTypes, mt)
	}

	if len(mutantTypes) == 0 {
		return
	}

	pkg := mu.pkgName(fileName, file.Name.Name)
	line := set.Position(node.Pos()).Line

	for _, mt := range mutantTypes {
		if !configuration.Get[bool](configuration.MutantTypeEnabledKey(mt)) {
			continue
		}
		mutantType := mt
		em := NewExprMutant(pkg, set, file, node, parentNode, replaceFunc)
		em.SetType(mutantType)
		em.SetStatus(mu.mutationStatus(set.Position(node.Pos())))
		em.SetID(mu.nextID(fileName, sf, line, lineIdx))

		mu.mutantStream <- em
	}
}

// nextID mints the stable mutantid.ID for the next mutant found on line,
// keyed on the line's verbatim text rather than its number so the ID
// survives unrelated edits elsewhere in the file. lineIdx tracks how many
// mutants have already been minted on line, within a single file walk, so
// siblings on the same line get distinct, stable indexes.
func (mu *Engine) nextID(fileName string, sf sourcefile.SourceFile, line int, lineIdx map[int]int) mutantid.ID {
	idx := lineIdx[line]
	lineIdx[line] = idx + 1

	return mutantid.ID{
		Filename:   fileName,
		LineText:   sf.Line(line),
		Index:      idx,
		LineNumber: line,
	}
}

func (mu *Engine) pkgName(fileName, fPkg string) string {
	var pkg string
	fn := fmt.Sprintf("%s/%s", mu.module.CallingDir, fileName)
	p := filepath.Dir(fn)
	for {
		if strings.HasSuffix(p, fPkg) {
			pkg = fmt.Sprintf("%s/%s", mu.module.Name, p)

			break
		}
		d := filepath.Dir(p)
		if d == p {
			pkg = mu.module.Name

			break
		}
		p = d
	}

	return normalisePkgPath(pkg)
}

func normalisePkgPath(pkg string) string {
	sep := fmt.Sprintf("%c", os.PathSeparator)

	return strings.ReplaceAll(pkg, sep, "/")
}

func (mu *Engine) mutationStatus(pos token.Position) mutator.Status {
	var status mutator.Status

	if mu.codeData.Cov.IsCovered(pos) {
		status = mutator.Runnable
	}

	if !mu.codeData.Diff.IsChanged(pos) {
		status = mutator.Skipped
	}

	return status
}

// findParentAndReplacer finds the parent node of target and returns a function
// to replace target with a new expression in the parent.
func (mu *Engine) findParentAndReplacer(file *ast.File, target ast.Node) (ast.Node, func(ast.Expr) error) {
	var parent ast.Node
	var replacer func(ast.Expr) error

	ast.Inspect(file, func(n ast.Node) bool {
		if n == nil {
			return false
		}

		// Check if this node contains our target as a child
		switch p := n.(type) {
		case *ast.UnaryExpr:
			if p.X == target {
				parent = p
				replacer = func(newExpr ast.Expr) error {
					p.X = newExpr

					return nil
				}

				return false
			}
		case *ast.BinaryExpr:
			if p.X == target {
				parent = p
				replacer = func(newExpr ast.Expr) error {
					p.X = newExpr

					return nil
				}

				return false
			}
			if p.Y == target {
				parent = p
				replacer = func(newExpr ast.Expr) error {
					p.Y = newExpr

					return nil
				}

				return false
			}
		case *ast.ParenExpr:
			if p.X == target {
				parent = p
				replacer = func(newExpr ast.Expr) error {
					p.X = newExpr

					return nil
				}

				return false
			}
		case *ast.CallExpr:
			for i, arg := range p.Args {
				if arg == target {
					parent = p
					idx := i // capture for closure
					replacer = func(newExpr ast.Expr) error {
						p.Args[idx] = newExpr

						return nil
					}

					return false
				}
			}
		case *ast.ReturnStmt:
			for i, result := range p.Results {
				if result == target {
					parent = p
					idx := i
					replacer = func(newExpr ast.Expr) error {
						p.Results[idx] = newExpr

						return nil
					}

					return false
				}
			}
		case *ast.AssignStmt:
			for i, expr := range p.Lhs {
				if expr == target {
					parent = p
					idx := i
					replacer = func(newExpr ast.Expr) error {
						p.Lhs[idx] = newExpr

						return nil
					}

					return false
				}
			}
			for i, expr := range p.Rhs {
				if expr == target {
					parent = p
					idx := i
					replacer = func(newExpr ast.Expr) error {
						p.Rhs[idx] = newExpr

						return nil
					}

					return false
				}
			}
		case *ast.IfStmt:
			if p.Cond == target {
				parent = p
				replacer = func(newExpr ast.Expr) error {
					p.Cond = newExpr

					return nil
				}

				return false
			}
		case *ast.ForStmt:
			if p.Cond == target {
				parent = p
				replacer = func(newExpr ast.Expr) error {
					p.Cond = newExpr

					return nil
				}

				return false
			}
		case *ast.SwitchStmt:
			if p.Tag == target {
				parent = p
				replacer = func(newExpr ast.Expr) error {
					p.Tag = newExpr

					return nil
				}

				return false
			}
		}

		return true
	})

	return parent, replacer
}

func (mu *Engine) executeTests(ctx context.Context) (report.Results, error) {
	pool := workerpool.Initialize("mutator")
	pool.Start()

	var mutants []mutator.Mutator
	outCh := make(chan mutator.Mutator)
	fatal := &FatalRecorder{}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for mut := range mu.mutantStream {
			ok := checkDone(ctx)
			if !ok {
				pool.Stop()

				break
			}

			if status, cached := mu.cachedStatus(mut); cached {
				mut.SetStatus(status)
				outCh <- mut

				continue
			}

			wg.Add(1)
			pool.AppendExecutor(mu.jDealer.NewExecutor(mut, outCh, fatal, wg))
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	for m := range outCh {
		mu.logger.Mutant(m)
		mutants = append(mutants, m)
	}

	return results(mutants), fatal.Err()
}

// cachedStatus reports the cached verdict for mut under the Engine's
// testsHash, when the cache holds one and it reflects a mutant that was
// actually executed. NotCovered and Runnable are pre-execution statuses
// assigned during discovery, never persisted verdicts, so a cache hit of
// either is treated as a miss and the mutant is scheduled normally.
func (mu *Engine) cachedStatus(mut mutator.Mutator) (mutator.Status, bool) {
	if mu.cache == nil {
		return 0, false
	}

	status, ok := mu.cache.Get(mut.ID(), mu.testsHash)
	if !ok {
		return 0, false
	}

	switch status {
	case mutator.NotCovered, mutator.Runnable:
		return 0, false
	default:
		return status, true
	}
}

func checkDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		return true
	}
}

func results(m []mutator.Mutator) report.Results {
	return report.Results{Mutants: m}
}
