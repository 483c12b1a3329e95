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
	"bytes"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gremlor/gremlor/internal/execution"
	"github.com/gremlor/gremlor/internal/mutantid"
	"github.com/gremlor/gremlor/internal/mutator"
)

// ExprMutator is a mutator.Mutator for expression-level mutations.
//
// Unlike TokenMutator which swaps tokens, ExprMutator performs AST
// reconstruction to create new expression structures. This enables
// mutations like wrapping (!x → !!x) that cannot be done by token swapping.
//
// ExprMutator uses the same file locking mechanism as TokenMutator to
// ensure safe concurrent mutations.
type ExprMutator struct {
	pkg        string
	fs         *token.FileSet
	file       *ast.File
	exprNode   *NodeExpr
	workDir    string
	origFile   []byte
	status     mutator.Status
	mutantType mutator.Type
	id         mutantid.ID

	// origExpr stores a reference to the original expression for AST restoration
	origExpr ast.Expr

	// parentNode and replaceFunc handle the mutation application
	parentNode  ast.Node
	replaceFunc func(newExpr ast.Expr) error
}

// NewExprMutant initializes an ExprMutator with parent tracking.
func NewExprMutant(
	pkg string,
	set *token.FileSet,
	file *ast.File,
	node *NodeExpr,
	parentNode ast.Node,
	replaceFunc func(newExpr ast.Expr) error,
) *ExprMutator {
	return &ExprMutator{
		pkg:         pkg,
		fs:          set,
		file:        file,
		exprNode:    node,
		origExpr:    node.Expr(),
		parentNode:  parentNode,
		replaceFunc: replaceFunc,
	}
}

// Type returns the mutator.Type of the mutant.Mutator.
func (m *ExprMutator) Type() mutator.Type {
	return m.mutantType
}

// SetType sets the mutator.Type of the mutant.Mutator.
func (m *ExprMutator) SetType(mt mutator.Type) {
	m.mutantType = mt
}

// Status returns the mutator.Status of the mutant.Mutator.
func (m *ExprMutator) Status() mutator.Status {
	return m.status
}

// SetStatus sets the mutator.Status of the mutant.Mutator.
func (m *ExprMutator) SetStatus(s mutator.Status) {
	m.status = s
}

// ID returns the stable mutantid.ID identifying this mutant across runs.
func (m *ExprMutator) ID() mutantid.ID {
	return m.id
}

// SetID sets the stable mutantid.ID identifying this mutant across runs.
func (m *ExprMutator) SetID(id mutantid.ID) {
	m.id = id
}

// Position returns the token.Position where the ExprMutator resides.
func (m *ExprMutator) Position() token.Position {
	return m.fs.Position(m.exprNode.Pos())
}

// Pos returns the token.Pos where the ExprMutator resides.
func (m *ExprMutator) Pos() token.Pos {
	return m.exprNode.Pos()
}

// Pkg returns the package name to which the mutant belongs.
func (m *ExprMutator) Pkg() string {
	return m.pkg
}

// Apply performs the expression mutation by reconstructing the AST.
//
// The process:
// 1. Acquire file lock (prevents concurrent mutations on same file)
// 2. Read original file content
// 3. Apply mutation by creating new expression in AST
// 4. Write mutated file
// 5. Restore original expression in AST
// 6. Release file lock
//
// Like TokenMutator, the AST is immediately restored after file writing
// to keep the shared AST clean for subsequent mutations.
func (m *ExprMutator) Apply() error {
	fileLock(m.Position().Filename).Lock()
	defer fileLock(m.Position().Filename).Unlock()

	filename := filepath.Join(m.workDir, m.Position().Filename)

	var err error
	//nolint:gosec // filename is internally constructed, not user input
	m.origFile, err = os.ReadFile(filename)
	if err != nil {
		return err
	}

	// Get the mutated expression based on mutation type
	mutatedExpr, err := m.getMutatedExpr()
	if err != nil {
		return err
	}

	// Replace expression in AST
	if err = m.replaceFunc(mutatedExpr); err != nil {
		return err
	}

	// Write mutated file
	if err = m.writeMutatedFile(filename); err != nil {
		// Restore original on write failure
		_ = m.replaceFunc(m.origExpr)

		return err
	}

	// Restore AST immediately (file is already written with mutation)
	return m.replaceFunc(m.origExpr)
}

// getMutatedExpr creates the mutated expression based on the mutation type.
func (m *ExprMutator) getMutatedExpr() (ast.Expr, error) {
	//nolint:exhaustive // Only expression-level mutations handled here; token mutations use TokenMutator
	switch m.mutantType {
	case mutator.InvertLogicalNot:
		return m.invertLogicalNot()
	case mutator.NumberLiteral:
		return m.mutateNumberLiteral()
	case mutator.StringLiteral:
		return m.mutateStringLiteral()
	case mutator.BoolLiteral:
		return m.mutateBoolLiteral()
	case mutator.ArgumentZeroing:
		return m.zeroArgument()
	default:
		return nil, fmt.Errorf("expression mutation type %s not yet implemented", m.mutantType)
	}
}

// invertLogicalNot transforms !x into !!x by wrapping the original UnaryExpr
// with another NOT operator.
func (m *ExprMutator) invertLogicalNot() (ast.Expr, error) {
	unaryExpr, ok := m.origExpr.(*ast.UnaryExpr)
	if !ok {
		return nil, fmt.Errorf("InvertLogicalNot requires UnaryExpr, got %T", m.origExpr)
	}

	if unaryExpr.Op != token.NOT {
		return nil, fmt.Errorf("InvertLogicalNot requires NOT operator, got %s", unaryExpr.Op)
	}

	// Create a new UnaryExpr that wraps the original !x expression
	// Result: !!x (NOT of NOT of x)
	mutated := &ast.UnaryExpr{
		OpPos: unaryExpr.OpPos, // Use same position as original
		Op:    token.NOT,       // Outer NOT operator
		X:     unaryExpr,       // The entire original !x expression
	}

	return mutated, nil
}

// mutateNumberLiteral adds one to an integer or float literal, preserving
// its base and format (hex stays hex, float stays float).
func (m *ExprMutator) mutateNumberLiteral() (ast.Expr, error) {
	lit, ok := m.origExpr.(*ast.BasicLit)
	if !ok {
		return nil, fmt.Errorf("NumberLiteral requires BasicLit, got %T", m.origExpr)
	}

	newValue, err := incrementNumericLiteral(lit)
	if err != nil {
		return nil, err
	}

	return &ast.BasicLit{ValuePos: lit.ValuePos, Kind: lit.Kind, Value: newValue}, nil
}

func incrementNumericLiteral(lit *ast.BasicLit) (string, error) {
	switch lit.Kind {
	case token.INT:
		return incrementIntLiteral(lit.Value)
	case token.FLOAT:
		v, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return "", fmt.Errorf("NumberLiteral: %w", err)
		}

		s := strconv.FormatFloat(v+1, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}

		return s, nil
	default:
		return "", fmt.Errorf("NumberLiteral requires INT or FLOAT, got %s", lit.Kind)
	}
}

func incrementIntLiteral(value string) (string, error) {
	clean := strings.ReplaceAll(value, "_", "")

	base, prefix := 10, ""
	switch {
	case strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X"):
		base, prefix = 16, clean[:2]
		clean = clean[2:]
	case strings.HasPrefix(clean, "0o") || strings.HasPrefix(clean, "0O"):
		base, prefix = 8, clean[:2]
		clean = clean[2:]
	case strings.HasPrefix(clean, "0b") || strings.HasPrefix(clean, "0B"):
		base, prefix = 2, clean[:2]
		clean = clean[2:]
	}

	n, ok := new(big.Int).SetString(clean, base)
	if !ok {
		return "", fmt.Errorf("NumberLiteral: cannot parse integer literal %q", value)
	}
	n.Add(n, big.NewInt(1))

	return prefix + n.Text(base), nil
}

// mutateStringLiteral wraps the interior of a quoted string literal with
// XX sentinel markers, leaving the surrounding quote characters in place.
// Raw (backtick) literals are never offered this mutation, see NewExprNode.
func (m *ExprMutator) mutateStringLiteral() (ast.Expr, error) {
	lit, ok := m.origExpr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return nil, fmt.Errorf("StringLiteral requires a string BasicLit, got %T", m.origExpr)
	}

	if len(lit.Value) < 2 {
		return nil, fmt.Errorf("StringLiteral: literal %q too short to mutate", lit.Value)
	}

	quote := lit.Value[:1]
	inner := lit.Value[1 : len(lit.Value)-1]
	mutated := quote + "XX" + inner + "XX" + quote

	return &ast.BasicLit{ValuePos: lit.ValuePos, Kind: lit.Kind, Value: mutated}, nil
}

// mutateBoolLiteral flips a true/false identifier to the other.
func (m *ExprMutator) mutateBoolLiteral() (ast.Expr, error) {
	ident, ok := m.origExpr.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("BoolLiteral requires Ident, got %T", m.origExpr)
	}

	flipped := "false"
	if ident.Name == "false" {
		flipped = "true"
	}

	return &ast.Ident{NamePos: ident.NamePos, Name: flipped}, nil
}

// zeroArgument replaces a literal call argument with the zero value for
// its kind: 0 for numbers, "" for strings, false for booleans.
func (m *ExprMutator) zeroArgument() (ast.Expr, error) {
	switch e := m.origExpr.(type) {
	case *ast.BasicLit:
		switch e.Kind {
		case token.INT:
			return &ast.BasicLit{ValuePos: e.ValuePos, Kind: token.INT, Value: "0"}, nil
		case token.FLOAT:
			return &ast.BasicLit{ValuePos: e.ValuePos, Kind: token.FLOAT, Value: "0"}, nil
		case token.STRING:
			return &ast.BasicLit{ValuePos: e.ValuePos, Kind: token.STRING, Value: `""`}, nil
		default:
			return nil, fmt.Errorf("ArgumentZeroing requires INT, FLOAT or STRING, got %s", e.Kind)
		}
	case *ast.Ident:
		if e.Name != "true" && e.Name != "false" {
			return nil, fmt.Errorf("ArgumentZeroing requires a boolean Ident, got %q", e.Name)
		}

		return &ast.Ident{NamePos: e.NamePos, Name: "false"}, nil
	default:
		return nil, fmt.Errorf("ArgumentZeroing requires BasicLit or Ident, got %T", m.origExpr)
	}
}

func (m *ExprMutator) writeMutatedFile(filename string) error {
	w := &bytes.Buffer{}
	err := printer.Fprint(w, m.fs, m.file)
	if err != nil {
		return err
	}

	if bytes.Equal(w.Bytes(), m.origFile) {
		return fmt.Errorf("%w: %s produced no textual change at %s", execution.ErrInvariant, m.mutantType, m.Position())
	}

	err = os.WriteFile(filename, w.Bytes(), 0600)
	if err != nil {
		return err
	}

	return nil
}

// Rollback puts back the original file after the test and cleans up the
// ExprMutator to free memory.
func (m *ExprMutator) Rollback() error {
	defer m.resetOrigFile()
	filename := filepath.Join(m.workDir, m.Position().Filename)

	return os.WriteFile(filename, m.origFile, 0600)
}

// SetWorkdir sets the base path on which to Apply and Rollback operations.
func (m *ExprMutator) SetWorkdir(path string) {
	m.workDir = path
}

// Workdir returns the current working dir in which the Mutator will apply its mutations.
func (m *ExprMutator) Workdir() string {
	return m.workDir
}

func (m *ExprMutator) resetOrigFile() {
	var zeroByte []byte
	m.origFile = zeroByte
}
