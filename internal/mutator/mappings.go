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

package mutator

import (
	"go/ast"
	"go/token"
)

// TokenMutantType is the mapping from each token.Token and all the
// Type that can be applied to it.
var TokenMutantType = map[token.Token][]Type{
	token.ADD:            {ArithmeticBase},
	token.ADD_ASSIGN:     {InvertAssignments, RemoveSelfAssignments},
	token.AND:            {InvertBitwise},
	token.AND_ASSIGN:     {RemoveSelfAssignments, InvertBitwiseAssignments},
	token.AND_NOT:        {InvertBitwise},
	token.AND_NOT_ASSIGN: {RemoveSelfAssignments, InvertBitwiseAssignments},
	token.BREAK:          {InvertLoopCtrl},
	token.CONTINUE:       {InvertLoopCtrl},
	token.DEC:            {IncrementDecrement},
	token.EQL:            {ConditionalsNegation},
	token.GEQ:            {ConditionalsBoundary, ConditionalsNegation},
	token.GTR:            {ConditionalsBoundary, ConditionalsNegation},
	token.INC:            {IncrementDecrement},
	token.LAND:           {InvertLogical},
	token.LEQ:            {ConditionalsBoundary, ConditionalsNegation},
	token.LOR:            {InvertLogical},
	token.LSS:            {ConditionalsBoundary, ConditionalsNegation},
	token.MUL:            {ArithmeticBase},
	token.MUL_ASSIGN:     {InvertAssignments, RemoveSelfAssignments},
	token.NEQ:            {ConditionalsNegation},
	token.OR:             {InvertBitwise},
	token.OR_ASSIGN:      {RemoveSelfAssignments, InvertBitwiseAssignments},
	token.QUO:            {ArithmeticBase},
	token.QUO_ASSIGN:     {InvertAssignments, RemoveSelfAssignments},
	token.REM:            {ArithmeticBase},
	token.REM_ASSIGN:     {InvertAssignments, RemoveSelfAssignments},
	token.SHL:            {InvertBitwise},
	token.SHL_ASSIGN:     {RemoveSelfAssignments, InvertBitwiseAssignments},
	token.SHR:            {InvertBitwise},
	token.SHR_ASSIGN:     {RemoveSelfAssignments, InvertBitwiseAssignments},
	token.SUB:            {InvertNegatives, ArithmeticBase},
	token.SUB_ASSIGN:     {InvertAssignments, RemoveSelfAssignments},
	token.XOR:            {InvertBitwise},
	token.XOR_ASSIGN:     {RemoveSelfAssignments, InvertBitwiseAssignments},
}

var tokenMutations = map[Type]map[token.Token]token.Token{
	ArithmeticBase: {
		token.ADD: token.SUB,
		token.MUL: token.QUO,
		token.QUO: token.MUL,
		token.REM: token.MUL,
		token.SUB: token.ADD,
	},
	ConditionalsBoundary: {
		token.GEQ: token.GTR,
		token.GTR: token.GEQ,
		token.LEQ: token.LSS,
		token.LSS: token.LEQ,
	},
	ConditionalsNegation: {
		token.EQL: token.NEQ,
		token.GEQ: token.LSS,
		token.GTR: token.LEQ,
		token.LEQ: token.GTR,
		token.LSS: token.GEQ,
		token.NEQ: token.EQL,
	},
	IncrementDecrement: {
		token.DEC: token.INC,
		token.INC: token.DEC,
	},
	InvertAssignments: {
		token.ADD_ASSIGN: token.SUB_ASSIGN,
		token.MUL_ASSIGN: token.QUO_ASSIGN,
		token.QUO_ASSIGN: token.MUL_ASSIGN,
		token.REM_ASSIGN: token.MUL_ASSIGN,
		token.SUB_ASSIGN: token.ADD_ASSIGN,
	},
	InvertBitwise: {
		token.AND:     token.OR,
		token.OR:      token.AND,
		token.XOR:     token.AND,
		token.AND_NOT: token.AND,
		token.SHL:     token.SHR,
		token.SHR:     token.SHL,
	},
	InvertBitwiseAssignments: {
		token.AND_ASSIGN:     token.OR_ASSIGN,
		token.OR_ASSIGN:      token.AND_ASSIGN,
		token.XOR_ASSIGN:     token.AND_ASSIGN,
		token.AND_NOT_ASSIGN: token.AND_ASSIGN,
		token.SHL_ASSIGN:     token.SHR_ASSIGN,
		token.SHR_ASSIGN:     token.SHL_ASSIGN,
	},
	InvertLogical: {
		token.LAND: token.LOR,
		token.LOR:  token.LAND,
	},
	InvertLoopCtrl: {
		token.BREAK:    token.CONTINUE,
		token.CONTINUE: token.BREAK,
	},
	InvertNegatives: {
		token.SUB: token.ADD,
	},
	RemoveSelfAssignments: {
		token.ADD_ASSIGN:     token.ASSIGN,
		token.AND_ASSIGN:     token.ASSIGN,
		token.AND_NOT_ASSIGN: token.ASSIGN,
		token.MUL_ASSIGN:     token.ASSIGN,
		token.OR_ASSIGN:      token.ASSIGN,
		token.QUO_ASSIGN:     token.ASSIGN,
		token.REM_ASSIGN:     token.ASSIGN,
		token.SHL_ASSIGN:     token.ASSIGN,
		token.SHR_ASSIGN:     token.ASSIGN,
		token.SUB_ASSIGN:     token.ASSIGN,
		token.XOR_ASSIGN:     token.ASSIGN,
	},
}

// GetMutantTypesForToken returns the Type values applicable to tok,
// filtering TokenMutantType's raw token mapping by the AST context the
// token appeared in. A bare REM_ASSIGN etc. only makes sense on an
// ast.AssignStmt; ADD/SUB only make sense as a binary operator, not as a
// unary sign (InvertNegatives already covers unary SUB separately).
func GetMutantTypesForToken(tok token.Token, node ast.Node) []Type {
	all, ok := TokenMutantType[tok]
	if !ok {
		return nil
	}

	var exclude Type
	switch node.(type) {
	case *ast.UnaryExpr:
		exclude = ArithmeticBase
	case *ast.BinaryExpr:
		exclude = InvertNegatives
	default:
		return all
	}

	var filtered []Type
	for _, mt := range all {
		if mt == exclude {
			continue
		}
		filtered = append(filtered, mt)
	}

	return filtered
}
