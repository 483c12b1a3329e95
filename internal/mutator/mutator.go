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
	"go/token"

	"github.com/gremlor/gremlor/internal/mutantid"
)

// Status represents the status of a given TokenMutant.
//
//   - NotCovered means that a TokenMutant has been identified, but is not covered
//     by tests.
//   - Runnable means that a TokenMutant has been identified and is covered by tests,
//     which means it can be executed.
//   - Lived means that the TokenMutant has been tested, but the tests did pass, which
//     means the test suite is not effective in catching it.
//   - Killed means that the TokenMutant has been tested and the tests failed, which
//     means they are effective in covering this regression.
//   - Suspicious means the tests passed but took markedly longer than the
//     baseline, which often indicates an infinite loop narrowly avoided or a
//     test asserting on timing rather than behavior.
//   - Skipped means the mutant was excluded from the run, because its line is
//     outside the patch file or a pre-mutation hook rejected it, and was never
//     executed.
type Status int

// Currently supported MutantStatus.
const (
	NotCovered Status = iota
	Runnable
	Lived
	Killed
	NotViable
	TimedOut
	Suspicious
	Skipped
)

func (ms Status) String() string {
	switch ms {
	case NotCovered:
		return "NOT COVERED"
	case Runnable:
		return "RUNNABLE"
	case Lived:
		return "LIVED"
	case Killed:
		return "KILLED"
	case NotViable:
		return "NOT VIABLE"
	case TimedOut:
		return "TIMED OUT"
	case Suspicious:
		return "SUSPICIOUS"
	case Skipped:
		return "SKIPPED"
	default:
		panic("this should not happen")
	}
}

// Type represents the category of the TokenMutant.
//
// A single token.Token can be mutated in various ways depending on the
// specific mutation being tested.
// For example `<` can be mutated to `<=` in case of ConditionalsBoundary
// or `>=` in case of ConditionalsNegation.
type Type int

// The currently supported Type in gremlor.
const (
	ArithmeticBase Type = iota
	ConditionalsBoundary
	ConditionalsNegation
	IncrementDecrement
	InvertLogical
	InvertNegatives
	InvertLoopCtrl
	InvertAssignments
	InvertBitwise
	NumberLiteral
	StringLiteral
	ArgumentZeroing
	BoolLiteral
	RemoveSelfAssignments
	InvertBitwiseAssignments
	InvertLogicalNot
)

// Types allows to iterate over Type.
var Types = []Type{
	ArithmeticBase,
	ConditionalsBoundary,
	ConditionalsNegation,
	IncrementDecrement,
	InvertLogical,
	InvertNegatives,
	InvertLoopCtrl,
	InvertAssignments,
	InvertBitwise,
	NumberLiteral,
	StringLiteral,
	ArgumentZeroing,
	BoolLiteral,
	RemoveSelfAssignments,
	InvertBitwiseAssignments,
	InvertLogicalNot,
}

func (mt Type) String() string {
	switch mt {
	case ConditionalsBoundary:
		return "CONDITIONALS_BOUNDARY"
	case ConditionalsNegation:
		return "CONDITIONALS_NEGATION"
	case IncrementDecrement:
		return "INCREMENT_DECREMENT"
	case InvertLogical:
		return "INVERT_LOGICAL"
	case InvertNegatives:
		return "INVERT_NEGATIVES"
	case ArithmeticBase:
		return "ARITHMETIC_BASE"
	case InvertLoopCtrl:
		return "INVERT_LOOPCTRL"
	case InvertAssignments:
		return "INVERT_ASSIGNMENTS"
	case InvertBitwise:
		return "INVERT_BITWISE"
	case NumberLiteral:
		return "NUMBER_LITERAL"
	case StringLiteral:
		return "STRING_LITERAL"
	case ArgumentZeroing:
		return "ARGUMENT_ZEROING"
	case BoolLiteral:
		return "BOOL_LITERAL"
	case RemoveSelfAssignments:
		return "REMOVE_SELF_ASSIGNMENTS"
	case InvertBitwiseAssignments:
		return "INVERT_BWASSIGN"
	case InvertLogicalNot:
		return "INVERT_LOGICAL_NOT"

	default:
		panic("this should not happen")
	}
}

// ParseType reverses Type.String, for commands that address a cached
// mutant by its persisted type name rather than the Type value itself.
func ParseType(s string) (Type, bool) {
	for _, t := range Types {
		if t.String() == s {
			return t, true
		}
	}

	return 0, false
}

// Mutator represents a possible mutation of the source code.
type Mutator interface {
	// Type returns the Type of the Mutator.
	Type() Type

	// SetType sets the Type of the Mutator.
	SetType(mt Type)

	// Status returns the Status of the Mutator.
	Status() Status

	// SetStatus sets the Status of the Mutator.
	SetStatus(s Status)

	// ID returns the stable mutantid.ID identifying this mutant across runs.
	ID() mutantid.ID

	// SetID sets the stable mutantid.ID identifying this mutant across runs.
	SetID(id mutantid.ID)

	// Position returns the token.Position for the Mutator.
	// token.Position consumes more space than token.Pos, and in the future
	// we can consider a refactoring to remove its use and only use Mutator.Pos.
	Position() token.Position

	// Pos returns the token.Pos of the Mutator.
	Pos() token.Pos

	// Pkg returns the package where the Mutator is fount.
	Pkg() string

	// SetWorkdir sets the working directory which contains the source code on
	// which the Mutator will apply its mutations.
	SetWorkdir(p string)

	// Workdir returns the current working dir in which the Mutator will apply its mutations
	Workdir() string

	// Apply applies the mutation on the actual source code.
	Apply() error

	// Rollback removes the mutation from the source code and sets it back to
	// its original status.
	Rollback() error
}
