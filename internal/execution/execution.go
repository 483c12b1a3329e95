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

// Package execution carries the error taxonomy that can terminate a run
// with a specific process exit code.
package execution

import "errors"

// ErrInvariant is returned when a mutator reports that it produced a
// mutation, but the written source is byte-identical to the original. This
// indicates a bug in a catalog rule and is always fatal.
var ErrInvariant = errors.New("mutator reported a mutation but source is unchanged")

// ErrBaseline is returned when the unmutated test suite does not pass
// before any mutant is scheduled.
var ErrBaseline = errors.New("baseline test run failed")

// ErrSkip is returned by a pre-mutation hook to mark the current mutant as
// SKIPPED rather than run.
var ErrSkip = errors.New("mutant skipped by hook")

// ErrorType is the type of the error that can generate a specific exit status.
type ErrorType int

// String produces the human readable sentence for the ErrorType.
func (e ErrorType) String() string {
	switch e {
	case EfficacyThreshold:
		return "below efficacy-threshold"
	case MutantCoverageThreshold:
		return "below mutant coverage-threshold"
	case SurvivedMutants:
		return "mutants survived"
	case TimedOutMutants:
		return "mutants timed out"
	case SuspiciousMutants:
		return "suspicious mutants found"
	case RuntimeException:
		return "an exception occurred"
	}
	panic("this should not happen")
}

const (
	// EfficacyThreshold is the error type raised when efficacy is below threshold.
	EfficacyThreshold ErrorType = iota

	// MutantCoverageThreshold is the error type raised when mutant coverage is
	// below threshold.
	MutantCoverageThreshold

	// SurvivedMutants marks that at least one mutant was BAD_SURVIVED.
	SurvivedMutants

	// TimedOutMutants marks that at least one mutant was BAD_TIMEOUT.
	TimedOutMutants

	// SuspiciousMutants marks that at least one mutant was OK_SUSPICIOUS.
	SuspiciousMutants

	// RuntimeException marks that an exception occurred during the run.
	RuntimeException
)

var errorMapping = map[ErrorType]int{
	EfficacyThreshold:       10,
	MutantCoverageThreshold: 11,
	SurvivedMutants:         2,
	TimedOutMutants:         4,
	SuspiciousMutants:       8,
	RuntimeException:        1,
}

// ExitError is a special Error that is raised when special conditions require
// gremlor to exit with a specific errorCode. If this error is returned
// and/or properly wrapped, it will reach the main function, which sets the
// exitCode as the exit code of the process.
type ExitError struct {
	errorType ErrorType
	exitCode  int
}

// NewExitErr instantiates a new ExitError.
func NewExitErr(et ErrorType) *ExitError {
	return &ExitError{exitCode: errorMapping[et], errorType: et}
}

// Error is the implementation of the Error interface and returns
// the ErrorType human readable message.
func (e *ExitError) Error() string {
	return e.errorType.String()
}

// ExitCode returns the exit code associated with the specific ErrorType.
func (e *ExitError) ExitCode() int {
	return e.exitCode
}

// ExitCodeOf computes the `run` command's exit code: the bitwise OR of the
// SurvivedMutants/TimedOutMutants/SuspiciousMutants bits that apply, plus
// RuntimeException's bit if err is non-nil. In CI mode the result is forced
// to 0 unless err is non-nil.
func ExitCodeOf(survived, timedOut, suspicious bool, err error, ci bool) int {
	var code int
	if survived {
		code |= errorMapping[SurvivedMutants]
	}
	if timedOut {
		code |= errorMapping[TimedOutMutants]
	}
	if suspicious {
		code |= errorMapping[SuspiciousMutants]
	}
	if ci {
		code = 0
	}
	if err != nil {
		code |= errorMapping[RuntimeException]
	}

	return code
}
