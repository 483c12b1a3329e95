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

package report

import (
	"encoding/xml"
	"fmt"
)

// CachedMutant is the minimal view of a cached mutant verdict the JUnit and
// HTML report writers need, decoupled from the cache package's storage
// schema so report stays a pure presentation layer.
type CachedMutant struct {
	ID       uint
	Filename string
	Line     int
	Type     string
	Status   string
}

type junitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	TestCases []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string        `xml:"name,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

// survivingStatuses lists the verdicts that count as a failed testcase in a
// JUnit report: a mutant a test suite didn't catch.
var survivingStatuses = map[string]bool{
	"LIVED":      true,
	"SUSPICIOUS": true,
	"TIMED OUT":  true,
}

// JUnitXML renders mutants as a JUnit test suite: one testcase per mutant,
// failed for every mutant that survived (lived, suspicious, or timed out),
// so CI systems that already parse JUnit can surface mutation survivors
// without a dedicated integration.
func JUnitXML(module string, mutants []CachedMutant) ([]byte, error) {
	suite := junitTestSuite{
		Name:  module,
		Tests: len(mutants),
	}

	for _, m := range mutants {
		tc := junitTestCase{
			Name: fmt.Sprintf("%s:%d #%d %s", m.Filename, m.Line, m.ID, m.Type),
		}
		if survivingStatuses[m.Status] {
			suite.Failures++
			tc.Failure = &junitFailure{
				Message: fmt.Sprintf("mutant %s at %s:%d was not caught by the test suite", m.Status, m.Filename, m.Line),
			}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	out, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), out...), nil
}
