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

package report_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/gremlor/gremlor/internal/report"
)

func TestJUnitXML(t *testing.T) {
	mutants := []report.CachedMutant{
		{ID: 1, Filename: "a.go", Line: 10, Type: "CONDITIONALS_NEGATION", Status: "KILLED"},
		{ID: 2, Filename: "a.go", Line: 20, Type: "ARITHMETIC_BASE", Status: "LIVED"},
		{ID: 3, Filename: "b.go", Line: 5, Type: "NUMBER_LITERAL", Status: "SUSPICIOUS"},
		{ID: 4, Filename: "b.go", Line: 6, Type: "STRING_LITERAL", Status: "TIMED OUT"},
		{ID: 5, Filename: "b.go", Line: 7, Type: "BOOL_LITERAL", Status: "NOT VIABLE"},
	}

	out, err := report.JUnitXML("example.com/go/module", mutants)
	if err != nil {
		t.Fatalf("JUnitXML failed: %v", err)
	}

	if !strings.HasPrefix(string(out), xml.Header) {
		t.Error("expected output to start with the XML header")
	}

	var suite struct {
		XMLName  xml.Name `xml:"testsuite"`
		Name     string   `xml:"name,attr"`
		Tests    int      `xml:"tests,attr"`
		Failures int      `xml:"failures,attr"`
		Cases    []struct {
			Name    string `xml:"name,attr"`
			Failure *struct {
				Message string `xml:"message,attr"`
			} `xml:"failure"`
		} `xml:"testcase"`
	}

	if err := xml.Unmarshal(out, &suite); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}

	if suite.Name != "example.com/go/module" {
		t.Errorf("expected suite name %q, got %q", "example.com/go/module", suite.Name)
	}
	if suite.Tests != len(mutants) {
		t.Errorf("expected %d tests, got %d", len(mutants), suite.Tests)
	}
	if suite.Failures != 3 {
		t.Errorf("expected 3 failures (LIVED, SUSPICIOUS, TIMED OUT), got %d", suite.Failures)
	}
	if len(suite.Cases) != len(mutants) {
		t.Fatalf("expected %d testcases, got %d", len(mutants), len(suite.Cases))
	}

	for i, tc := range suite.Cases {
		wantFailure := survivingType(mutants[i].Status)
		if wantFailure && tc.Failure == nil {
			t.Errorf("testcase %d (%s): expected a failure element", i, mutants[i].Status)
		}
		if !wantFailure && tc.Failure != nil {
			t.Errorf("testcase %d (%s): expected no failure element", i, mutants[i].Status)
		}
	}
}

func survivingType(status string) bool {
	switch status {
	case "LIVED", "SUSPICIOUS", "TIMED OUT":
		return true
	default:
		return false
	}
}

func TestJUnitXMLEmpty(t *testing.T) {
	out, err := report.JUnitXML("example.com/go/module", nil)
	if err != nil {
		t.Fatalf("JUnitXML failed: %v", err)
	}

	var suite struct {
		Tests    int `xml:"tests,attr"`
		Failures int `xml:"failures,attr"`
	}
	if err := xml.Unmarshal(out, &suite); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	if suite.Tests != 0 || suite.Failures != 0 {
		t.Errorf("expected zero tests and failures, got %d/%d", suite.Tests, suite.Failures)
	}
}
