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

// Package sourcefile indexes a Go source file line by line, so the engine
// can look up a mutation candidate's line text and decide whether the line
// carries a no-mutate pragma.
package sourcefile

import (
	"bufio"
	"os"
	"strings"
)

// pragmas recognised as "do not mutate this line", checked with
// strings.Contains against the trimmed line text.
var pragmas = []string{
	"pragma: no mutate",
	"gremlor:no-mutate",
}

// SourceFile holds the line-indexed content of a Go source file.
type SourceFile struct {
	Filename string
	lines    []string
}

// New reads filename and indexes its lines.
func New(filename string) (SourceFile, error) {
	f, err := os.Open(filename)
	if err != nil {
		return SourceFile{}, err
	}
	defer f.Close()

	sf := SourceFile{Filename: filename}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		sf.lines = append(sf.lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return SourceFile{}, err
	}

	return sf, nil
}

// Line returns the text of the 1-indexed line n, or "" if out of range.
func (s SourceFile) Line(n int) string {
	if n < 1 || n > len(s.lines) {
		return ""
	}

	return s.lines[n-1]
}

// IsNoMutateLine reports whether line n carries a no-mutate pragma.
func (s SourceFile) IsNoMutateLine(n int) bool {
	line := s.Line(n)
	for _, p := range pragmas {
		if strings.Contains(line, p) {
			return true
		}
	}

	return false
}

// LineCount returns the number of indexed lines.
func (s SourceFile) LineCount() int {
	return len(s.lines)
}
