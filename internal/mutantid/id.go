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

// Package mutantid gives every mutant a stable identity that survives
// unrelated edits elsewhere in the file, by keying on the mutated line's
// text rather than its absolute position.
package mutantid

import "fmt"

// ID identifies a mutation candidate by the textual line it was found on,
// rather than by line number alone: adding or removing a line anywhere
// above a mutation shifts its LineNumber but leaves Filename/LineText/Index
// unchanged, so a cached verdict for it is still found on replay.
type ID struct {
	Filename   string
	LineText   string
	Index      int
	LineNumber int
}

// All is the sentinel ID that selects every mutant, used by commands that
// operate on the whole catalog instead of one specific mutant.
var All = ID{Filename: "%all%", LineText: "%all%", Index: -1, LineNumber: -1}

// IsAll reports whether id is the All sentinel.
func (id ID) IsAll() bool {
	return id == All
}

// String renders the ID in the "filename:line:index" form used by the
// apply/show commands to address a specific mutant.
func (id ID) String() string {
	if id.IsAll() {
		return "%all%"
	}

	return fmt.Sprintf("%s:%d:%d", id.Filename, id.LineNumber, id.Index)
}
