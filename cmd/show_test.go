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
	"testing"

	"github.com/gremlor/gremlor/internal/cache"
)

func TestNewShowCmd(t *testing.T) {
	c, err := newShowCmd()
	if err != nil {
		t.Fatal("newShowCmd should not fail")
	}

	if c.cmd.Name() != "show" {
		t.Errorf("expected 'show', got %q", c.cmd.Name())
	}

	if c.cmd.Args == nil {
		t.Error("expected show to validate its arg count")
	}
}

func TestFilterByFile(t *testing.T) {
	recs := []cache.Record{
		{ID: 1, Filename: "a.go"},
		{ID: 2, Filename: "b.go"},
		{ID: 3, Filename: "a.go"},
	}

	got := filterByFile(recs, "a.go")

	if len(got) != 2 {
		t.Fatalf("expected 2 records for a.go, got %d", len(got))
	}
	for _, r := range got {
		if r.Filename != "a.go" {
			t.Errorf("unexpected record for file %q", r.Filename)
		}
	}

	if none := filterByFile(recs, "c.go"); none != nil {
		t.Errorf("expected no records for c.go, got %d", len(none))
	}
}
