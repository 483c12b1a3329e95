package mutantid_test

import (
	"testing"

	"github.com/gremlor/gremlor/internal/mutantid"
)

func TestID_Equality(t *testing.T) {
	a := mutantid.ID{Filename: "f.go", LineText: "x := 1", Index: 0, LineNumber: 10}
	b := mutantid.ID{Filename: "f.go", LineText: "x := 1", Index: 0, LineNumber: 20}
	c := mutantid.ID{Filename: "f.go", LineText: "x := 1", Index: 0, LineNumber: 10}

	if a != c {
		t.Error("expected identical IDs to be equal")
	}
	if a == b {
		t.Error("expected IDs with different LineNumber to differ, identity is not position-based")
	}
}

func TestID_IsAll(t *testing.T) {
	if !mutantid.All.IsAll() {
		t.Error("expected the All sentinel to report IsAll")
	}

	id := mutantid.ID{Filename: "f.go", LineText: "x := 1", Index: 0, LineNumber: 10}
	if id.IsAll() {
		t.Error("expected a regular ID to not report IsAll")
	}
}

func TestID_String(t *testing.T) {
	id := mutantid.ID{Filename: "f.go", LineText: "x := 1", Index: 2, LineNumber: 10}
	want := "f.go:10:2"
	if got := id.String(); got != want {
		t.Errorf("want %q, got %q", want, got)
	}

	if got := mutantid.All.String(); got != "%all%" {
		t.Errorf("want %%all%%, got %q", got)
	}
}
