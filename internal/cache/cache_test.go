package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gremlor/gremlor/internal/cache"
	"github.com/gremlor/gremlor/internal/mutantid"
	"github.com/gremlor/gremlor/internal/mutator"
)

func openTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := cache.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

func TestCache_GetMiss(t *testing.T) {
	c := openTestCache(t)
	id := mutantid.ID{Filename: "f.go", LineText: "a := 1", Index: 0, LineNumber: 1}

	if _, ok := c.Get(id, "hash1"); ok {
		t.Error("expected a miss on an empty cache")
	}
}

func TestCache_PutGet(t *testing.T) {
	c := openTestCache(t)
	id := mutantid.ID{Filename: "f.go", LineText: "a := 1", Index: 0, LineNumber: 1}

	if err := c.Put(id, "hash1", mutator.Killed); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Get(id, "hash1")
	if !ok {
		t.Fatal("expected a hit")
	}
	if got != mutator.Killed {
		t.Errorf("want %s, got %s", mutator.Killed, got)
	}
}

func TestCache_PutOverwrites(t *testing.T) {
	c := openTestCache(t)
	id := mutantid.ID{Filename: "f.go", LineText: "a := 1", Index: 0, LineNumber: 1}

	if err := c.Put(id, "hash1", mutator.Lived); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(id, "hash1", mutator.Killed); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Get(id, "hash1")
	if !ok {
		t.Fatal("expected a hit")
	}
	if got != mutator.Killed {
		t.Errorf("want %s, got %s", mutator.Killed, got)
	}
}

func TestCache_DifferentTestsHashMisses(t *testing.T) {
	c := openTestCache(t)
	id := mutantid.ID{Filename: "f.go", LineText: "a := 1", Index: 0, LineNumber: 1}

	if err := c.Put(id, "hash1", mutator.Killed); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(id, "hash2"); ok {
		t.Error("expected a miss for a different tests hash")
	}
}

func TestCache_GetByIDAndList(t *testing.T) {
	c := openTestCache(t)
	id1 := mutantid.ID{Filename: "f.go", LineText: "a := 1", Index: 0, LineNumber: 1}
	id2 := mutantid.ID{Filename: "f.go", LineText: "b := 2", Index: 0, LineNumber: 2}

	if err := c.Put(id1, "hash1", mutator.Killed); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(id2, "hash1", mutator.Lived); err != nil {
		t.Fatal(err)
	}

	recs, err := c.List("hash1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}

	rec, ok := c.GetByID(recs[0].ID)
	if !ok {
		t.Fatal("expected a hit")
	}
	if rec.LineText != id1.LineText {
		t.Errorf("want %q, got %q", id1.LineText, rec.LineText)
	}

	if _, ok := c.GetByID(9999); ok {
		t.Error("expected a miss for an unknown pk")
	}
}

func TestCache_PutWithMeta(t *testing.T) {
	c := openTestCache(t)
	id := mutantid.ID{Filename: "f.go", LineText: "a := 1", Index: 0, LineNumber: 7}

	if err := c.PutWithMeta(id, "hash1", mutator.Lived, mutator.ArithmeticBase.String(), 7); err != nil {
		t.Fatal(err)
	}

	recs, err := c.List("hash1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("want 1 record, got %d", len(recs))
	}

	rec := recs[0]
	if rec.LineNumber != 7 {
		t.Errorf("want line 7, got %d", rec.LineNumber)
	}
	if rec.MutantType != mutator.ArithmeticBase.String() {
		t.Errorf("want %q, got %q", mutator.ArithmeticBase.String(), rec.MutantType)
	}
	if rec.Status != mutator.Lived.String() {
		t.Errorf("want %q, got %q", mutator.Lived.String(), rec.Status)
	}
}

func TestCache_PutWithMetaOverwritesMeta(t *testing.T) {
	c := openTestCache(t)
	id := mutantid.ID{Filename: "f.go", LineText: "a := 1", Index: 0, LineNumber: 7}

	if err := c.PutWithMeta(id, "hash1", mutator.Lived, mutator.ArithmeticBase.String(), 7); err != nil {
		t.Fatal(err)
	}
	if err := c.PutWithMeta(id, "hash1", mutator.Killed, mutator.ConditionalsBoundary.String(), 9); err != nil {
		t.Fatal(err)
	}

	recs, err := c.List("hash1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("want 1 record after overwrite, got %d", len(recs))
	}

	rec := recs[0]
	if rec.LineNumber != 9 {
		t.Errorf("want line 9, got %d", rec.LineNumber)
	}
	if rec.MutantType != mutator.ConditionalsBoundary.String() {
		t.Errorf("want %q, got %q", mutator.ConditionalsBoundary.String(), rec.MutantType)
	}
	if rec.Status != mutator.Killed.String() {
		t.Errorf("want %q, got %q", mutator.Killed.String(), rec.Status)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestTestsHash_StableForUnchangedTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo_test.go", "package foo\n")
	writeFile(t, dir, "pkg/bar_test.go", "package pkg\n")
	writeFile(t, dir, "go.sum", "example.com v1.0.0 h1:abc=\n")

	h1 := cache.TestsHash(dir)
	h2 := cache.TestsHash(dir)
	if h1 != h2 {
		t.Errorf("want a stable hash across calls, got %q and %q", h1, h2)
	}
}

func TestTestsHash_ChangesWhenATestFileChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo_test.go", "package foo\n")

	before := cache.TestsHash(dir)

	writeFile(t, dir, "foo_test.go", "package foo\n\nfunc TestFoo(t *testing.T) {}\n")

	after := cache.TestsHash(dir)
	if before == after {
		t.Error("expected the hash to change when a test file's content changes")
	}
}

func TestTestsHash_IgnoresNonTestFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo_test.go", "package foo\n")
	writeFile(t, dir, "go.sum", "example.com v1.0.0 h1:abc=\n")

	before := cache.TestsHash(dir)

	writeFile(t, dir, "go.sum", "example.com v2.0.0 h1:def=\n")
	writeFile(t, dir, "foo.go", "package foo\n\nfunc Foo() {}\n")

	after := cache.TestsHash(dir)
	if before != after {
		t.Error("expected the hash to ignore changes to non-test files")
	}
}

func TestTestsHash_IgnoresVendorAndGitDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo_test.go", "package foo\n")

	before := cache.TestsHash(dir)

	writeFile(t, dir, "vendor/dep/dep_test.go", "package dep\n")
	writeFile(t, dir, ".git/fake_test.go", "package fake\n")

	after := cache.TestsHash(dir)
	if before != after {
		t.Error("expected the hash to ignore test files under vendor/ and .git/")
	}
}

func TestCache_Baseline(t *testing.T) {
	c := openTestCache(t)

	if _, ok := c.Baseline("hash1"); ok {
		t.Fatal("expected a miss before any baseline is set")
	}

	want := 42 * time.Millisecond
	if err := c.SetBaseline("hash1", want); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Baseline("hash1")
	if !ok {
		t.Fatal("expected a hit")
	}
	if got != want {
		t.Errorf("want %s, got %s", want, got)
	}
}
