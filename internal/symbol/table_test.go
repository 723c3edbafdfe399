package symbol

import (
	"testing"

	"github.com/kristofer/stbootstrap/internal/memory"
	"github.com/kristofer/stbootstrap/internal/object"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	mem := memory.New(nil)
	mdl := object.New(mem)
	return New(mdl, memory.NilRef, memory.NilRef, memory.NilRef, 16)
}

func TestFindOrAddIsIdempotent(t *testing.T) {
	tbl := newTestTable(t)
	s1 := tbl.FindOrAdd("abc")
	s2 := tbl.FindOrAdd("abc")
	if s1 != s2 {
		t.Fatalf("expected identity-equal symbols, got %d and %d", s1, s2)
	}
}

func TestFindMissingReturnsFalse(t *testing.T) {
	tbl := newTestTable(t)
	if _, ok := tbl.Find("nope"); ok {
		t.Fatal("expected Find to miss on an uninterned name")
	}
}

func TestDistinctNamesGetDistinctSymbols(t *testing.T) {
	tbl := newTestTable(t)
	a := tbl.FindOrAdd("foo")
	b := tbl.FindOrAdd("bar")
	if a == b {
		t.Fatal("distinct names must not collide onto the same symbol")
	}
}
