package object

import (
	"fmt"
	"testing"

	"github.com/kristofer/stbootstrap/internal/memory"
	"github.com/stretchr/testify/require"
)

// TestDictionaryGrowthPreservesEntries exercises spec.md section 8's
// property: "after N inserts of distinct keys, tally == N; lookup of
// every inserted key returns its value ... Dictionary grow preserves all
// entries." Uses testify/require for the assertion-heavy property style,
// per SPEC_FULL.md's test-tooling section.
func TestDictionaryGrowthPreservesEntries(t *testing.T) {
	mem := memory.New(nil)
	mdl := New(mem)

	strClass := memory.NilRef
	assocClass := memory.NilRef
	d := mdl.NewDictionary(memory.NilRef, 8)

	const n = 9 // one past the initial capacity of 8, forcing a grow
	keys := make([]ObjectRef, n)
	for i := 0; i < n; i++ {
		keys[i] = mdl.NewSymbol(strClass, fmt.Sprintf("key%d", i))
		require.NoError(t, mdl.DictAtPut(d, Ref(keys[i]), Int(int64(i)), assocClass, strClass))
	}

	require.Equal(t, n, mdl.Tally(d), "tally must equal number of distinct inserts")

	for i := 0; i < n; i++ {
		v, found := mdl.DictAt(d, Ref(keys[i]), assocClass, strClass)
		require.True(t, found, "key%d must be found after growth", i)
		require.Equal(t, int64(i), v.Int())
	}

	missing := mdl.NewSymbol(strClass, "not-inserted")
	_, found := mdl.DictAt(d, Ref(missing), assocClass, strClass)
	require.False(t, found, "lookup of a non-inserted key must miss")
}

func TestMethodDictionaryIdentityKeyed(t *testing.T) {
	mem := memory.New(nil)
	mdl := New(mem)

	sel1 := mdl.NewSymbol(memory.NilRef, "foo")
	sel2 := mdl.NewSymbol(memory.NilRef, "foo") // distinct object, same text

	d := mdl.NewMethodDictionary(memory.NilRef, 4)
	method := mdl.Mem.Allocate(memory.NilRef, KindCompiledMethod, 0)
	require.NoError(t, mdl.MethodDictAtPut(d, sel1, method))

	_, found := mdl.MethodDictAt(d, sel2)
	require.False(t, found, "method dictionary compares selectors by identity, not content")

	got, found := mdl.MethodDictAt(d, sel1)
	require.True(t, found)
	require.Equal(t, method, got)
}
