package symtab

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"troll/internal/value"
)

func TestDefineAndGet(t *testing.T) {
	tab := New()
	name := value.NewString("x")

	isNew := tab.Define(name, value.Int(5))
	assert.True(t, isNew)

	got, ok := tab.Get(name)
	require.True(t, ok)
	assert.Equal(t, value.Int(5), got)
}

func TestDefineOverwritesExisting(t *testing.T) {
	tab := New()
	name := value.NewString("x")
	tab.Define(name, value.Int(1))
	isNew := tab.Define(name, value.Int(2))
	assert.False(t, isNew)

	got, ok := tab.Get(name)
	require.True(t, ok)
	assert.Equal(t, value.Int(2), got)
}

func TestGetUndefinedMissing(t *testing.T) {
	tab := New()
	_, ok := tab.Get(value.NewString("nope"))
	assert.False(t, ok)
}

func TestGrowthSurvivesManyEntries(t *testing.T) {
	tab := New()
	for i := 0; i < 200; i++ {
		tab.Define(value.NewString(fmt.Sprintf("k%d", i)), value.Int(int32(i)))
	}
	for i := 0; i < 200; i++ {
		got, ok := tab.Get(value.NewString(fmt.Sprintf("k%d", i)))
		require.True(t, ok)
		assert.EqualValues(t, i, got.Int)
	}
}

func TestDeleteTombstonesSlot(t *testing.T) {
	tab := New()
	name := value.NewString("x")
	tab.Define(name, value.Int(1))
	require.True(t, tab.delete(name))

	_, ok := tab.Get(name)
	assert.False(t, ok, "a deleted key must no longer resolve")

	// Re-inserting after a delete must still find a usable slot despite
	// the tombstone (§4.4's reason for distinguishing tombstone/empty).
	isNew := tab.Define(name, value.Int(9))
	assert.True(t, isNew)
	got, ok := tab.Get(name)
	require.True(t, ok)
	assert.Equal(t, value.Int(9), got)
}
