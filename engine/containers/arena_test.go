package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaInsertGetRemove(t *testing.T) {
	a := NewArena[string]()
	first := a.Insert("first")
	second := a.Insert("second")
	assert.Equal(t, 2, a.Len())
	assert.False(t, first.IsNil())

	v, ok := a.Get(second)
	require.True(t, ok)
	assert.Equal(t, "second", v)

	assert.True(t, a.Remove(first))
	assert.False(t, a.Remove(first), "second remove is a no-op")
	assert.False(t, a.Contains(first))
	assert.Equal(t, 1, a.Len())
}

func TestArenaReuseBumpsGeneration(t *testing.T) {
	a := NewArena[int]()
	old := a.Insert(1)
	a.Remove(old)
	reused := a.Insert(2)

	assert.Equal(t, old.index, reused.index, "the freed slot is reused")
	assert.NotEqual(t, old, reused)
	_, ok := a.Get(old)
	assert.False(t, ok, "a stale handle does not see the new occupant")
	v, ok := a.Get(reused)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestArenaNilHandle(t *testing.T) {
	a := NewArena[int]()
	a.Insert(7)
	assert.True(t, NilHandle.IsNil())
	assert.False(t, a.Contains(NilHandle))
	assert.False(t, a.Contains(Handle{index: 42, generation: 1}))
}

func TestHandleOrdering(t *testing.T) {
	a := Handle{index: 1, generation: 1}
	b := Handle{index: 1, generation: 2}
	c := Handle{index: 2, generation: 1}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.Equal(t, -1, a.Compare(c))
	assert.Equal(t, 1, c.Compare(b))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, "1#2", b.String())
}

func TestArenaEach(t *testing.T) {
	a := NewArena[string]()
	x := a.Insert("x")
	y := a.Insert("y")
	z := a.Insert("z")
	a.Remove(y)

	var seen []Handle
	var values []string
	a.Each(func(h Handle, v string) {
		seen = append(seen, h)
		values = append(values, v)
	})
	assert.Equal(t, []Handle{x, z}, seen)
	assert.Equal(t, []string{"x", "z"}, values)
}
