package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutReplacesAndReleasesPrevious(t *testing.T) {
	c := New()

	first := c.Put("s1", 1, []byte("imgA"))
	require.NotNil(t, first)

	second := c.Put("s1", 2, []byte("imgB"))
	require.NotNil(t, second)

	assert.Equal(t, []byte("imgB"), c.Get("s1").Bytes())
	assert.True(t, first.Released())
	assert.Nil(t, first.Bytes())
	assert.Equal(t, 1, c.Len())
}

func TestPutDiscardsStaleCompletion(t *testing.T) {
	c := New()

	// Завершение с seq=2 пришло раньше, чем с seq=1
	fresh := c.Put("s1", 2, []byte("new"))
	stale := c.Put("s1", 1, []byte("old"))

	assert.Nil(t, stale)
	assert.False(t, fresh.Released())
	assert.Equal(t, []byte("new"), c.Get("s1").Bytes())
}

func TestRemoveIsIdempotent(t *testing.T) {
	c := New()

	h := c.Put("s1", 1, []byte("img"))
	c.Remove("s1")
	assert.True(t, h.Released())
	assert.Nil(t, c.Get("s1"))

	// Повторный Remove и Remove незнакомого id не должны паниковать
	c.Remove("s1")
	c.Remove("never-seen")
	assert.Equal(t, 0, c.Len())
}

func TestClearReleasesEverything(t *testing.T) {
	c := New()

	var handles []*Handle
	for i := 0; i < 5; i++ {
		handles = append(handles, c.Put(fmt.Sprintf("s%d", i), 1, []byte{byte(i)}))
	}
	require.Equal(t, 5, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	for _, h := range handles {
		assert.True(t, h.Released())
	}
}

func TestOneLiveHandlePerStream(t *testing.T) {
	c := New()

	var all []*Handle
	for seq := uint64(1); seq <= 10; seq++ {
		all = append(all, c.Put("s1", seq, []byte{byte(seq)}))
	}

	live := 0
	for _, h := range all {
		if !h.Released() {
			live++
		}
	}
	assert.Equal(t, 1, live)
	assert.Equal(t, []byte{10}, c.Get("s1").Bytes())
}
