package generator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecent(t *testing.T) {
	r := NewRecent[string](2)
	r.Add("a")
	r.Add("b")
	r.Add("a")
	assert.Equal(t, []string{"a", "b"}, r.Items())

	r.Add("c")
	assert.Equal(t, []string{"c", "a"}, r.Items())
	assert.False(t, r.Contains("b"))

	empty := NewRecent[string](0)
	empty.Add("a")
	assert.Empty(t, empty.Items())
}

func TestPick(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	options := []string{"a", "b", "c"}

	t.Run("avoids recent options", func(t *testing.T) {
		r := NewRecent[string](2)
		r.Add("a")
		r.Add("b")
		for i := 0; i < 20; i++ {
			assert.Equal(t, "c", Pick(options, r, nil, rnd))
		}
	})

	t.Run("least recently used when all are recent", func(t *testing.T) {
		r := NewRecent[string](3)
		r.Add("b")
		r.Add("a")
		r.Add("c")
		assert.Equal(t, "b", Pick(options, r, nil, rnd))
	})

	t.Run("honours exclusions", func(t *testing.T) {
		r := NewRecent[string](1)
		r.Add("c")
		for i := 0; i < 20; i++ {
			assert.Equal(t, "b", Pick(options, r, map[string]bool{"a": true}, rnd))
		}
	})

	t.Run("everything excluded falls back to all options", func(t *testing.T) {
		r := NewRecent[string](0)
		got := Pick(options, r, map[string]bool{"a": true, "b": true, "c": true}, rnd)
		assert.Contains(t, options, got)
	})
}
