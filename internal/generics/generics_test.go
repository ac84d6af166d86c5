package generics

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := MakeSet[int](10)
	assert.Len(t, s, 0)

	s.Insert(3, 7)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	delete(s, 7)
	assert.Len(t, s, 1)
	assert.False(t, s.Has(7))
}

func TestSortedKeys(t *testing.T) {
	m := map[int]string{1: "1", 5: "5", 3: "3"}
	// The builtin map iteration order is deliberately randomized, so run the traversal
	// repeatedly to show it is stably sorted.
	want := []int{1, 3, 5}
	for range 100 {
		assert.Equal(t, want, slices.Collect(SortedKeys(m)))
	}
}
