package favourites

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddIsIdempotent(t *testing.T) {
	store := NewStore()

	store.Add("42")
	store.Add("42")

	assert.True(t, store.IsFavourite("42"))
	assert.Equal(t, 1, store.Len(), "duplicate adds must not create duplicates")
	assert.Equal(t, []string{"42"}, store.List())

	store.Remove("42")
	assert.False(t, store.IsFavourite("42"))
	assert.Equal(t, 0, store.Len())
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	store := NewStore()
	store.Remove("missing")
	assert.Equal(t, 0, store.Len())
}

func TestListIsSorted(t *testing.T) {
	store := NewStore()
	store.Add("c")
	store.Add("a")
	store.Add("b")

	assert.Equal(t, []string{"a", "b", "c"}, store.List())
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("ev-%d", i%10)
			store.Add(id)
			store.IsFavourite(id)
			if i%2 == 0 {
				store.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, store.Len(), 10)
}
