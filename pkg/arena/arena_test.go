package arena

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/cellguard/pkg/errcode"
)

func TestArena_InsertGet(t *testing.T) {
	a := New[string]("test")
	id := a.Insert("hello")

	got, err := a.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.True(t, a.Contains(id))
	assert.Equal(t, 1, a.Len())
}

func TestArena_UnknownIDFailsWithNoEntry(t *testing.T) {
	a := New[string]("test")
	_, err := a.Get(uuid.New())
	require.Error(t, err)
	assert.Equal(t, errcode.NoEntry, errcode.CodeOf(err))
	assert.False(t, a.Contains(uuid.New()))
}

func TestArena_FreshIdentifiers(t *testing.T) {
	a := New[int]("test")
	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 100; i++ {
		id := a.Insert(i)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestArena_ReplaceRequiresExisting(t *testing.T) {
	a := New[string]("test")
	id := a.Insert("old")

	require.NoError(t, a.Replace(id, "new"))
	got, err := a.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "new", got)

	err = a.Replace(uuid.New(), "nope")
	assert.Equal(t, errcode.NoEntry, errcode.CodeOf(err))
}

func TestArena_ConcurrentAccess(t *testing.T) {
	a := New[int]("test")
	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 64)
	for i := range ids {
		ids[i] = a.Insert(i)
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_, _ = a.Get(ids[j%len(ids)])
				if j%100 == 0 {
					a.Insert(j)
				}
			}
		}()
	}
	wg.Wait()
}
