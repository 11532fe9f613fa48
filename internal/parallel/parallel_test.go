package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach_CoversEveryIndex(t *testing.T) {
	const n = 10000
	var hits [n]int32
	err := ForEach(n, func(start, end int) error {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
		return nil
	})
	require.NoError(t, err)
	for i, h := range hits {
		require.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestForEach_Empty(t *testing.T) {
	called := false
	require.NoError(t, ForEach(0, func(start, end int) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}

func TestForEach_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEach(100000, func(start, end int) error {
		if start == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}
