package model

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffers_AppendRow(t *testing.T) {
	b := NewBuffers(3)
	require.Equal(t, 3, b.Len())

	require.NoError(t, b.AppendRow(Scalar(1), Scalar(2), Vector{3}))
	require.NoError(t, b.AppendRow(Scalar(4), Scalar(5), Vector{6}))

	snap := b.Snapshot()
	assert.Equal(t, []Value{Scalar(1), Scalar(4)}, snap[0])
	assert.Equal(t, []Value{Scalar(2), Scalar(5)}, snap[1])
	assert.Equal(t, []Value{Vector{3}, Vector{6}}, snap[2])
}

func TestBuffers_ExtraValuesDropped(t *testing.T) {
	b := NewBuffers(1)
	require.NoError(t, b.AppendRow(Scalar(1), Scalar(2)))
	assert.Equal(t, 1, b.Count(0))
	assert.Equal(t, 0, b.Count(1))

	empty := NewBuffers(0)
	require.NoError(t, empty.AppendRow(Scalar(1)))
	assert.Empty(t, empty.Snapshot())
}

func TestBuffers_Seal(t *testing.T) {
	b := NewBuffers(1)
	require.NoError(t, b.AppendRow(Scalar(1)))

	b.Seal()
	assert.True(t, b.Sealed())

	err := b.AppendRow(Scalar(2))
	assert.True(t, errors.Is(err, ErrSealed))
	assert.Equal(t, 1, b.Count(0))
}

func TestBuffers_SnapshotIsCopy(t *testing.T) {
	b := NewBuffers(1)
	require.NoError(t, b.AppendRow(Scalar(1)))

	snap := b.Snapshot()
	snap[0][0] = Scalar(99)

	assert.Equal(t, Scalar(1), b.Snapshot()[0][0])
}

func TestBuffers_ConcurrentRowsStayAligned(t *testing.T) {
	b := NewBuffers(2)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.AppendRow(Scalar(i), Scalar(i))
		}(i)
	}
	wg.Wait()

	snap := b.Snapshot()
	require.Len(t, snap[0], 50)
	for i := range snap[0] {
		assert.Equal(t, snap[0][i], snap[1][i], "row %d torn across channels", i)
	}
}
