package arena

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastGenerationSlotIsRetired(t *testing.T) {
	a := New[int](1)
	h := a.Insert(1)
	a.blocks[0][h.index].generation = math.MaxUint32
	h.generation = math.MaxUint32

	_, ok := a.Remove(h)
	require.True(t, ok)
	assert.Empty(t, a.freeSlots)

	next := a.Insert(2)
	assert.NotEqual(t, h.Index(), next.Index())
	assert.False(t, a.Contains(h))
}
