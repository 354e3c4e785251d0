package heapfile

import (
	"HeapDB/types"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreeSpaceIndexMax(t *testing.T) {
	f := NewFreeSpaceIndex()
	_, _, ok := f.Max()
	assert.False(t, ok)

	f.Add(1, 100)
	f.Add(2, 300)
	f.Add(3, 300)
	f.Add(4, 50)

	free, id, ok := f.Max()
	assert.True(t, ok)
	assert.Equal(t, 300, free)
	assert.Equal(t, types.PageID(2), id, "oldest page in the bucket comes first")
	assert.Equal(t, []int{300, 100, 50}, f.keys)

	f.Update(2, 10)
	_, id, _ = f.Max()
	assert.Equal(t, types.PageID(3), id)

	f.Remove(3)
	free, id, _ = f.Max()
	assert.Equal(t, 100, free)
	assert.Equal(t, types.PageID(1), id)
	assert.Equal(t, []int{100, 50, 10}, f.keys)
	assert.Equal(t, 3, f.Len())
}

func TestFreeSpaceIndexUpdateSameKeyKeepsOrder(t *testing.T) {
	f := NewFreeSpaceIndex()
	f.Add(1, 40)
	f.Add(2, 40)

	f.Update(1, 40)
	_, id, _ := f.Max()
	assert.Equal(t, types.PageID(1), id)

	f.Add(1, 40)
	_, id, _ = f.Max()
	assert.Equal(t, types.PageID(2), id, "re-adding moves the page to the back")
}

func TestFreeSpaceIndexLookupAndClear(t *testing.T) {
	f := NewFreeSpaceIndex()
	f.Add(9, 12)

	free, ok := f.FreeSpaceOf(9)
	assert.True(t, ok)
	assert.Equal(t, 12, free)
	_, ok = f.FreeSpaceOf(10)
	assert.False(t, ok)

	f.Remove(10)
	f.Clear()
	assert.Equal(t, 0, f.Len())
	_, _, ok = f.Max()
	assert.False(t, ok)
}
