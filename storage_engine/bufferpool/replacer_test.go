package bufferpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFIFOReplacer(t *testing.T) {
	r := newFIFOReplacer(3)
	pinned := map[int]bool{}
	evictable := func(frame int) bool { return !pinned[frame] }

	pos, frame, ok := r.victim(evictable)
	assert.True(t, ok)
	assert.Equal(t, 0, pos)
	assert.Equal(t, 0, frame)

	pinned[0] = true
	pos, frame, ok = r.victim(evictable)
	assert.True(t, ok)
	assert.Equal(t, 1, frame)
	r.take(pos)
	assert.Equal(t, []int{2, 0}, r.queue, "skipped frame moves behind the rest")

	r.push(2)
	assert.Equal(t, 2, r.len(), "frames are queued once")

	pinned[2] = true
	pinned[0] = true
	_, _, ok = r.victim(evictable)
	assert.False(t, ok)
	assert.Equal(t, []int{2, 0}, r.queue, "failed search does not reorder")
}
