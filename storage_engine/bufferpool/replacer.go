package bufferpool

/*
fifoReplacer keeps frame indices in the order they became replacement candidates.

A frame is queued when it becomes unpinned (and at construction, when every frame is empty).
Pinning a queued frame again does not remove it; such stale entries are skipped by victim
and rotated to the back when a victim behind them is taken. A frame is never queued twice,
so a page that is unpinned, repinned and unpinned again keeps its original position.
*/
type fifoReplacer struct {
	queue  []int
	queued []bool
}

func newFIFOReplacer(numFrames int) *fifoReplacer {
	r := &fifoReplacer{
		queue:  make([]int, 0, numFrames),
		queued: make([]bool, numFrames),
	}
	for i := 0; i < numFrames; i++ {
		r.push(i)
	}
	return r
}

func (r *fifoReplacer) push(frame int) {
	if r.queued[frame] {
		return
	}
	r.queued[frame] = true
	r.queue = append(r.queue, frame)
}

// victim returns the queue position and frame of the oldest evictable candidate.
// It does not change the queue, so a failed pin leaves the order untouched.
func (r *fifoReplacer) victim(evictable func(frame int) bool) (pos int, frame int, ok bool) {
	for pos, frame := range r.queue {
		if evictable(frame) {
			return pos, frame, true
		}
	}
	return -1, -1, false
}

// take removes the entry at pos; the stale entries in front of it go to the back in order.
func (r *fifoReplacer) take(pos int) {
	frame := r.queue[pos]
	stale := append([]int(nil), r.queue[:pos]...)
	r.queue = append(r.queue[:0], r.queue[pos+1:]...)
	r.queue = append(r.queue, stale...)
	r.queued[frame] = false
}

func (r *fifoReplacer) len() int {
	return len(r.queue)
}
