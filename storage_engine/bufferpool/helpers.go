package bufferpool

import "HeapDB/types"

/*
This file holds helper functions for the bufferpool
*/

// GetStats returns current buffer pool statistics
func (bp *BufferPool) GetStats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{
		Capacity:  len(bp.frames),
		Resident:  len(bp.pageTable),
		Hits:      bp.hits,
		Misses:    bp.misses,
		Evictions: bp.evictions,
		Writes:    bp.writes,
	}
	for _, pg := range bp.frames {
		if pg.PinCount > 0 {
			stats.Pinned++
		} else {
			stats.Unpinned++
		}
	}
	if total := bp.hits + bp.misses; total > 0 {
		stats.HitRate = float64(bp.hits) / float64(total)
	}
	return stats
}

// Size returns the number of resident pages
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pageTable)
}

// Capacity returns the number of frames
func (bp *BufferPool) Capacity() int {
	return len(bp.frames)
}

func (bp *BufferPool) PageSize() int {
	return bp.pageSize
}

// PinCount reports the pin count of id, ok is false if the page is not resident.
func (bp *BufferPool) PinCount(id types.PageID) (count int32, ok bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.pageTable[id]
	if !ok {
		return 0, false
	}
	return bp.frames[idx].PinCount, true
}

func (bp *BufferPool) IsResident(id types.PageID) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	_, ok := bp.pageTable[id]
	return ok
}
