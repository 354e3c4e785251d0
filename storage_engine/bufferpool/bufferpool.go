package bufferpool

import (
	"HeapDB/logger"
	"HeapDB/storage_engine/page"
	"HeapDB/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

/*
This file is the main file of the bufferpool
The buffer pool keeps a fixed number of frames and replaces unpinned frames in FIFO order
(see replacer.go). It holds the page store for reading pages on a miss and for writing them back.

Writes are synchronous: a dirty unpin writes the frame through to disk before returning,
so every resident page matches its on-disk copy once nobody holds it dirty.
Eviction therefore never writes, it only drops the frame's identity.

Every pin must be matched by exactly one unpin. PinGuard (guard.go) does that bookkeeping.
*/

// NewBufferPool creates a pool of numFrames frames over store.
func NewBufferPool(numFrames int, store PageStore) *BufferPool {
	if numFrames < 1 {
		numFrames = 1
	}
	pageSize := store.PageSize()

	frames := make([]*page.Page, numFrames)
	for i := range frames {
		frames[i] = page.NewFrame(pageSize)
	}

	return &BufferPool{
		frames:    frames,
		pageTable: make(map[types.PageID]int, numFrames),
		replacer:  newFIFOReplacer(numFrames),
		spare:     make([]byte, pageSize),
		store:     store,
		pageSize:  pageSize,
		log:       logger.WithComponent("bufferpool"),
	}
}

// PinPage returns the frame holding id with its pin count incremented, reading the
// page from disk on a miss. With emptyPage the read is skipped and the frame comes
// back zeroed, for pages the caller is about to initialize.
// When every frame is pinned it returns ErrBufferPoolExhausted and nothing changes.
func (bp *BufferPool) PinPage(id types.PageID, emptyPage bool) (*page.Page, error) {
	if !id.IsValid() {
		return nil, errors.Wrapf(ErrInvalidPageID, "pin page %d", id)
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.pageTable[id]; ok {
		pg := bp.frames[idx]
		pg.PinCount++
		bp.hits++
		bp.trace("HIT", logrus.Fields{"page": id, "pin": pg.PinCount})
		return pg, nil
	}

	pos, idx, ok := bp.replacer.victim(func(frame int) bool {
		return bp.frames[frame].PinCount == 0
	})
	if !ok {
		return nil, errors.Wrapf(ErrBufferPoolExhausted, "pin page %d (%d frames)", id, len(bp.frames))
	}

	// read before touching the victim so a failed read leaves the pool as it was
	if emptyPage {
		clear(bp.spare)
	} else if err := bp.store.ReadPage(id, bp.spare); err != nil {
		return nil, errors.Wrapf(err, "pin page %d", id)
	}

	bp.replacer.take(pos)
	victim := bp.frames[idx]
	if victim.ID.IsValid() {
		delete(bp.pageTable, victim.ID)
		bp.evictions++
		bp.trace("EVICT", logrus.Fields{"page": victim.ID, "frame": idx})
	}

	victim.Data, bp.spare = bp.spare, victim.Data
	victim.ID = id
	victim.PinCount = 1
	bp.pageTable[id] = idx
	bp.misses++
	bp.trace("MISS", logrus.Fields{"page": id, "frame": idx, "empty": emptyPage})
	return victim, nil
}

// UnpinPage releases one pin on id. With dirty the frame is written to disk before
// returning; if that write fails the pin is still released and the error returned.
func (bp *BufferPool) UnpinPage(id types.PageID, dirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.pageTable[id]
	if !ok {
		return errors.Wrapf(ErrPageNotResident, "unpin page %d", id)
	}
	pg := bp.frames[idx]
	if pg.PinCount == 0 {
		return errors.Wrapf(ErrAlreadyUnpinned, "unpin page %d", id)
	}

	pg.PinCount--
	if pg.PinCount == 0 {
		bp.replacer.push(idx)
	}
	if dirty {
		return bp.writeLocked(pg)
	}
	return nil
}

// NewPage allocates count contiguous pages on disk and pins the first one in a
// zeroed frame. The other pages of the run are not pinned.
func (bp *BufferPool) NewPage(count int) (types.PageID, *page.Page, error) {
	first, err := bp.store.AllocatePages(count)
	if err != nil {
		return types.InvalidPageID, nil, errors.Wrapf(err, "allocate %d pages", count)
	}

	pg, err := bp.PinPage(first, true)
	if err != nil {
		if derr := bp.store.DeallocatePages(first, count); derr != nil {
			bp.log.WithError(derr).WithField("page", first).Warn("could not release run after failed pin")
		}
		return types.InvalidPageID, nil, err
	}
	return first, pg, nil
}

// FreePage releases id on disk and drops it from the pool. A page pinned once
// (by the caller) is unpinned dirty first; a page pinned more than once is refused.
func (bp *BufferPool) FreePage(id types.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.pageTable[id]; ok {
		pg := bp.frames[idx]
		if pg.PinCount > 1 {
			return errors.Wrapf(ErrPagePinned, "free page %d (pin count %d)", id, pg.PinCount)
		}
		if pg.PinCount == 1 {
			pg.PinCount = 0
			bp.replacer.push(idx)
			if err := bp.writeLocked(pg); err != nil {
				return errors.Wrapf(err, "free page %d", id)
			}
		}
		delete(bp.pageTable, id)
		pg.Reset()
	}

	if err := bp.store.DeallocatePages(id, 1); err != nil {
		return errors.Wrapf(err, "free page %d", id)
	}
	bp.trace("FREE", logrus.Fields{"page": id})
	return nil
}

// FlushPage writes a resident page to disk regardless of its pin count.
func (bp *BufferPool) FlushPage(id types.PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	idx, ok := bp.pageTable[id]
	if !ok {
		return errors.Wrapf(ErrPageNotResident, "flush page %d", id)
	}
	return bp.writeLocked(bp.frames[idx])
}

// FlushAllPages writes every resident page to disk.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.log.WithField("resident", len(bp.pageTable)).Debug("FLUSH ALL")
	for _, pg := range bp.frames {
		if !pg.ID.IsValid() {
			continue
		}
		if err := bp.writeLocked(pg); err != nil {
			return err
		}
	}
	return nil
}

// writeLocked assumes bp.mu is held.
func (bp *BufferPool) writeLocked(pg *page.Page) error {
	if err := bp.store.WritePage(pg.ID, pg.Data); err != nil {
		return errors.Wrapf(err, "write page %d", pg.ID)
	}
	bp.writes++
	return nil
}

func (bp *BufferPool) trace(event string, fields logrus.Fields) {
	if bp.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		bp.log.WithFields(fields).Debug(event)
	}
}
