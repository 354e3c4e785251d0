package heapfile

import (
	"HeapDB/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

/*
Internal helpers for heap file row operations. Callers hold hf.mu.

Each helper pins exactly the pages it touches and releases them before returning,
on error paths as well. A page is written through (dirty unpin) only when its bytes changed.
*/

// newChainPage allocates and formats an empty page linked after prev.
// It does not touch prev itself.
func (hf *HeapFile) newChainPage(prev types.PageID) (types.PageID, int, error) {
	g, err := hf.bp.NewPageGuard(1)
	if err != nil {
		return types.InvalidPageID, 0, err
	}
	id := g.ID()
	InitHeapPage(g.Page(), id, prev, types.InvalidPageID)
	free := FreeSpace(g.Page())
	if err := g.Release(); err != nil {
		hf.releasePage(id)
		return types.InvalidPageID, 0, err
	}
	return id, free, nil
}

// releasePage gives a page back after a failed operation.
func (hf *HeapFile) releasePage(id types.PageID) {
	if err := hf.bp.FreePage(id); err != nil {
		hf.log.WithError(err).WithField("page", id).Warn("could not free page after failed operation")
	}
}

// loadChain walks the page chain from first, rebuilding the page list, free space index and record count.
func (hf *HeapFile) loadChain(first types.PageID) error {
	seen := make(map[types.PageID]struct{})
	prev := types.InvalidPageID

	for id := first; id.IsValid(); {
		if _, dup := seen[id]; dup {
			return errors.Wrapf(ErrCorruptChain, "page %d appears twice", id)
		}
		seen[id] = struct{}{}

		g, err := hf.bp.PinGuard(id, false)
		if err != nil {
			return err
		}
		pg := g.Page()
		if !IsHeapPage(pg) || GetCurPage(pg) != id || GetPrevPage(pg) != prev {
			g.Release()
			return errors.Wrapf(ErrCorruptChain, "page %d (cur=%d prev=%d, expected prev=%d)", id, GetCurPage(pg), GetPrevPage(pg), prev)
		}
		free := FreeSpace(pg)
		rows := int(GetNumRows(pg))
		next := GetNextPage(pg)
		if err := g.Release(); err != nil {
			return err
		}

		hf.pageIDs = append(hf.pageIDs, id)
		hf.fsi.Add(id, free)
		hf.recCount += rows
		prev, id = id, next
	}
	return nil
}

// insertInto places data on an existing page of the file.
func (hf *HeapFile) insertInto(id types.PageID, data []byte) (types.RID, error) {
	g, err := hf.bp.PinGuard(id, false)
	if err != nil {
		return types.RID{}, err
	}
	slot, err := InsertRecord(g.Page(), data)
	if err != nil {
		g.Release()
		return types.RID{}, err
	}
	hf.fsi.Update(id, FreeSpace(g.Page()))
	hf.recCount++

	g.MarkDirty()
	if err := g.Release(); err != nil {
		return types.RID{}, err
	}
	hf.trace("INSERT", logrus.Fields{"page": id, "slot": slot, "len": len(data)})
	return types.NewRID(id, slot), nil
}

// insertOnNewPage grows the chain by one page holding data.
func (hf *HeapFile) insertOnNewPage(data []byte) (types.RID, error) {
	tail := types.InvalidPageID
	if n := len(hf.pageIDs); n > 0 {
		tail = hf.pageIDs[n-1]
	}

	g, err := hf.bp.NewPageGuard(1)
	if err != nil {
		return types.RID{}, err
	}
	id := g.ID()
	InitHeapPage(g.Page(), id, tail, types.InvalidPageID)
	slot, err := InsertRecord(g.Page(), data)
	if err != nil {
		g.Release()
		hf.releasePage(id)
		return types.RID{}, err
	}
	free := FreeSpace(g.Page())
	if err := g.Release(); err != nil {
		hf.releasePage(id)
		return types.RID{}, err
	}

	if tail.IsValid() {
		if err := hf.linkNext(tail, id); err != nil {
			hf.releasePage(id)
			return types.RID{}, err
		}
	}

	hf.pageIDs = append(hf.pageIDs, id)
	hf.fsi.Add(id, free)
	hf.recCount++
	hf.trace("NEW PAGE", logrus.Fields{"page": id, "prev": tail})
	return types.NewRID(id, slot), nil
}

func (hf *HeapFile) linkNext(tail, next types.PageID) error {
	g, err := hf.bp.PinGuard(tail, false)
	if err != nil {
		return errors.Wrapf(err, "link page %d after %d", next, tail)
	}
	SetNextPage(g.Page(), next)
	g.MarkDirty()
	return g.Release()
}

// checkRID rejects ids whose page is not part of this file.
func (hf *HeapFile) checkRID(rid types.RID) error {
	if hf.deleted {
		return ErrFileDeleted
	}
	if _, ok := hf.fsi.FreeSpaceOf(rid.PageID); !ok {
		return errors.Wrapf(ErrInvalidRID, "%s: page not in file", rid)
	}
	return nil
}

func (hf *HeapFile) trace(event string, fields logrus.Fields) {
	if hf.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		hf.log.WithFields(fields).Debug(event)
	}
}
