package heapfile

import (
	"HeapDB/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

/*
Public record operations on a HeapFile.

Records are opaque byte strings addressed by RID (page id, slot number).
A RID stays valid until its record is deleted; other inserts and deletes never move it.
*/

// Insert stores a copy of data and returns its RID.
// The page with the most free space is used when it fits, otherwise the chain grows by one page.
func (hf *HeapFile) Insert(data []byte) (types.RID, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if hf.deleted {
		return types.RID{}, ErrFileDeleted
	}
	if limit := MaxRecordSize(hf.bp.PageSize()); len(data) > limit {
		return types.RID{}, errors.Wrapf(ErrRecordTooLarge, "%d bytes (max %d)", len(data), limit)
	}

	if free, id, ok := hf.fsi.Max(); ok && free >= len(data) {
		return hf.insertInto(id, data)
	}
	return hf.insertOnNewPage(data)
}

// Select returns a copy of the record at rid.
func (hf *HeapFile) Select(rid types.RID) ([]byte, error) {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if err := hf.checkRID(rid); err != nil {
		return nil, err
	}
	g, err := hf.bp.PinGuard(rid.PageID, false)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	return GetRecord(g.Page(), rid.SlotNo)
}

// Update overwrites the record at rid with data of the same length.
func (hf *HeapFile) Update(rid types.RID, data []byte) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if err := hf.checkRID(rid); err != nil {
		return err
	}
	g, err := hf.bp.PinGuard(rid.PageID, false)
	if err != nil {
		return err
	}
	if err := UpdateRecord(g.Page(), rid.SlotNo, data); err != nil {
		g.Release()
		return errors.Wrapf(err, "update %s", rid)
	}
	g.MarkDirty()
	return g.Release()
}

// Delete removes the record at rid. Its slot may be reused by a later insert.
func (hf *HeapFile) Delete(rid types.RID) error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if err := hf.checkRID(rid); err != nil {
		return err
	}
	g, err := hf.bp.PinGuard(rid.PageID, false)
	if err != nil {
		return err
	}
	if err := DeleteRecord(g.Page(), rid.SlotNo); err != nil {
		g.Release()
		return err
	}
	hf.fsi.Update(rid.PageID, FreeSpace(g.Page()))
	hf.recCount--

	g.MarkDirty()
	if err := g.Release(); err != nil {
		return err
	}
	hf.trace("DELETE", logrus.Fields{"rid": rid.String()})
	return nil
}

// ForEach calls fn for every record in scan order. The scan is always closed.
// fn must not delete the file.
func (hf *HeapFile) ForEach(fn func(rid types.RID, rec []byte) error) error {
	scan, err := hf.OpenScan()
	if err != nil {
		return err
	}
	defer scan.Close()

	for {
		rec, rid, ok, err := scan.GetNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := fn(rid, rec); err != nil {
			return err
		}
	}
	return scan.Close()
}
