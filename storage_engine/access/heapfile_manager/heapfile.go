package heapfile

import (
	"HeapDB/logger"
	"HeapDB/storage_engine/bufferpool"
	"HeapDB/types"
	"slices"

	"github.com/pkg/errors"
)

/*
This file holds the lifecycle of a heap file: open or create, temporary files, scans and deletion.

Opening an existing file walks its page chain from the directory entry, so the free space index,
the page list and the record count are rebuilt from the pages themselves.
A new named file starts with one empty head page; a temporary file starts with no pages at all.
*/

// OpenHeapFile opens the heap file called name, creating it if the directory has no entry.
func OpenHeapFile(bp *bufferpool.BufferPool, dir FileDirectory, name string) (*HeapFile, error) {
	hf := newHeapFile(bp, dir, name, false)

	first, ok, err := dir.GetFileEntry(name)
	if err != nil {
		return nil, errors.Wrapf(err, "look up heap file %q", name)
	}
	if ok {
		if err := hf.loadChain(first); err != nil {
			return nil, errors.Wrapf(err, "open heap file %q", name)
		}
		hf.log.WithField("pages", len(hf.pageIDs)).WithField("records", hf.recCount).Info("opened heap file")
		return hf, nil
	}

	id, free, err := hf.newChainPage(types.InvalidPageID)
	if err != nil {
		return nil, errors.Wrapf(err, "create heap file %q", name)
	}
	if err := dir.AddFileEntry(name, id); err != nil {
		hf.releasePage(id)
		return nil, errors.Wrapf(err, "create heap file %q", name)
	}
	hf.pageIDs = append(hf.pageIDs, id)
	hf.fsi.Add(id, free)
	hf.log.WithField("head", id).Info("created heap file")
	return hf, nil
}

// CreateTempHeapFile returns a heap file with no directory entry. Close deletes it.
func CreateTempHeapFile(bp *bufferpool.BufferPool) *HeapFile {
	hf := newHeapFile(bp, nil, "", true)
	hf.log.Debug("created temporary heap file")
	return hf
}

func newHeapFile(bp *bufferpool.BufferPool, dir FileDirectory, name string, temp bool) *HeapFile {
	label := name
	if temp {
		label = "(temp)"
	}
	return &HeapFile{
		name: name,
		temp: temp,
		bp:   bp,
		dir:  dir,
		fsi:  NewFreeSpaceIndex(),
		log:  logger.WithComponent("heapfile").WithField("file", label),
	}
}

// OpenScan starts a scan over the pages the file has now.
func (hf *HeapFile) OpenScan() (*HeapScan, error) {
	hf.mu.Lock()
	if hf.deleted {
		hf.mu.Unlock()
		return nil, ErrFileDeleted
	}
	scan := &HeapScan{hf: hf, pageIDs: slices.Clone(hf.pageIDs), idx: -1, registered: true}
	hf.openScans++
	hf.mu.Unlock()

	// settle may run off the end and unregister, which takes hf.mu
	if err := scan.settle(); err != nil {
		scan.Close()
		return nil, errors.Wrap(err, "open heap scan")
	}
	return scan, nil
}

// DeleteFile frees every page of the file and removes its directory entry.
// Deleting twice is a no-op; it fails while scans are open.
func (hf *HeapFile) DeleteFile() error {
	hf.mu.Lock()
	defer hf.mu.Unlock()

	if hf.deleted {
		return nil
	}
	if hf.openScans > 0 {
		return errors.Wrapf(ErrFileInUse, "delete heap file (%d open scans)", hf.openScans)
	}

	for i, id := range hf.pageIDs {
		if err := hf.bp.FreePage(id); err != nil {
			hf.pageIDs = hf.pageIDs[i:]
			return errors.Wrapf(err, "delete heap file page %d", id)
		}
		hf.fsi.Remove(id)
	}
	hf.pageIDs = nil

	if !hf.temp {
		if err := hf.dir.DeleteFileEntry(hf.name); err != nil {
			return errors.Wrapf(err, "delete heap file %q", hf.name)
		}
	}

	hf.fsi.Clear()
	hf.recCount = 0
	hf.deleted = true
	hf.log.Info("deleted heap file")
	return nil
}

// Close deletes a temporary file. Named files stay on disk and Close does nothing.
func (hf *HeapFile) Close() error {
	if hf.temp {
		return hf.DeleteFile()
	}
	return nil
}
