package heapfile

import (
	"HeapDB/types"
	"slices"
)

/*
This file contains accessors on HeapFile used by tools and tests
*/

func (hf *HeapFile) Name() string {
	return hf.name
}

func (hf *HeapFile) IsTemp() bool {
	return hf.temp
}

func (hf *HeapFile) IsDeleted() bool {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.deleted
}

// RecordCount returns the number of live records.
func (hf *HeapFile) RecordCount() int {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.recCount
}

// PageIDs returns the pages of the file in chain order.
func (hf *HeapFile) PageIDs() []types.PageID {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return slices.Clone(hf.pageIDs)
}

func (hf *HeapFile) PageCount() int {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return len(hf.pageIDs)
}

// FreeSpace returns the free bytes the index holds for id.
func (hf *HeapFile) FreeSpace(id types.PageID) (int, bool) {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.fsi.FreeSpaceOf(id)
}

func (hf *HeapFile) OpenScans() int {
	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.openScans
}

// MaxRecordSize is the largest record Insert accepts for this file's page size.
func (hf *HeapFile) MaxRecordSize() int {
	return MaxRecordSize(hf.bp.PageSize())
}
