package heapfile

import (
	"HeapDB/types"
	"slices"
	"sort"
)

/*
FreeSpaceIndex answers "which page has the most free bytes" for the inserter.

Keys (free byte counts) are kept in a descending slice, each key owns a bucket of
page ids in the order they entered it. Max returns the first page of the largest bucket.
Every page of a heap file sits in exactly one bucket.
*/
type FreeSpaceIndex struct {
	keys     []int
	buckets  map[int][]types.PageID
	pageFree map[types.PageID]int
}

func NewFreeSpaceIndex() *FreeSpaceIndex {
	return &FreeSpaceIndex{
		buckets:  make(map[int][]types.PageID),
		pageFree: make(map[types.PageID]int),
	}
}

// Add indexes id under free; an already indexed page is moved.
func (f *FreeSpaceIndex) Add(id types.PageID, free int) {
	if _, ok := f.pageFree[id]; ok {
		f.Remove(id)
	}
	if _, ok := f.buckets[free]; !ok {
		i := sort.Search(len(f.keys), func(i int) bool { return f.keys[i] <= free })
		f.keys = slices.Insert(f.keys, i, free)
	}
	f.buckets[free] = append(f.buckets[free], id)
	f.pageFree[id] = free
}

// Update moves id to the bucket for free. Moving to the same key keeps its position.
func (f *FreeSpaceIndex) Update(id types.PageID, free int) {
	if old, ok := f.pageFree[id]; ok && old == free {
		return
	}
	f.Add(id, free)
}

func (f *FreeSpaceIndex) Remove(id types.PageID) {
	free, ok := f.pageFree[id]
	if !ok {
		return
	}
	delete(f.pageFree, id)

	bucket := f.buckets[free]
	if i := slices.Index(bucket, id); i >= 0 {
		bucket = slices.Delete(bucket, i, i+1)
	}
	if len(bucket) > 0 {
		f.buckets[free] = bucket
		return
	}
	delete(f.buckets, free)
	if i := slices.Index(f.keys, free); i >= 0 {
		f.keys = slices.Delete(f.keys, i, i+1)
	}
}

// Max returns the largest free count and the oldest page in its bucket.
func (f *FreeSpaceIndex) Max() (free int, id types.PageID, ok bool) {
	if len(f.keys) == 0 {
		return 0, types.InvalidPageID, false
	}
	free = f.keys[0]
	return free, f.buckets[free][0], true
}

func (f *FreeSpaceIndex) FreeSpaceOf(id types.PageID) (int, bool) {
	free, ok := f.pageFree[id]
	return free, ok
}

func (f *FreeSpaceIndex) Len() int {
	return len(f.pageFree)
}

func (f *FreeSpaceIndex) Clear() {
	f.keys = nil
	clear(f.buckets)
	clear(f.pageFree)
}
