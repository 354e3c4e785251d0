package heapfile

import (
	"HeapDB/storage_engine/bufferpool"
	"HeapDB/types"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileDirectory maps heap file names to their first page. The disk manager implements it.
type FileDirectory interface {
	GetFileEntry(name string) (types.PageID, bool, error)
	AddFileEntry(name string, first types.PageID) error
	DeleteFileEntry(name string) error
}

// HeapFile is an unordered collection of records stored in a doubly linked chain of heap pages.
// Named files are registered in the file directory; temporary files are not and are removed on Close.
type HeapFile struct {
	name string
	temp bool

	bp  *bufferpool.BufferPool
	dir FileDirectory // nil for temporary files

	pageIDs   []types.PageID // chain order, head first
	fsi       *FreeSpaceIndex
	recCount  int
	openScans int
	deleted   bool

	mu  sync.Mutex
	log *logrus.Entry
}

// HeapScan walks the records of a heap file page by page, holding at most one pin.
type HeapScan struct {
	hf      *HeapFile
	pageIDs []types.PageID // snapshot taken at open

	idx      int // index into pageIDs of the pinned page
	cur      *bufferpool.PageGuard
	nextSlot int
	hasNext  bool

	err        error // failure while moving past the last returned record
	registered bool  // counted in hf.openScans
	closed     bool
}

// HeapFileManager hands out one shared HeapFile per name and tracks temporary files.
type HeapFileManager struct {
	bp    *bufferpool.BufferPool
	dir   FileDirectory
	files map[string]*HeapFile
	temps map[*HeapFile]struct{}

	mu  sync.Mutex
	log *logrus.Entry
}
