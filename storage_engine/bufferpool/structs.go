package bufferpool

import (
	"HeapDB/storage_engine/page"
	"HeapDB/types"
	"sync"

	"github.com/sirupsen/logrus"
)

// ############################################# BUFFER POOL #############################################

// BufferPool is a fixed set of frames caching pages by id, with FIFO replacement
// among unpinned frames. Every heap page access goes through it.
type BufferPool struct {
	frames    []*page.Page         // created once, identity and bytes change on eviction
	pageTable map[types.PageID]int // pageID -> frame index
	replacer  *fifoReplacer
	spare     []byte // miss reads land here, then swap with the victim's buffer
	store     PageStore
	pageSize  int

	hits      uint64
	misses    uint64
	evictions uint64
	writes    uint64

	mu  sync.Mutex
	log *logrus.Entry
}

// BufferPoolStats is a snapshot of the pool.
type BufferPoolStats struct {
	Capacity  int // total frames
	Resident  int // frames holding a page
	Pinned    int
	Unpinned  int // frames with pin count 0, resident or not
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Writes    uint64
	HitRate   float64
}

// PageStore is the part of the disk manager the pool needs.
type PageStore interface {
	AllocatePages(count int) (types.PageID, error)
	DeallocatePages(first types.PageID, count int) error
	ReadPage(id types.PageID, buf []byte) error
	WritePage(id types.PageID, buf []byte) error
	PageSize() int
}
