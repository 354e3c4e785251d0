package diskmanager

import (
	"HeapDB/logger"
	"HeapDB/types"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
)

/*
This is main file for disk manager
It owns:
The database file descriptor (os.File)
Reading/writing whole pages at page-aligned offsets (ReadAt, WriteAt)
Page allocation in contiguous runs, tracked by the space map sidecar
The file directory that maps heap file names to their first page

On-disk layout of the database file:

	page i lives at offset i * stride
	stride = PageSize + 8 when checksums are on (xxhash64 trailer), PageSize otherwise

Page 0 is always allocated and is the head of the directory chain (see directory.go).
A page that was allocated but never written reads back as zeros.

The buffer pool calls the disk manager only on cache misses and dirty unpins / flushes.
*/

const checksumSize = 8

func NewDiskManager(path string, opts Options) (*DiskManager, error) {
	if opts.PageSize <= dirHeaderSize+dirEntrySize {
		return nil, errors.Wrapf(ErrInvalidPageSize, "page size %d too small", opts.PageSize)
	}
	if opts.MaxPages < 2 {
		return nil, errors.Wrapf(ErrOutOfSpace, "max pages %d", opts.MaxPages)
	}
	if opts.DirectoryCacheSize < 1 {
		opts.DirectoryCacheSize = DefaultOptions().DirectoryCacheSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", path)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open database file %s", path)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, types.PageID]{
		NumCounters: opts.DirectoryCacheSize * 10,
		MaxCost:     opts.DirectoryCacheSize,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "create directory cache")
	}

	stride := int64(opts.PageSize)
	if opts.Checksums {
		stride += checksumSize
	}

	dm := &DiskManager{
		path:         path,
		spaceMapPath: path + ".spacemap.toml",
		file:         file,
		pageSize:     opts.PageSize,
		stride:       stride,
		checksums:    opts.Checksums,
		maxPages:     opts.MaxPages,
		scratch:      make([]byte, stride),
		dirCache:     cache,
		log:          logger.WithComponent("diskmanager"),
	}

	if err := dm.bootstrap(); err != nil {
		cache.Close()
		file.Close()
		return nil, err
	}
	return dm, nil
}

// bootstrap loads the space map of an existing database or lays out a fresh one.
func (dm *DiskManager) bootstrap() error {
	sm, err := loadSpaceMap(dm.spaceMapPath)
	if err == nil {
		if sm.PageSize != int64(dm.pageSize) || sm.Checksums != dm.checksums {
			return errors.Wrapf(ErrFormatMismatch, "%s: page_size=%d checksums=%v", dm.path, sm.PageSize, sm.Checksums)
		}
		dm.allocated = sm.bitmap()
		dm.log.WithField("path", dm.path).WithField("pages", len(dm.allocated)).Info("opened database")
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	stat, err := dm.file.Stat()
	if err != nil {
		return errors.Wrap(err, "stat database file")
	}
	if stat.Size() > 0 {
		return errors.Errorf("database file %s has data but no space map %s", dm.path, dm.spaceMapPath)
	}

	dm.allocated = []bool{true} // directory head
	if err := dm.writePageLocked(0, newDirectoryPage(dm.pageSize)); err != nil {
		return err
	}
	if err := dm.persistSpaceMap(); err != nil {
		return err
	}
	dm.log.WithField("path", dm.path).Info("created database")
	return nil
}

func (dm *DiskManager) PageSize() int {
	return dm.pageSize
}

// AllocatePages reserves count contiguous pages and returns the first one.
// Freed runs are reused first-fit before the file grows.
func (dm *DiskManager) AllocatePages(count int) (types.PageID, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.allocateLocked(count)
}

func (dm *DiskManager) allocateLocked(count int) (types.PageID, error) {
	if dm.file == nil {
		return types.InvalidPageID, ErrClosed
	}
	if count < 1 {
		return types.InvalidPageID, errors.Wrapf(ErrInvalidRunSize, "allocate %d pages", count)
	}

	highWater := int64(len(dm.allocated))
	run := int64(0)
	start := int64(-1)
	for i := int64(1); i < highWater; i++ {
		if dm.allocated[i] {
			run = 0
			continue
		}
		run++
		if run == int64(count) {
			start = i - run + 1
			break
		}
	}

	if start < 0 {
		// extend the file, reusing the free tail if there is one
		start = highWater - run
		if start+int64(count) > dm.maxPages {
			return types.InvalidPageID, errors.Wrapf(ErrOutOfSpace, "allocate %d pages (max %d)", count, dm.maxPages)
		}
		for int64(len(dm.allocated)) < start+int64(count) {
			dm.allocated = append(dm.allocated, false)
		}
	}

	for i := start; i < start+int64(count); i++ {
		dm.allocated[i] = true
	}
	if err := dm.persistSpaceMap(); err != nil {
		for i := start; i < start+int64(count); i++ {
			dm.allocated[i] = false
		}
		dm.allocated = dm.allocated[:highWater]
		return types.InvalidPageID, err
	}

	dm.log.WithField("first", start).WithField("count", count).Debug("ALLOCATE")
	return types.PageID(start), nil
}

// DeallocatePages releases a run previously returned by AllocatePages.
func (dm *DiskManager) DeallocatePages(first types.PageID, count int) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return ErrClosed
	}
	if count < 1 {
		return errors.Wrapf(ErrInvalidRunSize, "deallocate %d pages", count)
	}
	for i := int64(first); i < int64(first)+int64(count); i++ {
		if i == 0 || !dm.isAllocated(types.PageID(i)) {
			return errors.Wrapf(ErrPageNotAllocated, "deallocate page %d", i)
		}
	}

	for i := int64(first); i < int64(first)+int64(count); i++ {
		dm.allocated[i] = false
	}
	if err := dm.persistSpaceMap(); err != nil {
		for i := int64(first); i < int64(first)+int64(count); i++ {
			dm.allocated[i] = true
		}
		return err
	}

	dm.log.WithField("first", first).WithField("count", count).Debug("DEALLOCATE")
	return nil
}

func (dm *DiskManager) DeallocatePage(id types.PageID) error {
	return dm.DeallocatePages(id, 1)
}

// ReadPage fills buf with the page contents.
func (dm *DiskManager) ReadPage(id types.PageID, buf []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return ErrClosed
	}
	if !dm.isAllocated(id) {
		return errors.Wrapf(ErrPageNotAllocated, "read page %d", id)
	}
	return dm.readPageLocked(id, buf)
}

func (dm *DiskManager) readPageLocked(id types.PageID, buf []byte) error {
	if len(buf) != dm.pageSize {
		return errors.Wrapf(ErrInvalidPageSize, "read page %d: buffer %d bytes, page %d", id, len(buf), dm.pageSize)
	}

	raw := dm.scratch
	n, err := dm.file.ReadAt(raw, int64(id)*dm.stride)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "read page %d", id)
	}
	// Pad with zeros if the page was never written
	clear(raw[n:])
	dm.reads++

	copy(buf, raw[:dm.pageSize])
	if !dm.checksums {
		return nil
	}

	stored := binary.LittleEndian.Uint64(raw[dm.pageSize:])
	if stored == 0 && isZero(buf) {
		return nil
	}
	if sum := xxhash.Sum64(buf); sum != stored {
		return errors.Wrapf(ErrChecksumMismatch, "page %d: stored %x computed %x", id, stored, sum)
	}
	return nil
}

// WritePage writes buf as the page contents.
func (dm *DiskManager) WritePage(id types.PageID, buf []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return ErrClosed
	}
	if !dm.isAllocated(id) {
		return errors.Wrapf(ErrPageNotAllocated, "write page %d", id)
	}
	return dm.writePageLocked(id, buf)
}

func (dm *DiskManager) writePageLocked(id types.PageID, buf []byte) error {
	if len(buf) != dm.pageSize {
		return errors.Wrapf(ErrInvalidPageSize, "write page %d: buffer %d bytes, page %d", id, len(buf), dm.pageSize)
	}

	raw := dm.scratch
	copy(raw, buf)
	if dm.checksums {
		binary.LittleEndian.PutUint64(raw[dm.pageSize:], xxhash.Sum64(buf))
	}

	if _, err := dm.file.WriteAt(raw, int64(id)*dm.stride); err != nil {
		return errors.Wrapf(err, "write page %d", id)
	}
	dm.writes++
	return nil
}

func (dm *DiskManager) isAllocated(id types.PageID) bool {
	return id >= 0 && int64(id) < int64(len(dm.allocated)) && dm.allocated[id]
}

func (dm *DiskManager) GetStats() DiskStats {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	stats := DiskStats{
		Reads:     dm.reads,
		Writes:    dm.writes,
		HighWater: int64(len(dm.allocated)),
	}
	for _, used := range dm.allocated {
		if used {
			stats.AllocatedPages++
		}
	}
	return stats
}

// Sync flushes the database file to stable storage
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return ErrClosed
	}
	if err := dm.file.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", dm.path)
	}
	return nil
}

// Close syncs and closes the database file. Closing twice is a no-op.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return nil
	}
	dm.dirCache.Close()

	var firstErr error
	if err := dm.file.Sync(); err != nil {
		firstErr = errors.Wrap(err, "sync before close")
	}
	if err := dm.file.Close(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "close database file")
	}
	dm.file = nil
	return firstErr
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
