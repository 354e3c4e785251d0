package diskmanager

import (
	"HeapDB/types"
	"encoding/binary"

	"github.com/pkg/errors"
)

/*
The file directory maps heap file names to the id of their first page.
It is stored in directory pages chained from page 0:

	Offset  Size  Field
	──────────────────────────────────────
	0       1     PageType (PageTypeDirectory)
	1       8     NextDirPage int64, -1 = end of chain
	9       2     EntryCount  uint16
	11      64*n  entries
	──────────────────────────────────────

	entry:  NameLen uint8 | Name [55]byte | FirstPage int64

Directory pages are read and written directly, they never go through the buffer pool.
Lookups are served from a ristretto cache; add and delete keep it in step.
*/

const (
	dirOffType    = 0
	dirOffNext    = 1
	dirOffCount   = 9
	dirHeaderSize = 11

	dirEntrySize = 64
	MaxNameLen   = 55
)

func newDirectoryPage(pageSize int) []byte {
	buf := make([]byte, pageSize)
	buf[dirOffType] = byte(types.PageTypeDirectory)
	setDirNext(buf, types.InvalidPageID)
	return buf
}

func (dm *DiskManager) dirCapacity() int {
	return (dm.pageSize - dirHeaderSize) / dirEntrySize
}

func dirNext(buf []byte) types.PageID {
	return types.PageID(int64(binary.LittleEndian.Uint64(buf[dirOffNext:])))
}

func setDirNext(buf []byte, id types.PageID) {
	binary.LittleEndian.PutUint64(buf[dirOffNext:], uint64(id))
}

func dirCount(buf []byte) int {
	return int(binary.LittleEndian.Uint16(buf[dirOffCount:]))
}

func setDirCount(buf []byte, n int) {
	binary.LittleEndian.PutUint16(buf[dirOffCount:], uint16(n))
}

func dirEntry(buf []byte, i int) (string, types.PageID) {
	base := dirHeaderSize + i*dirEntrySize
	nameLen := int(buf[base])
	name := string(buf[base+1 : base+1+nameLen])
	id := types.PageID(int64(binary.LittleEndian.Uint64(buf[base+1+MaxNameLen:])))
	return name, id
}

func setDirEntry(buf []byte, i int, name string, id types.PageID) {
	base := dirHeaderSize + i*dirEntrySize
	entry := buf[base : base+dirEntrySize]
	clear(entry)
	entry[0] = byte(len(name))
	copy(entry[1:], name)
	binary.LittleEndian.PutUint64(entry[1+MaxNameLen:], uint64(id))
}

// walkDirectory calls fn for every directory page until fn returns true.
// buf is reused between calls.
func (dm *DiskManager) walkDirectory(fn func(id types.PageID, buf []byte) (bool, error)) error {
	buf := make([]byte, dm.pageSize)
	for id := types.PageID(0); id.IsValid(); id = dirNext(buf) {
		if err := dm.readPageLocked(id, buf); err != nil {
			return errors.Wrapf(err, "read directory page %d", id)
		}
		stop, err := fn(id, buf)
		if err != nil || stop {
			return err
		}
	}
	return nil
}

// GetFileEntry returns the first page of the named file, ok is false if there is no such file.
func (dm *DiskManager) GetFileEntry(name string) (types.PageID, bool, error) {
	if id, ok := dm.dirCache.Get(name); ok {
		return id, true, nil
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return types.InvalidPageID, false, ErrClosed
	}

	found := types.InvalidPageID
	err := dm.walkDirectory(func(_ types.PageID, buf []byte) (bool, error) {
		for i := 0; i < dirCount(buf); i++ {
			if n, id := dirEntry(buf, i); n == name {
				found = id
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return types.InvalidPageID, false, err
	}
	if !found.IsValid() {
		return types.InvalidPageID, false, nil
	}

	dm.dirCache.Set(name, found, 1)
	dm.dirCache.Wait()
	return found, true, nil
}

// AddFileEntry registers name -> first page. A full directory grows by one page.
func (dm *DiskManager) AddFileEntry(name string, first types.PageID) error {
	if len(name) == 0 || len(name) > MaxNameLen {
		return errors.Wrapf(ErrNameTooLong, "file name %q", name)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return ErrClosed
	}

	target := types.InvalidPageID
	var targetBuf []byte
	last := types.InvalidPageID
	var lastBuf []byte

	err := dm.walkDirectory(func(id types.PageID, buf []byte) (bool, error) {
		n := dirCount(buf)
		for i := 0; i < n; i++ {
			if existing, _ := dirEntry(buf, i); existing == name {
				return true, errors.Wrapf(ErrFileEntryExists, "file %q", name)
			}
		}
		if !target.IsValid() && n < dm.dirCapacity() {
			target = id
			targetBuf = append([]byte(nil), buf...)
		}
		last = id
		lastBuf = append(lastBuf[:0], buf...)
		return false, nil
	})
	if err != nil {
		return err
	}

	if !target.IsValid() {
		newID, err := dm.allocateLocked(1)
		if err != nil {
			return errors.Wrap(err, "grow file directory")
		}
		targetBuf = newDirectoryPage(dm.pageSize)
		if err := dm.writePageLocked(newID, targetBuf); err != nil {
			return err
		}
		setDirNext(lastBuf, newID)
		if err := dm.writePageLocked(last, lastBuf); err != nil {
			return errors.Wrapf(err, "link directory page %d", newID)
		}
		target = newID
	}

	n := dirCount(targetBuf)
	setDirEntry(targetBuf, n, name, first)
	setDirCount(targetBuf, n+1)
	if err := dm.writePageLocked(target, targetBuf); err != nil {
		return errors.Wrapf(err, "add file entry %q", name)
	}

	dm.dirCache.Set(name, first, 1)
	dm.dirCache.Wait()
	dm.log.WithField("file", name).WithField("first_page", first).Debug("ADD FILE ENTRY")
	return nil
}

// DeleteFileEntry removes name from the directory.
func (dm *DiskManager) DeleteFileEntry(name string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return ErrClosed
	}

	deleted := false
	err := dm.walkDirectory(func(id types.PageID, buf []byte) (bool, error) {
		n := dirCount(buf)
		for i := 0; i < n; i++ {
			if existing, _ := dirEntry(buf, i); existing != name {
				continue
			}
			// move the last entry of this page into the hole
			if i != n-1 {
				lastName, lastID := dirEntry(buf, n-1)
				setDirEntry(buf, i, lastName, lastID)
			}
			setDirEntry(buf, n-1, "", 0)
			setDirCount(buf, n-1)
			if err := dm.writePageLocked(id, buf); err != nil {
				return true, err
			}
			deleted = true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return errors.Wrapf(err, "delete file entry %q", name)
	}
	if !deleted {
		return errors.Wrapf(ErrFileEntryNotFound, "file %q", name)
	}

	dm.dirCache.Del(name)
	dm.log.WithField("file", name).Debug("DELETE FILE ENTRY")
	return nil
}

// FileEntries lists every directory entry, used by inspection tools.
func (dm *DiskManager) FileEntries() (map[string]types.PageID, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return nil, ErrClosed
	}

	entries := make(map[string]types.PageID)
	err := dm.walkDirectory(func(_ types.PageID, buf []byte) (bool, error) {
		for i := 0; i < dirCount(buf); i++ {
			name, id := dirEntry(buf, i)
			entries[name] = id
		}
		return false, nil
	})
	return entries, err
}
