package heapfile

import (
	"HeapDB/logger"
	"HeapDB/storage_engine/bufferpool"
	"sort"

	"github.com/pkg/errors"
)

/*
This file is the start of the heapfile manager
It keeps one open HeapFile per name so every caller shares the same free space index
and record count, and it remembers temporary files so Close can remove them.

The manager knows the buffer pool (every page access) and the file directory (name -> first page).
*/

func NewHeapFileManager(bp *bufferpool.BufferPool, dir FileDirectory) *HeapFileManager {
	return &HeapFileManager{
		bp:    bp,
		dir:   dir,
		files: make(map[string]*HeapFile),
		temps: make(map[*HeapFile]struct{}),
		log:   logger.WithComponent("heapfile_manager"),
	}
}

// Open returns the shared handle for name, opening or creating the file on first use.
func (hfm *HeapFileManager) Open(name string) (*HeapFile, error) {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	if hf, ok := hfm.files[name]; ok && !hf.IsDeleted() {
		return hf, nil
	}
	hf, err := OpenHeapFile(hfm.bp, hfm.dir, name)
	if err != nil {
		return nil, err
	}
	hfm.files[name] = hf
	return hf, nil
}

// Exists reports whether the directory has an entry for name.
func (hfm *HeapFileManager) Exists(name string) (bool, error) {
	_, ok, err := hfm.dir.GetFileEntry(name)
	return ok, err
}

// CreateTemp returns a new temporary heap file owned by the manager until it is closed.
// Temporary files the caller already closed are forgotten here.
func (hfm *HeapFileManager) CreateTemp() *HeapFile {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	hfm.forgetDeletedTemps()
	hf := CreateTempHeapFile(hfm.bp)
	hfm.temps[hf] = struct{}{}
	return hf
}

func (hfm *HeapFileManager) forgetDeletedTemps() {
	for hf := range hfm.temps {
		if hf.IsDeleted() {
			delete(hfm.temps, hf)
		}
	}
}

// Drop deletes the named file and forgets its handle.
func (hfm *HeapFileManager) Drop(name string) error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	hf, ok := hfm.files[name]
	if !ok || hf.IsDeleted() {
		_, exists, err := hfm.dir.GetFileEntry(name)
		if err != nil {
			return errors.Wrapf(err, "drop heap file %q", name)
		}
		if !exists {
			return errors.Wrapf(ErrFileNotFound, "drop heap file %q", name)
		}
		if hf, err = OpenHeapFile(hfm.bp, hfm.dir, name); err != nil {
			return err
		}
	}

	if err := hf.DeleteFile(); err != nil {
		hfm.files[name] = hf
		return err
	}
	delete(hfm.files, name)
	return nil
}

// OpenFiles lists the names with an open handle.
func (hfm *HeapFileManager) OpenFiles() []string {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	names := make([]string, 0, len(hfm.files))
	for name, hf := range hfm.files {
		if !hf.IsDeleted() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Close deletes every temporary file still alive and drops all handles.
// It keeps going past failures and returns the first one.
func (hfm *HeapFileManager) Close() error {
	hfm.mu.Lock()
	defer hfm.mu.Unlock()

	hfm.forgetDeletedTemps()
	var firstErr error
	for hf := range hfm.temps {
		if err := hf.Close(); err != nil {
			hfm.log.WithError(err).Warn("could not delete temporary heap file")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	clear(hfm.temps)
	clear(hfm.files)
	return firstErr
}
