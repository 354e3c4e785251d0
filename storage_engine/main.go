package storageengine

import (
	"HeapDB/config"
	"HeapDB/logger"
	heapfile "HeapDB/storage_engine/access/heapfile_manager"
	"HeapDB/storage_engine/bufferpool"
	diskmanager "HeapDB/storage_engine/disk_manager"
	"sort"

	"github.com/pkg/errors"
)

/*
The main file of storage engine, it wires the layers together:

	config -> DiskManager (database file, directory) -> BufferPool -> HeapFileManager

Tools and the REPL go through the engine so they share one pool and one set of heap file handles.
*/

var ErrEngineClosed = errors.New("storage engine is closed")

func NewStorageEngine(cfg *config.Config) (*StorageEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := diskmanager.Options{
		PageSize:           cfg.Storage.PageSize,
		MaxPages:           cfg.Storage.MaxPages,
		Checksums:          cfg.Storage.Checksums,
		DirectoryCacheSize: cfg.Storage.DirectoryCacheSize,
	}
	dm, err := diskmanager.NewDiskManager(cfg.DBPath(), opts)
	if err != nil {
		return nil, errors.Wrap(err, "init disk manager")
	}

	bp := bufferpool.NewBufferPool(cfg.Storage.BufferPoolSize, dm)
	se := &StorageEngine{
		BufferPool:  bp,
		DiskManager: dm,
		HeapManager: heapfile.NewHeapFileManager(bp, dm),
		cfg:         cfg,
		log:         logger.WithComponent("storage_engine"),
	}
	se.log.WithField("db", cfg.DBPath()).
		WithField("page_size", cfg.Storage.PageSize).
		WithField("frames", cfg.Storage.BufferPoolSize).
		Info("storage engine started")
	return se, nil
}

func (se *StorageEngine) Config() *config.Config {
	return se.cfg
}

// Open returns the heap file called name, creating it if needed.
func (se *StorageEngine) Open(name string) (*heapfile.HeapFile, error) {
	if err := se.checkOpen(); err != nil {
		return nil, err
	}
	return se.HeapManager.Open(name)
}

func (se *StorageEngine) CreateTemp() (*heapfile.HeapFile, error) {
	if err := se.checkOpen(); err != nil {
		return nil, err
	}
	return se.HeapManager.CreateTemp(), nil
}

func (se *StorageEngine) Drop(name string) error {
	if err := se.checkOpen(); err != nil {
		return err
	}
	return se.HeapManager.Drop(name)
}

// Files lists the named heap files in the directory, sorted by name.
func (se *StorageEngine) Files() ([]string, error) {
	if err := se.checkOpen(); err != nil {
		return nil, err
	}
	entries, err := se.DiskManager.FileEntries()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (se *StorageEngine) Stats() EngineStats {
	return EngineStats{
		Pool: se.BufferPool.GetStats(),
		Disk: se.DiskManager.GetStats(),
	}
}

// Close removes temporary files, flushes the pool and closes the database file.
// Every step runs even if an earlier one fails; the first error is returned.
func (se *StorageEngine) Close() error {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return nil
	}
	se.closed = true

	var firstErr error
	keep := func(err error, what string) {
		if err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, what)
		}
	}
	keep(se.HeapManager.Close(), "close heap files")
	keep(se.BufferPool.FlushAllPages(), "flush buffer pool")
	keep(se.DiskManager.Close(), "close disk manager")

	se.log.Info("storage engine stopped")
	return firstErr
}

func (se *StorageEngine) checkOpen() error {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return ErrEngineClosed
	}
	return nil
}
