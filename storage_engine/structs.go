package storageengine

import (
	"HeapDB/config"
	heapfile "HeapDB/storage_engine/access/heapfile_manager"
	"HeapDB/storage_engine/bufferpool"
	diskmanager "HeapDB/storage_engine/disk_manager"
	"sync"

	"github.com/sirupsen/logrus"
)

type StorageEngine struct {
	BufferPool  *bufferpool.BufferPool
	DiskManager *diskmanager.DiskManager
	HeapManager *heapfile.HeapFileManager

	cfg    *config.Config
	closed bool
	mu     sync.Mutex
	log    *logrus.Entry
}

type EngineStats struct {
	Pool bufferpool.BufferPoolStats
	Disk diskmanager.DiskStats
}
