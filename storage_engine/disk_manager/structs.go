package diskmanager

import (
	"HeapDB/types"
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/sirupsen/logrus"
)

// ############################################# OPTIONS #############################################

type Options struct {
	PageSize           int
	MaxPages           int64 // hard limit on the number of pages in the database file
	Checksums          bool  // append an xxhash64 trailer to every page on disk
	DirectoryCacheSize int64 // max cached name -> first page lookups
}

func DefaultOptions() Options {
	return Options{
		PageSize:           types.DefaultPageSize,
		MaxPages:           65536,
		Checksums:          true,
		DirectoryCacheSize: 1024,
	}
}

// ############################################# DISK MANAGER #############################################

// DiskManager owns the database file: page allocation, whole-page I/O and the
// file directory (heap file name -> first page id).
type DiskManager struct {
	path         string
	spaceMapPath string
	file         *os.File

	pageSize  int
	stride    int64 // bytes per page on disk: pageSize plus the checksum trailer
	checksums bool
	maxPages  int64

	allocated []bool // page id -> in use; len is the high-water mark
	scratch   []byte // write buffer, one page plus trailer

	dirCache *ristretto.Cache[string, types.PageID]

	reads  uint64
	writes uint64

	mu  sync.Mutex
	log *logrus.Entry
}

type DiskStats struct {
	Reads          uint64
	Writes         uint64
	AllocatedPages int64
	HighWater      int64
}

// ############################################# SPACE MAP #############################################

// spaceMapFile is the toml sidecar that records which pages are in use.
type spaceMapFile struct {
	PageSize  int64     `toml:"page_size"`
	Checksums bool      `toml:"checksums"`
	HighWater int64     `toml:"high_water"`
	Runs      []pageRun `toml:"run"`
}

type pageRun struct {
	Start int64 `toml:"start"`
	Count int64 `toml:"count"`
}
