// Inspect heap files in a database.
// Usage: go run ./cmd/inspect_heap [-config heapdb.toml] [-data dir] [-records] [name]
// Without a name every file in the directory is summarized.
package main

import (
	"HeapDB/config"
	"HeapDB/logger"
	storageengine "HeapDB/storage_engine"
	heapfile "HeapDB/storage_engine/access/heapfile_manager"
	"HeapDB/types"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.ini or .toml)")
	dataDir := flag.String("data", "", "override storage.data_dir")
	showRecords := flag.Bool("records", false, "print every record")
	flag.Parse()

	if err := run(*cfgPath, *dataDir, flag.Arg(0), *showRecords); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, dataDir, name string, showRecords bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}

	se, err := storageengine.NewStorageEngine(cfg)
	if err != nil {
		return err
	}
	defer se.Close()

	if name == "" {
		return summarize(se)
	}

	exists, err := se.HeapManager.Exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("no heap file %q in %s", name, cfg.DBPath())
	}
	hf, err := se.Open(name)
	if err != nil {
		return err
	}
	return inspect(se, hf, showRecords)
}

func summarize(se *storageengine.StorageEngine) error {
	names, err := se.Files()
	if err != nil {
		return err
	}
	pageSize := se.BufferPool.PageSize()

	fmt.Printf("%-24s %8s %8s %12s\n", "FILE", "PAGES", "RECORDS", "SIZE")
	for _, name := range names {
		hf, err := se.Open(name)
		if err != nil {
			return err
		}
		size := uint64(hf.PageCount()) * uint64(pageSize)
		fmt.Printf("%-24s %8d %8d %12s\n", name, hf.PageCount(), hf.RecordCount(), humanize.IBytes(size))
	}

	disk := se.Stats().Disk
	fmt.Printf("\n%d pages allocated, high water %d, page size %s\n",
		disk.AllocatedPages, disk.HighWater, humanize.IBytes(uint64(pageSize)))
	return nil
}

func inspect(se *storageengine.StorageEngine, hf *heapfile.HeapFile, showRecords bool) error {
	fmt.Printf("Heap file %q: %d records on %d pages\n\n", hf.Name(), hf.RecordCount(), hf.PageCount())
	fmt.Printf("%8s %8s %8s %6s %6s %10s\n", "PAGE", "PREV", "NEXT", "SLOTS", "ROWS", "FREE")

	for _, id := range hf.PageIDs() {
		g, err := se.BufferPool.PinGuard(id, false)
		if err != nil {
			return err
		}
		pg := g.Page()
		fmt.Printf("%8d %8d %8d %6d %6d %10s\n", id, heapfile.GetPrevPage(pg), heapfile.GetNextPage(pg),
			heapfile.GetSlotCount(pg), heapfile.GetNumRows(pg), humanize.IBytes(uint64(heapfile.FreeSpace(pg))))
		if err := g.Release(); err != nil {
			return err
		}
	}

	if !showRecords {
		return nil
	}
	fmt.Println()
	return hf.ForEach(func(rid types.RID, rec []byte) error {
		fmt.Printf("%-10s %q\n", rid, rec)
		return nil
	})
}
