// Seed program: creates heap files "students" and "courses" with sample records.
// Run: go run ./cmd/seed [-config heapdb.toml] [-data dir]
// Then inspect: go run ./cmd/inspect_heap students
package main

import (
	"HeapDB/config"
	"HeapDB/logger"
	storageengine "HeapDB/storage_engine"
	"flag"
	"fmt"
	"log"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.ini or .toml)")
	dataDir := flag.String("data", "", "override storage.data_dir")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	se, err := storageengine.NewStorageEngine(cfg)
	if err != nil {
		log.Fatalf("open storage engine: %v", err)
	}
	defer se.Close()

	seed := map[string][]string{
		"students": {"S001|Alice|20", "S002|Bob|21", "S003|Carol|19", "S004|Dave|22", "S005|Eve|20"},
		"courses":  {"CS101|Intro to CS", "CS201|Data Structures", "CS301|Databases"},
	}

	for _, name := range []string{"students", "courses"} {
		hf, err := se.Open(name)
		if err != nil {
			log.Fatalf("open %s: %v", name, err)
		}
		fmt.Printf("Seeding %s...\n", name)
		for _, row := range seed[name] {
			rid, err := hf.Insert([]byte(row))
			if err != nil {
				log.Fatalf("insert into %s: %v", name, err)
			}
			fmt.Printf("  %s  %s\n", rid, row)
		}
		fmt.Printf("  %d records on %d pages\n", hf.RecordCount(), hf.PageCount())
	}

	fmt.Printf("Done. Database: %s\n", cfg.DBPath())
}
