// Dump a heap file to a stream file or load one back.
// Usage:
//
//	go run ./cmd/heapdump -mode dump -codec snappy -file students.hdmp students
//	go run ./cmd/heapdump -mode load -file students.hdmp students_copy
//
// The codec of a dump is recorded in its header, load does not need -codec.
package main

import (
	"HeapDB/config"
	"HeapDB/logger"
	storageengine "HeapDB/storage_engine"
	"HeapDB/storage_engine/export"
	"bufio"
	"flag"
	"fmt"
	"os"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.ini or .toml)")
	dataDir := flag.String("data", "", "override storage.data_dir")
	mode := flag.String("mode", "dump", "dump | load")
	codecName := flag.String("codec", "snappy", "none | snappy | lz4 (dump only)")
	path := flag.String("file", "", "dump file, default <name>.hdmp")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-mode dump|load] [-codec c] [-file f] <heap file>\n", os.Args[0])
		os.Exit(1)
	}
	name := flag.Arg(0)
	if *path == "" {
		*path = name + ".hdmp"
	}

	if err := run(*cfgPath, *dataDir, *mode, *codecName, *path, name); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, dataDir, mode, codecName, path, name string) error {
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

	switch mode {
	case "dump":
		codec, err := export.ParseCodec(codecName)
		if err != nil {
			return err
		}
		exists, err := se.HeapManager.Exists(name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("no heap file %q", name)
		}
		hf, err := se.Open(name)
		if err != nil {
			return err
		}

		f, err := os.Create(path)
		if err != nil {
			return err
		}
		w := bufio.NewWriter(f)
		n, err := export.Dump(w, hf, codec)
		if err == nil {
			err = w.Flush()
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Printf("dumped %d records from %s to %s (%s)\n", n, name, path, codec)

	case "load":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		hf, err := se.Open(name)
		if err != nil {
			return err
		}
		n, err := export.Load(bufio.NewReader(f), hf)
		if err != nil {
			return fmt.Errorf("after %d records: %w", n, err)
		}
		fmt.Printf("loaded %d records from %s into %s\n", n, path, name)

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	return nil
}
