package main

import (
	"HeapDB/config"
	"HeapDB/logger"
	storageengine "HeapDB/storage_engine"
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.ini or .toml)")
	dataDir := flag.String("data", "", "override storage.data_dir")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatal(err)
	}

	se, err := storageengine.NewStorageEngine(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer se.Close()

	s := newSession(se, os.Stdout)
	fmt.Println(`HeapDB - type "help" for commands`)

	scanner := bufio.NewScanner(os.Stdin)
	// REPL
	for {
		fmt.Print(s.prompt())

		if !scanner.Scan() { // Ctrl+D pressed
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		quit, err := s.exec(line)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		if quit {
			break
		}
	}
}
