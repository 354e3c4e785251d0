package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

/*
Configuration of the storage engine.

A config file is either ini (heapdb.ini / heapdb.cnf) or toml (heapdb.toml), the format is
picked from the file extension. Both carry the same two sections:

	[storage]
	data_dir             = data
	db_file              = heap.db
	page_size            = 1024
	buffer_pool_size     = 64
	max_pages            = 65536
	checksums            = true
	directory_cache_size = 1024

	[log]
	level  = info
	format = text
	file   =
*/

var ErrInvalidConfig = errors.New("invalid configuration")

type StorageConfig struct {
	DataDir            string `ini:"data_dir" toml:"data_dir"`
	DBFile             string `ini:"db_file" toml:"db_file"`
	PageSize           int    `ini:"page_size" toml:"page_size"`
	BufferPoolSize     int    `ini:"buffer_pool_size" toml:"buffer_pool_size"`
	MaxPages           int64  `ini:"max_pages" toml:"max_pages"`
	Checksums          bool   `ini:"checksums" toml:"checksums"`
	DirectoryCacheSize int64  `ini:"directory_cache_size" toml:"directory_cache_size"`
}

type LogConfig struct {
	Level  string `ini:"level" toml:"level"`
	Format string `ini:"format" toml:"format"` // text | json
	File   string `ini:"file" toml:"file"`     // empty = stderr
}

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:            "data",
			DBFile:             "heap.db",
			PageSize:           1024,
			BufferPoolSize:     64,
			MaxPages:           65536,
			Checksums:          true,
			DirectoryCacheSize: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return nil, errors.Wrapf(err, "parse toml config %s", path)
		}
		applyToml(tree, cfg)
	case ".ini", ".cnf", ".conf":
		f, err := ini.Load(path)
		if err != nil {
			return nil, errors.Wrapf(err, "parse ini config %s", path)
		}
		if err := f.Section("storage").MapTo(&cfg.Storage); err != nil {
			return nil, errors.Wrap(err, "map [storage] section")
		}
		if err := f.Section("log").MapTo(&cfg.Log); err != nil {
			return nil, errors.Wrap(err, "map [log] section")
		}
	default:
		return nil, errors.Wrapf(ErrInvalidConfig, "unsupported config format %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyToml copies the keys present in tree over cfg, missing keys keep their defaults.
func applyToml(tree *toml.Tree, cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := tree.Get(key).(string); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int64) {
		if v, ok := tree.Get(key).(int64); ok {
			*dst = v
		}
	}
	small := func(key string, dst *int) {
		if v, ok := tree.Get(key).(int64); ok {
			*dst = int(v)
		}
	}

	str("storage.data_dir", &cfg.Storage.DataDir)
	str("storage.db_file", &cfg.Storage.DBFile)
	small("storage.page_size", &cfg.Storage.PageSize)
	small("storage.buffer_pool_size", &cfg.Storage.BufferPoolSize)
	num("storage.max_pages", &cfg.Storage.MaxPages)
	num("storage.directory_cache_size", &cfg.Storage.DirectoryCacheSize)
	if v, ok := tree.Get("storage.checksums").(bool); ok {
		cfg.Storage.Checksums = v
	}

	str("log.level", &cfg.Log.Level)
	str("log.format", &cfg.Log.Format)
	str("log.file", &cfg.Log.File)
}

func (c *Config) Validate() error {
	s := c.Storage
	if s.PageSize < 256 || s.PageSize > 32768 || s.PageSize&(s.PageSize-1) != 0 {
		return errors.Wrapf(ErrInvalidConfig, "page_size %d must be a power of two in [256, 32768]", s.PageSize)
	}
	if s.BufferPoolSize < 1 {
		return errors.Wrapf(ErrInvalidConfig, "buffer_pool_size %d must be at least 1", s.BufferPoolSize)
	}
	if s.MaxPages < 2 {
		return errors.Wrapf(ErrInvalidConfig, "max_pages %d must be at least 2", s.MaxPages)
	}
	if s.DBFile == "" {
		return errors.Wrap(ErrInvalidConfig, "db_file must not be empty")
	}
	if s.DirectoryCacheSize < 1 {
		return errors.Wrapf(ErrInvalidConfig, "directory_cache_size %d must be at least 1", s.DirectoryCacheSize)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return errors.Wrapf(ErrInvalidConfig, "log format %q", c.Log.Format)
	}
	return nil
}

// DBPath is the database file location inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.DBFile)
}
