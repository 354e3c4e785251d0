package logger

import (
	"os"
	"path/filepath"
	"testing"

	"HeapDB/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "heapdb.log")
	require.NoError(t, Init(config.LogConfig{Level: "debug", Format: "json", File: path}))
	defer Init(config.LogConfig{})

	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())
	WithComponent("test").Debug("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init(config.LogConfig{Level: "loud"}))
}
