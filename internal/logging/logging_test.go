package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONLogsToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "akin.log")

	logger, cleanup, err := Setup(Config{
		Level:         "debug",
		FilePath:      logPath,
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	})
	require.NoError(t, err)
	defer cleanup()

	logger.Info("indexed project", "units", 42)
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "indexed project")
	assert.Contains(t, string(data), "\"units\":42")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelFromString("debug").String())
	assert.Equal(t, "INFO", LevelFromString("info").String())
	assert.Equal(t, "WARN", LevelFromString("warn").String())
	assert.Equal(t, "ERROR", LevelFromString("error").String())
	assert.Equal(t, "INFO", LevelFromString("nonsense").String())
}

func TestDefaultLogPath_UnderHomeDotVimoAkin(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir available")
	}
	assert.Equal(t, filepath.Join(home, ".vimo", "akin", "logs", "akin.log"), DefaultLogPath())
}
