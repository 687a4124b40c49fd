package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Default configuration tests
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, 0.85, cfg.Similarity.Threshold)
	assert.Equal(t, 5, cfg.Similarity.MinLines)
	assert.Equal(t, ScopeAll, cfg.Similarity.Scope)
	assert.Equal(t, 3, cfg.Similarity.MaxResults)

	assert.Equal(t, "bge-m3", cfg.Embeddings.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Embeddings.BaseURL)
	assert.Equal(t, 1024, cfg.Embeddings.Dimensions)

	assert.Equal(t, NotifyBlock, cfg.Hook.Notify)

	assert.Equal(t, runtime.NumCPU(), cfg.Performance.IndexWorkers)
	assert.Equal(t, "info", cfg.Server.LogLevel)

	assert.Contains(t, cfg.Paths.Exclude, "node_modules")
	assert.Contains(t, cfg.Paths.Exclude, ".git")
}

func TestConfig_VersionDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, NewConfig().Version)
}

// =============================================================================
// Configuration file loading tests
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 0.85, cfg.Similarity.Threshold)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := `
similarity:
  threshold: 0.92
  min_lines: 10
  scope: project
embeddings:
  model: nomic-embed-text
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".akin.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 0.92, cfg.Similarity.Threshold)
	assert.Equal(t, 10, cfg.Similarity.MinLines)
	assert.Equal(t, ScopeProject, cfg.Similarity.Scope)
	assert.Equal(t, "nomic-embed-text", cfg.Embeddings.Model)
}

func TestLoad_YMLFallback_UsedWhenYAMLAbsent(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".akin.yml"),
		[]byte("similarity:\n  max_results: 7\n"), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Similarity.MaxResults)
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".akin.yaml"),
		[]byte("similarity: [unterminated"), 0o644))

	_, err := Load(tmpDir)

	assert.Error(t, err)
}

// =============================================================================
// Environment variable override tests
// =============================================================================

func TestApplyEnvOverrides_OverridesWinOverFileAndDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".akin.yaml"),
		[]byte("similarity:\n  threshold: 0.70\n"), 0o644))

	t.Setenv("AKIN_THRESHOLD", "0.95")
	t.Setenv("AKIN_SCOPE", "cross")
	t.Setenv("AKIN_NOTIFY", "user")
	t.Setenv("AKIN_MODEL", "mxbai-embed-large")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 0.95, cfg.Similarity.Threshold)
	assert.Equal(t, ScopeCrossOnly, cfg.Similarity.Scope)
	assert.Equal(t, NotifyUser, cfg.Hook.Notify)
	assert.Equal(t, "mxbai-embed-large", cfg.Embeddings.Model)
}

func TestApplyEnvOverrides_IgnoresOutOfRangeThreshold(t *testing.T) {
	cfg := NewConfig()
	t.Setenv("AKIN_THRESHOLD", "1.5")

	cfg.applyEnvOverrides()

	assert.Equal(t, 0.85, cfg.Similarity.Threshold)
}

// =============================================================================
// Validation tests
// =============================================================================

func TestValidate_RejectsThresholdOutOfRange(t *testing.T) {
	cfg := NewConfig()
	cfg.Similarity.Threshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg.Similarity.Threshold = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownScope(t *testing.T) {
	cfg := NewConfig()
	cfg.Similarity.Scope = "nonsense"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownNotifyMode(t *testing.T) {
	cfg := NewConfig()
	cfg.Hook.Notify = "nonsense"
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, NewConfig().Validate())
}

// =============================================================================
// Path discovery tests
// =============================================================================

func TestGetUserConfigPath_HonorsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	assert.Equal(t, "/tmp/xdg-test/akin/config.yaml", GetUserConfigPath())
}

func TestFindProjectRoot_StopsAtGitDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)

	require.NoError(t, err)
	assert.Equal(t, root, found)
}
