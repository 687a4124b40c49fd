package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vimo-dev/akin/internal/apperr"
)

// Scope controls which pairs a comparison considers.
type Scope string

const (
	ScopeAll       Scope = "all"
	ScopeProject   Scope = "project"
	ScopeCrossOnly Scope = "cross"
)

// NotifyMode controls how the editor hook surfaces a duplicate finding.
type NotifyMode string

const (
	NotifyBlock NotifyMode = "block"
	NotifyUser  NotifyMode = "user"
)

// Config is akin's complete runtime configuration, the merged result of
// defaults, the user config file, the project's .akin.yaml, and AKIN_*
// environment variables.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Similarity  SimilarityConfig  `yaml:"similarity" json:"similarity"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Hook        HookConfig        `yaml:"hook" json:"hook"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
}

// PathsConfig configures which paths a scan walks and skips.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// SimilarityConfig configures the duplicate-detection thresholds.
// Every field here is also overridable via an AKIN_* environment variable -
// see applyEnvOverrides.
type SimilarityConfig struct {
	// Threshold is the minimum cosine similarity for two code units to be
	// reported as a duplicate pair. Range (0, 1]. Default 0.85.
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// MinLines is the minimum code-unit line count considered for
	// comparison; shorter units are skipped as too trivial to flag.
	MinLines int `yaml:"min_lines" json:"min_lines"`

	// Scope selects which pairs are considered: "all", "project", or "cross".
	Scope Scope `yaml:"scope" json:"scope"`

	// MaxResults caps how many similar units are returned per query.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// EmbeddingsConfig configures the embedding provider used to vectorize
// extracted code units.
type EmbeddingsConfig struct {
	Model      string `yaml:"model" json:"model"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	TimeoutSec int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// HookConfig configures the real-time editor hook.
type HookConfig struct {
	Notify NotifyMode `yaml:"notify" json:"notify"`
}

// PerformanceConfig tunes resource usage for indexing and search.
type PerformanceConfig struct {
	IndexWorkers  int `yaml:"index_workers" json:"index_workers"`
	SQLiteCacheMB int `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
	HNSWEfSearch  int `yaml:"hnsw_ef_search" json:"hnsw_ef_search"`
}

// ServerConfig configures ambient process behavior.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// defaultExcludePatterns lists directories never worth scanning for
// duplicate-candidate code.
var defaultExcludePatterns = []string{
	".git", "node_modules", "target", "dist", "build", "vendor",
	".akin", "__pycache__", ".venv",
}

// NewConfig returns a Config populated with akin's hardcoded defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: nil,
			Exclude: append([]string(nil), defaultExcludePatterns...),
		},
		Similarity: SimilarityConfig{
			Threshold:  0.85,
			MinLines:   5,
			Scope:      ScopeAll,
			MaxResults: 3,
		},
		Embeddings: EmbeddingsConfig{
			Model:      "bge-m3",
			BaseURL:    "http://localhost:11434",
			Dimensions: 1024,
			BatchSize:  32,
			TimeoutSec: 60,
		},
		Hook: HookConfig{
			Notify: NotifyBlock,
		},
		Performance: PerformanceConfig{
			IndexWorkers:  runtime.NumCPU(),
			SQLiteCacheMB: 64,
			HNSWEfSearch:  64,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/akin/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/akin/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "akin", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "akin", "config.yaml")
	}
	return filepath.Join(home, ".config", "akin", "config.yaml")
}

// DefaultDataDir returns akin's default data directory, `<home>/.vimo/akin`.
// The relational DB and vector index live here by default, shared across
// every indexed project. Falls back to the temp directory if the home
// directory is unavailable.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".vimo", "akin")
	}
	return filepath.Join(home, ".vimo", "akin")
}

// DefaultDBPath returns the default relational-store/vector-index base
// path, `<home>/.vimo/akin/akin.db` (the vector index is persisted
// alongside it as `akin.db.hnsw`).
func DefaultDBPath() string {
	return filepath.Join(DefaultDataDir(), "akin.db")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns a nil config and nil error if the file doesn't exist - that's fine.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, apperr.New(apperr.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to load user config from %s", configPath), err)
	}
	return cfg, nil
}

// Load loads configuration for the project rooted at dir, applying overrides
// in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/akin/config.yaml)
//  3. Project config (.akin.yaml in dir)
//  4. Environment variables (AKIN_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeConfigInvalid, err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .akin.yaml or .akin.yml
// in dir. Absence of either file is not an error; defaults apply.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".akin.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, ".akin.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.New(apperr.ErrCodeFileNotFound, fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return apperr.New(apperr.ErrCodeConfigInvalid, fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Zero values are
// indistinguishable from "not set" in YAML, so only non-zero overrides win.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Similarity.Threshold != 0 {
		c.Similarity.Threshold = other.Similarity.Threshold
	}
	if other.Similarity.MinLines != 0 {
		c.Similarity.MinLines = other.Similarity.MinLines
	}
	if other.Similarity.Scope != "" {
		c.Similarity.Scope = other.Similarity.Scope
	}
	if other.Similarity.MaxResults != 0 {
		c.Similarity.MaxResults = other.Similarity.MaxResults
	}

	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.BaseURL != "" {
		c.Embeddings.BaseURL = other.Embeddings.BaseURL
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.TimeoutSec != 0 {
		c.Embeddings.TimeoutSec = other.Embeddings.TimeoutSec
	}

	if other.Hook.Notify != "" {
		c.Hook.Notify = other.Hook.Notify
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.SQLiteCacheMB != 0 {
		c.Performance.SQLiteCacheMB = other.Performance.SQLiteCacheMB
	}
	if other.Performance.HNSWEfSearch != 0 {
		c.Performance.HNSWEfSearch = other.Performance.HNSWEfSearch
	}

	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies AKIN_* environment variable overrides, the
// highest-precedence layer of configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AKIN_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			c.Similarity.Threshold = f
		}
	}
	if v := os.Getenv("AKIN_MIN_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Similarity.MinLines = n
		}
	}
	if v := os.Getenv("AKIN_SCOPE"); v != "" {
		c.Similarity.Scope = Scope(strings.ToLower(v))
	}
	if v := os.Getenv("AKIN_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Similarity.MaxResults = n
		}
	}
	if v := os.Getenv("AKIN_NOTIFY"); v != "" {
		c.Hook.Notify = NotifyMode(strings.ToLower(v))
	}
	if v := os.Getenv("AKIN_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("AKIN_EMBED_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("AKIN_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate checks the final, merged configuration for invalid values.
func (c *Config) Validate() error {
	if c.Similarity.Threshold <= 0 || c.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity.threshold must be in (0, 1], got %f", c.Similarity.Threshold)
	}
	if c.Similarity.MinLines < 0 {
		return fmt.Errorf("similarity.min_lines must be non-negative, got %d", c.Similarity.MinLines)
	}
	if c.Similarity.MaxResults <= 0 {
		return fmt.Errorf("similarity.max_results must be positive, got %d", c.Similarity.MaxResults)
	}

	validScopes := map[Scope]bool{ScopeAll: true, ScopeProject: true, ScopeCrossOnly: true}
	if !validScopes[c.Similarity.Scope] {
		return fmt.Errorf("similarity.scope must be 'all', 'project', or 'cross', got %s", c.Similarity.Scope)
	}

	validNotify := map[NotifyMode]bool{NotifyBlock: true, NotifyUser: true}
	if !validNotify[c.Hook.Notify] {
		return fmt.Errorf("hook.notify must be 'block' or 'user', got %s", c.Hook.Notify)
	}

	if c.Embeddings.Model == "" {
		return fmt.Errorf("embeddings.model must not be empty")
	}
	if c.Embeddings.BaseURL == "" {
		return fmt.Errorf("embeddings.base_url must not be empty")
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return apperr.New(apperr.ErrCodeConfigInvalid, "failed to marshal config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.New(apperr.ErrCodeFileNotFound, "failed to write config file", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for a .git directory or an
// .akin.yaml/.yml marker file, returning the first directory found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".akin.yaml")) ||
			fileExists(filepath.Join(currentDir, ".akin.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
