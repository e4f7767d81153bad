// Package config provides configuration management for recall.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/recall/internal/extract"
)

const (
	// DefaultWorkerPort is the default HTTP port for the worker service.
	DefaultWorkerPort = 37790

	// DefaultAlgorithm is the scheduling algorithm used when none is configured.
	DefaultAlgorithm = "Leitner"

	// DefaultStorageKey is the key the aggregate review state is stored under.
	DefaultStorageKey = "tracked_files.json"

	// DefaultMaxNewPerDay caps daily new-item admissions.
	DefaultMaxNewPerDay = 20
)

// Storage backends accepted in StorageConfig.Backend.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendBadger   = "badger"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("config: invalid")

// Duration is a time.Duration that reads "2s"-style strings or plain seconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %s", data)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend string `json:"backend"`
	// Path is the file or directory for file, sqlite and badger backends.
	// Empty uses a backend-specific location in the data directory.
	Path string `json:"path,omitempty"`
	// DSN is the PostgreSQL connection string.
	DSN string `json:"dsn,omitempty"`
	// Addr is the redis address (host:port).
	Addr string `json:"addr,omitempty"`
	Key  string `json:"key"`
}

// Config holds the application configuration.
type Config struct {
	DataDir string `json:"data_dir"`

	// Review settings
	MaxNewPerDay      int             `json:"max_new_per_day"` // -1 = unlimited
	RepeatItems       bool            `json:"repeat_items"`
	ShuffleQueue      bool            `json:"shuffle_queue"`
	Algorithm         string          `json:"algorithm"`
	AlgorithmSettings json.RawMessage `json:"algorithm_settings,omitempty"`

	Storage StorageConfig `json:"storage"`

	// Vault settings
	VaultRoot        string         `json:"vault_root"`
	ExistenceTimeout Duration       `json:"existence_timeout"`
	CheckConcurrency int            `json:"check_concurrency"`
	Selectors        []extract.Spec `json:"selectors,omitempty"`

	// Worker settings
	SnapshotInterval Duration `json:"snapshot_interval"`
	WorkerPort       int      `json:"worker_port"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DataDir returns the data directory path (~/.recall, or RECALL_DATA_DIR).
func DataDir() string {
	if dir := os.Getenv("RECALL_DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".recall")
}

// SettingsPath returns the settings file path. RECALL_CONFIG takes precedence;
// otherwise settings.json is preferred over settings.yaml in the data directory.
func SettingsPath() string {
	if p := os.Getenv("RECALL_CONFIG"); p != "" {
		return p
	}
	jsonPath := filepath.Join(DataDir(), "settings.json")
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}
	yamlPath := filepath.Join(DataDir(), "settings.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	return jsonPath
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings creates a default settings file if it doesn't exist.
func EnsureSettings() error {
	path := SettingsPath()

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaultSettings := `{
  "max_new_per_day": 20,
  "repeat_items": true,
  "shuffle_queue": false,
  "algorithm": "Leitner",
  "storage": {"backend": "file", "key": "tracked_files.json"},
  "worker_port": 37790
}
`
	return os.WriteFile(path, []byte(defaultSettings), 0600)
}

// EnsureAll ensures all required directories and files exist.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	if err := EnsureSettings(); err != nil {
		return err
	}
	return nil
}

// Default returns a Config with default values.
func Default() *Config {
	wd, _ := os.Getwd()
	return &Config{
		DataDir:      DataDir(),
		MaxNewPerDay: DefaultMaxNewPerDay,
		RepeatItems:  true,
		ShuffleQueue: false,
		Algorithm:    DefaultAlgorithm,
		Storage: StorageConfig{
			Backend: BackendFile,
			Key:     DefaultStorageKey,
		},
		VaultRoot:        wd,
		ExistenceTimeout: Duration(2 * time.Second),
		CheckConcurrency: 16,
		SnapshotInterval: Duration(5 * time.Minute),
		WorkerPort:       DefaultWorkerPort,
	}
}

// Load loads configuration from the settings file, merging with defaults,
// then applies environment overrides and validates the result.
func Load() (*Config, error) {
	return LoadFile(SettingsPath())
}

// LoadFile is Load with an explicit settings path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode merges data over cfg. YAML is converted to JSON first so that both
// formats share one set of field names and decoders.
func decode(path string, data []byte, cfg *Config) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return err
		}
		if tree == nil {
			return nil
		}
		converted, err := json.Marshal(tree)
		if err != nil {
			return err
		}
		data = converted
	}
	return json.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RECALL_WORKER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.WorkerPort = p
		}
	}
	if v := os.Getenv("RECALL_STORAGE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("RECALL_MAX_NEW_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxNewPerDay = n
		}
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxNewPerDay < -1 {
		errs = append(errs, fmt.Errorf("max_new_per_day must be -1 or greater, got %d", c.MaxNewPerDay))
	}
	if c.Algorithm == "" {
		errs = append(errs, errors.New("algorithm must not be empty"))
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendBadger:
	case BackendPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	case BackendRedis:
		if c.Storage.Addr == "" {
			errs = append(errs, errors.New("storage.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Storage.Key == "" {
		errs = append(errs, errors.New("storage.key must not be empty"))
	}
	if c.CheckConcurrency < 1 {
		errs = append(errs, fmt.Errorf("check_concurrency must be positive, got %d", c.CheckConcurrency))
	}
	if c.SnapshotInterval.Std() <= 0 {
		errs = append(errs, errors.New("snapshot_interval must be positive"))
	}
	if c.WorkerPort <= 0 || c.WorkerPort > 65535 {
		errs = append(errs, fmt.Errorf("worker_port out of range: %d", c.WorkerPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})

	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// GetWorkerPort returns the worker port from environment or config.
func GetWorkerPort() int {
	if port := os.Getenv("RECALL_WORKER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			return p
		}
	}
	return Get().WorkerPort
}
