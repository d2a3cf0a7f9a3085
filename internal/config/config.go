// Package config provides the benchmark run configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/arkilian/readbench/internal/dfs"
	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/internal/hints"
	"github.com/arkilian/readbench/internal/report"
	"github.com/arkilian/readbench/internal/storage"
	"github.com/arkilian/readbench/internal/touch"
	"github.com/arkilian/readbench/pkg/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "READBENCH_"

// Config holds the configuration of one benchmark run.
// It is built once, validated, and not mutated while the run is in progress.
type Config struct {
	// Type is the backend to read through: hdfs, file_mmap, file_read
	Type types.BackendKind `json:"type" yaml:"type" toml:"type"`

	// File is the path to read (a DFS path for hdfs, a local path otherwise)
	File string `json:"file" yaml:"file" toml:"file"`

	// BufferSize is the size of each read request in bytes
	BufferSize int `json:"buffer_size" yaml:"buffer_size" toml:"buffer_size"`

	// Workers is the number of concurrent readers, one per extent
	Workers int `json:"workers" yaml:"workers" toml:"workers"`

	// Read selects the DFS read mode
	Read ReadConfig `json:"read" yaml:"read" toml:"read"`

	// Hints configures the optional OS performance hints
	Hints HintsConfig `json:"hints" yaml:"hints" toml:"hints"`

	// FlushCommand is run through the shell before timing starts (empty = no flush)
	FlushCommand string `json:"flush_command" yaml:"flush_command" toml:"flush_command"`

	// Touch selects how delivered bytes are consumed: sum, murmur3
	Touch touch.Mode `json:"touch" yaml:"touch" toml:"touch"`

	// Unit is the throughput unit in the report: B, KB, MB, GB
	Unit report.Unit `json:"unit" yaml:"unit" toml:"unit"`

	// DFS holds the filesystem connection settings for the hdfs backend
	DFS dfs.Options `json:"dfs" yaml:"dfs" toml:"dfs"`
}

// ReadConfig holds the DFS read mode selection.
type ReadConfig struct {
	// ForceStandard skips zero-copy reads entirely
	ForceStandard bool `json:"force_standard" yaml:"force_standard" toml:"force_standard"`

	// UsePread reads with positioned reads on one shared handle
	UsePread bool `json:"use_pread" yaml:"use_pread" toml:"use_pread"`
}

// HintsConfig holds the OS performance hint flags.
type HintsConfig struct {
	// AdviseSequential declares a sequential access pattern
	AdviseSequential bool `json:"advise_sequential" yaml:"advise_sequential" toml:"advise_sequential"`

	// AdviseWillNeed asks the kernel to prefetch the file
	AdviseWillNeed bool `json:"advise_willneed" yaml:"advise_willneed" toml:"advise_willneed"`

	// ReadAhead populates the page cache before reading
	ReadAhead bool `json:"readahead" yaml:"readahead" toml:"readahead"`

	// IOPriority raises the process I/O priority
	IOPriority bool `json:"ioprio" yaml:"ioprio" toml:"ioprio"`
}

// DefaultConfig returns the default configuration. Type and File have no
// default and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 4096,
		Workers:    1,
		Touch:      touch.ModeSum,
		Unit:       report.UnitMB,
		DFS: dfs.Options{
			Driver: "local",
			Region: "us-east-1",
		},
	}
}

// Resolve fills in values derived from other settings.
func (c *Config) Resolve() {
	if c.Touch == "" {
		c.Touch = touch.ModeSum
	}
	if c.Unit == "" {
		c.Unit = report.UnitMB
	}
	c.Unit = report.Unit(strings.ToUpper(string(c.Unit)))
	if c.DFS.Driver == "" {
		c.DFS.Driver = "local"
	}
	if c.File != "" && c.Type != types.BackendHDFS {
		c.File = filepath.Clean(c.File)
	}
}

// Validate validates the configuration. Every failure is a ConfigError.
func (c *Config) Validate() error {
	if c.Type == "" {
		return benchErrors.NewConfigError(benchErrors.CodeMissingArgument,
			"backend type is required (hdfs, file_mmap or file_read)")
	}
	if _, err := types.ParseBackendKind(string(c.Type)); err != nil {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidArgument, err.Error())
	}

	if c.File == "" {
		return benchErrors.NewConfigError(benchErrors.CodeMissingArgument, "file path is required")
	}

	if c.BufferSize <= 0 {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidArgument,
			fmt.Sprintf("buffer size must be positive, got %d", c.BufferSize))
	}

	if c.Workers < 1 {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidArgument,
			fmt.Sprintf("workers must be at least 1, got %d", c.Workers))
	}

	if c.Hints.AdviseSequential && c.Hints.AdviseWillNeed {
		return benchErrors.NewConfigError(benchErrors.CodeConflictingFlags,
			"advise-sequential and advise-willneed are mutually exclusive")
	}

	if _, err := touch.ParseMode(string(c.Touch)); err != nil {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidArgument, err.Error())
	}

	if _, err := report.ParseUnit(string(c.Unit)); err != nil {
		return benchErrors.NewConfigError(benchErrors.CodeInvalidArgument, err.Error())
	}

	if c.Type == types.BackendHDFS {
		if c.DFS.Driver == "s3" && c.DFS.Bucket == "" {
			return benchErrors.NewConfigError(benchErrors.CodeMissingArgument,
				"dfs.bucket is required when the dfs driver is s3")
		}
		if c.DFS.Port < 0 || c.DFS.Port > 65535 {
			return benchErrors.NewConfigError(benchErrors.CodeInvalidArgument,
				fmt.Sprintf("dfs port out of range: %d", c.DFS.Port))
		}
		return nil
	}

	// Local backends: the file must be a readable regular file.
	f, err := os.Open(c.File)
	if err != nil {
		return benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeUnreadablePath,
			fmt.Sprintf("file %s is not readable", c.File), err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeUnreadablePath,
			fmt.Sprintf("file %s cannot be stat'ed", c.File), err)
	}
	if info.IsDir() {
		return benchErrors.NewConfigError(benchErrors.CodeUnreadablePath,
			fmt.Sprintf("file %s is a directory", c.File))
	}

	return nil
}

// HintOptions returns the hints to apply after open.
func (c *Config) HintOptions() hints.Options {
	return hints.Options{
		AdviseSequential: c.Hints.AdviseSequential,
		AdviseWillNeed:   c.Hints.AdviseWillNeed,
		ReadAhead:        c.Hints.ReadAhead,
		IOPriority:       c.Hints.IOPriority,
	}
}

// StorageOptions returns the backend construction options for this run.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		BufferSize:    c.BufferSize,
		ForceStandard: c.Read.ForceStandard,
		UsePread:      c.Read.UsePread,
		DFS:           c.DFS,
	}
}

// LoadFromFile loads configuration from a YAML, JSON or TOML file on top of
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeInvalidConfigFile,
			"failed to read config file", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfigFile,
			fmt.Sprintf("unsupported config file format: %s", ext))
	}
	if err != nil {
		return nil, benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeInvalidConfigFile,
			fmt.Sprintf("failed to parse %s config", strings.TrimPrefix(ext, ".")), err)
	}

	return cfg, nil
}

// LoadFromEnv applies READBENCH_* environment overrides. Malformed numbers
// and booleans are ignored.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "TYPE"); v != "" {
		cfg.Type = types.BackendKind(v)
	}
	if v := os.Getenv(EnvPrefix + "FILE"); v != "" {
		cfg.File = v
	}
	envInt(EnvPrefix+"BUFFER_SIZE", &cfg.BufferSize)
	envInt(EnvPrefix+"WORKERS", &cfg.Workers)

	// Read mode
	envBool(EnvPrefix+"FORCE_HDFS_STANDARD", &cfg.Read.ForceStandard)
	envBool(EnvPrefix+"USE_HDFS_PREAD", &cfg.Read.UsePread)

	// Hints
	envBool(EnvPrefix+"ADVISE_SEQUENTIAL", &cfg.Hints.AdviseSequential)
	envBool(EnvPrefix+"ADVISE_WILLNEED", &cfg.Hints.AdviseWillNeed)
	envBool(EnvPrefix+"USE_READAHEAD", &cfg.Hints.ReadAhead)
	envBool(EnvPrefix+"USE_IOPRIO", &cfg.Hints.IOPriority)

	if v := os.Getenv(EnvPrefix + "FLUSH_CACHE"); v != "" {
		cfg.FlushCommand = v
	}
	if v := os.Getenv(EnvPrefix + "TOUCH"); v != "" {
		cfg.Touch = touch.Mode(v)
	}
	if v := os.Getenv(EnvPrefix + "UNIT"); v != "" {
		cfg.Unit = report.Unit(v)
	}

	// DFS connection
	if v := os.Getenv(EnvPrefix + "DFS_DRIVER"); v != "" {
		cfg.DFS.Driver = v
	}
	if v := os.Getenv(EnvPrefix + "DFS_HOST"); v != "" {
		cfg.DFS.Host = v
	}
	envInt(EnvPrefix+"DFS_PORT", &cfg.DFS.Port)
	if v := os.Getenv(EnvPrefix + "DFS_ROOT"); v != "" {
		cfg.DFS.Root = v
	}
	if v := os.Getenv(EnvPrefix + "DFS_BUCKET"); v != "" {
		cfg.DFS.Bucket = v
	}
	if v := os.Getenv(EnvPrefix + "DFS_REGION"); v != "" {
		cfg.DFS.Region = v
	}
	envBool(EnvPrefix+"DFS_PATH_STYLE", &cfg.DFS.UsePathStyle)
	envBool(EnvPrefix+"DFS_DISABLE_ZERO_COPY", &cfg.DFS.DisableZeroCopy)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
