// Package cli holds the command-line surface shared by the readbench binaries.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/arkilian/readbench/internal/config"
	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/internal/report"
	"github.com/arkilian/readbench/internal/touch"
	"github.com/arkilian/readbench/pkg/types"
)

// Flags holds the parsed command-line flags.
type Flags struct {
	ConfigFile string
	EnvFile    string

	Type       string
	File       string
	BufferSize int
	Workers    int

	ForceStandard bool
	UsePread      bool

	AdviseSequential bool
	AdviseWillNeed   bool
	ReadAhead        bool
	IOPriority       bool

	FlushCommand string
	Touch        string
	Unit         string

	DFSDriver          string
	DFSHost            string
	DFSPort            int
	DFSRoot            string
	DFSBucket          string
	DFSRegion          string
	DFSPathStyle       bool
	DFSDisableZeroCopy bool

	Quiet       bool
	ShowVersion bool
	ShowHelp    bool

	fs *pflag.FlagSet
}

// Register defines the flags on fs. withSizing adds --buffer and --workers;
// the sweep tool defines list forms of those itself.
func Register(fs *pflag.FlagSet, withSizing bool) *Flags {
	f := &Flags{fs: fs}
	def := config.DefaultConfig()

	fs.StringVar(&f.ConfigFile, "config", "", "Path to configuration file (YAML, JSON or TOML)")
	fs.StringVar(&f.EnvFile, "env-file", "", "Load environment variables from this file (default: .env if present)")

	fs.StringVarP(&f.Type, "type", "t", "", "Backend type: hdfs, file_mmap, file_read (required)")
	fs.StringVarP(&f.File, "file", "f", "", "Path of the file to read (required)")
	if withSizing {
		fs.IntVarP(&f.BufferSize, "buffer", "b", def.BufferSize, "Read request size in bytes")
		fs.IntVarP(&f.Workers, "workers", "w", def.Workers, "Number of concurrent readers")
	}

	fs.BoolVar(&f.ForceStandard, "force-hdfs-standard", false, "Never attempt zero-copy reads on hdfs")
	fs.BoolVar(&f.UsePread, "use-hdfs-pread", false, "Use positioned reads on one shared hdfs handle")

	fs.BoolVar(&f.AdviseSequential, "advise-sequential", false, "Declare a sequential access pattern")
	fs.BoolVar(&f.AdviseWillNeed, "advise-willneed", false, "Ask the kernel to prefetch the file")
	fs.BoolVar(&f.ReadAhead, "use-readahead", false, "Populate the page cache before reading")
	fs.BoolVar(&f.IOPriority, "use-ioprio", false, "Raise the process I/O priority")

	fs.StringVar(&f.FlushCommand, "flush-cache", "", "Shell command that drops the filesystem cache before timing")
	fs.StringVar(&f.Touch, "touch", string(def.Touch), "How to consume bytes: sum, murmur3 (prints a digest)")
	fs.StringVar(&f.Unit, "unit", string(def.Unit), "Throughput unit: B, KB, MB, GB")

	fs.StringVar(&f.DFSDriver, "dfs-driver", def.DFS.Driver, "DFS driver: local, s3")
	fs.StringVar(&f.DFSHost, "dfs-host", "", "DFS endpoint host")
	fs.IntVar(&f.DFSPort, "dfs-port", 0, "DFS endpoint port")
	fs.StringVar(&f.DFSRoot, "dfs-root", "", "Directory DFS paths are resolved against (local driver)")
	fs.StringVar(&f.DFSBucket, "dfs-bucket", "", "Bucket holding the file (s3 driver)")
	fs.StringVar(&f.DFSRegion, "dfs-region", def.DFS.Region, "Region of the bucket (s3 driver)")
	fs.BoolVar(&f.DFSPathStyle, "dfs-path-style", false, "Use path-style bucket addressing (s3 driver)")
	fs.BoolVar(&f.DFSDisableZeroCopy, "dfs-disable-zero-copy", false, "Make the DFS client report zero-copy as unsupported")

	fs.BoolVarP(&f.Quiet, "quiet", "q", false, "Do not print the startup banner")
	fs.BoolVar(&f.ShowVersion, "version", false, "Show version information")
	fs.BoolVarP(&f.ShowHelp, "help", "h", false, "Show help message")

	return f
}

// LoadConfig builds the configuration: defaults, then the config file, then
// the environment (including the env file), then flags the user set.
func (f *Flags) LoadConfig() (*config.Config, error) {
	if err := f.loadEnvFile(); err != nil {
		return nil, err
	}

	var cfg *config.Config
	var err error
	if f.ConfigFile != "" {
		cfg, err = config.LoadFromFile(f.ConfigFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)
	mapAWSCredentials()

	f.apply(cfg)
	return cfg, nil
}

func (f *Flags) loadEnvFile() error {
	if f.EnvFile != "" {
		if err := godotenv.Load(f.EnvFile); err != nil {
			return benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeInvalidConfigFile,
				fmt.Sprintf("failed to load env file %s", f.EnvFile), err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return benchErrors.Wrap(benchErrors.ErrCategoryConfig, benchErrors.CodeInvalidConfigFile,
			"failed to load .env", err)
	}
	return nil
}

// mapAWSCredentials lets READBENCH_AWS_* stand in for the standard AWS
// variables the s3 driver's credential chain reads.
func mapAWSCredentials() {
	for _, name := range []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN"} {
		if v := os.Getenv(config.EnvPrefix + name); v != "" && os.Getenv(name) == "" {
			os.Setenv(name, v)
		}
	}
}

func (f *Flags) apply(cfg *config.Config) {
	set := f.fs.Changed

	if set("type") {
		cfg.Type = types.BackendKind(f.Type)
	}
	if set("file") {
		cfg.File = f.File
	}
	if set("buffer") {
		cfg.BufferSize = f.BufferSize
	}
	if set("workers") {
		cfg.Workers = f.Workers
	}

	if set("force-hdfs-standard") {
		cfg.Read.ForceStandard = f.ForceStandard
	}
	if set("use-hdfs-pread") {
		cfg.Read.UsePread = f.UsePread
	}

	if set("advise-sequential") {
		cfg.Hints.AdviseSequential = f.AdviseSequential
	}
	if set("advise-willneed") {
		cfg.Hints.AdviseWillNeed = f.AdviseWillNeed
	}
	if set("use-readahead") {
		cfg.Hints.ReadAhead = f.ReadAhead
	}
	if set("use-ioprio") {
		cfg.Hints.IOPriority = f.IOPriority
	}

	if set("flush-cache") {
		cfg.FlushCommand = f.FlushCommand
	}
	if set("touch") {
		cfg.Touch = touch.Mode(f.Touch)
	}
	if set("unit") {
		cfg.Unit = report.Unit(f.Unit)
	}

	if set("dfs-driver") {
		cfg.DFS.Driver = f.DFSDriver
	}
	if set("dfs-host") {
		cfg.DFS.Host = f.DFSHost
	}
	if set("dfs-port") {
		cfg.DFS.Port = f.DFSPort
	}
	if set("dfs-root") {
		cfg.DFS.Root = f.DFSRoot
	}
	if set("dfs-bucket") {
		cfg.DFS.Bucket = f.DFSBucket
	}
	if set("dfs-region") {
		cfg.DFS.Region = f.DFSRegion
	}
	if set("dfs-path-style") {
		cfg.DFS.UsePathStyle = f.DFSPathStyle
	}
	if set("dfs-disable-zero-copy") {
		cfg.DFS.DisableZeroCopy = f.DFSDisableZeroCopy
	}
}

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Describe names the failing stage of err for the diagnostic line.
func Describe(err error) string {
	switch benchErrors.GetCategory(err) {
	case benchErrors.ErrCategoryConfig:
		return "invalid configuration"
	case benchErrors.ErrCategoryOpen:
		return "open failed"
	case benchErrors.ErrCategoryRead:
		return "read failed"
	case benchErrors.ErrCategorySizeMismatch:
		return "size mismatch"
	case benchErrors.ErrCategoryFlush:
		return "cache flush failed"
	default:
		return "benchmark failed"
	}
}
