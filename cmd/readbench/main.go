// Package main implements the readbench binary.
// It reads one file through the selected backend with concurrent workers and
// prints the measured throughput.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/arkilian/readbench/internal/app"
	"github.com/arkilian/readbench/internal/cli"
	"github.com/arkilian/readbench/internal/config"
	"github.com/arkilian/readbench/internal/report"
	"github.com/arkilian/readbench/internal/shutdown"
	"github.com/arkilian/readbench/pkg/types"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)

	fs := pflag.NewFlagSet("readbench", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := cli.Register(fs, true)

	fs.Usage = func() {
		fmt.Fprintf(stderr, "readbench - Read-path throughput benchmark\n\n")
		fmt.Fprintf(stderr, "Usage: readbench -t <type> -f <file> [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  readbench -t file_read -f /data/big.bin -b 1048576 -w 4\n")
		fmt.Fprintf(stderr, "  readbench -t file_mmap -f /data/big.bin --advise-sequential --use-readahead\n")
		fmt.Fprintf(stderr, "  readbench -t hdfs -f /bench/big.bin --dfs-root /mnt/dfs --use-hdfs-pread\n")
		fmt.Fprintf(stderr, "  readbench --config /etc/readbench/bench.yaml\n")
		fmt.Fprintf(stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(stderr, "  READBENCH_TYPE          Backend type (hdfs, file_mmap, file_read)\n")
		fmt.Fprintf(stderr, "  READBENCH_FILE          File to read\n")
		fmt.Fprintf(stderr, "  READBENCH_BUFFER_SIZE   Read request size in bytes\n")
		fmt.Fprintf(stderr, "  READBENCH_WORKERS       Number of concurrent readers\n")
		fmt.Fprintf(stderr, "  READBENCH_FLUSH_CACHE   Cache flush command\n")
		fmt.Fprintf(stderr, "  READBENCH_DFS_*         DFS connection settings (DRIVER, HOST, PORT, ROOT, BUCKET, REGION)\n")
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 1
	}

	if flags.ShowHelp {
		fs.Usage()
		return 0
	}

	if flags.ShowVersion {
		fmt.Fprintf(stdout, "readbench version %s (commit: %s)\n", version, commit)
		return 0
	}

	cfg, err := flags.LoadConfig()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	runner, err := app.New(cfg)
	if err != nil {
		log.Printf("%s: %v", cli.Describe(err), err)
		fs.Usage()
		return cli.ExitCode(err)
	}

	if !flags.Quiet {
		printBanner(runner.Config())
	}

	ctx, stop := shutdown.NewManager().ListenForSignals(context.Background())
	defer stop()

	res, err := runner.Run(ctx)
	if err != nil {
		log.Printf("%s: %v", cli.Describe(err), err)
		return cli.ExitCode(err)
	}

	if err := report.Write(stdout, res.Summary()); err != nil {
		log.Printf("Failed to write report: %v", err)
		return 1
	}
	return 0
}

// printBanner prints the startup banner with configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("╔═══════════════════════════════════════════════════════════╗")
	log.Printf("║                      READBENCH                            ║")
	log.Printf("║            Read-Path Throughput Benchmark                 ║")
	log.Printf("╚═══════════════════════════════════════════════════════════╝")
	log.Printf("")
	log.Printf("Configuration:")
	log.Printf("  Backend: %s", cfg.Type)
	log.Printf("  File:    %s", cfg.File)
	log.Printf("  Buffer:  %d bytes", cfg.BufferSize)
	log.Printf("  Workers: %d", cfg.Workers)
	log.Printf("  Touch:   %s", cfg.Touch)
	log.Printf("")

	if cfg.Type == types.BackendHDFS {
		log.Printf("DFS:")
		log.Printf("  Driver: %s", cfg.DFS.Driver)
		if ep := cfg.DFS.Endpoint(); ep != "" {
			log.Printf("  Endpoint: %s", ep)
		}
		switch {
		case cfg.Read.UsePread:
			log.Printf("  Reads: positioned, shared handle")
		case cfg.Read.ForceStandard:
			log.Printf("  Reads: standard")
		default:
			log.Printf("  Reads: zero-copy with fallback")
		}
	}

	if h := cfg.HintOptions(); h.Any() {
		log.Printf("Hints:")
		log.Printf("  Sequential: %v  WillNeed: %v  ReadAhead: %v  IOPriority: %v",
			h.AdviseSequential, h.AdviseWillNeed, h.ReadAhead, h.IOPriority)
	}

	if cfg.FlushCommand != "" {
		log.Printf("Cache flush: %s", cfg.FlushCommand)
	}
	log.Printf("")
}
