// Package main implements readbench-sweep.
// It runs the benchmark once for every combination of backend type, buffer
// size and worker count and writes one CSV row per run to stdout.
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

// combination is one point of the sweep.
type combination struct {
	kind       types.BackendKind
	bufferSize int
	workers    int
}

func run(args []string, stdout, stderr io.Writer) int {
	log.SetOutput(stderr)

	fs := pflag.NewFlagSet("readbench-sweep", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := cli.Register(fs, false)

	var (
		kinds   []string
		buffers []int
		workers []int
		repeat  int
	)
	fs.StringSliceVar(&kinds, "types", nil, "Backend types to sweep (default: --type)")
	fs.IntSliceVarP(&buffers, "buffers", "b", []int{4096}, "Buffer sizes to sweep")
	fs.IntSliceVarP(&workers, "workers", "w", []int{1}, "Worker counts to sweep")
	fs.IntVar(&repeat, "repeat", 1, "Runs per combination")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "readbench-sweep - Run readbench over a grid of parameters\n\n")
		fmt.Fprintf(stderr, "Usage: readbench-sweep -f <file> [options] > results.csv\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  readbench-sweep -t file_read -f /data/big.bin -b 4096,65536,1048576 -w 1,2,4,8\n")
		fmt.Fprintf(stderr, "  readbench-sweep --types file_read,file_mmap -f /data/big.bin --flush-cache 'sync'\n")
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
		fmt.Fprintf(stdout, "readbench-sweep version %s (commit: %s)\n", version, commit)
		return 0
	}
	if repeat < 1 {
		log.Printf("invalid configuration: --repeat must be at least 1")
		return 1
	}

	base, err := flags.LoadConfig()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	grid := expand(base.Type, kinds, buffers, workers)
	if len(grid) == 0 {
		log.Printf("invalid configuration: nothing to sweep")
		fs.Usage()
		return 1
	}

	// Every combination is validated before the first run.
	runners := make([]*app.Runner, 0, len(grid))
	for _, c := range grid {
		r, err := app.New(withCombination(base, c))
		if err != nil {
			log.Printf("%s: %v", cli.Describe(err), err)
			return cli.ExitCode(err)
		}
		runners = append(runners, r)
	}

	out, err := report.NewCSVWriter(stdout)
	if err != nil {
		log.Printf("Failed to write report: %v", err)
		return 1
	}

	ctx, stop := shutdown.NewManager().ListenForSignals(context.Background())
	defer stop()

	for i, r := range runners {
		c := grid[i]
		for n := 0; n < repeat; n++ {
			if !flags.Quiet {
				log.Printf("Running %s buffer=%d workers=%d (%d/%d)", c.kind, c.bufferSize, c.workers, n+1, repeat)
			}
			res, err := r.Run(ctx)
			if err != nil {
				log.Printf("%s: %v", cli.Describe(err), err)
				return cli.ExitCode(err)
			}
			if err := out.Write(res.Summary()); err != nil {
				log.Printf("Failed to write report: %v", err)
				return 1
			}
		}
	}
	return 0
}

// expand returns the cartesian product of the parameter lists, with the
// backend type varying slowest.
func expand(fallback types.BackendKind, kinds []string, buffers, workers []int) []combination {
	if len(kinds) == 0 && fallback != "" {
		kinds = []string{string(fallback)}
	}

	var grid []combination
	for _, k := range kinds {
		for _, b := range buffers {
			for _, w := range workers {
				grid = append(grid, combination{kind: types.BackendKind(k), bufferSize: b, workers: w})
			}
		}
	}
	return grid
}

func withCombination(base *config.Config, c combination) *config.Config {
	cfg := *base
	cfg.Type = c.kind
	cfg.BufferSize = c.bufferSize
	cfg.Workers = c.workers
	return &cfg
}
