// Package flush runs the operator-supplied command that drops the host
// filesystem cache before a benchmark starts timing.
package flush

import (
	"bytes"
	"context"
	"log"
	"os/exec"
	"strings"

	benchErrors "github.com/arkilian/readbench/internal/errors"
)

// Shell is the interpreter the flush command is handed to.
var Shell = "/bin/sh"

// Run executes command synchronously through the shell. An empty command is
// a no-op. A spawn failure or non-zero exit is a FlushError; there is no retry.
func Run(ctx context.Context, command string) error {
	if strings.TrimSpace(command) == "" {
		return nil
	}

	log.Printf("Flushing cache: %s", command)

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, Shell, "-c", command)
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			log.Printf("Flush command output: %s", msg)
		}
		return benchErrors.NewFlushError("cache flush command failed", err).
			WithDetails(map[string]interface{}{"command": command})
	}

	if msg := strings.TrimSpace(out.String()); msg != "" {
		log.Printf("Flush command output: %s", msg)
	}
	return nil
}
