package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x5a}, size), 0644))
	return path
}

func TestRun_PrintsSummaryAndThroughput(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, 10000)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-q", "-t", "file_read", "-f", path, "-b", "1000", "-w", "3"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Read 10000 bytes from "+path)
	_, err := strconv.ParseFloat(lines[1], 64)
	assert.NoError(t, err, "last line is the bare throughput")
}

func TestRun_MissingRequiredArguments(t *testing.T) {
	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer

	code := run([]string{"-t", "file_read"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "invalid configuration")
	assert.Contains(t, stderr.String(), "Usage: readbench")
}

func TestRun_BadCommandLineIsConfigError(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, 100)

	tests := [][]string{
		{"-t", "file_read", "-f", path, "-b", "abc"},
		{"-t", "file_read", "-f", path, "-w", "x"},
		{"-t", "file_read", "-f", path, "--bogus"},
	}
	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 1, run(args, &stdout, &stderr), "args %v", args)
		assert.Empty(t, stdout.String())
	}
}

func TestRun_HelpAndVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Environment Variables")

	stdout.Reset()
	assert.Equal(t, 0, run([]string{"--version"}, &stdout, &stderr))
	assert.Equal(t, "readbench version dev (commit: unknown)\n", stdout.String())
}

func TestRun_OpenFailureExitsNonZero(t *testing.T) {
	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer

	code := run([]string{"-q", "-t", "hdfs", "-f", "/no/such/file"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "open failed")
	assert.Empty(t, stdout.String())
}
