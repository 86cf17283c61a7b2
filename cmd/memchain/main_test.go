package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"memchain"}, args...)
	code := Run(full, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestHelpExitsOK(t *testing.T) {
	code, out, _ := run(t, "help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "USAGE")
}

func TestUnknownCommandIsMisuse(t *testing.T) {
	code, _, errOut := run(t, "bogus")
	assert.Equal(t, exitMisuse, code)
	assert.Contains(t, errOut, "Unknown command")
}

func TestInitAddVerifyStatsListSearchFlow(t *testing.T) {
	dir := t.TempDir()

	code, out, errOut := run(t, "init", "--dir", dir, "--name", "alice", "--key-mode", "raw")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "alice")

	code, out, errOut = run(t, "add", "--dir", dir, "--type", "memory", "--tier", "relationship", "user prefers dark mode")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "seq=1")

	code, _, errOut = run(t, "verify", "--dir", dir)
	require.Equal(t, exitOK, code, errOut)

	code, out, errOut = run(t, "stats", "--dir", dir)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "entries:   2")

	code, out, errOut = run(t, "list", "--dir", dir, "--show-content")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "dark mode")

	code, out, errOut = run(t, "search", "--dir", dir, "dark mode")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "dark mode")

	code, out, errOut = run(t, "search", "--dir", dir, "--explain", "--dry-run", "dark mode")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "dark mode")
	assert.Contains(t, out, "fts_norm")
	assert.Contains(t, out, "final")
}

func TestMaintainRunsHourlyAndWeeklyPasses(t *testing.T) {
	dir := t.TempDir()
	code, _, errOut := run(t, "init", "--dir", dir, "--name", "alice")
	require.Equal(t, exitOK, code, errOut)
	code, _, errOut = run(t, "add", "--dir", dir, "user prefers dark mode")
	require.Equal(t, exitOK, code, errOut)

	code, out, errOut := run(t, "maintain", "--dir", dir)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "promoted hot")

	code, out, errOut = run(t, "maintain", "--dir", dir, "--weekly")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "gc archived")
}

func TestAddMissingContentIsMisuse(t *testing.T) {
	dir := t.TempDir()
	code, _, errOut := run(t, "init", "--dir", dir)
	require.Equal(t, exitOK, code, errOut)

	code, _, errOut = run(t, "add", "--dir", dir)
	assert.Equal(t, exitMisuse, code)
	assert.Contains(t, errOut, "requires <content>")
}

func TestExportImportRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	code, _, errOut := run(t, "init", "--dir", srcDir, "--name", "alice")
	require.Equal(t, exitOK, code, errOut)
	code, _, errOut = run(t, "add", "--dir", srcDir, "hello world")
	require.Equal(t, exitOK, code, errOut)

	exportFile := srcDir + "/export.json"
	code, out, errOut := run(t, "export", "--dir", srcDir, exportFile)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Exported 2 entries")

	destDir := t.TempDir() + "/imported"
	code, out, errOut = run(t, "import", "--dir", destDir, exportFile)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Imported 2 entries")
	assert.Contains(t, out, "Chain valid")
}
