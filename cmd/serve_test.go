package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPidFile_Path(t *testing.T) {
	dir := testEnv(t)

	pf := pidFile()
	expected := filepath.Join(dir, "prd-serve.pid")
	assert.Equal(t, expected, pf.Path)
}

func TestServeLogPath(t *testing.T) {
	dir := testEnv(t)

	logPath := serveLogPath()
	expected := filepath.Join(dir, "prd-serve.log")
	assert.Equal(t, expected, logPath)
}

func TestServeStatusRun_NotRunning(t *testing.T) {
	testEnv(t)

	// No PID file exists, so status should show "not running" without error.
	err := serveStatusRun()
	assert.NoError(t, err)
}

func TestServeStopRun_NotRunning(t *testing.T) {
	testEnv(t)

	// No PID file exists, so stop should return an error.
	err := serveStopRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestServeStartRun_AlreadyRunning(t *testing.T) {
	testEnv(t)

	// Write a PID file for the current process (which is alive).
	pf := pidFile()
	require.NoError(t, pf.Write())
	t.Cleanup(func() { _ = pf.Remove() })

	err := serveStartRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
	assert.Contains(t, err.Error(), "pid")
}

func TestServeStopRun_StalePidFile(t *testing.T) {
	testEnv(t)

	// Write a PID file for a process that is almost certainly dead.
	pf := pidFile()
	require.NoError(t, pf.WritePID(99999999))

	err := serveStopRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")

	// Stale file should be cleaned up.
	_, statErr := os.Stat(pf.Path)
	assert.True(t, os.IsNotExist(statErr))
}
