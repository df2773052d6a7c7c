package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printpanel-go/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "printpanel dev\n", out)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err)
	_, err = execute(t, "config", "init", "--force", path)
	assert.NoError(t, err)
}

func TestServeRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeString(path, "connection:\n  mode: carrier-pigeon\n"))
	_, err := execute(t, "serve", "--config", path, "--env-file", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection.mode")
}

func TestRunExitCode(t *testing.T) {
	assert.Equal(t, 1, run(context.Background(), []string{"no-such-command"}))
	assert.Equal(t, 0, run(context.Background(), []string{"version"}))
}

func writeString(path, s string) error {
	return os.WriteFile(path, []byte(s), 0o644)
}
