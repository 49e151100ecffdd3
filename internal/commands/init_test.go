package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := runRyoshu(t, "init", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Initialized ryoshu project")

	expectedDirs := []string{
		"data",
		"inbox",
		filepath.Join("inbox", "processed"),
		"logs",
		"exports",
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	_, err = os.Stat(filepath.Join(dir, "data", "receipts.db"))
	assert.NoError(t, err, "store should be created on init")
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runRyoshu(t, "init", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "ryoshu.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, "extractor: mock")
	assert.Contains(t, contents, "inbox_dir: inbox")
}

func TestInit_DirFlag(t *testing.T) {
	dir := t.TempDir()
	_, err := runRyoshu(t, "--dir", dir, "init")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "ryoshu.yaml"))
	assert.NoError(t, err)
}

func TestInit_KeepsExistingConfig(t *testing.T) {
	dir := newProject(t)
	cfgPath := filepath.Join(dir, "ryoshu.yaml")

	custom := "capture:\n  extractor: manual\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(custom), 0o644))

	out, err := runRyoshu(t, "init", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Reinitialized")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestCommands_RequireProject(t *testing.T) {
	dir := t.TempDir()
	out, err := runRyoshu(t, "--dir", dir, "list")
	require.Error(t, err)
	assert.Contains(t, out, "not a ryoshu project")
}
