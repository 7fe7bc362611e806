package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHomeOverrideWins(t *testing.T) {
	t.Setenv(EnvHome, "/should-not-be-used")
	cfg := Resolve("/explicit/home", "", false)
	assert.Equal(t, "/explicit/home", cfg.UserDir)
}

func TestResolveEnvHomeFallback(t *testing.T) {
	t.Setenv(EnvHome, "/env/home")
	cfg := Resolve("", "", false)
	assert.Equal(t, "/env/home", cfg.UserDir)
}

func TestResolveDefaultUserDir(t *testing.T) {
	t.Setenv(EnvHome, "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cfg := Resolve("", "", false)
	assert.Equal(t, filepath.Join(home, ".swissarmyhammer"), cfg.UserDir)
}

func TestResolveProjectOverrideWins(t *testing.T) {
	cfg := Resolve("", "/explicit/project", false)
	assert.Equal(t, "/explicit/project", cfg.ProjectDir)
}

func TestResolveProjectDiscovery(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".swissarmyhammer"), 0o755))

	orig, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(orig) }()
	require.NoError(t, os.Chdir(nested))

	cfg := Resolve("", "", false)
	assert.Equal(t, filepath.Join(root, ".swissarmyhammer"), cfg.ProjectDir)
}

func TestResolveNoProjectFound(t *testing.T) {
	root := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(orig) }()
	require.NoError(t, os.Chdir(root))

	cfg := Resolve("", "", false)
	assert.Equal(t, "", cfg.ProjectDir)
}

func TestConfigLoaderWiring(t *testing.T) {
	cfg := Config{UserDir: "/u", ProjectDir: "/p"}
	loader := cfg.Loader()
	assert.Equal(t, "/u", loader.UserDir)
	assert.Equal(t, "/p", loader.ProjectDir)
}
