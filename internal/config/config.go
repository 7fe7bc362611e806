// Package config resolves the three artifact tiers' on-disk locations and
// the handful of process-wide settings (home override, debug flag) a host
// binary needs before it can build a catalog.Loader. It mirrors the way
// pkg/cli resolves gh-aw's repo/user config search paths: conventional
// locations first, environment override second, explicit flag last.
package config

import (
	"os"
	"path/filepath"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
)

// EnvHome is the override environment variable for the user tier's root,
// analogous to XDG_CONFIG_HOME but specific to this tool.
const EnvHome = "SAH_HOME"

// Config is the resolved set of paths a Loader is built from.
type Config struct {
	// UserDir is the user tier root: $SAH_HOME if set, else
	// <user-home>/.swissarmyhammer.
	UserDir string
	// ProjectDir is the project tier root: the .swissarmyhammer directory
	// in the working directory or its nearest ancestor that has one, or ""
	// if none exists.
	ProjectDir string
	// Debug records the --debug flag. Nothing reads it: pkg/logger enables
	// loggers from the DEBUG environment variable alone, read once at
	// process start.
	Debug bool
}

// Resolve builds a Config from the conventional locations, honoring
// explicit overrides: homeOverride (the --home flag) and projectOverride
// (the --project-root flag) take precedence over SAH_HOME and directory
// search, respectively. Either override may be empty to fall back to
// discovery.
func Resolve(homeOverride, projectOverride string, debug bool) Config {
	cfg := Config{Debug: debug}

	switch {
	case homeOverride != "":
		cfg.UserDir = homeOverride
	case os.Getenv(EnvHome) != "":
		cfg.UserDir = os.Getenv(EnvHome)
	default:
		if home, err := os.UserHomeDir(); err == nil {
			cfg.UserDir = filepath.Join(home, ".swissarmyhammer")
		}
	}

	if projectOverride != "" {
		cfg.ProjectDir = projectOverride
	} else if wd, err := os.Getwd(); err == nil {
		if root, ok := findProjectRoot(wd); ok {
			cfg.ProjectDir = root
		}
	}

	return cfg
}

// Loader builds a catalog.Loader wired to this Config's resolved tier
// roots, leaving the builtin tier on catalog's embedded default.
func (c Config) Loader() *catalog.Loader {
	return &catalog.Loader{UserDir: c.UserDir, ProjectDir: c.ProjectDir}
}

// findProjectRoot walks up from dir looking for a .swissarmyhammer
// directory, returning its path. Shared logic with catalog.NewLoader's
// discovery; Resolve uses it to find the project tier before a Loader is
// built.
func findProjectRoot(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, ".swissarmyhammer")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
