package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ConfigName is the file Load looks for.
const ConfigName = "retype.toml"

// EnvConfig names a configuration file that takes precedence over the
// upward search.
const EnvConfig = "RETYPE_CONFIG"

// FindConfig returns $RETYPE_CONFIG when set, otherwise the nearest
// retype.toml in startDir or one of its parents.
func FindConfig(startDir string) (path string, ok bool, err error) {
	if env := os.Getenv(EnvConfig); env != "" {
		return env, true, nil
	}
	dir, err := filepath.Abs(cmpOr(startDir, "."))
	if err != nil {
		return "", false, fmt.Errorf("resolve %q: %w", startDir, err)
	}
	for prev := ""; dir != prev; prev, dir = dir, filepath.Dir(dir) {
		candidate := filepath.Join(dir, ConfigName)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

func cmpOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
