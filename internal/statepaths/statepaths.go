package statepaths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const defaultDirName = ".medsense"

// StateDir resolves the directory holding mutable service state (the
// SQLite file lives here). Precedence: state.dir from config, then
// $HOME/.medsense. A leading ~/ is expanded.
func StateDir() string {
	dir := strings.TrimSpace(viper.GetString("state.dir"))
	if dir != "" {
		return expandHome(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDirName
	}
	return filepath.Join(home, defaultDirName)
}

// EnsureStateDir creates the state directory if needed and returns it.
func EnsureStateDir() (string, error) {
	dir := StateDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
