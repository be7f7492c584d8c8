package config

import (
	"os"
	"path/filepath"
)

// GetRuntimePath is used before the env file is loaded, so it reads the variable directly.
func GetRuntimePath() string {
	return resolveRuntimePath(os.Getenv("SHOPBOT_RUNTIME_PATH"))
}

func resolveRuntimePath(path string) string {
	if path == "" {
		path = ".shopbot"
	}
	if !filepath.IsAbs(path) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		path = filepath.Join(home, path)
	}
	return path
}
