// Package appconfig derives the on-disk layout under ~/.config/botpack.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// ensureFolder recursively creates a folder if it does not exist.
func ensureFolder(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ensureFile ensures that the parent folder exists and the file exists.
func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create/open file: %w", err)
	}
	defer f.Close()

	return nil
}

func ConfigBasePath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		homedir = "/usr/local/config/botpack"
	}

	return filepath.Join(homedir, ".config", "botpack")
}

func projectDataPath(projectName string) string {
	return filepath.Join(ConfigBasePath(), "projects", projectName)
}

func logsPath(projectName string) string {
	return filepath.Join(projectDataPath(projectName), "logs")
}

// StateDBFile is the sqlite database that records built images.
func StateDBFile() string {
	return filepath.Join(ConfigBasePath(), "state.db")
}

// BuildLockFile guards concurrent builds of the same state.
func BuildLockFile() string {
	return StateDBFile() + ".lock"
}

// BuildLogPath is the full-log destination for one build invocation.
func BuildLogPath(projectName, buildID string) string {
	p := filepath.Join(logsPath(projectName), "build-"+buildID+".log")
	ensureFile(p)
	return p
}

// BuildLogOpen opens the build log for appending.
func BuildLogOpen(projectName, buildID string) (*os.File, error) {
	return os.OpenFile(BuildLogPath(projectName, buildID), os.O_CREATE|os.O_RDWR, 0o644)
}
