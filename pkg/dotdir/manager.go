// Package dotdir resolves the .qfagent/ directory that holds config.toml,
// credentials.toml and an optional .env file.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the qfagent state directory.
	DirName = ".qfagent"

	// EnvDir names an environment variable that overrides directory discovery.
	EnvDir = "QFAGENT_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .qfagent/ directory, creating it if
// necessary. Order of precedence is as follows:
//  1. Provided override
//  2. $QFAGENT_HOME
//  3. Local ./.qfagent/ dir
//  4. Home ~/.qfagent/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case os.Getenv(EnvDir) != "":
		dir = os.Getenv(EnvDir)

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating qfagent directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// localDirExists reports whether ./.qfagent/ exists in the working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
