package config

import (
	"errors"
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "gitswitch"
	defaultConfigFile    = "config.yaml"
	defaultDatabaseFile  = "gitswitch.db"
)

func DefaultConfigPath() string {
	if env := os.Getenv("GITSWITCH_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gitswitch", defaultConfigFile)
}

// DefaultDatabasePath resolves the SQLite path, creating the parent
// directory. Failing to resolve any home or config directory is the one
// unrecoverable local environment error in this program.
func DefaultDatabasePath() (string, error) {
	if env := os.Getenv("GITSWITCH_DB"); env != "" {
		return env, nil
	}
	dir := ""
	if base, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(base, defaultConfigDirName)
	} else if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".gitswitch")
	} else {
		return "", errors.New("cannot resolve user config or home directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultDatabaseFile), nil
}
