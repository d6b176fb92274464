package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".marketmind"

// Paths holds resolved filesystem paths for marketmind data.
type Paths struct {
	Base   string // ~/.marketmind
	Config string // ~/.marketmind/config.yaml
	Logs   string // ~/.marketmind/logs
	Data   string // ~/.marketmind/data
}

// DatabasePath returns the default SQLite path, or the configured override.
func (p Paths) DatabasePath(cfg StoreConfig) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	return filepath.Join(p.Data, "marketmind.db")
}

// ResolvePaths computes all standard paths from the home directory.
// If MARKETMIND_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("MARKETMIND_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Logs:   filepath.Join(base, "logs"),
		Data:   filepath.Join(base, "data"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Logs, p.Data}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
