package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigDirs overrides the directories searched for fleetd.yaml. It is a
// list separated like PATH.
const EnvConfigDirs = "FLEET_CONFIG_DIRS"

var defaultSearchDirs = []string{"/etc/feasto-signage", "/usr/local/etc/feasto-signage"}

var fileNames = []string{"fleetd.yaml", "fleetd.yml"}

// SearchDirs returns the directories Load looks in when no path is given
func SearchDirs() []string {
	if v := os.Getenv(EnvConfigDirs); v != "" {
		return filepath.SplitList(v)
	}
	return defaultSearchDirs
}

// Load builds the configuration from defaults, a YAML file and the
// environment, in that order. Without a path the first fleetd.yaml found in
// SearchDirs is used; finding none leaves the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := discover(SearchDirs())
		if err != nil {
			return nil, err
		}
		if found == "" {
			cfg := Default()
			cfg.overlayEnv()
			return cfg, cfg.validate()
		}
		path = found
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a YAML file. Keys missing from the
// file keep their defaults.
func LoadFile(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file %s: want a .yaml or .yml file", path)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing config file: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("config file %s is not a regular file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	cfg.overlayEnv()
	return cfg, cfg.validate()
}

func discover(dirs []string) (string, error) {
	for _, dir := range dirs {
		for _, name := range fileNames {
			p := filepath.Join(dir, name)
			_, err := os.Stat(p)
			switch {
			case err == nil:
				return p, nil
			case !errors.Is(err, fs.ErrNotExist):
				return "", fmt.Errorf("error accessing config file: %w", err)
			}
		}
	}
	return "", nil
}
