package config

import (
	"os"

	"github.com/creasty/defaults"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// DefaultPaths are tried in order when no explicit path is given.
var DefaultPaths = []string{
	"/etc/eventrelay/config.yaml",
	"config.yaml",
}

// Load reads the first config file found, applies struct-tag defaults to
// everything the file left unset, and validates the result.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}

	cfg := &Config{}

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return nil, oops.Wrapf(err, "failed to read config file %s", path)
		}

		err = yaml.Unmarshal(raw, cfg)
		if err != nil {
			return nil, oops.Wrapf(err, "failed to parse config file %s", path)
		}

		break
	}

	err := defaults.Set(cfg)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to apply config defaults")
	}

	err = cfg.Validate()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to validate config")
	}

	return cfg, nil
}
