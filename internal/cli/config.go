package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds the tunables a config file may set. Flags override it.
type Config struct {
	Threshold float64 `json:"threshold,omitempty"`
	Algorithm string  `json:"algorithm,omitempty"`
}

// ConfigFileName is the project config file looked up in the working
// directory.
const ConfigFileName = ".linedssc.json"

// Config errors.
var (
	errConfigNotFound = errors.New("config file not found")
	errConfigInvalid  = errors.New("invalid config file")
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Threshold: 0.5,
		Algorithm: "chunkmap",
	}
}

// globalConfigPath returns the per-user config location:
// $XDG_CONFIG_HOME/linedssc/config.json, falling back to
// ~/.config/linedssc/config.json. Empty when neither can be derived.
func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "linedssc", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "linedssc", "config.json")
	}

	return ""
}

// LoadConfig resolves configuration with the following precedence (highest
// wins): defaults, global user config, project config in workDir, explicit
// file via explicitPath. Missing global/project files are fine; an explicit
// path that does not exist is an error.
func LoadConfig(workDir, explicitPath string, env map[string]string) (Config, error) {
	cfg := DefaultConfig()

	if path := globalConfigPath(env); path != "" {
		if err := mergeConfigFile(&cfg, path); err != nil && !errors.Is(err, errConfigNotFound) {
			return Config{}, err
		}
	}

	if err := mergeConfigFile(&cfg, filepath.Join(workDir, ConfigFileName)); err != nil && !errors.Is(err, errConfigNotFound) {
		return Config{}, err
	}

	if explicitPath != "" {
		if err := mergeConfigFile(&cfg, explicitPath); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// mergeConfigFile overlays the file's set fields onto cfg. The file is
// JSONC (comments and trailing commas allowed).
func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config resolution
	if err != nil {
		if os.IsNotExist(err) {
			return errConfigNotFound
		}

		return fmt.Errorf("reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w %s: %v", errConfigInvalid, path, err)
	}

	var file Config

	if err := json.Unmarshal(standardized, &file); err != nil {
		return fmt.Errorf("%w %s: %v", errConfigInvalid, path, err)
	}

	if file.Threshold != 0 {
		cfg.Threshold = file.Threshold
	}

	if file.Algorithm != "" {
		cfg.Algorithm = file.Algorithm
	}

	return nil
}
