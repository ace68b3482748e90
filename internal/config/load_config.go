package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTargetBinPath is where binaries go when the config does not say otherwise.
	DefaultTargetBinPath = "~/.local/bin"
	// DefaultTimeout bounds each HTTP request made while provisioning.
	DefaultTimeout = 5 * time.Minute
)

// searchPlaces are tried in order in each directory while walking up.
var searchPlaces = []string{
	"epicpostinstall.yaml",
	"epicpostinstall.yml",
	".epicpostinstallrc.yaml",
	".epicpostinstallrc.yml",
	".epicpostinstallrc.json",
	".epicpostinstallrc",
}

// ErrNotFound is returned by Discover when no config file exists in the start
// directory or any of its parents.
var ErrNotFound = errors.New("no epic-postinstall configuration found")

// Discover walks up from startDir and returns the first config file found.
func Discover(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", startDir, err)
	}

	for {
		for _, name := range searchPlaces {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched upward from %s for %s)", ErrNotFound, startDir, strings.Join(searchPlaces, ", "))
		}
		dir = parent
	}
}

// LoadConfig reads, parses, and validates the config file at path.
// JSON (with comments or trailing commas) is normalized first; YAML is a
// superset of JSON, so a single decoder handles every supported format.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if isJSON(path, raw) {
		raw = jsonc.ToJSON(raw)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}
	cfg.Path = abs
	cfg.Dir = filepath.Dir(abs)

	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func isJSON(path string, raw []byte) bool {
	if strings.HasSuffix(path, ".json") {
		return true
	}
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}

// normalize fills defaults, expands paths, and validates every tool.
func (c *Config) normalize() error {
	if c.TargetBinPath == "" {
		c.TargetBinPath = DefaultTargetBinPath
	}
	bin, err := ExpandHome(c.TargetBinPath)
	if err != nil {
		return err
	}
	c.TargetBinPath = bin

	if c.Timeout <= 0 {
		c.Timeout = Duration(DefaultTimeout)
	}

	var errs []error
	if c.Asdf != nil && c.Asdf.Version == "" {
		errs = append(errs, errors.New("asdf: version is required"))
	}
	if c.Direnv != nil && c.Direnv.Version == "" {
		errs = append(errs, errors.New("direnv: version is required"))
	}

	for key, b := range c.GitBinaries {
		if b.Cmd == "" {
			errs = append(errs, fmt.Errorf("gitBinaries.%s: cmd is required", key))
		}
		if b.Version == "" {
			errs = append(errs, fmt.Errorf("gitBinaries.%s: version is required", key))
		}
		if b.GithubRepo == "" {
			errs = append(errs, fmt.Errorf("gitBinaries.%s: githubRepo is required", key))
		}
		if h := b.PostInstallScript; h != nil {
			if h.Inline != "" && h.Path != "" {
				errs = append(errs, fmt.Errorf("gitBinaries.%s: postInstallScript may set inline or path, not both", key))
			}
			if h.Path != "" && !filepath.IsAbs(h.Path) {
				resolved := *h
				resolved.Path = filepath.Join(c.Dir, h.Path)
				b.PostInstallScript = &resolved
				c.GitBinaries[key] = b
			}
		}
	}

	for i, s := range c.Scripts {
		if s.Path == "" {
			errs = append(errs, fmt.Errorf("scripts[%d]: path is required", i))
			continue
		}
		if s.Name == "" {
			c.Scripts[i].Name = filepath.Base(s.Path)
		}
		if !filepath.IsAbs(s.Path) {
			c.Scripts[i].Path = filepath.Join(c.Dir, s.Path)
		}
	}

	return errors.Join(errs...)
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
