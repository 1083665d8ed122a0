// Package fimconfig loads the file-backed configuration the engine is
// built from: monitored directories, global filters, capacity, and rate
// limiting. Configuration loading is an out-of-scope collaborator per
// spec.md §1 — fim.ConfigResolver and fim.Engine consume the plain
// values this package produces, never the TOML reader directly.
package fimconfig

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/wazuh-go/fim-core/internal/fim"
)

// Config is the root configuration document.
type Config struct {
	Directories     []DirectoryConfig `toml:"directory"`
	Ignore          []string          `toml:"ignore"`
	IgnoreRegex     []string          `toml:"ignore_regex"`
	SkipFilesystems []string          `toml:"skip_filesystems"`
	FileLimit       int               `toml:"file_limit"`
	FileLimitEnabled bool             `toml:"file_limit_enabled"`
	MaxEPS          int               `toml:"max_eps"`
	RTDelayMS       int               `toml:"rt_delay_ms"`
	FileMaxSize     int64             `toml:"file_max_size"`
	PrefilterCmd    string            `toml:"prefilter_cmd"`
}

// DirectoryConfig is one [[directory]] TOML table.
type DirectoryConfig struct {
	Path           string   `toml:"path"`
	Checks         []string `toml:"checks"`
	RecursionLevel int      `toml:"recursion_level"`
	Restrict       string   `toml:"restrict,omitempty"`
	Tags           string   `toml:"tags,omitempty"`
	Realtime       bool     `toml:"realtime"`
	Whodata        bool     `toml:"whodata"`
	Follow         bool     `toml:"follow_symbolic_link"`
}

var checkBits = map[string]fim.Option{
	"size":         fim.CheckSize,
	"perm":         fim.CheckPerm,
	"owner":        fim.CheckOwner,
	"group":        fim.CheckGroup,
	"mtime":        fim.CheckMtime,
	"inode":        fim.CheckInode,
	"md5":          fim.CheckMD5,
	"sha1":         fim.CheckSHA1,
	"sha256":       fim.CheckSHA256,
	"attrs":        fim.CheckAttrs,
	"see_changes":  fim.CheckSeeChanges,
	"follow":       fim.CheckFollow,
}

// ReadFromFile reads and decodes a Config from path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config from %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns a starter configuration with conservative defaults,
// used by `fimagent config init`.
func Default() *Config {
	return &Config{
		Directories: []DirectoryConfig{
			{
				Path:           "/etc",
				Checks:         []string{"size", "perm", "owner", "group", "mtime", "sha256"},
				RecursionLevel: 256,
			},
		},
		FileLimit:        100000,
		FileLimitEnabled: true,
		MaxEPS:           200,
		RTDelayMS:        100,
		FileMaxSize:      1 << 30, // 1 GiB
	}
}

// Init writes cfg to path as TOML, refusing to overwrite an existing
// file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

func write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// MonitoredDirs converts the decoded directory list into fim.MonitoredDir
// values, compiling each restrict pattern into a *regexp.Regexp. An
// unknown check name or an invalid restrict pattern fails the whole load
// so misconfiguration is caught at startup rather than silently ignored
// at scan time.
func (c *Config) MonitoredDirs() ([]fim.MonitoredDir, error) {
	dirs := make([]fim.MonitoredDir, 0, len(c.Directories))

	for _, d := range c.Directories {
		var opts fim.Option
		for _, name := range d.Checks {
			bit, ok := checkBits[name]
			if !ok {
				return nil, fmt.Errorf("directory %s: unknown check %q", d.Path, name)
			}
			opts |= bit
		}
		if d.Follow {
			opts |= fim.CheckFollow
		}

		var restrict fim.Matcher
		if d.Restrict != "" {
			re, err := regexp.Compile(d.Restrict)
			if err != nil {
				return nil, fmt.Errorf("directory %s: invalid restrict pattern: %w", d.Path, err)
			}
			restrict = re
		}

		dirs = append(dirs, fim.MonitoredDir{
			Path:           d.Path,
			Options:        opts,
			RecursionLevel: d.RecursionLevel,
			Restrict:       restrict,
			Tags:           d.Tags,
			RealtimeActive: d.Realtime,
			WhodataActive:  d.Whodata,
		})
	}

	return dirs, nil
}

// IgnoreRegexMatchers compiles the configured ignore-regex list.
func (c *Config) IgnoreRegexMatchers() ([]fim.Matcher, error) {
	out := make([]fim.Matcher, 0, len(c.IgnoreRegex))
	for _, pattern := range c.IgnoreRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore_regex %q: %w", pattern, err)
		}
		out = append(out, re)
	}
	return out, nil
}
