package fimconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wazuh-go/fim-core/internal/fim"
)

func TestReadFromFileDecodesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
file_limit = 5000
file_limit_enabled = true
max_eps = 100
rt_delay_ms = 50
file_max_size = 1048576
ignore = ["/etc/mtab"]
ignore_regex = ["\\.swp$"]

[[directory]]
path = "/etc"
checks = ["size", "sha256", "owner"]
recursion_level = 4
realtime = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile: %v", err)
	}

	if cfg.FileLimit != 5000 || !cfg.FileLimitEnabled {
		t.Errorf("unexpected top-level fields: %+v", cfg)
	}
	if len(cfg.Directories) != 1 || cfg.Directories[0].Path != "/etc" {
		t.Fatalf("unexpected directories: %+v", cfg.Directories)
	}
	if !cfg.Directories[0].Realtime {
		t.Error("expected realtime to be true")
	}
}

func TestMonitoredDirsRejectsUnknownCheck(t *testing.T) {
	cfg := &Config{
		Directories: []DirectoryConfig{{Path: "/etc", Checks: []string{"bogus"}}},
	}
	if _, err := cfg.MonitoredDirs(); err == nil {
		t.Fatal("expected an error for an unknown check name")
	}
}

func TestMonitoredDirsBuildsOptionBitmask(t *testing.T) {
	cfg := &Config{
		Directories: []DirectoryConfig{{
			Path:           "/etc",
			Checks:         []string{"size", "sha256"},
			RecursionLevel: 3,
			Follow:         true,
			Tags:           "config",
		}},
	}

	dirs, err := cfg.MonitoredDirs()
	if err != nil {
		t.Fatalf("MonitoredDirs: %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 monitored dir, got %d", len(dirs))
	}

	d := dirs[0]
	want := fim.CheckSize | fim.CheckSHA256 | fim.CheckFollow
	if d.Options != want {
		t.Errorf("Options = %v, want %v", d.Options, want)
	}
	if d.RecursionLevel != 3 || d.Tags != "config" {
		t.Errorf("unexpected dir fields: %+v", d)
	}
}

func TestMonitoredDirsCompilesRestrictPattern(t *testing.T) {
	cfg := &Config{
		Directories: []DirectoryConfig{{Path: "/etc", Restrict: `\.conf$`}},
	}
	dirs, err := cfg.MonitoredDirs()
	if err != nil {
		t.Fatalf("MonitoredDirs: %v", err)
	}
	if !dirs[0].Restrict.MatchString("sshd.conf") {
		t.Error("expected restrict pattern to match a .conf file")
	}
	if dirs[0].Restrict.MatchString("sshd.txt") {
		t.Error("expected restrict pattern to reject a non-.conf file")
	}
}

func TestMonitoredDirsRejectsInvalidRestrict(t *testing.T) {
	cfg := &Config{
		Directories: []DirectoryConfig{{Path: "/etc", Restrict: "("}},
	}
	if _, err := cfg.MonitoredDirs(); err == nil {
		t.Fatal("expected an error for an invalid restrict regexp")
	}
}

func TestIgnoreRegexMatchersRejectsInvalidPattern(t *testing.T) {
	cfg := &Config{IgnoreRegex: []string{"("}}
	if _, err := cfg.IgnoreRegexMatchers(); err == nil {
		t.Fatal("expected an error for an invalid ignore_regex pattern")
	}
}

func TestInitRefusesToOverwriteExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write existing file: %v", err)
	}

	if err := Init(path, Default()); err == nil {
		t.Fatal("expected Init to refuse to overwrite an existing config file")
	}
}

func TestInitWritesReadableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	if err := Init(path, Default()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	cfg, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile after Init: %v", err)
	}
	if len(cfg.Directories) == 0 || cfg.Directories[0].Path != "/etc" {
		t.Errorf("expected the default config's directory to round-trip, got %+v", cfg.Directories)
	}
}
