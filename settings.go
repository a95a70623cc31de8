package pysnaptest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// UpdateMode decides what happens when a snapshot is missing or diverges.
type UpdateMode string

const (
	// UpdateMissing records missing snapshots and fails on mismatch (default).
	UpdateMissing UpdateMode = "missing"
	// UpdateNever is strict replay: a missing snapshot is a failure.
	UpdateNever UpdateMode = "never"
	// UpdateAlways unconditionally re-records every asserted snapshot.
	UpdateAlways UpdateMode = "always"
	// UpdateNew never touches canonical files; fresh content lands in
	// pending (*.new) files for review with snaptool.
	UpdateNew UpdateMode = "new"
)

func parseUpdateMode(s string) (UpdateMode, error) {
	switch UpdateMode(strings.ToLower(s)) {
	case UpdateMissing, UpdateNever, UpdateAlways, UpdateNew:
		return UpdateMode(strings.ToLower(s)), nil
	default:
		return "", usageErrorf("invalid update mode %q (supported: missing, never, always, new)", s)
	}
}

// Settings configures engine-wide behavior. Values come from an optional
// config file discovered upward from the working directory, overridden by
// environment variables; both are optional.
type Settings struct {
	// Update selects the missing/mismatch policy. Env: SNAPTEST_UPDATE.
	Update UpdateMode `toml:"update" yaml:"update" json:"update"`

	// DirName is the snapshot subdirectory created next to test sources.
	DirName string `toml:"dir_name" yaml:"dir_name" json:"dir_name"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Update:  UpdateMissing,
		DirName: "snapshots",
	}
}

const updateEnvVar = "SNAPTEST_UPDATE"

// settingsFileNames are probed in order at each directory level.
var settingsFileNames = []string{
	".snaptest.toml",
	".snaptest.yaml",
	".snaptest.yml",
	".snaptest.json",
}

// LoadSettings builds Settings from defaults, an optional config file found
// by searching startDir ("" means the working directory) and its parents, and
// environment overrides. A missing file is not an error; an unparsable one is.
func LoadSettings(startDir string) (*Settings, error) {
	s := DefaultSettings()

	path, err := findSettingsFile(startDir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := parseSettingsFile(path, s); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(updateEnvVar); v != "" {
		mode, err := parseUpdateMode(v)
		if err != nil {
			return nil, fmt.Errorf("pysnaptest: %s: %w", updateEnvVar, err)
		}
		s.Update = mode
	}

	if s.DirName == "" {
		s.DirName = "snapshots"
	}
	if _, err := parseUpdateMode(string(s.Update)); err != nil {
		return nil, err
	}
	return s, nil
}

// findSettingsFile walks from startDir to the filesystem root probing for the
// known file names. Returns "" when nothing is found.
func findSettingsFile(startDir string) (string, error) {
	dir := startDir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("pysnaptest: resolve working directory: %w", err)
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range settingsFileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// parseSettingsFile decodes a config file into s based on its extension.
func parseSettingsFile(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("pysnaptest: read settings file %s: %w", path, err)
	}

	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case "toml":
		if err := toml.Unmarshal(data, s); err != nil {
			return fmt.Errorf("pysnaptest: parse TOML settings %s: %w", path, err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return fmt.Errorf("pysnaptest: parse YAML settings %s: %w", path, err)
		}
	case "json":
		if err := json.Unmarshal(data, s); err != nil {
			return fmt.Errorf("pysnaptest: parse JSON settings %s: %w", path, err)
		}
	default:
		return usageErrorf("unsupported settings file format: %s (supported: toml, yaml, json)", path)
	}
	return nil
}

var (
	globalSettingsOnce sync.Once
	globalSettings     *Settings
	globalSettingsErr  error
)

// loadGlobalSettings resolves the process-wide settings once. Assertions use
// these unless WithSettings injects an explicit value.
func loadGlobalSettings() (*Settings, error) {
	globalSettingsOnce.Do(func() {
		globalSettings, globalSettingsErr = LoadSettings("")
	})
	return globalSettings, globalSettingsErr
}
