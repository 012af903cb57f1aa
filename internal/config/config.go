// Package config resolves where grm keeps its files and loads the optional
// settings file, layering defaults, settings.yaml, GRM_* environment
// variables, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/skaphos/grm/internal/pathutil"
)

const (
	// EnvConfig overrides the config directory or names the registry file.
	EnvConfig = "GRM_CONFIG"
	// EnvPrefix prefixes environment overrides for settings keys.
	EnvPrefix = "GRM"
	// SettingsFilename is the optional settings file inside the config directory.
	SettingsFilename = "settings.yaml"
	// RegistryFilename is the default registry snapshot inside the config directory.
	RegistryFilename = "repos.yaml"
	// SettingsAPIVersion is the current settings schema apiVersion.
	SettingsAPIVersion = "skaphos.io/grm/v1"
	// SettingsKind is the current settings schema kind.
	SettingsKind = "GrmSettings"
)

// Settings keys, shared by the settings file, GRM_* variables, and flag bindings.
const (
	KeyRegistryPath      = "registry_path"
	KeyVCS               = "vcs"
	KeyGitBinary         = "git_binary"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyStatusConcurrency = "status_concurrency"
	KeyExclude           = "exclude"
)

// Settings holds user preferences. None of them are required.
type Settings struct {
	APIVersion        string   `mapstructure:"apiVersion" yaml:"apiVersion"`
	Kind              string   `mapstructure:"kind" yaml:"kind"`
	RegistryPath      string   `mapstructure:"registry_path" yaml:"registry_path,omitempty"`
	VCS               string   `mapstructure:"vcs" yaml:"vcs"`
	GitBinary         string   `mapstructure:"git_binary" yaml:"git_binary"`
	LogLevel          string   `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string   `mapstructure:"log_format" yaml:"log_format"`
	StatusConcurrency int      `mapstructure:"status_concurrency" yaml:"status_concurrency"`
	Exclude           []string `mapstructure:"exclude" yaml:"exclude"`
}

// DefaultSettings returns Settings with defaults applied.
func DefaultSettings() Settings {
	return Settings{
		APIVersion:        SettingsAPIVersion,
		Kind:              SettingsKind,
		VCS:               "git",
		GitBinary:         "git",
		LogLevel:          "warn",
		LogFormat:         "console",
		StatusConcurrency: 8,
		Exclude:           []string{"**/node_modules/**", "**/.terraform/**", "**/dist/**", "**/vendor/**"},
	}
}

// Paths is the resolved on-disk layout.
type Paths struct {
	// Dir is the config directory.
	Dir string
	// Settings is the settings file path. It may not exist.
	Settings string
	// registryFile is set when the override named a snapshot file directly.
	registryFile string
}

// ResolvePaths resolves the config layout. It checks, in order: the override
// parameter, the GRM_CONFIG env var, and finally os.UserConfigDir()/grm. An
// override ending in .yaml or .yml names the registry snapshot itself.
func ResolvePaths(override string) (Paths, error) {
	raw := strings.TrimSpace(override)
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv(EnvConfig))
	}
	if raw == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Paths{}, err
		}
		dir := filepath.Join(base, "grm")
		return Paths{Dir: dir, Settings: filepath.Join(dir, SettingsFilename)}, nil
	}

	expanded, err := pathutil.NewHomeExpander().Expand(raw)
	if err != nil {
		return Paths{}, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return Paths{}, err
	}
	if isYAMLPath(abs) {
		dir := filepath.Dir(abs)
		return Paths{Dir: dir, Settings: filepath.Join(dir, SettingsFilename), registryFile: abs}, nil
	}
	return Paths{Dir: abs, Settings: filepath.Join(abs, SettingsFilename)}, nil
}

// RegistryPath returns the registry snapshot location. An explicit snapshot
// file wins, then registry_path from settings (relative to Dir), then the
// default file inside Dir.
func (p Paths) RegistryPath(s Settings) string {
	if p.registryFile != "" {
		return p.registryFile
	}
	if resolved := ResolveRegistryPath(p.Dir, s.RegistryPath); resolved != "" {
		return resolved
	}
	return filepath.Join(p.Dir, RegistryFilename)
}

// ResolveRegistryPath resolves registry_path against the config directory.
// Absolute paths are returned cleaned; "~" is expanded; relative paths are
// joined to dir.
func ResolveRegistryPath(dir, registryPath string) string {
	registryPath = strings.TrimSpace(registryPath)
	if registryPath == "" {
		return ""
	}
	if expanded, err := pathutil.NewHomeExpander().Expand(registryPath); err == nil {
		registryPath = expanded
	}
	if filepath.IsAbs(registryPath) || strings.TrimSpace(dir) == "" {
		return filepath.Clean(registryPath)
	}
	return filepath.Clean(filepath.Join(dir, registryPath))
}

// FlagBindings maps settings keys to the flag names that override them.
var FlagBindings = map[string]string{
	KeyGitBinary:         "git-binary",
	KeyLogLevel:          "log-level",
	KeyLogFormat:         "log-format",
	KeyStatusConcurrency: "concurrency",
}

// LoadSettings reads settingsPath if it exists and applies GRM_* environment
// variables and changed flags from flags, which may be nil. A missing
// settings file is not an error.
func LoadSettings(settingsPath string, flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSettings()
	v.SetDefault("apiVersion", defaults.APIVersion)
	v.SetDefault("kind", defaults.Kind)
	v.SetDefault(KeyRegistryPath, defaults.RegistryPath)
	v.SetDefault(KeyVCS, defaults.VCS)
	v.SetDefault(KeyGitBinary, defaults.GitBinary)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyLogFormat, defaults.LogFormat)
	v.SetDefault(KeyStatusConcurrency, defaults.StatusConcurrency)
	v.SetDefault(KeyExclude, defaults.Exclude)

	if flags != nil {
		for key, name := range FlagBindings {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return Settings{}, fmt.Errorf("bind flag %q: %w", name, err)
				}
			}
		}
	}

	if strings.TrimSpace(settingsPath) != "" {
		if _, err := os.Stat(settingsPath); err == nil {
			v.SetConfigFile(settingsPath)
			if err := v.ReadInConfig(); err != nil {
				return Settings{}, fmt.Errorf("failed to read settings: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks schema identity and value ranges.
func (s Settings) Validate() error {
	if s.APIVersion != SettingsAPIVersion {
		return fmt.Errorf("unsupported settings apiVersion %q (expected %q)", s.APIVersion, SettingsAPIVersion)
	}
	if s.Kind != SettingsKind {
		return fmt.Errorf("unsupported settings kind %q (expected %q)", s.Kind, SettingsKind)
	}
	if s.StatusConcurrency < 1 {
		return fmt.Errorf("status_concurrency must be at least 1, got %d", s.StatusConcurrency)
	}
	return nil
}

// SaveSettings writes s to path, creating the directory if needed.
func SaveSettings(s Settings, path string) error {
	if strings.TrimSpace(s.APIVersion) == "" {
		s.APIVersion = SettingsAPIVersion
	}
	if strings.TrimSpace(s.Kind) == "" {
		s.Kind = SettingsKind
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
