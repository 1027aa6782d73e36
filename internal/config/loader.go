package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// StateDir is the per-project directory holding config.yml.
const StateDir = ".symgraph"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load reads defaults, then the config file, then environment variables.
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a loader for the project rooted at rootDir.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, StateDir))

	v.SetEnvPrefix("SYMGRAPH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"paths.code",
		"paths.ignore",
		"adapters.enabled",
		"indexer.workers",
		"indexer.cache_size",
		"output.format",
		"output.sqlite_path",
		"limits.max_file_bytes",
		"limits.deny",
	} {
		_ = v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("paths.code", d.Paths.Code)
	v.SetDefault("paths.ignore", d.Paths.Ignore)
	v.SetDefault("adapters.enabled", d.Adapters.Enabled)
	v.SetDefault("indexer.workers", d.Indexer.Workers)
	v.SetDefault("indexer.cache_size", d.Indexer.CacheSize)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.sqlite_path", d.Output.SQLitePath)
	v.SetDefault("limits.max_file_bytes", d.Limits.MaxFileBytes)
	v.SetDefault("limits.deny", d.Limits.Deny)
}

// LoadConfig loads configuration for the current working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration for the project rooted at rootDir.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
