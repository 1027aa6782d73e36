// Package config loads symgraph settings.
//
// Priority, highest first:
//  1. Environment variables (SYMGRAPH_*, nested keys joined with "_")
//  2. Project config (.symgraph/config.yml or .symgraph/config.yaml)
//  3. Built-in defaults
package config

// Config is the complete symgraph configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Adapters AdaptersConfig `yaml:"adapters" mapstructure:"adapters"`
	Indexer  IndexerConfig  `yaml:"indexer" mapstructure:"indexer"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Limits   LimitsConfig   `yaml:"limits" mapstructure:"limits"`
}

// PathsConfig selects the files to analyse.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // Include globs; empty means every file an enabled adapter claims
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // Exclude globs, matched against files and directories
}

// AdaptersConfig selects the language adapters.
type AdaptersConfig struct {
	Enabled []string `yaml:"enabled" mapstructure:"enabled"` // Language tags; empty enables all
}

// IndexerConfig tunes extraction.
type IndexerConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`       // Parallel extractions; 0 uses the CPU count
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"` // Memoised extractions per adapter; 0 disables
}

// OutputConfig controls rendering of a run.
type OutputConfig struct {
	Format     string `yaml:"format" mapstructure:"format"`           // "tree" or "json"
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"` // Also write the run to this database when set
}

// LimitsConfig keeps sensitive and oversized files out of analysis.
type LimitsConfig struct {
	MaxFileBytes int64    `yaml:"max_file_bytes" mapstructure:"max_file_bytes"` // Larger files are reported as parse errors; 0 disables
	Deny         []string `yaml:"deny" mapstructure:"deny"`                     // Base-name globs that are never read, matched case-insensitively
}

const (
	FormatTree = "tree"
	FormatJSON = "json"
)

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				"**/*.min.js",
			},
		},
		Indexer: IndexerConfig{
			Workers:   0,
			CacheSize: 1024,
		},
		Output: OutputConfig{
			Format: FormatTree,
		},
		Limits: LimitsConfig{
			MaxFileBytes: 1 << 20,
			Deny: []string{
				".env",
				"*.pem",
				"*.key",
				"*.pfx",
				"*.p12",
				"id_rsa*",
				"secrets.*",
			},
		},
	}
}
