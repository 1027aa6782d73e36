package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/symgraph/internal/adapters"
)

var (
	// ErrInvalidPattern indicates a glob that does not compile
	ErrInvalidPattern = errors.New("invalid path pattern")

	// ErrUnknownAdapter indicates an enabled adapter that does not exist
	ErrUnknownAdapter = errors.New("unknown adapter")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidCacheSize indicates a negative cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidLimit indicates a negative size limit
	ErrInvalidLimit = errors.New("invalid limit")
)

// Validate checks the whole configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []error
	errs = append(errs, validatePaths(&cfg.Paths)...)
	errs = append(errs, validateAdapters(&cfg.Adapters)...)
	errs = append(errs, validateIndexer(&cfg.Indexer)...)
	errs = append(errs, validateOutput(&cfg.Output)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("validation failed:\n%w", err)
	}
	return nil
}

func validatePaths(cfg *PathsConfig) []error {
	var errs []error
	for _, group := range [][]string{cfg.Code, cfg.Ignore} {
		for _, p := range group {
			if _, err := glob.Compile(p, '/'); err != nil {
				errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err))
			}
		}
	}
	return errs
}

func validateAdapters(cfg *AdaptersConfig) []error {
	known := make(map[string]bool)
	var names []string
	for _, lang := range adapters.AllLanguages() {
		known[string(lang)] = true
		names = append(names, string(lang))
	}

	var errs []error
	for _, name := range cfg.Enabled {
		if !known[strings.ToLower(strings.TrimSpace(name))] {
			errs = append(errs, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownAdapter, name, strings.Join(names, ", ")))
		}
	}
	return errs
}

func validateIndexer(cfg *IndexerConfig) []error {
	var errs []error
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}
	return errs
}

func validateOutput(cfg *OutputConfig) []error {
	switch cfg.Format {
	case FormatTree, FormatJSON:
		return nil
	default:
		return []error{fmt.Errorf("%w: must be '%s' or '%s', got '%s'", ErrInvalidFormat, FormatTree, FormatJSON, cfg.Format)}
	}
}

func validateLimits(cfg *LimitsConfig) []error {
	var errs []error
	if cfg.MaxFileBytes < 0 {
		errs = append(errs, fmt.Errorf("%w: max_file_bytes cannot be negative, got %d", ErrInvalidLimit, cfg.MaxFileBytes))
	}
	for _, p := range cfg.Deny {
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err))
		}
	}
	return errs
}
