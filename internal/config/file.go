package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the crawl file looked up when none is given.
const DefaultConfigFile = ".wordcrawl"

// File is the on-disk crawl file. It is written in JSON or YAML; YAML is a
// superset of JSON, so one decoder reads both.
//
// Pointer fields distinguish "not set" from a zero value, so that an
// explicit "maxDepth: 0" overrides the default.
type File struct {
	StartPages           []string          `yaml:"startPages,omitempty"`
	IgnoredURLs          []string          `yaml:"ignoredUrls,omitempty"`
	IgnoredWords         []string          `yaml:"ignoredWords,omitempty"`
	Parallelism          *int              `yaml:"parallelism,omitempty"`
	MaxDepth             *int              `yaml:"maxDepth,omitempty"`
	TimeoutSeconds       *int              `yaml:"timeoutSeconds,omitempty"`
	PopularWordCount     *int              `yaml:"popularWordCount,omitempty"`
	ParserTimeoutSeconds *int              `yaml:"parserTimeoutSeconds,omitempty"`
	ProfileOutputPath    string            `yaml:"profileOutputPath,omitempty"`
	ResultPath           string            `yaml:"resultPath,omitempty"`
	UserAgent            string            `yaml:"userAgent,omitempty"`
	MaxBodySize          *int64            `yaml:"maxBodySize,omitempty"`
	RequestsPerSecond    *float64          `yaml:"requestsPerSecond,omitempty"`
	ProxyURL             string            `yaml:"proxyUrl,omitempty"`
	Headers              map[string]string `yaml:"headers,omitempty"`
}

// LoadCrawlFile reads a crawl file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadCrawlFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// Apply overlays the fields set in the file onto cfg.
func (cf *File) Apply(cfg *Config) {
	if len(cf.StartPages) > 0 {
		cfg.StartPages = append([]string(nil), cf.StartPages...)
	}
	if len(cf.IgnoredURLs) > 0 {
		cfg.IgnoredURLs = append([]string(nil), cf.IgnoredURLs...)
	}
	if len(cf.IgnoredWords) > 0 {
		cfg.IgnoredWords = append([]string(nil), cf.IgnoredWords...)
	}
	if cf.Parallelism != nil {
		cfg.Parallelism = *cf.Parallelism
	}
	if cf.MaxDepth != nil {
		cfg.MaxDepth = *cf.MaxDepth
	}
	if cf.TimeoutSeconds != nil {
		cfg.Timeout = time.Duration(*cf.TimeoutSeconds) * time.Second
	}
	if cf.PopularWordCount != nil {
		cfg.PopularWordCount = *cf.PopularWordCount
	}
	if cf.ParserTimeoutSeconds != nil {
		cfg.ParserTimeout = time.Duration(*cf.ParserTimeoutSeconds) * time.Second
	}
	if cf.ProfileOutputPath != "" {
		cfg.ProfileOutputPath = cf.ProfileOutputPath
	}
	if cf.ResultPath != "" {
		cfg.ResultPath = cf.ResultPath
	}
	if cf.UserAgent != "" {
		cfg.UserAgent = cf.UserAgent
	}
	if cf.MaxBodySize != nil {
		cfg.MaxBodySize = *cf.MaxBodySize
	}
	if cf.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *cf.RequestsPerSecond
	}
	if cf.ProxyURL != "" {
		cfg.ProxyURL = cf.ProxyURL
	}
	if len(cf.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(cf.Headers))
		}
		for k, v := range cf.Headers {
			cfg.Headers[k] = v
		}
	}
}

// FindConfigFile searches for the crawl file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .wordcrawl in the current directory
// 3. Look for .wordcrawl in the user's home directory
//
// Returns the path to the crawl file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
