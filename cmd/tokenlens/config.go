package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/tokenlens/tokenlens/pkg/tokensource"
)

const defaultConfigPath = ".tokenlens/config.yaml"

// ProjectConfig holds the contents of .tokenlens/config.yaml. Every
// field is optional; flags override whatever is set here.
type ProjectConfig struct {
	// Document is the design-document JSON export to scan.
	Document string `yaml:"document"`

	// Tokens lists the token sources loaded for find, tokens and serve.
	Tokens []tokensource.Source `yaml:"tokens"`

	// Discover walks the working directory for token files when no
	// sources are listed.
	Discover         bool     `yaml:"discover"`
	DiscoverPatterns []string `yaml:"discover_patterns"`
	DiscoverExcludes []string `yaml:"discover_excludes"`

	// CachePath enables the persistent scan cache. Empty keeps scans
	// in memory only.
	CachePath       string `yaml:"cache_path"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`

	// Session scopes persistent cache entries. Empty derives a stable
	// session from the document path so repeated invocations share
	// cached scans.
	Session string `yaml:"session"`

	MaxNodesPerPage int `yaml:"max_nodes_per_page"`
	MaxDepth        int `yaml:"max_depth"`

	// CallLog is the JSONL tool-call log written by serve.
	CallLog string `yaml:"call_log"`

	// MetricsAddr serves Prometheus metrics and health endpoints when
	// set, for example "localhost:9190".
	MetricsAddr string `yaml:"metrics_addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// loadProjectConfig reads the project config named by --config, falling
// back to .tokenlens/config.yaml. A missing default file is not an
// error; a missing explicit --config is.
func loadProjectConfig() (*ProjectConfig, error) {
	path := flagConfig
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if flagConfig != "" {
			return nil, fmt.Errorf("config file %q not found", flagConfig)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// resolveDocument applies the flag > config chain. There is no default
// document: scanning without one is an error.
func resolveDocument(cfg *ProjectConfig) (string, error) {
	if flagDocument != "" {
		return flagDocument, nil
	}
	if cfg != nil && cfg.Document != "" {
		return cfg.Document, nil
	}
	return "", fmt.Errorf("no document given: pass --document or set document in %s", defaultConfigPath)
}

func resolveCallLog(cfg *ProjectConfig) string {
	if flagCallLog != "" {
		return flagCallLog
	}
	if cfg != nil {
		return cfg.CallLog
	}
	return ""
}

func resolveMetricsAddr(cfg *ProjectConfig) string {
	if flagMetricsAddr != "" {
		return flagMetricsAddr
	}
	if cfg != nil {
		return cfg.MetricsAddr
	}
	return ""
}
