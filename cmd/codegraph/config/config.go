// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the codegraph server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/codegraph/services/codegraph"
	"github.com/AleutianAI/codegraph/services/codegraph/cache"
	cgbadger "github.com/AleutianAI/codegraph/services/codegraph/storage/badger"
	neo4jstore "github.com/AleutianAI/codegraph/services/codegraph/storage/neo4j"
	"github.com/AleutianAI/codegraph/services/codegraph/telemetry"
)

// EnvConfigPath names the environment variable that overrides the default
// config path.
const EnvConfigPath = "CODEGRAPH_CONFIG"

// DefaultPath is used when neither a flag nor EnvConfigPath is set.
const DefaultPath = "codegraph.yaml"

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig            `yaml:"server"`
	Log       telemetry.LogConfig     `yaml:"log"`
	Telemetry telemetry.Config        `yaml:"telemetry"`
	Storage   StorageConfig           `yaml:"storage"`
	Cache     cache.Config            `yaml:"cache"`
	Neo4j     neo4jstore.Config       `yaml:"neo4j"`
	Analysis  codegraph.ServiceConfig `yaml:"analysis"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8090"
	Addr string `yaml:"addr"`

	// ReadTimeout bounds reading a request, body included.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing a response.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RateLimit is the sustained analysis request rate per second.
	// Zero disables limiting.
	// Default: 20
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the analysis request burst size.
	// Default: 40
	RateBurst int `yaml:"rate_burst"`
}

// StorageConfig enables the persistent graph store.
type StorageConfig struct {
	// Enabled turns on persistence. Default: false
	Enabled bool `yaml:"enabled"`

	cgbadger.Config `yaml:",inline"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8090",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
		},
		Log: telemetry.LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Telemetry: telemetry.DefaultConfig(),
		Storage: StorageConfig{
			Config: cgbadger.DefaultConfig(),
		},
		Cache:    cache.DefaultConfig(),
		Analysis: codegraph.DefaultServiceConfig(),
	}
}

// ResolvePath picks the config path: the explicit flag value, then
// EnvConfigPath, then DefaultPath. explicit reports whether the file was
// asked for by name and so must exist.
func ResolvePath(flagValue string) (path string, explicit bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, true
	}
	return DefaultPath, false
}

// Load reads the configuration at path over DefaultConfig and validates it.
//
// Description:
//
//	Fields absent from the file keep their defaults. When explicit is
//	false a missing file is not an error and the defaults are returned.
//
// Errors:
//
//	Returns an error if the file cannot be read or parsed, or if the
//	result fails Validate.
func Load(path string, explicit bool) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem found in cfg.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, errors.New("server.rate_burst must be at least 1 when rate_limit is set"))
	}

	switch c.Cache.Backend {
	case "", "none", "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of memory, redis, none", c.Cache.Backend))
	}

	if c.Storage.Enabled && !c.Storage.InMemory && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required when storage is enabled"))
	}

	switch c.Telemetry.TraceExporter {
	case "", "none", "otlp", "stdout":
	default:
		errs = append(errs, fmt.Errorf("telemetry.trace_exporter %q is not one of otlp, stdout, none", c.Telemetry.TraceExporter))
	}
	switch c.Telemetry.MetricExporter {
	case "", "none", "prometheus", "stdout":
	default:
		errs = append(errs, fmt.Errorf("telemetry.metric_exporter %q is not one of prometheus, stdout, none", c.Telemetry.MetricExporter))
	}

	if c.Analysis.MaxPaths < 0 || c.Analysis.DefaultMaxDepth < 0 || c.Analysis.MaxClosureNodes < 0 {
		errs = append(errs, errors.New("analysis limits must not be negative"))
	}

	return errors.Join(errs...)
}
