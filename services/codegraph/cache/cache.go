// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache stores encoded analysis results keyed by graph revision.
//
// Two backends are provided: an in-process LRU and Redis. Keys embed the
// graph revision, so a mutated graph simply stops hitting its old entries;
// DeleteGraph removes every entry of a graph when it is dropped.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache holds encoded analysis results.
//
// Thread Safety: Implementations are safe for concurrent use.
type Cache interface {
	// Get returns the value stored under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error

	// DeleteGraph removes every entry belonging to graphName.
	DeleteGraph(ctx context.Context, graphName string) error

	// Stats reports hit/miss counters since creation.
	Stats() Stats

	// Close releases backend resources.
	Close() error
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Config selects and tunes the cache backend.
type Config struct {
	// Backend is "memory", "redis" or "none".
	Backend string `yaml:"backend"`

	// Capacity is the maximum number of entries for the memory backend.
	Capacity int `yaml:"capacity"`

	// TTL bounds how long an entry lives. Zero means no expiry.
	TTL time.Duration `yaml:"ttl"`

	// RedisAddr is host:port of the Redis server.
	RedisAddr string `yaml:"redis_addr"`

	// RedisPassword is optional.
	RedisPassword string `yaml:"redis_password"`

	// RedisDB selects the Redis database number.
	RedisDB int `yaml:"redis_db"`

	// KeyPrefix namespaces Redis keys.
	KeyPrefix string `yaml:"key_prefix"`
}

// DefaultConfig returns an in-memory cache of 256 entries.
func DefaultConfig() Config {
	return Config{
		Backend:   "memory",
		Capacity:  256,
		TTL:       30 * time.Minute,
		KeyPrefix: "codegraph:",
	}
}

// New builds the backend selected by cfg. Backend "none" returns nil.
func New(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewLRU(cfg.Capacity, cfg.TTL), nil
	case "redis":
		return NewRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Key builds the cache key for one analysis of one graph revision.
// The graph name comes first so DeleteGraph can match by prefix.
func Key(graphName string, revision uint64, analysis string, params ...string) string {
	var sb strings.Builder
	sb.WriteString(graphPrefix(graphName))
	fmt.Fprintf(&sb, "%d:%s", revision, analysis)
	for _, p := range params {
		sb.WriteByte(':')
		sb.WriteString(p)
	}
	return sb.String()
}

func graphPrefix(graphName string) string {
	return graphName + ":"
}
