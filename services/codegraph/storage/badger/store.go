// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
	"github.com/AleutianAI/codegraph/services/codegraph/storage"
)

const (
	graphPrefix   = "graph/"
	summaryPrefix = "summary/"
)

// GraphStore saves and loads graph snapshots.
//
// Thread Safety: Safe for concurrent use.
type GraphStore struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

// NewGraphStore creates a store over an open database.
func NewGraphStore(db *DB, logger *slog.Logger) *GraphStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphStore{
		db:     db,
		logger: logger.With(slog.String("component", "graph_store")),
		now:    time.Now,
	}
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: %q", storage.ErrInvalidName, name)
	}
	return nil
}

// Save writes g under name, replacing any previous snapshot.
//
// Description:
//
//	The document and its summary are written in one transaction, so a
//	reader never sees one without the other.
//
// Errors:
//
//	storage.ErrInvalidName - name is empty or contains '/'
func (s *GraphStore) Save(ctx context.Context, name string, g *graph.Graph) error {
	if err := validateName(name); err != nil {
		return err
	}

	data, err := graph.MarshalDocument(g)
	if err != nil {
		return fmt.Errorf("encode graph %s: %w", name, err)
	}
	summary := storage.Summary{
		Name:      name,
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
		SizeBytes: len(data),
		SavedAt:   s.now().UTC(),
	}
	summaryData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary %s: %w", name, err)
	}

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set([]byte(graphPrefix+name), data); err != nil {
			return err
		}
		return txn.Set([]byte(summaryPrefix+name), summaryData)
	})
	if err != nil {
		return fmt.Errorf("save graph %s: %w", name, err)
	}

	s.logger.Debug("graph saved",
		slog.String("graph", name),
		slog.Int("nodes", summary.NodeCount),
		slog.Int("edges", summary.EdgeCount),
		slog.Int("bytes", summary.SizeBytes))
	return nil
}

// Load reads the snapshot stored under name.
//
// Errors:
//
//	storage.ErrGraphNotFound - nothing is stored under name
//	graph.ErrMalformedDocument - the stored document is corrupt
func (s *GraphStore) Load(ctx context.Context, name string, opts ...graph.JSONOption) (*graph.Graph, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(graphPrefix + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrGraphNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", name, err)
	}

	opts = append([]graph.JSONOption{graph.WithJSONLogger(s.logger)}, opts...)
	return graph.UnmarshalDocument(data, opts...)
}

// Delete removes the snapshot stored under name.
//
// Errors:
//
//	storage.ErrGraphNotFound - nothing is stored under name
func (s *GraphStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(summaryPrefix + name)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(graphPrefix + name)); err != nil {
			return err
		}
		return txn.Delete([]byte(summaryPrefix + name))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", storage.ErrGraphNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("delete graph %s: %w", name, err)
	}
	return nil
}

// List returns the summaries of all stored graphs ordered by name.
func (s *GraphStore) List(ctx context.Context) ([]storage.Summary, error) {
	summaries := make([]storage.Summary, 0)
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(summaryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var summary storage.Summary
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &summary)
			})
			if err != nil {
				return fmt.Errorf("decode summary %s: %w", it.Item().Key(), err)
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	return summaries, nil
}
