// Package storage persists collection snapshots in BadgerDB so repeated
// requests for the same scrip do not re-scrape the exchange.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/interfaces"
)

const snapshotKeyPrefix = "snapshot:"

// SnapshotStore is a Badger-backed implementation of
// interfaces.SnapshotStore. Values are JSON-encoded snapshots keyed by
// scrip code.
type SnapshotStore struct {
	db     *badger.DB
	logger arbor.ILogger
}

// NewSnapshotStore opens the snapshot database.
func NewSnapshotStore(config common.StorageConfig, logger arbor.ILogger) (*SnapshotStore, error) {
	if config.ResetOnInit && config.Path != "" {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing snapshot database")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete snapshot database")
			}
		}
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		opts = badger.DefaultOptions(config.Path)
	}
	opts.Logger = nil // arbor handles logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Snapshot database opened")

	return &SnapshotStore{db: db, logger: logger}, nil
}

// Put stores a snapshot, replacing any prior snapshot for the scrip.
func (s *SnapshotStore) Put(snapshot *interfaces.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(snapshot.ScripCode), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.logger.Debug().
		Str("scrip", snapshot.ScripCode).
		Int("rows", len(snapshot.Rows)).
		Msg("Snapshot stored")

	return nil
}

// Get returns the snapshot for a scrip code, reporting whether one exists.
func (s *SnapshotStore) Get(scripCode string) (*interfaces.Snapshot, bool, error) {
	var snapshot interfaces.Snapshot
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(scripCode))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &snapshot); err != nil {
				return fmt.Errorf("failed to unmarshal snapshot: %w", err)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	return &snapshot, true, nil
}

// Close closes the database.
func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func snapshotKey(scripCode string) []byte {
	return []byte(snapshotKeyPrefix + strings.TrimSpace(scripCode))
}
