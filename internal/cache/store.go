package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	leveldb "github.com/ipfs/go-ds-leveldb"
	"github.com/rs/zerolog"
	ldbopts "github.com/syndtr/goleveldb/leveldb/opt"

	"donation-tracker/internal/config"
)

var entryKey = datastore.NewKey("donations")

// Store persists a single Entry under a fixed key. It is best effort:
// reads report absence instead of failing and write errors are dropped.
type Store struct {
	ds     datastore.Datastore
	logger zerolog.Logger
}

// NewStore wraps a datastore.
func NewStore(ds datastore.Datastore, logger zerolog.Logger) *Store {
	return &Store{ds: ds, logger: logger.With().Str("component", "cache_store").Logger()}
}

// Read returns the stored entry. ok is false when nothing usable is stored.
func (s *Store) Read(ctx context.Context) (Entry, bool) {
	b, err := s.ds.Get(ctx, entryKey)
	if err != nil {
		if !errors.Is(err, datastore.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("cache read failed")
		}
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(b, &entry); err != nil {
		s.logger.Debug().Err(err).Msg("ignoring malformed cache entry")
		return Entry{}, false
	}
	return entry, true
}

// Write replaces the stored entry.
func (s *Store) Write(ctx context.Context, entry Entry) {
	b, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache encode failed")
		return
	}
	if err := s.ds.Put(ctx, entryKey, b); err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(b)).Msg("cache write failed")
	}
}

// Open builds the datastore selected by cfg. The returned closer releases it.
func Open(cfg config.CacheConfig) (datastore.Datastore, func() error, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory":
		ds := dssync.MutexWrap(datastore.NewMapDatastore())
		return ds, ds.Close, nil
	case "", "leveldb":
		if cfg.Path == "" {
			return nil, nil, fmt.Errorf("cache.path is required for the leveldb backend")
		}
		ds, err := leveldb.NewDatastore(cfg.Path, &leveldb.Options{
			Compression: ldbopts.NoCompression,
			NoSync:      false,
			Strict:      ldbopts.StrictAll,
			ReadOnly:    false,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open leveldb cache: %w", err)
		}
		return ds, ds.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
