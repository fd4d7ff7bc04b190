package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"tradeRaffle/internal/model"
	"tradeRaffle/internal/storage"
)

var (
	snapshotBucket = []byte("snapshots")
	eventBucket    = []byte("events")
	latestKey      = []byte("latest")
)

// Store keeps snapshots and the event journal in a single bbolt file.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{snapshotBucket, eventBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the latest snapshot and keeps a copy keyed by seq.
func (s *Store) SaveSnapshot(_ context.Context, snap storage.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotBucket)
		if err := b.Put(latestKey, data); err != nil {
			return err
		}
		return b.Put(seqKey(snap.Seq), data)
	})
}

func (s *Store) LoadSnapshot(_ context.Context) (storage.Snapshot, bool, error) {
	var snap storage.Snapshot
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(snapshotBucket).Get(latestKey)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return storage.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, found, nil
}

// PutEvents appends events under monotonically increasing keys.
func (s *Store) PutEvents(_ context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(eventBucket)
		for _, event := range events {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			data, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			if err := b.Put(seqKey(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Events walks the journal in insertion order, optionally filtered by pot.
func (s *Store) Events(potID uint64, fn func(model.Event) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(eventBucket).ForEach(func(_, v []byte) error {
			var event model.Event
			if err := json.Unmarshal(v, &event); err != nil {
				return fmt.Errorf("parse event: %w", err)
			}
			if potID != 0 && event.PotID != potID {
				return nil
			}
			return fn(event)
		})
	})
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
