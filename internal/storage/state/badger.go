package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore is a Store backed by an on-disk Badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the database directory at path.
func OpenBadger(path string) (*BadgerStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state: path is required")
	}
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Watermark(ctx context.Context, pair string) (time.Time, bool, error) {
	var ts time.Time
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(watermarkKey(pair))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return ts.UnmarshalBinary(val)
		})
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, found, nil
}

func (s *BadgerStore) SetWatermark(ctx context.Context, pair string, ts time.Time) error {
	val, err := ts.UTC().MarshalBinary()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(watermarkKey(pair), val)
	})
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
