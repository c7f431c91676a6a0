// Package bolt provides a bbolt-backed profile store. Each owner's trip list
// is one JSON value keyed by the hashed owner ID, written in a single
// transaction so a PUT is atomic.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/aeroscan/aeroscan/profile"
)

const (
	// dirPerm is the permission mode for the database directory
	dirPerm = fs.FileMode(0o700)

	// filePerm is the permission mode for the database file
	filePerm = fs.FileMode(0o600)

	// openTimeout is the maximum time to wait for the bolt file lock
	openTimeout = 5 * time.Second
)

var tripsBucket = []byte("trips")

// Store wraps a bbolt database holding per-owner trip lists.
type Store struct {
	db *bbolt.DB
}

var _ profile.Store = (*Store)(nil)

// Open opens (creating if needed) the profile database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating profile db directory: %w", err)
	}

	db, err := bbolt.Open(path, filePerm, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening profile db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tripsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating trips bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// GetTrips returns the owner's saved trip list. A missing owner yields an
// empty list, not an error.
func (s *Store) GetTrips(_ context.Context, ownerID string) ([]profile.Trip, error) {
	var trips []profile.Trip

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(tripsBucket).Get([]byte(ownerID))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &trips)
	})
	if err != nil {
		return nil, fmt.Errorf("reading trips for owner: %w", err)
	}

	if trips == nil {
		trips = []profile.Trip{}
	}
	return trips, nil
}

// PutTrips replaces the owner's trip list in one transaction.
func (s *Store) PutTrips(_ context.Context, ownerID string, trips []profile.Trip) error {
	raw, err := json.Marshal(trips)
	if err != nil {
		return fmt.Errorf("encoding trips: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tripsBucket).Put([]byte(ownerID), raw)
	})
	if err != nil {
		return fmt.Errorf("writing trips for owner: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
