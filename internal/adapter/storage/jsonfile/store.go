// Package jsonfile persists records as JSON documents in a data directory.
//
// Each collection is one file rewritten in full on every change. Writes go
// to a temporary file first and replace the original with a rename, so a
// crash mid-write leaves the previous version intact.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"stellar-micro-donation/internal/core/domain"

	"github.com/rs/zerolog"
)

const (
	donationsFile = "donations.json"
	walletsFile   = "wallets.json"
)

// Store opens the collections under one data directory.
type Store struct {
	dir       string
	Donations *DonationRepo
	Wallets   *WalletRepo
}

// Open creates dir if needed and loads every collection from it.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	donations, err := openCollection[domain.Donation](filepath.Join(dir, donationsFile))
	if err != nil {
		return nil, err
	}
	wallets, err := openCollection[domain.Wallet](filepath.Join(dir, walletsFile))
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("dir", dir).
		Int("donations", len(donations.items)).
		Int("wallets", len(wallets.items)).
		Msg("JSON data store opened")

	return &Store{
		dir:       dir,
		Donations: &DonationRepo{c: donations},
		Wallets:   &WalletRepo{c: wallets},
	}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// collection is an ordered list of records mirrored to a single file.
type collection[T any] struct {
	mu    sync.RWMutex
	path  string
	items []T
}

func openCollection[T any](path string) (*collection[T], error) {
	c := &collection[T]{path: path}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&c.items); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return c, nil
}

// save writes the collection atomically. Caller holds the write lock.
func (c *collection[T]) save() error {
	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(tmp), err)
	}

	items := c.items
	if items == nil {
		items = []T{}
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", filepath.Base(c.path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", filepath.Base(tmp), err)
	}
	return os.Rename(tmp, c.path)
}

// mutate runs fn under the write lock and persists the result. On a save
// failure the in-memory items are restored.
func (c *collection[T]) mutate(fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.items
	next, err := fn(append([]T(nil), prev...))
	if err != nil {
		return err
	}
	c.items = next
	if err := c.save(); err != nil {
		c.items = prev
		return err
	}
	return nil
}

// snapshot returns a copy of the items.
func (c *collection[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// HealthCheck implements ports.HealthChecker for the data directory.
type HealthCheck struct {
	dir string
}

// NewHealthCheck creates a data directory health checker.
func NewHealthCheck(s *Store) *HealthCheck {
	return &HealthCheck{dir: s.dir}
}

// Ping verifies the data directory accepts writes.
func (h *HealthCheck) Ping(_ context.Context) error {
	f, err := os.CreateTemp(h.dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "datastore"
}
