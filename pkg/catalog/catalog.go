// Package catalog keeps a persistent index of written captures in badger.
package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
)

const keyPrefix = "capture/"

// Catalog implements capture.Recorder.
type Catalog struct {
	db *badger.DB
}

// Open opens the catalog at path. An empty path keeps it in memory.
func Open(path string) (*Catalog, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	// Decrease logging verbosity
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func entryKey(path string) []byte {
	return []byte(keyPrefix + path)
}

// Record stores e, replacing any entry for the same path.
func (c *Catalog) Record(e capture.Entry) error {
	val, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e.Path), val)
	})
}

// Forget removes the entry for path. Unknown paths are ignored.
func (c *Catalog) Forget(path string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(path))
	})
}

// Get returns the entry for path, or nil if there is none.
func (c *Catalog) Get(path string) (*capture.Entry, error) {
	var e capture.Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(path))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns entries ordered by capture time. A non-nil kind filters them.
func (c *Catalog) List(kind *capture.TriggerKind) ([]capture.Entry, error) {
	var entries []capture.Entry
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var e capture.Entry
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &e)
			})
			if err != nil {
				return err
			}
			if kind != nil && e.Kind != *kind {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CapturedAt.Equal(entries[j].CapturedAt) {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].CapturedAt.Before(entries[j].CapturedAt)
	})
	return entries, nil
}

// Prune drops entries whose files are gone, for example after captures were
// deleted by hand. exists defaults to checking the local filesystem.
func (c *Catalog) Prune(exists func(path string) bool) (int, error) {
	if exists == nil {
		exists = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}
	var stale []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			path := strings.TrimPrefix(string(it.Item().Key()), keyPrefix)
			if !exists(path) {
				stale = append(stale, path)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for _, path := range stale {
		if err := wb.Delete(entryKey(path)); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(stale), nil
}
