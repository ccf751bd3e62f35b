// Package usage records last-access times for cached bundles in a
// small local database and implements the fail-safe purge used by
// cache garbage collection.
//
// The database is a single-writer-per-process resource: cross-process
// concurrency on the cache payloads themselves is handled by the cache
// package's rename protocol, not here. Fleet-wide purge runs must be
// serialized externally, one process per cache root.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
	bolt "go.etcd.io/bbolt"
)

// Record is the stored usage entry for one bundle, keyed by its
// cache-relative path.
type Record struct {
	LastAccess time.Time `json:"last_access"`
	FirstSeen  time.Time `json:"first_seen"`
}

// Bundle pairs a tracked bundle's cache-relative path with its record.
type Bundle struct {
	Path   string
	Record Record
}

// Tracker owns the usage database for one cache root.
type Tracker struct {
	root string
	db   *bolt.DB
	now  func() time.Time
}

// Open opens (creating if needed) the usage database under cacheRoot.
func Open(cacheRoot string) (*Tracker, error) {
	if cacheRoot == "" {
		return nil, helpers.ErrCacheRootEmpty
	}
	if err := os.MkdirAll(cacheRoot, helpers.DirMod); err != nil {
		return nil, err
	}
	db, err := bolt.Open(filepath.Join(cacheRoot, helpers.UsageDBFile), helpers.FileMod, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(helpers.UsageBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Tracker{root: cacheRoot, db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (t *Tracker) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	err := t.db.Close()
	t.db = nil
	return err
}

// Root returns the cache root the tracker is bound to.
func (t *Tracker) Root() string {
	return t.root
}

// Track records an access for the bundle at relPath, creating the
// record on first sight.
func (t *Tracker) Track(relPath string) error {
	if t == nil || t.db == nil {
		return helpers.ErrUsageDatabaseClosed
	}
	now := t.now()
	return t.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(helpers.UsageBucket))
		record := Record{LastAccess: now, FirstSeen: now}
		if raw := bucket.Get([]byte(relPath)); raw != nil {
			var existing Record
			if err := json.Unmarshal(raw, &existing); err == nil && !existing.FirstSeen.IsZero() {
				record.FirstSeen = existing.FirstSeen
			}
		}
		return putRecord(bucket, relPath, record)
	})
}

// InitialPopulate scans the cache root and creates first-seen records
// for every bundle that is not yet tracked. Running it again neither
// duplicates nor resets entries.
func (t *Tracker) InitialPopulate() error {
	if t == nil || t.db == nil {
		return helpers.ErrUsageDatabaseClosed
	}
	bundles, err := scanBundles(t.root)
	if err != nil {
		return err
	}
	now := t.now()
	return t.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(helpers.UsageBucket))
		for _, relPath := range bundles {
			if bucket.Get([]byte(relPath)) != nil {
				continue
			}
			if err := putRecord(bucket, relPath, Record{LastAccess: now, FirstSeen: now}); err != nil {
				return err
			}
		}
		return nil
	})
}

// UnusedBundles returns all tracked bundles whose last access is older
// than sinceDays days, sorted by path for deterministic output.
func (t *Tracker) UnusedBundles(sinceDays int) ([]Bundle, error) {
	if t == nil || t.db == nil {
		return nil, helpers.ErrUsageDatabaseClosed
	}
	cutoff := t.now().Add(-time.Duration(sinceDays) * helpers.SecondsPerDay * time.Second)

	var out []Bundle
	err := t.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(helpers.UsageBucket))
		return bucket.ForEach(func(key, raw []byte) error {
			var record Record
			if err := json.Unmarshal(raw, &record); err != nil {
				return fmt.Errorf("corrupt usage record %q: %w", string(key), err)
			}
			if record.LastAccess.Before(cutoff) {
				out = append(out, Bundle{Path: string(key), Record: record})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// Tracked reports whether relPath has a usage record.
func (t *Tracker) Tracked(relPath string) (bool, error) {
	if t == nil || t.db == nil {
		return false, helpers.ErrUsageDatabaseClosed
	}
	var found bool
	err := t.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(helpers.UsageBucket)).Get([]byte(relPath)) != nil
		return nil
	})
	return found, err
}

// deleteRecord removes the usage record for relPath.
func (t *Tracker) deleteRecord(relPath string) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(helpers.UsageBucket)).Delete([]byte(relPath))
	})
}

func putRecord(bucket *bolt.Bucket, relPath string, record Record) error {
	raw, err := json.Marshal(&record)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(relPath), raw)
}

// scanBundles walks the cache root and returns cache-relative bundle
// paths. A directory counts as a bundle when it carries an info.yml
// manifest or is a leaf directory with no subdirectories; intermediate
// name/org folders are descended through.
func scanBundles(root string) ([]string, error) {
	var bundles []string
	families, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, family := range families {
		if !family.IsDir() || family.Name() == helpers.CacheTmpDir {
			continue
		}
		if err := scanDir(root, filepath.Join(root, family.Name()), &bundles); err != nil {
			return nil, err
		}
	}
	sort.Strings(bundles)
	return bundles, nil
}

func scanDir(root, dir string, bundles *[]string) error {
	if isBundleDir(dir) {
		relPath, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		*bundles = append(*bundles, relPath)
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := scanDir(root, filepath.Join(dir, entry.Name()), bundles); err != nil {
				return err
			}
		}
	}
	return nil
}

// isBundleDir reports whether dir is a bundle payload directory.
// Presence of the directory, not the manifest, is what determines
// "cached", so manifest-less leaf directories count too.
func isBundleDir(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, helpers.ManifestFile)); err == nil {
		return true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return false
		}
	}
	return true
}
