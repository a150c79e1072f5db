// Package cache persists a compiled-program cache across process runs: for
// each source digest it remembers the source text, when it was last
// compiled, and how often it has been reused, without ever storing a
// serialized bytecode blob (internal/vm has
// no wire format for *vm.Program; this cache is purely an optimization,
// never a correctness dependency — a cold cache just means
// recompiling from source, per spec.md §9).
package cache

import (
	"database/sql"
	"encoding/binary"
	"fmt"

	_ "modernc.org/sqlite"
)

// formatMagic/formatVersion identify this cache's on-disk layout. A
// mismatch (future schema change, or a database written by a different
// xpvm build) means the whole cache is stale and is dropped rather than
// trusted, exactly as spec.md §9's persistence note requires ("versioned
// and endianness-explicit").
const (
	formatMagic   uint32 = 0x58504c32 // "XPL2"
	formatVersion uint16 = 1
)

// Cache is a SQLite-backed store of (digest -> source, stats), grounded on
// internal/ext/cache.go's Cache type (a digest-keyed on-disk cache with a
// version stamp that invalidates the whole cache on mismatch), retargeted
// from cached host binaries to cached compiled-program source.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) a cache database at path. A database
// whose format stamp is missing or does not match is wiped and recreated,
// since the cache is disposable; any other failure to open or initialize
// it is returned as an error.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	c := &Cache{db: db}
	if err := c.init(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func (c *Cache) init() error {
	if _, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value BLOB NOT NULL)`); err != nil {
		return fmt.Errorf("creating meta table: %w", err)
	}

	row := c.db.QueryRow(`SELECT value FROM meta WHERE key = 'format'`)
	var stored []byte
	switch err := row.Scan(&stored); err {
	case nil:
		if !validFormat(stored) {
			if err := c.reset(); err != nil {
				return err
			}
		}
	case sql.ErrNoRows:
		if err := c.reset(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("reading cache format stamp: %w", err)
	}
	return nil
}

func encodeFormat() []byte {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint32(buf[0:4], formatMagic)
	binary.LittleEndian.PutUint16(buf[4:6], formatVersion)
	return buf
}

func validFormat(stored []byte) bool {
	if len(stored) != 6 {
		return false
	}
	return binary.LittleEndian.Uint32(stored[0:4]) == formatMagic &&
		binary.LittleEndian.Uint16(stored[4:6]) == formatVersion
}

func (c *Cache) reset() error {
	if _, err := c.db.Exec(`DROP TABLE IF EXISTS programs`); err != nil {
		return fmt.Errorf("dropping stale programs table: %w", err)
	}
	if _, err := c.db.Exec(`
		CREATE TABLE programs (
			digest     TEXT PRIMARY KEY,
			source     TEXT NOT NULL,
			base_uri   TEXT NOT NULL,
			compiled_at INTEGER NOT NULL,
			hit_count   INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("creating programs table: %w", err)
	}
	if _, err := c.db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('format', ?)`,
		encodeFormat(),
	); err != nil {
		return fmt.Errorf("writing cache format stamp: %w", err)
	}
	return nil
}

// Entry is a previously cached program's source record.
type Entry struct {
	Digest     string
	Source     string
	BaseURI    string
	CompiledAt int64
	HitCount   int64
}

// Lookup returns the cached source for digest, if present, bumping its
// hit count. The caller still recompiles the source itself; Lookup only
// saves a disk read of the original file.
func (c *Cache) Lookup(digest string) (*Entry, error) {
	row := c.db.QueryRow(
		`SELECT digest, source, base_uri, compiled_at, hit_count FROM programs WHERE digest = ?`,
		digest,
	)
	var e Entry
	switch err := row.Scan(&e.Digest, &e.Source, &e.BaseURI, &e.CompiledAt, &e.HitCount); err {
	case nil:
	case sql.ErrNoRows:
		return nil, nil
	default:
		return nil, fmt.Errorf("looking up digest %s: %w", digest, err)
	}
	if _, err := c.db.Exec(`UPDATE programs SET hit_count = hit_count + 1 WHERE digest = ?`, digest); err != nil {
		return nil, fmt.Errorf("updating hit count for digest %s: %w", digest, err)
	}
	e.HitCount++
	return &e, nil
}

// Store records that digest was successfully compiled from source at
// compiledAt (a Unix timestamp, left to the caller since internal/cache has
// no Date.now()-equivalent of its own).
func (c *Cache) Store(digest, source, baseURI string, compiledAt int64) error {
	_, err := c.db.Exec(
		`INSERT INTO programs (digest, source, base_uri, compiled_at, hit_count)
		 VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT(digest) DO UPDATE SET source = excluded.source, base_uri = excluded.base_uri, compiled_at = excluded.compiled_at`,
		digest, source, baseURI, compiledAt,
	)
	if err != nil {
		return fmt.Errorf("storing digest %s: %w", digest, err)
	}
	return nil
}

// Clean removes every cached entry without touching the format stamp.
func (c *Cache) Clean() error {
	_, err := c.db.Exec(`DELETE FROM programs`)
	return err
}
