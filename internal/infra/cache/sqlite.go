// Package cache provides a SQLite index of downloaded images so that restarts
// reuse files already on disk.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the image index.
	DefaultDBPath = "data/images.db"
)

// ErrClosed is returned when the database is not open.
var ErrClosed = errors.New("database not open")

// DB is the SQLite image index.
type DB struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewDB creates a new index instance.
func NewDB(path string) *DB {
	if path == "" {
		path = DefaultDBPath
	}
	return &DB{
		path: path,
	}
}

// Open opens the database and initializes the schema.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d.db = db

	if err := d.initSchema(); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", d.path).Msg("Image index opened")
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

func (d *DB) initSchema() error {
	currentVersion := d.getSchemaVersion()

	if currentVersion == "" {
		if err := d.createSchema(); err != nil {
			return err
		}
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	if currentVersion != CurrentSchemaVersion {
		log.Info().
			Str("current", currentVersion).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating image index schema")
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	return nil
}

func (d *DB) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		uri TEXT PRIMARY KEY,
		image_uri TEXT NOT NULL,
		file_path TEXT NOT NULL,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		file_size INTEGER DEFAULT 0,
		fetched_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cache_meta (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_image_uri ON images(image_uri);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info().Msg("Image index schema created")
	return nil
}

func (d *DB) getSchemaVersion() string {
	var version string
	err := d.db.QueryRow("SELECT value FROM cache_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

func (d *DB) setMeta(key, value string) error {
	now := time.Now().Format(time.RFC3339)
	_, err := d.db.Exec(`
		INSERT INTO cache_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, now, value, now)
	return err
}

func (d *DB) getMeta(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM cache_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Put records the file holding the image of uri.
func (d *DB) Put(e Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrClosed
	}

	fetched := e.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	_, err := d.db.Exec(`
		INSERT INTO images (uri, image_uri, file_path, width, height, file_size, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			image_uri = excluded.image_uri,
			file_path = excluded.file_path,
			width = excluded.width,
			height = excluded.height,
			file_size = excluded.file_size,
			fetched_at = excluded.fetched_at
	`, e.URI, e.ImageURI, e.FilePath, e.Width, e.Height, e.FileSize, fetched.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store image %s: %w", e.URI, err)
	}
	return d.setMeta("last_updated", time.Now().Format(time.RFC3339))
}

// Get returns the entry of uri. A missing entry is reported with ok false.
func (d *DB) Get(uri string) (Entry, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return Entry{}, false, ErrClosed
	}

	var e Entry
	var fetched string
	err := d.db.QueryRow(`
		SELECT uri, image_uri, file_path, width, height, file_size, fetched_at
		FROM images WHERE uri = ?
	`, uri).Scan(&e.URI, &e.ImageURI, &e.FilePath, &e.Width, &e.Height, &e.FileSize, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read image %s: %w", uri, err)
	}
	e.FetchedAt, _ = time.Parse(time.RFC3339, fetched)
	return e, true, nil
}

// FindByImageURI returns an entry already holding imageURI, so that albums
// sharing one cover reuse the downloaded file.
func (d *DB) FindByImageURI(imageURI string) (Entry, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return Entry{}, false, ErrClosed
	}

	var e Entry
	var fetched string
	err := d.db.QueryRow(`
		SELECT uri, image_uri, file_path, width, height, file_size, fetched_at
		FROM images WHERE image_uri = ? LIMIT 1
	`, imageURI).Scan(&e.URI, &e.ImageURI, &e.FilePath, &e.Width, &e.Height, &e.FileSize, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to find image %s: %w", imageURI, err)
	}
	e.FetchedAt, _ = time.Parse(time.RFC3339, fetched)
	return e, true, nil
}

// Delete removes the entry of uri.
func (d *DB) Delete(uri string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrClosed
	}
	_, err := d.db.Exec("DELETE FROM images WHERE uri = ?", uri)
	return err
}

// GetStats returns index statistics.
func (d *DB) GetStats() (*Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrClosed
	}

	stats := &Stats{}
	err := d.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM images").
		Scan(&stats.ImageCount, &stats.TotalBytes)
	if err != nil {
		return nil, err
	}

	stats.SchemaVersion, _ = d.getMeta("schema_version")
	if lastUpdated, _ := d.getMeta("last_updated"); lastUpdated != "" {
		stats.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	}

	return stats, nil
}

// Clear removes all entries but keeps the schema.
func (d *DB) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrClosed
	}

	if _, err := d.db.Exec("DELETE FROM images"); err != nil {
		return fmt.Errorf("failed to clear images: %w", err)
	}

	if err := d.setMeta("last_updated", time.Now().Format(time.RFC3339)); err != nil {
		return err
	}

	log.Info().Msg("Image index cleared")
	return nil
}
