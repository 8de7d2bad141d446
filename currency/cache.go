package currency

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS rate_cache (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	fetched_at DATETIME NOT NULL,
	payload TEXT NOT NULL
);
`

// Cache persists the last fetched rate table keyed by fetch timestamp, so a
// restarted process does not burn a fetch when fresh rates are already on
// disk.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if needed) the sqlite-backed rate cache.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Load returns the cached table and its fetch time. sql.ErrNoRows when the
// cache is empty.
func (c *Cache) Load() (Rates, time.Time, error) {
	var (
		fetchedAt time.Time
		payload   string
	)
	err := c.db.QueryRow(`SELECT fetched_at, payload FROM rate_cache WHERE id = 1`).
		Scan(&fetchedAt, &payload)
	if err != nil {
		return nil, time.Time{}, err
	}

	var rates Rates
	if err := json.Unmarshal([]byte(payload), &rates); err != nil {
		return nil, time.Time{}, err
	}
	return rates, fetchedAt, nil
}

// Store replaces the cached table.
func (c *Cache) Store(rates Rates, fetchedAt time.Time) error {
	payload, err := json.Marshal(rates)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(`
		INSERT INTO rate_cache (id, fetched_at, payload) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET fetched_at = excluded.fetched_at, payload = excluded.payload`,
		fetchedAt, string(payload))
	return err
}

func (c *Cache) Close() error {
	return c.db.Close()
}
