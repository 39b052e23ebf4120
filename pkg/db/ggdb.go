package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// KEGG module definitions cached per release. A row from another release is
// stale; when the current release cannot be looked up, rows younger than a
// maximum age are used instead.

const schema = `
CREATE TABLE IF NOT EXISTS module_definitions (
	module_id  TEXT NOT NULL,
	release    TEXT NOT NULL,
	name       TEXT NOT NULL,
	definition TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	fetch_id   TEXT NOT NULL,
	PRIMARY KEY (module_id, release)
);
CREATE TABLE IF NOT EXISTS module_universe (
	release    TEXT NOT NULL,
	position   INTEGER NOT NULL,
	module_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	fetch_id   TEXT NOT NULL,
	PRIMARY KEY (release, module_id)
);
`

type GGDB struct {
	path  string
	cache *sql.DB
}

type CachedModule struct {
	ID         string
	Name       string
	Definition string
	Release    string
	FetchedAt  time.Time
	FetchID    string
}

type UniverseEntry struct {
	ID   string
	Name string
}

type ReleaseStatus struct {
	Release   string
	Modules   int
	Universe  int
	NewestRow time.Time
}

// OpenGGDB opens (creating if needed) the sqlite cache at path.
func OpenGGDB(ctx context.Context, path string) (*GGDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	// One writer; sqlite serialises anyway.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &GGDB{path: path, cache: sqlDB}, nil
}

func (g *GGDB) Path() string { return g.path }

func (g *GGDB) Close() error { return g.cache.Close() }

func (g *GGDB) PutModule(ctx context.Context, m CachedModule) error {
	_, err := g.cache.ExecContext(ctx, `
		INSERT INTO module_definitions (module_id, release, name, definition, fetched_at, fetch_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (module_id, release) DO UPDATE SET
			name = excluded.name,
			definition = excluded.definition,
			fetched_at = excluded.fetched_at,
			fetch_id = excluded.fetch_id`,
		m.ID, m.Release, m.Name, m.Definition, m.FetchedAt.Unix(), m.FetchID)
	if err != nil {
		return fmt.Errorf("cache module %s: %w", m.ID, err)
	}
	return nil
}

// GetModule returns the definition stored for exactly this release.
func (g *GGDB) GetModule(ctx context.Context, release, id string) (*CachedModule, bool, error) {
	row := g.cache.QueryRowContext(ctx, `
		SELECT module_id, release, name, definition, fetched_at, fetch_id
		FROM module_definitions
		WHERE module_id = ? AND release = ?`, id, release)
	return scanModule(row)
}

// GetRecentModule returns the newest definition of any release fetched after since.
func (g *GGDB) GetRecentModule(ctx context.Context, id string, since time.Time) (*CachedModule, bool, error) {
	row := g.cache.QueryRowContext(ctx, `
		SELECT module_id, release, name, definition, fetched_at, fetch_id
		FROM module_definitions
		WHERE module_id = ? AND fetched_at >= ?
		ORDER BY fetched_at DESC
		LIMIT 1`, id, since.Unix())
	return scanModule(row)
}

func scanModule(row *sql.Row) (*CachedModule, bool, error) {
	var (
		m       CachedModule
		fetched int64
	)
	err := row.Scan(&m.ID, &m.Release, &m.Name, &m.Definition, &fetched, &m.FetchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached module: %w", err)
	}
	m.FetchedAt = time.Unix(fetched, 0)
	return &m, true, nil
}

// PutUniverse replaces the module list stored for release.
func (g *GGDB) PutUniverse(ctx context.Context, release string, entries []UniverseEntry, fetchedAt time.Time, fetchID string) error {
	tx, err := g.cache.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM module_universe WHERE release = ?`, release); err != nil {
		return fmt.Errorf("clear module list: %w", err)
	}
	stm, err := tx.PrepareContext(ctx, `
		INSERT INTO module_universe (release, position, module_id, name, fetched_at, fetch_id)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stm.Close()

	for i, e := range entries {
		if _, err := stm.ExecContext(ctx, release, i, e.ID, e.Name, fetchedAt.Unix(), fetchID); err != nil {
			return fmt.Errorf("cache module list entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

func (g *GGDB) Universe(ctx context.Context, release string) ([]UniverseEntry, error) {
	return g.queryUniverse(ctx, `
		SELECT module_id, name FROM module_universe
		WHERE release = ?
		ORDER BY position`, release)
}

// RecentUniverse returns the newest stored module list fetched after since and
// its release; an empty release means nothing qualifies.
func (g *GGDB) RecentUniverse(ctx context.Context, since time.Time) (string, []UniverseEntry, error) {
	var release string
	err := g.cache.QueryRowContext(ctx, `
		SELECT release FROM module_universe
		WHERE fetched_at >= ?
		ORDER BY fetched_at DESC
		LIMIT 1`, since.Unix()).Scan(&release)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("read cached module list: %w", err)
	}
	entries, err := g.Universe(ctx, release)
	return release, entries, err
}

func (g *GGDB) queryUniverse(ctx context.Context, query string, args ...any) ([]UniverseEntry, error) {
	rows, err := g.cache.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read cached module list: %w", err)
	}
	defer rows.Close()

	var out []UniverseEntry
	for rows.Next() {
		var e UniverseEntry
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("read cached module list: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Status summarises the cache per release, newest first.
func (g *GGDB) Status(ctx context.Context) ([]ReleaseStatus, error) {
	rows, err := g.cache.QueryContext(ctx, `
		WITH releases AS (
			SELECT release, COUNT(*) AS modules, 0 AS universe, MAX(fetched_at) AS newest
			FROM module_definitions GROUP BY release
			UNION ALL
			SELECT release, 0, COUNT(*), MAX(fetched_at)
			FROM module_universe GROUP BY release
		)
		SELECT release, SUM(modules), SUM(universe), MAX(newest)
		FROM releases
		GROUP BY release
		ORDER BY MAX(newest) DESC, release`)
	if err != nil {
		return nil, fmt.Errorf("read cache status: %w", err)
	}
	defer rows.Close()

	var out []ReleaseStatus
	for rows.Next() {
		var (
			s      ReleaseStatus
			newest int64
		)
		if err := rows.Scan(&s.Release, &s.Modules, &s.Universe, &newest); err != nil {
			return nil, fmt.Errorf("read cache status: %w", err)
		}
		s.NewestRow = time.Unix(newest, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}
