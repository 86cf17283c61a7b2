// Package index implements the rebuildable relational+full-text retrieval
// index: the memories table, its FTS5 shadow, and the operations that keep
// it and the chain log consistent (spec §4.4).
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	_ "modernc.org/sqlite"
)

// DecayTier enumerates maintenance decay tiers.
type DecayTier string

const (
	DecayHot      DecayTier = "hot"
	DecayWarm     DecayTier = "warm"
	DecayCold     DecayTier = "cold"
	DecayArchived DecayTier = "archived"
)

// Source enumerates how a memory row entered the index.
type Source string

const (
	SourceAuto     Source = "auto"
	SourceManual   Source = "manual"
	SourceCuration Source = "curation"
)

// ErrNotFound is returned by Get for an absent seq.
var ErrNotFound = errors.New("index: memory not found")

// schemaVersion is recorded in index_meta after every migration; bumped when
// the on-disk schema changes in a way callers should be able to detect. It
// does not decide whether the decay_tier/source backfill runs.
var schemaVersion = semver.MustParse("1.1.0")

// Memory is one row of the memories table (spec §3).
type Memory struct {
	Seq          uint64
	Content      string
	Summary      string
	Type         string
	Tier         string
	Importance   float64
	AccessCount  int64
	LastAccessed *time.Time
	CreatedAt    time.Time
	DecayTier    DecayTier
	Source       Source
}

// Index is a handle on the index database.
type Index struct {
	db *sql.DB
}

// Open opens (creating if absent) the index database at path and runs the
// schema migration.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("index: open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline, matches sync.Mutex-free design

	idx := &Index{db: db}
	if err := idx.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// Close closes the underlying database handle.
func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) migrate(ctx context.Context) error {
	var journalMode string
	if err := i.db.QueryRowContext(ctx, `PRAGMA journal_mode=WAL`).Scan(&journalMode); err != nil {
		return fmt.Errorf("index: enable WAL: %w", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			seq INTEGER PRIMARY KEY,
			content TEXT NOT NULL,
			summary TEXT,
			type TEXT NOT NULL,
			tier TEXT NOT NULL,
			importance REAL NOT NULL DEFAULT 0.5,
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed DATETIME,
			created_at DATETIME NOT NULL,
			decay_tier TEXT NOT NULL DEFAULT 'hot',
			source TEXT NOT NULL DEFAULT 'manual'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_decay_access ON memories(decay_tier, last_accessed)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_source ON memories(source)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(content, summary, content='memories', content_rowid='seq')`,
		`CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
			INSERT INTO memories_fts(rowid, content, summary) VALUES (new.seq, new.content, new.summary);
		END`,
		`CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
			INSERT INTO memories_fts(memories_fts, rowid, content, summary) VALUES ('delete', old.seq, old.content, old.summary);
		END`,
		`CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
			INSERT INTO memories_fts(memories_fts, rowid, content, summary) VALUES ('delete', old.seq, old.content, old.summary);
			INSERT INTO memories_fts(rowid, content, summary) VALUES (new.seq, new.content, new.summary);
		END`,
		`CREATE TABLE IF NOT EXISTS index_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := i.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("index: migrate: %w", err)
		}
	}
	return i.backfillLegacyColumns(ctx)
}

// backfillLegacyColumns handles databases created before decay_tier/source
// existed: older index databases lack these columns entirely, in which case
// CREATE TABLE IF NOT EXISTS above is a no-op and ALTER TABLE is required.
// Every open inspects the table's columns and adds only the missing ones, so
// repeated opens alter nothing.
func (i *Index) backfillLegacyColumns(ctx context.Context) error {
	hasCol := func(name string) (bool, error) {
		rows, err := i.db.QueryContext(ctx, `PRAGMA table_info(memories)`)
		if err != nil {
			return false, err
		}
		defer rows.Close()
		for rows.Next() {
			var cid int
			var colName, colType string
			var notNull, pk int
			var dflt sql.NullString
			if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
				return false, err
			}
			if colName == name {
				return true, nil
			}
		}
		return false, rows.Err()
	}

	ok, err := hasCol("decay_tier")
	if err != nil {
		return fmt.Errorf("index: inspect schema: %w", err)
	}
	if !ok {
		if _, err := i.db.ExecContext(ctx, `ALTER TABLE memories ADD COLUMN decay_tier TEXT NOT NULL DEFAULT 'hot'`); err != nil {
			return fmt.Errorf("index: backfill decay_tier: %w", err)
		}
	}
	ok, err = hasCol("source")
	if err != nil {
		return fmt.Errorf("index: inspect schema: %w", err)
	}
	if !ok {
		if _, err := i.db.ExecContext(ctx, `ALTER TABLE memories ADD COLUMN source TEXT NOT NULL DEFAULT 'manual'`); err != nil {
			return fmt.Errorf("index: backfill source: %w", err)
		}
	}

	_, err = i.db.ExecContext(ctx, `INSERT INTO index_meta(key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, schemaVersion.String())
	if err != nil {
		return fmt.Errorf("index: record schema version: %w", err)
	}
	return nil
}

// Insert adds a new memory row.
func (i *Index) Insert(ctx context.Context, m Memory) error {
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO memories(seq, content, summary, type, tier, importance, access_count, last_accessed, created_at, decay_tier, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Seq, m.Content, m.Summary, m.Type, m.Tier, m.Importance, m.AccessCount,
		nullableTime(m.LastAccessed), m.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(m.DecayTier), string(m.Source))
	if err != nil {
		return fmt.Errorf("index: insert seq %d: %w", m.Seq, err)
	}
	return nil
}

// Get returns the memory row at seq.
func (i *Index) Get(ctx context.Context, seq uint64) (Memory, error) {
	row := i.db.QueryRowContext(ctx, `
		SELECT seq, content, summary, type, tier, importance, access_count, last_accessed, created_at, decay_tier, source
		FROM memories WHERE seq = ?`, seq)
	return scanMemory(row)
}

// UpdateAccess increments access_count and sets last_accessed=now. This
// write MUST be visible to subsequent retrievals within the same open
// handle (spec §5) — SQLite's default transaction isolation gives that for
// free since all access goes through this one *sql.DB.
func (i *Index) UpdateAccess(ctx context.Context, seq uint64, now time.Time) error {
	res, err := i.db.ExecContext(ctx, `
		UPDATE memories SET access_count = access_count + 1, last_accessed = ? WHERE seq = ?`,
		now.UTC().Format(time.RFC3339Nano), seq)
	if err != nil {
		return fmt.Errorf("index: update access seq %d: %w", seq, err)
	}
	return checkRowsAffected(res, seq)
}

// UpdateImportance sets importance, clamped to [0,1].
func (i *Index) UpdateImportance(ctx context.Context, seq uint64, importance float64) error {
	if importance < 0 {
		importance = 0
	}
	if importance > 1 {
		importance = 1
	}
	res, err := i.db.ExecContext(ctx, `UPDATE memories SET importance = ? WHERE seq = ?`, importance, seq)
	if err != nil {
		return fmt.Errorf("index: update importance seq %d: %w", seq, err)
	}
	return checkRowsAffected(res, seq)
}

// UpdateSummary sets the extractive summary text.
func (i *Index) UpdateSummary(ctx context.Context, seq uint64, summary string) error {
	res, err := i.db.ExecContext(ctx, `UPDATE memories SET summary = ? WHERE seq = ?`, summary, seq)
	if err != nil {
		return fmt.Errorf("index: update summary seq %d: %w", seq, err)
	}
	return checkRowsAffected(res, seq)
}

// UpdateDecayTier sets decay_tier directly (used by maintenance).
func (i *Index) UpdateDecayTier(ctx context.Context, seq uint64, tier DecayTier) error {
	res, err := i.db.ExecContext(ctx, `UPDATE memories SET decay_tier = ? WHERE seq = ?`, string(tier), seq)
	if err != nil {
		return fmt.Errorf("index: update decay tier seq %d: %w", seq, err)
	}
	return checkRowsAffected(res, seq)
}

// Delete removes a memory row.
func (i *Index) Delete(ctx context.Context, seq uint64) error {
	res, err := i.db.ExecContext(ctx, `DELETE FROM memories WHERE seq = ?`, seq)
	if err != nil {
		return fmt.Errorf("index: delete seq %d: %w", seq, err)
	}
	return checkRowsAffected(res, seq)
}

// Stats summarizes the index for the `stats` CLI command and index_meta.
type Stats struct {
	Count       int
	LastRebuild *time.Time
}

// Stats returns the current row count and last rebuild timestamp.
func (i *Index) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.Count); err != nil {
		return st, fmt.Errorf("index: count: %w", err)
	}
	var raw sql.NullString
	if err := i.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = 'last_rebuild'`).Scan(&raw); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("index: read last_rebuild: %w", err)
	}
	if raw.Valid {
		t, err := time.Parse(time.RFC3339Nano, raw.String)
		if err == nil {
			st.LastRebuild = &t
		}
	}
	return st, nil
}

func checkRowsAffected(res sql.Result, seq uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("index: rows affected for seq %d: %w", seq, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (Memory, error) {
	var m Memory
	var lastAccessed sql.NullString
	var createdAt string
	var decayTier, source string
	err := row.Scan(&m.Seq, &m.Content, &m.Summary, &m.Type, &m.Tier, &m.Importance,
		&m.AccessCount, &lastAccessed, &createdAt, &decayTier, &source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Memory{}, ErrNotFound
		}
		return Memory{}, fmt.Errorf("index: scan row: %w", err)
	}
	if lastAccessed.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastAccessed.String)
		if err == nil {
			m.LastAccessed = &t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		m.CreatedAt = t
	}
	m.DecayTier = DecayTier(decayTier)
	m.Source = Source(source)
	return m, nil
}
