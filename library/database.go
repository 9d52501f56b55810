package library

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"
)

// SQLiteStore keeps every saved catalog as a checksummed snapshot row in a
// SQLite database. Load returns the newest snapshot; older ones are pruned once
// more than the configured history has accumulated.
type SQLiteStore struct {
	db      *sql.DB
	history int

	insertStmt *sql.Stmt
	latestStmt *sql.Stmt
	pruneStmt  *sql.Stmt
}

// Snapshot describes one saved catalog without its payload.
type Snapshot struct {
	ID       int64
	Name     string
	Size     int
	Checksum string
	SavedAt  time.Time
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath, applies
// schema migrations, and prepares common statements. history is the number of
// snapshots kept; values below one keep a single snapshot.
func NewSQLiteStore(dbPath string, history int) (*SQLiteStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	if history < 1 {
		history = 1
	}
	s := &SQLiteStore{db: db, history: history}
	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases prepared statements and closes the DB.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.latestStmt, s.pruneStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            data BLOB NOT NULL,
            checksum TEXT NOT NULL,
            saved_at DATETIME NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *SQLiteStore) prepareStatements() error {
	var err error
	if s.insertStmt, err = s.db.Prepare(`INSERT INTO snapshots(name,data,checksum,saved_at) VALUES(?,?,?,?)`); err != nil {
		return err
	}
	if s.latestStmt, err = s.db.Prepare(`SELECT data,checksum FROM snapshots ORDER BY id DESC LIMIT 1`); err != nil {
		return err
	}
	if s.pruneStmt, err = s.db.Prepare(`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

func checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Load returns the newest snapshot. A snapshot whose checksum does not match its
// payload yields ErrCorruptStore.
func (s *SQLiteStore) Load(ctx context.Context) ([]byte, error) {
	var (
		data []byte
		sum  string
	)
	err := s.latestStmt.QueryRowContext(ctx).Scan(&data, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if checksum(data) != sum {
		return nil, fmt.Errorf("%w: snapshot checksum mismatch", ErrCorruptStore)
	}
	return data, nil
}

// Save appends a snapshot and prunes the history in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, data []byte) error {
	return s.SaveNamed(ctx, "", data)
}

// SaveNamed is Save with a catalog name recorded alongside the snapshot.
func (s *SQLiteStore) SaveNamed(ctx context.Context, name string, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.StmtContext(ctx, s.insertStmt).ExecContext(ctx, name, data, checksum(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.StmtContext(ctx, s.pruneStmt).ExecContext(ctx, s.history); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return tx.Commit()
}

// Snapshots lists the retained snapshots, newest first.
func (s *SQLiteStore) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,length(data),checksum,saved_at FROM snapshots ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.Size, &snap.Checksum, &snap.SavedAt); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
