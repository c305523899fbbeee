// Package journal persists a local history of completed and failed
// transfers in an embedded SQLite database. The CLI records every upload
// and download here so `cloudvault history` works offline.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Embed migration SQL files for schema versioning.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// walJournalSizeLimit caps the WAL file (64 MiB).
const walJournalSizeLimit = 67108864

// Transfer directions.
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Transfer statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Entry is one journal row.
type Entry struct {
	ID        int64
	Direction string
	FileName  string
	Size      int64
	Status    string
	Detail    string
	CreatedAt time.Time
}

// Store is a SQLite-backed transfer journal with WAL mode.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	recordStmt *sql.Stmt
	recentStmt *sql.Stmt
}

// Open opens (creating if needed) the journal database at dbPath, applies
// migrations, and prepares statements. Use ":memory:" for tests.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opening transfer journal", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}

	if err := setPragmas(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: prepare statements: %w", err)
	}

	return s, nil
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("journal: set pragma %q: %w", p, err)
		}
	}

	return nil
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("journal: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("journal: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("journal: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func (s *Store) prepareStatements(ctx context.Context) error {
	var err error

	s.recordStmt, err = s.db.PrepareContext(ctx,
		`INSERT INTO transfers (direction, file_name, size, status, detail) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	s.recentStmt, err = s.db.PrepareContext(ctx,
		`SELECT id, direction, file_name, size, status, detail, created_at
		 FROM transfers ORDER BY id DESC LIMIT ?`)

	return err
}

// Record appends a transfer to the journal.
func (s *Store) Record(ctx context.Context, direction, fileName string, size int64, status, detail string) error {
	if _, err := s.recordStmt.ExecContext(ctx, direction, fileName, size, status, detail); err != nil {
		return fmt.Errorf("journal: recording transfer: %w", err)
	}

	s.logger.Debug("transfer recorded",
		slog.String("direction", direction),
		slog.String("file_name", fileName),
		slog.String("status", status),
	)

	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.recentStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: listing transfers: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e   Entry
			raw string
		)

		if err := rows.Scan(&e.ID, &e.Direction, &e.FileName, &e.Size, &e.Status, &e.Detail, &raw); err != nil {
			return nil, fmt.Errorf("journal: scanning transfer row: %w", err)
		}

		t, parseErr := time.Parse("2006-01-02T15:04:05.999Z", raw)
		if parseErr != nil {
			// Tolerate rows written by other tools with plain RFC3339.
			t, parseErr = time.Parse(time.RFC3339, raw)
			if parseErr != nil {
				s.logger.Warn("invalid journal timestamp",
					slog.Int64("id", e.ID),
					slog.String("raw", raw),
				)
			}
		}

		e.CreatedAt = t
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating transfers: %w", err)
	}

	return entries, nil
}

// Close releases prepared statements and the database handle.
func (s *Store) Close() error {
	if s.recordStmt != nil {
		s.recordStmt.Close()
	}

	if s.recentStmt != nil {
		s.recentStmt.Close()
	}

	return s.db.Close()
}
