package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDocumentName is the row the ledger document is stored under.
const DefaultDocumentName = "ledger"

// SQLiteRepository stores the ledger document as a single row.
type SQLiteRepository struct {
	db   *sql.DB
	name string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time: the document is rewritten whole on every save.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, name: DefaultDocumentName}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (*Document, error) {
	var body string
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE name = ?`, r.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}

	doc, err := DecodeDocument([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", r.name, err)
	}
	return doc, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, doc *Document) error {
	data, err := doc.Encode("sqlite")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		r.name, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	slog.DebugContext(ctx, "Ledger document saved to SQLite", "name", r.name, "bytes", len(data))
	return nil
}

// HealthCheck verifies the database connection.
func (r *SQLiteRepository) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}
