package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Use advisory lock to prevent concurrent migrations from multiple services.
	// Note: In production, use dedicated migration tools (e.g., golang-migrate/migrate)
	// that run as a separate deployment step before app services start.
	const lockID = 424242001 // arbitrary number for this application's migration lock

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			filename TEXT,
			status TEXT,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			document_id TEXT REFERENCES documents(id) ON DELETE CASCADE,
			ord INT,
			text TEXT,
			token_count INT,
			PRIMARY KEY (document_id, ord)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) UpsertDocument(ctx context.Context, id, filename string) (Document, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents(id, filename, status)
		VALUES($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET filename=excluded.filename`,
		id, filename, StatusProcessing)
	if err != nil {
		return Document{}, err
	}
	return s.GetDocument(ctx, id)
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	row := s.db.QueryRowContext(ctx, `SELECT id, filename, status, created_at FROM documents WHERE id=$1`, id)
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Status, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// SaveChunk inserts one chunk keyed (document_id, ord). An existing row is
// left untouched and reported as already present, never overwritten.
func (s *PostgresStore) SaveChunk(ctx context.Context, docID string, c Chunk) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks(document_id, ord, text, token_count)
		VALUES($1,$2,$3,$4)
		ON CONFLICT (document_id, ord) DO NOTHING`,
		docID, c.Index, c.Text, c.TokenCount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) ListChunks(ctx context.Context, docID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ord, text, token_count FROM chunks WHERE document_id=$1 ORDER BY ord`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows, docID)
}

// ListChunksByIndex returns the chunks with the given sequence indexes, in
// order. Used by the downstream packaging consumer to fetch a subset.
func (s *PostgresStore) ListChunksByIndex(ctx context.Context, docID string, indexes []int64) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, text, token_count FROM chunks
		WHERE document_id=$1 AND ord = ANY($2)
		ORDER BY ord`, docID, pq.Array(indexes))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows, docID)
}

func (s *PostgresStore) GetChunk(ctx context.Context, docID string, index int) (Chunk, error) {
	var c Chunk
	row := s.db.QueryRowContext(ctx,
		`SELECT ord, text, token_count FROM chunks WHERE document_id=$1 AND ord=$2`, docID, index)
	if err := row.Scan(&c.Index, &c.Text, &c.TokenCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Chunk{}, ErrChunkNotFound
		}
		return Chunk{}, fmt.Errorf("failed to get chunk %s/%d: %w", docID, index, err)
	}
	c.DocumentID = docID
	return c, nil
}

func scanChunks(rows *sql.Rows, docID string) ([]Chunk, error) {
	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.Index, &c.Text, &c.TokenCount); err != nil {
			return nil, err
		}
		c.DocumentID = docID
		out = append(out, c)
	}
	return out, rows.Err()
}
