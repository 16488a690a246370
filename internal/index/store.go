// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index holds the per-session retrieval indexes: a SQLite chunk
// store with an FTS5 lexical index, and an in-memory vector index over
// chunk embeddings. Indexes are built once when a document set is
// loaded and are read-only afterwards, so concurrent reads from
// parallel pipeline runs need no coordination beyond SQLite's own.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-brain/pkg/types"
)

// Hit is one search result from either index.
type Hit struct {
	ChunkID string
	Score   float64
}

// Store is the SQLite-backed chunk store and lexical index.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens a chunk store. An empty path opens an in-memory
// database, which is what sessions use; a file path is accepted for
// debugging. The schema is created on open.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening chunk store: %w", err)
	}
	// An in-memory database exists per connection; a second pooled
	// connection would see an empty schema.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			authors TEXT,
			abstract TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			paper_id TEXT NOT NULL REFERENCES papers(id),
			paper_title TEXT NOT NULL,
			page INTEGER NOT NULL,
			text TEXT NOT NULL,
			tokens INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_paper_id ON chunks(paper_id)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(text, content=chunks, content_rowid=rowid)`,
		`CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// AddPaper inserts a paper record.
func (s *Store) AddPaper(ctx context.Context, p types.Paper) error {
	authors := strings.Join(p.Authors, ", ")
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (id, title, authors, abstract) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, abstract=excluded.abstract`,
		p.ID, p.Title, authors, p.Abstract,
	)
	if err != nil {
		return fmt.Errorf("inserting paper %s: %w", p.ID, err)
	}
	return nil
}

// AddChunks inserts chunk records in one transaction.
func (s *Store) AddChunks(ctx context.Context, chunks []types.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, paper_id, paper_title, page, text, tokens)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.PaperID, c.PaperTitle, c.Page, c.Text, c.Tokens,
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Chunks returns the chunk records for the given ids, in the order the
// ids were given. Unknown ids are an error: the chunk set is immutable,
// so a missing id means index corruption.
func (s *Store) Chunks(ctx context.Context, ids []string) ([]types.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, paper_id, paper_title, page, text, tokens
		 FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]types.Chunk, len(ids))
	for rows.Next() {
		var c types.Chunk
		if err := rows.Scan(&c.ID, &c.PaperID, &c.PaperTitle, &c.Page, &c.Text, &c.Tokens); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}

	out := make([]types.Chunk, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("chunk %s not found in store", id)
		}
		out = append(out, c)
	}
	return out, nil
}

// Size returns the number of stored chunks.
func (s *Store) Size(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// SearchLexical runs a BM25 keyword search over chunk text and returns
// up to k hits, best first. The raw query is reduced to quoted terms
// joined with OR so user punctuation cannot break FTS5 syntax.
func (s *Store) SearchLexical(ctx context.Context, query string, k int) ([]Hit, error) {
	match := ftsQuery(query)
	if match == "" || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, chunks_fts.rank
		 FROM chunks_fts
		 JOIN chunks c ON c.rowid = chunks_fts.rowid
		 WHERE chunks_fts MATCH ?
		 ORDER BY chunks_fts.rank
		 LIMIT ?`, match, k)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var rank float64
		if err := rows.Scan(&h.ChunkID, &rank); err != nil {
			return nil, fmt.Errorf("scanning lexical hit: %w", err)
		}
		// FTS5 rank is negative bm25; negate so higher is better.
		h.Score = -rank
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading lexical hits: %w", err)
	}
	return hits, nil
}

// ftsQuery converts free text into an FTS5 MATCH expression of quoted
// terms joined with OR.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"'?!.,;:()[]{}`)
		if f == "" {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, ``)+`"`)
	}
	return strings.Join(terms, " OR ")
}
