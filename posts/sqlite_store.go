package posts

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLiteStore persists posts in a single SQLite table using the pure-Go modernc driver.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if necessary) the database file at 'path' and makes sure
// the posts table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps writers serialized; sqlite would lock them out anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, fields Fields) (Post, error) {
	if err := fields.check("create"); err != nil {
		return Post{}, err
	}

	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO posts (title, body, created_at, updated_at) VALUES (?, ?, ?, ?)",
		fields.Title, fields.Body, now, now)
	if err != nil {
		return Post{}, fmt.Errorf("sqlite: create: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Post{}, fmt.Errorf("sqlite: create: %w", err)
	}
	return Post{ID: id, Title: fields.Title, Body: fields.Body, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) Find(ctx context.Context, id int64) (Post, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, body, created_at, updated_at FROM posts WHERE id = ?", id)

	post := Post{}
	err := row.Scan(&post.ID, &post.Title, &post.Body, &post.CreatedAt, &post.UpdatedAt)
	switch {
	case err == sql.ErrNoRows:
		return Post{}, notFound(id)
	case err != nil:
		return Post{}, fmt.Errorf("sqlite: find: %w", err)
	}
	return post, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, body, created_at, updated_at FROM posts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	results := []Post{}
	for rows.Next() {
		post := Post{}
		if err := rows.Scan(&post.ID, &post.Title, &post.Body, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: list: %w", err)
		}
		results = append(results, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	return results, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, fields Fields) (Post, error) {
	if err := fields.check("update"); err != nil {
		return Post{}, err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE posts SET title = ?, body = ?, updated_at = ? WHERE id = ?",
		fields.Title, fields.Body, s.now().UTC(), id)
	if err != nil {
		return Post{}, fmt.Errorf("sqlite: update: %w", err)
	}
	if err := expectOneRow(res, id); err != nil {
		return Post{}, err
	}
	return s.Find(ctx, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	return expectOneRow(res, id)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// expectOneRow turns "nothing matched the WHERE clause" into the store's 404.
func expectOneRow(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return notFound(id)
	}
	return nil
}
