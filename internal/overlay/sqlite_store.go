package overlay

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS overlays (
    seq           INTEGER PRIMARY KEY AUTOINCREMENT,
    id            TEXT    NOT NULL UNIQUE,
    stream_id     TEXT    NOT NULL,
    text          TEXT    NOT NULL,
    position_top  REAL    NOT NULL,
    position_left REAL    NOT NULL,
    size_width    REAL    NOT NULL,
    size_height   REAL    NOT NULL,
    visible       INTEGER NOT NULL DEFAULT 1
)`,
	`CREATE INDEX IF NOT EXISTS idx_overlays_stream_id ON overlays (stream_id)`,
}

// SQLiteStore persists overlays in a single SQLite table. AUTOINCREMENT
// keeps rowids from being reused; the public id is a random UUID.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and applies the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite has a single writer; one pooled connection also keeps the
	// per-connection pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Insert implements Store.Insert.
func (s *SQLiteStore) Insert(ctx context.Context, o Overlay) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO overlays (
            id, stream_id, text, position_top, position_left, size_width, size_height, visible
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		o.StreamID,
		o.Text,
		o.Position.Top,
		o.Position.Left,
		o.Size.Width,
		o.Size.Height,
		boolToInt(o.Visible),
	)
	if err != nil {
		return "", fmt.Errorf("insert overlay: %w", err)
	}
	return id, nil
}

// ListByStream implements Store.ListByStream.
func (s *SQLiteStore) ListByStream(ctx context.Context, streamID string) ([]Overlay, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, stream_id, text, position_top, position_left, size_width, size_height, visible
         FROM overlays WHERE stream_id = ? ORDER BY seq`,
		streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("query overlays: %w", err)
	}
	defer rows.Close()

	out := make([]Overlay, 0)
	for rows.Next() {
		var (
			o       Overlay
			visible int64
		)
		if err := rows.Scan(
			&o.ID,
			&o.StreamID,
			&o.Text,
			&o.Position.Top,
			&o.Position.Left,
			&o.Size.Width,
			&o.Size.Height,
			&visible,
		); err != nil {
			return nil, fmt.Errorf("scan overlay: %w", err)
		}
		o.Visible = visible != 0
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overlays: %w", err)
	}
	return out, nil
}

// Update implements Store.Update.
func (s *SQLiteStore) Update(ctx context.Context, id string, p Patch) error {
	var (
		sets []string
		args []any
	)
	if p.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *p.Text)
	}
	if p.Position != nil {
		sets = append(sets, "position_top = ?", "position_left = ?")
		args = append(args, p.Position.Top, p.Position.Left)
	}
	if p.Size != nil {
		sets = append(sets, "size_width = ?", "size_height = ?")
		args = append(args, p.Size.Width, p.Size.Height)
	}
	if p.Visible != nil {
		sets = append(sets, "visible = ?")
		args = append(args, boolToInt(*p.Visible))
	}

	if len(sets) == 0 {
		return s.exists(ctx, id)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, "UPDATE overlays SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update overlay: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) exists(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM overlays WHERE id = ?", id).Scan(&n); err != nil {
		return fmt.Errorf("lookup overlay: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements Store.Delete.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM overlays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete overlay: %w", err)
	}
	return requireAffected(res)
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
