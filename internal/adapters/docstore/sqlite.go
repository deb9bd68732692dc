package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (collection, id)
)`

// SQLiteStore persists documents as JSON rows in SQLite. Queries are
// evaluated in Go over the rows of one collection.
type SQLiteStore struct {
	sqlDB *sql.DB
	hub   *hub
	now   func() time.Time
}

// OpenSQLite opens (and creates if needed) the database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB, hub: newHub(), now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	s.hub.closeAll()
	return s.sqlDB.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadDoc(ctx context.Context, q queryer, collection, id string) (*Document, error) {
	var (
		raw       string
		updatedAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT data, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapSQLite("load document", err)
	}
	d := Document{ID: id, UpdatedAt: updatedAt, Data: map[string]any{}}
	if err := json.Unmarshal([]byte(raw), &d.Data); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrInvalidData, collection, id, err)
	}
	return &d, nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (Document, error) {
	defer observe("get", time.Now())
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	d, err := loadDoc(ctx, s.sqlDB, collection, id)
	if err != nil {
		return Document{}, err
	}
	if d == nil {
		return Document{}, ErrNotFound
	}
	return *d, nil
}

func (s *SQLiteStore) Find(ctx context.Context, q Query) ([]Document, error) {
	defer observe("find", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Collection == "" {
		return nil, ErrNoCollection
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, data, updated_at FROM documents WHERE collection = ?`, q.Collection)
	if err != nil {
		return nil, wrapSQLite("find documents", err)
	}
	defer rows.Close()

	var all []Document
	for rows.Next() {
		var (
			d   Document
			raw string
		)
		if err := rows.Scan(&d.ID, &raw, &d.UpdatedAt); err != nil {
			return nil, wrapSQLite("scan document", err)
		}
		d.Data = map[string]any{}
		if err := json.Unmarshal([]byte(raw), &d.Data); err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %w", ErrInvalidData, q.Collection, d.ID, err)
		}
		all = append(all, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapSQLite("iterate documents", err)
	}
	return q.apply(all), nil
}

func (s *SQLiteStore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	return s.Batch(ctx, []Write{{Kind: KindSet, Collection: collection, ID: id, Data: data, Merge: merge}})
}

func (s *SQLiteStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, writes ...FieldWrite) error {
	return s.Batch(ctx, []Write{{Kind: KindUpdate, Collection: collection, ID: id, Fields: writes}})
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	return s.Batch(ctx, []Write{{Kind: KindDelete, Collection: collection, ID: id}})
}

// Batch runs every write in one transaction.
func (s *SQLiteStore) Batch(ctx context.Context, writes []Write) (err error) {
	defer observe("batch", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(writes) > MaxBatchWrites {
		return ErrBatchTooLarge
	}
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return wrapSQLite("begin batch", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now().UnixMilli()
	changed := make([]string, 0, len(writes))
	for _, w := range writes {
		if w.Collection == "" || w.ID == "" {
			return ErrNoCollection
		}
		cur, err := loadDoc(ctx, tx, w.Collection, w.ID)
		if err != nil {
			return err
		}
		next, err := applyWrite(cur, w, now)
		if err != nil {
			return err
		}
		if next == nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = ? AND id = ?`, w.Collection, w.ID); err != nil {
				return wrapSQLite("delete document", err)
			}
		} else {
			raw, err := json.Marshal(next.Data)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidData, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
				w.Collection, w.ID, string(raw), next.UpdatedAt); err != nil {
				return wrapSQLite("upsert document", err)
			}
		}
		changed = append(changed, w.Collection)
	}
	if err = tx.Commit(); err != nil {
		return wrapSQLite("commit batch", err)
	}
	s.hub.notify(changed...)
	return nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, q Query, fn func([]Document)) (Subscription, error) {
	return s.hub.subscribe(ctx, q, fn, s.Find)
}

// wrapSQLite annotates err, marking busy databases so callers can retry.
func wrapSQLite(op string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w: %w", op, ErrBusy, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
