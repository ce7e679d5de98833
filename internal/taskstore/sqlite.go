package taskstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
)

// SQLiteStore persists item/fluid/use_tool rows in a single SQLite file,
// matching the abstract schema of SPEC_FULL.md §6: three relations with
// a stable id, a state column, and source/destination/tool_type columns
// as appropriate. Each row also stores a random UUID in a unique uid
// column; callers never see it, and the audit log does not read it (each
// audit record carries its own freshly generated correlation id).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates, if needed) a SQLite-backed store
// at path. ":memory:" is accepted for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("taskstore: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("taskstore: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func tableFor(kind Kind) string {
	switch kind {
	case KindItem:
		return "item"
	case KindFluid:
		return "fluid"
	case KindUseTool:
		return "use_tool"
	default:
		return ""
	}
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS item (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			begin_node_name TEXT NOT NULL,
			end_node_name TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT 'pending',
			vehicle_id INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS fluid (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			begin_node_name TEXT NOT NULL,
			end_node_name TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT 'pending',
			vehicle_id INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS use_tool (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			begin_node_name TEXT NOT NULL,
			tool_type INTEGER NOT NULL,
			state TEXT NOT NULL DEFAULT 'pending',
			vehicle_id INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_state ON item(state, id)`,
		`CREATE INDEX IF NOT EXISTS idx_fluid_state ON fluid(state, id)`,
		`CREATE INDEX IF NOT EXISTS idx_use_tool_state ON use_tool(state, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("taskstore: migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Enqueue(ctx context.Context, t Task) (int, error) {
	table := tableFor(t.Kind)
	if table == "" {
		return 0, fmt.Errorf("taskstore: unknown kind %v", t.Kind)
	}

	var pending int
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE state='pending'`, table))
	if err := row.Scan(&pending); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if pending >= MaxPendingPerKind {
		return 0, ErrQueueFull
	}

	uid := uuid.NewString()

	var (
		res sql.Result
		err error
	)
	if t.Kind == KindUseTool {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO use_tool (uid, begin_node_name, tool_type) VALUES (?, ?, ?)`,
			uid, t.From, t.Tool)
	} else {
		res, err = s.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (uid, begin_node_name, end_node_name) VALUES (?, ?, ?)`, table),
			uid, t.From, t.To)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return int(id), nil
}

// FetchPending returns up to limit rows of kind in ascending id order,
// which is also insertion order since ids are monotonic.
func (s *SQLiteStore) FetchPending(ctx context.Context, kind Kind, limit int) ([]Task, error) {
	table := tableFor(kind)
	if table == "" {
		return nil, fmt.Errorf("taskstore: unknown kind %v", kind)
	}

	var (
		rows *sql.Rows
		err  error
	)
	if kind == KindUseTool {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, begin_node_name, tool_type FROM use_tool WHERE state='pending' ORDER BY id LIMIT ?`,
			limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT id, begin_node_name, end_node_name FROM %s WHERE state='pending' ORDER BY id LIMIT ?`, table),
			limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t := Task{Kind: kind, Status: StatusPending}
		if kind == KindUseTool {
			err = rows.Scan(&t.ID, &t.From, &t.Tool)
		} else {
			err = rows.Scan(&t.ID, &t.From, &t.To)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkProcessing(ctx context.Context, kind Kind, id int, vehicleID int) error {
	table := tableFor(kind)
	if table == "" {
		return fmt.Errorf("taskstore: unknown kind %v", kind)
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET state='processing', vehicle_id=? WHERE id=? AND state!='completed'`, table),
		vehicleID, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return nil
}

func (s *SQLiteStore) MarkCompleted(ctx context.Context, kind Kind, id int) error {
	table := tableFor(kind)
	if table == "" {
		return fmt.Errorf("taskstore: unknown kind %v", kind)
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET state='completed' WHERE id=?`, table), id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return nil
}

// ReconcileOrphaned returns every row of kind whose state is still
// 'processing' and was assigned to vehicleID, back to 'pending'. Called
// by the sweeper once a vehicle has been observed Offline past timeout.
func (s *SQLiteStore) ReconcileOrphaned(ctx context.Context, kind Kind, vehicleID int) (int, error) {
	table := tableFor(kind)
	if table == "" {
		return 0, fmt.Errorf("taskstore: unknown kind %v", kind)
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET state='pending', vehicle_id=NULL WHERE state='processing' AND vehicle_id=?`, table),
		vehicleID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return int(n), nil
}
