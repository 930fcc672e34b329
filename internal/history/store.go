package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rustactions/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates a database written by an incompatible version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 50

// Entry is one recorded action.
type Entry struct {
	ID         int64          `json:"id"`
	Action     string         `json:"action"`
	Params     map[string]any `json:"params,omitempty"`
	Success    bool           `json:"success"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	Focus      string         `json:"focus,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter narrows List.
type Filter struct {
	Action string
	Limit  int
}

// Store persists action history in SQLite.
type Store struct {
	db      *sql.DB
	path    string
	maxRows int
}

// Open creates or opens the history database at path. maxRows <= 0 disables
// pruning.
func Open(path string, maxRows int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "history", "open", "create directory", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "history", "open", "open sqlite db", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrIO, "history", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}
	store := &Store{db: db, path: path, maxRows: maxRows}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return services.Wrap(services.ErrIO, "history", "init schema", "check schema_version table", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return services.Wrap(services.ErrIO, "history", "init schema", "read schema version", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'rustactions history clear' or delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrIO, "history", "init schema", "begin schema tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return services.Wrap(services.ErrIO, "history", "init schema", "create schema", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return services.Wrap(services.ErrIO, "history", "init schema", "record schema version", err)
	}
	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrIO, "history", "init schema", "commit schema", err)
	}
	return nil
}

// Record appends an entry, filling CreatedAt when zero, and prunes old rows.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if strings.TrimSpace(e.Action) == "" {
		return Entry{}, services.Validation("history", "action is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var params any
	if len(e.Params) > 0 {
		data, err := json.Marshal(e.Params)
		if err != nil {
			return Entry{}, services.Wrap(services.ErrValidation, "history", "record", "encode params", err)
		}
		params = string(data)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (action, params_json, success, message, error, focus, request_id, duration_ms, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Action,
		params,
		boolToInt(e.Success),
		nullableString(e.Message),
		nullableString(e.Error),
		nullableString(e.Focus),
		nullableString(e.RequestID),
		e.DurationMS,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, services.Wrap(services.ErrIO, "history", "record", "insert action", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, services.Wrap(services.ErrIO, "history", "record", "last insert id", err)
	}
	if s.maxRows > 0 {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM actions WHERE id <= (SELECT id FROM actions ORDER BY id DESC LIMIT 1 OFFSET ?)`,
			s.maxRows,
		); err != nil {
			return e, services.Wrap(services.ErrIO, "history", "prune", "delete old actions", err)
		}
	}
	return e, nil
}

// List returns the newest entries first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	query := `SELECT id, action, params_json, success, message, error, focus, request_id, duration_ms, created_at FROM actions`
	args := []any{}
	if action := strings.TrimSpace(f.Action); action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "history", "list", "query actions", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "history", "list", "scan action", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrIO, "history", "list", "iterate actions", err)
	}
	return out, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM actions").Scan(&n); err != nil {
		return 0, services.Wrap(services.ErrIO, "history", "count", "count actions", err)
	}
	return n, nil
}

// Clear deletes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM actions")
	if err != nil {
		return 0, services.Wrap(services.ErrIO, "history", "clear", "delete actions", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		e          Entry
		params     sql.NullString
		success    int64
		message    sql.NullString
		errMsg     sql.NullString
		focus      sql.NullString
		requestID  sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&e.ID, &e.Action, &params, &success, &message, &errMsg, &focus, &requestID, &e.DurationMS, &createdRaw); err != nil {
		return Entry{}, err
	}
	e.Success = success != 0
	e.Message, e.Error, e.Focus, e.RequestID = message.String, errMsg.String, focus.String, requestID.String
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &e.Params); err != nil {
			return Entry{}, fmt.Errorf("decode params: %w", err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		e.CreatedAt = ts
	}
	return e, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
