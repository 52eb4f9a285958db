// Package store persists user functions and constants in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/parser"
)

// StoredFunction is a saved function in source form.
type StoredFunction struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Source    string            `json:"source"`
	Defaults  map[string]string `json:"defaults,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// StoredConstant is a saved user constant.
type StoredConstant struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Error is a store failure. Code is E_STORE unless the stored text failed to parse.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string    { return e.Err.Error() }
func (e *Error) Unwrap() error    { return e.Err }
func (e *Error) DiagCode() string { return e.Code }

func storeErr(format string, args ...any) error {
	return &Error{Code: diagnostics.EStore, Err: fmt.Errorf(format, args...)}
}

// SQLiteStore implements evaluator.FunctionStore using SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ evaluator.FunctionStore = (*SQLiteStore)(nil)

// Config holds configuration for SQLite store
type Config struct {
	Path string
}

// NewSQLiteStore opens or creates the database at cfg.Path.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, storeErr("failed to create directory: %w", err)
		}
	}

	// Open database with WAL mode
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, storeErr("failed to open database: %w", err)
	}
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, storeErr("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the necessary tables
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS functions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Default values for a function's free variables
	CREATE TABLE IF NOT EXISTS function_vars (
		function_id TEXT NOT NULL,
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		PRIMARY KEY (function_id, name),
		FOREIGN KEY (function_id) REFERENCES functions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS constants (
		name TEXT PRIMARY KEY,
		value REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// checkName reports whether name parses as a single variable reference.
func checkName(name string) error {
	node, diags := parser.ParseExpr(name, "name")
	if len(diags) > 0 {
		return &Error{Code: diagnostics.EMalformed, Err: fmt.Errorf("invalid name %q", name)}
	}
	if v, ok := node.(*ast.Var); !ok || v.Name != name {
		return &Error{Code: diagnostics.EMalformed, Err: fmt.Errorf("invalid name %q", name)}
	}
	return nil
}

func parseSource(source, filename string) (ast.Component, error) {
	node, diags := parser.ParseExpr(source, filename)
	if len(diags) > 0 {
		return nil, &Error{Code: diags[0].Code, Err: fmt.Errorf("%s: %s", filename, diags[0].Message)}
	}
	return node, nil
}

// SaveFunction creates or replaces the function called name. The body and every default
// must parse as expressions.
func (s *SQLiteStore) SaveFunction(ctx context.Context, name, source string, defaults map[string]string) (*StoredFunction, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if _, err := parseSource(source, name); err != nil {
		return nil, err
	}
	for v, src := range defaults {
		if err := checkName(v); err != nil {
			return nil, err
		}
		if _, err := parseSource(src, name+"."+v); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	fn := &StoredFunction{Name: name, Source: source, Defaults: defaults, CreatedAt: now, UpdatedAt: now}

	var existing string
	var created time.Time
	err = tx.QueryRowContext(ctx, `SELECT id, created_at FROM functions WHERE name = ?`, name).Scan(&existing, &created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		fn.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO functions (id, name, source, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, fn.ID, fn.Name, fn.Source, fn.CreatedAt, fn.UpdatedAt)
		if err != nil {
			return nil, storeErr("failed to create function: %w", err)
		}
	case err != nil:
		return nil, storeErr("failed to look up function: %w", err)
	default:
		fn.ID, fn.CreatedAt = existing, created
		if _, err := tx.ExecContext(ctx, `UPDATE functions SET source = ?, updated_at = ? WHERE id = ?`,
			fn.Source, fn.UpdatedAt, fn.ID); err != nil {
			return nil, storeErr("failed to update function: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM function_vars WHERE function_id = ?`, fn.ID); err != nil {
			return nil, storeErr("failed to clear function defaults: %w", err)
		}
	}

	for v, src := range defaults {
		if _, err := tx.ExecContext(ctx, `INSERT INTO function_vars (function_id, name, source) VALUES (?, ?, ?)`,
			fn.ID, v, src); err != nil {
			return nil, storeErr("failed to save default %s: %w", v, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("failed to commit function: %w", err)
	}
	return fn, nil
}

// GetFunction retrieves a function by name. It returns nil without error when none exists.
func (s *SQLiteStore) GetFunction(ctx context.Context, name string) (*StoredFunction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fn StoredFunction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, source, created_at, updated_at FROM functions WHERE name = ?
	`, name).Scan(&fn.ID, &fn.Name, &fn.Source, &fn.CreatedAt, &fn.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("failed to get function: %w", err)
	}

	defaults, err := s.defaults(ctx, fn.ID)
	if err != nil {
		return nil, err
	}
	fn.Defaults = defaults
	return &fn, nil
}

func (s *SQLiteStore) defaults(ctx context.Context, id string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, source FROM function_vars WHERE function_id = ?`, id)
	if err != nil {
		return nil, storeErr("failed to load function defaults: %w", err)
	}
	defer rows.Close()

	var out map[string]string
	for rows.Next() {
		var name, source string
		if err := rows.Scan(&name, &source); err != nil {
			return nil, storeErr("failed to scan function default: %w", err)
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[name] = source
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to load function defaults: %w", err)
	}
	return out, nil
}

// ListFunctions returns all functions sorted by name, without their defaults.
func (s *SQLiteStore) ListFunctions(ctx context.Context) ([]*StoredFunction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source, created_at, updated_at FROM functions ORDER BY name
	`)
	if err != nil {
		return nil, storeErr("failed to list functions: %w", err)
	}
	defer rows.Close()

	var fns []*StoredFunction
	for rows.Next() {
		var fn StoredFunction
		if err := rows.Scan(&fn.ID, &fn.Name, &fn.Source, &fn.CreatedAt, &fn.UpdatedAt); err != nil {
			return nil, storeErr("failed to scan function: %w", err)
		}
		fns = append(fns, &fn)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to list functions: %w", err)
	}
	return fns, nil
}

// DeleteFunction removes a function and its defaults, reporting whether it existed.
func (s *SQLiteStore) DeleteFunction(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM functions WHERE name = ?`, name)
	if err != nil {
		return false, storeErr("failed to delete function: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// RenameFunction gives a function a new name, keeping its source and defaults. It reports
// whether the function existed; renaming onto another function's name fails.
func (s *SQLiteStore) RenameFunction(ctx context.Context, name, newName string) (bool, error) {
	if err := checkName(newName); err != nil {
		return false, err
	}
	if name == newName {
		fn, err := s.GetFunction(ctx, name)
		return fn != nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storeErr("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var taken int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM functions WHERE name = ?`, newName).Scan(&taken); err != nil {
		return false, storeErr("failed to look up function: %w", err)
	}
	if taken > 0 {
		return false, &Error{Code: diagnostics.EUnsupported, Err: fmt.Errorf("function %s already exists", newName)}
	}

	result, err := tx.ExecContext(ctx, `UPDATE functions SET name = ?, updated_at = ? WHERE name = ?`,
		newName, time.Now(), name)
	if err != nil {
		return false, storeErr("failed to rename function: %w", err)
	}
	rows, _ := result.RowsAffected()
	if err := tx.Commit(); err != nil {
		return false, storeErr("failed to commit rename: %w", err)
	}
	return rows > 0, nil
}

// LookupFunction implements evaluator.FunctionStore by parsing the stored source.
func (s *SQLiteStore) LookupFunction(name string) (*evaluator.Function, bool, error) {
	stored, err := s.GetFunction(context.Background(), name)
	if err != nil || stored == nil {
		return nil, false, err
	}
	body, err := parseSource(stored.Source, name)
	if err != nil {
		return nil, false, err
	}
	fn := &evaluator.Function{Name: name, Body: body}
	if len(stored.Defaults) > 0 {
		fn.Defaults = make(map[string]ast.Component, len(stored.Defaults))
		for v, src := range stored.Defaults {
			node, err := parseSource(src, name+"."+v)
			if err != nil {
				return nil, false, err
			}
			fn.Defaults[v] = node
		}
	}
	return fn, true, nil
}

// SetConstant creates or replaces a user constant. Built-in names are rejected.
func (s *SQLiteStore) SetConstant(ctx context.Context, name string, value float64) error {
	if err := checkName(name); err != nil {
		return err
	}
	if evaluator.IsBuiltin(name) {
		return &Error{Code: diagnostics.EUnsupported, Err: fmt.Errorf("constant %s is built in", name)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO constants (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, name, value, time.Now())
	if err != nil {
		return storeErr("failed to set constant: %w", err)
	}
	return nil
}

// DeleteConstant removes a user constant, reporting whether it existed.
func (s *SQLiteStore) DeleteConstant(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM constants WHERE name = ?`, name)
	if err != nil {
		return false, storeErr("failed to delete constant: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ListConstants returns all user constants sorted by name.
func (s *SQLiteStore) ListConstants(ctx context.Context) ([]StoredConstant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, value, updated_at FROM constants ORDER BY name`)
	if err != nil {
		return nil, storeErr("failed to list constants: %w", err)
	}
	defer rows.Close()

	var out []StoredConstant
	for rows.Next() {
		var c StoredConstant
		if err := rows.Scan(&c.Name, &c.Value, &c.UpdatedAt); err != nil {
			return nil, storeErr("failed to scan constant: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to list constants: %w", err)
	}
	return out, nil
}

// LoadConstants copies every stored constant into table.
func (s *SQLiteStore) LoadConstants(ctx context.Context, table *evaluator.Constants) error {
	consts, err := s.ListConstants(ctx)
	if err != nil {
		return err
	}
	for _, c := range consts {
		if err := table.Set(c.Name, c.Value); err != nil {
			return err
		}
	}
	return nil
}

// Statistics returns row counts per table.
func (s *SQLiteStore) Statistics(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int)
	for _, table := range []string{"functions", "function_vars", "constants"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, storeErr("failed to count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}

// SortedDefaults returns a function's default variable names in order.
func (f *StoredFunction) SortedDefaults() []string {
	names := make([]string, 0, len(f.Defaults))
	for k := range f.Defaults {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
