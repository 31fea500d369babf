package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/sheet"

	_ "modernc.org/sqlite"
)

// Store keeps spreadsheet-style tables in SQLite. Each row is stored as a JSON
// array of cells so that tables keep whatever columns their authors gave them.
type Store struct {
	db *sql.DB
}

// TableInfo describes one stored table.
type TableInfo struct {
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheets (
		name TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sheet_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		cells TEXT NOT NULL,
		FOREIGN KEY (table_name) REFERENCES sheets(name)
	);

	CREATE INDEX IF NOT EXISTS idx_sheet_rows_table ON sheet_rows(table_name, id);

	CREATE TABLE IF NOT EXISTS store_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// ensureTable registers name and, for a new table with a canonical layout, writes
// its header row. It reports whether the table was created.
func ensureTable(tx execer, name string) (bool, error) {
	res, err := tx.Exec(
		`INSERT INTO sheets (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("register table %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	header := model.CanonicalHeader(name)
	if header == nil {
		return true, nil
	}
	row := make(sheet.Row, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := insertRow(tx, name, row); err != nil {
		return false, err
	}
	slog.Info("created table", "table", name, "columns", len(header))
	return true, nil
}

func insertRow(tx execer, name string, row sheet.Row) error {
	cells, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO sheet_rows (table_name, cells) VALUES (?, ?)`, name, string(cells))
	return err
}

func (s *Store) ensure(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := ensureTable(tx, name); err != nil {
		return err
	}
	return tx.Commit()
}

// GetTable returns every row of the table, header first. A missing table is
// created with its canonical header.
func (s *Store) GetTable(name string) ([]sheet.Row, error) {
	if err := s.ensure(name); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT cells FROM sheet_rows WHERE table_name = ? ORDER BY id`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []sheet.Row
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, err
		}
		var row sheet.Row
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return nil, fmt.Errorf("decode row of %s: %w", name, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AppendRow adds a row at the end of the table.
func (s *Store) AppendRow(name string, row sheet.Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := ensureTable(tx, name); err != nil {
		return err
	}
	if err := insertRow(tx, name, row); err != nil {
		return fmt.Errorf("append to %s: %w", name, err)
	}
	return tx.Commit()
}

// ReplaceTable swaps the whole content of a table, header included, in one
// transaction.
func (s *Store) ReplaceTable(name string, rows []sheet.Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(
		`INSERT INTO sheets (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, time.Now(),
	); err != nil {
		return fmt.Errorf("register table %s: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM sheet_rows WHERE table_name = ?`, name); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	for _, row := range rows {
		if err := insertRow(tx, name, row); err != nil {
			return fmt.Errorf("replace %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// RowCount returns the number of rows in a table, header included.
func (s *Store) RowCount(name string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sheet_rows WHERE table_name = ?`, name).Scan(&n)
	return n, err
}

// ListTables returns all stored tables ordered by name.
func (s *Store) ListTables() ([]TableInfo, error) {
	rows, err := s.db.Query(`
		SELECT t.name, t.created_at, COUNT(r.id)
		FROM sheets t LEFT JOIN sheet_rows r ON r.table_name = t.name
		GROUP BY t.name, t.created_at
		ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TableInfo
	for rows.Next() {
		var ti TableInfo
		if err := rows.Scan(&ti.Name, &ti.CreatedAt, &ti.Rows); err != nil {
			return nil, err
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}

// Ping checks that the database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}
