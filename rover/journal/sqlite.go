package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wricardo/marsrover/mercator"
	"github.com/wricardo/marsrover/rover/engine"
)

const tableName = "moves"

// SQLiteJournal stores entries in a SQLite database. The row id is the
// move number.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the database at path and ensures the
// moves table exists
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	// sqlite3 serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) createTable() error {
	const createTableSQL = `
	CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		move_number INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL,
		from_x REAL NOT NULL,
		from_y REAL NOT NULL,
		to_x REAL NOT NULL,
		to_y REAL NOT NULL,
		from_direction TEXT NOT NULL,
		to_direction TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);`

	if _, err := j.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to execute CREATE TABLE: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Record(ctx context.Context, entry *engine.MoveHistoryEntry) error {
	const insertSQL = `
	INSERT INTO ` + tableName + ` (command, from_x, from_y, to_x, to_y, from_direction, to_direction, success, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	res, err := j.db.ExecContext(ctx, insertSQL,
		entry.Command,
		entry.From.X, entry.From.Y,
		entry.To.X, entry.To.Y,
		entry.FromDirection.String(), entry.ToDirection.String(),
		entry.Success,
		entry.Error,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert move %q: %w", entry.Command, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read move number: %w", err)
	}
	entry.MoveNumber = int(id)
	return nil
}

func (j *SQLiteJournal) List(ctx context.Context, offset, limit int, newestFirst bool) ([]engine.MoveHistoryEntry, error) {
	if err := checkRange(offset, limit); err != nil {
		return nil, err
	}

	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	selectSQL := `
	SELECT move_number, command, from_x, from_y, to_x, to_y, from_direction, to_direction, success, error, created_at
	FROM ` + tableName + `
	ORDER BY move_number ` + order + `
	LIMIT ? OFFSET ?;`

	rows, err := j.db.QueryContext(ctx, selectSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query moves: %w", err)
	}
	defer rows.Close()

	entries := []engine.MoveHistoryEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating rows: %w", err)
	}
	return entries, nil
}

func (j *SQLiteJournal) Count(ctx context.Context) (int, error) {
	const countSQL = `SELECT COUNT(*) FROM ` + tableName + `;`
	var count int
	if err := j.db.QueryRowContext(ctx, countSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count moves: %w", err)
	}
	return count, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func scanEntry(rows *sql.Rows) (engine.MoveHistoryEntry, error) {
	var (
		entry          engine.MoveHistoryEntry
		from, to       mercator.Coordinate
		fromDir, toDir string
		createdAt      string
	)

	err := rows.Scan(&entry.MoveNumber, &entry.Command,
		&from.X, &from.Y, &to.X, &to.Y,
		&fromDir, &toDir, &entry.Success, &entry.Error, &createdAt)
	if err != nil {
		return entry, fmt.Errorf("failed to scan row: %w", err)
	}
	entry.From = from
	entry.To = to

	if entry.FromDirection, err = engine.ParseOrientation(fromDir); err != nil {
		return entry, fmt.Errorf("move %d: %w", entry.MoveNumber, err)
	}
	if entry.ToDirection, err = engine.ParseOrientation(toDir); err != nil {
		return entry, fmt.Errorf("move %d: %w", entry.MoveNumber, err)
	}
	if entry.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return entry, fmt.Errorf("move %d: invalid timestamp %q: %w", entry.MoveNumber, createdAt, err)
	}
	return entry, nil
}
