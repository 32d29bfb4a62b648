package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	table_name TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_table_name ON runs(table_name);
`

// WriteSQLite replaces the table named after t (or the file) in the SQLite
// database at dsn and records the write in the runs table.
func WriteSQLite(ctx context.Context, dsn string, t *Table) error {
	_, err := WriteSQLiteRun(ctx, dsn, t)
	return err
}

// WriteSQLiteRun is WriteSQLite returning the generated run id.
func WriteSQLiteRun(ctx context.Context, dsn string, t *Table) (string, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: open")
	}
	defer func() { _ = db.Close() }()

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return "", eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		return "", eris.Wrap(err, "sqlite: migrate")
	}

	name := tableName(t.Name, dsn)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(name))); err != nil {
		return "", eris.Wrapf(err, "sqlite: drop %s", name)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(name, t)); err != nil {
		return "", eris.Wrapf(err, "sqlite: create %s", name)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s VALUES (%s)`, quoteIdent(name), placeholders))
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: prepare insert %s", name)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return "", eris.Errorf("sqlite: row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
		if _, err := stmt.ExecContext(ctx, sqlArgs(row)...); err != nil {
			return "", eris.Wrapf(err, "sqlite: insert row %d", i)
		}
	}

	id := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, table_name, row_count, created_at) VALUES (?, ?, ?, ?)`,
		id, name, len(t.Rows), time.Now().UTC(),
	); err != nil {
		return "", eris.Wrap(err, "sqlite: insert run")
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit")
	}
	return id, nil
}

// createTableSQL types each column REAL or INTEGER from its first non-nil
// cell and TEXT otherwise.
func createTableSQL(name string, t *Table) string {
	cols := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		typ := "TEXT"
		for _, row := range t.Rows {
			if row[j] == nil {
				continue
			}
			switch row[j].(type) {
			case float64, float32:
				typ = "REAL"
			case int, int64:
				typ = "INTEGER"
			}
			break
		}
		cols[j] = quoteIdent(c) + " " + typ
	}
	return fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(name), strings.Join(cols, ", "))
}

func sqlArgs(row []any) []any {
	args := make([]any, len(row))
	for i, v := range row {
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			continue
		}
		args[i] = v
	}
	return args
}

func tableName(name, dsn string) string {
	if name == "" {
		base := filepath.Base(dsn)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if name == "" || name == "." {
		return "results"
	}
	return name
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
