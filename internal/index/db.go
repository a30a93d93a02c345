package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Zuo-Peng/nbtrack/internal/record"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS logs (
    log_path     TEXT PRIMARY KEY,
    format       TEXT NOT NULL DEFAULT 'text',
    mtime        INTEGER NOT NULL DEFAULT 0,
    size         INTEGER NOT NULL DEFAULT 0,
    record_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS records (
    log_path        TEXT NOT NULL,
    seq             INTEGER NOT NULL,
    line_number     INTEGER NOT NULL DEFAULT 0,
    event_time      TEXT NOT NULL DEFAULT '',
    notebook_path   TEXT NOT NULL DEFAULT '',
    notebook_mtime  TEXT NOT NULL DEFAULT '',
    cell_index      INTEGER NOT NULL DEFAULT 0,
    cell_id         TEXT NOT NULL DEFAULT '',
    execution_count INTEGER,
    exec_start      TEXT,
    exec_end        TEXT,
    input           TEXT NOT NULL DEFAULT '',
    output          TEXT NOT NULL DEFAULT '',
    run_id          TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (log_path, seq)
);

CREATE INDEX IF NOT EXISTS records_cell ON records (notebook_path, cell_id);

CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
    input,
    output,
    content=records,
    content_rowid=rowid,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS records_ai AFTER INSERT ON records BEGIN
    INSERT INTO records_fts(rowid, input, output) VALUES (new.rowid, new.input, new.output);
END;

CREATE TRIGGER IF NOT EXISTS records_ad AFTER DELETE ON records BEGIN
    INSERT INTO records_fts(records_fts, rowid, input, output) VALUES('delete', old.rowid, old.input, old.output);
END;

CREATE TRIGGER IF NOT EXISTS records_au AFTER UPDATE ON records BEGIN
    INSERT INTO records_fts(records_fts, rowid, input, output) VALUES('delete', old.rowid, old.input, old.output);
    INSERT INTO records_fts(rowid, input, output) VALUES (new.rowid, new.input, new.output);
END;

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrateSchemaVersion(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// schemaVersion should be bumped whenever log decoding changes to force a
// full re-index.
const schemaVersion = "1"

func (d *DB) migrateSchemaVersion() error {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err == nil && ver == schemaVersion {
		return nil
	}
	// force re-index by resetting all log mtime/size to 0
	if _, err := d.db.Exec("UPDATE logs SET mtime = 0, size = 0"); err != nil {
		return err
	}
	_, err = d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

type LogInfo struct {
	Mtime int64
	Size  int64
}

func (d *DB) GetLogInfo(logPath string) (*LogInfo, error) {
	var info LogInfo
	err := d.db.QueryRow(
		"SELECT mtime, size FROM logs WHERE log_path = ?",
		logPath,
	).Scan(&info.Mtime, &info.Size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (d *DB) AllLogPaths() (map[string]struct{}, error) {
	rows, err := d.db.Query("SELECT log_path FROM logs")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = struct{}{}
	}
	return paths, rows.Err()
}

func (d *DB) DeleteLog(logPath string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records WHERE log_path = ?", logPath); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM logs WHERE log_path = ?", logPath); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) LogCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM logs").Scan(&n)
	return n, err
}

func (d *DB) RecordCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}

// FTSIntegrity runs FTS5's integrity-check, comparing the full-text index
// against the records table. A nil error means the two agree.
func (d *DB) FTSIntegrity() error {
	_, err := d.db.Exec("INSERT INTO records_fts(records_fts, rank) VALUES('integrity-check', 1)")
	return err
}

// RecordRow is one indexed record and the log it came from.
type RecordRow struct {
	LogPath string
	Seq     int
	record.Entry
}

// CellHistory returns every indexed record of one cell, oldest first.
func (d *DB) CellHistory(notebookPath, cellID string) ([]RecordRow, error) {
	rows, err := d.db.Query(`
		SELECT log_path, seq, line_number, event_time, notebook_path, notebook_mtime, cell_index,
		       cell_id, execution_count, exec_start, exec_end, input, output, run_id
		FROM records
		WHERE notebook_path = ? AND cell_id = ?
		ORDER BY event_time, log_path, seq`,
		notebookPath, cellID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecordRow
	for rows.Next() {
		var (
			r                  RecordRow
			eventTime, mtime   string
			execCount          sql.NullInt64
			execStart, execEnd sql.NullString
		)
		if err := rows.Scan(&r.LogPath, &r.Seq, &r.Line, &eventTime, &r.NotebookPath, &mtime,
			&r.CellIndex, &r.CellID, &execCount, &execStart, &execEnd, &r.Input, &r.Output, &r.RunID); err != nil {
			return nil, err
		}
		r.EventTime, _ = time.Parse(time.RFC3339Nano, eventTime)
		if t, err := time.Parse(time.RFC3339Nano, mtime); err == nil {
			r.NotebookMtime = &t
		}
		if execCount.Valid {
			n := int(execCount.Int64)
			r.ExecutionCount = &n
		}
		if execStart.Valid {
			r.ExecStart = &execStart.String
		}
		if execEnd.Valid {
			r.ExecEnd = &execEnd.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
