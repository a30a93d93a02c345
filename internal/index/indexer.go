package index

import (
	"fmt"
	"os"
	"time"

	"github.com/Zuo-Peng/nbtrack/internal/record"
	"github.com/Zuo-Peng/nbtrack/internal/scan"
)

type Stats struct {
	Scanned int
	Updated int
	Skipped int
	Pruned  int
	Errors  int
	Records int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d updated=%d skipped=%d pruned=%d errors=%d records=%d",
		s.Scanned, s.Updated, s.Skipped, s.Pruned, s.Errors, s.Records)
}

// IndexAll indexes every log under root matching patterns, then drops
// indexed logs whose files no longer exist.
func IndexAll(db *DB, root string, patterns []string) (Stats, error) {
	files, err := scan.ScanLogs(root, patterns)
	if err != nil {
		return Stats{}, fmt.Errorf("scan: %w", err)
	}

	stats := indexFiles(db, files)

	pruned, err := pruneLogs(db)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned

	return stats, nil
}

// IndexFiles indexes the given log paths regardless of where they live.
func IndexFiles(db *DB, paths []string) (Stats, error) {
	var files []scan.FileInfo
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return Stats{}, fmt.Errorf("stat %s: %w", p, err)
		}
		files = append(files, scan.FileInfo{Path: p, Mtime: info.ModTime().Unix(), Size: info.Size()})
	}
	return indexFiles(db, files), nil
}

func indexFiles(db *DB, files []scan.FileInfo) Stats {
	var stats Stats
	stats.Scanned = len(files)

	for _, fi := range files {
		needs, err := needsUpdate(db, fi.Path, fi.Mtime, fi.Size)
		if err != nil {
			stats.Errors++
			continue
		}
		if !needs {
			stats.Skipped++
			continue
		}

		format, entries, err := record.ReadLog(fi.Path)
		if err != nil {
			stats.Errors++
			fmt.Printf("  WARN: read %s: %v\n", fi.Path, err)
			continue
		}

		if err := indexLog(db, fi, format, entries); err != nil {
			stats.Errors++
			fmt.Printf("  WARN: index %s: %v\n", fi.Path, err)
			continue
		}
		stats.Updated++
		stats.Records += len(entries)
	}
	return stats
}

func needsUpdate(db *DB, logPath string, mtime, size int64) (bool, error) {
	info, err := db.GetLogInfo(logPath)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil // new log
	}
	return info.Mtime != mtime || info.Size != size, nil
}

func indexLog(db *DB, fi scan.FileInfo, format record.Format, entries []record.Entry) error {
	// delete old data first
	if err := db.DeleteLog(fi.Path); err != nil {
		return err
	}

	tx, err := db.Raw().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO logs (log_path, format, mtime, size, record_count) VALUES (?, ?, ?, ?, ?)`,
		fi.Path, format.String(), fi.Mtime, fi.Size, len(entries),
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO records (log_path, seq, line_number, event_time, notebook_path, notebook_mtime,
		                      cell_index, cell_id, execution_count, exec_start, exec_end, input, output, run_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		_, err := stmt.Exec(
			fi.Path,
			i,
			e.Line,
			formatTime(&e.EventTime),
			e.NotebookPath,
			formatTime(e.NotebookMtime),
			e.CellIndex,
			e.CellID,
			nullable(e.ExecutionCount),
			nullable(e.ExecStart),
			nullable(e.ExecEnd),
			e.Input,
			e.Output,
			e.RunID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// nullable maps a nil pointer to SQL NULL and dereferences the rest.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// pruneLogs removes indexed logs whose files are gone.
func pruneLogs(db *DB) (int, error) {
	allPaths, err := db.AllLogPaths()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for p := range allPaths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			continue
		}
		if err := db.DeleteLog(p); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}
