package changetrack

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/opendatabs/odsync/internal/db"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS fingerprints (
    path TEXT PRIMARY KEY,
    algorithm TEXT NOT NULL,
    digest TEXT NOT NULL,
    size INTEGER NOT NULL,
    updated_at TEXT NOT NULL -- RFC3339
);

CREATE INDEX IF NOT EXISTS idx_fingerprints_updated_at ON fingerprints(updated_at);
`

// dbRecord is the row shape; timestamps are stored as TEXT.
type dbRecord struct {
	Path      string `db:"path"`
	Algorithm string `db:"algorithm"`
	Digest    string `db:"digest"`
	Size      int64  `db:"size"`
	UpdatedAt string `db:"updated_at"`
}

func (r *dbRecord) toRecord() (*Record, error) {
	ts, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for %s: %w", r.Path, err)
	}
	return &Record{
		Path:      r.Path,
		Algorithm: Algorithm(r.Algorithm),
		Digest:    r.Digest,
		Size:      r.Size,
		UpdatedAt: ts,
	}, nil
}

// Journal is a Backend storing fingerprints in a SQLite database.
type Journal struct {
	db     *sqlx.DB
	dbPath string
}

// OpenJournal opens (creating if needed) the journal database at dbPath.
func OpenJournal(dbPath string) (*Journal, error) {
	conn, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return newJournal(conn, dbPath)
}

// NewJournalWithDB uses an already opened database, e.g. an in-memory one in tests.
func NewJournalWithDB(conn *sqlx.DB) (*Journal, error) {
	return newJournal(conn, "")
}

func newJournal(conn *sqlx.DB, dbPath string) (*Journal, error) {
	if _, err := conn.Exec(journalSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}
	return &Journal{db: conn, dbPath: dbPath}, nil
}

func (j *Journal) Get(path string) (*Record, error) {
	if j.db == nil {
		return nil, ErrStoreClosed
	}

	var row dbRecord
	err := j.db.Get(&row, "SELECT path, algorithm, digest, size, updated_at FROM fingerprints WHERE path = ?", path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query fingerprint %s: %w", path, err)
	}
	return row.toRecord()
}

func (j *Journal) Set(rec *Record) error {
	if rec == nil {
		return ErrNilRecord
	}
	if j.db == nil {
		return ErrStoreClosed
	}

	row := dbRecord{
		Path:      rec.Path,
		Algorithm: string(rec.Algorithm),
		Digest:    rec.Digest,
		Size:      rec.Size,
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
	query := `INSERT OR REPLACE INTO fingerprints (path, algorithm, digest, size, updated_at)
	          VALUES (:path, :algorithm, :digest, :size, :updated_at)`
	if _, err := j.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("store fingerprint %s: %w", rec.Path, err)
	}
	slog.Debug("journal set", "path", rec.Path, "digest", rec.Digest)
	return nil
}

// List returns all records ordered by path.
func (j *Journal) List() ([]*Record, error) {
	if j.db == nil {
		return nil, ErrStoreClosed
	}

	var rows []dbRecord
	if err := j.db.Select(&rows, "SELECT path, algorithm, digest, size, updated_at FROM fingerprints ORDER BY path"); err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}

	records := make([]*Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			slog.Warn("skipping corrupt journal row", "path", rows[i].Path, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (j *Journal) Count() (int, error) {
	if j.db == nil {
		return 0, ErrStoreClosed
	}

	var count int
	if err := j.db.Get(&count, "SELECT COUNT(*) FROM fingerprints"); err != nil {
		return 0, fmt.Errorf("count fingerprints: %w", err)
	}
	return count, nil
}

func (j *Journal) Close() error {
	if j.db == nil {
		return ErrStoreClosed
	}
	err := j.db.Close()
	j.db = nil
	return err
}
