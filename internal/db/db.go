// Package db opens the SQLite database behind the fingerprint journal.
package db

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/opendatabs/odsync/internal/utils"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// A journal sees one writer per run, guarded by the workspace lock. WAL lets
// `odsync status` read while a run is publishing.
var journalPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

// Open returns a handle on the database file at path, creating missing parent
// directories. An empty path is treated as MemoryPath. The pool holds a single
// connection: the journal is written sequentially, and each in-memory
// connection would otherwise see its own empty database.
func Open(path string) (*sqlx.DB, error) {
	if path == "" {
		path = MemoryPath
	}

	dsn := path
	if path != MemoryPath {
		if err := utils.EnsureParent(path); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
		dsn = "file:" + path + "?_txlock=immediate&mode=rwc"
	}

	slog.Debug("journal db open", "driver", driverID, "path", path)
	conn, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal db %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)

	for _, pragma := range journalPragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("journal db %s: %w", strings.TrimPrefix(pragma, "PRAGMA "), err)
		}
	}
	return conn, nil
}
