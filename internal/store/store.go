// Package store provides the embedded relational database with full-text index that
// backs every other component: conversations, messages, git repositories/commits,
// restore points and their correlations. A single Store owns the only writer connection;
// additional reader connections may be opened against the same WAL-mode file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/ctxmemd/internal/apperr"
	"github.com/fyrsmithlabs/ctxmemd/internal/logging"
)

// Options configures Open.
type Options struct {
	// BusyTimeoutMS is how long a writer waits on SQLITE_BUSY before giving up.
	BusyTimeoutMS int
	// CacheSizeMB sets the page cache size; negative KiB per SQLite convention.
	CacheSizeMB int
	// MmapSizeMB sets the memory-mapped I/O region size.
	MmapSizeMB int
}

// DefaultOptions matches the contract in the component design: a >=64MiB page cache and
// a >=256MiB mmap region.
func DefaultOptions() Options {
	return Options{BusyTimeoutMS: 5000, CacheSizeMB: 64, MmapSizeMB: 256}
}

// Store owns the single writer connection plus a pool of reader connections opened
// against the same WAL-mode database file.
type Store struct {
	path string
	log  *logging.Logger

	writeMu sync.Mutex
	writeDB *sql.DB
	readDB  *sql.DB

	closed bool
}

// Open creates the database directory if missing, opens the database, applies pragmas
// and the schema, and returns a ready Store. The returned Store must be closed by the
// caller.
func Open(ctx context.Context, path string, opts Options, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Noop()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperr.Wrap(apperr.Fatal, "store.Open", "create database directory", err)
	}

	dsn := dataSourceName(path, opts)
	writeDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.Fatal, "store.Open", "open writer connection", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		writeDB.Close()
		return nil, apperr.Wrap(apperr.Fatal, "store.Open", "open reader connection", err)
	}

	s := &Store{path: path, log: log.Named("store"), writeDB: writeDB, readDB: readDB}

	if err := s.applyPragmas(ctx, opts); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.applySchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func dataSourceName(path string, opts Options) string {
	return fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(%d)",
		path, opts.BusyTimeoutMS,
	)
}

func (s *Store) applyPragmas(ctx context.Context, opts Options) error {
	stmts := []string{
		fmt.Sprintf("PRAGMA cache_size = -%d;", opts.CacheSizeMB*1024),
		fmt.Sprintf("PRAGMA mmap_size = %d;", opts.MmapSizeMB*1024*1024),
	}
	for _, stmt := range stmts {
		if _, err := s.writeDB.ExecContext(ctx, stmt); err != nil {
			return apperr.Wrap(apperr.Fatal, "store.applyPragmas", "apply pragma", err)
		}
	}
	return nil
}

// splitStatements separates the DDL string into individually executable statements,
// respecting trigger BEGIN ... END blocks (which themselves contain semicolons) so a
// naive split on ';' never truncates a trigger body.
func splitStatements(ddl string) []string {
	var stmts []string
	var b strings.Builder
	depth := 0
	inTrigger := false
	upperWindow := func(s string) string { return strings.ToUpper(s) }
	lines := strings.Split(ddl, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
		u := upperWindow(trimmed)
		if strings.Contains(u, " BEGIN") || strings.HasPrefix(u, "BEGIN") {
			inTrigger = true
		}
		if inTrigger && strings.HasPrefix(u, "END;") {
			inTrigger = false
			stmts = append(stmts, b.String())
			b.Reset()
			continue
		}
		if !inTrigger && strings.HasSuffix(trimmed, ";") && depth == 0 {
			stmts = append(stmts, b.String())
			b.Reset()
		}
	}
	if strings.TrimSpace(b.String()) != "" {
		stmts = append(stmts, b.String())
	}
	return stmts
}

var uniqueConstraintErr = regexp.MustCompile(`(?i)UNIQUE constraint failed`)

func (s *Store) applySchema(ctx context.Context) error {
	for _, stmt := range splitStatements(schema) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.writeDB.ExecContext(ctx, stmt); err != nil {
			if uniqueConstraintErr.MatchString(err.Error()) {
				s.log.Warn(ctx, "schema statement conflicted on seed insert, continuing",
					logging.F("statement", firstLine(stmt)))
				continue
			}
			return apperr.Wrap(apperr.Fatal, "store.applySchema", "execute schema statement: "+firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Tx runs f inside a write transaction. Nested calls (detected via a re-entrant lock
// held by the same goroutine is not attempted here — callers must not call Tx
// recursively on the same goroutine) share the single-writer discipline by serializing
// on writeMu; the whole (conversation + messages) update performed by a caller is one
// transaction, so partial state is impossible.
func (s *Store) Tx(ctx context.Context, f func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Transient, "store.Tx", "begin transaction", err)
	}
	if err := f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Transient, "store.Tx", "commit transaction", err)
	}
	return nil
}

// Reader returns the connection pool used for read-only queries; WAL mode lets these
// run concurrently with the single writer.
func (s *Store) Reader() *sql.DB { return s.readDB }

// Writer exposes the writer connection for callers that need direct access to it.
func (s *Store) Writer() *sql.DB { return s.writeDB }

// Close closes both connections. Safe to call more than once.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	if s.writeDB != nil {
		if err := s.writeDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats returns the seeded index_stats counters as a typed struct.
type Stats struct {
	SchemaVersion         string
	TotalConversations    int64
	TotalMessages         int64
	LastIncrementalIndex  int64
}

// ReadStats loads the current index_stats row values.
func (s *Store) ReadStats(ctx context.Context) (Stats, error) {
	rows, err := s.readDB.QueryContext(ctx, `SELECT name, value FROM index_stats`)
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.Transient, "store.ReadStats", "query index_stats", err)
	}
	defer rows.Close()

	var out Stats
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Stats{}, apperr.Wrap(apperr.Transient, "store.ReadStats", "scan index_stats row", err)
		}
		switch name {
		case "schema_version":
			out.SchemaVersion = value
		case "total_conversations":
			fmt.Sscanf(value, "%d", &out.TotalConversations)
		case "total_messages":
			fmt.Sscanf(value, "%d", &out.TotalMessages)
		case "last_incremental_index":
			fmt.Sscanf(value, "%d", &out.LastIncrementalIndex)
		}
	}
	return out, rows.Err()
}

// bumpStat adds delta to a numeric index_stats counter within tx. It does not touch
// last_incremental_index; IngestConversation sets that separately via setStat.
func bumpStat(ctx context.Context, tx *sql.Tx, name string, delta int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO index_stats(name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = CAST(CAST(value AS INTEGER) + ? AS TEXT)`,
		name, fmt.Sprint(delta), delta)
	return err
}

func setStat(ctx context.Context, tx *sql.Tx, name, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO index_stats(name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value)
	return err
}
