package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ========================================
// HistoryStore - SQLite command audit log
// ========================================

// HistoryStore persists one row per handled command. Writes are buffered and
// flushed in the background so auditing never stalls command handling.
type HistoryStore struct {
	db     *sql.DB
	dbPath string

	writeBuffer    []CommandRecord
	writeBufferMu  sync.Mutex
	flushInterval  time.Duration
	flushThreshold int
	flushTicker    *time.Ticker
	stopChan       chan struct{}

	stmtInsert *sql.Stmt
}

const historySchemaSQL = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

CREATE TABLE IF NOT EXISTS commands (
    id TEXT PRIMARY KEY,
    command TEXT NOT NULL,
    params TEXT,
    result TEXT,
    success INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER DEFAULT (strftime('%s', 'now') * 1000)
);

CREATE INDEX IF NOT EXISTS idx_commands_time ON commands(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_commands_name ON commands(command);
`

// NewHistoryStore opens (or creates) the audit database under dataDir.
func NewHistoryStore(dataDir string) (*HistoryStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &HistoryStore{
		db:             db,
		dbPath:         dbPath,
		writeBuffer:    make([]CommandRecord, 0, 128),
		flushInterval:  500 * time.Millisecond,
		flushThreshold: 64,
		stopChan:       make(chan struct{}),
	}

	if _, err := db.Exec(historySchemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	store.stmtInsert, err = db.Prepare(`
		INSERT OR REPLACE INTO commands (id, command, params, result, success, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert command: %w", err)
	}

	store.startBackgroundWriter()
	return store, nil
}

func (s *HistoryStore) startBackgroundWriter() {
	s.flushTicker = time.NewTicker(s.flushInterval)
	go func() {
		for {
			select {
			case <-s.flushTicker.C:
				s.Flush()
			case <-s.stopChan:
				s.flushTicker.Stop()
				s.Flush()
				return
			}
		}
	}()
}

// Record buffers one command round trip for persistence.
func (s *HistoryStore) Record(rec CommandRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()[:8]
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixMilli()
	}

	s.writeBufferMu.Lock()
	s.writeBuffer = append(s.writeBuffer, rec)
	shouldFlush := len(s.writeBuffer) >= s.flushThreshold
	s.writeBufferMu.Unlock()

	if shouldFlush {
		return s.Flush()
	}
	return nil
}

// Flush writes the buffered records inside one transaction.
func (s *HistoryStore) Flush() error {
	s.writeBufferMu.Lock()
	if len(s.writeBuffer) == 0 {
		s.writeBufferMu.Unlock()
		return nil
	}
	batch := s.writeBuffer
	s.writeBuffer = make([]CommandRecord, 0, 128)
	s.writeBufferMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin flush tx: %w", err)
	}
	stmt := tx.Stmt(s.stmtInsert)
	for _, rec := range batch {
		if _, err := stmt.Exec(
			rec.ID, rec.Command, rec.Params, rec.Result,
			boolToInt(rec.Success), rec.Error, rec.DurationMs, rec.CreatedAt,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert command record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flush tx: %w", err)
	}
	return nil
}

// Tail returns the most recent records, newest first.
func (s *HistoryStore) Tail(limit int) ([]CommandRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	// Make buffered rows visible before reading.
	if err := s.Flush(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT id, command, params, result, success, error, duration_ms, created_at
		FROM commands ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query command history: %w", err)
	}
	defer rows.Close()

	var records []CommandRecord
	for rows.Next() {
		var rec CommandRecord
		var success int
		var params, result, errMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Command, &params, &result, &success, &errMsg, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan command record: %w", err)
		}
		rec.Params = params.String
		rec.Result = result.String
		rec.Error = errMsg.String
		rec.Success = success != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close flushes and closes the store.
func (s *HistoryStore) Close() error {
	close(s.stopChan)
	// Let the background writer finish its final flush.
	time.Sleep(100 * time.Millisecond)

	if s.stmtInsert != nil {
		s.stmtInsert.Close()
	}
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
