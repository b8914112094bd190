package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryEntry is one archived question and its outcome.
type HistoryEntry struct {
	QueryID    string     `json:"query_id"`
	SessionID  string     `json:"session_id"`
	Text       string     `json:"text"`
	Kind       string     `json:"kind"`
	AskedAt    time.Time  `json:"asked_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// HistoryService archives every submitted question in SQLite so history
// survives session deletion. The per-session JSON files remain the source
// of truth for session state; this table is append-mostly.
type HistoryService struct {
	db     *sql.DB
	logger func(string)
}

// NewHistoryService opens (or creates) the archive database at path.
// WAL mode keeps concurrent readers from hitting SQLITE_BUSY.
func NewHistoryService(path string, logger func(string)) (*HistoryService, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach history database: %w", err)
	}

	s := &HistoryService{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *HistoryService) log(msg string) {
	if s.logger != nil {
		s.logger(msg)
	}
}

func (s *HistoryService) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS queries (
		query_id    TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		text        TEXT NOT NULL,
		kind        TEXT NOT NULL DEFAULT '',
		asked_at    TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create queries table: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_queries_session ON queries(session_id)`)
	if err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	return nil
}

// Record archives a newly submitted question.
func (s *HistoryService) Record(queryID, sessionID, text string, askedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO queries (query_id, session_id, text, asked_at) VALUES (?, ?, ?, ?)`,
		queryID, sessionID, text, askedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// MarkResolved stamps a query with its classification once the answer
// arrives. Unknown IDs are ignored.
func (s *HistoryService) MarkResolved(queryID, kind string) error {
	_, err := s.db.Exec(
		`UPDATE queries SET kind = ?, resolved_at = ? WHERE query_id = ?`,
		kind, time.Now().UTC(), queryID)
	if err != nil {
		return fmt.Errorf("failed to mark query resolved: %w", err)
	}
	return nil
}

// Recent returns up to limit archived questions, newest first.
func (s *HistoryService) Recent(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT query_id, session_id, text, kind, asked_at, resolved_at
		 FROM queries ORDER BY asked_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var resolved sql.NullTime
		if err := rows.Scan(&e.QueryID, &e.SessionID, &e.Text, &e.Kind, &e.AskedAt, &resolved); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if resolved.Valid {
			t := resolved.Time
			e.ResolvedAt = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return entries, nil
}

// SessionHistory returns the archive for one session, oldest first.
func (s *HistoryService) SessionHistory(sessionID string) ([]HistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT query_id, session_id, text, kind, asked_at, resolved_at
		 FROM queries WHERE session_id = ? ORDER BY asked_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var resolved sql.NullTime
		if err := rows.Scan(&e.QueryID, &e.SessionID, &e.Text, &e.Kind, &e.AskedAt, &resolved); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if resolved.Valid {
			t := resolved.Time
			e.ResolvedAt = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return entries, nil
}

// Close releases the underlying database handle.
func (s *HistoryService) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
