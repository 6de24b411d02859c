// Package timeline journals every connection exchange to sqlite so
// conversations can be audited after the fact.
package timeline

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Service struct {
	db *sql.DB
}

// NewService opens (or creates) the journal database at dbPath.
func NewService(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Service{db: db}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

// RecordExchange appends one exchange to the journal.
func (s *Service) RecordExchange(ex *Exchange) error {
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now()
	}
	result, err := s.db.Exec(`
		INSERT INTO exchanges (trace_id, conn_id, kind, content_in, status, content_out, error_text, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.TraceID, ex.ConnID, ex.Kind, ex.ContentIn, ex.Status, ex.Out, ex.ErrorText, ex.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	ex.ID, _ = result.LastInsertId()
	return nil
}

// ListRecent returns the newest exchanges, most recent first.
func (s *Service) ListRecent(limit int) ([]*Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, trace_id, conn_id, kind, content_in, status, content_out, error_text, timestamp
		FROM exchanges ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()
	return scanExchanges(rows)
}

// ListByConn returns every exchange for one connection in order.
func (s *Service) ListByConn(connID string) ([]*Exchange, error) {
	rows, err := s.db.Query(`
		SELECT id, trace_id, conn_id, kind, content_in, status, content_out, error_text, timestamp
		FROM exchanges WHERE conn_id = ? ORDER BY id ASC`, connID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()
	return scanExchanges(rows)
}

func scanExchanges(rows *sql.Rows) ([]*Exchange, error) {
	var out []*Exchange
	for rows.Next() {
		var ex Exchange
		if err := rows.Scan(&ex.ID, &ex.TraceID, &ex.ConnID, &ex.Kind,
			&ex.ContentIn, &ex.Status, &ex.Out, &ex.ErrorText, &ex.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		out = append(out, &ex)
	}
	return out, rows.Err()
}
