package timeline

import "time"

// Exchange is one journaled request/response pair on a connection.
type Exchange struct {
	ID        int64     `json:"id"`
	TraceID   string    `json:"trace_id"`
	ConnID    string    `json:"conn_id"`
	Kind      string    `json:"kind"` // TEXT or AUDIO
	ContentIn string    `json:"content_in"`
	Status    string    `json:"status"`
	Out       string    `json:"content_out"`
	ErrorText string    `json:"error_text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	KindText  = "TEXT"
	KindAudio = "AUDIO"
)

// Schema is the journal DDL, applied on open.
const Schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT NOT NULL,
	conn_id TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT 'TEXT',
	content_in TEXT,
	status TEXT,
	content_out TEXT,
	error_text TEXT,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_exchanges_conn ON exchanges(conn_id);
CREATE INDEX IF NOT EXISTS idx_exchanges_trace ON exchanges(trace_id);
CREATE INDEX IF NOT EXISTS idx_exchanges_timestamp ON exchanges(timestamp);
`
