package internal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	server     TEXT NOT NULL,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	agent       TEXT NOT NULL,
	sender      TEXT NOT NULL,
	content     TEXT NOT NULL,
	is_markup   INTEGER NOT NULL,
	timestamp   TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS task_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	asset_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	image_url   TEXT NOT NULL,
	asset_type  TEXT NOT NULL,
	message     TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_session ON messages(session_id, agent, id);
CREATE INDEX IF NOT EXISTS task_events_session ON task_events(session_id, id);
`

// JournalSession is one row of the sessions table
type JournalSession struct {
	ID           string
	Server       string
	StartedAt    time.Time
	MessageCount int
	TaskEvents   int
}

// TaskRecord is one recorded task state
type TaskRecord struct {
	AssetID    AssetID
	Name       string
	Status     string
	ImageURL   string
	AssetType  string
	Message    string
	RecordedAt time.Time
}

// Journal is an append-only SQLite audit trail of a deck session
type Journal struct {
	db       *sql.DB
	path     string
	session  string
	readOnly bool
}

// OpenJournal opens or creates a journal for writing
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &JournalError{Path: path, Op: "open", Err: err}
	}
	// one writer keeps inserts ordered
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &JournalError{Path: path, Op: "ping", Err: err}
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, &JournalError{Path: path, Op: "migrate", Err: err}
	}
	return &Journal{db: db, path: path}, nil
}

// OpenJournalReadOnly opens an existing journal in read-only mode
func OpenJournalReadOnly(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, &JournalError{Path: path, Op: "open", Err: err}
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &JournalError{Path: path, Op: "ping", Err: err}
	}
	return &Journal{db: db, path: path, readOnly: true}, nil
}

// Path returns the database file
func (j *Journal) Path() string {
	return j.path
}

// SessionID returns the session started by BeginSession
func (j *Journal) SessionID() string {
	return j.session
}

// BeginSession creates the session row every later record is attached to
func (j *Journal) BeginSession(server string) (string, error) {
	id := uuid.NewString()
	_, err := j.db.Exec("INSERT INTO sessions (id, server, started_at) VALUES (?, ?, ?)",
		id, server, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", &JournalError{Path: j.path, Op: "begin session", Err: err}
	}
	j.session = id
	return id, nil
}

// AppendMessage stores one conversation message
func (j *Journal) AppendMessage(agent AgentID, msg Message) error {
	if j.session == "" {
		return &JournalError{Path: j.path, Op: "append message", Err: fmt.Errorf("no session started")}
	}
	_, err := j.db.Exec(
		`INSERT INTO messages (session_id, agent, sender, content, is_markup, timestamp, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.session, string(agent), string(msg.Sender), msg.Content, msg.IsMarkup, msg.Timestamp,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &JournalError{Path: j.path, Op: "append message", Err: err}
	}
	return nil
}

// AppendTask stores the current state of a task
func (j *Journal) AppendTask(task Task) error {
	if j.session == "" {
		return &JournalError{Path: j.path, Op: "append task", Err: fmt.Errorf("no session started")}
	}
	_, err := j.db.Exec(
		`INSERT INTO task_events (session_id, asset_id, name, status, image_url, asset_type, message, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.session, string(task.AssetID), task.Name, task.Status, task.ImageURL, task.AssetType, task.Message,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &JournalError{Path: j.path, Op: "append task", Err: err}
	}
	return nil
}

// RecordMessage implements Recorder. Failures are logged, never surfaced to the session.
func (j *Journal) RecordMessage(agent AgentID, msg Message) {
	if err := j.AppendMessage(agent, msg); err != nil {
		LogWarn("Journal: %v", err)
	}
}

// RecordTask implements Recorder
func (j *Journal) RecordTask(task Task) {
	if err := j.AppendTask(task); err != nil {
		LogWarn("Journal: %v", err)
	}
}

// Sessions lists recorded sessions, newest first
func (j *Journal) Sessions() ([]JournalSession, error) {
	rows, err := j.db.Query(`
		SELECT s.id, s.server, s.started_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
		       (SELECT COUNT(*) FROM task_events t WHERE t.session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, &JournalError{Path: j.path, Op: "list sessions", Err: err}
	}
	defer rows.Close()

	var sessions []JournalSession
	for rows.Next() {
		var s JournalSession
		var started string
		if err := rows.Scan(&s.ID, &s.Server, &started, &s.MessageCount, &s.TaskEvents); err != nil {
			return nil, &JournalError{Path: j.path, Op: "list sessions", Err: fmt.Errorf("scan failed: %w", err)}
		}
		s.StartedAt = parseJournalTime(started)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &JournalError{Path: j.path, Op: "list sessions", Err: fmt.Errorf("rows iteration error: %w", err)}
	}
	return sessions, nil
}

// FindSession resolves a full session id or a unique prefix of one
func (j *Journal) FindSession(ref string) (JournalSession, error) {
	sessions, err := j.Sessions()
	if err != nil {
		return JournalSession{}, err
	}
	var matches []JournalSession
	for _, s := range sessions {
		if s.ID == ref {
			return s, nil
		}
		if len(ref) > 0 && len(s.ID) >= len(ref) && s.ID[:len(ref)] == ref {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return JournalSession{}, fmt.Errorf("session not found: %s", ref)
	case 1:
		return matches[0], nil
	default:
		return JournalSession{}, fmt.Errorf("session prefix %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// Agents lists the agents with recorded messages in a session, in first-message order
func (j *Journal) Agents(sessionID string) ([]AgentID, error) {
	rows, err := j.db.Query(
		"SELECT agent FROM messages WHERE session_id = ? GROUP BY agent ORDER BY MIN(id)", sessionID)
	if err != nil {
		return nil, &JournalError{Path: j.path, Op: "list agents", Err: err}
	}
	defer rows.Close()

	var agents []AgentID
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, &JournalError{Path: j.path, Op: "list agents", Err: fmt.Errorf("scan failed: %w", err)}
		}
		agents = append(agents, AgentID(a))
	}
	if err := rows.Err(); err != nil {
		return nil, &JournalError{Path: j.path, Op: "list agents", Err: err}
	}
	return agents, nil
}

// Messages returns an agent's messages in a session in append order
func (j *Journal) Messages(sessionID string, agent AgentID) ([]Message, error) {
	rows, err := j.db.Query(
		"SELECT sender, content, is_markup, timestamp FROM messages WHERE session_id = ? AND agent = ? ORDER BY id",
		sessionID, string(agent))
	if err != nil {
		return nil, &JournalError{Path: j.path, Op: "read messages", Err: err}
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var sender string
		if err := rows.Scan(&sender, &m.Content, &m.IsMarkup, &m.Timestamp); err != nil {
			return nil, &JournalError{Path: j.path, Op: "read messages", Err: fmt.Errorf("scan failed: %w", err)}
		}
		m.Sender = Role(sender)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &JournalError{Path: j.path, Op: "read messages", Err: err}
	}
	return msgs, nil
}

// Transcripts returns one transcript per agent of a session. A non-empty agent
// restricts the result to that agent.
func (j *Journal) Transcripts(sessionID string, agent AgentID) ([]*Transcript, error) {
	agents, err := j.Agents(sessionID)
	if err != nil {
		return nil, err
	}
	var out []*Transcript
	for _, a := range agents {
		if agent != "" && a != agent {
			continue
		}
		msgs, err := j.Messages(sessionID, a)
		if err != nil {
			return nil, err
		}
		out = append(out, NewTranscript(sessionID, a, "journal", msgs))
	}
	return out, nil
}

// TaskHistory returns every recorded task state of a session in order
func (j *Journal) TaskHistory(sessionID string) ([]TaskRecord, error) {
	rows, err := j.db.Query(
		`SELECT asset_id, name, status, image_url, asset_type, message, recorded_at
		 FROM task_events WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, &JournalError{Path: j.path, Op: "read tasks", Err: err}
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		var r TaskRecord
		var id, recorded string
		if err := rows.Scan(&id, &r.Name, &r.Status, &r.ImageURL, &r.AssetType, &r.Message, &recorded); err != nil {
			return nil, &JournalError{Path: j.path, Op: "read tasks", Err: fmt.Errorf("scan failed: %w", err)}
		}
		r.AssetID = AssetID(id)
		r.RecordedAt = parseJournalTime(recorded)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &JournalError{Path: j.path, Op: "read tasks", Err: err}
	}
	return records, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

func parseJournalTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
