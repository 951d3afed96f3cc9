// Package session persists conversation transcripts. Each session is a
// row holding its sanitized message history as JSON; the live,
// unsanitized transcript only ever exists in memory.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/deskwork/deskwork/internal/llm"
)

// Meta describes a session without its transcript.
type Meta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a SQLite-backed session store. All public methods are safe
// for concurrent use (SQLite serializes writes).
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a session store at the given database path. The
// schema is created automatically on first use.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		messages   TEXT NOT NULL,
		pinned     INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create inserts a new empty session and returns its metadata.
func (s *Store) Create(title string) (Meta, error) {
	if title == "" {
		title = "New Session"
	}
	now := time.Now().UTC()
	m := Meta{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, title, messages, pinned, created_at, updated_at)
		 VALUES (?, ?, '[]', 0, ?, ?)`,
		m.ID, m.Title, now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return Meta{}, fmt.Errorf("create session: %w", err)
	}
	return m, nil
}

// Load returns a session's transcript. A missing or unparsable row
// degrades to an empty transcript titled "Error" so a corrupted
// session never blocks starting a conversation.
func (s *Store) Load(id string) (string, []llm.Message) {
	var title, raw string
	err := s.db.QueryRow(
		`SELECT title, messages FROM sessions WHERE id = ?`, id,
	).Scan(&title, &raw)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("session load failed", "id", id, "error", err)
		}
		return "Error", nil
	}

	var history []llm.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		s.logger.Warn("session transcript unparsable", "id", id, "error", err)
		return "Error", nil
	}
	return title, history
}

// Save persists a sanitized copy of the transcript. The history passed
// in is not modified. A session that does not exist yet is created
// with the given title.
func (s *Store) Save(id, title string, history []llm.Message) error {
	raw, err := json.Marshal(Sanitize(history))
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, title, messages, pinned, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT (id) DO UPDATE
		 SET title = excluded.title, messages = excluded.messages, updated_at = excluded.updated_at`,
		id, title, string(raw), now, now,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// List returns session metadata, pinned sessions first, then most
// recently updated.
func (s *Store) List() ([]Meta, error) {
	rows, err := s.db.Query(
		`SELECT id, title, pinned, created_at, updated_at
		 FROM sessions ORDER BY pinned DESC, updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var result []Meta
	for rows.Next() {
		var m Meta
		var pinned int
		var created, updated string
		if err := rows.Scan(&m.ID, &m.Title, &pinned, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		m.Pinned = pinned != 0
		m.CreatedAt, _ = time.Parse(time.RFC3339, created)
		m.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		result = append(result, m)
	}
	return result, rows.Err()
}

// Rename changes a session's title.
func (s *Store) Rename(id, title string) error {
	res, err := s.db.Exec(`UPDATE sessions SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("rename session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// Pin sets or clears a session's pinned flag.
func (s *Store) Pin(id string, pinned bool) error {
	v := 0
	if pinned {
		v = 1
	}
	res, err := s.db.Exec(`UPDATE sessions SET pinned = ? WHERE id = ?`, v, id)
	if err != nil {
		return fmt.Errorf("pin session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// Delete removes a session. No error is returned if it does not exist.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
