// Package storage persists meeting summaries to SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"ai-meeting-copilot/internal/models"
)

// Store provides summary persistence backed by SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS summaries (
	id TEXT PRIMARY KEY,
	sessionId TEXT NOT NULL,
	title TEXT,
	startedAt INTEGER NOT NULL,
	durationSeconds INTEGER NOT NULL,
	summary TEXT NOT NULL,
	keyPoints TEXT,
	actionItems TEXT,
	participants TEXT,
	speakers TEXT,
	appLabel TEXT,
	transcript TEXT,
	tips TEXT,
	createdAt INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summaries_createdAt ON summaries(createdAt);
`

// Open opens (or creates) the database with WAL enabled.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists one summary.
func (s *Store) Save(summary models.MeetingSummary) error {
	keyPoints, err := json.Marshal(summary.KeyPoints)
	if err != nil {
		return fmt.Errorf("marshal key points: %w", err)
	}
	actionItems, err := json.Marshal(summary.ActionItems)
	if err != nil {
		return fmt.Errorf("marshal action items: %w", err)
	}
	participants, err := json.Marshal(summary.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}
	speakers, err := json.Marshal(summary.Speakers)
	if err != nil {
		return fmt.Errorf("marshal speakers: %w", err)
	}
	transcript, err := json.Marshal(summary.Transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	tips, err := json.Marshal(summary.Tips)
	if err != nil {
		return fmt.Errorf("marshal tips: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO summaries
		(id, sessionId, title, startedAt, durationSeconds, summary, keyPoints,
		 actionItems, participants, speakers, appLabel, transcript, tips, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, summary.ID, summary.SessionID, summary.Title, summary.StartedAt.Unix(),
		summary.Duration, summary.Summary, string(keyPoints), string(actionItems),
		string(participants), string(speakers), summary.AppLabel,
		string(transcript), string(tips), summary.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// List returns summary metadata, newest first.
func (s *Store) List() ([]models.SummaryMeta, error) {
	rows, err := s.db.Query(`
		SELECT id, sessionId, title, startedAt, durationSeconds, createdAt
		FROM summaries
		ORDER BY createdAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []models.SummaryMeta
	for rows.Next() {
		var m models.SummaryMeta
		var startedAt, createdAt int64
		var title sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &title, &startedAt, &m.Duration, &createdAt); err != nil {
			return nil, fmt.Errorf("scan summary meta: %w", err)
		}
		if title.Valid {
			m.Title = title.String
		}
		m.StartedAt = time.Unix(startedAt, 0)
		m.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get returns one full summary, or nil if not found.
func (s *Store) Get(id string) (*models.MeetingSummary, error) {
	row := s.db.QueryRow(`
		SELECT id, sessionId, title, startedAt, durationSeconds, summary,
		       keyPoints, actionItems, participants, speakers, appLabel,
		       transcript, tips, createdAt
		FROM summaries
		WHERE id = ?
	`, id)

	var sum models.MeetingSummary
	var startedAt, createdAt int64
	var title, appLabel sql.NullString
	var keyPoints, actionItems, participants, speakers, transcript, tips sql.NullString

	err := row.Scan(&sum.ID, &sum.SessionID, &title, &startedAt, &sum.Duration,
		&sum.Summary, &keyPoints, &actionItems, &participants, &speakers,
		&appLabel, &transcript, &tips, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan summary: %w", err)
	}

	if title.Valid {
		sum.Title = title.String
	}
	if appLabel.Valid {
		sum.AppLabel = appLabel.String
	}
	sum.StartedAt = time.Unix(startedAt, 0)
	sum.CreatedAt = time.Unix(createdAt, 0)

	if err := unmarshalColumn(keyPoints, &sum.KeyPoints); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(actionItems, &sum.ActionItems); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(participants, &sum.Participants); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(speakers, &sum.Speakers); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(transcript, &sum.Transcript); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(tips, &sum.Tips); err != nil {
		return nil, err
	}
	return &sum, nil
}

func unmarshalColumn[T any](col sql.NullString, dst *T) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("unmarshal column: %w", err)
	}
	return nil
}
