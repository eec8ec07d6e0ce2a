package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
)

const schema = `
CREATE TABLE IF NOT EXISTS mood_scores (
	id            TEXT PRIMARY KEY,
	seq           INTEGER NOT NULL,
	user_id       TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	source        TEXT NOT NULL,
	mood_scores   TEXT NOT NULL,
	summary       TEXT NOT NULL,
	tags_detected TEXT NOT NULL,
	fallback      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_mood_scores_user ON mood_scores (user_id, created_at DESC, seq DESC);
`

// timeLayout has fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MoodRepository stores mood records in a local SQLite file
type MoodRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ repositories.MoodRepository = (*MoodRepository)(nil)

// Open opens a SQLite database and runs migrations
func Open(path string) (*MoodRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer keeps sequence numbers ordered
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &MoodRepository{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection
func (r *MoodRepository) Close() error {
	return r.db.Close()
}

// Append implements repositories.MoodRepository
func (r *MoodRepository) Append(ctx context.Context, record *entities.MoodScoreRecord) (string, error) {
	if record == nil {
		return "", errors.New("record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return "", fmt.Errorf("invalid mood record: %w", err)
	}

	record.PrepareForInsert(r.now())

	scores, err := json.Marshal(record.MoodScores)
	if err != nil {
		return "", fmt.Errorf("marshal scores: %w", err)
	}
	tags, err := json.Marshal(record.TagsDetected)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO mood_scores (id, seq, user_id, created_at, source, mood_scores, summary, tags_detected, fallback)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM mood_scores), ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.CreatedAt.UTC().Format(timeLayout), string(record.Source),
		string(scores), record.Summary, string(tags), record.Fallback,
	)
	if err != nil {
		return "", fmt.Errorf("insert mood record: %w", err)
	}

	return record.ID, nil
}

// ListByUser implements repositories.MoodRepository
func (r *MoodRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.MoodScoreRecord, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, created_at, source, mood_scores, summary, tags_detected, fallback
		 FROM mood_scores WHERE user_id = ?
		 ORDER BY created_at DESC, seq DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query mood records: %w", err)
	}
	defer rows.Close()

	records := make([]*entities.MoodScoreRecord, 0)
	for rows.Next() {
		var (
			rec                  entities.MoodScoreRecord
			createdAt, source    string
			scoresJSON, tagsJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &createdAt, &source, &scoresJSON, &rec.Summary, &tagsJSON, &rec.Fallback); err != nil {
			return nil, fmt.Errorf("scan mood record: %w", err)
		}
		rec.Source = entities.Source(source)
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if err := json.Unmarshal([]byte(scoresJSON), &rec.MoodScores); err != nil {
			return nil, fmt.Errorf("unmarshal scores: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &rec.TagsDetected); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
