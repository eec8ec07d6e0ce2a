package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/mindwell/domain/entities"
)

// ErrNotFound is returned when a stored document does not exist
var ErrNotFound = errors.New("not found")

// MoodRepository persists validated mood records.
// Records are append-only and grouped by user.
type MoodRepository interface {
	// Append fills server-owned fields and stores the record, returning its ID
	Append(ctx context.Context, record *entities.MoodScoreRecord) (string, error)
	// ListByUser returns the user's records, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.MoodScoreRecord, error)
}

// QuizRepository keeps generated quizzes so answers can be matched to them
type QuizRepository interface {
	Save(ctx context.Context, quiz *entities.Quiz) error
	Get(ctx context.Context, id string) (*entities.Quiz, error)
}

// MoodPublisher fans persisted records out to live listeners
type MoodPublisher interface {
	Publish(record *entities.MoodScoreRecord)
}
