package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
)

// MoodRepository is an in-memory implementation of MoodRepository.
// Suitable for local development and single instance deployments.
type MoodRepository struct {
	mu      sync.RWMutex
	records map[string][]*entities.MoodScoreRecord // user_id -> records, oldest first
	now     func() time.Time
}

var _ repositories.MoodRepository = (*MoodRepository)(nil)

// NewMoodRepository creates a new in-memory mood repository
func NewMoodRepository() *MoodRepository {
	return &MoodRepository{
		records: make(map[string][]*entities.MoodScoreRecord),
		now:     time.Now,
	}
}

// Append implements MoodRepository interface
func (m *MoodRepository) Append(ctx context.Context, record *entities.MoodScoreRecord) (string, error) {
	if record == nil {
		return "", errors.New("record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return "", fmt.Errorf("invalid mood record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record.PrepareForInsert(m.now())
	m.records[record.UserID] = append(m.records[record.UserID], cloneRecord(record))

	return record.ID, nil
}

// ListByUser implements MoodRepository interface
func (m *MoodRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.MoodScoreRecord, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.records[userID]
	n := len(stored)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]*entities.MoodScoreRecord, 0, n)
	for i := len(stored) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, cloneRecord(stored[i]))
	}
	return result, nil
}

func cloneRecord(r *entities.MoodScoreRecord) *entities.MoodScoreRecord {
	c := *r
	c.MoodScores = make(map[string]float64, len(r.MoodScores))
	for k, v := range r.MoodScores {
		c.MoodScores[k] = v
	}
	c.TagsDetected = append([]string(nil), r.TagsDetected...)
	return &c
}
