package memory

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
)

const defaultQuizCacheSize = 1024

// QuizStore keeps the most recently generated quizzes in a bounded LRU cache.
// Older quizzes are evicted; scoring them falls back to the answers alone.
type QuizStore struct {
	cache *lru.Cache[string, *entities.Quiz]
}

var _ repositories.QuizRepository = (*QuizStore)(nil)

// NewQuizStore creates a quiz store holding at most size quizzes
func NewQuizStore(size int) (*QuizStore, error) {
	if size <= 0 {
		size = defaultQuizCacheSize
	}
	cache, err := lru.New[string, *entities.Quiz](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create quiz cache: %w", err)
	}
	return &QuizStore{cache: cache}, nil
}

// Save implements QuizRepository interface
func (s *QuizStore) Save(ctx context.Context, quiz *entities.Quiz) error {
	if quiz == nil {
		return errors.New("quiz cannot be nil")
	}
	if quiz.ID == "" {
		return errors.New("quiz ID cannot be empty")
	}
	if err := quiz.Validate(); err != nil {
		return fmt.Errorf("invalid quiz: %w", err)
	}

	c := *quiz
	c.Questions = append([]entities.QuizQuestion(nil), quiz.Questions...)
	s.cache.Add(quiz.ID, &c)
	return nil
}

// Get implements QuizRepository interface
func (s *QuizStore) Get(ctx context.Context, id string) (*entities.Quiz, error) {
	quiz, ok := s.cache.Get(id)
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *quiz
	return &c, nil
}

// Len reports how many quizzes are held
func (s *QuizStore) Len() int {
	return s.cache.Len()
}
