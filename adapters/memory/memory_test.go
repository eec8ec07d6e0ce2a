package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
)

func validRecord(userID string, happy float64) *entities.MoodScoreRecord {
	return &entities.MoodScoreRecord{
		UserID: userID,
		Source: entities.SourceQuiz,
		MoodScores: map[string]float64{
			"happy": happy, "calm": 0.2, "stressed": 0.2, "anxious": 1 - happy - 0.4,
		},
	}
}

func TestMoodRepositoryAppendAndList(t *testing.T) {
	repo := NewMoodRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := repo.Append(ctx, validRecord("user-1", 0.5))
	if err != nil {
		t.Fatalf("Failed to append record: %v", err)
	}
	second, err := repo.Append(ctx, validRecord("user-1", 0.2))
	if err != nil {
		t.Fatalf("Failed to append record: %v", err)
	}
	if _, err := repo.Append(ctx, validRecord("user-2", 0.3)); err != nil {
		t.Fatalf("Failed to append record: %v", err)
	}

	records, err := repo.ListByUser(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != second || records[1].ID != first {
		t.Errorf("Expected newest first, got %s then %s", records[0].ID, records[1].ID)
	}
	if records[0].Summary != entities.DefaultSummary {
		t.Errorf("Expected default summary, got %q", records[0].Summary)
	}
	if !records[0].CreatedAt.After(records[1].CreatedAt) {
		t.Error("Expected server timestamps to increase")
	}

	limited, err := repo.ListByUser(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("Failed to list records: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second {
		t.Errorf("Expected only the newest record, got %+v", limited)
	}
}

func TestMoodRepositoryRejectsInvalidRecord(t *testing.T) {
	repo := NewMoodRepository()

	record := validRecord("user-1", 0.5)
	delete(record.MoodScores, "anxious")

	if _, err := repo.Append(context.Background(), record); err == nil {
		t.Error("Expected error for record missing anxious score")
	}
	if _, err := repo.Append(context.Background(), nil); err == nil {
		t.Error("Expected error for nil record")
	}

	records, _ := repo.ListByUser(context.Background(), "user-1", 0)
	if len(records) != 0 {
		t.Errorf("Invalid records must not be stored, got %d", len(records))
	}
}

func TestMoodRepositoryReturnsCopies(t *testing.T) {
	repo := NewMoodRepository()
	ctx := context.Background()

	record := validRecord("user-1", 0.5)
	if _, err := repo.Append(ctx, record); err != nil {
		t.Fatalf("Failed to append record: %v", err)
	}
	record.MoodScores["happy"] = 0

	records, _ := repo.ListByUser(ctx, "user-1", 0)
	records[0].MoodScores["calm"] = 0

	again, _ := repo.ListByUser(ctx, "user-1", 0)
	if again[0].MoodScores["happy"] != 0.5 || again[0].MoodScores["calm"] != 0.2 {
		t.Errorf("Stored record was mutated: %+v", again[0].MoodScores)
	}
}

func TestMoodRepositoryConcurrentAppends(t *testing.T) {
	repo := NewMoodRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Append(ctx, validRecord("user-1", 0.4)); err != nil {
				t.Errorf("Failed to append record: %v", err)
			}
		}()
	}
	wg.Wait()

	records, _ := repo.ListByUser(ctx, "user-1", 0)
	if len(records) != 50 {
		t.Errorf("Expected 50 records, got %d", len(records))
	}
}

func TestQuizStore(t *testing.T) {
	store, err := NewQuizStore(2)
	if err != nil {
		t.Fatalf("Failed to create quiz store: %v", err)
	}
	ctx := context.Background()

	quiz := func(id string) *entities.Quiz {
		return &entities.Quiz{
			ID:        id,
			UserID:    "user-1",
			Questions: []entities.QuizQuestion{{ID: "q1", Question: "How are you?"}},
		}
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, quiz(id)); err != nil {
			t.Fatalf("Failed to save quiz %s: %v", id, err)
		}
	}

	if _, err := store.Get(ctx, "a"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected oldest quiz to be evicted, got %v", err)
	}
	got, err := store.Get(ctx, "c")
	if err != nil {
		t.Fatalf("Failed to get quiz: %v", err)
	}
	if got.UserID != "user-1" || len(got.Questions) != 1 {
		t.Errorf("Unexpected quiz: %+v", got)
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 quizzes, got %d", store.Len())
	}

	if err := store.Save(ctx, &entities.Quiz{ID: "d", UserID: "user-1"}); err == nil {
		t.Error("Expected error for quiz without questions")
	}
}
