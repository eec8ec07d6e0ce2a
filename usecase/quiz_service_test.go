package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/mindwell/adapters/memory"
	"github.com/satriahrh/mindwell/adapters/transport/fake"
	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
)

func newQuizService(t *testing.T, transport repositories.Transport) *QuizService {
	t.Helper()
	store, err := memory.NewQuizStore(16)
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	analysis := NewMoodAnalysisService(transport, memory.NewMoodRepository(), logger)
	return NewQuizService(transport, store, analysis, nil, logger)
}

func TestGenerateQuizFromModel(t *testing.T) {
	service := newQuizService(t, &stubTransport{result: entities.Success(
		"```json\n{\"questions\":[{\"question\":\"Sleep?\",\"options\":[\"Good\",\" \",\"Bad\"]},\"Energy?\",{\"question\":\"\"}]}\n```",
	)})

	quiz, err := service.GenerateQuiz(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "q1", quiz.Questions[0].ID)
	assert.Equal(t, []string{"Good", "Bad"}, quiz.Questions[0].Options)
	assert.Equal(t, "Energy?", quiz.Questions[1].Question)
	assert.NotEmpty(t, quiz.ID)

	stored, err := service.GetQuiz(context.Background(), "user-1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, stored.ID)
}

func TestGenerateQuizFallsBackToBank(t *testing.T) {
	results := []entities.TransportResult{
		entities.Failed(entities.FailureNotInstalled, "missing"),
		entities.Success("not json"),
		entities.Success(`{"questions":[]}`),
		entities.Success(`{"happy":1}`),
	}

	for _, result := range results {
		service := newQuizService(t, &stubTransport{result: result})

		quiz, err := service.GenerateQuiz(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Len(t, quiz.Questions, len(questionBank))
		assert.Equal(t, "q5", quiz.Questions[4].ID)
	}
	assert.Empty(t, questionBank[0].ID, "bank entries must not be mutated")
}

func TestGenerateQuizWithFakeTransport(t *testing.T) {
	service := newQuizService(t, fake.NewTransport())

	quiz, err := service.GenerateQuiz(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 5)
}

func TestScoreQuizOwnership(t *testing.T) {
	service := newQuizService(t, fake.NewTransport())
	ctx := context.Background()

	quiz, err := service.GenerateQuiz(ctx, "owner")
	require.NoError(t, err)

	answers := []entities.QuizAnswer{{Question: quiz.Questions[0].Question, Answer: "Very well"}}

	result, err := service.ScoreQuiz(ctx, "owner", quiz.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, entities.SourceQuiz, result.Record.Source)

	_, err = service.ScoreQuiz(ctx, "intruder", quiz.ID, answers)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = service.ScoreQuiz(ctx, "owner", "missing", answers)
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	_, err = service.ScoreQuiz(ctx, "owner", "", answers)
	assert.NoError(t, err, "quiz id is optional")

	_, err = service.ScoreQuiz(ctx, "owner", "", nil)
	assert.Error(t, err)
}

func TestParseQuestionsLimit(t *testing.T) {
	items := make([]any, 0, 15)
	for i := 0; i < 15; i++ {
		items = append(items, "Question?")
	}
	questions, err := parseQuestions(items)
	require.NoError(t, err)
	assert.Len(t, questions, maxQuizQuestions)
}
