package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
	"github.com/satriahrh/mindwell/internal/normalize"
	"github.com/satriahrh/mindwell/internal/observability"
)

const maxQuizQuestions = 10

// ErrForbidden is returned when a user touches another user's quiz
var ErrForbidden = errors.New("forbidden")

// questionBank is served when the model cannot produce questions
var questionBank = []entities.QuizQuestion{
	{Question: "How well did you sleep last night?", Options: []string{"Very well", "Okay", "Poorly", "Barely at all"}},
	{Question: "How much energy do you have today?", Options: []string{"Plenty", "Enough", "Low", "Drained"}},
	{Question: "How often have you felt worried or on edge today?", Options: []string{"Not at all", "A little", "Often", "Almost constantly"}},
	{Question: "How connected do you feel to the people around you?", Options: []string{"Very connected", "Somewhat", "A bit isolated", "Very alone"}},
	{Question: "Which word best describes your mood right now?", Options: []string{"Happy", "Calm", "Stressed", "Sad"}},
}

// QuizService generates check-in quizzes and scores the answers
type QuizService struct {
	transport repositories.Transport
	quizzes   repositories.QuizRepository
	analysis  *MoodAnalysisService
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewQuizService creates a new quiz service
func NewQuizService(transport repositories.Transport, quizzes repositories.QuizRepository, analysis *MoodAnalysisService, metrics *observability.Metrics, logger *zap.Logger) *QuizService {
	return &QuizService{
		transport: transport,
		quizzes:   quizzes,
		analysis:  analysis,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// GenerateQuiz asks the model for questions, falling back to the built-in bank
func (s *QuizService) GenerateQuiz(ctx context.Context, userID string) (*entities.Quiz, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	questions, err := s.generateQuestions(ctx)
	if err != nil {
		s.logger.Warn("Using question bank", zap.String("user_id", userID), zap.Error(err))
		s.metrics.CountFallback("quiz_bank")
		questions = append([]entities.QuizQuestion(nil), questionBank...)
	}
	for i := range questions {
		questions[i].ID = fmt.Sprintf("q%d", i+1)
	}

	quiz := &entities.Quiz{
		ID:        uuid.NewString(),
		UserID:    userID,
		Questions: questions,
		CreatedAt: s.now().UTC(),
	}
	if err := s.quizzes.Save(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to save quiz: %w", err)
	}

	s.logger.Info("Quiz generated",
		zap.String("user_id", userID),
		zap.String("quiz_id", quiz.ID),
		zap.Int("questions", len(questions)),
	)
	return quiz, nil
}

// GetQuiz returns a stored quiz owned by userID
func (s *QuizService) GetQuiz(ctx context.Context, userID, quizID string) (*entities.Quiz, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.UserID != userID {
		return nil, ErrForbidden
	}
	return quiz, nil
}

// ScoreQuiz scores answers. When quizID is set the quiz must exist and belong to the user.
func (s *QuizService) ScoreQuiz(ctx context.Context, userID, quizID string, answers []entities.QuizAnswer) (*AnalysisResult, error) {
	if quizID != "" {
		if _, err := s.GetQuiz(ctx, userID, quizID); err != nil {
			return nil, err
		}
	}
	return s.analysis.ScoreAnswers(ctx, userID, answers)
}

func (s *QuizService) generateQuestions(ctx context.Context) ([]entities.QuizQuestion, error) {
	start := time.Now()
	result := s.transport.Analyze(ctx, entities.NewTextRequest(entities.InputKindFreeText, quizGenerateInput, QuizGeneratePrompt))
	if !result.OK() {
		s.metrics.ObserveTransport(s.transport.Name(), string(result.Failure().Kind), time.Since(start))
		return nil, result.Failure()
	}
	s.metrics.ObserveTransport(s.transport.Name(), observability.OutcomeSuccess, time.Since(start))

	parsed, err := normalize.Parse(result.Text())
	if err != nil {
		return nil, err
	}
	return parseQuestions(parsed)
}

// parseQuestions accepts {"questions": [...]} or a bare list, with items given as
// objects or plain strings
func parseQuestions(parsed any) ([]entities.QuizQuestion, error) {
	items, ok := parsed.([]any)
	if !ok {
		obj, isObj := parsed.(map[string]any)
		if !isObj {
			return nil, fmt.Errorf("unexpected questions payload %T", parsed)
		}
		items, ok = obj["questions"].([]any)
		if !ok {
			return nil, errors.New("questions list missing")
		}
	}

	questions := make([]entities.QuizQuestion, 0, len(items))
	for _, item := range items {
		if len(questions) == maxQuizQuestions {
			break
		}
		var q entities.QuizQuestion
		switch v := item.(type) {
		case string:
			q.Question = strings.TrimSpace(v)
		case map[string]any:
			if text, ok := v["question"].(string); ok {
				q.Question = strings.TrimSpace(text)
			}
			if options, ok := v["options"].([]any); ok {
				for _, o := range options {
					if s, ok := o.(string); ok && strings.TrimSpace(s) != "" {
						q.Options = append(q.Options, strings.TrimSpace(s))
					}
				}
			}
		}
		if q.Question != "" {
			questions = append(questions, q)
		}
	}

	if len(questions) == 0 {
		return nil, errors.New("no usable questions")
	}
	return questions, nil
}
