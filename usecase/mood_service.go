package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
	"github.com/satriahrh/mindwell/internal/heuristic"
	"github.com/satriahrh/mindwell/internal/normalize"
	"github.com/satriahrh/mindwell/internal/observability"
	"github.com/satriahrh/mindwell/internal/schema"
)

// UnavailableError is returned when the analyzer is not installed.
// Heuristic is set when the audio could be transcribed and classified offline.
type UnavailableError struct {
	Failure   *entities.TransportFailure
	Heuristic *heuristic.Result
}

func (e *UnavailableError) Error() string {
	return e.Failure.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Failure
}

// AnalysisResult is what callers get back from a pipeline run
type AnalysisResult struct {
	Record   *entities.MoodScoreRecord
	Fallback bool
}

// MoodAnalysisService runs transport, normalize, validate, persist and publish in that order
type MoodAnalysisService struct {
	transport repositories.Transport
	moods     repositories.MoodRepository
	publisher repositories.MoodPublisher
	speech    repositories.SpeechToText
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// MoodAnalysisOption configures optional collaborators
type MoodAnalysisOption func(*MoodAnalysisService)

// WithPublisher pushes every stored record to live listeners
func WithPublisher(publisher repositories.MoodPublisher) MoodAnalysisOption {
	return func(s *MoodAnalysisService) { s.publisher = publisher }
}

// WithSpeechFallback transcribes voice notes when the analyzer is not installed
func WithSpeechFallback(speech repositories.SpeechToText) MoodAnalysisOption {
	return func(s *MoodAnalysisService) { s.speech = speech }
}

// WithMetrics records pipeline metrics
func WithMetrics(metrics *observability.Metrics) MoodAnalysisOption {
	return func(s *MoodAnalysisService) { s.metrics = metrics }
}

// NewMoodAnalysisService creates a new mood analysis service
func NewMoodAnalysisService(transport repositories.Transport, moods repositories.MoodRepository, logger *zap.Logger, opts ...MoodAnalysisOption) *MoodAnalysisService {
	s := &MoodAnalysisService{
		transport: transport,
		moods:     moods,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransportName identifies the configured transport
func (s *MoodAnalysisService) TransportName() string {
	return s.transport.Name()
}

// TransportAvailable reports whether the transport's dependency resolves.
// Transports that cannot be probed are assumed available.
func (s *MoodAnalysisService) TransportAvailable() bool {
	if prober, ok := s.transport.(repositories.AvailabilityProber); ok {
		return prober.Available()
	}
	return true
}

// AnalyzeVoice scores a voice note
func (s *MoodAnalysisService) AnalyzeVoice(ctx context.Context, userID string, audio entities.AudioPayload) (*AnalysisResult, error) {
	record, err := s.Analyze(ctx, userID, entities.NewAudioRequest(audio, VoicePrompt))
	if err == nil {
		return &AnalysisResult{Record: record}, nil
	}

	var failure *entities.TransportFailure
	if !errors.As(err, &failure) || failure.Kind != entities.FailureNotInstalled {
		return nil, err
	}

	unavailable := &UnavailableError{Failure: failure}
	if s.speech != nil {
		transcript, terr := s.speech.TranscribeAudio(ctx, &audio)
		if terr != nil {
			s.logger.Warn("Speech fallback failed", zap.String("user_id", userID), zap.Error(terr))
		} else {
			result := heuristic.Classify(transcript)
			unavailable.Heuristic = &result
			s.metrics.CountFallback("speech_heuristic")
		}
	}
	return nil, unavailable
}

// ScoreAnswers scores quiz answers
func (s *MoodAnalysisService) ScoreAnswers(ctx context.Context, userID string, answers []entities.QuizAnswer) (*AnalysisResult, error) {
	if len(answers) == 0 {
		return nil, errors.New("at least one answer is required")
	}
	text := entities.FormatAnswers(answers)
	record, err := s.Analyze(ctx, userID, entities.NewTextRequest(entities.InputKindQuizAnswers, text, QuizScorePrompt))
	if err != nil {
		return nil, err
	}
	return &AnalysisResult{Record: record}, nil
}

// AnalyzeText scores a journal entry. When the model cannot be reached or answers
// with unusable text, the keyword heuristic scores it instead and the record is
// stored with the fallback flag. Schema errors are still returned.
func (s *MoodAnalysisService) AnalyzeText(ctx context.Context, userID, text string) (*AnalysisResult, error) {
	record, err := s.Analyze(ctx, userID, entities.NewTextRequest(entities.InputKindFreeText, text, TextPrompt))
	if err == nil {
		return &AnalysisResult{Record: record}, nil
	}

	var failure *entities.TransportFailure
	reason := ""
	switch {
	case errors.As(err, &failure):
		reason = string(failure.Kind)
	case errors.Is(err, normalize.ErrNoJSON):
		reason = observability.OutcomeInvalidJSON
	default:
		return nil, err
	}

	result := heuristic.Classify(text)
	fallback := &entities.MoodScoreRecord{
		UserID:     userID,
		Source:     entities.SourceText,
		MoodScores: result.Scores(),
		Summary:    result.Describe(),
		Fallback:   true,
	}
	fallback.TagsDetected = entities.DetectTags(fallback.MoodScores)

	s.logger.Info("Using heuristic fallback",
		zap.String("user_id", userID),
		zap.String("reason", reason),
		zap.String("category", string(result.Category)),
	)
	s.metrics.CountFallback(reason)

	if err := s.store(ctx, fallback); err != nil {
		s.metrics.CountAnalysis(string(entities.SourceText), observability.OutcomeStoreError)
		return nil, err
	}
	s.metrics.CountAnalysis(string(entities.SourceText), observability.OutcomeFallback)
	return &AnalysisResult{Record: fallback, Fallback: true}, nil
}

// History lists a user's records, newest first
func (s *MoodAnalysisService) History(ctx context.Context, userID string, limit int) ([]*entities.MoodScoreRecord, error) {
	return s.moods.ListByUser(ctx, userID, limit)
}

// Analyze runs one request through the pipeline and stores the validated record.
// Exactly one transport attempt is made.
func (s *MoodAnalysisService) Analyze(ctx context.Context, userID string, req *entities.MoodAnalysisRequest) (*entities.MoodScoreRecord, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis request: %w", err)
	}
	source := string(req.Source())

	start := time.Now()
	result := s.transport.Analyze(ctx, req)
	elapsed := time.Since(start)

	if !result.OK() {
		failure := result.Failure()
		s.metrics.ObserveTransport(s.transport.Name(), string(failure.Kind), elapsed)
		s.metrics.CountAnalysis(source, string(failure.Kind))
		s.logger.Warn("Transport failed",
			zap.String("transport", s.transport.Name()),
			zap.String("kind", string(failure.Kind)),
			zap.String("detail", failure.Detail),
			zap.Duration("elapsed", elapsed),
		)
		return nil, failure
	}
	s.metrics.ObserveTransport(s.transport.Name(), observability.OutcomeSuccess, elapsed)

	parsed, err := normalize.Parse(result.Text())
	if err != nil {
		s.metrics.CountAnalysis(source, observability.OutcomeInvalidJSON)
		return nil, fmt.Errorf("invalid JSON output: %w", err)
	}

	validated, err := schema.Validate(parsed)
	if err != nil {
		s.metrics.CountAnalysis(source, observability.OutcomeSchemaError)
		s.logger.Warn("Model output failed validation", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	record := entities.NewMoodScoreRecord(userID, req.Source(), validated)
	if err := s.store(ctx, record); err != nil {
		s.metrics.CountAnalysis(source, observability.OutcomeStoreError)
		return nil, err
	}

	s.metrics.CountAnalysis(source, observability.OutcomeSuccess)
	s.logger.Info("Mood analyzed",
		zap.String("user_id", userID),
		zap.String("record_id", record.ID),
		zap.String("source", source),
		zap.Strings("tags", record.TagsDetected),
	)
	return record, nil
}

func (s *MoodAnalysisService) store(ctx context.Context, record *entities.MoodScoreRecord) error {
	if _, err := s.moods.Append(ctx, record); err != nil {
		s.logger.Error("Failed to store mood record", zap.String("user_id", record.UserID), zap.Error(err))
		return fmt.Errorf("failed to store mood record: %w", err)
	}
	if s.publisher != nil {
		s.publisher.Publish(record)
	}
	return nil
}
