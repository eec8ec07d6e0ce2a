package api

import (
	"time"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/internal/heuristic"
)

// AnalyzeVoiceRequest is the body of POST /api/analyze-voice
type AnalyzeVoiceRequest struct {
	AudioBase64 string `json:"audioBase64" validate:"required,base64"`
	UID         string `json:"uid" validate:"required"`
	MimeType    string `json:"mimeType,omitempty"`
	SampleRate  int    `json:"sampleRate,omitempty" validate:"gte=0"`
}

// AnalyzeTextRequest is the body of POST /api/analyze-text
type AnalyzeTextRequest struct {
	UID  string `json:"uid" validate:"required"`
	Text string `json:"text" validate:"required,max=10000"`
}

// ClassifyRequest is the body of POST /api/classify
type ClassifyRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

// GenerateQuizRequest is the body of POST /api/generate-quiz
type GenerateQuizRequest struct {
	UID string `json:"uid" validate:"required"`
}

// ScoreQuizRequest is the body of POST /api/score-quiz
type ScoreQuizRequest struct {
	UID     string                `json:"uid" validate:"required"`
	QuizID  string                `json:"quizId,omitempty"`
	Answers []entities.QuizAnswer `json:"answers" validate:"required,min=1,max=50,dive"`
}

// AnalysisResponse is returned for every stored mood record
type AnalysisResponse struct {
	ID           string             `json:"id"`
	Summary      string             `json:"summary"`
	MoodScores   map[string]float64 `json:"moodScores"`
	TagsDetected []string           `json:"tagsDetected"`
	Fallback     bool               `json:"fallback"`
}

// GenerateQuizResponse is returned by POST /api/generate-quiz
type GenerateQuizResponse struct {
	QuizID    string                  `json:"quizId"`
	Questions []entities.QuizQuestion `json:"questions"`
}

// MoodHistoryResponse is returned by GET /api/moods
type MoodHistoryResponse struct {
	UID     string                      `json:"uid"`
	Records []*entities.MoodScoreRecord `json:"records"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status             string    `json:"status"`
	Service            string    `json:"service"`
	Transport          string    `json:"transport"`
	TransportAvailable bool      `json:"transportAvailable"`
	Time               time.Time `json:"time"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message,omitempty"`
	Fallback  bool              `json:"fallback,omitempty"`
	Heuristic *heuristic.Result `json:"heuristic,omitempty"`
}

func newAnalysisResponse(record *entities.MoodScoreRecord, fallback bool) AnalysisResponse {
	return AnalysisResponse{
		ID:           record.ID,
		Summary:      record.Summary,
		MoodScores:   record.MoodScores,
		TagsDetected: record.TagsDetected,
		Fallback:     fallback,
	}
}
