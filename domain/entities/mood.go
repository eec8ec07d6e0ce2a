package entities

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InputKind describes what a user submitted for analysis
type InputKind string

const (
	InputKindFreeText    InputKind = "free_text"
	InputKindQuizAnswers InputKind = "quiz_answers"
	InputKindAudio       InputKind = "audio"
)

// Source records which flow produced a mood record
type Source string

const (
	SourceVoice Source = "voice"
	SourceQuiz  Source = "quiz"
	SourceText  Source = "text"
)

// SalienceThreshold is the weight a mood label must strictly exceed to be tagged
const SalienceThreshold = 0.3

// DefaultSummary is stored when the model did not provide one
const DefaultSummary = "No summary provided."

// RequiredMoods must be present and numeric in every score record
var RequiredMoods = []string{"happy", "calm", "stressed", "anxious"}

// AudioPayload carries base64 encoded audio as received from the client.
// Only transports decode it.
type AudioPayload struct {
	Base64     string `json:"audio_base64"`
	SampleRate int    `json:"sample_rate,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
}

// MoodAnalysisRequest is a single request to an analysis transport
type MoodAnalysisRequest struct {
	Kind           InputKind     `json:"kind"`
	Text           string        `json:"text,omitempty"`
	Audio          *AudioPayload `json:"audio,omitempty"`
	PromptTemplate string        `json:"prompt_template"`
}

// NewTextRequest builds a free text or quiz request
func NewTextRequest(kind InputKind, text, promptTemplate string) *MoodAnalysisRequest {
	return &MoodAnalysisRequest{
		Kind:           kind,
		Text:           text,
		PromptTemplate: promptTemplate,
	}
}

// NewAudioRequest builds an audio request
func NewAudioRequest(audio AudioPayload, promptTemplate string) *MoodAnalysisRequest {
	return &MoodAnalysisRequest{
		Kind:           InputKindAudio,
		Audio:          &audio,
		PromptTemplate: promptTemplate,
	}
}

// Validate checks that exactly one of text or audio is populated
func (r *MoodAnalysisRequest) Validate() error {
	if r == nil {
		return errors.New("request cannot be nil")
	}

	hasText := strings.TrimSpace(r.Text) != ""
	hasAudio := r.Audio != nil && r.Audio.Base64 != ""

	switch {
	case hasText && hasAudio:
		return errors.New("request must carry either text or audio, not both")
	case !hasText && !hasAudio:
		return errors.New("request must carry text or audio")
	}

	if hasAudio && r.Kind != InputKindAudio {
		return fmt.Errorf("audio payload requires kind %q, got %q", InputKindAudio, r.Kind)
	}
	if hasText && r.Kind == InputKindAudio {
		return errors.New("text payload cannot use the audio kind")
	}

	return nil
}

// Prompt renders the instruction and the user input into one prompt string.
// Audio requests only carry the instruction; the audio travels separately.
func (r *MoodAnalysisRequest) Prompt() string {
	template := strings.TrimSpace(r.PromptTemplate)
	if r.Kind == InputKindAudio || strings.TrimSpace(r.Text) == "" {
		return template
	}
	if template == "" {
		return r.Text
	}
	return template + "\n\n" + r.Text
}

// Source maps the input kind to the record source
func (r *MoodAnalysisRequest) Source() Source {
	switch r.Kind {
	case InputKindAudio:
		return SourceVoice
	case InputKindQuizAnswers:
		return SourceQuiz
	default:
		return SourceText
	}
}

// MoodScoreRecord is the validated, persisted result of one analysis
type MoodScoreRecord struct {
	ID           string             `json:"id" bson:"_id"`
	UserID       string             `json:"userId" bson:"userId"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	Source       Source             `json:"source" bson:"source"`
	MoodScores   map[string]float64 `json:"moodScores" bson:"moodScores"`
	Summary      string             `json:"summary" bson:"summary"`
	TagsDetected []string           `json:"tagsDetected" bson:"tagsDetected"`
	Fallback     bool               `json:"fallback,omitempty" bson:"fallback,omitempty"`
}

// NewMoodScoreRecord builds a record from a validated score mapping.
// Non-numeric entries other than summary are dropped.
func NewMoodScoreRecord(userID string, source Source, validated map[string]any) *MoodScoreRecord {
	scores := make(map[string]float64, len(validated))
	var summary string

	for key, value := range validated {
		if key == "summary" {
			if s, ok := value.(string); ok {
				summary = strings.TrimSpace(s)
			}
			continue
		}
		if f, ok := AsFloat(value); ok {
			scores[key] = f
		}
	}

	return &MoodScoreRecord{
		UserID:       userID,
		Source:       source,
		MoodScores:   scores,
		Summary:      summary,
		TagsDetected: DetectTags(scores),
	}
}

// DetectTags returns the labels whose weight strictly exceeds the salience threshold
func DetectTags(scores map[string]float64) []string {
	tags := make([]string, 0, len(scores))
	for label, weight := range scores {
		if weight > SalienceThreshold {
			tags = append(tags, label)
		}
	}
	sort.Strings(tags)
	return tags
}

// PrepareForInsert fills the fields owned by the persistence layer
func (r *MoodScoreRecord) PrepareForInsert(now time.Time) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = now.UTC()
	if strings.TrimSpace(r.Summary) == "" {
		r.Summary = DefaultSummary
	}
	if r.TagsDetected == nil {
		r.TagsDetected = DetectTags(r.MoodScores)
	}
}

// Validate checks the fields every stored record needs
func (r *MoodScoreRecord) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	switch r.Source {
	case SourceVoice, SourceQuiz, SourceText:
	default:
		return fmt.Errorf("invalid source %q", r.Source)
	}
	for _, mood := range RequiredMoods {
		if _, ok := r.MoodScores[mood]; !ok {
			return fmt.Errorf("mood score %q is required", mood)
		}
	}
	return nil
}

// AsFloat converts the numeric types a decoded JSON mapping may hold
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
