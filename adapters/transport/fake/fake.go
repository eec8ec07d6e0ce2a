package fake

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
	"github.com/satriahrh/mindwell/internal/heuristic"
)

// QuestionsMarker in a prompt asks the fake transport for quiz questions instead of scores
const QuestionsMarker = `"questions"`

var cannedQuestions = `{"questions":[` +
	`{"id":"q1","question":"How well did you sleep last night?","options":["Very well","Okay","Poorly"]},` +
	`{"id":"q2","question":"How much energy do you have right now?","options":["A lot","Some","Very little"]},` +
	`{"id":"q3","question":"How often did you feel worried today?","options":["Rarely","Sometimes","Often"]},` +
	`{"id":"q4","question":"How connected do you feel to people around you?","options":["Very","Somewhat","Not at all"]},` +
	`{"id":"q5","question":"How would you describe your mood in one word?"}` +
	`]}`

// Transport answers deterministically without calling any model.
// Scores come from the keyword heuristic and are wrapped in prose and a code fence
// the way real models often answer.
type Transport struct{}

var _ repositories.Transport = (*Transport)(nil)

// NewTransport creates a new fake transport
func NewTransport() *Transport {
	return &Transport{}
}

// Name implements repositories.Transport
func (t *Transport) Name() string {
	return "fake"
}

// Analyze implements repositories.Transport
func (t *Transport) Analyze(ctx context.Context, req *entities.MoodAnalysisRequest) entities.TransportResult {
	if err := req.Validate(); err != nil {
		return entities.Failed(entities.FailureUnknown, err.Error())
	}
	if err := ctx.Err(); err != nil {
		return entities.Failed(entities.FailureUnknown, err.Error())
	}

	if strings.Contains(req.PromptTemplate, QuestionsMarker) {
		return entities.Success(cannedQuestions)
	}

	result := heuristic.Classify(req.Text)
	payload := make(map[string]any, 5)
	for mood, weight := range result.Scores() {
		payload[mood] = weight
	}
	payload["summary"] = result.Summary

	raw, err := json.Marshal(payload)
	if err != nil {
		return entities.Failed(entities.FailureUnknown, err.Error())
	}

	return entities.Success("Here is the analysis:\n```json\n" + string(raw) + "\n```")
}
