package direct

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/mindwell/domain/entities"
)

type fakeModels struct {
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
	block    bool
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.contents = contents
	f.config = config
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeminiTransportText(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{"happy":0.5,`, `"calm":0.5}`)}
	transport := newGeminiTransport(models, GeminiConfig{}, zaptest.NewLogger(t))

	result := transport.Analyze(context.Background(), entities.NewTextRequest(entities.InputKindFreeText, "good day", "Rate it."))

	require.True(t, result.OK(), "unexpected failure: %v", result.Failure())
	assert.Equal(t, `{"happy":0.5,"calm":0.5}`, result.Text())
	require.Len(t, models.contents, 1)
	require.Len(t, models.contents[0].Parts, 1)
	assert.Equal(t, "Rate it.\n\ngood day", models.contents[0].Parts[0].Text)
	assert.Equal(t, "application/json", models.config.ResponseMIMEType)
	assert.Equal(t, "direct", transport.Name())
}

func TestGeminiTransportDecodesAudio(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{}`)}
	transport := newGeminiTransport(models, GeminiConfig{}, zaptest.NewLogger(t))

	req := entities.NewAudioRequest(entities.AudioPayload{Base64: "SGVsbG8=", MimeType: "audio/webm"}, "Listen.")
	result := transport.Analyze(context.Background(), req)

	require.True(t, result.OK())
	parts := models.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, []byte("Hello"), parts[1].InlineData.Data)
	assert.Equal(t, "audio/webm", parts[1].InlineData.MIMEType)
}

func TestGeminiTransportInvalidAudio(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{}`)}
	transport := newGeminiTransport(models, GeminiConfig{}, zaptest.NewLogger(t))

	result := transport.Analyze(context.Background(), entities.NewAudioRequest(entities.AudioPayload{Base64: "@@@"}, "Listen."))

	require.False(t, result.OK())
	assert.Equal(t, entities.FailureUnknown, result.Failure().Kind)
	assert.Nil(t, models.contents, "model must not be called with undecodable audio")
}

func TestGeminiTransportErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   entities.FailureKind
		status int
	}{
		{"unauthorized", genai.APIError{Code: 401, Message: "bad key"}, entities.FailureUnauthorized, 401},
		{"forbidden", genai.APIError{Code: 403, Message: "denied"}, entities.FailureUnauthorized, 403},
		{"server error", genai.APIError{Code: 503, Message: "overloaded"}, entities.FailureNetwork, 503},
		{"transport error", errors.New("dial tcp: connection refused"), entities.FailureNetwork, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newGeminiTransport(&fakeModels{err: tt.err}, GeminiConfig{}, zaptest.NewLogger(t))

			result := transport.Analyze(context.Background(), entities.NewTextRequest(entities.InputKindFreeText, "hi", ""))

			require.False(t, result.OK())
			assert.Equal(t, tt.kind, result.Failure().Kind)
			assert.Equal(t, tt.status, result.Failure().StatusCode)
		})
	}
}

func TestGeminiTransportTimeout(t *testing.T) {
	transport := newGeminiTransport(&fakeModels{block: true}, GeminiConfig{Timeout: 50 * time.Millisecond}, zaptest.NewLogger(t))

	result := transport.Analyze(context.Background(), entities.NewTextRequest(entities.InputKindFreeText, "hi", ""))

	require.False(t, result.OK())
	assert.Equal(t, entities.FailureTimeout, result.Failure().Kind)
}

func TestGeminiTransportEmptyResponse(t *testing.T) {
	transport := newGeminiTransport(&fakeModels{resp: &genai.GenerateContentResponse{}}, GeminiConfig{}, zaptest.NewLogger(t))

	result := transport.Analyze(context.Background(), entities.NewTextRequest(entities.InputKindFreeText, "hi", ""))

	require.False(t, result.OK())
	assert.Equal(t, entities.FailureUnknown, result.Failure().Kind)
}

func TestValidateGeminiConfig(t *testing.T) {
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", Timeout: -time.Second}))
	assert.NoError(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k"}))
}
