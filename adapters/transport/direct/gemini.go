package direct

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
)

const (
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 60 * time.Second
)

// contentGenerator is the slice of the genai client this transport calls
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig holds configuration for the direct SDK transport
// Required fields:
// - APIKey: Gemini API key
// Optional fields with defaults:
// - Model: model identifier (default: "gemini-2.5-flash")
// - Timeout: per call limit (default: 60s)
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiTransport calls the model in-process through the genai client library
type GeminiTransport struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

var _ repositories.Transport = (*GeminiTransport)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Gemini API key is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewGeminiTransport creates the genai client once; it is owned by the transport
func NewGeminiTransport(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiTransport, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGeminiTransport(client.Models, config, logger), nil
}

func newGeminiTransport(models contentGenerator, config GeminiConfig, logger *zap.Logger) *GeminiTransport {
	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
		logger.Info("Using default timeout", zap.Duration("timeout", timeout))
	}

	return &GeminiTransport{
		models:  models,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Name implements repositories.Transport
func (g *GeminiTransport) Name() string {
	return "direct"
}

// Analyze sends the prompt, plus decoded inline audio when present, in one call
func (g *GeminiTransport) Analyze(ctx context.Context, req *entities.MoodAnalysisRequest) entities.TransportResult {
	if err := req.Validate(); err != nil {
		return entities.Failed(entities.FailureUnknown, err.Error())
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt())}
	if req.Audio != nil {
		data, err := base64.StdEncoding.DecodeString(req.Audio.Base64)
		if err != nil {
			return entities.Failed(entities.FailureUnknown, fmt.Sprintf("invalid audio payload: %v", err))
		}
		mimeType := req.Audio.MimeType
		if mimeType == "" {
			mimeType = "audio/wav"
		}
		parts = append(parts, genai.NewPartFromBytes(data, mimeType))
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.models.GenerateContent(callCtx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		g.logger.Warn("Gemini request failed",
			zap.String("model", g.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return classifyError(callCtx, err)
	}

	text := responseText(resp)
	if text == "" {
		return entities.Failed(entities.FailureUnknown, "model returned no content")
	}

	g.logger.Debug("Gemini request succeeded", zap.Duration("elapsed", time.Since(start)))
	return entities.Success(text)
}

func classifyError(ctx context.Context, err error) entities.TransportResult {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return entities.Failed(entities.FailureTimeout, err.Error())
	}

	code, message, ok := apiErrorCode(err)
	if ok {
		if code == 401 || code == 403 {
			return entities.FailedWithStatus(entities.FailureUnauthorized, code, message)
		}
		return entities.FailedWithStatus(entities.FailureNetwork, code, message)
	}

	return entities.Failed(entities.FailureNetwork, err.Error())
}

func apiErrorCode(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
