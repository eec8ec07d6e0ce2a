package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
)

const (
	defaultBaseURL  = "https://generativelanguage.googleapis.com"
	defaultModel    = "gemini-2.5-flash"
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 4 << 20
	apiKeyHeader    = "x-goog-api-key"
)

// Config holds configuration for the cloud transport and proxy
// Required fields:
// - APIKey: upstream API key
// Optional fields with defaults:
// - BaseURL: upstream base URL (default: "https://generativelanguage.googleapis.com")
// - Model: model identifier (default: "gemini-2.5-flash")
// - Timeout: HTTP client timeout (default: 30s)
// - RequestsPerSecond / Burst: client side rate limit (default: unlimited)
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

// Transport calls the generateContent REST endpoint
type Transport struct {
	apiKey     string
	baseURL    *url.URL
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ repositories.Transport = (*Transport)(nil)

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type upstreamError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ValidateConfig validates the Config
func ValidateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("cloud transport API key is required")
	}
	if config.BaseURL != "" {
		u, err := url.Parse(config.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base URL must be absolute, got %q", config.BaseURL)
		}
	}
	if config.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative, got %f", config.RequestsPerSecond)
	}
	return nil
}

// NewTransport creates a new cloud transport
func NewTransport(config Config, logger *zap.Logger) (*Transport, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
		logger.Info("Using default upstream base URL", zap.String("base_url", baseURL))
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default cloud model", zap.String("model", model))
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &Transport{
		apiKey:     config.APIKey,
		baseURL:    parsed,
		model:      model,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// Name implements repositories.Transport
func (t *Transport) Name() string {
	return "cloud"
}

// Analyze sends one generateContent request and returns the model text
func (t *Transport) Analyze(ctx context.Context, req *entities.MoodAnalysisRequest) entities.TransportResult {
	if err := req.Validate(); err != nil {
		return entities.Failed(entities.FailureUnknown, err.Error())
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return classifyNetworkError(err)
		}
	}

	parts := []part{{Text: req.Prompt()}}
	if req.Audio != nil {
		mimeType := req.Audio.MimeType
		if mimeType == "" {
			mimeType = "audio/wav"
		}
		// base64 is passed through as received; the REST API expects it encoded
		parts = append(parts, part{InlineData: &inlineData{MimeType: mimeType, Data: req.Audio.Base64}})
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return entities.Failed(entities.FailureUnknown, err.Error())
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", t.baseURL.String(), url.PathEscape(t.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return entities.Failed(entities.FailureUnknown, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(apiKeyHeader, t.apiKey)

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.logger.Warn("Upstream request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return classifyNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return classifyNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := upstreamMessage(respBody, resp.Status)
		t.logger.Warn("Upstream returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		return statusFailure(resp.StatusCode, detail)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return entities.Failed(entities.FailureUnknown, fmt.Sprintf("failed to decode upstream response: %v", err))
	}
	if len(parsed.Candidates) == 0 {
		return entities.Failed(entities.FailureUnknown, "upstream returned no candidates")
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	t.logger.Debug("Upstream request succeeded", zap.Duration("elapsed", time.Since(start)))
	return entities.Success(text.String())
}

// statusFailure maps an upstream HTTP status to a failure
func statusFailure(status int, detail string) entities.TransportResult {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return entities.FailedWithStatus(entities.FailureUnauthorized, status, detail)
	}
	return entities.FailedWithStatus(entities.FailureNetwork, status, detail)
}

func classifyNetworkError(err error) entities.TransportResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return entities.Failed(entities.FailureTimeout, err.Error())
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return entities.Failed(entities.FailureTimeout, err.Error())
	}
	return entities.Failed(entities.FailureNetwork, err.Error())
}

func upstreamMessage(body []byte, fallback string) string {
	var upstream upstreamError
	if err := json.Unmarshal(body, &upstream); err == nil && upstream.Error.Message != "" {
		return upstream.Error.Message
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" && len(trimmed) < 512 {
		return trimmed
	}
	return fallback
}
