package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrResponseTooLarge is returned when the upstream body exceeds the relay limit
var ErrResponseTooLarge = errors.New("upstream response too large")

// hopHeaders are connection scoped and never forwarded
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Host",
	"Content-Length",
}

// ProxyRequest is an inbound request to relay upstream
type ProxyRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     io.Reader
}

// ProxyResponse is the upstream answer relayed back verbatim
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Proxy forwards arbitrary requests to the upstream AI API
type Proxy struct {
	apiKey          string
	baseURL         *url.URL
	prefix          string
	maxResponseSize int64
	httpClient      *http.Client
	logger          *zap.Logger
}

// NewProxy creates a proxy that strips prefix from inbound paths.
// The API key is optional here; it is only added when the caller sent none.
func NewProxy(config Config, prefix string, logger *zap.Logger) (*Proxy, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute, got %q", baseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Proxy{
		apiKey:          config.APIKey,
		baseURL:         parsed,
		prefix:          "/" + strings.Trim(prefix, "/"),
		maxResponseSize: maxResponseSize,
		httpClient:      httpClient,
		logger:          logger,
	}, nil
}

// Prefix is the route prefix the proxy is mounted under
func (p *Proxy) Prefix() string {
	return p.prefix
}

// Forward relays one request. Errors are local failures; upstream error
// statuses are returned as a normal response.
func (p *Proxy) Forward(ctx context.Context, in ProxyRequest) (*ProxyResponse, error) {
	target := *p.baseURL
	target.Path = p.baseURL.Path + p.stripPrefix(in.Path)
	target.RawPath = ""
	target.RawQuery = in.RawQuery

	method := in.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), in.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}

	for key, values := range in.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" && req.Header.Get(apiKeyHeader) == "" {
		req.Header.Set(apiKeyHeader, p.apiKey)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}
	if int64(len(body)) > p.maxResponseSize {
		p.logger.Warn("Upstream response too large",
			zap.String("path", target.Path),
			zap.Int64("limit", p.maxResponseSize),
		)
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, p.maxResponseSize)
	}

	p.logger.Debug("Proxied upstream request",
		zap.String("method", method),
		zap.String("path", target.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	return &ProxyResponse{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (p *Proxy) stripPrefix(path string) string {
	if p.prefix != "/" {
		path = strings.TrimPrefix(path, p.prefix)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
