package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Transport names accepted by ANALYZER_TRANSPORT
const (
	TransportCLI    = "cli"
	TransportCloud  = "cloud"
	TransportDirect = "direct"
	TransportFake   = "fake"
)

// Store names accepted by MOOD_STORE
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

type Config struct {
	Port      string
	Env       string
	JWTSecret string
	Analyzer  AnalyzerConfig
	Upstream  UpstreamConfig
	Store     StoreConfig
	Speech    SpeechConfig
}

type AnalyzerConfig struct {
	Transport    string
	CLIPath      string
	Model        string
	TextTimeout  time.Duration
	AudioTimeout time.Duration
	TempDir      string
}

type UpstreamConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	ProxyPrefix       string
	// ProxyInjectKey lets the proxy attach APIKey to requests that carry none
	ProxyInjectKey    bool
}

type StoreConfig struct {
	Kind          string
	MongoURI      string
	MongoDatabase string
	SQLitePath    string
	QuizCacheSize int
}

type SpeechConfig struct {
	Enabled  bool
	Language string
}

// Load reads .env when present, then the process environment
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	textTimeout, err := parseDuration(env("ANALYZER_TEXT_TIMEOUT"), 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ANALYZER_TEXT_TIMEOUT: %w", err)
	}
	audioTimeout, err := parseDuration(env("ANALYZER_AUDIO_TIMEOUT"), 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ANALYZER_AUDIO_TIMEOUT: %w", err)
	}
	upstreamTimeout, err := parseDuration(env("AI_API_TIMEOUT"), 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AI_API_TIMEOUT: %w", err)
	}

	rps := 0.0
	if raw := env("AI_API_RPS"); raw != "" {
		rps, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("AI_API_RPS: %w", err)
		}
	}
	burst, err := parseInt(env("AI_API_BURST"), 0)
	if err != nil {
		return nil, fmt.Errorf("AI_API_BURST: %w", err)
	}
	quizCache, err := parseInt(env("QUIZ_CACHE_SIZE"), 1024)
	if err != nil {
		return nil, fmt.Errorf("QUIZ_CACHE_SIZE: %w", err)
	}

	speechEnabled := false
	if raw := env("SPEECH_FALLBACK"); raw != "" {
		speechEnabled, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("SPEECH_FALLBACK: %w", err)
		}
	}

	injectKey := false
	if raw := env("AI_PROXY_INJECT_KEY"); raw != "" {
		injectKey, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("AI_PROXY_INJECT_KEY: %w", err)
		}
	}

	cfg := &Config{
		Port:      strings.TrimPrefix(firstNonEmpty(env("PORT"), "8080"), ":"),
		Env:       firstNonEmpty(env("APP_ENV"), "local"),
		JWTSecret: env("JWT_SECRET"),
		Analyzer: AnalyzerConfig{
			Transport:    strings.ToLower(firstNonEmpty(env("ANALYZER_TRANSPORT"), TransportCLI)),
			CLIPath:      env("ANALYZER_CLI_PATH"),
			Model:        env("ANALYZER_MODEL"),
			TextTimeout:  textTimeout,
			AudioTimeout: audioTimeout,
			TempDir:      env("MOOD_TEMP_DIR"),
		},
		Upstream: UpstreamConfig{
			APIKey:            env("GEMINI_API_KEY"),
			BaseURL:           firstNonEmpty(env("AI_API_BASE_URL"), "https://generativelanguage.googleapis.com"),
			Timeout:           upstreamTimeout,
			RequestsPerSecond: rps,
			Burst:             burst,
			ProxyPrefix:       firstNonEmpty(env("AI_PROXY_PREFIX"), "/ai"),
			ProxyInjectKey:    injectKey,
		},
		Store: StoreConfig{
			Kind:          strings.ToLower(firstNonEmpty(env("MOOD_STORE"), StoreMemory)),
			MongoURI:      firstNonEmpty(env("MONGODB_URI"), "mongodb://localhost:27017"),
			MongoDatabase: firstNonEmpty(env("MONGODB_DATABASE"), "mindwell"),
			SQLitePath:    firstNonEmpty(env("SQLITE_PATH"), "mindwell.db"),
			QuizCacheSize: quizCache,
		},
		Speech: SpeechConfig{
			Enabled:  speechEnabled,
			Language: firstNonEmpty(env("SPEECH_LANGUAGE"), "en-US"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsLocal reports whether the server runs in local development mode
func (c *Config) IsLocal() bool {
	return strings.EqualFold(c.Env, "local")
}

// Validate checks cross-field requirements
func (c *Config) Validate() error {
	switch c.Analyzer.Transport {
	case TransportCLI, TransportFake:
	case TransportCloud, TransportDirect:
		if c.Upstream.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the %s transport", c.Analyzer.Transport)
		}
	default:
		return fmt.Errorf("unknown ANALYZER_TRANSPORT %q", c.Analyzer.Transport)
	}

	switch c.Store.Kind {
	case StoreMemory, StoreMongo, StoreSQLite:
	default:
		return fmt.Errorf("unknown MOOD_STORE %q", c.Store.Kind)
	}

	if !c.IsLocal() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when APP_ENV is %q", c.Env)
	}
	if c.Store.QuizCacheSize <= 0 {
		return fmt.Errorf("QUIZ_CACHE_SIZE must be positive, got %d", c.Store.QuizCacheSize)
	}
	if !strings.HasPrefix(c.Upstream.ProxyPrefix, "/") {
		return fmt.Errorf("AI_PROXY_PREFIX must start with '/', got %q", c.Upstream.ProxyPrefix)
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", raw)
	}
	return d, nil
}

func parseInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
