package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
	"github.com/satriahrh/mindwell/internal/normalize"
)

const (
	defaultBinary       = "gemini"
	defaultModel        = "gemini-2.5-flash"
	defaultOutputFormat = "json"
	defaultTextTimeout  = 30 * time.Second
	defaultAudioTimeout = 60 * time.Second
	defaultWaitDelay    = 500 * time.Millisecond // after kill, how long to wait for stdio to drain
	maxDetailLength     = 2048
)

// Invocation is everything the argument builder may use
type Invocation struct {
	Model        string
	Prompt       string
	InputPath    string
	OutputFormat string
}

// ArgsBuilder turns an invocation into the argument vector passed to the executable.
// The prompt must stay a single element; it is never interpreted by a shell.
type ArgsBuilder func(inv Invocation) []string

// DefaultArgs builds the gemini CLI arguments. A staged input file is referenced
// from the prompt with the CLI's @path syntax.
func DefaultArgs(inv Invocation) []string {
	prompt := inv.Prompt
	if inv.InputPath != "" {
		prompt = prompt + "\n\n@" + inv.InputPath
	}
	return []string{
		"--model", inv.Model,
		"--output-format", inv.OutputFormat,
		"--prompt", prompt,
	}
}

// Config holds configuration for the CLI transport
// Optional fields with defaults:
// - Binary: executable name or path (default: "gemini", resolved via PATH)
// - Model: model identifier passed to the CLI (default: "gemini-2.5-flash")
// - OutputFormat: CLI output format (default: "json")
// - TempDir: where audio is staged (default: os.TempDir())
// - TextTimeout / AudioTimeout: per invocation limits (default: 30s / 60s)
// - WaitDelay: grace period for output pipes after the process group is killed (default: 500ms)
// - Args: argument builder (default: DefaultArgs)
type Config struct {
	Binary       string
	Model        string
	OutputFormat string
	TempDir      string
	TextTimeout  time.Duration
	AudioTimeout time.Duration
	WaitDelay    time.Duration
	Args         ArgsBuilder
}

// Transport runs the analysis through a local command line tool
type Transport struct {
	binary       string
	model        string
	outputFormat string
	tempDir      string
	textTimeout  time.Duration
	audioTimeout time.Duration
	waitDelay    time.Duration
	args         ArgsBuilder
	logger       *zap.Logger
}

var (
	_ repositories.Transport          = (*Transport)(nil)
	_ repositories.AvailabilityProber = (*Transport)(nil)
)

// ValidateConfig validates the Config
func ValidateConfig(config Config) error {
	if config.TextTimeout < 0 || config.AudioTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if config.WaitDelay < 0 {
		return fmt.Errorf("wait delay must not be negative, got %s", config.WaitDelay)
	}
	if config.TempDir != "" {
		info, err := os.Stat(config.TempDir)
		if err != nil {
			return fmt.Errorf("temp dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("temp dir %s is not a directory", config.TempDir)
		}
	}
	return nil
}

// NewTransport creates a new CLI transport
func NewTransport(config Config, logger *zap.Logger) (*Transport, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	t := &Transport{
		binary:       config.Binary,
		model:        config.Model,
		outputFormat: config.OutputFormat,
		tempDir:      config.TempDir,
		textTimeout:  config.TextTimeout,
		audioTimeout: config.AudioTimeout,
		waitDelay:    config.WaitDelay,
		args:         config.Args,
		logger:       logger,
	}

	if t.binary == "" {
		t.binary = defaultBinary
		logger.Info("Using default CLI binary", zap.String("binary", t.binary))
	}
	if t.model == "" {
		t.model = defaultModel
		logger.Info("Using default CLI model", zap.String("model", t.model))
	}
	if t.outputFormat == "" {
		t.outputFormat = defaultOutputFormat
	}
	if t.tempDir == "" {
		t.tempDir = os.TempDir()
	}
	if t.textTimeout == 0 {
		t.textTimeout = defaultTextTimeout
	}
	if t.audioTimeout == 0 {
		t.audioTimeout = defaultAudioTimeout
	}
	if t.waitDelay == 0 {
		t.waitDelay = defaultWaitDelay
	}
	if t.args == nil {
		t.args = DefaultArgs
	}

	return t, nil
}

// Name implements repositories.Transport
func (t *Transport) Name() string {
	return "cli"
}

// Available reports whether the executable resolves
func (t *Transport) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Analyze runs the CLI once and classifies the outcome
func (t *Transport) Analyze(ctx context.Context, req *entities.MoodAnalysisRequest) entities.TransportResult {
	if err := req.Validate(); err != nil {
		return entities.Failed(entities.FailureUnknown, err.Error())
	}

	timeout := t.textTimeout
	inv := Invocation{
		Model:        t.model,
		Prompt:       req.Prompt(),
		OutputFormat: t.outputFormat,
	}

	if req.Audio != nil {
		timeout = t.audioTimeout
		path, err := t.stageAudio(req.Audio)
		if err != nil {
			t.logger.Error("Failed to stage audio for CLI", zap.Error(err))
			return entities.Failed(entities.FailureUnknown, err.Error())
		}
		defer func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				t.logger.Warn("Failed to remove staged audio", zap.String("path", path), zap.Error(err))
			}
		}()
		inv.InputPath = path
	}

	return t.run(ctx, inv, timeout)
}

func (t *Transport) run(ctx context.Context, inv Invocation, timeout time.Duration) entities.TransportResult {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, t.binary, t.args(inv)...)
	cmd.WaitDelay = t.waitDelay
	killProcessGroupOnCancel(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if kind, failed := classifyRun(err, cmdCtx, ctx); failed {
		switch kind {
		case entities.FailureNotInstalled:
			t.logger.Warn("Analyzer CLI not installed", zap.String("binary", t.binary), zap.Error(err))
			return entities.Failed(kind, fmt.Sprintf("%s: %v", t.binary, err))
		case entities.FailureTimeout:
			t.logger.Warn("Analyzer CLI timed out",
				zap.Duration("timeout", timeout),
				zap.Duration("elapsed", elapsed),
			)
			return entities.Failed(kind, fmt.Sprintf("no result within %s", timeout))
		case entities.FailureNonZeroExit:
			var exitErr *exec.ExitError
			errors.As(err, &exitErr)
			t.logger.Warn("Analyzer CLI exited with error",
				zap.Int("exit_code", exitErr.ExitCode()),
				zap.String("stderr", truncate(stderr.String())),
			)
			return entities.Failed(kind, truncate(strings.TrimSpace(stderr.String())))
		default:
			if ctx.Err() != nil {
				return entities.Failed(kind, ctx.Err().Error())
			}
			t.logger.Error("Analyzer CLI failed to run", zap.Error(err))
			return entities.Failed(kind, err.Error())
		}
	}

	parsed, err := t.parseOutput(stdout.String())
	if err != nil {
		t.logger.Warn("Analyzer CLI returned invalid output",
			zap.String("stdout", truncate(stdout.String())),
			zap.Error(err),
		)
		return entities.Failed(entities.FailureUnknown, "invalid output")
	}

	t.logger.Debug("Analyzer CLI succeeded", zap.Duration("elapsed", elapsed))
	return entities.Success(parsed)
}

// parseOutput normalizes stdout. The json output format wraps the model text in
// an envelope with a "response" field, which is normalized in turn.
func (t *Transport) parseOutput(stdout string) (string, error) {
	value, err := normalize.Parse(stdout)
	if err != nil {
		return "", err
	}

	if envelope, ok := value.(map[string]any); ok {
		if response, ok := envelope["response"].(string); ok {
			if _, scored := envelope["happy"]; !scored {
				value, err = normalize.Parse(response)
				if err != nil {
					return "", err
				}
			}
		}
	}

	raw, err := normalize.MarshalNoEscape(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// stageAudio writes the decoded audio to a new, uniquely named file
func (t *Transport) stageAudio(audio *entities.AudioPayload) (string, error) {
	data, err := base64.StdEncoding.DecodeString(audio.Base64)
	if err != nil {
		return "", fmt.Errorf("invalid audio payload: %w", err)
	}

	path := filepath.Join(t.tempDir, "mood-audio-"+uuid.NewString()+extensionFor(audio.MimeType))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create staged audio: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write staged audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close staged audio: %w", err)
	}

	return path, nil
}

// classifyRun maps the result of Run to a failure kind. A clean exit is a success
// even when the deadline passed while the output was being collected.
func classifyRun(err error, cmdCtx, ctx context.Context) (entities.FailureKind, bool) {
	if err == nil {
		return "", false
	}
	var exitErr *exec.ExitError
	switch {
	case isNotInstalled(err):
		return entities.FailureNotInstalled, true
	case errors.Is(cmdCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return entities.FailureTimeout, true
	case ctx.Err() != nil:
		return entities.FailureUnknown, true
	case errors.As(err, &exitErr):
		return entities.FailureNonZeroExit, true
	default:
		return entities.FailureUnknown, true
	}
}

func isNotInstalled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func extensionFor(mimeType string) string {
	base, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	switch strings.TrimSpace(base) {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/flac":
		return ".flac"
	default:
		return ".wav"
	}
}

func truncate(s string) string {
	if len(s) <= maxDetailLength {
		return s
	}
	return s[:maxDetailLength] + "..."
}
