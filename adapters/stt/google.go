package stt

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/mindwell/domain/entities"
	"github.com/satriahrh/mindwell/domain/repositories"
)

const defaultLanguage = "en-US"

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// GoogleConfig holds configuration for Google Cloud Speech-to-Text
// Optional fields with defaults:
// - Language: BCP-47 language code (default: "en-US")
type GoogleConfig struct {
	Language string
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client    *speech.Client
	recognize recognizeFunc
	language  string
	logger    *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates the speech client once, using application default credentials
func NewGoogleSpeechToText(ctx context.Context, config GoogleConfig, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	g := newGoogleSpeechToText(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	}, config, logger)
	g.client = client
	return g, nil
}

func newGoogleSpeechToText(recognize recognizeFunc, config GoogleConfig, logger *zap.Logger) *GoogleSpeechToText {
	language := config.Language
	if language == "" {
		language = defaultLanguage
		logger.Info("Using default speech language", zap.String("language", language))
	}
	return &GoogleSpeechToText{
		recognize: recognize,
		language:  language,
		logger:    logger,
	}
}

// Close releases the speech client
func (g *GoogleSpeechToText) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// TranscribeAudio converts a base64 audio payload to text (non-streaming)
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audio *entities.AudioPayload) (string, error) {
	if audio == nil || audio.Base64 == "" {
		return "", fmt.Errorf("no audio data received")
	}

	data, err := base64.StdEncoding.DecodeString(audio.Base64)
	if err != nil {
		return "", fmt.Errorf("invalid audio payload: %w", err)
	}

	encoding, err := getAudioEncoding(audio.MimeType)
	if err != nil {
		return "", err
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:     encoding,
		LanguageCode: g.language,
	}
	if audio.SampleRate > 0 {
		recognitionConfig.SampleRateHertz = int32(audio.SampleRate)
	}

	resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to recognize speech: %w", err)
	}

	var transcript []string
	for _, result := range resp.GetResults() {
		if alternatives := result.GetAlternatives(); len(alternatives) > 0 {
			transcript = append(transcript, strings.TrimSpace(alternatives[0].GetTranscript()))
		}
	}
	if len(transcript) == 0 {
		return "", fmt.Errorf("no speech detected in audio")
	}

	text := strings.Join(transcript, " ")
	g.logger.Debug("Transcribed audio", zap.Int("characters", len(text)))
	return text, nil
}

// getAudioEncoding converts a MIME type or encoding name to the Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(encoding)), ";")
	switch strings.TrimSpace(base) {
	case "", "audio/wav", "audio/x-wav", "audio/wave", "wav", "linear16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "audio/flac", "flac":
		return speechpb.RecognitionConfig_FLAC, nil
	case "audio/basic", "mulaw":
		return speechpb.RecognitionConfig_MULAW, nil
	case "audio/amr", "amr":
		return speechpb.RecognitionConfig_AMR, nil
	case "audio/amr-wb", "amr_wb":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "audio/ogg", "ogg_opus":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "audio/webm", "webm_opus":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
