package stt

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/mindwell/domain/entities"
)

func TestTranscribeAudio(t *testing.T) {
	var captured *speechpb.RecognizeRequest
	g := newGoogleSpeechToText(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		captured = req
		return &speechpb.RecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "I feel "}}},
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "a bit nervous"}}},
			},
		}, nil
	}, GoogleConfig{}, zaptest.NewLogger(t))

	text, err := g.TranscribeAudio(context.Background(), &entities.AudioPayload{
		Base64:     "SGVsbG8=",
		MimeType:   "audio/webm;codecs=opus",
		SampleRate: 48000,
	})
	if err != nil {
		t.Fatalf("Failed to transcribe: %v", err)
	}
	if text != "I feel a bit nervous" {
		t.Errorf("Expected joined transcript, got %q", text)
	}

	if captured.Config.Encoding != speechpb.RecognitionConfig_WEBM_OPUS {
		t.Errorf("Expected WEBM_OPUS encoding, got %v", captured.Config.Encoding)
	}
	if captured.Config.SampleRateHertz != 48000 {
		t.Errorf("Expected sample rate 48000, got %d", captured.Config.SampleRateHertz)
	}
	if captured.Config.LanguageCode != "en-US" {
		t.Errorf("Expected default language en-US, got %s", captured.Config.LanguageCode)
	}
	if string(captured.Audio.GetContent()) != "Hello" {
		t.Errorf("Expected decoded audio bytes, got %q", captured.Audio.GetContent())
	}
}

func TestTranscribeAudioErrors(t *testing.T) {
	empty := func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return &speechpb.RecognizeResponse{}, nil
	}
	failing := func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return nil, errors.New("quota exceeded")
	}

	tests := []struct {
		name      string
		recognize recognizeFunc
		audio     *entities.AudioPayload
	}{
		{"nil audio", empty, nil},
		{"invalid base64", empty, &entities.AudioPayload{Base64: "***"}},
		{"unsupported mime", empty, &entities.AudioPayload{Base64: "SGVsbG8=", MimeType: "video/mp4"}},
		{"no speech", empty, &entities.AudioPayload{Base64: "SGVsbG8="}},
		{"api error", failing, &entities.AudioPayload{Base64: "SGVsbG8="}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGoogleSpeechToText(tt.recognize, GoogleConfig{Language: "id-ID"}, zaptest.NewLogger(t))
			if _, err := g.TranscribeAudio(context.Background(), tt.audio); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestGetAudioEncoding(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"":          speechpb.RecognitionConfig_LINEAR16,
		"audio/wav": speechpb.RecognitionConfig_LINEAR16,
		"FLAC":      speechpb.RecognitionConfig_FLAC,
		"audio/ogg": speechpb.RecognitionConfig_OGG_OPUS,
		"WEBM_OPUS": speechpb.RecognitionConfig_WEBM_OPUS,
		"audio/amr": speechpb.RecognitionConfig_AMR,
	}
	for input, want := range cases {
		got, err := getAudioEncoding(input)
		if err != nil {
			t.Errorf("Unexpected error for %q: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("Encoding for %q: expected %v, got %v", input, want, got)
		}
	}
}
