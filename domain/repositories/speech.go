package repositories

import (
	"context"

	"github.com/satriahrh/mindwell/domain/entities"
)

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts a base64 audio payload to text
	TranscribeAudio(ctx context.Context, audio *entities.AudioPayload) (string, error)
}
