package repositories

import (
	"context"

	"github.com/satriahrh/mindwell/domain/entities"
)

// Transport abstracts any way of asking the model to analyze a mood request.
// Implementations never return an error: every failure is classified into the result.
type Transport interface {
	// Name identifies the transport in logs, metrics and health checks
	Name() string
	// Analyze runs one attempt against the model
	Analyze(ctx context.Context, req *entities.MoodAnalysisRequest) entities.TransportResult
}

// AvailabilityProber is implemented by transports that can check their dependency
// without calling the model
type AvailabilityProber interface {
	Available() bool
}
