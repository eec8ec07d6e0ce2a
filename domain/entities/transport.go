package entities

import "fmt"

// FailureKind classifies why a transport could not produce a model response
type FailureKind string

const (
	FailureNotInstalled FailureKind = "not_installed"
	FailureTimeout      FailureKind = "timeout"
	FailureNonZeroExit  FailureKind = "non_zero_exit"
	FailureNetwork      FailureKind = "network_error"
	FailureUnauthorized FailureKind = "unauthorized"
	FailureUnknown      FailureKind = "unknown"
)

// TransportFailure is the failure side of a TransportResult
type TransportFailure struct {
	Kind       FailureKind `json:"kind"`
	Detail     string      `json:"detail"`
	StatusCode int         `json:"status_code,omitempty"`
}

func (f *TransportFailure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("transport %s (status %d): %s", f.Kind, f.StatusCode, f.Detail)
	}
	return fmt.Sprintf("transport %s: %s", f.Kind, f.Detail)
}

// TransportResult is what every transport returns, exactly one of Text or Failure is set
type TransportResult struct {
	text    string
	failure *TransportFailure
}

// Success wraps raw model text
func Success(text string) TransportResult {
	return TransportResult{text: text}
}

// Failed wraps a classified failure
func Failed(kind FailureKind, detail string) TransportResult {
	return TransportResult{failure: &TransportFailure{Kind: kind, Detail: detail}}
}

// FailedWithStatus wraps a failure reported by an upstream HTTP status
func FailedWithStatus(kind FailureKind, status int, detail string) TransportResult {
	return TransportResult{failure: &TransportFailure{Kind: kind, Detail: detail, StatusCode: status}}
}

// OK reports whether the transport produced text
func (r TransportResult) OK() bool {
	return r.failure == nil
}

// Text returns the raw model text of a successful result
func (r TransportResult) Text() string {
	return r.text
}

// Failure returns the failure, or nil on success
func (r TransportResult) Failure() *TransportFailure {
	return r.failure
}
