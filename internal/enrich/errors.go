// ABOUTME: Failure types returned by the enrichment client.
// ABOUTME: Each carries a user-facing message and wraps the underlying cause.
package enrich

import "errors"

const (
	interpretFailedMessage = "Failed to interpret the dream. Please try again."
	visualizeFailedMessage = "Failed to visualize the dream. The image generation service may be unavailable."
)

// ErrNotConfigured is wrapped by failures from a client that has no API key.
var ErrNotConfigured = errors.New("AI service is not configured; run 'dreamscribe setup'")

// EnrichmentFailure reports a failed interpretation attempt.
type EnrichmentFailure struct {
	Message string
	Err     error
}

func (e *EnrichmentFailure) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *EnrichmentFailure) Unwrap() error { return e.Err }

// VisualizationFailure reports a failed image generation attempt.
type VisualizationFailure struct {
	Message string
	Err     error
}

func (e *VisualizationFailure) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *VisualizationFailure) Unwrap() error { return e.Err }

func interpretFailure(err error) *EnrichmentFailure {
	return &EnrichmentFailure{Message: interpretFailedMessage, Err: err}
}

func visualizeFailure(err error) *VisualizationFailure {
	return &VisualizationFailure{Message: visualizeFailedMessage, Err: err}
}
