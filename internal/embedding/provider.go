package embedding

import (
	"context"
	"fmt"
)

// Provider is one remote embedding call with no retry of its own.
// It returns the raw values exactly as the service sent them.
type Provider interface {
	EmbedContent(ctx context.Context, text string) ([]float64, error)
	Name() string
}

// APIError is a non-2xx response from an embedding endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}
