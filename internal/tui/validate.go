// ABOUTME: Credential validation for the image generation service.
// ABOUTME: Tests the key by listing models through the OpenAI client.
package tui

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/2389-research/dreamscribe/internal/enrich"
)

// ValidateImageKey tests the image API key by listing available models.
// The context allows cancellation when the user quits during validation.
func ValidateImageKey(ctx context.Context, baseURL, apiKey string) error {
	client := enrich.NewImageClient(enrich.VisualizerConfig{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	})

	if _, err := client.Models.List(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return nil
}
