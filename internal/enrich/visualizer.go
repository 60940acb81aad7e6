// ABOUTME: Dream visualization through the OpenAI images API.
// ABOUTME: Wraps prompts in the painterly style and returns an embeddable image reference.
package enrich

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/2389-research/dreamscribe/internal/models"
)

const (
	DefaultImageBaseURL = "https://api.openai.com/v1/"
	DefaultImageModel   = "dall-e-3"

	imageRequestTimeout = 2 * time.Minute
)

// VisualizerConfig holds the image service settings.
type VisualizerConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Visualizer generates one image per request.
type Visualizer struct {
	client     openaigo.Client
	model      string
	configured bool
	log        zerolog.Logger
}

// NewImageClient builds an OpenAI client for the image service. Requests are
// attempted once.
func NewImageClient(cfg VisualizerConfig) openaigo.Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultImageBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: imageRequestTimeout}
	}

	return openaigo.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
}

// NewVisualizer creates a visualizer. Without an API key every call fails with ErrNotConfigured.
func NewVisualizer(cfg VisualizerConfig, log zerolog.Logger) *Visualizer {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultImageModel
	}
	return &Visualizer{
		client:     NewImageClient(cfg),
		model:      model,
		configured: strings.TrimSpace(cfg.APIKey) != "",
		log:        log.With().Str("component", "visualizer").Logger(),
	}
}

// Visualize generates an image for prompt and returns a data URL or a hosted URL.
// Every failure is a *VisualizationFailure.
func (v *Visualizer) Visualize(ctx context.Context, prompt string) (string, error) {
	if !v.configured {
		return "", visualizeFailure(ErrNotConfigured)
	}

	params := openaigo.ImageGenerateParams{
		Prompt: StylePrompt(prompt),
		Model:  openaigo.ImageModel(v.model),
		N:      openaigo.Int(1),
		Size:   openaigo.ImageGenerateParamsSize1024x1024,
	}
	if strings.HasPrefix(v.model, "dall-e") {
		params.ResponseFormat = openaigo.ImageGenerateParamsResponseFormatB64JSON
	}

	start := time.Now()
	resp, err := v.client.Images.Generate(ctx, params)
	if err != nil {
		return "", visualizeFailure(fmt.Errorf("image request failed: %w", err))
	}
	v.log.Debug().Dur("elapsed", time.Since(start)).Str("model", v.model).Msg("image generated")

	if resp == nil || len(resp.Data) == 0 {
		return "", visualizeFailure(fmt.Errorf("no image returned"))
	}
	img := resp.Data[0]
	switch {
	case img.B64JSON != "":
		return "data:image/png;base64," + img.B64JSON, nil
	case img.URL != "":
		return img.URL, nil
	default:
		return "", visualizeFailure(fmt.Errorf("image has neither data nor url"))
	}
}

// StylePrompt wraps a dream description in the journal's painting style.
func StylePrompt(prompt string) string {
	return fmt.Sprintf("A surreal, ethereal, and dreamlike digital painting of: %s. Use a calming color palette with navy, violet, and soft blues.", strings.TrimSpace(prompt))
}

// VisualizationPrompt builds the image description from an interpretation's title and themes.
func VisualizationPrompt(in *models.Interpretation) string {
	if in == nil {
		return ""
	}
	return fmt.Sprintf("A dream about: %s. Key elements: %s.", in.Title, strings.Join(in.Themes, ", "))
}

// DecodeDataURL splits an inline base64 image reference into its MIME type and bytes.
// Hosted URLs and malformed data report ok=false.
func DecodeDataURL(ref string) (mime string, data []byte, ok bool) {
	header, payload, found := strings.Cut(ref, ",")
	if !found || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64"), data, true
}
