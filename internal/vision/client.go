package vision

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"screenshot-organizer/internal/config"
	"screenshot-organizer/internal/images"

	"github.com/avast/retry-go"
	"github.com/ollama/ollama/api"
)

// Prompt is the fixed instruction sent with every screenshot.
const Prompt = "Analyze this screenshot and extract the file organization order together with section title if present. " +
	"Return the order as a numbered list of file names or patterns, and the title " +
	"Format the response as section title and simple numbered list of filenames, one per line."

// AnalysisCache stores model responses keyed by image digest and model.
type AnalysisCache interface {
	GetAnalysis(digest, model string) (string, bool, error)
	PutAnalysis(digest, model, text string) error
}

type Client struct {
	client     *api.Client
	model      string
	config     *config.OllamaConfig
	cache      AnalysisCache
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewClient builds a vision client. Credentials come only from cfg. cache
// may be nil.
func NewClient(cfg *config.OllamaConfig, cache AnalysisCache, logger *slog.Logger) (*Client, error) {
	baseURL, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama endpoint URL: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	httpClient := &http.Client{}
	if cfg.APIKey != "" {
		httpClient.Transport = &bearerTransport{token: cfg.APIKey, base: http.DefaultTransport}
	}

	return &Client{
		client:     api.NewClient(baseURL, httpClient),
		model:      cfg.VisionModel,
		config:     cfg,
		cache:      cache,
		logger:     logger.With("component", "vision", "model", cfg.VisionModel),
		retryDelay: time.Second,
	}, nil
}

// Model is the configured vision model name.
func (c *Client) Model() string {
	return c.model
}

// AnalyzeScreenshot sends the screenshot at path to the vision model and
// returns its raw text answer.
func (c *Client) AnalyzeScreenshot(ctx context.Context, path string) (string, error) {
	shot, err := images.Load(path)
	if err != nil {
		return "", err
	}

	digest := shot.Digest()
	if c.cache != nil {
		text, ok, err := c.cache.GetAnalysis(digest, c.model)
		if err != nil {
			c.logger.Warn("analysis cache lookup failed", "error", err)
		} else if ok {
			c.logger.Info("analysis cache hit", "path", path, "digest", digest[:12])
			return text, nil
		}
	}

	if timeout := c.config.VisionTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  Prompt,
		Stream:  &[]bool{false}[0],
		Images:  []api.ImageData{shot.Data},
		Options: c.buildOllamaOptions(),
	}

	c.logger.Info("analyzing screenshot", "path", path, "mime_type", shot.MimeType, "width", shot.Width, "height", shot.Height, "bytes", len(shot.Data))
	var response strings.Builder
	err = retry.Do(
		func() error {
			response.Reset() // Clear previous attempts
			return c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
				response.WriteString(resp.Response)
				return nil
			})
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts()),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("vision request failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to analyze screenshot after retries: %w", err)
	}

	text := removeThinkTags(strings.TrimSpace(response.String()))
	if c.cache != nil {
		if err := c.cache.PutAnalysis(digest, c.model, text); err != nil {
			c.logger.Warn("analysis cache store failed", "error", err)
		}
	}
	return text, nil
}

func (c *Client) attempts() uint {
	if c.config.RetryAttempts == 0 {
		return 3
	}
	return c.config.RetryAttempts
}

// buildOllamaOptions creates options map for Ollama API requests
func (c *Client) buildOllamaOptions() map[string]interface{} {
	options := make(map[string]interface{})

	if c.config.ContextWindow > 0 {
		options["num_ctx"] = c.config.ContextWindow
	}
	if c.config.Temperature > 0 {
		options["temperature"] = c.config.Temperature
	}
	if c.config.TopP > 0 {
		options["top_p"] = c.config.TopP
	}
	for key, value := range c.config.Options {
		options[key] = value
	}

	return options
}

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	thinkOpen  = regexp.MustCompile(`(?s)<think>.*`)
)

// removeThinkTags removes <think> tags and their contents from text
func removeThinkTags(text string) string {
	cleaned := thinkBlock.ReplaceAllString(text, "")
	cleaned = thinkOpen.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}
