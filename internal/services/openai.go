// OpenAI implementation of [ModelProvider].

package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/henry-johnson/weekly-discovery/internal/shared"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements [ModelProvider] on top of the OpenAI API.
// A single instance is shared across all user pipelines; the underlying
// client is safe for concurrent use.
type OpenAIProvider struct {
	client     *openai.Client
	textModel  string
	imageModel string
	imageSize  string
	timeout    time.Duration
	httpClient *http.Client // for url-form image payloads
}

// NewOpenAIProvider creates a provider from the shared API key and config.
// A missing key is a configuration error fatal to the whole run.
func NewOpenAIProvider(apiKey string, cfg shared.OpenAIConfig) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OPENAI_API_KEY", shared.ErrConfiguration)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	size := cfg.ImageSize
	if size == "" {
		size = "1024x1024"
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		imageSize:  size,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// CompleteStructured runs one chat completion in JSON mode and returns the
// raw message content. JSON mode requires the word "json" somewhere in the
// messages, so the system prompt is amended when it lacks one.
//
// Transport failures, throttling, and server errors are retried here with
// bounded backoff; the caller only ever sees the exhausted result. Payload
// shape is the caller's problem and is never retried at this layer.
func (p *OpenAIProvider) CompleteStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	system := req.System
	if !strings.Contains(strings.ToLower(system), "json") {
		system += " Respond in JSON format."
	}

	var resp openai.ChatCompletionResponse
	err := p.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		resp, err = p.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       p.textModel,
			Temperature: req.Temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: req.User},
			},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	return json.RawMessage(resp.Choices[0].Message.Content), nil
}

// withRetry runs one API call with the same bounded retry policy the
// Spotify layer uses: throttling, server errors, and transport failures
// back off and retry; other API errors fail immediately. Exhausted
// throttling surfaces [shared.ErrRateLimited].
func (p *OpenAIProvider) withRetry(ctx context.Context, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := call(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		status := apiStatus(err)
		switch {
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: %v", shared.ErrRateLimited, err)
		case status != 0 && status < 500:
			// Non-retryable API error
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		}

		if attempt == maxAttempts {
			break
		}
		if err := sleepBackoff(ctx, attempt, 0); err != nil {
			return err
		}
	}

	return lastErr
}

// apiStatus extracts the HTTP status from an API error; zero means the
// server never answered.
func apiStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// GenerateImage produces image bytes for the prompt. The API answers with
// base64 payloads or, for some models, a download URL.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	var resp openai.ImageResponse
	err := p.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		resp, err = p.client.CreateImage(callCtx, openai.ImageRequest{
			Prompt:         prompt,
			Model:          p.imageModel,
			N:              1,
			Size:           p.imageSize,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image response carried no payload")
	}

	if b64 := strings.TrimSpace(resp.Data[0].B64JSON); b64 != "" {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("image payload was not valid base64: %w", err)
		}
		return raw, nil
	}

	if imageURL := resp.Data[0].URL; imageURL != "" {
		return p.fetchImage(ctx, imageURL)
	}

	return nil, fmt.Errorf("image response carried no payload")
}

func (p *OpenAIProvider) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed: status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
