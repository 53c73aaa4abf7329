package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/services"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
	"github.com/xeipuuv/gojsonschema"
)

const descriptionSystemPrompt = "You are a playlist copywriter that answers with a single JSON object."

// descriptionSchema pins the structured payload contract for description
// generation: one object, one non-empty "description" string.
const descriptionSchema = `{
	"type": "object",
	"required": ["description"],
	"properties": {
		"description": {
			"type": "string",
			"minLength": 1
		}
	}
}`

// JPEG re-encode qualities tried when the generated cover exceeds Spotify's
// upload limit.
const (
	coverQualityStart = 75
	coverQualityFloor = 30
	coverQualityStep  = 5
)

// describe asks the model for the playlist description. Validation and the
// single-retry policy mirror query generation.
func (e *Engine) describe(ctx context.Context, snapshot *models.ListeningSnapshot, targetWeek string) (string, error) {
	template, err := loadPrompt(e.config.Prompts.DescriptionFile, descriptionPromptFile)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrConfiguration, err)
	}

	req := services.StructuredRequest{
		System:      descriptionSystemPrompt,
		User:        renderPrompt(template, promptVars(snapshot, targetWeek)),
		Temperature: float32(e.config.OpenAI.DescriptionTemperature),
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := e.provider.CompleteStructured(ctx, req)
		if err != nil {
			return "", fmt.Errorf("description generation failed: %w", err)
		}

		description, err := parseDescriptionPayload(raw)
		if err != nil {
			lastErr = err
			continue
		}

		return truncateDescription(description), nil
	}

	return "", fmt.Errorf("%w: %v", shared.ErrGeneration, lastErr)
}

func parseDescriptionPayload(raw json.RawMessage) (string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(descriptionSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return "", fmt.Errorf("payload is not a JSON object: %w", err)
	}
	if !result.Valid() {
		return "", fmt.Errorf("payload failed validation: %s", describeValidation(result))
	}

	var payload struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("payload did not decode: %w", err)
	}

	return strings.TrimSpace(payload.Description), nil
}

// truncateDescription enforces Spotify's description length cap on rune
// boundaries.
func truncateDescription(description string) string {
	runes := []rune(description)
	if len(runes) <= services.PlaylistDescriptionMax {
		return description
	}
	return strings.TrimSpace(string(runes[:services.PlaylistDescriptionMax-1])) + "…"
}

// artwork generates the playlist cover. Artwork is cosmetic: every failure
// path returns nil so the pipeline proceeds without a cover instead of
// failing the user.
func (e *Engine) artwork(ctx context.Context, snapshot *models.ListeningSnapshot, targetWeek string, logger *log.Logger) []byte {
	template, err := loadPrompt(e.config.Prompts.ArtworkFile, artworkPromptFile)
	if err != nil {
		logger.Warn("artwork prompt unavailable", "error", err)
		return nil
	}

	raw, err := e.provider.GenerateImage(ctx, renderPrompt(template, promptVars(snapshot, targetWeek)))
	if err != nil {
		logger.Warn("artwork generation failed", "error", err)
		return nil
	}

	cover, err := fitCover(raw)
	if err != nil {
		logger.Warn("artwork unusable", "error", err)
		return nil
	}

	return cover
}

// fitCover re-encodes the image as JPEG under Spotify's upload limit,
// stepping the quality down until it fits.
func fitCover(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	for quality := coverQualityStart; quality >= coverQualityFloor; quality -= coverQualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode cover: %w", err)
		}
		if buf.Len() <= services.PlaylistImageMaxBytes {
			return buf.Bytes(), nil
		}
	}

	return nil, fmt.Errorf("cover does not fit under %d bytes", services.PlaylistImageMaxBytes)
}
