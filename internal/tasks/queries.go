package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/services"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
	"github.com/xeipuuv/gojsonschema"
)

// Queries longer than this are almost always the model rambling rather than
// a usable search expression.
const maxQueryLength = 120

const queriesSystemPrompt = "You are a music recommendation engine that answers with a single JSON object."

// queriesSchema pins the structured payload contract for query generation:
// one object, one "queries" key, an array of strings. Anything else is a
// generation failure, never coerced.
const queriesSchema = `{
	"type": "object",
	"required": ["queries"],
	"properties": {
		"queries": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

// buildQueries asks the model for discovery search queries grounded on the
// snapshot. A payload failing schema validation is regenerated exactly once
// with the same input; a second failure surfaces [shared.ErrGeneration].
func (e *Engine) buildQueries(ctx context.Context, snapshot *models.ListeningSnapshot, targetWeek string) ([]string, error) {
	template, err := loadPrompt(e.config.Prompts.QueriesFile, queriesPromptFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrConfiguration, err)
	}

	vars := promptVars(snapshot, targetWeek)
	vars["max_queries"] = strconv.Itoa(e.config.Discovery.MaxQueries)

	req := services.StructuredRequest{
		System:      queriesSystemPrompt,
		User:        renderPrompt(template, vars),
		Temperature: float32(e.config.OpenAI.QueryTemperature),
	}

	// Provider failures surface as-is; the transport layer already
	// retried them. Only a payload that fails validation earns one
	// regeneration.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := e.provider.CompleteStructured(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("query generation failed: %w", err)
		}

		queries, err := parseQueriesPayload(raw)
		if err != nil {
			lastErr = err
			continue
		}

		return e.filterQueries(queries, snapshot), nil
	}

	return nil, fmt.Errorf("%w: %v", shared.ErrGeneration, lastErr)
}

// parseQueriesPayload validates the raw payload against queriesSchema and
// extracts the array.
func parseQueriesPayload(raw json.RawMessage) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(queriesSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("payload failed validation: %s", describeValidation(result))
	}

	var payload struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload did not decode: %w", err)
	}

	return payload.Queries, nil
}

// filterQueries bounds count and length and drops queries that trivially
// repeat artist or track names already in the snapshot. The prompt asks the
// model not to do that, but the filter is what enforces it.
func (e *Engine) filterQueries(queries []string, snapshot *models.ListeningSnapshot) []string {
	known := make([]string, 0, len(snapshot.TopArtists)+len(snapshot.TopTracks))
	for _, artist := range snapshot.TopArtists {
		known = append(known, strings.ToLower(artist))
	}
	for _, track := range snapshot.TopTracks {
		known = append(known, strings.ToLower(track.Title))
	}

	maxQueries := e.config.Discovery.MaxQueries
	if maxQueries <= 0 {
		maxQueries = 30
	}

	var kept []string
	for _, query := range queries {
		query = strings.TrimSpace(query)
		if query == "" || len(query) > maxQueryLength {
			continue
		}

		lower := strings.ToLower(query)
		trivial := false
		for _, name := range known {
			if name != "" && strings.Contains(lower, name) {
				trivial = true
				break
			}
		}
		if trivial {
			continue
		}

		kept = append(kept, query)
		if len(kept) >= maxQueries {
			break
		}
	}

	return kept
}

func describeValidation(result *gojsonschema.Result) string {
	var parts []string
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return strings.Join(parts, "; ")
}
