package tasks

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/henry-johnson/weekly-discovery/internal/models"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// Prompt template names within the embedded filesystem.
const (
	queriesPromptFile     = "prompts/queries_prompt.md"
	descriptionPromptFile = "prompts/description_prompt.md"
	artworkPromptFile     = "prompts/artwork_prompt.md"
)

// loadPrompt returns the template at override when set, falling back to the
// embedded default. Prompts are external text assets; the pipeline only
// relies on their named placeholders, not their wording.
func loadPrompt(override, embedded string) (string, error) {
	if override != "" {
		data, err := os.ReadFile(override)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file %s: %w", override, err)
		}
		return string(data), nil
	}

	data, err := promptFiles.ReadFile(embedded)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded prompt %s: %w", embedded, err)
	}
	return string(data), nil
}

// renderPrompt substitutes {name} placeholders. Unknown placeholders are
// left intact so a template typo is visible in the rendered prompt rather
// than silently dropped.
func renderPrompt(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// promptVars flattens a listening snapshot into the placeholder set shared
// by all three prompt templates.
func promptVars(snapshot *models.ListeningSnapshot, targetWeek string) map[string]string {
	artists := strings.Join(snapshot.TopArtists, ", ")
	if artists == "" {
		artists = "Unknown"
	}

	titles := make([]string, 0, len(snapshot.TopTracks))
	for _, track := range snapshot.TopTracks {
		titles = append(titles, fmt.Sprintf("%s by %s", track.Title, track.Artist))
	}
	tracks := strings.Join(titles, ", ")
	if tracks == "" {
		tracks = "Unknown"
	}

	genres := strings.Join(snapshot.Genres, ", ")
	if genres == "" {
		genres = "Unknown"
	}

	return map[string]string{
		"source_week": snapshot.SourceWeek,
		"target_week": targetWeek,
		"top_artists": artists,
		"top_tracks":  tracks,
		"genres":      genres,
	}
}
