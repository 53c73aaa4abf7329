package services

import (
	"context"
	"encoding/json"

	"github.com/henry-johnson/weekly-discovery/internal/models"
)

// MusicService is the capability interface one authenticated user's pipeline
// needs from the music provider. Implementations are owned by a single
// user's pipeline for the duration of a run and are not safe for concurrent
// use across users.
type MusicService interface {
	// Authenticate performs the refresh-token exchange for this service's
	// credential bundle. Must be called before any other method.
	Authenticate(ctx context.Context) error

	// ListeningSnapshot fetches the user's recent listening window.
	// An empty history is a valid snapshot, not an error.
	ListeningSnapshot(ctx context.Context, sourceWeek string) (*models.ListeningSnapshot, error)

	// SearchTracks runs one search query and returns up to limit candidates.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)

	// FindPlaylistByName returns the ID of the user's playlist with exactly
	// the given name, or [shared.ErrPlaylistNotFound].
	FindPlaylistByName(ctx context.Context, name string) (string, error)

	// CreatePlaylist creates an empty playlist and returns its ID.
	CreatePlaylist(ctx context.Context, name, description string) (string, error)

	// UpdatePlaylistDetails replaces a playlist's name and description.
	UpdatePlaylistDetails(ctx context.Context, playlistID, name, description string) error

	// ReplacePlaylistTracks replaces the playlist's full track list.
	ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// UploadPlaylistCover sets the playlist cover from JPEG bytes.
	UploadPlaylistCover(ctx context.Context, playlistID string, jpeg []byte) error

	// Username returns the canonical username this session belongs to.
	Username() string
}

// StructuredRequest describes one structured text generation call.
type StructuredRequest struct {
	System      string // System context; must instruct the model to emit JSON
	User        string // Rendered user prompt
	Temperature float32
}

// ModelProvider is the capability interface for the LLM and image provider.
// A single provider instance is shared read-only across user pipelines.
type ModelProvider interface {
	// CompleteStructured runs one text generation call that must return a
	// JSON object, and returns the raw object bytes. Shape validation is the
	// caller's responsibility.
	CompleteStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)

	// GenerateImage produces image bytes for the given prompt.
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
