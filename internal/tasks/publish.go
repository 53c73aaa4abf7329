package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/henry-johnson/weekly-discovery/internal/services"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
)

// publishResult reports where the playlist ended up and whether this run
// created it or refreshed an existing one.
type publishResult struct {
	PlaylistID string
	Name       string
	Created    bool
}

// publish writes the playlist for the target week. The week-derived name is
// the identity: an existing playlist with that exact name is updated in
// place, so re-running within the same week replaces contents instead of
// stacking duplicates.
func (e *Engine) publish(ctx context.Context, session services.MusicService, targetWeek string, trackIDs []string, description string, cover []byte, logger *log.Logger) (*publishResult, error) {
	name := shared.PlaylistName(targetWeek)

	result := &publishResult{Name: name}

	playlistID, err := session.FindPlaylistByName(ctx, name)
	switch {
	case err == nil:
		result.PlaylistID = playlistID
		if err := session.UpdatePlaylistDetails(ctx, playlistID, name, description); err != nil {
			return nil, fmt.Errorf("%w: failed to update playlist %q: %v", shared.ErrPublish, name, err)
		}
	case errors.Is(err, shared.ErrPlaylistNotFound):
		playlistID, err = session.CreatePlaylist(ctx, name, description)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create playlist %q: %v", shared.ErrPublish, name, err)
		}
		result.PlaylistID = playlistID
		result.Created = true
	default:
		return nil, fmt.Errorf("%w: failed to look up playlist %q: %v", shared.ErrPublish, name, err)
	}

	if err := session.ReplacePlaylistTracks(ctx, result.PlaylistID, trackIDs); err != nil {
		return nil, fmt.Errorf("%w: failed to set tracks on %q: %v", shared.ErrPublish, name, err)
	}

	// Cover upload is best effort, same as generation.
	if len(cover) > 0 {
		if err := session.UploadPlaylistCover(ctx, result.PlaylistID, cover); err != nil {
			logger.Warn("cover upload failed", "playlist", name, "error", err)
		}
	}

	return result, nil
}
