package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/services"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
)

// Bounds for the genre and artist fallback searches that fill the mix when
// the model's queries come up short.
const (
	fallbackGenres  = 8
	fallbackArtists = 8
)

// resolveTracks runs each query through Spotify search and assembles the
// discovery mix: deduplicated by track ID across queries and strictly
// excluding everything already in the listening snapshot, by ID and by
// normalized (artist, title) pair.
//
// Individual query failures are logged and skipped; the mix degrades rather
// than fails. Exhausted rate limits are the exception and abort the user's
// pipeline. Finding fewer tracks than the target is not an error: the engine
// never fabricates filler.
func (e *Engine) resolveTracks(ctx context.Context, session services.MusicService, queries []string, snapshot *models.ListeningSnapshot, logger *log.Logger) ([]models.Track, error) {
	target := e.config.Discovery.TargetCount
	if target <= 0 {
		target = 100
	}
	perQuery := e.config.Discovery.PerQueryLimit
	if perQuery <= 0 {
		perQuery = 10
	}

	knownIDs := snapshot.KnownIDs()
	knownKeys := make(map[string]struct{}, len(snapshot.TopTracks))
	for _, track := range snapshot.TopTracks {
		knownKeys[shared.NormalizeTrackKey(track.Artist, track.Title)] = struct{}{}
	}

	var picked []models.Track
	seen := make(map[string]struct{})

	add := func(track models.Track) {
		if len(picked) >= target {
			return
		}
		if _, dup := seen[track.ID]; dup {
			return
		}
		if _, known := knownIDs[track.ID]; known {
			return
		}
		if _, known := knownKeys[shared.NormalizeTrackKey(track.Artist, track.Title)]; known {
			return
		}
		seen[track.ID] = struct{}{}
		picked = append(picked, track)
	}

	runQueries := func(queries []string) error {
		for _, query := range queries {
			if len(picked) >= target {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			results, err := session.SearchTracks(ctx, query, perQuery)
			if err != nil {
				if errors.Is(err, shared.ErrRateLimited) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Warn("search query failed", "query", query, "error", err)
				continue
			}
			for _, track := range results {
				add(track)
			}
		}
		return nil
	}

	if err := runQueries(queries); err != nil {
		return nil, err
	}

	modelCount := len(picked)

	// Fallback slot: plain genre and artist searches to fill remaining
	// capacity, same exclusion rules.
	if len(picked) < target {
		if err := runQueries(fallbackQueries(snapshot)); err != nil {
			return nil, err
		}
	}

	logger.Info("discovery mix assembled", "total", len(picked), "model", modelCount, "fallback", len(picked)-modelCount)
	return picked, nil
}

// fallbackQueries derives plain genre and artist searches from the snapshot.
func fallbackQueries(snapshot *models.ListeningSnapshot) []string {
	var queries []string
	for i, genre := range snapshot.Genres {
		if i >= fallbackGenres {
			break
		}
		queries = append(queries, fmt.Sprintf("genre:%q", genre))
	}
	for i, artist := range snapshot.TopArtists {
		if i >= fallbackArtists {
			break
		}
		queries = append(queries, fmt.Sprintf("artist:%q", artist))
	}
	return queries
}

// trackIDs projects the candidate mix onto the ID list the playlist write
// needs, preserving order.
func trackIDs(tracks []models.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		ids = append(ids, track.ID)
	}
	return ids
}
