package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
)

func newResolveEngine(target, perQuery int) *Engine {
	engine := NewEngine(nil, nil, shared.DefaultConfig(), shared.NewLogger(io.Discard))
	engine.config.Discovery.TargetCount = target
	engine.config.Discovery.PerQueryLimit = perQuery
	return engine
}

func TestResolveTracksDedupesAndExcludesKnown(t *testing.T) {
	snapshot := &models.ListeningSnapshot{
		TopArtists: []string{"Khruangbin"},
		TopTracks:  []models.Track{{ID: "known1", Artist: "Men I Trust", Title: "Show Me How"}},
		Genres:     []string{"dream pop"},
	}

	session := &mockMusic{
		searchResults: map[string][]models.Track{
			"q1": {
				{ID: "t1", Artist: "Crumb", Title: "Locket"},
				{ID: "known1", Artist: "Men I Trust", Title: "Show Me How"},
				{ID: "other-id", Artist: "Men I Trust", Title: "show me  how"}, // known pair, different ID and spacing
			},
			"q2": {
				{ID: "t1", Artist: "Crumb", Title: "Locket"}, // duplicate across queries
				{ID: "t2", Artist: "Still Corners", Title: "The Trip"},
			},
		},
	}

	engine := newResolveEngine(100, 10)
	got, err := engine.resolveTracks(context.Background(), session, []string{"q1", "q2"}, snapshot, engine.logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 tracks, got %d: %v", len(got), got)
	}
	if got[0].ID != "t1" || got[1].ID != "t2" {
		t.Errorf("unexpected mix order: %v", got)
	}
}

func TestResolveTracksStopsAtTarget(t *testing.T) {
	session := &mockMusic{
		searchResults: map[string][]models.Track{
			"q1": {
				{ID: "t1", Artist: "a", Title: "1"},
				{ID: "t2", Artist: "b", Title: "2"},
				{ID: "t3", Artist: "c", Title: "3"},
			},
		},
	}

	engine := newResolveEngine(2, 10)
	got, err := engine.resolveTracks(context.Background(), session, []string{"q1", "q2"}, &models.ListeningSnapshot{}, engine.logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Errorf("expected the target of 2 tracks, got %d", len(got))
	}
	// The second query never runs once the target is met.
	if len(session.searchCalls) != 1 {
		t.Errorf("expected 1 search, got %v", session.searchCalls)
	}
}

func TestResolveTracksFallbackFillsShortMix(t *testing.T) {
	snapshot := &models.ListeningSnapshot{
		TopArtists: []string{"Khruangbin"},
		Genres:     []string{"psychedelic soul"},
	}

	session := &mockMusic{
		searchResults: map[string][]models.Track{
			`genre:"psychedelic soul"`: {{ID: "g1", Artist: "Thee Sacred Souls", Title: "Can I Call You Rose?"}},
			`artist:"Khruangbin"`:      {{ID: "a1", Artist: "Hermanos Gutiérrez", Title: "El Bueno Y El Malo"}},
		},
	}

	engine := newResolveEngine(100, 10)
	got, err := engine.resolveTracks(context.Background(), session, []string{"finds nothing"}, snapshot, engine.logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 fallback tracks, got %d: %v", len(got), got)
	}
}

func TestResolveTracksQueryFailureDegrades(t *testing.T) {
	calls := 0
	session := &failingSearchMusic{
		fail: func(query string) ([]models.Track, error) {
			calls++
			if query == "broken" {
				return nil, fmt.Errorf("%w: search returned 500", shared.ErrDataFetch)
			}
			return []models.Track{{ID: "t1", Artist: "a", Title: "1"}}, nil
		},
	}

	engine := newResolveEngine(100, 10)
	got, err := engine.resolveTracks(context.Background(), session, []string{"broken", "works"}, &models.ListeningSnapshot{}, engine.logger)
	if err != nil {
		t.Fatalf("expected degraded mix, got error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 track from the surviving query, got %d", len(got))
	}
	if calls != 2 {
		t.Errorf("expected both queries attempted, got %d", calls)
	}
}

func TestResolveTracksRateLimitAborts(t *testing.T) {
	session := &failingSearchMusic{
		fail: func(query string) ([]models.Track, error) {
			return nil, fmt.Errorf("%w: retries exhausted", shared.ErrRateLimited)
		},
	}

	engine := newResolveEngine(100, 10)
	_, err := engine.resolveTracks(context.Background(), session, []string{"q1"}, &models.ListeningSnapshot{}, engine.logger)
	if !errors.Is(err, shared.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestFallbackQueriesBounded(t *testing.T) {
	snapshot := &models.ListeningSnapshot{}
	for i := 0; i < fallbackGenres+5; i++ {
		snapshot.Genres = append(snapshot.Genres, fmt.Sprintf("genre%d", i))
	}
	for i := 0; i < fallbackArtists+5; i++ {
		snapshot.TopArtists = append(snapshot.TopArtists, fmt.Sprintf("artist%d", i))
	}

	got := fallbackQueries(snapshot)
	if len(got) != fallbackGenres+fallbackArtists {
		t.Errorf("expected %d fallback queries, got %d", fallbackGenres+fallbackArtists, len(got))
	}
}

// failingSearchMusic overrides search behavior per call; everything else
// delegates to mockMusic defaults.
type failingSearchMusic struct {
	mockMusic
	fail func(query string) ([]models.Track, error)
}

func (m *failingSearchMusic) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	return m.fail(query)
}
