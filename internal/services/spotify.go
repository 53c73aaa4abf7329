// Spotify Web API implementation of [MusicService].
// Response types based on https://developer.spotify.com/documentation/web-api/reference/

package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAccountsURL = "https://accounts.spotify.com"
	spotifyBaseURL     = "https://api.spotify.com/v1"

	// Spotify caps description length and cover image size
	PlaylistDescriptionMax = 300
	PlaylistImageMaxBytes  = 256 * 1024

	maxAttempts = 3
	baseBackoff = time.Second
)

// requiredScopes must all be granted to the refresh token; a token missing
// any of them would fail later at an awkward point in the pipeline, so the
// check happens at authentication time.
var requiredScopes = []string{
	"playlist-modify-private",
	"playlist-modify-public",
	"playlist-read-private",
	"ugc-image-upload",
	"user-top-read",
}

// RequiredScopes returns the OAuth scopes a refresh token must carry to run
// the full pipeline. Used by the provisioning flow when requesting consent.
func RequiredScopes() []string {
	return append([]string(nil), requiredScopes...)
}

// AuthEndpoint returns the Spotify accounts OAuth2 endpoint.
func AuthEndpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  spotifyAccountsURL + "/authorize",
		TokenURL: spotifyAccountsURL + "/api/token",
	}
}

type spotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

type spotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []spotifyArtist `json:"artists"`
}

type spotifyUser struct {
	ID string `json:"id"`
}

type spotifyPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type pagedArtists struct {
	Items []spotifyArtist `json:"items"`
}

type pagedTracks struct {
	Items []spotifyTrack `json:"items"`
}

type pagedPlaylists struct {
	Items []spotifyPlaylist `json:"items"`
	Next  *string           `json:"next"`
}

type searchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyService implements [MusicService] for one user's credential bundle.
// Uses [oauth2] for the refresh-token exchange; the access token lives only
// inside the oauth2 transport for the session's lifetime.
type SpotifyService struct {
	bundle  models.CredentialBundle
	market  string
	timeout time.Duration
	limiter *rate.Limiter
	public  bool

	accountsURL string
	baseURL     string

	httpClient *http.Client
	userID     string
}

// NewSpotifyService creates a Spotify session for the given bundle.
// The config's rate limit is requests per second across all of this
// session's calls.
func NewSpotifyService(bundle models.CredentialBundle, cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCredentialIncomplete, err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 5
	}

	return &SpotifyService{
		bundle:      bundle,
		market:      cfg.Market,
		timeout:     timeout,
		limiter:     rate.NewLimiter(rate.Limit(rateLimit), 1),
		public:      cfg.PublicPlaylists,
		accountsURL: spotifyAccountsURL,
		baseURL:     spotifyBaseURL,
	}, nil
}

// Username returns the canonical username the session belongs to.
func (s *SpotifyService) Username() string {
	return s.bundle.Username
}

// Authenticate exchanges the stored refresh token for an access token,
// verifies the granted scopes, and resolves the Spotify user ID.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	conf := &oauth2.Config{
		ClientID:     s.bundle.ClientID,
		ClientSecret: s.bundle.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: s.accountsURL + "/api/token",
		},
	}

	authCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	source := conf.TokenSource(authCtx, &oauth2.Token{RefreshToken: s.bundle.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return fmt.Errorf("%w: refresh token exchange: %v", shared.ErrAuthFailed, err)
	}

	if missing := missingScopes(token); len(missing) > 0 {
		return fmt.Errorf("%w: token is missing required scope(s): %s", shared.ErrAuthFailed, strings.Join(missing, ", "))
	}

	s.httpClient = oauth2.NewClient(context.WithoutCancel(ctx), oauth2.ReuseTokenSource(token, conf.TokenSource(context.WithoutCancel(ctx), token)))

	var user spotifyUser
	if err := s.do(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return fmt.Errorf("%w: profile lookup: %v", shared.ErrAuthFailed, err)
	}
	s.userID = user.ID

	return nil
}

// missingScopes compares the token's granted scopes against requiredScopes.
// Tokens that carry no scope field at all are accepted; some test doubles
// and older grants omit it.
func missingScopes(token *oauth2.Token) []string {
	raw, ok := token.Extra("scope").(string)
	if !ok || raw == "" {
		return nil
	}
	granted := make(map[string]bool)
	for _, scope := range strings.Fields(raw) {
		granted[scope] = true
	}

	var missing []string
	for _, scope := range requiredScopes {
		if !granted[scope] {
			missing = append(missing, scope)
		}
	}
	sort.Strings(missing)
	return missing
}

// ListeningSnapshot fetches the user's short-term top artists and tracks.
// Empty listening history yields an empty snapshot, not an error.
func (s *SpotifyService) ListeningSnapshot(ctx context.Context, sourceWeek string) (*models.ListeningSnapshot, error) {
	var artists pagedArtists
	if err := s.do(ctx, http.MethodGet, "/me/top/artists?time_range=short_term&limit=20", nil, &artists); err != nil {
		return nil, fetchError(err)
	}

	var tracks pagedTracks
	if err := s.do(ctx, http.MethodGet, "/me/top/tracks?time_range=short_term&limit=50", nil, &tracks); err != nil {
		return nil, fetchError(err)
	}

	snapshot := &models.ListeningSnapshot{SourceWeek: sourceWeek}

	seenGenre := make(map[string]bool)
	for _, artist := range artists.Items {
		if artist.Name != "" {
			snapshot.TopArtists = append(snapshot.TopArtists, artist.Name)
		}
		for _, genre := range artist.Genres {
			if !seenGenre[genre] {
				seenGenre[genre] = true
				snapshot.Genres = append(snapshot.Genres, genre)
			}
		}
	}

	for _, track := range tracks.Items {
		snapshot.TopTracks = append(snapshot.TopTracks, toTrack(track))
	}

	return snapshot, nil
}

// SearchTracks runs one Spotify search query.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)
	if s.market != "" {
		endpoint += "&market=" + url.QueryEscape(s.market)
	}

	var response searchResponse
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	results := make([]models.Track, 0, len(response.Tracks.Items))
	for _, track := range response.Tracks.Items {
		if track.ID == "" {
			continue
		}
		results = append(results, toTrack(track))
	}

	return results, nil
}

// FindPlaylistByName pages through the user's playlists looking for an exact
// name match. Returns [shared.ErrPlaylistNotFound] when no playlist matches.
func (s *SpotifyService) FindPlaylistByName(ctx context.Context, name string) (string, error) {
	offset := 0
	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=50&offset=%d", offset)

		var page pagedPlaylists
		if err := s.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return "", err
		}

		for _, playlist := range page.Items {
			if playlist.Name == name {
				return playlist.ID, nil
			}
		}

		if page.Next == nil || len(page.Items) == 0 {
			return "", fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
		}
		offset += 50
	}
}

// CreatePlaylist creates a new playlist and returns its ID. Visibility
// follows the configured default; playlists are private unless configured
// otherwise.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"name":        name,
		"description": description,
		"public":      s.public,
	})
	if err != nil {
		return "", err
	}

	var created spotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(s.userID))
	if err := s.do(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return "", err
	}

	return created.ID, nil
}

// UpdatePlaylistDetails replaces the playlist's name and description.
func (s *SpotifyService) UpdatePlaylistDetails(ctx context.Context, playlistID, name, description string) error {
	body, err := json.Marshal(map[string]any{
		"name":        name,
		"description": description,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	return s.do(ctx, http.MethodPut, endpoint, body, nil)
}

// ReplacePlaylistTracks replaces the playlist's full track list. The first
// chunk of 100 replaces, subsequent chunks append.
func (s *SpotifyService) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	chunks := chunkURIs(trackIDs, 100)
	if len(chunks) == 0 {
		// An empty discovery week still clears last week's tracks.
		chunks = [][]string{{}}
	}

	for i, uris := range chunks {
		body, err := json.Marshal(map[string]any{"uris": uris})
		if err != nil {
			return err
		}

		method := http.MethodPost
		if i == 0 {
			method = http.MethodPut
		}
		if err := s.do(ctx, method, endpoint, body, nil); err != nil {
			return err
		}
	}

	return nil
}

// UploadPlaylistCover sets the playlist cover. The API takes base64-encoded
// JPEG bytes as the request body.
func (s *SpotifyService) UploadPlaylistCover(ctx context.Context, playlistID string, jpeg []byte) error {
	if len(jpeg) == 0 {
		return fmt.Errorf("no image data")
	}
	if len(jpeg) > PlaylistImageMaxBytes {
		return fmt.Errorf("image exceeds %d bytes", PlaylistImageMaxBytes)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(jpeg)))
	base64.StdEncoding.Encode(encoded, jpeg)

	endpoint := fmt.Sprintf("/playlists/%s/images", url.PathEscape(playlistID))
	return s.doRaw(ctx, http.MethodPut, endpoint, "image/jpeg", encoded, nil)
}

// do performs an authenticated JSON request against the Spotify API.
func (s *SpotifyService) do(ctx context.Context, method, endpoint string, body []byte, result any) error {
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	return s.doRaw(ctx, method, endpoint, contentType, body, result)
}

// doRaw performs an authenticated request with bounded retries.
//
// 429 responses and transport errors are retried with exponential backoff,
// honoring Retry-After when present; other non-2xx responses fail
// immediately. Each attempt carries its own timeout so a hung call cannot
// stall the whole run.
func (s *SpotifyService) doRaw(ctx context.Context, method, endpoint, contentType string, body []byte, result any) error {
	if s.httpClient == nil {
		return shared.ErrNotAuthenticated
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		status, retryAfter, err := s.attempt(ctx, method, endpoint, contentType, body, result)
		if err == nil {
			return nil
		}
		lastErr = err

		switch {
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: %s %s", shared.ErrRateLimited, method, endpoint)
		case status != 0:
			// Non-retryable API error
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		}

		if attempt == maxAttempts {
			break
		}
		if err := sleepBackoff(ctx, attempt, retryAfter); err != nil {
			return err
		}
	}

	return lastErr
}

// attempt performs a single HTTP round trip. A non-zero status return means
// the server answered; zero means a transport-level failure.
func (s *SpotifyService) attempt(ctx context.Context, method, endpoint, contentType string, body []byte, result any) (status int, retryAfter time.Duration, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && seconds > 0 {
			retryAfter = time.Duration(seconds) * time.Second
		}
		return resp.StatusCode, retryAfter, fmt.Errorf("%w: status 429", shared.ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, 0, fmt.Errorf("spotify API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return 0, 0, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, 0, nil
}

// sleepBackoff waits before the next retry, preferring the server's
// Retry-After over the exponential schedule.
func sleepBackoff(ctx context.Context, attempt int, retryAfter time.Duration) error {
	delay := baseBackoff << (attempt - 1)
	if retryAfter > delay {
		delay = retryAfter
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func chunkURIs(trackIDs []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(trackIDs); start += size {
		end := start + size
		if end > len(trackIDs) {
			end = len(trackIDs)
		}
		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}
		chunks = append(chunks, uris)
	}
	return chunks
}

func toTrack(track spotifyTrack) models.Track {
	t := models.Track{ID: track.ID, Title: track.Name}
	if len(track.Artists) > 0 {
		t.Artist = track.Artists[0].Name
	}
	return t
}

// fetchError keeps rate-limit errors distinguishable while labeling
// everything else as a listening data fetch failure.
func fetchError(err error) error {
	if errors.Is(err, shared.ErrRateLimited) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrDataFetch, err)
}
