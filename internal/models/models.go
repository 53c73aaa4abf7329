// package models defines the data model for the weekly discovery pipeline
package models

import (
	"fmt"
	"strings"
	"time"
)

// CredentialBundle holds one user's Spotify application credentials as
// discovered from the environment namespace. The username is the lowercase
// canonical key for the user.
type CredentialBundle struct {
	Username     string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Validate checks that all three credential fields are present.
// Returns an error naming the missing fields.
func (b CredentialBundle) Validate() error {
	var missing []string
	if b.ClientID == "" {
		missing = append(missing, "CLIENT_ID")
	}
	if b.ClientSecret == "" {
		missing = append(missing, "CLIENT_SECRET")
	}
	if b.RefreshToken == "" {
		missing = append(missing, "REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("user %q is missing %s", b.Username, strings.Join(missing, ", "))
	}
	return nil
}

// Track represents a music track candidate or a track from listening history.
type Track struct {
	ID     string // Spotify track ID
	Artist string // Primary artist name
	Title  string
}

// ListeningSnapshot captures a user's recent listening window, derived
// read-only from the Spotify API. Empty sequences are a valid state for
// new or inactive users.
type ListeningSnapshot struct {
	TopArtists []string // Ranked, most-played first
	TopTracks  []Track  // Ranked, most-played first
	Genres     []string // Deduplicated, artist rank order
	SourceWeek string   // ISO year-week the data covers, e.g. "2026-W35"
}

// Empty reports whether the snapshot contains no listening data at all.
func (s ListeningSnapshot) Empty() bool {
	return len(s.TopArtists) == 0 && len(s.TopTracks) == 0 && len(s.Genres) == 0
}

// KnownIDs returns the set of track IDs already present in the snapshot.
func (s ListeningSnapshot) KnownIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.TopTracks))
	for _, t := range s.TopTracks {
		if t.ID != "" {
			ids[t.ID] = struct{}{}
		}
	}
	return ids
}

// Stage identifies a step in the per-user pipeline state machine.
type Stage int

const (
	StagePending Stage = iota
	StageAuthenticated
	StageSnapshotFetched
	StageQueriesBuilt
	StageTracksResolved
	StageNarrativeReady
	StagePublished
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageAuthenticated:
		return "authenticated"
	case StageSnapshotFetched:
		return "snapshot_fetched"
	case StageQueriesBuilt:
		return "queries_built"
	case StageTracksResolved:
		return "tracks_resolved"
	case StageNarrativeReady:
		return "narrative_ready"
	case StagePublished:
		return "published"
	default:
		return ""
	}
}

// Status is the terminal outcome of one user's pipeline run.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return ""
	}
}

// UserResult records one user's terminal pipeline state for the run summary.
type UserResult struct {
	Username     string
	Status       Status
	Stage        Stage  // Last state reached; the failing stage when Status is failed
	PlaylistName string // Set when the pipeline reached publish
	PlaylistID   string
	TrackCount   int
	Created      bool // true when a new playlist was created, false when updated
	Err          error
}

// RunSummary aggregates per-user outcomes for a single pipeline invocation.
type RunSummary struct {
	RunID      string
	SourceWeek string
	TargetWeek string
	StartedAt  time.Time
	FinishedAt time.Time
	Warnings   []string // Credential warnings from discovery
	Results    []UserResult
}

// Succeeded returns the number of users that reached the published state.
func (s *RunSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// Failed returns the number of users that terminated in a failed state.
func (s *RunSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			n++
		}
	}
	return n
}

// RunRecord is the persisted form of a single user's outcome in the run
// journal. Pipeline state itself is never persisted; the journal only keeps
// outcomes for later inspection.
type RunRecord struct {
	ID         string
	RunID      string
	Username   string
	TargetWeek string
	Status     string
	Stage      string
	Playlist   string
	Tracks     int
	Detail     string // Short error description, empty on success
	CreatedAt  time.Time
}

// Validate checks that the record carries the fields the journal requires.
func (r *RunRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run record has no id")
	}
	if r.RunID == "" || r.Username == "" {
		return fmt.Errorf("run record requires run_id and username")
	}
	if r.TargetWeek == "" {
		return fmt.Errorf("run record requires a target week")
	}
	return nil
}
