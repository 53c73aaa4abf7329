package shared

import "fmt"

var (
	// Configuration errors; the only kind fatal to a whole run
	ErrConfiguration = fmt.Errorf("configuration error")

	// Credential discovery
	ErrCredentialIncomplete = fmt.Errorf("incomplete credentials")

	// Per-user pipeline errors, caught at the orchestrator boundary
	ErrAuthFailed  = fmt.Errorf("authentication failed")
	ErrDataFetch   = fmt.Errorf("listening data fetch failed")
	ErrRateLimited = fmt.Errorf("rate limited")
	ErrGeneration  = fmt.Errorf("model output invalid")
	ErrPublish     = fmt.Errorf("playlist write failed")

	// Supporting sentinels
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
)
