// Package services implements the external collaborator interfaces for the
// weekly discovery pipeline.
//
// # MusicService
//
// [SpotifyService] implements [MusicService] for a single user's credential
// bundle. Authentication is a refresh-token exchange via [oauth2]; there is
// no interactive login anywhere in the pipeline. The access token lives in
// the oauth2 transport for the session's lifetime and is never logged or
// persisted.
//
// Every request is paced by a [rate.Limiter] and carries its own timeout.
// 429 responses and transport failures are retried with bounded exponential
// backoff honoring Retry-After; exhausting the retries surfaces
// [shared.ErrRateLimited], which the orchestrator treats as that user's
// failure rather than the run's.
//
// # ModelProvider
//
// [OpenAIProvider] implements [ModelProvider] over the OpenAI API using
// JSON-mode chat completions for structured text and the images API for
// artwork. Payload shape validation belongs to the callers in the tasks
// package; this layer only guarantees "one JSON object" or "image bytes".
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrAuthFailed] : token exchange or scope check failed
//   - [shared.ErrRateLimited] : retries exhausted on throttling
//   - [shared.ErrDataFetch] : listening history fetch failed
//   - [shared.ErrPlaylistNotFound] : no playlist with the requested name
package services
