// Package tasks implements the weekly discovery pipeline and its per-user
// orchestration.
//
// # Pipeline
//
// [Engine.RunAll] iterates discovered credential bundles and runs the full
// chain for each user:
//
//	authenticate → snapshot → queries → resolve → narrative → publish
//
// Each user's pipeline is isolated: any stage failure records the stage and
// error kind in that user's [models.UserResult] and the engine moves on to
// the next user. Only artwork generation is exempt, degrading to "no
// artwork" rather than failing the user.
//
// # Structured model output
//
// Query and description generation call the model provider in JSON mode and
// validate the payload against embedded JSON Schemas. A malformed payload is
// regenerated exactly once with the same input; a second malformed payload
// surfaces [shared.ErrGeneration] for that user. Payloads are never coerced.
// Provider call failures are not regenerated here: transport retries belong
// to the provider layer and the resulting error keeps its own kind.
//
// # Progress Reporting
//
// All operations emit [ProgressUpdate] values through a non-blocking
// channel for display by the CLI layer. Updates use select with default so
// reporting can never stall the pipeline.
package tasks
