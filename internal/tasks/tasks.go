package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/services"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
)

// SessionFactory builds an authenticated-capable music session for one
// user's credential bundle. The engine calls it once per user so failures
// stay isolated to that user.
type SessionFactory func(bundle models.CredentialBundle) (services.MusicService, error)

// Engine runs the discovery pipeline for a set of users. One model provider
// is shared across users; music sessions are created per user.
type Engine struct {
	provider   services.ModelProvider
	newSession SessionFactory
	config     *shared.Config
	logger     *log.Logger
	clock      func() time.Time
}

func NewEngine(provider services.ModelProvider, newSession SessionFactory, config *shared.Config, logger *log.Logger) *Engine {
	return &Engine{
		provider:   provider,
		newSession: newSession,
		config:     config,
		logger:     logger,
		clock:      time.Now,
	}
}

// RunAll executes the pipeline for every discovered user, sequentially.
// One user's failure never stops the others; a cancelled context marks the
// remaining users skipped. The returned summary always covers every bundle.
//
// progress may be nil. Sends never block: a slow consumer drops updates
// rather than stalling the pipeline.
func (e *Engine) RunAll(ctx context.Context, progress chan<- ProgressUpdate, bundles []models.CredentialBundle, warnings []string) *models.RunSummary {
	summary := &models.RunSummary{
		RunID:     shared.GenerateID(),
		StartedAt: e.clock(),
		Warnings:  warnings,
	}

	summary.SourceWeek = shared.SourceWeek(e.clock(), e.config.Spotify.WindowDays)

	targetWeek, err := shared.TargetWeek(summary.SourceWeek)
	if err != nil {
		// Unreachable for a WeekID-formatted source week; recorded rather
		// than swallowed in case the format and parser ever drift apart.
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("cannot derive target week: %v", err))
		summary.FinishedAt = e.clock()
		return summary
	}
	summary.TargetWeek = targetWeek

	e.logger.Info("starting run",
		"run_id", summary.RunID,
		"source_week", summary.SourceWeek,
		"target_week", summary.TargetWeek,
		"users", len(bundles))

	for _, bundle := range bundles {
		if ctx.Err() != nil {
			result := models.UserResult{
				Username: bundle.Username,
				Status:   models.StatusSkipped,
				Stage:    models.StagePending,
				Err:      ctx.Err(),
			}
			summary.Results = append(summary.Results, result)
			sendProgress(progress, userDoneUpdate(result))
			continue
		}

		result := e.runUser(ctx, bundle, summary.SourceWeek, summary.TargetWeek, progress)
		summary.Results = append(summary.Results, result)
		sendProgress(progress, userDoneUpdate(result))
	}

	summary.FinishedAt = e.clock()
	e.logger.Info("run finished",
		"run_id", summary.RunID,
		"succeeded", summary.Succeeded(),
		"failed", summary.Failed())
	return summary
}

// runUser drives one user through the pipeline states. The returned result's
// Stage is the state being attempted when a failure occurred, or published
// on success.
func (e *Engine) runUser(ctx context.Context, bundle models.CredentialBundle, sourceWeek, targetWeek string, progress chan<- ProgressUpdate) models.UserResult {
	result := models.UserResult{Username: bundle.Username, Stage: models.StagePending}
	logger := shared.WithLogger(e.logger, "user", bundle.Username)

	fail := func(stage models.Stage, err error) models.UserResult {
		result.Status = models.StatusFailed
		result.Stage = stage
		result.Err = err
		logger.Error("pipeline failed", "stage", stage, "error", err)
		return result
	}

	session, err := e.newSession(bundle)
	if err != nil {
		return fail(models.StagePending, err)
	}

	sendProgress(progress, stageUpdate(bundle.Username, PhaseAuthenticate, "authenticating"))
	if err := session.Authenticate(ctx); err != nil {
		return fail(models.StageAuthenticated, err)
	}
	result.Stage = models.StageAuthenticated

	sendProgress(progress, stageUpdate(bundle.Username, PhaseSnapshot, "fetching listening history"))
	snapshot, err := session.ListeningSnapshot(ctx, sourceWeek)
	if err != nil {
		return fail(models.StageSnapshotFetched, err)
	}
	result.Stage = models.StageSnapshotFetched

	var queries []string
	var tracks []models.Track
	if snapshot.Empty() {
		// New or inactive account. An empty playlist for the week is the
		// correct outcome, so the generation steps have nothing to do.
		logger.Info("listening history is empty, publishing empty playlist")
		result.Stage = models.StageTracksResolved
	} else {
		sendProgress(progress, stageUpdate(bundle.Username, PhaseQueries, "generating search queries"))
		queries, err = e.buildQueries(ctx, snapshot, targetWeek)
		if err != nil {
			return fail(models.StageQueriesBuilt, err)
		}
		result.Stage = models.StageQueriesBuilt

		sendProgress(progress, stageUpdate(bundle.Username, PhaseResolve, "resolving tracks"))
		tracks, err = e.resolveTracks(ctx, session, queries, snapshot, logger)
		if err != nil {
			return fail(models.StageTracksResolved, err)
		}
		result.Stage = models.StageTracksResolved
	}

	sendProgress(progress, stageUpdate(bundle.Username, PhaseNarrative, "writing description"))
	description, err := e.describe(ctx, snapshot, targetWeek)
	if err != nil {
		return fail(models.StageNarrativeReady, err)
	}
	cover := e.artwork(ctx, snapshot, targetWeek, logger)
	result.Stage = models.StageNarrativeReady

	sendProgress(progress, stageUpdate(bundle.Username, PhasePublish, "publishing playlist"))
	published, err := e.publish(ctx, session, targetWeek, trackIDs(tracks), description, cover, logger)
	if err != nil {
		return fail(models.StagePublished, err)
	}

	result.Status = models.StatusSuccess
	result.Stage = models.StagePublished
	result.PlaylistName = published.Name
	result.PlaylistID = published.PlaylistID
	result.TrackCount = len(tracks)
	result.Created = published.Created

	logger.Info("pipeline complete",
		"playlist", published.Name,
		"tracks", len(tracks),
		"created", published.Created)
	return result
}

func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
