package tasks

import (
	"fmt"

	"github.com/henry-johnson/weekly-discovery/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Username string // User whose pipeline produced the event
	Phase    Phase
	Message  string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	PhaseDiscover Phase = iota
	PhaseAuthenticate
	PhaseSnapshot
	PhaseQueries
	PhaseResolve
	PhaseNarrative
	PhasePublish
	PhaseUserDone
)

func (p Phase) String() string {
	switch p {
	case PhaseDiscover:
		return "discover"
	case PhaseAuthenticate:
		return "authenticate"
	case PhaseSnapshot:
		return "snapshot"
	case PhaseQueries:
		return "queries"
	case PhaseResolve:
		return "resolve"
	case PhaseNarrative:
		return "narrative"
	case PhasePublish:
		return "publish"
	case PhaseUserDone:
		return "user_done"
	default:
		return ""
	}
}

func stageUpdate(username string, phase Phase, message string) ProgressUpdate {
	return ProgressUpdate{Username: username, Phase: phase, Message: message}
}

func userDoneUpdate(result models.UserResult) ProgressUpdate {
	msg := ""
	switch result.Status {
	case models.StatusSuccess:
		verb := "updated"
		if result.Created {
			verb = "created"
		}
		msg = fmt.Sprintf("%s: %s %s (%d tracks)", result.Username, verb, result.PlaylistName, result.TrackCount)
	case models.StatusSkipped:
		msg = fmt.Sprintf("%s: skipped", result.Username)
	case models.StatusFailed:
		msg = fmt.Sprintf("%s: failed at %s: %v", result.Username, result.Stage, result.Err)
	}
	return ProgressUpdate{Username: result.Username, Phase: PhaseUserDone, Message: msg}
}
