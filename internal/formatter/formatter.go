// package formatter renders run summaries for terminal, JSON, and Markdown output
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/henry-johnson/weekly-discovery/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
}

func NewPalette(t, s, e, w, d string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		dim:   NewStyle(d),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

// SummaryToText renders a run summary as styled terminal text.
func SummaryToText(summary *models.RunSummary) string {
	var buf bytes.Buffer

	buf.WriteString(styles.title.Render(fmt.Sprintf("Weekly Discovery run %s", summary.TargetWeek)))
	buf.WriteString("\n")
	buf.WriteString(styles.dim.Render(fmt.Sprintf("run %s, source week %s", summary.RunID, summary.SourceWeek)))
	buf.WriteString("\n\n")

	for _, warning := range summary.Warnings {
		buf.WriteString(styles.warn.Render("warning: " + warning))
		buf.WriteString("\n")
	}
	if len(summary.Warnings) > 0 {
		buf.WriteString("\n")
	}

	for _, result := range summary.Results {
		buf.WriteString(resultLine(result))
		buf.WriteString("\n")
	}

	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("%d succeeded, %d failed, %d total\n",
		summary.Succeeded(), summary.Failed(), len(summary.Results)))

	return buf.String()
}

func resultLine(result models.UserResult) string {
	switch result.Status {
	case models.StatusSuccess:
		verb := "updated"
		if result.Created {
			verb = "created"
		}
		return fmt.Sprintf("%s %s: %s %s (%d tracks)",
			styles.ok.Render("ok"), result.Username, verb, result.PlaylistName, result.TrackCount)
	case models.StatusSkipped:
		return fmt.Sprintf("%s %s", styles.dim.Render("skipped"), result.Username)
	default:
		return fmt.Sprintf("%s %s: at %s: %v",
			styles.err.Render("failed"), result.Username, result.Stage, result.Err)
	}
}

// RecordsToText renders journal records for the history command, newest
// first as stored.
func RecordsToText(records []*models.RunRecord) string {
	if len(records) == 0 {
		return "No journal entries found.\n"
	}

	var buf bytes.Buffer
	for _, record := range records {
		buf.WriteString(recordLine(record))
		buf.WriteString("\n")
	}
	return buf.String()
}

func recordLine(record *models.RunRecord) string {
	when := styles.dim.Render(record.CreatedAt.UTC().Format("2006-01-02"))
	switch record.Status {
	case models.StatusSuccess.String():
		return fmt.Sprintf("%s %s %s %s: %s (%d tracks)",
			when, styles.ok.Render("ok"), record.Username, record.TargetWeek, record.Playlist, record.Tracks)
	case models.StatusSkipped.String():
		return fmt.Sprintf("%s %s %s %s",
			when, styles.dim.Render("skipped"), record.Username, record.TargetWeek)
	default:
		return fmt.Sprintf("%s %s %s %s: at %s: %s",
			when, styles.err.Render("failed"), record.Username, record.TargetWeek, record.Stage, record.Detail)
	}
}

// UserListToText renders the credential discovery result for the users command.
func UserListToText(usernames, warnings []string) string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Found %d user(s)", len(usernames)))
	if len(usernames) > 0 {
		buf.WriteString(": " + strings.Join(usernames, ", "))
	}
	buf.WriteString("\n")

	for _, warning := range warnings {
		buf.WriteString(styles.warn.Render("warning: " + warning))
		buf.WriteString("\n")
	}

	return buf.String()
}

// summaryPayload is the JSON projection of a run summary. Errors flatten to
// strings so the output round-trips through any JSON consumer.
type summaryPayload struct {
	RunID      string          `json:"run_id"`
	SourceWeek string          `json:"source_week"`
	TargetWeek string          `json:"target_week"`
	StartedAt  string          `json:"started_at"`
	FinishedAt string          `json:"finished_at"`
	Warnings   []string        `json:"warnings,omitempty"`
	Results    []resultPayload `json:"results"`
}

type resultPayload struct {
	Username   string `json:"username"`
	Status     string `json:"status"`
	Stage      string `json:"stage"`
	Playlist   string `json:"playlist,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	Tracks     int    `json:"tracks"`
	Created    bool   `json:"created"`
	Error      string `json:"error,omitempty"`
}

// SummaryToJSON converts a run summary to indented JSON.
func SummaryToJSON(summary *models.RunSummary) ([]byte, error) {
	payload := summaryPayload{
		RunID:      summary.RunID,
		SourceWeek: summary.SourceWeek,
		TargetWeek: summary.TargetWeek,
		StartedAt:  summary.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		FinishedAt: summary.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Warnings:   summary.Warnings,
		Results:    make([]resultPayload, 0, len(summary.Results)),
	}

	for _, result := range summary.Results {
		entry := resultPayload{
			Username:   result.Username,
			Status:     result.Status.String(),
			Stage:      result.Stage.String(),
			Playlist:   result.PlaylistName,
			PlaylistID: result.PlaylistID,
			Tracks:     result.TrackCount,
			Created:    result.Created,
		}
		if result.Err != nil {
			entry.Error = result.Err.Error()
		}
		payload.Results = append(payload.Results, entry)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run summary: %w", err)
	}

	return data, nil
}

// SummaryToMarkdown converts a run summary to a Markdown report.
func SummaryToMarkdown(summary *models.RunSummary) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Weekly Discovery — %s\n\n", summary.TargetWeek))
	buf.WriteString(fmt.Sprintf("**Run**: %s\n", summary.RunID))
	buf.WriteString(fmt.Sprintf("**Source week**: %s\n\n", summary.SourceWeek))

	if len(summary.Warnings) > 0 {
		buf.WriteString("## Warnings\n\n")
		for _, warning := range summary.Warnings {
			buf.WriteString(fmt.Sprintf("- %s\n", warning))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Results\n\n")
	buf.WriteString("| User | Status | Stage | Playlist | Tracks |\n")
	buf.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, result := range summary.Results {
		playlist := result.PlaylistName
		if playlist == "" {
			playlist = "—"
		}
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d |\n",
			result.Username, result.Status, result.Stage, playlist, result.TrackCount))
	}

	buf.WriteString(fmt.Sprintf("\n%d succeeded, %d failed, %d total\n",
		summary.Succeeded(), summary.Failed(), len(summary.Results)))

	return buf.Bytes()
}
