// package repositories implements the run journal persistence layer.
//
// The journal records terminal outcomes only. Pipeline state is never
// persisted: a crashed run leaves no partial state behind, and the next run
// starts from scratch.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/henry-johnson/weekly-discovery/internal/models"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
)

// RunRepository persists per-user run outcomes to the run_results table.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Record writes one row per user result in the summary, in a single
// transaction so a run is journalled entirely or not at all.
func (r *RunRepository) Record(summary *models.RunSummary) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO run_results (id, run_id, username, target_week, status, stage, playlist, tracks, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, result := range summary.Results {
		record := models.RunRecord{
			ID:         shared.GenerateID(),
			RunID:      summary.RunID,
			Username:   result.Username,
			TargetWeek: summary.TargetWeek,
			Status:     result.Status.String(),
			Stage:      result.Stage.String(),
			Playlist:   result.PlaylistName,
			Tracks:     result.TrackCount,
			CreatedAt:  summary.FinishedAt,
		}
		if result.Err != nil {
			record.Detail = result.Err.Error()
		}

		if err := record.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		_, err := tx.Exec(query,
			record.ID,
			record.RunID,
			record.Username,
			record.TargetWeek,
			record.Status,
			record.Stage,
			record.Playlist,
			record.Tracks,
			record.Detail,
			record.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run records: %w", err)
	}

	return nil
}

// ListByRun retrieves all records for a single run, ordered by username.
func (r *RunRepository) ListByRun(runID string) ([]*models.RunRecord, error) {
	query := `
		SELECT id, run_id, username, target_week, status, stage, playlist, tracks, detail, created_at
		FROM run_results
		WHERE run_id = ?
		ORDER BY username ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByUser retrieves a user's record history, newest first.
func (r *RunRepository) ListByUser(username string, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, run_id, username, target_week, status, stage, playlist, tracks, detail, created_at
		FROM run_results
		WHERE username = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// LastForWeek retrieves a user's most recent record for a target week, or
// nil when the user has no journalled run for that week.
func (r *RunRepository) LastForWeek(username, targetWeek string) (*models.RunRecord, error) {
	query := `
		SELECT id, run_id, username, target_week, status, stage, playlist, tracks, detail, created_at
		FROM run_results
		WHERE username = ? AND target_week = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	record, err := scanRecord(r.db.QueryRow(query, username, targetWeek))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run record: %w", err)
	}

	return record, nil
}

func scanRecords(rows *sql.Rows) ([]*models.RunRecord, error) {
	var records []*models.RunRecord
	for rows.Next() {
		var record models.RunRecord
		var playlist, detail sql.NullString
		var createdAt time.Time

		err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.Username,
			&record.TargetWeek,
			&record.Status,
			&record.Stage,
			&playlist,
			&record.Tracks,
			&detail,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}

		record.Playlist = playlist.String
		record.Detail = detail.String
		record.CreatedAt = createdAt
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run records: %w", err)
	}

	return records, nil
}

func scanRecord(row *sql.Row) (*models.RunRecord, error) {
	var record models.RunRecord
	var playlist, detail sql.NullString

	err := row.Scan(
		&record.ID,
		&record.RunID,
		&record.Username,
		&record.TargetWeek,
		&record.Status,
		&record.Stage,
		&playlist,
		&record.Tracks,
		&detail,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Playlist = playlist.String
	record.Detail = detail.String
	return &record, nil
}
