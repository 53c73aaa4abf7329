package shared

import (
	"fmt"
	"time"
)

// PlaylistNamePrefix is the fixed prefix of every generated playlist name.
// The full name doubles as the weekly idempotency key: a second run in the
// same target week finds and updates the playlist instead of creating one.
const PlaylistNamePrefix = "Weekly Discovery — "

// WeekID formats the ISO year-week identifier for t, e.g. "2026-W35".
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// SourceWeek returns the week identifier for the listening window
// preceding now. A non-positive windowDays falls back to one week.
func SourceWeek(now time.Time, windowDays int) string {
	if windowDays <= 0 {
		windowDays = 7
	}
	return WeekID(now.AddDate(0, 0, -windowDays))
}

// TargetWeek returns the week the playlist is for.
//
// Policy: always the ISO week following the source week, computed from the
// source week rather than run time. A run late on Sunday and a re-run early
// on Monday therefore target different weeks, but two runs inside the same
// week always agree, which is what the idempotency scheme needs.
func TargetWeek(sourceWeek string) (string, error) {
	start, err := weekStart(sourceWeek)
	if err != nil {
		return "", err
	}
	return WeekID(start.AddDate(0, 0, 7)), nil
}

// PlaylistName computes the deterministic playlist name for a target week.
func PlaylistName(targetWeek string) string {
	return PlaylistNamePrefix + targetWeek
}

// weekStart returns the Monday of the given ISO year-week.
//
// January 4th always falls in ISO week 1 of its year.
func weekStart(weekID string) (time.Time, error) {
	var year, week int
	if _, err := fmt.Sscanf(weekID, "%d-W%d", &year, &week); err != nil {
		return time.Time{}, fmt.Errorf("invalid week identifier %q: %w", weekID, err)
	}
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("invalid week identifier %q: week out of range", weekID)
	}

	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := int(jan4.Weekday())
	if offset == 0 {
		offset = 7 // Sunday
	}
	monday := jan4.AddDate(0, 0, 1-offset)
	return monday.AddDate(0, 0, (week-1)*7), nil
}
