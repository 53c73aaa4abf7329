package shared

import (
	"testing"
	"time"
)

func TestWeekID(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{
			name: "mid year",
			date: time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC),
			want: "2026-W36",
		},
		{
			name: "january in previous iso year",
			date: time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
			want: "2026-W53",
		},
		{
			name: "december in next iso year",
			date: time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC),
			want: "2025-W01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekID(tt.date); got != tt.want {
				t.Errorf("WeekID(%v) = %q, want %q", tt.date, got, tt.want)
			}
		})
	}
}

func TestSourceWeek(t *testing.T) {
	now := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC) // Monday, W36
	if got := SourceWeek(now, 7); got != "2026-W35" {
		t.Errorf("SourceWeek = %q, want 2026-W35", got)
	}
	// Zero falls back to a one-week window.
	if got := SourceWeek(now, 0); got != "2026-W35" {
		t.Errorf("SourceWeek with zero window = %q, want 2026-W35", got)
	}
	if got := SourceWeek(now, 14); got != "2026-W34" {
		t.Errorf("SourceWeek with 14-day window = %q, want 2026-W34", got)
	}
}

func TestTargetWeek(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    string
		wantErr bool
	}{
		{name: "simple increment", source: "2026-W35", want: "2026-W36"},
		{name: "year rollover", source: "2026-W53", want: "2027-W01"},
		{name: "short year rollover", source: "2024-W52", want: "2025-W01"},
		{name: "garbage input", source: "next tuesday", wantErr: true},
		{name: "week out of range", source: "2026-W90", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TargetWeek(tt.source)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.source)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("TargetWeek(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestTargetWeekDeterministic(t *testing.T) {
	// Two computations in the same week must agree; this is the idempotency key.
	a, err := TargetWeek("2026-W35")
	if err != nil {
		t.Fatal(err)
	}
	b, err := TargetWeek("2026-W35")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("target week not deterministic: %q vs %q", a, b)
	}
	if PlaylistName(a) != "Weekly Discovery — 2026-W36" {
		t.Errorf("unexpected playlist name %q", PlaylistName(a))
	}
}

func TestNormalizeTrackKey(t *testing.T) {
	tests := []struct {
		name   string
		artist string
		title  string
		want   string
	}{
		{name: "lowercases", artist: "Big Thief", title: "Simulation Swarm", want: "big thief|simulation swarm"},
		{name: "collapses whitespace", artist: "  Big   Thief ", title: "Simulation  Swarm", want: "big thief|simulation swarm"},
		{name: "empty", artist: "", title: "", want: "|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTrackKey(tt.artist, tt.title); got != tt.want {
				t.Errorf("NormalizeTrackKey(%q, %q) = %q, want %q", tt.artist, tt.title, got, tt.want)
			}
		})
	}
}
