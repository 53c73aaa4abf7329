// package shared defines helpers used across the weekly discovery pipeline
package shared

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
//
// Used to scope log lines to a single user's pipeline run.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// NormalizeTrackKey builds a case and whitespace insensitive key for an
// (artist, title) pair, used to exclude known tracks from discovery results
// even when the search result spells them slightly differently.
func NormalizeTrackKey(artist, title string) string {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return norm(artist) + "|" + norm(title)
}
