// package credentials discovers per-user Spotify credential bundles from a
// flat key/value namespace, usually the process environment.
//
// Keys follow the convention SPOTIFY_USER_{USERNAME}_{FIELD} where FIELD is
// one of CLIENT_ID, CLIENT_SECRET or REFRESH_TOKEN. This package is the one
// place that convention is parsed; the rest of the pipeline only sees typed
// [models.CredentialBundle] values.
package credentials

import (
	"fmt"
	"sort"
	"strings"

	"github.com/henry-johnson/weekly-discovery/internal/models"
)

const keyPrefix = "SPOTIFY_USER_"

var fieldSuffixes = []string{"_CLIENT_ID", "_CLIENT_SECRET", "_REFRESH_TOKEN"}

// Discover scans the namespace for credential triples and groups them into
// per-user bundles.
//
// A username is included only when all three fields are present and
// non-empty; incomplete users are reported as warnings and excluded. The
// result is ordered by ascending username so run order and logs are
// deterministic. Discover never fails, whatever the namespace contents.
func Discover(namespace map[string]string) ([]models.CredentialBundle, []string) {
	byUser := make(map[string]*models.CredentialBundle)

	for key, value := range namespace {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}

		rest := strings.TrimPrefix(key, keyPrefix)
		for _, suffix := range fieldSuffixes {
			if !strings.HasSuffix(rest, suffix) {
				continue
			}
			upper := strings.TrimSuffix(rest, suffix)
			if upper == "" {
				break
			}
			username := strings.ToLower(upper)

			bundle := byUser[username]
			if bundle == nil {
				bundle = &models.CredentialBundle{Username: username}
				byUser[username] = bundle
			}

			switch suffix {
			case "_CLIENT_ID":
				bundle.ClientID = value
			case "_CLIENT_SECRET":
				bundle.ClientSecret = value
			case "_REFRESH_TOKEN":
				bundle.RefreshToken = value
			}
			break
		}
	}

	usernames := make([]string, 0, len(byUser))
	for username := range byUser {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	var bundles []models.CredentialBundle
	var warnings []string
	for _, username := range usernames {
		bundle := byUser[username]
		if err := bundle.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s", err))
			continue
		}
		bundles = append(bundles, *bundle)
	}

	return bundles, warnings
}
