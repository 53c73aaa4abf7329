package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/henry-johnson/weekly-discovery/internal/server"
	"github.com/henry-johnson/weekly-discovery/internal/services"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Auth runs the one-time authorization code flow for a user and prints the
// environment lines to provision. This is the only way refresh tokens enter
// the system; the pipeline itself never initiates interactive auth.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	clientID := cmd.String("client-id")
	clientSecret := cmd.String("client-secret")
	username := strings.ToLower(strings.TrimSpace(cmd.String("username")))
	port := cmd.Int("port")

	if clientID == "" || clientSecret == "" || username == "" {
		return fmt.Errorf("%w: --client-id, --client-secret and --username are required", shared.ErrConfiguration)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     services.AuthEndpoint(),
		RedirectURL:  fmt.Sprintf("http://127.0.0.1:%d/callback", port),
		Scopes:       services.RequiredScopes(),
	}

	state := shared.GenerateID()
	handler := server.NewCallbackHandler(config, state)
	callback := server.NewCallbackServer(port, handler)

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	r.writePlain("Open this URL in your browser to authorize %s:\n\n%s\n\n", username, authURL)
	r.logger.Info("waiting for authorization callback", "port", port)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := callback.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if err := result.Error(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if result.Token.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token granted, check the app's settings", shared.ErrAuthFailed)
	}

	r.logger.Info("authorization complete", "user", username)

	key := strings.ToUpper(username)
	r.writePlain("Add these to the environment the pipeline runs in:\n\n")
	r.writePlain("export SPOTIFY_USER_%s_CLIENT_ID=%q\n", key, clientID)
	r.writePlain("export SPOTIFY_USER_%s_CLIENT_SECRET=%q\n", key, clientSecret)
	r.writePlain("export SPOTIFY_USER_%s_REFRESH_TOKEN=%q\n", key, result.Token.RefreshToken)
	return nil
}
