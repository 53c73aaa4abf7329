// package server runs the loopback HTTP listener for the credential
// provisioning flow.
//
// The pipeline itself never serves HTTP; this exists solely so an operator
// can complete the one-time authorization code dance and obtain the refresh
// token that goes into the environment namespace.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// CallbackServer hosts a single OAuth callback handler on localhost and
// shuts down once the flow completes.
type CallbackServer struct {
	server  *http.Server
	handler *CallbackHandler
}

// NewCallbackServer creates a server listening on the given port with the
// provided callback handler mounted at /callback.
func NewCallbackServer(port int, handler *CallbackHandler) *CallbackServer {
	mux := http.NewServeMux()
	mux.Handle("/callback", handler)

	return &CallbackServer{
		server: &http.Server{
			Addr:    fmt.Sprintf("127.0.0.1:%d", port),
			Handler: mux,
		},
		handler: handler,
	}
}

// Wait serves until the callback delivers a result or ctx expires, then
// shuts the listener down. Returns the captured result.
func (s *CallbackServer) Wait(ctx context.Context) (AuthResult, error) {
	errs := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	select {
	case result := <-s.handler.Result():
		return result, nil
	case err := <-errs:
		return AuthResult{}, fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return AuthResult{}, fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}
