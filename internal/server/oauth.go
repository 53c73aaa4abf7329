package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// AuthResult carries the token captured by the callback, or the reason the
// flow failed.
type AuthResult struct {
	Token *oauth2.Token
	err   error
}

func (r *AuthResult) Error() error {
	return r.err
}

// CallbackHandler handles the OAuth2 authorization code callback.
//
// The handler validates the state parameter, exchanges the code for a token
// set, and delivers exactly one result. Repeat callbacks are rejected.
type CallbackHandler struct {
	config      *oauth2.Config
	state       string
	resultChan  chan AuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a callback handler for the given OAuth2 config.
// The state token should be cryptographically random.
func NewCallbackHandler(config *oauth2.Config, state string) *CallbackHandler {
	return &CallbackHandler{
		config:     config,
		state:      state,
		resultChan: make(chan AuthResult, 1),
	}
}

// ServeHTTP handles the OAuth callback request.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state != h.state {
		h.send(AuthResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.send(AuthResult{err: fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(context.Background(), code)
	if err != nil {
		h.send(AuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(AuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authorization Successful</title></head>
<body>
    <h1>Authorization successful</h1>
    <p>You can close this window and return to the terminal.</p>
</body>
</html>
`)
}

// send delivers the result exactly once, then closes the channel.
func (h *CallbackHandler) send(result AuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel carrying the single flow result.
func (h *CallbackHandler) Result() <-chan AuthResult {
	return h.resultChan
}
