package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/henry-johnson/weekly-discovery/internal/shared"
)

func testOpenAIConfig(baseURL string) shared.OpenAIConfig {
	return shared.OpenAIConfig{
		BaseURL:        baseURL,
		TextModel:      "gpt-5.2",
		ImageModel:     "chatgpt-image-latest",
		ImageSize:      "1024x1024",
		TimeoutSeconds: 5,
	}
}

func TestNewOpenAIProvider(t *testing.T) {
	t.Run("missing key is a configuration error", func(t *testing.T) {
		if _, err := NewOpenAIProvider("", testOpenAIConfig("")); !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("valid key", func(t *testing.T) {
		if _, err := NewOpenAIProvider("sk-test", testOpenAIConfig("")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestCompleteStructured(t *testing.T) {
	var gotRequest struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotRequest)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"queries\":[\"genre:\\\"dream pop\\\"\"]}"}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	provider, err := NewOpenAIProvider("sk-test", testOpenAIConfig(srv.URL+"/v1"))
	if err != nil {
		t.Fatal(err)
	}

	raw, err := provider.CompleteStructured(context.Background(), StructuredRequest{
		System:      "You suggest music searches.",
		User:        "Suggest queries.",
		Temperature: 0.8,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if len(payload.Queries) != 1 {
		t.Errorf("unexpected payload: %s", raw)
	}

	if gotRequest.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %q", gotRequest.ResponseFormat.Type)
	}
	if len(gotRequest.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(gotRequest.Messages))
	}
	// JSON mode needs the word somewhere in the messages
	if !strings.Contains(strings.ToLower(gotRequest.Messages[0].Content), "json") {
		t.Errorf("system prompt should mention json: %q", gotRequest.Messages[0].Content)
	}
}

func TestCompleteStructuredRetriesServerErrors(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"upstream hiccup","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	provider, err := NewOpenAIProvider("sk-test", testOpenAIConfig(srv.URL+"/v1"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := provider.CompleteStructured(context.Background(), StructuredRequest{User: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestCompleteStructuredSurfacesThrottling(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"requests"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	provider, err := NewOpenAIProvider("sk-test", testOpenAIConfig(srv.URL+"/v1"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.CompleteStructured(context.Background(), StructuredRequest{User: "hi"})
	if !errors.Is(err, shared.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if calls != maxAttempts {
		t.Errorf("expected %d calls, got %d", maxAttempts, calls)
	}
}

func TestCompleteStructuredClientErrorNotRetried(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	provider, err := NewOpenAIProvider("sk-test", testOpenAIConfig(srv.URL+"/v1"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := provider.CompleteStructured(context.Background(), StructuredRequest{User: "hi"}); err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestGenerateImage(t *testing.T) {
	t.Run("base64 payload", func(t *testing.T) {
		imageBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0}
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(imageBytes)}},
			})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		provider, err := NewOpenAIProvider("sk-test", testOpenAIConfig(srv.URL+"/v1"))
		if err != nil {
			t.Fatal(err)
		}

		got, err := provider.GenerateImage(context.Background(), "square album cover")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != string(imageBytes) {
			t.Errorf("decoded image does not match: %v", got)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[]}`))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		provider, err := NewOpenAIProvider("sk-test", testOpenAIConfig(srv.URL+"/v1"))
		if err != nil {
			t.Fatal(err)
		}

		if _, err := provider.GenerateImage(context.Background(), "anything"); err == nil {
			t.Error("expected error for missing payload")
		}
	})
}
