package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/henry-johnson/weekly-discovery/internal/services"
	"github.com/henry-johnson/weekly-discovery/internal/shared"
)

func TestParseDescriptionPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{
			name:    "valid payload",
			payload: `{"description": "A week of hazy dream pop."}`,
			want:    "A week of hazy dream pop.",
		},
		{
			name:    "whitespace trimmed",
			payload: `{"description": "  padded  "}`,
			want:    "padded",
		},
		{
			name:    "missing key",
			payload: `{"text": "nope"}`,
			wantErr: true,
		},
		{
			name:    "empty string",
			payload: `{"description": ""}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			payload: `"just a string"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDescriptionPayload(json.RawMessage(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDescribeRetriesOnce(t *testing.T) {
	provider := &mockProvider{
		textResponses: []string{`{"text": "wrong shape"}`, `{"description": "Second try."}`},
	}
	engine := NewEngine(provider, nil, shared.DefaultConfig(), shared.NewLogger(io.Discard))

	got, err := engine.describe(context.Background(), testSnapshot(), "2026-W36")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Second try." {
		t.Errorf("expected the regenerated description, got %q", got)
	}
	if provider.textCalls != 2 {
		t.Errorf("expected 2 attempts, got %d", provider.textCalls)
	}
}

func TestDescribeProviderFailureNotRetried(t *testing.T) {
	provider := &mockProvider{textErr: errors.New("connection reset by peer")}
	engine := NewEngine(provider, nil, shared.DefaultConfig(), shared.NewLogger(io.Discard))

	_, err := engine.describe(context.Background(), testSnapshot(), "2026-W36")
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, shared.ErrGeneration) {
		t.Errorf("provider failure mislabeled as generation error: %v", err)
	}
	if provider.textCalls != 1 {
		t.Errorf("expected a single attempt, got %d", provider.textCalls)
	}
}

func TestDescribeFailsAfterSecondBadPayload(t *testing.T) {
	provider := &mockProvider{
		textResponses: []string{`{}`, `{}`},
	}
	engine := NewEngine(provider, nil, shared.DefaultConfig(), shared.NewLogger(io.Discard))

	_, err := engine.describe(context.Background(), testSnapshot(), "2026-W36")
	if !errors.Is(err, shared.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestTruncateDescription(t *testing.T) {
	short := "fits as is"
	if got := truncateDescription(short); got != short {
		t.Errorf("short description must pass through, got %q", got)
	}

	long := strings.Repeat("ä", services.PlaylistDescriptionMax+50)
	got := truncateDescription(long)
	if runes := len([]rune(got)); runes > services.PlaylistDescriptionMax {
		t.Errorf("expected at most %d runes, got %d", services.PlaylistDescriptionMax, runes)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("expected a truncation marker")
	}
}

func TestFitCoverReencodesOversizedImage(t *testing.T) {
	// Noise compresses poorly, so a large PNG input forces the quality loop.
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, 512, 512))
	for y := 0; y < 512; y++ {
		for x := 0; x < 512; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	got, err := fitCover(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > services.PlaylistImageMaxBytes {
		t.Errorf("cover still over the limit: %d bytes", len(got))
	}
	if _, err := jpeg.Decode(bytes.NewReader(got)); err != nil {
		t.Errorf("re-encoded cover is not valid JPEG: %v", err)
	}
}

func TestFitCoverRejectsGarbage(t *testing.T) {
	if _, err := fitCover([]byte("not an image")); err == nil {
		t.Error("expected an error for undecodable bytes")
	}
	if _, err := fitCover(nil); err == nil {
		t.Error("expected an error for empty payload")
	}
}

func TestArtworkFailuresReturnNil(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	engine := NewEngine(&mockProvider{imageErr: errors.New("offline")}, nil, shared.DefaultConfig(), logger)
	if got := engine.artwork(context.Background(), testSnapshot(), "2026-W36", logger); got != nil {
		t.Error("expected nil cover when generation fails")
	}

	engine = NewEngine(&mockProvider{image: []byte("garbage")}, nil, shared.DefaultConfig(), logger)
	if got := engine.artwork(context.Background(), testSnapshot(), "2026-W36", logger); got != nil {
		t.Error("expected nil cover for undecodable bytes")
	}
}
