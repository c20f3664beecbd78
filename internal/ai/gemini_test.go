package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/desk-dashboard/pkg/logger"
)

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Goog-Api-Key"); got != "test-key" {
			t.Errorf("X-Goog-Api-Key = %q", got)
		}
		if r.URL.Query().Get("key") != "" {
			t.Errorf("api key leaked into the query string")
		}

		var req struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Short "},{"text":"answer."}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiClient(context.Background(), GeminiOptions{
		APIKey:   "test-key",
		Model:    "gemini-2.5-flash",
		Endpoint: srv.URL + "/",
	}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	got, err := g.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Short answer." {
		t.Errorf("got %q", got)
	}
}

func TestGeminiGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota"}}`))
	}))
	defer srv.Close()

	g, err := NewGeminiClient(context.Background(), GeminiOptions{
		APIKey:   "k",
		Model:    "gemini-2.5-flash",
		Endpoint: srv.URL + "/",
	}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	_, err = g.Generate(context.Background(), "hello")
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *googleapi.Error", err)
	}
	if apiErr.Code != http.StatusTooManyRequests || apiErr.Message != "quota" {
		t.Errorf("api error = %d %q", apiErr.Code, apiErr.Message)
	}
}

func TestGeminiGenerateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiClient(context.Background(), GeminiOptions{
		APIKey:   "k",
		Model:    "gemini-2.5-flash",
		Endpoint: srv.URL,
	}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	if _, err := g.Generate(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), GeminiOptions{Model: "m"}, nil, logger.Nop()); err == nil {
		t.Fatal("expected error without key")
	}
}
