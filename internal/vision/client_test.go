package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"screenshot-organizer/internal/config"
	"screenshot-organizer/internal/images"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func (m *memoryCache) GetAnalysis(digest, model string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.entries[digest+"|"+model]
	return text, ok, nil
}

func (m *memoryCache) PutAnalysis(digest, model, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]string)
	}
	m.entries[digest+"|"+model] = text
	return nil
}

func writeScreenshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return path
}

type generateStub struct {
	mu       sync.Mutex
	calls    int
	failures int
	auth     []string
	reply    string
}

func (s *generateStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.auth = append(s.auth, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/x-ndjson")
	if r.URL.Path != "/api/generate" {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		return
	}
	var req struct {
		Model  string   `json:"model"`
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Images) != 1 {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad request"})
		return
	}
	if s.calls <= s.failures {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "model loading"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":    req.Model,
		"response": s.reply,
		"done":     true,
	})
}

func newTestClient(t *testing.T, endpoint string, cache AnalysisCache, apiKey string) *Client {
	t.Helper()
	cfg := config.Default().Ollama
	cfg.Endpoint = endpoint
	cfg.APIKey = apiKey
	client, err := NewClient(&cfg, cache, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.retryDelay = time.Millisecond
	return client
}

func TestAnalyzeScreenshotRetriesAndStripsThinking(t *testing.T) {
	stub := &generateStub{failures: 1, reply: "<think>reading the list</think>\nWeek 1\n1. Intro (3 min)\n2. Setup"}
	server := httptest.NewServer(stub)
	defer server.Close()

	client := newTestClient(t, server.URL, nil, "token-123")
	text, err := client.AnalyzeScreenshot(context.Background(), writeScreenshot(t))
	if err != nil {
		t.Fatalf("AnalyzeScreenshot: %v", err)
	}
	if text != "Week 1\n1. Intro (3 min)\n2. Setup" {
		t.Fatalf("unexpected text %q", text)
	}
	if stub.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", stub.calls)
	}
	for _, auth := range stub.auth {
		if auth != "Bearer token-123" {
			t.Fatalf("missing bearer token, got %q", auth)
		}
	}
}

func TestAnalyzeScreenshotUsesCache(t *testing.T) {
	stub := &generateStub{reply: "1. Intro"}
	server := httptest.NewServer(stub)
	defer server.Close()

	cache := &memoryCache{}
	client := newTestClient(t, server.URL, cache, "")
	path := writeScreenshot(t)
	for i := 0; i < 2; i++ {
		text, err := client.AnalyzeScreenshot(context.Background(), path)
		if err != nil {
			t.Fatalf("AnalyzeScreenshot: %v", err)
		}
		if text != "1. Intro" {
			t.Fatalf("unexpected text %q", text)
		}
	}
	if stub.calls != 1 {
		t.Fatalf("expected cached second call, got %d model calls", stub.calls)
	}
}

func TestAnalyzeScreenshotGivesUp(t *testing.T) {
	stub := &generateStub{failures: 10}
	server := httptest.NewServer(stub)
	defer server.Close()

	client := newTestClient(t, server.URL, nil, "")
	if _, err := client.AnalyzeScreenshot(context.Background(), writeScreenshot(t)); err == nil {
		t.Fatal("expected error after retries")
	}
	if stub.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", stub.calls)
	}
}

func TestAnalyzeScreenshotMissingImage(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1", nil, "")
	_, err := client.AnalyzeScreenshot(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, images.ErrNotFound) {
		t.Fatalf("expected images.ErrNotFound, got %v", err)
	}
}

func TestRemoveThinkTags(t *testing.T) {
	cases := map[string]string{
		"<think>a\nb</think>answer":  "answer",
		"answer<think>unterminated":  "answer",
		"  plain  ":                  "plain",
		"x<think>1</think>y<think>2": "xy",
	}
	for in, want := range cases {
		if got := removeThinkTags(in); got != want {
			t.Errorf("removeThinkTags(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAnalyzeScreenshotLogsImageDetails(t *testing.T) {
	stub := &generateStub{reply: "1. Intro"}
	server := httptest.NewServer(stub)
	defer server.Close()

	var logs bytes.Buffer
	cfg := config.Default().Ollama
	cfg.Endpoint = server.URL
	client, err := NewClient(&cfg, nil, slog.New(slog.NewJSONHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.AnalyzeScreenshot(context.Background(), writeScreenshot(t)); err != nil {
		t.Fatalf("AnalyzeScreenshot: %v", err)
	}
	if !strings.Contains(logs.String(), `"mime_type":"image/png"`) {
		t.Fatalf("mime type not logged:\n%s", logs.String())
	}
}
