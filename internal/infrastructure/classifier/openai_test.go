package classifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fallout/internal/domain/fallout"
)

func chatServer(t *testing.T, content string, delay time.Duration) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "ORD-002") {
			t.Errorf("request body does not describe the order: %s", body)
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1767225600,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClassifierParsesLabel(t *testing.T) {
	srv := chatServer(t, " esim_issue.", 0)

	classifier, err := NewOpenAIClassifier(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewOpenAIClassifier() error = %v", err)
	}

	got, err := classifier.Classify(context.Background(), fallout.RemediationState{
		Order: fallout.Order{OrderID: "ORD-002", Status: fallout.StatusFailed, ServiceType: fallout.ServiceMobile},
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != fallout.CategoryEsimIssue {
		t.Fatalf("Classify() = %s, want ESIM_ISSUE", got)
	}
}

func TestOpenAIClassifierRespectsDeadline(t *testing.T) {
	srv := chatServer(t, "SWITCH_ISSUE", time.Second)

	classifier, err := NewOpenAIClassifier(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewOpenAIClassifier() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := classifier.Classify(ctx, fallout.RemediationState{Order: fallout.Order{OrderID: "ORD-002"}}); err == nil {
		t.Fatalf("Classify() expected deadline error")
	}
}

func TestNewOpenAIClassifierRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClassifier(OpenAIConfig{}); err == nil {
		t.Fatalf("NewOpenAIClassifier() expected error without api key")
	}
}
