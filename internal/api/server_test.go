package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/sentinel/internal/engine"
	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubHandler struct {
	last engine.TurnRequest
}

func (h *stubHandler) ProcessTurn(ctx context.Context, req engine.TurnRequest) engine.TurnResult {
	h.last = req
	return engine.TurnResult{
		SessionID:    req.SessionID,
		Reply:        "Oh my, let me check.",
		ScamDetected: true,
	}
}

func newTestServer(t *testing.T) (*Server, *stubHandler) {
	t.Helper()
	h := &stubHandler{}
	return NewServer(8780, "master-key", h, discardLogger()), h
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/sentinel/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["service"] != "sentinel" {
		t.Errorf("expected service sentinel, got %q", body["service"])
	}
}

func TestMessage_MissingAPIKey(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/message", strings.NewReader(`{"message":"hi"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "error" {
		t.Errorf("expected error status, got %q", body["status"])
	}
}

func TestMessage_StringAndObjectBodies(t *testing.T) {
	srv, h := newTestServer(t)

	for _, payload := range []string{
		`{"sessionId":"s1","message":"your account is blocked"}`,
		`{"sessionId":"s1","message":{"text":"your account is blocked"}}`,
	} {
		req := httptest.NewRequest("POST", "/api/message", strings.NewReader(payload))
		req.Header.Set("x-api-key", "master-key")
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("payload %s: status %d", payload, w.Code)
		}
		if h.last.Message != "your account is blocked" {
			t.Errorf("payload %s: message = %q", payload, h.last.Message)
		}
		if h.last.Credential != "" {
			t.Errorf("master key must not become a credential, got %q", h.last.Credential)
		}

		var resp struct {
			Status       string `json:"status"`
			Reply        string `json:"reply"`
			ScamDetected bool   `json:"scamDetected"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "success" || resp.Reply == "" || !resp.ScamDetected {
			t.Errorf("response = %+v", resp)
		}
	}
}

func TestMessage_ForeignKeyBecomesCredential(t *testing.T) {
	srv, h := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/message", strings.NewReader(`{"message":"hello"}`))
	req.Header.Set("x-api-key", "sk-evaluator-key-000000000000000000")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if h.last.Credential != "sk-evaluator-key-000000000000000000" {
		t.Errorf("credential = %q", h.last.Credential)
	}
	if h.last.SessionID == "" {
		t.Error("missing sessionId was not generated")
	}
}

func TestMessage_SenderAndTimestampCarried(t *testing.T) {
	srv, h := newTestServer(t)

	payload := `{"sessionId":"s5","message":{"sender":"scammer","text":"act now","timestamp":1700000000123}}`
	req := httptest.NewRequest("POST", "/api/message", strings.NewReader(payload))
	req.Header.Set("x-api-key", "master-key")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if h.last.Sender != "scammer" {
		t.Errorf("sender = %q", h.last.Sender)
	}
	if h.last.Timestamp != 1700000000123 {
		t.Errorf("timestamp = %d", h.last.Timestamp)
	}
}

func TestMessage_History(t *testing.T) {
	srv, h := newTestServer(t)

	payload := `{"sessionId":"s2","message":"call me","conversationHistory":[{"sender":"scammer","text":"hello sir","timestamp":1}]}`
	req := httptest.NewRequest("POST", "/api/message", strings.NewReader(payload))
	req.Header.Set("x-api-key", "master-key")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(h.last.History) != 1 || h.last.History[0].Sender != session.SenderCounterpart {
		t.Errorf("history = %+v", h.last.History)
	}
}

func TestMessage_BadBodies(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, payload := range []string{`not json`, `{"sessionId":"s3"}`, `{"message":""}`} {
		req := httptest.NewRequest("POST", "/api/message", strings.NewReader(payload))
		req.Header.Set("x-api-key", "master-key")
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("payload %q: status %d, want 400", payload, w.Code)
		}
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
