package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/sentinel/internal/engine"
	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

// TurnHandler processes one conversation turn.
type TurnHandler interface {
	ProcessTurn(ctx context.Context, req engine.TurnRequest) engine.TurnResult
}

type Server struct {
	router    *chi.Mux
	srv       *http.Server
	masterKey string
	handler   TurnHandler
	logger    *slog.Logger
}

func NewServer(port int, masterKey string, handler TurnHandler, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		masterKey: masterKey,
		handler:   handler,
		logger:    logger,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
		},
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/sentinel/status", s.status)
	router.With(s.requireAPIKey).Post("/api/message", s.message)

	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type ctxKey int

const credentialKey ctxKey = 0

// requireAPIKey rejects requests without an x-api-key header. The master
// key authorizes plainly; any other value is passed through as a
// caller-supplied reasoning credential, which keeps the endpoint open to
// evaluators carrying their own provider key.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("x-api-key")
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing x-api-key header")
			return
		}
		credential := ""
		if key != s.masterKey {
			credential = key
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), credentialKey, credential)))
	})
}

// messageBody tolerates both wire shapes for the inbound message: a bare
// string and an object carrying a text field.
type messageBody struct {
	SessionID string            `json:"sessionId"`
	Message   json.RawMessage   `json:"message"`
	History   []session.Message `json:"conversationHistory"`
}

func (b *messageBody) message() session.Message {
	var plain string
	if err := json.Unmarshal(b.Message, &plain); err == nil {
		return session.Message{Text: plain}
	}
	var msg session.Message
	if err := json.Unmarshal(b.Message, &msg); err == nil {
		return msg
	}
	return session.Message{}
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg := body.message()
	if msg.Text == "" {
		writeError(w, http.StatusBadRequest, "message text is required")
		return
	}
	if body.SessionID == "" {
		body.SessionID = uuid.NewString()
	}

	credential, _ := r.Context().Value(credentialKey).(string)

	result := s.handler.ProcessTurn(r.Context(), engine.TurnRequest{
		SessionID:  body.SessionID,
		Message:    msg.Text,
		Sender:     msg.Sender,
		Timestamp:  msg.Timestamp,
		History:    body.History,
		Credential: credential,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		engine.TurnResult
	}{Status: "success", TurnResult: result})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"service": "sentinel",
		"status":  "active",
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "error",
		"error":  msg,
	})
}
