// Package reporter decides when a session's case file is worth filing
// and delivers it to the external callback endpoint. Delivery runs on a
// background worker so a slow or unreachable endpoint never stalls a
// conversation turn.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/sentinel/internal/events"
	"github.com/MikeSquared-Agency/sentinel/internal/intel"
	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

// Report is the final-result payload posted to the callback endpoint.
type Report struct {
	SessionID              string       `json:"sessionId"`
	ScamDetected           bool         `json:"scamDetected"`
	TotalMessagesExchanged int          `json:"totalMessagesExchanged"`
	ExtractedIntelligence  intel.Bundle `json:"extractedIntelligence"`
	AgentNotes             string       `json:"agentNotes"`

	actionable int
}

// Publisher receives case lifecycle notifications. May be nil.
type Publisher interface {
	Publish(subject string, data any) error
}

// Reporter queues ready cases and posts them from a single worker
// goroutine. The delivery watermark only advances on a 2xx response, via
// the onDelivered callback, so a failed delivery is retried the next
// time the session's intelligence grows.
type Reporter struct {
	url         string
	client      *http.Client
	publisher   Publisher
	onDelivered func(sessionID string, actionable int)
	logger      *slog.Logger

	queue chan Report
	wg    sync.WaitGroup
}

func New(url string, publisher Publisher, onDelivered func(string, int), logger *slog.Logger) *Reporter {
	return &Reporter{
		url:         url,
		client:      &http.Client{Timeout: 10 * time.Second},
		publisher:   publisher,
		onDelivered: onDelivered,
		logger:      logger,
		queue:       make(chan Report, 64),
	}
}

// Start launches the delivery worker.
func (r *Reporter) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for rep := range r.queue {
			r.deliver(rep)
		}
	}()
}

// Stop drains the queue and waits for in-flight deliveries.
func (r *Reporter) Stop() {
	close(r.queue)
	r.wg.Wait()
}

// Maybe enqueues a final-result report if the session has crossed a
// reporting threshold and its actionable intelligence has grown since
// the last successful delivery. finished marks a conversation the
// reasoner judged to be over. Returns true when a report was queued.
func (r *Reporter) Maybe(s *session.State, finished bool) bool {
	if !ready(s, finished) {
		return false
	}

	actionable := s.Intelligence.ActionableCount()
	if s.Reported && actionable <= s.LastReportedCount {
		return false
	}

	rep := Report{
		SessionID:              s.ID,
		ScamDetected:           s.ScamDetected,
		TotalMessagesExchanged: s.TotalMessages,
		ExtractedIntelligence:  s.Intelligence.Snapshot(),
		AgentNotes:             s.Notes,
		actionable:             actionable,
	}

	select {
	case r.queue <- rep:
		r.logger.Info("case queued for reporting",
			"session_id", s.ID, "actionable", actionable, "messages", s.TotalMessages)
		return true
	default:
		r.logger.Warn("report queue full, dropping", "session_id", s.ID)
		return false
	}
}

// ready applies the reporting thresholds: a detected scam plus any of a
// finished conversation, three pieces of actionable intelligence, a
// direct contact handle, or a conversation of at least five messages.
func ready(s *session.State, finished bool) bool {
	if !s.ScamDetected {
		return false
	}
	return finished ||
		s.Intelligence.ActionableCount() >= 3 ||
		s.Intelligence.HasDirectContact() ||
		s.TotalMessages >= 5
}

func (r *Reporter) deliver(rep Report) {
	deliveryID := uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := r.post(ctx, rep); err != nil {
		r.logger.Error("report delivery failed",
			"delivery_id", deliveryID, "session_id", rep.SessionID, "error", err)
		return
	}

	r.logger.Info("case reported",
		"delivery_id", deliveryID, "session_id", rep.SessionID, "actionable", rep.actionable)

	if r.onDelivered != nil {
		r.onDelivered(rep.SessionID, rep.actionable)
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(events.SubjectCaseReported, rep); err != nil {
			r.logger.Warn("publish case.reported failed", "error", err)
		}
	}
}

func (r *Reporter) post(ctx context.Context, rep Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
