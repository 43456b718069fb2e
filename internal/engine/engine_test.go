package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/sentinel/internal/reasoner"
	"github.com/MikeSquared-Agency/sentinel/internal/reporter"
	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubStore struct {
	mu    sync.Mutex
	saved map[string]*session.State
}

func (s *stubStore) LoadAll(ctx context.Context) (map[string]*session.State, error) {
	return map[string]*session.State{}, nil
}

func (s *stubStore) SaveAll(ctx context.Context, states map[string]*session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = states
	return nil
}

type scriptedReasoner struct {
	idx       int
	responses []string
	err       error
}

func (r *scriptedReasoner) Invoke(ctx context.Context, prompt string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	raw := r.responses[r.idx]
	if r.idx < len(r.responses)-1 {
		r.idx++
	}
	return raw, nil
}

func newTestEngine(t *testing.T, r reasoner.Reasoner, callbackURL string, deliveredHook func(string, int)) *Engine {
	t.Helper()
	logger := discardLogger()
	mgr := session.NewManager(context.Background(), &stubStore{}, logger)
	gw := reasoner.NewGateway(r, nil, nil, time.Second, logger)
	rep := reporter.New(callbackURL, nil, func(id string, actionable int) {
		mgr.RecordReport(id, actionable)
		if deliveredHook != nil {
			deliveredHook(id, actionable)
		}
	}, logger)
	rep.Start()
	t.Cleanup(rep.Stop)
	return New(mgr, gw, rep, nil, logger)
}

func TestProcessTurn_PhishingThenContactDetails(t *testing.T) {
	var mu sync.Mutex
	var reports []reporter.Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rep reporter.Report
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			t.Errorf("bad report payload: %v", err)
		}
		mu.Lock()
		reports = append(reports, rep)
		mu.Unlock()
	}))
	defer srv.Close()

	scripted := &scriptedReasoner{responses: []string{
		`{"scamDetected": true, "reply": "Oh dear, which bank did you say?", "agentNotes": "phishing link sent", "confidenceScore": 0.92, "riskLevel": "HIGH", "scamCategory": "Phishing", "threatScore": 80, "isFinished": false}`,
		`{"scamDetected": true, "reply": "Let me find my chequebook.", "agentNotes": "shared account and phone", "isFinished": false}`,
	}}

	delivered := make(chan struct{}, 2)
	eng := newTestEngine(t, scripted, srv.URL, func(string, int) {
		delivered <- struct{}{}
	})

	res1 := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-1",
		Message:   "URGENT: your SBI account is blocked, verify at http://sbi-verify.example now!",
	})

	if !res1.ScamDetected {
		t.Error("turn 1: scam not detected")
	}
	if len(res1.ExtractedIntelligence.PhishingLinks) != 1 {
		t.Errorf("turn 1: links = %v", res1.ExtractedIntelligence.PhishingLinks)
	}
	if len(res1.ExtractedIntelligence.PhoneNumbers) != 0 || len(res1.ExtractedIntelligence.BankAccounts) != 0 {
		t.Errorf("turn 1: unexpected contact intelligence: %+v", res1.ExtractedIntelligence)
	}
	if res1.Reply != "Oh dear, which bank did you say?" {
		t.Errorf("turn 1: reply = %q", res1.Reply)
	}
	if res1.TotalMessagesExchanged != 2 {
		t.Errorf("turn 1: messages = %d", res1.TotalMessagesExchanged)
	}
	if res1.RiskLevel != "HIGH" || res1.Category != "Phishing" {
		t.Errorf("turn 1: advisory = %s/%s", res1.RiskLevel, res1.Category)
	}

	// One actionable item only, three messages: nothing to report yet.
	mu.Lock()
	if len(reports) != 0 {
		t.Fatalf("turn 1: premature report: %+v", reports)
	}
	mu.Unlock()

	res2 := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-1",
		Message:   "Transfer to account 123456789012, or call me on +91 98765 43210.",
	})

	if len(res2.ExtractedIntelligence.BankAccounts) != 1 {
		t.Errorf("turn 2: accounts = %v", res2.ExtractedIntelligence.BankAccounts)
	}
	if len(res2.ExtractedIntelligence.PhoneNumbers) != 1 {
		t.Errorf("turn 2: phones = %v", res2.ExtractedIntelligence.PhoneNumbers)
	}
	if res2.TotalMessagesExchanged != 4 {
		t.Errorf("turn 2: messages = %d", res2.TotalMessagesExchanged)
	}
	if res2.AgentNotes != "shared account and phone" {
		t.Errorf("turn 2: notes = %q", res2.AgentNotes)
	}
	// Advisory defaults fill what the provider omitted.
	if res2.Confidence != 0.95 || res2.RiskLevel != "HIGH" || res2.Category != "Bank Fraud" || res2.ThreatScore != 85 {
		t.Errorf("turn 2: defaults = %v/%s/%s/%v", res2.Confidence, res2.RiskLevel, res2.Category, res2.ThreatScore)
	}

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("report was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	got := reports[0]
	if got.SessionID != "case-1" || !got.ScamDetected || got.TotalMessagesExchanged != 4 {
		t.Errorf("report payload: %+v", got)
	}
	if len(got.ExtractedIntelligence.PhishingLinks) != 1 ||
		len(got.ExtractedIntelligence.BankAccounts) != 1 ||
		len(got.ExtractedIntelligence.PhoneNumbers) != 1 {
		t.Errorf("report intelligence: %+v", got.ExtractedIntelligence)
	}
}

func TestProcessTurn_PersonaFallback(t *testing.T) {
	failing := &scriptedReasoner{err: errors.New("provider down")}
	eng := newTestEngine(t, failing, "http://unused.invalid", nil)

	res := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-2",
		Message:   "Your HDFC account needs KYC verification immediately",
	})

	if res.Reply == "" {
		t.Fatal("persona produced no reply")
	}
	if !res.ScamDetected {
		t.Error("lexical override should have detected the scam")
	}
	if res.Confidence != 0.9 || res.RiskLevel != "HIGH" || res.Category != "Fraud Alert" || res.ThreatScore != 90 {
		t.Errorf("persona advisory = %v/%s/%s/%v", res.Confidence, res.RiskLevel, res.Category, res.ThreatScore)
	}

	res2 := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-2",
		Message:   "Do it now or the account is blocked",
	})
	if res2.Reply == res.Reply {
		t.Error("persona repeated itself on consecutive turns")
	}
}

func TestProcessTurn_InboundSenderAndTimestampKept(t *testing.T) {
	scripted := &scriptedReasoner{responses: []string{`{"reply": "Let me write that down."}`}}
	eng := newTestEngine(t, scripted, "http://unused.invalid", nil)

	res := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-5",
		Message:   "hello madam",
		Sender:    session.SenderCounterpart,
		Timestamp: 1700000000123,
	})

	if len(res.History) != 2 {
		t.Fatalf("history = %d entries", len(res.History))
	}
	inbound := res.History[0]
	if inbound.Sender != session.SenderCounterpart || inbound.Text != "hello madam" {
		t.Errorf("inbound entry = %+v", inbound)
	}
	if inbound.Timestamp != 1700000000123 {
		t.Errorf("client timestamp not kept: %d", inbound.Timestamp)
	}

	// Absent fields fall back to the counterpart sender stamped now.
	res2 := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-5b",
		Message:   "hello again",
	})
	inbound2 := res2.History[0]
	if inbound2.Sender != session.SenderCounterpart {
		t.Errorf("default sender = %q", inbound2.Sender)
	}
	if inbound2.Timestamp == 0 {
		t.Error("missing timestamp was not stamped")
	}
}

func TestProcessTurn_PersonaDetectsFraudTriggers(t *testing.T) {
	failing := &scriptedReasoner{err: errors.New("provider down")}
	eng := newTestEngine(t, failing, "http://unused.invalid", nil)

	res := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-6",
		Message:   "Please verify your parcel delivery immediately or it is blocked",
	})

	if !res.ScamDetected {
		t.Error("persona trigger words did not flag the scam")
	}
	if res.Confidence != 0.9 || res.RiskLevel != "HIGH" || res.Category != "Fraud Alert" || res.ThreatScore != 90 {
		t.Errorf("persona advisory = %v/%s/%s/%v", res.Confidence, res.RiskLevel, res.Category, res.ThreatScore)
	}
	if !strings.Contains(strings.ToLower(res.Reply), "scam") && !strings.Contains(strings.ToLower(res.Reply), "serious") && !strings.Contains(strings.ToLower(res.Reply), "number") {
		t.Errorf("expected a fraud persona line, got %q", res.Reply)
	}
}

func TestProcessTurn_PersonaBenignDefaults(t *testing.T) {
	failing := &scriptedReasoner{err: errors.New("provider down")}
	eng := newTestEngine(t, failing, "http://unused.invalid", nil)

	res := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-7",
		Message:   "hello there, are you coming to lunch tomorrow?",
	})

	if res.ScamDetected {
		t.Error("benign persona turn flagged as scam")
	}
	if res.Confidence != 0.1 || res.ThreatScore != 10 || res.RiskLevel != "LOW" || res.Category != "Benign" {
		t.Errorf("benign persona advisory = %v/%s/%s/%v", res.Confidence, res.RiskLevel, res.Category, res.ThreatScore)
	}
	if res.Reply == "" {
		t.Error("persona produced no reply")
	}
}

func TestProcessTurn_ReconcileAdoptsLongerClientHistory(t *testing.T) {
	scripted := &scriptedReasoner{responses: []string{`{"reply": "Who is this again?"}`}}
	eng := newTestEngine(t, scripted, "http://unused.invalid", nil)

	clientHistory := []session.Message{
		{Sender: session.SenderCounterpart, Text: "hello sir", Timestamp: 1},
		{Sender: session.SenderDecoy, Text: "hello, who is calling?", Timestamp: 2},
	}

	res := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-3",
		Message:   "I am from customer support",
		History:   clientHistory,
	})

	// Two restored turns, the inbound message and the decoy reply.
	if res.TotalMessagesExchanged != 4 {
		t.Errorf("messages = %d, want 4", res.TotalMessagesExchanged)
	}
	if len(res.History) != 4 {
		t.Fatalf("history = %d entries", len(res.History))
	}
	if res.History[0].Text != "hello sir" {
		t.Errorf("restored history lost: %+v", res.History[0])
	}
	if last := res.History[3]; last.Sender != session.SenderDecoy || last.Text != "Who is this again?" {
		t.Errorf("final entry = %+v", last)
	}
}

func TestProcessTurn_BenignSmallTalk(t *testing.T) {
	scripted := &scriptedReasoner{responses: []string{
		`{"scamDetected": false, "reply": "Hello dear, lovely weather today."}`,
	}}
	eng := newTestEngine(t, scripted, "http://unused.invalid", nil)

	res := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "case-4",
		Message:   "hi, how are you doing today?",
	})

	if res.ScamDetected {
		t.Error("benign turn flagged as scam")
	}
	if res.RiskLevel != "LOW" || res.Category != "Benign" {
		t.Errorf("advisory = %s/%s", res.RiskLevel, res.Category)
	}
	if res.ExtractedIntelligence.Count() != 0 {
		t.Errorf("intelligence on benign turn: %+v", res.ExtractedIntelligence)
	}
	if !strings.Contains(strings.ToLower(res.Reply), "hello") {
		t.Errorf("reply = %q", res.Reply)
	}
}
