// Package engine orchestrates one conversation turn: reconcile the
// ledger, harvest intelligence, consult the reasoning provider (or the
// offline persona), and hand ready cases to the reporter. A turn always
// produces a reply; provider failures degrade the turn, never fail it.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/sentinel/internal/events"
	"github.com/MikeSquared-Agency/sentinel/internal/intel"
	"github.com/MikeSquared-Agency/sentinel/internal/reasoner"
	"github.com/MikeSquared-Agency/sentinel/internal/reporter"
	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

// scamOverrideTerms flip a session to scam-detected on lexical evidence
// alone, regardless of what the reasoning provider concluded.
var scamOverrideTerms = []string{"bank", "sbi", "hdfc", "upi", "kyc"}

// TurnRequest is one inbound counterpart message plus the client's view
// of the conversation so far. Sender and Timestamp are the client's own
// values for the message; when absent the ledger entry defaults to the
// counterpart sender stamped at receipt time.
type TurnRequest struct {
	SessionID  string
	Message    string
	Sender     string
	Timestamp  int64
	History    []session.Message
	Credential string
}

// TurnResult is the full per-turn response surface.
type TurnResult struct {
	SessionID              string                   `json:"sessionId"`
	Reply                  string                   `json:"reply"`
	ScamDetected           bool                     `json:"scamDetected"`
	TotalMessagesExchanged int                      `json:"totalMessagesExchanged"`
	ExtractedIntelligence  intel.Bundle             `json:"extractedIntelligence"`
	AgentNotes             string                   `json:"agentNotes"`
	Confidence             float64                  `json:"confidenceScore"`
	RiskLevel              string                   `json:"riskLevel"`
	Category               string                   `json:"scamCategory"`
	ThreatScore            float64                  `json:"threatScore"`
	Behavioral             reasoner.BehavioralFlags `json:"behavioralIndicators"`
	History                []session.Message        `json:"conversationHistory"`
}

type Engine struct {
	manager   *session.Manager
	gateway   *reasoner.Gateway
	reporter  *reporter.Reporter
	publisher reporter.Publisher
	logger    *slog.Logger
}

func New(manager *session.Manager, gateway *reasoner.Gateway, rep *reporter.Reporter, publisher reporter.Publisher, logger *slog.Logger) *Engine {
	return &Engine{
		manager:   manager,
		gateway:   gateway,
		reporter:  rep,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessTurn runs one full conversation turn. It never fails: when the
// reasoning provider is unavailable the offline persona answers and the
// turn proceeds on heuristic intelligence alone.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) TurnResult {
	state, release := e.manager.Acquire(req.SessionID)

	wasDetected := state.ScamDetected

	sender := req.Sender
	if sender == "" {
		sender = session.SenderCounterpart
	}
	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	state.Reconcile(req.History)
	state.Append(session.Message{
		Sender:    sender,
		Text:      req.Message,
		Timestamp: timestamp,
	})

	combined := state.Transcript()

	// Heuristic harvest commits before the provider is consulted, so a
	// provider failure can never lose wire-visible identifiers.
	state.Intelligence.Merge(intel.ExtractHeuristics(combined))

	for _, term := range scamOverrideTerms {
		if strings.Contains(combined, term) {
			state.ScamDetected = true
			break
		}
	}

	prompt := reasoner.BuildPrompt(state.Notes, state.History)
	out, err := e.gateway.Analyze(ctx, req.Credential, prompt)

	var reply string
	var finished bool
	var confidence, threat float64
	var riskLevel, category string
	var behavioral reasoner.BehavioralFlags

	if err != nil {
		e.logger.Warn("reasoning unavailable, persona answering",
			"session_id", req.SessionID, "error", err)

		// With no provider verdict, the persona's own trigger list is
		// the detection signal.
		if reasoner.FraudLikely(combined) {
			state.ScamDetected = true
		}

		reply = reasoner.PersonaReply(combined, strings.ToLower(req.Message), state.LastPersonaReply)
		state.LastPersonaReply = reply

		confidence, threat = 0.1, 10
		riskLevel, category = "LOW", "Benign"
		if state.ScamDetected {
			confidence, threat = 0.9, 90
			riskLevel, category = "HIGH", "Fraud Alert"
		}
	} else {
		state.Intelligence.Merge(out.Intelligence)
		if out.ScamDetected {
			state.ScamDetected = true
		}
		if out.Notes != "" {
			state.Notes = out.Notes
		}

		reply = out.Reply
		if reply == "" {
			reply = reasoner.PersonaReply(combined, strings.ToLower(req.Message), state.LastPersonaReply)
			state.LastPersonaReply = reply
		}
		finished = out.IsFinished
		behavioral = out.Behavioral

		confidence, threat = out.Confidence, out.ThreatScore
		riskLevel, category = out.RiskLevel, out.Category
		if confidence == 0 {
			confidence = 0.1
			if state.ScamDetected {
				confidence = 0.95
			}
		}
		if threat == 0 {
			threat = 5
			if state.ScamDetected {
				threat = 85
			}
		}
		if riskLevel == "" {
			riskLevel = "LOW"
			if state.ScamDetected {
				riskLevel = "HIGH"
			}
		}
		if category == "" {
			category = "Benign"
			if state.ScamDetected {
				category = "Bank Fraud"
			}
		}
	}

	state.Append(session.Message{
		Sender:    session.SenderDecoy,
		Text:      reply,
		Timestamp: time.Now().UnixMilli(),
	})

	if !wasDetected && state.ScamDetected && e.publisher != nil {
		if perr := e.publisher.Publish(events.SubjectScamDetected, map[string]any{
			"sessionId": state.ID,
			"messages":  state.TotalMessages,
		}); perr != nil {
			e.logger.Warn("publish scam.detected failed", "error", perr)
		}
	}

	e.reporter.Maybe(state, finished)

	result := TurnResult{
		SessionID:              state.ID,
		Reply:                  reply,
		ScamDetected:           state.ScamDetected,
		TotalMessagesExchanged: state.TotalMessages,
		ExtractedIntelligence:  state.Intelligence.Snapshot(),
		AgentNotes:             state.Notes,
		Confidence:             confidence,
		RiskLevel:              riskLevel,
		Category:               category,
		ThreatScore:            threat,
		Behavioral:             behavioral,
		History:                append([]session.Message(nil), state.History...),
	}

	release()

	go e.manager.Flush(context.Background())

	return result
}
