// Package session holds the authoritative per-conversation record: the
// message ledger, the accumulated intelligence bundle and the reporting
// watermark for one decoy conversation.
package session

import (
	"strings"

	"github.com/MikeSquared-Agency/sentinel/internal/intel"
)

// Message senders as they appear on the wire. The decoy replies as
// "user" since, from the counterpart's point of view, it is the victim.
const (
	SenderDecoy       = "user"
	SenderCounterpart = "scammer"
)

// Message is one conversation turn. Immutable once appended.
type Message struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// State is the full per-session record. It is owned by exactly one turn
// at a time (see Manager) and snapshotted to durable storage between
// turns.
type State struct {
	ID                string       `json:"sessionId"`
	History           []Message    `json:"history"`
	Intelligence      intel.Bundle `json:"extractedIntelligence"`
	ScamDetected      bool         `json:"scamDetected"`
	Notes             string       `json:"agentNotes"`
	TotalMessages     int          `json:"totalMessagesExchanged"`
	Reported          bool         `json:"reported"`
	LastReportedCount int          `json:"lastReportedIntelligenceCount"`
	LastPersonaReply  string       `json:"lastPersonaReply,omitempty"`
}

func New(id string) *State {
	return &State{ID: id}
}

// Reconcile merges a client-supplied history into the ledger. A strictly
// longer client history is adopted, which heals sessions after a server
// restart. Anything else keeps the server's record, so a client cannot
// truncate or rewrite past turns. Returns true when the client history
// was adopted.
func (s *State) Reconcile(client []Message) bool {
	if len(client) > len(s.History) {
		s.History = append([]Message(nil), client...)
		return true
	}
	return false
}

// Append adds a message to the ledger and refreshes the message total.
// The total counts both decoy and counterpart turns.
func (s *State) Append(msg Message) {
	s.History = append(s.History, msg)
	s.TotalMessages = len(s.History)
}

// Transcript renders the full ledger as one lowercased string for
// lexical scanning.
func (s *State) Transcript() string {
	var b strings.Builder
	for _, m := range s.History {
		b.WriteString(m.Sender)
		b.WriteByte(' ')
		b.WriteString(m.Text)
		b.WriteByte(' ')
	}
	return strings.ToLower(b.String())
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *State) Clone() *State {
	c := *s
	c.History = append([]Message(nil), s.History...)
	c.Intelligence = s.Intelligence.Snapshot()
	return &c
}
