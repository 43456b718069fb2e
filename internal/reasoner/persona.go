package reasoner

import "strings"

// Offline persona: when every provider step fails, the decoy still has
// to answer in character. Replies are canned, keyed on simple lexical
// rules, and rotate so the same line is never sent twice in a row.

var fraudTriggers = []string{
	"bank", "upi", "hdfc", "block", "verify", "link", "win", "otp",
	"support", "kyc",
}

var openerLines = []string{
	"Oh, hello there. My hearing aid is acting up a little... may I ask who is this and how did you get my number?",
	"I'm sorry, I don't think I know you? Do you have the right number?",
	"Who is this, please? I don't usually get messages from strangers.",
}

var smalltalkLines = []string{
	"I'm doing quite well, thank you! Just putting on the kettle. How are you doing?",
	"Oh, quite well, dear. The garden keeps me busy. And yourself?",
}

var fraudLines = []string{
	"Oh dear, my pension account? Is it safe? My grandson told me about those scammers... what should I do?",
	"Goodness, that sounds serious. Which branch are you calling from? I'd like to write down your name.",
	"Oh my, I don't understand these things very well. Can you give me a number I can call you back on?",
}

// FraudLikely reports whether the combined transcript contains any of
// the fraud trigger words.
func FraudLikely(combined string) bool {
	for _, kw := range fraudTriggers {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

// PersonaReply picks a canned in-character reply. combined is the full
// lowercased transcript, latest the lowercased newest counterpart
// message, last the previous canned line sent in this session (empty if
// none). The returned line always differs from last.
func PersonaReply(combined, latest, last string) string {
	lines := openerLines
	switch {
	case strings.Contains(latest, "how are you"):
		lines = smalltalkLines
	case FraudLikely(combined):
		lines = fraudLines
	}

	for _, line := range lines {
		if line != last {
			return line
		}
	}
	return lines[0]
}
